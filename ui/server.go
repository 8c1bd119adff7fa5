package ui

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhamidi/javasyn/format"
	"github.com/dhamidi/javasyn/java/scanner"
	"github.com/dhamidi/javasyn/java/syntax"
	"github.com/dhamidi/javasyn/metrics"
	"github.com/munnerz/goautoneg"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tliron/commonlog"
	"golang.org/x/time/rate"
)

//go:embed static templates
var embeddedFS embed.FS

// maxSummaryErrors is how many diagnostics the result page lists in its
// error summary.
const maxSummaryErrors = 3

// errOutsideRoot rejects scan paths that resolve outside the scan root.
var errOutsideRoot = errors.New("path is outside the scan root")

// Scans queues scan jobs and reports on them.
type Scans interface {
	Submit(req scanner.Request) (string, error)
	Get(id string) (*scanner.Result, bool)
	List() []*scanner.Result
}

type Options struct {
	RateLimit      float64
	Burst          int
	MaxSourceBytes int64
	// ScanRoot is the directory scans are confined to. Empty means the
	// working directory.
	ScanRoot string
	Scanner  Scans
}

type Server struct {
	scanner        Scans
	scanRoot       string // absolute, symlinks resolved
	scanRootAbs    string // absolute, as configured
	limiter        *rate.Limiter
	maxSourceBytes int64
	staticFS       fs.FS
	templateFS     fs.FS
	funcMap        template.FuncMap
	mux            *http.ServeMux
	log            commonlog.Logger
}

func NewServer(opts Options) (*Server, error) {
	staticFS := overlayFS("ui/static", mustSub(embeddedFS, "static"))
	templateFS := overlayFS("ui/templates", mustSub(embeddedFS, "templates"))

	funcMap := template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"sub": func(a, b int) int {
			return a - b
		},
		"mul": func(a int, b float64) float64 {
			return float64(a) * b
		},
		"tokenClass": func(t syntax.TokenType) string {
			return strings.ToLower(t.String())
		},
	}

	// Parse once up front so that broken templates fail at startup.
	if _, err := template.New("").Funcs(funcMap).ParseFS(templateFS, "*.html"); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	if opts.Scanner == nil {
		opts.Scanner = scanner.New(nil, 0)
	}

	scanRootAbs, scanRoot, err := resolveRoot(opts.ScanRoot)
	if err != nil {
		return nil, err
	}

	s := &Server{
		scanner:        opts.Scanner,
		scanRoot:       scanRoot,
		scanRootAbs:    scanRootAbs,
		limiter:        rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst),
		maxSourceBytes: opts.MaxSourceBytes,
		staticFS:       staticFS,
		templateFS:     templateFS,
		funcMap:        funcMap,
		mux:            http.NewServeMux(),
		log:            commonlog.GetLogger("javasyn.ui"),
	}

	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("POST /analyze", s.handleAnalyze)
	s.mux.HandleFunc("POST /scan", s.handleScan)
	s.mux.HandleFunc("GET /scans/{id}", s.handleGetScan)
	s.mux.HandleFunc("GET /{$}", s.handleIndex)

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.log.Debug("request", "method", r.Method, "path", r.URL.Path)
	s.mux.ServeHTTP(w, r)
}

// render re-reads templates on every call so that edits under
// ui/templates show up without a restart.
func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, err := template.New("").Funcs(s.funcMap).ParseFS(s.templateFS, "*.html")
	if err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error("render template", "name", name, "error", err.Error())
	}
}

func wantsJSON(r *http.Request) bool {
	offers := []string{"text/html", "application/json"}
	return goautoneg.Negotiate(r.Header.Get("Accept"), offers) == "application/json"
}

// isJSONBody reports whether the request body is declared as JSON,
// ignoring parameters such as charset.
func isJSONBody(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

func resolveRoot(root string) (abs, resolved string, err error) {
	if root == "" {
		root = "."
	}
	if abs, err = filepath.Abs(root); err != nil {
		return "", "", fmt.Errorf("resolve scan root %s: %w", root, err)
	}
	if resolved, err = filepath.EvalSymlinks(abs); err != nil {
		return "", "", fmt.Errorf("resolve scan root %s: %w", root, err)
	}
	return abs, resolved, nil
}

// confine resolves p against the scan root, following symlinks, and
// fails unless the result lies within the root. Relative paths are taken
// relative to the root.
func (s *Server) confine(p string) (string, error) {
	if !filepath.IsAbs(p) {
		p = filepath.Join(s.scanRoot, p)
	}
	p = filepath.Clean(p)
	if !within(s.scanRootAbs, p) && !within(s.scanRoot, p) {
		return "", fmt.Errorf("%s: %w", p, errOutsideRoot)
	}
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	if !within(s.scanRoot, resolved) {
		return "", fmt.Errorf("%s: %w", p, errOutsideRoot)
	}
	return resolved, nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

type analyzeRequest struct {
	Source string `json:"source"`
}

func (s *Server) readSource(w http.ResponseWriter, r *http.Request) (string, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxSourceBytes)

	var req analyzeRequest
	var err error
	if isJSONBody(r) {
		err = json.NewDecoder(r.Body).Decode(&req)
	} else if err = r.ParseForm(); err == nil {
		req.Source = r.PostFormValue("source")
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return "", http.StatusRequestEntityTooLarge, fmt.Errorf("source exceeds %d bytes", tooLarge.Limit)
	case err != nil:
		return "", http.StatusBadRequest, fmt.Errorf("invalid request: %w", err)
	case strings.TrimSpace(req.Source) == "":
		return "", http.StatusBadRequest, errors.New("source is empty")
	}
	return req.Source, http.StatusOK, nil
}

type outlineRow struct {
	Path       string
	Depth      int
	Kind       string
	Name       string
	ReturnType string
}

type analysisView struct {
	Source     string
	Result     syntax.Result
	TopErrors  []syntax.Diagnostic
	MoreErrors int
	Outline    []outlineRow
}

func newAnalysisView(source string, result syntax.Result) analysisView {
	v := analysisView{
		Source:    source,
		Result:    result,
		TopErrors: result.Diagnostics,
	}
	if len(v.TopErrors) > maxSummaryErrors {
		v.TopErrors = v.TopErrors[:maxSummaryErrors]
		v.MoreErrors = len(result.Diagnostics) - maxSummaryErrors
	}
	result.Outline.Walk(func(path syntax.Path, n *syntax.Node) bool {
		if n.Kind != syntax.KindProgram {
			v.Outline = append(v.Outline, outlineRow{
				Path:       path.String(),
				Depth:      len(path) - 1,
				Kind:       n.Kind.String(),
				Name:       n.Name,
				ReturnType: n.ReturnType,
			})
		}
		return true
	})
	return v
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		metrics.RateLimitedTotal.Inc()
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	source, status, err := s.readSource(w, r)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}

	result := metrics.Analyze(metrics.SurfaceUI, source)

	if wantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		if err := format.NewJSONEncoder(w).Encode(format.Document{Result: result}); err != nil {
			s.log.Error("encode result", "error", err.Error())
		}
		return
	}

	s.render(w, "result.html", newAnalysisView(source, result))
}

type scanRequest struct {
	Path  string   `json:"path"`
	Paths []string `json:"paths"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest

	if isJSONBody(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form data: "+err.Error(), http.StatusBadRequest)
			return
		}
		req.Path = r.PostFormValue("path")
	}

	paths := req.Paths
	if p := strings.TrimSpace(req.Path); p != "" {
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		http.Error(w, "must provide path", http.StatusBadRequest)
		return
	}

	for i, p := range paths {
		resolved, err := s.confine(p)
		if errors.Is(err, errOutsideRoot) {
			s.log.Warning("scan refused", "path", p, "root", s.scanRoot)
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		if err != nil {
			http.Error(w, "invalid path: "+err.Error(), http.StatusBadRequest)
			return
		}
		paths[i] = resolved
	}

	id, err := s.scanner.Submit(scanner.Request{Paths: paths})
	if errors.Is(err, scanner.ErrQueueFull) {
		w.Header().Set("Retry-After", "5")
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if wantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"id": id})
		return
	}
	http.Redirect(w, r, "/scans/"+id, http.StatusSeeOther)
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	result, ok := s.scanner.Get(id)
	if !ok {
		http.Error(w, "scan not found", http.StatusNotFound)
		return
	}

	if wantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
		return
	}

	s.render(w, "scan.html", result)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Scans []*scanner.Result
	}{
		Scans: s.scanner.List(),
	}
	s.render(w, "index.html", data)
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

type overlayFSType struct {
	primary   fs.FS
	secondary fs.FS
}

// overlayFS serves files from primaryPath on disk when present and falls
// back to secondary.
func overlayFS(primaryPath string, secondary fs.FS) fs.FS {
	return &overlayFSType{
		primary:   os.DirFS(primaryPath),
		secondary: secondary,
	}
}

func (o *overlayFSType) Open(name string) (fs.File, error) {
	f, err := o.primary.Open(name)
	if err == nil {
		return f, nil
	}
	return o.secondary.Open(name)
}

func (o *overlayFSType) ReadDir(name string) ([]fs.DirEntry, error) {
	entries := make(map[string]fs.DirEntry)

	for _, fsys := range []fs.FS{o.secondary, o.primary} {
		if list, err := fs.ReadDir(fsys, name); err == nil {
			for _, e := range list {
				entries[e.Name()] = e
			}
		}
	}

	result := make([]fs.DirEntry, 0, len(entries))
	for _, e := range entries {
		result = append(result, e)
	}
	return result, nil
}
