// Package watch re-analyzes .java files under a directory tree as they
// change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dhamidi/javasyn/java/scanner"
	"github.com/dhamidi/javasyn/java/syntax"
	"github.com/dhamidi/javasyn/metrics"
	"github.com/fsnotify/fsnotify"
	"github.com/tliron/commonlog"
)

// Event reports the analysis of one changed file. Removed files carry a
// zero Result.
type Event struct {
	Path    string
	Removed bool
	Result  syntax.Result
}

type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	root       string
	filter     *scanner.Filter
	debounce   time.Duration
	onChange   func([]Event)
	callbackMu sync.Mutex
	log        commonlog.Logger

	pendingMu sync.Mutex
	pending   map[string]struct{}
	timer     *time.Timer
}

// New starts watching every directory under root. onChange receives the
// files that changed within one debounce window, sorted by path.
func New(root string, filter *scanner.Filter, debounce time.Duration, onChange func([]Event)) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("watch: onChange is required")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		fsWatcher: fsw,
		root:      root,
		filter:    filter,
		debounce:  debounce,
		onChange:  onChange,
		log:       commonlog.GetLogger("javasyn.watch"),
		pending:   make(map[string]struct{}),
	}
	if err := w.watchRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) watchRecursive(dir string) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	return nil
}

// Run dispatches file system events until ctx is done and then closes
// the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watcher error", "error", err.Error())
		}
	}
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watchRecursive(event.Name); err != nil {
				w.log.Error("watch new directory", "path", event.Name, "error", err.Error())
			}
			return
		}
	}

	if !w.matches(event.Name) {
		return
	}
	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.schedule(event.Name)
	}
}

func (w *Watcher) matches(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	return w.filter.Match(rel)
}

func (w *Watcher) schedule(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)

	events := make([]Event, 0, len(paths))
	for _, path := range paths {
		events = append(events, w.analyze(path))
	}

	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	w.onChange(events)
}

func (w *Watcher) analyze(path string) Event {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		w.log.Info("file removed", "path", path)
		return Event{Path: path, Removed: true}
	}
	if err != nil {
		msg := fmt.Sprintf("read %s: %v", path, err)
		w.log.Error("read changed file", "path", path, "error", err.Error())
		return Event{Path: path, Result: syntax.Failed(msg)}
	}

	result := metrics.Analyze(metrics.SurfaceCLI, string(data))
	w.log.Info("file analyzed", "path", path, "diagnostics", len(result.Diagnostics))
	return Event{Path: path, Result: result}
}
