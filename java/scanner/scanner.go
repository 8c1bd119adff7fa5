package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dhamidi/javasyn/metrics"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

// ErrQueueFull is returned by Submit when too many scans are waiting.
var ErrQueueFull = errors.New("scan queue is full")

const (
	queueSize = 100
	maxScans  = 1000
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

type Request struct {
	ID        string
	Paths     []string
	CreatedAt time.Time
}

type Result struct {
	ID        string
	Status    Status
	Request   Request
	Files     []FileResult
	Error     string
	StartedAt time.Time
	EndedAt   time.Time
	Progress  int
	Total     int
}

func (s *Result) finished() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

func (s *Result) ProgressPercent() int {
	if s.Total == 0 {
		return 0
	}
	return (s.Progress * 100) / s.Total
}

// FailedFiles counts files with diagnostics or read errors.
func (s *Result) FailedFiles() int {
	n := 0
	for _, f := range s.Files {
		if f.Failed() {
			n++
		}
	}
	return n
}

// Scanner runs scan jobs one at a time on a background goroutine and
// keeps the results of the most recent scans in memory.
type Scanner struct {
	mu       sync.RWMutex
	scans    map[string]*Result
	order    []string // scan ids, oldest first
	maxScans int
	requests chan Request
	filter   *Filter
	jobs     int
	log      commonlog.Logger
}

func New(filter *Filter, jobs int) *Scanner {
	s := newScanner(filter, jobs, queueSize, maxScans)
	go s.run()
	return s
}

func newScanner(filter *Filter, jobs, queue, keep int) *Scanner {
	return &Scanner{
		scans:    make(map[string]*Result),
		maxScans: keep,
		requests: make(chan Request, queue),
		filter:   filter,
		jobs:     jobs,
		log:      commonlog.GetLogger("javasyn.scanner"),
	}
}

func (s *Scanner) run() {
	for req := range s.requests {
		s.processScan(req)
	}
}

func (s *Scanner) processScan(req Request) {
	s.mu.Lock()
	result := s.scans[req.ID]
	result.Status = StatusInProgress
	result.StartedAt = time.Now()
	s.mu.Unlock()

	s.log.Info("scan started", "id", req.ID, "paths", req.Paths)

	files, err := s.scanPaths(req)

	s.mu.Lock()
	defer s.mu.Unlock()
	result.EndedAt = time.Now()
	if err != nil {
		result.Status = StatusFailed
		result.Error = err.Error()
	} else {
		result.Status = StatusCompleted
		result.Files = files
	}
	metrics.ScanJobsTotal.WithLabelValues(string(result.Status)).Inc()
	s.log.Info("scan finished", "id", req.ID, "status", result.Status, "files", len(files))
}

func (s *Scanner) scanPaths(req Request) ([]FileResult, error) {
	if len(req.Paths) == 0 {
		return nil, ErrNoInput
	}

	var sources []Source
	for _, p := range req.Paths {
		found, err := Collect(p, s.filter)
		if err != nil {
			return nil, err
		}
		sources = append(sources, found...)
	}

	s.mu.Lock()
	s.scans[req.ID].Total = len(sources)
	s.mu.Unlock()

	return AnalyzeSources(context.Background(), sources, s.jobs, func(FileResult) {
		s.mu.Lock()
		s.scans[req.ID].Progress++
		s.mu.Unlock()
	})
}

// Submit queues req and returns the id of the new scan, or ErrQueueFull
// when the queue has no room left.
func (s *Scanner) Submit(req Request) (string, error) {
	req.ID = uuid.NewString()
	req.CreatedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	// The worker only blocks on s.mu after receiving, so a non-blocking
	// send is safe while holding it.
	select {
	case s.requests <- req:
	default:
		s.log.Warning("scan rejected", "reason", ErrQueueFull.Error())
		return "", ErrQueueFull
	}

	s.scans[req.ID] = &Result{
		ID:      req.ID,
		Status:  StatusPending,
		Request: req,
	}
	s.order = append(s.order, req.ID)
	s.evict()
	return req.ID, nil
}

// evict drops the oldest finished scans until at most maxScans remain.
// Pending and running scans are never dropped. s.mu must be held.
func (s *Scanner) evict() {
	excess := len(s.scans) - s.maxScans
	if excess <= 0 {
		return
	}
	kept := s.order[:0]
	for _, id := range s.order {
		if excess > 0 && s.scans[id].finished() {
			delete(s.scans, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}

// Get returns a snapshot of the scan with the given id.
func (s *Scanner) Get(id string) (*Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.scans[id]
	if !ok {
		return nil, false
	}
	snapshot := *result
	return &snapshot, true
}

// Wait blocks until the scan finishes or ctx is done.
func (s *Scanner) Wait(ctx context.Context, id string) (*Result, error) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		result, ok := s.Get(id)
		if !ok {
			return nil, fmt.Errorf("scan %s: not found", id)
		}
		if result.finished() {
			return result, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// List returns snapshots of all scans, newest first.
func (s *Scanner) List() []*Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]*Result, 0, len(s.scans))
	for _, r := range s.scans {
		snapshot := *r
		results = append(results, &snapshot)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Request.CreatedAt.After(results[j].Request.CreatedAt)
	})
	return results
}
