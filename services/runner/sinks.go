package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/browserwing/actionrunner/models"
	"github.com/browserwing/actionrunner/pkg/logger"
	"github.com/h2non/filetype"
	"github.com/pkg/errors"
)

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, index int, result models.ActionResult) error

func (f SinkFunc) Emit(ctx context.Context, index int, result models.ActionResult) error {
	return f(ctx, index, result)
}

// LogSink writes one line per result.
type LogSink struct {
	log logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Emit(ctx context.Context, index int, r models.ActionResult) error {
	if r.Success {
		s.log.Info(ctx, "#%d %s ok in %.1fms", index+1, r.Action.Type, r.ExecutionTimeMS)
		return nil
	}
	s.log.Warn(ctx, "#%d %s failed in %.1fms [%s]: %s", index+1, r.Action.Type, r.ExecutionTimeMS, r.ErrorKind, r.Error)
	return nil
}

// JSONLinesSink streams one ActionRecord per line.
type JSONLinesSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONLinesSink(w io.Writer) *JSONLinesSink {
	return &JSONLinesSink{enc: json.NewEncoder(w)}
}

type indexedRecord struct {
	Index int `json:"index"`
	models.ActionRecord
}

func (s *JSONLinesSink) Emit(_ context.Context, index int, r models.ActionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(indexedRecord{Index: index, ActionRecord: r.Record()})
}

// ScreenshotSink writes screenshot payloads of successful actions to Dir.
// File names carry the run id from the context, so runs sharing one sink
// never overwrite each other.
type ScreenshotSink struct {
	Dir    string
	Prefix string

	mu    sync.Mutex
	files []string
	byRun map[string][]string
}

func NewScreenshotSink(dir, prefix string) *ScreenshotSink {
	return &ScreenshotSink{Dir: dir, Prefix: prefix}
}

func (s *ScreenshotSink) Emit(ctx context.Context, index int, r models.ActionResult) error {
	if !r.Success || !r.HasScreenshot() {
		return nil
	}

	ext := "bin"
	if kind, err := filetype.Match(r.Screenshot); err == nil && kind != filetype.Unknown {
		ext = kind.Extension
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return errors.Wrapf(err, "create screenshot dir %s", s.Dir)
	}

	runID := RunID(ctx)
	parts := make([]string, 0, 3)
	for _, p := range []string{s.Prefix, runID} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	parts = append(parts, fmt.Sprintf("%03d.%s", index+1, ext))
	path := filepath.Join(s.Dir, strings.Join(parts, "-"))
	if err := os.WriteFile(path, r.Screenshot, 0o644); err != nil {
		return errors.Wrapf(err, "write screenshot %s", path)
	}

	s.mu.Lock()
	s.files = append(s.files, path)
	if runID != "" {
		if s.byRun == nil {
			s.byRun = map[string][]string{}
		}
		s.byRun[runID] = append(s.byRun[runID], path)
	}
	s.mu.Unlock()
	return nil
}

// Files lists the screenshots written so far.
func (s *ScreenshotSink) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.files...)
}

// TakeArtifacts returns the files written for runID and forgets them.
func (s *ScreenshotSink) TakeArtifacts(runID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	files := s.byRun[runID]
	delete(s.byRun, runID)
	return files
}

// Collect buffers results for callers that want them after the run.
type Collect struct {
	mu      sync.Mutex
	indices []int
	results []models.ActionResult
}

func (c *Collect) Emit(_ context.Context, index int, r models.ActionResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.indices = append(c.indices, index)
	c.results = append(c.results, r)
	return nil
}

func (c *Collect) Results() []models.ActionResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ActionResult(nil), c.results...)
}

func (c *Collect) Indices() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.indices...)
}
