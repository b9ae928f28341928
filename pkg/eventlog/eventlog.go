// Package eventlog provides the append-only sink every emitted action is
// reported to. One line per action, timestamped, free-text description.
// The file sink survives external log rotation by watching its own path and
// reopening after a rename or removal.
package eventlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Sink records one line per attempted action. Implementations must tolerate
// concurrent appends without interleaving partial lines.
type Sink interface {
	Record(kind, target, detail string)
	Close() error
}

// FileSink appends action lines to a single log file. Writes are serialized
// with a mutex; the file is reopened if an external rotation moves it away.
type FileSink struct {
	path   string
	runID  string
	logger zerolog.Logger

	mu      sync.Mutex
	file    *os.File
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFileSink opens (or creates) the log file in append mode and starts the
// rotation watcher. The runID is stamped on every line.
func NewFileSink(path, runID string, logger zerolog.Logger) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %s: %w", path, err)
	}

	s := &FileSink{
		path:   path,
		runID:  runID,
		logger: logger.With().Str("component", "eventlog").Logger(),
		file:   f,
		done:   make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// Rotation handling is best-effort; the sink still works without it.
		s.logger.Warn().Err(err).Msg("Rotation watcher unavailable, continuing without it.")
		return s, nil
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to watch log directory, continuing without rotation handling.")
		watcher.Close()
		return s, nil
	}
	s.watcher = watcher
	go s.watchRotation()

	return s, nil
}

// Record appends one timestamped line describing an attempted action.
func (s *FileSink) Record(kind, target, detail string) {
	line := formatLine(time.Now(), s.runID, kind, target, detail)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return
	}
	if _, err := s.file.WriteString(line); err != nil {
		s.logger.Error().Err(err).Msg("Failed to append event line.")
	}
}

// Close stops the rotation watcher and closes the underlying file.
func (s *FileSink) Close() error {
	close(s.done)
	if s.watcher != nil {
		s.watcher.Close()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *FileSink) watchRotation() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Name != s.path {
				continue
			}
			if event.Op&(fsnotify.Rename|fsnotify.Remove) != 0 {
				s.reopen()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn().Err(err).Msg("Rotation watcher error.")
		}
	}
}

func (s *FileSink) reopen() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		s.file.Close()
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to reopen log file after rotation.")
		s.file = nil
		return
	}
	s.file = f
	s.logger.Info().Str("path", s.path).Msg("Log file reopened after rotation.")
}

// MemorySink collects recorded entries in memory. Used by tests.
type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
}

// Entry is one recorded action.
type Entry struct {
	Kind   string
	Target string
	Detail string
}

// NewMemorySink returns an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Record appends an entry.
func (s *MemorySink) Record(kind, target, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, Entry{Kind: kind, Target: target, Detail: detail})
}

// Close is a no-op.
func (s *MemorySink) Close() error { return nil }

// Entries returns a copy of everything recorded so far.
func (s *MemorySink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// CountKind returns how many entries of the given kind were recorded.
func (s *MemorySink) CountKind(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func formatLine(ts time.Time, runID, kind, target, detail string) string {
	return fmt.Sprintf("%s | %s | %s | %s | %s\n",
		ts.Format(time.RFC3339), runID, kind, target, detail)
}
