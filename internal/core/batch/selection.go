package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/ocr"
)

// Selection is the ordered set of files queued for the next batch.
// A path is only ever present once.
type Selection struct {
	mu    sync.RWMutex
	files []string
	seen  map[string]struct{}
}

// NewSelection creates an empty selection
func NewSelection() *Selection {
	return &Selection{seen: make(map[string]struct{})}
}

// Add appends paths not already selected and returns how many were new
func (s *Selection) Add(paths ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, p := range paths {
		key := filepath.Clean(p)
		if _, ok := s.seen[key]; ok {
			continue
		}
		s.seen[key] = struct{}{}
		s.files = append(s.files, p)
		added++
	}
	return added
}

// Admit filters candidates the way a file drop does: directories, missing
// files and unsupported extensions are skipped with a log entry, the rest are added.
func (s *Selection) Admit(paths []string, sink Sink) int {
	var valid []string
	sawDir := false

	for _, p := range paths {
		name := filepath.Base(p)
		info, err := os.Stat(p)
		switch {
		case err != nil:
			sink.Emit(NewLogEntry(LevelWarn, fmt.Sprintf("⚠️ Not found: %s", name)))
		case info.IsDir():
			sawDir = true
			sink.Emit(NewLogEntry(LevelWarn, fmt.Sprintf("⚠️ Skipped directory: %s", name)))
		case !ocr.IsSupported(p):
			sink.Emit(NewLogEntry(LevelWarn, fmt.Sprintf("⚠️ Unsupported file type: %s", name)))
		default:
			valid = append(valid, p)
		}
	}

	if len(valid) == 0 {
		if !sawDir {
			sink.Emit(NewLogEntry(LevelError, "❌ No supported files found"))
		}
		return 0
	}

	added := s.Add(valid...)
	if added > 0 {
		sink.Emit(NewLogEntry(LevelInfo, fmt.Sprintf("Added %d file(s)", added)))
	}
	return added
}

// Contains reports whether path is selected
func (s *Selection) Contains(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[filepath.Clean(path)]
	return ok
}

// Remove drops path and reports whether it was selected
func (s *Selection) Remove(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := filepath.Clean(path)
	if _, ok := s.seen[key]; !ok {
		return false
	}
	delete(s.seen, key)
	for i, f := range s.files {
		if filepath.Clean(f) == key {
			s.files = append(s.files[:i:i], s.files[i+1:]...)
			break
		}
	}
	return true
}

// Clear empties the selection
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = nil
	s.seen = make(map[string]struct{})
}

// Files returns a copy of the selected paths in insertion order
func (s *Selection) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.files...)
}

func (s *Selection) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}
