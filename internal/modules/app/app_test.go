package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/batch"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/export"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/history"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/ocr"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/shared/config"
)

type stubProvider struct{}

func (stubProvider) Process(context.Context, *ocr.Request) (*ocr.Result, error) {
	return &ocr.Result{Pages: []ocr.Page{{Index: 1, Markdown: "hello"}}}, nil
}

func (stubProvider) GetProviderName() string { return "stub" }

// cancelAwareProvider takes a moment per file and gives up when ctx is done
type cancelAwareProvider struct{}

func (cancelAwareProvider) Process(ctx context.Context, _ *ocr.Request) (*ocr.Result, error) {
	select {
	case <-time.After(time.Millisecond):
		return &ocr.Result{Pages: []ocr.Page{{Index: 1, Markdown: "hello"}}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (cancelAwareProvider) GetProviderName() string { return "cancel-aware" }

func startApp(t *testing.T, apiKey string) *App {
	t.Helper()
	a := New(ocr.NewService(stubProvider{}), export.NewService(), history.NewService(nil), apiKey,
		Options{Format: export.FormatText, IncludeImages: true, ImageLimit: 10})
	ctx, cancel := context.WithCancel(context.Background())
	go a.Run(ctx)
	t.Cleanup(func() {
		a.Runner().Wait()
		cancel()
	})
	return a
}

// eventually polls cond until it holds or timeout passes
func eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestProcessRequiresKeyAndFiles(t *testing.T) {
	a := startApp(t, "")
	if _, err := a.Process(context.Background()); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("Process() error = %v, want ErrNoAPIKey", err)
	}

	a.SetAPIKey("  key ")
	if _, err := a.Process(context.Background()); !errors.Is(err, ErrNoFiles) {
		t.Fatalf("Process() error = %v, want ErrNoFiles", err)
	}
}

func TestProcessAppliesEventsToState(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "scan.pdf")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	a := startApp(t, "key")
	if n := a.AddFiles([]string{src, src}); n != 1 {
		t.Fatalf("AddFiles() = %d", n)
	}
	if _, err := a.Process(context.Background()); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	a.Runner().Wait()

	eventually(t, time.Second, func() bool { return a.Status().LastRun != nil })

	status := a.Status()
	if status.LastRun.Succeeded != 1 || status.OutputFolder != dir {
		t.Fatalf("status = %+v", status)
	}
	want := filepath.Join(dir, "scan_ocr.txt")
	if outputs := a.Outputs(); len(outputs) != 1 || outputs[0] != want {
		t.Fatalf("outputs = %v", outputs)
	}

	var saved *batch.LogEntry
	for _, e := range a.Log() {
		if e.Path != "" {
			e := e
			saved = &e
		}
	}
	if saved == nil || saved.Message != "✓ Saved: scan_ocr.txt" || saved.Path != want {
		t.Fatalf("saved entry = %+v", saved)
	}

	// final status drops back to idle after the reset delay
	eventually(t, StatusResetDelay+time.Second, func() bool { return a.Status().Status == batch.StatusIdle })
}

func TestClearLogLeavesMarker(t *testing.T) {
	a := startApp(t, "key")
	if log := a.Log(); len(log) != 1 || log[0].Message != "Ready to process documents" {
		t.Fatalf("initial log = %+v", log)
	}
	a.ClearFiles()
	if log := a.Log(); len(log) != 2 || log[1].Message != "Cleared all files" {
		t.Fatalf("log after ClearFiles = %+v", log)
	}

	a.ClearLog()
	log := a.Log()
	if len(log) != 1 || log[0].Message != "Log cleared" {
		t.Fatalf("log after clear = %+v", log)
	}
}

func TestSetOptionsValidates(t *testing.T) {
	a := startApp(t, "key")
	if err := a.SetOptions(Options{Format: "rtf"}); err == nil {
		t.Error("expected error for unknown format")
	}
	if err := a.SetOptions(Options{Format: "txt", ImageLimit: MaxImageLimit + 1}); err == nil {
		t.Error("expected error for image limit above max")
	}
	if err := a.SetOptions(Options{Format: "DOCX", ImageLimit: 0}); err != nil {
		t.Fatalf("SetOptions() error = %v", err)
	}
	if got := a.Options(); got.Format != export.FormatDocx || got.IncludeImages {
		t.Fatalf("Options() = %+v", got)
	}
}

func TestLogIsBounded(t *testing.T) {
	st := &state{}
	for i := 0; i < maxLogEntries+5; i++ {
		st.apply(batch.NewLogEntry(batch.LevelInfo, "line"))
	}
	if len(st.log) != maxLogEntries {
		t.Fatalf("log size = %d", len(st.log))
	}
}

func TestNewOCRService(t *testing.T) {
	for provider, want := range map[string]string{"": "Mistral OCR", "mistral": "Mistral OCR", "ocrspace": "OCR.space"} {
		svc, err := NewOCRService(&config.Config{OCRProvider: provider})
		if err != nil {
			t.Fatalf("NewOCRService(%q) error = %v", provider, err)
		}
		if svc.GetProviderName() != want {
			t.Errorf("NewOCRService(%q) = %s", provider, svc.GetProviderName())
		}
	}
	if _, err := NewOCRService(&config.Config{OCRProvider: "tesseract"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestStoppedDispatcherDoesNotBlockBatch(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for i := 0; i < 120; i++ {
		p := filepath.Join(dir, fmt.Sprintf("scan%03d.png", i))
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		files = append(files, p)
	}

	a := New(ocr.NewService(cancelAwareProvider{}), export.NewService(), nil, "key",
		Options{Format: export.FormatText, ImageLimit: 10})
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(stopped)
	}()

	if n := a.AddFiles(files); n != len(files) {
		t.Fatalf("AddFiles() = %d", n)
	}
	if _, err := a.Process(ctx); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	cancel()
	<-stopped

	waited := make(chan struct{})
	go func() {
		a.Runner().Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(3 * time.Second):
		t.Fatal("batch still blocked 3s after the dispatcher stopped")
	}

	// state calls return instead of hanging on a stopped dispatcher
	a.ClearLog()
	if opts := a.Options(); opts.Format != "" {
		t.Fatalf("Options() after stop = %+v", opts)
	}
}

func TestActionsSeePendingEvents(t *testing.T) {
	a := startApp(t, "key")
	dir := t.TempDir()
	for i := 0; i < 20; i++ {
		p := filepath.Join(dir, fmt.Sprintf("doc%02d.pdf", i))
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if n := a.AddFiles([]string{p}); n != 1 {
			t.Fatalf("AddFiles() = %d", n)
		}
		log := a.Log()
		if last := log[len(log)-1]; last.Message != "Added 1 file(s)" {
			t.Fatalf("round %d: last log entry = %q", i, last.Message)
		}
	}
}

func TestRemoveFileAndOutputFile(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "keep.pdf")
	drop := filepath.Join(dir, "drop.pdf")
	for _, p := range []string{keep, drop} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	a := startApp(t, "key")
	a.AddFiles([]string{keep, drop})
	if !a.RemoveFile(drop) || a.RemoveFile(drop) {
		t.Fatal("RemoveFile() should report true once")
	}
	if files := a.Files(); len(files) != 1 || files[0] != keep {
		t.Fatalf("Files() = %v", files)
	}

	if _, _, err := a.OutputFile("last"); !errors.Is(err, ErrOutputNotFound) {
		t.Fatalf("OutputFile(last) before a run error = %v", err)
	}

	if _, err := a.Process(context.Background()); err != nil {
		t.Fatal(err)
	}
	a.Runner().Wait()

	want := filepath.Join(dir, "keep_ocr.txt")
	for _, ref := range []string{"0", "last"} {
		path, contentType, err := a.OutputFile(ref)
		if err != nil || path != want || contentType != "text/plain; charset=utf-8" {
			t.Fatalf("OutputFile(%q) = %q %q %v", ref, path, contentType, err)
		}
	}
	if _, _, err := a.OutputFile("3"); !errors.Is(err, ErrOutputNotFound) {
		t.Fatalf("OutputFile(3) error = %v", err)
	}
}
