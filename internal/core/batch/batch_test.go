package batch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/export"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/history"
	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/ocr"
)

// recorder collects emitted events
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if l, ok := e.(LogEntry); ok {
			out = append(out, l.Message)
		}
	}
	return out
}

func (r *recorder) statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Status
	for _, e := range r.events {
		if s, ok := e.(StatusChanged); ok {
			out = append(out, s.Status)
		}
	}
	return out
}

// fakeOCRServer answers based on the uploaded file content:
// "slow" outlives the client timeout, "api" gets a 500, "drop" has its connection closed,
// "empty" returns no pages, anything else returns one page echoing the content.
func fakeOCRServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)

		var body struct {
			Document struct {
				DocumentURL string `json:"document_url"`
			} `json:"document"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		payload := body.Document.DocumentURL[strings.Index(body.Document.DocumentURL, ",")+1:]
		content, _ := base64.StdEncoding.DecodeString(payload)

		switch string(content) {
		case "slow":
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		case "api":
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"message":"internal"}`))
		case "drop":
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
		case "empty":
			w.Write([]byte(`{"pages":[]}`))
		default:
			fmt.Fprintf(w, `{"pages":[{"index":0,"markdown":%q}]}`, content)
		}
	}))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func newTestDriver(t *testing.T, provider ocr.Provider, sink Sink) (*Driver, *history.Service) {
	t.Helper()
	hist := history.NewService(nil)
	return NewDriver(ocr.NewService(provider), export.NewService(), hist, sink), hist
}

func textOptions() Options {
	return Options{APIKey: "k", Format: export.FormatText, IncludeImages: true, ImageLimit: 10}
}

func TestDriverCountsValidationFailures(t *testing.T) {
	var hits int32
	srv := fakeOCRServer(t, &hits)
	defer srv.Close()

	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "a.pdf", "alpha"),
		writeFile(t, dir, "b.exe", "nope"),
		writeFile(t, dir, "c.png", "gamma"),
		filepath.Join(dir, "missing.pdf"),
		writeFile(t, dir, "e.JPG", "epsilon"),
	}

	rec := &recorder{}
	d, _ := newTestDriver(t, ocr.NewMistralProvider(srv.URL, "", 5*time.Second), rec)
	summary := d.Run(context.Background(), files, textOptions())

	if summary.Total != 5 || summary.Succeeded != 3 || summary.Failed != 2 {
		t.Fatalf("summary = %d/%d, failed %d", summary.Succeeded, summary.Total, summary.Failed)
	}
	if !summary.OK() || summary.Status() != StatusSuccess {
		t.Fatal("run with successes should be successful")
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("server hits = %d, want 3 (invalid files must not be uploaded)", atomic.LoadInt32(&hits))
	}
	if kind := ocr.KindOf(summary.Results[1].Err); kind != ocr.KindValidation {
		t.Errorf("b.exe kind = %s", kind)
	}
	if kind := ocr.KindOf(summary.Results[3].Err); kind != ocr.KindIO {
		t.Errorf("missing.pdf kind = %s", kind)
	}

	out, err := os.ReadFile(filepath.Join(dir, "a_ocr.txt"))
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if !strings.Contains(string(out), "=== Page 0 ===\nalpha\n") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	msgs := rec.messages()
	if msgs[0] != "Processing 1/5: a.pdf" {
		t.Errorf("first log line = %q", msgs[0])
	}
	if last := msgs[len(msgs)-1]; last != "✅ Processing complete! (3/5 successful)" {
		t.Errorf("last log line = %q", last)
	}
}

func TestDriverAllFailedFlagsRunFailed(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeFile(t, dir, "a.txt", "x"), writeFile(t, dir, "b.doc", "y")}

	rec := &recorder{}
	d, _ := newTestDriver(t, ocr.NewMistralProvider("http://127.0.0.1:1", "", time.Second), rec)
	summary := d.Run(context.Background(), files, textOptions())

	if summary.OK() || summary.Succeeded != 0 || summary.Failed != 2 {
		t.Fatalf("summary = %+v", summary)
	}
	msgs := rec.messages()
	if msgs[1] != "⚠️ Unsupported file type: a.txt" {
		t.Errorf("validation log line = %q", msgs[1])
	}
	if last := msgs[len(msgs)-1]; last != "❌ No files were processed successfully" {
		t.Errorf("last log line = %q", last)
	}
	statuses := rec.statuses()
	if statuses[0] != StatusProcessing || statuses[len(statuses)-1] != StatusFailed {
		t.Errorf("statuses = %v", statuses)
	}
}

func TestDriverClassifiesFailuresAndContinues(t *testing.T) {
	var hits int32
	srv := fakeOCRServer(t, &hits)
	defer srv.Close()

	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "slow.pdf", "slow"),
		writeFile(t, dir, "api.pdf", "api"),
		writeFile(t, dir, "drop.pdf", "drop"),
		writeFile(t, dir, "empty.pdf", "empty"),
		writeFile(t, dir, "ok.pdf", "fine"),
	}

	d, _ := newTestDriver(t, ocr.NewMistralProvider(srv.URL, "", 100*time.Millisecond), nil)
	summary := d.Run(context.Background(), files, textOptions())

	want := []ocr.ErrorKind{ocr.KindTimeout, ocr.KindAPI, ocr.KindNetwork, ocr.KindContent, ""}
	for i, r := range summary.Results {
		if got := ocr.KindOf(r.Err); got != want[i] {
			t.Errorf("%s: kind = %q, want %q (err %v)", filepath.Base(r.Path), got, want[i], r.Err)
		}
	}
	if summary.Succeeded != 1 || !summary.Results[4].OK() {
		t.Fatalf("last file should succeed after earlier failures: %+v", summary.Results[4])
	}

	var apiErr *ocr.Error
	if !errors.As(summary.Results[1].Err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("api error = %v", summary.Results[1].Err)
	}
}

func TestDriverSavedLineCarriesPath(t *testing.T) {
	var hits int32
	srv := fakeOCRServer(t, &hits)
	defer srv.Close()

	dir := t.TempDir()
	src := writeFile(t, dir, "scan.pdf", "hello")

	rec := &recorder{}
	d, hist := newTestDriver(t, ocr.NewMistralProvider(srv.URL, "", 5*time.Second), rec)
	d.Run(context.Background(), []string{src}, Options{APIKey: "k", Format: export.FormatDocx})

	want := filepath.Join(dir, "scan_ocr.docx")
	var saved *LogEntry
	var finished *RunFinished
	for _, e := range rec.events {
		switch ev := e.(type) {
		case LogEntry:
			if strings.HasPrefix(ev.Message, "✓ Saved:") {
				saved = &ev
			}
		case RunFinished:
			finished = &ev
		}
	}
	if saved == nil || saved.Message != "✓ Saved: scan_ocr.docx" || saved.Path != want {
		t.Fatalf("saved entry = %+v", saved)
	}
	if finished == nil || len(finished.Outputs) != 1 || finished.Outputs[0] != want {
		t.Fatalf("run finished = %+v", finished)
	}
	if last, _ := hist.Last(); last != want {
		t.Fatalf("history last = %s", last)
	}
}

func TestDriverHistoryKeepsTenMostRecent(t *testing.T) {
	var hits int32
	srv := fakeOCRServer(t, &hits)
	defer srv.Close()

	dir := t.TempDir()
	var files []string
	for i := 0; i < 12; i++ {
		files = append(files, writeFile(t, dir, fmt.Sprintf("f%02d.png", i), "page"))
	}

	d, hist := newTestDriver(t, ocr.NewMistralProvider(srv.URL, "", 5*time.Second), nil)
	d.Run(context.Background(), files, textOptions())

	recent := hist.Recent()
	if len(recent) != 10 {
		t.Fatalf("history size = %d", len(recent))
	}
	if recent[0] != filepath.Join(dir, "f02_ocr.txt") || recent[9] != filepath.Join(dir, "f11_ocr.txt") {
		t.Fatalf("history = %v", recent)
	}
}

type panicProvider struct{}

func (panicProvider) Process(context.Context, *ocr.Request) (*ocr.Result, error) {
	panic("boom")
}

func (panicProvider) GetProviderName() string { return "panic" }

func TestDriverRecoversPanic(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeFile(t, dir, "a.pdf", "x"), writeFile(t, dir, "b.pdf", "y")}

	rec := &recorder{}
	d, _ := newTestDriver(t, panicProvider{}, rec)
	summary := d.Run(context.Background(), files, textOptions())

	if summary.Aborted == nil || summary.OK() {
		t.Fatalf("summary = %+v", summary)
	}
	msgs := rec.messages()
	if last := msgs[len(msgs)-1]; last != "❌ Error: boom" {
		t.Fatalf("last log line = %q", last)
	}
	statuses := rec.statuses()
	if statuses[len(statuses)-1] != StatusFailed {
		t.Fatalf("statuses = %v", statuses)
	}
}

func TestSummaryReportRows(t *testing.T) {
	s := Summary{Results: []FileResult{
		{Path: "a.pdf", Output: "a_ocr.txt", Pages: 2},
		{Path: "b.exe", Err: ocr.NewValidationError("Unsupported file type: %s", "b.exe")},
	}}
	rows := s.ReportRows()
	if rows[0].Status != "success" || rows[0].Output != "a_ocr.txt" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].Status != "failed" || rows[1].Kind != "validation" || rows[1].Message != "Unsupported file type: b.exe" {
		t.Errorf("row 1 = %+v", rows[1])
	}
}
