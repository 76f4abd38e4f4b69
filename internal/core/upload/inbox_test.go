package upload

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MuhamadAgungGumelar/mistral-ocr/internal/core/ocr"
)

func TestInboxSaveStoresUniqueCopy(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox")
	inbox, err := NewInbox(dir)
	if err != nil {
		t.Fatalf("NewInbox() error = %v", err)
	}
	inbox.now = func() time.Time { return time.Unix(1700000000, 0) }

	first, err := inbox.Save(strings.NewReader("pdf bytes"), "../../etc/scan.pdf")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	second, err := inbox.Save(strings.NewReader("pdf bytes"), "scan.pdf")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if filepath.Dir(first.Path) != dir || first.FileName != "scan.pdf" || first.Size != 9 {
		t.Fatalf("first = %+v", first)
	}
	if first.Path == second.Path {
		t.Fatal("uploads with the same name collided")
	}
	if !strings.HasPrefix(filepath.Base(first.Path), "scan_1700000000_") {
		t.Fatalf("stored name = %s", filepath.Base(first.Path))
	}
	if !ocr.IsSupported(first.Path) {
		t.Fatal("stored copy lost its extension")
	}
}

func TestInboxRejectsUnsupportedAndOversized(t *testing.T) {
	inbox, err := NewInbox(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := inbox.Save(strings.NewReader("x"), "run.exe"); ocr.KindOf(err) != ocr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	inbox.maxSize = 4
	if _, err := inbox.Save(strings.NewReader("12345"), "big.png"); ocr.KindOf(err) != ocr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	entries, _ := os.ReadDir(inbox.Dir())
	if len(entries) != 0 {
		t.Fatalf("rejected uploads left files behind: %d", len(entries))
	}
}

func TestInboxDeleteStaysInside(t *testing.T) {
	inbox, err := NewInbox(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	res, err := inbox.Save(strings.NewReader("x"), "a.png")
	if err != nil {
		t.Fatal(err)
	}
	if err := inbox.Delete(filepath.Join(inbox.Dir(), "..", "other.png")); err == nil {
		t.Fatal("Delete() outside the inbox succeeded")
	}
	if err := inbox.Delete(res.Path); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := inbox.Delete(res.Path); err == nil {
		t.Fatal("second Delete() succeeded")
	}
}
