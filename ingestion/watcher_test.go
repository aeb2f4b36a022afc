package ingestion

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatcher(t *testing.T, dir string) <-chan DocumentEvent {
	t.Helper()
	w, err := NewWatcher(log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)

	events, err := w.Watch(ctx, dir)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	return events
}

func TestWatcherReportsChangedAndRemovedDocuments(t *testing.T) {
	dir := t.TempDir()
	events := startWatcher(t, dir)
	path := filepath.Join(dir, "offers.md")

	if err := os.WriteFile(path, []byte("Compare total compensation."), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case ev := <-events:
		if ev.Name != "offers.md" || ev.Kind != DocumentChanged {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change event")
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	for {
		select {
		case ev := <-events:
			if ev.Kind == DocumentRemoved {
				if ev.Name != "offers.md" {
					t.Fatalf("unexpected removed document %q", ev.Name)
				}
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for remove event")
		}
	}
}

func TestWatcherIgnoresUnsupportedFormats(t *testing.T) {
	dir := t.TempDir()
	events := startWatcher(t, dir)

	if err := os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case ev := <-events:
		t.Fatalf("unexpected event for unsupported file: %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestLoadDocumentReadsSingleFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "brand.txt"), []byte("Keep your profile headline specific."), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	loader := quietLoader(t, dir)

	chunks, err := loader.LoadDocument(context.Background(), "brand.txt")
	if err != nil {
		t.Fatalf("load document: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Source != "brand.txt" {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}

	if _, err := loader.LoadDocument(context.Background(), "../brand.txt"); err == nil {
		t.Fatal("expected path traversal to be rejected")
	}
	if _, err := loader.LoadDocument(context.Background(), "missing.txt"); err == nil {
		t.Fatal("expected missing document to fail")
	}
}
