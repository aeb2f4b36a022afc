package ingestion

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

type EventKind int

const (
	DocumentChanged EventKind = iota
	DocumentRemoved
)

func (k EventKind) String() string {
	if k == DocumentRemoved {
		return "removed"
	}
	return "changed"
}

// DocumentEvent names a document in the watched directory by its base name.
type DocumentEvent struct {
	Name string
	Kind EventKind
}

// Watcher reports changes to supported documents in one directory.
type Watcher struct {
	watcher *fsnotify.Watcher
	logger  *log.Logger
}

func NewWatcher(logger *log.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Watcher{watcher: w, logger: logger}, nil
}

// Watch emits events until ctx is cancelled or the watcher is closed.
// Files in unsupported formats are ignored.
func (w *Watcher) Watch(ctx context.Context, dir string) (<-chan DocumentEvent, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	events := make(chan DocumentEvent, 100)
	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				name := filepath.Base(event.Name)
				if DetectFormat(name) == FormatUnknown {
					continue
				}

				var kind EventKind
				switch {
				case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
					kind = DocumentChanged
				case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
					kind = DocumentRemoved
				default:
					continue
				}

				select {
				case events <- DocumentEvent{Name: name, Kind: kind}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Printf("document watcher: %v", err)
			}
		}
	}()

	return events, nil
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
