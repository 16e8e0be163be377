package documents

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher observes an inbox directory and admits files dropped there into
// the document pool through a callback.
type Watcher struct {
	dir     string
	picker  *Picker
	onAdd   func(*Document)
	logger  *zap.Logger
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	done    chan struct{}
	started bool
}

// NewWatcher creates an inbox watcher. onAdd is invoked for every admitted
// file; unsupported files are logged and skipped.
func NewWatcher(dir string, picker *Picker, onAdd func(*Document), logger *zap.Logger) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	return &Watcher{
		dir:     dir,
		picker:  picker,
		onAdd:   onAdd,
		logger:  logger,
		watcher: fw,
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true
	go w.loop()
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.handle(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("inbox watcher error", zap.Error(err))
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(path string) {
	// Editors and downloads often create partial files first.
	if strings.HasPrefix(filepath.Base(path), ".") {
		return
	}

	doc, err := w.picker.Pick(path)
	if err != nil {
		w.logger.Debug("inbox file skipped",
			zap.String("path", path),
			zap.Error(err))
		return
	}

	w.logger.Info("document added from inbox",
		zap.String("name", doc.Name),
		zap.String("kind", string(doc.Kind)))
	w.onAdd(doc)
}

// Close stops watching and releases the underlying watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		close(w.done)
		w.started = false
	}
	return w.watcher.Close()
}
