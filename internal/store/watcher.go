package store

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce batches the burst of events a single write produces.
const DefaultDebounce = 50 * time.Millisecond

// FileWatcher reports changes to a data file made by any process.
//
// It watches the parent directory rather than the file so that atomic
// rename-based writes and sqlite's -wal/-journal siblings are seen too.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	prefix   string
	debounce time.Duration
	onChange func()
	log      *zap.Logger

	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// WatchFile starts watching path and calls onChange (from the watcher's own
// goroutine) at most once per debounce window after the file changes.
func WatchFile(path string, debounce time.Duration, log *zap.Logger, onChange func()) (*FileWatcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("new watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	fw := &FileWatcher{
		watcher:  w,
		prefix:   filepath.Base(path),
		debounce: debounce,
		onChange: onChange,
		log:      log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go fw.run()
	log.Debug("watching file", zap.String("path", path))
	return fw, nil
}

// Close stops the watcher and waits for its goroutine. Safe to call twice.
func (fw *FileWatcher) Close() error {
	var err error
	fw.once.Do(func() {
		close(fw.stopCh)
		<-fw.doneCh
		err = fw.watcher.Close()
	})
	return err
}

func (fw *FileWatcher) run() {
	defer close(fw.doneCh)

	ticker := time.NewTicker(fw.debounce)
	defer ticker.Stop()

	var pending bool
	var last time.Time
	for {
		select {
		case <-fw.stopCh:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !fw.relevant(event) {
				continue
			}
			pending = true
			last = time.Now()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.log.Warn("file watcher error", zap.Error(err))

		case <-ticker.C:
			if pending && time.Since(last) >= fw.debounce {
				pending = false
				fw.onChange()
			}
		}
	}
}

func (fw *FileWatcher) relevant(event fsnotify.Event) bool {
	if !strings.HasPrefix(filepath.Base(event.Name), fw.prefix) {
		return false
	}
	// Temp files from atomic writes end in .tmp; the rename that follows
	// is what matters.
	if strings.HasSuffix(event.Name, ".tmp") {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
