// Package watcher uploads files dropped into watched folders. It uses
// fsnotify, debounces bursts of writes, and skips files whose content has
// not changed since their last successful upload.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/docsearch/internal/fileid"
)

const defaultDebounce = 400 * time.Millisecond

// UploadFunc sends one file. A non-nil error leaves the file eligible for
// the next change event.
type UploadFunc func(path string) error

// RemoveFunc is told about files deleted from a watched folder.
type RemoveFunc func(path string)

type fileState struct {
	modTime time.Time
	size    int64
	digest  string
}

// Watcher watches directories and uploads new or changed files.
type Watcher struct {
	roots       []string
	extensions  []string
	recursive   bool
	onUpload    UploadFunc
	onRemove    RemoveFunc
	debounce    time.Duration
	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	uploaded    map[string]fileState
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
	logger      *zap.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long a file must be quiet before it is uploaded.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithRemoveHandler sets the callback for deleted files.
func WithRemoveHandler(fn RemoveFunc) Option {
	return func(w *Watcher) { w.onRemove = fn }
}

// New creates a watcher over roots. extensions filters which files are
// uploaded (empty = all).
func New(roots []string, extensions []string, recursive bool, onUpload UploadFunc, opts ...Option) *Watcher {
	w := &Watcher{
		roots:       roots,
		extensions:  extensions,
		recursive:   recursive,
		onUpload:    onUpload,
		debounce:    defaultDebounce,
		debounceMap: make(map[string]*time.Timer),
		uploaded:    make(map[string]fileState),
		done:        make(chan struct{}),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It returns once the roots are registered and
// keeps running until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.logger.Debug("watcher starting", zap.Strings("roots", w.roots), zap.Strings("extensions", w.extensions), zap.Bool("recursive", w.recursive))
	for _, root := range w.roots {
		if err := addRoot(fw, root, w.recursive); err != nil {
			_ = fw.Close()
			return err
		}
	}
	w.watcher = fw
	w.started = true
	go w.run(ctx, fw)
	return nil
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	if !w.underRoot(path) || ignored(path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		if matchExtension(path, w.extensions) {
			w.debounceUpload(path)
		}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.cancelDebounce(path)
		w.mu.Lock()
		_, known := w.uploaded[path]
		delete(w.uploaded, path)
		w.mu.Unlock()
		if known && w.onRemove != nil {
			w.onRemove(path)
		}
	}
}

// handleNewDirectory watches a directory that appeared under a root and
// uploads what is already inside it.
func (w *Watcher) handleNewDirectory(dir string) {
	w.mu.Lock()
	fw := w.watcher
	w.mu.Unlock()
	if fw == nil {
		return
	}
	if !w.recursive {
		return
	}
	if err := addRoot(fw, dir, true); err != nil {
		w.logger.Debug("watcher failed to add directory", zap.String("path", dir), zap.Error(err))
	}
	w.syncDirectory(dir)
}

func (w *Watcher) underRoot(path string) bool {
	clean := filepath.Clean(path)
	for _, root := range w.roots {
		rootClean := filepath.Clean(root)
		if rootClean == clean || inDir(rootClean, clean) {
			return true
		}
	}
	return false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ignored skips dotfiles and editor backups.
func ignored(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~")
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

func (w *Watcher) debounceUpload(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	w.debounceMap[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		w.mu.Unlock()
		w.upload(path)
	})
}

func (w *Watcher) cancelDebounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
		delete(w.debounceMap, path)
	}
}

// upload sends path unless it is unchanged since its last successful upload.
func (w *Watcher) upload(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	state := fileState{modTime: info.ModTime(), size: info.Size()}

	w.mu.Lock()
	prev, seen := w.uploaded[path]
	w.mu.Unlock()
	if seen && prev.modTime.Equal(state.modTime) && prev.size == state.size {
		return
	}
	digest, err := fileid.Digest(path)
	if err != nil {
		w.logger.Debug("watcher cannot read file", zap.String("path", path), zap.Error(err))
		return
	}
	state.digest = digest

	w.mu.Lock()
	w.uploaded[path] = state
	w.mu.Unlock()
	if seen && prev.digest == digest {
		w.logger.Debug("watcher skipping unchanged content", zap.String("path", path))
		return
	}

	if w.onUpload == nil {
		return
	}
	if err := w.onUpload(path); err != nil {
		w.logger.Warn("watcher upload failed", zap.String("path", path), zap.Error(err))
		w.mu.Lock()
		delete(w.uploaded, path)
		w.mu.Unlock()
	}
}

func addRoot(fw *fsnotify.Watcher, root string, recursive bool) error {
	root = filepath.Clean(root)
	if _, err := os.Stat(root); os.IsNotExist(err) {
		if err := os.MkdirAll(root, 0755); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	if !recursive {
		return fw.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && ignored(path) {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}

func (w *Watcher) syncDirectory(root string) {
	w.logger.Debug("watcher syncing directory", zap.String("root", root))
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && (ignored(path) || !w.recursive) {
				return filepath.SkipDir
			}
			return nil
		}
		if !ignored(path) && matchExtension(path, w.extensions) {
			w.upload(path)
		}
		return nil
	})
}

// Directories returns a copy of the watched root directories.
func (w *Watcher) Directories() []string {
	return append([]string(nil), w.roots...)
}

// SyncExistingFiles uploads every matching file already present in the
// roots. Call it after Start.
func (w *Watcher) SyncExistingFiles() {
	for _, root := range w.roots {
		w.syncDirectory(root)
	}
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	for path, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, path)
	}
	_ = w.watcher.Close()
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
