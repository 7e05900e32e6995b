package source

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/c360studio/semaudit/source/loader"
)

const (
	// eventChannelBuffer is the size of the watch event channel.
	eventChannelBuffer = 256
)

// WatchConfig configures corpus file watching.
type WatchConfig struct {
	// Enabled controls whether file watching is active.
	Enabled bool `json:"enabled" yaml:"enabled" schema:"type:bool,description:Enable file watching for automatic re-auditing,category:advanced,default:false"`

	// DebounceDelay is how long to wait for more changes before emitting.
	DebounceDelay string `json:"debounce_delay" yaml:"debounce_delay" schema:"type:string,description:Debounce delay before processing file changes,category:advanced,default:500ms"`

	// FileExtensions lists file extensions to watch.
	FileExtensions []string `json:"file_extensions" yaml:"file_extensions" schema:"type:array,description:File extensions to watch for corpus changes,category:advanced,default:[.yaml,.yml,.md,.markdown,.html,.htm]"`

	// ExcludeDirs lists directory names to skip.
	ExcludeDirs []string `json:"exclude_dirs" yaml:"exclude_dirs" schema:"type:array,description:Directory names to exclude from watching,category:advanced,default:[.git,node_modules,vendor]"`
}

// DefaultWatchConfig returns default watch configuration.
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		Enabled:        false,
		DebounceDelay:  "500ms",
		FileExtensions: []string{".yaml", ".yml", ".md", ".markdown", ".html", ".htm"},
		ExcludeDirs:    []string{".git", "node_modules", "vendor"},
	}
}

// GetDebounceDelay returns the debounce delay as a duration.
func (c *WatchConfig) GetDebounceDelay() time.Duration {
	if c.DebounceDelay == "" {
		return 500 * time.Millisecond
	}
	d, err := time.ParseDuration(c.DebounceDelay)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// WatchEvent represents a corpus file change.
type WatchEvent struct {
	// Path is the file path relative to the corpus root.
	Path string

	// Operation is the type of change.
	Operation WatchOperation

	// AbsPath is the absolute file path.
	AbsPath string
}

// WatchOperation indicates the type of file operation.
type WatchOperation string

// WatchOpCreate, WatchOpModify, and WatchOpDelete enumerate the file watch operation types.
const (
	WatchOpCreate WatchOperation = "create"
	WatchOpModify WatchOperation = "modify"
	WatchOpDelete WatchOperation = "delete"
)

// Watcher observes a requirement corpus directory and emits debounced
// change events so callers can rerun the audit. Touch events that leave
// file content unchanged are suppressed via content hashing.
type Watcher struct {
	config     WatchConfig
	root       string
	watcher    *fsnotify.Watcher
	logger     *slog.Logger
	extensions map[string]bool
	excludes   map[string]bool

	// Debouncing: collect changes before emitting
	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	// Hash-based change detection
	hashMu sync.RWMutex
	hashes map[string]string

	// Output channel
	events chan WatchEvent

	// Metrics
	droppedEvents atomic.Int64
}

// NewWatcher creates a corpus file watcher rooted at root.
func NewWatcher(config WatchConfig, root string, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	extensions := make(map[string]bool)
	exts := config.FileExtensions
	if len(exts) == 0 {
		exts = DefaultWatchConfig().FileExtensions
	}
	for _, ext := range exts {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[strings.ToLower(ext)] = true
	}

	excludes := make(map[string]bool)
	dirs := config.ExcludeDirs
	if len(dirs) == 0 {
		dirs = DefaultWatchConfig().ExcludeDirs
	}
	for _, dir := range dirs {
		excludes[dir] = true
	}

	return &Watcher{
		config:     config,
		root:       root,
		watcher:    fsw,
		logger:     logger,
		extensions: extensions,
		excludes:   excludes,
		pending:    make(map[string]fsnotify.Op),
		hashes:     make(map[string]string),
		events:     make(chan WatchEvent, eventChannelBuffer),
	}, nil
}

// Events returns the channel of watch events.
func (w *Watcher) Events() <-chan WatchEvent {
	return w.events
}

// Start begins watching the corpus root for changes.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.root, 0755); err != nil {
		return err
	}

	if err := w.addWatchesRecursive(w.root); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("Corpus watcher started",
		"root", w.root,
		"debounce", w.config.GetDebounceDelay(),
		"extensions", w.config.FileExtensions)

	return nil
}

// Stop stops the watcher.
// The events channel is closed by processEvents when it exits.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// SetHash records the content hash for a file, typically seeded during the
// initial load so the first rewrite with identical content stays silent.
func (w *Watcher) SetHash(path, hash string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	w.hashes[path] = hash
}

// GetHash returns the recorded content hash for a file.
func (w *Watcher) GetHash(path string) (string, bool) {
	w.hashMu.RLock()
	defer w.hashMu.RUnlock()
	hash, ok := w.hashes[path]
	return hash, ok
}

// DroppedEvents returns the number of events dropped due to channel overflow.
func (w *Watcher) DroppedEvents() int64 {
	return w.droppedEvents.Load()
}

// addWatchesRecursive adds watches to all directories under root.
func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() {
			return nil
		}

		// Skip excluded and hidden directories
		base := filepath.Base(path)
		if w.excludes[base] || (strings.HasPrefix(base, ".") && base != ".") {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory",
				"path", path,
				"error", err)
		} else {
			w.logger.Debug("Watching directory", "path", path)
		}

		return nil
	})
}

// processEvents handles fsnotify events with debouncing.
func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.config.GetDebounceDelay())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

// handleFSEvent accumulates a single fsnotify event.
func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	ext := strings.ToLower(filepath.Ext(path))
	if !w.extensions[ext] {
		// Directory creation still matters: new subtrees need watches.
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				w.handleNewDirectory(path)
			}
		}
		return
	}

	relPath, _ := filepath.Rel(w.root, path)
	for excludeDir := range w.excludes {
		if strings.Contains(relPath, excludeDir+string(filepath.Separator)) {
			return
		}
	}

	w.pendingMu.Lock()
	w.pending[path] = event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("Corpus change detected",
		"path", relPath,
		"op", event.Op.String())
}

// handleNewDirectory adds a watch to a newly created directory.
func (w *Watcher) handleNewDirectory(path string) {
	base := filepath.Base(path)
	if w.excludes[base] || strings.HasPrefix(base, ".") {
		return
	}

	if err := w.watcher.Add(path); err != nil {
		w.logger.Warn("Failed to watch new directory",
			"path", path,
			"error", err)
	} else {
		w.logger.Debug("Added watch for new directory", "path", path)
	}
}

// flushPending emits events for accumulated changes.
func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}

	toProcess := make(map[string]fsnotify.Op, len(w.pending))
	for k, v := range w.pending {
		toProcess[k] = v
	}
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	for path, op := range toProcess {
		select {
		case <-ctx.Done():
			return
		default:
		}

		relPath, _ := filepath.Rel(w.root, path)
		event := WatchEvent{
			Path:    relPath,
			AbsPath: path,
		}

		if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
			event.Operation = WatchOpDelete

			w.hashMu.Lock()
			delete(w.hashes, relPath)
			w.hashMu.Unlock()

			w.sendEvent(event)
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			event.Operation = WatchOpDelete
			w.sendEvent(event)
			continue
		}

		content, err := os.ReadFile(path)
		if err != nil {
			w.logger.Warn("Failed to read file for hash check",
				"path", relPath,
				"error", err)
			continue
		}

		newHash := loader.ContentHash(content)

		oldHash, hadHash := w.GetHash(relPath)
		if hadHash && oldHash == newHash {
			// Content unchanged, skip
			continue
		}

		w.SetHash(relPath, newHash)

		if op.Has(fsnotify.Create) || !hadHash {
			event.Operation = WatchOpCreate
		} else {
			event.Operation = WatchOpModify
		}

		w.sendEvent(event)
	}
}

// sendEvent sends an event without blocking the watch loop.
func (w *Watcher) sendEvent(event WatchEvent) {
	select {
	case w.events <- event:
		w.logger.Debug("Sent watch event",
			"path", event.Path,
			"op", event.Operation)
	default:
		dropped := w.droppedEvents.Add(1)
		w.logger.Warn("Event channel full, dropping event",
			"path", event.Path,
			"total_dropped", dropped)
	}
}
