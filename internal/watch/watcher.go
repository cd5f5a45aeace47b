// SPDX-License-Identifier: MPL-2.0

// Package watch monitors module roots for descriptor file changes and fires
// a debounced callback, so `envmod rescan --watch` can keep the descriptor
// index current while modules are installed or edited. Events inside the
// debounce window coalesce into a single callback carrying the full set of
// changed descriptor paths.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"envmod-cli/pkg/moddesc"
)

// defaultDebounce is the quiet period after the last filesystem event before
// the callback fires. Editors writing then renaming temp files produce event
// bursts; the window folds a burst into one rescan.
const defaultDebounce = 500 * time.Millisecond

// defaultIgnores excludes VCS metadata and editor noise inside module roots.
var defaultIgnores = []string{
	"**/.git/**",
	"**/*.swp",
	"**/*~",
	"**/.DS_Store",
}

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Roots are the module root directories to monitor. Roots that do
		// not exist yet are skipped; they get picked up on the next start.
		Roots []string

		// Ignore are extra doublestar glob patterns (relative to each root)
		// that never trigger callbacks, merged with the built-in defaults.
		Ignore []string

		// Debounce is the quiet period before the callback fires. Zero or
		// negative falls back to defaultDebounce.
		Debounce time.Duration

		// OnChange receives the deduplicated absolute paths of changed
		// descriptor files. A nil callback is a no-op.
		OnChange func(ctx context.Context, changed []string) error

		// Logger for skip and error messages; nil gets a prefixed default.
		Logger *log.Logger
	}

	// Watcher monitors module roots and fires a debounced callback when
	// descriptor files change. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		ignores  []string
		debounce time.Duration
		logger   *log.Logger
		started  atomic.Bool
	}
)

// New creates a Watcher over the configured module roots and registers every
// directory beneath them for monitoring.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "watch"})
	}

	ignores := make([]string, 0, len(defaultIgnores)+len(cfg.Ignore))
	ignores = append(ignores, defaultIgnores...)
	ignores = append(ignores, cfg.Ignore...)
	for _, pat := range cfg.Ignore {
		if _, err := doublestar.Match(pat, ""); err != nil {
			fsw.Close() //nolint:errcheck // best-effort cleanup
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pat, err)
		}
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		ignores:  ignores,
		debounce: debounce,
		logger:   logger,
	}

	if err := w.addRoots(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Warn("failed to close watcher after init failure", "err", closeErr)
		}
		return nil, err
	}

	return w, nil
}

// Run blocks until ctx is cancelled, dispatching debounced callbacks for
// descriptor file changes. Returns nil on clean cancellation and propagates
// fatal watcher errors (resource exhaustion, invalid handles).
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return fmt.Errorf("watcher Run called more than once")
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	fire := func() {
		if ctx.Err() != nil {
			return
		}
		// Skip-if-busy: a rescan slower than the debounce window must not
		// overlap the next one. The reset keeps the pending set alive.
		if !running.CompareAndSwap(false, true) {
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := make([]string, 0, len(pending))
		for path := range pending {
			changed = append(changed, path)
		}
		clear(pending)
		mu.Unlock()
		sort.Strings(changed)

		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("change callback failed", "err", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		localTimer := timer
		mu.Unlock()
		if localTimer != nil && !localTimer.Stop() {
			select {
			case <-localTimer.C:
			default:
			}
		}
		if closeErr := w.fsw.Close(); closeErr != nil {
			w.logger.Warn("failed to close filesystem watcher", "err", closeErr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("filesystem event channel closed unexpectedly")
			}

			if w.isIgnored(evt.Name) {
				continue
			}

			// New directories extend the recursive watch.
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}

			if !strings.HasSuffix(evt.Name, moddesc.DescriptorSuffix) {
				continue
			}

			mu.Lock()
			pending[evt.Name] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("filesystem error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("fatal filesystem watcher error: %w", err)
			}
			w.logger.Warn("filesystem watcher error", "err", err)
		}
	}
}

// addRoots registers every directory under every module root. Inaccessible
// directories are skipped with a warning so one unreadable subtree does not
// stop the watch.
func (w *Watcher) addRoots() error {
	for _, root := range w.cfg.Roots {
		if _, err := os.Stat(root); err != nil {
			w.logger.Debug("module root not watchable, skipping", "root", root, "err", err)
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				w.logger.Warn("skipping inaccessible path", "path", path, "err", walkErr)
				return nil //nolint:nilerr // intentional skip
			}
			if !d.IsDir() {
				return nil
			}
			if w.isIgnored(path) {
				return filepath.SkipDir
			}
			if addErr := w.fsw.Add(path); addErr != nil {
				return fmt.Errorf("failed to watch directory %q: %w", path, addErr)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to walk module root %s: %w", root, err)
		}
	}
	return nil
}

// maybeAddDir adds path to the watcher if it is a non-ignored directory.
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if w.isIgnored(path) {
		return
	}
	if addErr := w.fsw.Add(path); addErr != nil {
		w.logger.Warn("failed to watch new directory", "path", path, "err", addErr)
	}
}

// isIgnored matches the path suffix relative to any configured root against
// the ignore patterns.
func (w *Watcher) isIgnored(path string) bool {
	normalized := filepath.ToSlash(path)
	for _, root := range w.cfg.Roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		normalized = filepath.ToSlash(rel)
		break
	}
	for _, pat := range w.ignores {
		if matched, err := doublestar.Match(pat, normalized); err == nil && matched {
			return true
		}
	}
	return false
}
