package assets

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/shadowproxy/engine/containers"
	"github.com/spaghettifunk/shadowproxy/engine/core"
	"golang.org/x/exp/slices"
)

// DefaultDebounce coalesces the burst of events editors emit on save.
const DefaultDebounce = 200 * time.Millisecond

// Changes remembered per burst. Older ones are only dropped from the log.
const maxPendingChanges = 16

/**
 * @brief Watches a set of asset files and fires EVENT_CODE_SCENE_CHANGED
 * once per burst of changes. Parent directories are watched rather than the
 * files themselves so that editors replacing files on save are still seen.
 */
type Watcher struct {
	am       *AssetManager
	fsnotify *fsnotify.Watcher
	debounce time.Duration

	mu       sync.Mutex
	files    map[string]struct{}
	dirs     map[string]struct{}
	isClosed bool
}

func (am *AssetManager) NewWatcher(debounce time.Duration) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		am:       am,
		fsnotify: fsWatch,
		debounce: debounce,
		files:    make(map[string]struct{}),
		dirs:     make(map[string]struct{}),
	}, nil
}

// Track starts watching the given files.
func (w *Watcher) Track(paths ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isClosed {
		return errors.New("asset watcher already closed")
	}

	for _, p := range paths {
		p = cleanPath(p)
		if _, ok := determineAssetType(p); !ok {
			core.LogWarn("watching '%s', which is not a known asset type.", p)
		}
		if !fileExists(p) {
			core.LogWarn("watching '%s', which does not exist yet.", p)
		}
		dir := filepath.Dir(p)
		if _, ok := w.dirs[dir]; !ok {
			if err := w.fsnotify.Add(dir); err != nil {
				return err
			}
			w.dirs[dir] = struct{}{}
		}
		w.files[p] = struct{}{}
	}
	return nil
}

func (w *Watcher) isTracked(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.files[path]
	return ok
}

/**
 * @brief Dispatches change events until ctx is cancelled or the watcher is
 * closed.
 */
func (w *Watcher) Run(ctx context.Context) error {
	var timer *time.Timer
	var fire <-chan time.Time
	pending := containers.NewRingQueue[string](maxPendingChanges)

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return nil
			}
			path := cleanPath(e.Name)
			if !w.isTracked(path) {
				continue
			}
			if e.Op&fsnotify.Remove != 0 {
				w.am.removeAsset(path)
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			pending.Push(path)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return nil
			}
			core.LogError("asset watcher: %s", err)

		case <-fire:
			fire = nil
			changed := pending.Drain()
			if len(changed) == 0 {
				continue
			}
			last := changed[len(changed)-1]
			slices.Sort(changed)
			for _, p := range slices.Compact(changed) {
				core.LogInfo("'%s' changed.", p)
			}
			core.EventFire(core.EVENT_CODE_SCENE_CHANGED, w, core.EventContext{Path: last})
		}
	}
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isClosed {
		return nil
	}
	w.isClosed = true
	return w.fsnotify.Close()
}
