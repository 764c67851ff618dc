package assets

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

/** @brief The kind of file an asset path holds. */
type AssetType int

const (
	AssetTypeNone AssetType = iota
	AssetTypeShader
	AssetTypeImage
	AssetTypeModel
)

/** @brief Extension of the compiled shader binaries. */
const ShaderExtension = ".ksh"

var ErrWatcherClosed = errors.New("asset watcher already closed")

/**
 * @brief Sent when a watched file changed on disk. The receiver reloads the
 * resource behind Handle from Path.
 */
type ReloadEvent struct {
	Handle metadata.Handle
	Path   string
}

type AssetInfo struct {
	Path       string
	Type       AssetType
	Handle     metadata.Handle
	LastLoaded time.Time
}

/**
 * @brief Watches asset files and reports the ones that changed. The watcher
 * runs on its own goroutine, everything it reports goes through Reloads.
 */
type AssetManager struct {
	assets map[string]AssetInfo
	mutex  sync.RWMutex

	fsnotify *fsnotify.Watcher
	// directories being watched and the number of assets in each
	dirs     map[string]int
	reloads  chan ReloadEvent
	done     chan struct{}
	wg       sync.WaitGroup
	isClosed bool
}

// NewAssetManager creates the manager. With watch disabled no watcher is
// started and Watch only records the asset.
func NewAssetManager(watch bool) (*AssetManager, error) {
	am := &AssetManager{
		assets:  make(map[string]AssetInfo),
		dirs:    make(map[string]int),
		reloads: make(chan ReloadEvent, 16),
		done:    make(chan struct{}),
	}
	if !watch {
		return am, nil
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}
	am.fsnotify = fsWatch
	am.wg.Add(1)
	go am.start()
	return am, nil
}

// Reloads delivers the changed assets. It is closed by Close.
func (am *AssetManager) Reloads() <-chan ReloadEvent {
	return am.reloads
}

// Watch reports changes of path as reloads of handle. The parent directory
// is watched so files replaced by editors keep being tracked.
func (am *AssetManager) Watch(path string, handle metadata.Handle) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()
	if am.isClosed {
		return ErrWatcherClosed
	}
	if _, exists := am.assets[abs]; !exists && am.fsnotify != nil {
		dir := filepath.Dir(abs)
		if am.dirs[dir] == 0 {
			if err := am.fsnotify.Add(dir); err != nil {
				return errors.Wrapf(err, "failed to watch %s", dir)
			}
		}
		am.dirs[dir]++
	}
	am.assets[abs] = AssetInfo{
		Path:       abs,
		Type:       DetermineAssetType(abs),
		Handle:     handle,
		LastLoaded: time.Now(),
	}
	core.LogDebug("watching %s", abs)
	return nil
}

// Unwatch stops reporting changes for handle.
func (am *AssetManager) Unwatch(handle metadata.Handle) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	for path, info := range am.assets {
		if info.Handle != handle {
			continue
		}
		delete(am.assets, path)
		if am.fsnotify == nil || am.isClosed {
			continue
		}
		dir := filepath.Dir(path)
		am.dirs[dir]--
		if am.dirs[dir] <= 0 {
			delete(am.dirs, dir)
			_ = am.fsnotify.Remove(dir)
		}
	}
}

// Lookup returns what is known about a watched path.
func (am *AssetManager) Lookup(path string) (AssetInfo, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return AssetInfo{}, false
	}
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[abs]
	return info, ok
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if s, err := os.Stat(e.Name); err != nil || s.IsDir() {
				continue
			}
			event, ok := am.handleFileEvent(e.Name)
			if !ok {
				continue
			}
			select {
			case am.reloads <- event:
			case <-am.done:
				return
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("file watcher: %s", err)

		case <-am.done:
			return
		}
	}
}

// handleFileEvent turns a change of path into a reload of the asset
// watched there, if any.
func (am *AssetManager) handleFileEvent(path string) (ReloadEvent, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ReloadEvent{}, false
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()

	info, ok := am.assets[abs]
	if !ok {
		return ReloadEvent{}, false
	}
	info.LastLoaded = time.Now()
	am.assets[abs] = info
	core.LogDebug("%s changed", abs)
	return ReloadEvent{Handle: info.Handle, Path: abs}, true
}

// Close stops the watcher goroutine and waits for it to exit.
func (am *AssetManager) Close() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	am.wg.Wait()
	close(am.reloads)
	if am.fsnotify != nil {
		return am.fsnotify.Close()
	}
	return nil
}

// DetermineAssetType maps a file extension to the kind of asset it holds.
func DetermineAssetType(path string) AssetType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ShaderExtension:
		return AssetTypeShader
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp":
		return AssetTypeImage
	case ".obj":
		return AssetTypeModel
	default:
		return AssetTypeNone
	}
}
