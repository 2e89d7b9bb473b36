package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/vkplayground/engine/assets/loaders"
	"github.com/spaghettifunk/vkplayground/engine/core"
	"github.com/spaghettifunk/vkplayground/engine/renderer/metadata"
)

var (
	ErrAssetNotFound = errors.New("asset not found")
	ErrClosed        = errors.New("asset manager already closed")
)

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	ModifiedAt time.Time
	// Zero until the asset is loaded.
	LastLoaded time.Time
}

// AssetManager indexes the files under the assets directory and keeps the
// index current while the application runs. Loaded resources are never
// reloaded; a change to one on disk is reported in the log.
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex

	fsnotify *fsnotify.Watcher
	done     chan struct{}
	stopped  chan struct{}
	started  bool
	isClosed bool
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	am := &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[metadata.ResourceType]Loader),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	// Register loaders
	am.registerLoader(metadata.ResourceTypeBinary, &loaders.BinaryLoader{})
	am.registerLoader(metadata.ResourceTypeShaderBinary, &loaders.ShaderLoader{})
	return am, nil
}

// Initialize indexes assetsDir and starts watching it and every directory
// below it.
func (am *AssetManager) Initialize(assetsDir string) error {
	if am.isClosed {
		return ErrClosed
	}
	am.root = filepath.Clean(assetsDir)

	if err := am.watchRecursive(am.root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", am.root, err)
	}
	am.started = true
	go am.start()

	core.LogDebug("Indexed %d asset(s) under %s.", am.Len(), am.root)
	return nil
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

func (am *AssetManager) Len() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// Lookup returns the index entry for a path relative to the assets directory.
func (am *AssetManager) Lookup(name string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	asset, ok := am.assets[am.resolve(name)]
	return asset, ok
}

// LoadAsset loads the asset at name, relative to the assets directory, with
// the loader registered for its type.
func (am *AssetManager) LoadAsset(name string, params map[string]string) (*metadata.Resource, error) {
	path := am.resolve(name)

	am.mutex.Lock()
	asset, exists := am.assets[path]
	if exists {
		asset.LastLoaded = time.Now()
		am.assets[path] = asset // Update the loaded time
	}
	am.mutex.Unlock()
	if !exists {
		return nil, fmt.Errorf("%s: %w", path, ErrAssetNotFound)
	}

	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %d", asset.Type)
	}

	res, err := loader.Load(path, asset.Type, params)
	if err != nil {
		return nil, err
	}
	core.LogDebug("Loaded %s (%d bytes, id %s).", res.FullPath, res.DataSize, res.ID)
	return res, nil
}

func (am *AssetManager) UnloadAsset(asset *metadata.Resource) error {
	loader, ok := am.loaders[asset.Type]
	if !ok {
		return fmt.Errorf("no loader registered for asset type: %d", asset.Type)
	}
	return loader.Unload(asset)
}

// Shutdown stops the watcher and waits for it to exit.
func (am *AssetManager) Shutdown() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	if !am.started {
		return am.fsnotify.Close()
	}
	close(am.done)
	<-am.stopped
	return nil
}

func (am *AssetManager) resolve(name string) string {
	if filepath.IsAbs(name) || am.root == "" {
		return filepath.Clean(name)
	}
	return filepath.Join(am.root, name)
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	path := filepath.Clean(e.Name)

	if e.Op&fsnotify.Create != 0 {
		if s, err := os.Stat(path); err == nil && s.IsDir() {
			if err := am.watchRecursive(path); err != nil {
				core.LogWarn("failed to watch new directory %s: %s", path, err)
			}
			return
		}
	}
	// Handle create or modify events
	if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		if am.indexFile(path) {
			core.LogWarn("%s changed on disk; the running pipeline keeps the version it was built with.", path)
		}
	}
	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		am.removeAsset(path)
	}
}

// watchRecursive adds all directories under the given one to the watch list
// and indexes the files found on the way.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.WalkDir(path, func(walkPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		am.indexFile(filepath.Clean(walkPath))
		return nil
	})
}

// indexFile records a created or modified file. It reports whether the file
// had already been loaded.
func (am *AssetManager) indexFile(path string) bool {
	assetType := determineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return false
	}

	var modified time.Time
	if s, err := os.Stat(path); err == nil {
		modified = s.ModTime()
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()

	previous := am.assets[path]
	am.assets[path] = AssetInfo{
		Path:       path,
		Type:       assetType,
		ModifiedAt: modified,
		LastLoaded: previous.LastLoaded,
	}
	return !previous.LastLoaded.IsZero()
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, path)
}

func determineAssetType(path string) metadata.ResourceType {
	switch filepath.Ext(path) {
	case ".spv":
		return metadata.ResourceTypeShaderBinary
	case ".bin":
		return metadata.ResourceTypeBinary
	default:
		return metadata.ResourceTypeNone
	}
}

// LoadShaderSet loads the two stages of the fixed pipeline.
func (am *AssetManager) LoadShaderSet(vertex, fragment string) (metadata.ShaderSet, error) {
	vs, err := am.LoadAsset(vertex, map[string]string{"name": "vertex"})
	if err != nil {
		return metadata.ShaderSet{}, fmt.Errorf("vertex shader: %w", err)
	}
	fs, err := am.LoadAsset(fragment, map[string]string{"name": "fragment"})
	if err != nil {
		return metadata.ShaderSet{}, fmt.Errorf("fragment shader: %w", err)
	}
	for _, r := range []*metadata.Resource{vs, fs} {
		if r.Type != metadata.ResourceTypeShaderBinary {
			return metadata.ShaderSet{}, fmt.Errorf("%s is not a shader binary", r.FullPath)
		}
	}
	return metadata.ShaderSet{Vertex: vs, Fragment: fs}, nil
}
