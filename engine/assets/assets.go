package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/spaghettifunk/simplegfx/engine/assets/loaders"
	"github.com/spaghettifunk/simplegfx/engine/core"
	"github.com/spaghettifunk/simplegfx/engine/renderer/metadata"
	"github.com/spaghettifunk/simplegfx/engine/systems"
)

var ErrAssetManagerClosed = errors.New("asset manager already closed")

type AssetInfo struct {
	ID         string
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

// AssetManager loads meshes, images and shader binaries from disk, keeps a
// cache of decoded resources filled by Preload, and reports changed files
// when watching is enabled.
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]loaders.Loader
	cache   map[string]*metadata.Resource
	jobs    *systems.JobSystem

	mutex sync.RWMutex

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
	changes  chan string
}

// NewAssetManager resolves relative paths against root. jobs may be nil, in
// which case Preload decodes sequentially.
func NewAssetManager(root string, jobs *systems.JobSystem) *AssetManager {
	am := &AssetManager{
		root:    root,
		assets:  make(map[string]AssetInfo),
		loaders: make(map[metadata.ResourceType]loaders.Loader),
		cache:   make(map[string]*metadata.Resource),
		jobs:    jobs,
		changes: make(chan string, 64),
		done:    make(chan struct{}),
	}
	am.registerLoader(metadata.ResourceTypeBinary, &loaders.BinaryLoader{})
	am.registerLoader(metadata.ResourceTypeImage, &loaders.ImageLoader{})
	am.registerLoader(metadata.ResourceTypeMesh, &loaders.ObjLoader{})
	return am
}

// Watch starts reporting changes to files below the asset root.
func (am *AssetManager) Watch() error {
	if am.isClosed {
		return ErrAssetManagerClosed
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	am.fsnotify = w
	if err := am.watchRecursive(am.root); err != nil {
		w.Close()
		am.fsnotify = nil
		return err
	}
	go am.start()
	core.LogInfo("watching %s for asset changes", am.root)
	return nil
}

func (am *AssetManager) Shutdown() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	close(am.done)
	return nil
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader loaders.Loader) {
	am.loaders[assetType] = loader
}

// Resolve maps a configured path onto the asset root. Absolute paths and
// paths that exist relative to the working directory are kept as they are.
func (am *AssetManager) Resolve(path string) string {
	if filepath.IsAbs(path) || am.root == "" {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return filepath.Join(am.root, path)
}

// Load an asset using the appropriate loader, preferring a preloaded copy.
func (am *AssetManager) LoadAsset(path string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	full := am.Resolve(path)

	am.mutex.Lock()
	if res, ok := am.cache[full]; ok && res.Type == resourceType {
		delete(am.cache, full)
		am.mutex.Unlock()
		return res, nil
	}
	am.mutex.Unlock()

	loader, loaderExists := am.loaders[resourceType]
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %s", resourceType)
	}

	res, err := loader.Load(full, params)
	if err != nil {
		return nil, err
	}
	res.ID = am.track(full, resourceType)
	return res, nil
}

func (am *AssetManager) LoadMesh(path string) (*metadata.MeshData, error) {
	res, err := am.LoadAsset(path, metadata.ResourceTypeMesh, &loaders.MeshResourceParams{FlipV: true})
	if err != nil {
		return nil, err
	}
	return res.Data.(*metadata.MeshData), nil
}

func (am *AssetManager) LoadImage(path string) (*metadata.ImageData, error) {
	res, err := am.LoadAsset(path, metadata.ResourceTypeImage, &metadata.ImageResourceParams{})
	if err != nil {
		return nil, err
	}
	return res.Data.(*metadata.ImageData), nil
}

func (am *AssetManager) LoadBinary(path string) ([]uint32, error) {
	res, err := am.LoadAsset(path, metadata.ResourceTypeBinary, nil)
	if err != nil {
		return nil, err
	}
	return res.Data.([]uint32), nil
}

// Preload decodes every path on the job system and caches the results for
// the next Load call. The first decode error is returned.
func (am *AssetManager) Preload(paths []string) error {
	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)
	for _, p := range paths {
		rt := determineAssetType(p)
		if rt == metadata.ResourceTypeNone {
			return fmt.Errorf("cannot preload %s: unknown asset type", p)
		}
		full := am.Resolve(p)
		loader := am.loaders[rt]

		task := metadata.JobTask{
			InputParams: full,
			OnStart: func(params interface{}, out chan<- interface{}) error {
				var lp interface{}
				if rt == metadata.ResourceTypeMesh {
					lp = &loaders.MeshResourceParams{FlipV: true}
				}
				res, err := loader.Load(params.(string), lp)
				if err != nil {
					return err
				}
				out <- res
				return nil
			},
			OnComplete: func(in <-chan interface{}) {
				res := (<-in).(*metadata.Resource)
				res.ID = am.track(full, rt)
				am.mutex.Lock()
				am.cache[full] = res
				am.mutex.Unlock()
			},
			OnFailure: func(<-chan interface{}) {
				errMu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("preloading %s failed", full)
				}
				errMu.Unlock()
			},
			OnCompletionCallback: wg.Done,
		}

		wg.Add(1)
		if am.jobs == nil {
			runInline(task)
			continue
		}
		if err := am.jobs.Submit(task); err != nil {
			wg.Done()
			return err
		}
	}
	wg.Wait()
	return firstErr
}

func runInline(task metadata.JobTask) {
	out := make(chan interface{}, 1)
	err := task.OnStart(task.InputParams, out)
	close(out)
	if err != nil {
		core.LogError(err.Error())
		task.OnFailure(out)
	} else {
		task.OnComplete(out)
	}
	task.OnCompletionCallback()
}

// track records path and returns its stable id.
func (am *AssetManager) track(path string, rt metadata.ResourceType) string {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	info, ok := am.assets[path]
	if !ok {
		info = AssetInfo{ID: uuid.NewString(), Path: path, Type: rt}
	}
	info.LastLoaded = time.Now()
	am.assets[path] = info
	return info.ID
}

// Info returns what is known about a loaded asset.
func (am *AssetManager) Info(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[am.Resolve(path)]
	return info, ok
}

// PollChanges fires EVENT_CODE_ASSET_CHANGED for every loaded asset written
// since the last call. Call it from the thread that owns the renderer.
func (am *AssetManager) PollChanges() int {
	seen := map[string]struct{}{}
	for {
		select {
		case p := <-am.changes:
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			am.mutex.RLock()
			info, ok := am.assets[p]
			am.mutex.RUnlock()
			if !ok {
				continue
			}
			core.LogDebug("asset changed: %s (%s)", p, info.ID)
			core.EventFire(core.EventContext{
				Type: core.EVENT_CODE_ASSET_CHANGED,
				Data: &core.AssetChangedEvent{ID: info.ID, Path: p, Kind: info.Type.String()},
			})
		default:
			return len(seen)
		}
	}
}

func (am *AssetManager) start() {
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name); err != nil {
						core.LogWarn("cannot watch %s: %s", e.Name, err)
					}
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				am.handleFileEvent(e.Name)
			}
			if e.Op&fsnotify.Remove != 0 {
				am.removeAsset(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

// watchRecursive adds all directories under the given one to the watch list.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) {
	if determineAssetType(path) == metadata.ResourceTypeNone {
		return
	}
	am.mutex.RLock()
	_, tracked := am.assets[path]
	am.mutex.RUnlock()
	if !tracked {
		return
	}
	select {
	case am.changes <- path:
	default:
		core.LogWarn("asset change queue full, dropping %s", path)
	}
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, path)
	delete(am.cache, path)
}

func determineAssetType(path string) metadata.ResourceType {
	switch filepath.Ext(path) {
	case ".spv":
		return metadata.ResourceTypeBinary
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp":
		return metadata.ResourceTypeImage
	case ".obj":
		return metadata.ResourceTypeMesh
	default:
		return metadata.ResourceTypeNone
	}
}
