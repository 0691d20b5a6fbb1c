package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spaghettifunk/shadowproxy/engine/assets/loaders"
	"github.com/spaghettifunk/shadowproxy/engine/core"
	"github.com/spaghettifunk/shadowproxy/engine/resources"
	"github.com/spaghettifunk/shadowproxy/engine/scene"
	"github.com/spaghettifunk/shadowproxy/engine/systems"
)

type AssetInfo struct {
	Path       string
	Type       resources.ResourceType
	GUID       uuid.UUID
	LastLoaded time.Time
}

/**
 * @brief Loads and persists assets. Tracks every asset it touched so watch
 * mode knows which files matter.
 */
type AssetManager struct {
	assets  map[string]AssetInfo
	loaders map[resources.ResourceType]Loader

	mutex sync.RWMutex
}

func NewAssetManager() *AssetManager {
	am := &AssetManager{
		assets:  make(map[string]AssetInfo),
		loaders: make(map[resources.ResourceType]Loader),
	}
	am.registerLoader(resources.ResourceTypeMesh, &loaders.MeshLoader{})
	am.registerLoader(resources.ResourceTypeScene, &loaders.SceneLoader{})
	return am
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType resources.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// Load an asset using the appropriate loader
func (am *AssetManager) LoadAsset(path string, resourceType resources.ResourceType, params interface{}) (*resources.Resource, error) {
	loader, ok := am.loaders[resourceType]
	if !ok {
		return nil, fmt.Errorf("no loader registered for asset type: %d", resourceType)
	}
	res, err := loader.Load(path, resourceType, params)
	if err != nil {
		return nil, err
	}

	info := AssetInfo{
		Path:       path,
		Type:       resourceType,
		LastLoaded: time.Now(),
	}
	if m, ok := res.Data.(*resources.Mesh); ok {
		info.GUID = m.GUID
	}
	am.track(info)
	return res, nil
}

func (am *AssetManager) UnloadAsset(res *resources.Resource) error {
	loader, ok := am.loaders[res.Type]
	if !ok {
		return fmt.Errorf("no loader registered for asset type: %d", res.Type)
	}
	return loader.Unload(res)
}

/**
 * @brief Loads a scene description and tracks every mesh file it references
 * alongside the scene file itself.
 */
func (am *AssetManager) LoadScene(path string, materials *systems.MaterialSystem) (*scene.Scene, error) {
	res, err := am.LoadAsset(path, resources.ResourceTypeScene, &loaders.SceneLoaderParams{Materials: materials})
	if err != nil {
		return nil, err
	}
	s := res.Data.(*scene.Scene)
	for _, dep := range s.Dependencies {
		am.track(AssetInfo{
			Path:       dep,
			Type:       resources.ResourceTypeMesh,
			LastLoaded: time.Now(),
		})
	}
	return s, nil
}

// TrackedPaths lists every tracked asset path, in no particular order.
func (am *AssetManager) TrackedPaths() []string {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	out := make([]string, 0, len(am.assets))
	for p := range am.assets {
		out = append(out, p)
	}
	return out
}

/**
 * @brief Loads the mesh asset at path if it exists, otherwise creates a new
 * empty mesh called name with a fresh GUID. Nothing is written here; the
 * new mesh becomes an asset once SaveMesh registers it.
 *
 * @return The mesh, and whether it was created.
 */
func (am *AssetManager) LoadOrCreateMesh(path, name string) (*resources.Mesh, bool, error) {
	res, err := am.LoadAsset(path, resources.ResourceTypeMesh, nil)
	switch {
	case err == nil:
		mesh := res.Data.(*resources.Mesh)
		core.LogDebug("loaded existing mesh asset '%s' (%s).", path, mesh.GUID)
		return mesh, false, nil
	case errors.Is(err, fs.ErrNotExist):
		mesh := resources.NewMesh(name)
		mesh.GUID = uuid.New()
		core.LogDebug("creating mesh asset '%s' (%s).", path, mesh.GUID)
		return mesh, true, nil
	default:
		return nil, false, err
	}
}

// SaveMesh writes mesh to path and registers it as a tracked asset.
func (am *AssetManager) SaveMesh(path string, mesh *resources.Mesh) error {
	if mesh.GUID == uuid.Nil {
		mesh.GUID = uuid.New()
	}
	if err := loaders.WriteMeshFile(path, mesh); err != nil {
		return fmt.Errorf("saving mesh asset '%s': %w", path, err)
	}
	am.track(AssetInfo{
		Path:       path,
		Type:       resources.ResourceTypeMesh,
		GUID:       mesh.GUID,
		LastLoaded: time.Now(),
	})
	return nil
}

// Tracked returns the asset info recorded for path.
func (am *AssetManager) Tracked(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[cleanPath(path)]
	return info, ok
}

func (am *AssetManager) track(info AssetInfo) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	info.Path = cleanPath(info.Path)
	am.assets[info.Path] = info
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, cleanPath(path))
}

func cleanPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func determineAssetType(path string) (resources.ResourceType, bool) {
	switch filepath.Ext(path) {
	case loaders.MeshExtension:
		return resources.ResourceTypeMesh, true
	case loaders.SceneExtension:
		return resources.ResourceTypeScene, true
	default:
		return resources.ResourceTypeBinary, false
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
