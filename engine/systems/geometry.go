package systems

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/shadowproxy/engine/core"
	"github.com/spaghettifunk/shadowproxy/engine/resources"
)

/** @brief The configuration for the geometry system. */
type GeometrySystemConfig struct {
	/**
	 * @brief Max number of geometry buffers that can be alive at once.
	 * NOTE: Should be significantly greater than the number of sources in
	 * a scene, since every bake and every per-material merge takes a slot.
	 */
	MaxGeometryCount uint32
}

type geometryReference struct {
	ReferenceCount uint64
	Geometry       *resources.Mesh
}

/**
 * @brief Owns every transient geometry buffer created while building a
 * proxy. Buffers are handed out with a reference count of one and destroyed
 * as soon as the count drops to zero.
 */
type GeometrySystem struct {
	Config *GeometrySystemConfig

	mu         sync.Mutex
	ids        *core.IdentifierPool
	registered map[uint32]*geometryReference
	destroyed  uint64
}

/**
 * @brief Initializes the geometry system.
 *
 * @param config The configuration for this system.
 * @return The system or an error if the configuration is unusable.
 */
func NewGeometrySystem(config *GeometrySystemConfig) (*GeometrySystem, error) {
	if config == nil || config.MaxGeometryCount == 0 {
		err := fmt.Errorf("func NewGeometrySystem - config.MaxGeometryCount must be > 0")
		core.LogWarn("%s", err)
		return nil, err
	}
	return &GeometrySystem{
		Config:     config,
		ids:        core.NewIdentifierPool(int(config.MaxGeometryCount)),
		registered: make(map[uint32]*geometryReference, config.MaxGeometryCount),
	}, nil
}

/**
 * @brief Shuts down the geometry system. Any buffer still alive is a leak:
 * it is reported and destroyed.
 */
func (gs *GeometrySystem) Shutdown() error {
	gs.mu.Lock()
	leaked := make([]*resources.Mesh, 0, len(gs.registered))
	for _, ref := range gs.registered {
		leaked = append(leaked, ref.Geometry)
	}
	gs.mu.Unlock()

	for _, g := range leaked {
		core.LogWarn("geometry '%s' (id %d) still alive at shutdown, destroying.", g.Name, g.ID)
		if err := gs.Destroy(g); err != nil {
			return err
		}
	}
	return nil
}

/**
 * @brief Registers and acquires a new, empty geometry buffer.
 *
 * @param name The name given to the buffer.
 * @return The buffer, owned by the caller with a reference count of one.
 */
func (gs *GeometrySystem) Create(name string) (*resources.Mesh, error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if uint32(len(gs.registered)) >= gs.Config.MaxGeometryCount {
		err := fmt.Errorf("unable to obtain free slot for geometry '%s'. Adjust configuration to allow more space", name)
		core.LogError("%s", err)
		return nil, err
	}

	g := resources.NewMesh(name)
	g.ID = gs.ids.Acquire(g)
	gs.registered[g.ID] = &geometryReference{
		ReferenceCount: 1,
		Geometry:       g,
	}
	return g, nil
}

/**
 * @brief Takes an extra reference to a registered geometry.
 */
func (gs *GeometrySystem) Acquire(geometry *resources.Mesh) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	ref, err := gs.lookup(geometry)
	if err != nil {
		return err
	}
	ref.ReferenceCount++
	return nil
}

/**
 * @brief Releases a reference to the provided geometry, destroying it when
 * no references remain.
 */
func (gs *GeometrySystem) Release(geometry *resources.Mesh) error {
	gs.mu.Lock()
	ref, err := gs.lookup(geometry)
	if err != nil {
		gs.mu.Unlock()
		core.LogWarn("geometry release: %s. Nothing was done.", err)
		return err
	}
	if ref.ReferenceCount > 0 {
		ref.ReferenceCount--
	}
	last := ref.ReferenceCount == 0
	gs.mu.Unlock()

	if last {
		return gs.Destroy(geometry)
	}
	return nil
}

/**
 * @brief Immediately destroys a geometry regardless of its reference count:
 * its data is dropped and its id is invalidated.
 */
func (gs *GeometrySystem) Destroy(geometry *resources.Mesh) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if _, err := gs.lookup(geometry); err != nil {
		return err
	}
	id := geometry.ID
	delete(gs.registered, id)
	if err := gs.ids.Release(id); err != nil {
		return err
	}
	geometry.Clear()
	geometry.ID = resources.InvalidID
	gs.destroyed++
	core.LogDebug("geometry '%s' (id %d) destroyed.", geometry.Name, id)
	return nil
}

/**
 * @brief Removes a geometry from the registry without touching its data.
 * Ownership moves to the caller; the system no longer tracks it.
 */
func (gs *GeometrySystem) Detach(geometry *resources.Mesh) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if _, err := gs.lookup(geometry); err != nil {
		return err
	}
	delete(gs.registered, geometry.ID)
	if err := gs.ids.Release(geometry.ID); err != nil {
		return err
	}
	geometry.ID = resources.InvalidID
	return nil
}

// LiveCount returns how many buffers are currently registered.
func (gs *GeometrySystem) LiveCount() int {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return len(gs.registered)
}

// DestroyedCount returns how many buffers were destroyed since creation.
func (gs *GeometrySystem) DestroyedCount() uint64 {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return gs.destroyed
}

// IsAlive reports whether geometry is currently registered with this system.
func (gs *GeometrySystem) IsAlive(geometry *resources.Mesh) bool {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	_, err := gs.lookup(geometry)
	return err == nil
}

func (gs *GeometrySystem) lookup(geometry *resources.Mesh) (*geometryReference, error) {
	if geometry == nil {
		return nil, core.ErrNilMesh
	}
	if geometry.ID == resources.InvalidID {
		return nil, fmt.Errorf("geometry '%s': %w", geometry.Name, core.ErrBufferReleased)
	}
	ref, ok := gs.registered[geometry.ID]
	if !ok || ref.Geometry != geometry {
		// Either a stale id or a mesh registered with another system.
		return nil, fmt.Errorf("geometry '%s' id %d is not registered: %w", geometry.Name, geometry.ID, core.ErrBufferReleased)
	}
	return ref, nil
}
