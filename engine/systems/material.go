package systems

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/shadowproxy/engine/core"
	"github.com/spaghettifunk/shadowproxy/engine/resources"
)

/** @brief The name of the default shader assigned to materials declared without one. */
const DefaultShaderName string = "Standard"

type MaterialSystemConfig struct {
	/** @brief The maximum number of materials that can be registered at once. */
	MaxMaterialCount uint32
}

/**
 * @brief Name to material registry. Every name maps to exactly one
 * *resources.Material, so pointer identity and name identity agree for
 * materials obtained here. The empty name is the "no material" slot and
 * always resolves to nil.
 */
type MaterialSystem struct {
	Config *MaterialSystemConfig

	mu sync.RWMutex
	// Hashtable for material lookups.
	registeredMaterialTable map[string]*resources.Material
	// Registration order, for stable listings.
	order []string
}

func NewMaterialSystem(config *MaterialSystemConfig) (*MaterialSystem, error) {
	if config == nil || config.MaxMaterialCount == 0 {
		err := fmt.Errorf("func NewMaterialSystem - config.MaxMaterialCount must be > 0")
		core.LogWarn("%s", err)
		return nil, err
	}
	return &MaterialSystem{
		Config:                  config,
		registeredMaterialTable: make(map[string]*resources.Material),
	}, nil
}

func (ms *MaterialSystem) Shutdown() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.registeredMaterialTable = make(map[string]*resources.Material)
	ms.order = nil
	return nil
}

/**
 * @brief Registers a material, or returns the existing one with that name.
 * An empty shaderName falls back to DefaultShaderName. An existing material
 * keeps the shader it was first registered with.
 */
func (ms *MaterialSystem) Register(name, shaderName string) (*resources.Material, error) {
	if len(name) == 0 {
		return nil, nil
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if m, ok := ms.registeredMaterialTable[name]; ok {
		if len(shaderName) > 0 && m.ShaderName != shaderName {
			core.LogWarn("material '%s' already registered with shader '%s', ignoring '%s'.", name, m.ShaderName, shaderName)
		}
		return m, nil
	}
	if uint32(len(ms.registeredMaterialTable)) >= ms.Config.MaxMaterialCount {
		err := fmt.Errorf("unable to register material '%s': limit of %d reached", name, ms.Config.MaxMaterialCount)
		core.LogError("%s", err)
		return nil, err
	}
	if len(shaderName) == 0 {
		shaderName = DefaultShaderName
	}
	m := &resources.Material{
		Name:       name,
		ShaderName: shaderName,
	}
	ms.registeredMaterialTable[name] = m
	ms.order = append(ms.order, name)
	return m, nil
}

// Acquire resolves a material slot by name. The empty name is an absent slot.
// Unknown names are registered on first use with the default shader.
func (ms *MaterialSystem) Acquire(name string) (*resources.Material, error) {
	if len(name) == 0 {
		return nil, nil
	}
	if m, ok := ms.Get(name); ok {
		return m, nil
	}
	core.LogDebug("material '%s' not declared, registering with shader '%s'.", name, DefaultShaderName)
	return ms.Register(name, "")
}

func (ms *MaterialSystem) Get(name string) (*resources.Material, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	m, ok := ms.registeredMaterialTable[name]
	return m, ok
}

// Names lists registered materials in registration order.
func (ms *MaterialSystem) Names() []string {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	out := make([]string, len(ms.order))
	copy(out, ms.order)
	return out
}

func (ms *MaterialSystem) Count() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.registeredMaterialTable)
}
