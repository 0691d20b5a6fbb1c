package combine

import (
	"fmt"
	"time"

	"github.com/spaghettifunk/shadowproxy/engine/core"
	"github.com/spaghettifunk/shadowproxy/engine/math"
	"github.com/spaghettifunk/shadowproxy/engine/resources"
	"github.com/spaghettifunk/shadowproxy/engine/systems"
)

/** @brief Snapshots the current pose of a skinned source into dst. */
type Baker interface {
	Bake(source resources.GeometrySource, dst *resources.Mesh) error
}

/** @brief Merges combine instances into dst. */
type Merger interface {
	Merge(instances []resources.CombineInstance, mergeSubMeshes, useMatrices bool, dst *resources.Mesh) error
}

const DefaultOutputName = "ShadowProxyObject"

type Combiner struct {
	// Name given to the combined mesh.
	OutputName string

	geometry *systems.GeometrySystem
	baker    Baker
	merger   Merger
	metrics  *core.RunMetrics
}

func NewCombiner(gs *systems.GeometrySystem, baker Baker, merger Merger) *Combiner {
	return &Combiner{
		OutputName: DefaultOutputName,
		geometry:   gs,
		baker:      baker,
		merger:     merger,
		metrics:    &core.RunMetrics{},
	}
}

// NewCombinerFromSystems wires a combiner to the mesh system for both baking
// and merging.
func NewCombinerFromSystems(sm *systems.SystemManager) *Combiner {
	return NewCombiner(sm.GeometrySystem, sm.MeshSystem, sm.MeshSystem)
}

// Metrics describes the last run.
func (c *Combiner) Metrics() core.RunMetrics {
	return *c.metrics
}

/**
 * @brief Combines static and skinned sources into one mesh with a submesh per
 * material. A single source short-circuits to NotCombined with its raw mesh.
 * Every intermediate buffer is released before returning, on success, error
 * or panic alike; only the combined output survives.
 *
 * @param static The static sources, in collection order.
 * @param skinned The skinned sources, in collection order.
 * @return The result, or an error. ErrNoSources when both lists are empty.
 */
func (c *Combiner) Combine(static, skinned []resources.GeometrySource) (result Result, err error) {
	c.metrics.Reset()
	c.metrics.StaticSources = len(static)
	c.metrics.SkinnedSources = len(skinned)
	start := time.Now()
	defer func() {
		c.metrics.Duration = time.Since(start)
	}()

	switch len(static) + len(skinned) {
	case 0:
		return nil, core.ErrNoSources
	case 1:
		var src resources.GeometrySource
		if len(static) == 1 {
			src = static[0]
		} else {
			src = skinned[0]
		}
		if src.Mesh == nil {
			return nil, fmt.Errorf("source '%s': %w", src.Name, core.ErrNilMesh)
		}
		core.LogInfo("single source '%s', nothing to combine.", src.Name)
		return NotCombined{Original: src.Mesh}, nil
	}

	arena := c.geometry.NewArena("combine")
	defer func() {
		c.metrics.BuffersReleased = arena.Release()
	}()

	entries, err := c.flatten(arena, static, skinned)
	if err != nil {
		return nil, err
	}
	c.metrics.FlatEntries = len(entries)

	groups := GroupByMaterial(entries)
	c.metrics.MaterialGroups = len(groups)
	if len(groups) == 0 {
		return nil, fmt.Errorf("sources contain no submeshes: %w", core.ErrNoCombineInstances)
	}

	perMaterial := make([]resources.CombineInstance, 0, len(groups))
	materials := make([]*resources.Material, 0, len(groups))
	for _, group := range groups {
		merged, err := arena.New("material_" + group.Material.String())
		if err != nil {
			return nil, err
		}
		if err := c.merger.Merge(group.instances(), true, true, merged); err != nil {
			return nil, fmt.Errorf("merging material '%s': %w", group.Material, err)
		}
		c.metrics.Merges++
		core.LogDebug("material '%s': %d entries, %d vertices.", group.Material, len(group.Entries), merged.VertexCount())

		perMaterial = append(perMaterial, resources.CombineInstance{
			Mesh:         merged,
			SubMeshIndex: 0,
			Transform:    math.NewMat4Identity(),
		})
		materials = append(materials, group.Material)
	}

	output, err := arena.New(c.OutputName)
	if err != nil {
		return nil, err
	}
	if err := c.merger.Merge(perMaterial, false, false, output); err != nil {
		return nil, fmt.Errorf("merging material groups: %w", err)
	}
	c.metrics.Merges++
	if err := arena.Keep(output); err != nil {
		return nil, err
	}

	return Combined{Output: output, Materials: materials}, nil
}
