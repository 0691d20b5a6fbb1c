package combine

import (
	"fmt"

	"github.com/spaghettifunk/shadowproxy/engine/core"
	"github.com/spaghettifunk/shadowproxy/engine/math"
	"github.com/spaghettifunk/shadowproxy/engine/resources"
	"github.com/spaghettifunk/shadowproxy/engine/systems"
)

/**
 * @brief One submesh worth of combine input: the geometry to read, which
 * submesh of it, where it sits in the world and the material it resolved to.
 * A nil Material is the "no material" identity.
 */
type FlatEntry struct {
	Geometry     *resources.Mesh
	SubMeshIndex int
	Transform    math.Mat4
	Material     *resources.Material
	// Name of the source the entry came from, for logging.
	Source string
}

func (e FlatEntry) instance() resources.CombineInstance {
	return resources.CombineInstance{
		Mesh:         e.Geometry,
		SubMeshIndex: e.SubMeshIndex,
		Transform:    e.Transform,
	}
}

/**
 * @brief Compacted material indexing: absent slots are dropped before
 * submesh i looks up its material, so submesh i resolves to the i-th
 * non-nil material. Any nil slot therefore shifts every later submesh onto
 * the following material, and trailing submeshes run out of materials and
 * resolve to nil.
 */
func CompactMaterials(materials []*resources.Material) []*resources.Material {
	out := make([]*resources.Material, 0, len(materials))
	for _, m := range materials {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// ResolveMaterial applies compacted material indexing to submesh i.
func ResolveMaterial(compacted []*resources.Material, i int) *resources.Material {
	if i >= 0 && i < len(compacted) {
		return compacted[i]
	}
	return nil
}

/**
 * @brief Expands static then skinned sources into one entry per submesh.
 * Static entries reference the source mesh directly with its full world
 * transform. Each skinned source is baked exactly once into a buffer owned by
 * arena, and all of its entries share that buffer under the source transform
 * reassembled with unit scale.
 */
func (c *Combiner) flatten(arena *systems.Arena, static, skinned []resources.GeometrySource) ([]FlatEntry, error) {
	var entries []FlatEntry

	for _, src := range static {
		if src.Mesh == nil {
			return nil, fmt.Errorf("static source '%s': %w", src.Name, core.ErrNilMesh)
		}
		materials := CompactMaterials(src.Materials)
		for i := 0; i < src.Mesh.SubMeshCount(); i++ {
			entries = append(entries, FlatEntry{
				Geometry:     src.Mesh,
				SubMeshIndex: i,
				Transform:    src.Transform,
				Material:     ResolveMaterial(materials, i),
				Source:       src.Name,
			})
		}
	}

	for _, src := range skinned {
		if src.Mesh == nil {
			return nil, fmt.Errorf("skinned source '%s': %w", src.Name, core.ErrNilMesh)
		}
		count := src.Mesh.SubMeshCount()
		if count == 0 {
			continue
		}
		baked, err := arena.New(src.Name + "_baked")
		if err != nil {
			return nil, err
		}
		if err := c.baker.Bake(src, baked); err != nil {
			return nil, err
		}
		c.metrics.Bakes++

		transform := math.NewMat4UnitScale(src.Transform)
		materials := CompactMaterials(src.Materials)
		for i := 0; i < count; i++ {
			entries = append(entries, FlatEntry{
				Geometry:     baked,
				SubMeshIndex: i,
				Transform:    transform,
				Material:     ResolveMaterial(materials, i),
				Source:       src.Name,
			})
		}
	}
	return entries, nil
}
