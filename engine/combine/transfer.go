package combine

import (
	"github.com/spaghettifunk/shadowproxy/engine/core"
	"github.com/spaghettifunk/shadowproxy/engine/resources"
	"golang.org/x/exp/slices"
)

/**
 * @brief Overwrites the geometry of to with the geometry of from, keeping the
 * identity of to (ID, GUID and name). Vertices go first and the submesh count
 * second so that every index list copied afterwards addresses valid vertices.
 * Bone data is not carried over. Transferring a mesh onto itself is a no-op.
 */
func Transfer(from, to *resources.Mesh) error {
	if from == nil || to == nil {
		return core.ErrNilMesh
	}
	if from == to {
		return nil
	}

	to.Clear()
	to.Vertices = slices.Clone(from.Vertices)
	to.SetSubMeshCount(from.SubMeshCount())
	for i := 0; i < from.SubMeshCount(); i++ {
		tris, err := from.Triangles(i)
		if err != nil {
			return err
		}
		if err := to.SetTriangles(tris, i); err != nil {
			return err
		}
	}
	to.Normals = slices.Clone(from.Normals)
	to.Tangents = slices.Clone(from.Tangents)
	to.Colours = slices.Clone(from.Colours)
	for c := range from.UVs {
		to.UVs[c] = slices.Clone(from.UVs[c])
	}
	return nil
}
