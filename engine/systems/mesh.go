package systems

import (
	"fmt"

	"github.com/spaghettifunk/shadowproxy/engine/core"
	"github.com/spaghettifunk/shadowproxy/engine/math"
	"github.com/spaghettifunk/shadowproxy/engine/resources"
	"golang.org/x/exp/slices"
)

// MeshSystem implements the geometry primitives the combiner is built on:
// merging submeshes into a new buffer and baking skinned poses.
type MeshSystem struct {
	geometrySystem *GeometrySystem
}

func NewMeshSystem(gs *GeometrySystem) (*MeshSystem, error) {
	if gs == nil {
		return nil, fmt.Errorf("func NewMeshSystem - geometry system is required")
	}
	return &MeshSystem{
		geometrySystem: gs,
	}, nil
}

// Shutdown detaches the mesh system from its geometry registry. Merge and
// Bake fail afterwards.
func (ms *MeshSystem) Shutdown() error {
	ms.geometrySystem = nil
	return nil
}

// checkTarget makes sure dst is a live buffer of the geometry system.
func (ms *MeshSystem) checkTarget(dst *resources.Mesh) error {
	if dst == nil {
		return core.ErrNilMesh
	}
	if ms.geometrySystem == nil {
		return fmt.Errorf("mesh system is shut down")
	}
	if !ms.geometrySystem.IsAlive(dst) {
		return fmt.Errorf("target '%s': %w", dst.Name, core.ErrBufferReleased)
	}
	return nil
}

type attributeSet struct {
	normals  bool
	tangents bool
	colours  bool
	uvs      [resources.MaxUVChannels]bool
}

func collectAttributes(instances []resources.CombineInstance) attributeSet {
	set := attributeSet{}
	for _, inst := range instances {
		m := inst.Mesh
		n := m.VertexCount()
		if n == 0 {
			continue
		}
		set.normals = set.normals || len(m.Normals) == n
		set.tangents = set.tangents || len(m.Tangents) == n
		set.colours = set.colours || len(m.Colours) == n
		for c := 0; c < resources.MaxUVChannels; c++ {
			set.uvs[c] = set.uvs[c] || len(m.UVs[c]) == n
		}
	}
	return set
}

/**
 * @brief Merges the referenced submeshes into dst, replacing its contents.
 * dst must be alive in the geometry system.
 * Only vertices referenced by each submesh are copied, in ascending index
 * order. With mergeSubMeshes every instance lands in one submesh, otherwise
 * each instance becomes its own submesh in input order. With useMatrices the
 * instance transforms are applied to positions, normals and tangents.
 * Attributes present on any input are present on the output, zero-filled
 * where an input lacks them.
 */
func (ms *MeshSystem) Merge(instances []resources.CombineInstance, mergeSubMeshes, useMatrices bool, dst *resources.Mesh) error {
	if len(instances) == 0 {
		return core.ErrNoCombineInstances
	}
	if err := ms.checkTarget(dst); err != nil {
		return err
	}
	for i, inst := range instances {
		if inst.Mesh == nil {
			return fmt.Errorf("combine instance %d: %w", i, core.ErrNilMesh)
		}
	}

	attrs := collectAttributes(instances)
	dst.Clear()

	var subMeshes [][]uint32
	if mergeSubMeshes {
		subMeshes = make([][]uint32, 1)
	}

	for i, inst := range instances {
		tris, err := inst.Mesh.Triangles(inst.SubMeshIndex)
		if err != nil {
			return fmt.Errorf("combine instance %d: %w", i, err)
		}

		used := slices.Clone(tris)
		slices.Sort(used)
		used = slices.Compact(used)

		base := uint32(dst.VertexCount())
		remap := make(map[uint32]uint32, len(used))
		for j, old := range used {
			remap[old] = base + uint32(j)
		}

		ms.appendVertices(dst, inst, used, attrs, useMatrices)

		flip := useMatrices && determinant3(inst.Transform) < 0
		out := make([]uint32, len(tris))
		for j := 0; j+2 < len(tris); j += 3 {
			out[j] = remap[tris[j]]
			if flip {
				out[j+1] = remap[tris[j+2]]
				out[j+2] = remap[tris[j+1]]
			} else {
				out[j+1] = remap[tris[j+1]]
				out[j+2] = remap[tris[j+2]]
			}
		}

		if mergeSubMeshes {
			subMeshes[0] = append(subMeshes[0], out...)
		} else {
			subMeshes = append(subMeshes, out)
		}
	}

	dst.SetSubMeshCount(len(subMeshes))
	for i, idx := range subMeshes {
		if err := dst.SetTriangles(idx, i); err != nil {
			return err
		}
	}
	return nil
}

func (ms *MeshSystem) appendVertices(dst *resources.Mesh, inst resources.CombineInstance, used []uint32, attrs attributeSet, useMatrices bool) {
	src := inst.Mesh
	n := src.VertexCount()
	normalMatrix := inst.Transform.NormalMatrix()

	for _, old := range used {
		p := src.Vertices[old]
		if useMatrices {
			p = p.Transform(inst.Transform)
		}
		dst.Vertices = append(dst.Vertices, p)

		if attrs.normals {
			nrm := math.NewVec3Zero()
			if len(src.Normals) == n {
				nrm = src.Normals[old]
				if useMatrices {
					nrm = nrm.TransformDirection(normalMatrix).Normalized()
				}
			}
			dst.Normals = append(dst.Normals, nrm)
		}
		if attrs.tangents {
			tan := math.NewVec4Zero()
			if len(src.Tangents) == n {
				tan = src.Tangents[old]
				if useMatrices {
					tan = tan.ToVec3().TransformDirection(inst.Transform).Normalized().ToVec4(tan.W)
				}
			}
			dst.Tangents = append(dst.Tangents, tan)
		}
		if attrs.colours {
			col := math.NewVec4Zero()
			if len(src.Colours) == n {
				col = src.Colours[old]
			}
			dst.Colours = append(dst.Colours, col)
		}
		for c := 0; c < resources.MaxUVChannels; c++ {
			if !attrs.uvs[c] {
				continue
			}
			uv := math.Vec2{}
			if len(src.UVs[c]) == n {
				uv = src.UVs[c][old]
			}
			dst.UVs[c] = append(dst.UVs[c], uv)
		}
	}
}

// determinant3 of the upper 3x3; negative means the transform mirrors.
func determinant3(mt math.Mat4) float32 {
	d := mt.Data
	return d[0]*(d[5]*d[10]-d[9]*d[6]) -
		d[4]*(d[1]*d[10]-d[9]*d[2]) +
		d[8]*(d[1]*d[6]-d[5]*d[2])
}

/**
 * @brief Bakes the current pose of a skinned source into dst, replacing its
 * contents. The result is expressed in the source's position and rotation
 * frame with scale left in the vertex data, so placing it with
 * translation * rotation * unit scale reproduces the posed world geometry.
 * Vertices without weights, or meshes without bones, follow the source
 * transform only.
 */
func (ms *MeshSystem) Bake(source resources.GeometrySource, dst *resources.Mesh) error {
	mesh := source.Mesh
	if mesh == nil {
		return fmt.Errorf("bake '%s': %w", source.Name, core.ErrNilMesh)
	}
	if err := ms.checkTarget(dst); err != nil {
		return err
	}

	frame := math.NewMat4UnitScale(source.Transform)
	toLocal, ok := frame.Inverse()
	if !ok {
		toLocal = math.NewMat4Identity()
	}
	rigid := source.Transform.Mul(toLocal)

	var skin []math.Mat4
	if mesh.IsSkinned() && len(source.Pose.BoneWorlds) > 0 {
		if len(source.Pose.BoneWorlds) < len(mesh.BindPoses) {
			return fmt.Errorf("bake '%s': pose has %d bones, mesh expects %d: %w",
				source.Name, len(source.Pose.BoneWorlds), len(mesh.BindPoses), core.ErrIndexOutOfRange)
		}
		skin = make([]math.Mat4, len(mesh.BindPoses))
		for i, bp := range mesh.BindPoses {
			skin[i] = bp.Mul(source.Pose.BoneWorlds[i]).Mul(toLocal)
		}
	}

	n := mesh.VertexCount()
	dst.Clear()
	dst.Vertices = make([]math.Vec3, n)
	hasNormals := len(mesh.Normals) == n && n > 0
	hasTangents := len(mesh.Tangents) == n && n > 0
	if hasNormals {
		dst.Normals = make([]math.Vec3, n)
	}
	if hasTangents {
		dst.Tangents = make([]math.Vec4, n)
	}

	rigidNormal := rigid.NormalMatrix()
	for v := 0; v < n; v++ {
		var pos, nrm, tan math.Vec3
		var weighted bool
		if skin != nil && v < len(mesh.BoneWeights) {
			pos, nrm, tan, weighted = skinVertex(mesh, v, skin, hasNormals, hasTangents)
			if weighted {
				// Skinned positions are world space folded into the local frame.
				dst.Vertices[v] = pos
			}
		}
		if !weighted {
			dst.Vertices[v] = mesh.Vertices[v].Transform(rigid)
			if hasNormals {
				nrm = mesh.Normals[v].TransformDirection(rigidNormal)
			}
			if hasTangents {
				tan = mesh.Tangents[v].ToVec3().TransformDirection(rigid)
			}
		}
		if hasNormals {
			dst.Normals[v] = nrm.Normalized()
		}
		if hasTangents {
			dst.Tangents[v] = tan.Normalized().ToVec4(mesh.Tangents[v].W)
		}
	}

	if len(mesh.Colours) == n {
		dst.Colours = slices.Clone(mesh.Colours)
	}
	for c := 0; c < resources.MaxUVChannels; c++ {
		if len(mesh.UVs[c]) == n {
			dst.UVs[c] = slices.Clone(mesh.UVs[c])
		}
	}

	dst.SetSubMeshCount(mesh.SubMeshCount())
	for i := 0; i < mesh.SubMeshCount(); i++ {
		tris, err := mesh.Triangles(i)
		if err != nil {
			return err
		}
		if err := dst.SetTriangles(tris, i); err != nil {
			return err
		}
	}
	return nil
}

func skinVertex(mesh *resources.Mesh, v int, skin []math.Mat4, hasNormals, hasTangents bool) (math.Vec3, math.Vec3, math.Vec3, bool) {
	bw := mesh.BoneWeights[v]
	total := float32(0)
	for i := 0; i < 4; i++ {
		if bw.Weights[i] > 0 && int(bw.Indices[i]) < len(skin) {
			total += bw.Weights[i]
		}
	}
	if total <= 0 {
		return math.Vec3{}, math.Vec3{}, math.Vec3{}, false
	}

	var pos, nrm, tan math.Vec3
	for i := 0; i < 4; i++ {
		w := bw.Weights[i]
		if w <= 0 || int(bw.Indices[i]) >= len(skin) {
			continue
		}
		w /= total
		m := skin[bw.Indices[i]]
		pos = pos.Add(mesh.Vertices[v].Transform(m).MulScalar(w))
		if hasNormals {
			nrm = nrm.Add(mesh.Normals[v].TransformDirection(m.NormalMatrix()).MulScalar(w))
		}
		if hasTangents {
			tan = tan.Add(mesh.Tangents[v].ToVec3().TransformDirection(m).MulScalar(w))
		}
	}
	return pos, nrm, tan, true
}
