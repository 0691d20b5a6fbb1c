package resources

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spaghettifunk/shadowproxy/engine/core"
	"github.com/spaghettifunk/shadowproxy/engine/math"
)

type ResourceType uint8

/** @brief Pre-defined resource types. */
const (
	/** @brief Binary resource type. */
	ResourceTypeBinary ResourceType = iota
	/** @brief Mesh resource type (vertex attributes plus submesh index lists). */
	ResourceTypeMesh
	/** @brief Scene description resource type. */
	ResourceTypeScene
)

/** @brief A magic number indicating the file as a shadowproxy binary file. */
const ResourceMagic uint32 = 0xdaaaadd1

/** @brief The number of UV channels a mesh carries. */
const MaxUVChannels = 4

/** @brief Sentinel for an id that was never assigned or has been released. */
const InvalidID uint32 = 4294967295

/**
 * @brief The header data for binary resource types.
 */
type ResourceHeader struct {
	/** @brief A magic number indicating the file as a shadowproxy binary file. */
	MagicNumber uint32
	/** @brief The resource type. */
	ResourceType ResourceType
	/** @brief The format version this resource uses. */
	Version uint8
}

/**
 * @brief A loaded resource as handed out by the asset loaders. Data holds
 * the typed payload: *Mesh for ResourceTypeMesh, *scene.Scene for
 * ResourceTypeScene.
 */
type Resource struct {
	Name     string
	FullPath string
	Type     ResourceType
	Data     interface{}
}

/**
 * @brief A material. Identity is the pointer itself: two materials with the
 * same name are still two different materials. A nil *Material is the
 * "no material" identity.
 */
type Material struct {
	/** @brief The material name. */
	Name string
	/** @brief The shader the material was authored for. Informational only. */
	ShaderName string
}

func (m *Material) String() string {
	if m == nil {
		return "<none>"
	}
	return m.Name
}

/** @brief Up to four bone influences on one vertex. */
type BoneWeight struct {
	Indices [4]uint32
	Weights [4]float32
}

/**
 * @brief A geometry buffer: vertex attributes shared by all submeshes and
 * one triangle index list per submesh.
 */
type Mesh struct {
	/** @brief Registry id while the buffer is owned by a geometry system, otherwise InvalidID. */
	ID uint32
	/** @brief Stable identity of a persisted mesh asset. Zero for transient buffers. */
	GUID uuid.UUID
	/** @brief The mesh name. */
	Name string

	Vertices []math.Vec3
	Normals  []math.Vec3
	Tangents []math.Vec4
	Colours  []math.Vec4
	/** @brief UV channels 1-4. */
	UVs [MaxUVChannels][]math.Vec2

	/** @brief Per-vertex bone influences. Empty for static meshes. */
	BoneWeights []BoneWeight
	/** @brief Inverse bind matrices, one per bone. */
	BindPoses []math.Mat4

	subMeshes [][]uint32
}

// NewMesh creates an empty, unregistered mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{
		ID:   InvalidID,
		Name: name,
	}
}

func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

func (m *Mesh) SubMeshCount() int {
	return len(m.subMeshes)
}

// SetSubMeshCount resizes the submesh table. New submeshes are empty and
// dropped ones lose their indices.
func (m *Mesh) SetSubMeshCount(n int) {
	if n < 0 {
		n = 0
	}
	if n <= len(m.subMeshes) {
		m.subMeshes = m.subMeshes[:n]
		return
	}
	for len(m.subMeshes) < n {
		m.subMeshes = append(m.subMeshes, nil)
	}
}

// Triangles returns a copy of the index list of submesh i.
func (m *Mesh) Triangles(i int) ([]uint32, error) {
	if i < 0 || i >= len(m.subMeshes) {
		return nil, fmt.Errorf("submesh %d of %d in mesh '%s': %w", i, len(m.subMeshes), m.Name, core.ErrIndexOutOfRange)
	}
	out := make([]uint32, len(m.subMeshes[i]))
	copy(out, m.subMeshes[i])
	return out, nil
}

// SetTriangles replaces the index list of submesh i. Vertices must already be
// set: every index has to address an existing vertex.
func (m *Mesh) SetTriangles(indices []uint32, i int) error {
	if i < 0 || i >= len(m.subMeshes) {
		return fmt.Errorf("submesh %d of %d in mesh '%s': %w", i, len(m.subMeshes), m.Name, core.ErrIndexOutOfRange)
	}
	if len(indices)%3 != 0 {
		return fmt.Errorf("submesh %d in mesh '%s' has %d indices, not a multiple of 3: %w", i, m.Name, len(indices), core.ErrIndexOutOfRange)
	}
	count := uint32(len(m.Vertices))
	for _, idx := range indices {
		if idx >= count {
			return fmt.Errorf("index %d exceeds vertex count %d in mesh '%s': %w", idx, count, m.Name, core.ErrIndexOutOfRange)
		}
	}
	m.subMeshes[i] = append(m.subMeshes[i][:0:0], indices...)
	return nil
}

// SubMeshVertexCount counts the distinct vertices referenced by submesh i.
func (m *Mesh) SubMeshVertexCount(i int) int {
	if i < 0 || i >= len(m.subMeshes) {
		return 0
	}
	seen := make(map[uint32]struct{}, len(m.subMeshes[i]))
	for _, idx := range m.subMeshes[i] {
		seen[idx] = struct{}{}
	}
	return len(seen)
}

// IsSkinned reports whether the mesh carries bone data.
func (m *Mesh) IsSkinned() bool {
	return len(m.BoneWeights) > 0 && len(m.BindPoses) > 0
}

// Extents returns the bounds of the vertex positions and their center.
func (m *Mesh) Extents() (math.Extents3D, math.Vec3) {
	return math.GeometryExtents(m.Vertices)
}

// Clear drops every attribute and submesh. Identity fields are kept.
func (m *Mesh) Clear() {
	m.Vertices = nil
	m.Normals = nil
	m.Tangents = nil
	m.Colours = nil
	for i := range m.UVs {
		m.UVs[i] = nil
	}
	m.BoneWeights = nil
	m.BindPoses = nil
	m.subMeshes = nil
}

/** @brief Where a geometry source came from. */
type SourceKind int

const (
	SourceKindStatic SourceKind = iota
	SourceKindSkinned
)

func (k SourceKind) String() string {
	switch k {
	case SourceKindStatic:
		return "static"
	case SourceKindSkinned:
		return "skinned"
	default:
		return "unknown"
	}
}

/**
 * @brief The current pose of a skinned source: the world matrix of every
 * bone, in the same order as the mesh bind poses.
 */
type SkinPose struct {
	BoneWorlds []math.Mat4
}

/**
 * @brief One renderable contribution: a mesh, where it sits in the world and
 * which material each submesh slot uses. Materials may hold nil slots. The
 * mesh submesh count is authoritative over the material list length.
 */
type GeometrySource struct {
	Name      string
	Kind      SourceKind
	Mesh      *Mesh
	Transform math.Mat4
	Materials []*Material
	/** @brief Only used for SourceKindSkinned. */
	Pose SkinPose
}

/**
 * @brief One (geometry, submesh, transform) triple fed to a merge.
 */
type CombineInstance struct {
	Mesh         *Mesh
	SubMeshIndex int
	Transform    math.Mat4
}
