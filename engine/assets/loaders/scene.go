package loaders

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/shadowproxy/engine/core"
	"github.com/spaghettifunk/shadowproxy/engine/math"
	"github.com/spaghettifunk/shadowproxy/engine/resources"
	"github.com/spaghettifunk/shadowproxy/engine/scene"
	"github.com/spaghettifunk/shadowproxy/engine/systems"
)

// SceneExtension is the file extension of scene descriptions.
const SceneExtension = ".toml"

const (
	ComponentMeshFilter          = "mesh_filter"
	ComponentMeshRenderer        = "mesh_renderer"
	ComponentSkinnedMeshRenderer = "skinned_mesh_renderer"

	PrimitiveCube  = "cube"
	PrimitivePlane = "plane"
)

type sceneFile struct {
	Name      string          `toml:"name"`
	Materials []materialEntry `toml:"materials"`
	Meshes    []meshEntry     `toml:"meshes"`
	Nodes     []nodeEntry     `toml:"nodes"`
}

type materialEntry struct {
	Name   string `toml:"name"`
	Shader string `toml:"shader"`
}

type boneInfluence struct {
	Bone   uint32  `toml:"bone"`
	Weight float32 `toml:"weight"`
}

type meshEntry struct {
	Name      string `toml:"name"`
	Primitive string `toml:"primitive"`
	Path      string `toml:"path"`

	Width     float32 `toml:"width"`
	Height    float32 `toml:"height"`
	Depth     float32 `toml:"depth"`
	SegmentsX uint32  `toml:"segments_x"`
	SegmentsZ uint32  `toml:"segments_z"`

	Vertices    [][3]float32      `toml:"vertices"`
	Normals     [][3]float32      `toml:"normals"`
	UVs         [][2]float32      `toml:"uvs"`
	Submeshes   [][]uint32        `toml:"submeshes"`
	BoneWeights [][]boneInfluence `toml:"bone_weights"`
	BindPoses   [][16]float32     `toml:"bind_poses"`
}

type componentEntry struct {
	Kind      string   `toml:"kind"`
	Mesh      string   `toml:"mesh"`
	Materials []string `toml:"materials"`
	Bones     []string `toml:"bones"`
}

type nodeEntry struct {
	Name       string           `toml:"name"`
	Parent     string           `toml:"parent"`
	Active     *bool            `toml:"active"`
	Position   [3]float32       `toml:"position"`
	Rotation   [3]float32       `toml:"rotation"`
	Scale      *[3]float32      `toml:"scale"`
	Components []componentEntry `toml:"components"`
}

/** @brief Optional parameters for SceneLoader.Load. */
type SceneLoaderParams struct {
	// Materials resolves material names. A private registry is used when nil.
	Materials *systems.MaterialSystem
}

type SceneLoader struct{}

func (sl *SceneLoader) Load(path string, assetType resources.ResourceType, params interface{}) (*resources.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var materials *systems.MaterialSystem
	if p, ok := params.(*SceneLoaderParams); ok && p != nil {
		materials = p.Materials
	}

	s, err := ParseScene(data, filepath.Dir(path), materials)
	if err != nil {
		return nil, fmt.Errorf("scene '%s': %w", path, err)
	}
	if len(s.Name) == 0 {
		s.Name = filepath.Base(path)
	}
	return &resources.Resource{
		Name:     s.Name,
		FullPath: path,
		Type:     resources.ResourceTypeScene,
		Data:     s,
	}, nil
}

func (sl *SceneLoader) Unload(res *resources.Resource) error {
	res.Data = nil
	return nil
}

/**
 * @brief Builds a scene from its TOML description. Mesh paths are resolved
 * against baseDir. Node names must be unique; parents and bones refer to
 * nodes by name and may be declared in any order.
 */
func ParseScene(data []byte, baseDir string, materials *systems.MaterialSystem) (*scene.Scene, error) {
	var file sceneFile
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("%s: %w", err, core.ErrInvalidAsset)
	}

	if materials == nil {
		var err error
		materials, err = systems.NewMaterialSystem(&systems.MaterialSystemConfig{MaxMaterialCount: 1024})
		if err != nil {
			return nil, err
		}
	}

	s := scene.NewScene(file.Name)
	for _, me := range file.Materials {
		m, err := materials.Register(me.Name, me.Shader)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, fmt.Errorf("material without a name: %w", core.ErrInvalidAsset)
		}
		s.Materials[me.Name] = m
	}

	for _, me := range file.Meshes {
		if _, dup := s.Meshes[me.Name]; dup || len(me.Name) == 0 {
			return nil, fmt.Errorf("mesh name '%s' is empty or declared twice: %w", me.Name, core.ErrInvalidAsset)
		}
		mesh, err := buildMesh(me, baseDir)
		if err != nil {
			return nil, fmt.Errorf("mesh '%s': %w", me.Name, err)
		}
		s.Meshes[me.Name] = mesh
		if len(me.Path) > 0 {
			s.Dependencies = append(s.Dependencies, resolvePath(me.Path, baseDir))
		}
	}

	nodes := make(map[string]*scene.Node, len(file.Nodes))
	ordered := make([]*scene.Node, 0, len(file.Nodes))
	for _, ne := range file.Nodes {
		if _, dup := nodes[ne.Name]; dup || len(ne.Name) == 0 {
			return nil, fmt.Errorf("node name '%s' is empty or declared twice: %w", ne.Name, core.ErrInvalidAsset)
		}
		n := scene.NewNode(ne.Name)
		if ne.Active != nil {
			n.Active = *ne.Active
		}
		scale := math.NewVec3One()
		if ne.Scale != nil {
			scale = math.NewVec3(ne.Scale[0], ne.Scale[1], ne.Scale[2])
		}
		n.Transform.SetPositionRotationScale(
			math.NewVec3(ne.Position[0], ne.Position[1], ne.Position[2]),
			math.NewQuatFromEulerDegrees(ne.Rotation[0], ne.Rotation[1], ne.Rotation[2]),
			scale,
		)
		nodes[ne.Name] = n
		ordered = append(ordered, n)
	}

	for i, ne := range file.Nodes {
		n := ordered[i]
		if len(ne.Parent) == 0 {
			s.Roots = append(s.Roots, n)
		} else {
			parent, ok := nodes[ne.Parent]
			if !ok {
				return nil, fmt.Errorf("node '%s' has unknown parent '%s': %w", ne.Name, ne.Parent, core.ErrInvalidAsset)
			}
			if err := parent.AddChild(n); err != nil {
				return nil, fmt.Errorf("%s: %w", err, core.ErrInvalidAsset)
			}
		}
		for _, ce := range ne.Components {
			if err := attachComponent(s, n, ce, nodes, materials); err != nil {
				return nil, fmt.Errorf("node '%s': %w", ne.Name, err)
			}
		}
	}
	core.LogDebug("scene '%s': %d nodes, %d meshes, %d materials.", s.Name, len(ordered), len(s.Meshes), len(s.Materials))
	return s, nil
}

func attachComponent(s *scene.Scene, n *scene.Node, ce componentEntry, nodes map[string]*scene.Node, materials *systems.MaterialSystem) error {
	mats := make([]*resources.Material, len(ce.Materials))
	for i, name := range ce.Materials {
		m, err := materials.Acquire(name)
		if err != nil {
			return err
		}
		mats[i] = m
	}

	var mesh *resources.Mesh
	if len(ce.Mesh) > 0 {
		m, ok := s.Meshes[ce.Mesh]
		if !ok {
			return fmt.Errorf("unknown mesh '%s': %w", ce.Mesh, core.ErrInvalidAsset)
		}
		mesh = m
	}

	switch ce.Kind {
	case ComponentMeshFilter:
		n.MeshFilter = &scene.MeshFilter{Mesh: mesh}
	case ComponentMeshRenderer:
		n.MeshRenderer = &scene.MeshRenderer{Materials: mats}
	case ComponentSkinnedMeshRenderer:
		bones := make([]*scene.Node, len(ce.Bones))
		for i, name := range ce.Bones {
			b, ok := nodes[name]
			if !ok {
				return fmt.Errorf("unknown bone '%s': %w", name, core.ErrInvalidAsset)
			}
			bones[i] = b
		}
		n.SkinnedMeshRenderer = &scene.SkinnedMeshRenderer{
			Mesh:      mesh,
			Materials: mats,
			Bones:     bones,
		}
	default:
		return fmt.Errorf("unknown component kind '%s': %w", ce.Kind, core.ErrInvalidAsset)
	}
	return nil
}

func buildMesh(me meshEntry, baseDir string) (*resources.Mesh, error) {
	switch {
	case len(me.Primitive) > 0:
		switch me.Primitive {
		case PrimitiveCube:
			return systems.GenerateCube(me.Width, me.Height, me.Depth, me.Name), nil
		case PrimitivePlane:
			return systems.GeneratePlane(me.Width, me.Depth, me.SegmentsX, me.SegmentsZ, me.Name), nil
		default:
			return nil, fmt.Errorf("unknown primitive '%s': %w", me.Primitive, core.ErrInvalidAsset)
		}
	case len(me.Path) > 0:
		mesh, err := ReadMeshFile(resolvePath(me.Path, baseDir))
		if err != nil {
			return nil, err
		}
		mesh.Name = me.Name
		return mesh, nil
	default:
		return inlineMesh(me)
	}
}

func resolvePath(path, baseDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func inlineMesh(me meshEntry) (*resources.Mesh, error) {
	mesh := resources.NewMesh(me.Name)
	n := len(me.Vertices)
	mesh.Vertices = make([]math.Vec3, n)
	for i, v := range me.Vertices {
		mesh.Vertices[i] = math.NewVec3(v[0], v[1], v[2])
	}

	mesh.SetSubMeshCount(len(me.Submeshes))
	for i, idx := range me.Submeshes {
		if err := mesh.SetTriangles(idx, i); err != nil {
			return nil, err
		}
	}

	if len(me.Normals) > 0 {
		if len(me.Normals) != n {
			return nil, fmt.Errorf("%d normals for %d vertices: %w", len(me.Normals), n, core.ErrInvalidAsset)
		}
		mesh.Normals = make([]math.Vec3, n)
		for i, v := range me.Normals {
			mesh.Normals[i] = math.NewVec3(v[0], v[1], v[2])
		}
	} else if n > 0 {
		mesh.Normals = make([]math.Vec3, n)
		for i := 0; i < mesh.SubMeshCount(); i++ {
			tris, _ := mesh.Triangles(i)
			math.GeometryGenerateNormals(mesh.Vertices, tris, mesh.Normals)
		}
	}

	if len(me.UVs) > 0 {
		if len(me.UVs) != n {
			return nil, fmt.Errorf("%d uvs for %d vertices: %w", len(me.UVs), n, core.ErrInvalidAsset)
		}
		mesh.UVs[0] = make([]math.Vec2, n)
		for i, uv := range me.UVs {
			mesh.UVs[0][i] = math.NewVec2(uv[0], uv[1])
		}
	}

	if len(me.BoneWeights) > 0 {
		if len(me.BoneWeights) != n {
			return nil, fmt.Errorf("%d bone weights for %d vertices: %w", len(me.BoneWeights), n, core.ErrInvalidAsset)
		}
		mesh.BoneWeights = make([]resources.BoneWeight, n)
		for i, influences := range me.BoneWeights {
			if len(influences) > 4 {
				return nil, fmt.Errorf("vertex %d has %d bone influences, at most 4 allowed: %w", i, len(influences), core.ErrInvalidAsset)
			}
			for j, inf := range influences {
				if int(inf.Bone) >= len(me.BindPoses) {
					return nil, fmt.Errorf("vertex %d references bone %d of %d: %w", i, inf.Bone, len(me.BindPoses), core.ErrInvalidAsset)
				}
				mesh.BoneWeights[i].Indices[j] = inf.Bone
				mesh.BoneWeights[i].Weights[j] = inf.Weight
			}
		}
	}
	for _, bp := range me.BindPoses {
		mesh.BindPoses = append(mesh.BindPoses, math.Mat4{Data: bp})
	}
	return mesh, nil
}
