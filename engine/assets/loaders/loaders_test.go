package loaders

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/spaghettifunk/shadowproxy/engine/core"
	"github.com/spaghettifunk/shadowproxy/engine/math"
	"github.com/spaghettifunk/shadowproxy/engine/resources"
	"github.com/spaghettifunk/shadowproxy/engine/scene"
	"github.com/spaghettifunk/shadowproxy/engine/systems"
)

func sampleMesh(t *testing.T) *resources.Mesh {
	t.Helper()
	m := systems.GenerateCube(1, 2, 3, "sample")
	m.GUID = uuid.MustParse("6f1c2a1e-3b0c-4d7a-9a55-0e2f4f6b8c11")
	m.Colours = make([]math.Vec4, m.VertexCount())
	m.UVs[2] = make([]math.Vec2, m.VertexCount())
	m.BindPoses = []math.Mat4{math.NewMat4Translation(math.NewVec3(1, 2, 3))}
	m.BoneWeights = make([]resources.BoneWeight, m.VertexCount())
	m.BoneWeights[0] = resources.BoneWeight{Indices: [4]uint32{0}, Weights: [4]float32{1}}
	return m
}

func TestMeshCodecRoundTrip(t *testing.T) {
	src := sampleMesh(t)

	var buf bytes.Buffer
	if err := EncodeMesh(&buf, src); err != nil {
		t.Fatal(err)
	}
	got, err := DecodeMesh(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}

	if got.GUID != src.GUID || got.Name != src.Name {
		t.Errorf("identity lost: got %s/%s", got.GUID, got.Name)
	}
	opts := cmpopts.IgnoreUnexported(resources.Mesh{})
	if diff := cmp.Diff(src, got, opts); diff != "" {
		t.Errorf("mesh mismatch (-want +got):\n%s", diff)
	}
	for i := 0; i < src.SubMeshCount(); i++ {
		want, _ := src.Triangles(i)
		have, err := got.Triangles(i)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(want, have); diff != "" {
			t.Errorf("submesh %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestMeshCodecIsDeterministic(t *testing.T) {
	var first, second bytes.Buffer
	if err := EncodeMesh(&first, sampleMesh(t)); err != nil {
		t.Fatal(err)
	}
	if err := EncodeMesh(&second, sampleMesh(t)); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Errorf("equal meshes encoded differently")
	}
}

func TestMeshCodecRejectsBadInput(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeMesh(&buf, sampleMesh(t)); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()

	corrupt := append([]byte{}, data...)
	corrupt[0] ^= 0xff
	if _, err := DecodeMesh(bytes.NewReader(corrupt)); !errors.Is(err, core.ErrInvalidAsset) {
		t.Errorf("bad magic: expected ErrInvalidAsset, got %v", err)
	}
	if _, err := DecodeMesh(bytes.NewReader(data[:len(data)/2])); err == nil {
		t.Errorf("expected an error for a truncated file")
	}

	broken := sampleMesh(t)
	broken.Normals = broken.Normals[:3]
	if err := EncodeMesh(&bytes.Buffer{}, broken); !errors.Is(err, core.ErrInvalidAsset) {
		t.Errorf("mismatched attribute: expected ErrInvalidAsset, got %v", err)
	}
}

func TestMeshFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "proxy"+MeshExtension)
	src := sampleMesh(t)
	if err := WriteMeshFile(path, src); err != nil {
		t.Fatal(err)
	}
	got, err := ReadMeshFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.VertexCount() != src.VertexCount() || got.GUID != src.GUID {
		t.Errorf("file round trip lost data")
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the mesh file, found %d entries", len(entries))
	}
}

const testScene = `
name = "test"

[[materials]]
name = "stone"
shader = "Lit"

[[meshes]]
name = "crate"
primitive = "cube"
width = 1
height = 1
depth = 1

[[meshes]]
name = "tri"
vertices = [[0, 0, 0], [1, 0, 0], [0, 1, 0]]
submeshes = [[0, 1, 2]]
bone_weights = [[{bone = 0, weight = 1.0}], [{bone = 0, weight = 0.5}, {bone = 1, weight = 0.5}], []]
bind_poses = [
  [1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1],
  [1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1],
]

[[nodes]]
name = "arm"
parent = "UnShadowObjects"
position = [0, 1, 0]

[[nodes.components]]
kind = "skinned_mesh_renderer"
mesh = "tri"
materials = ["stone", "", "glass"]
bones = ["UnShadowObjects", "arm"]

[[nodes]]
name = "UnShadowObjects"
position = [10, 0, 0]
rotation = [0, 90, 0]
scale = [2, 2, 2]

[[nodes.components]]
kind = "mesh_filter"
mesh = "crate"

[[nodes.components]]
kind = "mesh_renderer"
materials = ["stone"]

[[nodes]]
name = "hidden"
active = false
`

func TestParseScene(t *testing.T) {
	materials, _ := systems.NewMaterialSystem(&systems.MaterialSystemConfig{MaxMaterialCount: 8})
	s, err := ParseScene([]byte(testScene), ".", materials)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "test" || len(s.Roots) != 2 || s.NodeCount() != 3 {
		t.Fatalf("unexpected layout: name=%q roots=%d nodes=%d", s.Name, len(s.Roots), s.NodeCount())
	}

	root, err := s.Find("UnShadowObjects")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Find("hidden"); err == nil {
		t.Errorf("inactive nodes must not be found")
	}

	stone, _ := materials.Get("stone")
	if stone.ShaderName != "Lit" {
		t.Errorf("expected declared shader, got %q", stone.ShaderName)
	}
	if root.MeshRenderer == nil || root.MeshRenderer.Materials[0] != stone {
		t.Errorf("mesh renderer materials not resolved")
	}
	if root.MeshFilter == nil || root.MeshFilter.Mesh != s.Meshes["crate"] {
		t.Errorf("mesh filter not bound to the crate")
	}

	arm := root.Children()[0]
	sr := arm.SkinnedMeshRenderer
	if sr == nil {
		t.Fatalf("arm has no skinned renderer")
	}
	glass, ok := materials.Get("glass")
	if !ok {
		t.Fatalf("undeclared material was not registered")
	}
	if diff := cmp.Diff([]*resources.Material{stone, nil, glass}, sr.Materials); diff != "" {
		t.Errorf("materials mismatch (-want +got):\n%s", diff)
	}
	if sr.Bones[0] != root || sr.Bones[1] != arm {
		t.Errorf("bones not resolved by name")
	}

	tri := s.Meshes["tri"]
	if !tri.IsSkinned() {
		t.Errorf("inline mesh lost its skin")
	}
	if diff := cmp.Diff(resources.BoneWeight{Indices: [4]uint32{0, 1}, Weights: [4]float32{0.5, 0.5}}, tri.BoneWeights[1]); diff != "" {
		t.Errorf("bone weight mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(math.NewVec3(0, 0, 1), tri.Normals[0], cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("generated normal mismatch (-want +got):\n%s", diff)
	}

	// arm sits one unit above a root rotated by 90 degrees and scaled by 2.
	world := math.NewVec3Zero().Transform(arm.World())
	if diff := cmp.Diff(math.NewVec3(10, 2, 0), world, cmpopts.EquateApprox(0, 1e-4)); diff != "" {
		t.Errorf("world position mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSceneErrors(t *testing.T) {
	for name, src := range map[string]string{
		"unknown field":  "bogus = 1",
		"unknown parent": "[[nodes]]\nname = \"a\"\nparent = \"missing\"",
		"duplicate node": "[[nodes]]\nname = \"a\"\n[[nodes]]\nname = \"a\"",
		"unknown mesh":   "[[nodes]]\nname = \"a\"\n[[nodes.components]]\nkind = \"mesh_filter\"\nmesh = \"nope\"",
		"unknown kind":   "[[nodes]]\nname = \"a\"\n[[nodes.components]]\nkind = \"light\"",
		"bad primitive":  "[[meshes]]\nname = \"m\"\nprimitive = \"torus\"",
		"cycle":          "[[nodes]]\nname = \"a\"\nparent = \"b\"\n[[nodes]]\nname = \"b\"\nparent = \"a\"",
		"bad index":      "[[meshes]]\nname = \"m\"\nvertices = [[0,0,0]]\nsubmeshes = [[0,1,2]]",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseScene([]byte(src), ".", nil); err == nil {
				t.Errorf("expected an error")
			}
		})
	}
}

func TestSceneLoaderResolvesMeshPaths(t *testing.T) {
	dir := t.TempDir()
	if err := WriteMeshFile(filepath.Join(dir, "meshes", "crate"+MeshExtension), sampleMesh(t)); err != nil {
		t.Fatal(err)
	}
	scenePath := filepath.Join(dir, "level"+SceneExtension)
	src := "[[meshes]]\nname = \"crate\"\npath = \"meshes/crate.amesh\"\n"
	if err := os.WriteFile(scenePath, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := (&SceneLoader{}).Load(scenePath, resources.ResourceTypeScene, nil)
	if err != nil {
		t.Fatal(err)
	}
	s := res.Data.(*scene.Scene)
	if s.Name != "level.toml" {
		t.Errorf("expected the file name as scene name, got %q", s.Name)
	}
	crate := s.Meshes["crate"]
	if crate == nil || crate.Name != "crate" || crate.VertexCount() != 24 {
		t.Errorf("mesh file not loaded: %+v", crate)
	}
}
