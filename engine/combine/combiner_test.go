package combine

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spaghettifunk/shadowproxy/engine/core"
	"github.com/spaghettifunk/shadowproxy/engine/math"
	"github.com/spaghettifunk/shadowproxy/engine/resources"
	"github.com/spaghettifunk/shadowproxy/engine/systems"
)

type countingBaker struct {
	inner Baker
	calls map[string]int
	panic bool
}

func (b *countingBaker) Bake(source resources.GeometrySource, dst *resources.Mesh) error {
	b.calls[source.Name]++
	if b.panic {
		panic("bake exploded")
	}
	return b.inner.Bake(source, dst)
}

type failingMerger struct{}

func (failingMerger) Merge([]resources.CombineInstance, bool, bool, *resources.Mesh) error {
	return errors.New("merge failed")
}

func newTestCombiner(t *testing.T) (*Combiner, *countingBaker, *systems.SystemManager) {
	t.Helper()
	sm, err := systems.NewSystemManager(systems.DefaultSystemManagerConfig())
	if err != nil {
		t.Fatal(err)
	}
	baker := &countingBaker{inner: sm.MeshSystem, calls: map[string]int{}}
	return NewCombiner(sm.GeometrySystem, baker, sm.MeshSystem), baker, sm
}

func newMesh(t *testing.T, name string, vertices []math.Vec3, subMeshes ...[]uint32) *resources.Mesh {
	t.Helper()
	m := resources.NewMesh(name)
	m.Vertices = vertices
	m.Normals = make([]math.Vec3, len(vertices))
	for i := range m.Normals {
		m.Normals[i] = math.NewVec3(0, 0, 1)
	}
	m.UVs[0] = make([]math.Vec2, len(vertices))
	m.SetSubMeshCount(len(subMeshes))
	for i, idx := range subMeshes {
		if err := m.SetTriangles(idx, i); err != nil {
			t.Fatal(err)
		}
	}
	return m
}

func quadVertices() []math.Vec3 {
	return []math.Vec3{
		math.NewVec3(0, 0, 0),
		math.NewVec3(1, 0, 0),
		math.NewVec3(1, 1, 0),
		math.NewVec3(0, 1, 0),
	}
}

func staticSource(name string, mesh *resources.Mesh, transform math.Mat4, materials ...*resources.Material) resources.GeometrySource {
	return resources.GeometrySource{
		Name:      name,
		Kind:      resources.SourceKindStatic,
		Mesh:      mesh,
		Transform: transform,
		Materials: materials,
	}
}

func TestCombineSingleSourceIsNotCombined(t *testing.T) {
	c, baker, sm := newTestCombiner(t)
	mesh := newMesh(t, "only", quadVertices(), []uint32{0, 1, 2})

	for _, tc := range []struct {
		name            string
		static, skinned []resources.GeometrySource
	}{
		{"static", []resources.GeometrySource{staticSource("only", mesh, math.NewMat4Identity())}, nil},
		{"skinned", nil, []resources.GeometrySource{{Name: "only", Kind: resources.SourceKindSkinned, Mesh: mesh}}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			result, err := c.Combine(tc.static, tc.skinned)
			if err != nil {
				t.Fatal(err)
			}
			if result.Combined() {
				t.Errorf("a single source must not be combined")
			}
			if result.Mesh() != mesh {
				t.Errorf("expected the raw source mesh back")
			}
		})
	}
	if len(baker.calls) != 0 {
		t.Errorf("single source must not bake, got %v", baker.calls)
	}
	if sm.GeometrySystem.LiveCount() != 0 {
		t.Errorf("expected no live buffers, got %d", sm.GeometrySystem.LiveCount())
	}
}

func TestCombineNoSources(t *testing.T) {
	c, _, _ := newTestCombiner(t)
	if _, err := c.Combine(nil, nil); !errors.Is(err, core.ErrNoSources) {
		t.Errorf("expected ErrNoSources, got %v", err)
	}
}

func TestCombineTwoStaticSourcesTwoMaterials(t *testing.T) {
	c, _, sm := newTestCombiner(t)
	a := &resources.Material{Name: "A"}
	b := &resources.Material{Name: "B"}
	quad := newMesh(t, "quad", quadVertices(), []uint32{0, 1, 2, 0, 2, 3})
	tri := newMesh(t, "tri", quadVertices()[:3], []uint32{0, 1, 2})

	result, err := c.Combine([]resources.GeometrySource{
		staticSource("first", quad, math.NewMat4Translation(math.NewVec3(5, 0, 0)), a),
		staticSource("second", tri, math.NewMat4Identity(), b),
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	combined, ok := result.(Combined)
	if !ok {
		t.Fatalf("expected a Combined result, got %T", result)
	}
	out := combined.Output
	if out.SubMeshCount() != 2 {
		t.Fatalf("expected 2 submeshes, got %d", out.SubMeshCount())
	}
	if diff := cmp.Diff([]*resources.Material{a, b}, combined.Materials); diff != "" {
		t.Errorf("material order mismatch (-want +got):\n%s", diff)
	}
	if got := out.SubMeshVertexCount(0); got != 4 {
		t.Errorf("submesh 0: expected 4 vertices, got %d", got)
	}
	if got := out.SubMeshVertexCount(1); got != 3 {
		t.Errorf("submesh 1: expected 3 vertices, got %d", got)
	}
	if diff := cmp.Diff(math.NewVec3(5, 0, 0), out.Vertices[0], cmpopts.EquateApprox(0, 1e-5)); diff != "" {
		t.Errorf("world space vertex mismatch (-want +got):\n%s", diff)
	}

	if sm.GeometrySystem.LiveCount() != 0 {
		t.Errorf("expected only the detached output to survive, %d buffers live", sm.GeometrySystem.LiveCount())
	}
	if out.ID != resources.InvalidID {
		t.Errorf("output must be detached from the geometry system")
	}
	metrics := c.Metrics()
	if metrics.MaterialGroups != 2 || metrics.BuffersReleased != 2 || metrics.Merges != 3 {
		t.Errorf("unexpected metrics %+v", metrics)
	}
}

func TestCombineSkinnedSourceBakesOnce(t *testing.T) {
	c, baker, sm := newTestCombiner(t)
	a := &resources.Material{Name: "A"}
	body := newMesh(t, "body", quadVertices(), []uint32{0, 1, 2}, []uint32{0, 2, 3})
	other := newMesh(t, "other", quadVertices(), []uint32{0, 1, 2})

	result, err := c.Combine(
		[]resources.GeometrySource{staticSource("other", other, math.NewMat4Identity(), a)},
		[]resources.GeometrySource{{
			Name:      "body",
			Kind:      resources.SourceKindSkinned,
			Mesh:      body,
			Transform: math.NewMat4Identity(),
			Materials: []*resources.Material{a, a},
		}},
	)
	if err != nil {
		t.Fatal(err)
	}
	if baker.calls["body"] != 1 {
		t.Errorf("expected exactly one bake, got %d", baker.calls["body"])
	}
	out := result.Mesh()
	if out.SubMeshCount() != 1 {
		t.Fatalf("expected 1 submesh, got %d", out.SubMeshCount())
	}
	// 3 from the static source plus 3 for each baked submesh.
	if got := out.SubMeshVertexCount(0); got != 9 {
		t.Errorf("expected 9 vertices, got %d", got)
	}
	if sm.GeometrySystem.LiveCount() != 0 {
		t.Errorf("bake and group buffers leaked: %d live", sm.GeometrySystem.LiveCount())
	}
	if c.Metrics().Bakes != 1 {
		t.Errorf("expected 1 bake in metrics, got %d", c.Metrics().Bakes)
	}
}

func TestCombineNoMaterialIsItsOwnGroup(t *testing.T) {
	c, _, _ := newTestCombiner(t)
	a := &resources.Material{Name: "A"}
	mesh := newMesh(t, "m", quadVertices(), []uint32{0, 1, 2}, []uint32{0, 2, 3})

	result, err := c.Combine([]resources.GeometrySource{
		staticSource("bare", mesh, math.NewMat4Identity()),
		staticSource("half", mesh, math.NewMat4Identity(), a),
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	combined := result.(Combined)
	if diff := cmp.Diff([]*resources.Material{nil, a}, combined.Materials); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}
	// bare: 2 entries with no material; half: A then no material.
	if got := combined.Output.SubMeshVertexCount(0); got != 9 {
		t.Errorf("no material group: expected 9 vertices, got %d", got)
	}
	if got := combined.Output.SubMeshVertexCount(1); got != 3 {
		t.Errorf("material A group: expected 3 vertices, got %d", got)
	}
}

func TestCompactedMaterialIndexing(t *testing.T) {
	a := &resources.Material{Name: "A"}
	b := &resources.Material{Name: "B"}

	compacted := CompactMaterials([]*resources.Material{nil, a, nil, b})
	for i, want := range []*resources.Material{a, b, nil, nil} {
		if got := ResolveMaterial(compacted, i); got != want {
			t.Errorf("submesh %d: expected %v, got %v", i, want, got)
		}
	}
}

func TestGroupByMaterialFirstSeenOrder(t *testing.T) {
	a := &resources.Material{Name: "A"}
	b := &resources.Material{Name: "B"}
	// Same name, different identity.
	a2 := &resources.Material{Name: "A"}

	entries := []FlatEntry{
		{Material: b, SubMeshIndex: 0},
		{Material: a, SubMeshIndex: 1},
		{Material: b, SubMeshIndex: 2},
		{Material: a2, SubMeshIndex: 3},
		{Material: nil, SubMeshIndex: 4},
		{Material: a, SubMeshIndex: 5},
	}
	groups := GroupByMaterial(entries)

	type summary struct {
		Material *resources.Material
		Indices  []int
	}
	got := make([]summary, len(groups))
	for i, g := range groups {
		got[i].Material = g.Material
		for _, e := range g.Entries {
			got[i].Indices = append(got[i].Indices, e.SubMeshIndex)
		}
	}
	want := []summary{
		{b, []int{0, 2}},
		{a, []int{1, 5}},
		{a2, []int{3}},
		{nil, []int{4}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}
	if len(entries) != 6 {
		t.Errorf("input entries must not be consumed")
	}
}

func TestCombineReleasesBuffersOnFailure(t *testing.T) {
	sm, err := systems.NewSystemManager(systems.DefaultSystemManagerConfig())
	if err != nil {
		t.Fatal(err)
	}
	mesh := newMesh(t, "m", quadVertices(), []uint32{0, 1, 2})
	skinned := []resources.GeometrySource{
		{Name: "s1", Kind: resources.SourceKindSkinned, Mesh: mesh, Transform: math.NewMat4Identity()},
		{Name: "s2", Kind: resources.SourceKindSkinned, Mesh: mesh, Transform: math.NewMat4Identity()},
	}

	c := NewCombiner(sm.GeometrySystem, sm.MeshSystem, failingMerger{})
	if _, err := c.Combine(nil, skinned); err == nil {
		t.Fatalf("expected the merge error to surface")
	}
	if sm.GeometrySystem.LiveCount() != 0 {
		t.Errorf("buffers leaked after error: %d", sm.GeometrySystem.LiveCount())
	}

	baker := &countingBaker{inner: sm.MeshSystem, calls: map[string]int{}, panic: true}
	c = NewCombiner(sm.GeometrySystem, baker, sm.MeshSystem)
	func() {
		defer func() {
			if recover() == nil {
				t.Errorf("expected the panic to propagate")
			}
		}()
		_, _ = c.Combine(nil, skinned)
	}()
	if sm.GeometrySystem.LiveCount() != 0 {
		t.Errorf("buffers leaked after panic: %d", sm.GeometrySystem.LiveCount())
	}
}

func TestCombineNilMesh(t *testing.T) {
	c, _, _ := newTestCombiner(t)
	mesh := newMesh(t, "m", quadVertices(), []uint32{0, 1, 2})
	_, err := c.Combine([]resources.GeometrySource{
		staticSource("ok", mesh, math.NewMat4Identity()),
		staticSource("broken", nil, math.NewMat4Identity()),
	}, nil)
	if !errors.Is(err, core.ErrNilMesh) {
		t.Errorf("expected ErrNilMesh, got %v", err)
	}
}
