package preview

import (
	"bytes"
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spaghettifunk/shadowproxy/engine/core"
	"github.com/spaghettifunk/shadowproxy/engine/math"
	"github.com/spaghettifunk/shadowproxy/engine/resources"
	"github.com/spaghettifunk/shadowproxy/engine/systems"
)

func inShadow(c color.NRGBA) bool {
	return c.A == 255 && c.R < 64 && c.B < 64
}

func TestRenderPlaneFromAbove(t *testing.T) {
	plane := systems.GeneratePlane(2, 2, 1, 1, "floor")
	img, err := Render(plane, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if got := img.Bounds().Dx(); got != DefaultSize {
		t.Fatalf("expected a %dpx image, got %d", DefaultSize, got)
	}
	if c := img.NRGBAAt(DefaultSize/2, DefaultSize/2); !inShadow(c) {
		t.Errorf("centre should be in shadow, got %v", c)
	}
	if diff := cmp.Diff(Background, img.NRGBAAt(2, 2)); diff != "" {
		t.Errorf("margin should stay lit (-want +got):\n%s", diff)
	}
}

func TestRenderEdgeOnPlaneCastsNothing(t *testing.T) {
	plane := systems.GeneratePlane(2, 2, 1, 1, "floor")
	opts := DefaultOptions()
	opts.LightDirection = math.NewVec3(1, 0, 0)
	img, err := Render(plane, opts)
	if err != nil {
		t.Fatal(err)
	}
	if c := img.NRGBAAt(DefaultSize/4, DefaultSize/4); inShadow(c) || c.R < 200 {
		t.Errorf("edge-on plane should cast no shadow, got %v", c)
	}
}

func TestRenderMixedWindingDoesNotCancel(t *testing.T) {
	mesh := resources.NewMesh("quad")
	mesh.Vertices = []math.Vec3{
		math.NewVec3(-1, 0, -1),
		math.NewVec3(1, 0, -1),
		math.NewVec3(1, 0, 1),
	}
	mesh.SetSubMeshCount(2)
	if err := mesh.SetTriangles([]uint32{0, 1, 2}, 0); err != nil {
		t.Fatal(err)
	}
	if err := mesh.SetTriangles([]uint32{0, 2, 1}, 1); err != nil {
		t.Fatal(err)
	}
	img, err := Render(mesh, Options{Size: 64})
	if err != nil {
		t.Fatal(err)
	}
	// A point well inside the triangle, away from the diagonal.
	if c := img.NRGBAAt(48, 40); !inShadow(c) {
		t.Errorf("overlapping faces should still cast, got %v", c)
	}
}

func TestRenderEmptyMesh(t *testing.T) {
	img, err := Render(resources.NewMesh("empty"), Options{Size: 16})
	if err != nil {
		t.Fatal(err)
	}
	if c := img.NRGBAAt(8, 8); c != Background {
		t.Errorf("empty mesh should leave the image lit, got %v", c)
	}
	if _, err := Render(nil, Options{}); !errors.Is(err, core.ErrNilMesh) {
		t.Errorf("expected ErrNilMesh, got %v", err)
	}
}

func TestWriteFile(t *testing.T) {
	img, err := Render(systems.GenerateCube(1, 1, 1, "cube"), Options{Size: 32})
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()

	pngPath := filepath.Join(dir, "out", "shadow.png")
	if err := WriteFile(pngPath, img); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(pngPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(img.Bounds(), decoded.Bounds()); diff != "" {
		t.Errorf("bounds mismatch (-want +got):\n%s", diff)
	}

	webpPath := filepath.Join(dir, "shadow.webp")
	if err := WriteFile(webpPath, img); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(webpPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("RIFF")) {
		t.Errorf("expected a RIFF container, got % x", data[:min(len(data), 8)])
	}

	if err := WriteFile(filepath.Join(dir, "shadow.jpg"), img); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}
