package preview

import (
	"fmt"
	"image"
	"image/color"

	"github.com/spaghettifunk/shadowproxy/engine/core"
	"github.com/spaghettifunk/shadowproxy/engine/math"
	"github.com/spaghettifunk/shadowproxy/engine/resources"
	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

const DefaultSize = 512

var (
	Background = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	Shadow     = color.NRGBA{R: 32, G: 32, B: 40, A: 255}
)

/** @brief Controls how a silhouette is rendered. */
type Options struct {
	/** @brief Width and height of the square output image, in pixels. */
	Size int
	/** @brief Direction the light travels in. Zero means straight down. */
	LightDirection math.Vec3
	/** @brief Empty border around the silhouette as a fraction of Size. */
	Margin float32
}

func DefaultOptions() Options {
	return Options{
		Size:           DefaultSize,
		LightDirection: math.NewVec3(0, -1, 0),
		Margin:         0.05,
	}
}

/**
 * @brief Renders the shadow the mesh casts along the light direction onto a
 * plane facing the light, scaled to fit the image. Every submesh contributes;
 * back and front faces both cast.
 */
func Render(mesh *resources.Mesh, opts Options) (*image.NRGBA, error) {
	if mesh == nil {
		return nil, core.ErrNilMesh
	}
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.Margin < 0 || opts.Margin >= 0.5 {
		opts.Margin = 0
	}

	img := image.NewNRGBA(image.Rect(0, 0, opts.Size, opts.Size))
	draw.Draw(img, img.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)

	right, up := lightBasis(opts.LightDirection)
	projected := make([]math.Vec2, len(mesh.Vertices))
	for i, v := range mesh.Vertices {
		projected[i] = math.NewVec2(v.Dot(right), v.Dot(up))
	}

	var triangles []uint32
	for i := 0; i < mesh.SubMeshCount(); i++ {
		tris, err := mesh.Triangles(i)
		if err != nil {
			return nil, fmt.Errorf("preview of '%s': %w", mesh.Name, err)
		}
		triangles = append(triangles, tris...)
	}
	if len(triangles) < 3 {
		core.LogWarn("mesh '%s' has no triangles, preview is empty.", mesh.Name)
		return img, nil
	}

	fit := fitToImage(projected, triangles, float32(opts.Size), opts.Margin)

	r := vector.NewRasterizer(opts.Size, opts.Size)
	for t := 0; t+2 < len(triangles); t += 3 {
		a := fit(projected[triangles[t]])
		b := fit(projected[triangles[t+1]])
		c := fit(projected[triangles[t+2]])
		// Opposite windings would cancel in the accumulator.
		if cross2(a, b, c) < 0 {
			b, c = c, b
		}
		r.MoveTo(a.X, a.Y)
		r.LineTo(b.X, b.Y)
		r.LineTo(c.X, c.Y)
		r.ClosePath()
	}
	r.Draw(img, img.Bounds(), image.NewUniform(Shadow), image.Point{})
	return img, nil
}

// lightBasis returns two axes spanning the plane perpendicular to dir.
func lightBasis(dir math.Vec3) (math.Vec3, math.Vec3) {
	forward := dir.Normalized()
	if forward.LengthSquared() == 0 {
		forward = math.NewVec3(0, -1, 0)
	}
	hint := math.NewVec3Forward()
	if kabs(forward.Dot(hint)) > 0.999 {
		hint = math.NewVec3Up()
	}
	right := hint.Cross(forward).Normalized()
	up := forward.Cross(right).Normalized()
	return right, up
}

// fitToImage maps projected points into pixel space, keeping the aspect
// ratio and flipping y so that up points to the top of the image.
func fitToImage(points []math.Vec2, triangles []uint32, size, margin float32) func(math.Vec2) math.Vec2 {
	lo := points[triangles[0]]
	hi := lo
	for _, idx := range triangles {
		p := points[idx]
		lo.X, lo.Y = min(lo.X, p.X), min(lo.Y, p.Y)
		hi.X, hi.Y = max(hi.X, p.X), max(hi.Y, p.Y)
	}
	extent := max(hi.X-lo.X, hi.Y-lo.Y)
	usable := size * (1 - 2*margin)
	scale := float32(1)
	if extent > 0 {
		scale = usable / extent
	}
	centre := math.NewVec2((lo.X+hi.X)*0.5, (lo.Y+hi.Y)*0.5)
	half := size * 0.5
	return func(p math.Vec2) math.Vec2 {
		return math.NewVec2(half+(p.X-centre.X)*scale, half-(p.Y-centre.Y)*scale)
	}
}

func cross2(a, b, c math.Vec2) float32 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

func kabs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
