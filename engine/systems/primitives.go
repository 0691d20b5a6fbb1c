package systems

import (
	"github.com/spaghettifunk/shadowproxy/engine/core"
	"github.com/spaghettifunk/shadowproxy/engine/math"
	"github.com/spaghettifunk/shadowproxy/engine/resources"
)

const DefaultPrimitiveName = "primitive"

/**
 * @brief Generates a plane lying on the XZ plane, facing +Y, centered on the
 * origin. The result has one submesh.
 *
 * @param width The overall width of the plane along X. Defaults to one when zero.
 * @param depth The overall depth of the plane along Z. Defaults to one when zero.
 * @param xSegmentCount The number of segments along X. Defaults to one when zero.
 * @param zSegmentCount The number of segments along Z. Defaults to one when zero.
 * @param name The name of the generated mesh.
 * @return The generated mesh, not registered with any geometry system.
 */
func GeneratePlane(width, depth float32, xSegmentCount, zSegmentCount uint32, name string) *resources.Mesh {
	if width == 0 {
		core.LogWarn("Width must be nonzero. Defaulting to one.")
		width = 1.0
	}
	if depth == 0 {
		core.LogWarn("Depth must be nonzero. Defaulting to one.")
		depth = 1.0
	}
	if xSegmentCount < 1 {
		core.LogWarn("xSegmentCount must be a positive number. Defaulting to one.")
		xSegmentCount = 1
	}
	if zSegmentCount < 1 {
		core.LogWarn("zSegmentCount must be a positive number. Defaulting to one.")
		zSegmentCount = 1
	}
	if len(name) == 0 {
		name = DefaultPrimitiveName
	}

	quads := xSegmentCount * zSegmentCount
	mesh := resources.NewMesh(name)
	mesh.Vertices = make([]math.Vec3, quads*4)
	mesh.Normals = make([]math.Vec3, quads*4)
	mesh.UVs[0] = make([]math.Vec2, quads*4)
	indices := make([]uint32, quads*6)

	segWidth := width / float32(xSegmentCount)
	segDepth := depth / float32(zSegmentCount)
	halfWidth := width * 0.5
	halfDepth := depth * 0.5
	for z := uint32(0); z < zSegmentCount; z++ {
		for x := uint32(0); x < xSegmentCount; x++ {
			minX := (float32(x) * segWidth) - halfWidth
			minZ := (float32(z) * segDepth) - halfDepth
			maxX := minX + segWidth
			maxZ := minZ + segDepth
			minU := float32(x) / float32(xSegmentCount)
			minV := float32(z) / float32(zSegmentCount)
			maxU := float32(x+1) / float32(xSegmentCount)
			maxV := float32(z+1) / float32(zSegmentCount)

			// Quads grow towards -Z so the winding faces +Y.
			vOffset := ((z * xSegmentCount) + x) * 4
			mesh.Vertices[vOffset+0] = math.NewVec3(minX, 0, -minZ)
			mesh.Vertices[vOffset+1] = math.NewVec3(maxX, 0, -maxZ)
			mesh.Vertices[vOffset+2] = math.NewVec3(minX, 0, -maxZ)
			mesh.Vertices[vOffset+3] = math.NewVec3(maxX, 0, -minZ)
			mesh.UVs[0][vOffset+0] = math.NewVec2(minU, minV)
			mesh.UVs[0][vOffset+1] = math.NewVec2(maxU, maxV)
			mesh.UVs[0][vOffset+2] = math.NewVec2(minU, maxV)
			mesh.UVs[0][vOffset+3] = math.NewVec2(maxU, minV)
			for i := uint32(0); i < 4; i++ {
				mesh.Normals[vOffset+i] = math.NewVec3Up()
			}

			iOffset := ((z * xSegmentCount) + x) * 6
			indices[iOffset+0] = vOffset + 0
			indices[iOffset+1] = vOffset + 1
			indices[iOffset+2] = vOffset + 2
			indices[iOffset+3] = vOffset + 0
			indices[iOffset+4] = vOffset + 3
			indices[iOffset+5] = vOffset + 1
		}
	}

	finishPrimitive(mesh, indices)
	return mesh
}

type cubeFace struct {
	normal  math.Vec3
	corners [4]math.Vec3
}

/**
 * @brief Generates an axis aligned box centered on the origin with four
 * vertices per face and one submesh.
 */
func GenerateCube(width, height, depth float32, name string) *resources.Mesh {
	if width == 0 {
		core.LogWarn("Width must be nonzero. Defaulting to one.")
		width = 1.0
	}
	if height == 0 {
		core.LogWarn("Height must be nonzero. Defaulting to one.")
		height = 1.0
	}
	if depth == 0 {
		core.LogWarn("Depth must be nonzero. Defaulting to one.")
		depth = 1.0
	}
	if len(name) == 0 {
		name = DefaultPrimitiveName
	}

	x0, y0, z0 := -width*0.5, -height*0.5, -depth*0.5
	x1, y1, z1 := width*0.5, height*0.5, depth*0.5

	// Corners go min-min, max-max, min-max, max-min in face space.
	faces := [6]cubeFace{
		{math.NewVec3(0, 0, 1), [4]math.Vec3{{X: x0, Y: y0, Z: z1}, {X: x1, Y: y1, Z: z1}, {X: x0, Y: y1, Z: z1}, {X: x1, Y: y0, Z: z1}}},
		{math.NewVec3(0, 0, -1), [4]math.Vec3{{X: x1, Y: y0, Z: z0}, {X: x0, Y: y1, Z: z0}, {X: x1, Y: y1, Z: z0}, {X: x0, Y: y0, Z: z0}}},
		{math.NewVec3(-1, 0, 0), [4]math.Vec3{{X: x0, Y: y0, Z: z0}, {X: x0, Y: y1, Z: z1}, {X: x0, Y: y1, Z: z0}, {X: x0, Y: y0, Z: z1}}},
		{math.NewVec3(1, 0, 0), [4]math.Vec3{{X: x1, Y: y0, Z: z1}, {X: x1, Y: y1, Z: z0}, {X: x1, Y: y1, Z: z1}, {X: x1, Y: y0, Z: z0}}},
		{math.NewVec3(0, -1, 0), [4]math.Vec3{{X: x1, Y: y0, Z: z1}, {X: x0, Y: y0, Z: z0}, {X: x1, Y: y0, Z: z0}, {X: x0, Y: y0, Z: z1}}},
		{math.NewVec3(0, 1, 0), [4]math.Vec3{{X: x0, Y: y1, Z: z1}, {X: x1, Y: y1, Z: z0}, {X: x0, Y: y1, Z: z0}, {X: x1, Y: y1, Z: z1}}},
	}
	faceUVs := [4]math.Vec2{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: 1, Y: 0}}

	mesh := resources.NewMesh(name)
	indices := make([]uint32, 0, 6*6)
	for i, face := range faces {
		for c := 0; c < 4; c++ {
			mesh.Vertices = append(mesh.Vertices, face.corners[c])
			mesh.Normals = append(mesh.Normals, face.normal)
			mesh.UVs[0] = append(mesh.UVs[0], faceUVs[c])
		}
		v := uint32(i * 4)
		indices = append(indices, v+0, v+1, v+2, v+0, v+3, v+1)
	}

	finishPrimitive(mesh, indices)
	return mesh
}

func finishPrimitive(mesh *resources.Mesh, indices []uint32) {
	mesh.Tangents = make([]math.Vec4, len(mesh.Vertices))
	math.GeometryGenerateTangents(mesh.Vertices, mesh.UVs[0], indices, mesh.Tangents)

	mesh.SetSubMeshCount(1)
	if err := mesh.SetTriangles(indices, 0); err != nil {
		// Indices are generated against the vertex list above.
		core.LogFatal("primitive '%s': %s", mesh.Name, err)
	}
}
