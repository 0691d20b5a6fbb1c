package math

// GeometryGenerateNormals writes a face normal into every vertex of every
// triangle listed in indices. Shared vertices keep the last face written.
func GeometryGenerateNormals(positions []Vec3, indices []uint32, normals []Vec3) {
	for i := 0; i+2 < len(indices); i += 3 {
		i0 := indices[i+0]
		i1 := indices[i+1]
		i2 := indices[i+2]

		edge1 := positions[i1].Sub(positions[i0])
		edge2 := positions[i2].Sub(positions[i0])

		normal := edge1.Cross(edge2).Normalized()

		// NOTE: This just generates a face normal. Smoothing out should be done in a separate pass if desired.
		normals[i0] = normal
		normals[i1] = normal
		normals[i2] = normal
	}
}

// GeometryGenerateTangents writes per-face tangents with handedness in w.
func GeometryGenerateTangents(positions []Vec3, uvs []Vec2, indices []uint32, tangents []Vec4) {
	for i := 0; i+2 < len(indices); i += 3 {
		i0 := indices[i+0]
		i1 := indices[i+1]
		i2 := indices[i+2]

		edge1 := positions[i1].Sub(positions[i0])
		edge2 := positions[i2].Sub(positions[i0])

		deltaU1 := uvs[i1].X - uvs[i0].X
		deltaV1 := uvs[i1].Y - uvs[i0].Y

		deltaU2 := uvs[i2].X - uvs[i0].X
		deltaV2 := uvs[i2].Y - uvs[i0].Y

		dividend := deltaU1*deltaV2 - deltaU2*deltaV1
		if dividend == 0 {
			continue
		}
		fc := 1.0 / dividend

		tangent := Vec3{
			(fc * (deltaV2*edge1.X - deltaV1*edge2.X)),
			(fc * (deltaV2*edge1.Y - deltaV1*edge2.Y)),
			(fc * (deltaV2*edge1.Z - deltaV1*edge2.Z))}

		tangent = tangent.Normalized()

		handedness := float32(1.0)
		if (deltaV1*deltaU2 - deltaV2*deltaU1) < 0.0 {
			handedness = -1.0
		}

		t4 := tangent.ToVec4(handedness)
		tangents[i0] = t4
		tangents[i1] = t4
		tangents[i2] = t4
	}
}

// GeometryExtents returns the axis aligned bounds of positions and their center.
func GeometryExtents(positions []Vec3) (Extents3D, Vec3) {
	if len(positions) == 0 {
		return Extents3D{}, NewVec3Zero()
	}
	ext := Extents3D{
		Min: Vec3{K_INFINITY, K_INFINITY, K_INFINITY},
		Max: Vec3{-K_INFINITY, -K_INFINITY, -K_INFINITY},
	}
	for _, p := range positions {
		ext.Min.X = min(ext.Min.X, p.X)
		ext.Min.Y = min(ext.Min.Y, p.Y)
		ext.Min.Z = min(ext.Min.Z, p.Z)
		ext.Max.X = max(ext.Max.X, p.X)
		ext.Max.Y = max(ext.Max.Y, p.Y)
		ext.Max.Z = max(ext.Max.Z, p.Z)
	}
	center := ext.Min.Add(ext.Max).MulScalar(0.5)
	return ext, center
}
