package math

func TransformCreate() *Transform {
	t := &Transform{}
	t.SetPositionRotationScale(NewVec3Zero(), NewQuatIdentity(), NewVec3One())
	t.Local = NewMat4Identity()
	t.Parent = nil
	return t
}

func (t *Transform) SetPosition(position Vec3) {
	t.Position = position
	t.IsDirty = true
}

func (t *Transform) SetScale(scale Vec3) {
	t.Scale = scale
	t.IsDirty = true
}

func (t *Transform) SetPositionRotationScale(position Vec3, rotation Quaternion, scale Vec3) {
	t.Position = position
	t.Rotation = rotation
	t.Scale = scale
	t.IsDirty = true
}

// GetLocal returns the translation * rotation * scale matrix relative to the parent.
func (t *Transform) GetLocal() Mat4 {
	if t != nil {
		if t.IsDirty {
			t.Local = NewMat4TRS(t.Position, t.Rotation, t.Scale)
			t.IsDirty = false
		}
		return t.Local
	}
	return NewMat4Identity()
}

// GetWorld returns the local-to-world matrix, walking the parent chain.
func (t *Transform) GetWorld() Mat4 {
	if t != nil {
		l := t.GetLocal()
		if t.Parent != nil {
			p := t.Parent.GetWorld()
			return l.Mul(p)
		}
		return l
	}
	return NewMat4Identity()
}

// ------------------------------------------
// Decomposition
// ------------------------------------------

/**
 * @brief Returns the translation column of the matrix.
 */
func (mt Mat4) Position() Vec3 {
	return NewVec3FromVec4(mt.Column(3))
}

/**
 * @brief Returns the rotation of the matrix, built as a look rotation along
 * the forward basis (third column) with the up basis (second column) as the
 * up hint. Scale is ignored. If the forward basis is exactly zero, e.g. a
 * fully collapsed scale, the identity rotation is returned. Non-orthogonal
 * bases are not validated and yield whatever the look rotation produces.
 */
func (mt Mat4) Rotation() Quaternion {
	forward := mt.Column(2)
	if forward.IsZero() {
		return NewQuatIdentity()
	}
	return NewQuatLookRotation(forward.ToVec3(), mt.Column(1).ToVec3())
}

// DecomposePositionRotation extracts position and rotation from a world
// matrix, discarding scale.
func DecomposePositionRotation(mt Mat4) (Vec3, Quaternion) {
	return mt.Position(), mt.Rotation()
}

// NewMat4UnitScale rebuilds mt as translation * rotation with unit scale.
func NewMat4UnitScale(mt Mat4) Mat4 {
	p, r := DecomposePositionRotation(mt)
	return NewMat4TRS(p, r, NewVec3One())
}
