package math

import "testing"

func TestMat4Inverse(t *testing.T) {
	m := NewMat4TRS(NewVec3(1, 2, 3), NewQuatFromEulerDegrees(10, 20, 30), NewVec3(2, 3, 4))
	inv, ok := m.Inverse()
	if !ok {
		t.Fatalf("expected an invertible matrix")
	}
	if !m.Mul(inv).IsIdentity(1e-4) {
		t.Errorf("m * m^-1 is not the identity: %v", m.Mul(inv))
	}

	if _, ok := NewMat4Scale(NewVec3(0, 1, 1)).Inverse(); ok {
		t.Errorf("a collapsed scale must not be invertible")
	}
}

func TestMat4MulOrder(t *testing.T) {
	scale := NewMat4Scale(NewVec3(2, 2, 2))
	move := NewMat4Translation(NewVec3(1, 0, 0))
	p := NewVec3(1, 0, 0)

	// Scale first, then translate.
	if got := p.Transform(scale.Mul(move)); !got.Compare(NewVec3(3, 0, 0), 1e-6) {
		t.Errorf("scale then move: got %v", got)
	}
	if got := p.Transform(move.Mul(scale)); !got.Compare(NewVec3(4, 0, 0), 1e-6) {
		t.Errorf("move then scale: got %v", got)
	}
}

func TestDecomposePositionRotation(t *testing.T) {
	tests := []struct {
		name     string
		position Vec3
		rotation Quaternion
		scale    Vec3
	}{
		{"identity", NewVec3Zero(), NewQuatIdentity(), NewVec3One()},
		{"yaw", NewVec3(1, 2, 3), NewQuatFromEulerDegrees(0, 90, 0), NewVec3(2, 2, 2)},
		{"non uniform", NewVec3(-4, 0, 7), NewQuatFromEulerDegrees(30, -45, 10), NewVec3(1, 5, 0.5)},
		{"upside down", NewVec3Zero(), NewQuatFromEulerDegrees(180, 0, 0), NewVec3One()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMat4TRS(tt.position, tt.rotation, tt.scale)
			p, r := DecomposePositionRotation(m)
			if !p.Compare(tt.position, 1e-5) {
				t.Errorf("position: got %v, want %v", p, tt.position)
			}
			if !r.Equivalent(tt.rotation, 1e-4) {
				t.Errorf("rotation: got %v, want %v", r, tt.rotation)
			}

			unit := NewMat4UnitScale(m)
			want := NewMat4TRS(tt.position, tt.rotation, NewVec3One())
			if !unit.Compare(want, 1e-4) {
				t.Errorf("unit scale frame: got %v, want %v", unit, want)
			}
		})
	}
}

func TestDecomposeCollapsedScale(t *testing.T) {
	m := NewMat4TRS(NewVec3(5, 0, 0), NewQuatFromEulerDegrees(0, 45, 0), NewVec3Zero())
	if r := m.Rotation(); r != NewQuatIdentity() {
		t.Errorf("collapsed forward basis should yield identity, got %v", r)
	}
	if got := NewMat4UnitScale(m); !got.Compare(NewMat4Translation(NewVec3(5, 0, 0)), 1e-6) {
		t.Errorf("expected a pure translation, got %v", got)
	}
}

func TestTransformWorldFollowsParent(t *testing.T) {
	parent := TransformCreate()
	parent.SetPositionRotationScale(NewVec3(10, 0, 0), NewQuatFromEulerDegrees(0, 90, 0), NewVec3One())
	child := TransformCreate()
	child.SetPosition(NewVec3(0, 0, 1))
	child.Parent = parent

	// +Z rotated a quarter turn around Y lands on +X.
	got := NewVec3Zero().Transform(child.GetWorld())
	if !got.Compare(NewVec3(11, 0, 0), 1e-5) {
		t.Errorf("world position: got %v", got)
	}

	parent.SetPosition(NewVec3(0, 5, 0))
	got = NewVec3Zero().Transform(child.GetWorld())
	if !got.Compare(NewVec3(1, 5, 0), 1e-5) {
		t.Errorf("world position after parent move: got %v", got)
	}
}

func TestNormalMatrix(t *testing.T) {
	m := NewMat4Scale(NewVec3(2, 1, 1))
	// A 45 degree normal in XY leans towards Y once X is stretched.
	n := NewVec3(1, 1, 0).Normalized().TransformDirection(m.NormalMatrix()).Normalized()
	want := NewVec3(0.5, 1, 0).Normalized()
	if !n.Compare(want, 1e-5) {
		t.Errorf("normal: got %v, want %v", n, want)
	}
}
