package math

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestIdentity(t *testing.T) {
	m := Identity()
	// Diagonal should be 1
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	// Off-diagonal should be 0
	if m[1] != 0 || m[4] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
}

func TestMulIdentity(t *testing.T) {
	m := Translate(1, 2, 3)
	id := Identity()
	result := m.Mul(id)

	for i := 0; i < 16; i++ {
		if result[i] != m[i] {
			t.Errorf("M * I should equal M, element %d: got %f, want %f", i, result[i], m[i])
		}
	}
}

func TestTranslate(t *testing.T) {
	m := Translate(5, 10, 15)

	// Translation lives in column 4 (indices 12, 13, 14)
	if m[12] != 5 || m[13] != 10 || m[14] != 15 {
		t.Errorf("Translate: got (%f, %f, %f), want (5, 10, 15)", m[12], m[13], m[14])
	}
}

func TestTransformVec3(t *testing.T) {
	m := Translate(10, 20, 30)
	got := m.TransformVec3(Vec3{1, 2, 3})
	want := Vec3{11, 22, 33}
	if got != want {
		t.Errorf("TransformVec3: got %v, want %v", got, want)
	}

	got = Scale(2, 2, 2).TransformVec3(Vec3{1, 2, 3})
	want = Vec3{2, 4, 6}
	if got != want {
		t.Errorf("TransformVec3 with scale: got %v, want %v", got, want)
	}
}

func TestTransformVec3RotateThenTranslate(t *testing.T) {
	m := Translate(10, 20, 30).Mul(QuatFromAxisAngle(UnitY, math.Pi/2).ToMat4())
	got := m.TransformVec3(UnitX)
	// 90 degrees about Y takes +X to -Z
	if !got.ApproxEqual(Vec3{10, 20, 29}, 0.0001) {
		t.Errorf("TransformVec3: got %v, want (10, 20, 29)", got)
	}
}

func TestMulMatchesMathGL(t *testing.T) {
	a := Compose(Vec3{1, -2, 3}, QuatFromAxisAngle(Vec3{0, 0.6, 0.8}, 0.7), Vec3{1, 2, 0.5})
	b := Compose(Vec3{-4, 0.5, 2}, QuatFromAxisAngle(UnitX, -1.1), Vec3{3, 1, 1})

	got := a.Mul(b)
	want := mgl32.Mat4(a).Mul4(mgl32.Mat4(b))
	if !got.ApproxEqual(Mat4(want), 0.0001) {
		t.Errorf("Mul mismatch:\n got  %v\n want %v", got, want)
	}
}

func TestInverseMatchesMathGL(t *testing.T) {
	m := Compose(Vec3{3, 1, -7}, QuatFromEuler(Vec3{0.3, -0.4, 1.2}), Vec3{2, 2, 0.5})

	got := m.Inverse()
	want := mgl32.Mat4(m).Inv()
	if !got.ApproxEqual(Mat4(want), 0.0001) {
		t.Errorf("Inverse mismatch:\n got  %v\n want %v", got, want)
	}
	if !m.Mul(got).ApproxEqual(Identity(), 0.0001) {
		t.Error("M * M^-1 should be identity")
	}
}

func TestInverseSingular(t *testing.T) {
	if got := Scale(0, 1, 1).Inverse(); got != Identity() {
		t.Errorf("singular inverse should fall back to identity, got %v", got)
	}
}

func TestQuatToMat4MatchesMathGL(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{1, 1, 0}.Normalize(), 0.9)
	want := mgl32.QuatRotate(0.9, mgl32.Vec3{1, 1, 0}.Normalize()).Mat4()
	if !q.ToMat4().ApproxEqual(Mat4(want), 0.0001) {
		t.Errorf("ToMat4 mismatch:\n got  %v\n want %v", q.ToMat4(), want)
	}
}

func TestComposeDecompose(t *testing.T) {
	tests := []struct {
		name  string
		trans Vec3
		rot   Quat
		scale Vec3
	}{
		{"identity", Vec3{}, QuatIdentity(), Vec3{1, 1, 1}},
		{"translate only", Vec3{1, 2, 3}, QuatIdentity(), Vec3{1, 1, 1}},
		{"rotate and scale", Vec3{-5, 0, 2}, QuatFromEuler(Vec3{0.2, 1.1, -0.5}), Vec3{2, 3, 4}},
		{"mirrored", Vec3{0, 1, 0}, QuatFromAxisAngle(UnitZ, 0.4), Vec3{-1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Compose(tt.trans, tt.rot, tt.scale)
			tr, r, s := m.Decompose()
			if !tr.ApproxEqual(tt.trans, 0.0001) {
				t.Errorf("translation: got %v, want %v", tr, tt.trans)
			}
			if !r.ApproxEqual(tt.rot, 0.0001) {
				t.Errorf("rotation: got %v, want %v", r, tt.rot)
			}
			if !s.ApproxEqual(tt.scale, 0.0001) {
				t.Errorf("scale: got %v, want %v", s, tt.scale)
			}
			if !Compose(tr, r, s).ApproxEqual(m, 0.0001) {
				t.Error("recomposed matrix differs")
			}
		})
	}
}
