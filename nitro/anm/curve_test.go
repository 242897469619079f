package anm

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestFloatCurveSample(t *testing.T) {
	sampled := &FloatCurve{
		Kind:       CurveSampled,
		StartFrame: 0,
		EndFrame:   7,
		Values:     []float32{0, 1, 2, 3},
	}
	tests := []struct {
		name  string
		curve *FloatCurve
		frame uint16
		want  float32
	}{
		{"none yields default", &FloatCurve{Kind: CurveNone}, 5, 9},
		{"constant", &FloatCurve{Kind: CurveConstant, Constant: 4}, 5, 4},
		{"sampled start", sampled, 0, 0},
		{"sampled on a sample", sampled, 2, 1},
		{"sampled between samples", sampled, 3, 1.5},
		{"sampled end clamp", sampled, 100, 3},
		{"sampled no values", &FloatCurve{Kind: CurveSampled, EndFrame: 7}, 3, 9},
	}
	for _, test := range tests {
		if got := test.curve.Sample(9, test.frame); got != test.want {
			t.Errorf("%s: Sample(9, %d) = %v; expected %v",
				test.name, test.frame, got, test.want)
		}
	}
}

func TestMatCurveSample(t *testing.T) {
	c := &MatCurve{
		Kind:       CurveSampled,
		StartFrame: 0,
		EndFrame:   3,
		Values:     []mgl32.Mat3{mgl32.Ident3(), mgl32.Ident3().Mul(3)},
	}
	got := c.Sample(mgl32.Ident3(), 1)
	want := mgl32.Ident3().Mul(2)
	if got != want {
		t.Errorf("Sample(I, 1) = %v; expected %v", got, want)
	}

	none := &MatCurve{Kind: CurveNone}
	def := mgl32.Ident3().Mul(5)
	if got := none.Sample(def, 0); got != def {
		t.Errorf("none curve Sample = %v; expected the default", got)
	}
}

func TestCurveInfoFromU32(t *testing.T) {
	x := uint32(2) | 10<<16 | 1<<28 | 1<<30
	info, ok := curveInfoFromU32(x)
	if !ok {
		t.Fatal("valid curve info rejected")
	}
	if info.StartFrame != 2 || info.EndFrame != 10 {
		t.Errorf("frame range = [%d,%d); expected [2,10)", info.StartFrame, info.EndFrame)
	}
	if info.DataWidth != 1 || info.Rate != 1 {
		t.Errorf("width,rate = %d,%d; expected 1,1", info.DataWidth, info.Rate)
	}
	if got := info.NumSamples(); got != 4 {
		t.Errorf("NumSamples() = %d; expected 4", got)
	}

	if _, ok := curveInfoFromU32(5 | 5<<16); ok {
		t.Error("empty frame range accepted")
	}
}
