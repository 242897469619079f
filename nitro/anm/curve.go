package anm

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/scurest/apicula/utils"
)

type CurveKind int

const (
	// Everywhere undefined; sampling yields the caller's default.
	CurveNone CurveKind = iota
	// One value for all time.
	CurveConstant
	// Sampled at a fixed rate on [StartFrame, EndFrame].
	CurveSampled
)

// FloatCurve is one scalar channel (a translation or scale component).
type FloatCurve struct {
	Kind       CurveKind
	Constant   float32
	StartFrame uint16
	EndFrame   uint16
	Values     []float32
}

func (c *FloatCurve) Sample(def float32, frame uint16) float32 {
	switch c.Kind {
	case CurveConstant:
		return c.Constant
	case CurveSampled:
		lo, hi, gamma := interpolate(c.StartFrame, c.EndFrame, len(c.Values), frame)
		if lo < 0 {
			return def
		}
		return c.Values[lo]*(1-gamma) + c.Values[hi]*gamma
	default:
		return def
	}
}

// MatCurve is a rotation channel of 3x3 matrices.
type MatCurve struct {
	Kind       CurveKind
	Constant   mgl32.Mat3
	StartFrame uint16
	EndFrame   uint16
	Values     []mgl32.Mat3
}

func (c *MatCurve) Sample(def mgl32.Mat3, frame uint16) mgl32.Mat3 {
	switch c.Kind {
	case CurveConstant:
		return c.Constant
	case CurveSampled:
		lo, hi, gamma := interpolate(c.StartFrame, c.EndFrame, len(c.Values), frame)
		if lo < 0 {
			return def
		}
		return c.Values[lo].Mul(1 - gamma).Add(c.Values[hi].Mul(gamma))
	default:
		return def
	}
}

// interpolate maps a frame to a pair of sample indices and a blend
// factor. Outside the curve's domain the nearest end value holds.
// A negative lo index means the curve has no samples at all.
func interpolate(startFrame, endFrame uint16, numValues int, frame uint16) (lo, hi int, gamma float32) {
	if numValues == 0 {
		return -1, -1, 0
	}
	if frame <= startFrame || endFrame <= 1 {
		return 0, 0, 0
	}
	if frame >= endFrame-1 {
		return numValues - 1, numValues - 1, 0
	}

	lam := float32(frame-startFrame) / float32(endFrame-1-startFrame)
	idx := lam * float32(numValues-1)
	lo = int(idx)
	hi = lo
	if lo < numValues-1 {
		hi = lo + 1
	}
	gamma = idx - float32(lo)
	return lo, hi, gamma
}

// CurveInfo is the packed description word in front of each sampled
// curve: the frame range, the sampling rate (a right shift), and the
// width of the stored values.
type CurveInfo struct {
	StartFrame uint16
	EndFrame   uint16
	Rate       uint8
	DataWidth  uint8
}

func curveInfoFromU32(x uint32) (CurveInfo, bool) {
	info := CurveInfo{
		StartFrame: uint16(utils.Bits(x, 0, 16)),
		EndFrame:   uint16(utils.Bits(x, 16, 28)),
		DataWidth:  uint8(utils.Bits(x, 28, 30)),
		Rate:       uint8(utils.Bits(x, 30, 32)),
	}
	return info, info.StartFrame < info.EndFrame
}

func (info CurveInfo) NumSamples() int {
	return int((info.EndFrame - info.StartFrame) >> info.Rate)
}
