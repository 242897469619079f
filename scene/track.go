package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/scurest/apicula/nitro/anm"
	"github.com/scurest/apicula/nitro/pat"
	"github.com/scurest/apicula/nitro/srt"
)

type TrackKind int

const (
	TrackJoints TrackKind = iota
	TrackPattern
	TrackMaterialUVs
)

// Track is one animation attached to a model. Exactly one of the
// payload fields is set, matching Kind. Loop selects how frames past
// the end sample: wrap around or hold the last frame.
type Track struct {
	Name      string
	Kind      TrackKind
	NumFrames uint16
	Loop      bool

	Joints  *anm.Animation
	Pattern *PatternTrack
	MatAnim *srt.MaterialAnimation
}

// PatternTrack is a pattern animation with its texture and palette
// names resolved to database ids. Unresolvable names resolve to -1.
type PatternTrack struct {
	Pattern    *pat.Pattern
	TextureIDs []int
	PaletteIDs []int
}

// frameIndex maps an unbounded frame number into [0, NumFrames).
func (t *Track) frameIndex(frame int) uint16 {
	if t.NumFrames == 0 {
		return 0
	}
	n := int(t.NumFrames)
	if t.Loop {
		frame %= n
		if frame < 0 {
			frame += n
		}
		return uint16(frame)
	}
	if frame < 0 {
		return 0
	}
	if frame >= n {
		return uint16(n - 1)
	}
	return uint16(frame)
}

// JointLocals samples the local matrix of every joint of m at the
// given frame. Joints the animation does not cover keep their rest
// pose. Only valid for TrackJoints tracks.
func (t *Track) JointLocals(m *Model, frame int) []mgl32.Mat4 {
	f := t.frameIndex(frame)
	locals := make([]mgl32.Mat4, len(m.Joints))
	for i, j := range m.Joints {
		if j.ObjectIdx >= 0 && j.ObjectIdx < len(t.Joints.ObjectCurves) {
			locals[i] = t.Joints.ObjectCurves[j.ObjectIdx].SampleMatrix(f)
		} else {
			locals[i] = j.Local
		}
	}
	return locals
}

// PatternAt samples which texture/palette ids a pattern track selects
// at the given frame. Only valid for TrackPattern tracks.
func (t *Track) PatternAt(trackIdx, frame int) (texID, palID int) {
	f := t.frameIndex(frame)
	texIdx, palIdx := t.Pattern.Pattern.MaterialTracks[trackIdx].Sample(f)
	texID, palID = -1, -1
	if int(texIdx) < len(t.Pattern.TextureIDs) {
		texID = t.Pattern.TextureIDs[texIdx]
	}
	if int(palIdx) < len(t.Pattern.PaletteIDs) {
		palID = t.Pattern.PaletteIDs[palIdx]
	}
	return texID, palID
}

// UVMatrixAt samples the texture matrix of one material-animation
// track at the given frame. Only valid for TrackMaterialUVs tracks.
func (t *Track) UVMatrixAt(trackIdx, frame int) mgl32.Mat4 {
	f := t.frameIndex(frame)
	return t.MatAnim.Tracks[trackIdx].UVMatrix(f)
}
