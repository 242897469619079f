package srt

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/scurest/apicula/nitro"
	"github.com/scurest/apicula/nitro/anm"
	"github.com/scurest/apicula/utils"
)

// Material animation from an SRT0 section. Animates material
// properties; the understood channels translate the UV transform.
type MaterialAnimation struct {
	Name      nitro.Name
	NumFrames uint16
	Tracks    []Track
}

// Track targets one material and animates it through five channels.
type Track struct {
	Name     nitro.Name
	Channels [5]Channel
}

type ChannelTarget int

const (
	TargetUnknown ChannelTarget = iota
	TargetTranslationU
	TargetTranslationV
)

type Channel struct {
	NumFrames uint16
	Target    ChannelTarget
	Curve     anm.FloatCurve
}

// UVMatrix evaluates the texture-coordinate transform at a frame.
func (t *Track) UVMatrix(frame uint16) mgl32.Mat4 {
	var u, v float32
	for i := range t.Channels {
		chn := &t.Channels[i]
		switch chn.Target {
		case TargetTranslationU:
			u = chn.Curve.Sample(u, frame)
		case TargetTranslationV:
			v = chn.Curve.Sample(v, frame)
		}
	}
	return mgl32.Translate3D(u, v, 0)
}

// ReadSRT0 reads every material animation in an SRT0 section.
func ReadSRT0(section *nitro.Section) ([]*MaterialAnimation, error) {
	bs := section.Cur()
	bs.Skip(8) // stamp, section size

	records, err := nitro.ReadInfoBlock(bs.SubBuf("material animations", bs.Pos()), 4)
	if err != nil {
		return nil, errors.Wrap(err, "SRT0 animation list")
	}

	anims := make([]*MaterialAnimation, 0, len(records))
	for _, rec := range records {
		anim, err := readMatAnim(bs.SubBuf("material animation", int(rec.U32())), rec.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "material animation %s", rec.Name)
		}
		anims = append(anims, anim)
	}
	return anims, nil
}

func readMatAnim(bs *utils.BufStack, name nitro.Name) (*MaterialAnimation, error) {
	bs.Skip(4) // stamp
	numFrames := bs.ReadU16()
	bs.Skip(2)
	tracksOff := bs.Pos()
	if err := bs.Err(); err != nil {
		return nil, errors.Wrap(err, "truncated material animation header")
	}

	// Each track datum is five channel records of
	// (num frames u16, dummy u8, flags u8, offset u32).
	trackRecords, err := nitro.ReadInfoBlock(bs.SubBuf("tracks", tracksOff), 5*8)
	if err != nil {
		return nil, errors.Wrap(err, "material track list")
	}

	targets := [5]ChannelTarget{
		TargetUnknown, TargetUnknown, TargetUnknown,
		TargetTranslationU, TargetTranslationV,
	}

	tracks := make([]Track, 0, len(trackRecords))
	for _, rec := range trackRecords {
		track := Track{Name: rec.Name}
		for i := 0; i < 5; i++ {
			numChanFrames := rec.Data.U16(8 * i)
			flags := rec.Data.Byte(8*i + 3)
			offset := rec.Data.U32(8*i + 4)

			chn, err := readChannel(bs, numChanFrames, flags, offset, targets[i])
			if err != nil {
				return nil, errors.Wrapf(err, "track %s channel %d", rec.Name, i)
			}
			track.Channels[i] = chn
		}
		tracks = append(tracks, track)
	}

	return &MaterialAnimation{Name: name, NumFrames: numFrames, Tracks: tracks}, nil
}

// readChannel decodes a per-frame 1.10.5 fixed-point curve. Flag value
// 16 on a UV-translation channel is the only understood layout; other
// channels are left undefined rather than misread.
func readChannel(bs *utils.BufStack, numFrames uint16, flags uint8, offset uint32, target ChannelTarget) (Channel, error) {
	if flags != 16 || target == TargetUnknown {
		return Channel{Target: target}, nil
	}

	data := bs.SubBuf("channel samples", int(offset))
	values := make([]float32, numFrames)
	for i := range values {
		values[i] = utils.Fix16(data.ReadU16(), true, 10, 5)
	}
	if err := data.Err(); err != nil {
		return Channel{}, errors.Wrap(err, "channel samples out of bounds")
	}

	return Channel{
		NumFrames: numFrames,
		Target:    target,
		Curve: anm.FloatCurve{
			Kind:       anm.CurveSampled,
			StartFrame: 0,
			EndFrame:   numFrames,
			Values:     values,
		},
	}, nil
}
