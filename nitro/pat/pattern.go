package pat

import (
	"github.com/pkg/errors"

	"github.com/scurest/apicula/nitro"
	"github.com/scurest/apicula/utils"
)

// Pattern animation: swaps the texture/palette pair a material uses as
// it plays.
type Pattern struct {
	Name           nitro.Name
	NumFrames      uint16
	TextureNames   []nitro.Name
	PaletteNames   []nitro.Name
	MaterialTracks []Track
}

// Track gives the keyframes at which one material's image changes.
type Track struct {
	Name      nitro.Name
	Keyframes []Keyframe
}

type Keyframe struct {
	Frame uint16
	// Indices into the pattern's texture/palette name lists.
	TextureIdx uint8
	PaletteIdx uint8
}

// Sample picks the image pair in effect at a frame: the latest
// keyframe at or before it.
func (t *Track) Sample(frame uint16) (textureIdx, paletteIdx uint8) {
	if len(t.Keyframes) == 0 {
		return 0, 0
	}
	key := t.Keyframes[0]
	for _, k := range t.Keyframes {
		if k.Frame > frame {
			break
		}
		key = k
	}
	return key.TextureIdx, key.PaletteIdx
}

// ReadPAT0 reads every pattern animation in a PAT0 section.
func ReadPAT0(section *nitro.Section) ([]*Pattern, error) {
	bs := section.Cur()
	bs.Skip(8) // stamp, section size

	records, err := nitro.ReadInfoBlock(bs.SubBuf("patterns", bs.Pos()), 4)
	if err != nil {
		return nil, errors.Wrap(err, "PAT0 pattern list")
	}

	patterns := make([]*Pattern, 0, len(records))
	for _, rec := range records {
		pattern, err := readPattern(bs.SubBuf("pattern", int(rec.U32())), rec.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "pattern %s", rec.Name)
		}
		patterns = append(patterns, pattern)
	}
	return patterns, nil
}

func readPattern(bs *utils.BufStack, name nitro.Name) (*Pattern, error) {
	bs.Skip(4)
	numFrames := bs.ReadU16()
	numTextureNames := int(bs.ReadByte())
	numPaletteNames := int(bs.ReadByte())
	textureNamesOff := int(bs.ReadU16())
	paletteNamesOff := int(bs.ReadU16())
	tracksOff := bs.Pos()
	if err := bs.Err(); err != nil {
		return nil, errors.Wrap(err, "truncated pattern header")
	}

	readNames := func(off, num int) []nitro.Name {
		cur := bs.SubBuf("names", off)
		names := make([]nitro.Name, num)
		for i := range names {
			names[i] = nitro.ReadName(cur)
		}
		return names
	}
	textureNames := readNames(textureNamesOff, numTextureNames)
	paletteNames := readNames(paletteNamesOff, numPaletteNames)
	if err := bs.Err(); err != nil {
		return nil, errors.Wrap(err, "pattern name lists out of bounds")
	}

	trackRecords, err := nitro.ReadInfoBlock(bs.SubBuf("tracks", tracksOff), 8)
	if err != nil {
		return nil, errors.Wrap(err, "pattern track list")
	}

	tracks := make([]Track, 0, len(trackRecords))
	for _, rec := range trackRecords {
		numKeyframes := int(rec.Data.U32(0))
		off := int(rec.Data.U16(6))

		data := bs.SubBuf("keyframes", off)
		keyframes := make([]Keyframe, numKeyframes)
		for i := range keyframes {
			keyframes[i] = Keyframe{
				Frame:      data.ReadU16(),
				TextureIdx: data.ReadByte(),
				PaletteIdx: data.ReadByte(),
			}
		}
		if err := data.Err(); err != nil {
			return nil, errors.Wrapf(err, "keyframes for track %s", rec.Name)
		}

		for _, k := range keyframes {
			if int(k.TextureIdx) >= len(textureNames) || int(k.PaletteIdx) >= len(paletteNames) {
				return nil, errors.Errorf("track %s references an image outside the name lists", rec.Name)
			}
		}

		tracks = append(tracks, Track{Name: rec.Name, Keyframes: keyframes})
	}

	return &Pattern{
		Name:           name,
		NumFrames:      numFrames,
		TextureNames:   textureNames,
		PaletteNames:   paletteNames,
		MaterialTracks: tracks,
	}, nil
}
