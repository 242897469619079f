package nitro

import (
	"encoding/binary"
	"fmt"

	"github.com/scurest/apicula/utils"
)

// Container stamps. A BMD0 typically holds MDL0 and TEX0 sections, a
// BTX0 just a TEX0, BCA0 a JNT0, BTP0 a PAT0 and BTA0 an SRT0, but the
// format does not enforce the pairing and neither do we.
const (
	StampBMD0 = "BMD0"
	StampBTX0 = "BTX0"
	StampBCA0 = "BCA0"
	StampBTP0 = "BTP0"
	StampBTA0 = "BTA0"
)

// Section stamps.
const (
	StampMDL0 = "MDL0"
	StampTEX0 = "TEX0"
	StampJNT0 = "JNT0"
	StampPAT0 = "PAT0"
	StampSRT0 = "SRT0"
)

var containerStamps = []string{StampBMD0, StampBTX0, StampBCA0, StampBTP0, StampBTA0}
var sectionStamps = []string{StampMDL0, StampTEX0, StampJNT0, StampPAT0, StampSRT0}

const headerSize = 16

type Section struct {
	Stamp  string
	Offset int
	Size   int

	data *utils.BufStack
}

// Cur returns a fresh cursor over the section's bytes, starting at the
// stamp. Offsets inside a section are relative to this point.
func (s *Section) Cur() *utils.BufStack {
	return s.data.SubBuf(s.Stamp, 0).SetName(s.Stamp)
}

type Container struct {
	Stamp    string
	FileSize uint32
	Order    binary.ByteOrder
	Sections []*Section
}

// NewFromData parses the outer envelope of any Nitro file. Only the
// envelope is validated here; section payloads are decoded by their
// per-kind readers.
func NewFromData(b []byte) (*Container, error) {
	bs := utils.NewBufStack("nitro", b).SetName("container")

	stamp := string(bs.Read(4))
	if err := bs.Err(); err != nil {
		return nil, &ErrMalformedContainer{Offset: 0, Expected: "4-byte stamp", Found: fmt.Sprintf("%d bytes", len(b))}
	}
	if !stampKnown(containerStamps, stamp) {
		return nil, &ErrMalformedContainer{
			Offset:   0,
			Expected: "one of BMD0, BTX0, BCA0, BTP0, BTA0",
			Found:    fmt.Sprintf("%q", stamp),
		}
	}

	bom := bs.ReadU16()
	switch bom {
	case 0xfeff:
		// Already little endian.
	case 0xfffe:
		bs.SetByteOrder(binary.BigEndian)
	default:
		return nil, &ErrMalformedContainer{
			Offset:   4,
			Expected: "byte-order mark 0xfeff or 0xfffe",
			Found:    fmt.Sprintf("0x%04x", bom),
		}
	}

	bs.Skip(2) // version
	fileSize := bs.ReadU32()
	hdrSize := bs.ReadU16()
	numSections := int(bs.ReadU16())
	if err := bs.Err(); err != nil {
		return nil, &ErrMalformedContainer{Offset: bs.Pos(), Expected: "16-byte header", Found: "end of buffer"}
	}
	if hdrSize != headerSize {
		return nil, &ErrMalformedContainer{
			Offset:   12,
			Expected: "header size 16",
			Found:    fmt.Sprintf("%d", hdrSize),
		}
	}
	if int(fileSize) > len(b) || fileSize <= headerSize {
		return nil, &ErrMalformedContainer{
			Offset:   8,
			Expected: fmt.Sprintf("file size in (16, %d]", len(b)),
			Found:    fmt.Sprintf("%d", fileSize),
		}
	}

	cont := &Container{
		Stamp:    stamp,
		FileSize: fileSize,
		Order:    bs.ByteOrder(),
	}

	for i := 0; i < numSections; i++ {
		sectionOff := int(bs.ReadU32())
		if err := bs.Err(); err != nil {
			return nil, &ErrMalformedContainer{
				Offset:   headerSize + 4*i,
				Expected: fmt.Sprintf("%d section offsets", numSections),
				Found:    "end of buffer",
			}
		}
		section, err := readSection(bs, sectionOff)
		if err != nil {
			return nil, err
		}
		cont.Sections = append(cont.Sections, section)
	}

	return cont, nil
}

func readSection(bs *utils.BufStack, off int) (*Section, error) {
	data := bs.SubBuf("section", off)
	stamp := string(data.Read(4))
	sectionSize := data.ReadU32()
	if err := data.Err(); err != nil {
		return nil, &ErrMalformedContainer{
			Offset:   off,
			Expected: "section header",
			Found:    "offset past end of buffer",
		}
	}
	if !stampKnown(sectionStamps, stamp) {
		return nil, &ErrMalformedContainer{
			Offset:   off,
			Expected: "one of MDL0, TEX0, JNT0, PAT0, SRT0",
			Found:    fmt.Sprintf("%q", stamp),
		}
	}
	if int(sectionSize) < 8 || data.Size() < int(sectionSize) {
		return nil, &ErrMalformedContainer{
			Offset:   off + 4,
			Expected: fmt.Sprintf("section size in [8, %d]", data.Size()),
			Found:    fmt.Sprintf("%d", sectionSize),
		}
	}
	data.SetSize(int(sectionSize)).SetName(stamp)
	return &Section{
		Stamp:  stamp,
		Offset: off,
		Size:   int(sectionSize),
		data:   data,
	}, nil
}

// Section returns the first section with the given stamp. Absence is a
// typed error so callers can tell a valid-but-bare file from a corrupt
// one.
func (c *Container) Section(stamp string) (*Section, error) {
	for _, s := range c.Sections {
		if s.Stamp == stamp {
			return s, nil
		}
	}
	return nil, &ErrSectionNotFound{Stamp: stamp}
}

// CheckKind verifies a caller-claimed container stamp against the
// stamp actually read from the bytes.
func (c *Container) CheckKind(claimed string) error {
	if claimed != c.Stamp {
		return &ErrKindMismatch{Claimed: claimed, Found: c.Stamp}
	}
	return nil
}

func stampKnown(known []string, stamp string) bool {
	for _, s := range known {
		if s == stamp {
			return true
		}
	}
	return false
}
