package nitro

import (
	"encoding/binary"
	"testing"
)

// buildContainer assembles a minimal valid container: a BTX0 envelope
// holding one empty-but-well-formed TEX0 section header.
func buildContainer() []byte {
	b := make([]byte, 0, 32)
	b = append(b, "BTX0"...)
	b = append(b, 0xff, 0xfe) // BOM
	b = append(b, 1, 0)       // version
	b = appendU32(b, 28)      // file size
	b = append(b, 16, 0)      // header size
	b = append(b, 1, 0)       // section count
	b = appendU32(b, 20)      // section offset
	b = append(b, "TEX0"...)
	b = appendU32(b, 8) // section size
	return b
}

func appendU32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func TestContainerRoundup(t *testing.T) {
	cont, err := NewFromData(buildContainer())
	if err != nil {
		t.Fatal(err)
	}
	if cont.Stamp != StampBTX0 {
		t.Errorf("stamp = %q; expected BTX0", cont.Stamp)
	}
	if cont.FileSize != 28 {
		t.Errorf("file size = %d; expected 28", cont.FileSize)
	}
	if len(cont.Sections) != 1 {
		t.Fatalf("%d sections; expected 1", len(cont.Sections))
	}
	s, err := cont.Section(StampTEX0)
	if err != nil {
		t.Fatal(err)
	}
	if s.Offset != 20 || s.Size != 8 {
		t.Errorf("section at %d size %d; expected 20, 8", s.Offset, s.Size)
	}
}

var malformedTests = []struct {
	name    string
	mutate  func(b []byte) []byte
	wantOff int
}{
	{"bad stamp", func(b []byte) []byte {
		copy(b, "WXYZ")
		return b
	}, 0},
	{"truncated", func(b []byte) []byte {
		return b[:2]
	}, 0},
	{"bad bom", func(b []byte) []byte {
		b[4], b[5] = 0x12, 0x34
		return b
	}, 4},
	{"file size past buffer", func(b []byte) []byte {
		binary.LittleEndian.PutUint32(b[8:], 9999)
		return b
	}, 8},
	{"bad header size", func(b []byte) []byte {
		b[12] = 20
		return b
	}, 12},
	{"bad section stamp", func(b []byte) []byte {
		copy(b[20:], "QQQ0")
		return b
	}, 20},
	{"section size past buffer", func(b []byte) []byte {
		binary.LittleEndian.PutUint32(b[24:], 1000)
		return b
	}, 24},
}

func TestMalformedContainers(t *testing.T) {
	for _, test := range malformedTests {
		_, err := NewFromData(test.mutate(buildContainer()))
		if err == nil {
			t.Errorf("%s: decoded without error", test.name)
			continue
		}
		malformed, ok := err.(*ErrMalformedContainer)
		if !ok {
			t.Errorf("%s: error %T; expected *ErrMalformedContainer", test.name, err)
			continue
		}
		if malformed.Offset != test.wantOff {
			t.Errorf("%s: error at offset %d; expected %d", test.name, malformed.Offset, test.wantOff)
		}
	}
}

func TestBigEndianContainer(t *testing.T) {
	b := buildContainer()
	b[4], b[5] = 0xfe, 0xff // BOM byte-swapped
	// Rewrite the multibyte fields big endian.
	binary.BigEndian.PutUint32(b[8:], 28)
	b[12], b[13] = 0, 16
	b[14], b[15] = 0, 1
	binary.BigEndian.PutUint32(b[16:], 20)
	b = b[:20]
	b = append(b, "TEX0"...)
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], 8)
	b = append(b, tmp[:]...)

	cont, err := NewFromData(b)
	if err != nil {
		t.Fatal(err)
	}
	if cont.Order != binary.ByteOrder(binary.BigEndian) {
		t.Error("byte order not big endian")
	}
}

func TestSectionNotFound(t *testing.T) {
	cont, err := NewFromData(buildContainer())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cont.Section(StampMDL0); err == nil {
		t.Error("missing section lookup succeeded")
	} else if _, ok := err.(*ErrSectionNotFound); !ok {
		t.Errorf("error %T; expected *ErrSectionNotFound", err)
	}
}

func TestCheckKind(t *testing.T) {
	cont, err := NewFromData(buildContainer())
	if err != nil {
		t.Fatal(err)
	}
	if err := cont.CheckKind(StampBTX0); err != nil {
		t.Errorf("matching kind rejected: %v", err)
	}
	err = cont.CheckKind(StampBMD0)
	if _, ok := err.(*ErrKindMismatch); !ok {
		t.Errorf("error %T; expected *ErrKindMismatch", err)
	}
}
