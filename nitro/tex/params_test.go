package tex

import "testing"

func TestParams(t *testing.T) {
	// offset 8, repeat S, mirror T, 32x64, palette16, color 0
	// transparent
	p := Params(1 | 1<<16 | 1<<19 | 2<<20 | 3<<23 | 3<<26 | 1<<29)

	if got := p.Offset(); got != 8 {
		t.Errorf("Offset() = %d; expected 8", got)
	}
	if !p.RepeatS() || p.RepeatT() {
		t.Errorf("repeat = %v,%v; expected true,false", p.RepeatS(), p.RepeatT())
	}
	if p.MirrorS() || !p.MirrorT() {
		t.Errorf("mirror = %v,%v; expected false,true", p.MirrorS(), p.MirrorT())
	}
	if got := p.Width(); got != 32 {
		t.Errorf("Width() = %d; expected 32", got)
	}
	if got := p.Height(); got != 64 {
		t.Errorf("Height() = %d; expected 64", got)
	}
	if got := p.Format(); got != FormatPalette16 {
		t.Errorf("Format() = %d; expected %d", got, FormatPalette16)
	}
	if !p.IsColor0Transparent() {
		t.Error("IsColor0Transparent() = false; expected true")
	}
}

func TestFormatDesc(t *testing.T) {
	tests := []struct {
		format          Format
		requiresPalette bool
		byteLen         int // for 8x8
	}{
		{FormatA3I5, true, 64},
		{FormatPalette4, true, 16},
		{FormatPalette16, true, 32},
		{FormatPalette256, true, 64},
		{FormatCompressed, true, 16},
		{FormatA5I3, true, 64},
		{FormatDirect, false, 128},
	}
	for _, test := range tests {
		desc := test.format.Desc()
		if desc.RequiresPalette != test.requiresPalette {
			t.Errorf("%s: RequiresPalette = %v; expected %v",
				desc.Name, desc.RequiresPalette, test.requiresPalette)
		}
		if got := test.format.ByteLen(8, 8); got != test.byteLen {
			t.Errorf("%s: ByteLen(8,8) = %d; expected %d",
				desc.Name, got, test.byteLen)
		}
	}
}
