package gpu

import (
	"reflect"
	"testing"
)

var indexTests = []struct {
	name     string
	primType uint32
	numVerts int
	want     []uint16
}{
	{"triangles", PrimTriangles, 6, []uint16{0, 1, 2, 3, 4, 5}},
	{"triangles partial", PrimTriangles, 5, []uint16{0, 1, 2}},
	{"quads", PrimQuads, 8, []uint16{0, 1, 2, 2, 3, 0, 4, 5, 6, 6, 7, 4}},
	{"tristrip parity", PrimTriangleStrip, 5, []uint16{0, 1, 2, 1, 3, 2, 2, 3, 4}},
	{"quadstrip", PrimQuadStrip, 6, []uint16{0, 1, 2, 2, 1, 3, 2, 3, 4, 4, 3, 5}},
	{"empty", PrimTriangles, 0, nil},
}

func TestIndexBuilder(t *testing.T) {
	for _, test := range indexTests {
		ib := NewIndexBuilder()
		ib.Begin(test.primType)
		for i := 0; i < test.numVerts; i++ {
			ib.Vertex()
		}
		ib.End()
		if !reflect.DeepEqual(ib.Indices, test.want) {
			t.Errorf("%s: indices = %v; expected %v", test.name, ib.Indices, test.want)
		}
	}
}

// A Begin closes the previous group, and later groups index past the
// vertices of earlier ones.
func TestIndexBuilderGroups(t *testing.T) {
	ib := NewIndexBuilder()
	ib.Begin(PrimTriangles)
	for i := 0; i < 3; i++ {
		ib.Vertex()
	}
	ib.Begin(PrimQuads)
	for i := 0; i < 4; i++ {
		ib.Vertex()
	}
	ib.End()

	want := []uint16{0, 1, 2, 3, 4, 5, 5, 6, 3}
	if !reflect.DeepEqual(ib.Indices, want) {
		t.Errorf("indices = %v; expected %v", ib.Indices, want)
	}
}

func TestIndexBuilderDoubleEnd(t *testing.T) {
	ib := NewIndexBuilder()
	ib.Begin(PrimTriangles)
	for i := 0; i < 3; i++ {
		ib.Vertex()
	}
	ib.End()
	ib.End()
	want := []uint16{0, 1, 2}
	if !reflect.DeepEqual(ib.Indices, want) {
		t.Errorf("indices = %v; expected %v", ib.Indices, want)
	}
}
