package gpu

// IndexBuilder consumes vertex-list primitive groups and produces a
// flat triangle index buffer. It only cares about topology; vertices
// are tracked as running indices into a buffer kept elsewhere.
type IndexBuilder struct {
	Indices []uint16

	primType uint32
	start    uint16
	end      uint16
}

func NewIndexBuilder() *IndexBuilder {
	return &IndexBuilder{}
}

// Begin opens a new primitive group, closing any previous one.
func (ib *IndexBuilder) Begin(primType uint32) {
	ib.End()
	ib.primType = primType
	ib.start = ib.end
}

// Vertex appends the next vertex to the open group.
func (ib *IndexBuilder) Vertex() {
	ib.end++
}

// End closes the open group and emits its triangles. Strips alternate
// winding per the even/odd parity rule; quads split along the 0-2
// diagonal so both exporters triangulate identically.
func (ib *IndexBuilder) End() {
	start, end := ib.start, ib.end
	if start == end {
		return
	}

	switch ib.primType {
	case PrimTriangles:
		//    0      5
		//   / \    / \
		//  1---2  3---4
		for i := start; i+2 < end; i += 3 {
			ib.Indices = append(ib.Indices, i, i+1, i+2)
		}

	case PrimQuads:
		//  0---3  6---5
		//  |   |  |   |
		//  1---2  7---4
		for i := start; i+3 < end; i += 4 {
			ib.Indices = append(ib.Indices,
				i, i+1, i+2,
				i+2, i+3, i,
			)
		}

	case PrimTriangleStrip:
		//  0---2---4
		//   \ / \ / \
		//    1---3---5
		odd := false
		for i := start; i+2 < end; i++ {
			if odd {
				ib.Indices = append(ib.Indices, i, i+2, i+1)
			} else {
				ib.Indices = append(ib.Indices, i, i+1, i+2)
			}
			odd = !odd
		}

	case PrimQuadStrip:
		//  0---2---4
		//  |   |   |
		//  1---3---5
		for i := start; i+3 < end; i += 2 {
			ib.Indices = append(ib.Indices,
				i, i+1, i+2,
				i+2, i+1, i+3,
			)
		}
	}

	ib.start = ib.end
}
