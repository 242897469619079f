package utils

import (
	"encoding/binary"
	"fmt"
	"math"
)

// BufStack is a cursor over a slice of a larger file. Children remember
// their offset inside the parent so errors can report absolute file
// positions. Reads are bounds checked; the first failed read latches an
// error and every later read returns zero, so parsing code can run a
// whole record and check Err once at the end.
type BufStack struct {
	parent         *BufStack
	buf            []byte
	relativeOffset int
	absoluteOffset int
	size           int
	pos            int
	kind           string
	name           string
	order          binary.ByteOrder
	err            error
}

func NewBufStack(kind string, b []byte) *BufStack {
	return &BufStack{
		buf:   b,
		size:  len(b),
		kind:  kind,
		order: binary.LittleEndian,
	}
}

func (bs *BufStack) SubBuf(kind string, offset int) *BufStack {
	childBs := &BufStack{
		parent:         bs,
		relativeOffset: offset,
		absoluteOffset: bs.absoluteOffset + offset,
		kind:           kind,
		order:          bs.order,
	}
	if offset < 0 || offset > len(bs.buf) {
		childBs.err = fmt.Errorf("offset 0x%x outside %v", offset, bs)
		return childBs
	}
	childBs.buf = bs.buf[offset:]
	childBs.size = len(childBs.buf)
	return childBs
}

func (bs *BufStack) SetName(name string) *BufStack {
	bs.name = name
	return bs
}

func (bs *BufStack) SetSize(size int) *BufStack {
	if size < 0 || size > len(bs.buf) {
		bs.fail("size 0x%x outside buffer of 0x%x", size, len(bs.buf))
		return bs
	}
	bs.size = size
	bs.buf = bs.buf[:size]
	return bs
}

func (bs *BufStack) SetByteOrder(order binary.ByteOrder) *BufStack {
	bs.order = order
	return bs
}

func (bs *BufStack) ByteOrder() binary.ByteOrder { return bs.order }

func (bs *BufStack) Name() string        { return bs.name }
func (bs *BufStack) Size() int           { return bs.size }
func (bs *BufStack) Kind() string        { return bs.kind }
func (bs *BufStack) Parent() *BufStack   { return bs.parent }
func (bs *BufStack) RelativeOffset() int { return bs.relativeOffset }
func (bs *BufStack) AbsoluteOffset() int { return bs.absoluteOffset }
func (bs *BufStack) Pos() int            { return bs.pos }
func (bs *BufStack) Remaining() int      { return bs.size - bs.pos }

func (bs *BufStack) String() string {
	return fmt.Sprintf("buf<%v>(%v)[o:0x%x,s:0x%x,ao:0x%x,ae:0x%x]",
		bs.kind, bs.name, bs.relativeOffset, bs.size, bs.absoluteOffset, bs.absoluteOffset+bs.size)
}

func (bs *BufStack) StringChain() string {
	s := bs.String()
	if bs.parent != nil {
		s += fmt.Sprintf("::%s", bs.parent.String())
	}
	return s
}

func (bs *BufStack) fail(format string, args ...interface{}) {
	if bs.err == nil {
		bs.err = fmt.Errorf(format+" in %v", append(args, bs.StringChain())...)
	}
}

// Err reports the first read that ran past the buffer, or a parent's
// latched error if this cursor was created from a bad offset.
func (bs *BufStack) Err() error {
	return bs.err
}

func (bs *BufStack) Raw() []byte {
	if bs.err != nil {
		return nil
	}
	return bs.buf[:bs.size]
}

func (bs *BufStack) Read(amount int) []byte {
	if bs.err != nil {
		return make([]byte, amount)
	}
	if amount < 0 || bs.pos+amount > bs.size {
		bs.fail("read of 0x%x bytes at 0x%x past end", amount, bs.pos)
		return make([]byte, amount)
	}
	oldPos := bs.pos
	bs.pos += amount
	return bs.buf[oldPos:bs.pos]
}

func (bs *BufStack) Skip(amount int) {
	if bs.err != nil {
		return
	}
	if bs.pos+amount > bs.size {
		bs.fail("skip of 0x%x bytes at 0x%x past end", amount, bs.pos)
		return
	}
	bs.pos += amount
}

func (bs *BufStack) SetPos(pos int) {
	if bs.err != nil {
		return
	}
	if pos < 0 || pos > bs.size {
		bs.fail("seek to 0x%x past end", pos)
		return
	}
	bs.pos = pos
}

func (bs *BufStack) ReadU64() uint64 {
	return bs.order.Uint64(bs.Read(8))
}

func (bs *BufStack) ReadU32() uint32 {
	return bs.order.Uint32(bs.Read(4))
}

func (bs *BufStack) ReadU16() uint16 {
	return bs.order.Uint16(bs.Read(2))
}

func (bs *BufStack) ReadByte() byte {
	return bs.Read(1)[0]
}

func (bs *BufStack) ReadF() float32 {
	return math.Float32frombits(bs.ReadU32())
}

func (bs *BufStack) ReadStringBuffer(size int) string {
	return BytesToString(bs.Read(size))
}

func (bs *BufStack) U64(off int) uint64 {
	if !bs.check(off, 8) {
		return 0
	}
	return bs.order.Uint64(bs.buf[off:])
}

func (bs *BufStack) U32(off int) uint32 {
	if !bs.check(off, 4) {
		return 0
	}
	return bs.order.Uint32(bs.buf[off:])
}

func (bs *BufStack) U16(off int) uint16 {
	if !bs.check(off, 2) {
		return 0
	}
	return bs.order.Uint16(bs.buf[off:])
}

func (bs *BufStack) Byte(off int) byte {
	if !bs.check(off, 1) {
		return 0
	}
	return bs.buf[off]
}

func (bs *BufStack) check(off, amount int) bool {
	if bs.err != nil {
		return false
	}
	if off < 0 || off+amount > bs.size {
		bs.fail("access of 0x%x bytes at 0x%x past end", amount, off)
		return false
	}
	return true
}
