package nitro

import (
	"github.com/pkg/errors"

	"github.com/scurest/apicula/utils"
)

// InfoRecord pairs one datum from an info block with its name. The
// datum is usually an offset to a struct elsewhere in the section.
type InfoRecord struct {
	Name Name
	Data *utils.BufStack
}

func (r InfoRecord) U32() uint32 { return r.Data.U32(0) }
func (r InfoRecord) U16() uint16 { return r.Data.U16(0) }

// ReadInfoBlock reads the header/data/names triple that every resource
// listing in a Nitro section uses. datumSize is the caller's expected
// record size and must match the block's own declaration.
func ReadInfoBlock(bs *utils.BufStack, datumSize int) ([]InfoRecord, error) {
	dummy := bs.ReadByte()
	count := int(bs.ReadByte())
	bs.Skip(2) // header size

	// Unknown subheader: 8 fixed bytes then a u32 per record.
	bs.Skip(8 + 4*count)

	sizeOfDatum := int(bs.ReadU16())
	bs.Skip(2) // data section size

	if err := bs.Err(); err != nil {
		return nil, errors.Wrap(err, "truncated info block")
	}
	if dummy != 0 {
		return nil, errors.Errorf("info block leading byte is 0x%x, want 0", dummy)
	}
	if sizeOfDatum != datumSize {
		return nil, errors.Errorf("info block datum size is %d, want %d", sizeOfDatum, datumSize)
	}

	records := make([]InfoRecord, count)
	for i := range records {
		records[i].Data = bs.SubBuf("datum", bs.Pos()).SetSize(datumSize)
		bs.Skip(datumSize)
	}
	for i := range records {
		records[i].Name = ReadName(bs)
	}
	if err := bs.Err(); err != nil {
		return nil, errors.Wrap(err, "truncated info block")
	}
	return records, nil
}
