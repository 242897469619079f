package nitro

import "fmt"

// ErrMalformedContainer rejects a buffer whose envelope is wrong: bad
// stamp, bad byte-order mark, declared sizes that disagree with the
// buffer, or a section pointer that lands outside its owner.
type ErrMalformedContainer struct {
	Offset   int
	Expected string
	Found    string
}

func (e *ErrMalformedContainer) Error() string {
	return fmt.Sprintf("malformed container at offset 0x%x: expected %s, found %s",
		e.Offset, e.Expected, e.Found)
}

// ErrSectionNotFound distinguishes "this valid container simply has no
// such section" from corruption.
type ErrSectionNotFound struct {
	Stamp string
}

func (e *ErrSectionNotFound) Error() string {
	return fmt.Sprintf("no %s section in container", e.Stamp)
}

// ErrKindMismatch is returned when the caller claims a file kind and
// the container's own stamp disagrees.
type ErrKindMismatch struct {
	Claimed string
	Found   string
}

func (e *ErrKindMismatch) Error() string {
	return fmt.Sprintf("caller claimed %s but container stamp is %s", e.Claimed, e.Found)
}

// ErrUnsupportedFormat marks a recognized but unimplemented encoding,
// eg. an unknown texture format code.
type ErrUnsupportedFormat struct {
	What  string
	Value uint32
}

func (e *ErrUnsupportedFormat) Error() string {
	return fmt.Sprintf("unsupported %s %d", e.What, e.Value)
}
