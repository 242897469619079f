package gpu

import "fmt"

// Fault is a fatal interpreter error: an unknown or truncated command,
// or a matrix stack over/underflow. Interpretation never returns
// partial geometry after a fault.
type Fault struct {
	Opcode byte
	Reason string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("interpreter fault on opcode 0x%02x: %s", f.Opcode, f.Reason)
}
