package nitro

import (
	"github.com/scurest/apicula/utils"
)

const NameLength = 16

// Name is the sixteen-byte NUL-padded string used to label models,
// materials, textures and animation targets inside the containers.
type Name [NameLength]byte

func ReadName(bs *utils.BufStack) Name {
	var n Name
	copy(n[:], bs.Read(NameLength))
	return n
}

func NameFromString(s string) Name {
	var n Name
	copy(n[:], s)
	return n
}

func (n Name) String() string {
	return utils.BytesToString(n[:])
}

// SafeString renders the name as a non-empty identifier of letters,
// digits and underscores, usable in file names and scene-node ids.
func (n Name) SafeString() string {
	trimmed := n[:utils.BytesStringLength(n[:])]
	if len(trimmed) == 0 {
		return "_"
	}
	out := make([]byte, len(trimmed))
	for i, b := range trimmed {
		isLetterOrDigit := (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
		if isLetterOrDigit {
			out[i] = b
		} else {
			out[i] = '_'
		}
	}
	return string(out)
}
