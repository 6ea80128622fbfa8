// Package slip implements the SLIP byte framing used by the ESP ROM
// bootloader serial protocol.
package slip

// SLIP reserved bytes.
const (
	End    byte = 0xc0
	Esc    byte = 0xdb
	EscEnd byte = 0xdc
	EscEsc byte = 0xdd
)

// Encode will wrap the payload in END markers and escape any literal
// END or ESC bytes inside it.
func Encode(p []byte) []byte {
	out := make([]byte, 0, len(p)+2)
	out = append(out, End)

	for _, b := range p {
		switch b {
		case End:
			out = append(out, Esc, EscEnd)
		case Esc:
			out = append(out, Esc, EscEsc)
		default:
			out = append(out, b)
		}
	}

	return append(out, End)
}

// Decode will strip END markers and unescape the payload. An escape byte
// followed by anything other than the two recognized escape codes is
// dropped so that decoding can resynchronize on a noisy line.
func Decode(p []byte) []byte {
	out := make([]byte, 0, len(p))
	escaped := false

	for _, b := range p {
		if escaped {
			switch b {
			case EscEnd:
				out = append(out, End)
			case EscEsc:
				out = append(out, Esc)
			}
			escaped = false
			continue
		}

		switch b {
		case End:
			// frame marker, never part of the payload
		case Esc:
			escaped = true
		default:
			out = append(out, b)
		}
	}

	return out
}
