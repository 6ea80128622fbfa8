package slip

// Scanner extracts complete frames from an incoming byte stream. Bytes
// between frames are discarded, so the scanner recovers from boot noise
// and partial frames on its own.
type Scanner struct {
	buf     []byte
	inFrame bool
}

// Feed will consume the next chunk of raw bytes and return the decoded
// payload of every frame completed by it, in arrival order.
func (s *Scanner) Feed(p []byte) [][]byte {
	var frames [][]byte

	for _, b := range p {
		if b != End {
			if s.inFrame {
				s.buf = append(s.buf, b)
			}
			continue
		}

		if !s.inFrame {
			s.inFrame = true
			s.buf = s.buf[:0]
			continue
		}

		if len(s.buf) == 0 {
			// back-to-back END bytes, stay in frame
			continue
		}

		frames = append(frames, Decode(s.buf))
		s.inFrame = false
		s.buf = s.buf[:0]
	}

	return frames
}

// Reset will drop any partially accumulated frame.
func (s *Scanner) Reset() {
	s.inFrame = false
	s.buf = s.buf[:0]
}
