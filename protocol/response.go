package protocol

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

var (
	ErrShortResponse   = errors.New("response frame shorter than header")
	ErrNotResponse     = errors.New("frame direction is not a response")
	ErrTruncatedStatus = errors.New("response data too short for status")
)

// Response is a parsed bootloader reply.
type Response struct {
	Opcode byte
	Value  uint32
	Data   []byte

	// Status and Code are the trailing status pair of the data field.
	// Status zero means the command succeeded; Code carries the ROM
	// error reason otherwise.
	Status byte
	Code   byte
}

// Success reports whether the loader accepted the command.
func (r *Response) Success() bool {
	return r.Status == 0
}

// ParseResponse will decode an unframed reply. Every reply carries the
// request header layout with the checksum field repurposed as a 32-bit
// value register, followed by data whose last two bytes are the status
// pair.
func ParseResponse(frame []byte) (*Response, error) {
	if len(frame) < headerSize {
		return nil, errors.Wrapf(ErrShortResponse, "%d bytes", len(frame))
	}
	if frame[0] != DirResponse {
		return nil, errors.Wrapf(ErrNotResponse, "direction 0x%02x", frame[0])
	}

	r := &Response{
		Opcode: frame[1],
		Value:  binary.LittleEndian.Uint32(frame[4:8]),
		Data:   frame[headerSize:],
	}

	size := int(binary.LittleEndian.Uint16(frame[2:4]))
	if size > len(r.Data) {
		size = len(r.Data)
	}

	if size < 2 {
		return nil, ErrTruncatedStatus
	}
	r.Status = r.Data[size-2]
	r.Code = r.Data[size-1]

	return r, nil
}
