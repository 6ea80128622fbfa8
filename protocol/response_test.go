package protocol

import (
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
)

// responseFrame builds an unframed loader reply for tests.
func responseFrame(op byte, value uint32, data []byte) []byte {
	frame := make([]byte, 8+len(data))
	frame[0] = DirResponse
	frame[1] = op
	binary.LittleEndian.PutUint16(frame[2:4], uint16(len(data)))
	binary.LittleEndian.PutUint32(frame[4:8], value)
	copy(frame[8:], data)
	return frame
}

func TestParseResponse(t *testing.T) {
	t.Run("success status", func(t *testing.T) {
		r, err := ParseResponse(responseFrame(OpSync, 0, []byte{0x00, 0x00}))
		if err != nil {
			t.Fatalf("ParseResponse() error: %v", err)
		}
		if r.Opcode != OpSync {
			t.Errorf("opcode = 0x%02x", r.Opcode)
		}
		if !r.Success() {
			t.Error("expected success status")
		}
	})

	t.Run("failure status and code", func(t *testing.T) {
		r, err := ParseResponse(responseFrame(OpFlashData, 0, []byte{0x01, 0x08}))
		if err != nil {
			t.Fatalf("ParseResponse() error: %v", err)
		}
		if r.Success() {
			t.Error("expected failure status")
		}
		if r.Code != 0x08 {
			t.Errorf("error code = 0x%02x, want 0x08", r.Code)
		}
	})

	t.Run("value register", func(t *testing.T) {
		r, err := ParseResponse(responseFrame(OpReadReg, 0x00f01d83, []byte{0x00, 0x00}))
		if err != nil {
			t.Fatalf("ParseResponse() error: %v", err)
		}
		if r.Value != 0x00f01d83 {
			t.Errorf("value = 0x%08x", r.Value)
		}
	})

	t.Run("short frame", func(t *testing.T) {
		if _, err := ParseResponse([]byte{0x01, 0x08}); !errors.Is(err, ErrShortResponse) {
			t.Errorf("error = %v, want ErrShortResponse", err)
		}
	})

	t.Run("request direction rejected", func(t *testing.T) {
		frame := responseFrame(OpSync, 0, []byte{0x00, 0x00})
		frame[0] = DirRequest
		if _, err := ParseResponse(frame); !errors.Is(err, ErrNotResponse) {
			t.Errorf("error = %v, want ErrNotResponse", err)
		}
	})

	t.Run("missing status pair", func(t *testing.T) {
		if _, err := ParseResponse(responseFrame(OpSync, 0, []byte{0x00})); !errors.Is(err, ErrTruncatedStatus) {
			t.Errorf("error = %v, want ErrTruncatedStatus", err)
		}
	})
}
