package protocol

import (
	"testing"

	"github.com/pkg/errors"
)

func TestLookupAddress(t *testing.T) {
	a, err := LookupAddress("Application")
	if err != nil {
		t.Fatalf("LookupAddress() error: %v", err)
	}
	if a.Offset != 0x10000 {
		t.Errorf("Application offset = 0x%x, want 0x10000", a.Offset)
	}

	if _, err := LookupAddress("Backup"); !errors.Is(err, ErrUnknownAddress) {
		t.Errorf("error = %v, want ErrUnknownAddress", err)
	}
}

func TestParseCustomOffset(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected uint32
		wantErr  bool
	}{
		{name: "prefixed", in: "0x8000", expected: 0x8000},
		{name: "uppercase prefix", in: "0X10000", expected: 0x10000},
		{name: "bare hex", in: "1000", expected: 0x1000},
		{name: "zero", in: "0x0", expected: 0},
		{name: "surrounding whitespace", in: " 0x8000 ", expected: 0x8000},
		{name: "garbage", in: "zz", wantErr: true},
		{name: "empty", in: "", wantErr: true},
		{name: "prefix only", in: "0x", wantErr: true},
		{name: "negative", in: "-0x10", wantErr: true},
		{name: "over 32 bits", in: "0x100000000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCustomOffset(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseCustomOffset(%q) = 0x%x, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCustomOffset(%q) error: %v", tt.in, err)
			}
			if got != tt.expected {
				t.Errorf("ParseCustomOffset(%q) = 0x%x, want 0x%x", tt.in, got, tt.expected)
			}
		})
	}
}

func TestSniffChip(t *testing.T) {
	tests := []struct {
		name     string
		image    []byte
		expected ChipID
	}{
		{"esp32 magic", []byte{0xe9, 0x01}, ChipESP32},
		{"esp32-s3 magic 0x0c", []byte{0x0c}, ChipESP32S3},
		{"esp32-s3 magic 0x09", []byte{0x09}, ChipESP32S3},
		{"esp8266 magic", []byte{0x2f}, ChipESP8266},
		{"unknown magic", []byte{0x42}, ChipUnknown},
		{"empty image", nil, ChipUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SniffChip(tt.image); got != tt.expected {
				t.Errorf("SniffChip() = %v, want %v", got, tt.expected)
			}
		})
	}
}
