package protocol

import (
	"math/rand"
	"testing"
)

func TestChecksum(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected byte
	}{
		{
			name:     "empty payload is the seed",
			data:     []byte{},
			expected: 0xef,
		},
		{
			name:     "single byte",
			data:     []byte{0x01},
			expected: 0xee,
		},
		{
			name:     "self cancelling pairs",
			data:     []byte{0xaa, 0xaa, 0x55, 0x55},
			expected: 0xef,
		},
		{
			name:     "all erase value",
			data:     []byte{0xff, 0xff, 0xff},
			expected: 0x10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.data); got != tt.expected {
				t.Errorf("Checksum() = 0x%02x, want 0x%02x", got, tt.expected)
			}
		})
	}
}

func TestChecksumOrderInvariant(t *testing.T) {
	data := make([]byte, 64)
	rand.New(rand.NewSource(1)).Read(data)
	want := Checksum(data)

	shuffled := append([]byte{}, data...)
	rand.New(rand.NewSource(2)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if got := Checksum(shuffled); got != want {
		t.Errorf("Checksum changed under permutation: 0x%02x != 0x%02x", got, want)
	}
}
