package protocol

import (
	"bytes"
	"testing"
)

func TestPlanBlockCount(t *testing.T) {
	tests := []struct {
		name      string
		imageLen  int
		blockSize int
		expected  int
	}{
		{"empty image", 0, 1024, 0},
		{"one byte", 1, 1024, 1},
		{"exact fit", 2048, 1024, 2},
		{"one over", 1025, 1024, 2},
		{"reference image", 2500, 1024, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPlan(make([]byte, tt.imageLen), tt.blockSize)
			if got := p.NumBlocks(); got != tt.expected {
				t.Errorf("NumBlocks() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestPlanBlocks(t *testing.T) {
	image := make([]byte, 2500)
	for i := range image {
		image[i] = byte(i)
	}

	p := NewPlan(image, 1024)

	for seq := 0; seq < p.NumBlocks(); seq++ {
		b := p.Block(seq)
		if b.Seq != uint32(seq) {
			t.Errorf("block %d has sequence %d", seq, b.Seq)
		}
		if len(b.Data) != 1024 {
			t.Errorf("block %d is %d bytes, want 1024", seq, len(b.Data))
		}
	}

	// last block: 452 real bytes then erase-value padding
	last := p.Block(2)
	if !bytes.Equal(last.Data[:452], image[2048:]) {
		t.Error("last block does not start with the image remainder")
	}
	for i := 452; i < len(last.Data); i++ {
		if last.Data[i] != EraseValue {
			t.Fatalf("padding byte %d = 0x%02x, want 0x%02x", i, last.Data[i], EraseValue)
		}
	}
}

func TestPlanRestartable(t *testing.T) {
	image := []byte{1, 2, 3}
	p := NewPlan(image, 2)

	a := p.Block(1)
	b := p.Block(1)
	if !bytes.Equal(a.Data, b.Data) {
		t.Error("re-reading a block changed its contents")
	}
	if !bytes.Equal(image, []byte{1, 2, 3}) {
		t.Error("planning mutated the source image")
	}
}

func TestPlanEraseSize(t *testing.T) {
	p := NewPlan(make([]byte, 2500), 1024)
	if got := p.EraseSize(); got != 3*1024 {
		t.Errorf("EraseSize() = %d, want %d", got, 3*1024)
	}
}
