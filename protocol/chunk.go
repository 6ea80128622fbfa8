package protocol

// FlashBlock is one fixed-size slice of the firmware image, sent as a
// single flash-data command.
type FlashBlock struct {
	Seq  uint32
	Data []byte
}

// Plan splits a firmware image into fixed-size blocks. Blocks are cut
// on demand and the plan can be walked any number of times; the image
// is never mutated.
type Plan struct {
	image     []byte
	blockSize int
}

// NewPlan will create a block plan for the image. A blockSize of zero
// or less falls back to FlashBlockSize.
func NewPlan(image []byte, blockSize int) *Plan {
	if blockSize <= 0 {
		blockSize = FlashBlockSize
	}
	return &Plan{image: image, blockSize: blockSize}
}

// BlockSize returns the size every block is padded to.
func (p *Plan) BlockSize() int {
	return p.blockSize
}

// ImageSize returns the unpadded length of the source image.
func (p *Plan) ImageSize() int {
	return len(p.image)
}

// NumBlocks returns how many blocks the image splits into.
func (p *Plan) NumBlocks() int {
	return (len(p.image) + p.blockSize - 1) / p.blockSize
}

// EraseSize returns the number of bytes the device must erase before
// the write, the padded image length.
func (p *Plan) EraseSize() uint32 {
	return uint32(p.NumBlocks() * p.blockSize)
}

// Block will cut block seq out of the image. Full blocks alias the
// image directly; the final short block is copied into a fresh buffer
// and padded to size with the flash erase value.
func (p *Plan) Block(seq int) FlashBlock {
	start := seq * p.blockSize
	end := start + p.blockSize

	if end <= len(p.image) {
		return FlashBlock{Seq: uint32(seq), Data: p.image[start:end]}
	}

	data := make([]byte, p.blockSize)
	n := copy(data, p.image[start:])
	for i := n; i < len(data); i++ {
		data[i] = EraseValue
	}
	return FlashBlock{Seq: uint32(seq), Data: data}
}
