package protocol

import (
	"encoding/binary"

	"github.com/jinni2k/esp32-usb-flasher/slip"
)

const headerSize = 8

// BuildCommand will serialize a request header and payload and frame it
// for the wire. The header is direction, opcode, little-endian 16-bit
// payload length and little-endian 32-bit checksum.
func BuildCommand(op byte, payload []byte, checksum uint32) []byte {
	pkt := make([]byte, headerSize+len(payload))
	pkt[0] = DirRequest
	pkt[1] = op
	binary.LittleEndian.PutUint16(pkt[2:4], uint16(len(payload)))
	binary.LittleEndian.PutUint32(pkt[4:8], checksum)
	copy(pkt[headerSize:], payload)

	return slip.Encode(pkt)
}

// SyncCommand will build the sync probe: four magic bytes followed by
// 32 bytes of 0x55 line-training filler.
func SyncCommand() []byte {
	payload := make([]byte, 36)
	copy(payload, []byte{0x07, 0x07, 0x12, 0x20})
	for i := 4; i < len(payload); i++ {
		payload[i] = 0x55
	}
	return BuildCommand(OpSync, payload, 0)
}

// FlashBeginCommand will build the erase/prepare command that opens a
// write of numBlocks blocks of blockSize bytes at offset.
func FlashBeginCommand(eraseSize, numBlocks, blockSize, offset uint32) []byte {
	payload := make([]byte, 16)
	binary.LittleEndian.PutUint32(payload[0:4], eraseSize)
	binary.LittleEndian.PutUint32(payload[4:8], numBlocks)
	binary.LittleEndian.PutUint32(payload[8:12], blockSize)
	binary.LittleEndian.PutUint32(payload[12:16], offset)
	return BuildCommand(OpFlashBegin, payload, 0)
}

// FlashDataCommand will build the data command for one block. The data
// length and sequence number are followed by eight reserved bytes and
// the block itself; the checksum covers only the block data.
func FlashDataCommand(b FlashBlock) []byte {
	payload := make([]byte, 16+len(b.Data))
	binary.LittleEndian.PutUint32(payload[0:4], uint32(len(b.Data)))
	binary.LittleEndian.PutUint32(payload[4:8], b.Seq)
	copy(payload[16:], b.Data)
	return BuildCommand(OpFlashData, payload, uint32(Checksum(b.Data)))
}

// FlashEndCommand will build the command that closes the write. The
// field selects whether the target reboots into the new image or stays
// in the bootloader.
func FlashEndCommand(reboot bool) []byte {
	payload := make([]byte, 4)
	if !reboot {
		binary.LittleEndian.PutUint32(payload, 1)
	}
	return BuildCommand(OpFlashEnd, payload, 0)
}

// SpiAttachCommand will build the command that attaches the default SPI
// flash interface.
func SpiAttachCommand() []byte {
	return BuildCommand(OpSpiAttach, make([]byte, 8), 0)
}

// ChangeBaudCommand will build the baud negotiation command. The second
// field is the current rate, zero when talking to the ROM loader.
func ChangeBaudCommand(rate uint32) []byte {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint32(payload[0:4], rate)
	return BuildCommand(OpChangeBaud, payload, 0)
}
