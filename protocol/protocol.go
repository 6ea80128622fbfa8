// Package protocol implements the command layer of the ESP ROM serial
// bootloader: command framing, response parsing, checksumming, firmware
// block planning and the flash address catalog.
package protocol

// ROM bootloader opcodes.
const (
	OpFlashBegin byte = 0x02
	OpFlashData  byte = 0x03
	OpFlashEnd   byte = 0x04
	OpMemBegin   byte = 0x05
	OpMemEnd     byte = 0x06
	OpMemData    byte = 0x07
	OpSync       byte = 0x08
	OpWriteReg   byte = 0x09
	OpReadReg    byte = 0x0a
	OpSpiAttach  byte = 0x0d
	OpChangeBaud byte = 0x0f
)

// Direction byte of the command header.
const (
	DirRequest  byte = 0x00
	DirResponse byte = 0x01
)

// Flash geometry.
const (
	// FlashBlockSize is the payload size of one flash-data command.
	FlashBlockSize = 0x400

	// FlashSectorSize is the smallest erasable unit.
	FlashSectorSize = 0x1000

	// EraseValue is what unprogrammed NOR flash reads back as; the
	// final short block is padded with it so a verify-by-read of the
	// padding matches the device.
	EraseValue byte = 0xff
)

// ChecksumSeed is the initial value of the flash-data payload checksum.
const ChecksumSeed byte = 0xef

// Checksum will fold the payload into the XOR checksum the loader
// expects on flash-data commands. Every other command carries zero.
func Checksum(p []byte) byte {
	s := ChecksumSeed
	for _, b := range p {
		s ^= b
	}
	return s
}
