package protocol

// ChipID classifies the chip family a firmware image was built for,
// inferred from the image magic byte. Advisory only; it never gates the
// flashing protocol.
type ChipID int

const (
	ChipUnknown ChipID = iota
	ChipESP32
	ChipESP32S3
	ChipESP8266
)

func (c ChipID) String() string {
	switch c {
	case ChipESP32:
		return "ESP32"
	case ChipESP32S3:
		return "ESP32-S3"
	case ChipESP8266:
		return "ESP8266"
	default:
		return "Unknown"
	}
}

// SniffChip will guess the chip family from the first byte of a
// firmware image.
func SniffChip(image []byte) ChipID {
	if len(image) == 0 {
		return ChipUnknown
	}

	switch image[0] {
	case 0xe9:
		return ChipESP32
	case 0x0c, 0x09:
		return ChipESP32S3
	case 0x2f:
		return ChipESP8266
	default:
		return ChipUnknown
	}
}
