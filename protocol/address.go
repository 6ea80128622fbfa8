package protocol

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// FlashAddress is a named flash region of the conventional ESP32
// partition layout.
type FlashAddress struct {
	Name        string
	Offset      uint32
	Description string
}

// CustomAddressName is the catalog entry whose offset comes from the
// caller instead of the catalog.
const CustomAddressName = "Custom"

// Addresses is the catalog of well-known flash regions.
var Addresses = []FlashAddress{
	{Name: "Bootloader", Offset: 0x1000, Description: "second stage bootloader"},
	{Name: "PartitionTable", Offset: 0x8000, Description: "partition table"},
	{Name: "NVS", Offset: 0x9000, Description: "non-volatile storage"},
	{Name: "OTAData", Offset: 0xe000, Description: "OTA data partition"},
	{Name: "Application", Offset: 0x10000, Description: "application firmware"},
	{Name: CustomAddressName, Offset: 0, Description: "caller supplied offset"},
}

var ErrUnknownAddress = errors.New("unknown flash address name")

// LookupAddress will resolve a symbolic region name from the catalog.
func LookupAddress(name string) (FlashAddress, error) {
	for _, a := range Addresses {
		if a.Name == name {
			return a, nil
		}
	}
	return FlashAddress{}, errors.Wrap(ErrUnknownAddress, name)
}

// ParseCustomOffset will parse a hexadecimal flash offset as typed by a
// user, with or without a leading 0x prefix. Invalid input is rejected
// rather than defaulted.
func ParseCustomOffset(s string) (uint32, error) {
	t := strings.TrimSpace(s)
	if len(t) >= 2 && (t[:2] == "0x" || t[:2] == "0X") {
		t = t[2:]
	}

	v, err := strconv.ParseUint(t, 16, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid flash offset %q", s)
	}
	return uint32(v), nil
}
