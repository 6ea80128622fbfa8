package flash

import (
	"time"

	"github.com/jinni2k/esp32-usb-flasher/protocol"
)

var (
	DefaultDetectBaud = 115200

	DefaultSyncAttempts    = 10
	DefaultSyncTimeout     = 500 * time.Millisecond
	DefaultSyncRetryDelay  = 100 * time.Millisecond
	DefaultResponseTimeout = 5 * time.Second
	DefaultEraseTimeout    = 20 * time.Second
	DefaultSettleDelay     = 50 * time.Millisecond
	DefaultInterBlockDelay = 5 * time.Millisecond

	DefaultSyncEchoReads   = 8
	DefaultSyncEchoTimeout = 100 * time.Millisecond
)

// readChunkSize is how many buffered bytes a session pulls from the
// transport per read while scanning for frames.
const readChunkSize = 512

// Config defines how a session talks to the target. The zero value is
// usable; every field falls back to a sensible default.
type Config struct {
	// Port is the serial device to open. Ignored when Transport is set.
	Port string

	// Transport overrides serial port opening, for callers that bring
	// their own link. The session takes ownership and closes it.
	Transport Transport

	// DetectBaud is the rate used for bootloader detection and sync.
	DetectBaud int

	// WriteBaud, when non zero and different from DetectBaud, is
	// negotiated with the loader after sync for the bulk write.
	WriteBaud int

	// BlockSize is the flash-data payload size.
	BlockSize int

	SyncAttempts    int
	SyncTimeout     time.Duration
	SyncRetryDelay  time.Duration
	ResponseTimeout time.Duration

	// SyncEchoReads and SyncEchoTimeout bound the drain of stale sync
	// echoes after the loader first answers.
	SyncEchoReads   int
	SyncEchoTimeout time.Duration

	// EraseTimeout bounds the flash-begin response; erasing large
	// regions is slow.
	EraseTimeout time.Duration

	// SettleDelay is applied after erase and after flash-end.
	SettleDelay time.Duration

	// InterBlockDelay is applied between consecutive data blocks.
	InterBlockDelay time.Duration

	// SkipBootloaderEntry disables the reset strap during Connecting,
	// for targets already sitting in the download stub.
	SkipBootloaderEntry bool

	// SkipSPIAttach disables the SPI attach command before flash-begin.
	SkipSPIAttach bool

	// ENPin and BootPin, when both set, strap the target into the
	// bootloader through host GPIO lines wired to EN and IO0 instead
	// of the port's DTR/RTS.
	ENPin   int
	BootPin int
}

func (c *Config) detectBaud() int {
	if c.DetectBaud > 0 {
		return c.DetectBaud
	}
	return DefaultDetectBaud
}

func (c *Config) blockSize() int {
	if c.BlockSize > 0 {
		return c.BlockSize
	}
	return protocol.FlashBlockSize
}

func (c *Config) syncAttempts() int {
	if c.SyncAttempts > 0 {
		return c.SyncAttempts
	}
	return DefaultSyncAttempts
}

func (c *Config) syncTimeout() time.Duration {
	if c.SyncTimeout > 0 {
		return c.SyncTimeout
	}
	return DefaultSyncTimeout
}

func (c *Config) syncRetryDelay() time.Duration {
	if c.SyncRetryDelay > 0 {
		return c.SyncRetryDelay
	}
	return DefaultSyncRetryDelay
}

func (c *Config) syncEchoReads() int {
	if c.SyncEchoReads > 0 {
		return c.SyncEchoReads
	}
	return DefaultSyncEchoReads
}

func (c *Config) syncEchoTimeout() time.Duration {
	if c.SyncEchoTimeout > 0 {
		return c.SyncEchoTimeout
	}
	return DefaultSyncEchoTimeout
}

func (c *Config) responseTimeout() time.Duration {
	if c.ResponseTimeout > 0 {
		return c.ResponseTimeout
	}
	return DefaultResponseTimeout
}

func (c *Config) eraseTimeout() time.Duration {
	if c.EraseTimeout > 0 {
		return c.EraseTimeout
	}
	return DefaultEraseTimeout
}

func (c *Config) settleDelay() time.Duration {
	if c.SettleDelay > 0 {
		return c.SettleDelay
	}
	return DefaultSettleDelay
}

func (c *Config) interBlockDelay() time.Duration {
	if c.InterBlockDelay > 0 {
		return c.InterBlockDelay
	}
	return DefaultInterBlockDelay
}

func (c *Config) usesBootPins() bool {
	return c.ENPin > 0 && c.BootPin > 0
}
