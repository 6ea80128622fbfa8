package flash

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jinni2k/esp32-usb-flasher/protocol"
)

// FlashPayloadFromFile will flash the requested file to the flash
// memory at the provided address.
func FlashPayloadFromFile(ctx context.Context, cfg Config, filePath string, addr protocol.FlashAddress) error {
	bs, err := os.ReadFile(filePath)
	if err != nil {
		return errors.Wrap(err, "could not read firmware")
	}
	return FlashPayload(ctx, cfg, bs, addr)
}

// FlashPayload will flash the payload provided to the flash at the
// provided address, logging progress instead of streaming it. Callers
// that want the event stream should build a Session themselves.
func FlashPayload(ctx context.Context, cfg Config, bs []byte, addr protocol.FlashAddress) error {
	s, err := NewSession(cfg, bs, addr)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range s.Events() {
			logrus.Debugf("%s %3.0f%% %s", ev.Phase, ev.Progress*100, ev.Message)
		}
	}()

	err = s.Run(ctx)
	<-done
	return err
}

// CustomAddress will resolve a caller-supplied hexadecimal offset into
// the Custom catalog entry. Unparseable input fails with the
// InvalidAddress kind rather than defaulting.
func CustomAddress(offset string) (protocol.FlashAddress, error) {
	off, err := protocol.ParseCustomOffset(offset)
	if err != nil {
		return protocol.FlashAddress{}, newError(KindInvalidAddress, err, "could not parse flash offset %q", offset)
	}

	addr, _ := protocol.LookupAddress(protocol.CustomAddressName)
	addr.Offset = off
	return addr, nil
}

// Reset will reboot the target into its application, for transports
// whose control lines reach the reset circuit.
func Reset(tr Transport) error {
	lines, ok := tr.(ControlLines)
	if !ok {
		return errors.New("transport has no control lines")
	}
	return hardReset(lines)
}
