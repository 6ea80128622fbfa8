// Package flash drives the ESP ROM serial bootloader to write a
// firmware image into flash, reporting progress over an event channel.
package flash

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jinni2k/esp32-usb-flasher/protocol"
	"github.com/jinni2k/esp32-usb-flasher/slip"
)

// Progress bands per phase. Writing sweeps its band block by block; the
// other phases report the band edges.
const (
	progressConnecting = 0.02
	progressSyncing    = 0.05
	progressSynced     = 0.15
	progressErasing    = 0.18
	writeBandStart     = 0.20
	writeBandEnd       = 0.95
)

// Session is one flash operation: it owns its transport, walks the
// bootloader handshake and write sequence once, and is then spent.
type Session struct {
	cfg   Config
	image []byte
	addr  protocol.FlashAddress
	chip  protocol.ChipID
	plan  *protocol.Plan

	tr      Transport
	scanner slip.Scanner

	events chan Event
	phase  Phase
	used   bool
	result *Result
}

// NewSession will prepare a session that writes image at addr. The
// image magic byte is sniffed for chip identity; an unknown magic is
// reported but does not block flashing.
func NewSession(cfg Config, image []byte, addr protocol.FlashAddress) (*Session, error) {
	if len(image) == 0 {
		return nil, newError(KindEmptyImage, nil, "firmware image is empty")
	}

	chip := protocol.SniffChip(image)
	if chip == protocol.ChipUnknown {
		logrus.Warnf("image magic 0x%02x is not a known chip signature, flashing anyway", image[0])
	} else {
		logrus.Debugf("image looks like %s firmware", chip)
	}

	return &Session{
		cfg:    cfg,
		image:  image,
		addr:   addr,
		chip:   chip,
		plan:   protocol.NewPlan(image, cfg.blockSize()),
		events: make(chan Event, 128),
		phase:  PhaseIdle,
	}, nil
}

// Events returns the progress stream. The channel is closed when Run
// returns; slow consumers may miss intermediate progress events.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Phase returns the phase the session last entered.
func (s *Session) Phase() Phase {
	return s.phase
}

// Chip returns the chip family inferred from the image.
func (s *Session) Chip() protocol.ChipID {
	return s.chip
}

// Result returns the outcome of a completed session, nil before Done.
func (s *Session) Result() *Result {
	return s.result
}

// Run will drive the whole flash sequence. The transport is closed on
// every exit path and the session cannot be run again. Cancelling the
// context aborts between phases and between blocks; partially written
// flash is left as is.
func (s *Session) Run(ctx context.Context) error {
	if s.used {
		return errors.New("flash session is single use")
	}
	s.used = true

	defer close(s.events)
	defer func() {
		if s.tr != nil {
			s.tr.Close()
		}
	}()

	if err := s.run(ctx); err != nil {
		logrus.Errorf("flash failed while %s: %v", s.phase, err)
		s.phase = PhaseFailed
		s.emit(0, err.Error())
		return err
	}
	return nil
}

func (s *Session) run(ctx context.Context) error {
	total := s.plan.NumBlocks()

	// Connecting
	s.phase = PhaseConnecting
	s.emit(progressConnecting, "opening transport")

	s.tr = s.cfg.Transport
	if s.tr == nil {
		tr, err := OpenSerial(s.cfg.Port, s.cfg.detectBaud())
		if err != nil {
			return newError(KindTransportUnavailable, err, "could not open %s", s.cfg.Port)
		}
		s.tr = tr
	}
	if err := s.strap(); err != nil {
		return err
	}
	s.tr.Flush()

	// Syncing
	s.phase = PhaseSyncing
	s.emit(progressSyncing, "syncing with bootloader")
	if err := s.sync(ctx); err != nil {
		return err
	}
	s.emit(progressSynced, "bootloader synced")
	if err := s.negotiateBaud(ctx); err != nil {
		return err
	}

	// Erasing
	s.phase = PhaseErasing
	if !s.cfg.SkipSPIAttach {
		s.emit(progressSynced, "attaching SPI flash")
		if err := s.command(protocol.SpiAttachCommand(), protocol.OpSpiAttach, s.cfg.responseTimeout()); err != nil {
			return err
		}
	}
	s.emit(progressErasing, fmt.Sprintf("erasing %d bytes at 0x%x", s.plan.EraseSize(), s.addr.Offset))
	begin := protocol.FlashBeginCommand(
		s.plan.EraseSize(),
		uint32(total),
		uint32(s.plan.BlockSize()),
		s.addr.Offset,
	)
	if err := s.command(begin, protocol.OpFlashBegin, s.cfg.eraseTimeout()); err != nil {
		return err
	}
	if err := s.wait(ctx, s.cfg.settleDelay()); err != nil {
		return err
	}

	// Writing
	s.phase = PhaseWriting
	for seq := 0; seq < total; seq++ {
		if err := ctx.Err(); err != nil {
			return newError(KindCancelled, err, "write aborted at block %d", seq)
		}

		b := s.plan.Block(seq)
		if err := s.command(protocol.FlashDataCommand(b), protocol.OpFlashData, s.cfg.responseTimeout()); err != nil {
			return err
		}

		frac := float64(seq+1) / float64(total)
		p := writeBandStart + frac*(writeBandEnd-writeBandStart)
		s.emit(clamp(p, writeBandStart, writeBandEnd), fmt.Sprintf("wrote block %d/%d", seq+1, total))

		if seq+1 < total {
			if err := s.wait(ctx, s.cfg.interBlockDelay()); err != nil {
				return err
			}
		}
	}

	// Finalizing
	s.phase = PhaseFinalizing
	s.emit(writeBandEnd, "rebooting target")
	if err := s.command(protocol.FlashEndCommand(true), protocol.OpFlashEnd, s.cfg.responseTimeout()); err != nil {
		return err
	}
	if err := s.wait(ctx, s.cfg.settleDelay()); err != nil {
		return err
	}

	// Done
	s.phase = PhaseDone
	s.result = &Result{Address: s.addr, Size: len(s.image), Chip: s.chip}
	s.emit(1.0, fmt.Sprintf("flashed %d bytes to %s (0x%x)", len(s.image), s.addr.Name, s.addr.Offset))

	logrus.Infof("flashed %d bytes to 0x%x in %d blocks", len(s.image), s.addr.Offset, total)
	return nil
}

// strap resets the target into the download stub, through GPIO lines
// when configured, otherwise through the port's DTR/RTS if it has them.
func (s *Session) strap() error {
	if s.cfg.SkipBootloaderEntry {
		return nil
	}

	if s.cfg.usesBootPins() {
		pins, err := newBootPins(s.cfg.ENPin, s.cfg.BootPin)
		if err != nil {
			return newError(KindTransportUnavailable, err, "boot strap pins")
		}
		defer pins.release()
		pins.enterBootloader()
		return nil
	}

	if lines, ok := s.tr.(ControlLines); ok {
		if err := enterBootloader(lines); err != nil {
			return newError(KindTransportUnavailable, err, "bootloader strap")
		}
	}
	return nil
}

// sync probes the bootloader with a bounded retry loop. This is the one
// built-in retry policy; running out of attempts fails the session.
func (s *Session) sync(ctx context.Context) error {
	attempts := s.cfg.syncAttempts()
	cmd := protocol.SyncCommand()

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return newError(KindCancelled, err, "sync aborted")
		}

		s.tr.Flush()
		s.scanner.Reset()

		if err := s.tr.Write(cmd); err != nil {
			return newError(KindWriteRejected, err, "sync attempt %d", attempt)
		}

		if _, err := s.await(protocol.OpSync, s.cfg.syncTimeout()); err == nil {
			s.drainSyncEchoes()
			logrus.Debugf("synced on attempt %d/%d", attempt, attempts)
			return nil
		}

		logrus.Debugf("sync attempt %d/%d: no response", attempt, attempts)
		if err := s.wait(ctx, s.cfg.syncRetryDelay()); err != nil {
			return err
		}
	}

	return newError(KindSyncTimeout, nil, "no response after %d attempts", attempts)
}

// drainSyncEchoes discards the extra replies the ROM sends to a single
// sync command so they are not mistaken for command responses.
func (s *Session) drainSyncEchoes() {
	for i := 0; i < s.cfg.syncEchoReads(); i++ {
		chunk, err := s.tr.ReadAvailable(readChunkSize, s.cfg.syncEchoTimeout())
		if err != nil || len(chunk) == 0 {
			return
		}
		s.scanner.Feed(chunk)
	}
}

// negotiateBaud switches to the configured bulk write rate after the
// loader acknowledges the change.
func (s *Session) negotiateBaud(ctx context.Context) error {
	rate := s.cfg.WriteBaud
	if rate <= 0 || rate == s.cfg.detectBaud() {
		return nil
	}

	sw, ok := s.tr.(BaudSwitcher)
	if !ok {
		logrus.Warnf("transport cannot switch baud, staying at %d", s.cfg.detectBaud())
		return nil
	}

	if err := s.command(protocol.ChangeBaudCommand(uint32(rate)), protocol.OpChangeBaud, s.cfg.responseTimeout()); err != nil {
		return err
	}
	if err := sw.SetBaud(rate); err != nil {
		return newError(KindTransportUnavailable, err, "could not switch to %d baud", rate)
	}

	s.scanner.Reset()
	if err := s.wait(ctx, s.cfg.settleDelay()); err != nil {
		return err
	}
	s.tr.Flush()

	logrus.Debugf("write baud %d", rate)
	return nil
}

// command sends one framed command and validates the matching response.
func (s *Session) command(frame []byte, op byte, timeout time.Duration) error {
	if err := s.tr.Write(frame); err != nil {
		return newError(KindWriteRejected, err, "command 0x%02x", op)
	}
	if _, err := s.await(op, timeout); err != nil {
		return newError(KindProtocol, err, "command 0x%02x", op)
	}
	return nil
}

// await reads frames until one parses as a successful response to op.
// Frames that do not parse are line noise and skipped; a response to the
// wrong opcode or with a failure status is an error.
func (s *Session) await(op byte, timeout time.Duration) (*protocol.Response, error) {
	deadline := time.Now().Add(timeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrTimeout
		}

		chunk, err := s.tr.ReadAvailable(readChunkSize, remaining)
		if err != nil {
			return nil, err
		}

		for _, frame := range s.scanner.Feed(chunk) {
			r, err := protocol.ParseResponse(frame)
			if err != nil {
				logrus.Debugf("skipping frame: %v", err)
				continue
			}
			if r.Opcode != op {
				return nil, errors.Errorf("expected response to 0x%02x, got 0x%02x", op, r.Opcode)
			}
			if !r.Success() {
				return nil, errors.Errorf("command 0x%02x failed with code 0x%02x", op, r.Code)
			}
			return r, nil
		}
	}
}

// emit reports progress without ever blocking the protocol loop.
func (s *Session) emit(progress float64, msg string) {
	ev := Event{Phase: s.phase, Progress: progress, Message: msg}
	select {
	case s.events <- ev:
	default:
		logrus.Debugf("event dropped: %s", msg)
	}
}

// wait sleeps cooperatively, honouring cancellation.
func (s *Session) wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return newError(KindCancelled, ctx.Err(), "session cancelled")
	case <-time.After(d):
		return nil
	}
}
