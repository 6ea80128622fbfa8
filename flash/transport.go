package flash

import (
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

var ErrTimeout = errors.New("timed out reading from target")
var ErrClosed = errors.New("serial port is closed")

// Transport is the serial link a session drives. A transport is owned
// by exactly one session for its lifetime.
type Transport interface {
	// Write sends the bytes to the target.
	Write(p []byte) error

	// ReadN reads exactly n bytes, failing with ErrTimeout if the
	// target stays quiet.
	ReadN(n int, timeout time.Duration) ([]byte, error)

	// ReadAvailable waits up to timeout for any inbound data and
	// returns whatever has arrived, at most max bytes.
	ReadAvailable(max int, timeout time.Duration) ([]byte, error)

	// Flush discards buffered bytes in both directions.
	Flush() error

	Close() error
}

// ControlLines is implemented by transports whose DTR/RTS lines reach
// the target's IO0 and EN pins.
type ControlLines interface {
	SetDTR(level bool) error
	SetRTS(level bool) error
}

// BaudSwitcher is implemented by transports that can change rate after
// the loader acknowledges a baud negotiation.
type BaudSwitcher interface {
	SetBaud(rate int) error
}

// SerialTransport talks to the target over a serial port, draining the
// port from a background goroutine into a byte channel.
type SerialTransport struct {
	name string
	mode *serial.Mode

	port serial.Port
	rx   chan byte
}

// OpenSerial will open the named port at the given rate, 8 data bits,
// one stop bit, no parity.
func OpenSerial(name string, baud int) (*SerialTransport, error) {
	t := &SerialTransport{
		name: name,
		mode: &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
	}

	if err := t.open(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *SerialTransport) open() error {
	port, err := serial.Open(t.name, t.mode)
	if err != nil {
		return errors.Wrap(err, "could not open serial port")
	}

	t.port = port
	t.rx = make(chan byte, 4096)
	go t.pump(port, t.rx)

	logrus.Debugf("serial open %s @ %d", t.name, t.mode.BaudRate)
	return nil
}

// pump is the loop that forever reads from the port and feeds the
// incoming bytes to the rx channel.
func (t *SerialTransport) pump(port serial.Port, rx chan<- byte) {
	buf := make([]byte, 256)

	port.SetReadTimeout(1 * time.Millisecond)

	for {
		n, err := port.Read(buf)
		if err != nil {

			// quiet exit when the port was closed under us
			if perr, ok := err.(*serial.PortError); ok {
				if perr.Code() == serial.PortClosed {
					return
				}
			}
			if errors.Is(err, syscall.EBADF) {
				return
			}

			logrus.Error("serial rx: ", err.Error())
			return
		}

		dropped := 0
		for _, b := range buf[:n] {
			// never block on a full buffer: a receiver that stopped
			// draining must not wedge the pump until Close
			select {
			case rx <- b:
			default:
				dropped++
			}
		}
		if n > 0 {
			logrus.Debugf("rx: %x", buf[:n])
		}
		if dropped > 0 {
			logrus.Debugf("rx buffer full, dropped %d bytes", dropped)
		}
	}
}

func (t *SerialTransport) Write(p []byte) error {
	if t.port == nil {
		return ErrClosed
	}

	if _, err := t.port.Write(p); err != nil {
		return errors.Wrap(err, "serial write")
	}
	logrus.Debugf("tx: %x", p)
	return nil
}

func (t *SerialTransport) ReadN(n int, timeout time.Duration) ([]byte, error) {
	if t.port == nil {
		return nil, ErrClosed
	}

	bs := make([]byte, n)
	for i := 0; i < n; i++ {
		select {
		case <-time.After(timeout):
			return nil, ErrTimeout
		case b := <-t.rx:
			bs[i] = b
		}
	}
	return bs, nil
}

func (t *SerialTransport) ReadAvailable(max int, timeout time.Duration) ([]byte, error) {
	if t.port == nil {
		return nil, ErrClosed
	}

	var first byte
	select {
	case <-time.After(timeout):
		return nil, ErrTimeout
	case first = <-t.rx:
	}

	bs := append(make([]byte, 0, max), first)
	for len(bs) < max {
		select {
		case b := <-t.rx:
			bs = append(bs, b)
		default:
			return bs, nil
		}
	}
	return bs, nil
}

func (t *SerialTransport) Flush() error {
	if t.port == nil {
		return ErrClosed
	}

	t.port.ResetInputBuffer()
	t.port.ResetOutputBuffer()

	for {
		select {
		case <-t.rx:
		default:
			return nil
		}
	}
}

// SetBaud will reopen the port at the negotiated rate. The loader must
// have acknowledged the change first.
func (t *SerialTransport) SetBaud(rate int) error {
	if t.port == nil {
		return ErrClosed
	}

	t.port.Close()
	t.mode.BaudRate = rate

	if err := t.open(); err != nil {
		return errors.Wrap(err, "could not reopen at new baud rate")
	}
	return nil
}

func (t *SerialTransport) SetDTR(level bool) error {
	if t.port == nil {
		return ErrClosed
	}
	return t.port.SetDTR(level)
}

func (t *SerialTransport) SetRTS(level bool) error {
	if t.port == nil {
		return ErrClosed
	}
	return t.port.SetRTS(level)
}

func (t *SerialTransport) Close() error {
	if t.port == nil {
		return nil
	}

	err := t.port.Close()
	t.port = nil

	logrus.Debug("serial close")
	return err
}
