package flash

import (
	"bytes"
	"syscall"
	"testing"
	"time"

	"go.bug.st/serial"
)

// stuckPort hands the pump one burst, then reports a closed descriptor.
// Only the methods the pump calls are implemented.
type stuckPort struct {
	serial.Port
	burst []byte
	reads int
}

func (p *stuckPort) SetReadTimeout(time.Duration) error { return nil }

func (p *stuckPort) Read(b []byte) (int, error) {
	p.reads++
	if p.reads == 1 {
		return copy(b, p.burst), nil
	}
	return 0, syscall.EBADF
}

func TestPumpDoesNotBlockWhenReceiverStalls(t *testing.T) {
	port := &stuckPort{burst: bytes.Repeat([]byte{0x55}, 64)}
	rx := make(chan byte, 4) // nobody drains, so the buffer fills fast

	tr := &SerialTransport{}
	done := make(chan struct{})
	go func() {
		tr.pump(port, rx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pump stalled on a full rx buffer")
	}

	if len(rx) != cap(rx) {
		t.Errorf("rx holds %d bytes, want the buffer filled before overflow", len(rx))
	}
}
