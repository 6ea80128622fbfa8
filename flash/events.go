package flash

import "github.com/jinni2k/esp32-usb-flasher/protocol"

// Phase is the state of a flash session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseSyncing
	PhaseErasing
	PhaseWriting
	PhaseFinalizing
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseConnecting:
		return "connecting"
	case PhaseSyncing:
		return "syncing"
	case PhaseErasing:
		return "erasing"
	case PhaseWriting:
		return "writing"
	case PhaseFinalizing:
		return "finalizing"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is one progress report from a running session.
type Event struct {
	Phase    Phase
	Progress float64
	Message  string
}

// Result describes a completed flash operation.
type Result struct {
	Address protocol.FlashAddress
	Size    int
	Chip    protocol.ChipID
}
