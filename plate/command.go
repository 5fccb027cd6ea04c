package plate

import "fmt"

// Command identifies one operation the relay board understands. The value is
// the opcode byte that goes out on the wire.
type Command byte

const (
	CmdIdentify    Command = 0x01
	CmdRelayOn     Command = 0x10
	CmdRelayOff    Command = 0x11
	CmdRelayToggle Command = 0x12
	CmdRelayAll    Command = 0x13
	CmdReadState   Command = 0x14
	CmdLEDOn       Command = 0x60
	CmdLEDOff      Command = 0x61
	CmdLEDToggle   Command = 0x62
)

// baseAddress is added to the board id to land in the address space the
// board generation listens on. Board 0 answers on 24, board 7 on 31.
const baseAddress = 24

const (
	minBoard = 0
	maxBoard = 7
	minRelay = 1
	maxRelay = 7
)

// NumRelays is the number of relays on a single board.
const NumRelays = 7

// Frame is the fixed 4-byte wire message for one command.
type Frame [4]byte

func (c Command) String() string {
	switch c {
	case CmdIdentify:
		return "identify"
	case CmdRelayOn:
		return "relay-on"
	case CmdRelayOff:
		return "relay-off"
	case CmdRelayToggle:
		return "relay-toggle"
	case CmdRelayAll:
		return "relay-all"
	case CmdReadState:
		return "read-state"
	case CmdLEDOn:
		return "led-on"
	case CmdLEDOff:
		return "led-off"
	case CmdLEDToggle:
		return "led-toggle"
	}
	return fmt.Sprintf("unknown(0x%02x)", byte(c))
}

// relayTargeted reports whether the command addresses a single relay and
// therefore carries a relay index in the parameter byte.
func (c Command) relayTargeted() bool {
	switch c {
	case CmdRelayOn, CmdRelayOff, CmdRelayToggle:
		return true
	}
	return false
}

// responseLen is the number of single-byte follow-up transfers the board
// answers with. Zero for write-only commands.
func (c Command) responseLen() int {
	switch c {
	case CmdReadState:
		return 1
	case CmdIdentify:
		return identityLen
	}
	return 0
}

// encodeFrame validates the addressing and builds the wire frame. It is a
// pure function; nothing touches the hardware until the frame is handed to
// the sequencer.
func encodeFrame(cmd Command, board, param int) (Frame, error) {
	if board < minBoard || board > maxBoard {
		return Frame{}, fmt.Errorf("%w: board id %d not in [%d,%d]", ErrInvalidAddress, board, minBoard, maxBoard)
	}
	switch {
	case cmd.relayTargeted():
		if param < minRelay || param > maxRelay {
			return Frame{}, fmt.Errorf("%w: relay index %d not in [%d,%d]", ErrInvalidAddress, param, minRelay, maxRelay)
		}
	case cmd == CmdRelayAll:
		if param < 0 || param > 0x7F {
			return Frame{}, fmt.Errorf("%w: relay mask 0x%02x not in [0x00,0x7f]", ErrInvalidAddress, param)
		}
	default:
		// Board-targeted commands carry a fixed 0 in the parameter byte.
		if param != 0 {
			return Frame{}, fmt.Errorf("%w: command %s takes no relay index (got %d)", ErrInvalidAddress, cmd, param)
		}
	}
	return Frame{byte(baseAddress + board), byte(cmd), byte(param), 0x00}, nil
}
