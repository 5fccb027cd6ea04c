package platform

import (
	"fmt"
	"log/slog"
	"sync"
)

// SimPlatform models a chain of relay boards in memory, implementing the
// board side of the frame protocol byte for byte. It lets the CLI and the
// monitor TUI run on a development machine without any hardware attached.
type SimPlatform struct {
	chain *simChain
}

// simChain is the shared state behind all simulated pins and the simulated
// SPI connection: the frame-select level, the boards listening on the bus
// and the response bytes queued by the last command.
type simChain struct {
	mu     sync.Mutex
	frame  bool
	boards map[int]*simBoard
	resp   []byte
}

type simBoard struct {
	relays   byte // bit 0 = relay 1
	led      bool
	identity string
}

// simBaseAddress mirrors the address offset the real board generation
// listens on.
const simBaseAddress = 24

const simIdentityLen = 20

func NewSimPlatform() *SimPlatform {
	return &SimPlatform{
		chain: &simChain{boards: make(map[int]*simBoard)},
	}
}

// AddBoard makes a board with the given chain id answer on the simulated
// bus. Ids outside [0,7] are ignored, as a misconfigured jumper would be.
func (s *SimPlatform) AddBoard(id int, identity string) {
	if id < 0 || id > 7 {
		slog.Warn("Ignoring simulated board with invalid id", "id", id)
		return
	}
	s.chain.mu.Lock()
	defer s.chain.mu.Unlock()
	s.chain.boards[id] = &simBoard{identity: identity}
}

func (s *SimPlatform) Name() string { return "simulation" }

func (s *SimPlatform) OpenOutput(pin int, initialHigh bool) (Pin, error) {
	p := &simPin{chain: s.chain, number: pin, output: true}
	p.Write(initialHigh)
	return p, nil
}

func (s *SimPlatform) OpenInputPullUp(pin int) (Pin, error) {
	// Inputs idle high, as if pulled up with nothing driving the line.
	return &simPin{chain: s.chain, number: pin, level: true}, nil
}

func (s *SimPlatform) OpenSPI(bus, chipSelect int, speedHz int64) (SPIConn, error) {
	return &simSPI{chain: s.chain}, nil
}

func (s *SimPlatform) Close() error { return nil }

// simPin drives the chain's frame-select level when opened as an output
// (the only output the driver opens); the interrupt and acknowledge inputs
// just hold a level.
type simPin struct {
	chain  *simChain
	number int
	output bool
	level  bool
}

func (p *simPin) Write(high bool) error {
	p.chain.mu.Lock()
	defer p.chain.mu.Unlock()
	p.level = high
	if p.output {
		p.chain.frame = high
		if !high {
			// End of transaction: an unread response is gone.
			p.chain.resp = nil
		}
	}
	return nil
}

func (p *simPin) Read() (bool, error) {
	p.chain.mu.Lock()
	defer p.chain.mu.Unlock()
	return p.level, nil
}

func (p *simPin) Close() error { return nil }

type simSPI struct {
	chain *simChain
}

func (s *simSPI) Transfer(tx []byte) ([]byte, error) {
	s.chain.mu.Lock()
	defer s.chain.mu.Unlock()

	read := make([]byte, len(tx))
	if !s.chain.frame {
		// No board listens outside a frame window.
		return read, nil
	}
	if len(tx) == 4 {
		s.chain.execute(tx)
		return read, nil
	}
	// Single-byte follow-up transfers clock out queued response bytes.
	for i := range read {
		if len(s.chain.resp) == 0 {
			break
		}
		read[i] = s.chain.resp[0]
		s.chain.resp = s.chain.resp[1:]
	}
	return read, nil
}

func (s *simSPI) Close() error { return nil }

// execute interprets one command frame the way the board firmware does.
// Malformed frames for present boards are dropped silently, like real
// hardware that simply does not react.
func (c *simChain) execute(frame []byte) {
	board, ok := c.boards[int(frame[0])-simBaseAddress]
	if !ok {
		return
	}
	op, param := frame[1], frame[2]
	switch op {
	case 0x01: // identify
		id := []byte(board.identity)
		if len(id) > simIdentityLen {
			id = id[:simIdentityLen]
		}
		c.resp = make([]byte, simIdentityLen)
		copy(c.resp, id)
	case 0x10: // relay on
		if param >= 1 && param <= 7 {
			board.relays |= 1 << (param - 1)
		}
	case 0x11: // relay off
		if param >= 1 && param <= 7 {
			board.relays &^= 1 << (param - 1)
		}
	case 0x12: // relay toggle
		if param >= 1 && param <= 7 {
			board.relays ^= 1 << (param - 1)
		}
	case 0x13: // all relays from mask
		board.relays = param & 0x7F
	case 0x14: // read state
		// The top bit of the status byte is not a relay flag; the
		// simulation parks the LED state there so decoders that fail
		// to discard it show up immediately.
		status := board.relays
		if board.led {
			status |= 0x80
		}
		c.resp = []byte{status}
	case 0x60:
		board.led = true
	case 0x61:
		board.led = false
	case 0x62:
		board.led = !board.led
	default:
		slog.Debug("Simulated board ignoring unknown opcode", "opcode", fmt.Sprintf("0x%02x", op))
	}
}
