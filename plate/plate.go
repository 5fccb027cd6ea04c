// Package plate drives a chain of up to 8 daisy-chained relay expansion
// boards over SPI. A board is addressed by its chain id (0-7, set with
// physical jumpers on the board), a relay by its 1-based index (1-7).
//
// All operations are synchronous and blocking. A Plate holds no internal
// lock: callers issuing commands from several goroutines must serialize
// access themselves, or the frame-select protocol on the shared bus gets
// corrupted.
package plate

import (
	"fmt"
	"log/slog"
	"time"

	"lautenbacher.net/relayplate/config"
	"lautenbacher.net/relayplate/platform"
)

// DefaultBoard selects the board id configured on the handle instead of an
// explicit one. Calls using it fail with ErrNoDefaultBoard when the config
// named none. The value -1 is reserved for this and is never reported as an
// invalid address.
const DefaultBoard = -1

// Plate is the driver handle. It exclusively owns the frame-select,
// interrupt and acknowledge GPIO lines and the SPI connection from Open
// until Close.
type Plate struct {
	pf           platform.Platform
	frame        platform.Pin
	interrupt    platform.Pin
	ack          platform.Pin
	spi          platform.SPIConn
	spiDelay     time.Duration
	byteDelay    time.Duration
	defaultBoard int // -1 when unconfigured
}

// Open acquires the three GPIO lines and the SPI connection on the given
// platform. The lines are opened in a fixed order; if any step fails,
// everything already opened is released before the error is returned, so a
// failed Open never leaks a resource.
func Open(conf *config.Config, pf platform.Platform) (*Plate, error) {
	hw := &conf.Hardware
	p := &Plate{
		pf:           pf,
		spiDelay:     hw.SPIDelay.Std(),
		byteDelay:    hw.ByteDelay.Std(),
		defaultBoard: -1,
	}
	if conf.DefaultBoard != nil {
		p.defaultBoard = *conf.DefaultBoard
	}

	var err error
	if p.frame, err = pf.OpenOutput(hw.FramePin, false); err != nil {
		return nil, fmt.Errorf("failed to open frame-select GPIO%d: %w", hw.FramePin, err)
	}
	// Give the board's SPI engine time to reset after the frame line
	// first goes live.
	time.Sleep(hw.SettleDelay.Std())

	if p.interrupt, err = pf.OpenInputPullUp(hw.InterruptPin); err != nil {
		p.release()
		return nil, fmt.Errorf("failed to open interrupt GPIO%d: %w", hw.InterruptPin, err)
	}
	if p.ack, err = pf.OpenInputPullUp(hw.AckPin); err != nil {
		p.release()
		return nil, fmt.Errorf("failed to open acknowledge GPIO%d: %w", hw.AckPin, err)
	}
	if p.spi, err = pf.OpenSPI(hw.SPIBus, hw.SPIChipSelect, hw.SPISpeed); err != nil {
		p.release()
		return nil, fmt.Errorf("failed to open spi bus %d cs %d: %w", hw.SPIBus, hw.SPIChipSelect, err)
	}

	slog.Info("Relay board driver ready", "platform", pf.Name(),
		"spi-speed", hw.SPISpeed, "frame-pin", hw.FramePin)
	return p, nil
}

// Close releases the SPI connection and all three GPIO lines. It is the
// single release point of the handle; close failures are logged, never
// returned, since there is nothing a caller could do about them during
// teardown.
func (p *Plate) Close() {
	p.release()
}

func (p *Plate) release() {
	if p.spi != nil {
		if err := p.spi.Close(); err != nil {
			slog.Error("Error closing spi connection", "error", err)
		}
		p.spi = nil
	}
	for _, l := range []struct {
		name string
		pin  *platform.Pin
	}{{"acknowledge", &p.ack}, {"interrupt", &p.interrupt}, {"frame-select", &p.frame}} {
		if *l.pin == nil {
			continue
		}
		if err := (*l.pin).Close(); err != nil {
			slog.Error("Error closing GPIO line", "line", l.name, "error", err)
		}
		*l.pin = nil
	}
}

func (p *Plate) resolveBoard(board int) (int, error) {
	if board != DefaultBoard {
		return board, nil
	}
	if p.defaultBoard < 0 {
		return 0, ErrNoDefaultBoard
	}
	return p.defaultBoard, nil
}

// command encodes and runs one write-only operation.
func (p *Plate) command(cmd Command, board, param int) error {
	board, err := p.resolveBoard(board)
	if err != nil {
		return err
	}
	f, err := encodeFrame(cmd, board, param)
	if err != nil {
		return err
	}
	_, err = p.exchange(f, 0)
	return err
}

// query encodes and runs one operation that answers with respLen bytes.
func (p *Plate) query(cmd Command, board int) ([]byte, error) {
	board, err := p.resolveBoard(board)
	if err != nil {
		return nil, err
	}
	f, err := encodeFrame(cmd, board, 0)
	if err != nil {
		return nil, err
	}
	return p.exchange(f, cmd.responseLen())
}

// RelayOn energizes one relay. Repeating the call is harmless; the same
// frame goes out again and the relay stays where it is.
func (p *Plate) RelayOn(board, relay int) error {
	return p.command(CmdRelayOn, board, relay)
}

// RelayOff de-energizes one relay.
func (p *Plate) RelayOff(board, relay int) error {
	return p.command(CmdRelayOff, board, relay)
}

// RelayToggle flips one relay.
func (p *Plate) RelayToggle(board, relay int) error {
	return p.command(CmdRelayToggle, board, relay)
}

// RelayAll sets all seven relays of a board at once.
func (p *Plate) RelayAll(board int, states BoardState) error {
	return p.command(CmdRelayAll, board, states.Mask())
}

// LEDOn lights the board's status LED.
func (p *Plate) LEDOn(board int) error { return p.command(CmdLEDOn, board, 0) }

// LEDOff turns the board's status LED off.
func (p *Plate) LEDOff(board int) error { return p.command(CmdLEDOff, board, 0) }

// LEDToggle flips the board's status LED.
func (p *Plate) LEDToggle(board int) error { return p.command(CmdLEDToggle, board, 0) }

// State reads back the current position of all relays on a board.
func (p *Plate) State(board int) (BoardState, error) {
	resp, err := p.query(CmdReadState, board)
	if err != nil {
		return BoardState{}, err
	}
	return decodeState(resp[0]), nil
}

// Identify reads the identity string of a board. An empty string means
// nothing answered at that address.
func (p *Plate) Identify(board int) (string, error) {
	resp, err := p.query(CmdIdentify, board)
	if err != nil {
		return "", err
	}
	return decodeIdentity(resp), nil
}
