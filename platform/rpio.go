package platform

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
)

// rpioPlatform drives the pins through /dev/gpiomem via go-rpio. Only SPI
// bus 0 is reachable with this library.
type rpioPlatform struct{}

func newRpioPlatform() (*rpioPlatform, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open rpio: %w", err)
	}
	return &rpioPlatform{}, nil
}

func (p *rpioPlatform) Name() string { return "go-rpio" }

func (p *rpioPlatform) OpenOutput(pin int, initialHigh bool) (Pin, error) {
	rp := rpio.Pin(pin)
	rp.Output()
	if initialHigh {
		rp.High()
	} else {
		rp.Low()
	}
	return &rpioPin{pin: rp}, nil
}

func (p *rpioPlatform) OpenInputPullUp(pin int) (Pin, error) {
	rp := rpio.Pin(pin)
	rp.Input()
	rp.PullUp()
	return &rpioPin{pin: rp}, nil
}

func (p *rpioPlatform) OpenSPI(bus, chipSelect int, speedHz int64) (SPIConn, error) {
	if bus != 0 {
		return nil, fmt.Errorf("go-rpio only supports spi bus 0 (got %d)", bus)
	}
	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		return nil, fmt.Errorf("failed to begin spi: %w", err)
	}
	rpio.SpiSpeed(int(speedHz))
	rpio.SpiChipSelect(uint8(chipSelect))
	return &rpioSPI{}, nil
}

func (p *rpioPlatform) Close() error {
	return rpio.Close()
}

type rpioPin struct {
	pin rpio.Pin
}

func (p *rpioPin) Write(high bool) error {
	if high {
		p.pin.High()
	} else {
		p.pin.Low()
	}
	return nil
}

func (p *rpioPin) Read() (bool, error) {
	return p.pin.Read() == rpio.High, nil
}

func (p *rpioPin) Close() error {
	// go-rpio has no per-pin release; disable the pull so an input does
	// not keep loading the line after shutdown.
	p.pin.PullOff()
	return nil
}

type rpioSPI struct{}

func (s *rpioSPI) Transfer(tx []byte) ([]byte, error) {
	// SpiExchange works in place on its buffer.
	buf := make([]byte, len(tx))
	copy(buf, tx)
	rpio.SpiExchange(buf)
	return buf, nil
}

func (s *rpioSPI) Close() error {
	rpio.SpiEnd(rpio.Spi0)
	return nil
}
