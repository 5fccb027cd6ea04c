package platform

import (
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

type periphPlatform struct{}

func newPeriphPlatform() (*periphPlatform, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to init periph: %w", err)
	}
	return &periphPlatform{}, nil
}

func (p *periphPlatform) Name() string { return "periph.io" }

func (p *periphPlatform) OpenOutput(pin int, initialHigh bool) (Pin, error) {
	gp := gpioreg.ByName(fmt.Sprintf("GPIO%d", pin))
	if gp == nil {
		return nil, fmt.Errorf("failed to find pin GPIO%d", pin)
	}
	if err := gp.Out(gpio.Level(initialHigh)); err != nil {
		return nil, fmt.Errorf("failed to set GPIO%d to output: %w", pin, err)
	}
	return &periphPin{pin: gp}, nil
}

func (p *periphPlatform) OpenInputPullUp(pin int) (Pin, error) {
	gp := gpioreg.ByName(fmt.Sprintf("GPIO%d", pin))
	if gp == nil {
		return nil, fmt.Errorf("failed to find pin GPIO%d", pin)
	}
	if err := gp.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("failed to set GPIO%d to input: %w", pin, err)
	}
	return &periphPin{pin: gp}, nil
}

func (p *periphPlatform) OpenSPI(bus, chipSelect int, speedHz int64) (SPIConn, error) {
	dev := fmt.Sprintf("/dev/spidev%d.%d", bus, chipSelect)
	port, err := spireg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("failed to open spi %s: %w", dev, err)
	}
	conn, err := port.Connect(physic.Frequency(speedHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to connect to spi device %s: %w", dev, err)
	}
	return &periphSPI{port: port, conn: conn}, nil
}

func (p *periphPlatform) Close() error {
	// periph keeps its host state for the lifetime of the process.
	return nil
}

type periphPin struct {
	pin gpio.PinIO
}

func (p *periphPin) Write(high bool) error {
	return p.pin.Out(gpio.Level(high))
}

func (p *periphPin) Read() (bool, error) {
	return p.pin.Read() == gpio.High, nil
}

func (p *periphPin) Close() error {
	if err := p.pin.Halt(); err != nil {
		slog.Error("Error halting pin", "pin", p.pin.Name(), "error", err)
		return err
	}
	return nil
}

type periphSPI struct {
	port spi.PortCloser
	conn spi.Conn
}

func (s *periphSPI) Transfer(tx []byte) ([]byte, error) {
	read := make([]byte, len(tx))
	if err := s.conn.Tx(tx, read); err != nil {
		return nil, err
	}
	return read, nil
}

func (s *periphSPI) Close() error {
	return s.port.Close()
}
