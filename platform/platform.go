// Package platform abstracts the GPIO and SPI access of the host so the
// driver core can run against real Raspberry Pi hardware (via periph.io or
// go-rpio, selectable in the config) or against an in-memory simulation.
package platform

import (
	"fmt"
	"strings"

	"lautenbacher.net/relayplate/config"
)

// Pin is one opened GPIO line.
type Pin interface {
	// Write sets the line to logic-high (true) or logic-low (false).
	Write(high bool) error
	// Read returns the current logic level of the line.
	Read() (bool, error)
	// Close releases the line.
	Close() error
}

// SPIConn is an opened full-duplex SPI connection.
type SPIConn interface {
	// Transfer clocks tx out and returns the bytes clocked in at the same
	// time. The returned slice has the same length as tx.
	Transfer(tx []byte) ([]byte, error)
	Close() error
}

// Platform opens GPIO lines and SPI connections on one concrete backend.
// Close releases backend-global resources after all pins and connections
// have been closed.
type Platform interface {
	Name() string
	// OpenOutput configures the pin as an output driven to the given
	// initial level.
	OpenOutput(pin int, initialHigh bool) (Pin, error)
	// OpenInputPullUp configures the pin as an input with the internal
	// pull-up resistor enabled.
	OpenInputPullUp(pin int) (Pin, error)
	// OpenSPI opens the given bus/chip-select pair at the given clock.
	OpenSPI(bus, chipSelect int, speedHz int64) (SPIConn, error)
	Close() error
}

// New selects and initialises the backend named in the hardware config.
// An empty GPIOLibrary selects periph.io.
func New(conf *config.HardwareConfig) (Platform, error) {
	switch strings.ToLower(conf.GPIOLibrary) {
	case "", "periph.io":
		return newPeriphPlatform()
	case "go-rpio":
		return newRpioPlatform()
	case "simulation":
		return NewSimPlatform(), nil
	}
	return nil, fmt.Errorf("unknown GPIO library: %s", conf.GPIOLibrary)
}
