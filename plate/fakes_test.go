package plate

import (
	"fmt"
)

// recorder collects the exact hardware call sequence a test provoked, so
// ordering across pins and the bus can be asserted.
type recorder struct {
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

type fakePin struct {
	rec      *recorder
	name     string
	level    bool
	writeErr error
	closed   bool
}

func (p *fakePin) Write(high bool) error {
	if p.writeErr != nil {
		return p.writeErr
	}
	p.level = high
	lv := 0
	if high {
		lv = 1
	}
	p.rec.add("%s=%d", p.name, lv)
	return nil
}

func (p *fakePin) Read() (bool, error) {
	return p.level, nil
}

func (p *fakePin) Close() error {
	p.closed = true
	p.rec.add("%s closed", p.name)
	return nil
}

type fakeSPI struct {
	rec *recorder
	// resp is clocked out one byte per single-byte transfer.
	resp []byte
	// failAt makes the n-th Transfer call fail (1-based); 0 disables.
	failAt    int
	transfers int
	closed    bool
}

func (s *fakeSPI) Transfer(tx []byte) ([]byte, error) {
	s.transfers++
	if s.failAt != 0 && s.transfers == s.failAt {
		return nil, fmt.Errorf("spi broken")
	}
	s.rec.add("spi %x", tx)
	read := make([]byte, len(tx))
	if len(tx) == 1 && len(s.resp) > 0 {
		read[0] = s.resp[0]
		s.resp = s.resp[1:]
	}
	return read, nil
}

func (s *fakeSPI) Close() error {
	s.closed = true
	s.rec.add("spi closed")
	return nil
}

// newFakePlate wires a Plate directly onto fakes, bypassing Open.
func newFakePlate(rec *recorder, spi *fakeSPI) (*Plate, *fakePin) {
	frame := &fakePin{rec: rec, name: "frame"}
	return &Plate{
		frame:        frame,
		interrupt:    &fakePin{rec: rec, name: "interrupt"},
		ack:          &fakePin{rec: rec, name: "ack"},
		spi:          spi,
		defaultBoard: -1,
	}, frame
}
