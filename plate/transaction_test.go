package plate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExchangeOrderingCommandOnly(t *testing.T) {
	rec := &recorder{}
	p, _ := newFakePlate(rec, &fakeSPI{rec: rec})

	assert.NoError(t, p.RelayOn(2, 5))
	assert.Equal(t, []string{
		"frame=1",
		"spi 1a100500", // 24+2, relay-on, relay 5, terminator
		"frame=0",
	}, rec.events)
}

// Frame-select must go high before the first transfer and low after the
// last one, for every command type.
func TestExchangeOrderingAllCommands(t *testing.T) {
	ops := []struct {
		name string
		call func(p *Plate) error
	}{
		{"relay-on", func(p *Plate) error { return p.RelayOn(0, 1) }},
		{"relay-off", func(p *Plate) error { return p.RelayOff(0, 1) }},
		{"relay-toggle", func(p *Plate) error { return p.RelayToggle(0, 1) }},
		{"relay-all", func(p *Plate) error { return p.RelayAll(0, StateFromMask(0x7F)) }},
		{"led-on", func(p *Plate) error { return p.LEDOn(0) }},
		{"led-off", func(p *Plate) error { return p.LEDOff(0) }},
		{"led-toggle", func(p *Plate) error { return p.LEDToggle(0) }},
		{"read-state", func(p *Plate) error { _, err := p.State(0); return err }},
		{"identify", func(p *Plate) error { _, err := p.Identify(0); return err }},
	}
	for _, op := range ops {
		t.Run(op.name, func(t *testing.T) {
			rec := &recorder{}
			p, _ := newFakePlate(rec, &fakeSPI{rec: rec})
			assert.NoError(t, op.call(p))

			assert.Equal(t, "frame=1", rec.events[0])
			assert.Equal(t, "frame=0", rec.events[len(rec.events)-1])
			for _, ev := range rec.events[1 : len(rec.events)-1] {
				assert.Contains(t, ev, "spi ", "nothing but transfers between assert and release")
			}
		})
	}
}

func TestStateIssuesOneFollowUpTransfer(t *testing.T) {
	rec := &recorder{}
	spi := &fakeSPI{rec: rec, resp: []byte{0b0000101}}
	p, _ := newFakePlate(rec, spi)

	st, err := p.State(4)
	assert.NoError(t, err)
	assert.Equal(t, BoardState{true, false, true, false, false, false, false}, st)
	// One frame transfer plus exactly one single-byte response transfer.
	assert.Equal(t, 2, spi.transfers)
	assert.Equal(t, "spi 1c140000", rec.events[1])
	assert.Equal(t, "spi 00", rec.events[2])
}

func TestIdentifyIssuesTwentyFollowUpTransfers(t *testing.T) {
	rec := &recorder{}
	resp := make([]byte, identityLen)
	copy(resp, "Pi-Plate RELAY")
	spi := &fakeSPI{rec: rec, resp: resp}
	p, _ := newFakePlate(rec, spi)

	id, err := p.Identify(0)
	assert.NoError(t, err)
	assert.Equal(t, "Pi-Plate RELAY", id)
	assert.Equal(t, 1+identityLen, spi.transfers)
}

func TestRepeatedOffIsIdempotent(t *testing.T) {
	rec := &recorder{}
	p, _ := newFakePlate(rec, &fakeSPI{rec: rec})

	assert.NoError(t, p.RelayOff(0, 3))
	assert.NoError(t, p.RelayOff(0, 3))
	// The same frame goes out both times; repeated calls are not
	// special-cased.
	assert.Equal(t, rec.events[0:3], rec.events[3:6])
}

func TestTransferFailurePropagatesAsHardwareError(t *testing.T) {
	rec := &recorder{}
	p, _ := newFakePlate(rec, &fakeSPI{rec: rec, failAt: 1})

	err := p.RelayOn(0, 1)
	assert.ErrorIs(t, err, ErrHardware)
}

func TestMidResponseFailureLeavesFrameAsserted(t *testing.T) {
	rec := &recorder{}
	// Fail on the 3rd transfer: frame went out, first response byte came
	// back, second one dies.
	spi := &fakeSPI{rec: rec, resp: make([]byte, identityLen), failAt: 3}
	p, frame := newFakePlate(rec, spi)

	_, err := p.Identify(0)
	assert.ErrorIs(t, err, ErrHardware)
	// The sequence stops where it failed; frame-select stays high and no
	// further transfer happens.
	assert.True(t, frame.level, "frame-select must be left asserted")
	assert.Equal(t, 3, spi.transfers)
	assert.NotContains(t, rec.events, "frame=0")
}

func TestFrameAssertFailureSkipsBus(t *testing.T) {
	rec := &recorder{}
	spi := &fakeSPI{rec: rec}
	p, frame := newFakePlate(rec, spi)
	frame.writeErr = assert.AnError

	err := p.LEDOn(0)
	assert.ErrorIs(t, err, ErrHardware)
	assert.Zero(t, spi.transfers)
}
