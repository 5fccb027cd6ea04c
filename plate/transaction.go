package plate

import (
	"fmt"
	"time"
)

// exchange runs one framed transaction: assert frame-select, clock the
// 4-byte command out as a single transfer, collect respLen single-byte
// full-duplex responses with a settle pause after each, then de-assert
// frame-select. Transactions on one handle must not interleave; the frame
// line is the only transaction marker the board sees.
//
// On a failure the sequence stops immediately and the frame line is left at
// whatever level the failing step reached. Forcing it low again is the
// caller's call, not this layer's.
func (p *Plate) exchange(f Frame, respLen int) ([]byte, error) {
	if err := p.frame.Write(true); err != nil {
		return nil, fmt.Errorf("%w: asserting frame select: %v", ErrHardware, err)
	}
	if _, err := p.spi.Transfer(f[:]); err != nil {
		return nil, fmt.Errorf("%w: sending command frame: %v", ErrHardware, err)
	}

	var resp []byte
	if respLen > 0 {
		// The board needs a moment after the command frame before it
		// has the first response byte ready.
		time.Sleep(p.spiDelay)
		resp = make([]byte, 0, respLen)
		one := make([]byte, 1)
		for i := 0; i < respLen; i++ {
			one[0] = 0x00
			in, err := p.spi.Transfer(one)
			if err != nil {
				return nil, fmt.Errorf("%w: reading response byte %d of %d: %v", ErrHardware, i+1, respLen, err)
			}
			resp = append(resp, in[0])
			time.Sleep(p.byteDelay)
		}
	}

	if err := p.frame.Write(false); err != nil {
		return nil, fmt.Errorf("%w: releasing frame select: %v", ErrHardware, err)
	}
	return resp, nil
}
