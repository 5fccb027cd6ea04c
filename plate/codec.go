package plate

import "strings"

// identityLen is the fixed size of the response window for an identify
// query. Shorter identity strings are null-padded by the board.
const identityLen = 20

// BoardState holds the logical state of all relays on one board.
// Index 0 is relay 1, index 6 is relay 7.
type BoardState [NumRelays]bool

// decodeState converts one raw status byte into per-relay booleans. The wire
// clocks the byte out most-significant bit first, but the board numbers its
// relays in the opposite direction: after dropping the top bit (which is not
// a relay flag) the remaining seven come out in reverse relay order, so
// relay 1 ends up in the least significant bit. Getting this wrong swaps the
// reported state front-to-back.
func decodeState(raw byte) BoardState {
	var st BoardState
	for i := range st {
		st[i] = raw&(1<<uint(i)) != 0
	}
	return st
}

// StateFromMask builds a BoardState from a 7-bit mask, bit 0 = relay 1.
// Bits above the relay range are ignored.
func StateFromMask(mask int) BoardState {
	return decodeState(byte(mask) & 0x7F)
}

// Mask packs the state back into the 7-bit form used by the relay-all
// command, bit 0 holding relay 1.
func (s BoardState) Mask() int {
	m := 0
	for i, on := range s {
		if on {
			m |= 1 << uint(i)
		}
	}
	return m
}

func (s BoardState) String() string {
	var buf strings.Builder
	for i, on := range s {
		if i > 0 {
			buf.WriteByte(' ')
		}
		if on {
			buf.WriteByte('1')
		} else {
			buf.WriteByte('0')
		}
	}
	return buf.String()
}

// decodeIdentity strips the null padding from a raw identity response. An
// empty result is valid: it means no board answered at that address.
func decodeIdentity(raw []byte) string {
	var buf strings.Builder
	buf.Grow(len(raw))
	for _, b := range raw {
		if b != 0x00 {
			buf.WriteByte(b)
		}
	}
	return buf.String()
}
