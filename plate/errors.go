package plate

import "errors"

// Error kinds returned by the driver. Callers match them with errors.Is to
// tell a programming mistake (bad address) apart from a transient hardware
// fault.
var (
	// ErrInvalidAddress means a board id or relay index was outside its
	// valid range. It is always detected before any bus or GPIO activity.
	ErrInvalidAddress = errors.New("invalid board or relay address")

	// ErrNoDefaultBoard means a call used the DefaultBoard sentinel but no
	// default board id was configured on the handle.
	ErrNoDefaultBoard = errors.New("no default board configured")

	// ErrHardware wraps an SPI or GPIO failure that occurred mid-transaction.
	// The driver never retries; retry policy belongs to the caller.
	ErrHardware = errors.New("hardware I/O failure")
)
