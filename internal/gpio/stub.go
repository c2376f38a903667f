//go:build !linux

package gpio

// Open is not available on non-Linux platforms.
func Open(chipName string, pins Pins) (*Board, error) {
	return nil, ErrNotSupported
}
