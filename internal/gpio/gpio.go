// Package gpio provides GPIO input reading with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the control button inputs.
type Reader interface {
	// Read returns whether the reset and next-exercise buttons are held.
	// Buttons pull the line to ground: raw inactive (0) = pressed.
	// Returns (reset, next, error).
	Read() (bool, bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinReset = 17 // reset the active counter
	DefaultPinNext  = 27 // cycle to the next exercise
)
