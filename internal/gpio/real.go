//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads the buttons from actual hardware using Linux GPIO character device.
type RealReader struct {
	chip     *gpiocdev.Chip
	resetPin *gpiocdev.Line
	nextPin  *gpiocdev.Line
}

// NewRealReader creates a button reader for actual Raspberry Pi hardware.
func NewRealReader(pinReset, pinNext int) (*RealReader, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	// Momentary switches to ground; the pull-up holds the line high when open.
	resetLine, err := chip.RequestLine(pinReset, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request reset pin %d: %w", pinReset, err)
	}

	nextLine, err := chip.RequestLine(pinNext, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		resetLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request next pin %d: %w", pinNext, err)
	}

	return &RealReader{
		chip:     chip,
		resetPin: resetLine,
		nextPin:  nextLine,
	}, nil
}

// Read returns whether each button is held.
// Inverts raw GPIO: raw inactive (0) = pressed.
func (r *RealReader) Read() (bool, bool, error) {
	resetRaw, err := r.resetPin.Value()
	if err != nil {
		return false, false, fmt.Errorf("read reset pin: %w", err)
	}

	nextRaw, err := r.nextPin.Value()
	if err != nil {
		return false, false, fmt.Errorf("read next pin: %w", err)
	}

	return resetRaw == 0, nextRaw == 0, nil
}

// Close releases GPIO resources.
// Reconfigures pins to input with pull-down (matching Pi boot defaults) before
// closing to ensure clean state for system shutdown/reboot.
func (r *RealReader) Close() error {
	var errs []error

	// Reconfigure pins to match Raspberry Pi boot defaults (input with pull-down).
	// Leaving the pull-up enabled would keep driving the line after exit.
	for _, l := range []struct {
		name string
		line *gpiocdev.Line
	}{{"reset", r.resetPin}, {"next", r.nextPin}} {
		if l.line == nil {
			continue
		}
		if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", l.name, err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", l.name, err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
