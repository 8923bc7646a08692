package plot

import "errors"

var (
	// ErrInit marks a Plot whose canvas or font could not be set up.
	// Such a Plot stays invalid.
	ErrInit = errors.New("plot: initialization failed")
	// ErrInvalidArgument is returned for nil outputs, bad dimensions and
	// unsupported file extensions.
	ErrInvalidArgument = errors.New("plot: invalid argument")
	// ErrInvalidState is returned for calls made in the wrong phase, such as
	// readback before Render or drawing after Render without Clear.
	ErrInvalidState = errors.New("plot: invalid state")
	// ErrEncoding is returned when the encoder fails or writes nothing.
	ErrEncoding = errors.New("plot: encoding failed")
)
