package transmit

import "github.com/pkg/errors"

var (
	// TransmitError indicates a hardware load, start or completion failure.
	TransmitError = errors.New("transmit failed")
)

// IsTransmitError returns true when the given error is caused by a TransmitError.
func IsTransmitError(err error) bool {
	return err == TransmitError || errors.Cause(err) == TransmitError
}
