package trigger

import "github.com/pkg/errors"

var (
	// BusyError indicates a trigger arrived while a generation was running.
	// Such triggers are dropped, not queued.
	BusyError = errors.New("generation in progress")

	maskAny = errors.WithStack
)

// IsBusy returns true when the given error is caused by a BusyError.
func IsBusy(err error) bool {
	return err == BusyError || errors.Cause(err) == BusyError
}
