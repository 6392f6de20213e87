package devices

import "github.com/pkg/errors"

var (
	NotConfiguredError  = errors.New("channel not configured")
	IsNotConfigured     = isErrorFunc(NotConfiguredError)
	NotLoadedError      = errors.New("no waveform loaded")
	IsNotLoaded         = isErrorFunc(NotLoadedError)
	AlreadyStartedError = errors.New("playback already started")
	IsAlreadyStarted    = isErrorFunc(AlreadyStartedError)

	maskAny = errors.WithStack
)

func isErrorFunc(typeOfError error) func(err error) bool {
	return func(err error) bool {
		return err == typeOfError || errors.Cause(err) == typeOfError
	}
}
