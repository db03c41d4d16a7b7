package model

import (
	"github.com/rotisserie/eris"
)

var (
	// ErrInvalidRequest marks a malformed search or import request.
	ErrInvalidRequest = eris.New("invalid request")
	// ErrGeocodeFailed marks a location that could not be resolved to coordinates.
	ErrGeocodeFailed = eris.New("could not resolve location")
	// ErrProviderUnavailable marks a network or server failure of the places provider.
	ErrProviderUnavailable = eris.New("places provider unavailable")
)

func invalidf(format string, args ...any) error {
	return eris.Wrapf(ErrInvalidRequest, format, args...)
}
