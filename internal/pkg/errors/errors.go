package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrTooMany      = errors.New("too many requests")
	ErrInternal     = errors.New("internal")

	// Sharing domain errors. ErrShareCodeInvalid deliberately covers
	// wrong, expired and revoked codes alike so callers cannot probe
	// which of the three it was.
	ErrShareCodeInvalid   = errors.New("invalid or expired share code")
	ErrShareCodeExhausted = errors.New("share code has no uses remaining")
	ErrSelfRedeem         = errors.New("cannot redeem own share code")
	ErrAlreadyShared      = errors.New("access already granted")
	ErrRaceLost           = errors.New("share code redemption lost race")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
