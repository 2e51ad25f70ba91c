package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrInvalidCredential   = errors.New("invalid credential")
	ErrIdentityUnavailable = errors.New("identity backend unavailable")
	ErrInvalidInput        = errors.New("invalid input")
	ErrMisconfigured       = errors.New("service misconfigured")
	ErrProviderRejected    = errors.New("provider rejected")
	ErrTimeout             = errors.New("processing timeout")
	ErrTransientFetch      = errors.New("transient status fetch failure")
	ErrQuotaExceeded       = errors.New("quota exceeded")
)
