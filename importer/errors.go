package importer

import (
	"errors"
	"fmt"
)

type FetchErrorKind string

const (
	KindUnreachable       FetchErrorKind = "unreachable"
	KindTimeout           FetchErrorKind = "timeout"
	KindBadStatus         FetchErrorKind = "bad-status"
	KindMalformedResponse FetchErrorKind = "malformed-response"
)

var (
	ErrUnreachable       = errors.New("node unreachable")
	ErrTimeout           = errors.New("node timed out")
	ErrBadStatus         = errors.New("unexpected status code")
	ErrMalformedResponse = errors.New("malformed response")
)

var sentinels = map[FetchErrorKind]error{
	KindUnreachable:       ErrUnreachable,
	KindTimeout:           ErrTimeout,
	KindBadStatus:         ErrBadStatus,
	KindMalformedResponse: ErrMalformedResponse,
}

// FetchError describes why a status endpoint could not be read.
type FetchError struct {
	Kind       FetchErrorKind
	Address    string
	StatusCode int // only set for KindBadStatus
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Kind == KindBadStatus:
		return fmt.Sprintf("fetching %s: %s (%d)", e.Address, e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetching %s: %s: %s", e.Address, e.Kind, e.Err)
	default:
		return fmt.Sprintf("fetching %s: %s", e.Address, e.Kind)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error of the same kind.
func (e *FetchError) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// KindOf returns the fetch error kind of err, or "" if err is not a FetchError.
func KindOf(err error) FetchErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
