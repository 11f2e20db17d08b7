// Package apperr classifies failures into the kinds the ETL reacts to.
//
// Transport and persistence failures are local to one call or one record and
// are absorbed by the caller. Configuration failures abort the run before any
// work begins. Validation rejections never surface as errors from a batch; they
// are counted.
package apperr

import (
	"github.com/cockroachdb/errors"
)

// Kind markers. Use errors.Is(err, ErrTransport) or KindOf(err).
var (
	ErrTransport     = errors.New("transport failure")
	ErrValidation    = errors.New("validation rejection")
	ErrPersistence   = errors.New("persistence conflict")
	ErrConfiguration = errors.New("configuration failure")
)

// Kind names a taxonomy bucket, used as a metric and log label
type Kind string

const (
	KindTransport     Kind = "transport"
	KindValidation    Kind = "validation"
	KindPersistence   Kind = "persistence"
	KindConfiguration Kind = "configuration"
	KindUnknown       Kind = "unknown"
)

// Transport marks err as an upstream network/timeout/HTTP-status failure
func Transport(err error) error {
	return mark(err, ErrTransport)
}

// Validation marks err as a rejected upstream record
func Validation(err error) error {
	return mark(err, ErrValidation)
}

// Persistence marks err as a store constraint or serialization failure
func Persistence(err error) error {
	return mark(err, ErrPersistence)
}

// Configuration marks err as a missing credential or store address
func Configuration(err error) error {
	return mark(err, ErrConfiguration)
}

func mark(err, kind error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, kind)
}

// KindOf reports which bucket err belongs to
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrTransport):
		return KindTransport
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	case errors.Is(err, ErrValidation):
		return KindValidation
	default:
		return KindUnknown
	}
}

// IsFatal reports whether err means the run cannot proceed at all
func IsFatal(err error) bool {
	return KindOf(err) == KindConfiguration
}
