package prediction

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	InvalidInput ErrorKind = iota + 1
	ArtifactUnavailable
	InferenceFailed
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case ArtifactUnavailable:
		return "artifact_unavailable"
	case InferenceFailed:
		return "inference_failed"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is; every *Error matches the one of its kind.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrArtifactUnavailable = errors.New("model artifact unavailable")
	ErrInferenceFailed     = errors.New("inference failed")
)

type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.sentinel().Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == e.sentinel()
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case InvalidInput:
		return ErrInvalidInput
	case ArtifactUnavailable:
		return ErrArtifactUnavailable
	default:
		return ErrInferenceFailed
	}
}

// KindOf reports the kind of a prediction error, or 0 for other errors.
func KindOf(err error) ErrorKind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return 0
}

func newError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: err}
}
