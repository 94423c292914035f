package domain

import "errors"

// ErrorKind discriminates failure causes without string matching.
type ErrorKind string

const (
	ErrorKindConfig   ErrorKind = "config"
	ErrorKindNetwork  ErrorKind = "network"
	ErrorKindProtocol ErrorKind = "protocol"
)

// OpError is an operation failure with a classified cause.
type OpError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *OpError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func ConfigError(msg string, err error) *OpError {
	return &OpError{Kind: ErrorKindConfig, Message: msg, Err: err}
}

func NetworkError(msg string, err error) *OpError {
	return &OpError{Kind: ErrorKindNetwork, Message: msg, Err: err}
}

func ProtocolError(msg string, err error) *OpError {
	return &OpError{Kind: ErrorKindProtocol, Message: msg, Err: err}
}

// KindOf returns the kind of the first OpError in err's chain, or the empty
// string when err carries no classification.
func KindOf(err error) ErrorKind {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return ""
}
