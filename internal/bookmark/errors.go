package bookmark

import (
	"errors"
	"fmt"
)

// Kind classifies why fetching bookmarks from a service failed.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindStatus
	KindParse
)

var (
	ErrNetwork = errors.New("network failure")
	ErrStatus  = errors.New("unexpected status")
	ErrParse   = errors.New("parse failure")
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindStatus:
		return "status"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindStatus:
		return ErrStatus
	case KindParse:
		return ErrParse
	default:
		return nil
	}
}

// FetchError is returned by the fetchers. An empty result is not an error.
// It matches ErrNetwork, ErrStatus or ErrParse with errors.Is.
type FetchError struct {
	Source     string
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %s: %s", e.Source, e.Kind)
	if e.Kind == KindStatus {
		msg += fmt.Sprintf(" %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func NetworkError(source string, err error) *FetchError {
	return &FetchError{Source: source, Kind: KindNetwork, Err: err}
}

func StatusError(source string, code int) *FetchError {
	return &FetchError{Source: source, Kind: KindStatus, StatusCode: code}
}

func ParseError(source string, err error) *FetchError {
	return &FetchError{Source: source, Kind: KindParse, Err: err}
}
