package service

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyMessage = errors.New("message is required")
	ErrEmptyTeach   = errors.New("question and answer are required")
)

// FailureKind classifies how an external generation call failed. The resolver
// branches on the kind instead of sniffing prefixes of the returned text.
type FailureKind int

const (
	FailureTimeout FailureKind = iota
	FailureNetwork
	FailureAPIError // the API itself reported an error body
	FailureBadShape // response did not carry generated_text in a known shape
)

func (k FailureKind) String() string {
	switch k {
	case FailureTimeout:
		return "timeout"
	case FailureNetwork:
		return "network"
	case FailureAPIError:
		return "api_error"
	case FailureBadShape:
		return "bad_shape"
	}
	return "unknown"
}

// GenerateError is a typed generation failure.
type GenerateError struct {
	Kind FailureKind
	Err  error
}

func (e *GenerateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("generation failed (%s)", e.Kind)
}

func (e *GenerateError) Unwrap() error {
	return e.Err
}
