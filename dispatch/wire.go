package dispatch

import "github.com/pkg/errors"

// Wire shapes for the HTTP JSON request/response channel. The channel only
// understands primitive values; the fault code is what lets a client map an
// attribute-not-found rejection back to ErrUnknownAttribute while backend
// failures travel as opaque messages.

const (
	FaultUnknownAttribute = "unknown-attribute"
	FaultBadArgument      = "bad-argument"
	FaultBackend          = "backend"
)

type CallRequest struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

type CallResponse struct {
	Result interface{} `json:"result"`
	Fault  *Fault      `json:"fault,omitempty"`
}

type Fault struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FaultFromError encodes an error for the wire.
func FaultFromError(err error) *Fault {
	code := FaultBackend
	switch errors.Cause(err) {
	case ErrUnknownAttribute:
		code = FaultUnknownAttribute
	case ErrBadArgument:
		code = FaultBadArgument
	}
	return &Fault{Code: code, Message: err.Error()}
}

// Err decodes a wire fault back into an error, preserving the original
// message unmodified.
func (f *Fault) Err() error {
	switch f.Code {
	case FaultUnknownAttribute:
		return errors.Wrap(ErrUnknownAttribute, f.Message)
	case FaultBadArgument:
		return errors.Wrap(ErrBadArgument, f.Message)
	}
	return errors.New(f.Message)
}
