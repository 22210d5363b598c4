package mpesa

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPhone                 = errors.New("mpesa: invalid phone number")
	ErrInvalidCallbackConfiguration = errors.New("mpesa: callback url must be an absolute https url")
	ErrInvalidAmount                = errors.New("mpesa: amount must be at least 1")
	ErrGatewayTransport             = errors.New("mpesa: gateway request failed")
	ErrMalformedCallback            = errors.New("mpesa: malformed callback payload")
)

// GatewayError is a non-success answer from Daraja. It matches ErrGatewayTransport.
type GatewayError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *GatewayError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("mpesa: gateway returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("mpesa: gateway returned status %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return ErrGatewayTransport
}
