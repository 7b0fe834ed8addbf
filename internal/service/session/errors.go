package session

import (
	"errors"
	"fmt"
)

// ErrSuperseded is returned when a newer operation (or a phone edit) took
// ownership of the session before this operation's response arrived.
var ErrSuperseded = errors.New("superseded by a newer request")

// Validation reasons.
const (
	ReasonMissingPhone = "missing phone"
	ReasonEmptyReport  = "empty report"
	ReasonInvalidImage = "invalid image"
)

// User-facing prompts shown for validation failures.
const (
	PromptMissingPhone = "Digite o telefone (somente números)."
	PromptEmptyReport  = "Descreva o problema ou envie pelo menos 1 imagem."
	PromptInvalidImage = "Formato inválido. Envie JPG, PNG ou WEBP."
)

// ValidationError rejects an operation before any network call is made.
type ValidationError struct {
	Reason string
	Prompt string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewInvalidImage wraps an attachment problem as a validation failure.
func NewInvalidImage(err error) *ValidationError {
	return &ValidationError{Reason: ReasonInvalidImage, Prompt: PromptInvalidImage, Err: err}
}

func missingPhone() *ValidationError {
	return &ValidationError{Reason: ReasonMissingPhone, Prompt: PromptMissingPhone}
}

func emptyReport() *ValidationError {
	return &ValidationError{Reason: ReasonEmptyReport, Prompt: PromptEmptyReport}
}

// TransportError covers network failures, non-2xx answers and undecodable bodies.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// BusinessError is an explicit error reported by the helpdesk backend.
type BusinessError struct {
	Message string
}

func (e *BusinessError) Error() string {
	return "helpdesk error: " + e.Message
}
