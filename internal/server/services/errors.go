package services

import (
	"fmt"

	"github.com/dmitrijs2005/eimzo-auth/internal/common"
)

// MessageError pairs a common sentinel with the message shown to the user.
type MessageError struct {
	Err     error
	Message string
}

func (e *MessageError) Error() string { return e.Message }

func (e *MessageError) Unwrap() error { return e.Err }

var (
	// ErrIdentityMissing is returned when a certificate carries neither PINFL nor INN.
	ErrIdentityMissing = &MessageError{Err: common.ErrorValidation, Message: "PINFL yoki INN topilmadi sertifikatda"}

	// ErrAuthRequired is returned for missing or invalid sessions.
	ErrAuthRequired = &MessageError{Err: common.ErrorUnauthorized, Message: "Autentifikatsiya talab qilinadi"}

	// ErrSessionEnded is ErrAuthRequired for a session past its expiry.
	ErrSessionEnded = &MessageError{
		Err:     fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrSessionExpired),
		Message: ErrAuthRequired.Message,
	}
)
