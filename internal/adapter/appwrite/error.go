package appwrite

import (
	"fmt"
	"net/http"
	"strings"

	"healthmate/internal/domain"
)

// Error is an Appwrite error response. It unwraps to the matching domain
// sentinel when the type code is one the app reacts to.
type Error struct {
	Status  int    `json:"-"`
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`

	kind error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("appwrite request failed with status %d", e.Status)
}

func (e *Error) Unwrap() error { return e.kind }

type operation int

const (
	opSignup operation = iota
	opLogin
	opAccount
	opLogout
)

// classify sets the domain sentinel for e as seen by op.
func classify(op operation, e *Error) *Error {
	switch {
	case e.Type == "user_session_already_exists":
		e.kind = domain.ErrSessionActive
	case e.Type == "user_already_exists":
		e.kind = domain.ErrEmailTaken
	case e.Type == "user_invalid_credentials":
		e.kind = domain.ErrInvalidCredentials
	case op == opSignup && (strings.HasPrefix(e.Type, "password_") || e.Type == "general_argument_invalid"):
		e.kind = domain.ErrPasswordPolicy
	case (op == opAccount || op == opLogout) && e.Status == http.StatusUnauthorized:
		e.kind = domain.ErrNoSession
	}
	return e
}
