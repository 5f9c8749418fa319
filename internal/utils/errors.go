package utils

import "errors"

type errorKind int

const (
	kindGeneric errorKind = iota
	kindValidation
	kindSecurity
	kindConfig
	kindJoinRoom
	kindSendMessage
)

// EmbersError carries an error kind so callers can branch on the class of
// failure without matching message strings.
type EmbersError struct {
	kind    errorKind
	msg     string
	details string
}

func (e *EmbersError) Error() string {
	if e.details != "" {
		return e.msg + ": " + e.details
	}
	return e.msg
}

// WithDetails returns a copy of the error with extra context appended.
func (e *EmbersError) WithDetails(details string) *EmbersError {
	return &EmbersError{kind: e.kind, msg: e.msg, details: details}
}

func newError(kind errorKind, msg string) *EmbersError {
	return &EmbersError{kind: kind, msg: msg}
}

func NewEmbersError(msg string) *EmbersError { return newError(kindGeneric, msg) }

func ValidationError(msg string) *EmbersError  { return newError(kindValidation, msg) }
func SecurityError(msg string) *EmbersError    { return newError(kindSecurity, msg) }
func ConfigError(msg string) *EmbersError      { return newError(kindConfig, msg) }
func JoinRoomError(msg string) *EmbersError    { return newError(kindJoinRoom, msg) }
func SendMessageError(msg string) *EmbersError { return newError(kindSendMessage, msg) }

func isKind(err error, kind errorKind) bool {
	var ee *EmbersError
	if errors.As(err, &ee) {
		return ee.kind == kind
	}
	return false
}

func IsValidationError(err error) bool  { return isKind(err, kindValidation) }
func IsSecurityError(err error) bool    { return isKind(err, kindSecurity) }
func IsConfigError(err error) bool      { return isKind(err, kindConfig) }
func IsJoinRoomError(err error) bool    { return isKind(err, kindJoinRoom) }
func IsSendMessageError(err error) bool { return isKind(err, kindSendMessage) }
