// Package auth implements the frontend side of the authentication exchanges
// named in an AuthenticationXXX message: MD5 password hashing and
// SCRAM-SHA-256 (RFC 5802/7677) via mellium.im/sasl. A cleartext password
// needs no computation and is sent by the caller as-is.
package auth

import "fmt"

// Plugin drives one authentication sub-exchange to completion. Step is
// called once per AuthenticationXXX message the server sends (after the
// initial one that selected this plugin); it returns the bytes to send back
// as the next PasswordMessage/SASL response, or done=true once no further
// client message is required before the server's final AuthenticationOk.
type Plugin interface {
	// Name identifies the plugin for logging; for SASL mechanisms this is
	// the mechanism name (e.g. "SCRAM-SHA-256").
	Name() string

	// Initial returns the first message to send, if this mechanism sends
	// one unprompted (SASL's initial response); ok is false when the
	// mechanism has nothing to send before the server's next challenge.
	Initial() (resp []byte, ok bool)

	// Step consumes one server challenge/outcome and returns the client's
	// next response, or done=true if authentication is now complete and no
	// further response is needed.
	Step(serverData []byte) (resp []byte, done bool, err error)
}

// ErrUnsupportedMechanism is returned when the server's AuthenticationSASL
// mechanism list contains nothing this package implements.
type ErrUnsupportedMechanism struct {
	Offered []string
}

func (e *ErrUnsupportedMechanism) Error() string {
	return fmt.Sprintf("pgwire: server offered no supported SASL mechanism (got %v)", e.Offered)
}
