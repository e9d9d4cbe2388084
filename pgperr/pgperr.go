// Package pgperr defines the error taxonomy shared by the key and
// signature engine: a fixed set of kinds, a source tag
// (which layer raised the error), and a numeric composite so callers
// can distinguish agent errors from core errors even with the text
// discarded.
//
// Errors are built on github.com/eluv-io/errors-go, which already gives
// us operation names, wrapped causes, and key/value context — we only
// add the Kind/Source/Code vocabulary.
package pgperr

import (
	"fmt"

	"github.com/eluv-io/errors-go"
)

// Source identifies which layer raised an error.
type Source int

const (
	SourceCore Source = iota
	SourceAgent
	SourceCryptoLib
)

func (s Source) String() string {
	switch s {
	case SourceAgent:
		return "agent"
	case SourceCryptoLib:
		return "crypto-lib"
	default:
		return "core"
	}
}

// Kind is this engine's error taxonomy. It intentionally names
// kinds, not Go types, so the same Kind can wrap different underlying
// causes.
type Kind int

const (
	Canceled Kind = iota
	BadPassphrase
	NoSecretKey
	NoPublicKey
	UnknownKeygrip
	BadSignature
	SignatureExpired
	KeyExpired
	KeyRevoked
	MissingCrossCert
	MalformedPacket
	UnsupportedAlgorithm
	UnsupportedCurve
	UnsupportedVersion
	CriticalSubpacketUnknown
	AgentProtocol
	AgentUnavailable
	IO
	InvalidUserID
	KeyAlreadyExists
	TimeConflict
	Internal
)

var kindNames = [...]string{
	"canceled", "bad-passphrase", "no-secret-key", "no-public-key",
	"unknown-keygrip", "bad-signature", "signature-expired", "key-expired",
	"key-revoked", "missing-cross-cert", "malformed-packet",
	"unsupported-algorithm", "unsupported-curve", "unsupported-version",
	"critical-subpacket-unknown", "agent-protocol", "agent-unavailable",
	"io", "invalid-user-id", "key-already-exists", "time-conflict", "internal",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// errKind maps our Kind to the nearest errors-go well-known Kind, so
// that callers generically inspecting errors.GetKind still get a
// sensible classification.
func (k Kind) errKind() errors.Kind {
	switch k {
	case MalformedPacket, UnsupportedAlgorithm, UnsupportedCurve,
		UnsupportedVersion, CriticalSubpacketUnknown, InvalidUserID,
		TimeConflict, BadPassphrase:
		return errors.K.Invalid
	case NoSecretKey, NoPublicKey, UnknownKeygrip:
		return errors.K.NotExist
	case KeyAlreadyExists:
		return errors.K.Exist
	case IO, AgentProtocol, AgentUnavailable:
		return errors.K.IO
	case Internal:
		return errors.K.Other
	default:
		return errors.K.Other
	}
}

// Code is the numeric composite of (Source, Kind) so a caller can tell
// agent errors from core errors even once the message text is gone:
// callers can switch on it without the message.
func Code(src Source, kind Kind) int {
	return int(src)<<8 | int(kind)
}

// Error is the error type returned across every package boundary in
// this engine.
type Error struct {
	Op     string
	Source Source
	Kind   Kind
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s/%s: %s", e.Op, e.Source, e.Kind, e.cause)
	}
	return fmt.Sprintf("%s: %s/%s", e.Op, e.Source, e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

// CodeOf returns the numeric composite for this error.
func (e *Error) CodeOf() int { return Code(e.Source, e.Kind) }

// E builds a tagged error. op names the operation (e.g.
// "sigbuilder.Verify"); kind and source classify it; extra may include
// a wrapped cause and/or key/value context forwarded to errors-go.
func E(op string, source Source, kind Kind, extra ...interface{}) error {
	e := &Error{Op: op, Source: source, Kind: kind}
	args := make([]interface{}, 0, len(extra)+2)
	args = append(args, op, kind.errKind())
	for _, a := range extra {
		if err, ok := a.(error); ok && e.cause == nil {
			e.cause = err
		}
		args = append(args, a)
	}
	args = append(args, "code", e.CodeOf(), "source", source.String(), "kind", kind.String())
	wrapped := errors.E(args...)
	e.cause = wrapped
	return e
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if x, ok := err.(*Error); ok {
			e = x
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}
