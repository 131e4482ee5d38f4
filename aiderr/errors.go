// Package aiderr defines the error-kind taxonomy shared by the key server,
// the AIS issuer, and the credential validator, and the pure mapping from
// each kind to the HTTP status the AIS boundary surfaces it as.
package aiderr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind identifies one of the fixed error categories from the error handling
// design. Kinds, not classes: callers switch on Kind, never on message text,
// except for the documented "KS unavailable" substring check on
// GenerationFailed.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidFormat
	KindInvalidPrefix
	KindEmptyID
	KindInvalidTimestamp
	KindBase64Decode
	KindHexDecode
	KindExpired
	KindRealmError
	KindGenerationFailed
	KindDecryptionFailed
	KindEciesError
	KindJSONSerialization
	KindDuplicateNonce
	KindTimestampOutOfWindow
	KindInvalidSignature
	KindNotFound
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidFormat:
		return "InvalidFormat"
	case KindInvalidPrefix:
		return "InvalidPrefix"
	case KindEmptyID:
		return "EmptyId"
	case KindInvalidTimestamp:
		return "InvalidTimestamp"
	case KindBase64Decode:
		return "Base64DecodeError"
	case KindHexDecode:
		return "HexDecodeError"
	case KindExpired:
		return "Expired"
	case KindRealmError:
		return "RealmError"
	case KindGenerationFailed:
		return "GenerationFailed"
	case KindDecryptionFailed:
		return "DecryptionFailed"
	case KindEciesError:
		return "EciesError"
	case KindJSONSerialization:
		return "JsonSerializationError"
	case KindDuplicateNonce:
		return "DuplicateNonce"
	case KindTimestampOutOfWindow:
		return "TimestampOutOfWindow"
	case KindInvalidSignature:
		return "InvalidSignature"
	case KindNotFound:
		return "NotFound"
	case KindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type carried across every package boundary in
// this module. Construct with New or Wrap; inspect with errors.As and Is.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind != KindDecryptionFailed && e.Kind != KindEciesError {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is(err, aiderr.KindSentinel) style comparisons by kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New constructs an *Error of the given kind with a message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf constructs an *Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap constructs an *Error of the given kind that wraps an underlying cause.
// The cause's text is never embedded verbatim when the kind is crypto-related
// (DecryptionFailed/EciesError) to avoid leaking key material in logs — callers
// pass a sanitized msg and the raw err is only surfaced via Unwrap for
// %w-style logging at the call site's discretion.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindSentinel returns a zero-value *Error of the given kind, suitable only
// as an errors.Is comparison target (its Msg/Err fields are meaningless).
func KindSentinel(kind Kind) *Error { return &Error{Kind: kind} }

// OfKind reports whether err (or any error it wraps) carries the given Kind.
func OfKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsKSUnavailable reports whether a GenerationFailed error is a KS failure
// that maps to 503 rather than 500: its message contains, compared
// case-insensitively, either "ks unavailable" or the substring "ks ".
func IsKSUnavailable(err error) bool {
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindGenerationFailed {
		return false
	}
	return strings.Contains(strings.ToLower(e.Msg), "ks unavailable") || strings.Contains(strings.ToLower(e.Msg), "ks ")
}

// HTTPStatus maps an error's Kind to the HTTP status code the AIS HTTP
// boundary should surface, per the §6.4 error code table. Unrecognized or
// non-*Error values map to 500.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindInvalidFormat, KindInvalidPrefix, KindEmptyID, KindInvalidTimestamp,
		KindBase64Decode, KindHexDecode:
		return http.StatusBadRequest
	case KindExpired:
		return http.StatusUnauthorized
	case KindRealmError:
		return http.StatusForbidden
	case KindGenerationFailed:
		if IsKSUnavailable(err) {
			return http.StatusServiceUnavailable
		}
		return http.StatusInternalServerError
	case KindDecryptionFailed, KindEciesError, KindJSONSerialization, KindInternal:
		return http.StatusInternalServerError
	case KindDuplicateNonce, KindInvalidSignature, KindTimestampOutOfWindow:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
