package jdbc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/jbridge/internal/jvm"
)

// Kind classifies bridge errors, mirroring the conventional driver error
// hierarchy.
type Kind int

const (
	// KindInterface marks caller configuration mistakes surfaced before
	// any network or database call (closed handles, malformed arguments).
	KindInterface Kind = iota
	// KindDatabase is the generic native-failure class, used when the
	// native exception does not reliably indicate a narrower kind.
	KindDatabase
	// KindOperational covers transient operational failures.
	KindOperational
	// KindIntegrity covers constraint violations.
	KindIntegrity
	// KindProgramming covers SQL syntax and misuse errors.
	KindProgramming
	// KindData covers failures converting or fetching row data.
	KindData
	// KindNotSupported marks operations the driver does not support.
	KindNotSupported
)

func (k Kind) String() string {
	switch k {
	case KindInterface:
		return "interface"
	case KindDatabase:
		return "database"
	case KindOperational:
		return "operational"
	case KindIntegrity:
		return "integrity"
	case KindProgramming:
		return "programming"
	case KindData:
		return "data"
	case KindNotSupported:
		return "not-supported"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a classified bridge error. SQLState and VendorCode are filled
// when the native exception carried them.
type Error struct {
	Kind       Kind
	Op         string
	Message    string
	SQLState   string
	VendorCode int
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("jdbc %s: %s error: %s", e.Op, e.Kind, e.Message)
	if e.SQLState != "" {
		msg += " (sqlstate " + e.SQLState + ")"
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind extracts the Kind from an error chain; ok is false when the
// chain contains no bridge error.
func ErrorKind(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func interfaceError(op, format string, args ...any) *Error {
	return &Error{Kind: KindInterface, Op: op, Message: fmt.Sprintf(format, args...)}
}

// databaseError classifies a native failure. Subdivision only happens when
// the exception class or SQLState reliably indicates the kind; everything
// else stays the generic database kind rather than guessing.
func databaseError(op string, err error) *Error {
	e := &Error{Kind: KindDatabase, Op: op, Message: err.Error(), Err: err}

	var rpcErr *jvm.RPCError
	if !errors.As(err, &rpcErr) {
		return e
	}
	e.Message = rpcErr.Message

	class, sqlState, vendorCode := rpcErr.ExceptionDetails()
	e.SQLState = sqlState
	e.VendorCode = vendorCode

	switch {
	case strings.Contains(class, "IntegrityConstraintViolation"):
		e.Kind = KindIntegrity
	case strings.Contains(class, "SyntaxErrorException"):
		e.Kind = KindProgramming
	case strings.Contains(class, "FeatureNotSupported"):
		e.Kind = KindNotSupported
	case strings.Contains(class, "Transient"), strings.Contains(class, "Recoverable"):
		e.Kind = KindOperational
	case strings.HasPrefix(sqlState, "23"):
		e.Kind = KindIntegrity
	case strings.HasPrefix(sqlState, "42"):
		e.Kind = KindProgramming
	case strings.HasPrefix(sqlState, "08"):
		e.Kind = KindOperational
	}
	return e
}

func dataError(op string, err error) *Error {
	return &Error{Kind: KindData, Op: op, Message: err.Error(), Err: err}
}
