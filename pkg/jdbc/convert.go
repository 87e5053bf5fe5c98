package jdbc

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"
)

// ResultAccessor reads one cell of the current result row by 1-indexed
// column. Every method reports whether the driver flagged the cell as SQL
// NULL after the read; the flag is only valid when consulted immediately,
// so implementations must re-check it per call rather than caching.
type ResultAccessor interface {
	// Object reads the cell through the driver's generic getter.
	Object(ctx context.Context, col int) (any, bool, error)
	String(ctx context.Context, col int) (string, bool, error)
	Long(ctx context.Context, col int) (int64, bool, error)
	Double(ctx context.Context, col int) (float64, bool, error)
	Bool(ctx context.Context, col int) (bool, bool, error)
	// Decimal reads an exact numeric as its canonical string form.
	Decimal(ctx context.Context, col int) (string, bool, error)
	Bytes(ctx context.Context, col int) ([]byte, bool, error)
	// Timestamp reads epoch milliseconds plus the sub-second nanosecond
	// component; nanos already includes the fraction carried in millis.
	Timestamp(ctx context.Context, col int) (millis int64, nanos int32, null bool, err error)
	// Blob and Clob read the whole large object into memory.
	Blob(ctx context.Context, col int) ([]byte, bool, error)
	Clob(ctx context.Context, col int) (string, bool, error)
	Array(ctx context.Context, col int) ([]any, bool, error)
}

// fromNative converts one result cell to a Go value using the typed
// accessor chosen by the column's type code. NULL cells yield nil
// regardless of the column type. Type codes without a mapping, and cells
// whose typed read fails, fall back to the generic object accessor so a
// driver-specific type degrades to a usable value instead of an error.
func fromNative(ctx context.Context, acc ResultAccessor, col int, code TypeCode, logger *slog.Logger) (any, error) {
	v, err := fromNativeTyped(ctx, acc, col, code)
	if err == nil {
		return v, nil
	}

	logger.Warn("typed column read failed; falling back to object",
		"column", col, "type", code.String(), "error", err)
	obj, null, objErr := acc.Object(ctx, col)
	if objErr != nil {
		return nil, dataError("fetch", fmt.Errorf("column %d (%s): %w", col, code, err))
	}
	if null {
		return nil, nil
	}
	return obj, nil
}

func fromNativeTyped(ctx context.Context, acc ResultAccessor, col int, code TypeCode) (any, error) {
	switch code {
	case TypeChar, TypeVarChar, TypeLongVarChar,
		TypeNChar, TypeNVarChar, TypeLongNVarChar:
		s, null, err := acc.String(ctx, col)
		if err != nil || null {
			return nil, err
		}
		return s, nil

	case TypeTinyInt, TypeSmallInt, TypeInteger, TypeBigInt:
		n, null, err := acc.Long(ctx, col)
		if err != nil || null {
			return nil, err
		}
		return n, nil

	case TypeFloat, TypeReal, TypeDouble:
		f, null, err := acc.Double(ctx, col)
		if err != nil || null {
			return nil, err
		}
		return f, nil

	case TypeBit, TypeBoolean:
		b, null, err := acc.Bool(ctx, col)
		if err != nil || null {
			return nil, err
		}
		return b, nil

	case TypeNumeric, TypeDecimal:
		// Exact numerics arrive as decimal strings and convert to float64.
		// Lossy beyond 15-16 significant digits.
		s, null, err := acc.Decimal(ctx, col)
		if err != nil || null {
			return nil, err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("parse decimal %q: %w", s, err)
		}
		return f, nil

	case TypeBinary, TypeVarBinary, TypeLongVarBinary:
		b, null, err := acc.Bytes(ctx, col)
		if err != nil || null {
			return nil, err
		}
		return b, nil

	case TypeDate, TypeTime, TypeTimestamp:
		// All temporal types travel as epoch millis plus the sub-second
		// nanosecond component; DATE carries midnight, TIME the epoch day.
		millis, nanos, null, err := acc.Timestamp(ctx, col)
		if err != nil || null {
			return nil, err
		}
		return timeFromEpoch(millis, nanos), nil

	case TypeBlob:
		b, null, err := acc.Blob(ctx, col)
		if err != nil || null {
			return nil, err
		}
		return b, nil

	case TypeClob, TypeNClob:
		s, null, err := acc.Clob(ctx, col)
		if err != nil || null {
			return nil, err
		}
		return s, nil

	case TypeArray:
		a, null, err := acc.Array(ctx, col)
		if err != nil || null {
			return nil, err
		}
		return a, nil
	}

	// Unknown code: the generic getter is the best available behavior.
	obj, null, err := acc.Object(ctx, col)
	if err != nil || null {
		return nil, err
	}
	return obj, nil
}

// timeFromEpoch combines epoch milliseconds with the sub-second
// nanosecond component. Seconds floor toward negative infinity, so
// pre-epoch instants keep their fraction instead of rounding a second
// forward.
func timeFromEpoch(millis int64, nanos int32) time.Time {
	sec := millis / 1000
	if millis%1000 < 0 {
		sec--
	}
	return time.Unix(sec, int64(nanos)).UTC()
}

// bindValue is the wire form of one bound parameter. Kind selects the
// setter on the gateway side; a nil value with kind "null" maps to the
// driver's untyped setNull.
type bindValue struct {
	Kind  string `json:"kind"`
	Value any    `json:"value,omitempty"`
}

// toNative converts one Go parameter into its wire form. Integer values
// widen to int64, floats to float64, and time.Time travels as RFC 3339
// with nanoseconds. []byte is base64-encoded by the JSON layer.
func toNative(arg any) (bindValue, error) {
	switch v := arg.(type) {
	case nil:
		return bindValue{Kind: "null"}, nil
	case bool:
		return bindValue{Kind: "bool", Value: v}, nil
	case int:
		return bindValue{Kind: "long", Value: int64(v)}, nil
	case int8:
		return bindValue{Kind: "long", Value: int64(v)}, nil
	case int16:
		return bindValue{Kind: "long", Value: int64(v)}, nil
	case int32:
		return bindValue{Kind: "long", Value: int64(v)}, nil
	case int64:
		return bindValue{Kind: "long", Value: v}, nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return bindValue{}, fmt.Errorf("uint parameter %d overflows int64", v)
		}
		return bindValue{Kind: "long", Value: int64(v)}, nil
	case uint8:
		return bindValue{Kind: "long", Value: int64(v)}, nil
	case uint16:
		return bindValue{Kind: "long", Value: int64(v)}, nil
	case uint32:
		return bindValue{Kind: "long", Value: int64(v)}, nil
	case uint64:
		if v > math.MaxInt64 {
			return bindValue{}, fmt.Errorf("uint64 parameter %d overflows int64", v)
		}
		return bindValue{Kind: "long", Value: int64(v)}, nil
	case float32:
		return bindValue{Kind: "double", Value: float64(v)}, nil
	case float64:
		return bindValue{Kind: "double", Value: v}, nil
	case string:
		return bindValue{Kind: "string", Value: v}, nil
	case []byte:
		return bindValue{Kind: "bytes", Value: v}, nil
	case time.Time:
		return bindValue{Kind: "time", Value: v.UTC().Format(time.RFC3339Nano)}, nil
	}
	return bindValue{}, fmt.Errorf("unsupported parameter type %T", arg)
}

// toNativeAll converts a parameter list, reporting the 1-indexed position
// of the first unconvertible value.
func toNativeAll(args []any) ([]bindValue, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]bindValue, len(args))
	for i, arg := range args {
		bv, err := toNative(arg)
		if err != nil {
			return nil, interfaceError("bind", "parameter %d: %v", i+1, err)
		}
		out[i] = bv
	}
	return out, nil
}
