package result

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/pior/redis/resp"
)

var (
	ErrInvalidNumber = errors.New("result: invalid number")
	ErrNumberRange   = errors.New("result: number out of range")
)

// Number is a numeric value kept in its canonical text form, as the store
// sends and parses it. Conversion to a Go numeric type happens at the edge,
// with NumberAs, and fails rather than losing information.
//
// The zero value is 0.
type Number struct {
	text string
}

// Numeric is the set of Go types a Number converts to.
type Numeric interface {
	int | int8 | int16 | int32 | int64 | uint | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

// ParseNumber validates s as a store number: an integer, a decimal or
// exponent float, or inf, +inf, -inf, nan (any case).
func ParseNumber(s string) (Number, error) {
	if s == "" {
		return Number{}, fmt.Errorf("%w: empty", ErrInvalidNumber)
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil && !errors.Is(err, strconv.ErrRange) {
		return Number{}, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return Number{text: s}, nil
}

// MustParseNumber is like ParseNumber but panics on invalid input.
func MustParseNumber(s string) Number {
	n, err := ParseNumber(s)
	if err != nil {
		panic(err)
	}
	return n
}

func NumberFromInt64(v int64) Number {
	return Number{text: strconv.FormatInt(v, 10)}
}

func NumberFromUint64(v uint64) Number {
	return Number{text: strconv.FormatUint(v, 10)}
}

// NumberFromFloat64 uses the shortest text that parses back to v.
func NumberFromFloat64(v float64) Number {
	if math.IsNaN(v) {
		return Number{text: "nan"}
	}
	return Number{text: resp.FormatFloat(v)}
}

// NumberOf converts any Go numeric value.
func NumberOf[T Numeric](v T) Number {
	switch v := any(v).(type) {
	case float32:
		if math.IsNaN(float64(v)) {
			return Number{text: "nan"}
		}
		if math.IsInf(float64(v), 0) {
			return NumberFromFloat64(float64(v))
		}
		return Number{text: strconv.FormatFloat(float64(v), 'g', -1, 32)}
	case float64:
		return NumberFromFloat64(v)
	case uint:
		return NumberFromUint64(uint64(v))
	case uint8:
		return NumberFromUint64(uint64(v))
	case uint16:
		return NumberFromUint64(uint64(v))
	case uint32:
		return NumberFromUint64(uint64(v))
	case uint64:
		return NumberFromUint64(v)
	}
	return NumberFromInt64(int64(v))
}

func (n Number) String() string {
	if n.text == "" {
		return "0"
	}
	return n.text
}

// IsZero reports whether n is the zero value (not whether it equals 0).
func (n Number) IsZero() bool {
	return n.text == ""
}

// AppendArg implements resp.Arg.
func (n Number) AppendArg(dst []byte) []byte {
	return append(dst, n.String()...)
}

// Float64 returns n as a float64. Infinities and NaN are allowed, finite
// values beyond the float64 range are not.
func (n Number) Float64() (float64, error) {
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: %s", ErrNumberRange, n)
		}
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, n.text)
	}
	return f, nil
}

// Int64 returns n as an int64. Float text is accepted when integral ("5.0", "1e3").
func (n Number) Int64() (int64, error) {
	s := n.String()
	i, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return i, nil
	}
	if errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("%w: %s", ErrNumberRange, s)
	}

	f, err := n.integral()
	if err != nil {
		return 0, err
	}
	if f < -(1<<63) || f >= 1<<63 {
		return 0, fmt.Errorf("%w: %s", ErrNumberRange, s)
	}
	return int64(f), nil
}

// Uint64 returns n as a uint64. Float text is accepted when integral.
func (n Number) Uint64() (uint64, error) {
	s := n.String()
	u, err := strconv.ParseUint(s, 10, 64)
	if err == nil {
		return u, nil
	}
	if errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("%w: %s", ErrNumberRange, s)
	}
	// negative integer
	if i, ierr := strconv.ParseInt(s, 10, 64); (ierr == nil && i < 0) || errors.Is(ierr, strconv.ErrRange) {
		return 0, fmt.Errorf("%w: %s", ErrNumberRange, s)
	}

	f, err := n.integral()
	if err != nil {
		return 0, err
	}
	if f < 0 || f >= 1<<64 {
		return 0, fmt.Errorf("%w: %s", ErrNumberRange, s)
	}
	return uint64(f), nil
}

func (n Number) integral() (float64, error) {
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %s is not an integer", ErrNumberRange, n)
	}
	return f, nil
}

// NumberAs converts n to T without losing information: integer targets
// reject fractions and overflow, float32 rejects values beyond its range.
func NumberAs[T Numeric](n Number) (T, error) {
	var zero T
	switch any(zero).(type) {
	case float64:
		f, err := n.Float64()
		return T(f), err

	case float32:
		f, err := strconv.ParseFloat(n.String(), 32)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return zero, fmt.Errorf("%w: %s", ErrNumberRange, n)
			}
			return zero, fmt.Errorf("%w: %q", ErrInvalidNumber, n.text)
		}
		return T(f), nil

	case uint, uint8, uint16, uint32, uint64:
		u, err := n.Uint64()
		if err != nil {
			return zero, err
		}
		v := T(u)
		if uint64(v) != u {
			return zero, fmt.Errorf("%w: %s", ErrNumberRange, n)
		}
		return v, nil

	default:
		i, err := n.Int64()
		if err != nil {
			return zero, err
		}
		v := T(i)
		if int64(v) != i {
			return zero, fmt.Errorf("%w: %s", ErrNumberRange, n)
		}
		return v, nil
	}
}
