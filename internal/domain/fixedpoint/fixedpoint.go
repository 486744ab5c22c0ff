// Package fixedpoint implements the integer-only scaled arithmetic every
// scoring component builds on.
//
// A fractional quantity q is stored as the int64 q*Scale. Products and
// quotients are formed in a 256-bit two's-complement intermediate and the
// only rounding rule is truncation toward zero.
package fixedpoint

import (
	"github.com/holiman/uint256"
)

// Scale is the integer that represents 1.0.
const Scale int64 = 10_000

// ScaledMultiply returns trunc(a*b / Scale).
func ScaledMultiply(a, b int64) (int64, error) {
	return MulDiv(a, b, Scale)
}

// ScaledDivide returns trunc(a*Scale / b).
func ScaledDivide(a, b int64) (int64, error) {
	return MulDiv(a, Scale, b)
}

// MulDiv returns trunc(a*b / d) without intermediate overflow.
func MulDiv(a, b, d int64) (int64, error) {
	if d == 0 {
		return 0, ErrDivisionByZero
	}
	var p uint256.Int
	p.Mul(wide(a), wide(b))
	p.SDiv(&p, wide(d))
	v, ok := narrow(&p)
	if !ok {
		return 0, ErrOverflow
	}
	return v, nil
}

// Rescale maps v from [lo, hi] onto [0, Scale] as trunc((v-lo)*Scale / (hi-lo)).
// The differences are taken at full width, so extreme bounds cannot overflow.
func Rescale(v, lo, hi int64) (int64, error) {
	if hi <= lo {
		return 0, ErrEmptyRange
	}
	var num, den uint256.Int
	num.Sub(wide(v), wide(lo))
	num.Mul(&num, wide(Scale))
	den.Sub(wide(hi), wide(lo))
	num.SDiv(&num, &den)
	r, ok := narrow(&num)
	if !ok {
		return 0, ErrOverflow
	}
	return r, nil
}

// Clamp bounds v into [lo, hi]. lo must not exceed hi.
func Clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampUnit bounds v into [0, Scale] and reports whether it had to.
func ClampUnit(v int64) (int64, bool) {
	c := Clamp(v, 0, Scale)
	return c, c != v
}

// wide sign-extends v into 256 bits.
func wide(v int64) *uint256.Int {
	z := &uint256.Int{uint64(v)}
	if v < 0 {
		z[1], z[2], z[3] = ^uint64(0), ^uint64(0), ^uint64(0)
	}
	return z
}

// narrow converts z back to int64 when it is sign-extended from 64 bits.
func narrow(z *uint256.Int) (int64, bool) {
	switch {
	case z[1] == 0 && z[2] == 0 && z[3] == 0 && z[0]>>63 == 0:
	case z[1] == ^uint64(0) && z[2] == ^uint64(0) && z[3] == ^uint64(0) && z[0]>>63 == 1:
	default:
		return 0, false
	}
	return int64(z[0]), true //nolint:gosec // range checked above
}

// fits128 reports whether z is sign-extended from 128 bits.
func fits128(z *uint256.Int) bool {
	if z[2] == 0 && z[3] == 0 {
		return z[1]>>63 == 0
	}
	if z[2] == ^uint64(0) && z[3] == ^uint64(0) {
		return z[1]>>63 == 1
	}
	return false
}
