package fixedpoint

import (
	"github.com/holiman/uint256"
)

// Accumulator is a wide running sum. Its value is kept inside the signed
// 128-bit range; an addition that would leave it fails with ErrOverflow and
// leaves the sum unchanged. The zero value is an empty sum.
type Accumulator struct {
	sum uint256.Int
}

// Add adds v.
func (a *Accumulator) Add(v int64) error {
	return a.add(wide(v))
}

// AddProduct adds x*y computed at full width.
func (a *Accumulator) AddProduct(x, y int64) error {
	var p uint256.Int
	p.Mul(wide(x), wide(y))
	return a.add(&p)
}

func (a *Accumulator) add(v *uint256.Int) error {
	var next uint256.Int
	next.Add(&a.sum, v)
	if !fits128(&next) {
		return ErrOverflow
	}
	a.sum = next
	return nil
}

// Sign returns -1, 0 or +1.
func (a *Accumulator) Sign() int {
	return a.sum.Sign()
}

// Int64 returns the sum when it fits in int64.
func (a *Accumulator) Int64() (int64, error) {
	v, ok := narrow(&a.sum)
	if !ok {
		return 0, ErrOverflow
	}
	return v, nil
}

// Quotient returns trunc(sum / d).
func (a *Accumulator) Quotient(d int64) (int64, error) {
	if d == 0 {
		return 0, ErrDivisionByZero
	}
	var q uint256.Int
	q.SDiv(&a.sum, wide(d))
	v, ok := narrow(&q)
	if !ok {
		return 0, ErrOverflow
	}
	return v, nil
}

// ClampInt64 bounds the sum into [lo, hi]. It is exact even when the sum
// itself does not fit in int64.
func (a *Accumulator) ClampInt64(lo, hi int64) int64 {
	if a.sum.Slt(wide(lo)) {
		return lo
	}
	if a.sum.Sgt(wide(hi)) {
		return hi
	}
	v, _ := narrow(&a.sum)
	return v
}

// Reset empties the sum.
func (a *Accumulator) Reset() {
	a.sum.Clear()
}
