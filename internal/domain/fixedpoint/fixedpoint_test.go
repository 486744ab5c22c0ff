package fixedpoint_test

import (
	"math"
	"testing"

	"github.com/okian/fairness/internal/domain/fixedpoint"
	. "github.com/smartystreets/goconvey/convey"
)

func TestScaledArithmetic(t *testing.T) {
	Convey("Given the scaled arithmetic kernel", t, func() {
		Convey("When multiplying two fractions", func() {
			v, err := fixedpoint.ScaledMultiply(5000, 5000)

			Convey("Then the product is rescaled", func() {
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 2500)
			})
		})

		Convey("When the exact result is not representable", func() {
			pos, err1 := fixedpoint.ScaledMultiply(3, 3333)
			neg, err2 := fixedpoint.ScaledMultiply(-3, 3333)
			div, err3 := fixedpoint.ScaledDivide(-1, 3)

			Convey("Then it truncates toward zero on both sides", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(err3, ShouldBeNil)
				So(pos, ShouldEqual, 0)
				So(neg, ShouldEqual, 0)
				So(div, ShouldEqual, -3333)
			})
		})

		Convey("When the intermediate exceeds 64 bits", func() {
			v, err := fixedpoint.ScaledMultiply(math.MaxInt64, fixedpoint.Scale)

			Convey("Then the wide intermediate keeps it exact", func() {
				So(err, ShouldBeNil)
				So(v, ShouldEqual, int64(math.MaxInt64))
			})
		})

		Convey("When the result does not fit in int64", func() {
			_, err1 := fixedpoint.ScaledMultiply(math.MaxInt64, math.MaxInt64)
			_, err2 := fixedpoint.MulDiv(math.MinInt64, -1, 1)
			_, err3 := fixedpoint.MulDiv(math.MinInt64, 1, -1)

			Convey("Then ErrOverflow is returned", func() {
				So(err1, ShouldEqual, fixedpoint.ErrOverflow)
				So(err2, ShouldEqual, fixedpoint.ErrOverflow)
				So(err3, ShouldEqual, fixedpoint.ErrOverflow)
			})
		})

		Convey("When dividing by zero", func() {
			_, err1 := fixedpoint.ScaledDivide(1, 0)
			_, err2 := fixedpoint.MulDiv(1, 1, 0)

			Convey("Then ErrDivisionByZero is returned", func() {
				So(err1, ShouldEqual, fixedpoint.ErrDivisionByZero)
				So(err2, ShouldEqual, fixedpoint.ErrDivisionByZero)
			})
		})

		Convey("When dividing", func() {
			v, err := fixedpoint.ScaledDivide(1, 3)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 3333)
		})
	})
}

func TestRescale(t *testing.T) {
	Convey("Given a declared score range", t, func() {
		Convey("When rescaling values inside it", func() {
			lo, err1 := fixedpoint.Rescale(-500, -500, 1500)
			mid, err2 := fixedpoint.Rescale(500, -500, 1500)
			hi, err3 := fixedpoint.Rescale(1500, -500, 1500)
			odd, err4 := fixedpoint.Rescale(1, 0, 3)

			Convey("Then they map onto [0, Scale] with truncation", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(err3, ShouldBeNil)
				So(err4, ShouldBeNil)
				So(lo, ShouldEqual, 0)
				So(mid, ShouldEqual, 5000)
				So(hi, ShouldEqual, fixedpoint.Scale)
				So(odd, ShouldEqual, 3333)
			})
		})

		Convey("When the range spans all of int64", func() {
			v, err := fixedpoint.Rescale(math.MaxInt64, math.MinInt64, math.MaxInt64)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, fixedpoint.Scale)
		})

		Convey("When the range is empty", func() {
			_, err := fixedpoint.Rescale(1, 5, 5)
			So(err, ShouldEqual, fixedpoint.ErrEmptyRange)
		})
	})
}

func TestClamp(t *testing.T) {
	Convey("Given values around the unit range", t, func() {
		cases := []struct {
			in      int64
			want    int64
			clamped bool
		}{
			{-1, 0, true},
			{0, 0, false},
			{fixedpoint.Scale, fixedpoint.Scale, false},
			{fixedpoint.Scale + 1, fixedpoint.Scale, true},
			{math.MinInt64, 0, true},
			{math.MaxInt64, fixedpoint.Scale, true},
		}

		Convey("Then ClampUnit bounds and reports each one", func() {
			for _, c := range cases {
				got, clamped := fixedpoint.ClampUnit(c.in)
				So(got, ShouldEqual, c.want)
				So(clamped, ShouldEqual, c.clamped)
			}
			So(fixedpoint.Clamp(7, 10, 20), ShouldEqual, 10)
			So(fixedpoint.Clamp(25, 10, 20), ShouldEqual, 20)
		})
	})
}

func TestAccumulator(t *testing.T) {
	Convey("Given an empty accumulator", t, func() {
		var acc fixedpoint.Accumulator

		Convey("When adding values and products", func() {
			So(acc.Add(500), ShouldBeNil)
			So(acc.Add(-200), ShouldBeNil)
			So(acc.AddProduct(40, 10), ShouldBeNil)

			Convey("Then the sum is exact", func() {
				v, err := acc.Int64()
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 700)
				So(acc.Sign(), ShouldEqual, 1)
				q, err := acc.Quotient(100)
				So(err, ShouldBeNil)
				So(q, ShouldEqual, 7)
			})
		})

		Convey("When the sum grows past int64", func() {
			So(acc.Add(math.MaxInt64), ShouldBeNil)
			So(acc.Add(math.MaxInt64), ShouldBeNil)

			Convey("Then Int64 overflows but clamping and division stay exact", func() {
				_, err := acc.Int64()
				So(err, ShouldEqual, fixedpoint.ErrOverflow)
				So(acc.ClampInt64(0, 10_000), ShouldEqual, 10_000)
				q, err := acc.Quotient(2)
				So(err, ShouldBeNil)
				So(q, ShouldEqual, int64(math.MaxInt64))
			})
		})

		Convey("When the sum would leave the 128-bit range", func() {
			So(acc.AddProduct(math.MinInt64, math.MinInt64), ShouldBeNil)
			err := acc.AddProduct(math.MinInt64, math.MinInt64)

			Convey("Then ErrOverflow is returned and the sum is kept", func() {
				So(err, ShouldEqual, fixedpoint.ErrOverflow)
				So(acc.ClampInt64(math.MinInt64, math.MaxInt64), ShouldEqual, int64(math.MaxInt64))
				acc.Reset()
				So(acc.Sign(), ShouldEqual, 0)
			})
		})

		Convey("When the sum is negative", func() {
			So(acc.Add(-7), ShouldBeNil)
			q, err := acc.Quotient(2)
			So(err, ShouldBeNil)
			So(q, ShouldEqual, -3)
			So(acc.ClampInt64(0, 10), ShouldEqual, 0)
			_, err = acc.Quotient(0)
			So(err, ShouldEqual, fixedpoint.ErrDivisionByZero)
		})
	})
}
