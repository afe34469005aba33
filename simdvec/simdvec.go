package simdvec

import "math"

// Lanes is the number of elements in a Vec.  Sixteen int8 lanes fill one
// SSE register; sixteen int16 lanes fill one AVX2 register.  One lane
// carries one read of the current batch.
const Lanes = 16

// Elem is the set of native lane types.  int8 gives the fastest kernel,
// int16 the wider dynamic range.
type Elem interface {
	~int8 | ~int16
}

// Vec is a vector of Lanes scores or base codes.
type Vec[E Elem] [Lanes]E

// Mask is a per-lane boolean result; bit i corresponds to lane i.
type Mask uint16

// Any reports whether any lane is set.
func (m Mask) Any() bool { return m != 0 }

// Test reports whether lane i is set.
func (m Mask) Test(i int) bool { return m&(1<<uint(i)) != 0 }

// And intersects two masks.
func (m Mask) And(o Mask) Mask { return m & o }

// MinVal returns the smallest value representable in lane type E.
func MinVal[E Elem]() E {
	var z E
	switch any(z).(type) {
	case int8:
		return E(math.MinInt8)
	default:
		v := int16(math.MinInt16)
		return E(v)
	}
}

// MaxVal returns the largest value representable in lane type E.
func MaxVal[E Elem]() E {
	var z E
	switch any(z).(type) {
	case int8:
		return E(math.MaxInt8)
	default:
		v := int16(math.MaxInt16)
		return E(v)
	}
}

// RangeSize returns the number of distinct values of E minus one, i.e.
// MaxVal - MinVal as an int.
func RangeSize[E Elem]() int {
	return int(MaxVal[E]()) - int(MinVal[E]())
}

// Clamp saturates x (computed at full int width) to E's range.
func Clamp[E Elem](x int) E {
	if x < int(MinVal[E]()) {
		return MinVal[E]()
	}
	if x > int(MaxVal[E]()) {
		return MaxVal[E]()
	}
	return E(x)
}

// Splat broadcasts x to every lane.
func Splat[E Elem](x E) (v Vec[E]) {
	for i := range v {
		v[i] = x
	}
	return v
}

// AddSat returns a + b with per-lane saturation.
func AddSat[E Elem](a, b Vec[E]) (r Vec[E]) {
	for i := range r {
		r[i] = Clamp[E](int(a[i]) + int(b[i]))
	}
	return r
}

// SubSat returns a - b with per-lane saturation.
func SubSat[E Elem](a, b Vec[E]) (r Vec[E]) {
	for i := range r {
		r[i] = Clamp[E](int(a[i]) - int(b[i]))
	}
	return r
}

// Max returns the per-lane maximum of a and b.
func Max[E Elem](a, b Vec[E]) (r Vec[E]) {
	for i := range r {
		if a[i] > b[i] {
			r[i] = a[i]
		} else {
			r[i] = b[i]
		}
	}
	return r
}

// Eq compares lanes for equality.
func Eq[E Elem](a, b Vec[E]) (m Mask) {
	for i := range a {
		if a[i] == b[i] {
			m |= 1 << uint(i)
		}
	}
	return m
}

// EqScalar compares every lane of a against x.
func EqScalar[E Elem](a Vec[E], x E) (m Mask) {
	for i := range a {
		if a[i] == x {
			m |= 1 << uint(i)
		}
	}
	return m
}

// Gt reports a > b per lane.
func Gt[E Elem](a, b Vec[E]) (m Mask) {
	for i := range a {
		if a[i] > b[i] {
			m |= 1 << uint(i)
		}
	}
	return m
}

// Lt reports a < b per lane.
func Lt[E Elem](a, b Vec[E]) (m Mask) {
	for i := range a {
		if a[i] < b[i] {
			m |= 1 << uint(i)
		}
	}
	return m
}

// Blend selects t[i] where the mask is set and f[i] where it is not.
func Blend[E Elem](m Mask, t, f Vec[E]) (r Vec[E]) {
	for i := range r {
		if m&(1<<uint(i)) != 0 {
			r[i] = t[i]
		} else {
			r[i] = f[i]
		}
	}
	return r
}
