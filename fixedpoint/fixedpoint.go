// Package fixedpoint implements signed 17.14 fixed-point arithmetic.
//
// The kernel scheduler's MLFQ policy cannot use floating point because the
// kernel does not save FPU state across context switches, so recent_cpu and
// load_avg are carried as fixed-point values instead. The representation
// matches the 17.14 format used by the original BSD scheduler: the low 14
// bits are the fraction, the remaining 17 bits (plus sign) are the integer
// part, all packed into a signed 32-bit word.
package fixedpoint

// F is the fixed-point scaling factor (1 << 14) for the 17.14 format.
const F = 1 << 14

// Fixed is a signed 17.14 fixed-point number backed by int32. Overflow
// wraps per Go's defined int32 semantics, mirroring the underlying 32-bit
// integer wraparound of the original implementation; MLFQ values never
// approach the representable range in normal operation.
type Fixed int32

// FromInt converts an integer to fixed point.
func FromInt(n int) Fixed {
	return Fixed(n * F)
}

// Frac constructs n/d directly in fixed point without an intermediate
// integer division, matching the precision of the fraction operation in
// the original fixed-point API.
func Frac(n, d int) Fixed {
	return Fixed((int64(n) * F) / int64(d))
}

// Add returns a + b.
func Add(a, b Fixed) Fixed {
	return a + b
}

// AddInt returns a + n.
func AddInt(a Fixed, n int) Fixed {
	return a + FromInt(n)
}

// Sub returns a - b.
func Sub(a, b Fixed) Fixed {
	return a - b
}

// SubInt returns a - n.
func SubInt(a Fixed, n int) Fixed {
	return a - FromInt(n)
}

// Mul returns a * b.
func Mul(a, b Fixed) Fixed {
	return Fixed((int64(a) * int64(b)) / F)
}

// Div returns a / b.
func Div(a, b Fixed) Fixed {
	return Fixed((int64(a) * F) / int64(b))
}

// MulInt returns a * n.
func MulInt(a Fixed, n int) Fixed {
	return a * Fixed(n)
}

// DivInt returns a / n.
func DivInt(a Fixed, n int) Fixed {
	return a / Fixed(n)
}

// Round returns the nearest integer to a, rounding halves away from zero.
func Round(a Fixed) int {
	if a >= 0 {
		return int(a+F/2) / F
	}
	return int(a-F/2) / F
}

// Truncate returns the integer part of a, truncating toward zero.
func Truncate(a Fixed) int {
	return int(a) / F
}

// Increment returns a plus one fixed-point unit (1.0).
func Increment(a Fixed) Fixed {
	return a + F
}
