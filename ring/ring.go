// Package ring implements arithmetic in the polynomial ring Z_q[X]/(X^N + 1)
// shared by the latticevault KEM and signature cores. Coefficients are kept in
// the canonical range [0, q) unless a function documents otherwise.
//
// Nothing in this package branches on secret-dependent coefficient values;
// comparisons and centering use mask arithmetic.
package ring

// N is the ring dimension shared by every parameter variant.
const N = 256

// Poly is a ring element with N coefficients.
type Poly [N]int32

// Mod returns x mod q in [0, q).
func Mod(x int64, q int32) int32 {
	r := int32(x % int64(q))
	r += (r >> 31) & q
	return r
}

// Center returns x (given in [0, q)) centered into (-q/2, q/2].
func Center(x, q int32) int32 {
	// mask is all ones when x > q/2
	mask := (q/2 - x) >> 31
	return x - (mask & q)
}

// Add returns a + b with coefficients reduced into [0, q).
func Add(a, b *Poly, q int32) Poly {
	var out Poly
	for i := 0; i < N; i++ {
		c := a[i] + b[i] - q
		c += (c >> 31) & q
		out[i] = c
	}
	return out
}

// Sub returns a - b with coefficients reduced into [0, q).
func Sub(a, b *Poly, q int32) Poly {
	var out Poly
	for i := 0; i < N; i++ {
		c := a[i] - b[i]
		c += (c >> 31) & q
		out[i] = c
	}
	return out
}

// Mul returns the negacyclic product a * b mod (X^N + 1, q) by schoolbook
// multiplication with 64-bit accumulation. X^N wraps to -1.
func Mul(a, b *Poly, q int32) Poly {
	var acc [N]int64
	for i := 0; i < N; i++ {
		ai := int64(a[i])
		if ai == 0 {
			continue
		}
		for j := 0; j < N; j++ {
			k := i + j
			p := ai * int64(b[j])
			if k < N {
				acc[k] += p
			} else {
				acc[k-N] -= p
			}
		}
	}
	var out Poly
	for i := 0; i < N; i++ {
		out[i] = Mod(acc[i], q)
	}
	return out
}

// MulAcc adds the negacyclic product a * b into acc without reduction.
// Callers reduce with Reduce once all products are accumulated; this keeps
// matrix-vector products to a single modular reduction per coefficient.
func MulAcc(a, b *Poly, acc *[N]int64) {
	for i := 0; i < N; i++ {
		ai := int64(a[i])
		if ai == 0 {
			continue
		}
		for j := 0; j < N; j++ {
			k := i + j
			p := ai * int64(b[j])
			if k < N {
				acc[k] += p
			} else {
				acc[k-N] -= p
			}
		}
	}
}

// Reduce maps a 64-bit accumulator into a canonical polynomial.
func Reduce(acc *[N]int64, q int32) Poly {
	var out Poly
	for i := 0; i < N; i++ {
		out[i] = Mod(acc[i], q)
	}
	return out
}

// ExceedsNorm reports whether any centered coefficient of p has absolute
// value >= bound. The scan is branchless per coefficient; only the aggregate
// accept/reject decision is observable, which rejection sampling makes public
// by construction.
func ExceedsNorm(p *Poly, bound, q int32) bool {
	var flag int32
	for i := 0; i < N; i++ {
		c := Center(p[i], q)
		m := c >> 31
		abs := (c ^ m) - m
		// sign bit set when abs >= bound
		flag |= (bound - 1 - abs) >> 31
	}
	return flag&1 == 1
}

// Decompose splits every coefficient r into r1*alpha + r0 with
// r0 in (-alpha/2, alpha/2], where alpha = 2*gamma2, handling the q-1
// boundary case the way the signature scheme requires.
func Decompose(p *Poly, gamma2, q int32) (high, low Poly) {
	alpha := 2 * gamma2
	for i := 0; i < N; i++ {
		r := p[i]
		r0 := r % alpha
		// center r0 into (-alpha/2, alpha/2]
		mask := (alpha/2 - r0) >> 31
		r0 -= mask & alpha
		t := r - r0
		// eq is all ones when t == q-1
		d := t ^ (q - 1)
		eq := ^((d | -d) >> 31)
		r1 := (t / alpha) &^ eq
		r0 -= eq & 1
		high[i] = r1
		low[i] = r0 + ((r0 >> 31) & q)
	}
	return high, low
}

// HighBits returns the high part of Decompose.
func HighBits(p *Poly, gamma2, q int32) Poly {
	high, _ := Decompose(p, gamma2, q)
	return high
}

// LowBits returns the low part of Decompose in canonical form; callers only
// measure its centered norm.
func LowBits(p *Poly, gamma2, q int32) Poly {
	_, low := Decompose(p, gamma2, q)
	return low
}

// Zeroize overwrites the polynomial with zeros.
func (p *Poly) Zeroize() {
	for i := range p {
		p[i] = 0
	}
}

// ZeroizeVec overwrites every polynomial in the slice with zeros.
func ZeroizeVec(v []Poly) {
	for i := range v {
		v[i].Zeroize()
	}
}
