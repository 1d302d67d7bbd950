package ring

import "github.com/latticevault/latticevault-go/utils"

// Compress maps every coefficient of p into d bits: round((2^d / q) * x) mod 2^d.
// The mapping is lossy; Decompress reverses it up to rounding error.
func Compress(p *Poly, d uint, q int32) Poly {
	var out Poly
	mask := int32(1)<<d - 1
	half := uint64(q) / 2
	for i := 0; i < N; i++ {
		out[i] = int32(((uint64(p[i])<<d)+half)/uint64(q)) & mask
	}
	return out
}

// Decompress maps d-bit values back into [0, q): round((q / 2^d) * y).
func Decompress(p *Poly, d uint, q int32) Poly {
	var out Poly
	half := int64(1) << (d - 1)
	for i := 0; i < N; i++ {
		out[i] = int32((int64(q)*int64(p[i]) + half) >> d)
	}
	return out
}

// PackBits serializes a polynomial whose coefficients fit in d bits into
// N*d/8 bytes, LSB first.
func PackBits(p *Poly, d uint) []byte {
	out := make([]byte, N*int(d)/8)
	pos := 0
	for i := 0; i < N; i++ {
		c := p[i]
		for j := uint(0); j < d; j++ {
			out[pos>>3] |= byte(c>>j&1) << (pos & 7)
			pos++
		}
	}
	return out
}

// UnpackBits deserializes N coefficients of d bits each. data must be exactly
// N*d/8 bytes.
func UnpackBits(data []byte, d uint) (Poly, error) {
	var p Poly
	if len(data) != N*int(d)/8 {
		return p, utils.ErrInvalidLength
	}
	pos := 0
	for i := 0; i < N; i++ {
		var c int32
		for j := uint(0); j < d; j++ {
			c |= int32(data[pos>>3]>>(pos&7)&1) << j
			pos++
		}
		p[i] = c
	}
	return p, nil
}

// Pack24 serializes canonical coefficients as 3 little-endian bytes each
// (768 bytes). Used for the signature public vector and response, whose
// modulus exceeds 16 bits.
func Pack24(p *Poly) []byte {
	out := make([]byte, N*3)
	for i := 0; i < N; i++ {
		c := uint32(p[i])
		out[i*3] = byte(c)
		out[i*3+1] = byte(c >> 8)
		out[i*3+2] = byte(c >> 16)
	}
	return out
}

// Unpack24 reverses Pack24, rejecting coefficients outside [0, q).
func Unpack24(data []byte, q int32) (Poly, error) {
	var p Poly
	if len(data) != N*3 {
		return p, utils.ErrInvalidLength
	}
	for i := 0; i < N; i++ {
		c := int32(data[i*3]) | int32(data[i*3+1])<<8 | int32(data[i*3+2])<<16
		if c >= q {
			return Poly{}, utils.ErrExceedsLimit
		}
		p[i] = c
	}
	return p, nil
}

// FromMessage maps a 32-byte message onto a polynomial, bit b_i becoming
// b_i * round(q/2) at coefficient i.
func FromMessage(msg []byte, q int32) Poly {
	var p Poly
	scale := (q + 1) / 2
	for i := 0; i < N; i++ {
		bit := int32(msg[i>>3]>>(i&7)) & 1
		// branchless select of 0 or scale
		p[i] = -bit & scale
	}
	return p
}

// ToMessage rounds every coefficient against q/2 and packs the resulting bits
// into 32 bytes. The rounding is branchless; this path handles decrypted
// secret data.
func ToMessage(p *Poly, q int32) []byte {
	out := make([]byte, N/8)
	threshold := q / 4
	for i := 0; i < N; i++ {
		c := Center(p[i], q)
		m := c >> 31
		abs := (c ^ m) - m
		// bit is 1 when abs > threshold, i.e. the coefficient is nearer q/2
		diff := abs - threshold - 1
		bit := byte(1 - ((diff >> 31) & 1))
		out[i>>3] |= bit << (i & 7)
	}
	return out
}
