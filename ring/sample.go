package ring

import (
	"encoding/binary"

	"github.com/latticevault/latticevault-go/utils"
)

// SampleUniform expands a seed into a polynomial with coefficients uniform in
// [0, q) by rejection sampling on a SHAKE128 stream. The seed is public
// (matrix expansion), so the rejection pattern leaks nothing sensitive.
// Moduli up to 12 bits consume two candidates per 3 bytes; larger moduli one
// candidate per 3 bytes.
func SampleUniform(seed []byte, q int32) Poly {
	var p Poly
	buf := make([]byte, 3*N*2)
	utils.Shake128Into(seed, buf)

	small := q <= 1<<12
	used := 0
	generated := 0
	extension := 0

	refill := func() {
		extension++
		ext := make([]byte, len(seed)+4)
		copy(ext, seed)
		binary.LittleEndian.PutUint32(ext[len(seed):], uint32(extension))
		utils.Shake128Into(ext, buf)
		used = 0
	}

	for generated < N {
		if used+3 > len(buf) {
			refill()
		}
		b0 := int32(buf[used])
		b1 := int32(buf[used+1])
		b2 := int32(buf[used+2])
		used += 3

		if small {
			d1 := b0 | (b1&0x0F)<<8
			d2 := b1>>4 | b2<<4
			if d1 < q {
				p[generated] = d1
				generated++
			}
			if d2 < q && generated < N {
				p[generated] = d2
				generated++
			}
		} else {
			d := b0 | b1<<8 | (b2&0x7F)<<16
			if d < q {
				p[generated] = d
				generated++
			}
		}
	}
	return p
}

// SampleCBD samples a polynomial from the centered binomial distribution of
// width eta (difference of two eta-bit popcounts per coefficient), reduced
// into [0, q). The stream consumption is fixed-length: no secret-dependent
// control flow.
func SampleCBD(seed []byte, eta int, q int32) Poly {
	buf := make([]byte, N*eta/4)
	utils.Shake256Into(seed, buf)

	var p Poly
	bit := 0
	next := func() int32 {
		b := int32(buf[bit>>3]>>(bit&7)) & 1
		bit++
		return b
	}
	for i := 0; i < N; i++ {
		var a, b int32
		for j := 0; j < eta; j++ {
			a += next()
		}
		for j := 0; j < eta; j++ {
			b += next()
		}
		c := a - b
		c += (c >> 31) & q
		p[i] = c
	}
	return p
}

// SampleEta samples a polynomial with coefficients uniform in [-eta, eta]
// (reduced into [0, q)) by rejection sampling on 4-bit nibbles, for the
// signature secret vectors. Supported eta values are 2 and 4.
func SampleEta(seed []byte, eta int, q int32) Poly {
	var p Poly
	buf := make([]byte, N)
	utils.Shake256Into(seed, buf)

	used := 0
	generated := 0
	extension := 0
	for generated < N {
		if used >= len(buf) {
			extension++
			ext := make([]byte, len(seed)+4)
			copy(ext, seed)
			binary.LittleEndian.PutUint32(ext[len(seed):], uint32(extension))
			utils.Shake256Into(ext, buf)
			used = 0
		}
		b := buf[used]
		used++
		for _, t := range [2]int32{int32(b & 0x0F), int32(b >> 4)} {
			if generated >= N {
				break
			}
			var c int32
			switch {
			case eta == 2 && t < 15:
				c = 2 - t%5
			case eta == 4 && t < 9:
				c = 4 - t
			default:
				continue
			}
			c += (c >> 31) & q
			p[generated] = c
			generated++
		}
	}
	return p
}

// SampleGamma samples masking-vector coefficients uniform in (-gamma1, gamma1]
// (reduced into [0, q)) from a fixed-length SHAKE256 stream. gamma1 must be a
// power of two; each coefficient consumes log2(2*gamma1) bits.
func SampleGamma(seed []byte, gamma1, q int32) Poly {
	bits := 1
	for int32(1)<<bits < 2*gamma1 {
		bits++
	}
	buf := make([]byte, N*bits/8)
	utils.Shake256Into(seed, buf)

	var p Poly
	pos := 0
	for i := 0; i < N; i++ {
		var z int32
		for j := 0; j < bits; j++ {
			z |= int32(buf[pos>>3]>>(pos&7)&1) << j
			pos++
		}
		c := gamma1 - z
		c += (c >> 31) & q
		p[i] = c
	}
	return p
}

// SampleInBall expands a 32-byte challenge hash into a polynomial with
// exactly tau coefficients in {-1, +1} and the rest zero, via an in-place
// Fisher-Yates shuffle driven by a SHAKE256 stream.
func SampleInBall(challenge []byte, tau int, q int32) Poly {
	buf := make([]byte, 8+N)
	utils.Shake256Into(challenge, buf)

	signs := binary.LittleEndian.Uint64(buf[:8])
	used := 8
	extension := 0

	var p Poly
	for i := N - tau; i < N; i++ {
		var j int
		for {
			if used >= len(buf) {
				extension++
				ext := make([]byte, len(challenge)+4)
				copy(ext, challenge)
				binary.LittleEndian.PutUint32(ext[len(challenge):], uint32(extension))
				utils.Shake256Into(ext, buf)
				used = 0
			}
			j = int(buf[used])
			used++
			if j <= i {
				break
			}
		}
		p[i] = p[j]
		c := int32(1 - 2*(signs&1))
		c += (c >> 31) & q
		p[j] = c
		signs >>= 1
	}
	return p
}
