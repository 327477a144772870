// Package f16 converts between float32 and IEEE-754 binary16 bit patterns.
// Values are widened to float32 for arithmetic; binary16 is a storage form only.
package f16

import "math"

// Bits is a raw binary16 value: 1 sign bit, 5 exponent bits (bias 15),
// 10 fraction bits.
type Bits uint16

const (
	signMask Bits = 0x8000
	expMask  Bits = 0x7C00
	fracMask Bits = 0x03FF

	f32ExpMask  uint32 = 0x7F800000
	f32FracMask uint32 = 0x007FFFFF
)

// ToFloat32 widens h to float32. The conversion is exact.
func ToFloat32(h Bits) float32 {
	sign := uint32(h&signMask) << 16
	exp := uint32(h&expMask) >> 10
	frac := uint32(h & fracMask)

	switch exp {
	case 0:
		if frac == 0 {
			return math.Float32frombits(sign)
		}
		// subnormal: shift until the implicit bit appears
		e := int32(-14)
		for frac&0x0400 == 0 {
			frac <<= 1
			e--
		}
		frac &= 0x03FF
		return math.Float32frombits(sign | uint32(127+e)<<23 | frac<<13)
	case 0x1F:
		return math.Float32frombits(sign | f32ExpMask | frac<<13)
	default:
		return math.Float32frombits(sign | (exp-15+127)<<23 | frac<<13)
	}
}

// FromFloat32 narrows f to binary16, rounding to nearest with ties to even.
// Out of range values saturate to infinity. A NaN keeps the top fraction
// bits, so binary16 NaNs widened by ToFloat32 narrow back unchanged; only a
// payload that would vanish is replaced by the quiet bit.
func FromFloat32(f float32) Bits {
	bits := math.Float32bits(f)
	sign := Bits(bits>>16) & signMask
	exp := int32((bits & f32ExpMask) >> 23)
	frac := bits & f32FracMask

	if exp == 0xFF {
		if frac == 0 {
			return sign | expMask
		}
		payload := Bits(frac>>13) & fracMask
		if payload == 0 {
			payload = 0x0200
		}
		return sign | expMask | payload
	}
	if exp == 0 {
		return sign
	}

	e16 := exp - 127 + 15
	if e16 >= 0x1F {
		return sign | expMask
	}
	if e16 <= 0 {
		if e16 < -10 {
			return sign
		}
		mant := frac | 0x00800000
		shift := uint32(14 - e16)
		m := mant >> shift
		rem := mant & (1<<shift - 1)
		half := uint32(1) << (shift - 1)
		if rem > half || (rem == half && m&1 == 1) {
			m++
		}
		return sign | Bits(m)
	}

	m := frac >> 13
	rem := frac & 0x1FFF
	if rem > 0x1000 || (rem == 0x1000 && m&1 == 1) {
		m++
		if m == 0x0400 {
			m = 0
			e16++
			if e16 >= 0x1F {
				return sign | expMask
			}
		}
	}
	return sign | Bits(uint32(e16)<<10) | Bits(m)
}
