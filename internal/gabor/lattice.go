package gabor

import "github.com/MeKo-Tech/gabornoise/internal/prng"

// Morton2 interleaves the low 16 bits of x (even bits) and y (odd bits).
func Morton2(x, y uint32) uint32 {
	return part1by1(x&0xffff) | part1by1(y&0xffff)<<1
}

// Morton3 interleaves the low 10 bits of x, y and z.
func Morton3(x, y, z uint32) uint32 {
	return part1by2(x&0x3ff) | part1by2(y&0x3ff)<<1 | part1by2(z&0x3ff)<<2
}

func part1by1(v uint32) uint32 {
	v = (v | v<<8) & 0x00ff00ff
	v = (v | v<<4) & 0x0f0f0f0f
	v = (v | v<<2) & 0x33333333
	v = (v | v<<1) & 0x55555555
	return v
}

func part1by2(v uint32) uint32 {
	v = (v | v<<16) & 0x030000ff
	v = (v | v<<8) & 0x0300f00f
	v = (v | v<<4) & 0x030c30c3
	v = (v | v<<2) & 0x09249249
	return v
}

// wrap returns i modulo p in [0, p).
func wrap(i int, p uint32) uint32 {
	m := i % int(p)
	if m < 0 {
		m += int(p)
	}
	return uint32(m)
}

// CellSeed returns the seed of 2D lattice cell (i, j). Zero is remapped to one.
func (c Config) CellSeed(i, j int) uint32 {
	var seed uint32
	if c.Periodic {
		p := c.Period
		seed = wrap(j, p)*p + wrap(i, p)
	} else {
		seed = Morton2(uint32(i), uint32(j))
	}
	return nonZero(seed + c.Offset)
}

// CellSeed3 returns the seed of 3D lattice cell (i, j, k). Zero is remapped to one.
func (c Config) CellSeed3(i, j, k int) uint32 {
	var seed uint32
	if c.Periodic {
		p := c.Period
		seed = (wrap(k, p)*p+wrap(j, p))*p + wrap(i, p)
	} else {
		seed = Morton3(uint32(i), uint32(j), uint32(k))
	}
	return nonZero(seed + c.Offset)
}

// nonZero keeps the multiplicative generator away from its zero fixed point.
func nonZero(seed uint32) uint32 {
	if seed == 0 {
		return 1
	}
	return seed
}

func (c Config) source(seed uint32) *prng.Source {
	if c.Generator == GeneratorMixed {
		return prng.NewMixed(seed)
	}
	return prng.New(seed)
}
