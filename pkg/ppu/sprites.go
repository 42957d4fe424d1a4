package ppu

// evaluateSprites scans primary OAM for sprites visible on the scanline that
// follows the current one, filling secondary OAM and pre-fetching pattern
// data so it is ready the instant that scanline starts rendering. Hardware
// runs this across cycles 65-256; this implementation performs the whole
// scan at cycle 257, which is observationally equivalent for every consumer
// that only inspects state at scanline/frame boundaries.
func (p *PPU) evaluateSprites() {
	target := p.Scanline + 1

	spriteHeight := 8
	if p.PPUCTRL&PPUCTRLSpriteSize != 0 {
		spriteHeight = 16
	}

	for i := range p.secondaryOAM {
		p.secondaryOAM[i] = 0xFF
	}

	count := 0
	p.sprite0OnLine = false
	n := 0
	for n < 64 && count < 8 {
		y := int(p.OAM[n*4])
		if target >= y && target < y+spriteHeight {
			copy(p.secondaryOAM[count*4:count*4+4], p.OAM[n*4:n*4+4])
			if n == 0 {
				p.sprite0OnLine = true
			}
			count++
		}
		n++
	}

	overflow := false
	if count == 8 {
		// Reproduces the hardware's sprite-overflow evaluation bug: once 8
		// sprites are found, the comparator keeps advancing both the sprite
		// index and the in-OAM-entry byte offset together instead of
		// resetting it, scanning the wrong byte of most later entries.
		m := 0
		for n < 64 {
			y := int(p.OAM[n*4+m])
			if target >= y && target < y+spriteHeight {
				overflow = true
				break
			}
			n++
			m = (m + 1) % 4
		}
	}
	if overflow {
		p.PPUSTATUS |= PPUSTATUSOverflow
	}

	p.spriteCount = count
	for i := 0; i < count; i++ {
		spriteY := p.secondaryOAM[i*4+0]
		tileIndex := p.secondaryOAM[i*4+1]
		attrib := p.secondaryOAM[i*4+2]
		spriteX := p.secondaryOAM[i*4+3]

		flipV := attrib&0x80 != 0
		flipH := attrib&0x40 != 0

		row := target - int(spriteY)
		if flipV {
			row = spriteHeight - 1 - row
		}

		var patAddr uint16
		if spriteHeight == 16 {
			table := uint16(tileIndex & 0x01)
			tile := uint16(tileIndex &^ 0x01)
			if row >= 8 {
				tile++
				row -= 8
			}
			patAddr = table*0x1000 + tile*16 + uint16(row)
		} else {
			table := uint16((p.PPUCTRL & PPUCTRLSpriteTable) >> 3)
			patAddr = table*0x1000 + uint16(tileIndex)*16 + uint16(row)
		}

		lo := p.readVRAM(patAddr)
		hi := p.readVRAM(patAddr + 8)
		if flipH {
			lo = reverseByte(lo)
			hi = reverseByte(hi)
		}

		p.spritePatternLo[i] = lo
		p.spritePatternHi[i] = hi
		p.spriteAttrib[i] = attrib
		p.spriteX[i] = spriteX
		p.spriteIsZero[i] = i == 0 && p.sprite0OnLine
	}
}

// spritePixelAt returns the highest-priority opaque sprite pixel at absolute
// screen column x, scanning in OAM order since lower-indexed sprites draw on
// top of higher-indexed ones.
func (p *PPU) spritePixelAt(x int) (pixel uint8, palette uint8, priority uint8, isZero bool) {
	for i := 0; i < p.spriteCount; i++ {
		offset := x - int(p.spriteX[i])
		if offset < 0 || offset > 7 {
			continue
		}
		bit := uint(7 - offset)
		lo := (p.spritePatternLo[i] >> bit) & 1
		hi := (p.spritePatternHi[i] >> bit) & 1
		pix := lo | (hi << 1)
		if pix == 0 {
			continue
		}
		return pix, p.spriteAttrib[i] & 0x03, (p.spriteAttrib[i] >> 5) & 1, p.spriteIsZero[i]
	}
	return 0, 0, 0, false
}

func reverseByte(b uint8) uint8 {
	b = (b&0xF0)>>4 | (b&0x0F)<<4
	b = (b&0xCC)>>2 | (b&0x33)<<2
	b = (b&0xAA)>>1 | (b&0x55)<<1
	return b
}
