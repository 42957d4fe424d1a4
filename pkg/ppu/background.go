package ppu

// stepBackgroundPipeline runs the per-dot background fetch/shift machine
// shared by visible and pre-render scanlines: nametable/attribute/pattern
// fetches every 8 dots, shifted out one bit per dot to feed renderPixel.
func (p *PPU) stepBackgroundPipeline() {
	c := p.Cycle

	if (c >= 2 && c <= 257) || (c >= 321 && c <= 337) {
		p.shiftBackgroundShifters()

		switch (c - 1) % 8 {
		case 0:
			p.loadBackgroundShifters()
			p.bgNextTileID = p.fetchNametableByte()
		case 2:
			p.bgNextAttrib = p.fetchAttributeByte()
		case 4:
			p.bgNextPatternLo = p.fetchPatternByte(false)
		case 6:
			p.bgNextPatternHi = p.fetchPatternByte(true)
		case 7:
			p.incrementCoarseX()
		}
	}

	if c == 256 {
		p.incrementY()
	}

	if c == 257 {
		p.loadBackgroundShifters()
		p.transferX()
	}

	if p.Scanline == -1 && c >= 280 && c <= 304 {
		p.transferY()
	}

	// Dots 337-340 perform two unused nametable fetches; only the byte
	// fetch itself matters for mapper CHR access side effects.
	if c == 338 || c == 340 {
		p.bgNextTileID = p.fetchNametableByte()
	}
}

func (p *PPU) shiftBackgroundShifters() {
	if !p.renderingEnabled() {
		return
	}
	p.bgShiftPatternLo <<= 1
	p.bgShiftPatternHi <<= 1
	p.bgShiftAttribLo <<= 1
	p.bgShiftAttribHi <<= 1
}

func (p *PPU) loadBackgroundShifters() {
	p.bgShiftPatternLo = (p.bgShiftPatternLo & 0xFF00) | uint16(p.bgNextPatternLo)
	p.bgShiftPatternHi = (p.bgShiftPatternHi & 0xFF00) | uint16(p.bgNextPatternHi)

	if p.bgNextAttrib&0x01 != 0 {
		p.bgShiftAttribLo |= 0x00FF
	} else {
		p.bgShiftAttribLo &= 0xFF00
	}
	if p.bgNextAttrib&0x02 != 0 {
		p.bgShiftAttribHi |= 0x00FF
	} else {
		p.bgShiftAttribHi &= 0xFF00
	}
}

func (p *PPU) fetchNametableByte() uint8 {
	addr := 0x2000 | (p.v & 0x0FFF)
	return p.readVRAM(addr)
}

func (p *PPU) fetchAttributeByte() uint8 {
	addr := 0x23C0 | (p.v & 0x0C00) | ((p.v >> 4) & 0x38) | ((p.v >> 2) & 0x07)
	raw := p.readVRAM(addr)
	shift := ((p.v >> 4) & 4) | (p.v & 2)
	return (raw >> shift) & 0x03
}

func (p *PPU) fetchPatternByte(highPlane bool) uint8 {
	fineY := (p.v >> 12) & 0x07
	table := uint16((p.PPUCTRL & PPUCTRLBGTable) >> 4)
	addr := table*0x1000 + uint16(p.bgNextTileID)*16 + fineY
	if highPlane {
		addr += 8
	}
	return p.readVRAM(addr)
}

func (p *PPU) incrementCoarseX() {
	if !p.renderingEnabled() {
		return
	}
	if p.v&0x001F == 31 {
		p.v &^= 0x001F
		p.v ^= 0x0400
	} else {
		p.v++
	}
}

func (p *PPU) incrementY() {
	if !p.renderingEnabled() {
		return
	}
	if p.v&0x7000 != 0x7000 {
		p.v += 0x1000
		return
	}
	p.v &^= 0x7000
	y := (p.v & 0x03E0) >> 5
	switch y {
	case 29:
		y = 0
		p.v ^= 0x0800
	case 31:
		y = 0
	default:
		y++
	}
	p.v = (p.v &^ 0x03E0) | (y << 5)
}

func (p *PPU) transferX() {
	if !p.renderingEnabled() {
		return
	}
	p.v = (p.v & 0xFBE0) | (p.t & 0x041F)
}

func (p *PPU) transferY() {
	if !p.renderingEnabled() {
		return
	}
	p.v = (p.v & 0x841F) | (p.t & 0x7BE0)
}

// renderPixel composites the background and sprite pipelines into the dot
// at (Cycle-1, Scanline), applying sprite-0-hit detection and priority.
func (p *PPU) renderPixel() {
	x := p.Cycle - 1

	bit := uint16(0x8000) >> p.x
	bgPixel := uint8(0)
	if p.bgShiftPatternLo&bit != 0 {
		bgPixel |= 1
	}
	if p.bgShiftPatternHi&bit != 0 {
		bgPixel |= 2
	}
	bgPalette := uint8(0)
	if p.bgShiftAttribLo&bit != 0 {
		bgPalette |= 1
	}
	if p.bgShiftAttribHi&bit != 0 {
		bgPalette |= 2
	}

	if p.PPUMASK&PPUMASKBGShow == 0 || (x < 8 && p.PPUMASK&PPUMASKBGLeft == 0) {
		bgPixel = 0
	}

	spritePixel, spritePalette, spritePriority, isSprite0 := p.spritePixelAt(x)
	if p.PPUMASK&PPUMASKSpriteShow == 0 || (x < 8 && p.PPUMASK&PPUMASKSpriteLeft == 0) {
		spritePixel = 0
	}

	if isSprite0 && bgPixel != 0 && spritePixel != 0 && x != 255 &&
		p.PPUMASK&PPUMASKBGShow != 0 && p.PPUMASK&PPUMASKSpriteShow != 0 {
		p.PPUSTATUS |= PPUSTATUSSprite0Hit
	}

	var argb uint32
	switch {
	case bgPixel == 0 && spritePixel == 0:
		argb = p.PaletteManager.GetBackgroundColor(0, 0)
	case bgPixel == 0:
		argb = p.PaletteManager.GetSpriteColor(spritePalette, spritePixel)
	case spritePixel == 0:
		argb = p.PaletteManager.GetBackgroundColor(bgPalette, bgPixel)
	case spritePriority == 0:
		argb = p.PaletteManager.GetSpriteColor(spritePalette, spritePixel)
	default:
		argb = p.PaletteManager.GetBackgroundColor(bgPalette, bgPixel)
	}

	p.setPixel(x, p.Scanline, argb)
}
