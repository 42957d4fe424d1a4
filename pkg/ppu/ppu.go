package ppu

import (
	"github.com/yoshiomiyamaegones/pkg/cartridge"
	"github.com/yoshiomiyamaegones/pkg/memory"
)

// PPU represents the Picture Processing Unit: a 341-dot-per-scanline,
// 262-scanline-per-frame pixel pipeline driven one dot at a time by Step.
type PPU struct {
	// Registers
	PPUCTRL   uint8 // $2000
	PPUMASK   uint8 // $2001
	PPUSTATUS uint8 // $2002
	OAMADDR   uint8 // $2003

	// Loopy scroll registers. v is the current VRAM address, t the
	// temporary address latched by $2005/$2006 writes, x the fine X
	// scroll (its own register, not folded into v/t), w the shared
	// write-toggle for $2005/$2006.
	v uint16
	t uint16
	x uint8
	w uint8

	// VRAM backs the nametables (mirrored into a 4KB window at $2000-$2FFF)
	VRAM [0x4000]uint8

	// OAM (Object Attribute Memory) and the secondary OAM used by sprite
	// evaluation for the next scanline.
	OAM          [256]uint8
	secondaryOAM [32]uint8
	spriteCount  int

	// Per-sprite shift state loaded at the end of sprite evaluation, used
	// while rendering the following scanline.
	spritePatternLo [8]uint8
	spritePatternHi [8]uint8
	spriteAttrib    [8]uint8
	spriteX         [8]uint8
	spriteIsZero    [8]bool
	sprite0OnLine   bool

	// Background fetch pipeline: latches loaded every 8 dots, shifted into
	// the 16-bit background shift registers that feed pixel output.
	bgNextTileID    uint8
	bgNextAttrib    uint8
	bgNextPatternLo uint8
	bgNextPatternHi uint8
	bgShiftPatternLo uint16
	bgShiftPatternHi uint16
	bgShiftAttribLo  uint16
	bgShiftAttribHi  uint16

	// Timing
	Cycle         int
	Scanline      int
	Frame         uint64
	FrameComplete bool

	// NMI edge detection. NMIRequested is the signal nes.go consumes;
	// ReadRegister clears it when PPUSTATUS is read at scanline 241,
	// dot <= 2, mirroring the real PPU's race where that read cancels the
	// NMI VBlank would raise.
	NMIRequested bool

	// Output: canonical RGB8 framebuffer plus a packed ARGB32 legacy view
	// kept in sync pixel-for-pixel for existing consumers.
	Pixels      [256 * 240 * 3]uint8
	FrameBuffer [256 * 240]uint32

	PaletteManager *PaletteManager

	// $2007 read buffering
	readBuffer uint8

	Memory *memory.Memory

	Cartridge interface {
		ReadCHR(addr uint16) uint8
		WriteCHR(addr uint16, value uint8)
		Step() // Clocked once per visible/pre-render scanline for mapper IRQ timing
		IsIRQPending() bool
		ClearIRQ()
		GetMirroring() cartridge.MirroringMode
	}
}

// PPUCTRL flags
const (
	PPUCTRLNameTable   = 0x03 // Base nametable address
	PPUCTRLIncrement   = 0x04 // VRAM address increment
	PPUCTRLSpriteTable = 0x08 // Sprite pattern table address
	PPUCTRLBGTable     = 0x10 // Background pattern table address
	PPUCTRLSpriteSize  = 0x20 // Sprite size
	PPUCTRLMasterSlave = 0x40 // PPU master/slave select
	PPUCTRLNMIEnable   = 0x80 // Generate NMI at VBlank
)

// PPUMASK flags
const (
	PPUMASKGreyscale      = 0x01 // Greyscale
	PPUMASKBGLeft         = 0x02 // Show background in leftmost 8 pixels
	PPUMASKSpriteLeft     = 0x04 // Show sprites in leftmost 8 pixels
	PPUMASKBGShow         = 0x08 // Show background
	PPUMASKSpriteShow     = 0x10 // Show sprites
	PPUMASKRedEmphasize   = 0x20 // Emphasize red
	PPUMASKGreenEmphasize = 0x40 // Emphasize green
	PPUMASKBlueEmphasize  = 0x80 // Emphasize blue
)

// PPUSTATUS flags
const (
	PPUSTATUSOverflow   = 0x20 // Sprite overflow
	PPUSTATUSSprite0Hit = 0x40 // Sprite 0 hit
	PPUSTATUSVBlank     = 0x80 // VBlank flag
)

// New creates a new PPU instance
func New(mem *memory.Memory) *PPU {
	return &PPU{
		Memory:         mem,
		Scanline:       -1,
		PaletteManager: NewPaletteManager(),
	}
}

// Reset resets the PPU to initial state
func (p *PPU) Reset() {
	p.PPUCTRL = 0
	p.PPUMASK = 0
	p.PPUSTATUS = 0
	p.OAMADDR = 0
	p.v = 0
	p.t = 0
	p.x = 0
	p.w = 0
	p.Cycle = 0
	p.Scanline = -1
	p.FrameComplete = false
	p.bgShiftPatternLo, p.bgShiftPatternHi = 0, 0
	p.bgShiftAttribLo, p.bgShiftAttribHi = 0, 0
}

// SetCartridge sets the cartridge reference
func (p *PPU) SetCartridge(cart interface {
	ReadCHR(addr uint16) uint8
	WriteCHR(addr uint16, value uint8)
	Step()
	IsIRQPending() bool
	ClearIRQ()
	GetMirroring() cartridge.MirroringMode
}) {
	p.Cartridge = cart
}

func (p *PPU) renderingEnabled() bool {
	return p.PPUMASK&(PPUMASKBGShow|PPUMASKSpriteShow) != 0
}

// Step advances the PPU by one dot. The pipeline follows the background
// fetch/shift machinery across visible and pre-render scanlines, with
// sprite evaluation running at the end of each visible line for the next
// one, odd-frame dot skipping, and NMI assertion at the start of VBlank.
func (p *PPU) Step() {
	p.PaletteManager.SetEmphasis(p.PPUMASK & 0xE0)

	if p.Scanline >= -1 && p.Scanline < 240 {
		p.stepBackgroundPipeline()
	}

	if p.Scanline >= 0 && p.Scanline < 240 && p.Cycle >= 1 && p.Cycle <= 256 {
		p.renderPixel()
	}

	if p.Scanline >= -1 && p.Scanline < 240 && p.Cycle == 257 {
		p.evaluateSprites()
	}

	if p.Scanline == -1 && p.Cycle == 1 {
		p.PPUSTATUS &^= PPUSTATUSVBlank | PPUSTATUSSprite0Hit | PPUSTATUSOverflow
	}

	if p.Scanline == 241 && p.Cycle == 1 {
		p.PPUSTATUS |= PPUSTATUSVBlank
		if p.PPUCTRL&PPUCTRLNMIEnable != 0 {
			p.NMIRequested = true
		}
	}

	// Scanline IRQ clock: MMC3 counts one tick per visible/pre-render
	// scanline while rendering is enabled, standing in for its real A12
	// edge filter.
	if p.Cartridge != nil && p.renderingEnabled() && p.Cycle == 260 &&
		(p.Scanline >= -1 && p.Scanline < 240) {
		p.Cartridge.Step()
	}

	p.Cycle++
	if p.Scanline == -1 && p.Cycle == 340 && p.Frame%2 == 1 && p.renderingEnabled() {
		// Odd-frame dot skip: the idle dot at the end of the pre-render
		// line is dropped, shortening that frame by one PPU cycle.
		p.Cycle = 341
	}
	if p.Cycle >= 341 {
		p.Cycle = 0
		p.Scanline++

		if p.Scanline >= 261 {
			p.Scanline = -1
			p.Frame++
			p.FrameComplete = true
			p.PPUSTATUS &^= PPUSTATUSVBlank
		}
	}
}

// ReadRegister reads from PPU register
func (p *PPU) ReadRegister(addr uint16) uint8 {
	switch addr {
	case 0x2002: // PPUSTATUS
		value := p.PPUSTATUS
		p.PPUSTATUS &^= PPUSTATUSVBlank
		p.w = 0
		if p.Scanline == 241 && p.Cycle <= 2 {
			// Reading right as VBlank is set races the NMI edge and
			// suppresses it for this VBlank period.
			p.NMIRequested = false
		}
		return value
	case 0x2004: // OAMDATA
		return p.OAM[p.OAMADDR]
	case 0x2007: // PPUDATA
		var value uint8
		if p.v >= 0x3F00 {
			value = p.readVRAM(p.v)
			p.readBuffer = p.readVRAM(p.v - 0x1000)
		} else {
			value = p.readBuffer
			p.readBuffer = p.readVRAM(p.v)
		}
		p.incrementVRAMAddress()
		return value
	}
	return 0
}

// WriteRegister writes to PPU register
func (p *PPU) WriteRegister(addr uint16, value uint8) {
	switch addr {
	case 0x2000: // PPUCTRL
		wasNMIDisabled := p.PPUCTRL&PPUCTRLNMIEnable == 0
		p.PPUCTRL = value
		p.t = (p.t & 0xF3FF) | ((uint16(value) & 0x03) << 10)
		if wasNMIDisabled && value&PPUCTRLNMIEnable != 0 && p.PPUSTATUS&PPUSTATUSVBlank != 0 {
			// Enabling NMI while VBlank is still asserted fires an NMI
			// immediately, since the enable line is level-sensed.
			p.NMIRequested = true
		}
	case 0x2001: // PPUMASK
		p.PPUMASK = value
	case 0x2003: // OAMADDR
		p.OAMADDR = value
	case 0x2004: // OAMDATA
		p.OAM[p.OAMADDR] = value
		p.OAMADDR++
	case 0x2005: // PPUSCROLL
		if p.w == 0 {
			p.t = (p.t & 0xFFE0) | (uint16(value) >> 3)
			p.x = value & 0x07
			p.w = 1
		} else {
			p.t = (p.t & 0x8FFF) | ((uint16(value) & 0x07) << 12)
			p.t = (p.t & 0xFC1F) | ((uint16(value) & 0xF8) << 2)
			p.w = 0
		}
	case 0x2006: // PPUADDR
		if p.w == 0 {
			p.t = (p.t & 0x80FF) | ((uint16(value) & 0x3F) << 8)
			p.w = 1
		} else {
			p.t = (p.t & 0xFF00) | uint16(value)
			p.v = p.t
			p.w = 0
		}
	case 0x2007: // PPUDATA
		p.writeVRAM(p.v, value)
		p.incrementVRAMAddress()
	}
}

func (p *PPU) incrementVRAMAddress() {
	if p.PPUCTRL&PPUCTRLIncrement != 0 {
		p.v += 32
	} else {
		p.v++
	}
}

// readVRAM reads from VRAM
func (p *PPU) readVRAM(addr uint16) uint8 {
	addr %= 0x4000

	switch {
	case addr < 0x2000:
		if p.Cartridge != nil {
			return p.Cartridge.ReadCHR(addr)
		}
		return 0
	case addr < 0x3F00:
		return p.VRAM[p.mirrorNameTableAddress(addr)]
	default:
		return p.PaletteManager.ReadPalette(uint8(addr & 0x1F))
	}
}

// writeVRAM writes to VRAM
func (p *PPU) writeVRAM(addr uint16, value uint8) {
	addr %= 0x4000

	switch {
	case addr < 0x2000:
		if p.Cartridge != nil {
			p.Cartridge.WriteCHR(addr, value)
		}
	case addr < 0x3F00:
		p.VRAM[p.mirrorNameTableAddress(addr)] = value
	default:
		p.PaletteManager.WritePalette(uint8(addr&0x1F), value)
	}
}

// mirrorNameTableAddress folds a $2000-$2FFF nametable address down to its
// physical 2KB (or 4KB, for four-screen carts) storage location.
func (p *PPU) mirrorNameTableAddress(addr uint16) uint16 {
	offset := (addr - 0x2000) & 0x0FFF
	table := offset / 0x400
	within := offset % 0x400

	mode := cartridge.MirroringHorizontal
	if p.Cartridge != nil {
		mode = p.Cartridge.GetMirroring()
	}

	switch mode {
	case cartridge.MirroringVertical:
		return 0x2000 + (table%2)*0x400 + within
	case cartridge.MirroringSingleScreenA:
		return 0x2000 + within
	case cartridge.MirroringSingleScreenB:
		return 0x2000 + 0x400 + within
	case cartridge.MirroringFourScreen:
		return 0x2000 + offset
	default: // Horizontal
		return 0x2000 + (table/2)*0x400 + within
	}
}

// GetFramebuffer returns the current framebuffer as RGBA bytes.
func (p *PPU) GetFramebuffer() []uint8 {
	rgba := make([]uint8, 256*240*4)
	for i := 0; i < 256*240; i++ {
		rgba[i*4+0] = p.Pixels[i*3+0]
		rgba[i*4+1] = p.Pixels[i*3+1]
		rgba[i*4+2] = p.Pixels[i*3+2]
		rgba[i*4+3] = 0xFF
	}
	return rgba
}

// GetPixels returns the canonical 256x240 RGB8 framebuffer.
func (p *PPU) GetPixels() []uint8 {
	return p.Pixels[:]
}

// IsMapperIRQPending returns whether mapper IRQ is pending
func (p *PPU) IsMapperIRQPending() bool {
	if p.Cartridge != nil {
		return p.Cartridge.IsIRQPending()
	}
	return false
}

// ClearMapperIRQ clears mapper IRQ
func (p *PPU) ClearMapperIRQ() {
	if p.Cartridge != nil {
		p.Cartridge.ClearIRQ()
	}
}

// setPixel writes one dot into both the canonical RGB8 buffer and the
// legacy packed ARGB32 view.
func (p *PPU) setPixel(x, y int, argb uint32) {
	if x < 0 || x >= 256 || y < 0 || y >= 240 {
		return
	}
	idx := y*256 + x
	p.FrameBuffer[idx] = argb
	p.Pixels[idx*3+0] = uint8((argb >> 16) & 0xFF)
	p.Pixels[idx*3+1] = uint8((argb >> 8) & 0xFF)
	p.Pixels[idx*3+2] = uint8(argb & 0xFF)
}
