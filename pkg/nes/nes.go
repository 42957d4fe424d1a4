package nes

import (
	"github.com/yoshiomiyamaegones/pkg/apu"
	"github.com/yoshiomiyamaegones/pkg/cartridge"
	"github.com/yoshiomiyamaegones/pkg/cpu"
	"github.com/yoshiomiyamaegones/pkg/input"
	"github.com/yoshiomiyamaegones/pkg/memory"
	"github.com/yoshiomiyamaegones/pkg/neserr"
	"github.com/yoshiomiyamaegones/pkg/ppu"
)

// maxFrameSteps is StepFrame's default CPU-step budget: if the PPU has not
// completed a frame within that many steps, StepFrame returns a
// FrameRunaway error instead of looping on.
const maxFrameSteps = 200000

// NES represents the Nintendo Entertainment System
type NES struct {
	CPU       *cpu.CPU
	PPU       *ppu.PPU
	APU       *apu.APU
	Memory    *memory.Memory
	Cartridge *cartridge.Cartridge
	Input     *input.Controllers

	Cycles uint64
	Frame  uint64
}

// NewNES creates a new NES instance
func NewNES() *NES {
	nes := &NES{}

	// Initialize components
	nes.Memory = memory.New()
	nes.CPU = cpu.New(nes.Memory)
	nes.PPU = ppu.New(nes.Memory)
	nes.APU = apu.New()
	nes.Input = input.New()

	// Connect components to memory
	nes.Memory.SetPPU(nes.PPU)
	nes.Memory.SetAPU(nes.APU)
	nes.Memory.SetInput(nes.Input)
	nes.Memory.SetCPU(nes.CPU)

	return nes
}

// LoadCartridge loads a cartridge into the NES
func (n *NES) LoadCartridge(cart *cartridge.Cartridge) {
	n.Cartridge = cart
	n.Memory.SetCartridge(cart)
	n.PPU.SetCartridge(cart)
}

// Reset resets the NES to initial state
func (n *NES) Reset() {
	n.CPU.Reset()
	n.PPU.Reset()
	n.APU.Reset()
	n.Cycles = 0
	n.Frame = 0
}

// Step executes one CPU instruction and the PPU/APU cycles it takes.
func (n *NES) Step() {
	// IRQ is level-triggered: re-assert it fresh from the combined mapper
	// and APU frame-counter state before every instruction, so a source
	// that stops holding the line deasserts it instead of re-firing.
	n.CPU.SetIRQLine(n.PPU.IsMapperIRQPending() || n.APU.FrameIRQ)

	cpuCycles := n.CPU.Step()

	// PPU runs 3 times faster than CPU
	for i := 0; i < cpuCycles*3; i++ {
		n.PPU.Step()

		if n.PPU.NMIRequested {
			n.CPU.TriggerNMI()
			n.PPU.NMIRequested = false
		}
	}

	// APU runs at CPU speed
	for i := 0; i < cpuCycles; i++ {
		n.APU.Step()
	}

	n.Cycles += uint64(cpuCycles)
}

// StepFrame executes CPU instructions until the PPU completes a frame,
// returning a copy of the packed RGB8 frame buffer (256*240*3 bytes). If
// maxInstructions is <= 0, the package default budget (maxFrameSteps) is
// used. If the frame never completes within that budget, it returns a
// neserr.FrameRunaway error together with the partial frame buffer as it
// stood at the point of abandonment. Every step, including one by a halted
// CPU, advances the PPU by at least 3 dots.
func (n *NES) StepFrame(maxInstructions int) ([]uint8, error) {
	if maxInstructions <= 0 {
		maxInstructions = maxFrameSteps
	}

	stepCount := 0

	for !n.PPU.FrameComplete {
		n.Step()
		stepCount++

		if stepCount > maxInstructions {
			n.PPU.FrameComplete = false
			return n.snapshotFrame(), neserr.New(neserr.FrameRunaway, "frame did not complete within %d CPU steps (PC=$%04X)", maxInstructions, n.CPU.PC)
		}
	}

	n.PPU.FrameComplete = false
	// Frame counter is managed by PPU, don't increment here
	n.Frame = n.PPU.Frame
	return n.snapshotFrame(), nil
}

// snapshotFrame copies the PPU's canonical RGB8 buffer so callers holding
// onto a returned frame aren't aliased to the live buffer the PPU keeps
// writing into on the next frame.
func (n *NES) snapshotFrame() []uint8 {
	pixels := n.PPU.GetPixels()
	out := make([]uint8, len(pixels))
	copy(out, pixels)
	return out
}

// GetInput returns the input controller pair
func (n *NES) GetInput() *input.Controllers {
	return n.Input
}

// GetFramebuffer returns the current framebuffer from PPU
func (n *NES) GetFramebuffer() []uint8 {
	return n.PPU.GetFramebuffer()
}

// GetFrame returns the current frame number
func (n *NES) GetFrame() uint64 {
	return n.Frame
}

// GetFramebufferRaw returns the raw framebuffer as 32-bit integers
func (n *NES) GetFramebufferRaw() []uint32 {
	return n.PPU.FrameBuffer[:]
}

// GetDisplayFramebufferRaw returns the PPU's live packed ARGB32 framebuffer
func (n *NES) GetDisplayFramebufferRaw() []uint32 {
	return n.PPU.FrameBuffer[:]
}

// GetDisplayFramebuffer returns the PPU's live framebuffer converted to RGBA bytes
func (n *NES) GetDisplayFramebuffer() []uint8 {
	// Get the current frame buffer
	frameBuffer := n.PPU.FrameBuffer[:]

	// Convert 32-bit framebuffer to RGBA bytes
	rgba := make([]uint8, 256*240*4)

	for i, pixel := range frameBuffer {
		// Extract RGB components from 32-bit pixel (0xAARRGGBB format)
		r := uint8((pixel >> 16) & 0xFF) // Extract R
		g := uint8((pixel >> 8) & 0xFF)  // Extract G
		b := uint8(pixel & 0xFF)         // Extract B
		a := uint8((pixel >> 24) & 0xFF) // Extract A

		// Use RGBA order to match expected format
		rgba[i*4+0] = r
		rgba[i*4+1] = g
		rgba[i*4+2] = b
		rgba[i*4+3] = a
	}

	return rgba
}
