package apu

import "testing"

func createTestAPU() *APU {
	a := New()
	a.Reset()
	return a
}

func TestAPUCreation(t *testing.T) {
	apu := createTestAPU()

	if apu.Cycles != 0 {
		t.Errorf("expected Cycles=0, got %d", apu.Cycles)
	}
	if apu.FrameStep != 0 {
		t.Errorf("expected FrameStep=0, got %d", apu.FrameStep)
	}
	if apu.FrameIRQ {
		t.Error("FrameIRQ should be false initially")
	}
}

func TestRegisterFileLatchesWrites(t *testing.T) {
	apu := createTestAPU()

	apu.WriteRegister(0x4000, 0xBF)
	apu.WriteRegister(0x4003, 0x42)
	apu.WriteRegister(0x4013, 0xFF)

	if apu.Registers[0x00] != 0xBF {
		t.Errorf("expected $4000 latched as 0xBF, got %#02x", apu.Registers[0x00])
	}
	if apu.Registers[0x03] != 0x42 {
		t.Errorf("expected $4003 latched as 0x42, got %#02x", apu.Registers[0x03])
	}
	if apu.Registers[0x13] != 0xFF {
		t.Errorf("expected $4013 latched as 0xFF, got %#02x", apu.Registers[0x13])
	}
}

func TestStatusRegisterRoundTrip(t *testing.T) {
	apu := createTestAPU()

	apu.WriteRegister(0x4015, 0x1F)
	if apu.Status != 0x1F {
		t.Errorf("expected Status=0x1F, got %#02x", apu.Status)
	}

	status := apu.ReadRegister(0x4015)
	if status&0x1F != 0x1F {
		t.Errorf("expected low 5 bits echoed back, got %#02x", status)
	}
}

func TestStatusReadClearsFrameIRQ(t *testing.T) {
	apu := createTestAPU()
	apu.FrameIRQ = true

	status := apu.ReadRegister(0x4015)
	if status&0x40 == 0 {
		t.Error("expected bit 6 set on read when FrameIRQ was pending")
	}
	if apu.FrameIRQ {
		t.Error("reading $4015 should clear FrameIRQ")
	}

	status = apu.ReadRegister(0x4015)
	if status&0x40 != 0 {
		t.Error("FrameIRQ bit should stay clear on subsequent reads")
	}
}

func TestFrameCounterWriteResetsStepAndMode(t *testing.T) {
	apu := createTestAPU()
	apu.FrameStep = 2

	apu.WriteRegister(0x4017, 0x80) // 5-step mode
	if apu.FrameStep != 0 {
		t.Errorf("expected FrameStep reset to 0, got %d", apu.FrameStep)
	}
	if apu.FrameCounter&0x80 == 0 {
		t.Error("expected 5-step mode bit latched")
	}
}

func TestFrameCounterWriteInhibitClearsIRQ(t *testing.T) {
	apu := createTestAPU()
	apu.FrameIRQ = true

	apu.WriteRegister(0x4017, 0x40) // inhibit bit set, 4-step mode
	if apu.FrameIRQ {
		t.Error("expected inhibit bit to clear a pending frame IRQ")
	}
}

// TestFourStepModeAssertsIRQ drives the APU through a full 4-step sequence
// (4 * 7458 cycles) and expects the frame IRQ to fire once, on the final step.
func TestFourStepModeAssertsIRQ(t *testing.T) {
	apu := createTestAPU()
	apu.WriteRegister(0x4017, 0x00) // 4-step mode, IRQ enabled

	for i := 0; i < 4*7458; i++ {
		apu.Step()
	}

	if !apu.FrameIRQ {
		t.Error("expected frame IRQ asserted after one full 4-step sequence")
	}
}

func TestFourStepModeInhibitedNeverAsserts(t *testing.T) {
	apu := createTestAPU()
	apu.WriteRegister(0x4017, 0x40) // 4-step mode, IRQ inhibited

	for i := 0; i < 8*7458; i++ {
		apu.Step()
	}

	if apu.FrameIRQ {
		t.Error("expected frame IRQ to stay clear while inhibit bit is set")
	}
}

func TestFiveStepModeNeverAsserts(t *testing.T) {
	apu := createTestAPU()
	apu.WriteRegister(0x4017, 0x80) // 5-step mode

	for i := 0; i < 5*7458; i++ {
		apu.Step()
	}

	if apu.FrameIRQ {
		t.Error("5-step mode should never assert the frame IRQ")
	}
}

func TestResetClearsState(t *testing.T) {
	apu := createTestAPU()
	apu.WriteRegister(0x4000, 0xFF)
	apu.WriteRegister(0x4015, 0x1F)
	apu.FrameIRQ = true
	apu.Cycles = 1000

	apu.Reset()

	if apu.Registers[0] != 0 {
		t.Error("expected register file cleared on reset")
	}
	if apu.Status != 0 {
		t.Error("expected status cleared on reset")
	}
	if apu.FrameIRQ {
		t.Error("expected frame IRQ cleared on reset")
	}
	if apu.Cycles != 0 {
		t.Error("expected cycle counter cleared on reset")
	}
}
