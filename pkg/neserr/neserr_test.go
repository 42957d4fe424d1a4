package neserr

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewSetsKindAndMessage(t *testing.T) {
	err := New(MalformedROM, "bad magic: %02X", 0x00)

	if err.Kind != MalformedROM {
		t.Errorf("expected Kind=MalformedROM, got %v", err.Kind)
	}
	if err.Message != "bad magic: 00" {
		t.Errorf("expected formatted message, got %q", err.Message)
	}
	if err.Cause != nil {
		t.Errorf("expected nil Cause, got %v", err.Cause)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("short read")
	err := Wrap(MalformedROM, cause, "failed to read header")

	if err.Cause != cause {
		t.Errorf("expected Cause=%v, got %v", cause, err.Cause)
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause via Unwrap")
	}
}

func TestErrorStringIncludesKindAndCause(t *testing.T) {
	withoutCause := New(CpuHalted, "KIL at $%04X", 0x8000)
	if got, want := withoutCause.Error(), "CPU halted: KIL at $8000"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	cause := fmt.Errorf("EOF")
	withCause := Wrap(MalformedROM, cause, "truncated PRG ROM")
	if got, want := withCause.Error(), "malformed ROM: truncated PRG ROM: EOF"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestOfKindMatchesOnlySameKind(t *testing.T) {
	err := New(FrameRunaway, "budget exceeded")

	if !OfKind(err, FrameRunaway) {
		t.Error("expected OfKind(err, FrameRunaway) to be true")
	}
	if OfKind(err, CpuHalted) {
		t.Error("expected OfKind(err, CpuHalted) to be false")
	}
	if OfKind(fmt.Errorf("plain error"), FrameRunaway) {
		t.Error("expected OfKind to be false for a non-*Error")
	}
}

func TestErrorsIsMatchesSentinelByKind(t *testing.T) {
	err := Wrap(UnsupportedMapper, fmt.Errorf("mapper 5"), "mapper %d", 5)

	if !errors.Is(err, ErrUnsupportedMapper) {
		t.Error("expected errors.Is to match ErrUnsupportedMapper by Kind")
	}
	if errors.Is(err, ErrMalformedROM) {
		t.Error("expected errors.Is to reject a different Kind's sentinel")
	}
}

func TestKindStringNamesAllKinds(t *testing.T) {
	cases := map[Kind]string{
		MalformedROM:      "malformed ROM",
		UnsupportedMapper: "unsupported mapper",
		FrameRunaway:      "frame runaway",
		CpuHalted:         "CPU halted",
		Kind(99):          "unknown",
	}

	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}
