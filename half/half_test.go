package half

import (
	"math"
	"testing"
)

func TestExactValues(t *testing.T) {
	tests := []struct {
		f    float32
		bits uint16
	}{
		{0, 0x0000},
		{1, 0x3C00},
		{-1, 0xBC00},
		{0.5, 0x3800},
		{2, 0x4000},
		{65504, 0x7BFF},
		{6.103515625e-05, 0x0400}, // smallest normal
	}

	for _, tt := range tests {
		if got := FromFloat32(tt.f).Bits(); got != tt.bits {
			t.Errorf("FromFloat32(%v) = 0x%04x, want 0x%04x", tt.f, got, tt.bits)
		}
		if got := FromBits(tt.bits).Float32(); got != tt.f {
			t.Errorf("FromBits(0x%04x) = %v, want %v", tt.bits, got, tt.f)
		}
	}
}

func TestRoundTripRepresentable(t *testing.T) {
	// Every finite half value must survive a trip through float32.
	for bits := 0; bits < 0x10000; bits++ {
		h := FromBits(uint16(bits))
		if h.IsNaN() {
			if !FromFloat32(h.Float32()).IsNaN() {
				t.Fatalf("0x%04x: NaN not preserved", bits)
			}
			continue
		}
		if got := FromFloat32(h.Float32()); got != h {
			t.Fatalf("0x%04x: round trip gave 0x%04x", bits, got.Bits())
		}
	}
}

func TestOverflowToInfinity(t *testing.T) {
	h := FromFloat32(1e6)
	if !h.IsInf() {
		t.Errorf("1e6: got 0x%04x, want infinity", h.Bits())
	}
	if !math.IsInf(float64(h.Float32()), 1) {
		t.Errorf("infinity does not convert back to +inf")
	}
}

func TestUnderflowToZero(t *testing.T) {
	if h := FromFloat32(1e-10); h != 0 {
		t.Errorf("1e-10: got 0x%04x, want zero", h.Bits())
	}
}

func TestRoundToNearestEven(t *testing.T) {
	// 1 + 2^-11 is exactly halfway between 1 and the next half; ties go to
	// the even mantissa, which is 1.0 itself.
	halfway := float32(1) + float32(math.Pow(2, -11))
	if got := FromFloat32(halfway).Bits(); got != 0x3C00 {
		t.Errorf("tie: got 0x%04x, want 0x3C00", got)
	}

	// Just above the halfway point rounds up.
	above := float32(1) + float32(math.Pow(2, -11))*1.5
	if got := FromFloat32(above).Bits(); got != 0x3C01 {
		t.Errorf("above tie: got 0x%04x, want 0x3C01", got)
	}
}

func TestSubnormals(t *testing.T) {
	smallest := FromBits(0x0001)
	want := float32(math.Pow(2, -24))
	if got := smallest.Float32(); got != want {
		t.Errorf("smallest subnormal = %g, want %g", got, want)
	}
	if got := FromFloat32(want); got != smallest {
		t.Errorf("FromFloat32(%g) = 0x%04x, want 0x0001", want, got.Bits())
	}
}
