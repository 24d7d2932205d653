package fixedpoint

import (
	"math"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	for _, d := range []int{1, 2, 3} {
		c := NewCodec(d)
		lower, upper := c.Bounds()
		for _, v := range []float64{0, 1.234, -1.234, lower, upper, 12.5} {
			i := c.MMToInt(v)
			got := c.IntToMM(i)
			want := c.Round(v)
			if math.Abs(got-want) > 1e-9 {
				t.Fatalf("decimal=%d v=%v: int_to_mm(mm_to_int(v))=%v want %v", d, v, got, want)
			}
		}
	}
}

func TestClamping(t *testing.T) {
	c := NewCodec(3)
	if got := c.MMToInt(1000); got != OverRange {
		t.Fatalf("expected over-range sentinel, got %d", got)
	}
	if got := c.MMToInt(-1000); got != UnderRange {
		t.Fatalf("expected under-range sentinel, got %d", got)
	}
}
