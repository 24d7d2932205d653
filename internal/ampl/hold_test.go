package ampl

import "testing"

// Under the factory-default hold configuration (SAMPLE_HOLD, continuous
// i.e. not edge-triggered, timing input low) P.V. must track every
// change to the raw value immediately: there is no latching.
func TestSampleHoldTracksContinuously(t *testing.T) {
	a := New(IL030)
	if a.HoldFunctionSetting != SampleHold {
		t.Fatalf("precondition: default hold function = %v, want SampleHold", a.HoldFunctionSetting)
	}
	if a.TimingInputOnEdge {
		t.Fatalf("precondition: default TimingInputOnEdge = true, want false")
	}

	a.SetRaw(1, true)
	if v, ok := a.pvValue, a.pvOK; !ok || v != a.rvValue {
		t.Fatalf("after SetRaw(1): pv=(%v,%v), want P.V. tracking R.V. under continuous SAMPLE_HOLD", v, ok)
	}

	a.SetRaw(2, true)
	if v, ok := a.pvValue, a.pvOK; !ok || v != a.rvValue {
		t.Fatalf("after SetRaw(2): pv=(%v,%v), want P.V. tracking R.V. under continuous SAMPLE_HOLD", v, ok)
	}
}

// Once the timing input is held high, SAMPLE_HOLD must freeze P.V. at
// its last value instead of continuing to track R.V.
func TestSampleHoldFreezesWhileTimingInputHigh(t *testing.T) {
	a := New(IL030)
	a.SetRaw(1, true)
	frozen := a.pvValue

	a.mu.Lock()
	a.timingInputLevel = true
	a.mu.Unlock()

	a.SetRaw(99, true)

	a.mu.Lock()
	pv := a.pvValue
	a.mu.Unlock()

	if pv != frozen {
		t.Errorf("P.V. changed to %v while timing input held high, want frozen at %v", pv, frozen)
	}
}

// PEAK_HOLD accumulates holdPeak on every sample but only publishes it
// to P.V. on a rising timing-input edge; until then P.V. stays at
// whatever it held before sampling started.
func TestPeakHoldPublishesRunningPeakOnRisingEdge(t *testing.T) {
	a := New(IL030)
	a.HoldFunctionSetting = PeakHold

	a.mu.Lock()
	a.currentlySampling = true
	a.mu.Unlock()

	a.SetRaw(1, true)
	a.SetRaw(3, true)
	a.SetRaw(2, true)

	a.mu.Lock()
	peakBeforeEdge, pvBeforeEdge := a.holdPeak, a.pvValue
	a.mu.Unlock()

	if peakBeforeEdge != 3 {
		t.Errorf("holdPeak before edge = %v, want 3 (the maximum seen)", peakBeforeEdge)
	}
	if pvBeforeEdge == 3 {
		t.Errorf("pvValue published the peak before any timing edge occurred")
	}

	a.mu.Lock()
	a.onTimingEdgeLocked(true)
	pv, sampling := a.pvValue, a.currentlySampling
	a.mu.Unlock()

	if pv != 3 {
		t.Errorf("pvValue after rising edge = %v, want 3 (the captured peak)", pv)
	}
	if sampling {
		t.Errorf("currentlySampling after rising edge = true, want false")
	}
}
