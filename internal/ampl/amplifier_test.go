package ampl

import "testing"

func TestNewAppliesHeadDefaults(t *testing.T) {
	a := New(IL030)
	if a.Heads.DecimalPosition != 3 {
		t.Fatalf("decimal position = %d, want 3", a.Heads.DecimalPosition)
	}
	if a.HoldFunctionSetting != SampleHold {
		t.Fatalf("hold function = %v, want SampleHold", a.HoldFunctionSetting)
	}
	if !a.rawOK || !a.pvOK {
		t.Fatalf("fresh amplifier should already have a valid P.V., got rawOK=%v pvOK=%v", a.rawOK, a.pvOK)
	}
}

func TestSetMainOnSoloAmplifier(t *testing.T) {
	a := New(IL030)
	if a.IsMain {
		t.Fatalf("IsMain should start false before assignment")
	}
	SetMain(a)
	if !a.IsMain {
		t.Fatalf("SetMain should mark a solo amplifier as main")
	}
}

func TestSetPartnerAssignsMainAndSharesMutex(t *testing.T) {
	main := New(IL030)
	exp := New(IL030)
	SetPartner(main, exp)

	if !main.IsMain || exp.IsMain {
		t.Fatalf("SetPartner: IsMain = (%v, %v), want (true, false)", main.IsMain, exp.IsMain)
	}
	if main.Partner != exp || exp.Partner != main {
		t.Fatalf("SetPartner did not wire Partner both ways")
	}
	if main.mu != exp.mu {
		t.Fatalf("SetPartner did not share one mutex between main and expansion")
	}
}

func TestErrorWordRoundTrip(t *testing.T) {
	a := New(IL030)
	if a.HasError() {
		t.Fatalf("fresh amplifier should have no error")
	}
	a.SetError(EEPROMError)
	if !a.HasError() {
		t.Fatalf("SetError should mark HasError true")
	}
	if a.ErrorWord() != int(EEPROMError) {
		t.Fatalf("ErrorWord() = %d, want %d", a.ErrorWord(), int(EEPROMError))
	}
	a.ClearError()
	if a.HasError() {
		t.Fatalf("ClearError should clear HasError")
	}
}
