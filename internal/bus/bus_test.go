package bus

import (
	"errors"
	"testing"

	"github.com/keyence-sim/ilsim/internal/ampl"
	"github.com/keyence-sim/ilsim/internal/wireerr"
)

func wireCode(t *testing.T, err error) wireerr.Code {
	t.Helper()
	var f wireerr.Fault
	if !errors.As(err, &f) {
		t.Fatalf("error %v does not carry a wireerr.Fault", err)
	}
	return f.Code
}

// A lone amplifier still occupies position 0 of its bus, and the
// reference implementation always treats that position as main
// regardless of whether a partner is present.
func TestAddSoloAmplifierBecomesMain(t *testing.T) {
	b := New()
	a := ampl.New(ampl.IL030)

	if err := b.Add(a); err != nil {
		t.Fatalf("Add = %v, want nil", err)
	}
	if !a.IsMain {
		t.Fatalf("solo amplifier IsMain = false, want true")
	}
}

func TestAddSecondAmplifierAssignsExpansion(t *testing.T) {
	b := New()
	main := ampl.New(ampl.IL030)
	exp := ampl.New(ampl.IL030)

	if err := b.Add(main); err != nil {
		t.Fatalf("Add(main) = %v, want nil", err)
	}
	if err := b.Add(exp); err != nil {
		t.Fatalf("Add(exp) = %v, want nil", err)
	}

	if !main.IsMain || exp.IsMain {
		t.Fatalf("IsMain = (%v, %v), want (true, false)", main.IsMain, exp.IsMain)
	}
	if main.Partner != exp || exp.Partner != main {
		t.Fatalf("Add did not wire Partner both ways")
	}
}

func TestAddRejectsPastMaxAmplifiers(t *testing.T) {
	b := New()
	for i := 0; i < MaxAmplifiers; i++ {
		if err := b.Add(ampl.New(ampl.IL030)); err != nil {
			t.Fatalf("Add #%d = %v, want nil", i, err)
		}
	}
	if err := b.Add(ampl.New(ampl.IL030)); wireCode(t, err) != wireerr.OutOfRange {
		t.Errorf("Add past MaxAmplifiers: got %v, want OutOfRange", err)
	}
	if got := b.Count(); got != MaxAmplifiers {
		t.Errorf("Count = %d, want %d", got, MaxAmplifiers)
	}
}

func TestByIDRejectsZeroAndOutOfRange(t *testing.T) {
	b := New()
	if err := b.Add(ampl.New(ampl.IL030)); err != nil {
		t.Fatalf("Add = %v, want nil", err)
	}

	if _, err := b.ByID(0); wireCode(t, err) != wireerr.BadID {
		t.Errorf("ByID(0): got %v, want BadID", err)
	}
	if _, err := b.ByID(2); wireCode(t, err) != wireerr.BadID {
		t.Errorf("ByID(2) with only one amplifier present: got %v, want BadID", err)
	}
	if _, err := b.ByID(MaxAmplifiers + 1); wireCode(t, err) != wireerr.BadID {
		t.Errorf("ByID(MaxAmplifiers+1): got %v, want BadID", err)
	}
	if _, err := b.ByID(1); err != nil {
		t.Errorf("ByID(1) = %v, want nil", err)
	}
}

func TestReplaceAmplifiersReassignsMainUnit(t *testing.T) {
	b := New()
	if err := b.Add(ampl.New(ampl.IL030)); err != nil {
		t.Fatalf("Add = %v, want nil", err)
	}

	main := ampl.New(ampl.IL030)
	exp := ampl.New(ampl.IL030)
	b.ReplaceAmplifiers([]*ampl.Amplifier{main, exp})

	if !main.IsMain || exp.IsMain {
		t.Fatalf("after reload, IsMain = (%v, %v), want (true, false)", main.IsMain, exp.IsMain)
	}
	if got := b.Count(); got != 2 {
		t.Fatalf("Count after reload = %d, want 2", got)
	}
	if got, err := b.ByID(1); err != nil || got != main {
		t.Errorf("ByID(1) after reload = (%v, %v), want (main, nil)", got, err)
	}
}

func TestSetErrorAndClearError(t *testing.T) {
	b := New()
	if b.HasError() {
		t.Fatalf("fresh bus should have no error")
	}
	b.SetError(ErrorCode(7))
	if !b.HasError() {
		t.Fatalf("SetError should mark HasError true")
	}
	b.ClearError()
	if b.HasError() {
		t.Fatalf("ClearError should clear HasError")
	}
}
