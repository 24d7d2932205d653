package ampl

import (
	"errors"
	"testing"
	"time"

	"github.com/keyence-sim/ilsim/internal/fixedpoint"
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

func TestRegisterDispatchErrorSet(t *testing.T) {
	a := New(IL030)

	if _, err := a.HandleRead(MaxRegister + 1); wireCode(t, err) != wireerr.NoSuchRegister {
		t.Errorf("read past MaxRegister: got %v, want NoSuchRegister", err)
	}
	if err := a.HandleWrite(MaxRegister+1, 1); wireCode(t, err) != wireerr.NoSuchRegister {
		t.Errorf("write past MaxRegister: got %v, want NoSuchRegister", err)
	}
	if _, err := a.HandleRead(4); wireCode(t, err) != wireerr.Reserved {
		t.Errorf("read unregistered gap register: got %v, want Reserved", err)
	}
	if err := a.HandleWrite(4, 1); wireCode(t, err) != wireerr.Reserved {
		t.Errorf("write unregistered gap register: got %v, want Reserved", err)
	}
	if _, err := a.HandleRead(1); wireCode(t, err) != wireerr.ReadProtected {
		t.Errorf("read write-only action register: got %v, want ReadProtected", err)
	}
	if err := a.HandleWrite(9, 1); wireCode(t, err) != wireerr.WriteProtected {
		t.Errorf("write read-only register: got %v, want WriteProtected", err)
	}
	if err := a.HandleWrite(1, 0); wireCode(t, err) != wireerr.OutOfRange {
		t.Errorf("action register with non-1 value: got %v, want OutOfRange", err)
	}
}

func TestRegister5ResetRestoresDefaultsAndArmsEEPROM(t *testing.T) {
	a := New(IL030)
	a.Hysteresis = 5
	a.KeyLocked = true
	a.EepromWriteResult = Normal

	if err := a.HandleWrite(5, 1); err != nil {
		t.Fatalf("HandleWrite(5, 1) = %v, want nil", err)
	}

	a.mu.Lock()
	hyst, locked, result := a.Hysteresis, a.KeyLocked, a.EepromWriteResult
	a.mu.Unlock()

	if hyst != 0 {
		t.Errorf("Hysteresis after reset = %v, want 0 (factory default)", hyst)
	}
	if locked {
		t.Errorf("KeyLocked after reset = true, want false (factory default)")
	}
	if result != Operating {
		t.Errorf("EepromWriteResult after reset = %v, want Operating", result)
	}
}

func TestBankRegistersRoundTrip(t *testing.T) {
	a := New(IL030)
	codec := fixedpoint.NewCodec(a.Heads.DecimalPosition)

	fieldNames := []string{"ThresholdHigh", "ThresholdLow", "ShiftTarget", "AnalogUpperLimit", "AnalogLowerLimit"}
	for bank := 0; bank < 4; bank++ {
		for k, name := range fieldNames {
			idx := 65 + 5*bank + k
			want := codec.MMToInt(1.0 + float64(bank) + float64(k)*0.1)
			if err := a.HandleWrite(idx, want); err != nil {
				t.Fatalf("bank %d field %s (register %d): write(%d) = %v", bank, name, idx, want, err)
			}
			got, err := a.HandleRead(idx)
			if err != nil {
				t.Fatalf("bank %d field %s (register %d): read = %v", bank, name, idx, err)
			}
			if got != want {
				t.Errorf("bank %d field %s (register %d): got %d, want %d", bank, name, idx, got, want)
			}
		}
	}
}

func TestMainOnlyRegistersRejectExpansionUnit(t *testing.T) {
	main := New(IL030)
	exp := New(IL030)
	SetPartner(main, exp)

	if err := main.HandleWrite(142, 1); err != nil {
		t.Errorf("main unit write to register 142: %v", err)
	}
	if err := exp.HandleWrite(142, 1); wireCode(t, err) != wireerr.WriteProtected {
		t.Errorf("expansion unit write to register 142: got %v, want WriteProtected", err)
	}
}

func TestZeroShiftExecutionUsesRawValue(t *testing.T) {
	a := New(IL030)
	a.SetRaw(5, true)

	if err := a.HandleWrite(1, 1); err != nil {
		t.Fatalf("HandleWrite(1, 1) = %v, want nil", err)
	}

	a.mu.Lock()
	shift := a.Banks[a.activeBankIndexLocked()].ShiftTarget
	result := a.ZeroShiftingResult
	a.mu.Unlock()

	if shift != 5 {
		t.Errorf("ShiftTarget after zero-shift = %v, want 5", shift)
	}
	if result != Normal {
		t.Errorf("ZeroShiftingResult = %v, want Normal", result)
	}
}

func TestZeroShiftExecutionAbnormalWithoutRawValue(t *testing.T) {
	a := New(IL030)
	a.SetRaw(0, false)

	if err := a.HandleWrite(1, 1); err != nil {
		t.Fatalf("HandleWrite(1, 1) = %v, want nil", err)
	}
	a.mu.Lock()
	result := a.ZeroShiftingResult
	a.mu.Unlock()
	if result != Abnormal {
		t.Errorf("ZeroShiftingResult = %v, want Abnormal", result)
	}
}

func TestProductNameByRole(t *testing.T) {
	main := New(IL030)
	exp := New(IL030)
	SetPartner(main, exp)

	if got := main.ProductName(); got != "IL-1000/1500" {
		t.Errorf("main ProductName = %q, want IL-1000/1500", got)
	}
	if got := exp.ProductName(); got != "IL-1050/1550" {
		t.Errorf("expansion ProductName = %q, want IL-1050/1550", got)
	}
}

func TestArmEEPROMExtendsRatherThanShortens(t *testing.T) {
	a := New(IL030)
	a.mu.Lock()
	a.armEEPROM(2 * time.Second)
	first := a.nextEepromWrite
	a.armEEPROM(10 * time.Millisecond)
	second := a.nextEepromWrite
	a.mu.Unlock()

	if second.Before(first) {
		t.Errorf("armEEPROM shortened an in-flight deadline: first=%v second=%v", first, second)
	}
}
