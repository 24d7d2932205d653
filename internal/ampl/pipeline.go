package ampl

import "github.com/keyence-sim/ilsim/internal/fixedpoint"

// stage identifies a pipeline stage for invalidation purposes. Mutating
// an input at stage k invalidates R.V. and CALC from stage k onward;
// recomputeLocked then walks the cascade forward to re-derive them in
// order and lets the hold function decide what P.V. becomes, rather
// than reacting to per-field observer callbacks, so the hold function's
// "once per sample" semantics stay unambiguous.
type stage int

const (
	stageRaw stage = iota
	stageRV
	stageCalc
	stagePV
)

// invalidateFrom clears R.V. and CALC from stage s onward. P.V. is not
// cleared here: updateHoldLocked decides whether it follows the new
// CALC. Callers must hold a.mu.
func (a *Amplifier) invalidateFrom(s stage) {
	if s <= stageRaw {
		// raw itself is set directly by the caller; nothing to clear.
	}
	if s <= stageRV {
		a.rvOK = false
	}
	if s <= stageCalc {
		a.calcOK = false
	}
}

// recomputeLocked re-derives every invalidated stage, in order. Callers
// must hold a.mu. Cross-unit CALC dependencies are handled by also
// recomputing the partner's CALC stage when this is the expansion unit.
func (a *Amplifier) recomputeLocked() {
	if !a.rvOK {
		a.updateRVLocked()
	}
	if !a.calcOK {
		a.updateCalcLocked()
	}
	a.updateHoldLocked()

	// expansion -> main notification: if we are the expansion unit,
	// our CALC feeds the main unit's CALC and must be refreshed too.
	if !a.IsMain && a.Partner != nil {
		a.Partner.invalidateFrom(stageCalc)
		a.Partner.updateCalcLocked()
		a.Partner.updateHoldLocked()
	}
}

func (a *Amplifier) direction() float64 {
	if a.ReversedMeasurementDirection {
		return -1
	}
	return 1
}

func (a *Amplifier) activeBankIndexLocked() int {
	return effectiveBankIndex(a)
}

// effectiveBankIndex computes the bank index per spec.md §4.2's design
// note: external-input derivation is computed but, to match the
// reference implementation bit for bit, the stored setting is returned
// unless both switch-by-external-input and use-external-settings are
// enabled (see DESIGN.md "active-bank computation").
func effectiveBankIndex(a *Amplifier) int {
	if a.BankSwitchMethod == BankSwitchExternal && a.ExternalInputUseUserSettings {
		bankA := false
		bankB := false
		for i, fn := range a.ExternalInputFunc {
			if fn == FuncBankA && a.ExternalInput[i] {
				bankA = true
			}
			if fn == FuncBankB && a.ExternalInput[i] {
				bankB = true
			}
		}
		idx := 0
		if bankA {
			idx |= 1
		}
		if bankB {
			idx |= 2
		}
		return idx
	}
	return a.ActiveBank
}

func (a *Amplifier) activeBankLocked() Bank {
	return a.Banks[a.activeBankIndexLocked()]
}

func (a *Amplifier) updateRVLocked() {
	if !a.rawOK {
		a.rvOK = false
		return
	}
	tilt, offset := 1.0, 0.0
	if a.CalibrationUseUserSettings {
		tilt, offset = a.SensorTilt, a.SensorOffset
	}
	shift := a.activeBankLocked().ShiftTarget
	a.rvValue = tilt*(a.direction()*a.rawValue-shift) + offset
	a.rvOK = true
}

func (a *Amplifier) updateCalcLocked() {
	if !a.rvOK {
		a.calcOK = false
		return
	}
	if !a.IsMain {
		// expansion unit: CALC mirrors R.V.
		a.calcValue = a.rvValue
		a.calcOK = true
		return
	}
	if a.CalculationMode == CalcOff || a.Partner == nil {
		a.calcValue = a.rvValue
		a.calcOK = true
		return
	}
	// a.Partner shares a.mu (see SetPartner), already held by the caller.
	expOK := a.Partner.rvOK
	expRV := a.Partner.rvValue
	if !expOK {
		a.calcOK = false
		return
	}
	tilt, offset := 1.0, 0.0
	if a.CalibrationUseUserSettings {
		tilt, offset = a.CalcTilt, a.CalcOffset
	}
	var combined float64
	switch a.CalculationMode {
	case CalcAddition:
		combined = a.rvValue + expRV
	case CalcSubtraction:
		combined = a.rvValue - expRV
	default:
		combined = a.rvValue
	}
	a.calcValue = tilt*combined + offset
	a.calcOK = true
}

// WireValuePerAmplifier formats the per-amplifier judgment value for
// M0/MS and for communication-unit registers #044..#058.
func (a *Amplifier) WireValuePerAmplifier() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.wireValueLocked()
}

func (a *Amplifier) wireValueLocked() int {
	if a.InternalError != NoError {
		return fixedpoint.AmplifierErrorJudgment
	}
	if !a.laserActiveLocked() || !a.pvOK {
		return -99999998
	}
	codec := fixedpoint.NewCodec(a.Heads.DecimalPosition)
	i := codec.MMToInt(a.pvValue)
	if i == fixedpoint.OverRange {
		return 99999999
	}
	if i == fixedpoint.UnderRange {
		// matches the reference implementation's bug: under-range also
		// reports the over-range sentinel on the per-bus judgment value.
		return 99999999
	}
	return i
}

func (a *Amplifier) laserActiveLocked() bool {
	return !a.laserEmissionStoppedLocked()
}

// judgments holds the derived HIGH/LOW/GO/ALARM booleans (logical, not
// physical) plus the MS output-state enum.
type judgments struct {
	High, Low, Go, Alarm bool
	State                OutputState
}

func (a *Amplifier) judgmentsLocked() judgments {
	var j judgments
	lower, upper := a.Heads.Bound()
	errPresent := a.InternalError != NoError
	disqualifyingErr := errPresent && !a.InternalError.IgnoredByHigh()

	if disqualifyingErr {
		j.High = true
		j.Low = true
	} else if !a.laserActiveLocked() || !a.pvOK {
		j.High = false
		j.Low = false
	} else {
		bank := a.activeBankLocked()
		rawOver := a.rawOK && a.rawValue > upper
		rawUnder := a.rawOK && a.rawValue < lower
		j.High = rawOver || a.pvValue > bank.ThresholdHigh
		j.Low = rawUnder || a.pvValue < bank.ThresholdLow
	}
	if a.InternalError&Overcurrent != 0 {
		j.High = false
	}

	j.Go = !disqualifyingErr && a.laserActiveLocked() && a.pvOK
	if j.Go {
		bank := a.activeBankLocked()
		j.Go = a.rawOK && a.rawValue >= lower && a.rawValue <= upper &&
			a.pvValue <= bank.ThresholdHigh && a.pvValue >= bank.ThresholdLow
	}

	// ALARM: true means "no alarm" per the normally-closed wire
	// convention; errPresent or absent raw drives it false.
	j.Alarm = !(errPresent || !a.rawOK)

	switch {
	case errPresent:
		j.State = ErrorState
	case j.High:
		j.State = High
	case j.Low:
		j.State = Low
	case j.Go:
		j.State = Go
	default:
		j.State = AllOff
	}
	return j
}

// PhysicalHighLowGo XORs the logical state with output_mode_normally_closed.
func (a *Amplifier) PhysicalHighLowGo() (high, low, goState bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	j := a.judgmentsLocked()
	inv := a.OutputModeNormallyClosed
	return j.High != inv, j.Low != inv, j.Go != inv
}

// PhysicalOutputs is PhysicalHighLowGo plus ALARM, for the
// communication unit's per-sensor output bitmaps (registers #016..019).
// ALARM is not inverted by output_mode_normally_closed: its "true means
// no alarm" convention already encodes the physical, normally-closed
// wire level.
func (a *Amplifier) PhysicalOutputs() (high, low, goState, alarm bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	j := a.judgmentsLocked()
	inv := a.OutputModeNormallyClosed
	return j.High != inv, j.Low != inv, j.Go != inv, j.Alarm
}

// Invalid reports whether this amplifier's P.V. is currently absent,
// either because the laser is stopped or because no CALC has reached
// the hold stage yet, for the communication unit's register #038.
func (a *Amplifier) Invalid() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.laserActiveLocked() || !a.pvOK
}

// UnderRange and OverRange report whether the raw reading currently
// sits outside this head's representable bound, for the communication
// unit's registers #039/#040.
func (a *Amplifier) UnderRange() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	lower, _ := a.Heads.Bound()
	return a.rawOK && a.rawValue < lower
}

func (a *Amplifier) OverRange() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, upper := a.Heads.Bound()
	return a.rawOK && a.rawValue > upper
}

// OutputStateAndValue returns the MS state byte and wire-formatted
// value for this amplifier, applying the measurement-uncertainty step
// first as required by M0/MS (but not SR/SW/FR).
func (a *Amplifier) OutputStateAndValue() (OutputState, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.applyUncertaintyLocked()
	j := a.judgmentsLocked()
	return j.State, a.wireValueLocked()
}

// AnalogValue computes the scaled analog output per spec.md §4.2,
// returning the raw electrical value (mA or V); register #042 further
// scales this by 100 or 1000 depending on mode.
func (a *Amplifier) AnalogValue() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.analogValueLocked()
}

func (a *Amplifier) analogValueLocked() float64 {
	mode := a.AnalogOutputMode
	if mode == AnalogOff {
		return 0
	}
	errPresent := a.InternalError != NoError
	invalid := !a.laserActiveLocked() || !a.pvOK
	minElec, maxElec := analogElectricalRange(mode)
	if errPresent || invalid {
		if mode == AnalogI4to20 {
			return 3.00
		}
		return 5.500
	}
	upperLimit, lowerLimit := a.analogLimitsLocked()
	v := a.pvValue
	if v > upperLimit {
		v = upperLimit
	}
	if v < lowerLimit {
		v = lowerLimit
	}
	if upperLimit == lowerLimit {
		return minElec
	}
	frac := (v - lowerLimit) / (upperLimit - lowerLimit)
	return minElec + frac*(maxElec-minElec)
}

func analogElectricalRange(mode AnalogOutputMode) (min, max float64) {
	switch mode {
	case AnalogV0to5:
		return 0, 5
	case AnalogVNeg5to5:
		return -5, 5
	case AnalogV1to5:
		return 1, 5
	case AnalogI4to20:
		return 4, 20
	default:
		return 0, 0
	}
}

func (a *Amplifier) analogLimitsLocked() (upper, lower float64) {
	switch a.AnalogScaling {
	case ScalingFreeRange:
		return a.FreeRangeUpper, a.FreeRangeLower
	case ScalingBank:
		b := a.activeBankLocked()
		return b.AnalogUpperLimit, b.AnalogLowerLimit
	default: // ScalingInitial
		return a.Heads.DefaultAnalogUpperLimit, a.Heads.DefaultAnalogLowerLimit
	}
}
