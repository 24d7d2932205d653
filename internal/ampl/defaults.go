package ampl

import "time"

// restoreDefaultSettingsLocked implements spec.md §4.7: re-create the
// four banks from head defaults, zero the hold state, reset every
// setting to its documented initial value, and arm the EEPROM
// scheduler for 3.0s. Callers must hold a.mu. Calibration (tilt/offset)
// and head identity are left untouched, per the "initial reset"
// distinction in spec.md §3.
func (a *Amplifier) restoreDefaultSettingsLocked() {
	a.Banks = NewBanks(a.Heads)
	a.ActiveBank = 0
	a.FreeRangeUpper = a.Heads.DefaultBankAnalogUpperLimit
	a.FreeRangeLower = a.Heads.DefaultBankAnalogLowerLimit
	a.AnalogScaling = ScalingInitial

	a.holdPeak, a.holdBottom, a.holdValue = 0, 0, 0
	a.currentlySampling = false
	a.errorDuringSampling = false

	a.ToleranceSettingRange = a.Heads.DefaultToleranceSettingRange
	a.AutoTriggerLevel = a.Heads.DefaultAutoTriggerLevel

	a.calSet1RV, a.calSet1Target = 0, 0
	a.calSet2RV, a.calSet2Target = 0, 0
	a.calcCalSet1RV, a.calcCalSet1Target = 0, 0
	a.calcCalSet2RV, a.calcCalSet2Target = 0, 0
	a.calc3pSet1Target, a.calc3pSet2Target = 0, 0
	a.calc3pStage1Calc, a.calc3pStage1RVMain, a.calc3pStage1RVExp = 0, 0, 0
	a.calc3pStage2RVMain, a.calc3pStage2RVExp = 0, 0
	a.calc3pStaged = 0
	a.twoPointHighStage1, a.twoPointHighStaged = 0, false
	a.twoPointLowStage1, a.twoPointLowStaged = 0, false
	a.diffCountStage1, a.diffCountStaged = 0, false

	a.TransistorMode = NPN
	a.AnalogOutputMode = AnalogOff
	a.FutureTransistorMode = NPN
	a.FutureAnalogOutputMode = AnalogOff
	a.FilterSetting = FilterTimes1
	a.SamplingCycle = SamplingDefault
	a.HoldFunctionSetting = SampleHold
	a.DelayTimerSetting = DelayOff
	a.TimerDuration = 5
	a.DiffCountFilterTimerDuration = 2
	a.Hysteresis = 0
	a.SubdisplayMode = SubRawValue
	a.DisplayDigit = DisplayDigit(a.Heads.DefaultDisplayDigit)
	a.DisplayColor = GoGreen
	a.PowerSavingMode = PowerOff
	a.HeadDisplayMode = HeadDisplayDefault
	a.HighPassCutoff = HzPoint1
	a.AlarmSetting = AlarmInitial
	a.AlarmCount = 0

	a.ExternalInput = [4]bool{}
	a.ExternalInputFunc = [4]ExternalInputFunction{FuncLinePrimary, FuncLinePrimary, FuncLinePrimary, FuncUnused}
	a.ExternalInputUseUserSettings = false
	a.MutualInterferencePreventionActive = false
	a.ReversedMeasurementDirection = false
	a.KeyLocked = false
	a.StoredLaserEmissionStop = false
	a.StoredTimingInput = false
	a.TimingInputOnEdge = false
	a.OutputModeNormallyClosed = false
	a.ZeroShiftSavedInMemory = false
	a.BankSwitchMethod = BankSwitchStored
	a.CalculationMode = CalcOff
	a.CalcCalibrationMode = CalcCalInitial

	a.TuningResult = Normal
	a.ZeroShiftingResult = Normal
	a.ResetRequestResult = Normal
	a.CalibrationResult = Normal

	a.timingInputLevel = a.deriveTimingInputLocked()

	a.armEEPROM(3 * time.Second)
}

// RestoreDefaultSettings is the locking wrapper used by register
// actions #003/#005.
func (a *Amplifier) RestoreDefaultSettings() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.restoreDefaultSettingsLocked()
	a.invalidateFrom(stageRaw)
	a.recomputeLocked()
}
