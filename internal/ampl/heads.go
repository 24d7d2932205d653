package ampl

// HeadDefaults holds the per-head-model constants fixed at construction
// time, grounded in _examples/original_source/ilsim/sensor.py's
// create_IL_* factories.
type HeadDefaults struct {
	Head HeadCode

	MeasurementRangeMin float64
	MeasurementRangeMax float64
	ReferenceDistance   float64
	ReferenceTolerance  float64
	ReferenceAnalogTol  float64
	DecimalPosition     int
	Uncertainty         float64

	DefaultAnalogUpperLimit float64
	DefaultAnalogLowerLimit float64

	DefaultToleranceSettingRange float64
	DefaultThresholdHigh         float64
	DefaultThresholdLow          float64
	DefaultAutoTriggerLevel      float64

	DefaultBankAnalogUpperLimit float64
	DefaultBankAnalogLowerLimit float64

	DefaultSamplingCycle float64
	DefaultDisplayDigit  int
}

// headTable is keyed by HeadCode; IL-S100 aliases IL-100's shape per
// SPEC_FULL.md (no distinct factory exists in the reference source).
var headTable = map[HeadCode]HeadDefaults{
	ILS025: {
		Head: ILS025, MeasurementRangeMin: 20.000, MeasurementRangeMax: 30.000,
		ReferenceDistance: 25.000, ReferenceTolerance: 0.250, ReferenceAnalogTol: 5.000,
		DecimalPosition: 3, Uncertainty: 0.010,
		DefaultAnalogUpperLimit: 5.000, DefaultAnalogLowerLimit: -5.000,
		DefaultToleranceSettingRange: 0.200, DefaultThresholdHigh: 5.000, DefaultThresholdLow: -5.000,
		DefaultAutoTriggerLevel: 1.00,
		DefaultBankAnalogUpperLimit: 10.000, DefaultBankAnalogLowerLimit: -10.000,
		DefaultSamplingCycle: 1.000, DefaultDisplayDigit: 2,
	},
	IL030: {
		Head: IL030, MeasurementRangeMin: 20.000, MeasurementRangeMax: 45.000,
		ReferenceDistance: 30.000, ReferenceTolerance: 0.250, ReferenceAnalogTol: 5.000,
		DecimalPosition: 3, Uncertainty: 0.010,
		DefaultAnalogUpperLimit: 5.000, DefaultAnalogLowerLimit: -5.000,
		DefaultToleranceSettingRange: 0.200, DefaultThresholdHigh: 5.000, DefaultThresholdLow: -5.000,
		DefaultAutoTriggerLevel: 1.00,
		DefaultBankAnalogUpperLimit: 10.000, DefaultBankAnalogLowerLimit: -10.000,
		DefaultSamplingCycle: 1.000, DefaultDisplayDigit: 2,
	},
	IL065: {
		Head: IL065, MeasurementRangeMin: 55.000, MeasurementRangeMax: 105.000,
		ReferenceDistance: 65.000, ReferenceTolerance: 0.500, ReferenceAnalogTol: 10.000,
		DecimalPosition: 3, Uncertainty: 0.020,
		DefaultAnalogUpperLimit: 10.000, DefaultAnalogLowerLimit: -10.000,
		DefaultToleranceSettingRange: 0.200, DefaultThresholdHigh: 5.000, DefaultThresholdLow: -5.000,
		DefaultAutoTriggerLevel: 1.00,
		DefaultBankAnalogUpperLimit: 10.000, DefaultBankAnalogLowerLimit: -10.000,
		DefaultSamplingCycle: 1.000, DefaultDisplayDigit: 2,
	},
	ILS065: {
		Head: ILS065, MeasurementRangeMin: 55.000, MeasurementRangeMax: 75.000,
		ReferenceDistance: 65.000, ReferenceTolerance: 0.500, ReferenceAnalogTol: 10.000,
		DecimalPosition: 3, Uncertainty: 0.020,
		DefaultAnalogUpperLimit: 10.000, DefaultAnalogLowerLimit: -10.000,
		DefaultToleranceSettingRange: 0.200, DefaultThresholdHigh: 5.000, DefaultThresholdLow: -5.000,
		DefaultAutoTriggerLevel: 1.00,
		DefaultBankAnalogUpperLimit: 10.000, DefaultBankAnalogLowerLimit: -10.000,
		DefaultSamplingCycle: 1.000, DefaultDisplayDigit: 2,
	},
	IL100: {
		Head: IL100, MeasurementRangeMin: 75.000, MeasurementRangeMax: 130.000,
		ReferenceDistance: 100.000, ReferenceTolerance: 1.000, ReferenceAnalogTol: 20.000,
		DecimalPosition: 3, Uncertainty: 0.040,
		DefaultAnalogUpperLimit: 20.000, DefaultAnalogLowerLimit: -20.000,
		DefaultToleranceSettingRange: 0.200, DefaultThresholdHigh: 5.000, DefaultThresholdLow: -5.000,
		DefaultAutoTriggerLevel: 1.00,
		DefaultBankAnalogUpperLimit: 10.000, DefaultBankAnalogLowerLimit: -10.000,
		DefaultSamplingCycle: 1.000, DefaultDisplayDigit: 2,
	},
	ILS100: {
		Head: ILS100, MeasurementRangeMin: 75.000, MeasurementRangeMax: 130.000,
		ReferenceDistance: 100.000, ReferenceTolerance: 1.000, ReferenceAnalogTol: 20.000,
		DecimalPosition: 3, Uncertainty: 0.040,
		DefaultAnalogUpperLimit: 20.000, DefaultAnalogLowerLimit: -20.000,
		DefaultToleranceSettingRange: 0.200, DefaultThresholdHigh: 5.000, DefaultThresholdLow: -5.000,
		DefaultAutoTriggerLevel: 1.00,
		DefaultBankAnalogUpperLimit: 10.000, DefaultBankAnalogLowerLimit: -10.000,
		DefaultSamplingCycle: 1.000, DefaultDisplayDigit: 2,
	},
	IL300: {
		Head: IL300, MeasurementRangeMin: 160.00, MeasurementRangeMax: 450.00,
		ReferenceDistance: 300.00, ReferenceTolerance: 7.00, ReferenceAnalogTol: 140.00,
		DecimalPosition: 2, Uncertainty: 0.30,
		DefaultAnalogUpperLimit: 140.00, DefaultAnalogLowerLimit: -140.00,
		DefaultToleranceSettingRange: 2.00, DefaultThresholdHigh: 50.00, DefaultThresholdLow: -50.00,
		DefaultAutoTriggerLevel: 10.00,
		DefaultBankAnalogUpperLimit: 100.00, DefaultBankAnalogLowerLimit: -100.00,
		DefaultSamplingCycle: 2.000, DefaultDisplayDigit: 1,
	},
	IL600: {
		Head: IL600, MeasurementRangeMin: 200.00, MeasurementRangeMax: 1000.00,
		ReferenceDistance: 600.00, ReferenceTolerance: 20.00, ReferenceAnalogTol: 400.00,
		DecimalPosition: 2, Uncertainty: 0.50,
		DefaultAnalogUpperLimit: 400.00, DefaultAnalogLowerLimit: -400.00,
		DefaultToleranceSettingRange: 2.00, DefaultThresholdHigh: 50.00, DefaultThresholdLow: -50.00,
		DefaultAutoTriggerLevel: 10.00,
		DefaultBankAnalogUpperLimit: 100.00, DefaultBankAnalogLowerLimit: -100.00,
		DefaultSamplingCycle: 2.000, DefaultDisplayDigit: 1,
	},
	IL2000: {
		Head: IL2000, MeasurementRangeMin: 1000.0, MeasurementRangeMax: 3500.0,
		ReferenceDistance: 2000.0, ReferenceTolerance: 50.0, ReferenceAnalogTol: 1000.0,
		DecimalPosition: 1, Uncertainty: 1.0,
		DefaultAnalogUpperLimit: 1000.0, DefaultAnalogLowerLimit: -1000.0,
		DefaultToleranceSettingRange: 20.0, DefaultThresholdHigh: 500.0, DefaultThresholdLow: -500.0,
		DefaultAutoTriggerLevel: 100.0,
		DefaultBankAnalogUpperLimit: 1000.0, DefaultBankAnalogLowerLimit: -1000.0,
		DefaultSamplingCycle: 5.000, DefaultDisplayDigit: 0,
	},
}

// Defaults returns the constant table for a head code, and whether that
// head code is known.
func Defaults(h HeadCode) (HeadDefaults, bool) {
	d, ok := headTable[h]
	return d, ok
}

// Bound returns the ±99999*10^-d representable bound for this head.
func (d HeadDefaults) Bound() (lower, upper float64) {
	var scale float64 = 1
	for i := 0; i < d.DecimalPosition; i++ {
		scale *= 10
	}
	lim := 99999.0 / scale
	return -lim, lim
}
