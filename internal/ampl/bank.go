package ampl

// Bank holds one set of banked threshold/shift/analog-limit values.
// Four banks exist per amplifier, switched by active_bank_setting or,
// optionally, by external input (see effectiveBankIndex).
type Bank struct {
	ThresholdHigh    float64
	ThresholdLow     float64
	ShiftTarget      float64
	AnalogUpperLimit float64
	AnalogLowerLimit float64
}

// NewBank builds a Bank at head defaults.
func NewBank(d HeadDefaults) Bank {
	return Bank{
		ThresholdHigh:    d.DefaultThresholdHigh,
		ThresholdLow:     d.DefaultThresholdLow,
		ShiftTarget:      0,
		AnalogUpperLimit: d.DefaultBankAnalogUpperLimit,
		AnalogLowerLimit: d.DefaultBankAnalogLowerLimit,
	}
}

// NewBanks builds the four-bank array at head defaults.
func NewBanks(d HeadDefaults) [4]Bank {
	var banks [4]Bank
	for i := range banks {
		banks[i] = NewBank(d)
	}
	return banks
}
