package ampl

import (
	"math"
	"time"

	"github.com/keyence-sim/ilsim/internal/fixedpoint"
	"github.com/keyence-sim/ilsim/internal/wireerr"
)

// MaxRegister is the highest addressable amplifier register index.
const MaxRegister = 223

type readFunc func(a *Amplifier) (int, error)
type writeFunc func(a *Amplifier, v int) error

type regEntry struct {
	read  readFunc
	write writeFunc
}

var registry = map[int]regEntry{}

func reg(idx int, r readFunc, w writeFunc) {
	registry[idx] = regEntry{read: r, write: w}
}

// HandleRead implements the D dispatch rule for SR.
func (a *Amplifier) HandleRead(idx int) (int, error) {
	if idx > MaxRegister {
		return 0, wireerr.New(wireerr.NoSuchRegister)
	}
	e, ok := registry[idx]
	if !ok || e.read == nil {
		if ok {
			return 0, wireerr.New(wireerr.ReadProtected)
		}
		return 0, wireerr.New(wireerr.Reserved)
	}
	return e.read(a)
}

// HandleWrite implements the D dispatch rule for SW.
func (a *Amplifier) HandleWrite(idx int, v int) error {
	if idx > MaxRegister {
		return wireerr.New(wireerr.NoSuchRegister)
	}
	e, ok := registry[idx]
	if !ok || e.write == nil {
		if ok {
			return wireerr.New(wireerr.WriteProtected)
		}
		return wireerr.New(wireerr.Reserved)
	}
	return e.write(a, v)
}

func clampCheck(v, lo, hi int) error {
	if v < lo || v > hi {
		return wireerr.New(wireerr.OutOfRange)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func mmRead(a *Amplifier, v float64, ok bool, sentinel int) int {
	if !ok {
		return sentinel
	}
	return fixedpoint.NewCodec(a.Heads.DecimalPosition).MMToInt(v)
}

func init() {
	registerReadOnly()
	registerReadWrite()
	registerActions()
	registerBanks()
}

// ---- read-only registers --------------------------------------------------

func registerReadOnly() {
	reg(9, func(a *Amplifier) (int, error) {
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.InternalError.Ordinal(), nil
	}, nil)

	reg(33, func(a *Amplifier) (int, error) {
		a.mu.Lock()
		defer a.mu.Unlock()
		return int(a.InternalError), nil
	}, nil)

	reg(36, func(a *Amplifier) (int, error) {
		a.mu.Lock()
		defer a.mu.Unlock()
		j := a.judgmentsLocked()
		packed := boolToInt(j.High) | boolToInt(j.Low)<<1 | boolToInt(j.Go)<<2 | boolToInt(j.Alarm)<<3
		return packed, nil
	}, nil)

	reg(37, func(a *Amplifier) (int, error) {
		a.mu.Lock()
		defer a.mu.Unlock()
		return mmRead(a, a.pvValue, a.pvOK, fixedpoint.Invalid), nil
	}, nil)

	reg(38, func(a *Amplifier) (int, error) {
		a.mu.Lock()
		defer a.mu.Unlock()
		return mmRead(a, a.rvValue, a.rvOK, fixedpoint.Invalid), nil
	}, nil)

	reg(39, func(a *Amplifier) (int, error) {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.HoldFunctionSetting == SampleHold {
			return fixedpoint.Invalid, nil
		}
		return mmRead(a, a.holdPeak, true, fixedpoint.Invalid), nil
	}, nil)

	reg(40, func(a *Amplifier) (int, error) {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.HoldFunctionSetting == SampleHold {
			return fixedpoint.Invalid, nil
		}
		return mmRead(a, a.holdBottom, true, fixedpoint.Invalid), nil
	}, nil)

	reg(41, func(a *Amplifier) (int, error) {
		a.mu.Lock()
		defer a.mu.Unlock()
		return mmRead(a, a.calcValue, a.calcOK, fixedpoint.Invalid), nil
	}, nil)

	reg(42, func(a *Amplifier) (int, error) {
		a.mu.Lock()
		defer a.mu.Unlock()
		v := a.analogValueLocked()
		if a.AnalogOutputMode == AnalogI4to20 {
			return int(v * 100), nil
		}
		return int(v * 1000), nil
	}, nil)

	reg(43, func(a *Amplifier) (int, error) {
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.activeBankIndexLocked(), nil
	}, nil)

	reg(44, func(a *Amplifier) (int, error) {
		a.mu.Lock()
		defer a.mu.Unlock()
		return boolToInt(a.deriveTimingInputLocked()), nil
	}, nil)

	reg(50, func(a *Amplifier) (int, error) {
		a.mu.Lock()
		defer a.mu.Unlock()
		return boolToInt(a.laserEmissionStoppedLocked()), nil
	}, nil)

	reg(51, func(a *Amplifier) (int, error) {
		a.mu.Lock()
		defer a.mu.Unlock()
		return boolToInt(a.InternalError != NoError), nil
	}, nil)

	reg(52, func(a *Amplifier) (int, error) {
		a.mu.Lock()
		defer a.mu.Unlock()
		v := 0
		for i, on := range a.ExternalInput {
			if on {
				v |= 1 << uint(i)
			}
		}
		return v, nil
	}, nil)

	reg(53, func(a *Amplifier) (int, error) {
		a.mu.Lock()
		defer a.mu.Unlock()
		return int(a.EepromWriteResult), nil
	}, nil)

	reg(54, func(a *Amplifier) (int, error) {
		a.mu.Lock()
		defer a.mu.Unlock()
		return int(a.ZeroShiftingResult), nil
	}, nil)

	reg(55, func(a *Amplifier) (int, error) {
		a.mu.Lock()
		defer a.mu.Unlock()
		return int(a.ResetRequestResult), nil
	}, nil)

	reg(56, func(a *Amplifier) (int, error) {
		a.mu.Lock()
		defer a.mu.Unlock()
		v := boolToInt(a.TransistorMode == PNP)
		if a.IsMain {
			v |= int(a.AnalogOutputMode) << 1
		}
		return v, nil
	}, nil)

	reg(60, func(a *Amplifier) (int, error) {
		a.mu.Lock()
		defer a.mu.Unlock()
		return int(a.TuningResult), nil
	}, nil)

	reg(61, func(a *Amplifier) (int, error) {
		a.mu.Lock()
		defer a.mu.Unlock()
		return int(a.CalibrationResult), nil
	}, nil)

	productCode := func(a *Amplifier) (int, error) {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.IsMain {
			return 4022, nil
		}
		return 4023, nil
	}
	reg(193, productCode, nil)
	reg(215, productCode, nil)

	reg(194, func(a *Amplifier) (int, error) { return 0x0101, nil }, nil)

	reg(195, func(a *Amplifier) (int, error) {
		a.mu.Lock()
		defer a.mu.Unlock()
		return int(a.Head), nil
	}, nil)

	// Register 200 (product name) is the wire protocol's only
	// string-valued register, so it has no entry here: the read/write
	// table is int-only, and the protocol engine's handleSR calls
	// ProductName directly instead of going through HandleRead for it.

	reg(216, func(a *Amplifier) (int, error) { return 1, nil }, nil)
	reg(217, func(a *Amplifier) (int, error) { return 0, nil }, nil)
}

// ProductName returns the human-readable product name for register
// #200 ("IL-1000/1500" for a main unit, "IL-1050/1550" for an
// expansion unit), the one register the wire protocol carries as a
// literal string instead of a signed nine-digit field.
func (a *Amplifier) ProductName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.IsMain {
		return "IL-1000/1500"
	}
	return "IL-1050/1550"
}

// ---- read-write registers --------------------------------------------------

func registerReadWrite() {
	reg(97,
		func(a *Amplifier) (int, error) { a.mu.Lock(); defer a.mu.Unlock(); return boolToInt(a.KeyLocked), nil },
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 1); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			a.KeyLocked = v == 1
			a.armEEPROM(2 * time.Second)
			return nil
		})

	reg(98,
		func(a *Amplifier) (int, error) { a.mu.Lock(); defer a.mu.Unlock(); return a.ActiveBank, nil },
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 3); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			if a.BankSwitchMethod == BankSwitchExternal {
				return nil // write ignored, not an error
			}
			a.ActiveBank = v
			a.invalidateFrom(stageRV)
			a.recomputeLocked()
			a.armEEPROM(2 * time.Second)
			return nil
		})

	reg(99,
		func(a *Amplifier) (int, error) { a.mu.Lock(); defer a.mu.Unlock(); return boolToInt(a.StoredTimingInput), nil },
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 1); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			a.StoredTimingInput = v == 1
			a.armEEPROM(2 * time.Second)
			return nil
		})

	reg(100,
		func(a *Amplifier) (int, error) { a.mu.Lock(); defer a.mu.Unlock(); return boolToInt(a.StoredLaserEmissionStop), nil },
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 1); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			a.StoredLaserEmissionStop = v == 1
			a.armEEPROM(2 * time.Second)
			return nil
		})

	reg(104,
		func(a *Amplifier) (int, error) { a.mu.Lock(); defer a.mu.Unlock(); return int(a.SubdisplayMode), nil },
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 5); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			a.SubdisplayMode = SubdisplayScreenMode(v)
			a.armEEPROM(2 * time.Second)
			return nil
		})

	reg(105,
		func(a *Amplifier) (int, error) {
			a.mu.Lock()
			defer a.mu.Unlock()
			v := boolToInt(a.FutureTransistorMode == PNP)
			v |= int(a.FutureAnalogOutputMode) << 1
			return v, nil
		},
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 0b1111); err != nil {
				return err
			}
			analogBits := (v >> 1) & 0b111
			a.mu.Lock()
			defer a.mu.Unlock()
			if !a.IsMain && analogBits != 0 {
				return wireerr.New(wireerr.OutOfRange)
			}
			a.FutureTransistorMode = TransistorMode(v & 1)
			a.FutureAnalogOutputMode = AnalogOutputMode(analogBits)
			a.armEEPROM(2 * time.Second)
			return nil
		})

	reg(106,
		func(a *Amplifier) (int, error) {
			a.mu.Lock()
			defer a.mu.Unlock()
			return fixedpoint.NewCodec(a.Heads.DecimalPosition).MMToInt(a.ToleranceSettingRange), nil
		},
		func(a *Amplifier, v int) error {
			a.mu.Lock()
			defer a.mu.Unlock()
			codec := fixedpoint.NewCodec(a.Heads.DecimalPosition)
			lo, hi := codec.Bounds()
			mm := codec.IntToMM(v)
			if mm < lo || mm > hi {
				return wireerr.New(wireerr.OutOfRange)
			}
			a.ToleranceSettingRange = mm
			a.armEEPROM(2 * time.Second)
			return nil
		})

	reg(107,
		func(a *Amplifier) (int, error) {
			a.mu.Lock()
			defer a.mu.Unlock()
			return boolToInt(a.CalibrationUseUserSettings), nil
		},
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 1); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			a.CalibrationUseUserSettings = v == 1
			a.invalidateFrom(stageRV)
			a.recomputeLocked()
			a.armEEPROM(2 * time.Second)
			return nil
		})

	reg(108,
		func(a *Amplifier) (int, error) {
			a.mu.Lock()
			defer a.mu.Unlock()
			return fixedpoint.NewCodec(a.Heads.DecimalPosition).MMToInt(a.calSet1Target), nil
		},
		func(a *Amplifier, v int) error {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.calSet1Target = fixedpoint.NewCodec(a.Heads.DecimalPosition).IntToMM(v)
			a.armEEPROM(2 * time.Second)
			return nil
		})
	reg(109,
		func(a *Amplifier) (int, error) {
			a.mu.Lock()
			defer a.mu.Unlock()
			return fixedpoint.NewCodec(a.Heads.DecimalPosition).MMToInt(a.calSet2Target), nil
		},
		func(a *Amplifier, v int) error {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.calSet2Target = fixedpoint.NewCodec(a.Heads.DecimalPosition).IntToMM(v)
			a.armEEPROM(2 * time.Second)
			return nil
		})

	reg(110,
		func(a *Amplifier) (int, error) { a.mu.Lock(); defer a.mu.Unlock(); return int(a.CalcCalibrationMode), nil },
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 2); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			a.CalcCalibrationMode = CalcCalibrationMode(v)
			a.armEEPROM(2 * time.Second)
			return nil
		})

	calcPointReg := func(idx int, getf func(a *Amplifier) *float64) {
		reg(idx,
			func(a *Amplifier) (int, error) {
				a.mu.Lock()
				defer a.mu.Unlock()
				return fixedpoint.NewCodec(a.Heads.DecimalPosition).MMToInt(*getf(a)), nil
			},
			func(a *Amplifier, v int) error {
				a.mu.Lock()
				defer a.mu.Unlock()
				if !a.IsMain {
					return wireerr.New(wireerr.WriteProtected)
				}
				*getf(a) = fixedpoint.NewCodec(a.Heads.DecimalPosition).IntToMM(v)
				a.armEEPROM(2 * time.Second)
				return nil
			})
	}
	calcPointReg(111, func(a *Amplifier) *float64 { return &a.calcCalSet1Target })
	calcPointReg(112, func(a *Amplifier) *float64 { return &a.calcCalSet2Target })
	calcPointReg(113, func(a *Amplifier) *float64 { return &a.calc3pSet1Target })
	calcPointReg(114, func(a *Amplifier) *float64 { return &a.calc3pSet2Target })

	reg(129,
		func(a *Amplifier) (int, error) { a.mu.Lock(); defer a.mu.Unlock(); return int(a.CalculationMode), nil },
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 2); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			if !a.IsMain {
				return wireerr.New(wireerr.WriteProtected)
			}
			a.CalculationMode = CalculationMode(v)
			if v != 0 && a.Partner != nil {
				// a.Partner shares a.mu (see SetPartner).
				a.Partner.FilterSetting = a.FilterSetting
				a.Partner.SamplingCycle = a.SamplingCycle
			}
			a.invalidateFrom(stageCalc)
			a.recomputeLocked()
			a.armEEPROM(2 * time.Second)
			return nil
		})

	reg(131,
		func(a *Amplifier) (int, error) {
			a.mu.Lock()
			defer a.mu.Unlock()
			return boolToInt(a.ReversedMeasurementDirection), nil
		},
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 1); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			a.ReversedMeasurementDirection = v == 1
			a.invalidateFrom(stageRV)
			a.recomputeLocked()
			a.armEEPROM(2 * time.Second)
			return nil
		})

	reg(132,
		func(a *Amplifier) (int, error) { a.mu.Lock(); defer a.mu.Unlock(); return int(a.SamplingCycle), nil },
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 4); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			a.SamplingCycle = SamplingCycle(v)
			a.armEEPROM(2 * time.Second)
			return nil
		})

	reg(133,
		func(a *Amplifier) (int, error) { a.mu.Lock(); defer a.mu.Unlock(); return int(a.FilterSetting), nil },
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 14); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			a.FilterSetting = FilterSetting(v)
			a.armEEPROM(2 * time.Second)
			return nil
		})

	reg(134,
		func(a *Amplifier) (int, error) {
			a.mu.Lock()
			defer a.mu.Unlock()
			return boolToInt(a.OutputModeNormallyClosed), nil
		},
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 1); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			a.OutputModeNormallyClosed = v == 1
			a.armEEPROM(2 * time.Second)
			return nil
		})

	reg(136,
		func(a *Amplifier) (int, error) {
			a.mu.Lock()
			defer a.mu.Unlock()
			return int(a.HoldFunctionSetting), nil
		},
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 5); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			a.HoldFunctionSetting = HoldFunctionSetting(v)
			a.holdPeak, a.holdBottom, a.holdValue = 0, 0, 0
			a.currentlySampling = true
			a.errorDuringSampling = false
			a.armEEPROM(2 * time.Second)
			return nil
		})

	reg(137,
		func(a *Amplifier) (int, error) {
			a.mu.Lock()
			defer a.mu.Unlock()
			return fixedpoint.NewCodec(a.Heads.DecimalPosition).MMToInt(a.AutoTriggerLevel), nil
		},
		func(a *Amplifier, v int) error {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.AutoTriggerLevel = fixedpoint.NewCodec(a.Heads.DecimalPosition).IntToMM(v)
			a.armEEPROM(2 * time.Second)
			return nil
		})

	reg(138,
		func(a *Amplifier) (int, error) { a.mu.Lock(); defer a.mu.Unlock(); return boolToInt(a.TimingInputOnEdge), nil },
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 1); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			a.TimingInputOnEdge = v == 1
			a.armEEPROM(2 * time.Second)
			return nil
		})

	reg(139,
		func(a *Amplifier) (int, error) { a.mu.Lock(); defer a.mu.Unlock(); return int(a.DelayTimerSetting), nil },
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 3); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			a.DelayTimerSetting = DelayTimerSetting(v)
			a.armEEPROM(2 * time.Second)
			return nil
		})

	reg(140,
		func(a *Amplifier) (int, error) { a.mu.Lock(); defer a.mu.Unlock(); return a.TimerDuration, nil },
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 5, 9999); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			a.TimerDuration = v
			a.armEEPROM(2 * time.Second)
			return nil
		})

	reg(141,
		func(a *Amplifier) (int, error) {
			a.mu.Lock()
			defer a.mu.Unlock()
			return fixedpoint.NewCodec(a.Heads.DecimalPosition).MMToInt(a.Hysteresis), nil
		},
		func(a *Amplifier, v int) error {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.Hysteresis = fixedpoint.NewCodec(a.Heads.DecimalPosition).IntToMM(v)
			a.armEEPROM(2 * time.Second)
			return nil
		})

	reg(142,
		func(a *Amplifier) (int, error) { a.mu.Lock(); defer a.mu.Unlock(); return int(a.AnalogScaling), nil },
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 2); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			if !a.IsMain {
				return wireerr.New(wireerr.WriteProtected)
			}
			a.AnalogScaling = AnalogOutputScalingMode(v)
			a.armEEPROM(2 * time.Second)
			return nil
		})

	freeRangeReg := func(idx int, getf func(a *Amplifier) *float64) {
		reg(idx,
			func(a *Amplifier) (int, error) {
				a.mu.Lock()
				defer a.mu.Unlock()
				return fixedpoint.NewCodec(a.Heads.DecimalPosition).MMToInt(*getf(a)), nil
			},
			func(a *Amplifier, v int) error {
				a.mu.Lock()
				defer a.mu.Unlock()
				if !a.IsMain {
					return wireerr.New(wireerr.WriteProtected)
				}
				if a.AnalogScaling == ScalingBank || a.AnalogScaling == ScalingInitial {
					return wireerr.New(wireerr.Forbidden)
				}
				*getf(a) = fixedpoint.NewCodec(a.Heads.DecimalPosition).IntToMM(v)
				a.armEEPROM(2 * time.Second)
				return nil
			})
	}
	freeRangeReg(143, func(a *Amplifier) *float64 { return &a.FreeRangeUpper })
	freeRangeReg(144, func(a *Amplifier) *float64 { return &a.FreeRangeLower })

	reg(145,
		func(a *Amplifier) (int, error) {
			a.mu.Lock()
			defer a.mu.Unlock()
			return boolToInt(a.ExternalInputUseUserSettings), nil
		},
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 1); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			a.ExternalInputUseUserSettings = v == 1
			a.armEEPROM(2 * time.Second)
			return nil
		})

	lineFuncReg := func(idx, line, maxVal int) {
		reg(idx,
			func(a *Amplifier) (int, error) {
				a.mu.Lock()
				defer a.mu.Unlock()
				return int(a.ExternalInputFunc[line]), nil
			},
			func(a *Amplifier, v int) error {
				if err := clampCheck(v, 0, maxVal); err != nil {
					return err
				}
				a.mu.Lock()
				defer a.mu.Unlock()
				a.ExternalInputFunc[line] = ExternalInputFunction(v)
				a.armEEPROM(2 * time.Second)
				return nil
			})
	}
	lineFuncReg(146, 0, 4)
	lineFuncReg(147, 1, 4)
	lineFuncReg(148, 2, 4)
	lineFuncReg(149, 3, 3)

	reg(150,
		func(a *Amplifier) (int, error) { a.mu.Lock(); defer a.mu.Unlock(); return int(a.BankSwitchMethod), nil },
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 1); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			a.BankSwitchMethod = BankSwitchMethod(v)
			a.armEEPROM(2 * time.Second)
			return nil
		})

	reg(152,
		func(a *Amplifier) (int, error) {
			a.mu.Lock()
			defer a.mu.Unlock()
			return boolToInt(a.ZeroShiftSavedInMemory), nil
		},
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 1); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			a.ZeroShiftSavedInMemory = v == 1
			a.armEEPROM(2 * time.Second)
			return nil
		})

	reg(153,
		func(a *Amplifier) (int, error) {
			a.mu.Lock()
			defer a.mu.Unlock()
			return boolToInt(a.MutualInterferencePreventionActive), nil
		},
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 1); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			if !a.IsMain {
				return wireerr.New(wireerr.BadID)
			}
			a.MutualInterferencePreventionActive = v == 1
			a.armEEPROM(2 * time.Second)
			return nil
		})

	reg(154,
		func(a *Amplifier) (int, error) { a.mu.Lock(); defer a.mu.Unlock(); return int(a.DisplayDigit), nil },
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 4); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			a.DisplayDigit = DisplayDigit(v)
			a.armEEPROM(2 * time.Second)
			return nil
		})
	reg(155,
		func(a *Amplifier) (int, error) { a.mu.Lock(); defer a.mu.Unlock(); return int(a.DisplayColor), nil },
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 2); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			a.DisplayColor = DisplayColor(v)
			a.armEEPROM(2 * time.Second)
			return nil
		})
	reg(156,
		func(a *Amplifier) (int, error) { a.mu.Lock(); defer a.mu.Unlock(); return int(a.PowerSavingMode), nil },
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 2); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			a.PowerSavingMode = PowerSavingMode(v)
			a.armEEPROM(2 * time.Second)
			return nil
		})
	reg(157,
		func(a *Amplifier) (int, error) { a.mu.Lock(); defer a.mu.Unlock(); return int(a.HeadDisplayMode), nil },
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 2); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			a.HeadDisplayMode = HeadDisplayMode(v)
			a.armEEPROM(2 * time.Second)
			return nil
		})
	reg(158,
		func(a *Amplifier) (int, error) { a.mu.Lock(); defer a.mu.Unlock(); return a.DiffCountFilterTimerDuration, nil },
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 2, 9999); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			a.DiffCountFilterTimerDuration = v
			a.armEEPROM(2 * time.Second)
			return nil
		})
	reg(159,
		func(a *Amplifier) (int, error) { a.mu.Lock(); defer a.mu.Unlock(); return int(a.HighPassCutoff), nil },
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 9); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			a.HighPassCutoff = HighPassCutoffFrequency(v)
			a.armEEPROM(2 * time.Second)
			return nil
		})

	reg(161,
		func(a *Amplifier) (int, error) { a.mu.Lock(); defer a.mu.Unlock(); return int(a.AlarmSetting), nil },
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 2); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			a.AlarmSetting = AlarmSetting(v)
			a.armEEPROM(2 * time.Second)
			return nil
		})
	reg(162,
		func(a *Amplifier) (int, error) { a.mu.Lock(); defer a.mu.Unlock(); return a.AlarmCount, nil },
		func(a *Amplifier, v int) error {
			if err := clampCheck(v, 0, 1000); err != nil {
				return err
			}
			a.mu.Lock()
			defer a.mu.Unlock()
			a.AlarmCount = v
			a.armEEPROM(2 * time.Second)
			return nil
		})
}

// ---- write-only action registers (001..028) --------------------------------

// actionGate rejects any setting_data other than 1, the way every
// action register in the documented range does: writing 1 triggers the
// action, any other value is simply out of range.
func actionGate(v int) error {
	if v != 1 {
		return wireerr.New(wireerr.OutOfRange)
	}
	return nil
}

func registerActions() {
	reg(1, nil, func(a *Amplifier, v int) error {
		if err := actionGate(v); err != nil {
			return err
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.ZeroShiftingResult = Operating
		if !a.rawOK {
			a.ZeroShiftingResult = Abnormal
			return nil
		}
		a.Banks[a.activeBankIndexLocked()].ShiftTarget = a.rawValue
		if a.ZeroShiftSavedInMemory {
			a.armEEPROM(0)
		}
		a.invalidateFrom(stageRV)
		a.recomputeLocked()
		a.ZeroShiftingResult = Normal
		return nil
	})

	reg(2, nil, func(a *Amplifier, v int) error {
		if err := actionGate(v); err != nil {
			return err
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.ZeroShiftingResult = Operating
		a.Banks[a.activeBankIndexLocked()].ShiftTarget = 0
		if a.ZeroShiftSavedInMemory {
			a.armEEPROM(0)
		}
		a.invalidateFrom(stageRV)
		a.recomputeLocked()
		a.ZeroShiftingResult = Normal
		return nil
	})

	reg(3, nil, func(a *Amplifier, v int) error {
		if err := actionGate(v); err != nil {
			return err
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.ResetRequestResult = Operating
		if !a.ZeroShiftSavedInMemory {
			a.Banks[a.activeBankIndexLocked()].ShiftTarget = 0
			for i := range a.Banks {
				a.Banks[i].ShiftTarget = 0
			}
			a.invalidateFrom(stageRV)
			a.recomputeLocked()
		}
		a.ResetRequestResult = Normal
		return nil
	})

	reg(5, nil, func(a *Amplifier, v int) error {
		if err := actionGate(v); err != nil {
			return err
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.restoreDefaultSettingsLocked()
		a.invalidateFrom(stageRV)
		a.recomputeLocked()
		a.armEEPROM(3 * time.Second)
		return nil
	})

	reg(6, nil, func(a *Amplifier, v int) error {
		if err := actionGate(v); err != nil {
			return err
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.TransistorMode = a.FutureTransistorMode
		a.AnalogOutputMode = a.FutureAnalogOutputMode
		a.armEEPROM(2 * time.Second)
		return nil
	})

	reg(14, nil, func(a *Amplifier, v int) error {
		if err := actionGate(v); err != nil {
			return err
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.TuningResult = Operating
		if !a.pvOK {
			a.TuningResult = Abnormal
			return wireerr.New(wireerr.Forbidden)
		}
		idx := a.activeBankIndexLocked()
		a.Banks[idx].ThresholdHigh = a.pvValue + a.ToleranceSettingRange
		a.Banks[idx].ThresholdLow = a.pvValue - a.ToleranceSettingRange
		a.armEEPROM(2 * time.Second)
		a.TuningResult = Normal
		return nil
	})

	reg(15, nil, func(a *Amplifier, v int) error {
		if err := actionGate(v); err != nil {
			return err
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.TuningResult = Operating
		if !a.rvOK {
			a.twoPointHighStaged = false
			a.TuningResult = Abnormal
			return wireerr.New(wireerr.Forbidden)
		}
		a.twoPointHighStage1 = a.rvValue
		a.twoPointHighStaged = true
		return nil
	})

	reg(16, nil, func(a *Amplifier, v int) error {
		if err := actionGate(v); err != nil {
			return err
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.TuningResult = Operating
		if !a.rvOK || !a.twoPointHighStaged {
			a.twoPointHighStaged = false
			a.TuningResult = Abnormal
			return wireerr.New(wireerr.Forbidden)
		}
		newHigh := (a.twoPointHighStage1 + a.rvValue) / 2
		a.Banks[a.activeBankIndexLocked()].ThresholdHigh = newHigh
		a.twoPointHighStaged = false
		a.armEEPROM(2 * time.Second)
		a.TuningResult = Normal
		return nil
	})

	reg(17, nil, func(a *Amplifier, v int) error {
		if err := actionGate(v); err != nil {
			return err
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.TuningResult = Operating
		if !a.rvOK {
			a.twoPointLowStaged = false
			a.TuningResult = Abnormal
			return wireerr.New(wireerr.Forbidden)
		}
		a.twoPointLowStage1 = a.rvValue
		a.twoPointLowStaged = true
		return nil
	})

	reg(18, nil, func(a *Amplifier, v int) error {
		if err := actionGate(v); err != nil {
			return err
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.TuningResult = Operating
		if !a.rvOK || !a.twoPointLowStaged {
			a.twoPointLowStaged = false
			a.TuningResult = Abnormal
			return wireerr.New(wireerr.Forbidden)
		}
		newLow := (a.twoPointLowStage1 + a.rvValue) / 2
		a.Banks[a.activeBankIndexLocked()].ThresholdLow = newLow
		a.twoPointLowStaged = false
		a.armEEPROM(2 * time.Second)
		a.TuningResult = Normal
		return nil
	})

	reg(19, nil, func(a *Amplifier, v int) error {
		if err := actionGate(v); err != nil {
			return err
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.CalibrationResult = Operating
		if !a.rvOK || !a.CalibrationUseUserSettings {
			a.CalibrationResult = Abnormal
			return wireerr.New(wireerr.Forbidden)
		}
		a.calSet1RV = a.rvValue
		return nil
	})

	reg(20, nil, func(a *Amplifier, v int) error {
		if err := actionGate(v); err != nil {
			return err
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.CalibrationResult = Operating
		if !a.rvOK || !a.CalibrationUseUserSettings {
			a.CalibrationResult = Abnormal
			return wireerr.New(wireerr.Forbidden)
		}
		set1Before, set2Before := a.calSet1RV, a.rvValue
		factor := (a.calSet2Target - a.calSet1Target) / (set2Before - set1Before)
		if factor < 0.5 || factor > 2.0 {
			a.CalibrationResult = Abnormal
			return wireerr.New(wireerr.Forbidden)
		}
		a.calibrateSensorLocked(set1Before, a.calSet1Target, set2Before, a.calSet2Target)
		a.armEEPROM(2 * time.Second)
		a.CalibrationResult = Normal
		return nil
	})

	reg(21, nil, func(a *Amplifier, v int) error {
		if err := actionGate(v); err != nil {
			return err
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.CalibrationResult = Operating
		if !a.calcOK || !a.CalibrationUseUserSettings {
			a.CalibrationResult = Abnormal
			return wireerr.New(wireerr.Forbidden)
		}
		a.calcCalSet1RV = a.calcValue
		return nil
	})

	reg(22, nil, func(a *Amplifier, v int) error {
		if err := actionGate(v); err != nil {
			return err
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.CalibrationResult = Operating
		if !a.calcOK || !a.CalibrationUseUserSettings {
			a.CalibrationResult = Abnormal
			return wireerr.New(wireerr.Forbidden)
		}
		set1Before, set2Before := a.calcCalSet1RV, a.calcValue
		factor := (a.calcCalSet2Target - a.calcCalSet1Target) / (set2Before - set1Before)
		if factor < 0.5 || factor > 2.0 {
			a.CalibrationResult = Abnormal
			return wireerr.New(wireerr.Forbidden)
		}
		a.calibrateCalcLocked(set1Before, a.calcCalSet1Target, set2Before, a.calcCalSet2Target)
		a.armEEPROM(2 * time.Second)
		a.CalibrationResult = Normal
		return nil
	})

	// Three-point calc calibration (main unit only): the reference
	// implementation itself stages and validates this sequence but
	// never derives tilt/offset from the gate it checks, so set-3
	// here matches that by validating both calibration factors and
	// arming the EEPROM write without changing CalcTilt/CalcOffset.
	reg(23, nil, func(a *Amplifier, v int) error {
		if err := actionGate(v); err != nil {
			return err
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.CalibrationResult = Operating
		if !a.IsMain || a.Partner == nil || !a.rvOK || !a.Partner.rvOK || !a.calcOK ||
			!a.CalibrationUseUserSettings || a.CalcCalibrationMode != CalcCalThreePoint {
			a.CalibrationResult = Abnormal
			return wireerr.New(wireerr.Forbidden)
		}
		a.calc3pStage1Calc = a.calcValue
		a.calc3pStage1RVMain = a.rvValue
		a.calc3pStage1RVExp = a.Partner.rvValue
		a.calc3pStaged = 1
		return nil
	})

	reg(24, nil, func(a *Amplifier, v int) error {
		if err := actionGate(v); err != nil {
			return err
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.CalibrationResult = Operating
		if !a.IsMain || a.Partner == nil || !a.rvOK || !a.Partner.rvOK || !a.calcOK ||
			!a.CalibrationUseUserSettings || a.CalcCalibrationMode != CalcCalThreePoint ||
			a.calc3pStaged < 1 {
			a.calc3pStaged = 0
			a.CalibrationResult = Abnormal
			return wireerr.New(wireerr.Forbidden)
		}
		a.calc3pStage2RVMain = a.rvValue
		a.calc3pStage2RVExp = a.Partner.rvValue
		a.calc3pStaged = 2
		return nil
	})

	reg(25, nil, func(a *Amplifier, v int) error {
		if err := actionGate(v); err != nil {
			return err
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.CalibrationResult = Operating
		if !a.IsMain || a.Partner == nil || !a.rvOK || !a.Partner.rvOK || !a.calcOK ||
			!a.CalibrationUseUserSettings || a.CalcCalibrationMode != CalcCalThreePoint ||
			a.CalculationMode == CalcOff || a.calc3pStaged < 2 {
			a.calc3pStaged = 0
			a.CalibrationResult = Abnormal
			return wireerr.New(wireerr.Forbidden)
		}
		set3BeforeCalc := a.calcValue
		factor1 := (a.calc3pSet2Target - a.calc3pSet1Target) / (set3BeforeCalc - a.calc3pStage1Calc)
		coeff := 1.0
		if a.CalculationMode == CalcAddition {
			coeff = -1.0
		}
		factor2 := coeff * (a.calc3pStage2RVExp - a.calc3pStage1RVExp) / (a.calc3pStage2RVMain - a.calc3pStage1RVMain)
		a.calc3pStaged = 0
		if factor1 < 0.5 || factor1 > 2.0 || factor2 < 0.5 || factor2 > 2.0 {
			a.CalibrationResult = Abnormal
			return wireerr.New(wireerr.Forbidden)
		}
		a.armEEPROM(2 * time.Second)
		a.CalibrationResult = Normal
		return nil
	})

	reg(26, nil, func(a *Amplifier, v int) error {
		if err := actionGate(v); err != nil {
			return err
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.TuningResult = Operating
		if !a.pvOK {
			a.TuningResult = Abnormal
			return wireerr.New(wireerr.Forbidden)
		}
		idx := a.activeBankIndexLocked()
		a.Banks[idx].ThresholdHigh = math.Abs(a.pvValue * 2)
		a.Banks[idx].ThresholdLow = math.Abs(a.pvValue / 2)
		a.armEEPROM(2 * time.Second)
		a.TuningResult = Normal
		return nil
	})

	reg(27, nil, func(a *Amplifier, v int) error {
		if err := actionGate(v); err != nil {
			return err
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.TuningResult = Operating
		if !a.pvOK {
			a.diffCountStaged = false
			a.TuningResult = Abnormal
			return wireerr.New(wireerr.Forbidden)
		}
		a.diffCountStage1 = a.pvValue
		a.diffCountStaged = true
		return nil
	})

	reg(28, nil, func(a *Amplifier, v int) error {
		if err := actionGate(v); err != nil {
			return err
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.TuningResult = Operating
		if !a.pvOK || !a.diffCountStaged {
			a.diffCountStaged = false
			a.TuningResult = Abnormal
			return wireerr.New(wireerr.Forbidden)
		}
		step := a.diffCountStage1 - a.pvValue
		idx := a.activeBankIndexLocked()
		a.Banks[idx].ThresholdHigh = math.Abs(step * 2)
		a.Banks[idx].ThresholdLow = math.Abs(step / 2)
		a.diffCountStaged = false
		a.armEEPROM(2 * time.Second)
		a.TuningResult = Normal
		return nil
	})
}


// calibrateSensorLocked fits a new sensor tilt/offset from two
// before/after point pairs, back-transforming through the current
// calibration so repeated calibration passes compose rather than stack
// errors. Callers must hold a.mu.
func (a *Amplifier) calibrateSensorLocked(p1Before, p1After, p2Before, p2After float64) {
	p1Raw := (p1Before - a.SensorOffset) / a.SensorTilt
	p2Raw := (p2Before - a.SensorOffset) / a.SensorTilt
	tilt := (p2After - p1After) / (p2Raw - p1Raw)
	offset := p1After - p1Raw*tilt
	a.SensorTilt = tilt
	a.SensorOffset = offset
	a.invalidateFrom(stageRaw)
	a.recomputeLocked()
}

// calibrateCalcLocked is calibrateSensorLocked's CALC-stage analogue.
func (a *Amplifier) calibrateCalcLocked(p1Before, p1After, p2Before, p2After float64) {
	p1Raw := (p1Before - a.CalcOffset) / a.CalcTilt
	p2Raw := (p2Before - a.CalcOffset) / a.CalcTilt
	tilt := (p2After - p1After) / (p2Raw - p1Raw)
	offset := p1After - p1Raw*tilt
	a.CalcTilt = tilt
	a.CalcOffset = offset
	a.invalidateFrom(stageCalc)
	a.recomputeLocked()
}

// ---- per-bank registers (065..084) -----------------------------------------

func registerBanks() {
	fields := []func(b *Bank) *float64{
		func(b *Bank) *float64 { return &b.ThresholdHigh },
		func(b *Bank) *float64 { return &b.ThresholdLow },
		func(b *Bank) *float64 { return &b.ShiftTarget },
		func(b *Bank) *float64 { return &b.AnalogUpperLimit },
		func(b *Bank) *float64 { return &b.AnalogLowerLimit },
	}
	for bk := 0; bk < 4; bk++ {
		for k := 0; k < 5; k++ {
			idx := 65 + 5*bk + k
			bankIdx := bk
			field := fields[k]
			reg(idx,
				func(a *Amplifier) (int, error) {
					a.mu.Lock()
					defer a.mu.Unlock()
					return fixedpoint.NewCodec(a.Heads.DecimalPosition).MMToInt(*field(&a.Banks[bankIdx])), nil
				},
				func(a *Amplifier, v int) error {
					a.mu.Lock()
					defer a.mu.Unlock()
					codec := fixedpoint.NewCodec(a.Heads.DecimalPosition)
					lo, hi := codec.Bounds()
					mm := codec.IntToMM(v)
					if mm < lo || mm > hi {
						return wireerr.New(wireerr.OutOfRange)
					}
					*field(&a.Banks[bankIdx]) = mm
					if bankIdx == a.activeBankIndexLocked() {
						a.invalidateFrom(stageRV)
						a.recomputeLocked()
					}
					a.armEEPROM(2 * time.Second)
					return nil
				})
		}
	}
}
