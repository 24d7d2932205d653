package ampl

// updateHoldLocked re-derives P.V. from CALC under the current hold
// policy. It is invoked after every CALC recomputation (level-triggered
// behavior); edge-triggered behavior (sample capture on 0->1, restart
// conditions) lives in onTimingEdgeLocked. Callers must hold a.mu.
func (a *Amplifier) updateHoldLocked() {
	switch a.HoldFunctionSetting {
	case SampleHold:
		if !a.TimingInputOnEdge && !a.timingInputLevel {
			a.pvValue, a.pvOK = a.calcValue, a.calcOK
		}
	case PeakHold, BottomHold, PeakToPeakHold:
		a.accumulatePeakBottomLocked()
	case AutoPeakHold:
		a.autoHoldLocked(true)
	case AutoBottomHold:
		a.autoHoldLocked(false)
	}
}

func (a *Amplifier) accumulatePeakBottomLocked() {
	if !a.currentlySampling || a.errorDuringSampling {
		return
	}
	if !a.calcOK {
		a.holdPeak, a.holdBottom, a.holdValue = 0, 0, 0
		a.errorDuringSampling = true
		return
	}
	if a.calcValue > a.holdPeak {
		a.holdPeak = a.calcValue
	}
	if a.calcValue < a.holdBottom {
		a.holdBottom = a.calcValue
	}
	switch a.HoldFunctionSetting {
	case PeakHold:
		a.holdValue = a.holdPeak
	case BottomHold:
		a.holdValue = a.holdBottom
	case PeakToPeakHold:
		a.holdValue = a.holdPeak - a.holdBottom
	}
}

func (a *Amplifier) autoHoldLocked(peak bool) {
	start := a.AutoTriggerLevel
	var end float64
	if peak {
		end = start - a.Hysteresis
	} else {
		end = start + a.Hysteresis
	}

	below := !a.calcOK
	if !below {
		if peak {
			below = a.calcValue < end
		} else {
			below = a.calcValue > end
		}
	}
	if below {
		a.currentlySampling = false
		a.pvValue, a.pvOK = a.holdValue, true
		return
	}

	trigger := false
	if peak {
		trigger = a.calcValue > start
	} else {
		trigger = a.calcValue < start
	}
	if trigger && (a.currentlySampling || !a.timingInputLevel) {
		if !a.currentlySampling {
			a.currentlySampling = true
			a.holdPeak, a.holdBottom = a.calcValue, a.calcValue
		}
		if a.calcValue > a.holdPeak {
			a.holdPeak = a.calcValue
		}
		if a.calcValue < a.holdBottom {
			a.holdBottom = a.calcValue
		}
		if peak {
			a.holdValue = a.holdPeak
		} else {
			a.holdValue = a.holdBottom
		}
		a.pvValue, a.pvOK = a.holdValue, true
	}
}

// onTimingEdgeLocked handles edge-triggered hold behavior: SAMPLE_HOLD
// capture when timing_input_on_edge is set, and the freeze/restart
// semantics of the three peak-family modes. Callers must hold a.mu.
func (a *Amplifier) onTimingEdgeLocked(rising bool) {
	switch a.HoldFunctionSetting {
	case SampleHold:
		if a.TimingInputOnEdge && rising {
			a.pvValue, a.pvOK = a.calcValue, a.calcOK
		}
	case PeakHold, BottomHold, PeakToPeakHold:
		if rising {
			a.currentlySampling = false
			a.pvValue, a.pvOK = a.holdValue, true
		}
		restart := rising
		if !a.TimingInputOnEdge {
			restart = !rising // "any 1->0" restarts when not edge-driven
		}
		if restart {
			a.holdPeak, a.holdBottom, a.holdValue = 0, 0, 0
			a.errorDuringSampling = false
			a.currentlySampling = true
		}
	}
}
