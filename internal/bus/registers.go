package bus

import (
	"github.com/keyence-sim/ilsim/internal/ampl"
	"github.com/keyence-sim/ilsim/internal/wireerr"
)

type readFunc func(b *Bus) (int, error)
type writeFunc func(b *Bus, v int) error

type regEntry struct {
	read  readFunc
	write writeFunc
}

var registry = map[int]regEntry{}

func reg(idx int, r readFunc, w writeFunc) {
	registry[idx] = regEntry{read: r, write: w}
}

// HandleRead implements the communication unit's SR dispatch.
func (b *Bus) HandleRead(idx int) (int, error) {
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
	return e.read(b)
}

// HandleWrite implements the communication unit's SW dispatch.
func (b *Bus) HandleWrite(idx int, v int) error {
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
	return e.write(b, v)
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// perSensorBitmap ORs bit i (sensor i+1) wherever pred reports true.
func perSensorBitmap(b *Bus, pred func(a *ampl.Amplifier) bool) int {
	b.mu.RLock()
	amps := b.amplifiers
	b.mu.RUnlock()
	v := 0
	for i, a := range amps {
		if pred(a) {
			v |= 1 << uint(i)
		}
	}
	return v
}

func init() {
	reg(0, func(b *Bus) (int, error) {
		b.mu.RLock()
		amps := b.amplifiers
		busErr := b.InternalError != NoError
		b.mu.RUnlock()
		anySensorErr := false
		for _, a := range amps {
			if a.HasError() {
				anySensorErr = true
				break
			}
		}
		return boolToInt(busErr) | boolToInt(anySensorErr)<<15, nil
	}, nil)

	reg(1, func(b *Bus) (int, error) {
		return perSensorBitmap(b, func(a *ampl.Amplifier) bool { return a.HasError() }), nil
	}, nil)

	reg(2, func(b *Bus) (int, error) { return 0, nil }, nil)

	reg(4, func(b *Bus) (int, error) {
		return perSensorBitmap(b, func(a *ampl.Amplifier) bool {
			return a.UnderRange() || a.OverRange()
		}), nil
	}, nil)

	reg(8, func(b *Bus) (int, error) {
		b.mu.RLock()
		amps := b.amplifiers
		busErr := b.InternalError != NoError
		b.mu.RUnlock()
		if busErr {
			return 0, nil
		}
		for i, a := range amps {
			if a.HasError() {
				return i + 1, nil
			}
		}
		return 0, nil
	}, nil)

	reg(9, func(b *Bus) (int, error) {
		b.mu.RLock()
		amps := b.amplifiers
		busErr := b.InternalError
		b.mu.RUnlock()
		if busErr != NoError {
			return int(busErr), nil
		}
		for _, a := range amps {
			if a.HasError() {
				return a.ErrorWord(), nil
			}
		}
		return 0, nil
	}, nil)

	reg(10, func(b *Bus) (int, error) { return 0, nil }, nil)
	reg(11, func(b *Bus) (int, error) { return 0, nil }, nil)

	outputBitmap := func(which int) readFunc {
		return func(b *Bus) (int, error) {
			return perSensorBitmap(b, func(a *ampl.Amplifier) bool {
				high, low, goState, alarm := a.PhysicalOutputs()
				switch which {
				case 0:
					return high
				case 1:
					return low
				case 2:
					return goState
				default:
					return alarm
				}
			}), nil
		}
	}
	reg(16, outputBitmap(0), nil)
	reg(17, outputBitmap(1), nil)
	reg(18, outputBitmap(2), nil)
	reg(19, outputBitmap(3), nil)
	reg(20, func(b *Bus) (int, error) { return 0, nil }, nil)

	reg(38, func(b *Bus) (int, error) {
		return perSensorBitmap(b, func(a *ampl.Amplifier) bool { return a.Invalid() }), nil
	}, nil)
	reg(39, func(b *Bus) (int, error) {
		return perSensorBitmap(b, func(a *ampl.Amplifier) bool { return a.UnderRange() }), nil
	}, nil)
	reg(40, func(b *Bus) (int, error) {
		return perSensorBitmap(b, func(a *ampl.Amplifier) bool { return a.OverRange() }), nil
	}, nil)

	for slot := 0; slot < MaxAmplifiers; slot++ {
		idx := 44 + slot
		s := slot
		reg(idx, func(b *Bus) (int, error) {
			b.mu.RLock()
			defer b.mu.RUnlock()
			if s >= len(b.amplifiers) {
				return 0, nil
			}
			return b.amplifiers[s].WireValuePerAmplifier(), nil
		}, nil)
	}

	reg(76,
		func(b *Bus) (int, error) {
			b.mu.RLock()
			defer b.mu.RUnlock()
			return boolToInt(b.MaskSensorStatus), nil
		},
		func(b *Bus, v int) error {
			if v != 0 && v != 1 {
				return wireerr.New(wireerr.OutOfRange)
			}
			b.mu.Lock()
			defer b.mu.Unlock()
			b.MaskSensorStatus = v == 1
			return nil
		})

	reg(77, func(b *Bus) (int, error) {
		b.mu.RLock()
		defer b.mu.RUnlock()
		return len(b.amplifiers), nil
	}, nil)

	reg(668, func(b *Bus) (int, error) {
		b.mu.RLock()
		defer b.mu.RUnlock()
		return int(b.InternalError), nil
	}, nil)

	for slot := 0; slot < MaxAmplifiers; slot++ {
		idx := 669 + slot
		s := slot
		reg(idx, func(b *Bus) (int, error) {
			b.mu.RLock()
			defer b.mu.RUnlock()
			if s >= len(b.amplifiers) {
				return 0, nil
			}
			return b.amplifiers[s].ErrorWord(), nil
		}, nil)
	}
}
