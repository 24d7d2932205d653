// Package bus implements the communication unit: the ordered vector of
// sensor-amplifiers on one simulated bus, its own global status
// register file, and the main/expansion pairing rule.
package bus

import (
	"sync"

	"github.com/keyence-sim/ilsim/internal/ampl"
	"github.com/keyence-sim/ilsim/internal/wireerr"
)

// MaxRegister is the highest addressable communication-unit register.
const MaxRegister = 1179

// MaxAmplifiers is the largest number of sensors one bus can carry.
const MaxAmplifiers = 15

// ErrorCode is the communication unit's own internal_error word
// (DLEN1Error in the reference documentation). Only the zero/nonzero
// distinction and the raw numeric value are load-bearing on the wire;
// the remaining fifty-odd documented codes are not individually
// meaningful to any core operation and are injected by number through
// SetError rather than enumerated here.
type ErrorCode int

// NoError is the bus's quiescent internal_error value.
const NoError ErrorCode = 0

// Bus holds the amplifier vector for one communication unit and the
// bus-level registers layered over it.
type Bus struct {
	mu sync.RWMutex

	amplifiers []*ampl.Amplifier

	InternalError    ErrorCode
	MaskSensorStatus bool
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{}
}

// Add appends an amplifier to the bus and re-runs main/expansion
// assignment: the first amplifier becomes main, the second (if any)
// becomes its expansion unit, and every other amplifier stands alone.
func (b *Bus) Add(a *ampl.Amplifier) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.amplifiers) >= MaxAmplifiers {
		return wireerr.New(wireerr.OutOfRange)
	}
	b.amplifiers = append(b.amplifiers, a)
	b.assignMainUnitLocked()
	return nil
}

func (b *Bus) assignMainUnitLocked() {
	if len(b.amplifiers) == 0 {
		return
	}
	if len(b.amplifiers) >= 2 {
		ampl.SetPartner(b.amplifiers[0], b.amplifiers[1])
		return
	}
	ampl.SetMain(b.amplifiers[0])
}

// Count returns the number of amplifiers currently on the bus.
func (b *Bus) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.amplifiers)
}

// Amplifiers returns a snapshot of the amplifier vector. Callers must
// not mutate the returned slice; a config reload replaces the bus's
// own slice wholesale rather than editing it in place, so a snapshot
// taken here stays valid for the lifetime of the request that took it.
func (b *Bus) Amplifiers() []*ampl.Amplifier {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*ampl.Amplifier, len(b.amplifiers))
	copy(out, b.amplifiers)
	return out
}

// ByID resolves a wire amplifier ID (1..15) to its amplifier, or
// error 022 if the ID is out of range or no amplifier occupies it.
func (b *Bus) ByID(id int) (*ampl.Amplifier, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if id < 1 || id > MaxAmplifiers || id > len(b.amplifiers) {
		return nil, wireerr.New(wireerr.BadID)
	}
	return b.amplifiers[id-1], nil
}

// ReplaceAmplifiers swaps in a new amplifier vector wholesale, for
// RELOAD_CONFIG: callers outside this package must not retain a
// reference to the old amplifiers after calling this, since their
// background tasks are the caller's responsibility to have stopped.
func (b *Bus) ReplaceAmplifiers(amps []*ampl.Amplifier) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.amplifiers = amps
	b.assignMainUnitLocked()
}

// SetError sets the bus's own internal_error word (fault injection).
func (b *Bus) SetError(code ErrorCode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.InternalError = code
}

// ClearError clears the bus's internal_error word.
func (b *Bus) ClearError() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.InternalError = NoError
}

// HasError reports whether the bus itself (not any individual
// amplifier) is carrying a nonzero internal_error.
func (b *Bus) HasError() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.InternalError != NoError
}
