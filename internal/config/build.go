package config

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/keyence-sim/ilsim/internal/ampl"
	"github.com/keyence-sim/ilsim/internal/bus"
)

// overrides names the amplifier settings a sensor entry may adjust
// away from head defaults at startup. Only fields with documented,
// bounded wire registers are exposed here; anything else is reached
// the normal way, over SR/SW, once the daemon is running.
type overrides struct {
	Hysteresis            *float64 `mapstructure:"hysteresis"`
	ToleranceSettingRange *float64 `mapstructure:"tolerance_setting_range"`
	ReversedDirection     *bool    `mapstructure:"reversed_direction"`
	OutputNormallyClosed  *bool    `mapstructure:"output_normally_closed"`
}

// BuildBus constructs a bus populated with the configured sensors, in
// order, applying each entry's overrides after construction.
func BuildBus(c Config) (*bus.Bus, error) {
	b := bus.New()
	for i, spec := range c.Sensors {
		head, ok := ampl.HeadCodeFromString(spec.Type)
		if !ok {
			return nil, errors.Errorf("sensor %d: unknown head type %q", i, spec.Type)
		}
		a := ampl.New(head)
		if err := applyOverrides(a, spec.Overrides); err != nil {
			return nil, errors.Wrapf(err, "sensor %d: applying overrides", i)
		}
		if err := b.Add(a); err != nil {
			return nil, errors.Wrapf(err, "sensor %d: adding to bus", i)
		}
	}
	return b, nil
}

func applyOverrides(a *ampl.Amplifier, raw map[string]interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	var o overrides
	if err := mapstructure.Decode(raw, &o); err != nil {
		return err
	}
	if o.Hysteresis != nil {
		a.Hysteresis = *o.Hysteresis
	}
	if o.ToleranceSettingRange != nil {
		a.ToleranceSettingRange = *o.ToleranceSettingRange
	}
	if o.ReversedDirection != nil {
		a.ReversedMeasurementDirection = *o.ReversedDirection
	}
	if o.OutputNormallyClosed != nil {
		a.OutputModeNormallyClosed = *o.OutputNormallyClosed
	}
	return nil
}
