package main

import (
	"fmt"
	"time"

	"github.com/tecu23/chess-clock/pkg/config"
	"github.com/tecu23/chess-clock/pkg/timecontrol"
)

type clockOptions struct {
	preset      string
	presetsPath string

	method     string
	time       time.Duration
	delay      time.Duration
	blackTime  time.Duration
	blackDelay time.Duration
}

// timeControl resolves the preset, or builds the time control from the
// individual options
func (o clockOptions) timeControl(presets []config.Preset) (timecontrol.TimeControl, error) {
	if o.preset != "" {
		p, ok := config.FindPreset(presets, o.preset)
		if !ok {
			return timecontrol.TimeControl{}, fmt.Errorf("unknown preset %q", o.preset)
		}
		return p.TimeControl()
	}

	method, err := timecontrol.ParseMethod(o.method)
	if err != nil {
		return timecontrol.TimeControl{}, err
	}

	tc := timecontrol.TimeControl{
		Method: method,
		Time:   [2]int64{o.time.Milliseconds(), o.time.Milliseconds()},
	}
	if o.blackTime != 0 {
		tc.Time[1] = o.blackTime.Milliseconds()
	}

	if method.UsesDelay() {
		tc.Delay[0] = timecontrol.Millis(o.delay.Milliseconds())
		tc.Delay[1] = timecontrol.Millis(o.delay.Milliseconds())
		if o.blackDelay != 0 {
			tc.Delay[1] = timecontrol.Millis(o.blackDelay.Milliseconds())
		}
	}

	return tc, tc.Validate()
}
