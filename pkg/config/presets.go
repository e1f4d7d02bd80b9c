package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tecu23/chess-clock/pkg/timecontrol"
)

//go:embed presets.yaml
var defaultPresets []byte

// Preset is a named time control. Black's values default to white's, set
// them for time-odds games.
type Preset struct {
	Name       string         `yaml:"name"`
	Method     string         `yaml:"method"`
	Time       time.Duration  `yaml:"time"`
	Delay      *time.Duration `yaml:"delay,omitempty"`
	BlackTime  *time.Duration `yaml:"black_time,omitempty"`
	BlackDelay *time.Duration `yaml:"black_delay,omitempty"`
}

// PresetFile is the root of a presets YAML file
type PresetFile struct {
	Presets []Preset `yaml:"presets"`
}

// LoadPresets reads presets from path, or the built-in presets when path is
// empty
func LoadPresets(path string) ([]Preset, error) {
	if path == "" {
		return ParsePresets(defaultPresets)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading presets file: %w", err)
	}

	return ParsePresets(data)
}

// ParsePresets decodes and validates a presets document
func ParsePresets(data []byte) ([]Preset, error) {
	var file PresetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing presets file: %w", err)
	}

	seen := make(map[string]bool, len(file.Presets))
	for _, p := range file.Presets {
		if p.Name == "" {
			return nil, fmt.Errorf("preset without a name")
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("duplicate preset %q", p.Name)
		}
		seen[p.Name] = true

		if _, err := p.TimeControl(); err != nil {
			return nil, fmt.Errorf("preset %q: %w", p.Name, err)
		}
	}

	return file.Presets, nil
}

// TimeControl converts the preset into clock settings
func (p Preset) TimeControl() (timecontrol.TimeControl, error) {
	method, err := timecontrol.ParseMethod(p.Method)
	if err != nil {
		return timecontrol.TimeControl{}, err
	}

	tc := timecontrol.TimeControl{
		Method: method,
		Time:   [2]int64{p.Time.Milliseconds(), p.Time.Milliseconds()},
	}
	if p.BlackTime != nil {
		tc.Time[1] = p.BlackTime.Milliseconds()
	}

	if p.Delay != nil {
		tc.Delay[0] = timecontrol.Millis(p.Delay.Milliseconds())
		tc.Delay[1] = timecontrol.Millis(p.Delay.Milliseconds())
	}
	if p.BlackDelay != nil {
		tc.Delay[1] = timecontrol.Millis(p.BlackDelay.Milliseconds())
	}

	return tc, tc.Validate()
}

// FindPreset looks a preset up by name
func FindPreset(presets []Preset, name string) (Preset, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}

	return Preset{}, false
}
