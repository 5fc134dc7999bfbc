package instrument

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/continuum/bytecode"
	"github.com/wippyai/continuum/errors"
	"github.com/wippyai/continuum/instrument/internal/codegen"
	"github.com/wippyai/continuum/instrument/internal/engine"
)

// MarkerStyle selects how generated regions are labelled in the output.
type MarkerStyle string

const (
	// MarkerNone emits no markers.
	MarkerNone MarkerStyle = "none"
	// MarkerConstant loads and pops a string constant at each region.
	MarkerConstant MarkerStyle = "constant"
	// MarkerStdout prints each region's text to System.out when executed.
	MarkerStdout MarkerStyle = "stdout"
)

func (s MarkerStyle) codegen() (codegen.MarkerStyle, error) {
	switch s {
	case "", MarkerNone:
		return codegen.MarkersNone, nil
	case MarkerConstant:
		return codegen.MarkersConstant, nil
	case MarkerStdout:
		return codegen.MarkersStdout, nil
	}
	return 0, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Value(string(s)).
		Detail("unknown marker style %q (want none, constant or stdout)", string(s)).
		Build()
}

// Settings configure an Instrumenter.
type Settings struct {
	Markers MarkerStyle `toml:"markers"`
	// Debug stores the dispatch state in a dedicated local and names
	// generated locals in the local variable table.
	Debug bool `toml:"debug"`
	// Only restricts instrumentation to matching methods. Empty means all.
	Only []string `toml:"only"`
	// Exclude removes matching methods from instrumentation.
	Exclude []string `toml:"exclude"`

	// OnlyList and RemoveList are combined with Only and Exclude.
	OnlyList   MethodMatcher `toml:"-"`
	RemoveList MethodMatcher `toml:"-"`
}

// ParseSettings decodes settings from TOML.
func ParseSettings(data []byte) (Settings, error) {
	var s Settings
	md, err := toml.Decode(string(data), &s)
	if err != nil {
		return Settings{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse settings")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Settings{}, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Detail("unknown settings key %q", undecoded[0].String()).
			Build()
	}
	if _, err := s.Markers.codegen(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// LoadSettings reads settings from a TOML file.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, fmt.Sprintf("cannot read %s", path))
	}
	s, err := ParseSettings(data)
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// engineSettings converts s for the engine.
func (s Settings) engineSettings() (engine.Settings, error) {
	markers, err := s.Markers.codegen()
	if err != nil {
		return engine.Settings{}, err
	}
	out := engine.Settings{Markers: markers, Debug: s.Debug}

	var only, remove MethodMatcher
	if w := NewWildcardMatcher(s.Only); !w.Empty() {
		only = w
	}
	if s.OnlyList != nil {
		only = combine(only, s.OnlyList)
	}
	if w := NewWildcardMatcher(s.Exclude); !w.Empty() {
		remove = w
	}
	if s.RemoveList != nil {
		remove = combine(remove, s.RemoveList)
	}
	if only != nil || remove != nil {
		out.Filter = func(owner string, m *bytecode.Method) bool {
			if only != nil && !only.MatchMethod(owner, m.Name, m.Desc) {
				return false
			}
			return remove == nil || !remove.MatchMethod(owner, m.Name, m.Desc)
		}
	}
	return out, nil
}

func combine(a, b MethodMatcher) MethodMatcher {
	if a == nil {
		return b
	}
	return NewCompositeMatcher(a, b)
}
