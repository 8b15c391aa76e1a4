// Package config holds worker tuning parameters — the interrupt-wait
// bound and tick, the default rule-cache slot, and the language set a
// deployment's langreg.Registry should start with. Values are decoded
// from YAML and validated against a CUE schema using the CUE Go SDK
// directly, the way internal/compiler validates concept specs, rather
// than shelling out to the cue CLI.
package config

import (
	"fmt"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/checkqueue/internal/cerr"
)

// schema constrains the tuning values a Config may hold. InterruptWaitBound
// and InterruptWaitTickMS together bound how long Controller.Dispose and
// Controller.Reset will block waiting for an in-flight check to notice an
// interrupt (§6, §7 InterruptTimeout).
const schema = `
#Config: {
	interruptWaitBound:   int & >=1 & <=60000
	interruptWaitTickMS:  int & >=1 & <=1000
	defaultRuleCacheSlot: int & >=0
	supportedLanguages: [...string] & [_, ...]
}
`

// Config holds the tunable knobs for a check queue deployment.
type Config struct {
	InterruptWaitBound   int      `json:"interruptWaitBound" yaml:"interruptWaitBound"`
	InterruptWaitTickMS  int      `json:"interruptWaitTickMS" yaml:"interruptWaitTickMS"`
	DefaultRuleCacheSlot int      `json:"defaultRuleCacheSlot" yaml:"defaultRuleCacheSlot"`
	SupportedLanguages   []string `json:"supportedLanguages" yaml:"supportedLanguages"`
}

// Default returns the tuning the original hardcodes: a 2000-tick,
// 1-millisecond interrupt wait bound and rule-cache slot 1.
func Default() Config {
	return Config{
		InterruptWaitBound:   2000,
		InterruptWaitTickMS:  1,
		DefaultRuleCacheSlot: 1,
		SupportedLanguages:   []string{"en-US"},
	}
}

// Tick returns InterruptWaitTickMS as a time.Duration.
func (c Config) Tick() time.Duration {
	return time.Duration(c.InterruptWaitTickMS) * time.Millisecond
}

// LoadYAML decodes YAML config source over the defaults and validates the
// result against schema.
func LoadYAML(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, cerr.Wrap(cerr.InvalidConfig, "parsing config yaml", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cfg against schema, catching out-of-range tuning values
// before they reach the controller.
func Validate(cfg Config) error {
	ctx := cuecontext.New()
	schemaVal := ctx.CompileString(schema)
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}

	def := schemaVal.LookupPath(cue.ParsePath("#Config"))
	unified := def.Unify(ctx.Encode(cfg))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return cerr.Wrap(cerr.InvalidConfig, "config failed schema validation", formatCUEError(err))
	}
	return nil
}

func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	return fmt.Errorf("%s", errs[0].Error())
}
