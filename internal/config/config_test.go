package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/checkqueue/internal/cerr"
)

func TestDefaultValidates(t *testing.T) {
	assert.NoError(t, Validate(Default()))
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	yamlSrc := []byte(`
interruptWaitBound: 500
supportedLanguages: ["en-US", "de-DE"]
`)
	cfg, err := LoadYAML(yamlSrc)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.InterruptWaitBound)
	assert.Equal(t, 1, cfg.InterruptWaitTickMS, "unset fields keep the default")
	assert.Equal(t, []string{"en-US", "de-DE"}, cfg.SupportedLanguages)
}

func TestValidateRejectsOutOfRangeBound(t *testing.T) {
	cfg := Default()
	cfg.InterruptWaitBound = 0
	err := Validate(cfg)
	assert.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.InvalidConfig))
}

func TestValidateRejectsNegativeCacheSlot(t *testing.T) {
	cfg := Default()
	cfg.DefaultRuleCacheSlot = -1
	err := Validate(cfg)
	assert.Error(t, err)
}

func TestValidateRejectsEmptyLanguageList(t *testing.T) {
	cfg := Default()
	cfg.SupportedLanguages = nil
	err := Validate(cfg)
	assert.Error(t, err)
}

func TestLoadYAMLRejectsMalformedYAML(t *testing.T) {
	_, err := LoadYAML([]byte("not: [valid: yaml"))
	assert.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.InvalidConfig))
}
