package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"FUNDCARD_API_URL", "FUNDCARD_FETCH_TIMEOUT", "FUNDCARD_QUOTE_DEBOUNCE", "FUNDCARD_POPUP_POLL", "FUNDCARD_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, defaultAPIURL, cfg.APIURL)
	assert.Equal(t, defaultCheckoutURL, cfg.CheckoutURL)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 300*time.Millisecond, cfg.QuoteDebounce)
	assert.Equal(t, 500*time.Millisecond, cfg.PopupPoll)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FUNDCARD_API_URL", "http://localhost:9999")
	t.Setenv("FUNDCARD_FETCH_TIMEOUT", "2s")
	t.Setenv("FUNDCARD_LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999", cfg.APIURL)
	assert.Equal(t, 2*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("FUNDCARD_QUOTE_DEBOUNCE", "soon")
	_, err := Load()
	assert.ErrorContains(t, err, "FUNDCARD_QUOTE_DEBOUNCE")
}

func TestParseViewport(t *testing.T) {
	w, h, err := ParseViewport("1440x900")
	require.NoError(t, err)
	assert.Equal(t, 1440, w)
	assert.Equal(t, 900, h)

	_, _, err = ParseViewport("wide")
	assert.Error(t, err)
	_, _, err = ParseViewport("0x900")
	assert.Error(t, err)
}
