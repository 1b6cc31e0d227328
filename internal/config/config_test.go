package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/proximity-backend-go/internal/apperr"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func baseEnv() map[string]string {
	return map[string]string{
		"PORT":         "8080",
		"STORE_DSN":    "/tmp/proximity.db",
		"INGEST_SHAPE": "single",
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(baseEnv()))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, ShapeSingle, cfg.Shape)
	assert.Equal(t, UnitCentimeters, cfg.Unit)
	assert.Equal(t, 2*time.Minute, cfg.StaleAfter)
	assert.Equal(t, 10*time.Second, cfg.FilterWindow)
	assert.Equal(t, "sensor", cfg.RawKey)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Empty(t, cfg.MQTTBroker)
}

func TestMissingRequired(t *testing.T) {
	for _, key := range []string{"PORT", "STORE_DSN", "INGEST_SHAPE"} {
		t.Run(key, func(t *testing.T) {
			env := baseEnv()
			delete(env, key)
			_, err := FromLookup(lookupFrom(env))
			require.Error(t, err)
			assert.True(t, apperr.IsConfig(err))
		})
	}
}

func TestInvalidValues(t *testing.T) {
	cases := map[string]string{
		"INGEST_SHAPE":  "xml",
		"STORE_DRIVER":  "mongo",
		"DISTANCE_UNIT": "km",
		"STALE_AFTER":   "soon",
		"FILTER_WINDOW": "-5s",
		"RATE_LIMIT":    "0",
		"LOG_LEVEL":     "loud",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			env := baseEnv()
			env[key] = value
			_, err := FromLookup(lookupFrom(env))
			require.Error(t, err)
			assert.True(t, apperr.IsConfig(err))
		})
	}
}

func TestDurationsAcceptISO8601(t *testing.T) {
	env := baseEnv()
	env["STALE_AFTER"] = "PT10S"
	env["FILTER_WINDOW"] = "PT2M"
	env["KAFKA_BROKERS"] = "k1:9092, k2:9092,"

	cfg, err := FromLookup(lookupFrom(env))
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.StaleAfter)
	assert.Equal(t, 2*time.Minute, cfg.FilterWindow)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestFilterWindowZeroDisables(t *testing.T) {
	env := baseEnv()
	env["FILTER_WINDOW"] = "0"
	cfg, err := FromLookup(lookupFrom(env))
	require.NoError(t, err)
	assert.Zero(t, cfg.FilterWindow)
}
