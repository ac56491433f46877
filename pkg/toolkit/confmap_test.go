package toolkit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetString(t *testing.T) {
	cfg := map[string]any{
		"host": "db.example.com",
		"port": 5432,
	}

	assert.Equal(t, "db.example.com", GetString(cfg, "host"))
	assert.Equal(t, "", GetString(cfg, "missing"))
	assert.Equal(t, "", GetString(cfg, "port"), "non-string values read as empty")
}

func TestGetStringDefault(t *testing.T) {
	cfg := map[string]any{
		"schema": "analytics",
		"empty":  "",
	}

	assert.Equal(t, "analytics", GetStringDefault(cfg, "schema", "public"))
	assert.Equal(t, "public", GetStringDefault(cfg, "missing", "public"))
	assert.Equal(t, "public", GetStringDefault(cfg, "empty", "public"), "empty string falls back to default")
}

func TestGetInt(t *testing.T) {
	cfg := map[string]any{
		"pool_max": 7,
		"max_rows": float64(500), // JSON decoding yields float64
		"host":     "db.example.com",
	}

	assert.Equal(t, 7, GetInt(cfg, "pool_max", 5))
	assert.Equal(t, 500, GetInt(cfg, "max_rows", 100))
	assert.Equal(t, 5, GetInt(cfg, "missing", 5))
	assert.Equal(t, 5, GetInt(cfg, "host", 5), "non-numeric values fall back to default")
}

func TestGetBool(t *testing.T) {
	cfg := map[string]any{
		"enabled":  true,
		"disabled": false,
		"name":     "x",
	}

	assert.True(t, GetBool(cfg, "enabled", false))
	assert.False(t, GetBool(cfg, "disabled", true))
	assert.True(t, GetBool(cfg, "missing", true))
	assert.False(t, GetBool(cfg, "name", false), "non-bool values fall back to default")
}

func TestGetDuration(t *testing.T) {
	cfg := map[string]any{
		"timeout_str":   "45s",
		"timeout_int":   30,
		"timeout_float": float64(15),
		"bad":           "not-a-duration",
	}

	d, err := GetDuration(cfg, "timeout_str")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, d)

	d, err = GetDuration(cfg, "timeout_int")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d, "bare ints are seconds")

	d, err = GetDuration(cfg, "timeout_float")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, d, "bare floats are seconds")

	d, err = GetDuration(cfg, "missing")
	require.NoError(t, err)
	assert.Zero(t, d)

	_, err = GetDuration(cfg, "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not-a-duration")
}
