package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DOTENV_FILE", "")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestQuoteByMinutes(t *testing.T) {
	out, err := runCLI(t, "quote", "--category", "motorcycle", "--minutes", "62")
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "MOTORCYCLE", got["vehicleType"])
	assert.EqualValues(t, 62, got["durationMinutes"])
	assert.EqualValues(t, 2, got["billableHours"])
	assert.EqualValues(t, 10000, got["fee"])
}

func TestQuoteByInterval(t *testing.T) {
	out, err := runCLI(t, "quote", "--entry", "2024-05-01T09:00:00Z", "--exit", "2024-05-01T10:35:00Z")
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "CAR", got["vehicleType"])
	assert.EqualValues(t, 95, got["durationMinutes"])
	assert.EqualValues(t, 20000, got["fee"])
}

func TestQuoteUsesConfiguredRates(t *testing.T) {
	t.Setenv("PARKING_RATE_TRUCK", "30000")
	out, err := runCLI(t, "quote", "-c", "truck", "-m", "0")
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.EqualValues(t, 1, got["billableHours"])
	assert.EqualValues(t, 30000, got["fee"])
}

func TestQuoteRejectsBadInput(t *testing.T) {
	_, err := runCLI(t, "quote", "--category", "spaceship", "--minutes", "10")
	assert.Error(t, err)

	_, err = runCLI(t, "quote")
	assert.Error(t, err)

	_, err = runCLI(t, "quote", "--entry", "2024-05-01T10:00:00Z", "--exit", "2024-05-01T09:00:00Z")
	assert.Error(t, err)

	_, err = runCLI(t, "quote", "--entry", "2024-05-01T10:00:00Z")
	assert.Error(t, err)
}
