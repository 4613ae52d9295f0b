package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestEstimateCommand(t *testing.T) {
	t.Parallel()

	out, err := run(t, "estimate", "--words", "90000")
	require.NoError(t, err)
	require.Contains(t, out, "Service:         Narration Only\n")
	require.Contains(t, out, "Estimated hours: 10.00\n")
	require.Contains(t, out, "Estimated cost:  $750.00\n")
}

func TestEstimateCommandJSON(t *testing.T) {
	t.Parallel()

	out, err := run(t, "estimate", "--words", "9000", "--service", "fullCast", "--json")
	require.NoError(t, err)

	var q struct {
		Hours float64 `json:"hours"`
		Cost  float64 `json:"cost"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &q))
	require.Equal(t, 1.0, q.Hours)
	require.Equal(t, 150.0, q.Cost)
}

func TestEstimateCommandRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, err := run(t, "estimate", "--words", "0")
	require.Error(t, err)

	_, err = run(t, "estimate", "--words", "100", "--service", "orchestra")
	require.Error(t, err)

	_, err = run(t, "estimate")
	require.Error(t, err)
}
