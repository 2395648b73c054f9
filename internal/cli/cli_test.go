package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func testdata(name string) string {
	return filepath.Join("testdata", name)
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "unitrt", cmd.Use)

	for _, name := range []string{"validate", "units", "run"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "text", cmd.PersistentFlags().Lookup("format").DefValue)
	assert.Equal(t, "c", cmd.PersistentFlags().Lookup("config").Shorthand)
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "validate", "--format", "xml", "--config", testdata("units.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidate(t *testing.T) {
	out, _, err := execute(t, "validate", "--config", testdata("units.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Configuration valid")
	assert.Contains(t, out, "2 units")
}

func TestValidateJSON(t *testing.T) {
	out, _, err := execute(t, "validate", "--format", "json", "--config", testdata("units.yaml"))
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, []string{"consumer", "producer"}, resp.Data.Units)
}

func TestValidateUnknownKind(t *testing.T) {
	out, _, err := execute(t, "validate", "--config", testdata("unknown_kind.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "poltergeist")
}

func TestValidateMissingFile(t *testing.T) {
	out, _, err := execute(t, "validate", "--format", "json", "--config", testdata("missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestUnitsText(t *testing.T) {
	out, _, err := execute(t, "units", "--config", testdata("units.yaml"))
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir(testdata("golden")),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "units_text", []byte(out))
}

func TestUnitsJSON(t *testing.T) {
	out, _, err := execute(t, "units", "--format", "json", "--config", testdata("units.yaml"))
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   []struct {
			ID         string   `json:"id"`
			Delivery   string   `json:"delivery"`
			Threading  string   `json:"threading"`
			Attributes []string `json:"attributes"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "consumer", resp.Data[0].ID)
	assert.Equal(t, "work", resp.Data[0].Delivery)
	assert.Equal(t, "critical", resp.Data[0].Threading)
	assert.Equal(t, "system", resp.Data[1].Delivery)
	assert.Equal(t, []string{"sentMessages", "receivedCommands"}, resp.Data[1].Attributes)
}

func TestUnitsInitializationFailure(t *testing.T) {
	out, _, err := execute(t, "units", "--config", testdata("bad_producer.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "target")
}

func TestRunDeliversSends(t *testing.T) {
	out, _, err := execute(t, "run",
		"--format", "json",
		"--config", testdata("units.yaml"),
		"--duration", "200ms",
		"--send", "producer=send::ping",
		"--send", "producer=send::pong",
		"--send", "nobody=hello")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Sent   int      `json:"sent"`
			Failed []string `json:"failed_sends"`
			Stats  struct {
				State string
				Units []struct {
					ID        string
					Delivered int
				}
			} `json:"stats"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 2, resp.Data.Sent)
	assert.Equal(t, []string{"nobody"}, resp.Data.Failed)
	assert.Equal(t, "shutdown", resp.Data.Stats.State)

	delivered := map[string]int{}
	for _, u := range resp.Data.Stats.Units {
		delivered[u.ID] = u.Delivered
	}
	assert.Equal(t, 2, delivered["producer"])
	assert.Equal(t, 2, delivered["consumer"])
}

func TestRunText(t *testing.T) {
	out, _, err := execute(t, "run", "--config", testdata("units.yaml"), "--duration", "50ms")
	require.NoError(t, err)
	assert.Contains(t, out, "shutdown")
	assert.Contains(t, out, "Sent 0")
	assert.Contains(t, out, "consumer  delivered=0")
}

func TestRunRejectsBadSend(t *testing.T) {
	_, _, err := execute(t, "run", "--config", testdata("units.yaml"), "--send", "no-separator")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))

	wrapped := WrapExitError(ExitFailure, "outer", errors.New("inner"))
	assert.EqualError(t, wrapped, "outer: inner")
	assert.EqualError(t, errors.Unwrap(wrapped), "inner")
}

func TestParseSends(t *testing.T) {
	sends, err := parseSends([]string{"a=b=c", "x="})
	require.NoError(t, err)
	assert.Equal(t, []send{{unit: "a", message: "b=c"}, {unit: "x", message: ""}}, sends)

	_, err = parseSends([]string{"=msg"})
	assert.Error(t, err)
}
