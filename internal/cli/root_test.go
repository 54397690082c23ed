package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordgraph/internal/engine"
	"github.com/roach88/recordgraph/internal/ir"
)

// execute runs the root command with a fixed trace id and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := newRootCommand(&RootOptions{traces: engine.NewFixedGenerator("trace-cli")})
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decode parses a JSON envelope, keeping numbers exact.
func decode(t *testing.T, out string) (CLIResponse, map[string]any) {
	t.Helper()
	dec := json.NewDecoder(bytes.NewBufferString(out))
	dec.UseNumber()
	var resp CLIResponse
	require.NoError(t, dec.Decode(&resp), "output: %s", out)
	data, _ := resp.Data.(map[string]any)
	return resp, data
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "recordgraph", cmd.Use)
	assert.Contains(t, cmd.Long, "insurance")
	assert.Equal(t, ir.EngineVersion, cmd.Version)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"schema", "validate", "query", "get", "related", "create", "update", "upsert", "delete", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"schema", "data", "today"} {
		f := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Empty(t, f.DefValue, name)
	}
}

func TestQueryCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"query", "related"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		for _, flag := range []string{"filter", "orderby", "skip", "top", "count", "select", "expand"} {
			assert.NotNil(t, sub.Flags().Lookup(flag), "%s --%s", name, flag)
		}
	}

	related, _, err := cmd.Find([]string{"related"})
	require.NoError(t, err)
	assert.NotNil(t, related.Flags().Lookup("key"))
	assert.NotNil(t, related.Flags().Lookup("one"))
}

func TestWriteCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	create, _, err := cmd.Find([]string{"create"})
	require.NoError(t, err)
	assert.NotNil(t, create.Flags().Lookup("payload"))
	assert.Nil(t, create.Flags().Lookup("method"))

	for _, name := range []string{"update", "upsert"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		method := sub.Flags().Lookup("method")
		require.NotNil(t, method, name)
		assert.Equal(t, "PATCH", method.DefValue)
		file := sub.Flags().Lookup("file")
		require.NotNil(t, file, name)
		assert.Equal(t, "f", file.Shorthand)
	}
}

func TestSchemaCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	schemaCmd, _, err := cmd.Find([]string{"schema"})
	require.NoError(t, err)

	outputFlag := schemaCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	updateFlag := testCmd.Flags().Lookup("update")
	require.NotNil(t, updateFlag)
	assert.Equal(t, "false", updateFlag.DefValue)

	filterFlag := testCmd.Flags().Lookup("filter")
	require.NotNil(t, filterFlag)
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	_, err := execute(t, "--format", "invalid", "query", "Product")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	quiet := newLogger(false, buf)
	quiet.Info("hidden")
	quiet.Warn("shown")
	require.NoError(t, quiet.Sync())
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	verbose := newLogger(true, buf)
	verbose.Debug("detail")
	require.NoError(t, verbose.Sync())
	assert.Contains(t, buf.String(), "detail")
}
