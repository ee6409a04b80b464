package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcejohnson/rekorder/internal/tape"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"result": "success"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error(CodeValidation, "playback diverged", map[string]string{"track": "recording"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeValidation, resp.Error.Code)
	assert.Equal(t, "playback diverged", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, formatter.Error(CodeCommand, "cannot read recording", "no such file"))
	assert.Contains(t, buf.String(), "Error [E_COMMAND]: cannot read recording")
	assert.Contains(t, buf.String(), "Details: no such file")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			diag := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag, Verbose: tt.verbose}

			formatter.VerboseLog("indexing %s", "run.json")

			assert.Empty(t, out.String(), "diagnostics never corrupt the payload")
			if tt.wantLog {
				assert.Contains(t, diag.String(), "indexing run.json")
			} else {
				assert.Empty(t, diag.String())
			}
		})
	}
}

func TestOutputFormatter_FailJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Fail("playback failed", tape.LegalityError(tape.TrackExit, tape.TypeRef{Module: "m", Class: "C"}, "not here"))
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeLegality, resp.Error.Code)
	details := resp.Error.Details.(map[string]any)
	assert.Equal(t, "m.C", details["device"])
	assert.Equal(t, "exit", details["track"])
}

func TestOutputFormatter_FailTextIsQuiet(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Fail("playback failed", errors.New("boom"))
	assert.Empty(t, buf.String())
	assert.Equal(t, "playback failed: boom", err.Error())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		exit int
		code string
	}{
		{"config", tape.ConfigError("no output"), ExitCommandError, CodeConfig},
		{"legality", tape.LegalityError(tape.TrackEntry, tape.TypeRef{}, "x"), ExitFailure, CodeLegality},
		{"reuse", tape.ReuseError(tape.TypeRef{Class: "State"}), ExitFailure, CodeReuse},
		{"validation", tape.ValidationError(tape.TrackRecording, nil, nil, "x"), ExitFailure, CodeValidation},
		{"wrapped", fmt.Errorf("replay: %w", tape.ValidationError(tape.TrackRecording, nil, nil, "x")), ExitFailure, CodeValidation},
		{"routine", errors.New("float division by zero"), ExitFailure, CodeRoutine},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exit, code := Classify(tt.err)
			assert.Equal(t, tt.exit, exit)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "diverged")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", WrapExitError(ExitCommandError, "bad", errors.New("x")))))
	assert.Equal(t, ExitCommandError, GetExitCode(errors.New(`required flag(s) "input" not set`)))
}
