package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jcejohnson/rekorder/internal/tape"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Playback diverged, broke a track rule, or the routine failed
	ExitCommandError = 2 // Command error (bad flags, unreadable recording, misconfiguration)
)

// Error codes reported in CLIError.Code.
const (
	CodeConfig     = "E_CONFIG"
	CodeLegality   = "E_LEGALITY"
	CodeReuse      = "E_REUSE"
	CodeValidation = "E_VALIDATION"
	CodeRoutine    = "E_ROUTINE"
	CodeCommand    = "E_COMMAND"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitCommandError (2) if the error is not an ExitError: cobra's
// own flag and argument errors land here.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// Classify maps an error from the recording engine to an exit code and an
// error code. Configuration problems are command errors; everything the
// recording itself objected to, and failures of the replayed routine, are
// failures.
func Classify(err error) (exit int, code string) {
	var tapeErr *tape.Error
	if !errors.As(err, &tapeErr) {
		return ExitFailure, CodeRoutine
	}
	switch tapeErr.Kind {
	case tape.ErrKindConfig:
		return ExitCommandError, CodeConfig
	case tape.ErrKindLegality:
		return ExitFailure, CodeLegality
	case tape.ErrKindReuse:
		return ExitFailure, CodeReuse
	default:
		return ExitFailure, CodeValidation
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // CodeConfig, CodeValidation, ...
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format. Text
// output prints data with fmt.Println semantics.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail returns the ExitError a command should return for err. In JSON
// format the error is also written as a response; text output leaves the
// report to the caller of Execute, which prints it on stderr.
func (f *OutputFormatter) Fail(message string, err error) error {
	exit, code := Classify(err)
	if f.Format == "json" {
		var details any
		var tapeErr *tape.Error
		if errors.As(err, &tapeErr) {
			details = failureDetails(tapeErr)
		}
		if outErr := f.Error(code, fmt.Sprintf("%s: %v", message, err), details); outErr != nil {
			return outErr
		}
	}
	return WrapExitError(exit, message, err)
}

func failureDetails(e *tape.Error) map[string]string {
	d := map[string]string{"kind": string(e.Kind)}
	if e.Track != "" {
		d["track"] = e.Track
	}
	if !e.Device.IsZero() {
		d["device"] = e.Device.String()
	}
	if e.Expected != nil {
		d["expected"] = e.Expected.Describe()
	}
	if e.Actual != nil {
		d["actual"] = e.Actual.Describe()
	}
	return d
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
