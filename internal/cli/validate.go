package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cadenza/internal/automation"
	"github.com/roach88/cadenza/internal/backend/virtual"
	"github.com/roach88/cadenza/internal/graph"
	"github.com/roach88/cadenza/internal/patch"
)

// ValidationIssue is one validation failure, with a stable code.
type ValidationIssue struct {
	Field   string `json:"field,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Nodes  int               `json:"nodes"`
	Tracks int               `json:"tracks"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <patch-file>",
		Short: "Validate a patch without rendering it",
		Long: `Validate a CUE or YAML patch definition without rendering.

Compiles the definition, checks every automation step through the
builder (curve names, exponential ramp endpoints), and dry-runs the
graph build against a throwaway virtual backend so wiring errors
(cycles, unresolved destinations, duplicate names) surface here.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	def, err := patch.Load(path)
	if err != nil {
		_ = formatter.Error("LOAD_FAILED", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load patch", err)
	}
	formatter.VerboseLog("Loaded patch %q from %s", def.Name, path)

	var issues []ValidationIssue

	specs, err := def.Compile()
	if err != nil {
		issues = append(issues, issueFromError(err))
	}

	if len(issues) == 0 {
		// Dry-run build: the throwaway backend takes the wiring but
		// nothing plays.
		if _, err := graph.Build(specs, virtual.New()); err != nil {
			issues = append(issues, issueFromError(err))
		}
	}

	tracks, err := def.CompileTracks()
	if err != nil {
		issues = append(issues, issueFromError(err))
	}

	if len(issues) > 0 {
		return outputValidationErrors(formatter, issues)
	}

	result := ValidationResult{Valid: true, Nodes: len(specs), Tracks: len(tracks)}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Patch valid: %d node(s), %d track(s)\n", result.Nodes, result.Tracks)
	return nil
}

// issueFromError maps the domain error taxonomy onto a ValidationIssue,
// preserving stable codes where the error carries one.
func issueFromError(err error) ValidationIssue {
	var compileErr *patch.CompileError
	if errors.As(err, &compileErr) {
		return ValidationIssue{Field: compileErr.Field, Code: "INVALID_PATCH", Message: compileErr.Message}
	}
	var autoErr *automation.Error
	if errors.As(err, &autoErr) {
		return ValidationIssue{Field: autoErr.Key, Code: string(autoErr.Code), Message: autoErr.Message}
	}
	var cfgErr *graph.ConfigError
	if errors.As(err, &cfgErr) {
		return ValidationIssue{Field: cfgErr.Spec, Code: string(cfgErr.Code), Message: cfgErr.Message}
	}
	return ValidationIssue{Code: "INVALID_PATCH", Message: err.Error()}
}

// outputValidationErrors outputs validation failures and returns an
// ExitFailure error.
func outputValidationErrors(formatter *OutputFormatter, issues []ValidationIssue) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: issues},
			Error:  &CLIError{Code: issues[0].Code, Message: issues[0].Message},
		}
		enc := json.NewEncoder(formatter.Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, issue := range issues {
		if issue.Field != "" {
			fmt.Fprintf(formatter.Writer, "  %s (%s): %s\n", issue.Code, issue.Field, issue.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", issue.Code, issue.Message)
		}
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
}
