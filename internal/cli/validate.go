package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cellsim/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Model  string                     `json:"model,omitempty"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <model-dir>",
		Short: "Validate a model without running it",
		Long: `Validate a CUE model without running it.

Compiles the model and checks every cross-reference: species, objects,
regions, surface classes, release patterns and count terms. All problems
are reported, not just the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, modelDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	errs, err := ValidateModelDir(modelDir)
	if err != nil {
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			return outputValidateError(formatter, ErrCodeGeneric, err.Error(), nil)
		}
		// A compile error is a finding about the model, not a command error.
		if loadErr.Field == "" {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		errs = []compiler.ValidationError{{
			Field:   loadErr.Field,
			Message: loadErr.Message,
			Code:    loadErr.Code,
			Line:    loadErr.Line(),
		}}
	}

	if len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}
	return outputValidateSuccess(formatter, modelDir)
}

// ValidateModelDir loads and validates the model in a directory.
// Load errors are returned as *LoadError.
func ValidateModelDir(modelDir string) ([]compiler.ValidationError, error) {
	res, err := LoadModel(modelDir)
	if err != nil {
		return nil, err
	}
	return compiler.Validate(res.Model), nil
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, modelDir string) error {
	if formatter.JSON() {
		return formatter.Success(ValidationResult{Valid: true, Model: modelDir})
	}

	fmt.Fprintln(formatter.Writer, "✓ Model valid")
	return nil
}

// outputValidateError outputs a single load error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.JSON() {
		err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error:  &CLIError{Code: errs[0].Code, Message: errs[0].Message},
		})
		if err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	return exitErr
}
