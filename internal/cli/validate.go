package cli

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/connectlab/internal/catalog"
	"github.com/roach88/connectlab/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool                       `json:"valid"`
	Definitions int                        `json:"definitions"`
	Errors      []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [defs-dir...]",
		Short: "Validate gate definitions",
		Long: `Validate CUE gate definitions without registering them.

Every definition is checked, and every error is reported with its code
and line. Tags must not clash with the builtin gates or with each other.
Without arguments the --defs directories are validated.

Exit codes:
  0 - All definitions valid
  1 - One or more definitions invalid
  2 - Command error (missing directory, no CUE files)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs := args
			if len(dirs) == 0 {
				dirs = rootOpts.Defs
			}
			if len(dirs) == 0 {
				return NewExitError(ExitCommandError, "no definitions directory given")
			}
			return runValidate(rootOpts, dirs, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, dirs []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	seen := catalog.Builtin()
	var all []compiler.ValidationError
	count := 0
	for _, dir := range dirs {
		if err := checkDir(dir); err != nil {
			return reportLoadError(formatter, err)
		}
		value, files, err := compiler.BuildDir(dir)
		if err != nil {
			return reportLoadError(formatter, convertLoadError(err, dir))
		}
		formatter.VerboseLog("Found %d CUE file(s) in %s", len(files), dir)

		n, errs := validateAll(value, seen, formatter)
		count += n
		all = append(all, errs...)
	}

	if count == 0 && len(all) == 0 {
		all = append(all, compiler.ValidationError{
			Field:   "gate",
			Message: "no gate definitions found",
			Code:    ErrCodeGeneric,
		})
	}
	if len(all) > 0 {
		return outputValidationErrors(formatter, all)
	}

	if formatter.JSON() {
		return formatter.Success(ValidationResult{Valid: true, Definitions: count})
	}
	fmt.Fprintf(formatter.Writer, "✓ %d definition(s) valid\n", count)
	return nil
}

// validateAll checks every definition under "gate" in value and registers
// the valid ones into seen, so later tags clash with earlier ones.
func validateAll(value cue.Value, seen *catalog.Catalog, formatter *OutputFormatter) (int, []compiler.ValidationError) {
	gates := value.LookupPath(cue.ParsePath("gate"))
	if !gates.Exists() {
		return 0, nil
	}
	iter, err := gates.Fields()
	if err != nil {
		return 0, []compiler.ValidationError{{Field: "gate", Message: err.Error(), Code: ErrCodeBuildFailed}}
	}

	var errs []compiler.ValidationError
	count := 0
	for iter.Next() {
		tag := iter.Label()
		count++
		formatter.VerboseLog("Validating gate: %s", tag)

		def, err := compiler.CompileGate(iter.Value())
		if err != nil {
			errs = append(errs, compileValidationError(tag, err))
			continue
		}
		if verrs := compiler.Validate(def); len(verrs) > 0 {
			errs = append(errs, verrs...)
			continue
		}
		d, err := compiler.Descriptor(def)
		if err != nil {
			errs = append(errs, compileValidationError(tag, err))
			continue
		}
		if err := seen.Register(d); err != nil {
			errs = append(errs, compiler.ValidationError{
				Field:   "gate." + tag,
				Message: err.Error(),
				Code:    compiler.ErrTagConflict,
				Line:    getLine(def.Pos),
			})
		}
	}
	return count, errs
}

func compileValidationError(tag string, err error) compiler.ValidationError {
	loadErr, ok := convertLoadError(err, "").(*LoadError)
	if !ok {
		return compiler.ValidationError{Field: "gate." + tag, Message: err.Error(), Code: ErrCodeGeneric}
	}
	return compiler.ValidationError{
		Field:   "gate." + tag,
		Message: loadErr.Message,
		Code:    loadErr.Code,
		Line:    getLine(loadErr.Pos),
	}
}

// getLine extracts a line number from a position, or 0.
func getLine(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// outputValidationErrors outputs every validation error and returns the
// check failure.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.JSON() {
		result := ValidationResult{Valid: false, Errors: errs}
		if err := formatter.Result(result, errs[0].Code, errs[0].Message); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	return failure
}
