package cli

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue/token"

	"github.com/roach88/connectlab/internal/catalog"
	"github.com/roach88/connectlab/internal/compiler"
)

// LoadError represents an error that occurred while loading definitions.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants shared by every command. Definition errors reuse
// the compiler's E1xx codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // Definitions did not compile
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE evaluation failed
	ErrCodeWriteFailed = "E007" // File write error
)

// LoadCatalog returns the builtin catalog extended with every definition
// directory in dirs, in order.
//
// Directory problems come back as *LoadError. Definitions that compile but
// break a node rule come back as compiler.ValidationErrors.
func LoadCatalog(dirs []string) (*catalog.Catalog, error) {
	cat := catalog.Builtin()
	for _, dir := range dirs {
		if err := checkDir(dir); err != nil {
			return nil, err
		}
		next, err := compiler.LoadDir(dir, cat)
		if err != nil {
			return nil, convertLoadError(err, dir)
		}
		cat = next
	}
	return cat, nil
}

func checkDir(dir string) *LoadError {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("definitions directory not found: %s", dir)}
	}
	if err != nil {
		return &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing definitions directory: %v", err)}
	}
	if !info.IsDir() {
		return &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}
	return nil
}

// convertLoadError converts a compiler error to a LoadError with position
// info. Validation errors pass through unchanged.
func convertLoadError(err error, dir string) error {
	if _, ok := compiler.AsValidationErrors(err); ok {
		return err
	}
	if errors.Is(err, compiler.ErrNoFiles) {
		return &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "cue":
		return ErrCodeBuildFailed
	case "kind":
		return compiler.ErrKindInvalid
	case "width", "height":
		return compiler.ErrSizeInvalid
	case "slots", "name", "dir", "x", "y":
		return compiler.ErrSlotInvalid
	case "truth":
		return compiler.ErrTruthLength
	default:
		return ErrCodeGeneric
	}
}

// reportLoadError writes err in the configured format and returns the exit
// error for it: invalid definitions fail the check, anything else is a
// command error.
func reportLoadError(f *OutputFormatter, err error) error {
	if verrs, ok := compiler.AsValidationErrors(err); ok {
		return outputValidationErrors(f, verrs)
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		_ = f.Error(loadErr.Code, loadErr.Message, nil)
		code := ExitCommandError
		if loadErr.Pos.IsValid() {
			code = ExitFailure
		}
		return NewExitError(code, loadErr.Error())
	}
	_ = f.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitCommandError, "failed to load definitions", err)
}
