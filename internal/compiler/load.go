package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/connectlab/internal/catalog"
	"github.com/roach88/connectlab/internal/geom"
	"github.com/roach88/connectlab/internal/ir"
)

// ValidationErrors is returned when one or more definitions fail Validate.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 1 {
		return v[0].Error()
	}
	return fmt.Sprintf("%s (and %d more)", v[0].Error(), len(v)-1)
}

// Descriptor validates def and builds the catalog descriptor for it.
func Descriptor(def *GateDef) (catalog.Descriptor, error) {
	if errs := Validate(def); len(errs) > 0 {
		return catalog.Descriptor{}, ValidationErrors(errs)
	}

	kind, _ := ir.ParseKind(def.Kind)
	slots := make([]catalog.SlotTemplate, len(def.Slots))
	for i, s := range def.Slots {
		dir, _ := ir.ParseDirection(s.Dir)
		slots[i] = catalog.SlotTemplate{Name: s.Name, Offset: geom.Pt(s.X, s.Y), Dir: dir}
	}
	var op catalog.Op
	if kind == ir.KindGate {
		op = catalog.TruthTable(def.Truth)
	}
	return catalog.NewDescriptor(catalog.Tag(def.Tag), kind, def.Width, def.Height, slots, op)
}

// CompileValue compiles every definition under the "gate" field of v, in
// source order. It stops at the first failing definition.
func CompileValue(v cue.Value) ([]catalog.Descriptor, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	gatesVal := v.LookupPath(cue.ParsePath("gate"))
	if !gatesVal.Exists() {
		return nil, &CompileError{Field: "gate", Message: "no gate definitions found", Pos: v.Pos()}
	}

	iter, err := gatesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var descs []catalog.Descriptor
	for iter.Next() {
		def, err := CompileGate(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("gate.%s: %w", iter.Label(), err)
		}
		d, err := Descriptor(def)
		if err != nil {
			return nil, fmt.Errorf("gate.%s: %w", iter.Label(), err)
		}
		descs = append(descs, d)
	}
	return descs, nil
}

// CompileString compiles CUE source text. filename is used in error
// positions only.
func CompileString(src, filename string) ([]catalog.Descriptor, error) {
	ctx := cuecontext.New()
	return CompileValue(ctx.CompileString(src, cue.Filename(filename)))
}

// BuildDir compiles every .cue file under dir and unifies them into one
// value, so definitions may be split across files. It returns the value
// and the files it read.
func BuildDir(dir string) (cue.Value, []string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return cue.Value{}, nil, fmt.Errorf("definitions directory: %w", err)
	}
	if !info.IsDir() {
		return cue.Value{}, nil, fmt.Errorf("not a directory: %s", dir)
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return cue.Value{}, nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(files) == 0 {
		return cue.Value{}, nil, fmt.Errorf("%w in %s", ErrNoFiles, dir)
	}

	ctx := cuecontext.New()
	value := ctx.CompileString("{}")
	for _, path := range files {
		src, err := os.ReadFile(path)
		if err != nil {
			return cue.Value{}, nil, fmt.Errorf("read %s: %w", path, err)
		}
		fv := ctx.CompileBytes(src, cue.Filename(path))
		if err := fv.Err(); err != nil {
			return cue.Value{}, nil, formatCUEError(err)
		}
		value = value.Unify(fv)
	}
	return value, files, nil
}

// ErrNoFiles is returned when a definitions directory holds no .cue file.
var ErrNoFiles = errors.New("no CUE files found")

// LoadDir compiles every .cue file under dir and registers the result into
// a clone of base. base is never modified; a nil base starts empty.
func LoadDir(dir string, base *catalog.Catalog) (*catalog.Catalog, error) {
	value, _, err := BuildDir(dir)
	if err != nil {
		return nil, err
	}

	descs, err := CompileValue(value)
	if err != nil {
		return nil, err
	}

	out := catalog.New()
	if base != nil {
		out = base.Clone()
	}
	for _, d := range descs {
		if err := out.Register(d); err != nil {
			return nil, ValidationErrors{{
				Field:   "gate." + string(d.Tag),
				Message: err.Error(),
				Code:    ErrTagConflict,
			}}
		}
	}
	return out, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths, sorted.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// AsValidationErrors extracts validation errors from err, if any.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return verrs, true
	}
	return nil, false
}
