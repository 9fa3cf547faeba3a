package panelcfg

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSource string

// LoadMode controls how errors are handled during configuration loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Error codes for configuration loading and validation.
const (
	ErrCodeNotFound       = "E300" // Configuration path not found
	ErrCodeDuplicateAssay = "E301" // Two panels share an assay name
	ErrCodeUnknownGroup   = "E302" // Group outside the policy enumeration
	ErrCodeRNAWholeGenome = "E303" // RNA panel marked whole-genome
	ErrCodeLoadFailed     = "E304" // CUE load or build failed
	ErrCodeSchema         = "E305" // Schema violation
)

// LoadError is a configuration error with source position when available.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadResult carries a loaded configuration plus lint warnings. The
// configuration is usable only when the accompanying error list is empty.
type LoadResult struct {
	Config    *PanelConfig
	Warnings  []string
	FileCount int
}

// LoadDir loads panel configuration from every CUE file in a directory.
func LoadDir(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("configuration directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing configuration directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := findCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, cueErrorList(ErrCodeLoadFailed, inst.Err, mode)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, cueErrorList(ErrCodeLoadFailed, err, mode)
	}

	return buildResult(ctx, value, len(files), mode)
}

// LoadBytes loads panel configuration from one in-memory CUE source. The
// filename is used only for error positions.
func LoadBytes(filename string, src []byte, mode LoadMode) (*LoadResult, []error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(src, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, cueErrorList(ErrCodeLoadFailed, err, mode)
	}
	return buildResult(ctx, value, 1, mode)
}

func buildResult(ctx *cue.Context, value cue.Value, fileCount int, mode LoadMode) (*LoadResult, []error) {
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeSchema, Message: fmt.Sprintf("embedded schema: %v", err)}}
	}

	unified := value.Unify(schema)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueErrorList(ErrCodeSchema, err, mode)
	}

	cfg, errs := parseConfig(unified, mode)
	if len(errs) > 0 && mode == LoadModeFailFast {
		return nil, errs[:1]
	}

	for _, err := range Validate(cfg) {
		errs = append(errs, err)
		if mode == LoadModeFailFast {
			return nil, errs[:1]
		}
	}

	result := &LoadResult{Config: cfg, Warnings: Lint(cfg), FileCount: fileCount}
	return result, errs
}

func parseConfig(v cue.Value, mode LoadMode) (*PanelConfig, []error) {
	cfg := &PanelConfig{}
	var errs []error

	panelsVal := v.LookupPath(cue.ParsePath("panels"))
	if !panelsVal.Exists() {
		return cfg, nil
	}

	iter, err := panelsVal.List()
	if err != nil {
		return cfg, cueErrorList(ErrCodeSchema, err, mode)
	}
	for iter.Next() {
		panel, perr := parsePanel(iter.Value())
		if perr != nil {
			errs = append(errs, perr)
			if mode == LoadModeFailFast {
				return cfg, errs
			}
			continue
		}
		cfg.Panels = append(cfg.Panels, panel)
	}
	return cfg, errs
}

func parsePanel(v cue.Value) (Panel, error) {
	p := Panel{}

	var err error
	if p.Assay, err = requiredString(v, "assay"); err != nil {
		return p, err
	}
	if p.Group, err = requiredString(v, "group"); err != nil {
		return p, err
	}
	if p.Type, err = requiredString(v, "type"); err != nil {
		return p, err
	}

	wgVal := v.LookupPath(cue.ParsePath("wholeGenome"))
	if wgVal.Exists() {
		wg, err := wgVal.Bool()
		if err != nil {
			return p, schemaError(wgVal, "wholeGenome must be bool: %v", err)
		}
		p.WholeGenome = wg
	}

	if p.Genes, err = stringList(v, "genes"); err != nil {
		return p, err
	}
	if p.FusionLists, err = stringList(v, "fusionLists"); err != nil {
		return p, err
	}

	descVal := v.LookupPath(cue.ParsePath("description"))
	if descVal.Exists() {
		desc, err := descVal.String()
		if err != nil {
			return p, schemaError(descVal, "description must be string: %v", err)
		}
		p.Description = desc
	}

	return p, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fieldVal := v.LookupPath(cue.ParsePath(field))
	if !fieldVal.Exists() {
		return "", schemaError(v, "%s is required", field)
	}
	s, err := fieldVal.String()
	if err != nil {
		return "", schemaError(fieldVal, "%s must be string: %v", field, err)
	}
	return s, nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	fieldVal := v.LookupPath(cue.ParsePath(field))
	if !fieldVal.Exists() {
		return nil, nil
	}
	iter, err := fieldVal.List()
	if err != nil {
		return nil, schemaError(fieldVal, "%s must be a list of strings: %v", field, err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, schemaError(iter.Value(), "%s entries must be strings: %v", field, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func schemaError(v cue.Value, format string, args ...any) error {
	return &LoadError{
		Code:    ErrCodeSchema,
		Message: fmt.Sprintf(format, args...),
		Pos:     v.Pos(),
	}
}

// cueErrorList converts a CUE error (which may hold several underlying
// errors) to LoadErrors with positions. Fail-fast mode keeps the first.
func cueErrorList(code string, err error, mode LoadMode) []error {
	var out []error
	for _, e := range cueerrors.Errors(err) {
		le := &LoadError{Code: code, Message: e.Error()}
		if positions := cueerrors.Positions(e); len(positions) > 0 {
			le.Pos = positions[0]
		}
		out = append(out, le)
		if mode == LoadModeFailFast {
			return out
		}
	}
	if len(out) == 0 {
		out = append(out, &LoadError{Code: code, Message: err.Error()})
	}
	return out
}

// findCUEFiles walks the directory and returns all .cue file paths.
func findCUEFiles(dir string) ([]string, error) {
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
	return files, err
}
