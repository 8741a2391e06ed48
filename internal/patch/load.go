package patch

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

// Load reads a patch definition, dispatching on the file extension:
// .cue for CUE, .yaml/.yml for YAML.
func Load(path string) (*Def, error) {
	switch filepath.Ext(path) {
	case ".cue":
		return LoadCUE(path)
	case ".yaml", ".yml":
		return LoadYAML(path)
	default:
		return nil, &CompileError{Field: path, Message: "unknown patch format (want .cue, .yaml or .yml)"}
	}
}

// LoadYAML parses a YAML patch definition.
func LoadYAML(path string) (*Def, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("patch: read %s: %w", path, err)
	}
	var def Def
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("patch: parse %s: %w", path, err)
	}
	return &def, nil
}

// LoadCUE evaluates a CUE patch definition. The file's top-level value
// must decode into Def; CUE's own constraints run before decoding, so
// a patch schema embedded in the file is enforced for free.
func LoadCUE(path string) (*Def, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("patch: read %s: %w", path, err)
	}
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("patch: compile %s: %s", path, cueerrors.Details(err, nil))
	}
	var def Def
	if err := v.Decode(&def); err != nil {
		return nil, fmt.Errorf("patch: decode %s: %s", path, cueerrors.Details(err, nil))
	}
	return &def, nil
}
