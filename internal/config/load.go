package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/streamsafe/gdsl/internal/verify"
)

//go:embed schema/profile.cue
var schemaSource string

// Load reads path as YAML, unifies it against the embedded CUE schema
// to fill in defaults and range-check fields, and returns a fully
// resolved Profile: CUE handles schema shape and ranges, a second Go
// pass (validate) handles the constraints CUE cannot conveniently
// express.
func Load(path string) (*Profile, []ValidationError) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, []ValidationError{{Field: "path", Message: err.Error(), Code: ErrCodeNotFound}}
		}
		return nil, []ValidationError{{Field: "path", Message: err.Error(), Code: ErrCodeNotFound}}
	}
	return LoadBytes(data)
}

// LoadBytes is Load without a filesystem dependency, for callers
// (tests, embedded profiles) that already hold the YAML document.
func LoadBytes(data []byte) (*Profile, []ValidationError) {
	var raw rawProfile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, []ValidationError{{Field: "yaml", Message: err.Error(), Code: ErrCodeYAML}}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource)
	if schema.Err() != nil {
		return nil, []ValidationError{{Field: "schema", Message: schema.Err().Error(), Code: ErrCodeSchema}}
	}

	doc := ctx.Encode(raw)
	unified := schema.LookupPath(cue.ParsePath("#Profile")).Unify(doc)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return nil, []ValidationError{{Field: "profile", Message: err.Error(), Code: ErrCodeSchema}}
	}

	var filled rawProfile
	if err := unified.Decode(&filled); err != nil {
		return nil, []ValidationError{{Field: "profile", Message: fmt.Sprintf("decoding unified value: %v", err), Code: ErrCodeSchema}}
	}

	level, ok := parseLevel(filled.Level)
	if !ok {
		level = verify.Domain
	}

	profile := &Profile{
		Level:                level,
		IgnoreUnknownOpcodes: filled.IgnoreUnknownOpcodes,
		ContinueOnError:      filled.ContinueOnError,
		ForceReverify:        filled.ForceReverify,
		DiagnosticCapacity:   filled.DiagnosticCapacity,
		PageSize:             filled.PageSize,
	}

	errs := profile.validate()
	if !ok {
		errs = append(errs, ValidationError{
			Field:   "level",
			Message: fmt.Sprintf("unrecognized level %q", filled.Level),
			Code:    ErrCodeLevel,
		})
	}
	return profile, errs
}
