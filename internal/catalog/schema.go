package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaCUE string

// validator checks YAML documents against the embedded schema.
type validator struct {
	ctx      *cue.Context
	document cue.Value
	events   cue.Value
}

func newValidator() (*validator, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}
	return &validator{
		ctx:      ctx,
		document: schema.LookupPath(cue.ParsePath("#Document")),
		events:   schema.LookupPath(cue.ParsePath("#Events")),
	}, nil
}

// check unifies the YAML in data with def and returns one ValidationError
// per schema violation.
func (v *validator) check(def cue.Value, file string, data []byte) ValidationErrors {
	f, err := cueyaml.Extract(file, data)
	if err != nil {
		return ValidationErrors{{File: file, Message: fmt.Sprintf("parse: %v", err)}}
	}
	doc := v.ctx.BuildFile(f)
	if err := doc.Err(); err != nil {
		return ValidationErrors{{File: file, Message: err.Error()}}
	}

	unified := def.Unify(doc)
	err = unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var errs ValidationErrors
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		errs = append(errs, &ValidationError{
			File:    file,
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		})
	}
	return errs
}
