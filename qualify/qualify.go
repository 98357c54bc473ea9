// Package qualify provides concrete Qualifier implementations: a plain
// predicate and a struct-tag validator.
package qualify

import (
	"context"
	"errors"
	"fmt"

	"github.com/fab2s/yaetl"
	"github.com/go-playground/validator/v10"
)

// Predicate is a Qualifier built from a boolean function: true accepts the
// record unchanged, false drops it (continue, confined to the carrier
// flow), matching the qualifier convention of §4.2 of the specification.
type Predicate struct {
	id   string
	test func(yaetl.Record) bool
}

func NewPredicate(id string, test func(yaetl.Record) bool) *Predicate {
	return &Predicate{id: id, test: test}
}

func (p *Predicate) ID() string { return p.id }

func (p *Predicate) Qualify(_ context.Context, rec yaetl.Record) (yaetl.Result, error) {
	if p.test(rec) {
		return yaetl.ValueResult(rec), nil
	}
	return yaetl.DirectiveResult(yaetl.Continue()), nil
}

// Mapper converts a Record into a struct instance carrying `validate`
// struct tags, the shape go-playground/validator needs to run its checks.
type Mapper func(yaetl.Record) (any, error)

// Validate is a Qualifier backed by go-playground/validator: Mapper builds
// a tagged struct from the record, which is then run through
// validator.Struct. A validation failure drops the record (continue) unless
// Strict is set, in which case it is raised as a runtime node error.
//
// Grounded on the rosetta API's request validator: a single *validator.Validate
// instance built once and reused, wrapped behind a small domain-specific type.
type Validate struct {
	id       string
	validate *validator.Validate
	mapper   Mapper
	strict   bool
}

// NewValidate builds a Validate qualifier. strict controls whether a failed
// validation is a dropped record (false) or a runtime node error (true).
func NewValidate(id string, mapper Mapper, strict bool) *Validate {
	return &Validate{id: id, validate: validator.New(), mapper: mapper, strict: strict}
}

func (v *Validate) ID() string { return v.id }

func (v *Validate) Qualify(_ context.Context, rec yaetl.Record) (yaetl.Result, error) {
	target, err := v.mapper(rec)
	if err != nil {
		return yaetl.Result{}, fmt.Errorf("qualify: %s: %w", v.id, err)
	}

	err = v.validate.Struct(target)
	if err == nil {
		return yaetl.ValueResult(rec), nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return yaetl.Result{}, fmt.Errorf("qualify: %s: %w", v.id, err)
	}

	if v.strict {
		return yaetl.Result{}, fmt.Errorf("qualify: %s: validation failed: %w", v.id, err)
	}
	return yaetl.DirectiveResult(yaetl.Continue()), nil
}
