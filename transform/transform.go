// Package transform provides a small set of associative-record
// Transformers operating on field names, for composing a Flow without
// hand-writing a yaetl.TransformerFunc for every common reshaping need.
package transform

import (
	"context"
	"fmt"

	"github.com/fab2s/yaetl"
)

// Rename copies each field named in mapping (old -> new) to its new name,
// removing the old one. Fields not present in mapping pass through
// unchanged.
type Rename struct {
	id      string
	mapping map[string]string
}

func NewRename(id string, mapping map[string]string) *Rename {
	return &Rename{id: id, mapping: mapping}
}

func (r *Rename) ID() string { return r.id }

func (r *Rename) Exec(_ context.Context, rec yaetl.Record) (yaetl.Result, error) {
	out := rec.Clone()
	for oldName, newName := range r.mapping {
		v, ok := out[oldName]
		if !ok {
			continue
		}
		delete(out, oldName)
		out[newName] = v
	}
	return yaetl.ValueResult(out), nil
}

// Default fills in a field with a static value if absent, leaving an
// existing value untouched.
type Default struct {
	id     string
	values yaetl.Record
}

func NewDefault(id string, values yaetl.Record) *Default {
	return &Default{id: id, values: values}
}

func (d *Default) ID() string { return d.id }

func (d *Default) Exec(_ context.Context, rec yaetl.Record) (yaetl.Result, error) {
	out := rec.Clone()
	for k, v := range d.values {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return yaetl.ValueResult(out), nil
}

// Pick keeps only the named fields, dropping everything else.
type Pick struct {
	id     string
	fields []string
}

func NewPick(id string, fields []string) *Pick {
	return &Pick{id: id, fields: fields}
}

func (p *Pick) ID() string { return p.id }

func (p *Pick) Exec(_ context.Context, rec yaetl.Record) (yaetl.Result, error) {
	out := make(yaetl.Record, len(p.fields))
	for _, f := range p.fields {
		if v, ok := rec[f]; ok {
			out[f] = v
		}
	}
	return yaetl.ValueResult(out), nil
}

// Combine builds a new field from one or more existing ones via fn,
// failing the record if any required source field is missing.
type Combine struct {
	id      string
	sources []string
	target  string
	fn      func(values []any) (any, error)
}

func NewCombine(id, target string, sources []string, fn func(values []any) (any, error)) *Combine {
	return &Combine{id: id, sources: sources, target: target, fn: fn}
}

func (c *Combine) ID() string { return c.id }

func (c *Combine) Exec(_ context.Context, rec yaetl.Record) (yaetl.Result, error) {
	values := make([]any, len(c.sources))
	for i, s := range c.sources {
		v, ok := rec[s]
		if !ok {
			return yaetl.Result{}, fmt.Errorf("transform: %s: missing source field %q", c.id, s)
		}
		values[i] = v
	}
	combined, err := c.fn(values)
	if err != nil {
		return yaetl.Result{}, err
	}
	out := rec.Clone()
	out[c.target] = combined
	return yaetl.ValueResult(out), nil
}
