// Package taskfile reads planning tasks written by hand.
//
// A task file names its variables and values and refers to facts as
// variable: value pairs:
//
//	variables:
//	  - name: robot
//	    values: [A, B]
//	operators:
//	  - name: move A B
//	    pre: {robot: A}
//	    eff: {robot: B}
//	mutex:
//	  - [ball1=G, ball2=G]
//	init: {robot: A}
//	goal: {robot: B}
//
// YAML, JSON and TOML are accepted. Operators without a cost cost 1.
package taskfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/gitrdm/gokanplan/pkg/planner"
)

// Format is the encoding of a task file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported task file extension %q", filepath.Ext(path))
	}
}

// Document is the decoded form of a task file.
type Document struct {
	Name      string            `yaml:"name" toml:"name"`
	Variables []VariableSpec    `yaml:"variables" toml:"variables"`
	Operators []OperatorSpec    `yaml:"operators" toml:"operators"`
	Axioms    []OperatorSpec    `yaml:"axioms" toml:"axioms"`
	Mutex     [][]string        `yaml:"mutex" toml:"mutex"`
	Init      map[string]string `yaml:"init" toml:"init"`
	Goal      map[string]string `yaml:"goal" toml:"goal"`
}

// VariableSpec declares one variable.
type VariableSpec struct {
	Name   string   `yaml:"name" toml:"name"`
	Values []string `yaml:"values" toml:"values"`
}

// OperatorSpec declares an operator or an axiom.
type OperatorSpec struct {
	Name string            `yaml:"name" toml:"name"`
	Cost *int              `yaml:"cost" toml:"cost"`
	Pre  map[string]string `yaml:"pre" toml:"pre"`
	Eff  map[string]string `yaml:"eff" toml:"eff"`
	When []ConditionalSpec `yaml:"when" toml:"when"`
}

// ConditionalSpec is a conditional effect: Set applies when If holds.
type ConditionalSpec struct {
	If  map[string]string `yaml:"if" toml:"if"`
	Set map[string]string `yaml:"set" toml:"set"`
}

// Load reads and builds the task file at path.
func Load(path string) (*planner.ExplicitTask, *Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read task file: %w", err)
	}
	doc, err := Parse(data, format)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	task, err := doc.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return task, doc, nil
}

// Parse decodes data. Unknown keys are errors.
func Parse(data []byte, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatYAML, FormatJSON:
		// JSON is a subset of YAML
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", format, err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &doc)
		if err != nil {
			return nil, fmt.Errorf("failed to decode toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown toml key %q", undecoded[0].String())
		}
	default:
		return nil, fmt.Errorf("unknown task file format %q", format)
	}
	return &doc, nil
}

// Build resolves names and validates the task.
func (d *Document) Build() (*planner.ExplicitTask, error) {
	r, vars, err := newResolver(d.Variables)
	if err != nil {
		return nil, err
	}

	ops, err := r.operators(d.Operators, "operator")
	if err != nil {
		return nil, err
	}
	axioms, err := r.operators(d.Axioms, "axiom")
	if err != nil {
		return nil, err
	}

	var groups [][]planner.Fact
	for gi, group := range d.Mutex {
		facts := make([]planner.Fact, 0, len(group))
		for _, s := range group {
			name, value, ok := strings.Cut(s, "=")
			if !ok {
				return nil, fmt.Errorf("mutex group %d: %q is not var=value", gi, s)
			}
			f, err := r.fact(strings.TrimSpace(name), strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("mutex group %d: %w", gi, err)
			}
			facts = append(facts, f)
		}
		groups = append(groups, facts)
	}

	initFacts, err := r.facts(d.Init)
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	if len(initFacts) != len(vars) {
		for _, v := range vars {
			if _, ok := d.Init[v.Name]; !ok {
				return nil, fmt.Errorf("init: variable %q has no value", v.Name)
			}
		}
	}
	initial := make([]int, len(vars))
	for _, f := range initFacts {
		initial[f.Var] = f.Value
	}

	goal, err := r.facts(d.Goal)
	if err != nil {
		return nil, fmt.Errorf("goal: %w", err)
	}

	task, err := planner.NewExplicitTask(vars, ops, groups, initial, goal)
	if err != nil {
		return nil, err
	}
	task.Axioms = axioms
	return task, nil
}

type resolver struct {
	vars   map[string]int
	values []map[string]int
}

func newResolver(specs []VariableSpec) (*resolver, []planner.Variable, error) {
	r := &resolver{vars: make(map[string]int, len(specs))}
	vars := make([]planner.Variable, len(specs))
	for i, spec := range specs {
		if spec.Name == "" {
			return nil, nil, fmt.Errorf("variable %d has no name", i)
		}
		if _, dup := r.vars[spec.Name]; dup {
			return nil, nil, fmt.Errorf("duplicate variable %q", spec.Name)
		}
		if len(spec.Values) == 0 {
			return nil, nil, fmt.Errorf("variable %q has an empty domain", spec.Name)
		}
		r.vars[spec.Name] = i
		values := make(map[string]int, len(spec.Values))
		for j, val := range spec.Values {
			if _, dup := values[val]; dup {
				return nil, nil, fmt.Errorf("variable %q: duplicate value %q", spec.Name, val)
			}
			values[val] = j
		}
		r.values = append(r.values, values)
		vars[i] = planner.Variable{Name: spec.Name, Values: append([]string(nil), spec.Values...)}
	}
	return r, vars, nil
}

func (r *resolver) fact(name, value string) (planner.Fact, error) {
	v, ok := r.vars[name]
	if !ok {
		return planner.Fact{}, fmt.Errorf("unknown variable %q", name)
	}
	val, ok := r.values[v][value]
	if !ok {
		return planner.Fact{}, fmt.Errorf("variable %q has no value %q", name, value)
	}
	return planner.Fact{Var: v, Value: val}, nil
}

// facts resolves a name map in variable order.
func (r *resolver) facts(m map[string]string) ([]planner.Fact, error) {
	facts := make([]planner.Fact, 0, len(m))
	for name, value := range m {
		f, err := r.fact(name, value)
		if err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	sort.Slice(facts, func(i, j int) bool { return facts[i].Less(facts[j]) })
	return facts, nil
}

func (r *resolver) operators(specs []OperatorSpec, kind string) ([]planner.Operator, error) {
	ops := make([]planner.Operator, 0, len(specs))
	for i, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("%s %d has no name", kind, i)
		}
		op := planner.Operator{Name: spec.Name, Cost: 1}
		if spec.Cost != nil {
			op.Cost = *spec.Cost
		}

		var err error
		if op.Preconditions, err = r.facts(spec.Pre); err != nil {
			return nil, fmt.Errorf("%s %q pre: %w", kind, spec.Name, err)
		}
		effs, err := r.facts(spec.Eff)
		if err != nil {
			return nil, fmt.Errorf("%s %q eff: %w", kind, spec.Name, err)
		}
		for _, f := range effs {
			op.Effects = append(op.Effects, planner.Effect{Fact: f})
		}
		for _, cond := range spec.When {
			conds, err := r.facts(cond.If)
			if err != nil {
				return nil, fmt.Errorf("%s %q when: %w", kind, spec.Name, err)
			}
			sets, err := r.facts(cond.Set)
			if err != nil {
				return nil, fmt.Errorf("%s %q when: %w", kind, spec.Name, err)
			}
			for _, f := range sets {
				op.Effects = append(op.Effects, planner.Effect{Fact: f, Conditions: conds})
			}
		}
		if len(op.Effects) == 0 {
			return nil, fmt.Errorf("%s %q has no effects", kind, spec.Name)
		}
		ops = append(ops, op)
	}
	return ops, nil
}
