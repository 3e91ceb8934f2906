// Package workflow holds the department registry: the fixed discharge pipeline,
// each department's ordered steps, and the table/column bindings behind them.
//
// Table and column names used by the repositories come only from a validated
// Registry, never from request input.
package workflow

import (
	"fmt"
	"regexp"
	"strings"

	"dtracker/apperrors"
)

// Department is one stage of the discharge pipeline.
type Department string

const (
	Nursing             Department = "NURSING"
	DischargeSummary    Department = "DISCHARGE_SUMMARY"
	DoctorAuthorization Department = "DOCTOR_AUTHORIZATION"
	Pharmacy            Department = "PHARMACY"
	Billing             Department = "BILLING"
	Insurance           Department = "INSURANCE"
)

// Pipeline is the hand-off order. A registry must chain its departments in exactly this order.
var Pipeline = []Department{Nursing, DischargeSummary, DoctorAuthorization, Pharmacy, Billing, Insurance}

// Source tells where a step's done predicate is read from.
type Source string

const (
	// SourceStep reads the step's flag column in the department step table.
	SourceStep Source = "step"
	// SourceBed reads a BED_DETAILS column (e.g. patient checkout STATUS).
	SourceBed Source = "bed"
	// SourceTicket reads TKT_STATUS of the next department's ticket.
	SourceTicket Source = "ticket"
)

// Step is a named unit of work inside a department.
type Step struct {
	Key        string `yaml:"key"`
	Source     Source `yaml:"source"`
	Column     string `yaml:"column"`
	TimeColumn string `yaml:"time_column"`
	UserColumn string `yaml:"user_column"`
	BedColumn  string `yaml:"bed_column"`
	DoneValues []int  `yaml:"done_values"`
	MarkValue  int    `yaml:"mark_value"`
	Terminal   bool   `yaml:"terminal"`
}

// IsDone applies the step's set-membership predicate to a raw column value.
func (s Step) IsDone(value int) bool {
	for _, v := range s.DoneValues {
		if v == value {
			return true
		}
	}
	return false
}

// Definition is one department's variant in the registry.
type Definition struct {
	Name      Department `yaml:"name"`
	Aliases   []string   `yaml:"aliases"`
	Table     string     `yaml:"table"`
	BedColumn string     `yaml:"bed_column"`
	Next      Department `yaml:"next"`
	Steps     []Step     `yaml:"steps"`
}

// HasNext reports whether completing this department opens another one.
func (d *Definition) HasNext() bool {
	return d.Next != ""
}

// Step returns the step with the given key and its position.
func (d *Definition) Step(key string) (Step, int, bool) {
	for i, s := range d.Steps {
		if s.Key == key {
			return s, i, true
		}
	}
	return Step{}, -1, false
}

// StepKeys lists step keys in declared order.
func (d *Definition) StepKeys() []string {
	keys := make([]string, len(d.Steps))
	for i, s := range d.Steps {
		keys[i] = s.Key
	}
	return keys
}

// Registry is the validated set of department definitions.
type Registry struct {
	defs    map[Department]*Definition
	aliases map[string]Department
}

var identifierPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// NewRegistry normalises and validates the given definitions.
func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{
		defs:    make(map[Department]*Definition, len(defs)),
		aliases: make(map[string]Department),
	}
	for i := range defs {
		def := defs[i]
		def.Steps = append([]Step(nil), def.Steps...)
		normalize(&def)
		if _, dup := r.defs[def.Name]; dup {
			return nil, fmt.Errorf("department %s defined twice", def.Name)
		}
		r.defs[def.Name] = &def
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	for name, def := range r.defs {
		r.aliases[aliasKey(string(name))] = name
		for _, a := range def.Aliases {
			r.aliases[aliasKey(a)] = name
		}
	}
	return r, nil
}

// MustDefault returns the built-in registry and panics if it is invalid.
func MustDefault() *Registry {
	r, err := NewRegistry(DefaultDefinitions())
	if err != nil {
		panic(fmt.Sprintf("workflow: invalid default registry: %v", err))
	}
	return r
}

// Lookup resolves a department name or alias (case-insensitive, ignoring spaces,
// dashes and underscores).
func (r *Registry) Lookup(name string) (*Definition, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, apperrors.NewValidationError("department is required")
	}
	dept, ok := r.aliases[aliasKey(trimmed)]
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown department %q", trimmed))
	}
	return r.defs[dept], nil
}

// Get returns the definition of a known department.
func (r *Registry) Get(dept Department) (*Definition, bool) {
	def, ok := r.defs[dept]
	return def, ok
}

// Definitions returns the definitions in pipeline order.
func (r *Registry) Definitions() []*Definition {
	out := make([]*Definition, 0, len(r.defs))
	for _, dept := range Pipeline {
		if def, ok := r.defs[dept]; ok {
			out = append(out, def)
		}
	}
	return out
}

func aliasKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}

func normalize(def *Definition) {
	def.Name = Department(strings.ToUpper(strings.TrimSpace(string(def.Name))))
	def.Next = Department(strings.ToUpper(strings.TrimSpace(string(def.Next))))
	if def.BedColumn == "" {
		def.BedColumn = string(def.Name)
	}
	for i := range def.Steps {
		s := &def.Steps[i]
		if s.Source == "" {
			s.Source = SourceStep
		}
		if s.Column == "" {
			s.Column = s.Key
		}
		if s.TimeColumn == "" {
			s.TimeColumn = s.Column + "_TIME"
		}
		if s.UserColumn == "" {
			s.UserColumn = s.Column + "_BY"
		}
		if len(s.DoneValues) == 0 {
			s.DoneValues = []int{1}
		}
		if s.MarkValue == 0 {
			s.MarkValue = s.DoneValues[0]
		}
	}
}

func (r *Registry) validate() error {
	if len(r.defs) != len(Pipeline) {
		return fmt.Errorf("registry must define %d departments, got %d", len(Pipeline), len(r.defs))
	}

	bedColumns := make(map[string]Department)
	tables := make(map[string]Department)
	for i, dept := range Pipeline {
		def, ok := r.defs[dept]
		if !ok {
			return fmt.Errorf("department %s missing from registry", dept)
		}

		var wantNext Department
		if i+1 < len(Pipeline) {
			wantNext = Pipeline[i+1]
		}
		if def.Next != wantNext {
			return fmt.Errorf("department %s must hand off to %q, got %q", dept, wantNext, def.Next)
		}

		for _, ident := range []string{def.Table, def.BedColumn} {
			if !identifierPattern.MatchString(ident) {
				return fmt.Errorf("department %s: invalid identifier %q", dept, ident)
			}
		}
		if other, dup := tables[def.Table]; dup {
			return fmt.Errorf("table %s used by both %s and %s", def.Table, other, dept)
		}
		tables[def.Table] = dept
		if other, dup := bedColumns[def.BedColumn]; dup {
			return fmt.Errorf("bed column %s used by both %s and %s", def.BedColumn, other, dept)
		}
		bedColumns[def.BedColumn] = dept

		if err := validateSteps(def); err != nil {
			return err
		}
	}

	for _, def := range r.defs {
		for _, s := range def.Steps {
			if s.Source != SourceBed {
				continue
			}
			if owner, taken := bedColumns[s.BedColumn]; taken {
				return fmt.Errorf("department %s step %s: bed column %s is the %s flag", def.Name, s.Key, s.BedColumn, owner)
			}
			if episodeColumns[s.BedColumn] {
				return fmt.Errorf("department %s step %s: bed column %s identifies the episode", def.Name, s.Key, s.BedColumn)
			}
		}
	}
	return nil
}

var episodeColumns = map[string]bool{"ROOMNO": true, "MRNO": true, "FTID": true}

func validateSteps(def *Definition) error {
	if len(def.Steps) == 0 {
		return fmt.Errorf("department %s has no steps", def.Name)
	}
	seen := make(map[string]bool)
	columns := make(map[string]bool)
	for i, s := range def.Steps {
		if !identifierPattern.MatchString(s.Key) {
			return fmt.Errorf("department %s: invalid step key %q", def.Name, s.Key)
		}
		if seen[s.Key] {
			return fmt.Errorf("department %s: duplicate step %s", def.Name, s.Key)
		}
		seen[s.Key] = true

		for _, col := range []string{s.Column, s.TimeColumn, s.UserColumn} {
			if !identifierPattern.MatchString(col) {
				return fmt.Errorf("department %s step %s: invalid column %q", def.Name, s.Key, col)
			}
			if columns[col] || col == "WORKFLOW_STATE" {
				return fmt.Errorf("department %s step %s: column %s already bound", def.Name, s.Key, col)
			}
			columns[col] = true
		}

		switch s.Source {
		case SourceStep:
		case SourceBed:
			if !identifierPattern.MatchString(s.BedColumn) {
				return fmt.Errorf("department %s step %s: bed source needs a valid bed_column", def.Name, s.Key)
			}
		case SourceTicket:
			if !def.HasNext() {
				return fmt.Errorf("department %s step %s: ticket source needs a next department", def.Name, s.Key)
			}
		default:
			return fmt.Errorf("department %s step %s: unknown source %q", def.Name, s.Key, s.Source)
		}

		last := i == len(def.Steps)-1
		if s.Terminal != last {
			return fmt.Errorf("department %s: exactly the last step must be terminal (step %s)", def.Name, s.Key)
		}
	}
	return nil
}
