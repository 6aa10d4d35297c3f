package model

type SpecOperator string

const (
	SpecOpEq   SpecOperator = "eq"
	SpecOpMust SpecOperator = "must"
)

// Specification is a storage-agnostic predicate over device fields. Leaves
// compare a field with a value; composites combine children.
type Specification interface {
	Operator() SpecOperator
	Field() string
	Value() any
	Children() []Specification
}

type eqSpec struct {
	field string
	value any
}

func Eq(field string, value any) Specification {
	return eqSpec{field: field, value: value}
}

func (s eqSpec) Operator() SpecOperator    { return SpecOpEq }
func (s eqSpec) Field() string             { return s.field }
func (s eqSpec) Value() any                { return s.value }
func (s eqSpec) Children() []Specification { return nil }

type mustSpec struct {
	specs []Specification
}

func Must(specs ...Specification) Specification {
	return mustSpec{specs: specs}
}

func (s mustSpec) Operator() SpecOperator    { return SpecOpMust }
func (s mustSpec) Field() string             { return "" }
func (s mustSpec) Value() any                { return nil }
func (s mustSpec) Children() []Specification { return s.specs }
