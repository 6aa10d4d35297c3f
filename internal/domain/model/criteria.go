package model

type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// Field names understood by the criteria translator.
const (
	FieldID        = "id"
	FieldBrand     = "brand"
	FieldState     = "state"
	FieldIsDeleted = "isDeleted"
)

type (
	SortField struct {
		Field     string
		Direction SortDirection
	}

	Criteria struct {
		spec    Specification
		sorting []SortField
		page    uint
		size    uint
	}
)

func (c Criteria) Spec() Specification  { return c.spec }
func (c Criteria) Sorting() []SortField { return c.sorting }
func (c Criteria) Page() uint           { return c.page }
func (c Criteria) Size() uint           { return c.size }
func (c Criteria) Offset() uint         { return (c.page - 1) * c.size }
func (c Criteria) HasSpec() bool        { return c.spec != nil }
func (c Criteria) HasPagination() bool  { return c.page > 0 && c.size > 0 }

// FromDeviceFilter turns a list filter into criteria. Soft-deleted devices are
// always excluded and results are ordered by id.
func FromDeviceFilter(filter DeviceFilter) Criteria {
	builder := NewCriteria().Where(FieldIsDeleted, false)

	if brand, ok := filter.Brand.Get(); ok && brand != "" {
		builder.Where(FieldBrand, brand)
	}

	if state, ok := filter.State.Get(); ok {
		builder.Where(FieldState, int(state))
	}

	return builder.
		OrderBy(FieldID).
		Paginate(filter.Page, filter.Size).
		Build()
}

type CriteriaBuilder struct {
	specs   []Specification
	sorting []SortField
	page    uint
	size    uint
}

func NewCriteria() *CriteriaBuilder {
	return &CriteriaBuilder{
		specs: make([]Specification, 0),
		page:  DefaultPage,
		size:  DefaultPageSize,
	}
}

func (b *CriteriaBuilder) Where(field string, value any) *CriteriaBuilder {
	b.specs = append(b.specs, Eq(field, value))

	return b
}

// OrderBy appends a sort field; a leading "-" sorts descending.
func (b *CriteriaBuilder) OrderBy(field string) *CriteriaBuilder {
	direction := SortAsc

	if len(field) > 0 && field[0] == '-' {
		direction = SortDesc
		field = field[1:]
	}

	b.sorting = append(b.sorting, SortField{Field: field, Direction: direction})

	return b
}

func (b *CriteriaBuilder) Paginate(page, size uint) *CriteriaBuilder {
	if page > 0 {
		b.page = page
	}

	if size > 0 {
		b.size = size
	}

	return b
}

func (b *CriteriaBuilder) Build() Criteria {
	var root Specification

	switch len(b.specs) {
	case 0:
	case 1:
		root = b.specs[0]
	default:
		root = Must(b.specs...)
	}

	return Criteria{
		spec:    root,
		sorting: b.sorting,
		page:    b.page,
		size:    b.size,
	}
}
