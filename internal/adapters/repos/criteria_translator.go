package repos

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/architeacher/devicely/internal/domain/model"
	"github.com/architeacher/devicely/pkg/logger"
)

const fallbackColumn = "id"

var columnMapping = map[string]string{
	model.FieldID:        "id",
	"name":               "name",
	model.FieldBrand:     "brand",
	model.FieldState:     "state",
	"createdAt":          "created_at",
	"updatedAt":          "updated_at",
	model.FieldIsDeleted: "is_deleted",
}

// CriteriaTranslator turns domain criteria into squirrel clauses.
type CriteriaTranslator struct {
	logger logger.Logger
}

func NewCriteriaTranslator(log logger.Logger) *CriteriaTranslator {
	return &CriteriaTranslator{logger: log}
}

func (t *CriteriaTranslator) ApplyToSelect(builder sq.SelectBuilder, criteria model.Criteria) sq.SelectBuilder {
	builder = t.ApplyConditionsOnly(builder, criteria)
	builder = t.applySorting(builder, criteria)

	return t.applyPagination(builder, criteria)
}

func (t *CriteriaTranslator) ApplyConditionsOnly(builder sq.SelectBuilder, criteria model.Criteria) sq.SelectBuilder {
	if criteria.HasSpec() {
		builder = builder.Where(t.translateSpec(criteria.Spec()))
	}

	return builder
}

func (t *CriteriaTranslator) translateSpec(spec model.Specification) sq.Sqlizer {
	switch spec.Operator() {
	case model.SpecOpEq:
		return sq.Eq{t.col(spec.Field()): spec.Value()}

	case model.SpecOpMust:
		conditions := make(sq.And, 0, len(spec.Children()))
		for _, child := range spec.Children() {
			conditions = append(conditions, t.translateSpec(child))
		}

		return conditions
	}

	return sq.Expr("TRUE")
}

func (t *CriteriaTranslator) col(field string) string {
	if col, ok := columnMapping[field]; ok {
		return col
	}

	t.logger.Warn().
		Str("field", field).
		Str("fallback", fallbackColumn).
		Msg("unknown criteria field requested, falling back to default")

	return fallbackColumn
}

func (t *CriteriaTranslator) applySorting(builder sq.SelectBuilder, c model.Criteria) sq.SelectBuilder {
	if len(c.Sorting()) == 0 {
		return builder.OrderBy(fallbackColumn + " ASC")
	}

	for _, s := range c.Sorting() {
		builder = builder.OrderBy(fmt.Sprintf("%s %s", t.col(s.Field), s.Direction))
	}

	return builder
}

func (t *CriteriaTranslator) applyPagination(builder sq.SelectBuilder, c model.Criteria) sq.SelectBuilder {
	if !c.HasPagination() {
		return builder
	}

	return builder.Limit(uint64(c.Size())).Offset(uint64(c.Offset()))
}
