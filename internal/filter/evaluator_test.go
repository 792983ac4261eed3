package filter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rpattn/catalog-export/internal/domain"
	"github.com/rpattn/catalog-export/internal/fields"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func int64Ptr(v int64) *int64 { return &v }

func float64Ptr(v float64) *float64 { return &v }

func testRegistry() *fields.Registry {
	return fields.NewRegistry(nil, nil, []domain.CategoryAttribute{
		{ID: 9, CategoryID: 3, Name: "Мощность", Type: domain.FieldTypeNumeric},
		{ID: 10, CategoryID: 3, Name: "Аккумулятор", Type: domain.FieldTypeBoolean},
	})
}

func products() []domain.Product {
	return []domain.Product{
		{
			ID: 1, Name: "Дрель ударная", BasePrice: 100, IsNew: true, Status: "active",
			BrandID: int64Ptr(1), CategoryID: int64Ptr(3),
			CreatedAt:    time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC),
			Certificates: []domain.Certificate{{ID: 5, Name: "EAC"}},
			Attributes:   map[int64]string{9: "750", 10: "да"},
		},
		{
			ID: 2, Name: "Пила", BasePrice: 50, IsNew: true, Status: "archived",
			OldPrice:  float64Ptr(70),
			CreatedAt: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			ID: 3, Name: "Шуруповёрт", BasePrice: 150, IsNew: false, Status: "active",
			BrandID:   int64Ptr(2),
			CreatedAt: time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC),
		},
	}
}

func matchingIDs(t *testing.T, root domain.FilterGroup) []int64 {
	t.Helper()
	pred, err := Compile(root, testRegistry(), domain.ExportContext{})
	require.NoError(t, err)
	var ids []int64
	for _, p := range products() {
		if pred(&p) {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func and(nodes ...domain.FilterNode) domain.FilterGroup {
	return domain.FilterGroup{Logic: domain.LogicAnd, Conditions: nodes}
}

func or(nodes ...domain.FilterNode) domain.FilterGroup {
	return domain.FilterGroup{Logic: domain.LogicOr, Conditions: nodes}
}

func cond(field string, op domain.Operator, value any) domain.FilterNode {
	return domain.ConditionNode(field, op, value)
}

func TestCompile_Conditions(t *testing.T) {
	tests := []struct {
		name string
		root domain.FilterGroup
		want []int64
	}{
		{"empty group matches all", domain.MatchAll(), []int64{1, 2, 3}},
		{"empty or group matches all", or(), []int64{1, 2, 3}},
		{"and", and(cond("is_new", "=", true), cond("base_price", ">=", 100)), []int64{1}},
		{"or", or(cond("base_price", "<", 60), cond("base_price", ">", 120)), []int64{2, 3}},
		{"between is inclusive", and(cond("base_price", "between", []any{50, 100})), []int64{1, 2}},
		{"numeric string value", and(cond("base_price", "=", "150")), []int64{3}},
		{"contains folds cyrillic case", and(cond("name", "contains", "ДРЕЛЬ")), []int64{1}},
		{"starts_with", and(cond("name", "starts_with", "пи")), []int64{2}},
		{"not_contains", and(cond("name", "not_contains", "ил")), []int64{1, 3}},
		{"text equals is exact after folding", and(cond("name", "=", "пила")), []int64{2}},
		{"relation in", and(cond("brand", "in", []any{1, 2})), []int64{1, 3}},
		{"relation not_in keeps products without relation", and(cond("brand", "not_in", []any{1})), []int64{2, 3}},
		{"multi relation in", and(cond("certificates", "in", []any{"5"})), []int64{1}},
		{"select in", and(cond("status", "in", []any{"ACTIVE"})), []int64{1, 3}},
		{"select not_in", and(cond("status", "not_in", []any{"active"})), []int64{2}},
		{"boolean from string", and(cond("is_new", "=", "false")), []int64{3}},
		{"date equals compares days", and(cond("created_at", "=", "2024-02-01")), []int64{1}},
		{"date greater at day granularity", and(cond("created_at", ">", "2024-02-01")), []int64{3}},
		{"date between days", and(cond("created_at", "between", []any{"2024-01-15", "01.02.2024"})), []int64{1, 2}},
		{"date with time is exact", and(cond("created_at", ">", "2024-02-01T09:00:00Z")), []int64{1, 3}},
		{"null value never satisfies comparison", and(cond("old_price", ">", 0)), []int64{2}},
		{"attribute numeric", and(cond("attribute.9", ">=", 500)), []int64{1}},
		{"attribute boolean", and(cond("attribute.10", "=", true)), []int64{1}},
		{"unknown field is ignored", and(cond("legacy_flag", "=", "x"), cond("is_new", "=", true)), []int64{1, 2}},
		{
			"nested groups",
			or(
				domain.GroupNode(domain.LogicAnd, cond("is_new", "=", true), cond("base_price", "<", 60)),
				domain.GroupNode(domain.LogicAnd, cond("brand", "in", []any{2})),
			),
			[]int64{2, 3},
		},
		{"operator is case insensitive", and(cond("name", "CONTAINS", "пила")), []int64{2}},
		{"logic is case insensitive", domain.FilterGroup{Logic: "OR", Conditions: []domain.FilterNode{cond("id", "=", 1), cond("id", "=", 3)}}, []int64{1, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchingIDs(t, tt.root))
		})
	}
}

func TestCompile_DeepNesting(t *testing.T) {
	root := and(cond("id", "=", 2))
	for i := 0; i < 64; i++ {
		logic := domain.LogicAnd
		if i%2 == 1 {
			logic = domain.LogicOr
		}
		inner := root
		root = domain.FilterGroup{Logic: logic, Conditions: []domain.FilterNode{{Group: &inner}}}
	}
	assert.Equal(t, []int64{2}, matchingIDs(t, root))
}

func TestCompile_UsesContextForPersonalisedFields(t *testing.T) {
	user := &domain.ClientUser{ID: 4, DiscountPercent: 50}
	pred, err := Compile(and(cond("discounted_price", "<=", 50)), testRegistry(), domain.ExportContext{ClientUser: user})
	require.NoError(t, err)

	var ids []int64
	for _, p := range products() {
		if pred(&p) {
			ids = append(ids, p.ID)
		}
	}
	assert.Equal(t, []int64{1, 2}, ids)
}

func TestCompile_PriceFiltersIgnoreContextCurrency(t *testing.T) {
	usd := domain.Currency{ID: 2, Code: "USD", Rate: 100}
	root := and(cond("base_price", ">=", 100))

	for _, ec := range []domain.ExportContext{{}, {Currency: usd}} {
		pred, err := Compile(root, testRegistry(), ec)
		require.NoError(t, err)

		var ids []int64
		for _, p := range products() {
			if pred(&p) {
				ids = append(ids, p.ID)
			}
		}
		assert.Equal(t, []int64{1, 3}, ids, ec.Currency.Code)
	}

	pred, err := Compile(and(cond("base_price", "between", []any{100, 100})), testRegistry(), domain.ExportContext{Currency: usd})
	require.NoError(t, err)
	first := products()[0]
	assert.True(t, pred(&first))
}

func TestCompile_CollectsEveryProblem(t *testing.T) {
	root := domain.FilterGroup{Logic: "xor", Conditions: []domain.FilterNode{
		cond("", "=", 1),
		cond("base_price", "contains", "1"),
		cond("base_price", "between", []any{1}),
		cond("base_price", ">", "abc"),
		cond("brand", "in", "1"),
		cond("brand", "in", []any{1, "x"}),
		cond("created_at", "=", "yesterday"),
		cond("is_new", "=", "maybe"),
		cond("name", "=", nil),
		{},
	}}
	err := Validate(root, testRegistry())

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	paths := make([]string, 0, len(verr.Problems))
	for _, p := range verr.Problems {
		paths = append(paths, p.Path)
	}
	assert.Equal(t, []string{"filters.logic"}, paths, "an invalid group logic stops descent")

	root.Logic = domain.LogicAnd
	err = Validate(root, testRegistry())
	require.True(t, errors.As(err, &verr))
	paths = paths[:0]
	for _, p := range verr.Problems {
		paths = append(paths, p.Path)
	}
	assert.Equal(t, []string{
		"filters.conditions[0].field",
		"filters.conditions[1].operator",
		"filters.conditions[2].value",
		"filters.conditions[3].value",
		"filters.conditions[4].value",
		"filters.conditions[5].value[1]",
		"filters.conditions[6].value",
		"filters.conditions[7].value",
		"filters.conditions[8].value",
		"filters.conditions[9]",
	}, paths)
}

func TestCompile_NestedProblemPaths(t *testing.T) {
	root := and(
		cond("is_new", "=", true),
		domain.GroupNode(domain.LogicOr,
			cond("name", "contains", "a"),
			domain.GroupNode(domain.LogicAnd, cond("base_price", "starts_with", "1")),
		),
	)
	err := Validate(root, testRegistry())
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Problems, 1)
	assert.Equal(t, "filters.conditions[1].conditions[1].conditions[0].operator", verr.Problems[0].Path)
}
