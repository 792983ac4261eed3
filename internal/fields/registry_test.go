package fields

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/catalog-export/internal/domain"
	"github.com/rpattn/catalog-export/internal/policy"
)

func id(v int64) *int64 { return &v }

func fixture() *domain.Product {
	oldPrice := 12000.0
	return &domain.Product{
		ID: 1, SKU: "DR-1", Name: "Дрель", BasePrice: 9000, OldPrice: &oldPrice,
		Quantity: 11, Status: "active", IsNew: true, IsActive: true,
		BrandID: id(1), CategoryID: id(3),
		Brand:     &domain.Brand{ID: 1, Name: "Bosch"},
		Category:  &domain.Category{ID: 3, Name: "Дрели"},
		CreatedAt: time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
		Certificates: []domain.Certificate{
			{ID: 5, Name: "EAC"},
			{ID: 6, Name: "ISO 9001"},
		},
		Stocks: []domain.Stock{
			{Warehouse: domain.Warehouse{ID: 1, Name: "Москва", Region: "msk"}, Quantity: 4, Preorder: 1},
			{Warehouse: domain.Warehouse{ID: 2, Name: "Казань", Region: "kzn"}, Quantity: 7},
		},
		Barcodes:   []string{"4600000000017"},
		Attributes: map[int64]string{9: "750,5", 10: "нет", 11: "синий", 12: "abc"},
	}
}

func attributes() []domain.CategoryAttribute {
	return []domain.CategoryAttribute{
		{ID: 12, CategoryID: 3, Name: "Вес", Type: domain.FieldTypeNumeric},
		{ID: 9, CategoryID: 3, Name: " Мощность ", Type: domain.FieldTypeNumeric},
		{ID: 10, CategoryID: 3, Name: "Аккумулятор", Type: domain.FieldTypeBoolean},
		{ID: 11, CategoryID: 3, Name: "", Type: "color"},
	}
}

func TestRegistry_BuiltinsResolve(t *testing.T) {
	r := NewRegistry(nil, nil, nil)
	usd := domain.Currency{ID: 2, Code: "USD", Rate: 90}
	ec := domain.ExportContext{Currency: usd}
	p := fixture()

	assert.Equal(t, int64(1), r.Resolve(p, "id", ec))
	assert.Equal(t, "DR-1", r.Resolve(p, "sku", ec))
	assert.Equal(t, domain.Money{Base: 9000, Amount: 100, Currency: usd}, r.Resolve(p, "base_price", ec))
	assert.Equal(t, domain.Money{Base: 12000, Amount: 133.33, Currency: usd}, r.Resolve(p, "old_price", ec))
	assert.Equal(t, int64(1), r.Resolve(p, "brand", ec))
	assert.Equal(t, "Bosch", r.Resolve(p, "brand.name", ec))
	assert.Equal(t, "Дрели", r.Resolve(p, "category.name", ec))
	assert.Nil(t, r.Resolve(p, "model", ec))
	assert.Nil(t, r.Resolve(p, "model.name", ec))
	assert.Equal(t, []string{"5", "6"}, r.Resolve(p, "certificates", ec))
	assert.Equal(t, []string{"EAC", "ISO 9001"}, r.Resolve(p, "certificates.name", ec))
	assert.Equal(t, []string{"Москва", "Казань"}, r.Resolve(p, "warehouses.name", ec))
	assert.Equal(t, []string{"4600000000017"}, r.Resolve(p, "barcodes.barcode", ec))
	assert.Equal(t, time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC), r.Resolve(p, "created_at", ec))

	p.OldPrice = nil
	assert.Nil(t, r.Resolve(p, "old_price", ec))
	assert.Nil(t, r.Resolve(nil, "id", ec))
}

func TestRegistry_RelationIDs(t *testing.T) {
	r := NewRegistry(nil, nil, nil)
	p := fixture()

	brand, ok := r.Lookup("brand")
	require.True(t, ok)
	assert.Equal(t, []int64{1}, brand.IDs(p))

	model, _ := r.Lookup("model")
	assert.Empty(t, model.IDs(p))

	warehouses, _ := r.Lookup("warehouses")
	assert.Equal(t, []int64{1, 2}, warehouses.IDs(p))

	name, _ := r.Lookup("name")
	assert.Nil(t, name.IDs(p), "non-relation fields report no ids")
}

func TestRegistry_ContextFields(t *testing.T) {
	r := NewRegistry(nil, nil, nil)
	p := fixture()
	rub := domain.Currency{ID: 1, Code: "RUB", Rate: 1, IsBase: true}
	user := &domain.ClientUser{ID: 4, Region: "msk", DiscountPercent: 10, CategoryDiscounts: map[int64]float64{3: 20}}

	withClient := domain.ExportContext{Currency: rub, ClientUser: user}
	assert.Equal(t, domain.Money{Base: 7200, Amount: 7200, Currency: rub}, r.Resolve(p, "discounted_price", withClient))
	assert.Equal(t, 20.0, r.Resolve(p, "discount_percentage", withClient))
	assert.Equal(t, int64(4), r.Resolve(p, "user_stock_available", withClient))
	assert.Equal(t, int64(1), r.Resolve(p, "user_stock_preorder", withClient))
	assert.Equal(t, "msk", r.Resolve(p, "client_region", withClient))

	anonymous := domain.ExportContext{Currency: rub}
	for _, key := range []string{"discounted_price", "discount_percentage", "user_stock_available", "user_stock_preorder", "client_region"} {
		assert.Nil(t, r.Resolve(p, key, anonymous), key)
	}
}

type flatPricing struct{}

func (flatPricing) Quote(p *domain.Product, _ *domain.ClientUser) policy.Quote {
	return policy.Quote{Price: 1, DiscountPercent: 99}
}

func TestRegistry_CustomPolicies(t *testing.T) {
	r := NewRegistry(flatPricing{}, nil, nil)
	ec := domain.ExportContext{Currency: domain.Currency{Rate: 1, IsBase: true}, ClientUser: &domain.ClientUser{}}
	assert.Equal(t, 99.0, r.Resolve(fixture(), "discount_percentage", ec))
}

func TestRegistry_Attributes(t *testing.T) {
	r := NewRegistry(nil, nil, attributes())
	p := fixture()
	ec := domain.ExportContext{}

	assert.Equal(t, 750.5, r.Resolve(p, AttributeKey(9), ec), "comma decimal separator is accepted")
	assert.Equal(t, false, r.Resolve(p, AttributeKey(10), ec))
	assert.Equal(t, "синий", r.Resolve(p, AttributeKey(11), ec))
	assert.Nil(t, r.Resolve(p, AttributeKey(12), ec), "unparseable number resolves to nil")

	p.Attributes = nil
	assert.Nil(t, r.Resolve(p, AttributeKey(9), ec))

	spec, ok := r.Lookup("attribute.9")
	require.True(t, ok)
	assert.Equal(t, "Мощность", spec.Spec.Label)
	assert.Equal(t, domain.ModifierNone, spec.Spec.ModifierType)

	boolean, _ := r.Lookup("attribute.10")
	assert.Equal(t, domain.ModifierBoolean, boolean.Spec.ModifierType)

	unknownType, _ := r.Lookup("attribute.11")
	assert.Equal(t, domain.FieldTypeText, unknownType.Spec.Type)
	assert.Equal(t, "Атрибут 11", unknownType.Spec.Label)
}

func TestRegistry_SpecsOrder(t *testing.T) {
	r := NewRegistry(nil, nil, attributes())
	specs := r.Specs()
	require.NotEmpty(t, specs)
	assert.Equal(t, "id", specs[0].Key)

	var attributeKeys []string
	for _, s := range specs {
		if len(s.Key) > len(AttributePrefix) && s.Key[:len(AttributePrefix)] == AttributePrefix {
			attributeKeys = append(attributeKeys, s.Key)
		}
	}
	assert.Equal(t, []string{"attribute.9", "attribute.10", "attribute.11", "attribute.12"}, attributeKeys)
}

func TestRegistry_UnknownKey(t *testing.T) {
	r := NewRegistry(nil, nil, nil)
	_, ok := r.Lookup("legacy")
	assert.False(t, ok)

	f := r.Field("legacy")
	assert.Equal(t, domain.FieldSpec{Key: "legacy", Label: "legacy", Type: domain.FieldTypeText}, f.Spec)
	assert.Nil(t, r.Resolve(fixture(), "legacy", domain.ExportContext{}))
}

func TestOperators(t *testing.T) {
	assert.True(t, Supports(domain.FieldTypeText, domain.OpStartsWith))
	assert.False(t, Supports(domain.FieldTypeText, domain.OpBetween))
	assert.True(t, Supports(domain.FieldTypeDate, domain.OpBetween))
	assert.True(t, Supports(domain.FieldTypeSelect, domain.OpNotIn))
	assert.False(t, Supports(domain.FieldTypeBoolean, domain.OpIn))
	assert.Empty(t, Operators("geo"))
}
