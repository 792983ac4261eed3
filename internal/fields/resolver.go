package fields

import (
	"strconv"

	"github.com/rpattn/catalog-export/internal/domain"
	"github.com/rpattn/catalog-export/internal/policy"
)

func builtinFields(pricing policy.Pricing, stock policy.Stock) []Field {
	return []Field{
		{
			Spec:    spec("id", "ID", domain.FieldTypeNumeric, domain.ModifierNone),
			Resolve: func(p *domain.Product, _ domain.ExportContext) any { return p.ID },
		},
		{
			Spec:    spec("sku", "Артикул", domain.FieldTypeText, domain.ModifierNone),
			Resolve: func(p *domain.Product, _ domain.ExportContext) any { return p.SKU },
		},
		{
			Spec:    spec("name", "Название", domain.FieldTypeText, domain.ModifierNone),
			Resolve: func(p *domain.Product, _ domain.ExportContext) any { return p.Name },
		},
		{
			Spec:    spec("description", "Описание", domain.FieldTypeText, domain.ModifierNone),
			Resolve: func(p *domain.Product, _ domain.ExportContext) any { return p.Description },
		},
		{
			Spec: spec("base_price", "Цена", domain.FieldTypeNumeric, domain.ModifierPrice),
			Resolve: func(p *domain.Product, ec domain.ExportContext) any {
				return money(p.BasePrice, ec)
			},
		},
		{
			Spec: spec("old_price", "Старая цена", domain.FieldTypeNumeric, domain.ModifierPrice),
			Resolve: func(p *domain.Product, ec domain.ExportContext) any {
				if p.OldPrice == nil {
					return nil
				}
				return money(*p.OldPrice, ec)
			},
		},
		{
			Spec:    spec("quantity", "Остаток", domain.FieldTypeNumeric, domain.ModifierNone),
			Resolve: func(p *domain.Product, _ domain.ExportContext) any { return p.Quantity },
		},
		{
			Spec:    spec("status", "Статус", domain.FieldTypeSelect, domain.ModifierNone),
			Resolve: func(p *domain.Product, _ domain.ExportContext) any { return p.Status },
		},
		{
			Spec:    spec("is_new", "Новинка", domain.FieldTypeBoolean, domain.ModifierBoolean),
			Resolve: func(p *domain.Product, _ domain.ExportContext) any { return p.IsNew },
		},
		{
			Spec:    spec("is_active", "Активен", domain.FieldTypeBoolean, domain.ModifierBoolean),
			Resolve: func(p *domain.Product, _ domain.ExportContext) any { return p.IsActive },
		},
		{
			Spec:    spec("created_at", "Создан", domain.FieldTypeDate, domain.ModifierNone),
			Resolve: func(p *domain.Product, _ domain.ExportContext) any { return p.CreatedAt },
		},
		{
			Spec:    spec("updated_at", "Обновлён", domain.FieldTypeDate, domain.ModifierNone),
			Resolve: func(p *domain.Product, _ domain.ExportContext) any { return p.UpdatedAt },
		},
		{
			Spec:    spec("brand", "Бренд (ID)", domain.FieldTypeRelation, domain.ModifierNone),
			Resolve: func(p *domain.Product, _ domain.ExportContext) any { return optionalID(p.BrandID) },
			IDs:     func(p *domain.Product) []int64 { return idList(p.BrandID) },
		},
		{
			Spec: spec("brand.name", "Бренд", domain.FieldTypeText, domain.ModifierNone),
			Resolve: func(p *domain.Product, _ domain.ExportContext) any {
				if p.Brand == nil {
					return nil
				}
				return p.Brand.Name
			},
		},
		{
			Spec:    spec("category", "Категория (ID)", domain.FieldTypeRelation, domain.ModifierNone),
			Resolve: func(p *domain.Product, _ domain.ExportContext) any { return optionalID(p.CategoryID) },
			IDs:     func(p *domain.Product) []int64 { return idList(p.CategoryID) },
		},
		{
			Spec: spec("category.name", "Категория", domain.FieldTypeText, domain.ModifierNone),
			Resolve: func(p *domain.Product, _ domain.ExportContext) any {
				if p.Category == nil {
					return nil
				}
				return p.Category.Name
			},
		},
		{
			Spec:    spec("model", "Модель (ID)", domain.FieldTypeRelation, domain.ModifierNone),
			Resolve: func(p *domain.Product, _ domain.ExportContext) any { return optionalID(p.ModelID) },
			IDs:     func(p *domain.Product) []int64 { return idList(p.ModelID) },
		},
		{
			Spec: spec("model.name", "Модель", domain.FieldTypeText, domain.ModifierNone),
			Resolve: func(p *domain.Product, _ domain.ExportContext) any {
				if p.Model == nil {
					return nil
				}
				return p.Model.Name
			},
		},
		{
			Spec: spec("certificates", "Сертификаты (ID)", domain.FieldTypeRelation, domain.ModifierMultiValue),
			Resolve: func(p *domain.Product, _ domain.ExportContext) any {
				return idStrings(p.CertificateIDs())
			},
			IDs: func(p *domain.Product) []int64 { return p.CertificateIDs() },
		},
		{
			Spec: spec("certificates.name", "Сертификаты", domain.FieldTypeText, domain.ModifierMultiValue),
			Resolve: func(p *domain.Product, _ domain.ExportContext) any {
				names := make([]string, 0, len(p.Certificates))
				for _, c := range p.Certificates {
					names = append(names, c.Name)
				}
				return names
			},
		},
		{
			Spec: spec("warehouses", "Склады (ID)", domain.FieldTypeRelation, domain.ModifierMultiValue),
			Resolve: func(p *domain.Product, _ domain.ExportContext) any {
				return idStrings(p.WarehouseIDs())
			},
			IDs: func(p *domain.Product) []int64 { return p.WarehouseIDs() },
		},
		{
			Spec: spec("warehouses.name", "Склады", domain.FieldTypeText, domain.ModifierMultiValue),
			Resolve: func(p *domain.Product, _ domain.ExportContext) any {
				names := make([]string, 0, len(p.Stocks))
				for _, s := range p.Stocks {
					names = append(names, s.Warehouse.Name)
				}
				return names
			},
		},
		{
			Spec: spec("barcodes.barcode", "Штрихкоды", domain.FieldTypeText, domain.ModifierMultiValue),
			Resolve: func(p *domain.Product, _ domain.ExportContext) any {
				return append([]string{}, p.Barcodes...)
			},
		},
		{
			Spec: spec("discounted_price", "Цена со скидкой", domain.FieldTypeNumeric, domain.ModifierPrice),
			Resolve: func(p *domain.Product, ec domain.ExportContext) any {
				if !ec.HasClient() {
					return nil
				}
				return money(pricing.Quote(p, ec.ClientUser).Price, ec)
			},
		},
		{
			Spec: spec("discount_percentage", "Скидка, %", domain.FieldTypeNumeric, domain.ModifierNone),
			Resolve: func(p *domain.Product, ec domain.ExportContext) any {
				if !ec.HasClient() {
					return nil
				}
				return pricing.Quote(p, ec.ClientUser).DiscountPercent
			},
		},
		{
			Spec: spec("user_stock_available", "Доступно клиенту", domain.FieldTypeNumeric, domain.ModifierNone),
			Resolve: func(p *domain.Product, ec domain.ExportContext) any {
				if !ec.HasClient() {
					return nil
				}
				return stock.Availability(p, ec.ClientUser).Available
			},
		},
		{
			Spec: spec("user_stock_preorder", "Под заказ", domain.FieldTypeNumeric, domain.ModifierNone),
			Resolve: func(p *domain.Product, ec domain.ExportContext) any {
				if !ec.HasClient() {
					return nil
				}
				return stock.Availability(p, ec.ClientUser).Preorder
			},
		},
		{
			Spec: spec("client_region", "Регион клиента", domain.FieldTypeText, domain.ModifierNone),
			Resolve: func(_ *domain.Product, ec domain.ExportContext) any {
				if !ec.HasClient() {
					return nil
				}
				return ec.ClientUser.Region
			},
		},
	}
}

func spec(key, label string, t domain.FieldType, m domain.ModifierType) domain.FieldSpec {
	return domain.FieldSpec{Key: key, Label: label, Type: t, ModifierType: m}
}

func money(base float64, ec domain.ExportContext) domain.Money {
	return domain.Money{
		Base:     base,
		Amount:   policy.Round2(ec.Currency.FromBase(base)),
		Currency: ec.Currency,
	}
}

func optionalID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func idList(id *int64) []int64 {
	if id == nil {
		return nil
	}
	return []int64{*id}
}

func idStrings(ids []int64) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, strconv.FormatInt(id, 10))
	}
	return out
}
