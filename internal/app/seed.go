package app

import (
	"context"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
)

var demoCatalog = []domain.Product{
	{Name: "Oak Dining Chair", Slug: "oak-dining-chair", Category: "chairs", Price: decimal.RequireFromString("45000.00"), Image: "products/oak-dining-chair.jpg", Featured: true},
	{Name: "Linen Sofa", Slug: "linen-sofa", Category: "sofas", Price: decimal.RequireFromString("320000.00"), Image: "products/linen-sofa.jpg", Featured: true},
	{Name: "Walnut Side Table", Slug: "walnut-side-table", Category: "tables", Price: decimal.RequireFromString("78500.50"), Image: "products/walnut-side-table.jpg"},
	{Name: "Brass Floor Lamp", Slug: "brass-floor-lamp", Category: "lighting", Price: decimal.RequireFromString("36000.00")},
}

// seedDemoCatalog заполняет пустой каталог, чтобы memory-режим можно было сразу попробовать.
func seedDemoCatalog(ctx context.Context, svc *catalog.Service, logger *log.Entry) error {
	existing, err := svc.List(ctx, 1)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, p := range demoCatalog {
		if _, err := svc.Create(ctx, p); err != nil {
			return err
		}
	}
	logger.WithField("products", len(demoCatalog)).Info("demo catalog seeded")
	return nil
}
