package store

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultCatalogue is the demo product set loaded into an empty database.
var DefaultCatalogue = []Product{
	{SKU: "100101", Name: "Chocolate Digestive Biscuits", BuyerCategory: "Biscuits", ProductCategory: "Chocolate Biscuits"},
	{SKU: "100102", Name: "Dark Chocolate Bar 70%", BuyerCategory: "Confectionery", ProductCategory: "Chocolate Bars"},
	{SKU: "100103", Name: "Milk Chocolate Bar", BuyerCategory: "Confectionery", ProductCategory: "Chocolate Bars"},
	{SKU: "100104", Name: "Chocolate Hazelnut Spread", BuyerCategory: "Spreads", ProductCategory: "Sweet Spreads"},
	{SKU: "100105", Name: "Hot Chocolate Powder", BuyerCategory: "Hot Drinks", ProductCategory: "Chocolate Drinks"},
	{SKU: "100106", Name: "Chocolate Chip Cookies", BuyerCategory: "Biscuits", ProductCategory: "Cookies"},
	{SKU: "100107", Name: "White Chocolate Buttons", BuyerCategory: "Confectionery", ProductCategory: "Chocolate Bags"},
	{SKU: "100108", Name: "Chocolate Fudge Cake", BuyerCategory: "NOT IN USE", ProductCategory: "Cakes"},
	{SKU: "200201", Name: "English Breakfast Tea 80 Bags", BuyerCategory: "Hot Drinks", ProductCategory: "Black Tea"},
	{SKU: "200202", Name: "Green Tea with Lemon", BuyerCategory: "Hot Drinks", ProductCategory: "Green Tea"},
	{SKU: "200203", Name: "Earl Grey Tea 50 Bags", BuyerCategory: "Hot Drinks", ProductCategory: "Black Tea"},
	{SKU: "200204", Name: "Peppermint Tea", BuyerCategory: "Hot Drinks", ProductCategory: "Herbal Tea"},
	{SKU: "200205", Name: "Iced Tea Peach", BuyerCategory: "Soft Drinks", ProductCategory: "Iced Tea"},
	{SKU: "300301", Name: "Instant Coffee Granules", BuyerCategory: "Hot Drinks", ProductCategory: "Instant Coffee"},
	{SKU: "300302", Name: "Ground Coffee Medium Roast", BuyerCategory: "Hot Drinks", ProductCategory: "Ground Coffee"},
	{SKU: "300303", Name: "Coffee Pods Espresso", BuyerCategory: "Hot Drinks", ProductCategory: "Coffee Pods"},
	{SKU: "300304", Name: "Iced Coffee Latte Can", BuyerCategory: "Soft Drinks", ProductCategory: "NOT IN USE"},
	{SKU: "400401", Name: "Semi Skimmed Milk 2L", BuyerCategory: "Dairy", ProductCategory: "Fresh Milk"},
	{SKU: "400402", Name: "Oat Milk Barista", BuyerCategory: "Dairy", ProductCategory: "Plant Milk"},
	{SKU: "400403", Name: "Mature Cheddar Cheese", BuyerCategory: "Dairy", ProductCategory: "Hard Cheese"},
	{SKU: "400404", Name: "Greek Style Yoghurt", BuyerCategory: "Dairy", ProductCategory: "Yoghurt"},
	{SKU: "500501", Name: "Salted Crisps Multipack", BuyerCategory: "Snacks", ProductCategory: "Crisps"},
	{SKU: "500502", Name: "Salt and Vinegar Crisps", BuyerCategory: "Snacks", ProductCategory: "Crisps"},
	{SKU: "500503", Name: "Salted Peanuts", BuyerCategory: "Snacks", ProductCategory: "Nuts"},
	{SKU: "500504", Name: "Sweet Popcorn", BuyerCategory: "Snacks", ProductCategory: "Popcorn"},
}

// SeedCatalogue loads products into repo when the catalogue is empty.
// It reports how many products were inserted.
func SeedCatalogue(ctx context.Context, repo Repository, products []Product) (int, error) {
	n, err := repo.CountProducts(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Debug("Catalogue already populated", "products", n)
		return 0, nil
	}
	if err := repo.UpsertProducts(ctx, products); err != nil {
		return 0, fmt.Errorf("seed catalogue: %w", err)
	}
	slog.Info("Catalogue seeded", "products", len(products))
	return len(products), nil
}
