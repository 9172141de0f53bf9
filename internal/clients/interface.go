package clients

import "context"

// CatalogVariant is one sellable variant of a catalog product
type CatalogVariant struct {
	ID                string
	Title             string
	SKU               string
	Price             float64
	CompareAtPrice    *float64
	InventoryQuantity int
	UnitCost          *float64
	CurrencyCode      string
}

// CatalogProduct is one product in the store catalog
type CatalogProduct struct {
	ID       string
	Title    string
	HasImage bool
	Variants []CatalogVariant
}

// ProductsPage is one page of a cursor-paginated catalog listing
type ProductsPage struct {
	Products    []CatalogProduct
	HasNextPage bool
	EndCursor   string
}

// CatalogClient abstracts the store catalog API
type CatalogClient interface {
	// GetProducts fetches one page of products. Pass an empty cursor for the
	// first page.
	GetProducts(ctx context.Context, shop, cursor string, pageSize int) (*ProductsPage, error)

	// UpdateVariantPrice sets a variant's price and compare-at price.
	// A nil compareAt clears any existing compare-at price.
	UpdateVariantPrice(ctx context.Context, shop, productID, variantID string, price float64, compareAt *float64) error
}
