package shopify

import (
	"context"
	"fmt"
	"strconv"

	"shelflife-service/internal/clients"
)

const productsQuery = `
query listProducts($first: Int!, $after: String) {
  products(first: $first, after: $after) {
    edges {
      node {
        id
        title
        featuredImage { id }
        variants(first: 100) {
          edges {
            node {
              id
              title
              sku
              price
              compareAtPrice
              inventoryQuantity
              inventoryItem {
                unitCost {
                  amount
                  currencyCode
                }
              }
            }
          }
        }
      }
    }
    pageInfo {
      hasNextPage
      endCursor
    }
  }
}`

type productsResponse struct {
	Products struct {
		Edges []struct {
			Node struct {
				ID            string `json:"id"`
				Title         string `json:"title"`
				FeaturedImage *struct {
					ID string `json:"id"`
				} `json:"featuredImage"`
				Variants struct {
					Edges []struct {
						Node struct {
							ID                string  `json:"id"`
							Title             string  `json:"title"`
							SKU               string  `json:"sku"`
							Price             string  `json:"price"`
							CompareAtPrice    *string `json:"compareAtPrice"`
							InventoryQuantity int     `json:"inventoryQuantity"`
							InventoryItem     *struct {
								UnitCost *struct {
									Amount       string `json:"amount"`
									CurrencyCode string `json:"currencyCode"`
								} `json:"unitCost"`
							} `json:"inventoryItem"`
						} `json:"node"`
					} `json:"edges"`
				} `json:"variants"`
			} `json:"node"`
		} `json:"edges"`
		PageInfo struct {
			HasNextPage bool   `json:"hasNextPage"`
			EndCursor   string `json:"endCursor"`
		} `json:"pageInfo"`
	} `json:"products"`
}

// GetProducts fetches one page of the product catalog
func (c *Client) GetProducts(ctx context.Context, shop, cursor string, pageSize int) (*clients.ProductsPage, error) {
	if pageSize <= 0 {
		pageSize = 100
	}

	variables := map[string]interface{}{"first": pageSize}
	if cursor != "" {
		variables["after"] = cursor
	}

	var resp productsResponse
	if err := c.execute(ctx, shop, productsQuery, variables, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	page := &clients.ProductsPage{
		Products:    make([]clients.CatalogProduct, 0, len(resp.Products.Edges)),
		HasNextPage: resp.Products.PageInfo.HasNextPage,
		EndCursor:   resp.Products.PageInfo.EndCursor,
	}

	for _, edge := range resp.Products.Edges {
		product := clients.CatalogProduct{
			ID:       edge.Node.ID,
			Title:    edge.Node.Title,
			HasImage: edge.Node.FeaturedImage != nil,
			Variants: make([]clients.CatalogVariant, 0, len(edge.Node.Variants.Edges)),
		}

		for _, vedge := range edge.Node.Variants.Edges {
			node := vedge.Node
			variant := clients.CatalogVariant{
				ID:                node.ID,
				Title:             node.Title,
				SKU:               node.SKU,
				InventoryQuantity: node.InventoryQuantity,
			}

			price, err := strconv.ParseFloat(node.Price, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid price %q for variant %s: %w", node.Price, node.ID, err)
			}
			variant.Price = price

			if node.CompareAtPrice != nil && *node.CompareAtPrice != "" {
				compareAt, err := strconv.ParseFloat(*node.CompareAtPrice, 64)
				if err == nil {
					variant.CompareAtPrice = &compareAt
				}
			}

			if node.InventoryItem != nil && node.InventoryItem.UnitCost != nil {
				cost, err := strconv.ParseFloat(node.InventoryItem.UnitCost.Amount, 64)
				if err == nil {
					variant.UnitCost = &cost
					variant.CurrencyCode = node.InventoryItem.UnitCost.CurrencyCode
				}
			}

			product.Variants = append(product.Variants, variant)
		}

		page.Products = append(page.Products, product)
	}

	return page, nil
}
