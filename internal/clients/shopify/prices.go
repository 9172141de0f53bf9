package shopify

import (
	"context"
	"fmt"
	"strconv"
)

const variantsBulkUpdateMutation = `
mutation updateVariantPrice($productId: ID!, $variants: [ProductVariantsBulkInput!]!) {
  productVariantsBulkUpdate(productId: $productId, variants: $variants) {
    productVariants {
      id
      price
      compareAtPrice
    }
    userErrors {
      field
      message
    }
  }
}`

type variantsBulkUpdateResponse struct {
	ProductVariantsBulkUpdate struct {
		ProductVariants []struct {
			ID string `json:"id"`
		} `json:"productVariants"`
		UserErrors []userError `json:"userErrors"`
	} `json:"productVariantsBulkUpdate"`
}

// UpdateVariantPrice sets a variant's price and compare-at price. A nil
// compareAt clears any existing compare-at price.
func (c *Client) UpdateVariantPrice(ctx context.Context, shop, productID, variantID string, price float64, compareAt *float64) error {
	variant := map[string]interface{}{
		"id":    variantID,
		"price": strconv.FormatFloat(price, 'f', 2, 64),
	}
	if compareAt != nil {
		variant["compareAtPrice"] = strconv.FormatFloat(*compareAt, 'f', 2, 64)
	} else {
		variant["compareAtPrice"] = nil
	}

	variables := map[string]interface{}{
		"productId": productID,
		"variants":  []interface{}{variant},
	}

	var resp variantsBulkUpdateResponse
	if err := c.execute(ctx, shop, variantsBulkUpdateMutation, variables, &resp); err != nil {
		return fmt.Errorf("failed to update variant %s: %w", variantID, err)
	}

	return userErrorsToError(resp.ProductVariantsBulkUpdate.UserErrors)
}
