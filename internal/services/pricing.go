package services

import (
	"fmt"
	"math"
	"time"
)

// DiscountBucket maps a remaining shelf-life window to the fraction of the
// original margin the price should retain
type DiscountBucket struct {
	MaxDaysLeft int     // inclusive upper bound on days until expiration
	MarginKeep  float64 // fraction of margin retained
	Label       string
}

// discountSchedule is ordered by MaxDaysLeft ascending. Items expiring
// further than the last bucket keep their price untouched.
var discountSchedule = []DiscountBucket{
	{MaxDaysLeft: 30, MarginKeep: 0.10, Label: "30_DAYS_LEFT"},
	{MaxDaysLeft: 60, MarginKeep: 0.35, Label: "60_DAYS_LEFT"},
	{MaxDaysLeft: 90, MarginKeep: 0.60, Label: "90_DAYS_LEFT"},
	{MaxDaysLeft: 180, MarginKeep: 0.80, Label: "180_DAYS_LEFT"},
}

// DaysUntil returns the number of whole days from now until the expiration
// date. Both instants are normalized to midnight UTC, so a batch expiring
// later today counts as zero days left. Expired batches yield negative values.
func DaysUntil(now, expiration time.Time) int {
	nowDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	expDay := time.Date(expiration.Year(), expiration.Month(), expiration.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(expDay.Sub(nowDay).Hours() / 24))
}

// BucketFor returns the discount bucket for the given days-left value, or nil
// when the expiration is too far out to discount. Already-expired items fall
// into the steepest bucket.
func BucketFor(daysLeft int) *DiscountBucket {
	for i := range discountSchedule {
		if daysLeft <= discountSchedule[i].MaxDaysLeft {
			return &discountSchedule[i]
		}
	}
	return nil
}

// ComputeDiscountedPrice computes the margin-retention price for a bucket.
// The retained margin is added to cost and the result rounded up to a whole
// currency unit, so the price never drops below cost.
func ComputeDiscountedPrice(price, cost float64, bucket *DiscountBucket) float64 {
	margin := price - cost
	return math.Ceil(cost + margin*bucket.MarginKeep)
}

// DiscountNotes renders the ledger notes line for an automatic discount
func DiscountNotes(bucket *DiscountBucket) string {
	percent := int(math.Round((1 - bucket.MarginKeep) * 100))
	return fmt.Sprintf("Automatic discount: %s, %d%% margin discount", bucket.Label, percent)
}
