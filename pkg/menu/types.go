// Package menu defines the domain model shared across the menuforge
// planning pipeline: dishes, planning requests, plan results, and the
// classified error type used for retry and transport mapping decisions.
package menu

import "math"

// Dish is a single priced catalog item. Dishes are immutable once
// admitted to a request; the optimizer only reads them.
type Dish struct {
	RestaurantID       string   `json:"restaurant_id"`
	DishID             string   `json:"dish_id" binding:"required"`
	DishName           string   `json:"dish_name"`
	DishCategory       string   `json:"dish_category"`
	IsSignature        bool     `json:"is_signature"`
	Unit               string   `json:"unit"`
	Price              float64  `json:"price"`
	CookingMethods     []string `json:"cooking_methods"`
	FlavorTags         []string `json:"flavor_tags"`
	IsVegetarian       bool     `json:"is_vegetarian"`
	IsHalal            bool     `json:"is_halal"`
	MainIngredients    []string `json:"main_ingredient"`
	ApplicableAudience string   `json:"applicable_audience,omitempty"`
}

// PreferenceSet holds like/dislike values for one dish attribute.
type PreferenceSet struct {
	Likes    []string `json:"likes,omitempty"`
	Dislikes []string `json:"dislikes,omitempty"`
}

// Preferences groups the per-attribute preference sets a caller may
// attach to a request. Dislikes are hard exclusions applied by the
// preprocessor before optimization.
type Preferences struct {
	MainIngredient PreferenceSet `json:"main_ingredient,omitempty"`
	Flavor         PreferenceSet `json:"flavor,omitempty"`
	CookingMethod  PreferenceSet `json:"cooking_method,omitempty"`
}

// Request is a menu planning request. The catalog slice travels with
// the request so semantically identical submissions can be fingerprinted
// without consulting the upstream catalog again.
type Request struct {
	DinerCount  int     `json:"diner_count" binding:"required,gt=0"`
	TotalBudget float64 `json:"total_budget" binding:"required,gt=0"`

	// Dishes may be omitted over HTTP, in which case the catalog
	// provider fills them in before submission.
	Dishes []Dish `json:"dishes" binding:"omitempty,dive"`

	// DinerBreakdown optionally partitions DinerCount by audience
	// (e.g. adults/children). When present the sub-counts must sum to
	// DinerCount; Validate enforces this.
	DinerBreakdown map[string]int `json:"diner_breakdown,omitempty"`

	Preferences *Preferences `json:"preferences,omitempty"`

	// IgnoreCache forces a fresh computation, bypassing the fingerprint
	// cache and lock entirely.
	IgnoreCache bool `json:"ignore_cache,omitempty"`
}

// Validate checks the cross-field invariants that struct tags cannot
// express. It returns a validation-class error on the first violation.
func (r *Request) Validate() error {
	if r.DinerCount <= 0 {
		return NewValidationError("diner_count must be positive", nil)
	}
	if r.TotalBudget <= 0 {
		return NewValidationError("total_budget must be positive", nil)
	}
	if len(r.DinerBreakdown) > 0 {
		sum := 0
		for _, n := range r.DinerBreakdown {
			if n < 0 {
				return NewValidationError("diner_breakdown counts must be non-negative", nil)
			}
			sum += n
		}
		if sum != r.DinerCount {
			return NewValidationError("diner_breakdown must sum to diner_count", nil)
		}
	}
	return nil
}

// PlanDish is one line of a generated menu plan.
type PlanDish struct {
	DishID    string  `json:"dish_id"`
	DishName  string  `json:"dish_name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

// MenuPlan is one complete menu proposal translated from an archive
// member: the dishes selected, their rounded total price, and the
// rounded fitness score that ranked the plan.
type MenuPlan struct {
	Score      float64    `json:"score"`
	TotalPrice float64    `json:"total_price"`
	DishCount  int        `json:"dish_count"`
	Dishes     []PlanDish `json:"dishes"`
}

// Round2 rounds v to two decimal places. Plan scores and prices are
// rounded before serialization so cached and polled results compare equal.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
