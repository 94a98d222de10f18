// Package catalog fetches dish catalogs from the upstream provider and
// filters them into the eligible slice the optimizer consumes.
package catalog

import (
	"fmt"

	"github.com/menuforge/menuforge/pkg/menu"
)

// DefaultExcludedCategories are dish categories never planned into a
// menu: staples and drinks are ordered separately.
var DefaultExcludedCategories = []string{"staple", "drink"}

// Preprocess filters the request's catalog down to the dishes eligible
// for optimization: positive price, no excluded category, and nothing
// the diners dislike. It fails with an infeasible-class error when
// nothing survives or when the per-person budget cannot buy even the
// cheapest eligible dish.
func Preprocess(dishes []menu.Dish, req *menu.Request, excludedCategories []string) ([]menu.Dish, error) {
	if len(dishes) == 0 {
		return nil, menu.NewInfeasibleError("the dish catalog is empty", nil).
			WithCode(menu.ErrCodeEmptyCatalog)
	}

	excluded := toSet(excludedCategories)

	var dislikedIngredients, dislikedFlavors, dislikedMethods map[string]struct{}
	if req.Preferences != nil {
		dislikedIngredients = toSet(req.Preferences.MainIngredient.Dislikes)
		dislikedFlavors = toSet(req.Preferences.Flavor.Dislikes)
		dislikedMethods = toSet(req.Preferences.CookingMethod.Dislikes)
	}

	eligible := make([]menu.Dish, 0, len(dishes))
	for _, d := range dishes {
		if d.Price <= 0 {
			continue
		}
		if _, skip := excluded[d.DishCategory]; skip {
			continue
		}
		if intersects(dislikedIngredients, d.MainIngredients) ||
			intersects(dislikedFlavors, d.FlavorTags) ||
			intersects(dislikedMethods, d.CookingMethods) {
			continue
		}
		eligible = append(eligible, d)
	}

	if len(eligible) == 0 {
		return nil, menu.NewInfeasibleError(
			"no dishes remain after category and preference filtering", nil).
			WithCode(menu.ErrCodeEmptyCatalog)
	}

	cheapest := eligible[0].Price
	for _, d := range eligible[1:] {
		if d.Price < cheapest {
			cheapest = d.Price
		}
	}
	perPerson := req.TotalBudget / float64(req.DinerCount)
	if perPerson < cheapest {
		return nil, menu.NewInfeasibleError(
			fmt.Sprintf("budget %.2f for %d diners is below the cheapest dish (%.2f per person needed)",
				req.TotalBudget, req.DinerCount, cheapest), nil).
			WithCode(menu.ErrCodeBudgetTooLow)
	}

	return eligible, nil
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func intersects(set map[string]struct{}, values []string) bool {
	if len(set) == 0 {
		return false
	}
	for _, v := range values {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}
