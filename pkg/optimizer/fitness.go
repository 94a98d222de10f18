package optimizer

import (
	"math"

	"github.com/menuforge/menuforge/pkg/menu"
)

// minUtilization is the hard floor on budget utilization: any candidate
// spending less than 80% of the budget scores zero.
const minUtilization = 0.8

// evaluate computes and caches the candidate's fitness. Fitness 0 marks
// an infeasible candidate (over budget or under-utilized); such
// candidates are never archived.
func evaluate(c *candidate, dishes []menu.Dish, cons Constraints, cfg Config) float64 {
	c.fitness = score(c, dishes, cons, cfg)
	c.scored = true
	return c.fitness
}

func score(c *candidate, dishes []menu.Dish, cons Constraints, cfg Config) float64 {
	selected := c.selected()
	if len(selected) == 0 {
		return 0
	}

	total := 0.0
	for _, i := range selected {
		total += dishes[i].Price
	}
	if total > cons.TotalBudget {
		return 0
	}
	utilization := total / cons.TotalBudget
	if utilization < minUtilization {
		return 0
	}

	priceScore := utilization

	ideal := cons.idealCount(cfg)
	countScore := 0.0
	if ideal > 0 {
		countScore = 1 - math.Abs(float64(len(selected)-ideal))/float64(ideal)
	}

	methods := map[string]struct{}{}
	flavors := map[string]struct{}{}
	ingredients := map[string]struct{}{}
	meat := 0
	signature := 0
	for _, i := range selected {
		d := dishes[i]
		for _, m := range d.CookingMethods {
			methods[m] = struct{}{}
		}
		for _, f := range d.FlavorTags {
			flavors[f] = struct{}{}
		}
		for _, ing := range d.MainIngredients {
			ingredients[ing] = struct{}{}
		}
		if !d.IsVegetarian {
			meat++
		}
		if d.IsSignature {
			signature++
		}
	}

	n := float64(len(selected))
	varietyScore := float64(len(methods)+len(flavors)+len(ingredients)) / (3 * n)

	veg := len(selected) - meat
	balanceScore := 1 - math.Abs(float64(meat-veg))/n

	signatureScore := float64(signature) / n

	w := cfg.Weights
	final := 100 * (priceScore*w.Price +
		countScore*w.DishCount +
		varietyScore*w.Variety +
		balanceScore*w.Balance +
		signatureScore*w.Signature)

	return math.Max(0, final)
}
