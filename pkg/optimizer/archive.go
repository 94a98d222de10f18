package optimizer

import (
	"math"
	"sort"

	"github.com/menuforge/menuforge/pkg/menu"
)

// Archive is a bounded, fitness-sorted collection of candidates that are
// pairwise sufficiently different. It lives for one optimization run.
type Archive struct {
	capacity      int
	minDifference float64
	dishes        []menu.Dish
	members       []*candidate
}

func newArchive(capacity int, minDifference float64, dishes []menu.Dish) *Archive {
	return &Archive{
		capacity:      capacity,
		minDifference: minDifference,
		dishes:        dishes,
	}
}

// Len returns the current number of archive members.
func (a *Archive) Len() int {
	return len(a.members)
}

// insert admits a candidate when it is feasible (fitness > 0) and at
// least minDifference away from every retained member. A full archive
// replaces its worst member only when the newcomer is strictly fitter
// and the diversity constraint still holds against the survivors.
func (a *Archive) insert(c *candidate) {
	if !c.scored || c.fitness <= 0 {
		return
	}

	if len(a.members) < a.capacity {
		if !a.diverseAgainst(c, a.members) {
			return
		}
		a.members = append(a.members, c.clone())
		a.sortByFitness()
		return
	}

	worst := len(a.members) - 1
	if c.fitness <= a.members[worst].fitness {
		return
	}
	if !a.diverseAgainst(c, a.members[:worst]) {
		return
	}
	a.members[worst] = c.clone()
	a.sortByFitness()
}

func (a *Archive) sortByFitness() {
	sort.SliceStable(a.members, func(i, j int) bool {
		return a.members[i].fitness > a.members[j].fitness
	})
}

func (a *Archive) diverseAgainst(c *candidate, members []*candidate) bool {
	for _, m := range members {
		if difference(c, m, a.dishes) < a.minDifference {
			return false
		}
	}
	return true
}

// Plans translates the archive into menu plans ordered by descending
// fitness, with scores and prices rounded for stable serialization.
func (a *Archive) Plans() []menu.MenuPlan {
	plans := make([]menu.MenuPlan, 0, len(a.members))
	for _, m := range a.members {
		selected := m.selected()
		if len(selected) == 0 {
			continue
		}
		plan := menu.MenuPlan{
			Score:     menu.Round2(m.fitness),
			DishCount: len(selected),
			Dishes:    make([]menu.PlanDish, 0, len(selected)),
		}
		total := 0.0
		for _, i := range selected {
			d := a.dishes[i]
			total += d.Price
			plan.Dishes = append(plan.Dishes, menu.PlanDish{
				DishID:    d.DishID,
				DishName:  d.DishName,
				UnitPrice: d.Price,
				Quantity:  1,
			})
		}
		plan.TotalPrice = menu.Round2(total)
		plans = append(plans, plan)
	}
	return plans
}

// difference is the pairwise diversity metric between two candidates: a
// weighted blend of symmetric-difference ratios over dish ids, cooking
// methods, flavors, and ingredients, plus the normalized price gap.
// Empty selections compare as identical.
func difference(x, y *candidate, dishes []menu.Dish) float64 {
	xs, ys := x.selected(), y.selected()
	if len(xs) == 0 || len(ys) == 0 {
		return 0
	}

	idsX, idsY := map[string]struct{}{}, map[string]struct{}{}
	methodsX, methodsY := map[string]struct{}{}, map[string]struct{}{}
	flavorsX, flavorsY := map[string]struct{}{}, map[string]struct{}{}
	ingredientsX, ingredientsY := map[string]struct{}{}, map[string]struct{}{}
	priceX, priceY := 0.0, 0.0

	collect := func(sel []int, ids, methods, flavors, ingredients map[string]struct{}, price *float64) {
		for _, i := range sel {
			d := dishes[i]
			ids[d.DishID] = struct{}{}
			for _, m := range d.CookingMethods {
				methods[m] = struct{}{}
			}
			for _, f := range d.FlavorTags {
				flavors[f] = struct{}{}
			}
			for _, ing := range d.MainIngredients {
				ingredients[ing] = struct{}{}
			}
			*price += d.Price
		}
	}
	collect(xs, idsX, methodsX, flavorsX, ingredientsX, &priceX)
	collect(ys, idsY, methodsY, flavorsY, ingredientsY, &priceY)

	priceDiff := 0.0
	if priceX+priceY > 0 {
		priceDiff = math.Abs(priceX-priceY) / (priceX + priceY)
	}

	return symmetricRatio(idsX, idsY)*0.40 +
		symmetricRatio(methodsX, methodsY)*0.20 +
		symmetricRatio(flavorsX, flavorsY)*0.20 +
		symmetricRatio(ingredientsX, ingredientsY)*0.15 +
		priceDiff*0.05
}

// symmetricRatio is the symmetric-difference size over the union size,
// or 0 when the union is empty.
func symmetricRatio(a, b map[string]struct{}) float64 {
	union := len(a)
	diff := 0
	for k := range b {
		if _, ok := a[k]; !ok {
			union++
			diff++
		}
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			diff++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(diff) / float64(union)
}
