package optimizer

import (
	"math/rand"
	"sort"

	"github.com/menuforge/menuforge/pkg/menu"
)

// candidate is one solution: a boolean vector over catalog indices with
// a fitness score cached while the selection is unchanged. Any structural
// mutation must go through invalidate so a stale score is never reused.
type candidate struct {
	bits    []bool
	fitness float64
	scored  bool
}

func newCandidate(n int) *candidate {
	return &candidate{bits: make([]bool, n)}
}

func (c *candidate) clone() *candidate {
	bits := make([]bool, len(c.bits))
	copy(bits, c.bits)
	return &candidate{bits: bits, fitness: c.fitness, scored: c.scored}
}

func (c *candidate) invalidate() {
	c.fitness = 0
	c.scored = false
}

// selected returns the catalog indices currently chosen, in index order.
func (c *candidate) selected() []int {
	idx := make([]int, 0, len(c.bits))
	for i, b := range c.bits {
		if b {
			idx = append(idx, i)
		}
	}
	return idx
}

func (c *candidate) count() int {
	n := 0
	for _, b := range c.bits {
		if b {
			n++
		}
	}
	return n
}

func (c *candidate) totalPrice(dishes []menu.Dish) float64 {
	total := 0.0
	for i, b := range c.bits {
		if b {
			total += dishes[i].Price
		}
	}
	return total
}

// diversityWeight scores how much a dish widens a menu: its price plus
// bonuses per distinct cooking method, flavor, and ingredient, plus a
// flat signature bonus.
func diversityWeight(d menu.Dish) float64 {
	w := d.Price*0.4 +
		float64(len(d.CookingMethods))*8 +
		float64(len(d.FlavorTags))*6 +
		float64(len(d.MainIngredients))*4
	if d.IsSignature {
		w += 20
	}
	return w
}

// seedCandidate builds one initial candidate using a randomly chosen
// heuristic, then repairs it so every member of the initial population
// is budget-feasible.
func seedCandidate(dishes []menu.Dish, cons Constraints, cfg Config, rng *rand.Rand) *candidate {
	c := newCandidate(len(dishes))
	budget := cons.TotalBudget
	minRequired := budget * minUtilization
	maxCount := int(float64(cons.idealCount(cfg)) * 1.5)

	order := make([]int, len(dishes))
	for i := range order {
		order[i] = i
	}

	switch rng.Intn(3) {
	case 0: // highest price first
		sort.Slice(order, func(a, b int) bool {
			return dishes[order[a]].Price > dishes[order[b]].Price
		})
	case 1: // blended price/variety score
		sort.Slice(order, func(a, b int) bool {
			return blendedSeedScore(dishes[order[a]]) > blendedSeedScore(dishes[order[b]])
		})
	default: // random order
		rng.Shuffle(len(order), func(a, b int) {
			order[a], order[b] = order[b], order[a]
		})
	}

	remaining := budget
	total := 0.0
	selected := 0
	for _, i := range order {
		if dishes[i].Price <= remaining && selected < maxCount {
			c.bits[i] = true
			remaining -= dishes[i].Price
			total += dishes[i].Price
			selected++
			if total >= budget*0.95 {
				break
			}
		}
	}

	// Top-up pass: pull the candidate above the utilization floor with
	// the priciest dishes that still fit.
	if total < minRequired {
		rest := make([]int, 0, len(dishes))
		for i := range dishes {
			if !c.bits[i] {
				rest = append(rest, i)
			}
		}
		sort.Slice(rest, func(a, b int) bool {
			return dishes[rest[a]].Price > dishes[rest[b]].Price
		})
		for _, i := range rest {
			if dishes[i].Price <= remaining && selected < maxCount && total+dishes[i].Price <= budget {
				c.bits[i] = true
				remaining -= dishes[i].Price
				total += dishes[i].Price
				selected++
				if total >= minRequired {
					break
				}
			}
		}
	}

	repair(c, dishes, cons, cfg, rng)
	return c
}

func blendedSeedScore(d menu.Dish) float64 {
	s := d.Price*0.6 +
		float64(len(d.CookingMethods))*10 +
		float64(len(d.FlavorTags))*5
	if d.IsSignature {
		s += 50
	}
	return s
}

// repair enforces budget feasibility after any structural change: drop
// the most expensive selections while over budget, then add fitting
// dishes while utilization is below the floor. Additions are ordered by
// price or by diversity weight (picked at random) and stop at the floor
// with a 30% chance of continuing, so repaired candidates do not all
// converge on the maximal-price selection.
func repair(c *candidate, dishes []menu.Dish, cons Constraints, cfg Config, rng *rand.Rand) {
	defer c.invalidate()

	budget := cons.TotalBudget
	selected := c.selected()
	if len(selected) == 0 {
		return
	}

	total := c.totalPrice(dishes)
	minRequired := budget * minUtilization

	for total > budget && len(selected) > 0 {
		sort.Slice(selected, func(a, b int) bool {
			return dishes[selected[a]].Price > dishes[selected[b]].Price
		})
		drop := selected[0]
		c.bits[drop] = false
		total -= dishes[drop].Price
		selected = selected[1:]
	}

	if total < minRequired {
		available := make([]int, 0, len(dishes))
		for i := range dishes {
			if !c.bits[i] {
				available = append(available, i)
			}
		}

		if rng.Float64() < 0.5 {
			sort.Slice(available, func(a, b int) bool {
				return dishes[available[a]].Price > dishes[available[b]].Price
			})
		} else {
			sort.Slice(available, func(a, b int) bool {
				return diversityWeight(dishes[available[a]]) > diversityWeight(dishes[available[b]])
			})
		}

		remaining := budget - total
		for _, i := range available {
			if total+dishes[i].Price <= budget && dishes[i].Price <= remaining {
				c.bits[i] = true
				total += dishes[i].Price
				remaining -= dishes[i].Price
				if total >= minRequired {
					if rng.Float64() < 0.3 {
						continue
					}
					break
				}
			}
		}
	}

	if cfg.ForceEvenCount {
		evenOut(c, dishes, budget)
	}
}

// evenOut adjusts an odd selection to an even count: add the cheapest
// dish that still fits the budget, otherwise drop the cheapest selected.
func evenOut(c *candidate, dishes []menu.Dish, budget float64) {
	selected := c.selected()
	if len(selected)%2 == 0 {
		return
	}

	total := c.totalPrice(dishes)
	addIdx, addPrice := -1, 0.0
	for i := range dishes {
		if c.bits[i] {
			continue
		}
		if total+dishes[i].Price <= budget && (addIdx < 0 || dishes[i].Price < addPrice) {
			addIdx, addPrice = i, dishes[i].Price
		}
	}
	if addIdx >= 0 {
		c.bits[addIdx] = true
		return
	}

	dropIdx := selected[0]
	for _, i := range selected[1:] {
		if dishes[i].Price < dishes[dropIdx].Price {
			dropIdx = i
		}
	}
	c.bits[dropIdx] = false
}
