package optimizer

import (
	"math/rand"

	"github.com/menuforge/menuforge/pkg/menu"
)

// tournamentSize is the number of contenders per selection round.
const tournamentSize = 3

// tournament picks the fittest of three random population members.
func tournament(population []*candidate, rng *rand.Rand) *candidate {
	best := population[rng.Intn(len(population))]
	for i := 1; i < tournamentSize; i++ {
		challenger := population[rng.Intn(len(population))]
		if challenger.fitness > best.fitness {
			best = challenger
		}
	}
	return best
}

// crossoverAndRepair applies two-point crossover in place, then repairs
// both offspring. Repair invalidates the cached fitness of both.
func crossoverAndRepair(a, b *candidate, dishes []menu.Dish, cons Constraints, cfg Config, rng *rand.Rand) {
	n := len(a.bits)
	if n < 2 {
		return
	}
	p1 := rng.Intn(n)
	p2 := rng.Intn(n - 1)
	if p2 >= p1 {
		p2++
	} else {
		p1, p2 = p2, p1
	}
	for i := p1; i < p2; i++ {
		a.bits[i], b.bits[i] = b.bits[i], a.bits[i]
	}

	repair(a, dishes, cons, cfg, rng)
	repair(b, dishes, cons, cfg, rng)
}

// mutateAndRepair flips each bit with the configured probability, then
// repairs the candidate. Repair invalidates the cached fitness.
func mutateAndRepair(c *candidate, dishes []menu.Dish, cons Constraints, cfg Config, rng *rand.Rand) {
	for i := range c.bits {
		if rng.Float64() < cfg.MutationRate {
			c.bits[i] = !c.bits[i]
		}
	}
	repair(c, dishes, cons, cfg, rng)
}
