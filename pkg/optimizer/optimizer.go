// Package optimizer implements the evolutionary search engine that turns
// a dish catalog and a budget into a small set of mutually diverse,
// near-optimal menu candidates. The package is pure computation: no I/O,
// no shared state, all randomness through an injected rand source.
package optimizer

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/menuforge/menuforge/pkg/menu"
)

// Weights are the relative contributions of the fitness subscores.
// They are external configuration and should sum to roughly 1.
type Weights struct {
	Price     float64 `json:"price" yaml:"price"`
	DishCount float64 `json:"dish_count" yaml:"dish_count"`
	Variety   float64 `json:"variety" yaml:"variety"`
	Balance   float64 `json:"balance" yaml:"balance"`
	Signature float64 `json:"signature" yaml:"signature"`
}

// Config holds the evolutionary search parameters.
type Config struct {
	PopulationSize int     `json:"population_size" yaml:"population_size" validate:"gt=0"`
	Generations    int     `json:"generations" yaml:"generations" validate:"gt=0"`
	CrossoverRate  float64 `json:"crossover_rate" yaml:"crossover_rate" validate:"gte=0,lte=1"`
	MutationRate   float64 `json:"mutation_rate" yaml:"mutation_rate" validate:"gte=0,lte=1"`

	// ArchiveSize bounds how many diverse solutions are retained.
	ArchiveSize int `json:"archive_size" yaml:"archive_size" validate:"gt=0"`

	// MinDifference is the minimum pairwise difference between any two
	// archive members, in [0,1].
	MinDifference float64 `json:"min_difference" yaml:"min_difference" validate:"gte=0,lte=1"`

	// DishCountAddOn sets the ideal dish count to diners + add-on.
	DishCountAddOn int `json:"dish_count_add_on" yaml:"dish_count_add_on"`

	// MinCatalogSize is the smallest catalog the search accepts.
	MinCatalogSize int `json:"min_catalog_size" yaml:"min_catalog_size" validate:"gt=0"`

	// ForceEvenCount trims or tops up candidates to an even dish count
	// after repair. Off by default; only enable when table service
	// requires paired dishes.
	ForceEvenCount bool `json:"force_even_count" yaml:"force_even_count"`

	Weights Weights `json:"weights" yaml:"weights"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		PopulationSize: 50,
		Generations:    40,
		CrossoverRate:  0.8,
		MutationRate:   0.2,
		ArchiveSize:    2,
		MinDifference:  0.5,
		DishCountAddOn: 2,
		MinCatalogSize: 5,
		Weights: Weights{
			Price:     0.4,
			DishCount: 0.2,
			Variety:   0.2,
			Balance:   0.15,
			Signature: 0.05,
		},
	}
}

// Constraints are the per-request hard constraints.
type Constraints struct {
	DinerCount  int     `json:"diner_count"`
	TotalBudget float64 `json:"total_budget"`
}

// idealCount is the target number of dishes for the party.
func (c Constraints) idealCount(cfg Config) int {
	return c.DinerCount + cfg.DishCountAddOn
}

// Optimize runs the evolutionary search over the catalog and returns the
// archive of diverse near-optimal candidates. It fails with an
// infeasible-class error (code INSUFFICIENT_CATALOG) when the catalog is
// below the configured minimum, and with NO_FEASIBLE_SOLUTION when no
// budget-feasible candidate survived all generations.
func Optimize(ctx context.Context, dishes []menu.Dish, cons Constraints, cfg Config, rng *rand.Rand) (*Archive, error) {
	if len(dishes) < cfg.MinCatalogSize {
		return nil, menu.NewInfeasibleError(
			fmt.Sprintf("catalog has %d dishes, the search needs at least %d", len(dishes), cfg.MinCatalogSize),
			nil).WithCode(menu.ErrCodeInsufficientCatalog)
	}

	population := make([]*candidate, cfg.PopulationSize)
	for i := range population {
		population[i] = seedCandidate(dishes, cons, cfg, rng)
	}
	for _, ind := range population {
		evaluate(ind, dishes, cons, cfg)
	}

	archive := newArchive(cfg.ArchiveSize, cfg.MinDifference, dishes)

	for gen := 0; gen < cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		offspring := make([]*candidate, len(population))
		for i := range offspring {
			offspring[i] = tournament(population, rng).clone()
		}

		for i := 0; i+1 < len(offspring); i += 2 {
			if rng.Float64() < cfg.CrossoverRate {
				crossoverAndRepair(offspring[i], offspring[i+1], dishes, cons, cfg, rng)
			}
		}
		for _, child := range offspring {
			if rng.Float64() < cfg.MutationRate {
				mutateAndRepair(child, dishes, cons, cfg, rng)
			}
		}

		for _, child := range offspring {
			if !child.scored {
				evaluate(child, dishes, cons, cfg)
			}
			archive.insert(child)
		}

		population = offspring
	}

	if archive.Len() == 0 {
		return nil, menu.NewInfeasibleError(
			"search finished without finding a budget-feasible menu; relax the budget or widen the catalog",
			nil).WithCode(menu.ErrCodeNoFeasibleSolution)
	}

	return archive, nil
}
