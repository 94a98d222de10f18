package optimizer

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/menuforge/menuforge/pkg/menu"
)

func testDish(id string, price float64, opts ...func(*menu.Dish)) menu.Dish {
	d := menu.Dish{
		DishID:          id,
		DishName:        "dish " + id,
		DishCategory:    "hot",
		Unit:            "portion",
		Price:           price,
		CookingMethods:  []string{"fried"},
		FlavorTags:      []string{"savory"},
		MainIngredients: []string{"pork"},
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func vegetarian(d *menu.Dish) { d.IsVegetarian = true }
func signature(d *menu.Dish)  { d.IsSignature = true }

// testCatalog builds a varied catalog with prices spread across the
// budget range so feasible selections exist.
func testCatalog() []menu.Dish {
	methods := []string{"fried", "steamed", "braised", "grilled", "boiled"}
	flavors := []string{"spicy", "sweet", "sour", "savory", "numbing"}
	ingredients := []string{"pork", "beef", "chicken", "tofu", "greens"}

	dishes := make([]menu.Dish, 0, 20)
	for i := 0; i < 20; i++ {
		d := testDish(string(rune('A'+i)), 18+float64(i*7))
		d.CookingMethods = []string{methods[i%len(methods)]}
		d.FlavorTags = []string{flavors[i%len(flavors)], flavors[(i+2)%len(flavors)]}
		d.MainIngredients = []string{ingredients[i%len(ingredients)]}
		d.IsVegetarian = i%3 == 0
		d.IsSignature = i%4 == 0
		dishes = append(dishes, d)
	}
	return dishes
}

func TestOptimizeProducesFeasiblePlans(t *testing.T) {
	dishes := testCatalog()
	cons := Constraints{DinerCount: 4, TotalBudget: 400}
	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(1))

	archive, err := Optimize(context.Background(), dishes, cons, cfg, rng)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if archive.Len() == 0 || archive.Len() > cfg.ArchiveSize {
		t.Fatalf("archive size = %d, want 1..%d", archive.Len(), cfg.ArchiveSize)
	}

	for i, m := range archive.members {
		total := m.totalPrice(dishes)
		if total <= 0 || total > cons.TotalBudget {
			t.Errorf("member %d total price %.2f outside (0, %.2f]", i, total, cons.TotalBudget)
		}
		if total/cons.TotalBudget < minUtilization {
			t.Errorf("member %d utilization %.2f below floor", i, total/cons.TotalBudget)
		}
		if m.fitness <= 0 {
			t.Errorf("member %d has non-positive fitness %.2f", i, m.fitness)
		}
	}

	// Pairwise diversity across archive members.
	for i := 0; i < archive.Len(); i++ {
		for j := i + 1; j < archive.Len(); j++ {
			d := difference(archive.members[i], archive.members[j], dishes)
			if d < cfg.MinDifference {
				t.Errorf("members %d,%d difference %.3f below threshold %.2f", i, j, d, cfg.MinDifference)
			}
		}
	}
}

func TestOptimizeDeterministicUnderSeed(t *testing.T) {
	dishes := testCatalog()
	cons := Constraints{DinerCount: 4, TotalBudget: 400}
	cfg := DefaultConfig()
	cfg.Generations = 10

	run := func() []menu.MenuPlan {
		archive, err := Optimize(context.Background(), dishes, cons, cfg, rand.New(rand.NewSource(42)))
		if err != nil {
			t.Fatalf("Optimize failed: %v", err)
		}
		return archive.Plans()
	}

	first, second := run(), run()
	if len(first) != len(second) {
		t.Fatalf("plan count differs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Score != second[i].Score || first[i].TotalPrice != second[i].TotalPrice {
			t.Errorf("plan %d differs across identical seeds", i)
		}
	}
}

func TestOptimizeInsufficientCatalog(t *testing.T) {
	dishes := []menu.Dish{testDish("a", 10), testDish("b", 20)}
	cfg := DefaultConfig()

	_, err := Optimize(context.Background(), dishes, Constraints{DinerCount: 2, TotalBudget: 100}, cfg, rand.New(rand.NewSource(1)))
	if !menu.IsInfeasible(err) {
		t.Fatalf("want infeasible error, got %v", err)
	}
	var merr *menu.Error
	if !errors.As(err, &merr) || merr.Code != menu.ErrCodeInsufficientCatalog {
		t.Fatalf("want code %s, got %v", menu.ErrCodeInsufficientCatalog, err)
	}
}

// Scenario: every dish priced above the budget leaves the archive empty.
func TestOptimizeAllDishesOverBudget(t *testing.T) {
	dishes := []menu.Dish{
		testDish("a", 120), testDish("b", 150), testDish("c", 200),
		testDish("d", 130), testDish("e", 180),
	}
	cfg := DefaultConfig()
	cfg.Generations = 5

	_, err := Optimize(context.Background(), dishes, Constraints{DinerCount: 2, TotalBudget: 100}, cfg, rand.New(rand.NewSource(7)))
	if !menu.IsInfeasible(err) {
		t.Fatalf("want infeasible error, got %v", err)
	}
	var merr *menu.Error
	if !errors.As(err, &merr) || merr.Code != menu.ErrCodeNoFeasibleSolution {
		t.Fatalf("want code %s, got %v", menu.ErrCodeNoFeasibleSolution, err)
	}
}

func TestRepairDropsMostExpensiveUntilFeasible(t *testing.T) {
	dishes := []menu.Dish{
		testDish("a", 50), testDish("b", 40), testDish("c", 30), testDish("d", 20),
	}
	cons := Constraints{DinerCount: 2, TotalBudget: 70}
	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(3))

	// Over-budget pair {50, 40}: repair drops the 50, then tops up with
	// the 30 to clear the utilization floor.
	c := newCandidate(len(dishes))
	c.bits[0], c.bits[1] = true, true
	repair(c, dishes, cons, cfg, rng)

	total := c.totalPrice(dishes)
	if total > 70 {
		t.Fatalf("repair left total %.2f over budget 70", total)
	}
	if total < 70*minUtilization {
		t.Fatalf("repair left total %.2f under utilization floor %.2f", total, 70*minUtilization)
	}
	if c.scored {
		t.Error("repair must invalidate the cached fitness")
	}
}

func TestRepairNeverExceedsBudgetWhenTopUpImpossible(t *testing.T) {
	dishes := []menu.Dish{
		testDish("a", 50), testDish("b", 40), testDish("c", 30), testDish("d", 20),
	}
	cons := Constraints{DinerCount: 2, TotalBudget: 70}
	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(3))

	// All four selected (140): repair drops 50 and 40, leaving {30, 20}
	// at 50. Nothing unselected fits the 20 remaining, so the candidate
	// stays under-utilized and later scores zero.
	c := newCandidate(len(dishes))
	for i := range c.bits {
		c.bits[i] = true
	}
	repair(c, dishes, cons, cfg, rng)

	total := c.totalPrice(dishes)
	if total > 70 {
		t.Fatalf("repair left total %.2f over budget 70", total)
	}
	if got := evaluate(c, dishes, cons, cfg); total < 70*minUtilization && got != 0 {
		t.Fatalf("under-utilized candidate scored %.2f, want 0", got)
	}
}

func TestRepairKeepsAlreadyFeasibleWithinBounds(t *testing.T) {
	dishes := testCatalog()
	cons := Constraints{DinerCount: 3, TotalBudget: 300}
	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(9))

	for trial := 0; trial < 50; trial++ {
		c := newCandidate(len(dishes))
		for i := range c.bits {
			c.bits[i] = rng.Float64() < 0.4
		}
		repair(c, dishes, cons, cfg, rng)

		total := c.totalPrice(dishes)
		if c.count() == 0 {
			continue
		}
		if total > cons.TotalBudget {
			t.Fatalf("trial %d: total %.2f over budget", trial, total)
		}
	}
}

func TestForceEvenCount(t *testing.T) {
	dishes := testCatalog()
	cons := Constraints{DinerCount: 3, TotalBudget: 300}
	cfg := DefaultConfig()
	cfg.ForceEvenCount = true
	rng := rand.New(rand.NewSource(11))

	for trial := 0; trial < 30; trial++ {
		c := seedCandidate(dishes, cons, cfg, rng)
		if n := c.count(); n%2 != 0 {
			t.Fatalf("trial %d: dish count %d is odd with ForceEvenCount", trial, n)
		}
	}
}

func TestFitnessHardRejections(t *testing.T) {
	dishes := []menu.Dish{
		testDish("a", 60), testDish("b", 50, vegetarian), testDish("c", 40, signature),
		testDish("d", 30), testDish("e", 20, vegetarian),
	}
	cons := Constraints{DinerCount: 2, TotalBudget: 100}
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		selected []int
		wantZero bool
	}{
		{"over budget", []int{0, 1, 2}, true},      // 150 > 100
		{"under utilization", []int{4}, true},      // 20 < 80
		{"empty", nil, true},                       //
		{"feasible", []int{0, 3}, false},           // 90, 90% utilization
		{"exactly at budget", []int{1, 3, 4}, false}, // 100
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCandidate(len(dishes))
			for _, i := range tt.selected {
				c.bits[i] = true
			}
			got := evaluate(c, dishes, cons, cfg)
			if tt.wantZero && got != 0 {
				t.Errorf("fitness = %.2f, want 0", got)
			}
			if !tt.wantZero && got <= 0 {
				t.Errorf("fitness = %.2f, want > 0", got)
			}
		})
	}
}

func TestFitnessSubscores(t *testing.T) {
	// Two meat + two vegetarian dishes, ideal count 4, full budget use.
	dishes := []menu.Dish{
		testDish("a", 30),
		testDish("b", 30, vegetarian),
		testDish("c", 20, signature),
		testDish("d", 20, vegetarian),
	}
	cons := Constraints{DinerCount: 2, TotalBudget: 100}
	cfg := DefaultConfig()

	c := newCandidate(len(dishes))
	for i := range c.bits {
		c.bits[i] = true
	}
	got := evaluate(c, dishes, cons, cfg)

	// price 1.0, count 1.0 (4 == 2+2), balance 1.0 (2 meat vs 2 veg),
	// variety (1+1+1)/(3*4)=0.25, signature 1/4.
	want := 100 * (1.0*cfg.Weights.Price +
		1.0*cfg.Weights.DishCount +
		0.25*cfg.Weights.Variety +
		1.0*cfg.Weights.Balance +
		0.25*cfg.Weights.Signature)
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("fitness = %.6f, want %.6f", got, want)
	}
}
