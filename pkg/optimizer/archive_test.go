package optimizer

import (
	"testing"

	"github.com/menuforge/menuforge/pkg/menu"
)

// archiveCatalog holds two disjoint clusters of dishes so candidates
// built from different clusters are maximally different.
func archiveCatalog() []menu.Dish {
	return []menu.Dish{
		{DishID: "a1", Price: 40, CookingMethods: []string{"fried"}, FlavorTags: []string{"spicy"}, MainIngredients: []string{"pork"}},
		{DishID: "a2", Price: 45, CookingMethods: []string{"fried"}, FlavorTags: []string{"spicy"}, MainIngredients: []string{"pork"}},
		{DishID: "b1", Price: 40, CookingMethods: []string{"steamed"}, FlavorTags: []string{"sweet"}, MainIngredients: []string{"fish"}},
		{DishID: "b2", Price: 45, CookingMethods: []string{"steamed"}, FlavorTags: []string{"sweet"}, MainIngredients: []string{"fish"}},
		{DishID: "c1", Price: 42, CookingMethods: []string{"braised"}, FlavorTags: []string{"sour"}, MainIngredients: []string{"tofu"}},
		{DishID: "c2", Price: 44, CookingMethods: []string{"braised"}, FlavorTags: []string{"sour"}, MainIngredients: []string{"tofu"}},
	}
}

func member(dishes []menu.Dish, fitness float64, indices ...int) *candidate {
	c := newCandidate(len(dishes))
	for _, i := range indices {
		c.bits[i] = true
	}
	c.fitness = fitness
	c.scored = true
	return c
}

func TestArchiveRejectsInfeasibleCandidates(t *testing.T) {
	dishes := archiveCatalog()
	a := newArchive(2, 0.5, dishes)

	a.insert(member(dishes, 0, 0, 1)) // fitness 0 never archived
	if a.Len() != 0 {
		t.Fatal("zero-fitness candidate was archived")
	}

	unscored := member(dishes, 50, 0, 1)
	unscored.scored = false
	a.insert(unscored)
	if a.Len() != 0 {
		t.Fatal("unscored candidate was archived")
	}
}

func TestArchiveDiversityGate(t *testing.T) {
	dishes := archiveCatalog()
	a := newArchive(3, 0.5, dishes)

	a.insert(member(dishes, 80, 0, 1))
	a.insert(member(dishes, 75, 0, 1)) // near-duplicate of the first
	if a.Len() != 1 {
		t.Fatalf("archive admitted a near-duplicate; len = %d", a.Len())
	}

	a.insert(member(dishes, 70, 2, 3)) // disjoint cluster
	if a.Len() != 2 {
		t.Fatalf("archive rejected a diverse candidate; len = %d", a.Len())
	}
}

func TestArchiveCapacityAndReplacement(t *testing.T) {
	dishes := archiveCatalog()
	a := newArchive(2, 0.5, dishes)

	a.insert(member(dishes, 90, 0, 1))
	a.insert(member(dishes, 60, 2, 3))
	if a.Len() != 2 {
		t.Fatalf("setup failed, len = %d", a.Len())
	}

	// Lower fitness than the worst member: rejected even though diverse.
	a.insert(member(dishes, 50, 4, 5))
	if a.Len() != 2 || a.members[1].fitness != 60 {
		t.Fatal("full archive replaced a member with a weaker candidate")
	}

	// Strictly fitter than the worst and diverse against the remainder:
	// replaces the worst.
	a.insert(member(dishes, 70, 4, 5))
	if a.Len() != 2 {
		t.Fatalf("archive size changed, len = %d", a.Len())
	}
	if a.members[0].fitness != 90 || a.members[1].fitness != 70 {
		t.Fatalf("archive fitnesses = %.0f, %.0f; want 90, 70",
			a.members[0].fitness, a.members[1].fitness)
	}

	// Fitter than the worst but a near-duplicate of the best survivor:
	// rejected to preserve diversity.
	a.insert(member(dishes, 85, 0, 1))
	if a.members[1].fitness != 70 {
		t.Fatal("archive admitted a candidate duplicating a survivor")
	}
}

func TestArchiveSortedByDescendingFitness(t *testing.T) {
	dishes := archiveCatalog()
	a := newArchive(3, 0.5, dishes)

	a.insert(member(dishes, 60, 0, 1))
	a.insert(member(dishes, 90, 2, 3))
	a.insert(member(dishes, 75, 4, 5))

	for i := 1; i < a.Len(); i++ {
		if a.members[i].fitness > a.members[i-1].fitness {
			t.Fatalf("archive not sorted: %.0f before %.0f",
				a.members[i-1].fitness, a.members[i].fitness)
		}
	}

	plans := a.Plans()
	if len(plans) != 3 {
		t.Fatalf("Plans returned %d entries, want 3", len(plans))
	}
	if plans[0].Score != 90 {
		t.Fatalf("best plan score = %.0f, want 90", plans[0].Score)
	}
}

func TestDifferenceMetric(t *testing.T) {
	dishes := archiveCatalog()

	identical := difference(member(dishes, 1, 0, 1), member(dishes, 1, 0, 1), dishes)
	if identical != 0 {
		t.Errorf("identical candidates differ by %.3f, want 0", identical)
	}

	disjoint := difference(member(dishes, 1, 0, 1), member(dishes, 1, 2, 3), dishes)
	// Disjoint ids, methods, flavors, ingredients: 0.40+0.20+0.20+0.15,
	// plus a small price term.
	if disjoint < 0.95 {
		t.Errorf("disjoint candidates differ by %.3f, want >= 0.95", disjoint)
	}

	empty := difference(member(dishes, 1), member(dishes, 1, 0, 1), dishes)
	if empty != 0 {
		t.Errorf("empty candidate difference = %.3f, want 0", empty)
	}
}
