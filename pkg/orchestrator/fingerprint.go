package orchestrator

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/menuforge/menuforge/pkg/menu"
)

// fingerprintPayload is the canonical, order-independent projection of a
// request. Maps marshal with sorted keys and every slice is sorted
// before hashing, so permuting the catalog or a preference list yields
// the same fingerprint.
type fingerprintPayload struct {
	Budget      float64             `json:"budget"`
	DinerCount  int                 `json:"diner_count"`
	Breakdown   map[string]int      `json:"breakdown,omitempty"`
	Preferences map[string][]string `json:"preferences,omitempty"`
	DishIDs     []string            `json:"dish_ids"`
}

// Fingerprint derives the deterministic cache/lock key hash for a
// request: a 128-bit content hash over the canonicalized request fields.
func Fingerprint(req *menu.Request) string {
	payload := fingerprintPayload{
		Budget:     req.TotalBudget,
		DinerCount: req.DinerCount,
		DishIDs:    make([]string, 0, len(req.Dishes)),
	}

	for _, d := range req.Dishes {
		payload.DishIDs = append(payload.DishIDs, d.DishID)
	}
	sort.Strings(payload.DishIDs)

	if len(req.DinerBreakdown) > 0 {
		payload.Breakdown = req.DinerBreakdown
	}

	if req.Preferences != nil {
		payload.Preferences = map[string][]string{}
		addPrefs := func(name string, set menu.PreferenceSet) {
			if len(set.Likes) > 0 {
				payload.Preferences[name+".likes"] = sortedCopy(set.Likes)
			}
			if len(set.Dislikes) > 0 {
				payload.Preferences[name+".dislikes"] = sortedCopy(set.Dislikes)
			}
		}
		addPrefs("main_ingredient", req.Preferences.MainIngredient)
		addPrefs("flavor", req.Preferences.Flavor)
		addPrefs("cooking_method", req.Preferences.CookingMethod)
		if len(payload.Preferences) == 0 {
			payload.Preferences = nil
		}
	}

	// The payload is marshal-safe by construction.
	raw, _ := json.Marshal(payload)
	sum := md5.Sum(raw)
	return hex.EncodeToString(sum[:])
}

func sortedCopy(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}
