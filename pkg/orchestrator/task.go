package orchestrator

import (
	"encoding/json"
	"time"

	"github.com/menuforge/menuforge/pkg/menu"
)

const (
	planCachePrefix = "plan_cache:"
	taskKeyPrefix   = "task_result:"
)

// TaskStatus is the lifecycle state of a planning task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "PENDING"
	StatusProcessing TaskStatus = "PROCESSING"
	StatusSuccess    TaskStatus = "SUCCESS"
	StatusFailed     TaskStatus = "FAILED"
)

// TaskRecord is the persisted state of a task, stored verbatim under
// its task key and returned as-is by Poll.
type TaskRecord struct {
	TaskID    string          `json:"task_id"`
	Status    TaskStatus      `json:"status"`
	Plans     []menu.MenuPlan `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// cacheEntry is what lives under a plan cache key. While a task owns
// the lock only TaskID is set; once it succeeds the entry carries the
// finished plans.
type cacheEntry struct {
	TaskID string          `json:"task_id,omitempty"`
	Plans  []menu.MenuPlan `json:"plans,omitempty"`
}

// parseCacheEntry reports ok=false for entries that cannot be decoded
// or that carry neither a lock marker nor a result. Such entries are
// treated as absent by the caller.
func parseCacheEntry(raw string) (cacheEntry, bool) {
	var entry cacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return cacheEntry{}, false
	}
	if entry.TaskID == "" && len(entry.Plans) == 0 {
		return cacheEntry{}, false
	}
	return entry, true
}

func taskKey(taskID string) string {
	return taskKeyPrefix + taskID
}

func cacheKey(fingerprint string) string {
	return planCachePrefix + fingerprint
}
