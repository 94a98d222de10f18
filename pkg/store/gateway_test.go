package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/menuforge/menuforge/pkg/menu"
	"github.com/menuforge/menuforge/pkg/telemetry"
)

// timeoutErr satisfies net.Error, standing in for a transport failure.
type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

// fakeCommands is an in-memory Commands implementation with failure
// injection: the next failN calls return failErr before succeeding.
type fakeCommands struct {
	data    map[string]string
	failN   int
	failErr error
	calls   int
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{data: map[string]string{}, failErr: timeoutErr{}}
}

func (f *fakeCommands) failing() error {
	f.calls++
	if f.failN > 0 {
		f.failN--
		return f.failErr
	}
	return nil
}

func (f *fakeCommands) Get(ctx context.Context, key string) *redis.StringCmd {
	if err := f.failing(); err != nil {
		return redis.NewStringResult("", err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCommands) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if err := f.failing(); err != nil {
		return redis.NewStatusResult("", err)
	}
	f.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCommands) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	if err := f.failing(); err != nil {
		return redis.NewBoolResult(false, err)
	}
	if _, exists := f.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	if err := f.failing(); err != nil {
		return redis.NewIntResult(0, err)
	}
	n := int64(0)
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeCommands) Ping(ctx context.Context) *redis.StatusCmd {
	if err := f.failing(); err != nil {
		return redis.NewStatusResult("", err)
	}
	return redis.NewStatusResult("PONG", nil)
}

func testGateway(f *fakeCommands) *Gateway {
	cfg := RetryConfig{
		MaxRetries:     2,
		BaseDelay:      time.Millisecond,
		MaxDelay:       4 * time.Millisecond,
		HealthInterval: time.Hour,
	}
	return NewGateway(f, cfg, telemetry.NopLogger())
}

func TestGetSetDeleteRoundTrip(t *testing.T) {
	f := newFakeCommands()
	g := testGateway(f)
	ctx := context.Background()

	if _, found, err := g.Get(ctx, "k"); err != nil || found {
		t.Fatalf("absent key: found=%v err=%v", found, err)
	}

	if err := g.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, found, err := g.Get(ctx, "k")
	if err != nil || !found || v != "v" {
		t.Fatalf("Get = %q, %v, %v; want v, true, nil", v, found, err)
	}

	if err := g.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found, _ := g.Get(ctx, "k"); found {
		t.Fatal("key survived Delete")
	}
}

func TestSetIfAbsentIsExclusive(t *testing.T) {
	f := newFakeCommands()
	g := testGateway(f)
	ctx := context.Background()

	won, err := g.SetIfAbsent(ctx, "lock", "a", time.Minute)
	if err != nil || !won {
		t.Fatalf("first SetIfAbsent = %v, %v; want true, nil", won, err)
	}
	won, err = g.SetIfAbsent(ctx, "lock", "b", time.Minute)
	if err != nil || won {
		t.Fatalf("second SetIfAbsent = %v, %v; want false, nil", won, err)
	}
	if f.data["lock"] != "a" {
		t.Fatalf("lock value = %q, want a", f.data["lock"])
	}
}

func TestRetriesConnectivityFailures(t *testing.T) {
	f := newFakeCommands()
	f.data["k"] = "v"
	f.failN = 2 // within the retry budget
	g := testGateway(f)

	v, found, err := g.Get(context.Background(), "k")
	if err != nil || !found || v != "v" {
		t.Fatalf("Get after transient failures = %q, %v, %v", v, found, err)
	}
	if f.calls != 3 {
		t.Fatalf("calls = %d, want 3", f.calls)
	}
}

func TestRetryExhaustionYieldsConnectivityError(t *testing.T) {
	f := newFakeCommands()
	f.failN = 10 // beyond the budget
	g := testGateway(f)

	_, _, err := g.Get(context.Background(), "k")
	if !menu.IsConnectivity(err) {
		t.Fatalf("want connectivity-class error, got %v", err)
	}
	if f.calls != 3 { // initial + 2 retries
		t.Fatalf("calls = %d, want 3", f.calls)
	}
}

func TestNonConnectivityErrorsAreNotRetried(t *testing.T) {
	f := newFakeCommands()
	f.failN = 1
	f.failErr = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")
	g := testGateway(f)

	_, _, err := g.Get(context.Background(), "k")
	if err == nil || menu.IsConnectivity(err) {
		t.Fatalf("want immediate non-connectivity error, got %v", err)
	}
	if f.calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry)", f.calls)
	}
}

func TestGetOrFallback(t *testing.T) {
	f := newFakeCommands()
	f.failN = 10
	g := testGateway(f)

	v, found := g.GetOrFallback(context.Background(), "k", "fallback")
	if found || v != "fallback" {
		t.Fatalf("GetOrFallback = %q, %v; want fallback, false", v, found)
	}
}

func TestHealthProbeIsRateLimited(t *testing.T) {
	f := newFakeCommands()
	g := testGateway(f)
	ctx := context.Background()

	if !g.Healthy(ctx) {
		t.Fatal("healthy store reported unhealthy")
	}
	pings := f.calls

	// Within the probe window the cached verdict is reused, even though
	// the store would now fail.
	f.failN = 10
	for i := 0; i < 5; i++ {
		if !g.Healthy(ctx) {
			t.Fatal("cached health verdict not reused inside probe window")
		}
	}
	if f.calls != pings {
		t.Fatalf("probe pinged %d extra times inside the window", f.calls-pings)
	}
}
