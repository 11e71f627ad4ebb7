package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"smarttrading/internal/model"
)

type stubExecutor struct {
	mu       sync.Mutex
	seen     []string
	times    []time.Time
	failFor  map[string]error
	panicFor string
}

func (s *stubExecutor) Process(_ context.Context, alert model.Alert, ec model.ExecutionContext) (*model.TradeRecord, error) {
	s.mu.Lock()
	s.seen = append(s.seen, ec.AccountID)
	s.times = append(s.times, time.Now())
	s.mu.Unlock()

	if ec.AccountID == s.panicFor {
		panic("boom")
	}
	if err := s.failFor[ec.AccountID]; err != nil {
		return nil, err
	}
	return &model.TradeRecord{TradeID: alert.TradeID, AccountID: ec.AccountID, Success: true}, nil
}

func contexts(ids ...string) []model.ExecutionContext {
	out := make([]model.ExecutionContext, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.ExecutionContext{AccountID: id})
	}
	return out
}

func TestSequentialDispatch(t *testing.T) {
	ex := &stubExecutor{}
	d := New(ex, 20*time.Millisecond, 1)

	records := d.Dispatch(context.Background(), model.Alert{TradeID: "t1"}, contexts("a", "b", "c"))
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if ex.seen[0] != "a" || ex.seen[1] != "b" || ex.seen[2] != "c" {
		t.Errorf("sequential order broken: %v", ex.seen)
	}
	// 账户间要有间隔
	if gap := ex.times[1].Sub(ex.times[0]); gap < 15*time.Millisecond {
		t.Errorf("inter-account delay too short: %v", gap)
	}
}

func TestAccountIsolation(t *testing.T) {
	ex := &stubExecutor{
		failFor:  map[string]error{"b": errors.New("exchange down")},
		panicFor: "c",
	}
	d := New(ex, 0, 1)

	records := d.Dispatch(context.Background(), model.Alert{TradeID: "t1"}, contexts("a", "b", "c", "d"))
	// b返回错误，c panic，a和d照常处理
	if len(ex.seen) != 4 {
		t.Fatalf("all accounts must be attempted, got %v", ex.seen)
	}
	succeeded := 0
	for _, r := range records {
		if r != nil && r.Success {
			succeeded++
		}
	}
	if succeeded != 2 {
		t.Errorf("succeeded = %d, want 2 (a and d)", succeeded)
	}
}

func TestPooledDispatch(t *testing.T) {
	ex := &stubExecutor{}
	d := New(ex, 0, 3)

	records := d.Dispatch(context.Background(), model.Alert{TradeID: "t1"}, contexts("a", "b", "c", "d", "e"))
	if len(records) != 5 {
		t.Fatalf("got %d records, want 5", len(records))
	}
	if len(ex.seen) != 5 {
		t.Errorf("all accounts must be processed, got %v", ex.seen)
	}
}

func TestDispatchCancellation(t *testing.T) {
	ex := &stubExecutor{}
	d := New(ex, 50*time.Millisecond, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	records := d.Dispatch(ctx, model.Alert{TradeID: "t1"}, contexts("a", "b", "c", "d", "e"))
	if len(records) >= 5 {
		t.Errorf("cancellation should stop remaining accounts, processed %d", len(records))
	}
}

func TestEmptyContexts(t *testing.T) {
	d := New(&stubExecutor{}, 0, 1)
	if records := d.Dispatch(context.Background(), model.Alert{}, nil); records != nil {
		t.Errorf("expected nil records, got %v", records)
	}
}
