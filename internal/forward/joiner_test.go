package forward

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/wonny/temaweb/internal/external/krx"
	"github.com/wonny/temaweb/pkg/config"
	"github.com/wonny/temaweb/pkg/logger"
)

type fakeSource struct {
	mu         sync.Mutex
	bulk       map[string]map[string]krx.Bar // day -> code -> bar
	single     map[string]krx.Bar            // day:code -> bar
	bulkCalls  int
	stockCalls int
}

func (f *fakeSource) FetchMarketDay(ctx context.Context, day time.Time) (map[string]krx.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkCalls++
	return f.bulk[day.Format("20060102")], nil
}

func (f *fakeSource) FetchStockDay(ctx context.Context, day time.Time, code string) (*krx.Bar, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stockCalls++
	if bar, ok := f.single[day.Format("20060102")+":"+code]; ok {
		return &bar, true, nil
	}
	return nil, false, nil
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
}

func day(s string) time.Time {
	d, _ := time.Parse("20060102", s)
	return d
}

func TestCompute(t *testing.T) {
	next := day("20240116")

	tests := []struct {
		name             string
		baseClose        int64
		nextClose        int64
		nextHigh         int64
		wantNil          bool
		wantCloseToClose float64
		wantCloseToHigh  float64
	}{
		{
			name:             "plain gain",
			baseClose:        100,
			nextClose:        110,
			nextHigh:         120,
			wantCloseToClose: 10.0,
			wantCloseToHigh:  20.0,
		},
		{
			name:      "zero base close",
			baseClose: 0,
			nextClose: 110,
			nextHigh:  120,
			wantNil:   true,
		},
		{
			name:      "negative base close",
			baseClose: -5,
			nextClose: 110,
			nextHigh:  120,
			wantNil:   true,
		},
		{
			name:      "missing next close",
			baseClose: 100,
			nextClose: 0,
			nextHigh:  120,
			wantNil:   true,
		},
		{
			name:             "loss",
			baseClose:        200,
			nextClose:        190,
			nextHigh:         195,
			wantCloseToClose: -5.0,
			wantCloseToHigh:  -2.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.baseClose, tt.nextClose, tt.nextHigh, next)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("Compute() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("Compute() = nil, want a value")
			}
			if got.CloseToClose != tt.wantCloseToClose {
				t.Errorf("CloseToClose = %v, want %v", got.CloseToClose, tt.wantCloseToClose)
			}
			if got.CloseToHigh != tt.wantCloseToHigh {
				t.Errorf("CloseToHigh = %v, want %v", got.CloseToHigh, tt.wantCloseToHigh)
			}
		})
	}
}

func TestFormatPct(t *testing.T) {
	if got := FormatPct(10.0); got != "+10.00%" {
		t.Errorf("FormatPct(10) = %s, want +10.00%%", got)
	}
	if got := FormatPct(-2.5); got != "-2.50%" {
		t.Errorf("FormatPct(-2.5) = %s, want -2.50%%", got)
	}
}

func TestEnrichBulkPath(t *testing.T) {
	src := &fakeSource{
		bulk: map[string]map[string]krx.Bar{
			"20240115": {"005930": {Close: 100}},
			"20240116": {"005930": {Close: 110, High: 120}},
		},
	}

	j := NewJoiner(src, 2, testLogger())
	got := j.Enrich(context.Background(), []string{"005930"}, day("20240115"), day("20240116"))

	r, ok := got["005930"]
	if !ok {
		t.Fatal("expected forward return for 005930")
	}
	if r.CloseToClose != 10.0 || r.CloseToHigh != 20.0 {
		t.Errorf("got %+v, want close-to-close 10%%, close-to-high 20%%", r)
	}
	if src.stockCalls != 0 {
		t.Errorf("bulk path should not hit the per-stock endpoint, got %d calls", src.stockCalls)
	}
}

func TestEnrichFallbackPerMissingCode(t *testing.T) {
	// bulk has 005930 but not 000660; only the missing code falls back
	src := &fakeSource{
		bulk: map[string]map[string]krx.Bar{
			"20240115": {"005930": {Close: 100}},
			"20240116": {"005930": {Close: 110, High: 120}},
		},
		single: map[string]krx.Bar{
			"20240115:000660": {Close: 50},
			"20240116:000660": {Close: 55, High: 60},
		},
	}

	j := NewJoiner(src, 2, testLogger())
	got := j.Enrich(context.Background(), []string{"005930", "000660"}, day("20240115"), day("20240116"))

	if len(got) != 2 {
		t.Fatalf("got %d enriched codes, want 2", len(got))
	}
	if got["000660"].CloseToClose != 10.0 {
		t.Errorf("000660 CloseToClose = %v, want 10", got["000660"].CloseToClose)
	}
	if src.stockCalls != 2 {
		t.Errorf("stock calls = %d, want 2 (base+next for the one missing code)", src.stockCalls)
	}
}

func TestEnrichSkipsUnresolvable(t *testing.T) {
	src := &fakeSource{} // nothing anywhere

	j := NewJoiner(src, 2, testLogger())
	got := j.Enrich(context.Background(), []string{"005930", ""}, day("20240115"), day("20240116"))

	if len(got) != 0 {
		t.Errorf("got %d entries, want 0 (absence, not zero values)", len(got))
	}
}

func TestEnrichFallbackMemoized(t *testing.T) {
	src := &fakeSource{
		single: map[string]krx.Bar{
			"20240115:000660": {Close: 50},
			"20240116:000660": {Close: 55, High: 60},
		},
	}

	j := NewJoiner(src, 2, testLogger())
	ctx := context.Background()

	j.Enrich(ctx, []string{"000660"}, day("20240115"), day("20240116"))
	callsAfterFirst := src.stockCalls

	j.Enrich(ctx, []string{"000660"}, day("20240115"), day("20240116"))
	if src.stockCalls != callsAfterFirst {
		t.Errorf("second enrich made %d extra per-stock calls, want 0", src.stockCalls-callsAfterFirst)
	}
}
