package forward

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/temaweb/internal/external/krx"
	"github.com/wonny/temaweb/pkg/logger"
)

// PriceSource is the slice of the market data client the joiner needs.
type PriceSource interface {
	FetchMarketDay(ctx context.Context, day time.Time) (map[string]krx.Bar, error)
	FetchStockDay(ctx context.Context, day time.Time, code string) (*krx.Bar, bool, error)
}

// Return holds the forward-looking metrics for one instrument: the price
// change from the base trading day's close to the next trading day's close
// and high. Absence (nil) is meaningful and distinct from a zero return.
type Return struct {
	NextTradeDate time.Time `json:"next_trade_date"`
	NextClose     int64     `json:"next_close"`
	NextHigh      int64     `json:"next_high"`
	CloseToClose  float64   `json:"close_to_close"` // %
	CloseToHigh   float64   `json:"close_to_high"`  // %
}

// Joiner joins base/next daily bars onto instrument codes.
// ⭐ SSOT: 익일 수익률 계산은 이 조이너에서만
//
// Primary path is one bulk fetch per day; any code absent from the bulk
// result falls back to a per-instrument single-day fetch. The bulk source
// is flaky under load while the per-instrument endpoint is reliable, so the
// fallback triggers per missing code, never all-or-nothing.
type Joiner struct {
	source  PriceSource
	logger  *logger.Logger
	workers int

	mu   sync.Mutex
	memo map[string]krx.Bar // (day, code) -> bar, immutable historical facts
}

// NewJoiner creates a new forward-return joiner.
func NewJoiner(source PriceSource, workers int, log *logger.Logger) *Joiner {
	if workers < 1 {
		workers = 4
	}
	return &Joiner{
		source:  source,
		logger:  log.WithField("module", "forward"),
		workers: workers,
		memo:    make(map[string]krx.Bar),
	}
}

// Enrich computes forward returns for the given codes between baseDay and
// nextDay. The result maps code -> Return; codes without resolvable data
// are simply absent. Codes must already be normalized (6-digit).
func (j *Joiner) Enrich(ctx context.Context, codes []string, baseDay, nextDay time.Time) map[string]*Return {
	out := make(map[string]*Return)
	if len(codes) == 0 {
		return out
	}

	baseBulk, err := j.source.FetchMarketDay(ctx, baseDay)
	if err != nil {
		j.logger.WithError(err).Warn("Bulk fetch for base day failed")
		baseBulk = nil
	}
	nextBulk, err := j.source.FetchMarketDay(ctx, nextDay)
	if err != nil {
		j.logger.WithError(err).Warn("Bulk fetch for next day failed")
		nextBulk = nil
	}

	// Collect per-(day, code) fallback fetches for codes the bulk missed.
	var needs []fetchKey
	seen := make(map[string]bool)
	for _, code := range codes {
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		if _, ok := baseBulk[code]; !ok {
			needs = append(needs, fetchKey{baseDay, code})
		}
		if _, ok := nextBulk[code]; !ok {
			needs = append(needs, fetchKey{nextDay, code})
		}
	}

	fetched := j.fetchFallback(ctx, needs)

	lookup := func(bulk map[string]krx.Bar, day time.Time, code string) (krx.Bar, bool) {
		if bar, ok := bulk[code]; ok {
			return bar, true
		}
		bar, ok := fetched[memoKey(day, code)]
		return bar, ok
	}

	for code := range seen {
		baseBar, baseOK := lookup(baseBulk, baseDay, code)
		nextBar, nextOK := lookup(nextBulk, nextDay, code)
		if !baseOK || !nextOK {
			continue
		}
		if r := Compute(baseBar.Close, nextBar.Close, nextBar.High, nextDay); r != nil {
			out[code] = r
		}
	}

	return out
}

// fetchKey identifies one per-instrument single-day fetch
type fetchKey struct {
	day  time.Time
	code string
}

// fetchFallback resolves the per-instrument fetches through a bounded
// worker pool, consulting the memo first.
func (j *Joiner) fetchFallback(ctx context.Context, needs []fetchKey) map[string]krx.Bar {
	results := make(map[string]krx.Bar)
	if len(needs) == 0 {
		return results
	}

	// memo hits need no network
	var pending []fetchKey
	j.mu.Lock()
	for _, n := range needs {
		if bar, ok := j.memo[memoKey(n.day, n.code)]; ok {
			results[memoKey(n.day, n.code)] = bar
		} else {
			pending = append(pending, n)
		}
	}
	j.mu.Unlock()

	if len(pending) == 0 {
		return results
	}

	taskCh := make(chan fetchKey, len(pending))
	var resultMu sync.Mutex
	var wg sync.WaitGroup

	workers := j.workers
	if workers > len(pending) {
		workers = len(pending)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range taskCh {
				bar, exact, err := j.source.FetchStockDay(ctx, n.day, n.code)
				if err != nil || !exact || bar == nil {
					continue
				}

				key := memoKey(n.day, n.code)
				j.mu.Lock()
				j.memo[key] = *bar
				j.mu.Unlock()

				resultMu.Lock()
				results[key] = *bar
				resultMu.Unlock()
			}
		}()
	}

	for _, n := range pending {
		taskCh <- n
	}
	close(taskCh)
	wg.Wait()

	return results
}

// Compute derives the forward return from raw prices. It returns nil when
// baseClose is missing/zero/negative or either next-day value is missing;
// never divide by zero, never fabricate a value.
func Compute(baseClose, nextClose, nextHigh int64, nextDay time.Time) *Return {
	if baseClose <= 0 || nextClose <= 0 || nextHigh <= 0 {
		return nil
	}

	base := float64(baseClose)
	return &Return{
		NextTradeDate: nextDay,
		NextClose:     nextClose,
		NextHigh:      nextHigh,
		CloseToClose:  (float64(nextClose) - base) / base * 100.0,
		CloseToHigh:   (float64(nextHigh) - base) / base * 100.0,
	}
}

// FormatPct renders a percentage the way the snapshot CSVs do: "+1.23%".
func FormatPct(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}

func memoKey(day time.Time, code string) string {
	return day.Format("20060102") + ":" + code
}
