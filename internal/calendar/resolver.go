package calendar

import (
	"context"
	"sync"
	"time"

	"github.com/wonny/temaweb/internal/external/krx"
	"github.com/wonny/temaweb/pkg/logger"
)

// probeWindowDays bounds the backward/forward scan. 60일 넘게 연속 휴장은 없다.
const probeWindowDays = 60

// PriceProber is the slice of the market data client the resolver needs.
type PriceProber interface {
	FetchStockDay(ctx context.Context, day time.Time, code string) (*krx.Bar, bool, error)
}

// Resolver answers "what is the base/next trading day" by probing the price
// source with a fixed reference instrument and requiring an exact date match.
// ⭐ SSOT: 거래일 판정은 이 리졸버에서만
//
// Resolved facts for past dates never change, so successful resolutions are
// memoized for process lifetime. Misses are not memoized: "no next trading
// day yet" becomes true tomorrow.
type Resolver struct {
	source  PriceProber
	logger  *logger.Logger
	refCode string

	mu       sync.Mutex
	baseMemo map[string]time.Time
	nextMemo map[string]time.Time
}

// NewResolver creates a new trading-calendar resolver.
// refCode is the reference instrument probed for every candidate day; it is
// assumed (not guaranteed) to trade on every market trading day, so every
// probe is logged at debug level to keep that assumption observable.
func NewResolver(source PriceProber, refCode string, log *logger.Logger) *Resolver {
	return &Resolver{
		source:   source,
		logger:   log.WithField("module", "calendar"),
		refCode:  refCode,
		baseMemo: make(map[string]time.Time),
		nextMemo: make(map[string]time.Time),
	}
}

// ResolveBase scans backward from day (inclusive) and returns the most
// recent trading day. ok=false means no trading day within the window;
// callers treat this as data temporarily unavailable, not a hard error.
func (r *Resolver) ResolveBase(ctx context.Context, day time.Time) (time.Time, bool) {
	day = truncateDay(day)
	key := day.Format("20060102")

	r.mu.Lock()
	if hit, ok := r.baseMemo[key]; ok {
		r.mu.Unlock()
		return hit, true
	}
	r.mu.Unlock()

	for i := 0; i < probeWindowDays; i++ {
		d := day.AddDate(0, 0, -i)
		if r.probe(ctx, d) {
			r.mu.Lock()
			r.baseMemo[key] = d
			r.mu.Unlock()
			return d, true
		}
	}

	r.logger.WithField("day", key).Warn("No base trading day within probe window")
	return time.Time{}, false
}

// ResolveNext scans forward from a known trading day and returns the first
// trading day strictly after it.
func (r *Resolver) ResolveNext(ctx context.Context, day time.Time) (time.Time, bool) {
	day = truncateDay(day)
	key := day.Format("20060102")

	r.mu.Lock()
	if hit, ok := r.nextMemo[key]; ok {
		r.mu.Unlock()
		return hit, true
	}
	r.mu.Unlock()

	for i := 1; i < probeWindowDays; i++ {
		d := day.AddDate(0, 0, i)
		if r.probe(ctx, d) {
			r.mu.Lock()
			r.nextMemo[key] = d
			r.mu.Unlock()
			return d, true
		}
	}

	r.logger.WithField("day", key).Warn("No next trading day within probe window")
	return time.Time{}, false
}

// probe returns true when the reference instrument has a bar dated exactly d.
// 일부 시세 소스는 휴장일에 인접 거래일 데이터를 대신 돌려주므로,
// 정확히 일치할 때만 거래일로 인정한다.
func (r *Resolver) probe(ctx context.Context, d time.Time) bool {
	bar, exact, err := r.source.FetchStockDay(ctx, d, r.refCode)
	if err != nil {
		// probe failure = no data for this candidate, keep scanning
		r.logger.WithError(err).WithField("day", d.Format("20060102")).Debug("Calendar probe failed")
		return false
	}

	r.logger.WithFields(map[string]interface{}{
		"day":      d.Format("20060102"),
		"ref_code": r.refCode,
		"exact":    exact,
	}).Debug("Calendar probe")

	return exact && bar != nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
