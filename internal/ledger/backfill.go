package ledger

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/temaweb/internal/external/krx"
	"github.com/wonny/temaweb/internal/forward"
	"github.com/wonny/temaweb/pkg/dateutil"
)

// CalendarResolver is the slice of the trading-calendar resolver the
// backfill needs.
type CalendarResolver interface {
	ResolveBase(ctx context.Context, day time.Time) (time.Time, bool)
	ResolveNext(ctx context.Context, day time.Time) (time.Time, bool)
}

// ReturnSource is the slice of the forward-return joiner the backfill needs.
type ReturnSource interface {
	Enrich(ctx context.Context, codes []string, baseDay, nextDay time.Time) map[string]*forward.Return
}

// Backfill fills the five forward-return fields of a record that are still
// empty, from (날짜, 종목코드). Non-empty values are never overwritten.
// Returns true when the record changed. 실패는 조용히 건너뛴다. 기록 저장
// 자체를 막으면 안 된다.
func (l *Ledger) Backfill(ctx context.Context, rec *Record) bool {
	if l.calendar == nil || l.returns == nil {
		return false
	}

	date := strings.TrimSpace(rec.Date)
	code := strings.TrimSpace(rec.Code)
	if date == "" || code == "" {
		return false
	}

	changed := false

	// A005930 / 5930 같은 변형도 6자리로 통일
	code6 := krx.NormalizeCode(code)
	if code6 == "" {
		return false
	}
	if code6 != rec.Code {
		rec.Code = code6
		changed = true
	}

	day, ok := dateutil.ParseDay(date)
	if !ok {
		return changed
	}
	// record.csv는 yymmdd로 저장한다
	if len(strings.ReplaceAll(date, "-", "")) == 8 {
		if short := dateutil.YYYYMMDDToYYMMDD(date); short != "" && short != rec.Date {
			rec.Date = short
			changed = true
		}
	}

	// 날짜가 휴일이면 직전 거래일이 base
	base, ok := l.calendar.ResolveBase(ctx, day)
	if !ok {
		return changed
	}
	next, ok := l.calendar.ResolveNext(ctx, base)
	if !ok {
		return changed
	}

	if rec.NextTradeDate == "" {
		rec.NextTradeDate = next.Format("060102")
		changed = true
	}

	ret := l.returns.Enrich(ctx, []string{code6}, base, next)[code6]
	if ret == nil {
		return changed
	}

	if rec.NextClose == "" {
		rec.NextClose = strconv.FormatInt(ret.NextClose, 10)
		changed = true
	}
	if rec.NextHigh == "" {
		rec.NextHigh = strconv.FormatInt(ret.NextHigh, 10)
		changed = true
	}
	if rec.CloseRate == "" {
		rec.CloseRate = forward.FormatPct(ret.CloseToClose)
		changed = true
	}
	if rec.HighRate == "" {
		rec.HighRate = forward.FormatPct(ret.CloseToHigh)
		changed = true
	}
	return changed
}

// FixAll runs Backfill over every row and rewrites the file once when
// anything changed. Returns how many rows were corrected.
func (l *Ledger) FixAll(ctx context.Context) (int, error) {
	if !l.Exists() {
		return 0, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.migrateLocked(); err != nil {
		return 0, err
	}
	header, rows, err := l.readLocked()
	if err != nil {
		return 0, err
	}

	fixed := 0
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		rec := fromCSV(header, row)
		if l.Backfill(ctx, &rec) {
			fixed++
		}
		out = append(out, rec.toCSV())
	}

	if fixed == 0 {
		return 0, nil
	}
	if err := l.rewriteLocked(Columns, out); err != nil {
		return fixed, err
	}
	l.logger.WithField("fixed", fixed).Info("Backfilled ledger forward fields")
	return fixed, nil
}
