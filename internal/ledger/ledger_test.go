package ledger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wonny/temaweb/internal/forward"
	"github.com/wonny/temaweb/pkg/config"
	"github.com/wonny/temaweb/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
}

// fakeCalendar treats every weekday as a trading day.
type fakeCalendar struct{}

func (fakeCalendar) ResolveBase(_ context.Context, day time.Time) (time.Time, bool) {
	for i := 0; i < 7; i++ {
		d := day.AddDate(0, 0, -i)
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			return d, true
		}
	}
	return time.Time{}, false
}

func (fakeCalendar) ResolveNext(_ context.Context, day time.Time) (time.Time, bool) {
	for i := 1; i <= 7; i++ {
		d := day.AddDate(0, 0, i)
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			return d, true
		}
	}
	return time.Time{}, false
}

type fakeReturns struct {
	ret *forward.Return
}

func (f *fakeReturns) Enrich(_ context.Context, codes []string, _, _ time.Time) map[string]*forward.Return {
	out := make(map[string]*forward.Return)
	if f.ret != nil {
		for _, c := range codes {
			out[c] = f.ret
		}
	}
	return out
}

func newTestLedger(t *testing.T, ret *forward.Return) *Ledger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "record.csv")
	return New(path, fakeCalendar{}, &fakeReturns{ret: ret}, testLogger())
}

func TestAppendAndListRoundTrip(t *testing.T) {
	l := newTestLedger(t, nil)

	rec := Record{
		Date:       "240115",
		ThemeTitle: "전기차",
		ThemeRank:  "1",
		Name:       "에코프로",
		Code:       "086520",
		TradeValue: "1,000",
		ChangeRate: "+5.00%",
	}
	if err := l.Append(&rec); err != nil {
		t.Fatal(err)
	}

	if rec.ID == "" || rec.SavedAt == "" {
		t.Fatalf("identifier/timestamp not assigned: %+v", rec)
	}

	got, err := l.List(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records", len(got))
	}
	if got[0] != rec {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got[0], rec)
	}
}

func TestAppendKeepsCallerID(t *testing.T) {
	l := newTestLedger(t, nil)

	rec := Record{ID: "myid", Date: "240115", Name: "A", Code: "000001"}
	if err := l.Append(&rec); err != nil {
		t.Fatal(err)
	}
	if rec.ID != "myid" {
		t.Errorf("caller-supplied id overwritten: %s", rec.ID)
	}
}

func TestListOrdering(t *testing.T) {
	l := newTestLedger(t, nil)

	for _, d := range []string{"240110", "엉망", "231201", "20240301"} {
		if err := l.Append(&Record{Date: d, Name: "X", Code: "000001"}); err != nil {
			t.Fatal(err)
		}
	}

	desc, err := l.List(false)
	if err != nil {
		t.Fatal(err)
	}
	wantDesc := []string{"20240301", "240110", "231201", "엉망"}
	for i, w := range wantDesc {
		if desc[i].Date != w {
			t.Errorf("desc[%d] = %s, want %s", i, desc[i].Date, w)
		}
	}

	asc, err := l.List(true)
	if err != nil {
		t.Fatal(err)
	}
	wantAsc := []string{"231201", "240110", "20240301", "엉망"}
	for i, w := range wantAsc {
		if asc[i].Date != w {
			t.Errorf("asc[%d] = %s, want %s (unparseable dates always last)", i, asc[i].Date, w)
		}
	}
}

func TestDelete(t *testing.T) {
	l := newTestLedger(t, nil)

	a := Record{Date: "240115", Name: "A", Code: "000001"}
	b := Record{Date: "240116", Name: "B", Code: "000002"}
	if err := l.Append(&a); err != nil {
		t.Fatal(err)
	}
	if err := l.Append(&b); err != nil {
		t.Fatal(err)
	}

	n, err := l.Delete(a.ID)
	if err != nil || n != 1 {
		t.Fatalf("Delete = %d, %v", n, err)
	}

	got, _ := l.List(false)
	if len(got) != 1 || got[0].ID != b.ID {
		t.Errorf("remaining = %+v", got)
	}

	if _, err := l.Delete(a.ID); err != ErrNotFound {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestDeleteNoFile(t *testing.T) {
	l := newTestLedger(t, nil)
	if _, err := l.Delete("x"); err != ErrNoLedger {
		t.Errorf("err = %v, want ErrNoLedger", err)
	}
}

func TestMigrateSubsetHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.csv")
	// 구버전: 기록ID 없음, 컬럼 일부만
	old := "날짜,테마명,종목명,종목코드\n240115,전기차,에코프로,086520\n"
	if err := os.WriteFile(path, []byte(old), 0o644); err != nil {
		t.Fatal(err)
	}

	l := New(path, nil, nil, testLogger())
	got, err := l.List(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records", len(got))
	}
	if got[0].ID == "" {
		t.Error("migration must assign identifiers to legacy rows")
	}
	if got[0].ThemeTitle != "전기차" || got[0].Code != "086520" {
		t.Errorf("legacy values lost: %+v", got[0])
	}

	// 파일 자체가 최신 스키마로 올라갔는지
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	firstLine := strings.SplitN(strings.TrimPrefix(string(data), "\uFEFF"), "\n", 2)[0]
	if firstLine != strings.Join(Columns, ",") {
		t.Errorf("header after migration = %s", firstLine)
	}

	// 두 번째 마이그레이션은 no-op
	if err := l.Migrate(); err != nil {
		t.Fatal(err)
	}
	again, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(again) != string(data) {
		t.Error("second migration must not rewrite the file")
	}
}

func TestMigrateForeignHeaderUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.csv")
	foreign := "날짜,메모\n240115,손으로 고친 파일\n"
	if err := os.WriteFile(path, []byte(foreign), 0o644); err != nil {
		t.Fatal(err)
	}

	l := New(path, nil, nil, testLogger())
	if err := l.Migrate(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != foreign {
		t.Error("non-subset header must be left as-is")
	}
}

func TestBackfillFillsOnlyEmptyFields(t *testing.T) {
	l := newTestLedger(t, &forward.Return{
		NextClose:    110,
		NextHigh:     120,
		CloseToClose: 10,
		CloseToHigh:  20,
	})

	rec := Record{
		Date:      "240115", // Monday
		Code:      "A005930",
		NextClose: "999", // 이미 값이 있으면 보존
	}
	if !l.Backfill(context.Background(), &rec) {
		t.Fatal("Backfill reported no change")
	}

	if rec.Code != "005930" {
		t.Errorf("code not normalized: %s", rec.Code)
	}
	if rec.NextTradeDate != "240116" {
		t.Errorf("next trade date = %s, want 240116", rec.NextTradeDate)
	}
	if rec.NextClose != "999" {
		t.Errorf("non-empty field overwritten: %s", rec.NextClose)
	}
	if rec.NextHigh != "120" || rec.CloseRate != "+10.00%" || rec.HighRate != "+20.00%" {
		t.Errorf("forward fields = %s / %s / %s", rec.NextHigh, rec.CloseRate, rec.HighRate)
	}
}

func TestBackfillConvertsLongDate(t *testing.T) {
	l := newTestLedger(t, nil)

	rec := Record{Date: "20240115", Code: "005930"}
	l.Backfill(context.Background(), &rec)
	if rec.Date != "240115" {
		t.Errorf("date = %s, want 240115", rec.Date)
	}
}

func TestBackfillWithoutDateOrCode(t *testing.T) {
	l := newTestLedger(t, nil)

	rec := Record{Name: "A"}
	if l.Backfill(context.Background(), &rec) {
		t.Error("record without date/code must be untouched")
	}
}

func TestFixAll(t *testing.T) {
	l := newTestLedger(t, &forward.Return{
		NextClose:    110,
		NextHigh:     120,
		CloseToClose: 10,
		CloseToHigh:  20,
	})

	complete := Record{
		Date: "240115", Code: "005930",
		NextTradeDate: "240116", NextClose: "110", NextHigh: "120",
		CloseRate: "+10.00%", HighRate: "+20.00%",
	}
	missing := Record{Date: "240115", Code: "000660"}
	if err := l.Append(&complete); err != nil {
		t.Fatal(err)
	}
	if err := l.Append(&missing); err != nil {
		t.Fatal(err)
	}

	fixed, err := l.FixAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if fixed != 1 {
		t.Errorf("fixed = %d, want 1 (only the incomplete row)", fixed)
	}

	got, _ := l.List(true)
	for _, r := range got {
		if r.NextClose == "" || r.CloseRate == "" {
			t.Errorf("row still missing forward fields: %+v", r)
		}
	}
}
