package theme

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/wonny/temaweb/pkg/config"
	"github.com/wonny/temaweb/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
}

func writeSnapshot(t *testing.T, root, day, filename, content string) {
	t.Helper()
	dir := filepath.Join(root, day)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	// 크롤러와 동일하게 BOM을 붙여 저장
	if err := os.WriteFile(filepath.Join(dir, filename), append([]byte("\xef\xbb\xbf"), content...), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParseThemeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.전기차_1,045,470.csv", "전기차"},
		{"전기차_1,045,470.csv", "전기차"},
		{"1.전기차.csv", "전기차"},
		{"전기차.csv", "전기차"},
		{"01.2차전지_999.csv", "2차전지"},
		{"123.로봇_1.csv", "로봇"},
	}
	for _, tt := range tests {
		if got := ParseThemeTitle(tt.in); got != tt.want {
			t.Errorf("ParseThemeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1,234", 1234},
		{"+5.67%", 5.67},
		{"-3.2%", -3.2},
		{"", 0},
		{"없음", 0},
		{" 42 ", 42},
	}
	for _, tt := range tests {
		if got := ToFloat(tt.in); got != tt.want {
			t.Errorf("ToFloat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestResolveColumns(t *testing.T) {
	cm := resolveColumns([]string{"종목명", "종목코드", "등락률", "거래대금(백만)", "거래량"})
	if cm.name != 0 || cm.code != 1 || cm.changeRate != 2 || cm.tradeValue != 3 || cm.volume != 4 {
		t.Errorf("unexpected indexes: %+v", cm)
	}
	if !cm.tradeValueInMillions {
		t.Error("거래대금(백만) should set the millions flag")
	}
	if cm.price != -1 || cm.chart != -1 {
		t.Error("absent columns must resolve to -1")
	}

	plain := resolveColumns([]string{"거래대금"})
	if plain.tradeValueInMillions {
		t.Error("plain 거래대금 must not set the millions flag")
	}
}

func TestIsDominant(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"삼성전자", true},
		{"삼성전자우", true},
		{"SK하이닉스", true},
		{"SK하이닉스우", false},
		{"삼성SDI", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsDominant(tt.name); got != tt.want {
			t.Errorf("IsDominant(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestStoreDatesAndThemeFiles(t *testing.T) {
	root := t.TempDir()
	writeSnapshot(t, root, "240115", "1.전기차_100.csv", "종목명,거래대금\nA,10\n")
	writeSnapshot(t, root, "240116", "1.로봇_200.csv", "종목명,거래대금\nB,20\n")
	writeSnapshot(t, root, "240116", "00_겹치는종목.csv", "종목명\nX\n")
	writeSnapshot(t, root, "240116", "00.거래대금TOP.csv", "종목명\nY\n")
	if err := os.MkdirAll(filepath.Join(root, "notes"), 0o755); err != nil {
		t.Fatal(err)
	}

	s := NewStore(root, testLogger())

	if got := s.Dates(); !reflect.DeepEqual(got, []string{"240115", "240116"}) {
		t.Errorf("Dates() = %v", got)
	}

	latest, err := s.LatestDate()
	if err != nil || latest != "240116" {
		t.Errorf("LatestDate() = %q, %v", latest, err)
	}

	files := s.ThemeFiles("240116")
	if !reflect.DeepEqual(files, []string{"1.로봇_200.csv"}) {
		t.Errorf("ThemeFiles() = %v, housekeeping files must be excluded", files)
	}
}

func TestLatestDateEmpty(t *testing.T) {
	s := NewStore(t.TempDir(), testLogger())
	if _, err := s.LatestDate(); err == nil {
		t.Error("LatestDate() on empty root should fail")
	}
}

func TestReadSnapshot(t *testing.T) {
	root := t.TempDir()
	writeSnapshot(t, root, "240115", "1.전기차_300.csv",
		"종목명,종목코드,등락률,거래대금(백만),현재가\n에코프로,086520,+5.00%,\"1,000\",100000\nLG엔솔,373220,-1.00%,500,400000\n")

	s := NewStore(root, testLogger())
	snap, err := s.ReadSnapshot("240115", "1.전기차_300.csv")
	if err != nil {
		t.Fatal(err)
	}

	if snap.Title != "전기차" {
		t.Errorf("Title = %q", snap.Title)
	}
	if !snap.TradeValueInMillions {
		t.Error("millions flag not detected")
	}
	if len(snap.Rows) != 2 {
		t.Fatalf("got %d rows", len(snap.Rows))
	}

	r := snap.Rows[0]
	if r.Name != "에코프로" || r.Code != "086520" || r.TradeValue != "1,000" {
		t.Errorf("row = %+v", r)
	}
	if r.Raw["현재가"] != "100000" {
		t.Errorf("raw passthrough missing: %v", r.Raw)
	}
}

func TestRankThemesTieBreakAndExclusion(t *testing.T) {
	root := t.TempDir()
	// 동률 500: 타이브레이크는 title 오름차순
	writeSnapshot(t, root, "240115", "2.Batteries_500.csv", "종목명,거래대금\nA,500\n")
	writeSnapshot(t, root, "240115", "1.Autos_500.csv", "종목명,거래대금\nB,500\n")
	// 삼성전자를 빼면 100, 포함하면 9100
	writeSnapshot(t, root, "240115", "3.반도체_9100.csv", "종목명,거래대금\n삼성전자,9000\n한미반도체,100\n")

	s := NewStore(root, testLogger())

	all := s.RankThemes("240115", false)
	if len(all) != 3 {
		t.Fatalf("got %d themes", len(all))
	}
	if all[0].Title != "반도체" || all[0].TradeSum != 9100 {
		t.Errorf("rank 1 = %+v", all[0])
	}
	if all[1].Title != "Autos" || all[2].Title != "Batteries" {
		t.Errorf("tie-break order = %s, %s; want Autos then Batteries", all[1].Title, all[2].Title)
	}

	filtered := s.RankThemes("240115", true)
	if filtered[len(filtered)-1].Title != "반도체" || filtered[len(filtered)-1].TradeSum != 100 {
		t.Errorf("dominant exclusion must shrink 반도체 to 100: %+v", filtered)
	}

	// 입력이 그대로면 순서도 그대로
	again := s.RankThemes("240115", false)
	if !reflect.DeepEqual(all, again) {
		t.Error("repeated ranking over unchanged files must be identical")
	}
}

func TestTradeSumMillionsCorrection(t *testing.T) {
	rows := []InstrumentRow{{TradeValue: "2"}, {TradeValue: "3"}, {TradeValue: "엉망"}}
	if got := TradeSum(rows, false); got != 5 {
		t.Errorf("TradeSum plain = %d, want 5", got)
	}
	if got := TradeSum(rows, true); got != 5_000_000 {
		t.Errorf("TradeSum millions = %d, want 5000000", got)
	}
}

func TestSortRows(t *testing.T) {
	rows := []InstrumentRow{
		{Name: "A", ChangeRate: "+1.00%", TradeValue: "300", Volume: "10"},
		{Name: "B", ChangeRate: "+9.00%", TradeValue: "100", Volume: "30"},
		{Name: "C", ChangeRate: "", TradeValue: "200", Volume: "20"},
	}

	byChange := SortRows(rows, SortByChangeRate, false)
	if byChange[0].Name != "B" || byChange[2].Name != "C" {
		t.Errorf("change-rate sort = %v (malformed must sink)", names(byChange))
	}

	byTrade := SortRows(rows, SortByTradeValue, false)
	if byTrade[0].Name != "A" || byTrade[1].Name != "C" {
		t.Errorf("trade-value sort = %v", names(byTrade))
	}

	byVolume := SortRows(rows, SortByVolume, false)
	if byVolume[0].Name != "B" {
		t.Errorf("volume sort = %v", names(byVolume))
	}

	if rows[0].Name != "A" {
		t.Error("SortRows must not mutate its input")
	}
}

func TestSortRowsGarbageSinksBelowNegatives(t *testing.T) {
	rows := []InstrumentRow{
		{Name: "하락주", ChangeRate: "-3.20%", TradeValue: "0", Volume: "0"},
		{Name: "쓰레기", ChangeRate: "상한가", TradeValue: "N/A", Volume: "보합"},
		{Name: "상승주", ChangeRate: "+0.10%", TradeValue: "10", Volume: "5"},
	}

	for _, key := range []SortKey{SortByChangeRate, SortByTradeValue, SortByVolume} {
		got := SortRows(rows, key, false)
		if got[2].Name != "쓰레기" {
			t.Errorf("key %s: %v (non-numeric cell must rank below real lows)", key, names(got))
		}
		if got[0].Name != "상승주" {
			t.Errorf("key %s: %v", key, names(got))
		}
	}
}

func TestParseSortKey(t *testing.T) {
	tests := []struct {
		in   string
		want SortKey
	}{
		{"tradevalue", SortByTradeValue},
		{"거래대금", SortByTradeValue},
		{"volume", SortByVolume},
		{"changerate", SortByChangeRate},
		{"", SortByChangeRate},
		{"nonsense", SortByChangeRate},
	}
	for _, tt := range tests {
		if got := ParseSortKey(tt.in); got != tt.want {
			t.Errorf("ParseSortKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func names(rows []InstrumentRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Name
	}
	return out
}
