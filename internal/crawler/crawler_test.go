package crawler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/korean"

	"github.com/wonny/temaweb/internal/theme"
	"github.com/wonny/temaweb/pkg/config"
	"github.com/wonny/temaweb/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
}

func TestFetchThemeListUsesConfiguredBase(t *testing.T) {
	// 실제 페이지처럼 EUC-KR로 내려준다
	encoded, err := korean.EUCKR.NewEncoder().String(themeListHTML)
	if err != nil {
		t.Fatal(err)
	}

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		io.WriteString(w, encoded)
	}))
	defer srv.Close()

	cfg := &config.Config{
		Env:          "development",
		NaverBaseURL: srv.URL,
		Tema:         config.TemaConfig{Root: t.TempDir()},
		Crawl:        config.CrawlConfig{Pages: 1, Workers: 1},
		LogLevel:     "error",
		LogFormat:    "json",
	}
	c := New(cfg, testLogger())

	themes, err := c.fetchThemeList(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/sise/theme.naver" {
		t.Errorf("request path = %s", gotPath)
	}
	if len(themes) != 2 {
		t.Fatalf("themes = %d, want 2", len(themes))
	}
	if themes[0].No != "446" || themes[0].Name != "2차전지" {
		t.Errorf("first = %+v", themes[0])
	}
}

func TestWriteDay(t *testing.T) {
	root := t.TempDir()
	c := &Crawler{logger: testLogger(), root: root}

	shared := StockRow{Name: "에코프로", Code: "086520", ChangeRate: "+5.00%", TradeValue: "100", Volume: "10"}
	results := []themeResult{
		{ref: ThemeRef{Name: "로봇"}, sum: 100, rows: []StockRow{
			{Name: "레인보우로보틱스", Code: "277810", TradeValue: "100"},
			shared,
		}},
		{ref: ThemeRef{Name: "2차전지"}, sum: 900, rows: []StockRow{
			{Name: "LG에너지솔루션", Code: "373220", TradeValue: "800"},
			shared,
		}},
	}

	if err := c.writeDay("240115", results); err != nil {
		t.Fatal(err)
	}

	store := theme.NewStore(root, testLogger())
	files := store.ThemeFiles("240115")
	if len(files) != 2 {
		t.Fatalf("theme files = %v", files)
	}
	// 거래대금 합계가 큰 테마가 1번
	if files[0] != "1.2차전지_900.csv" || files[1] != "2.로봇_100.csv" {
		t.Errorf("files = %v", files)
	}

	snap, err := store.ReadSnapshot("240115", files[0])
	if err != nil {
		t.Fatal(err)
	}
	if !snap.TradeValueInMillions {
		t.Error("crawler header must carry the 백만 variant")
	}
	if snap.Title != "2차전지" {
		t.Errorf("title = %s", snap.Title)
	}
	if snap.Rows[0].ChartURL != "https://kr.tradingview.com/symbols/KRX-373220/" {
		t.Errorf("chart url = %s", snap.Rows[0].ChartURL)
	}

	// 2개 이상 테마에 겹치는 종목 파일 (00_ 접두사, 테마 목록에서는 제외)
	overlap := filepath.Join(root, "240115", "00_겹치는종목_2개이상테마.csv")
	data, err := os.ReadFile(overlap)
	if err != nil {
		t.Fatalf("overlap csv missing: %v", err)
	}
	if len(data) == 0 {
		t.Error("overlap csv empty")
	}

	// 재실행하면 하루치가 통째로 교체된다
	if err := c.writeDay("240115", results[:1]); err != nil {
		t.Fatal(err)
	}
	if files := store.ThemeFiles("240115"); len(files) != 1 {
		t.Errorf("day dir not replaced wholesale: %v", files)
	}
}
