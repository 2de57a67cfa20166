package krx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wonny/temaweb/pkg/config"
	"github.com/wonny/temaweb/pkg/httputil"
	"github.com/wonny/temaweb/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
}

func TestFetchStockDayUsesConfiguredBase(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		io.WriteString(w, `[["날짜", "시가", "고가", "저가", "종가", "거래량"], ["20240115", 72300, 73000, 72000, 72500, 1000000]]`)
	}))
	defer srv.Close()

	cfg := &config.Config{
		Env:          "development",
		ChartBaseURL: srv.URL,
		LogLevel:     "error",
		LogFormat:    "json",
	}
	c := NewClient(cfg, httputil.New(cfg, testLogger()).DisableRetry(), testLogger())

	bar, exact, err := c.FetchStockDay(context.Background(), time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "005930")
	if err != nil {
		t.Fatal(err)
	}
	if !exact || bar == nil {
		t.Fatalf("exact = %v, bar = %v", exact, bar)
	}
	if bar.Close != 72500 || bar.High != 73000 {
		t.Errorf("bar = %+v", bar)
	}
	if !strings.Contains(gotQuery, "symbol=005930") {
		t.Errorf("query = %s", gotQuery)
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"005930", "005930"},
		{"A005930", "005930"},
		{"5930", "005930"},
		{" 000660 ", "000660"},
		{"", ""},
		{"삼성전자", ""},
		{"12", ""},
	}

	for _, tt := range tests {
		if got := NormalizeCode(tt.input); got != tt.want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseNum(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"1,234", 1234},
		{"72500", 72500},
		{"-", 0},
		{"", 0},
		{"abc", 0},
		{"-350", -350},
	}

	for _, tt := range tests {
		if got := parseNum(tt.input); got != tt.want {
			t.Errorf("parseNum(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestParseChartResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{
			name: "json array with header",
			body: `[["날짜", "시가", "고가", "저가", "종가", "거래량"], ["20240115", 72300, 73000, 72000, 72500, 1000000], ["20240116", 72500, 73500, 72300, 73000, 1200000]]`,
			want: 2,
		},
		{
			name: "single quoted variant",
			body: `[['날짜', '시가', '고가', '저가', '종가', '거래량'], ['20240115', 72300, 73000, 72000, 72500, 1000000]]`,
			want: 1,
		},
		{
			name: "empty body",
			body: "",
			want: 0,
		},
		{
			name: "unparseable body",
			body: `{"invalid": "json"}`,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bars, err := parseChartResponse(tt.body)
			if err != nil {
				t.Fatalf("parseChartResponse() error = %v", err)
			}
			if len(bars) != tt.want {
				t.Errorf("parseChartResponse() got %d bars, want %d", len(bars), tt.want)
			}
		})
	}
}

func TestParseChartJSONValues(t *testing.T) {
	rawData := [][]interface{}{
		{"날짜", "시가", "고가", "저가", "종가", "거래량"},
		{"20240115", 72300.0, 73000.0, 72000.0, 72500.0, 1000000.0},
	}

	bars := parseChartJSON(rawData)
	if len(bars) != 1 {
		t.Fatalf("got %d bars, want 1", len(bars))
	}

	bar := bars[0]
	wantDate := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if !bar.TradeDate.Equal(wantDate) {
		t.Errorf("TradeDate = %v, want %v", bar.TradeDate, wantDate)
	}
	if bar.Close != 72500 {
		t.Errorf("Close = %d, want 72500", bar.Close)
	}
	if bar.High != 73000 {
		t.Errorf("High = %d, want 73000", bar.High)
	}
}

func TestToInt64(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  int64
	}{
		{"float64", 123.45, 123},
		{"int64", int64(123), 123},
		{"string", "123", 123},
		{"invalid string", "abc", 0},
		{"nil", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toInt64(tt.input); got != tt.want {
				t.Errorf("toInt64() = %v, want %v", got, tt.want)
			}
		})
	}
}
