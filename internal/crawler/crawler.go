// Package crawler scrapes the Naver Finance theme boards into the per-day
// snapshot CSV layout the ranking engine reads.
package crawler

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"github.com/wonny/temaweb/internal/theme"
	"github.com/wonny/temaweb/pkg/config"
	"github.com/wonny/temaweb/pkg/httputil"
	"github.com/wonny/temaweb/pkg/logger"
)

const themeListPath = "/sise/theme.naver?&page=%d"

var seoul = mustLoadSeoul()

func mustLoadSeoul() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}

// Crawler produces one day directory of theme CSVs per run.
// 크롤링 단계는 항상 전체 종목을 저장한다. 삼성전자/하이닉스 제외는
// 서버 토글이고, 여기서 미리 걸러버리면 토글이 불가능해진다.
type Crawler struct {
	client  *httputil.Client
	logger  *logger.Logger
	baseURL string
	root    string
	pages   int
	workers int
}

// New creates a crawler writing below cfg.Tema.Root.
func New(cfg *config.Config, log *logger.Logger) *Crawler {
	// 네이버 금융은 과한 동시 요청에 차단으로 답한다
	client := httputil.New(cfg, log).WithRateLimit(3, 3)
	return &Crawler{
		client:  client,
		logger:  log.WithField("module", "crawler"),
		baseURL: cfg.NaverBaseURL,
		root:    cfg.Tema.Root,
		pages:   cfg.Crawl.Pages,
		workers: cfg.Crawl.Workers,
	}
}

// Run implements the refresh job: crawl every theme, write the day's CSVs
// into a staging directory, then swap it in whole. Returns a short summary.
func (c *Crawler) Run(ctx context.Context) (string, error) {
	start := time.Now()

	themes, err := c.fetchThemeList(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch theme list: %w", err)
	}
	if len(themes) == 0 {
		return "", fmt.Errorf("theme list came back empty")
	}
	c.logger.WithField("themes", len(themes)).Info("Theme list fetched")

	results := c.fetchDetails(ctx, themes)
	if len(results) == 0 {
		return "", fmt.Errorf("no theme detail pages could be parsed")
	}

	day := time.Now().In(seoul).Format("060102")
	if err := c.writeDay(day, results); err != nil {
		return "", err
	}

	summary := fmt.Sprintf("day=%s themes=%d elapsed=%s", day, len(results), time.Since(start).Round(time.Second))
	c.logger.Info("Crawl finished: " + summary)
	return summary, nil
}

// fetchThemeList walks the paginated theme board.
func (c *Crawler) fetchThemeList(ctx context.Context) ([]ThemeRef, error) {
	var all []ThemeRef
	seen := make(map[string]bool)

	for page := 1; page <= c.pages; page++ {
		doc, err := c.fetchDoc(ctx, c.baseURL+fmt.Sprintf(themeListPath, page))
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		for _, t := range parseThemeList(doc, c.baseURL) {
			if seen[t.No] {
				continue
			}
			seen[t.No] = true
			all = append(all, t)
		}
	}
	return all, nil
}

type themeResult struct {
	ref  ThemeRef
	rows []StockRow
	sum  int64
}

// fetchDetails resolves every theme's stock table through a bounded worker
// pool. Individual failures are logged and skipped, not fatal.
func (c *Crawler) fetchDetails(ctx context.Context, themes []ThemeRef) []themeResult {
	taskCh := make(chan ThemeRef, len(themes))
	var mu sync.Mutex
	var results []themeResult
	var wg sync.WaitGroup

	workers := c.workers
	if workers < 1 {
		workers = 4
	}
	if workers > len(themes) {
		workers = len(themes)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range taskCh {
				doc, err := c.fetchDoc(ctx, ref.URL)
				if err != nil {
					c.logger.WithError(err).WithField("theme", ref.Name).Warn("Theme detail fetch failed")
					continue
				}
				rows, err := parseThemeDetail(doc)
				if err != nil || len(rows) == 0 {
					c.logger.WithError(err).WithField("theme", ref.Name).Warn("Theme detail parse failed")
					continue
				}

				var sum int64
				for _, r := range rows {
					sum += theme.ToInt64(r.TradeValue)
				}

				mu.Lock()
				results = append(results, themeResult{ref: ref, rows: rows, sum: sum})
				mu.Unlock()
			}
		}()
	}

	for _, t := range themes {
		taskCh <- t
	}
	close(taskCh)
	wg.Wait()
	return results
}

// fetchDoc gets a page and decodes it from EUC-KR.
func (c *Crawler) fetchDoc(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := c.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	// finance.naver.com은 여전히 EUC-KR
	decoded := transform.NewReader(resp.Body, korean.EUCKR.NewDecoder())
	return goquery.NewDocumentFromReader(decoded)
}

// writeDay stages the whole day's CSVs and swaps the directory in one move,
// so readers never see a half-written day.
func (c *Crawler) writeDay(day string, results []themeResult) error {
	// 거래대금 합계 내림차순으로 파일명 랭크 부여, 타이브레이크는 테마명
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].sum != results[j].sum {
			return results[i].sum > results[j].sum
		}
		return results[i].ref.Name < results[j].ref.Name
	})

	if err := os.MkdirAll(c.root, 0o755); err != nil {
		return fmt.Errorf("create snapshot root: %w", err)
	}

	staging, err := os.MkdirTemp(c.root, day+".staging-")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	for rank, r := range results {
		filename := fmt.Sprintf("%d.%s_%s.csv", rank+1, sanitizeFilename(r.ref.Name), formatComma(r.sum))
		if err := writeThemeCSV(filepath.Join(staging, filename), r.rows); err != nil {
			return fmt.Errorf("write %s: %w", filename, err)
		}
	}

	if err := writeOverlapCSV(staging, results); err != nil {
		c.logger.WithError(err).Warn("Overlap CSV not written")
	}

	final := filepath.Join(c.root, day)
	if err := os.RemoveAll(final); err != nil {
		return fmt.Errorf("clear day dir: %w", err)
	}
	if err := os.Rename(staging, final); err != nil {
		return fmt.Errorf("swap day dir: %w", err)
	}
	return nil
}

var csvHeader = []string{
	theme.ColName, theme.ColCode, theme.ColPrice, theme.ColChangeRate,
	"거래대금(백만)", theme.ColVolume, theme.ColChart,
}

func writeThemeCSV(path string, rows []StockRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	// utf-8-sig: 엑셀에서 바로 열어보는 사용자가 많다
	if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{r.Name, r.Code, r.Price, r.ChangeRate, r.TradeValue, r.Volume, chartURL(r.Code)}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Sync()
}

// writeOverlapCSV builds the housekeeping file of instruments that appear in
// two or more themes, 파일명이 "00_"으로 시작해 테마 목록에서는 제외된다.
func writeOverlapCSV(dir string, results []themeResult) error {
	type entry struct {
		row    StockRow
		themes []string
	}
	byKey := make(map[string]*entry)

	for _, r := range results {
		for _, row := range r.rows {
			key := row.Code
			if key == "" {
				key = row.Name
			}
			e, ok := byKey[key]
			if !ok {
				e = &entry{row: row}
				byKey[key] = e
			}
			e.themes = append(e.themes, r.ref.Name)
		}
	}

	var entries []*entry
	for _, e := range byKey {
		if len(e.themes) >= 2 {
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		return nil
	}
	sort.Slice(entries, func(i, j int) bool {
		if len(entries[i].themes) != len(entries[j].themes) {
			return len(entries[i].themes) > len(entries[j].themes)
		}
		return entries[i].row.Name < entries[j].row.Name
	})

	f, err := os.Create(filepath.Join(dir, "00_겹치는종목_2개이상테마.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{theme.ColName, theme.ColCode, theme.ColChangeRate, "거래대금(백만)", theme.ColVolume, "겹치는 테마수", "테마목록"}); err != nil {
		return err
	}
	for _, e := range entries {
		rec := []string{
			e.row.Name, e.row.Code, e.row.ChangeRate, e.row.TradeValue, e.row.Volume,
			fmt.Sprintf("%d", len(e.themes)), strings.Join(e.themes, " | "),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
