// Package theme reads the per-day theme snapshot directory and ranks themes
// by aggregate trade value.
package theme

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/wonny/temaweb/pkg/dateutil"
	"github.com/wonny/temaweb/pkg/logger"
)

// ErrNoDates means the snapshot root holds no day directories yet.
var ErrNoDates = errors.New("no snapshot date directories")

// leadingRankRe matches the optional "1." / "01." / "123." filename prefix.
var leadingRankRe = regexp.MustCompile(`^\d{1,3}\.`)

// Store reads theme snapshots from the on-disk layout: one 6-digit yymmdd
// directory per day, one CSV per theme inside it. Snapshots are written by
// the crawler and are read-only here; a re-ingestion overwrites the whole
// day's directory.
type Store struct {
	root   string
	logger *logger.Logger
}

// NewStore creates a snapshot store rooted at root.
func NewStore(root string, log *logger.Logger) *Store {
	return &Store{
		root:   root,
		logger: log.WithField("module", "theme"),
	}
}

// Root returns the snapshot root directory.
func (s *Store) Root() string {
	return s.root
}

// Dates lists the day directories in ascending order.
func (s *Store) Dates() []string {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil
	}
	var dates []string
	for _, e := range entries {
		if e.IsDir() && dateutil.IsYYMMDD(e.Name()) {
			dates = append(dates, e.Name())
		}
	}
	sort.Strings(dates)
	return dates
}

// LatestDate returns the most recent day directory.
func (s *Store) LatestDate() (string, error) {
	dates := s.Dates()
	if len(dates) == 0 {
		return "", fmt.Errorf("%w: root=%s", ErrNoDates, s.root)
	}
	return dates[len(dates)-1], nil
}

// ThemeFiles lists the theme CSV filenames for a day, sorted, excluding the
// housekeeping files (겹치는종목 / 거래대금 TOP 등은 "00_"/"00." 접두사).
func (s *Store) ThemeFiles(day string) []string {
	entries, err := os.ReadDir(filepath.Join(s.root, day))
	if err != nil {
		return nil
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.EqualFold(filepath.Ext(name), ".csv") {
			continue
		}
		if strings.HasPrefix(name, "00_") || strings.HasPrefix(name, "00.") {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)
	return files
}

// FilePath resolves a theme filename within a day directory, rejecting
// anything that escapes it.
func (s *Store) FilePath(day, filename string) (string, error) {
	if !dateutil.IsYYMMDD(day) {
		return "", fmt.Errorf("invalid day directory %q", day)
	}
	if filename != filepath.Base(filename) || filename == "." || filename == ".." {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	return filepath.Join(s.root, day, filename), nil
}

// Snapshot is one (day, theme) CSV loaded into memory.
type Snapshot struct {
	Day      string
	Filename string
	Title    string
	Rows     []InstrumentRow

	// TradeValueInMillions marks the 거래대금(백만) header variant; only
	// comparison keys are corrected, displayed values stay as stored.
	TradeValueInMillions bool
}

// ReadSnapshot loads one theme CSV for a day.
func (s *Store) ReadSnapshot(day, filename string) (*Snapshot, error) {
	path, err := s.FilePath(day, filename)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s/%s: %w", day, filename, err)
	}
	// UTF-8 BOM 허용 (크롤러가 utf-8-sig로 쓴다)
	data = stripBOM(data)

	r := csv.NewReader(strings.NewReader(string(data)))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse snapshot %s/%s: %w", day, filename, err)
	}
	if len(records) == 0 {
		return &Snapshot{Day: day, Filename: filename, Title: ParseThemeTitle(filename)}, nil
	}

	cm := resolveColumns(records[0])
	rows := make([]InstrumentRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, newRow(cm, rec))
	}

	return &Snapshot{
		Day:                  day,
		Filename:             filename,
		Title:                ParseThemeTitle(filename),
		Rows:                 rows,
		TradeValueInMillions: cm.tradeValueInMillions,
	}, nil
}

// ParseThemeTitle derives the theme title from a snapshot filename.
// 지원 형태: "1.전기차_1,045,470.csv", "전기차_1,045,470.csv", "1.전기차.csv", "전기차.csv".
func ParseThemeTitle(filename string) string {
	base := filename
	if strings.EqualFold(filepath.Ext(base), ".csv") {
		base = base[:len(base)-4]
	}
	base = strings.TrimSpace(base)

	if leadingRankRe.MatchString(base) {
		if _, rest, ok := strings.Cut(base, "."); ok {
			base = rest
		}
	}
	if i := strings.LastIndex(base, "_"); i >= 0 {
		base = base[:i]
	}
	return strings.TrimSpace(base)
}

func stripBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}
