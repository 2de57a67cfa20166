// Package ledger is the durable record store behind the "기록" button:
// a flat CSV of flagged recommendations with schema migration, atomic
// rewrites and a single writer lock.
package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wonny/temaweb/pkg/dateutil"
	"github.com/wonny/temaweb/pkg/logger"
)

var (
	// ErrNotFound means a delete matched zero rows.
	ErrNotFound = errors.New("record not found")
	// ErrNoLedger means the ledger file does not exist yet.
	ErrNoLedger = errors.New("ledger file does not exist")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Ledger owns record.csv. Every mutation is serialized behind mu and every
// rewrite goes through a temp file + rename, so readers never see a torn
// file. 읽기 전에도 스키마 마이그레이션을 먼저 돌린다.
type Ledger struct {
	path     string
	logger   *logger.Logger
	calendar CalendarResolver
	returns  ReturnSource

	mu sync.Mutex
}

// New creates a ledger at path. calendar and returns drive the forward-field
// backfill; both may be nil, which disables backfill only.
func New(path string, cal CalendarResolver, ret ReturnSource, log *logger.Logger) *Ledger {
	return &Ledger{
		path:     path,
		logger:   log.WithField("module", "ledger"),
		calendar: cal,
		returns:  ret,
	}
}

// Path returns the on-disk location of record.csv.
func (l *Ledger) Path() string {
	return l.path
}

// Exists reports whether the ledger file has been created.
func (l *Ledger) Exists() bool {
	info, err := os.Stat(l.path)
	return err == nil && !info.IsDir()
}

// Append writes one record, creating the file (with header) on first use.
// A missing identifier or timestamp is assigned here, never by the caller.
func (l *Ledger) Append(rec *Record) error {
	if strings.TrimSpace(rec.ID) == "" {
		rec.ID = NewID()
	}
	if strings.TrimSpace(rec.SavedAt) == "" {
		rec.SavedAt = time.Now().Format("2006-01-02 15:04:05")
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.migrateLocked(); err != nil {
		return err
	}

	newFile := true
	if info, err := os.Stat(l.path); err == nil && info.Size() > 0 {
		newFile = false
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	if newFile {
		if _, err := f.Write(utf8BOM); err != nil {
			return fmt.Errorf("write ledger header: %w", err)
		}
	}

	w := csv.NewWriter(f)
	if newFile {
		if err := w.Write(Columns); err != nil {
			return fmt.Errorf("write ledger header: %w", err)
		}
	}
	if err := w.Write(rec.toCSV()); err != nil {
		return fmt.Errorf("write ledger row: %w", err)
	}
	w.Flush()
	return w.Error()
}

// List returns all records ordered by the date column: descending by
// default, ascending on request. Rows with an unparseable date sort last
// either way.
func (l *Ledger) List(asc bool) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listLocked(asc)
}

func (l *Ledger) listLocked(asc bool) ([]Record, error) {
	if !l.Exists() {
		return []Record{}, nil
	}
	if err := l.migrateLocked(); err != nil {
		return nil, err
	}

	header, rows, err := l.readLocked()
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, fromCSV(header, row))
	}
	sortRecords(records, asc)
	return records, nil
}

func sortRecords(records []Record, asc bool) {
	sort.SliceStable(records, func(i, j int) bool {
		ki, kj := dateutil.SortKey(records[i].Date), dateutil.SortKey(records[j].Date)
		// 빈/깨진 날짜는 정렬 방향과 무관하게 맨 뒤
		if (ki == "") != (kj == "") {
			return kj == ""
		}
		if ki == kj {
			return false
		}
		if asc {
			return ki < kj
		}
		return ki > kj
	})
}

// Delete removes the rows whose 기록ID equals id and rewrites the file
// atomically. ErrNotFound when nothing matched.
func (l *Ledger) Delete(id string) (int, error) {
	if strings.TrimSpace(id) == "" {
		return 0, fmt.Errorf("empty record id")
	}
	if !l.Exists() {
		return 0, ErrNoLedger
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

	idCol := -1
	for i, h := range header {
		if h == "기록ID" {
			idCol = i
			break
		}
	}
	if idCol < 0 {
		return 0, fmt.Errorf("ledger has no 기록ID column")
	}

	kept := make([][]string, 0, len(rows))
	for _, row := range rows {
		if idCol < len(row) && row[idCol] == id {
			continue
		}
		kept = append(kept, row)
	}
	deleted := len(rows) - len(kept)
	if deleted == 0 {
		return 0, ErrNotFound
	}

	if err := l.rewriteLocked(header, kept); err != nil {
		return 0, err
	}
	l.logger.WithFields(map[string]interface{}{"record_id": id, "deleted": deleted}).Info("Deleted ledger record")
	return deleted, nil
}

// Migrate runs the schema check outside of any other operation, for callers
// that want migration eagerly (startup, record fix command).
func (l *Ledger) Migrate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.migrateLocked()
}

// migrateLocked upgrades an older-schema file in place: a header that is a
// strict subset of Columns gets the missing columns appended empty and
// blank identifiers backfilled. A header that is NOT a subset is left
// untouched (user-edited file, 보수적으로 그대로 둔다). Idempotent.
func (l *Ledger) migrateLocked() error {
	info, err := os.Stat(l.path)
	if err != nil || info.Size() == 0 {
		return nil
	}

	header, rows, err := l.readLocked()
	if err != nil {
		return err
	}
	if len(header) == 0 || equalHeader(header, Columns) {
		return nil
	}
	if !subsetOf(header, Columns) {
		l.logger.WithField("header", strings.Join(header, ",")).Debug("Foreign ledger header, migration skipped")
		return nil
	}

	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		rec := fromCSV(header, row)
		if strings.TrimSpace(rec.ID) == "" {
			rec.ID = NewID()
		}
		out = append(out, rec.toCSV())
	}

	if err := l.rewriteLocked(Columns, out); err != nil {
		return err
	}
	l.logger.WithFields(map[string]interface{}{
		"from_columns": len(header),
		"to_columns":   len(Columns),
		"rows":         len(out),
	}).Info("Migrated ledger schema")
	return nil
}

func (l *Ledger) readLocked() ([]string, [][]string, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, nil, fmt.Errorf("read ledger: %w", err)
	}
	if len(data) >= 3 && data[0] == utf8BOM[0] && data[1] == utf8BOM[1] && data[2] == utf8BOM[2] {
		data = data[3:]
	}

	r := csv.NewReader(strings.NewReader(string(data)))
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse ledger: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, nil
	}

	header := make([]string, len(all[0]))
	for i, h := range all[0] {
		header[i] = strings.TrimSpace(h)
	}
	return header, all[1:], nil
}

// rewriteLocked writes the whole file to a temp sibling and renames it over
// the original. 중간에 죽어도 반쪽짜리 파일은 남지 않는다.
func (l *Ledger) rewriteLocked(header []string, rows [][]string) error {
	tmp := l.path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open temp ledger: %w", err)
	}

	write := func() error {
		if _, err := f.Write(utf8BOM); err != nil {
			return err
		}
		w := csv.NewWriter(f)
		if err := w.Write(header); err != nil {
			return err
		}
		for _, row := range rows {
			if err := w.Write(row); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	}

	if err := write(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write temp ledger: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp ledger: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

func equalHeader(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func subsetOf(header, full []string) bool {
	set := make(map[string]bool, len(full))
	for _, c := range full {
		set[c] = true
	}
	for _, h := range header {
		if !set[h] {
			return false
		}
	}
	return true
}
