// Package store reads and writes the flat CSV files that connect the
// classify, optimize and backtest stages.
package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/seenimoa/regimefolio/pkg/models"
	"github.com/seenimoa/regimefolio/pkg/utils"
)

// ErrBadHeader is returned when a CSV header lacks a required column.
var ErrBadHeader = errors.New("bad csv header")

// ════════════════════════════════════════════════════════════════════
// File helpers
// ════════════════════════════════════════════════════════════════════

// writeAtomic writes records to a temp file next to path and renames it
// into place, so readers never see a partial file.
func writeAtomic(path string, records [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(records); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

func readAll(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("%s: %w: empty file", path, ErrBadHeader)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	return header, rows, nil
}

func column(header []string, names ...string) int {
	for i, h := range header {
		for _, n := range names {
			if strings.EqualFold(h, n) {
				return i
			}
		}
	}
	return -1
}

// parseCell returns ok=false for empty and NaN cells.
func parseCell(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func parseLabel(s string) (models.Regime, error) {
	if strings.EqualFold(strings.TrimSpace(s), "nan") {
		return models.Unknown, nil
	}
	return models.ParseRegime(s)
}

func regimeCell(r models.Regime) string {
	if !r.Known() {
		return ""
	}
	return r.String()
}

// ════════════════════════════════════════════════════════════════════
// Regime labels: date,regime
// ════════════════════════════════════════════════════════════════════

// WriteLabels writes one row per month. Unknown months keep their row with
// an empty regime cell.
func WriteLabels(path string, labels []models.LabeledMonth) error {
	records := [][]string{{"date", "regime"}}
	for _, l := range labels {
		records = append(records, []string{utils.FormatDate(l.Date), regimeCell(l.Regime)})
	}
	return writeAtomic(path, records)
}

// ReadLabels reads a label file sorted by date. Empty, "NaN" and "Unknown"
// cells become Unknown; any other unrecognised label is an error.
func ReadLabels(path string) ([]models.LabeledMonth, error) {
	header, rows, err := readAll(path)
	if err != nil {
		return nil, err
	}
	di, ri := column(header, "date"), column(header, "regime")
	if di < 0 || ri < 0 {
		return nil, fmt.Errorf("%s: %w: need date and regime", path, ErrBadHeader)
	}

	out := make([]models.LabeledMonth, 0, len(rows))
	for n, row := range rows {
		d, err := utils.ParseDate(row[di])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, n+2, err)
		}
		r, err := parseLabel(row[ri])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, n+2, err)
		}
		out = append(out, models.LabeledMonth{Date: d, Regime: r})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// ════════════════════════════════════════════════════════════════════
// Asset returns: Date,<asset>...
// ════════════════════════════════════════════════════════════════════

// WriteReturns writes the given asset columns. A missing value is written
// as an empty cell.
func WriteReturns(path string, rows []models.ReturnRow, assets []models.Asset) error {
	header := []string{"Date"}
	for _, a := range assets {
		header = append(header, string(a))
	}
	records := [][]string{header}
	for _, r := range rows {
		rec := []string{utils.FormatDate(r.Date)}
		for _, a := range assets {
			if v, ok := r.Values[a]; ok {
				rec = append(rec, utils.FormatFloat(v))
			} else {
				rec = append(rec, "")
			}
		}
		records = append(records, rec)
	}
	return writeAtomic(path, records)
}

// ReadReturns reads a returns file. The date column may be named Date or
// date; every other column must name an asset.
func ReadReturns(path string) ([]models.ReturnRow, []models.Asset, error) {
	header, rows, err := readAll(path)
	if err != nil {
		return nil, nil, err
	}
	di := column(header, "date")
	if di < 0 {
		return nil, nil, fmt.Errorf("%s: %w: no date column", path, ErrBadHeader)
	}

	assets := make([]models.Asset, len(header))
	var order []models.Asset
	for i, h := range header {
		if i == di {
			continue
		}
		a, err := models.ParseAsset(h)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		assets[i] = a
		order = append(order, a)
	}

	out := make([]models.ReturnRow, 0, len(rows))
	for n, row := range rows {
		d, err := utils.ParseDate(row[di])
		if err != nil {
			return nil, nil, fmt.Errorf("%s line %d: %w", path, n+2, err)
		}
		vals := make(map[models.Asset]float64, len(order))
		for i, cell := range row {
			if i == di {
				continue
			}
			v, ok, err := parseCell(cell)
			if err != nil {
				return nil, nil, fmt.Errorf("%s line %d column %s: %w", path, n+2, header[i], err)
			}
			if ok {
				vals[assets[i]] = v
			}
		}
		out = append(out, models.ReturnRow{Date: d, Values: vals})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, order, nil
}

// ════════════════════════════════════════════════════════════════════
// Allocations: regime,<asset>...
// ════════════════════════════════════════════════════════════════════

// WriteAllocations writes the table in canonical regime order with one
// column per asset present in any row.
func WriteAllocations(path string, table models.AllocationTable) error {
	assets := table.Assets()
	header := []string{"regime"}
	for _, a := range assets {
		header = append(header, string(a))
	}
	records := [][]string{header}
	for _, r := range table.Regimes() {
		rec := []string{r.String()}
		for _, a := range assets {
			if w, ok := table[r][a]; ok {
				rec = append(rec, utils.FormatFloat(w))
			} else {
				rec = append(rec, "")
			}
		}
		records = append(records, rec)
	}
	return writeAtomic(path, records)
}

// ReadAllocations reads an allocation table. Unknown asset columns and
// negative weights fail immediately; empty cells leave the asset unset.
func ReadAllocations(path string) (models.AllocationTable, error) {
	header, rows, err := readAll(path)
	if err != nil {
		return nil, err
	}
	ri := column(header, "regime")
	if ri < 0 {
		return nil, fmt.Errorf("%s: %w: no regime column", path, ErrBadHeader)
	}

	table := make(models.AllocationTable, len(rows))
	for n, row := range rows {
		r, err := models.ParseRegime(row[ri])
		if err != nil || !r.Known() {
			return nil, fmt.Errorf("%s line %d: %w: %q", path, n+2, models.ErrUnknownRegimeLabel, row[ri])
		}
		raw := make(map[string]float64)
		for i, cell := range row {
			if i == ri {
				continue
			}
			v, ok, err := parseCell(cell)
			if err != nil {
				return nil, fmt.Errorf("%s line %d column %s: %w", path, n+2, header[i], err)
			}
			if ok {
				raw[header[i]] = v
			}
		}
		alloc, err := models.NewAllocation(raw)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, n+2, err)
		}
		table[r] = alloc
	}
	return table, nil
}

// ════════════════════════════════════════════════════════════════════
// Backtest: date,regime,return
// ════════════════════════════════════════════════════════════════════

// WriteBacktest writes the daily series. Undefined days have an empty
// return cell.
func WriteBacktest(path string, days []models.DailyResult) error {
	records := [][]string{{"date", "regime", "return"}}
	for _, d := range days {
		ret := ""
		if d.Defined {
			ret = utils.FormatFloat(d.Return)
		}
		records = append(records, []string{utils.FormatDate(d.Date), regimeCell(d.Regime), ret})
	}
	return writeAtomic(path, records)
}

// ReadBacktest reads a file written by WriteBacktest.
func ReadBacktest(path string) ([]models.DailyResult, error) {
	header, rows, err := readAll(path)
	if err != nil {
		return nil, err
	}
	di, gi, ti := column(header, "date"), column(header, "regime"), column(header, "return")
	if di < 0 || gi < 0 || ti < 0 {
		return nil, fmt.Errorf("%s: %w: need date, regime and return", path, ErrBadHeader)
	}

	out := make([]models.DailyResult, 0, len(rows))
	for n, row := range rows {
		d, err := utils.ParseDate(row[di])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, n+2, err)
		}
		r, err := parseLabel(row[gi])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, n+2, err)
		}
		v, ok, err := parseCell(row[ti])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, n+2, err)
		}
		out = append(out, models.DailyResult{Date: d, Regime: r, Return: v, Defined: ok})
	}
	return out, nil
}
