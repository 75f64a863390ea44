package fileloader

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"plotloader/app/interfaces"
)

// Delimited text (CSV/TSV/TXT) ingestion.
// The header row supplies the keys, blank lines are skipped and every cell
// stays a string: numeric interpretation happens later, per column.

// guessDelimiters are tried in order when the extension does not force one.
var guessDelimiters = []rune{',', '\t', '|', ';', '\x1e', '\x1f'}

const (
	// guessPreviewRecords is how many records delimiter detection looks at.
	guessPreviewRecords = 10
	// maxRecordedWarnings bounds Table.Warnings; later problems are only counted.
	maxRecordedWarnings = 100
)

// GuessDelimiter picks the candidate delimiter that splits the first records
// into the most consistent number of fields, requiring at least two fields
// per record on average. Ties go to the delimiter producing more fields.
// Comma is returned when nothing qualifies.
func GuessDelimiter(data []byte) rune {
	best := ','
	bestDelta := -1
	bestAvg := 0.0

	for _, delim := range guessDelimiters {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true

		delta, total, records := 0, 0, 0
		prev := -1
		for attempts := 0; records < guessPreviewRecords && attempts < guessPreviewRecords*2; attempts++ {
			rec, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				continue
			}
			fields := len(rec)
			total += fields
			records++
			if prev >= 0 {
				d := fields - prev
				if d < 0 {
					d = -d
				}
				delta += d
			}
			prev = fields
		}
		if records == 0 {
			continue
		}

		avg := float64(total) / float64(records)
		if avg <= 1.99 {
			continue
		}
		if bestDelta < 0 || delta < bestDelta || (delta == bestDelta && avg > bestAvg) {
			best, bestDelta, bestAvg = delim, delta, avg
		}
	}

	return best
}

// delimitedWarnings collects parse warnings for one file, logging each one
// up to maxRecordedWarnings.
type delimitedWarnings struct {
	logger   log.Logger
	source   string
	recorded []interfaces.ParseWarning
	total    int
}

func (w *delimitedWarnings) add(line int, format string, args ...any) {
	w.total++
	if len(w.recorded) >= maxRecordedWarnings {
		return
	}
	msg := fmt.Sprintf(format, args...)
	w.recorded = append(w.recorded, interfaces.ParseWarning{Line: line, Message: msg})
	level.Warn(w.logger).Log("msg", "malformed delimited row", "file", w.source, "line", line, "problem", msg)
}

func (w *delimitedWarnings) finish() []interfaces.ParseWarning {
	if w.total > len(w.recorded) {
		level.Warn(w.logger).Log("msg", "further delimited row warnings suppressed", "file", w.source, "suppressed", w.total-len(w.recorded))
	}
	return w.recorded
}

// ParseDelimited reads delimited text into a table. delim of 0 means detect it.
//
// Malformed records never fail the load: a record with a broken quote is
// skipped, a short record leaves its trailing keys absent and a long record
// loses the cells that have no header. Each case is reported as a warning.
func ParseDelimited(data []byte, source string, delim rune, logger log.Logger) (*interfaces.Table, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if delim == 0 {
		delim = GuessDelimiter(data)
	}

	table := &interfaces.Table{
		Source:    source,
		Type:      FileTypeDelimited,
		Delimiter: delim,
	}
	warnings := &delimitedWarnings{logger: logger, source: source}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delim
	// Allow variable number of fields per record to handle corrupted files
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var keys []string
	for keys == nil {
		header, err := reader.Read()
		if err == io.EOF {
			return table, nil
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, errors.Wrapf(err, "read header of %s", source)
			}
			warnings.add(perr.StartLine, "unreadable header row: %v", perr.Err)
			continue
		}
		keys = NormalizeHeaders(header)
	}

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, errors.Wrapf(err, "read %s", source)
			}
			warnings.add(perr.StartLine, "skipped record: %v", perr.Err)
			continue
		}
		line, _ := reader.FieldPos(0)

		switch {
		case len(rec) < len(keys):
			warnings.add(line, "too few fields: expected %d, got %d", len(keys), len(rec))
		case len(rec) > len(keys):
			warnings.add(line, "too many fields: expected %d, got %d", len(keys), len(rec))
		}

		n := len(rec)
		if n > len(keys) {
			n = len(keys)
		}
		row := interfaces.NewRow(n)
		for i := 0; i < n; i++ {
			row.Set(keys[i], interfaces.String(rec[i]))
		}
		table.Rows = append(table.Rows, row)
	}

	table.Warnings = warnings.finish()
	return table, nil
}
