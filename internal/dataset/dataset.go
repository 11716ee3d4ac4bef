package dataset

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// ErrEmpty indicates the source produced no rows.
	ErrEmpty = errors.New("dataset: no records")
	// ErrDuplicateDate indicates two rows share a calendar date.
	ErrDuplicateDate = errors.New("dataset: duplicate date")
	// ErrMissingColumn indicates a required column is absent from the source.
	ErrMissingColumn = errors.New("dataset: missing required column")
)

// Dataset is the immutable, date-ordered record set shared by every view.
type Dataset struct {
	records []MarketRecord
	index   map[string]int
	source  string
}

// New sorts records by date and indexes them. At most one record per date is allowed.
func New(source string, records []MarketRecord) (*Dataset, error) {
	if len(records) == 0 {
		return nil, ErrEmpty
	}

	sorted := make([]MarketRecord, len(records))
	copy(sorted, records)
	for i := range sorted {
		sorted[i].Date = Day(sorted[i].Date)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	index := make(map[string]int, len(sorted))
	for i, rec := range sorted {
		key := FormatDate(rec.Date)
		if _, dup := index[key]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDate, key)
		}
		index[key] = i
	}

	return &Dataset{records: sorted, index: index, source: source}, nil
}

// Source describes where the records were loaded from.
func (d *Dataset) Source() string {
	return d.source
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.records)
}

// Records returns a copy of all records in ascending date order.
func (d *Dataset) Records() []MarketRecord {
	out := make([]MarketRecord, len(d.records))
	copy(out, d.records)
	return out
}

// First returns the earliest record.
func (d *Dataset) First() MarketRecord {
	return d.records[0]
}

// Last returns the most recent record.
func (d *Dataset) Last() MarketRecord {
	return d.records[len(d.records)-1]
}

// Range returns the first and last dates present.
func (d *Dataset) Range() (time.Time, time.Time) {
	return d.First().Date, d.Last().Date
}

// Resolve finds the record for the calendar date of t. Absence is not an error.
func (d *Dataset) Resolve(t time.Time) (MarketRecord, bool) {
	i, ok := d.index[FormatDate(Day(t))]
	if !ok {
		return MarketRecord{}, false
	}
	return d.records[i], true
}
