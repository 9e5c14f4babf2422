package domain

import (
	"fmt"
	"time"
)

// FactorVersion tags every computed factor table. Changing a factor
// definition must bump this tag so recomputed values can be stored next to
// the old ones instead of overwriting them.
const FactorVersion = "v1"

// FactorTable is a date-indexed set of named float columns. Values are NaN
// while a factor's lookback window is still filling. Columns are assembled
// by union; registering the same name twice is an error.
type FactorTable struct {
	Version string
	Dates   []time.Time

	names   []string
	columns map[string][]float64
}

func NewFactorTable(dates []time.Time) *FactorTable {
	return &FactorTable{
		Version: FactorVersion,
		Dates:   dates,
		columns: map[string][]float64{},
	}
}

func (t *FactorTable) Len() int { return len(t.Dates) }

func (t *FactorTable) AddColumn(name string, values []float64) error {
	if _, ok := t.columns[name]; ok {
		return fmt.Errorf("duplicate factor column %q", name)
	}
	if len(values) != len(t.Dates) {
		return fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), len(t.Dates))
	}
	t.names = append(t.names, name)
	t.columns[name] = values
	return nil
}

func (t *FactorTable) Column(name string) ([]float64, bool) {
	col, ok := t.columns[name]
	return col, ok
}

// ColumnNames returns column names in registration order.
func (t *FactorTable) ColumnNames() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// MissingColumns reports which of the given names the table does not have.
func (t *FactorTable) MissingColumns(names ...string) []string {
	missing := []string{}
	for _, name := range names {
		if _, ok := t.columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
