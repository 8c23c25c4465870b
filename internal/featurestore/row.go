package featurestore

// Row is one feature_employee_week record as returned by the store: the
// composite key columns plus an arbitrary set of numeric feature and label
// columns. Null columns decode to nil and read back as absent.
type Row map[string]any

// Identifier columns present on every row.
const (
	ColPerson  = "person_pseudonym"
	ColISOYear = "iso_year"
	ColISOWeek = "iso_week"
)

// Person returns the employee pseudonym, or "" if missing.
func (r Row) Person() string {
	if v, ok := r[ColPerson].(string); ok {
		return v
	}
	return ""
}

// ISOYear returns the ISO year of the row, or 0 if missing.
func (r Row) ISOYear() int { return r.intCol(ColISOYear) }

// ISOWeek returns the ISO week of the row, or 0 if missing.
func (r Row) ISOWeek() int { return r.intCol(ColISOWeek) }

func (r Row) intCol(name string) int {
	if v, ok := r[name].(float64); ok {
		return int(v)
	}
	return 0
}

// Float returns the numeric value of a column. The second return is false
// when the column is absent, null, or not numeric.
func (r Row) Float(name string) (float64, bool) {
	v, ok := r[name]
	if !ok || v == nil {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}
