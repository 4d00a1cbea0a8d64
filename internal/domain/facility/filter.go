package facility

// RowFilter keeps only rows whose Column value matches one of Values.
// Comparison folds case and accents, so "Alto" matches "ALTO".
type RowFilter struct {
	Column string
	Values []string
}

// Apply returns a new Table with the non-matching rows removed. A zero
// filter returns t unchanged; a filter naming an absent column keeps no rows.
func (f RowFilter) Apply(t *Table) *Table {
	if f.Column == "" || len(f.Values) == 0 {
		return t
	}
	out := &Table{Name: t.Name, Columns: t.Columns}
	idx := t.Index(f.Column)
	if idx < 0 {
		return out
	}
	accepted := make(map[string]struct{}, len(f.Values))
	for _, v := range f.Values {
		accepted[Fold(v)] = struct{}{}
	}
	for _, row := range t.Rows {
		if _, ok := accepted[Fold(t.Cell(row, idx))]; ok {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}
