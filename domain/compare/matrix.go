package compare

import (
	"biocompare/domain/core"
)

// Matrix is the dense numeric table shared by harmonisation and analysis.
// Rows are samples, columns are features or taxa. Lookups by identifier go
// through lazily built index maps so tables can be assembled column-first
// or row-first without bookkeeping.
type Matrix struct {
	RowIDs []string
	ColIDs []string
	Data   [][]float64 // rows x cols

	rowIndex map[string]int
	colIndex map[string]int
}

// NewMatrix creates a zero-filled matrix with the given row and column ids
func NewMatrix(rowIDs, colIDs []string) *Matrix {
	data := make([][]float64, len(rowIDs))
	for i := range data {
		data[i] = make([]float64, len(colIDs))
	}
	return &Matrix{
		RowIDs: append([]string(nil), rowIDs...),
		ColIDs: append([]string(nil), colIDs...),
		Data:   data,
	}
}

// NRows returns the number of rows
func (m *Matrix) NRows() int { return len(m.RowIDs) }

// NCols returns the number of columns
func (m *Matrix) NCols() int { return len(m.ColIDs) }

// At returns the value at row i, column j
func (m *Matrix) At(i, j int) float64 { return m.Data[i][j] }

// Set assigns the value at row i, column j
func (m *Matrix) Set(i, j int, v float64) { m.Data[i][j] = v }

// Row returns the backing slice for row i
func (m *Matrix) Row(i int) []float64 { return m.Data[i] }

// Col copies column j into a new slice
func (m *Matrix) Col(j int) []float64 {
	col := make([]float64, len(m.Data))
	for i := range m.Data {
		col[i] = m.Data[i][j]
	}
	return col
}

// RowIndex returns the position of a row id
func (m *Matrix) RowIndex(id string) (int, bool) {
	if m.rowIndex == nil {
		m.rowIndex = make(map[string]int, len(m.RowIDs))
		for i, r := range m.RowIDs {
			m.rowIndex[r] = i
		}
	}
	i, ok := m.rowIndex[id]
	return i, ok
}

// ColIndex returns the position of a column id
func (m *Matrix) ColIndex(id string) (int, bool) {
	if m.colIndex == nil {
		m.colIndex = make(map[string]int, len(m.ColIDs))
		for j, c := range m.ColIDs {
			m.colIndex[c] = j
		}
	}
	j, ok := m.colIndex[id]
	return j, ok
}

// RowSum returns the sum of row i
func (m *Matrix) RowSum(i int) float64 {
	sum := 0.0
	for _, v := range m.Data[i] {
		sum += v
	}
	return sum
}

// ColMean returns the arithmetic mean of column j across all rows
func (m *Matrix) ColMean(j int) float64 {
	if len(m.Data) == 0 {
		return 0
	}
	sum := 0.0
	for i := range m.Data {
		sum += m.Data[i][j]
	}
	return sum / float64(len(m.Data))
}

// ColPrevalence returns the fraction of rows where column j is positive
func (m *Matrix) ColPrevalence(j int) float64 {
	if len(m.Data) == 0 {
		return 0
	}
	count := 0
	for i := range m.Data {
		if m.Data[i][j] > 0 {
			count++
		}
	}
	return float64(count) / float64(len(m.Data))
}

// Transpose returns a new matrix with rows and columns swapped
func (m *Matrix) Transpose() *Matrix {
	t := NewMatrix(m.ColIDs, m.RowIDs)
	for i := range m.Data {
		for j := range m.Data[i] {
			t.Data[j][i] = m.Data[i][j]
		}
	}
	return t
}

// SelectRows returns a new matrix restricted to the given row positions,
// preserving order
func (m *Matrix) SelectRows(rows []int) *Matrix {
	ids := make([]string, len(rows))
	for k, i := range rows {
		ids[k] = m.RowIDs[i]
	}
	sel := NewMatrix(ids, m.ColIDs)
	for k, i := range rows {
		copy(sel.Data[k], m.Data[i])
	}
	return sel
}

// SelectCols returns a new matrix restricted to the given column positions,
// preserving order
func (m *Matrix) SelectCols(cols []int) *Matrix {
	ids := make([]string, len(cols))
	for k, j := range cols {
		ids[k] = m.ColIDs[j]
	}
	sel := NewMatrix(m.RowIDs, ids)
	for i := range m.Data {
		for k, j := range cols {
			sel.Data[i][k] = m.Data[i][j]
		}
	}
	return sel
}

// Clone returns a deep copy
func (m *Matrix) Clone() *Matrix {
	c := NewMatrix(m.RowIDs, m.ColIDs)
	for i := range m.Data {
		copy(c.Data[i], m.Data[i])
	}
	return c
}

// IsEmpty reports whether the matrix holds no cells
func (m *Matrix) IsEmpty() bool {
	return m == nil || len(m.RowIDs) == 0 || len(m.ColIDs) == 0
}

// Validate ensures the matrix is internally consistent
func (m *Matrix) Validate() error {
	if len(m.Data) != len(m.RowIDs) {
		return core.NewValidationError("rows", "length mismatch with data rows")
	}
	for i := range m.Data {
		if len(m.Data[i]) != len(m.ColIDs) {
			return core.NewValidationError("cols", "length mismatch with data columns")
		}
	}
	return nil
}
