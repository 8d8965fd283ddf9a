package internal

import (
	"fmt"
	"io"

	"golang.org/x/exp/maps"
)

// Sheet is a sparse two-dimensional table of cells. Storage is a two-level
// map, row -> (col -> Cell), per the sparse-storage note in §9. Sheet owns
// every Cell; a Cell only borrows the Sheet (through the cellSource
// interface) for the duration of one evaluate call.
type Sheet struct {
	rows map[int]map[int]*Cell
	size Size
}

// NewSheet returns an empty Sheet.
func NewSheet() *Sheet {
	return &Sheet{rows: make(map[int]map[int]*Cell)}
}

// cellValueAt implements cellSource for expression evaluation.
func (s *Sheet) cellValueAt(p Position) (CellValue, bool) {
	c := s.rawGet(p)
	if c == nil {
		return CellValue{}, false
	}
	return c.Value(), true
}

func (s *Sheet) rawGet(p Position) *Cell {
	row, ok := s.rows[p.Row]
	if !ok {
		return nil
	}
	return row[p.Col]
}

func (s *Sheet) installCell(p Position, c *Cell) {
	row, ok := s.rows[p.Row]
	if !ok {
		row = make(map[int]*Cell)
		s.rows[p.Row] = row
	}
	row[p.Col] = c
}

func (s *Sheet) forEachCell(fn func(Position, *Cell)) {
	for r, row := range s.rows {
		for c, cell := range row {
			fn(Position{Row: r, Col: c}, cell)
		}
	}
}

// Get returns the cell at pos, or nil if pos is empty.
func (s *Sheet) Get(pos Position) (*Cell, error) {
	if !pos.IsValid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPosition, pos)
	}
	return s.rawGet(pos), nil
}

// Set assigns text to pos, per §4.F: build a Cell, reject on a circular
// dependency before touching any state, otherwise install it, grow the
// printable size to cover the new cell and its references (creating empty
// placeholder cells at any missing referenced position), rebuild the
// dependents graph, and refresh every cached value that could have changed.
func (s *Sheet) Set(pos Position, text string) error {
	if !pos.IsValid() {
		return fmt.Errorf("%w: %v", ErrInvalidPosition, pos)
	}
	cell, err := newCell(text)
	if err != nil {
		return err
	}
	if err := s.checkCircular(pos, cell); err != nil {
		return err
	}

	s.installCell(pos, cell)
	s.size.grow(pos)

	for _, ref := range cell.ReferencedCells() {
		s.size.grow(ref)
		if s.rawGet(ref) == nil {
			empty, _ := newCell("")
			s.installCell(ref, empty)
		}
	}

	s.rebuildDependents()
	s.refreshAll()
	return nil
}

// Clear removes the cell at pos (if any) and shrinks the printable size to
// the new bounding rectangle, per the §9 correction to the source's
// ClearCell (which neither detached reverse edges nor shrank size).
func (s *Sheet) Clear(pos Position) error {
	if !pos.IsValid() {
		return fmt.Errorf("%w: %v", ErrInvalidPosition, pos)
	}
	if row, ok := s.rows[pos.Row]; ok {
		delete(row, pos.Col)
		if len(row) == 0 {
			delete(s.rows, pos.Row)
		}
	}
	s.rebuildDependents()
	s.refreshAll()
	s.shrinkToFit()
	return nil
}

// checkCircular walks cell's references (cell is not yet installed in the
// sheet) looking for a path back to target. It carries an explicit visited
// set, per §9's correction to the source's unguarded recursion.
func (s *Sheet) checkCircular(target Position, cell *Cell) error {
	return s.checkCircularRec(target, cell, make(map[Position]bool))
}

func (s *Sheet) checkCircularRec(target Position, cell *Cell, visited map[Position]bool) error {
	if cell == nil {
		return nil
	}
	for _, ref := range cell.ReferencedCells() {
		if ref == target {
			return fmt.Errorf("%w: %v", ErrCircularDependency, target)
		}
		if visited[ref] {
			continue
		}
		visited[ref] = true
		if err := s.checkCircularRec(target, s.rawGet(ref), visited); err != nil {
			return err
		}
	}
	return nil
}

// rebuildDependents recomputes every cell's reverse-edge set from scratch,
// from the forward references each live formula currently carries. Rebuilding
// globally (rather than patching individual edges in place) keeps the
// dependents graph trivially correct after Set, Clear, and every structural
// edit, at the cost of a full sheet scan -- a deliberate simplification given
// this engine's scale (see DESIGN.md).
func (s *Sheet) rebuildDependents() {
	s.forEachCell(func(_ Position, c *Cell) {
		maps.Clear(c.dependents)
	})
	s.forEachCell(func(p Position, c *Cell) {
		if !c.IsFormula() {
			return
		}
		for _, ref := range c.ReferencedCells() {
			if !ref.IsValid() {
				continue
			}
			if refCell := s.rawGet(ref); refCell != nil {
				refCell.addDependent(p)
			}
		}
	})
}

// refreshAll recomputes every formula cell's cached value in dependency
// order: a cell's references are always refreshed before the cell itself, so
// a single pass is enough regardless of which cell's edit triggered it and
// regardless of diamond-shaped dependency graphs. Safe because live cells are
// guaranteed cycle-free.
func (s *Sheet) refreshAll() {
	visited := make(map[Position]bool)
	var visit func(Position, *Cell)
	visit = func(p Position, c *Cell) {
		if visited[p] {
			return
		}
		visited[p] = true
		if !c.IsFormula() {
			return
		}
		for _, ref := range c.ReferencedCells() {
			if !ref.IsValid() {
				continue
			}
			if refCell := s.rawGet(ref); refCell != nil {
				visit(ref, refCell)
			}
		}
		c.refreshValue(s)
	}
	s.forEachCell(visit)
}

// shrinkToFit recomputes size as the tight bounding rectangle of every
// non-empty cell and every position referenced by a live formula's active
// reference, per the invariant in §3.
func (s *Sheet) shrinkToFit() {
	var sz Size
	s.forEachCell(func(p Position, c *Cell) {
		sz.grow(p)
		if !c.IsFormula() {
			return
		}
		for _, ref := range c.ReferencedCells() {
			if ref.IsValid() {
				sz.grow(ref)
			}
		}
	})
	s.size = sz
}

func (s *Sheet) checkTooBig(rowCount, colCount int) error {
	if s.size.Rows+rowCount > MaxRows {
		return fmt.Errorf("%w: table would grow to %d rows", ErrTableTooBig, s.size.Rows+rowCount)
	}
	if s.size.Cols+colCount > MaxCols {
		return fmt.Errorf("%w: table would grow to %d cols", ErrTableTooBig, s.size.Cols+colCount)
	}
	return nil
}

// InsertRows inserts count blank rows before row index before, shifting any
// stored cell at row >= before down by count and rewriting every formula's
// row references accordingly (§4.F). Values are unaffected -- insertion only
// relabels rows, it never changes what a surviving cell's formula reads --
// so no re-evaluation pass is needed, only a dependents rebuild.
func (s *Sheet) InsertRows(before, count int) error {
	if count <= 0 {
		return nil
	}
	if err := s.checkTooBig(count, 0); err != nil {
		return err
	}

	s.shiftStoredRows(before, count)
	s.forEachCell(func(_ Position, c *Cell) {
		if c.IsFormula() {
			c.Formula().HandleInsertedRows(before, count)
		}
	})
	s.size.Rows += count
	s.rebuildDependents()
	return nil
}

// InsertCols is the column-symmetric counterpart of InsertRows.
func (s *Sheet) InsertCols(before, count int) error {
	if count <= 0 {
		return nil
	}
	if err := s.checkTooBig(0, count); err != nil {
		return err
	}

	s.shiftStoredCols(before, count)
	s.forEachCell(func(_ Position, c *Cell) {
		if c.IsFormula() {
			c.Formula().HandleInsertedCols(before, count)
		}
	})
	s.size.Cols += count
	s.rebuildDependents()
	return nil
}

// DeleteRows removes count rows starting at first, dropping any cell stored
// inside that range, shifting surviving cells below it up by count, and
// rewriting every surviving formula's references (invalidating any reference
// that fell inside the deleted range). Re-evaluates the whole sheet
// afterward since deleted references now read as #REF!.
func (s *Sheet) DeleteRows(first, count int) error {
	if count <= 0 {
		return nil
	}
	s.forEachCell(func(_ Position, c *Cell) {
		if c.IsFormula() {
			c.Formula().HandleDeletedRows(first, count)
		}
	})

	for r := first; r < first+count; r++ {
		delete(s.rows, r)
	}
	s.shiftStoredRows(first+count, -count)

	if first < s.size.Rows {
		removed := count
		if first+count > s.size.Rows {
			removed = s.size.Rows - first
		}
		s.size.Rows -= removed
	}

	s.rebuildDependents()
	s.refreshAll()
	return nil
}

// DeleteCols is the column-symmetric counterpart of DeleteRows.
func (s *Sheet) DeleteCols(first, count int) error {
	if count <= 0 {
		return nil
	}
	s.forEachCell(func(_ Position, c *Cell) {
		if c.IsFormula() {
			c.Formula().HandleDeletedCols(first, count)
		}
	})

	for _, row := range s.rows {
		for c := first; c < first+count; c++ {
			delete(row, c)
		}
	}
	s.shiftStoredCols(first+count, -count)

	if first < s.size.Cols {
		removed := count
		if first+count > s.size.Cols {
			removed = s.size.Cols - first
		}
		s.size.Cols -= removed
	}

	s.rebuildDependents()
	s.refreshAll()
	return nil
}

// shiftStoredRows moves every stored row r >= atOrAfter to r+delta. delta may
// be negative (closing a gap after a deletion) or positive (opening a gap for
// an insertion).
func (s *Sheet) shiftStoredRows(atOrAfter, delta int) {
	newRows := make(map[int]map[int]*Cell, len(s.rows))
	for r, row := range s.rows {
		nr := r
		if r >= atOrAfter {
			nr = r + delta
		}
		newRows[nr] = row
	}
	s.rows = newRows
}

// shiftStoredCols moves every stored column c >= atOrAfter to c+delta within
// every row.
func (s *Sheet) shiftStoredCols(atOrAfter, delta int) {
	for r, row := range s.rows {
		newRow := make(map[int]*Cell, len(row))
		for c, cell := range row {
			nc := c
			if c >= atOrAfter {
				nc = c + delta
			}
			newRow[nc] = cell
		}
		s.rows[r] = newRow
	}
}

// PrintableSize returns the current printable rectangle.
func (s *Sheet) PrintableSize() Size { return s.size }

// PrintValues writes each cell's evaluated value, tab-separated within a row,
// rows separated by '\n'.
func (s *Sheet) PrintValues(w io.Writer) error {
	return s.print(w, func(c *Cell) string { return c.Value().String() })
}

// PrintTexts writes each cell's canonical source text, tab-separated within
// a row, rows separated by '\n'.
func (s *Sheet) PrintTexts(w io.Writer) error {
	return s.print(w, func(c *Cell) string { return c.Text() })
}

// print mirrors the source's PrintValues/PrintTexts column-by-column: a
// present cell is rendered and followed by a tab unless it's in the last
// column; an absent cell contributes nothing at all (not even a tab), which
// is why two present cells separated only by blanks still end up exactly one
// tab apart. A row with zero present cells still emits a single bare tab
// before the newline -- preserved as specified in §9/§6, not "fixed".
func (s *Sheet) print(w io.Writer, render func(*Cell) string) error {
	for r := 0; r < s.size.Rows; r++ {
		blanks := 0
		for c := 0; c < s.size.Cols; c++ {
			cell := s.rawGet(Position{Row: r, Col: c})
			if cell == nil {
				blanks++
				continue
			}
			if _, err := io.WriteString(w, render(cell)); err != nil {
				return err
			}
			if c+1 != s.size.Cols {
				if _, err := io.WriteString(w, "\t"); err != nil {
					return err
				}
			}
		}
		if blanks == s.size.Cols {
			if _, err := io.WriteString(w, "\t"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}
