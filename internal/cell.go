package internal

import (
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// ValueKind tags which field of a CellValue is meaningful.
type ValueKind int

const (
	ValueKindText ValueKind = iota
	ValueKindNumber
	ValueKindError
)

// CellValue is the tagged union described in §3: a cell's content is either
// literal text, a number, or a propagated FormulaError.
type CellValue struct {
	Kind   ValueKind
	Text   string
	Number float64
	Err    FormulaError
}

// String renders the value the way Sheet.PrintValues does: the number in
// canonical decimal form, the error's "#...!" text, or the text verbatim.
func (v CellValue) String() string {
	switch v.Kind {
	case ValueKindNumber:
		return formatNumber(v.Number)
	case ValueKindError:
		return v.Err.String()
	default:
		return v.Text
	}
}

// Cell holds one sheet position's raw input, cached value, formula (if any),
// and the positions of cells whose formulas reference it.
type Cell struct {
	rawText    string
	value      CellValue
	formula    *Formula
	dependents map[Position]struct{}
}

// newCell classifies rawText per §4.E:
//   - a leading '=' followed by at least one more character is parsed as a
//     formula (ParseFormula failure propagates to the caller);
//   - a leading '\'' strips the escape and stores the remainder as text;
//   - anything else is parsed as a float64 literal, falling back to text on
//     failure (including the empty string).
//
// The cell's cached value for a formula cell is left at its zero value;
// Sheet evaluates and caches it once the cell is safe to install.
func newCell(rawText string) (*Cell, error) {
	c := &Cell{rawText: rawText, dependents: make(map[Position]struct{})}

	switch {
	case len(rawText) > 1 && rawText[0] == '=':
		f, err := ParseFormula(rawText[1:])
		if err != nil {
			return nil, err
		}
		c.formula = f
	case strings.HasPrefix(rawText, "'"):
		c.value = CellValue{Kind: ValueKindText, Text: rawText[1:]}
	default:
		if n, err := strconv.ParseFloat(rawText, 64); err == nil {
			c.value = CellValue{Kind: ValueKindNumber, Number: n}
		} else {
			c.value = CellValue{Kind: ValueKindText, Text: rawText}
		}
	}
	return c, nil
}

// Value returns the cell's cached value.
func (c *Cell) Value() CellValue { return c.value }

// Text returns the canonical source form: "=" + the formula's canonical
// expression text for a formula cell, or the original raw input otherwise
// (including a leading "'" escape, per the open question resolved in
// DESIGN.md).
func (c *Cell) Text() string {
	if c.formula != nil {
		return "=" + c.formula.ExpressionText()
	}
	return c.rawText
}

// IsFormula reports whether this cell holds a formula.
func (c *Cell) IsFormula() bool { return c.formula != nil }

// Formula returns the cell's formula, or nil if it doesn't have one.
func (c *Cell) Formula() *Formula { return c.formula }

// ReferencedCells returns the formula's reference set, or nil for a
// non-formula cell.
func (c *Cell) ReferencedCells() []Position {
	if c.formula == nil {
		return nil
	}
	return c.formula.ReferencedCells()
}

// addDependent records that the cell at p reads this cell through a formula.
func (c *Cell) addDependent(p Position) { c.dependents[p] = struct{}{} }

// removeDependent undoes addDependent. Sheet does not call it: it clears and
// rebuilds every dependents set in rebuildDependents instead.
func (c *Cell) removeDependent(p Position) { delete(c.dependents, p) }

// Dependents returns the sorted, deduplicated positions of cells whose
// formulas reference this one.
func (c *Cell) Dependents() []Position {
	out := make([]Position, 0, len(c.dependents))
	for p := range c.dependents {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Position) bool { return a.Less(b) })
	return out
}

// refreshValue re-evaluates the cell's formula (if any) against sheet and
// updates the cached value. A no-op for non-formula cells.
func (c *Cell) refreshValue(sheet cellSource) {
	if c.formula == nil {
		return
	}
	v := c.formula.Evaluate(sheet)
	if v.IsErr {
		c.value = CellValue{Kind: ValueKindError, Err: v.Err}
	} else {
		c.value = CellValue{Kind: ValueKindNumber, Number: v.Number}
	}
}
