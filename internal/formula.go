package internal

// HandlingResult describes how a structural edit (row/col insert or delete)
// affected a Formula's references, per §4.D.
type HandlingResult int

const (
	// NothingChanged means the edit touched none of the formula's references.
	NothingChanged HandlingResult = iota
	// ReferencesRenamedOnly means one or more references shifted position but
	// none were invalidated.
	ReferencesRenamedOnly
	// ReferencesChanged means at least one reference fell inside a deleted
	// range and was invalidated (and dropped from the reference set).
	ReferencesChanged
)

// Formula owns a parsed expression tree and the sorted, deduplicated list of
// positions it references. It is immutable from the outside except through
// its four structural-edit entry points, which Sheet drives during
// insert/delete row/col operations.
type Formula struct {
	root exprNode
	refs []Position
}

// ParseFormula parses expression (the text following a formula cell's
// leading '=') into a Formula, per §4.C. It fails with ErrFormulaParse on any
// lexical or syntax error, or if any referenced cell's text is not a valid
// Position.
func ParseFormula(expression string) (*Formula, error) {
	root, refs, err := parseFormulaBody(expression)
	if err != nil {
		return nil, err
	}
	return &Formula{root: root, refs: refs}, nil
}

// Evaluate delegates to the tree root.
func (f *Formula) Evaluate(sheet cellSource) Value {
	return f.root.evaluate(sheet)
}

// ExpressionText renders the canonical form of the formula per §4.B.
func (f *Formula) ExpressionText() string {
	return f.root.text()
}

// ReferencedCells returns the formula's reference set: sorted ascending,
// deduplicated, and safe for the caller to mutate.
func (f *Formula) ReferencedCells() []Position {
	return append([]Position(nil), f.refs...)
}

// HandleInsertedRows shifts every reference (and the matching CellRef nodes
// in the tree) with Row >= before down by count rows. Never produces
// ReferencesChanged.
func (f *Formula) HandleInsertedRows(before, count int) HandlingResult {
	changed := false
	for i := range f.refs {
		if f.refs[i].Row >= before {
			f.refs[i].Row += count
			changed = true
		}
	}
	walkCellRefs(f.root, func(n *cellRefNode) {
		if n.pos.Row >= before {
			n.pos.Row += count
		}
	})
	if changed {
		return ReferencesRenamedOnly
	}
	return NothingChanged
}

// HandleInsertedCols is the column-symmetric counterpart of HandleInsertedRows.
func (f *Formula) HandleInsertedCols(before, count int) HandlingResult {
	changed := false
	for i := range f.refs {
		if f.refs[i].Col >= before {
			f.refs[i].Col += count
			changed = true
		}
	}
	walkCellRefs(f.root, func(n *cellRefNode) {
		if n.pos.Col >= before {
			n.pos.Col += count
		}
	})
	if changed {
		return ReferencesRenamedOnly
	}
	return NothingChanged
}

// HandleDeletedRows shifts references with Row >= first+count up by count
// rows, and invalidates (sentinel Row = -1, dropped from the reference set)
// any reference whose Row falls inside [first, first+count).
func (f *Formula) HandleDeletedRows(first, count int) HandlingResult {
	changed, deleted := false, false
	kept := f.refs[:0]
	for _, r := range f.refs {
		switch {
		case r.Row >= first+count:
			r.Row -= count
			kept = append(kept, r)
			changed = true
		case r.Row >= first:
			deleted = true
		default:
			kept = append(kept, r)
		}
	}
	f.refs = kept

	walkCellRefs(f.root, func(n *cellRefNode) {
		switch {
		case n.pos.Row >= first+count:
			n.pos.Row -= count
		case n.pos.Row >= first:
			n.pos.Row = -1
		}
	})

	return deletedResult(deleted, changed)
}

// HandleDeletedCols is the column-symmetric counterpart of HandleDeletedRows.
func (f *Formula) HandleDeletedCols(first, count int) HandlingResult {
	changed, deleted := false, false
	kept := f.refs[:0]
	for _, r := range f.refs {
		switch {
		case r.Col >= first+count:
			r.Col -= count
			kept = append(kept, r)
			changed = true
		case r.Col >= first:
			deleted = true
		default:
			kept = append(kept, r)
		}
	}
	f.refs = kept

	walkCellRefs(f.root, func(n *cellRefNode) {
		switch {
		case n.pos.Col >= first+count:
			n.pos.Col -= count
		case n.pos.Col >= first:
			n.pos.Col = -1
		}
	})

	return deletedResult(deleted, changed)
}

func deletedResult(deleted, changed bool) HandlingResult {
	switch {
	case deleted:
		return ReferencesChanged
	case changed:
		return ReferencesRenamedOnly
	default:
		return NothingChanged
	}
}

// walkCellRefs visits every cellRefNode reachable from root, in the order
// they appear in the tree. Unlike Formula.refs, this visits every occurrence,
// not a deduplicated set, mirroring the original source's recursive
// ModifyStatement*Positions/DeleteStatement*Positions tree walks.
func walkCellRefs(root exprNode, fn func(*cellRefNode)) {
	switch n := root.(type) {
	case *cellRefNode:
		fn(n)
	case *unaryNode:
		walkCellRefs(n.x, fn)
	case *binaryNode:
		walkCellRefs(n.x, fn)
		walkCellRefs(n.y, fn)
	case *parenNode:
		walkCellRefs(n.x, fn)
	}
}
