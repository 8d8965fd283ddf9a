package internal

import (
	"math"
	"strconv"
)

// Token identifies a lexical symbol produced by the tokenizer and, for the
// four binary operators, the operation carried by a binaryNode/unaryNode.
type Token int

const (
	tokenAdd Token = iota
	tokenSub
	tokenMul
	tokenDiv
	tokenLParen
	tokenRParen
)

func (t Token) symbol() byte {
	switch t {
	case tokenAdd:
		return '+'
	case tokenSub:
		return '-'
	case tokenMul:
		return '*'
	case tokenDiv:
		return '/'
	case tokenLParen:
		return '('
	default:
		return ')'
	}
}

// Value is the result of evaluating an expression node: either a finite
// number, or a FormulaError that should propagate unchanged to whatever
// dereferenced it.
type Value struct {
	Number float64
	Err    FormulaError
	IsErr  bool
}

func numberValue(n float64) Value     { return Value{Number: n} }
func errorValue(e FormulaError) Value { return Value{Err: e, IsErr: true} }

// cellSource is the minimal read-only view of a Sheet that expression nodes
// need in order to evaluate a CellRef. Kept as an interface (rather than a
// direct *Sheet reference) so expr.go stays decoupled from Sheet's own
// storage/edit machinery; Sheet implements it.
type cellSource interface {
	cellValueAt(p Position) (CellValue, bool)
}

// exprNode is the closed set of expression-tree variants: literal, cell
// reference, unary sign, binary operator, and parenthesis. Every node knows
// how to evaluate itself against a cellSource and how to render its own
// canonical text.
type exprNode interface {
	evaluate(sheet cellSource) Value
	text() string
}

type literalNode struct {
	value float64
}

func (n *literalNode) evaluate(cellSource) Value { return numberValue(n.value) }
func (n *literalNode) text() string              { return formatNumber(n.value) }

type cellRefNode struct {
	pos Position
}

func (n *cellRefNode) evaluate(sheet cellSource) Value {
	if !n.pos.IsValid() {
		return errorValue(refError)
	}
	cv, ok := sheet.cellValueAt(n.pos)
	if !ok {
		return numberValue(0)
	}
	switch cv.Kind {
	case ValueKindNumber:
		return numberValue(cv.Number)
	case ValueKindText:
		if cv.Text == "" {
			return numberValue(0)
		}
		return errorValue(valueError)
	case ValueKindError:
		return errorValue(cv.Err)
	default:
		return numberValue(0)
	}
}

func (n *cellRefNode) text() string {
	if !n.pos.IsValid() {
		return refError.String()
	}
	return n.pos.String()
}

type unaryNode struct {
	op Token // tokenAdd or tokenSub
	x  exprNode
}

func (n *unaryNode) evaluate(sheet cellSource) Value {
	v := n.x.evaluate(sheet)
	if v.IsErr {
		return v
	}
	if n.op == tokenSub {
		return numberValue(-v.Number)
	}
	return v
}

func (n *unaryNode) text() string {
	return string(n.op.symbol()) + n.x.text()
}

type binaryNode struct {
	op Token // one of tokenAdd, tokenSub, tokenMul, tokenDiv
	x  exprNode
	y  exprNode
}

func (n *binaryNode) evaluate(sheet cellSource) Value {
	left := n.x.evaluate(sheet)
	if left.IsErr {
		return left
	}
	right := n.y.evaluate(sheet)
	if right.IsErr {
		return right
	}

	var result float64
	switch n.op {
	case tokenAdd:
		result = left.Number + right.Number
	case tokenSub:
		result = left.Number - right.Number
	case tokenMul:
		result = left.Number * right.Number
	case tokenDiv:
		if right.Number == 0 {
			return errorValue(div0Error)
		}
		result = left.Number / right.Number
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return errorValue(div0Error)
	}
	return numberValue(result)
}

func (n *binaryNode) text() string {
	return childText(n.x, n.op, true) + string(n.op.symbol()) + childText(n.y, n.op, false)
}

type parenNode struct {
	x exprNode
}

func (n *parenNode) evaluate(sheet cellSource) Value { return n.x.evaluate(sheet) }

// text implements rule 3 of §4.B unconditionally: a Paren wrapping a
// Literal, another Paren, or a CellRef collapses to the inner text; anything
// else (Unary or Binary) keeps its explicit parentheses when printed
// standalone. When a Paren sits directly under a Binary, the Binary's own
// text() calls childText instead of this method, since that position needs
// the parent-operator-aware dropping rules 1/2.
func (n *parenNode) text() string {
	switch inner := n.x.(type) {
	case *literalNode:
		return inner.text()
	case *parenNode:
		return inner.text()
	case *cellRefNode:
		return inner.text()
	default:
		return "(" + n.x.text() + ")"
	}
}

// childText renders node as the left (isLeft) or right operand of a Binary
// whose operator is parentOp, applying §4.B's rules 1-3. Only a direct Paren
// child is ever subject to dropping; any other node type prints via its own
// text() untouched.
func childText(node exprNode, parentOp Token, isLeft bool) string {
	p, ok := node.(*parenNode)
	if !ok {
		return node.text()
	}
	switch inner := p.x.(type) {
	case *literalNode, *parenNode, *cellRefNode:
		return p.text()
	case *binaryNode:
		var drop bool
		if isLeft {
			drop = canDropLeftParen(parentOp, inner.op)
		} else {
			drop = canDropRightParen(parentOp, inner.op)
		}
		if drop {
			return inner.text()
		}
		return "(" + inner.text() + ")"
	default: // *unaryNode
		return p.text()
	}
}

// canDropLeftParen implements rule 1.
func canDropLeftParen(parentOp, childOp Token) bool {
	switch parentOp {
	case tokenAdd, tokenSub:
		return childOp == tokenAdd || childOp == tokenSub || childOp == tokenMul || childOp == tokenDiv
	case tokenMul:
		return childOp == tokenMul
	case tokenDiv:
		return childOp == tokenMul || childOp == tokenDiv
	default:
		return false
	}
}

// canDropRightParen implements rule 2.
func canDropRightParen(parentOp, childOp Token) bool {
	switch parentOp {
	case tokenAdd:
		return childOp == tokenAdd || childOp == tokenSub
	case tokenSub:
		return childOp == tokenMul || childOp == tokenDiv
	case tokenMul:
		return childOp == tokenMul || childOp == tokenDiv
	case tokenDiv:
		return false
	default:
		return false
	}
}

// formatNumber renders v the way the spec's canonical text expects: plain
// decimal, no exponent, no trailing ".0" for whole numbers.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
