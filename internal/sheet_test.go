package internal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPos(t *testing.T, a1 string) Position {
	p := ParsePosition(a1)
	require.True(t, p.IsValid(), "bad test fixture position %q", a1)
	return p
}

func TestSheet_SetGet_PlainValue(t *testing.T) {
	s := NewSheet()
	require.NoError(t, s.Set(mustPos(t, "A1"), "42"))

	c, err := s.Get(mustPos(t, "A1"))
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 42.0, c.Value().Number)
	assert.Equal(t, "42", c.Text())
}

func TestSheet_Get_EmptyCellIsNil(t *testing.T) {
	s := NewSheet()
	c, err := s.Get(mustPos(t, "A1"))
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestSheet_Set_InvalidPosition(t *testing.T) {
	s := NewSheet()
	err := s.Set(InvalidPosition, "1")
	assert.ErrorIs(t, err, ErrInvalidPosition)
}

func TestSheet_Set_FormulaDependsOnLaterCell(t *testing.T) {
	s := NewSheet()
	require.NoError(t, s.Set(mustPos(t, "B1"), "=A1+1"))

	b1, err := s.Get(mustPos(t, "B1"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, b1.Value().Number) // A1 was implicitly created empty == 0

	a1, err := s.Get(mustPos(t, "A1"))
	require.NoError(t, err)
	require.NotNil(t, a1, "referencing a missing cell creates an empty placeholder")
	assert.Equal(t, []Position{mustPos(t, "B1")}, a1.Dependents())
}

func TestSheet_Set_PropagatesToDependents(t *testing.T) {
	s := NewSheet()
	require.NoError(t, s.Set(mustPos(t, "B1"), "=A1+1"))
	require.NoError(t, s.Set(mustPos(t, "A1"), "41"))

	b1, err := s.Get(mustPos(t, "B1"))
	require.NoError(t, err)
	assert.Equal(t, 42.0, b1.Value().Number)
}

func TestSheet_Set_ChainedPropagation(t *testing.T) {
	s := NewSheet()
	require.NoError(t, s.Set(mustPos(t, "A1"), "1"))
	require.NoError(t, s.Set(mustPos(t, "B1"), "=A1+1"))
	require.NoError(t, s.Set(mustPos(t, "C1"), "=B1+1"))
	require.NoError(t, s.Set(mustPos(t, "A1"), "10"))

	c1, err := s.Get(mustPos(t, "C1"))
	require.NoError(t, err)
	assert.Equal(t, 12.0, c1.Value().Number)
}

func TestSheet_Set_DirectSelfReferenceRejected(t *testing.T) {
	s := NewSheet()
	err := s.Set(mustPos(t, "A1"), "=A1+1")
	assert.ErrorIs(t, err, ErrCircularDependency)

	c, getErr := s.Get(mustPos(t, "A1"))
	require.NoError(t, getErr)
	assert.Nil(t, c, "rejected formula must not mutate the sheet")
}

func TestSheet_Set_IndirectCycleRejected(t *testing.T) {
	s := NewSheet()
	require.NoError(t, s.Set(mustPos(t, "A1"), "=B1+1"))
	err := s.Set(mustPos(t, "B1"), "=A1+1")
	assert.ErrorIs(t, err, ErrCircularDependency)

	// B1 already holds the empty placeholder created by A1's formula; the
	// rejected Set must leave that placeholder as it was.
	b1, getErr := s.Get(mustPos(t, "B1"))
	require.NoError(t, getErr)
	require.NotNil(t, b1)
	assert.Equal(t, "", b1.Text())
	assert.False(t, b1.IsFormula())
}

func TestSheet_Set_OverwriteDropsStaleReverseEdge(t *testing.T) {
	s := NewSheet()
	require.NoError(t, s.Set(mustPos(t, "A1"), "1"))
	require.NoError(t, s.Set(mustPos(t, "B1"), "=A1+1"))
	require.NoError(t, s.Set(mustPos(t, "B1"), "5")) // B1 no longer references A1

	a1, err := s.Get(mustPos(t, "A1"))
	require.NoError(t, err)
	assert.Empty(t, a1.Dependents())
}

func TestSheet_Clear(t *testing.T) {
	s := NewSheet()
	require.NoError(t, s.Set(mustPos(t, "A1"), "1"))
	require.NoError(t, s.Set(mustPos(t, "B1"), "=A1+1"))
	require.NoError(t, s.Clear(mustPos(t, "A1")))

	b1, err := s.Get(mustPos(t, "B1"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, b1.Value().Number, "cleared cell reads back as empty (zero)")
}

func TestSheet_Clear_ShrinksSize(t *testing.T) {
	s := NewSheet()
	require.NoError(t, s.Set(mustPos(t, "C3"), "1"))
	require.NoError(t, s.Clear(mustPos(t, "C3")))
	assert.Equal(t, Size{}, s.PrintableSize())
}

func TestSheet_DivByZero(t *testing.T) {
	s := NewSheet()
	require.NoError(t, s.Set(mustPos(t, "A1"), "0"))
	require.NoError(t, s.Set(mustPos(t, "B1"), "=1/A1"))

	b1, err := s.Get(mustPos(t, "B1"))
	require.NoError(t, err)
	assert.Equal(t, ValueKindError, b1.Value().Kind)
	assert.Equal(t, div0Error, b1.Value().Err)
}

func TestSheet_InsertRows_ShiftsFormulaReferences(t *testing.T) {
	s := NewSheet()
	require.NoError(t, s.Set(mustPos(t, "A1"), "1"))
	require.NoError(t, s.Set(mustPos(t, "A5"), "10"))
	require.NoError(t, s.Set(mustPos(t, "B5"), "=A5+1"))

	require.NoError(t, s.InsertRows(2, 3))

	b8, err := s.Get(mustPos(t, "B8"))
	require.NoError(t, err)
	require.NotNil(t, b8)
	assert.Equal(t, "=A8+1", b8.Text())
}

func TestSheet_DeleteRows_InvalidatesReferenceAndPropagates(t *testing.T) {
	s := NewSheet()
	require.NoError(t, s.Set(mustPos(t, "A1"), "1"))
	require.NoError(t, s.Set(mustPos(t, "B2"), "=A1+1"))
	require.NoError(t, s.DeleteRows(0, 1))

	b1, err := s.Get(mustPos(t, "B1")) // B2 shifted up to B1
	require.NoError(t, err)
	require.NotNil(t, b1)
	assert.Equal(t, "=#REF!+1", b1.Text())
	assert.Equal(t, ValueKindError, b1.Value().Kind)
	assert.Equal(t, refError, b1.Value().Err)
}

func TestSheet_InsertThenDeleteRoundTrips(t *testing.T) {
	s := NewSheet()
	require.NoError(t, s.Set(mustPos(t, "A1"), "1"))
	require.NoError(t, s.Set(mustPos(t, "B1"), "=A1+1"))

	require.NoError(t, s.InsertRows(0, 4))
	require.NoError(t, s.DeleteRows(0, 4))

	b1, err := s.Get(mustPos(t, "B1"))
	require.NoError(t, err)
	require.NotNil(t, b1)
	assert.Equal(t, "=A1+1", b1.Text())
}

func TestSheet_InsertRows_TooBig(t *testing.T) {
	s := NewSheet()
	require.NoError(t, s.Set(mustPos(t, "A1"), "1"))
	err := s.InsertRows(0, MaxRows)
	assert.ErrorIs(t, err, ErrTableTooBig)
}

func TestSheet_PrintValues(t *testing.T) {
	s := NewSheet()
	require.NoError(t, s.Set(mustPos(t, "A1"), "1"))
	require.NoError(t, s.Set(mustPos(t, "C1"), "3"))

	var buf strings.Builder
	require.NoError(t, s.PrintValues(&buf))
	assert.Equal(t, "1\t3\n", buf.String())
}

func TestSheet_PrintValues_BlankRowEmitsBareTab(t *testing.T) {
	s := NewSheet()
	require.NoError(t, s.Set(mustPos(t, "A2"), "1")) // forces row 0 to exist in the printable rectangle, blank

	var buf strings.Builder
	require.NoError(t, s.PrintValues(&buf))
	lines := strings.Split(buf.String(), "\n")
	assert.Equal(t, "\t", lines[0])
	assert.Equal(t, "1", lines[1])
}

func TestSheet_PrintTexts_RendersFormulaCanonically(t *testing.T) {
	s := NewSheet()
	require.NoError(t, s.Set(mustPos(t, "A1"), "=1+2*3"))

	var buf strings.Builder
	require.NoError(t, s.PrintTexts(&buf))
	assert.Equal(t, "=1+2*3\n", buf.String())
}
