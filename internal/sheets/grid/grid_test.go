package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsheet/internal/sheets"
)

func TestApplyUpdateAndAppend(t *testing.T) {
	g := New()
	require.NoError(t, g.Apply(
		sheets.UpdateCells{Row: 0, Col: 0, Rows: [][]sheets.Cell{
			{sheets.Text("a"), sheets.Number(1)},
			{sheets.Text("b"), sheets.Number(2.5)},
		}},
		sheets.AppendRow{Cells: []sheets.Cell{sheets.Text("c"), sheets.Formula("=B1+B2")}},
	))

	assert.Equal(t, [][]string{
		{"a", "1"},
		{"b", "2.5"},
		{"c", "3.5"},
	}, g.Values())
}

func TestValuesTrimTrailingBlanks(t *testing.T) {
	g := New()
	require.NoError(t, g.Apply(sheets.UpdateCells{Row: 1, Col: 0, Rows: [][]sheets.Cell{
		{sheets.Text("x"), sheets.Empty(), sheets.Empty()},
	}}))
	assert.Equal(t, [][]string{{}, {"x"}}, g.Values())
}

func TestSumByColor(t *testing.T) {
	red := sheets.MustColor("#ff0000")
	blue := sheets.MustColor("#0000ff")
	g := New()
	require.NoError(t, g.Apply(
		sheets.UpdateCells{Row: 0, Col: 0, Rows: [][]sheets.Cell{
			{sheets.Formula(`=SUMBYCOLOR(C2:C, "#ff0000")`), sheets.Formula(`=SUMBYCOLOR(C2:C;"#0000FF")`)},
		}},
		sheets.AppendRow{Cells: []sheets.Cell{sheets.Empty(), sheets.Empty(), sheets.Number(-5).Colored(red)}},
		sheets.AppendRow{Cells: []sheets.Cell{sheets.Empty(), sheets.Empty(), sheets.Number(-7).Colored(red)}},
		sheets.AppendRow{Cells: []sheets.Cell{sheets.Empty(), sheets.Empty(), sheets.Number(10).Colored(blue)}},
		sheets.AppendRow{Cells: []sheets.Cell{sheets.Empty(), sheets.Empty(), sheets.Number(99)}},
	))
	v := g.Values()
	assert.Equal(t, "-12", v[0][0])
	assert.Equal(t, "10", v[0][1])
}

func TestSumRange(t *testing.T) {
	g := New()
	require.NoError(t, g.Apply(sheets.UpdateCells{Row: 0, Col: 0, Rows: [][]sheets.Cell{
		{sheets.Number(1), sheets.Number(2)},
		{sheets.Number(3), sheets.Text("4")},
		{sheets.Formula("=SUM(A1:A2)"), sheets.Formula("=SUM($B$1:$B$2)")},
	}}))
	assert.Equal(t, []string{"4", "6"}, g.Values()[2])
}

func TestRunningBalanceChain(t *testing.T) {
	g := New()
	require.NoError(t, g.Apply(sheets.UpdateCells{Row: 0, Col: 0, Rows: [][]sheets.Cell{
		{sheets.Number(100), sheets.Number(0)},
	}}))
	for i := 2; i <= 500; i++ {
		require.NoError(t, g.Apply(sheets.AppendRow{Cells: []sheets.Cell{
			sheets.Formula("=A" + itoa(i-1) + "+B" + itoa(i)),
			sheets.Number(-0.5),
		}}))
	}
	v := g.Values()
	assert.Equal(t, "-149.5", v[len(v)-1][0])
}

func TestCircularReference(t *testing.T) {
	g := New()
	require.NoError(t, g.Apply(sheets.UpdateCells{Row: 0, Col: 0, Rows: [][]sheets.Cell{
		{sheets.Formula("=B1"), sheets.Formula("=A1")},
	}}))
	assert.Equal(t, []string{"#ERROR!", "#ERROR!"}, g.Values()[0])
}

func TestDeleteRangeShiftsUp(t *testing.T) {
	g := New()
	require.NoError(t, g.Apply(sheets.UpdateCells{Row: 0, Col: 0, Rows: [][]sheets.Cell{
		{sheets.Text("a0"), sheets.Text("b0")},
		{sheets.Text("a1"), sheets.Text("b1")},
		{sheets.Text("a2"), sheets.Text("b2")},
		{sheets.Text("a3"), sheets.Text("b3")},
	}}))
	require.NoError(t, g.Apply(sheets.DeleteRange{StartRow: 1, EndRow: 3, StartCol: 1, EndCol: 2}))

	assert.Equal(t, [][]string{
		{"a0", "b0"},
		{"a1", "b3"},
		{"a2"},
		{"a3"},
	}, g.Values())
}

func TestDeleteRangeRejectsEmptyRange(t *testing.T) {
	err := New().Apply(sheets.DeleteRange{StartRow: 2, EndRow: 2, StartCol: 0, EndCol: 1})
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestFormatsCopyBackgrounds(t *testing.T) {
	red := sheets.MustColor("#ff0000")
	g := New()
	require.NoError(t, g.Apply(sheets.AppendRow{Cells: []sheets.Cell{sheets.Text("x"), sheets.Number(1).Colored(red)}}))
	f := g.Formats()
	require.Len(t, f, 1)
	assert.Nil(t, f[0][0].Background)
	require.NotNil(t, f[0][1].Background)
	assert.Equal(t, red, *f[0][1].Background)
}

func itoa(i int) string { return sheets.FormatNumber(float64(i)) }
