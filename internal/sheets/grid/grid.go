// Package grid is an in-process spreadsheet: a cell matrix that applies
// batch operations and evaluates the small formula dialect the ledger writes
// (cell-reference arithmetic, SUM and SUMBYCOLOR over ranges).
package grid

import (
	"errors"
	"fmt"

	"finsheet/internal/sheets"
)

var ErrInvalidOperation = errors.New("invalid operation")

// Grid is not safe for concurrent use; stores wrap it with their own locking.
type Grid struct {
	rows [][]sheets.Cell
}

func New() *Grid {
	return &Grid{}
}

// FromRows builds a grid from stored cells. The slice is copied.
func FromRows(rows [][]sheets.Cell) *Grid {
	g := &Grid{rows: make([][]sheets.Cell, len(rows))}
	for i, r := range rows {
		g.rows[i] = append([]sheets.Cell(nil), r...)
	}
	return g
}

// Rows returns a copy of the raw cells.
func (g *Grid) Rows() [][]sheets.Cell {
	return FromRows(g.rows).rows
}

// Cell returns the cell at a 0-based position, empty when out of range.
func (g *Grid) Cell(row, col int) sheets.Cell {
	if row < 0 || row >= len(g.rows) || col < 0 || col >= len(g.rows[row]) {
		return sheets.Cell{}
	}
	return g.rows[row][col]
}

func (g *Grid) set(row, col int, c sheets.Cell) {
	for len(g.rows) <= row {
		g.rows = append(g.rows, nil)
	}
	for len(g.rows[row]) <= col {
		g.rows[row] = append(g.rows[row], sheets.Cell{})
	}
	g.rows[row][col] = c
}

// lastRow returns the index of the last row holding a non-empty cell, or -1.
func (g *Grid) lastRow() int {
	for i := len(g.rows) - 1; i >= 0; i-- {
		for _, c := range g.rows[i] {
			if !c.IsEmpty() {
				return i
			}
		}
	}
	return -1
}

// Apply runs ops in order. It stops at the first invalid operation; earlier
// operations stay applied, so callers wanting atomicity apply to a copy.
func (g *Grid) Apply(ops ...sheets.Operation) error {
	for i, op := range ops {
		switch o := op.(type) {
		case sheets.UpdateCells:
			if o.Row < 0 || o.Col < 0 {
				return fmt.Errorf("%w: op %d: negative start", ErrInvalidOperation, i)
			}
			for r, cells := range o.Rows {
				for c, cell := range cells {
					g.set(o.Row+r, o.Col+c, cell)
				}
			}
		case sheets.AppendRow:
			row := g.lastRow() + 1
			for c, cell := range o.Cells {
				g.set(row, c, cell)
			}
		case sheets.DeleteRange:
			if err := g.deleteRange(o); err != nil {
				return fmt.Errorf("op %d: %w", i, err)
			}
		default:
			return fmt.Errorf("%w: op %d: unsupported %T", ErrInvalidOperation, i, op)
		}
	}
	return nil
}

func (g *Grid) deleteRange(d sheets.DeleteRange) error {
	if d.StartRow < 0 || d.StartCol < 0 || d.EndRow <= d.StartRow || d.EndCol <= d.StartCol {
		return fmt.Errorf("%w: bad range %+v", ErrInvalidOperation, d)
	}
	shift := d.EndRow - d.StartRow
	for col := d.StartCol; col < d.EndCol; col++ {
		for row := d.StartRow; row < len(g.rows); row++ {
			if col >= len(g.rows[row]) && g.Cell(row+shift, col).IsEmpty() {
				continue
			}
			g.set(row, col, g.Cell(row+shift, col))
		}
	}
	return nil
}

// Values renders every cell the way the Sheets values API does: formulas
// evaluated, numbers in plain decimal notation, trailing blanks trimmed.
func (g *Grid) Values() [][]string {
	ev := newEvaluator(g)
	last := g.lastRow()
	out := make([][]string, last+1)
	for r := 0; r <= last; r++ {
		row := make([]string, len(g.rows[r]))
		end := 0
		for c, cell := range g.rows[r] {
			row[c] = ev.display(r, c, cell)
			if row[c] != "" {
				end = c + 1
			}
		}
		out[r] = row[:end]
	}
	return out
}

// Formats returns the background of every cell up to the last non-empty row.
func (g *Grid) Formats() [][]sheets.CellFormat {
	last := g.lastRow()
	out := make([][]sheets.CellFormat, last+1)
	for r := 0; r <= last; r++ {
		out[r] = make([]sheets.CellFormat, len(g.rows[r]))
		for c, cell := range g.rows[r] {
			if cell.Background != nil {
				bg := *cell.Background
				out[r][c].Background = &bg
			}
		}
	}
	return out
}
