package sheets

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Color is an opaque RGB background color.
type Color struct {
	R, G, B uint8
}

// White is the spreadsheet default background.
var White = Color{R: 0xff, G: 0xff, B: 0xff}

// ParseColor parses "#rrggbb" (the leading # is optional).
func ParseColor(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// MustColor is ParseColor for literals.
func MustColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ColorFromUnit converts 0..1 float channels, as returned by the Sheets API.
func ColorFromUnit(r, g, b float64) Color {
	return Color{R: unitToByte(r), G: unitToByte(g), B: unitToByte(b)}
}

func unitToByte(f float64) uint8 {
	switch {
	case f <= 0:
		return 0
	case f >= 1:
		return 0xff
	}
	return uint8(math.Round(f * 255))
}

// Unit returns the channels scaled to 0..1.
func (c Color) Unit() (r, g, b float64) {
	return float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255
}

func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c Color) String() string { return c.Hex() }

type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
	CellFormula
)

// Cell is a value to write. Formula cells keep the formula text, including the leading "=".
type Cell struct {
	Kind       CellKind
	Text       string
	Number     float64
	Background *Color
	Bold       bool
}

// CellFormat is the formatting read back for one cell. A nil Background
// means the cell has no explicit background.
type CellFormat struct {
	Background *Color
}

// Empty is a cell with no value.
func Empty() Cell { return Cell{} }

func Text(s string) Cell { return Cell{Kind: CellText, Text: s} }

func Number(f float64) Cell { return Cell{Kind: CellNumber, Number: f} }

func Formula(f string) Cell { return Cell{Kind: CellFormula, Text: f} }

func (c Cell) IsEmpty() bool { return c.Kind == CellEmpty }

// Strong returns a bold copy of the cell.
func (c Cell) Strong() Cell {
	c.Bold = true
	return c
}

// Colored returns a copy of the cell with the given background.
func (c Cell) Colored(col Color) Cell {
	c.Background = &col
	return c
}

// Operation is one step of a batch write.
type Operation interface {
	operation()
}

// UpdateCells overwrites a block of cells starting at (Row, Col), 0-based.
type UpdateCells struct {
	Row, Col int
	Rows     [][]Cell
}

// AppendRow writes Cells into the first row after the last non-empty row.
type AppendRow struct {
	Cells []Cell
}

// DeleteRange removes the cells in [StartRow, EndRow) x [StartCol, EndCol)
// and shifts the cells below it up.
type DeleteRange struct {
	StartRow, EndRow int
	StartCol, EndCol int
}

func (UpdateCells) operation() {}

func (AppendRow) operation() {}

func (DeleteRange) operation() {}

// ColumnLetter converts a 0-based column index to A1 letters.
func ColumnLetter(idx int) string {
	var out []byte
	for idx >= 0 {
		out = append([]byte{byte('A' + idx%26)}, out...)
		idx = idx/26 - 1
	}
	return string(out)
}

// ColumnIndex is the inverse of ColumnLetter. It returns -1 for invalid input.
func ColumnIndex(letters string) int {
	if letters == "" {
		return -1
	}
	n := 0
	for _, r := range strings.ToUpper(letters) {
		if r < 'A' || r > 'Z' {
			return -1
		}
		n = n*26 + int(r-'A'+1)
	}
	return n - 1
}

// FormatNumber renders a numeric cell the way values are read back.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
