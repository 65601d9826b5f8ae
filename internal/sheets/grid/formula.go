package grid

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"finsheet/internal/sheets"
)

var (
	ErrFormula  = errors.New("unsupported formula")
	ErrCircular = errors.New("circular reference")
)

var (
	reCall  = regexp.MustCompile(`^([A-Z]+)\((.*)\)$`)
	reRef   = regexp.MustCompile(`^([A-Z]+)(\d+)$`)
	reRange = regexp.MustCompile(`^([A-Z]+)(\d*):([A-Z]+)(\d*)$`)
	reTerm  = regexp.MustCompile(`[+-]?[^+-]+`)
)

type pos struct{ row, col int }

// evaluator memoizes results for one rendering pass. Running-balance formulas
// chain through every log row, so each cell must be computed once.
type evaluator struct {
	g        *Grid
	memo     map[pos]float64
	visiting map[pos]bool
}

func newEvaluator(g *Grid) *evaluator {
	return &evaluator{g: g, memo: map[pos]float64{}, visiting: map[pos]bool{}}
}

func (e *evaluator) display(row, col int, c sheets.Cell) string {
	switch c.Kind {
	case sheets.CellText:
		return c.Text
	case sheets.CellNumber:
		return sheets.FormatNumber(c.Number)
	case sheets.CellFormula:
		v, err := e.value(row, col)
		if err != nil {
			return "#ERROR!"
		}
		return sheets.FormatNumber(v)
	}
	return ""
}

// value returns the numeric value of a cell. Text that does not parse counts as 0.
func (e *evaluator) value(row, col int) (float64, error) {
	c := e.g.Cell(row, col)
	switch c.Kind {
	case sheets.CellNumber:
		return c.Number, nil
	case sheets.CellText:
		f, err := strconv.ParseFloat(strings.TrimSpace(c.Text), 64)
		if err != nil {
			return 0, nil
		}
		return f, nil
	case sheets.CellFormula:
		p := pos{row, col}
		if v, ok := e.memo[p]; ok {
			return v, nil
		}
		if e.visiting[p] {
			return 0, fmt.Errorf("%w at %s%d", ErrCircular, sheets.ColumnLetter(col), row+1)
		}
		e.visiting[p] = true
		v, err := e.eval(c.Text)
		delete(e.visiting, p)
		if err != nil {
			return 0, err
		}
		e.memo[p] = v
		return v, nil
	}
	return 0, nil
}

func (e *evaluator) eval(formula string) (float64, error) {
	f := strings.TrimPrefix(strings.TrimSpace(formula), "=")
	f = strings.NewReplacer("$", "", " ", "").Replace(f)
	if m := reCall.FindStringSubmatch(strings.ToUpper(f)); m != nil {
		args := splitArgs(m[2])
		switch m[1] {
		case "SUM":
			return e.sum(args)
		case "SUMBYCOLOR":
			return e.sumByColor(args)
		}
		return 0, fmt.Errorf("%w: %s", ErrFormula, m[1])
	}
	terms := reTerm.FindAllString(f, -1)
	if len(terms) == 0 || strings.Join(terms, "") != f {
		return 0, fmt.Errorf("%w: %q", ErrFormula, formula)
	}
	var total float64
	for _, t := range terms {
		sign := 1.0
		switch t[0] {
		case '-':
			sign, t = -1, t[1:]
		case '+':
			t = t[1:]
		}
		v, err := e.operand(t)
		if err != nil {
			return 0, err
		}
		total += sign * v
	}
	return total, nil
}

func (e *evaluator) operand(t string) (float64, error) {
	if m := reRef.FindStringSubmatch(strings.ToUpper(t)); m != nil {
		row, _ := strconv.Atoi(m[2])
		return e.value(row-1, sheets.ColumnIndex(m[1]))
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: operand %q", ErrFormula, t)
	}
	return v, nil
}

func (e *evaluator) sum(args []string) (float64, error) {
	var total float64
	for _, a := range args {
		if cells, ok := e.cellRange(a); ok {
			for _, p := range cells {
				v, err := e.value(p.row, p.col)
				if err != nil {
					return 0, err
				}
				total += v
			}
			continue
		}
		v, err := e.operand(a)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

// sumByColor adds the cells of a range whose background matches the given hex color.
func (e *evaluator) sumByColor(args []string) (float64, error) {
	if len(args) != 2 {
		return 0, fmt.Errorf("%w: SUMBYCOLOR wants 2 arguments", ErrFormula)
	}
	cells, ok := e.cellRange(args[0])
	if !ok {
		return 0, fmt.Errorf("%w: SUMBYCOLOR range %q", ErrFormula, args[0])
	}
	want, err := sheets.ParseColor(strings.Trim(args[1], `"`))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFormula, err)
	}
	var total float64
	for _, p := range cells {
		c := e.g.Cell(p.row, p.col)
		if c.Background == nil || *c.Background != want {
			continue
		}
		v, err := e.value(p.row, p.col)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

// cellRange expands A1:B2 style ranges. An open end row (C14:C) runs to the last row.
func (e *evaluator) cellRange(s string) ([]pos, bool) {
	m := reRange.FindStringSubmatch(strings.ToUpper(s))
	if m == nil {
		return nil, false
	}
	c1, c2 := sheets.ColumnIndex(m[1]), sheets.ColumnIndex(m[3])
	r1, r2 := 0, e.g.lastRow()
	if m[2] != "" {
		n, _ := strconv.Atoi(m[2])
		r1 = n - 1
	}
	if m[4] != "" {
		n, _ := strconv.Atoi(m[4])
		r2 = n - 1
	}
	if c1 > c2 {
		c1, c2 = c2, c1
	}
	var out []pos
	for r := r1; r <= r2; r++ {
		for c := c1; c <= c2; c++ {
			out = append(out, pos{r, c})
		}
	}
	return out, true
}

// splitArgs splits on , or ; outside double quotes.
func splitArgs(s string) []string {
	var (
		out     []string
		cur     strings.Builder
		inQuote bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case (r == ',' || r == ';') && !inQuote:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 || len(out) > 0 {
		out = append(out, cur.String())
	}
	return out
}
