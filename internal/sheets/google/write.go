package google

import (
	"context"
	"fmt"

	gsheet "google.golang.org/api/sheets/v4"

	"finsheet/internal/sheets"
)

const cellFields = "userEnteredValue,userEnteredFormat.backgroundColor,userEnteredFormat.textFormat.bold"

// BatchWrite sends all operations in a single batchUpdate call, which the
// API applies atomically.
func (c *Client) BatchWrite(ctx context.Context, partition string, ops []sheets.Operation) error {
	if len(ops) == 0 {
		return nil
	}
	id, err := c.sheetID(ctx, partition)
	if err != nil {
		return err
	}
	reqs, err := toRequests(id, ops)
	if err != nil {
		return err
	}
	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{Requests: reqs}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("batch update %q: %w", partition, err)
	}
	return nil
}

func toRequests(sheetID int64, ops []sheets.Operation) ([]*gsheet.Request, error) {
	reqs := make([]*gsheet.Request, 0, len(ops))
	for _, op := range ops {
		switch o := op.(type) {
		case sheets.UpdateCells:
			reqs = append(reqs, &gsheet.Request{UpdateCells: &gsheet.UpdateCellsRequest{
				Start:  &gsheet.GridCoordinate{SheetId: sheetID, RowIndex: int64(o.Row), ColumnIndex: int64(o.Col)},
				Rows:   toRowData(o.Rows),
				Fields: cellFields,
			}})
		case sheets.AppendRow:
			reqs = append(reqs, &gsheet.Request{AppendCells: &gsheet.AppendCellsRequest{
				SheetId: sheetID,
				Rows:    toRowData([][]sheets.Cell{o.Cells}),
				Fields:  cellFields,
			}})
		case sheets.DeleteRange:
			reqs = append(reqs, &gsheet.Request{DeleteRange: &gsheet.DeleteRangeRequest{
				Range: &gsheet.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    int64(o.StartRow),
					EndRowIndex:      int64(o.EndRow),
					StartColumnIndex: int64(o.StartCol),
					EndColumnIndex:   int64(o.EndCol),
				},
				ShiftDimension: "ROWS",
			}})
		default:
			return nil, fmt.Errorf("unsupported operation %T", op)
		}
	}
	return reqs, nil
}

func toRowData(rows [][]sheets.Cell) []*gsheet.RowData {
	out := make([]*gsheet.RowData, len(rows))
	for i, row := range rows {
		values := make([]*gsheet.CellData, len(row))
		for j, cell := range row {
			values[j] = toCellData(cell)
		}
		out[i] = &gsheet.RowData{Values: values}
	}
	return out
}

func toCellData(c sheets.Cell) *gsheet.CellData {
	cd := &gsheet.CellData{}
	switch c.Kind {
	case sheets.CellText:
		s := c.Text
		cd.UserEnteredValue = &gsheet.ExtendedValue{StringValue: &s}
	case sheets.CellNumber:
		f := c.Number
		cd.UserEnteredValue = &gsheet.ExtendedValue{NumberValue: &f}
	case sheets.CellFormula:
		s := c.Text
		cd.UserEnteredValue = &gsheet.ExtendedValue{FormulaValue: &s}
	}
	if c.Background != nil || c.Bold {
		cd.UserEnteredFormat = &gsheet.CellFormat{}
		if c.Background != nil {
			r, g, b := c.Background.Unit()
			// zero channels must still be sent or the API drops them
			cd.UserEnteredFormat.BackgroundColor = &gsheet.Color{
				Red: r, Green: g, Blue: b,
				ForceSendFields: []string{"Red", "Green", "Blue"},
			}
		}
		if c.Bold {
			cd.UserEnteredFormat.TextFormat = &gsheet.TextFormat{Bold: true}
		}
	}
	return cd
}
