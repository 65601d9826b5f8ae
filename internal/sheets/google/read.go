package google

import (
	"context"
	"fmt"
	"strings"

	gsheet "google.golang.org/api/sheets/v4"

	"finsheet/internal/sheets"
)

// ReadValues returns the evaluated cell values of a sheet as strings. Numbers
// come back unformatted so they parse independently of the sheet locale.
func (c *Client) ReadValues(ctx context.Context, partition string) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, quoteTitle(partition)).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		if isUnknownRange(err) {
			return nil, fmt.Errorf("%w: %q", sheets.ErrPartitionNotFound, partition)
		}
		return nil, fmt.Errorf("read values %q: %w", partition, err)
	}
	return toStringRows(resp.Values), nil
}

// ReadFormatting returns the effective background of every cell in the sheet's data range.
func (c *Client) ReadFormatting(ctx context.Context, partition string) ([][]sheets.CellFormat, error) {
	resp, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Ranges(quoteTitle(partition)).
		IncludeGridData(true).
		Fields("sheets(data(rowData(values(effectiveFormat(backgroundColor,backgroundColorStyle)))))").
		Context(ctx).Do()
	if err != nil {
		if isUnknownRange(err) {
			return nil, fmt.Errorf("%w: %q", sheets.ErrPartitionNotFound, partition)
		}
		return nil, fmt.Errorf("read formatting %q: %w", partition, err)
	}
	if len(resp.Sheets) == 0 || len(resp.Sheets[0].Data) == 0 {
		return nil, nil
	}
	return toFormats(resp.Sheets[0].Data[0].RowData), nil
}

func toStringRows(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = cellString(v)
		}
	}
	return out
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return sheets.FormatNumber(t)
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func toFormats(rows []*gsheet.RowData) [][]sheets.CellFormat {
	out := make([][]sheets.CellFormat, len(rows))
	for i, row := range rows {
		if row == nil {
			continue
		}
		out[i] = make([]sheets.CellFormat, len(row.Values))
		for j, cell := range row.Values {
			out[i][j] = sheets.CellFormat{Background: background(cell)}
		}
	}
	return out
}

func background(cell *gsheet.CellData) *sheets.Color {
	if cell == nil || cell.EffectiveFormat == nil {
		return nil
	}
	f := cell.EffectiveFormat
	col := f.BackgroundColor
	if f.BackgroundColorStyle != nil && f.BackgroundColorStyle.RgbColor != nil {
		col = f.BackgroundColorStyle.RgbColor
	}
	if col == nil {
		return nil
	}
	c := sheets.ColorFromUnit(col.Red, col.Green, col.Blue)
	return &c
}
