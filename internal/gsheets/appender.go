// Package gsheets appends summary tables to a shared Google spreadsheet.
package gsheets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"RebateRecon/internal/structure"
)

const driveScope = "https://www.googleapis.com/auth/drive"

// API is the subset of the Sheets service the appender needs.
type API interface {
	GetSpreadsheet(ctx context.Context, spreadsheetID string) (*sheets.Spreadsheet, error)
	GetValues(ctx context.Context, spreadsheetID, rng string) (*sheets.ValueRange, error)
	UpdateValues(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) error
	BatchUpdate(ctx context.Context, spreadsheetID string, reqs []*sheets.Request) (*sheets.BatchUpdateSpreadsheetResponse, error)
}

type serviceAPI struct {
	svc *sheets.Service
}

// NewClient builds a Sheets client from a service-account key file.
func NewClient(ctx context.Context, credentialsFile string) (API, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("google credentials file is not configured")
	}
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope, driveScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return &serviceAPI{svc: svc}, nil
}

func (s *serviceAPI) GetSpreadsheet(ctx context.Context, id string) (*sheets.Spreadsheet, error) {
	return s.svc.Spreadsheets.Get(id).Context(ctx).Do()
}

func (s *serviceAPI) GetValues(ctx context.Context, id, rng string) (*sheets.ValueRange, error) {
	return s.svc.Spreadsheets.Values.Get(id, rng).Context(ctx).Do()
}

func (s *serviceAPI) UpdateValues(ctx context.Context, id, rng string, values [][]interface{}) error {
	vr := &sheets.ValueRange{Range: rng, Values: values}
	_, err := s.svc.Spreadsheets.Values.Update(id, rng, vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	return err
}

func (s *serviceAPI) BatchUpdate(ctx context.Context, id string, reqs []*sheets.Request) (*sheets.BatchUpdateSpreadsheetResponse, error) {
	return s.svc.Spreadsheets.BatchUpdate(id, &sheets.BatchUpdateSpreadsheetRequest{Requests: reqs}).Context(ctx).Do()
}

type Appender struct {
	api API
	log *zap.Logger
}

func NewAppender(api API, log *zap.Logger) *Appender {
	if log == nil {
		log = zap.NewNop()
	}
	return &Appender{api: api, log: log}
}

type AppendResult struct {
	Worksheet string
	StartRow  int
	Rows      int
	Created   bool
}

// Append writes rows under the existing content of worksheet, creating the
// worksheet with a header row first when it does not exist. Row
// placeholders in the values are bound to the row each line lands on.
func (a *Appender) Append(ctx context.Context, spreadsheetID, worksheet string, header []string, rows [][]string) (AppendResult, error) {
	res := AppendResult{Worksheet: worksheet}
	if len(rows) == 0 {
		return res, nil
	}

	ss, err := a.api.GetSpreadsheet(ctx, spreadsheetID)
	if err != nil {
		return res, fmt.Errorf("open spreadsheet %s: %w", spreadsheetID, err)
	}
	props := findSheet(ss, worksheet)
	if props == nil {
		props, err = a.addWorksheet(ctx, spreadsheetID, worksheet, len(rows)+1, len(header))
		if err != nil {
			return res, err
		}
		if err := a.api.UpdateValues(ctx, spreadsheetID, a1(worksheet, 1, 1, len(header)), toValues([][]string{header})); err != nil {
			return res, fmt.Errorf("write header: %w", err)
		}
		res.Created = true
		a.log.Info("created worksheet with headers", zap.String("worksheet", worksheet))
	}

	existing, err := a.api.GetValues(ctx, spreadsheetID, quoteSheet(worksheet))
	if err != nil {
		return res, fmt.Errorf("read worksheet %s: %w", worksheet, err)
	}
	nextRow := len(existing.Values) + 1
	if nextRow == 1 {
		nextRow = 2
	}
	endRow := nextRow + len(rows) - 1

	width := len(header)
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	if err := a.ensureGrid(ctx, spreadsheetID, props, endRow, width); err != nil {
		return res, err
	}

	bound := structure.BindRows(rows, nextRow)
	if err := a.api.UpdateValues(ctx, spreadsheetID, a1(worksheet, nextRow, endRow, width), toValues(bound)); err != nil {
		return res, fmt.Errorf("append rows: %w", err)
	}

	res.StartRow = nextRow
	res.Rows = len(rows)
	a.log.Info("appended rows",
		zap.String("worksheet", worksheet),
		zap.Int("rows", len(rows)),
		zap.Int("start_row", nextRow))
	return res, nil
}

func (a *Appender) addWorksheet(ctx context.Context, id, title string, rows, cols int) (*sheets.SheetProperties, error) {
	req := &sheets.Request{
		AddSheet: &sheets.AddSheetRequest{
			Properties: &sheets.SheetProperties{
				Title: title,
				GridProperties: &sheets.GridProperties{
					RowCount:    int64(rows),
					ColumnCount: int64(cols),
				},
			},
		},
	}
	resp, err := a.api.BatchUpdate(ctx, id, []*sheets.Request{req})
	if err != nil {
		return nil, fmt.Errorf("add worksheet %s: %w", title, err)
	}
	if resp != nil && len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil {
		return resp.Replies[0].AddSheet.Properties, nil
	}
	return req.AddSheet.Properties, nil
}

// ensureGrid appends rows or columns when the sheet grid is smaller than the
// target write.
func (a *Appender) ensureGrid(ctx context.Context, id string, props *sheets.SheetProperties, endRow, width int) error {
	var rowCount, colCount int64
	if props.GridProperties != nil {
		rowCount = props.GridProperties.RowCount
		colCount = props.GridProperties.ColumnCount
	}
	var reqs []*sheets.Request
	if rowCount < int64(endRow) {
		reqs = append(reqs, appendDimension(props.SheetId, "ROWS", int64(endRow)-rowCount))
	}
	if colCount < int64(width) {
		reqs = append(reqs, appendDimension(props.SheetId, "COLUMNS", int64(width)-colCount))
	}
	if len(reqs) == 0 {
		return nil
	}
	if _, err := a.api.BatchUpdate(ctx, id, reqs); err != nil {
		return fmt.Errorf("grow worksheet grid: %w", err)
	}
	return nil
}

func appendDimension(sheetID int64, dim string, n int64) *sheets.Request {
	return &sheets.Request{
		AppendDimension: &sheets.AppendDimensionRequest{
			SheetId:   sheetID,
			Dimension: dim,
			Length:    n,
		},
	}
}

func findSheet(ss *sheets.Spreadsheet, title string) *sheets.SheetProperties {
	if ss == nil {
		return nil
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return s.Properties
		}
	}
	return nil
}

func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func a1(sheet string, startRow, endRow, cols int) string {
	return fmt.Sprintf("%s!A%d:%s%d", quoteSheet(sheet), startRow, structure.ColumnLetter(cols), endRow)
}

func toValues(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, r := range rows {
		line := make([]interface{}, len(r))
		for j, v := range r {
			line[j] = v
		}
		out[i] = line
	}
	return out
}
