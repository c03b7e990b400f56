package gsheets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/sheets/v4"
)

type update struct {
	rng    string
	values [][]interface{}
}

type fakeAPI struct {
	sheet    *sheets.SheetProperties
	existing [][]interface{}
	updates  []update
	batches  [][]*sheets.Request
	getErr   error
}

func (f *fakeAPI) GetSpreadsheet(ctx context.Context, id string) (*sheets.Spreadsheet, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	ss := &sheets.Spreadsheet{SpreadsheetId: id}
	if f.sheet != nil {
		ss.Sheets = []*sheets.Sheet{{Properties: f.sheet}}
	}
	return ss, nil
}

func (f *fakeAPI) GetValues(ctx context.Context, id, rng string) (*sheets.ValueRange, error) {
	return &sheets.ValueRange{Range: rng, Values: f.existing}, nil
}

func (f *fakeAPI) UpdateValues(ctx context.Context, id, rng string, values [][]interface{}) error {
	f.updates = append(f.updates, update{rng: rng, values: values})
	f.existing = append(f.existing, values...)
	return nil
}

func (f *fakeAPI) BatchUpdate(ctx context.Context, id string, reqs []*sheets.Request) (*sheets.BatchUpdateSpreadsheetResponse, error) {
	f.batches = append(f.batches, reqs)
	resp := &sheets.BatchUpdateSpreadsheetResponse{}
	for _, r := range reqs {
		if r.AddSheet != nil {
			props := *r.AddSheet.Properties
			props.SheetId = 42
			f.sheet = &props
			resp.Replies = append(resp.Replies, &sheets.Response{AddSheet: &sheets.AddSheetResponse{Properties: &props}})
		}
	}
	return resp, nil
}

func TestAppend_CreatesWorksheet(t *testing.T) {
	api := &fakeAPI{}
	a := NewAppender(api, nil)

	header := []string{"payment_run", "file_name", "note"}
	rows := [][]string{
		{"20250901", "a.xlsx", "=B{row}"},
		{"20250901", "b.xlsx", ""},
	}
	res, err := a.Append(context.Background(), "sheet-id", "info", header, rows)
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.Equal(t, 2, res.StartRow)
	assert.Equal(t, 2, res.Rows)

	require.Len(t, api.batches, 1, "grid already sized for the rows")
	add := api.batches[0][0].AddSheet
	require.NotNil(t, add)
	assert.Equal(t, "info", add.Properties.Title)
	assert.EqualValues(t, 3, add.Properties.GridProperties.RowCount)
	assert.EqualValues(t, 3, add.Properties.GridProperties.ColumnCount)

	require.Len(t, api.updates, 2)
	assert.Equal(t, "'info'!A1:C1", api.updates[0].rng)
	assert.Equal(t, []interface{}{"payment_run", "file_name", "note"}, api.updates[0].values[0])
	assert.Equal(t, "'info'!A2:C3", api.updates[1].rng)
	assert.Equal(t, "=B2", api.updates[1].values[0][2])
	assert.Equal(t, "b.xlsx", api.updates[1].values[1][1])
}

func TestAppend_ExistingWorksheetGrowsGrid(t *testing.T) {
	api := &fakeAPI{
		sheet: &sheets.SheetProperties{
			SheetId:        7,
			Title:          "info",
			GridProperties: &sheets.GridProperties{RowCount: 4, ColumnCount: 2},
		},
		existing: [][]interface{}{{"h1", "h2"}, {"x", "y"}, {"x", "y"}},
	}
	a := NewAppender(api, nil)

	res, err := a.Append(context.Background(), "id", "info", []string{"a", "b", "c"}, [][]string{
		{"1", "2", "3"}, {"4", "5", "6"},
	})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, 4, res.StartRow)

	require.Len(t, api.batches, 1)
	reqs := api.batches[0]
	require.Len(t, reqs, 2)
	assert.Equal(t, "ROWS", reqs[0].AppendDimension.Dimension)
	assert.EqualValues(t, 1, reqs[0].AppendDimension.Length)
	assert.EqualValues(t, 7, reqs[0].AppendDimension.SheetId)
	assert.Equal(t, "COLUMNS", reqs[1].AppendDimension.Dimension)
	assert.EqualValues(t, 1, reqs[1].AppendDimension.Length)

	require.Len(t, api.updates, 1)
	assert.Equal(t, "'info'!A4:C5", api.updates[0].rng)
}

func TestAppend_EmptySheetStartsOnRowTwo(t *testing.T) {
	api := &fakeAPI{
		sheet: &sheets.SheetProperties{
			Title:          "info",
			GridProperties: &sheets.GridProperties{RowCount: 1000, ColumnCount: 26},
		},
	}
	res, err := NewAppender(api, nil).Append(context.Background(), "id", "info", []string{"a"}, [][]string{{"1"}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.StartRow)
	assert.Empty(t, api.batches)
	assert.Equal(t, "'info'!A2:A2", api.updates[0].rng)
}

func TestAppend_NoRows(t *testing.T) {
	api := &fakeAPI{getErr: errors.New("must not be called")}
	res, err := NewAppender(api, nil).Append(context.Background(), "id", "info", []string{"a"}, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Rows)
}

func TestAppend_SpreadsheetError(t *testing.T) {
	api := &fakeAPI{getErr: errors.New("403")}
	_, err := NewAppender(api, nil).Append(context.Background(), "id", "info", []string{"a"}, [][]string{{"1"}})
	assert.ErrorContains(t, err, "403")
}

func TestQuoteSheet(t *testing.T) {
	assert.Equal(t, "'Bob''s'", quoteSheet("Bob's"))
	assert.Equal(t, "'my sheet'!A2:AB9", a1("my sheet", 2, 9, 28))
}

func TestNewAPI_RequiresCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), "")
	assert.Error(t, err)
}
