package validation

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"RebateRecon/internal/warehouse"
)

const (
	CategoryPipe    = "pipe"
	CategoryFitting = "fitting"

	PipeDiscrepancy    = "Should be marked as pipe but pipe column is not true"
	FittingDiscrepancy = "Should be marked as fitting but fittings column is not true"
)

// Keyword maps a description fragment to a category. A higher priority
// outranks a lower one.
type Keyword struct {
	Term     string
	Category string
	Priority int
}

var Keywords = []Keyword{
	{"tubing", CategoryPipe, 1}, {"conduit", CategoryPipe, 1}, {"hose", CategoryPipe, 1},
	{"tube", CategoryPipe, 1}, {"solid", CategoryPipe, 2},
	{"elbow", CategoryFitting, 1}, {"tee", CategoryFitting, 1}, {"coupling", CategoryFitting, 1},
	{"union", CategoryFitting, 1}, {"valve", CategoryFitting, 1}, {"connector", CategoryFitting, 1},
	{"adapter", CategoryFitting, 1}, {"reducer", CategoryFitting, 1}, {"cap", CategoryFitting, 1},
	{"plug", CategoryFitting, 1}, {"flange", CategoryFitting, 1}, {"fitting", CategoryFitting, 1},
	{"inc/red", CategoryFitting, 1}, {"bushing", CategoryFitting, 1}, {"bush", CategoryFitting, 1},
	{"wyes", CategoryFitting, 1}, {"increaser", CategoryFitting, 1},
}

// FlagColumns are the product flag columns carried into the report.
var FlagColumns = []string{
	"cast_iron", "plastic", "pipe", "fittings", "pvc", "abs", "dwv",
	"cpvc", "cts", "neither", "questionable", "exclude",
}

type Classification struct {
	Keywords []string
	Category string
}

type keywordHit struct {
	kw  Keyword
	pos int
	idx int
}

// Classify finds every keyword in the lower-cased description, ordered by
// position. The category is that of the highest priority hit, the earliest
// one on ties.
func Classify(desc string, keywords []Keyword) (Classification, bool) {
	lower := strings.ToLower(desc)
	var hits []keywordHit
	for i, kw := range keywords {
		if kw.Term == "" {
			continue
		}
		if p := strings.Index(lower, strings.ToLower(kw.Term)); p >= 0 {
			hits = append(hits, keywordHit{kw: kw, pos: p, idx: i})
		}
	}
	if len(hits) == 0 {
		return Classification{}, false
	}
	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].pos != hits[b].pos {
			return hits[a].pos < hits[b].pos
		}
		return hits[a].idx < hits[b].idx
	})

	var c Classification
	best := hits[0]
	for _, h := range hits {
		c.Keywords = append(c.Keywords, h.kw.Term)
		if h.kw.Priority > best.kw.Priority {
			best = h
		}
	}
	c.Category = best.kw.Category
	return c, true
}

type PipeFittingDiscrepancy struct {
	RowNumber       int64
	ContractorName  string
	ItemDescription string
	KeywordsFound   string
	FinalCategory   string
	PipeValue       string
	FittingsValue   string
	Flags           []string // FlagColumns order
	DiscrepancyType string
}

// FindPipeFittingDiscrepancies returns rows whose description classifies
// as pipe or fitting while the matching flag column is not true. Empty or
// NULL flags count as not true.
func FindPipeFittingDiscrepancies(rows []warehouse.TextRow, keywords []Keyword) []PipeFittingDiscrepancy {
	var out []PipeFittingDiscrepancy
	for _, r := range rows {
		c, ok := Classify(r.Get("item_description"), keywords)
		if !ok {
			continue
		}
		// A blank flag is not true, so an unflagged pipe row is reported.
		var kind string
		switch {
		case c.Category == CategoryPipe && !IsTrue(r.Get("pipe")):
			kind = PipeDiscrepancy
		case c.Category == CategoryFitting && !IsTrue(r.Get("fittings")):
			kind = FittingDiscrepancy
		default:
			continue
		}
		d := PipeFittingDiscrepancy{
			RowNumber:       r.RowID,
			ContractorName:  r.Get("contractor_name"),
			ItemDescription: r.Get("item_description"),
			KeywordsFound:   strings.Join(c.Keywords, ", "),
			FinalCategory:   c.Category,
			PipeValue:       r.Get("pipe"),
			FittingsValue:   r.Get("fittings"),
			DiscrepancyType: kind,
		}
		for _, col := range FlagColumns {
			d.Flags = append(d.Flags, r.Get(col))
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].RowNumber < out[b].RowNumber })
	return out
}

// PipeFittingReport runs FindPipeFittingDiscrepancies over the transactions table.
func PipeFittingReport(ctx context.Context, src Source, table string, log *zap.Logger) ([]PipeFittingDiscrepancy, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if _, err := PreValidateTable(ctx, src, table, []string{"item_description"}); err != nil {
		return nil, err
	}
	cols := append([]string{"contractor_name", "item_description"}, FlagColumns...)
	rows, missing, err := src.ReadText(ctx, table, cols)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		log.Warn("columns missing, read as empty", zap.String("table", table), zap.Strings("columns", missing))
	}
	found := FindPipeFittingDiscrepancies(rows, Keywords)
	log.Info("pipe/fitting categories checked", zap.Int("rows", len(rows)), zap.Int("discrepancies", len(found)))
	return found, nil
}

func pipeFittingHeader() []string {
	h := []string{"row_number", "contractor_name", "item_description", "keywords_found",
		"final_category", "pipe_column_value", "fittings_column_value"}
	h = append(h, FlagColumns...)
	return append(h, "discrepancy_type")
}

func WritePipeFittings(path string, found []PipeFittingDiscrepancy) error {
	rows := make([][]string, len(found))
	for i, d := range found {
		line := []string{strconv.FormatInt(d.RowNumber, 10), d.ContractorName, d.ItemDescription,
			d.KeywordsFound, d.FinalCategory, d.PipeValue, d.FittingsValue}
		line = append(line, d.Flags...)
		rows[i] = append(line, d.DiscrepancyType)
	}
	return writeCSV(path, pipeFittingHeader(), rows)
}
