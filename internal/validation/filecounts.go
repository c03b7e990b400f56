package validation

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	StatusMatch    = "found (count matches)"
	StatusNoCount  = "found (no input count)"
	StatusNotFound = "not found"
	StatusMissing  = "MISSING"
)

var countLineRe = regexp.MustCompile(`(.+?)\s+(\d+)$`)

// CountLine is one pasted "<file name> <row count>" line.
type CountLine struct {
	Name  string
	Count *int64
}

// ParseCountLines reads one file per line. A line without a trailing count
// keeps the whole line as the name. Blank lines are skipped.
func ParseCountLines(r io.Reader) ([]CountLine, error) {
	var out []CountLine
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		m := countLineRe.FindStringSubmatch(line)
		if m == nil {
			out = append(out, CountLine{Name: line})
			continue
		}
		n, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			out = append(out, CountLine{Name: line})
			continue
		}
		out = append(out, CountLine{Name: strings.TrimSpace(m[1]), Count: &n})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read counts: %w", err)
	}
	return out, nil
}

type FileCountResult struct {
	FileName   string
	InputCount *int64
	DBCount    *int64
	Status     string
}

func mismatchStatus(input, db int64) string {
	return fmt.Sprintf("found (count mismatch: input=%d, db=%d)", input, db)
}

// CompareFileCounts checks the pasted counts against the warehouse counts.
// Input lines come first in input order, then warehouse files the input
// never named, by name.
func CompareFileCounts(input []CountLine, dbCounts map[string]int64) []FileCountResult {
	var out []FileCountResult
	named := make(map[string]bool, len(input))
	for _, in := range input {
		named[in.Name] = true
		res := FileCountResult{FileName: in.Name, InputCount: in.Count}
		db, ok := dbCounts[in.Name]
		switch {
		case !ok:
			res.Status = StatusNotFound
		case in.Count == nil:
			res.Status = StatusNoCount
		case *in.Count == db:
			res.Status = StatusMatch
		default:
			res.Status = mismatchStatus(*in.Count, db)
		}
		if ok {
			n := db
			res.DBCount = &n
		}
		out = append(out, res)
	}

	var extra []string
	for name := range dbCounts {
		if !named[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		n := dbCounts[name]
		out = append(out, FileCountResult{FileName: name, DBCount: &n, Status: StatusMissing})
	}
	return out
}

type FileCountSummary struct {
	Checked    int
	Matched    int
	Mismatched int
	NoCount    int
	NotFound   int
	Missing    int
}

func Summarize(results []FileCountResult) FileCountSummary {
	var s FileCountSummary
	for _, r := range results {
		if r.Status != StatusMissing {
			s.Checked++
		}
		switch {
		case r.Status == StatusMatch:
			s.Matched++
		case r.Status == StatusNoCount:
			s.NoCount++
		case r.Status == StatusNotFound:
			s.NotFound++
		case r.Status == StatusMissing:
			s.Missing++
		case strings.Contains(r.Status, "count mismatch"):
			s.Mismatched++
		}
	}
	return s
}

var fileCountHeader = []string{"file_name", "input_count", "db_count", "status"}

func WriteFileCounts(path string, results []FileCountResult) error {
	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{r.FileName, formatCount(r.InputCount), formatCount(r.DBCount), r.Status}
	}
	return writeCSV(path, fileCountHeader, rows)
}
