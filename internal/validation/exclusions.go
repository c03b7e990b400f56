package validation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"RebateRecon/internal/warehouse"
)

var exclusionColumns = []string{"contractor_name", "archive_file_name", "item_description", "exclude", "potential_earnings"}

type ExclusionIssue struct {
	ContractorName  string
	ArchiveFileName string
	ItemDescription string
	Exclude         string
	IssueType       string
}

// FindExclusionIssues flags transactions whose description names a
// competitor or non-covered product but that are not marked excluded, or
// that still carry potential earnings. Only the first matching term counts.
func FindExclusionIssues(rows []warehouse.TextRow, terms []string) []ExclusionIssue {
	var out []ExclusionIssue
	for _, r := range rows {
		desc := strings.ToLower(r.Get("item_description"))
		term := firstTerm(desc, terms)
		if term == "" {
			continue
		}
		exclude := strings.TrimSpace(r.Get("exclude"))
		issue := ExclusionIssue{
			ContractorName:  r.Get("contractor_name"),
			ArchiveFileName: r.Get("archive_file_name"),
			ItemDescription: r.Get("item_description"),
			Exclude:         exclude,
		}
		if exclude != "Y" {
			issue.IssueType = fmt.Sprintf(`Found "%s" but exclude is not "Y"`, term)
			out = append(out, issue)
		}
		if strings.TrimSpace(r.Get("potential_earnings")) != "" {
			issue.IssueType = fmt.Sprintf(`Found "%s" but potential_earnings is not empty`, term)
			out = append(out, issue)
		}
	}
	return out
}

func firstTerm(desc string, terms []string) string {
	for _, t := range terms {
		if t != "" && strings.Contains(desc, strings.ToLower(t)) {
			return t
		}
	}
	return ""
}

// ExclusionReport runs FindExclusionIssues over the transactions table.
func ExclusionReport(ctx context.Context, src Source, table string, terms []string, log *zap.Logger) ([]ExclusionIssue, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if _, err := PreValidateTable(ctx, src, table, []string{"item_description"}); err != nil {
		return nil, err
	}
	rows, missing, err := src.ReadText(ctx, table, exclusionColumns)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		log.Warn("columns missing, read as empty", zap.String("table", table), zap.Strings("columns", missing))
	}
	issues := FindExclusionIssues(rows, terms)
	log.Info("exclusions checked", zap.Int("rows", len(rows)), zap.Int("issues", len(issues)))
	return issues, nil
}

var exclusionHeader = []string{"contractor_name", "archive_file_name", "item_description", "exclude", "issue_type"}

// WriteExclusions writes the header even when there are no issues.
func WriteExclusions(path string, issues []ExclusionIssue) error {
	rows := make([][]string, len(issues))
	for i, is := range issues {
		rows[i] = []string{is.ContractorName, is.ArchiveFileName, is.ItemDescription, is.Exclude, is.IssueType}
	}
	return writeCSV(path, exclusionHeader, rows)
}
