// Package mapping guesses which raw column of a contractor or wholesaler
// export holds each canonical rebate field.
//
// A Profile bundles the candidate header names for every field with the
// comparison rule used to pick among them. The built-in profiles are embedded
// YAML files; a payment cycle can also supply its own profile file.
package mapping

import (
	"embed"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type MatchMode string

const (
	// ExactHeaderFirst walks headers in sheet order and returns the first one
	// equal to any term. Single-character headers never match.
	ExactHeaderFirst MatchMode = "exact_header_first"
	// ExactTermFirst walks terms in list order and returns the header equal to
	// the first term present.
	ExactTermFirst MatchMode = "exact_term_first"
	// Wildcard returns the first header containing any term.
	Wildcard MatchMode = "wildcard"
)

// NullValue marks a field no header matched.
const NullValue = "NULL"

// RowPlaceholder in a profile constant is replaced with the summary row number.
const RowPlaceholder = "{row}"

type Field struct {
	Name  string   `yaml:"name"`
	Terms []string `yaml:"terms"`
}

type Profile struct {
	Name          string            `yaml:"name"`
	StructureType string            `yaml:"structure_type"`
	MatchMode     MatchMode         `yaml:"match_mode"`
	Columns       []string          `yaml:"columns"`
	Constants     map[string]string `yaml:"constants"`
	Fields        []Field           `yaml:"fields"`
}

// FieldMatch is one field and the header chosen for it ("" if none).
type FieldMatch struct {
	Field  string
	Header string
}

type Mapping []FieldMatch

//go:embed profiles/*.yaml
var profileFS embed.FS

// LoadProfiles parses the embedded profiles, keyed by name.
func LoadProfiles() (map[string]*Profile, error) {
	entries, err := profileFS.ReadDir("profiles")
	if err != nil {
		return nil, err
	}
	out := make(map[string]*Profile, len(entries))
	for _, e := range entries {
		data, err := profileFS.ReadFile(path.Join("profiles", e.Name()))
		if err != nil {
			return nil, err
		}
		p, err := parseProfile(data)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", e.Name(), err)
		}
		out[p.Name] = p
	}
	return out, nil
}

// LoadProfileFile parses a profile from disk.
func LoadProfileFile(file string) (*Profile, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	p, err := parseProfile(data)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", file, err)
	}
	return p, nil
}

// ProfileNames lists the embedded profile names, sorted.
func ProfileNames() []string {
	profiles, err := LoadProfiles()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func parseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.StructureType == "" {
		p.StructureType = "unspecified"
	}
	return &p, nil
}

func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	switch p.MatchMode {
	case ExactHeaderFirst, ExactTermFirst, Wildcard:
	default:
		return fmt.Errorf("unknown match_mode %q", p.MatchMode)
	}
	if len(p.Fields) == 0 {
		return fmt.Errorf("profile %s has no fields", p.Name)
	}
	if len(p.Columns) == 0 {
		return fmt.Errorf("profile %s has no columns", p.Name)
	}
	return nil
}

// FieldNames returns the canonical fields in profile order.
func (p *Profile) FieldNames() []string {
	names := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		names[i] = f.Name
	}
	return names
}

// Match maps headers to every profile field.
func (p *Profile) Match(headers []string) Mapping {
	out := make(Mapping, 0, len(p.Fields))
	var byNorm map[string]string
	if p.MatchMode == ExactTermFirst {
		byNorm = normalizedHeaders(headers)
	}
	for _, f := range p.Fields {
		var h string
		switch p.MatchMode {
		case ExactHeaderFirst:
			h = ExactSearch(headers, f.Terms)
		case ExactTermFirst:
			h = exactTermSearch(byNorm, f.Terms)
		case Wildcard:
			h = WildcardSearch(headers, f.Terms)
		}
		out = append(out, FieldMatch{Field: f.Name, Header: h})
	}
	return out
}

// ExactSearch returns the first trimmed header, in sheet order, equal to a
// term ignoring case. Headers of one character or less are skipped.
func ExactSearch(headers, terms []string) string {
	want := make(map[string]bool, len(terms))
	for _, t := range terms {
		want[strings.ToLower(t)] = true
	}
	for _, h := range headers {
		clean := strings.TrimSpace(h)
		if len([]rune(clean)) <= 1 {
			continue
		}
		if want[strings.ToLower(clean)] {
			return clean
		}
	}
	return ""
}

// ExactTermSearch returns the header matching the earliest listed term.
func ExactTermSearch(headers, terms []string) string {
	return exactTermSearch(normalizedHeaders(headers), terms)
}

func exactTermSearch(byNorm map[string]string, terms []string) string {
	for _, t := range terms {
		if h, ok := byNorm[strings.ToLower(strings.TrimSpace(t))]; ok {
			return h
		}
	}
	return ""
}

// normalizedHeaders maps trimmed lower-case headers to the header as written.
// A later duplicate replaces an earlier one.
func normalizedHeaders(headers []string) map[string]string {
	m := make(map[string]string, len(headers))
	for _, h := range headers {
		m[strings.ToLower(strings.TrimSpace(h))] = h
	}
	return m
}

// WildcardSearch returns the first non-empty header containing a term,
// ignoring case.
func WildcardSearch(headers, terms []string) string {
	for _, h := range headers {
		if h == "" {
			continue
		}
		lower := strings.ToLower(strings.TrimSpace(h))
		for _, t := range terms {
			if strings.Contains(lower, strings.ToLower(t)) {
				return h
			}
		}
	}
	return ""
}

// Quote renders a matched header the way the summary sheet expects.
func Quote(header string) string {
	if header == "" {
		return NullValue
	}
	return `"` + header + `"`
}

// Lookup returns the header chosen for field.
func (m Mapping) Lookup(field string) (string, bool) {
	for _, fm := range m {
		if fm.Field == field {
			return fm.Header, true
		}
	}
	return "", false
}

// Matched counts the fields that found a header.
func (m Mapping) Matched() int {
	n := 0
	for _, fm := range m {
		if fm.Header != "" {
			n++
		}
	}
	return n
}
