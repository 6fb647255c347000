package rfm

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	apperrors "shoppulse/internal/errors"
)

// SegmentOthers is the default segment for codes no rule claims.
const SegmentOthers = "Others"

// SegmentRule maps a set of composite codes to a named segment. Rules
// are evaluated in order; the first rule containing the code wins.
type SegmentRule struct {
	Segment string   `yaml:"segment"`
	Codes   []string `yaml:"codes"`
}

// SegmentTable classifies composite codes through an ordered rule list.
// Classification is a total function: unmatched codes fall through to
// the default segment.
type SegmentTable struct {
	rules          []SegmentRule
	index          map[string]string
	defaultSegment string
}

// NewSegmentTable builds a table from ordered rules. When two rules
// claim the same code, the earlier rule wins.
func NewSegmentTable(rules []SegmentRule) *SegmentTable {
	index := make(map[string]string)
	for _, rule := range rules {
		for _, code := range rule.Codes {
			if _, taken := index[code]; !taken {
				index[code] = rule.Segment
			}
		}
	}
	return &SegmentTable{
		rules:          rules,
		index:          index,
		defaultSegment: SegmentOthers,
	}
}

// Classify returns the segment for a composite code.
func (t *SegmentTable) Classify(code string) string {
	if segment, ok := t.index[code]; ok {
		return segment
	}
	return t.defaultSegment
}

// Segments returns every named segment in rule order, ending with the
// default. Used for stable presentation ordering.
func (t *SegmentTable) Segments() []string {
	segments := make([]string, 0, len(t.rules)+1)
	for _, rule := range t.rules {
		segments = append(segments, rule.Segment)
	}
	return append(segments, t.defaultSegment)
}

// DefaultSegmentRules returns the built-in segmentation.
func DefaultSegmentRules() []SegmentRule {
	return []SegmentRule{
		{Segment: "Best Customers", Codes: []string{"444", "344", "434", "443"}},
		{Segment: "Loyal Customers", Codes: []string{"333", "433", "343", "334", "324"}},
		{Segment: "Lost Customers", Codes: []string{"111", "211", "121", "112"}},
		{Segment: "Potential Customers", Codes: []string{"122", "132", "213", "223"}},
	}
}

// LoadSegmentRules reads a rule table from a YAML file. The file is a
// list of {segment, codes} entries in evaluation order.
func LoadSegmentRules(path string) ([]SegmentRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to read segment rules %s", path), err)
	}
	var rules []SegmentRule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to parse segment rules %s", path), err)
	}
	if len(rules) == 0 {
		return nil, apperrors.NewValidationError("segment rules file contains no rules")
	}
	return rules, nil
}
