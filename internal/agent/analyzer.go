package agent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/calderasoft/patternrag/internal/retriever"
)

// Analyzer turns a natural-language query into a structured
// QueryAnalysis using phrase and keyword heuristics. It never fails; an
// unrecognised query yields a list-intent analysis with no object type.
type Analyzer struct{}

func NewAnalyzer() *Analyzer { return &Analyzer{} }

var (
	limitRe = regexp.MustCompile(`\b(?:top|first|last)\s+(\d+)\b`)

	dashboardPhrases = []string{"dashboard", "metrics", "analytics", "overview", "kpi", "summary of"}
	detailPhrases    = []string{"details for", "details of", "detail view", "info about", "profile of", "more about"}
	listPhrases      = []string{"show me", "display", "list", "all ", "every "}

	objectNouns = []string{"lead", "contact", "opportunity", "account", "deal", "user", "customer", "product", "order", "invoice", "task", "ticket"}

	sortAscRe  = regexp.MustCompile(`\bsort(?:ed)?\s+by\s+(\w+)`)
	filterEqRe = regexp.MustCompile(`\bwhere\s+(\w+)\s+(?:=|is|equals)\s+"?([\w-]+)"?`)
)

// Analyze classifies query intent, object type, limit, sort, and simple
// equality filters.
func (a *Analyzer) Analyze(query string) *retriever.QueryAnalysis {
	q := strings.ToLower(strings.TrimSpace(query))
	analysis := &retriever.QueryAnalysis{Intent: retriever.IntentViewList}

	switch {
	case containsAny(q, dashboardPhrases):
		analysis.Intent = retriever.IntentViewDashboard
		analysis.LayoutType = "dashboard"
	case containsAny(q, detailPhrases):
		analysis.Intent = retriever.IntentViewDetail
		analysis.LayoutType = "detail"
	case containsAny(q, listPhrases):
		analysis.Intent = retriever.IntentViewList
		analysis.LayoutType = "list"
	}

	for _, noun := range objectNouns {
		if strings.Contains(q, noun) {
			analysis.ObjectType = noun
			break
		}
	}

	if m := limitRe.FindStringSubmatch(q); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			analysis.Limit = n
		}
	}
	if m := sortAscRe.FindStringSubmatch(q); m != nil {
		analysis.Sort = m[1]
		analysis.FieldsMentioned = appendUnique(analysis.FieldsMentioned, m[1])
	}
	for _, m := range filterEqRe.FindAllStringSubmatch(q, -1) {
		analysis.Filters = append(analysis.Filters, retriever.Filter{Field: m[1], Operator: "eq", Value: m[2]})
		analysis.FieldsMentioned = appendUnique(analysis.FieldsMentioned, m[1])
		analysis.FieldsRequired = appendUnique(analysis.FieldsRequired, m[1])
	}
	return analysis
}

func containsAny(q string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}

func appendUnique(list []string, item string) []string {
	for _, v := range list {
		if v == item {
			return list
		}
	}
	return append(list, item)
}
