package retriever

// Filter is one predicate extracted from a query, e.g. status = "open".
type Filter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// QueryAnalysis is the structured reading of a natural-language query.
// All fields are optional; an empty analysis disables the intent
// component of the fused score.
type QueryAnalysis struct {
	ObjectType      string   `json:"object_type,omitempty"`
	Intent          string   `json:"intent,omitempty"`
	LayoutType      string   `json:"layout_type,omitempty"`
	Filters         []Filter `json:"filters,omitempty"`
	Sort            string   `json:"sort,omitempty"`
	Limit           int      `json:"limit,omitempty"`
	FieldsMentioned []string `json:"fields_mentioned,omitempty"`
	FieldsRequired  []string `json:"fields_required,omitempty"`
}

// Intents recognised by the analyzer and scored against pattern layouts.
const (
	IntentViewList      = "view_list"
	IntentViewDetail    = "view_detail"
	IntentViewDashboard = "view_dashboard"
)
