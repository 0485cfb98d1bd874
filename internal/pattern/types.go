package pattern

import (
	"encoding/json"
	"fmt"
)

// DataShape describes the payload shape a template renders.
type DataShape string

const (
	ShapeSingleObject DataShape = "single_object"
	ShapeArray        DataShape = "array"
)

// DataRequirements captures the fields a pattern needs from caller data.
type DataRequirements struct {
	RequiredFields    []string  `json:"required_fields"`
	RecommendedFields []string  `json:"recommended_fields"`
	DataShape         DataShape `json:"data_shape"`
}

// Pattern is one UI layout template as loaded from the corpus directory.
type Pattern struct {
	PatternID    string           `json:"pattern_id"`
	Name         string           `json:"pattern_name"`
	Description  string           `json:"description"`
	UseCases     []string         `json:"use_cases"`
	BestFor      []string         `json:"best_for"`
	AvoidWhen    []string         `json:"avoid_when"`
	Requirements DataRequirements `json:"data_requirements"`
	Structure    json.RawMessage  `json:"schema_structure"`
	Complexity   string           `json:"complexity"`
	LayoutType   string           `json:"best_for_layout"`
	Fallback     bool             `json:"fallback"`
}

// Chunk is one retrievable unit derived from a pattern. A pattern with N
// use cases yields N chunks; a pattern with none yields a single chunk
// built from its name and description.
type Chunk struct {
	ChunkID        string           `json:"chunk_id"`
	PatternID      string           `json:"pattern_id"`
	Variant        int              `json:"variant"`
	SearchableText string           `json:"searchable_text"`
	Keywords       []string         `json:"keywords"`
	Requirements   DataRequirements `json:"data_requirements"`
	Pattern        *Pattern         `json:"-"`
}

// CorpusError reports a corpus file that could not be loaded or failed
// validation.
type CorpusError struct {
	File string
	Err  error
}

func (e *CorpusError) Error() string {
	return fmt.Sprintf("corpus file %s: %v", e.File, e.Err)
}

func (e *CorpusError) Unwrap() error { return e.Err }
