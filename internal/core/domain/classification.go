package domain

// ClassificationSource records which stage produced a result.
type ClassificationSource string

const (
	// SourceModel means the external model produced the label.
	SourceModel ClassificationSource = "model"
	// SourceHeuristic means the keyword heuristic produced the label.
	SourceHeuristic ClassificationSource = "heuristic"
	// SourceNone means no label could be produced.
	SourceNone ClassificationSource = "none"
)

// ClassificationResult is a label decision for one item.
// A non-empty Label is always a member of the allowed-label set the
// classifier was given. Rationale is for logs only.
type ClassificationResult struct {
	Label      string               `json:"label"`
	Confidence float64              `json:"confidence"`
	Rationale  string               `json:"rationale"`
	Source     ClassificationSource `json:"-"`
}

// ClassifyInput is what the classifier sees for one item.
type ClassifyInput struct {
	Filename      string
	Text          string
	AllowedLabels []string
	Descriptions  map[string]string
}

// Allows reports whether label is in the allowed set.
func (in ClassifyInput) Allows(label string) bool {
	for _, l := range in.AllowedLabels {
		if l == label {
			return true
		}
	}
	return false
}

// ModelOutcomeKind discriminates ModelOutcome.
type ModelOutcomeKind int

const (
	// ModelSucceeded means the model returned a schema-valid, in-set label.
	ModelSucceeded ModelOutcomeKind = iota
	// ModelUnavailable means the model is absent, unreachable, or refused the call.
	ModelUnavailable
	// ModelInvalidResponse means the model answered but the answer is unusable.
	ModelInvalidResponse
)

// String returns the outcome name.
func (k ModelOutcomeKind) String() string {
	switch k {
	case ModelSucceeded:
		return "succeeded"
	case ModelUnavailable:
		return "unavailable"
	case ModelInvalidResponse:
		return "invalid-response"
	default:
		return "unknown"
	}
}

// ModelOutcome is the typed result of the primary classification stage.
type ModelOutcome struct {
	Kind   ModelOutcomeKind
	Result ClassificationResult
	Err    error
}

// Succeeded wraps a usable model result.
func Succeeded(result ClassificationResult) ModelOutcome {
	result.Source = SourceModel
	return ModelOutcome{Kind: ModelSucceeded, Result: result}
}

// Unavailable reports that the model could not be asked.
func Unavailable(err error) ModelOutcome {
	return ModelOutcome{Kind: ModelUnavailable, Err: err}
}

// InvalidResponse reports that the model's answer was unusable.
func InvalidResponse(err error) ModelOutcome {
	return ModelOutcome{Kind: ModelInvalidResponse, Err: err}
}
