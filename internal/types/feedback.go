package types

// TermConfidenceThreshold is the minimum confidence at which a glossary term
// suggestion is applied. The threshold is inclusive.
const TermConfidenceThreshold = 0.75

// FeedbackItem is a correction accepted by the user in a previous session.
// It is applied unconditionally when both Before and After are present and
// Before still appears in the current text.
type FeedbackItem struct {
	ID     string `json:"id"`
	Kind   string `json:"kind,omitempty"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// Applicable reports whether the item carries enough data to be applied.
func (f FeedbackItem) Applicable() bool {
	return f.Before != "" && f.After != ""
}

// TermSuggestion is a glossary substitution proposed by the term service.
// It is applied only when Confidence meets TermConfidenceThreshold.
type TermSuggestion struct {
	ID         string  `json:"id"`
	Kind       string  `json:"kind,omitempty"`
	Before     string  `json:"before"`
	After      string  `json:"after"`
	Confidence float64 `json:"confidence"`
}

// Applicable reports whether the suggestion clears the confidence threshold
// and carries enough data to be applied.
func (t TermSuggestion) Applicable() bool {
	return t.Before != "" && t.After != "" && t.Confidence >= TermConfidenceThreshold
}

// ChangeStep records one edit applied by the deterministic rewriter.
type ChangeStep struct {
	Kind    string `json:"kind"`
	Before  string `json:"before,omitempty"`
	After   string `json:"after,omitempty"`
	Count   int    `json:"count,omitempty"`
	Source  string `json:"source,omitempty"`
	Detail  string `json:"detail,omitempty"`
	StepNum int    `json:"step_num"`
}

// ChangeLog is the ordered audit trail of everything the rewriter changed.
type ChangeLog struct {
	Steps []ChangeStep `json:"steps"`
}

// Append records a step, assigning the next ordinal.
func (c *ChangeLog) Append(step ChangeStep) {
	step.StepNum = len(c.Steps) + 1
	c.Steps = append(c.Steps, step)
}
