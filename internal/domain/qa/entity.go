package qa

// Answer pairs one stored file with the provider's answer to the question.
type Answer struct {
	File   string `json:"file"`
	Answer any    `json:"answer,omitempty"`
	Error  string `json:"error,omitempty"`
}

// AnswerMode selects how the provider reply is turned into an answer.
type AnswerMode string

const (
	AnswerModeExtract AnswerMode = "extract"
	AnswerModeRaw     AnswerMode = "raw"
)
