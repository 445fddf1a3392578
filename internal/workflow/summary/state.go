package summary

// Role identifies who wrote a workflow message
type Role string

const (
	RoleAssistant Role = "assistant"
)

// Message is one model output recorded by the workflow
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// State flows through the summary workflow
type State struct {
	AccumulatedText  string
	Reasoning        string
	SelectedTemplate Template
	Messages         []Message
}

// NewState starts a summary of text
func NewState(text string) State {
	return State{
		AccumulatedText:  text,
		SelectedTemplate: DefaultTemplate,
	}
}

// Summary returns the content of the last message, or false when nothing was produced
func (s State) Summary() (string, bool) {
	if len(s.Messages) == 0 {
		return "", false
	}
	return s.Messages[len(s.Messages)-1].Content, true
}
