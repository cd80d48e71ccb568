package architect

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/streakhq/curator/internal/contracts"
)

// Question is the structured result both synthesis paths produce
type Question struct {
	Question         string `json:"question"`
	OptionA          string `json:"option_a"`
	OptionB          string `json:"option_b"`
	DurationHours    int    `json:"duration_hours"`
	ResolutionSource string `json:"resolution_source"`
	SubTag           string `json:"sub_tag"`
	BatchID          string `json:"batch_id"`
	ImagePrompt      string `json:"image_prompt"`
}

// Synthesis is the outcome of a generative attempt. Err is set whenever the
// caller must fall back to the template renderer.
type Synthesis struct {
	Question Question
	Err      error
}

// parseQuestion extracts the outermost JSON object from text and validates it
func parseQuestion(text string) (Question, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Question{}, fmt.Errorf("no JSON object in response")
	}

	var q Question
	if err := json.Unmarshal([]byte(text[start:end+1]), &q); err != nil {
		return Question{}, fmt.Errorf("decode question: %w", err)
	}

	if q.DurationHours == 0 {
		q.DurationHours = contracts.MaxDurationHours
	}
	if err := q.validate(); err != nil {
		return Question{}, err
	}
	return q, nil
}

func (q Question) validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("question is empty")
	}
	if strings.TrimSpace(q.OptionA) == "" || strings.TrimSpace(q.OptionB) == "" {
		return fmt.Errorf("both options are required")
	}
	if strings.EqualFold(q.OptionA, q.OptionB) {
		return fmt.Errorf("options must differ")
	}
	if q.DurationHours < contracts.MinDurationHours || q.DurationHours > contracts.MaxDurationHours {
		return fmt.Errorf("duration_hours %d outside %d..%d", q.DurationHours, contracts.MinDurationHours, contracts.MaxDurationHours)
	}
	return contracts.ValidateSourceURL(q.ResolutionSource)
}
