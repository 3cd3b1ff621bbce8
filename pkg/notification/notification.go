package notification

import (
	"encoding/json"
	"fmt"

	"gocloud.dev/pubsub"
)

// Summary counts the files of an analysed source by verdict.
type Summary struct {
	Files    int `json:"files"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// AnalysisCompletion is a struct representing the message sent to notify
// that byte analysis of a source has completed.
type AnalysisCompletion struct {
	Source  string  `json:"source"`
	Summary Summary `json:"summary"`
}

// ParseJSON takes in a notification JSON and returns an AnalysisCompletion struct.
func ParseJSON(msg *pubsub.Message) (AnalysisCompletion, error) {
	notification := AnalysisCompletion{}
	if err := json.Unmarshal(msg.Body, &notification); err != nil {
		return notification, fmt.Errorf("error unmarshalling json: %w", err)
	}
	return notification, nil
}
