package tools

import "time"

// DateInput is the (empty) input for the currentDate tool.
type DateInput struct{}

// DateOutput is the output for the currentDate tool.
type DateOutput struct {
	Date string `json:"date" jsonschema_description:"Today's date in UTC, formatted as YYYY-MM-DD"`
}

// CurrentDate returns today's date in UTC. The model has no reliable notion of
// "today", so date-sensitive questions route through this tool.
func CurrentDate(now func() time.Time) DateOutput {
	if now == nil {
		now = time.Now
	}
	return DateOutput{Date: now().UTC().Format("2006-01-02")}
}
