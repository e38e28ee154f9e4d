package run

import "time"

type Status string

const (
	StatusStarted    Status = "STARTED"
	StatusFetching   Status = "FETCHING"
	StatusValidating Status = "VALIDATING"
	StatusStoring    Status = "STORING"
	StatusSucceeded  Status = "SUCCEEDED"
	StatusFailed     Status = "FAILED"
)

// next is the only forward transition out of each non-terminal status.
// Any non-terminal status may also move to StatusFailed.
var next = map[Status]Status{
	StatusStarted:    StatusFetching,
	StatusFetching:   StatusValidating,
	StatusValidating: StatusStoring,
	StatusStoring:    StatusSucceeded,
}

func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

func (s Status) Valid() bool {
	_, ok := next[s]
	return ok || s.Terminal()
}

func (s Status) CanTransitionTo(to Status) bool {
	if s.Terminal() {
		return false
	}
	return to == StatusFailed || next[s] == to
}

type Run struct {
	ID          string     `json:"id"`
	Provider    string     `json:"provider"`
	Base        string     `json:"base"`
	Status      Status     `json:"status"`
	RatesDate   *time.Time `json:"ratesDate,omitempty"`
	RowsWritten int64      `json:"rowsWritten"`
	ErrorKind   string     `json:"errorKind,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}
