package types

import (
	"time"
)

// Roles a connection may hold. A connection has at most one role at a time.
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Poll lifecycle states.
const (
	PollStatusActive = "active"
	PollStatusEnded  = "ended"
)

// DefaultPollDuration is the countdown applied when a createPoll request
// omits the timer field.
const DefaultPollDuration = 60

// Participant is a connected teacher or student tracked by the registry.
type Participant struct {
	ConnectionID string    `json:"connectionId"`
	Role         string    `json:"role"`
	DisplayName  string    `json:"displayName,omitempty"` // students only
	ConnectedAt  time.Time `json:"connectedAt"`
}

// ParticipantInfo is the presence-broadcast shape sent in participantsUpdate.
// Teachers are reported with the fixed name "Teacher".
type ParticipantInfo struct {
	ConnectionID string `json:"socketId"`
	Name         string `json:"name"`
	Role         string `json:"role"`
}

// Poll is the single question-with-options unit being voted on. Exactly one
// poll exists at a time; it is owned by the lifecycle coordinator and
// replaced, never mutated, when a new poll is created.
type Poll struct {
	Question      string    `json:"question"`
	Options       []string  `json:"options"`
	CorrectAnswer string    `json:"correctAnswer,omitempty"`
	Duration      int       `json:"timer"` // seconds
	CreatedAt     time.Time `json:"createdAt"`
	Status        string    `json:"status"`
}

// HasOption reports whether choice is one of the poll's options.
func (p *Poll) HasOption(choice string) bool {
	for _, option := range p.Options {
		if option == choice {
			return true
		}
	}
	return false
}

// Answer is one student's recorded choice for the current poll.
type Answer struct {
	ParticipantID string    `json:"participantId"`
	StudentName   string    `json:"studentName"`
	Choice        string    `json:"answer"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// ResultsSnapshot is the derived vote tally for a poll. It is recomputed on
// demand and never mutated in place. TotalStudents reflects the registry's
// student count at the moment the snapshot is taken, which may differ from
// the completion-check denominator if students disconnect after answering.
type ResultsSnapshot struct {
	PerOption     map[string]int `json:"results"`
	TotalVotes    int            `json:"totalVotes"`
	TotalStudents int            `json:"totalStudents"`
}

// HistoryRecord is the immutable copy of an ended poll plus its final
// results, appended exactly once at the Ended transition.
type HistoryRecord struct {
	Question      string          `json:"question"`
	Options       []string        `json:"options"`
	CorrectAnswer string          `json:"correctAnswer,omitempty"`
	Duration      int             `json:"timer"`
	CreatedAt     time.Time       `json:"createdAt"`
	EndedAt       time.Time       `json:"endedAt"`
	Results       ResultsSnapshot `json:"results"`
	TotalStudents int             `json:"totalStudents"`
}

// ChatMessage is a fan-out chat entry. The coordinator stamps the sender
// connection id and timestamp server-side.
type ChatMessage struct {
	Message      string    `json:"message"`
	Sender       string    `json:"sender"`
	Role         string    `json:"role"`
	ConnectionID string    `json:"socketId"`
	Timestamp    time.Time `json:"timestamp"`
}
