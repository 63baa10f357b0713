package types

import "encoding/json"

// Inbound event names (connection -> coordinator).
const (
	EventCreatePoll      = "createPoll"
	EventJoinAsStudent   = "joinAsStudent"
	EventJoinAsTeacher   = "joinAsTeacher"
	EventSubmitAnswer    = "submitAnswer"
	EventGetResults      = "getResults"
	EventGetPollHistory  = "getPollHistory"
	EventKickStudent     = "kickStudent"
	EventSendMessage     = "sendMessage"
	EventGetParticipants = "getParticipants"
)

// Outbound event names (coordinator -> one or all connections).
const (
	EventPollCreated        = "pollCreated"
	EventCurrentPoll        = "currentPoll"
	EventTimerUpdate        = "timerUpdate"
	EventResults            = "results"
	EventPollEnded          = "pollEnded"
	EventParticipantsUpdate = "participantsUpdate"
	EventPollHistory        = "pollHistory"
	EventChatMessage        = "chatMessage"
	EventKicked             = "kicked"
	EventError              = "error"
)

// Envelope frames every message on the wire in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// CreatePollRequest is the createPoll payload. A zero Timer selects the
// configured default duration.
type CreatePollRequest struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
	Timer         int      `json:"timer,omitempty"`
}

// JoinStudentRequest is the joinAsStudent payload.
type JoinStudentRequest struct {
	StudentName string `json:"studentName"`
}

// SubmitAnswerRequest is the submitAnswer payload.
type SubmitAnswerRequest struct {
	Answer string `json:"answer"`
}

// KickStudentRequest is the kickStudent payload naming the target connection.
type KickStudentRequest struct {
	ConnectionID string `json:"socketId"`
}

// SendMessageRequest is the sendMessage payload.
type SendMessageRequest struct {
	Message string `json:"message"`
	Sender  string `json:"sender"`
	Role    string `json:"role"`
}

// PollPayload is the poll state pushed in pollCreated and currentPoll.
// The correct answer is intentionally included for every role; see DESIGN.md.
type PollPayload struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
	Timer         int      `json:"timer"`
	TimeRemaining int      `json:"timeRemaining"`
	Status        string   `json:"status"`
}

// TimerUpdatePayload carries the once-per-second countdown broadcast.
type TimerUpdatePayload struct {
	TimeRemaining int `json:"timeRemaining"`
}

// PollEndedPayload carries the final snapshot and the resolved correct answer.
type PollEndedPayload struct {
	Results       ResultsSnapshot `json:"results"`
	CorrectAnswer string          `json:"correctAnswer,omitempty"`
	Message       string          `json:"message"`
}

// ParticipantsUpdatePayload carries the full presence list.
type ParticipantsUpdatePayload struct {
	Participants []ParticipantInfo `json:"participants"`
}

// KickedPayload notifies a student they were removed by the teacher.
type KickedPayload struct {
	Message string `json:"message"`
}

// ErrorPayload is the unicast rejection shape. Errors are never broadcast.
type ErrorPayload struct {
	Message string `json:"message"`
}
