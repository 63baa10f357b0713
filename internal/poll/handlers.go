package poll

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"livepoll/internal/ledger"
	"livepoll/pkg/types"
)

// teacherOnly names the role-gated operations. The gate is checked uniformly
// before dispatch; wrong-role senders get a NotAuthorized error rather than
// being silently ignored.
var teacherOnly = map[string]string{
	types.EventCreatePoll:     "Only teachers can create polls",
	types.EventGetPollHistory: "Only teachers can view poll history",
	types.EventKickStudent:    "Only teachers can kick students",
}

// dispatch routes one inbound event. Every rejection is unicast to the
// originator only and leaves shared state untouched.
func (c *Coordinator) dispatch(ev *eventContext) {
	event := ev.envelope.Event

	if msg, gated := teacherOnly[event]; gated && !c.registry.IsTeacher(ev.connectionID) {
		c.logger.Warn("unauthorized operation",
			zap.String("event", event),
			zap.String("connection_id", ev.connectionID))
		c.sendError(ev.connectionID, msg)
		return
	}

	switch event {
	case types.EventCreatePoll:
		c.handleCreatePoll(ev)
	case types.EventJoinAsStudent:
		c.handleJoinStudent(ev)
	case types.EventJoinAsTeacher:
		c.handleJoinTeacher(ev)
	case types.EventSubmitAnswer:
		c.handleSubmitAnswer(ev)
	case types.EventGetResults:
		c.gateway.Unicast(ev.connectionID, types.EventResults, c.snapshot())
	case types.EventGetPollHistory:
		c.handleGetHistory(ev)
	case types.EventKickStudent:
		c.handleKickStudent(ev)
	case types.EventSendMessage:
		c.handleSendMessage(ev)
	case types.EventGetParticipants:
		c.broadcastParticipants()
	default:
		c.sendError(ev.connectionID, "Unknown event")
	}
}

// handleCreatePoll validates eligibility and the poll definition, then
// atomically installs the new poll: ledger reset, countdown restarted, full
// payload broadcast. The correct answer is part of that broadcast; see
// DESIGN.md for the policy decision.
func (c *Coordinator) handleCreatePoll(ev *eventContext) {
	if !c.canCreatePoll() {
		c.sendError(ev.connectionID, "Cannot create new poll")
		return
	}

	var req types.CreatePollRequest
	if err := decode(ev.envelope.Data, &req); err != nil {
		c.sendError(ev.connectionID, "Invalid poll data")
		return
	}

	newPoll, err := types.NewPoll(&req, c.defaultDuration, c.clock.Now())
	if err != nil {
		c.sendError(ev.connectionID, err.Error())
		return
	}

	c.current = newPoll
	c.ledger.Reset()
	c.timeRemaining = newPoll.Duration

	c.gateway.Broadcast(types.EventPollCreated, c.pollPayload())
	c.timer.Start(newPoll.Duration, c.onTick, c.onExpire)

	c.logger.Info("poll created",
		zap.String("question", newPoll.Question),
		zap.Int("options", len(newPoll.Options)),
		zap.Int("duration_seconds", newPoll.Duration))
}

func (c *Coordinator) handleJoinStudent(ev *eventContext) {
	var req types.JoinStudentRequest
	if err := decode(ev.envelope.Data, &req); err != nil {
		c.sendError(ev.connectionID, "Invalid join data")
		return
	}

	if err := c.registry.RegisterStudent(ev.connectionID, req.StudentName); err != nil {
		c.sendError(ev.connectionID, "Student name is required")
		return
	}

	c.broadcastParticipants()

	// Late joiners catch up on the in-flight poll.
	if c.current != nil && c.current.Status == types.PollStatusActive {
		c.gateway.Unicast(ev.connectionID, types.EventCurrentPoll, c.pollPayload())
	}

	c.logger.Info("student joined",
		zap.String("connection_id", ev.connectionID),
		zap.String("name", req.StudentName))
}

func (c *Coordinator) handleJoinTeacher(ev *eventContext) {
	c.registry.RegisterTeacher(ev.connectionID)
	c.broadcastParticipants()
	c.logger.Info("teacher joined", zap.String("connection_id", ev.connectionID))
}

// handleSubmitAnswer records a student's choice and runs the completion
// check. Validate-then-apply throughout: a rejection never touches the
// ledger.
func (c *Coordinator) handleSubmitAnswer(ev *eventContext) {
	var req types.SubmitAnswerRequest
	if err := decode(ev.envelope.Data, &req); err != nil {
		c.sendError(ev.connectionID, "Invalid answer")
		return
	}

	name, joined := c.registry.StudentName(ev.connectionID)
	if !joined {
		c.sendError(ev.connectionID, "Please join as student first")
		return
	}

	if err := c.ledger.Submit(ev.connectionID, name, req.Answer, c.current); err != nil {
		c.sendError(ev.connectionID, submitErrorMessage(err))
		return
	}

	c.gateway.Broadcast(types.EventResults, c.snapshot())
	c.logger.Info("answer recorded",
		zap.String("student", name),
		zap.String("answer", req.Answer))

	c.checkCompletion()
}

func (c *Coordinator) handleGetHistory(ev *eventContext) {
	records, err := c.history.All(context.Background())
	if err != nil {
		c.logger.Error("failed to read poll history", zap.Error(err))
		c.sendError(ev.connectionID, "Poll history unavailable")
		return
	}
	if records == nil {
		records = []*types.HistoryRecord{}
	}
	c.gateway.Unicast(ev.connectionID, types.EventPollHistory, records)
}

// handleKickStudent removes the target immediately: registry entry and any
// pending answer are gone before the kicked notification is even queued. The
// delayed transport close is a presentation affordance only.
func (c *Coordinator) handleKickStudent(ev *eventContext) {
	var req types.KickStudentRequest
	if err := decode(ev.envelope.Data, &req); err != nil {
		c.sendError(ev.connectionID, "Invalid kick request")
		return
	}

	role, ok := c.registry.Role(req.ConnectionID)
	if !ok || role != types.RoleStudent {
		c.sendError(ev.connectionID, "Student not found")
		return
	}

	c.registry.Remove(req.ConnectionID)
	c.ledger.Remove(req.ConnectionID)
	c.broadcastParticipants()

	c.gateway.Unicast(req.ConnectionID, types.EventKicked, types.KickedPayload{
		Message: "You have been removed by the teacher",
	})
	c.gateway.CloseAfter(req.ConnectionID, c.kickGrace)

	c.logger.Info("student kicked",
		zap.String("connection_id", req.ConnectionID),
		zap.String("by", ev.connectionID))

	// The denominator shrank; an in-flight poll may now be complete.
	c.checkCompletion()
}

func (c *Coordinator) handleSendMessage(ev *eventContext) {
	var req types.SendMessageRequest
	if err := decode(ev.envelope.Data, &req); err != nil {
		c.sendError(ev.connectionID, "Invalid message")
		return
	}

	message := types.ChatMessage{
		Message:      req.Message,
		Sender:       req.Sender,
		Role:         req.Role,
		ConnectionID: ev.connectionID,
		Timestamp:    c.clock.Now(),
	}
	c.chat.Append(message)
	c.gateway.Broadcast(types.EventChatMessage, message)
}

// handleDisconnect purges all state for a connection and re-evaluates
// completion: a dropped student shrinks the denominator, which can make an
// in-flight poll complete.
func (c *Coordinator) handleDisconnect(connectionID string) {
	_, known := c.registry.Role(connectionID)
	c.registry.Remove(connectionID)
	c.ledger.Remove(connectionID)

	if known {
		c.broadcastParticipants()
		c.checkCompletion()
	}
}

func (c *Coordinator) handleTick(remaining int) {
	if c.current == nil || c.current.Status != types.PollStatusActive {
		return
	}
	c.timeRemaining = remaining
	c.gateway.Broadcast(types.EventTimerUpdate, types.TimerUpdatePayload{TimeRemaining: remaining})
}

// canCreatePoll is the eligibility rule: a new poll may be created iff
// no poll exists yet, or the current poll is ended and everyone still
// registered has answered.
func (c *Coordinator) canCreatePoll() bool {
	if c.current == nil {
		return true
	}
	if c.current.Status == types.PollStatusEnded {
		return c.ledger.Size() == c.registry.StudentCount()
	}
	return false
}

// checkCompletion transitions to Ended when every registered student has
// answered. Invoked after each accepted answer and each registry removal
// while a poll is active.
func (c *Coordinator) checkCompletion() {
	if c.current == nil || c.current.Status != types.PollStatusActive {
		return
	}
	students := c.registry.StudentCount()
	if students > 0 && c.ledger.Size() == students {
		c.endPoll("All students have answered")
	}
}

// endPoll is the single Ended transition: idempotent, so completion and
// timer expiry arriving in the same breath still end the poll exactly once.
// On the first call it cancels the countdown, freezes the final snapshot,
// appends the history record, and broadcasts pollEnded.
func (c *Coordinator) endPoll(message string) {
	if c.current == nil || c.current.Status != types.PollStatusActive {
		return
	}

	c.current.Status = types.PollStatusEnded
	c.timer.Cancel()

	final := c.snapshot()
	record := &types.HistoryRecord{
		Question:      c.current.Question,
		Options:       c.current.Options,
		CorrectAnswer: c.current.CorrectAnswer,
		Duration:      c.current.Duration,
		CreatedAt:     c.current.CreatedAt,
		EndedAt:       c.clock.Now(),
		Results:       final,
		TotalStudents: final.TotalStudents,
	}
	if err := c.history.Append(context.Background(), record); err != nil {
		c.logger.Error("failed to append history record", zap.Error(err))
	}

	c.gateway.Broadcast(types.EventPollEnded, types.PollEndedPayload{
		Results:       final,
		CorrectAnswer: c.current.CorrectAnswer,
		Message:       message,
	})

	c.logger.Info("poll ended",
		zap.String("question", c.current.Question),
		zap.String("reason", message),
		zap.Int("total_votes", final.TotalVotes))
}

func (c *Coordinator) broadcastParticipants() {
	c.gateway.Broadcast(types.EventParticipantsUpdate, types.ParticipantsUpdatePayload{
		Participants: c.registry.Snapshot(),
	})
}

func (c *Coordinator) pollPayload() types.PollPayload {
	return types.PollPayload{
		Question:      c.current.Question,
		Options:       c.current.Options,
		CorrectAnswer: c.current.CorrectAnswer,
		Timer:         c.current.Duration,
		TimeRemaining: c.timeRemaining,
		Status:        c.current.Status,
	}
}

func (c *Coordinator) sendError(connectionID, message string) {
	c.gateway.Unicast(connectionID, types.EventError, types.ErrorPayload{Message: message})
}

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func submitErrorMessage(err error) string {
	switch {
	case errors.Is(err, ledger.ErrNoActivePoll):
		return "No active poll"
	case errors.Is(err, ledger.ErrAlreadyAnswered):
		return "You have already answered the poll"
	default:
		return "Invalid answer"
	}
}
