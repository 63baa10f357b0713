package registry

import (
	"livepoll/internal/common/clock"
	"livepoll/pkg/types"
)

// Registry tracks connected teachers and students by connection id. It holds
// no locks of its own: all mutation happens on the coordinator's single event
// timeline, so the registry is plain owned state rather than a shared
// structure.
type Registry struct {
	participants map[string]*entry
	clock        clock.Clock
	nextSeq      int
}

// entry wraps a participant with its join sequence for stable presence
// ordering.
type entry struct {
	participant types.Participant
	seq         int
}

// New creates an empty registry.
func New(clk clock.Clock) *Registry {
	if clk == nil {
		clk = &clock.DefaultClock{}
	}
	return &Registry{
		participants: make(map[string]*entry),
		clock:        clk,
	}
}

// RegisterStudent adds or replaces the participant for a connection as a
// student. A connection holds at most one role, so any previous entry for
// the connection is superseded.
func (r *Registry) RegisterStudent(connectionID, displayName string) error {
	if err := types.ValidateStudentName(displayName); err != nil {
		return err
	}
	r.register(connectionID, types.RoleStudent, displayName)
	return nil
}

// RegisterTeacher adds or replaces the participant for a connection as a
// teacher.
func (r *Registry) RegisterTeacher(connectionID string) {
	r.register(connectionID, types.RoleTeacher, "")
}

func (r *Registry) register(connectionID, role, displayName string) {
	r.nextSeq++
	r.participants[connectionID] = &entry{
		participant: types.Participant{
			ConnectionID: connectionID,
			Role:         role,
			DisplayName:  displayName,
			ConnectedAt:  r.clock.Now(),
		},
		seq: r.nextSeq,
	}
}

// Remove deletes the participant for a connection. Idempotent: removing an
// unknown connection is a no-op.
func (r *Registry) Remove(connectionID string) {
	delete(r.participants, connectionID)
}

// Role returns the role held by a connection, if any.
func (r *Registry) Role(connectionID string) (string, bool) {
	e, ok := r.participants[connectionID]
	if !ok {
		return "", false
	}
	return e.participant.Role, true
}

// StudentName returns the display name of a registered student.
func (r *Registry) StudentName(connectionID string) (string, bool) {
	e, ok := r.participants[connectionID]
	if !ok || e.participant.Role != types.RoleStudent {
		return "", false
	}
	return e.participant.DisplayName, true
}

// IsTeacher reports whether the connection is registered as a teacher.
func (r *Registry) IsTeacher(connectionID string) bool {
	role, ok := r.Role(connectionID)
	return ok && role == types.RoleTeacher
}

// StudentCount returns the number of registered students. This is the
// denominator of the completion check.
func (r *Registry) StudentCount() int {
	return r.count(types.RoleStudent)
}

// TeacherCount returns the number of registered teachers.
func (r *Registry) TeacherCount() int {
	return r.count(types.RoleTeacher)
}

func (r *Registry) count(role string) int {
	n := 0
	for _, e := range r.participants {
		if e.participant.Role == role {
			n++
		}
	}
	return n
}

// Snapshot returns the presence list for participantsUpdate broadcasts:
// teachers first, then students, each group in join order. Teachers are
// reported with the fixed display name "Teacher".
func (r *Registry) Snapshot() []types.ParticipantInfo {
	teachers := r.collect(types.RoleTeacher)
	students := r.collect(types.RoleStudent)
	return append(teachers, students...)
}

func (r *Registry) collect(role string) []types.ParticipantInfo {
	var entries []*entry
	for _, e := range r.participants {
		if e.participant.Role == role {
			entries = append(entries, e)
		}
	}
	// Insertion sort by join sequence; participant counts are classroom-sized.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j-1].seq > entries[j].seq; j-- {
			entries[j-1], entries[j] = entries[j], entries[j-1]
		}
	}

	infos := make([]types.ParticipantInfo, 0, len(entries))
	for _, e := range entries {
		name := e.participant.DisplayName
		if role == types.RoleTeacher {
			name = "Teacher"
		}
		infos = append(infos, types.ParticipantInfo{
			ConnectionID: e.participant.ConnectionID,
			Name:         name,
			Role:         role,
		})
	}
	return infos
}
