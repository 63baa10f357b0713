package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livepoll/pkg/types"
)

func TestRegisterStudent_ValidatesName(t *testing.T) {
	r := New(nil)

	require.NoError(t, r.RegisterStudent("s1", "Ada"))
	assert.Error(t, r.RegisterStudent("s2", ""))
	assert.Error(t, r.RegisterStudent("s3", "   "))

	assert.Equal(t, 1, r.StudentCount())
	name, ok := r.StudentName("s1")
	require.True(t, ok)
	assert.Equal(t, "Ada", name)
}

func TestRegister_OneRolePerConnection(t *testing.T) {
	r := New(nil)

	require.NoError(t, r.RegisterStudent("c1", "Ada"))
	r.RegisterTeacher("c1")

	assert.True(t, r.IsTeacher("c1"))
	assert.Equal(t, 0, r.StudentCount())
	assert.Equal(t, 1, r.TeacherCount())
	_, isStudent := r.StudentName("c1")
	assert.False(t, isStudent)
}

func TestRole_Lookups(t *testing.T) {
	r := New(nil)
	r.RegisterTeacher("t1")
	require.NoError(t, r.RegisterStudent("s1", "Ada"))

	role, ok := r.Role("t1")
	require.True(t, ok)
	assert.Equal(t, types.RoleTeacher, role)

	role, ok = r.Role("s1")
	require.True(t, ok)
	assert.Equal(t, types.RoleStudent, role)

	_, ok = r.Role("ghost")
	assert.False(t, ok)
	assert.False(t, r.IsTeacher("ghost"))
	assert.False(t, r.IsTeacher("s1"))
}

func TestRemove_Idempotent(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.RegisterStudent("s1", "Ada"))

	r.Remove("s1")
	r.Remove("s1")
	r.Remove("ghost")

	assert.Equal(t, 0, r.StudentCount())
}

func TestSnapshot_TeachersFirstThenJoinOrder(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.RegisterStudent("s1", "Ada"))
	r.RegisterTeacher("t1")
	require.NoError(t, r.RegisterStudent("s2", "Grace"))
	require.NoError(t, r.RegisterStudent("s3", "Alan"))

	snapshot := r.Snapshot()
	require.Len(t, snapshot, 4)

	assert.Equal(t, types.ParticipantInfo{ConnectionID: "t1", Name: "Teacher", Role: types.RoleTeacher}, snapshot[0])
	assert.Equal(t, "Ada", snapshot[1].Name)
	assert.Equal(t, "Grace", snapshot[2].Name)
	assert.Equal(t, "Alan", snapshot[3].Name)
}

func TestSnapshot_Empty(t *testing.T) {
	r := New(nil)
	assert.Empty(t, r.Snapshot())
}
