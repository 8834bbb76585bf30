package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingWorkRequest() WorkRequest {
	return WorkRequest{
		Title:       "Onboard payroll batch",
		Status:      WorkRequestStatusPending,
		RequestedBy: "user-1",
	}
}

func TestWorkRequestApprove(t *testing.T) {
	wr := pendingWorkRequest()

	require.NoError(t, wr.Approve("approver-1"))

	assert.Equal(t, WorkRequestStatusApproved, wr.Status)
	require.NotNil(t, wr.ApprovedBy)
	assert.Equal(t, "approver-1", *wr.ApprovedBy)
	assert.NotNil(t, wr.ApprovedAt)
}

func TestWorkRequestApproveTwiceReportsApproved(t *testing.T) {
	wr := pendingWorkRequest()
	require.NoError(t, wr.Approve("approver-1"))

	err := wr.Approve("approver-2")

	assert.ErrorIs(t, err, ErrAlreadyApproved)
	// First approver's audit trail survives the failed second attempt
	assert.Equal(t, "approver-1", *wr.ApprovedBy)
}

func TestWorkRequestRejectAfterApproveFails(t *testing.T) {
	wr := pendingWorkRequest()
	require.NoError(t, wr.Approve("approver-1"))

	err := wr.Reject("rejecter-1", "too expensive")

	assert.ErrorIs(t, err, ErrAlreadyApproved)
	assert.Equal(t, WorkRequestStatusApproved, wr.Status)
	assert.Nil(t, wr.RejectionReason)
}

func TestWorkRequestReject(t *testing.T) {
	wr := pendingWorkRequest()

	require.NoError(t, wr.Reject("rejecter-1", "out of scope"))

	assert.Equal(t, WorkRequestStatusRejected, wr.Status)
	require.NotNil(t, wr.RejectionReason)
	assert.Equal(t, "out of scope", *wr.RejectionReason)
}

func TestWorkRequestApproveAfterRejectFails(t *testing.T) {
	wr := pendingWorkRequest()
	require.NoError(t, wr.Reject("rejecter-1", "out of scope"))

	err := wr.Approve("approver-1")

	assert.ErrorIs(t, err, ErrAlreadyRejected)
	assert.Equal(t, WorkRequestStatusRejected, wr.Status)
}

func TestRoadblockResolve(t *testing.T) {
	rb := ProjectRoadblock{
		Title:    "Waiting on tax data",
		Status:   RoadblockStatusOpen,
		RaisedBy: "user-1",
	}

	require.NoError(t, rb.Resolve("manager-1", "data received"))

	assert.Equal(t, RoadblockStatusResolved, rb.Status)
	require.NotNil(t, rb.Resolution)
	assert.Equal(t, "data received", *rb.Resolution)
	assert.NotNil(t, rb.ResolvedAt)

	err := rb.Resolve("manager-2", "again")
	assert.ErrorIs(t, err, ErrRoadblockResolved)
	assert.Equal(t, "manager-1", *rb.ResolvedBy)
}

func TestProjectCharterSetHealth(t *testing.T) {
	pc := ProjectCharter{Name: "Payroll migration", Health: ProjectHealthGreen}

	pc.SetHealth(ProjectHealthRed, "vendor slipped two weeks")

	assert.Equal(t, ProjectHealthRed, pc.Health)
	assert.Equal(t, "vendor slipped two weeks", pc.HealthNote)
}
