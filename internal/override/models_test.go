package override

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdpgate/internal/domain"
	dErrors "gdpgate/pkg/domain-errors"
	"gdpgate/pkg/platform/sentinel"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func pendingRequest(dual bool) *Request {
	return &Request{
		ID:            NewID(),
		TransactionID: "SO-1001",
		Violations: []domain.Violation{{
			Code:     domain.ViolationThresholdExceeded,
			Message:  "substance EPH quantity 120.00 exceeds threshold 100.00 kg",
			Blocking: true,
		}},
		Justification:        "emergency replenishment for hospital pharmacy order",
		State:                StatePending,
		RequestedBy:          "integration",
		DualApprovalRequired: dual,
		CreatedAt:            now,
	}
}

func TestParseID(t *testing.T) {
	id := NewID()
	parsed, err := ParseID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseID("not-a-uuid")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestStateIsTerminal(t *testing.T) {
	assert.False(t, StatePending.IsTerminal())
	assert.True(t, StateApproved.IsTerminal())
	assert.True(t, StateRejected.IsTerminal())
	assert.True(t, StateExpired.IsTerminal())
}

func TestSingleApprovalTransitions(t *testing.T) {
	req := pendingRequest(false)
	actor := domain.Actor{ID: "alice", Role: domain.RoleComplianceManager}

	require.NoError(t, req.CanApprove(actor))
	req.ApplyApproval(actor, now)

	assert.Equal(t, StateApproved, req.State)
	require.Len(t, req.Approvals, 1)
	assert.Equal(t, "alice", req.Approvals[0].ActorID)
	require.NotNil(t, req.ResolvedAt)
	assert.Equal(t, now, *req.ResolvedAt)
}

func TestDualApprovalNeedsDistinctUserAndRole(t *testing.T) {
	first := domain.Actor{ID: "alice", Role: domain.RoleComplianceManager}

	t.Run("first approval keeps the request pending", func(t *testing.T) {
		req := pendingRequest(true)
		require.NoError(t, req.CanApprove(first))
		req.ApplyApproval(first, now)
		assert.Equal(t, StatePending, req.State)
		assert.Nil(t, req.ResolvedAt)
	})

	t.Run("same user rejected for the second slot", func(t *testing.T) {
		req := pendingRequest(true)
		req.ApplyApproval(first, now)
		err := req.CanApprove(domain.Actor{ID: "alice", Role: domain.RoleQAManager})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("same role rejected for the second slot", func(t *testing.T) {
		req := pendingRequest(true)
		req.ApplyApproval(first, now)
		err := req.CanApprove(domain.Actor{ID: "bob", Role: domain.RoleComplianceManager})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("distinct user and role completes the approval", func(t *testing.T) {
		req := pendingRequest(true)
		req.ApplyApproval(first, now)
		second := domain.Actor{ID: "bob", Role: domain.RoleQAManager}
		require.NoError(t, req.CanApprove(second))
		req.ApplyApproval(second, now.Add(time.Minute))
		assert.Equal(t, StateApproved, req.State)
		assert.Len(t, req.Approvals, 2)
	})
}

func TestTerminalStatesDoNotReopen(t *testing.T) {
	actor := domain.Actor{ID: "alice", Role: domain.RoleComplianceManager}

	for _, state := range []State{StateApproved, StateRejected, StateExpired} {
		t.Run(string(state), func(t *testing.T) {
			req := pendingRequest(false)
			req.State = state
			assert.ErrorIs(t, req.CanApprove(actor), sentinel.ErrInvalidState)
			assert.ErrorIs(t, req.CanReject(), sentinel.ErrInvalidState)
		})
	}
}

func TestApplyRejection(t *testing.T) {
	req := pendingRequest(false)
	actor := domain.Actor{ID: "carol", Role: domain.RoleQAManager}

	require.NoError(t, req.CanReject())
	req.ApplyRejection(actor, "quantity not justified by demand history", now)

	assert.Equal(t, StateRejected, req.State)
	assert.Equal(t, "carol", req.ResolvedBy)
	assert.Equal(t, "quantity not justified by demand history", req.RejectReason)
	require.NotNil(t, req.ResolvedAt)
}

func TestExpiredBy(t *testing.T) {
	req := pendingRequest(false)
	maxAge := 72 * time.Hour

	assert.False(t, req.ExpiredBy(now.Add(71*time.Hour), maxAge))
	assert.True(t, req.ExpiredBy(now.Add(72*time.Hour), maxAge), "boundary is inclusive")
	assert.True(t, req.ExpiredBy(now.Add(100*time.Hour), maxAge))
	assert.False(t, req.ExpiredBy(now.Add(1000*time.Hour), 0), "zero max age disables expiry")
}

func TestCloneDoesNotShareSlices(t *testing.T) {
	req := pendingRequest(true)
	req.ApplyApproval(domain.Actor{ID: "alice", Role: domain.RoleComplianceManager}, now)

	clone := req.Clone()
	clone.Violations[0].Message = "mutated"
	clone.Approvals[0].ActorID = "mallory"

	assert.NotEqual(t, "mutated", req.Violations[0].Message)
	assert.Equal(t, "alice", req.Approvals[0].ActorID)
}
