package recycling

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecotrack/internal/repo"
)

func (e *env) submitEventLog(t *testing.T, eventID int64) int64 {
	t.Helper()
	created, err := e.sub.Submit(context.Background(), e.student, SubmitInput{
		SubmitLogRequest: submitReq("plastic", "5.0", eventIDStr(eventID)),
	})
	require.NoError(t, err)
	return created.ID
}

func TestEngineApprove(t *testing.T) {
	e := newEnv()
	event := e.seedEventWithRegistration(20, e.student.ID)
	logID := e.submitEventLog(t, event.ID)

	res, err := e.engine.Approve(context.Background(), logID, e.admin)
	require.NoError(t, err)

	assert.True(t, res.Log.Verified)
	assert.Equal(t, 20, res.PointsAwarded)
	assert.Equal(t, 20, res.Log.EcoPointsEarned)
	require.NotNil(t, res.Log.VerifiedBy)
	assert.Equal(t, e.admin.ID, *res.Log.VerifiedBy)
	assert.NotNil(t, res.Log.VerifiedAt)

	assert.Equal(t, 20, e.db.User(e.student.ID).EcoPoints)

	p, ok := e.db.Participant(event.ID, e.student.ID)
	require.True(t, ok)
	assert.True(t, p.Attended)

	notifs := e.db.Notifications(e.student.ID)
	require.Len(t, notifs, 1)
	assert.Equal(t, "log_approved", notifs[0].Type)

	assert.Equal(t, 1, e.bus.count())
}

func TestEngineApproveIdempotent(t *testing.T) {
	e := newEnv()
	event := e.seedEventWithRegistration(20, e.student.ID)
	logID := e.submitEventLog(t, event.ID)

	_, err := e.engine.Approve(context.Background(), logID, e.admin)
	require.NoError(t, err)

	_, err = e.engine.Approve(context.Background(), logID, e.admin)
	assert.ErrorIs(t, err, repo.ErrAlreadyVerified)

	// Points were awarded exactly once, one notification only.
	assert.Equal(t, 20, e.db.User(e.student.ID).EcoPoints)
	assert.Len(t, e.db.Notifications(e.student.ID), 1)
}

func TestEngineApproveReadsRewardAtApprovalTime(t *testing.T) {
	e := newEnv()
	event := e.seedEventWithRegistration(20, e.student.ID)
	logID := e.submitEventLog(t, event.ID)

	e.db.SetEventReward(event.ID, 50)

	res, err := e.engine.Approve(context.Background(), logID, e.admin)
	require.NoError(t, err)
	assert.Equal(t, 50, res.PointsAwarded)
	assert.Equal(t, 50, e.db.User(e.student.ID).EcoPoints)
}

func TestEngineApproveErrors(t *testing.T) {
	e := newEnv()
	event := e.seedEventWithRegistration(20, e.student.ID)
	logID := e.submitEventLog(t, event.ID)

	t.Run("not found", func(t *testing.T) {
		_, err := e.engine.Approve(context.Background(), 9999, e.admin)
		assert.ErrorIs(t, err, repo.ErrLogNotFound)
	})

	t.Run("forbidden for non-admin", func(t *testing.T) {
		_, err := e.engine.Approve(context.Background(), logID, e.student)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("event deleted before approval", func(t *testing.T) {
		e.db.RemoveEvent(event.ID)
		_, err := e.engine.Approve(context.Background(), logID, e.admin)
		assert.ErrorIs(t, err, repo.ErrEventNotFound)
		assert.Equal(t, 0, e.db.User(e.student.ID).EcoPoints)
	})
}

func TestEngineApproveFreeStandingLog(t *testing.T) {
	e := newEnv()
	created, err := e.sub.Submit(context.Background(), e.student, SubmitInput{
		SubmitLogRequest: submitReq("paper", "2.0", ""),
	})
	require.NoError(t, err)

	// Free-standing logs have no event to read a payout from.
	_, err = e.engine.Approve(context.Background(), created.ID, e.admin)
	assert.ErrorIs(t, err, repo.ErrEventNotFound)
}

func TestEngineReject(t *testing.T) {
	e := newEnv()
	event := e.seedEventWithRegistration(20, e.student.ID)

	e.files.nextRef = "photo.jpg"
	created, err := e.sub.Submit(context.Background(), e.student, SubmitInput{
		SubmitLogRequest: submitReq("plastic", "5.0", eventIDStr(event.ID)),
		ImageData:        []byte("fake image"),
		ImageName:        "photo.jpg",
	})
	require.NoError(t, err)

	res, err := e.engine.Reject(context.Background(), created.ID, "Photo too blurry", e.admin)
	require.NoError(t, err)

	assert.Equal(t, "Photo too blurry", res.Reason)
	assert.Equal(t, created.ID, res.DeletedLog.ID)
	assert.Equal(t, "plastic", res.DeletedLog.Category)

	// Row gone, image freed, submitter notified.
	_, err = e.db.GetLogByID(context.Background(), created.ID)
	assert.ErrorIs(t, err, repo.ErrLogNotFound)
	assert.Contains(t, e.files.deleted, "photo.jpg")

	notifs := e.db.Notifications(e.student.ID)
	require.Len(t, notifs, 1)
	assert.Equal(t, "log_rejected", notifs[0].Type)
	assert.Contains(t, notifs[0].Message, "Photo too blurry")

	// Rejection deletes the row, so the same user may resubmit for the event.
	_, err = e.sub.Submit(context.Background(), e.student, SubmitInput{
		SubmitLogRequest: submitReq("paper", "1.0", eventIDStr(event.ID)),
	})
	assert.NoError(t, err)
}

func TestEngineRejectDefaultReason(t *testing.T) {
	e := newEnv()
	event := e.seedEventWithRegistration(20, e.student.ID)
	logID := e.submitEventLog(t, event.ID)

	res, err := e.engine.Reject(context.Background(), logID, "", e.admin)
	require.NoError(t, err)
	assert.Equal(t, DefaultRejectReason, res.Reason)
}

func TestEngineRejectErrors(t *testing.T) {
	e := newEnv()
	event := e.seedEventWithRegistration(20, e.student.ID)
	logID := e.submitEventLog(t, event.ID)

	t.Run("not found", func(t *testing.T) {
		_, err := e.engine.Reject(context.Background(), 9999, "x", e.admin)
		assert.ErrorIs(t, err, repo.ErrLogNotFound)
	})

	t.Run("forbidden for non-admin", func(t *testing.T) {
		_, err := e.engine.Reject(context.Background(), logID, "x", e.volunteer)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("verified log cannot be rejected", func(t *testing.T) {
		_, err := e.engine.Approve(context.Background(), logID, e.admin)
		require.NoError(t, err)
		_, err = e.engine.Reject(context.Background(), logID, "x", e.admin)
		assert.ErrorIs(t, err, repo.ErrAlreadyVerified)
	})
}

func TestEnginePublishFailureDoesNotAffectOutcome(t *testing.T) {
	e := newEnv()
	event := e.seedEventWithRegistration(20, e.student.ID)
	logID := e.submitEventLog(t, event.ID)

	e.bus.err = assert.AnError
	res, err := e.engine.Approve(context.Background(), logID, e.admin)
	require.NoError(t, err)
	assert.Equal(t, 20, res.PointsAwarded)
	assert.True(t, res.Log.Verified)
}
