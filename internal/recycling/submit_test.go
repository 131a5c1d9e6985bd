package recycling

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecotrack/internal/dto"
	"ecotrack/internal/model"
	"ecotrack/internal/repo"
	"ecotrack/pkg/validator"
)

func TestSubmitFreeStandingLog(t *testing.T) {
	e := newEnv()

	created, err := e.sub.Submit(context.Background(), e.student, SubmitInput{
		SubmitLogRequest: dto.SubmitLogRequest{
			Category:    "paper",
			Weight:      "2.0",
			Description: "stack of old notes",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, e.student.ID, created.UserID)
	assert.Equal(t, "paper", created.Category)
	assert.Equal(t, 2.0, created.Weight)
	assert.Nil(t, created.EventID)
	assert.False(t, created.Verified)
	assert.Equal(t, 0, created.EcoPointsEarned)
	assert.Equal(t, "Sam Student", created.UserName)
}

func TestSubmitEventLinkedLog(t *testing.T) {
	e := newEnv()
	event := e.seedEventWithRegistration(20, e.student.ID)

	created, err := e.sub.Submit(context.Background(), e.student, SubmitInput{
		SubmitLogRequest: submitReq("plastic", "5.0", eventIDStr(event.ID)),
	})
	require.NoError(t, err)
	require.NotNil(t, created.EventID)
	assert.Equal(t, event.ID, *created.EventID)
	assert.Equal(t, "Campus Cleanup", created.EventName)
}

func TestSubmitFieldValidation(t *testing.T) {
	e := newEnv()

	cases := []struct {
		name  string
		req   dto.SubmitLogRequest
		field string
	}{
		{"unknown category", submitReq("cardboard", "2.0", ""), "Category"},
		{"missing category", submitReq("", "2.0", ""), "Category"},
		{"weight not a number", submitReq("paper", "heavy", ""), "weight"},
		{"zero weight", submitReq("paper", "0", ""), "weight"},
		{"negative weight", submitReq("paper", "-1.5", ""), "weight"},
		{"NaN weight", submitReq("paper", "NaN", ""), "weight"},
		{"infinite weight", submitReq("paper", "+Inf", ""), "weight"},
		{"bad event id", submitReq("paper", "2.0", "abc"), "event_id"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.sub.Submit(context.Background(), e.student, SubmitInput{SubmitLogRequest: tc.req})
			var fieldErr *validator.FieldError
			require.ErrorAs(t, err, &fieldErr)
			assert.Equal(t, tc.field, fieldErr.Field)
		})
	}
}

func TestSubmitVolunteerHours(t *testing.T) {
	e := newEnv()

	t.Run("required for volunteers", func(t *testing.T) {
		_, err := e.sub.Submit(context.Background(), e.volunteer, SubmitInput{
			SubmitLogRequest: submitReq("glass", "1.0", ""),
		})
		var fieldErr *validator.FieldError
		require.ErrorAs(t, err, &fieldErr)
		assert.Equal(t, "volunteer_hours", fieldErr.Field)
	})

	t.Run("must be non-negative", func(t *testing.T) {
		in := SubmitInput{SubmitLogRequest: submitReq("glass", "1.0", "")}
		in.VolunteerHours = "-3"
		_, err := e.sub.Submit(context.Background(), e.volunteer, in)
		var fieldErr *validator.FieldError
		require.ErrorAs(t, err, &fieldErr)
		assert.Equal(t, "volunteer_hours", fieldErr.Field)
	})

	t.Run("accepted and stored", func(t *testing.T) {
		in := SubmitInput{SubmitLogRequest: submitReq("glass", "1.0", "")}
		in.VolunteerHours = "4"
		created, err := e.sub.Submit(context.Background(), e.volunteer, in)
		require.NoError(t, err)
		assert.Equal(t, 4, created.VolunteerHours)
	})

	t.Run("ignored for students", func(t *testing.T) {
		created, err := e.sub.Submit(context.Background(), e.student, SubmitInput{
			SubmitLogRequest: submitReq("glass", "1.0", ""),
		})
		require.NoError(t, err)
		assert.Equal(t, 0, created.VolunteerHours)
	})
}

func TestSubmitRoleRestrictions(t *testing.T) {
	e := newEnv()

	_, err := e.sub.Submit(context.Background(), e.admin, SubmitInput{
		SubmitLogRequest: submitReq("paper", "2.0", ""),
	})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSubmitEventChecks(t *testing.T) {
	e := newEnv()
	event := e.db.AddEvent(model.Event{Name: "E-Waste Drive", EcoPointsReward: 10, Status: "active"})

	t.Run("event must exist", func(t *testing.T) {
		_, err := e.sub.Submit(context.Background(), e.student, SubmitInput{
			SubmitLogRequest: submitReq("plastic", "5.0", "9999"),
		})
		assert.ErrorIs(t, err, repo.ErrEventNotFound)
	})

	t.Run("must be registered", func(t *testing.T) {
		_, err := e.sub.Submit(context.Background(), e.student, SubmitInput{
			SubmitLogRequest: submitReq("plastic", "5.0", eventIDStr(event.ID)),
		})
		assert.ErrorIs(t, err, repo.ErrNotRegistered)
	})
}

func TestSubmitEventDuplicatePolicy(t *testing.T) {
	e := newEnv()
	event := e.seedEventWithRegistration(20, e.student.ID)

	_, err := e.sub.Submit(context.Background(), e.student, SubmitInput{
		SubmitLogRequest: submitReq("plastic", "5.0", eventIDStr(event.ID)),
	})
	require.NoError(t, err)

	// One log per (user, event), even with different category and weight.
	_, err = e.sub.Submit(context.Background(), e.student, SubmitInput{
		SubmitLogRequest: submitReq("metal", "1.0", eventIDStr(event.ID)),
	})
	assert.ErrorIs(t, err, repo.ErrDuplicateSubmission)

	// A different registered user can still submit for the same event.
	_ = e.db.RegisterParticipant(context.Background(), event.ID, e.volunteer.ID)
	in := SubmitInput{SubmitLogRequest: submitReq("plastic", "5.0", eventIDStr(event.ID))}
	in.VolunteerHours = "2"
	_, err = e.sub.Submit(context.Background(), e.volunteer, in)
	assert.NoError(t, err)
}

func TestSubmitFreeStandingDuplicatePolicy(t *testing.T) {
	e := newEnv()

	_, err := e.sub.Submit(context.Background(), e.student, SubmitInput{
		SubmitLogRequest: submitReq("paper", "2.0", ""),
	})
	require.NoError(t, err)

	// Identical category and weight is rejected, with no time window.
	_, err = e.sub.Submit(context.Background(), e.student, SubmitInput{
		SubmitLogRequest: submitReq("paper", "2.0", ""),
	})
	assert.ErrorIs(t, err, repo.ErrDuplicateSubmission)

	// A different weight or category goes through.
	_, err = e.sub.Submit(context.Background(), e.student, SubmitInput{
		SubmitLogRequest: submitReq("paper", "3.0", ""),
	})
	assert.NoError(t, err)

	_, err = e.sub.Submit(context.Background(), e.student, SubmitInput{
		SubmitLogRequest: submitReq("metal", "2.0", ""),
	})
	assert.NoError(t, err)
}

func TestSubmitStoresImageAndCleansUpOnFailure(t *testing.T) {
	e := newEnv()

	e.files.nextRef = "first.png"
	created, err := e.sub.Submit(context.Background(), e.student, SubmitInput{
		SubmitLogRequest: submitReq("paper", "2.0", ""),
		ImageData:        []byte("png bytes"),
		ImageName:        "first.png",
	})
	require.NoError(t, err)
	require.NotNil(t, created.ImageRef)
	assert.Equal(t, "first.png", *created.ImageRef)

	// Duplicate submission fails after the image was stored; the stored
	// file must be removed again.
	e.files.nextRef = "second.png"
	_, err = e.sub.Submit(context.Background(), e.student, SubmitInput{
		SubmitLogRequest: submitReq("paper", "2.0", ""),
		ImageData:        []byte("png bytes"),
		ImageName:        "second.png",
	})
	assert.ErrorIs(t, err, repo.ErrDuplicateSubmission)
	assert.Contains(t, e.files.deleted, "second.png")
	assert.NotContains(t, e.files.deleted, "first.png")
}
