package consumerWorker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecotrack/internal/dto"
	"ecotrack/internal/mailer"
	"ecotrack/internal/model"
	"ecotrack/internal/repo/inmem"
)

func TestHandleDropsMalformedMessage(t *testing.T) {
	r := NewReader(nil, inmem.Open(), mailer.Config{})

	// A payload that cannot be decoded must be acked; returning an error
	// would requeue it and it would circulate through the queue forever.
	assert.NoError(t, r.handle(context.Background(), []byte("{not json")))
}

func TestHandleAcksUnknownUser(t *testing.T) {
	r := NewReader(nil, inmem.Open(), mailer.Config{})

	body, err := json.Marshal(dto.LogVerifiedMessage{LogID: 1, UserID: 99, Kind: dto.VerificationApproved, Points: 5})
	require.NoError(t, err)
	assert.NoError(t, r.handle(context.Background(), body))
}

func TestHandleDeliversForKnownUser(t *testing.T) {
	db := inmem.Open()
	user := db.AddUser(model.User{Name: "Sam", Email: "sam@campus.edu", Role: model.RoleStudent})
	r := NewReader(nil, db, mailer.Config{})

	body, err := json.Marshal(dto.LogVerifiedMessage{LogID: 1, UserID: user.ID, Kind: dto.VerificationApproved, Points: 5})
	require.NoError(t, err)

	// With the mailer unconfigured delivery is skipped, which still acks.
	assert.NoError(t, r.handle(context.Background(), body))
}
