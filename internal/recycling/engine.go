package recycling

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"ecotrack/internal/dto"
	"ecotrack/internal/model"
	"ecotrack/internal/repo"
)

// DefaultRejectReason is used when the caller supplies no reason.
const DefaultRejectReason = "Submission did not meet verification requirements"

type ApproveResult struct {
	Log           *model.RecyclingLog
	PointsAwarded int
}

type RejectResult struct {
	Reason     string
	DeletedLog dto.DeletedLogSummary
}

// Engine applies the approve/reject lifecycle transitions. The repository
// owns the transactional read-check-write; the engine adds authorization,
// image cleanup and outbound notification publishing.
type Engine struct {
	repo  repo.Repository
	files ImageStore
	bus   Publisher
	log   *zerolog.Logger
}

func NewEngine(r repo.Repository, files ImageStore, bus Publisher, log *zerolog.Logger) *Engine {
	return &Engine{repo: r, files: files, bus: bus, log: log}
}

// Approve marks the log verified and awards the event's current reward. It is
// idempotent: a second call observes repo.ErrAlreadyVerified and mutates
// nothing, which is also what resolves a race between a manual admin action
// and a scheduler tick on the same log.
func (e *Engine) Approve(ctx context.Context, logID int64, actor model.Actor) (*ApproveResult, error) {
	if !actor.CanVerify() {
		return nil, ErrForbidden
	}

	log, points, err := e.repo.ApproveLogTx(ctx, logID, actor.ID)
	if err != nil {
		return nil, err
	}

	e.log.Info().
		Int64("log_id", logID).
		Int64("user_id", log.UserID).
		Int64("verified_by", actor.ID).
		Int("points", points).
		Msg("recycling log approved")

	e.publish(dto.LogVerifiedMessage{
		LogID:  logID,
		UserID: log.UserID,
		Kind:   dto.VerificationApproved,
		Points: points,
	})

	return &ApproveResult{Log: log, PointsAwarded: points}, nil
}

// Reject deletes the pending log and notifies the submitter. The stored image
// is removed best-effort: a failed delete is logged but does not undo the
// rejection.
func (e *Engine) Reject(ctx context.Context, logID int64, reason string, actor model.Actor) (*RejectResult, error) {
	if !actor.CanVerify() {
		return nil, ErrForbidden
	}
	if reason == "" {
		reason = DefaultRejectReason
	}

	deleted, err := e.repo.RejectLogTx(ctx, logID, reason)
	if err != nil {
		return nil, err
	}

	if deleted.ImageRef != nil {
		if derr := e.files.Delete(*deleted.ImageRef); derr != nil {
			e.log.Warn().Err(derr).Str("ref", *deleted.ImageRef).Msg("failed to delete image of rejected log")
		}
	}

	e.log.Info().
		Int64("log_id", logID).
		Int64("user_id", deleted.UserID).
		Str("reason", reason).
		Msg("recycling log rejected")

	e.publish(dto.LogVerifiedMessage{
		LogID:  logID,
		UserID: deleted.UserID,
		Kind:   dto.VerificationRejected,
		Reason: reason,
	})

	return &RejectResult{
		Reason: reason,
		DeletedLog: dto.DeletedLogSummary{
			ID:       deleted.ID,
			UserID:   deleted.UserID,
			Category: deleted.Category,
			Weight:   deleted.Weight,
			EventID:  deleted.EventID,
		},
	}, nil
}

func (e *Engine) publish(msg dto.LogVerifiedMessage) {
	if e.bus == nil {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		e.log.Error().Err(err).Msg("failed to marshal verification message")
		return
	}
	if err := e.bus.Publish(payload); err != nil {
		e.log.Warn().Err(err).Int64("log_id", msg.LogID).Msg("failed to publish verification message")
	}
}
