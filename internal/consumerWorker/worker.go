package consumerWorker

import (
	"context"
	"encoding/json"

	"github.com/wb-go/wbf/zlog"

	"ecotrack/internal/dto"
	"ecotrack/internal/mailer"
	"ecotrack/internal/rabbit"
	"ecotrack/internal/repo"
)

// Reader consumes verification messages and delivers the matching email.
// Email delivery is the only concern here; the notification row was already
// written inside the verification transaction.
type Reader struct {
	RMQ    *rabbit.Client
	repo   repo.Repository
	mail   mailer.Config
	done   chan struct{}
	cancel context.CancelFunc
}

func NewReader(rmq *rabbit.Client, repo repo.Repository, mail mailer.Config) *Reader {
	return &Reader{
		RMQ:  rmq,
		repo: repo,
		mail: mail,
		done: make(chan struct{}),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	zlog.Logger.Info().Msg("verification mail worker started")

	go func() {
		defer close(r.done)

		if err := r.RMQ.Consume(func(body []byte) error {
			return r.handle(cctx, body)
		}); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to start consuming")
			return
		}

		<-cctx.Done()
		zlog.Logger.Info().Msg("verification mail worker stopped by context")
	}()
}

// handle processes one verification message. It returns an error only when a
// redelivery could change the outcome; malformed payloads and unknown users
// are acked so they do not circulate through the queue forever.
func (r *Reader) handle(ctx context.Context, body []byte) error {
	var msg dto.LogVerifiedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		zlog.Logger.Error().
			Err(err).
			Msgf("dropping malformed message: %s", string(body))
		return nil
	}

	zlog.Logger.Info().
		Int64("log_id", msg.LogID).
		Int64("user_id", msg.UserID).
		Str("kind", msg.Kind).
		Msg("received verification message")

	user, err := r.repo.GetUserByID(ctx, msg.UserID)
	if err != nil {
		zlog.Logger.Error().
			Err(err).
			Int64("user_id", msg.UserID).
			Msg("failed to load user for verification email")
		// The user is gone; requeueing will never succeed.
		return nil
	}

	if err := mailer.SendVerificationEmail(&zlog.Logger, r.mail, user.Email, user.Name, msg); err != nil {
		zlog.Logger.Warn().
			Err(err).
			Str("email", user.Email).
			Msg("failed to send verification email")
	}

	return nil
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
