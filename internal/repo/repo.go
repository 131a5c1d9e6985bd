package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"ecotrack/internal/model"
)

var (
	ErrLogNotFound         = errors.New("recycling log not found")
	ErrEventNotFound       = errors.New("event not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrNotRegistered       = errors.New("user is not registered for this event")
	ErrDuplicateSubmission = errors.New("duplicate submission")
	ErrAlreadyVerified     = errors.New("log is already verified")
)

// SubmitLogParams is the validated payload for a new pending log.
type SubmitLogParams struct {
	UserID         int64
	Category       string
	Weight         float64
	Description    string
	ImageRef       *string
	EventID        *int64
	VolunteerHours int
}

type Repository interface {
	CreateLogTx(ctx context.Context, p SubmitLogParams) (*model.RecyclingLog, error)
	GetLogByID(ctx context.Context, id int64) (*model.RecyclingLog, error)
	GetLogsByUser(ctx context.Context, userID int64) ([]model.RecyclingLog, error)
	GetPendingLogs(ctx context.Context) ([]model.RecyclingLog, error)
	GetPendingEventLogIDs(ctx context.Context) ([]int64, error)
	ApproveLogTx(ctx context.Context, logID, actorID int64) (*model.RecyclingLog, int, error)
	RejectLogTx(ctx context.Context, logID int64, reason string) (*model.RecyclingLog, error)

	GetUserByID(ctx context.Context, id int64) (*model.User, error)

	CreateEvent(ctx context.Context, e *model.Event) (int64, error)
	GetEventByID(ctx context.Context, id int64) (*model.Event, error)
	GetAllEvents(ctx context.Context) ([]model.Event, error)
	RegisterParticipant(ctx context.Context, eventID, userID int64) error

	GetSettingBool(ctx context.Context, key string) (bool, error)
	SetSetting(ctx context.Context, key, value string) error
	InsertSystemLog(ctx context.Context, action, details string) error

	MigrateUp(migrationsDir string) error
}

type repository struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &repository{db: db, log: log}, nil
}

func (r *repository) MigrateUp(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations applied successfully from %s", migrationsDir)
	return nil
}

const logColumns = `
	l.id, l.user_id, l.category, l.weight, l.description, l.image_ref,
	l.event_id, l.verified, l.verified_by, l.verified_at,
	l.eco_points_earned, l.volunteer_hours, l.created_at,
	u.name AS user_name, COALESCE(e.name, '') AS event_name
`

const logJoins = `
	FROM recycling_logs l
	JOIN users u ON u.id = l.user_id
	LEFT JOIN events e ON e.id = l.event_id
`

func scanLog(row interface{ Scan(...any) error }) (*model.RecyclingLog, error) {
	var l model.RecyclingLog
	if err := row.Scan(
		&l.ID, &l.UserID, &l.Category, &l.Weight, &l.Description, &l.ImageRef,
		&l.EventID, &l.Verified, &l.VerifiedBy, &l.VerifiedAt,
		&l.EcoPointsEarned, &l.VolunteerHours, &l.CreatedAt,
		&l.UserName, &l.EventName,
	); err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateLogTx validates referential and duplicate rules and inserts the
// pending log in a single transaction. Event-linked submissions are unique
// per (user, event); free-standing ones per (user, category, weight), with
// no time window in either case.
func (r *repository) CreateLogTx(ctx context.Context, p SubmitLogParams) (*model.RecyclingLog, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if p.EventID != nil {
		var eventID int64
		err = tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = $1`, *p.EventID).Scan(&eventID)
		if err != nil {
			_ = tx.Rollback()
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrEventNotFound
			}
			return nil, fmt.Errorf("failed to check event: %w", err)
		}

		var registered int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*)
			FROM event_participants
			WHERE event_id = $1 AND user_id = $2
		`, *p.EventID, p.UserID).Scan(&registered)
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("failed to check registration: %w", err)
		}
		if registered == 0 {
			_ = tx.Rollback()
			return nil, ErrNotRegistered
		}

		var existing int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*)
			FROM recycling_logs
			WHERE user_id = $1 AND event_id = $2
		`, p.UserID, *p.EventID).Scan(&existing)
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("failed to check duplicate submission: %w", err)
		}
		if existing > 0 {
			_ = tx.Rollback()
			return nil, ErrDuplicateSubmission
		}
	} else {
		var existing int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*)
			FROM recycling_logs
			WHERE user_id = $1 AND category = $2 AND weight = $3 AND event_id IS NULL
		`, p.UserID, p.Category, p.Weight).Scan(&existing)
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("failed to check duplicate submission: %w", err)
		}
		if existing > 0 {
			_ = tx.Rollback()
			return nil, ErrDuplicateSubmission
		}
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO recycling_logs
			(user_id, category, weight, description, image_ref, event_id, volunteer_hours, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id
	`, p.UserID, p.Category, p.Weight, p.Description, p.ImageRef, p.EventID, p.VolunteerHours).Scan(&id)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("failed to create recycling log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return r.GetLogByID(ctx, id)
}

func (r *repository) GetLogByID(ctx context.Context, id int64) (*model.RecyclingLog, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+logColumns+logJoins+` WHERE l.id = $1`, id)
	l, err := scanLog(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLogNotFound
		}
		return nil, fmt.Errorf("failed to get recycling log: %w", err)
	}
	return l, nil
}

func (r *repository) GetLogsByUser(ctx context.Context, userID int64) ([]model.RecyclingLog, error) {
	return r.queryLogs(ctx, `SELECT `+logColumns+logJoins+` WHERE l.user_id = $1 ORDER BY l.created_at DESC`, userID)
}

func (r *repository) GetPendingLogs(ctx context.Context) ([]model.RecyclingLog, error) {
	return r.queryLogs(ctx, `SELECT `+logColumns+logJoins+` WHERE l.verified = FALSE ORDER BY l.created_at ASC`)
}

func (r *repository) queryLogs(ctx context.Context, query string, args ...any) ([]model.RecyclingLog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get recycling logs: %w", err)
	}
	defer rows.Close()

	var logs []model.RecyclingLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recycling log: %w", err)
		}
		logs = append(logs, *l)
	}
	return logs, rows.Err()
}

// GetPendingEventLogIDs returns the ids of unverified event-linked logs in
// insertion order. Free-standing logs are excluded: only event-linked logs
// are eligible for auto-approval.
func (r *repository) GetPendingEventLogIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id
		FROM recycling_logs
		WHERE verified = FALSE AND event_id IS NOT NULL
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending event logs: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan log id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ApproveLogTx marks the log verified, awards the event's current reward to
// the submitter, records attendance and inserts the approval notification in
// a single transaction. The row lock on the log makes the verified guard and
// the state transition indivisible against a concurrent approver.
func (r *repository) ApproveLogTx(ctx context.Context, logID, actorID int64) (*model.RecyclingLog, int, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var (
		userID   int64
		eventID  *int64
		verified bool
	)
	err = tx.QueryRowContext(ctx, `
		SELECT user_id, event_id, verified
		FROM recycling_logs
		WHERE id = $1
		FOR UPDATE
	`, logID).Scan(&userID, &eventID, &verified)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, ErrLogNotFound
		}
		return nil, 0, fmt.Errorf("failed to load log for approval: %w", err)
	}

	if verified {
		_ = tx.Rollback()
		return nil, 0, ErrAlreadyVerified
	}
	if eventID == nil {
		_ = tx.Rollback()
		return nil, 0, ErrEventNotFound
	}

	var (
		eventName string
		reward    int
	)
	err = tx.QueryRowContext(ctx, `
		SELECT name, eco_points_reward
		FROM events
		WHERE id = $1
	`, *eventID).Scan(&eventName, &reward)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, ErrEventNotFound
		}
		return nil, 0, fmt.Errorf("failed to load event for approval: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE recycling_logs
		SET verified = TRUE, verified_by = $1, verified_at = NOW(), eco_points_earned = $2
		WHERE id = $3
	`, actorID, reward, logID); err != nil {
		_ = tx.Rollback()
		return nil, 0, fmt.Errorf("failed to mark log verified: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users
		SET eco_points = eco_points + $1
		WHERE id = $2
	`, reward, userID); err != nil {
		_ = tx.Rollback()
		return nil, 0, fmt.Errorf("failed to award eco-points: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE event_participants
		SET attended = TRUE
		WHERE event_id = $1 AND user_id = $2
	`, *eventID, userID); err != nil {
		_ = tx.Rollback()
		return nil, 0, fmt.Errorf("failed to mark attendance: %w", err)
	}

	message := fmt.Sprintf("Your recycling log for %q was approved. You earned %d eco-points!", eventName, reward)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO notifications (user_id, title, message, type, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, userID, "Recycling log approved", message, "log_approved"); err != nil {
		_ = tx.Rollback()
		return nil, 0, fmt.Errorf("failed to insert notification: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("failed to commit approval transaction: %w", err)
	}

	log, err := r.GetLogByID(ctx, logID)
	if err != nil {
		return nil, 0, err
	}
	return log, reward, nil
}

// RejectLogTx deletes the pending log and inserts the rejection notification
// in one transaction. No rejected row is retained.
func (r *repository) RejectLogTx(ctx context.Context, logID int64, reason string) (*model.RecyclingLog, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var l model.RecyclingLog
	err = tx.QueryRowContext(ctx, `
		SELECT id, user_id, category, weight, image_ref, event_id, verified
		FROM recycling_logs
		WHERE id = $1
		FOR UPDATE
	`, logID).Scan(&l.ID, &l.UserID, &l.Category, &l.Weight, &l.ImageRef, &l.EventID, &l.Verified)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLogNotFound
		}
		return nil, fmt.Errorf("failed to load log for rejection: %w", err)
	}

	if l.Verified {
		_ = tx.Rollback()
		return nil, ErrAlreadyVerified
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM recycling_logs WHERE id = $1`, logID); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("failed to delete log: %w", err)
	}

	message := fmt.Sprintf("Your %s recycling log was rejected: %s", l.Category, reason)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO notifications (user_id, title, message, type, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, l.UserID, "Recycling log rejected", message, "log_rejected"); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("failed to insert notification: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit rejection transaction: %w", err)
	}

	return &l, nil
}

func (r *repository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, role, eco_points, created_at
		FROM users
		WHERE id = $1
	`, id)

	var u model.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.EcoPoints, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *repository) CreateEvent(ctx context.Context, e *model.Event) (int64, error) {
	query := `
		INSERT INTO events (name, description, eco_points_reward, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id
	`

	var id int64
	if err := r.db.QueryRowContext(ctx, query,
		e.Name, e.Description, e.EcoPointsReward, e.Status,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}
	return id, nil
}

func (r *repository) GetEventByID(ctx context.Context, id int64) (*model.Event, error) {
	query := `
		SELECT id, name, description, eco_points_reward, status, created_at, updated_at
		FROM events WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)

	var e model.Event
	if err := row.Scan(
		&e.ID, &e.Name, &e.Description, &e.EcoPointsReward, &e.Status, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, ErrEventNotFound
	}
	return &e, nil
}

func (r *repository) GetAllEvents(ctx context.Context) ([]model.Event, error) {
	query := `
		SELECT id, name, description, eco_points_reward, status, created_at, updated_at
		FROM events
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(
			&e.ID, &e.Name, &e.Description, &e.EcoPointsReward, &e.Status, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *repository) RegisterParticipant(ctx context.Context, eventID, userID int64) error {
	if _, err := r.GetEventByID(ctx, eventID); err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO event_participants (event_id, user_id, attended)
		VALUES ($1, $2, FALSE)
		ON CONFLICT (event_id, user_id) DO NOTHING
	`, eventID, userID); err != nil {
		return fmt.Errorf("failed to register participant: %w", err)
	}
	return nil
}

// GetSettingBool reads a toggle directly from the settings table. No caching:
// the scheduler relies on each tick seeing the current value.
func (r *repository) GetSettingBool(ctx context.Context, key string) (bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM system_settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value == "true" || value == "1", nil
}

func (r *repository) SetSetting(ctx context.Context, key, value string) error {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO system_settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, value); err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

func (r *repository) InsertSystemLog(ctx context.Context, action, details string) error {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO system_logs (action, details, created_at)
		VALUES ($1, $2, NOW())
	`, action, details); err != nil {
		return fmt.Errorf("failed to insert system log: %w", err)
	}
	return nil
}
