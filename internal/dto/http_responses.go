package dto

import (
	"time"

	"github.com/wb-go/wbf/ginext"
)

const (
	FieldBadFormat     = "FIELD_BADFORMAT"
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."

	Forbidden           = "FORBIDDEN"
	LogNotFound         = "LOG_NOT_FOUND"
	EventNotFound       = "EVENT_NOT_FOUND"
	NotRegistered       = "NOT_REGISTERED"
	DuplicateSubmission = "DUPLICATE_SUBMISSION"
	AlreadyVerified     = "ALREADY_VERIFIED"
)

// SubmitLogRequest carries the multipart form fields of a log submission.
// Weight and volunteer hours arrive as strings and must parse; the submitter
// owns those checks so the error can name the exact field and rule.
type SubmitLogRequest struct {
	Category       string `form:"category" validate:"required,category"`
	Weight         string `form:"weight" validate:"required"`
	Description    string `form:"description" validate:"max=1000"`
	EventID        string `form:"event_id"`
	VolunteerHours string `form:"volunteer_hours"`
}

type RejectLogRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type CreateEventRequest struct {
	Name            string `json:"name" validate:"required,min=3,max=255"`
	Description     string `json:"description"`
	EcoPointsReward int    `json:"eco_points_reward" validate:"gte=0"`
	Status          string `json:"status"`
}

type AutoApprovalRequest struct {
	Enabled bool `json:"enabled"`
}

type LogResponse struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	UserName        string     `json:"user_name,omitempty"`
	Category        string     `json:"category"`
	Weight          float64    `json:"weight"`
	Description     string     `json:"description,omitempty"`
	ImageRef        *string    `json:"image_ref,omitempty"`
	EventID         *int64     `json:"event_id,omitempty"`
	EventName       string     `json:"event_name,omitempty"`
	Verified        bool       `json:"verified"`
	VerifiedBy      *int64     `json:"verified_by,omitempty"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	EcoPointsEarned int        `json:"eco_points_earned"`
	VolunteerHours  int        `json:"volunteer_hours"`
	CreatedAt       time.Time  `json:"created_at"`
}

type ApproveLogResponse struct {
	Log           LogResponse `json:"log"`
	PointsAwarded int         `json:"points_awarded"`
}

type RejectLogResponse struct {
	Reason     string            `json:"reason"`
	DeletedLog DeletedLogSummary `json:"deleted_log"`
}

type DeletedLogSummary struct {
	ID       int64   `json:"id"`
	UserID   int64   `json:"user_id"`
	Category string  `json:"category"`
	Weight   float64 `json:"weight"`
	EventID  *int64  `json:"event_id,omitempty"`
}

type EventResponse struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	EcoPointsReward int       `json:"eco_points_reward"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

type SchedulerStatusResponse struct {
	Running bool `json:"running"`
}

type SchedulerTickResponse struct {
	Processed bool `json:"processed"`
	Approved  int  `json:"approved"`
	Failed    int  `json:"failed"`
	Total     int  `json:"total"`
}

const (
	VerificationApproved = "approved"
	VerificationRejected = "rejected"
)

// LogVerifiedMessage is the queue payload published after a verification
// outcome; the consumer worker turns it into an email.
type LogVerifiedMessage struct {
	LogID  int64  `json:"log_id"`
	UserID int64  `json:"user_id"`
	Kind   string `json:"kind"`
	Points int    `json:"points,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type Response struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Error struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

func BadResponseError(c *ginext.Context, code, desc string) {
	c.JSON(400, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func ForbiddenError(c *ginext.Context, desc string) {
	c.JSON(403, Response{
		Status: "error",
		Error: &Error{
			Code: Forbidden,
			Desc: desc,
		},
	})
}

func NotFoundError(c *ginext.Context, code, desc string) {
	c.JSON(404, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func ConflictError(c *ginext.Context, code, desc string) {
	c.JSON(409, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func InternalServerError(c *ginext.Context) {
	c.JSON(500, Response{
		Status: "error",
		Error: &Error{
			Code: ServiceUnavailable,
			Desc: InternalError,
		},
	})
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(200, Response{
		Status: "ok",
		Data:   data,
	})
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(201, Response{
		Status: "ok",
		Data:   data,
	})
}
