package service

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"ecotrack/cmd/middleware"
	"ecotrack/internal/dto"
	"ecotrack/internal/filestore"
	"ecotrack/internal/model"
	"ecotrack/internal/recycling"
	"ecotrack/internal/repo"
	"ecotrack/internal/scheduler"
	"ecotrack/pkg/validator"
)

type Service interface {
	SubmitLog(ctx *ginext.Context)
	GetPendingLogs(ctx *ginext.Context)
	GetUserLogs(ctx *ginext.Context)
	ApproveLog(ctx *ginext.Context)
	RejectLog(ctx *ginext.Context)

	CreateEvent(ctx *ginext.Context)
	GetAllEvents(ctx *ginext.Context)
	GetEvent(ctx *ginext.Context)
	RegisterForEvent(ctx *ginext.Context)

	StartScheduler(ctx *ginext.Context)
	StopScheduler(ctx *ginext.Context)
	SchedulerStatus(ctx *ginext.Context)
	RunSchedulerTick(ctx *ginext.Context)
	SetAutoApproval(ctx *ginext.Context)
}

type service struct {
	repo      repo.Repository
	submitter *recycling.Submitter
	engine    *recycling.Engine
	sched     *scheduler.Scheduler
	log       *zerolog.Logger
}

func NewService(r repo.Repository, submitter *recycling.Submitter, engine *recycling.Engine, sched *scheduler.Scheduler, logger *zerolog.Logger) Service {
	return &service{
		repo:      r,
		submitter: submitter,
		engine:    engine,
		sched:     sched,
		log:       logger,
	}
}

func logResponse(l *model.RecyclingLog) dto.LogResponse {
	return dto.LogResponse{
		ID:              l.ID,
		UserID:          l.UserID,
		UserName:        l.UserName,
		Category:        l.Category,
		Weight:          l.Weight,
		Description:     l.Description,
		ImageRef:        l.ImageRef,
		EventID:         l.EventID,
		EventName:       l.EventName,
		Verified:        l.Verified,
		VerifiedBy:      l.VerifiedBy,
		VerifiedAt:      l.VerifiedAt,
		EcoPointsEarned: l.EcoPointsEarned,
		VolunteerHours:  l.VolunteerHours,
		CreatedAt:       l.CreatedAt,
	}
}

func (s *service) respondError(ctx *ginext.Context, err error) {
	var fieldErr *validator.FieldError
	switch {
	case errors.As(err, &fieldErr):
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%s (field: %s, rule: %s)", fieldErr.Message, fieldErr.Field, fieldErr.Rule))
	case errors.Is(err, recycling.ErrForbidden):
		dto.ForbiddenError(ctx, "You are not allowed to perform this action")
	case errors.Is(err, repo.ErrDuplicateSubmission):
		dto.BadResponseError(ctx, dto.DuplicateSubmission, "You have already submitted a log with these details")
	case errors.Is(err, repo.ErrNotRegistered):
		dto.BadResponseError(ctx, dto.NotRegistered, "You are not registered for this event")
	case errors.Is(err, repo.ErrEventNotFound):
		dto.NotFoundError(ctx, dto.EventNotFound, "Event not found")
	case errors.Is(err, repo.ErrLogNotFound):
		dto.NotFoundError(ctx, dto.LogNotFound, "Recycling log not found")
	case errors.Is(err, repo.ErrAlreadyVerified):
		dto.ConflictError(ctx, dto.AlreadyVerified, "Log is already verified")
	case errors.Is(err, filestore.ErrUnsupportedType):
		dto.BadResponseError(ctx, dto.FieldBadFormat, "Image must be jpg, jpeg, png, gif or webp")
	case errors.Is(err, filestore.ErrTooLarge):
		dto.BadResponseError(ctx, dto.FieldBadFormat, "Image is too large")
	default:
		s.log.Error().Err(err).Msg("request failed")
		dto.InternalServerError(ctx)
	}
}

func (s *service) actor(ctx *ginext.Context) (model.Actor, bool) {
	actor, ok := middleware.ActorFrom(ctx)
	if !ok {
		dto.ForbiddenError(ctx, "Missing or invalid identity headers")
	}
	return actor, ok
}

func (s *service) adminActor(ctx *ginext.Context) (model.Actor, bool) {
	actor, ok := s.actor(ctx)
	if !ok {
		return actor, false
	}
	if !actor.IsAdmin() {
		dto.ForbiddenError(ctx, "Admin role required")
		return actor, false
	}
	return actor, true
}

func (s *service) SubmitLog(ctx *ginext.Context) {
	actor, ok := s.actor(ctx)
	if !ok {
		return
	}

	in := recycling.SubmitInput{
		SubmitLogRequest: dto.SubmitLogRequest{
			Category:       ctx.PostForm("category"),
			Weight:         ctx.PostForm("weight"),
			Description:    ctx.PostForm("description"),
			EventID:        ctx.PostForm("event_id"),
			VolunteerHours: ctx.PostForm("volunteer_hours"),
		},
	}

	if file, err := ctx.FormFile("image"); err == nil && file != nil {
		f, err := file.Open()
		if err != nil {
			s.log.Error().Err(err).Msg("failed to open uploaded image")
			dto.InternalServerError(ctx)
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			s.log.Error().Err(err).Msg("failed to read uploaded image")
			dto.InternalServerError(ctx)
			return
		}
		in.ImageData = data
		in.ImageName = file.Filename
	}

	created, err := s.submitter.Submit(ctx.Request.Context(), actor, in)
	if err != nil {
		s.respondError(ctx, err)
		return
	}

	dto.SuccessCreatedResponse(ctx, logResponse(created))
}

func (s *service) GetPendingLogs(ctx *ginext.Context) {
	if _, ok := s.adminActor(ctx); !ok {
		return
	}

	logs, err := s.repo.GetPendingLogs(ctx.Request.Context())
	if err != nil {
		s.respondError(ctx, err)
		return
	}

	resp := make([]dto.LogResponse, 0, len(logs))
	for i := range logs {
		resp = append(resp, logResponse(&logs[i]))
	}
	dto.SuccessResponse(ctx, resp)
}

func (s *service) GetUserLogs(ctx *ginext.Context) {
	actor, ok := s.actor(ctx)
	if !ok {
		return
	}

	userID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid user ID")
		return
	}
	if userID != actor.ID && !actor.IsAdmin() {
		dto.ForbiddenError(ctx, "You can only view your own logs")
		return
	}

	logs, err := s.repo.GetLogsByUser(ctx.Request.Context(), userID)
	if err != nil {
		s.respondError(ctx, err)
		return
	}

	resp := make([]dto.LogResponse, 0, len(logs))
	for i := range logs {
		resp = append(resp, logResponse(&logs[i]))
	}
	dto.SuccessResponse(ctx, resp)
}

func (s *service) ApproveLog(ctx *ginext.Context) {
	actor, ok := s.adminActor(ctx)
	if !ok {
		return
	}

	logID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid log ID")
		return
	}

	res, err := s.engine.Approve(ctx.Request.Context(), logID, actor)
	if err != nil {
		s.respondError(ctx, err)
		return
	}

	dto.SuccessResponse(ctx, dto.ApproveLogResponse{
		Log:           logResponse(res.Log),
		PointsAwarded: res.PointsAwarded,
	})
}

func (s *service) RejectLog(ctx *ginext.Context) {
	actor, ok := s.adminActor(ctx)
	if !ok {
		return
	}

	logID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid log ID")
		return
	}

	var req dto.RejectLogRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && err != io.EOF {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		s.respondError(ctx, verr)
		return
	}

	res, err := s.engine.Reject(ctx.Request.Context(), logID, req.Reason, actor)
	if err != nil {
		s.respondError(ctx, err)
		return
	}

	dto.SuccessResponse(ctx, dto.RejectLogResponse{
		Reason:     res.Reason,
		DeletedLog: res.DeletedLog,
	})
}

func (s *service) CreateEvent(ctx *ginext.Context) {
	actor, ok := s.actor(ctx)
	if !ok {
		return
	}
	if actor.Role != model.RoleOrganizer && !actor.IsAdmin() {
		dto.ForbiddenError(ctx, "Organizer or admin role required")
		return
	}

	var req dto.CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		s.respondError(ctx, verr)
		return
	}

	status := req.Status
	if status == "" {
		status = "active"
	}
	event := &model.Event{
		Name:            req.Name,
		Description:     req.Description,
		EcoPointsReward: req.EcoPointsReward,
		Status:          status,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	id, err := s.repo.CreateEvent(ctx.Request.Context(), event)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create event in DB")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Int64("event_id", id).Msg("event created successfully")

	dto.SuccessCreatedResponse(ctx, dto.EventResponse{
		ID:              id,
		Name:            event.Name,
		Description:     event.Description,
		EcoPointsReward: event.EcoPointsReward,
		Status:          event.Status,
		CreatedAt:       event.CreatedAt,
	})
}

func (s *service) GetAllEvents(ctx *ginext.Context) {
	events, err := s.repo.GetAllEvents(ctx.Request.Context())
	if err != nil {
		s.respondError(ctx, err)
		return
	}

	resp := make([]dto.EventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, dto.EventResponse{
			ID:              e.ID,
			Name:            e.Name,
			Description:     e.Description,
			EcoPointsReward: e.EcoPointsReward,
			Status:          e.Status,
			CreatedAt:       e.CreatedAt,
		})
	}
	dto.SuccessResponse(ctx, resp)
}

func (s *service) GetEvent(ctx *ginext.Context) {
	eventID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid event ID")
		return
	}

	e, err := s.repo.GetEventByID(ctx.Request.Context(), eventID)
	if err != nil {
		s.respondError(ctx, err)
		return
	}

	dto.SuccessResponse(ctx, dto.EventResponse{
		ID:              e.ID,
		Name:            e.Name,
		Description:     e.Description,
		EcoPointsReward: e.EcoPointsReward,
		Status:          e.Status,
		CreatedAt:       e.CreatedAt,
	})
}

func (s *service) RegisterForEvent(ctx *ginext.Context) {
	actor, ok := s.actor(ctx)
	if !ok {
		return
	}

	eventID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid event ID")
		return
	}

	if err := s.repo.RegisterParticipant(ctx.Request.Context(), eventID, actor.ID); err != nil {
		s.respondError(ctx, err)
		return
	}

	s.log.Info().Int64("event_id", eventID).Int64("user_id", actor.ID).Msg("participant registered")
	dto.SuccessCreatedResponse(ctx, model.EventParticipant{EventID: eventID, UserID: actor.ID})
}

func (s *service) StartScheduler(ctx *ginext.Context) {
	if _, ok := s.adminActor(ctx); !ok {
		return
	}
	s.sched.Start()
	dto.SuccessResponse(ctx, dto.SchedulerStatusResponse{Running: s.sched.IsRunning()})
}

func (s *service) StopScheduler(ctx *ginext.Context) {
	if _, ok := s.adminActor(ctx); !ok {
		return
	}
	s.sched.Stop()
	dto.SuccessResponse(ctx, dto.SchedulerStatusResponse{Running: s.sched.IsRunning()})
}

func (s *service) SchedulerStatus(ctx *ginext.Context) {
	if _, ok := s.adminActor(ctx); !ok {
		return
	}
	dto.SuccessResponse(ctx, dto.SchedulerStatusResponse{Running: s.sched.IsRunning()})
}

func (s *service) RunSchedulerTick(ctx *ginext.Context) {
	if _, ok := s.adminActor(ctx); !ok {
		return
	}
	summary := s.sched.RunOnce(ctx.Request.Context())
	dto.SuccessResponse(ctx, dto.SchedulerTickResponse{
		Processed: summary.Processed,
		Approved:  summary.Approved,
		Failed:    summary.Failed,
		Total:     summary.Total,
	})
}

func (s *service) SetAutoApproval(ctx *ginext.Context) {
	if _, ok := s.adminActor(ctx); !ok {
		return
	}

	var req dto.AutoApprovalRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	value := "false"
	if req.Enabled {
		value = "true"
	}
	if err := s.repo.SetSetting(ctx.Request.Context(), model.SettingAutoApproval, value); err != nil {
		s.respondError(ctx, err)
		return
	}

	s.log.Info().Bool("enabled", req.Enabled).Msg("auto-approval toggle updated")
	dto.SuccessResponse(ctx, dto.AutoApprovalRequest{Enabled: req.Enabled})
}
