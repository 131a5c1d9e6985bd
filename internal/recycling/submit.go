package recycling

import (
	"context"
	"math"
	"strconv"

	"github.com/rs/zerolog"

	"ecotrack/internal/dto"
	"ecotrack/internal/model"
	"ecotrack/internal/repo"
	"ecotrack/pkg/validator"
)

// SubmitInput is a raw log submission. Numeric fields arrive as form strings
// and are parsed here so a bad value can be reported per field.
type SubmitInput struct {
	dto.SubmitLogRequest
	ImageData []byte
	ImageName string
}

type Submitter struct {
	repo  repo.Repository
	files ImageStore
	log   *zerolog.Logger
}

func NewSubmitter(r repo.Repository, files ImageStore, log *zerolog.Logger) *Submitter {
	return &Submitter{repo: r, files: files, log: log}
}

// Submit validates the input, stores the image if provided and inserts the
// pending log. If the insert fails after the image was stored, the stored
// image is removed so no orphaned file remains.
func (s *Submitter) Submit(ctx context.Context, actor model.Actor, in SubmitInput) (*model.RecyclingLog, error) {
	if actor.Role != model.RoleStudent && actor.Role != model.RoleVolunteer {
		return nil, ErrForbidden
	}

	if err := validator.Validate(ctx, in.SubmitLogRequest); err != nil {
		return nil, err
	}

	// ParseFloat accepts "NaN" and "Inf"; neither is a usable weight and
	// NaN would slip past the <= 0 guard and the duplicate check.
	weight, err := strconv.ParseFloat(in.Weight, 64)
	if err != nil || math.IsNaN(weight) || math.IsInf(weight, 0) || weight <= 0 {
		return nil, &validator.FieldError{Field: "weight", Rule: "positive", Message: "Weight must be a positive number"}
	}

	var hours int
	if actor.Role == model.RoleVolunteer {
		if in.VolunteerHours == "" {
			return nil, &validator.FieldError{Field: "volunteer_hours", Rule: "required", Message: "Volunteer hours are required for volunteers"}
		}
		hours, err = strconv.Atoi(in.VolunteerHours)
		if err != nil || hours < 0 {
			return nil, &validator.FieldError{Field: "volunteer_hours", Rule: "gte", Message: "Volunteer hours must be a non-negative integer"}
		}
	}

	var eventID *int64
	if in.EventID != "" {
		id, err := strconv.ParseInt(in.EventID, 10, 64)
		if err != nil || id <= 0 {
			return nil, &validator.FieldError{Field: "event_id", Rule: "numeric", Message: "Event id must be a positive integer"}
		}
		eventID = &id
	}

	var imageRef *string
	if len(in.ImageData) > 0 {
		ref, err := s.files.Save(in.ImageData, in.ImageName)
		if err != nil {
			return nil, err
		}
		imageRef = &ref
	}

	created, err := s.repo.CreateLogTx(ctx, repo.SubmitLogParams{
		UserID:         actor.ID,
		Category:       in.Category,
		Weight:         weight,
		Description:    in.Description,
		ImageRef:       imageRef,
		EventID:        eventID,
		VolunteerHours: hours,
	})
	if err != nil {
		if imageRef != nil {
			if derr := s.files.Delete(*imageRef); derr != nil {
				s.log.Warn().Err(derr).Str("ref", *imageRef).Msg("failed to clean up stored image after rejected submission")
			}
		}
		return nil, err
	}

	s.log.Info().
		Int64("log_id", created.ID).
		Int64("user_id", actor.ID).
		Str("category", created.Category).
		Msg("recycling log submitted")
	return created, nil
}
