package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sh1zzle/activetime-project/internal"
	"github.com/sh1zzle/activetime-project/internal/storage"
)

var validate = validator.New()

type SleepLogRequest struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	Quality   int       `json:"quality" validate:"required,gte=1,lte=5"`
	Notes     string    `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

func ValidateSleepLogRequest(body *SleepLogRequest) error {
	return validate.Struct(body)
}

func CreateSleepLog(ctx context.Context, sleepRepo storage.SleepLogRepository, user *internal.User, body *SleepLogRequest) (*internal.SleepLog, error) {
	now := time.Now()
	log := &internal.SleepLog{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
		Quality:   body.Quality,
		Notes:     body.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := sleepRepo.SaveSleepLog(ctx, log); err != nil {
		return nil, err
	}
	return log, nil
}
