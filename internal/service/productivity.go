package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sh1zzle/activetime-project/internal"
	"github.com/sh1zzle/activetime-project/internal/storage"
)

var (
	errProductivityExists   = internal.NewAppError(http.StatusConflict, "Productivity entry for this date already exists")
	errProductivityNotFound = internal.NewAppError(http.StatusNotFound, "Productivity entry not found")
)

type ProductivityRequest struct {
	Date               time.Time `json:"date" validate:"required"`
	ProductivityRating int       `json:"productivity_rating" validate:"required,gte=1,lte=5"`
	TasksCompleted     int       `json:"tasks_completed" validate:"gte=0"`
	FocusQuality       int       `json:"focus_quality" validate:"required,gte=1,lte=5"`
	EnergyLevel        int       `json:"energy_level" validate:"required,gte=1,lte=5"`
	WorkHours          float64   `json:"work_hours" validate:"gte=0,lte=24"`
	Notes              string    `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type ProductivityUpdateRequest struct {
	ID string `json:"id" validate:"required"`
	ProductivityRequest
}

func ValidateProductivityRequest(req *ProductivityRequest) error {
	return validate.Struct(req)
}

func CreateProductivity(ctx context.Context, repo storage.ProductivityRepository, user *internal.User, req *ProductivityRequest) (*internal.Productivity, error) {
	now := time.Now()
	p := &internal.Productivity{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
	}
	apply(p, req, now)
	if err := repo.CreateProductivity(ctx, p); err != nil {
		return nil, productivityError(err)
	}
	return p, nil
}

// UpdateProductivity replaces the fields of one of the user's entries.
func UpdateProductivity(ctx context.Context, repo storage.ProductivityRepository, user *internal.User, req *ProductivityUpdateRequest) (*internal.Productivity, error) {
	p, err := repo.GetProductivity(ctx, user.ID, req.ID)
	if err != nil {
		return nil, productivityError(err)
	}
	apply(p, &req.ProductivityRequest, time.Now())
	if err := repo.UpdateProductivity(ctx, p); err != nil {
		return nil, productivityError(err)
	}
	return p, nil
}

func DeleteProductivity(ctx context.Context, repo storage.ProductivityRepository, user *internal.User, id string) error {
	if err := repo.DeleteProductivity(ctx, user.ID, id); err != nil {
		return productivityError(err)
	}
	return nil
}

// productivityError turns store sentinels into client-facing errors.
func productivityError(err error) error {
	switch {
	case errors.Is(err, storage.ErrDuplicate):
		return errProductivityExists
	case errors.Is(err, storage.ErrNotFound):
		return errProductivityNotFound
	default:
		return err
	}
}

func apply(p *internal.Productivity, req *ProductivityRequest, now time.Time) {
	p.Date = internal.StartOfDay(req.Date)
	p.ProductivityRating = req.ProductivityRating
	p.TasksCompleted = req.TasksCompleted
	p.FocusQuality = req.FocusQuality
	p.EnergyLevel = req.EnergyLevel
	p.WorkHours = req.WorkHours
	p.Notes = req.Notes
	p.UpdatedAt = now
}
