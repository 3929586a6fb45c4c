package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sh1zzle/activetime-project/internal"
)

var (
	ErrNotFound  = errors.New("storage: not found")
	ErrDuplicate = errors.New("storage: duplicate")
)

// ListOptions pages and filters list queries. A zero Limit returns every
// match; zero From/To leave that side of the range open.
type ListOptions struct {
	Limit  int
	Offset int
	From   time.Time
	To     time.Time
}

func (o ListOptions) inRange(t time.Time) bool {
	if !o.From.IsZero() && t.Before(o.From) {
		return false
	}
	if !o.To.IsZero() && t.After(o.To) {
		return false
	}
	return true
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *internal.User) error
	GetUserByEmail(ctx context.Context, email string) (*internal.User, error)
	GetUserByID(ctx context.Context, id string) (*internal.User, error)
}

type SleepLogRepository interface {
	SaveSleepLog(ctx context.Context, log *internal.SleepLog) error
	// FindSleepLog returns the user's record with exactly these bounds, or ErrNotFound.
	FindSleepLog(ctx context.Context, userID string, start, end time.Time) (*internal.SleepLog, error)
	ListSleepLogs(ctx context.Context, userID string, opts ListOptions) ([]internal.SleepLog, int, error)
}

type ProductivityRepository interface {
	CreateProductivity(ctx context.Context, p *internal.Productivity) error
	UpdateProductivity(ctx context.Context, p *internal.Productivity) error
	DeleteProductivity(ctx context.Context, userID, id string) error
	GetProductivity(ctx context.Context, userID, id string) (*internal.Productivity, error)
	ListProductivity(ctx context.Context, userID string, opts ListOptions) ([]internal.Productivity, int, error)
}

// Repositories bundles one backend's repositories with its shutdown hook.
type Repositories struct {
	Users        UserRepository
	Sleep        SleepLogRepository
	Productivity ProductivityRepository
	Close        func(ctx context.Context) error
}
