// Package healthimport turns an Apple Health export archive into sleep logs.
//
// The pipeline runs in four steps: intake (validate, unpack into a scratch
// directory), extraction (asleep records only), reconstruction (merge
// segments into nights) and materialization (dedup and persist).
package healthimport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sh1zzle/activetime-project/internal"
	"github.com/sh1zzle/activetime-project/internal/storage"
)

var (
	ErrInvalidInput  = errors.New("invalid upload")
	ErrInvalidFormat = errors.New("not a valid Apple Health export")
	ErrPersistence   = errors.New("persisting imported sleep failed")

	ErrNoFile = fmt.Errorf("%w: no file uploaded", ErrInvalidInput)
	ErrNotZip = fmt.Errorf("%w: expected a .zip archive", ErrInvalidInput)
)

// Archiver keeps a copy of accepted uploads.
type Archiver interface {
	Retain(ctx context.Context, userID, filename string, r io.Reader) error
}

type Importer struct {
	sleep       storage.SleepLogRepository
	logger      internal.Logger
	scratchRoot string
	archiver    Archiver
	now         func() time.Time
}

type Option func(*Importer)

// WithScratchDir sets the parent of the per-import scratch directories.
func WithScratchDir(dir string) Option {
	return func(im *Importer) { im.scratchRoot = dir }
}

func WithArchiver(a Archiver) Option {
	return func(im *Importer) { im.archiver = a }
}

func WithClock(now func() time.Time) Option {
	return func(im *Importer) { im.now = now }
}

func New(sleep storage.SleepLogRepository, logger internal.Logger, opts ...Option) *Importer {
	im := &Importer{
		sleep:       sleep,
		logger:      logger,
		scratchRoot: os.TempDir(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Plan is the reconstructed content of one export.
type Plan struct {
	Sessions []Session
	Segments int
	Skipped  int
}

type Result struct {
	Imported int
	Existing int
	Plan     *Plan
}

// Import runs the whole pipeline for one upload. On ErrPersistence the
// returned Result still reports the sessions written before the failure.
func (im *Importer) Import(ctx context.Context, userID, filename string, body io.Reader) (*Result, error) {
	plan, err := im.Prepare(ctx, userID, filename, body)
	if err != nil {
		return nil, err
	}
	res, err := im.Materialize(ctx, userID, plan.Sessions)
	res.Plan = plan
	if err != nil {
		return res, err
	}
	im.logger.Infof("healthimport: user=%s segments=%d skipped=%d sessions=%d imported=%d existing=%d",
		userID, plan.Segments, plan.Skipped, len(plan.Sessions), res.Imported, res.Existing)
	return res, nil
}

// Prepare validates and unpacks the upload and rebuilds its sessions without
// touching the store. The scratch directory is gone when it returns.
func (im *Importer) Prepare(ctx context.Context, userID, filename string, body io.Reader) (*Plan, error) {
	if err := ValidateFilename(filename); err != nil {
		return nil, err
	}

	ws, err := newWorkspace(im.scratchRoot, im.logger)
	if err != nil {
		return nil, err
	}
	defer ws.cleanup()

	if err := ws.writeArchive(body); err != nil {
		return nil, err
	}
	exportPath, err := ws.extract()
	if err != nil {
		return nil, err
	}
	im.retain(ctx, userID, filename, ws.archivePath())

	data, err := readExport(exportPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	segments, skipped := extractSegments(data.Records)
	if skipped > 0 {
		im.logger.Warnf("healthimport: skipped %d sleep records with unreadable dates", skipped)
	}
	return &Plan{
		Sessions: BuildSessions(segments),
		Segments: len(segments),
		Skipped:  skipped,
	}, nil
}

func (im *Importer) retain(ctx context.Context, userID, filename, path string) {
	if im.archiver == nil {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		im.logger.Warnf("healthimport: cannot reopen archive for retention: %v", err)
		return
	}
	defer f.Close()
	if err := im.archiver.Retain(ctx, userID, filename, f); err != nil {
		im.logger.Warnf("healthimport: failed to retain export for user %s: %v", userID, err)
	}
}

// Materialize persists sessions the user does not already have. Existing
// records are matched on exact start and end.
func (im *Importer) Materialize(ctx context.Context, userID string, sessions []Session) (*Result, error) {
	res := &Result{}
	for _, s := range sessions {
		_, err := im.sleep.FindSleepLog(ctx, userID, s.Start, s.End)
		if err == nil {
			res.Existing++
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return res, fmt.Errorf("%w: lookup %s: %w", ErrPersistence, s.Start.Format(time.RFC3339), err)
		}

		now := im.now()
		log := &internal.SleepLog{
			ID:        uuid.NewString(),
			UserID:    userID,
			StartTime: s.Start,
			EndTime:   s.End,
			Quality:   s.Quality,
			Notes:     fmt.Sprintf("Imported from Apple Health (%s)", s.Source()),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := im.sleep.SaveSleepLog(ctx, log); err != nil {
			return res, fmt.Errorf("%w: save %s: %w", ErrPersistence, s.Start.Format(time.RFC3339), err)
		}
		res.Imported++
	}
	return res, nil
}
