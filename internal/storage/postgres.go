package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sh1zzle/activetime-project/internal"
)

const pgUniqueViolation = "23505"

var pgSchema = []string{`CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL UNIQUE,
	password   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS sleep_logs (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	start_time TIMESTAMPTZ NOT NULL,
	end_time   TIMESTAMPTZ NOT NULL,
	quality    INT NOT NULL,
	notes      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS sleep_logs_user_range ON sleep_logs (user_id, start_time, end_time)`,
	`CREATE TABLE IF NOT EXISTS productivity (
	id                  TEXT PRIMARY KEY,
	user_id             TEXT NOT NULL,
	date                DATE NOT NULL,
	productivity_rating INT NOT NULL,
	tasks_completed     INT NOT NULL,
	focus_quality       INT NOT NULL,
	energy_level        INT NOT NULL,
	work_hours          DOUBLE PRECISION NOT NULL,
	notes               TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	UNIQUE (user_id, date)
)`,
}

type PostgresStorage struct {
	pool   *pgxpool.Pool
	logger internal.Logger
}

func NewPostgresStorage(ctx context.Context, dsn string, logger internal.Logger) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Errorf("failed to connect to postgres: %v", err)
		return nil, err
	}
	for _, stmt := range pgSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			logger.Errorf("failed to apply postgres schema: %v", err)
			pool.Close()
			return nil, err
		}
	}
	return &PostgresStorage{pool: pool, logger: logger}, nil
}

func (p *PostgresStorage) Close(ctx context.Context) error {
	p.pool.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// rangeArgs turns open range bounds into NULLs for the `$n IS NULL OR ...` filters.
func rangeArgs(opts ListOptions) (from, to *time.Time) {
	if !opts.From.IsZero() {
		from = &opts.From
	}
	if !opts.To.IsZero() {
		to = &opts.To
	}
	return from, to
}

func limitArg(opts ListOptions) *int {
	if opts.Limit > 0 {
		return &opts.Limit
	}
	return nil
}

// --- UserRepository ---
func (p *PostgresStorage) CreateUser(ctx context.Context, u *internal.User) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO users (id, name, email, password, created_at) VALUES ($1, $2, lower($3), $4, $5)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		p.logger.Errorf("failed to insert user: %v", err)
		return err
	}
	return nil
}

func (p *PostgresStorage) getUser(ctx context.Context, where string, arg string) (*internal.User, error) {
	row := p.pool.QueryRow(ctx, `SELECT id, name, email, password, created_at FROM users WHERE `+where, arg)
	var u internal.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		p.logger.Errorf("failed to load user: %v", err)
		return nil, err
	}
	return &u, nil
}

func (p *PostgresStorage) GetUserByEmail(ctx context.Context, email string) (*internal.User, error) {
	return p.getUser(ctx, `email = lower($1)`, email)
}

func (p *PostgresStorage) GetUserByID(ctx context.Context, id string) (*internal.User, error) {
	return p.getUser(ctx, `id = $1`, id)
}

// --- SleepLogRepository ---
func (p *PostgresStorage) SaveSleepLog(ctx context.Context, log *internal.SleepLog) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO sleep_logs (id, user_id, start_time, end_time, quality, notes, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		log.ID, log.UserID, log.StartTime, log.EndTime, log.Quality, log.Notes, log.CreatedAt, log.UpdatedAt)
	if err != nil {
		p.logger.Errorf("failed to insert sleep log: %v", err)
		return err
	}
	return nil
}

func (p *PostgresStorage) FindSleepLog(ctx context.Context, userID string, start, end time.Time) (*internal.SleepLog, error) {
	row := p.pool.QueryRow(ctx, `SELECT id, user_id, start_time, end_time, quality, notes, created_at, updated_at FROM sleep_logs WHERE user_id = $1 AND start_time = $2 AND end_time = $3 LIMIT 1`,
		userID, start, end)
	var l internal.SleepLog
	if err := row.Scan(&l.ID, &l.UserID, &l.StartTime, &l.EndTime, &l.Quality, &l.Notes, &l.CreatedAt, &l.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		p.logger.Errorf("failed to find sleep log: %v", err)
		return nil, err
	}
	return &l, nil
}

func (p *PostgresStorage) ListSleepLogs(ctx context.Context, userID string, opts ListOptions) ([]internal.SleepLog, int, error) {
	from, to := rangeArgs(opts)
	const filter = `user_id = $1 AND ($2::timestamptz IS NULL OR start_time >= $2) AND ($3::timestamptz IS NULL OR start_time <= $3)`

	var total int
	if err := p.pool.QueryRow(ctx, `SELECT count(*) FROM sleep_logs WHERE `+filter, userID, from, to).Scan(&total); err != nil {
		p.logger.Errorf("failed to count sleep logs: %v", err)
		return nil, 0, err
	}

	rows, err := p.pool.Query(ctx, `SELECT id, user_id, start_time, end_time, quality, notes, created_at, updated_at FROM sleep_logs WHERE `+filter+` ORDER BY start_time DESC LIMIT $4 OFFSET $5`,
		userID, from, to, limitArg(opts), opts.Offset)
	if err != nil {
		p.logger.Errorf("failed to query sleep logs: %v", err)
		return nil, 0, err
	}
	defer rows.Close()

	logs := []internal.SleepLog{}
	for rows.Next() {
		var l internal.SleepLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.StartTime, &l.EndTime, &l.Quality, &l.Notes, &l.CreatedAt, &l.UpdatedAt); err != nil {
			p.logger.Errorf("failed to scan sleep log: %v", err)
			return nil, 0, err
		}
		logs = append(logs, l)
	}
	return logs, total, rows.Err()
}

// --- ProductivityRepository ---
const productivityColumns = `id, user_id, date, productivity_rating, tasks_completed, focus_quality, energy_level, work_hours, notes, created_at, updated_at`

func scanProductivity(row pgx.Row) (*internal.Productivity, error) {
	var e internal.Productivity
	err := row.Scan(&e.ID, &e.UserID, &e.Date, &e.ProductivityRating, &e.TasksCompleted, &e.FocusQuality, &e.EnergyLevel, &e.WorkHours, &e.Notes, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Date = internal.StartOfDay(e.Date)
	return &e, nil
}

func (p *PostgresStorage) CreateProductivity(ctx context.Context, e *internal.Productivity) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO productivity (`+productivityColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.UserID, e.Date, e.ProductivityRating, e.TasksCompleted, e.FocusQuality, e.EnergyLevel, e.WorkHours, e.Notes, e.CreatedAt, e.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		p.logger.Errorf("failed to insert productivity: %v", err)
		return err
	}
	return nil
}

func (p *PostgresStorage) UpdateProductivity(ctx context.Context, e *internal.Productivity) error {
	tag, err := p.pool.Exec(ctx, `UPDATE productivity SET date = $3, productivity_rating = $4, tasks_completed = $5, focus_quality = $6, energy_level = $7, work_hours = $8, notes = $9, updated_at = $10 WHERE id = $1 AND user_id = $2`,
		e.ID, e.UserID, e.Date, e.ProductivityRating, e.TasksCompleted, e.FocusQuality, e.EnergyLevel, e.WorkHours, e.Notes, e.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		p.logger.Errorf("failed to update productivity: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStorage) DeleteProductivity(ctx context.Context, userID, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM productivity WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		p.logger.Errorf("failed to delete productivity: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStorage) GetProductivity(ctx context.Context, userID, id string) (*internal.Productivity, error) {
	e, err := scanProductivity(p.pool.QueryRow(ctx, `SELECT `+productivityColumns+` FROM productivity WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

func (p *PostgresStorage) ListProductivity(ctx context.Context, userID string, opts ListOptions) ([]internal.Productivity, int, error) {
	from, to := rangeArgs(opts)
	const filter = `user_id = $1 AND ($2::timestamptz IS NULL OR date >= $2) AND ($3::timestamptz IS NULL OR date <= $3)`

	var total int
	if err := p.pool.QueryRow(ctx, `SELECT count(*) FROM productivity WHERE `+filter, userID, from, to).Scan(&total); err != nil {
		p.logger.Errorf("failed to count productivity: %v", err)
		return nil, 0, err
	}

	rows, err := p.pool.Query(ctx, `SELECT `+productivityColumns+` FROM productivity WHERE `+filter+` ORDER BY date DESC LIMIT $4 OFFSET $5`,
		userID, from, to, limitArg(opts), opts.Offset)
	if err != nil {
		p.logger.Errorf("failed to query productivity: %v", err)
		return nil, 0, err
	}
	defer rows.Close()

	entries := []internal.Productivity{}
	for rows.Next() {
		e, err := scanProductivity(rows)
		if err != nil {
			p.logger.Errorf("failed to scan productivity: %v", err)
			return nil, 0, err
		}
		entries = append(entries, *e)
	}
	return entries, total, rows.Err()
}

// --- Compile-time assertions ---
var _ UserRepository = (*PostgresStorage)(nil)
var _ SleepLogRepository = (*PostgresStorage)(nil)
var _ ProductivityRepository = (*PostgresStorage)(nil)
