package storage

import (
	"context"
	"fmt"

	"github.com/sh1zzle/activetime-project/internal"
	"github.com/sh1zzle/activetime-project/internal/config"
)

func NewFileRepositories(usersFile, sleepFile, productFile string, logger internal.Logger) (*Repositories, error) {
	s, err := NewFileStorage(usersFile, sleepFile, productFile, logger)
	if err != nil {
		return nil, err
	}
	return &Repositories{Users: s, Sleep: s, Productivity: s, Close: s.Close}, nil
}

func NewPostgresRepositories(ctx context.Context, dsn string, logger internal.Logger) (*Repositories, error) {
	s, err := NewPostgresStorage(ctx, dsn, logger)
	if err != nil {
		return nil, err
	}
	return &Repositories{Users: s, Sleep: s, Productivity: s, Close: s.Close}, nil
}

// NewMongoRepositories does not dial; the connection opens on first use.
func NewMongoRepositories(uri, dbName string, logger internal.Logger) *Repositories {
	s := NewMongoStorage(NewMongoConn(uri, dbName, logger), logger)
	return &Repositories{Users: s, Sleep: s, Productivity: s, Close: s.Close}
}

// Open selects the backend named by cfg.DBType.
func Open(ctx context.Context, cfg *config.Config, logger internal.Logger) (*Repositories, error) {
	switch cfg.DBType {
	case "file":
		return NewFileRepositories(cfg.FileUsers, cfg.FileSleep, cfg.FileProducts, logger)
	case "postgres":
		return NewPostgresRepositories(ctx, cfg.DBDSN, logger)
	case "mongo":
		return NewMongoRepositories(cfg.MongoURI, cfg.MongoDB, logger), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.DBType)
	}
}
