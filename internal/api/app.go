package api

import (
	"context"
	"io"

	"github.com/sh1zzle/activetime-project/internal"
	"github.com/sh1zzle/activetime-project/internal/healthimport"
	"github.com/sh1zzle/activetime-project/internal/service"
	"github.com/sh1zzle/activetime-project/internal/storage"
)

type HealthImporter interface {
	Import(ctx context.Context, userID, filename string, body io.Reader) (*healthimport.Result, error)
}

type App interface {
	Logger() internal.Logger
	UserRepo() storage.UserRepository
	SleepRepo() storage.SleepLogRepository
	ProductivityRepo() storage.ProductivityRepository
	Importer() HealthImporter
	Tokens() service.TokenIssuer
}

// Application is the App the server runs with.
type Application struct {
	logger   internal.Logger
	repos    *storage.Repositories
	importer HealthImporter
	tokens   service.TokenIssuer
}

func NewApplication(logger internal.Logger, repos *storage.Repositories, importer HealthImporter, tokens service.TokenIssuer) *Application {
	return &Application{logger: logger, repos: repos, importer: importer, tokens: tokens}
}

func (a *Application) Logger() internal.Logger                          { return a.logger }
func (a *Application) UserRepo() storage.UserRepository                  { return a.repos.Users }
func (a *Application) SleepRepo() storage.SleepLogRepository             { return a.repos.Sleep }
func (a *Application) ProductivityRepo() storage.ProductivityRepository { return a.repos.Productivity }
func (a *Application) Importer() HealthImporter                          { return a.importer }
func (a *Application) Tokens() service.TokenIssuer                       { return a.tokens }
