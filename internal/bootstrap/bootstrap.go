// Package bootstrap assembles the pieces shared by the HTTP server and the
// offline import command.
package bootstrap

import (
	"context"
	"fmt"

	gcs "cloud.google.com/go/storage"
	"github.com/sh1zzle/activetime-project/internal"
	"github.com/sh1zzle/activetime-project/internal/auth"
	"github.com/sh1zzle/activetime-project/internal/config"
	"github.com/sh1zzle/activetime-project/internal/exportstore"
	"github.com/sh1zzle/activetime-project/internal/healthimport"
	"github.com/sh1zzle/activetime-project/internal/storage"
)

// NewImporter builds the health importer over repos. When an export bucket
// is configured it also opens a GCS client; the returned close func releases
// it and is never nil.
func NewImporter(ctx context.Context, cfg *config.Config, repos *storage.Repositories, logger internal.Logger) (*healthimport.Importer, func() error, error) {
	opts := []healthimport.Option{healthimport.WithScratchDir(cfg.ScratchDir)}
	closeFn := func() error { return nil }

	if cfg.ExportBucket != "" {
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("gcs client: %w", err)
		}
		opts = append(opts, healthimport.WithArchiver(exportstore.NewGCSArchiver(client, cfg.ExportBucket)))
		closeFn = client.Close
		logger.Infof("retaining health exports in gs://%s", cfg.ExportBucket)
	}
	return healthimport.New(repos.Sleep, logger, opts...), closeFn, nil
}

// NewAuth returns the request authenticator selected by cfg and the JWT
// provider used to issue login tokens.
func NewAuth(cfg *config.Config, users storage.UserRepository, logger internal.Logger) (auth.Provider, *auth.JWTProvider) {
	tokens := auth.NewJWTProvider(cfg.Secret(), cfg.JWTTTL, users)
	switch cfg.AuthProvider {
	case "local":
		logger.Warn("local auth provider enabled; do not use outside development")
		return auth.Chain{auth.NewLocalAuthProvider(cfg.DevToken, logger), tokens}, tokens
	case "remote":
		return auth.NewRemoteAuthProvider(cfg.AuthServiceURL, logger), tokens
	default:
		return tokens, tokens
	}
}
