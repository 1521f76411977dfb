package migrations

import (
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/pkg/errors"
)

type ApplyOptions struct {
	SourceURL   string
	DatabaseURL string
}

type ApplyResult struct {
	Err     error
	Changes bool
	Version uint
	Dirty   bool
}

// Up applies every pending migration of SourceURL.
func Up(options ApplyOptions) (res ApplyResult) {
	m, err := migrate.New(options.SourceURL, options.DatabaseURL)
	if err != nil {
		res.Err = errors.Wrap(err, "failed to open migrations")
		return
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		res.Err = errors.Wrap(err, "failed to apply migrations")
	} else if err == nil {
		res.Changes = true
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		if res.Err == nil {
			res.Err = errors.Wrap(err, "failed to read schema version")
		}
		return
	}
	res.Version, res.Dirty = version, dirty
	return
}
