package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/bankrag/internal/profile"
	"github.com/hrygo/bankrag/store"
	"github.com/hrygo/bankrag/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	driver, err := sqlite.NewDB(profile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
