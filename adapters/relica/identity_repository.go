package relica

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coregx/parcelhub"
	"github.com/coregx/parcelhub/model"
	"github.com/coregx/relica"
)

// IdentityRepository implements parcelhub.IdentityRepository using Relica.
// It reads the user projection table; rows are written by the user service.
type IdentityRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewIdentityRepository creates a new IdentityRepository with default table prefix.
func NewIdentityRepository(sqlDB *sql.DB, driverName string) *IdentityRepository {
	return &IdentityRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: DefaultTablePrefix}
}

// NewIdentityRepositoryWithPrefix creates a new IdentityRepository with custom table prefix.
func NewIdentityRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *IdentityRepository {
	return &IdentityRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *IdentityRepository) tableName() string {
	return r.tablePrefix + "user"
}

// FindByID retrieves a user by ID.
func (r *IdentityRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Select("*").From(r.tableName()).Where("id = ?", id).One(&u)
	if errors.Is(err, sql.ErrNoRows) {
		return u, parcelhub.ErrNoData
	}
	if err != nil {
		return u, parcelhub.NewErrorWithCause(parcelhub.ErrCodeDatabase, "failed to load user", err)
	}
	return u, nil
}
