package repo

import (
	"errors"

	"github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	cachekeys "coinboard-api/internal/cache"
)

// ErrNotFound is returned when a keyed lookup matches no row.
var ErrNotFound = sqlx.ErrNotFound

// Dependencies bundles the shared infrastructure required by repository
// implementations. Cache is optional; repos degrade to direct reads.
type Dependencies struct {
	DBConn sqlx.SqlConn
	Cache  cache.Cache
	TTL    cachekeys.TTLSet
}

// Set exposes strongly typed repositories to application logic.
type Set struct {
	Snapshots SnapshotsRepo
	History   HistoryRepo
}

// New constructs the repository set, validating required dependencies.
func New(deps Dependencies) (*Set, error) {
	if deps.DBConn == nil {
		return nil, errors.New("repo: missing DBConn dependency")
	}

	return &Set{
		Snapshots: newSnapshotsRepo(deps),
		History:   newHistoryRepo(deps),
	}, nil
}
