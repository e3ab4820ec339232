package letters

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pzse-platform/iebc-backend/internal/db"
)

// StampFiles are the per-state stamp images: the signature-bearing file
// and the signature-stripped ("wet sign") file.
type StampFiles struct {
	Signed   string
	Unsigned string
}

// StampStore reads the per-state stamp file registry.
type StampStore struct {
	db *db.DB
}

func NewStampStore(database *db.DB) *StampStore {
	return &StampStore{db: database}
}

// FilesByState returns the stamp files for a state, or found=false when
// the state has no stamp configured.
func (s *StampStore) FilesByState(ctx context.Context, state string) (StampFiles, bool, error) {
	const q = `SELECT stamp_file_name, ws_file_name FROM stamps WHERE state = $1 LIMIT 1;`

	var f StampFiles
	err := s.db.Q(ctx).QueryRow(ctx, q, state).Scan(&f.Signed, &f.Unsigned)
	if errors.Is(err, pgx.ErrNoRows) {
		return StampFiles{}, false, nil
	}
	if err != nil {
		return StampFiles{}, false, fmt.Errorf("stamp files for %s: %w", state, err)
	}
	return f, true, nil
}
