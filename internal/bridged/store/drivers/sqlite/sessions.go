package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/rockfridrich/villa-sub000/internal/bridged/domain"
)

type sessionsRepo struct {
	q querier
}

func (r *sessionsRepo) CreateSession(ctx context.Context, rec domain.SessionRecord) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO sessions (id, app_id, network, caller_origin, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.AppID, rec.Network, rec.CallerOrigin, rec.State, now, now,
	)
	return err
}

func (r *sessionsRepo) GetSessionByID(ctx context.Context, id string) (domain.SessionRecord, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, app_id, network, caller_origin, state,
		       outcome, error_code, address, nickname, resolved_at,
		       created_at, updated_at
		FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

func (r *sessionsRepo) UpdateSessionState(ctx context.Context, id, state string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE sessions SET state = ?, updated_at = ? WHERE id = ?`,
		state, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *sessionsRepo) RecordOutcome(ctx context.Context, id string, outcome domain.Outcome, errorCode, address, nickname string) error {
	now := time.Now().UTC()

	// Guarded on outcome IS NULL so the first terminal result wins; a late
	// duplicate resolution is a silent no-op.
	_, err := r.q.ExecContext(ctx, `
		UPDATE sessions
		SET outcome = ?, error_code = ?, address = ?, nickname = ?,
		    state = 'closed', resolved_at = ?, updated_at = ?
		WHERE id = ? AND outcome IS NULL`,
		string(outcome), mapStringNull(errorCode), mapStringNull(address), mapStringNull(nickname),
		now, now, id,
	)
	return err
}

func (r *sessionsRepo) ListRecent(ctx context.Context, limit int) ([]domain.SessionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, app_id, network, caller_origin, state,
		       outcome, error_code, address, nickname, resolved_at,
		       created_at, updated_at
		FROM sessions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *sessionsRepo) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		DELETE FROM sessions WHERE outcome IS NOT NULL AND resolved_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (domain.SessionRecord, error) {
	var (
		rec        domain.SessionRecord
		outcome    sql.NullString
		errorCode  sql.NullString
		address    sql.NullString
		nickname   sql.NullString
		resolvedAt sql.NullTime
	)
	err := row.Scan(
		&rec.ID, &rec.AppID, &rec.Network, &rec.CallerOrigin, &rec.State,
		&outcome, &errorCode, &address, &nickname, &resolvedAt,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return domain.SessionRecord{}, mapNotFound(err)
	}
	rec.Outcome = domain.Outcome(mapNullString(outcome))
	rec.ErrorCode = mapNullString(errorCode)
	rec.Address = mapNullString(address)
	rec.Nickname = mapNullString(nickname)
	rec.ResolvedAt = mapNullTimePtr(resolvedAt)
	return rec, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}
