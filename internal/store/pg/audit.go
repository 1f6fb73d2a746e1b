package pg

import (
	"context"
	"database/sql"
	"strings"

	"hrcore.io/internal/audit"
)

var _ audit.Store = (*AuditStore)(nil)

// AuditStore appends and searches the append-only audit_events table. There
// is no update or delete path on purpose.
type AuditStore struct{ db *sql.DB }

// Audit returns the audit store view.
func (s *Store) Audit(context.Context) *AuditStore { return &AuditStore{db: s.db} }

// NewAuditStore wraps an existing connection (used by tests with sqlmock).
func NewAuditStore(db *sql.DB) *AuditStore { return &AuditStore{db: db} }

func (s *AuditStore) Append(ctx context.Context, e *audit.Event) error {
	_, err := s.db.ExecContext(ctx, `
		insert into audit_events
			(id, occurred_at, actor_username, actor_id, action, target_type, target_id, details, ip_address, status)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, e.ID, e.Timestamp, e.Actor, e.ActorID, e.Action, e.TargetType, e.TargetID, e.Details, e.IPAddress, e.Status)
	return err
}

const auditSearchWhere = `
		where ($1 = '' or actor_username ilike '%' || $1 || '%')
		  and ($2 = '' or action = $2)
		  and ($3::timestamptz is null or occurred_at >= $3)
		  and ($4::timestamptz is null or occurred_at <= $4)`

func (s *AuditStore) Search(ctx context.Context, f audit.Filter) ([]audit.Event, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from audit_events`+auditSearchWhere,
		f.Actor, f.Action, f.From, f.To).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "desc"
	if f.Asc {
		order = "asc"
	}
	perPage := f.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	query := strings.Join([]string{`
		select id, occurred_at, actor_username, actor_id, action, target_type, target_id, details, ip_address, status
		from audit_events`,
		auditSearchWhere, `
		order by occurred_at ` + order + `, id ` + order + `
		limit $5 offset $6`,
	}, "")

	rows, err := s.db.QueryContext(ctx, query,
		f.Actor, f.Action, f.From, f.To, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e       audit.Event
			actorID sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Actor, &actorID, &e.Action,
			&e.TargetType, &e.TargetID, &e.Details, &e.IPAddress, &e.Status); err != nil {
			return nil, 0, err
		}
		if actorID.Valid {
			e.ActorID = &actorID.Int64
		}
		events = append(events, e)
	}
	return events, total, rows.Err()
}
