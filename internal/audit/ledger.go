package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skolara/skolara/internal/shared"
)

// Ledger is the append-only store of audit entries. Append is the only
// write; Update and Delete are part of the contract so that every code
// path, administrative tooling included, hits the same guard instead of
// reaching storage.
type Ledger interface {
	Append(ctx context.Context, entry Entry) (*Entry, error)
	GetByID(ctx context.Context, id string) (*Entry, error)
	List(ctx context.Context, filters Filters) (*Page, error)
	Update(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, id string) error
}

// PGLedger implements Ledger on PostgreSQL.
type PGLedger struct {
	pool *pgxpool.Pool
}

// NewLedger constructs a PostgreSQL ledger.
func NewLedger(pool *pgxpool.Pool) *PGLedger {
	return &PGLedger{pool: pool}
}

// Append creates a new immutable entry. The id is generated here and never
// reused; CreatedAt is stamped at insert time when the caller left it zero.
func (l *PGLedger) Append(ctx context.Context, entry Entry) (*Entry, error) {
	if entry.Action == "" || entry.ResourceType == "" {
		return nil, fmt.Errorf("audit: entry requires action and resource_type")
	}
	entry.ID = uuid.NewString()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	var dataJSON []byte
	if entry.Data != nil {
		encoded, err := json.Marshal(entry.Data)
		if err != nil {
			return nil, fmt.Errorf("audit: marshal data: %w", err)
		}
		dataJSON = encoded
	}
	_, err := l.exec(ctx,
		`INSERT INTO audit_logs (id, actor_id, action, resource_type, resource_id, data_json, ip_address, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID,
		textPtr(entry.ActorID),
		entry.Action,
		entry.ResourceType,
		textPtr(entry.ResourceID),
		dataJSON,
		textPtr(entry.IPAddress),
		pgtype.Timestamptz{Time: entry.CreatedAt, Valid: true},
	)
	if err != nil {
		return nil, fmt.Errorf("audit: append: %w", err)
	}
	return &entry, nil
}

// GetByID fetches a single entry.
func (l *PGLedger) GetByID(ctx context.Context, id string) (*Entry, error) {
	row := l.pool.QueryRow(ctx,
		`SELECT id, actor_id, action, resource_type, resource_id, data_json, ip_address, created_at
		 FROM audit_logs WHERE id = $1`, id)
	entry, err := scanEntry(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

// List returns a filtered window of entries, newest first. One extra row is
// fetched to decide HasNext, following the platform's paging convention.
func (l *PGLedger) List(ctx context.Context, filters Filters) (*Page, error) {
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}

	where := []string{"TRUE"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filters.Actor != "" {
		where = append(where, "actor_id = "+arg(filters.Actor))
	}
	if filters.Action != "" {
		where = append(where, "action = "+arg(filters.Action))
	}
	if filters.ResourceType != "" {
		where = append(where, "resource_type = "+arg(filters.ResourceType))
	}
	if !filters.From.IsZero() {
		where = append(where, "created_at >= "+arg(filters.From))
	}
	if !filters.To.IsZero() {
		where = append(where, "created_at < "+arg(filters.To))
	}
	query := `SELECT id, actor_id, action, resource_type, resource_id, data_json, ip_address, created_at
		 FROM audit_logs WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC LIMIT ` + arg(pageSize+1) + ` OFFSET ` + arg((page-1)*pageSize)

	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, pageSize)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	hasNext := len(entries) > pageSize
	if hasNext {
		entries = entries[:pageSize]
	}
	return &Page{Entries: entries, Page: page, PageSize: pageSize, HasNext: hasNext}, nil
}

// Update is rejected unconditionally. The error is returned before any
// statement is built, so no write can reach storage through this path.
func (l *PGLedger) Update(ctx context.Context, entry Entry) error {
	return shared.ErrImmutableRecord
}

// Delete is rejected unconditionally, same as Update.
func (l *PGLedger) Delete(ctx context.Context, id string) error {
	return shared.ErrImmutableRecord
}

// exec is the single write path of the ledger. Every statement passes the
// mutation guard first, so even a future code path holding the raw pool
// through this type cannot update or delete rows.
func (l *PGLedger) exec(ctx context.Context, sql string, args ...any) (int64, error) {
	if err := GuardStatement(sql); err != nil {
		return 0, err
	}
	tag, err := l.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var mutationPattern = regexp.MustCompile(`(?is)\b(update|delete\s+from|truncate(\s+table)?|drop\s+table|alter\s+table)\s+("?audit_logs"?)\b`)

// GuardStatement rejects any statement that would mutate or remove audit
// rows. Tooling that runs raw SQL against the store must route statements
// through this check.
func GuardStatement(sql string) error {
	if mutationPattern.MatchString(sql) {
		return shared.ErrImmutableRecord
	}
	return nil
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var (
		entry     Entry
		actorID   pgtype.Text
		resID     pgtype.Text
		dataJSON  []byte
		ipAddress pgtype.Text
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&entry.ID, &actorID, &entry.Action, &entry.ResourceType, &resID, &dataJSON, &ipAddress, &createdAt); err != nil {
		return nil, err
	}
	if actorID.Valid {
		entry.ActorID = &actorID.String
	}
	if resID.Valid {
		entry.ResourceID = &resID.String
	}
	if len(dataJSON) > 0 {
		if err := json.Unmarshal(dataJSON, &entry.Data); err != nil {
			return nil, fmt.Errorf("audit: unmarshal data: %w", err)
		}
	}
	if ipAddress.Valid {
		entry.IPAddress = &ipAddress.String
	}
	entry.CreatedAt = createdAt.Time
	return &entry, nil
}

func textPtr(v *string) pgtype.Text {
	if v == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *v, Valid: true}
}

var _ Ledger = (*PGLedger)(nil)
