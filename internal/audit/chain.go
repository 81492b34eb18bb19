// Package audit writes and verifies the per-organization hash-chained
// event log. Every entry links to its predecessor through
// SHA-256(prev_hash || org || user || action || entity_type || entity_id
// || created_at || old_values || new_values); the first entry of each
// organization links to "GENESIS".
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/atum-helpdesk/atum/internal/domain"
	"github.com/atum-helpdesk/atum/internal/repository"
)

// ComputeHash derives the row hash for one entry. CreatedAt is serialized
// as RFC3339Nano in UTC and the value maps as canonical JSON (Go sorts map
// keys), so the chain verifies identically offline.
func ComputeHash(prevHash, orgID, userID, action, entityType, entityID string, createdAt time.Time, oldValues, newValues map[string]any) string {
	h := sha256.New()
	h.Write([]byte(prevHash))
	h.Write([]byte(orgID))
	h.Write([]byte(userID))
	h.Write([]byte(action))
	h.Write([]byte(entityType))
	h.Write([]byte(entityID))
	h.Write([]byte(createdAt.UTC().Format(time.RFC3339Nano)))
	h.Write(canonicalJSON(oldValues))
	h.Write(canonicalJSON(newValues))
	return hex.EncodeToString(h.Sum(nil))
}

func canonicalJSON(values map[string]any) []byte {
	if len(values) == 0 {
		return []byte("{}")
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return []byte("{}")
	}
	return encoded
}

// Writer appends chain entries. All writes for one organization serialize
// on a transaction-scoped advisory lock so concurrent writers cannot fork
// the chain.
type Writer struct {
	db repository.Querier
}

// NewWriter builds a Writer over a pool or transaction.
func NewWriter(db repository.Querier) *Writer {
	return &Writer{db: db}
}

// WithTx rebinds the writer to a transaction.
func (w *Writer) WithTx(tx pgx.Tx) *Writer {
	return &Writer{db: tx}
}

// Append writes one entry, computing prev_hash from the organization's
// latest row under the advisory lock.
func (w *Writer) Append(ctx context.Context, entry *domain.AuditEntry) error {
	if entry.OrganizationID == "" {
		return errors.New("audit entry requires organization")
	}

	if _, err := w.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, entry.OrganizationID); err != nil {
		return err
	}

	prevHash := domain.GenesisHash
	err := w.db.QueryRow(ctx,
		`SELECT row_hash FROM audit_log WHERE organization_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1`,
		entry.OrganizationID,
	).Scan(&prevHash)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	userID := ""
	if entry.UserID != nil {
		userID = *entry.UserID
	}
	entry.PrevHash = prevHash
	entry.RowHash = ComputeHash(prevHash, entry.OrganizationID, userID, entry.Action,
		entry.EntityType, entry.EntityID, entry.CreatedAt, entry.OldValues, entry.NewValues)

	const query = `
        INSERT INTO audit_log (organization_id, user_id, action, entity_type, entity_id,
            old_values, new_values, created_at, prev_hash, row_hash)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id`
	return w.db.QueryRow(ctx, query,
		entry.OrganizationID,
		entry.UserID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		entry.OldValues,
		entry.NewValues,
		entry.CreatedAt,
		entry.PrevHash,
		entry.RowHash,
	).Scan(&entry.ID)
}

// ListRange returns entries for one organization in chain order.
func (w *Writer) ListRange(ctx context.Context, orgID string, from, to time.Time, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 1000
	}
	const query = `
        SELECT id, organization_id, user_id, action, entity_type, entity_id, old_values, new_values,
               created_at, prev_hash, row_hash
        FROM audit_log
        WHERE organization_id=$1 AND created_at >= $2 AND created_at <= $3
        ORDER BY created_at ASC, id ASC
        LIMIT $4`
	rows, err := w.db.Query(ctx, query, orgID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(
			&e.ID,
			&e.OrganizationID,
			&e.UserID,
			&e.Action,
			&e.EntityType,
			&e.EntityID,
			&e.OldValues,
			&e.NewValues,
			&e.CreatedAt,
			&e.PrevHash,
			&e.RowHash,
		); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// DeleteBefore removes entries older than the cutoff; verification
// tolerates the resulting gap before the earliest retained row.
func (w *Writer) DeleteBefore(ctx context.Context, orgID string, cutoff time.Time) (int64, error) {
	tag, err := w.db.Exec(ctx,
		`DELETE FROM audit_log WHERE organization_id=$1 AND created_at < $2`, orgID, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
