package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/dshills/clauseaudit/internal/schema"
)

// AuditRow is the lightweight listing form of a stored audit.
type AuditRow struct {
	ID           string    `json:"audit_id"`
	CreatedAt    time.Time `json:"created_at"`
	ProductName  string    `json:"product_name"`
	ProductType  string    `json:"product_type"`
	AuditType    string    `json:"audit_type"`
	Score        int       `json:"score"`
	Grade        string    `json:"grade"`
	Violations   int       `json:"violations"`
	ReportID     string    `json:"report_id"`
	DocumentHash string    `json:"document_hash,omitempty"`
}

// SaveAudit upserts an audit result keyed by its audit ID.
func (db *DB) SaveAudit(ctx context.Context, res *schema.AuditResult, documentHash string) error {
	b, err := json.Marshal(res)
	if err != nil {
		return &schema.StorageError{Op: "save audit", Err: err}
	}
	created := res.CreatedAt
	if created == "" {
		created = time.Now().UTC().Format(time.RFC3339)
	}
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO audits
		 (id, created_at, product_name, product_type, audit_type, score, grade, violations, report_id, document_hash, result_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   created_at=excluded.created_at, product_name=excluded.product_name, product_type=excluded.product_type,
		   audit_type=excluded.audit_type, score=excluded.score, grade=excluded.grade, violations=excluded.violations,
		   report_id=excluded.report_id, document_hash=excluded.document_hash, result_json=excluded.result_json`,
		res.AuditID, created, res.Product.Name, res.Product.Type, string(res.AuditType),
		res.Score, string(res.Grade), len(res.Violations), res.Report.ID, documentHash, string(b),
	)
	if err != nil {
		return &schema.StorageError{Op: "save audit", Err: err}
	}
	return nil
}

// LoadAudit returns the full audit result (from stored JSON).
func (db *DB) LoadAudit(ctx context.Context, id string) (*schema.AuditResult, error) {
	var s string
	row := db.conn.QueryRowContext(ctx, `SELECT result_json FROM audits WHERE id = ?`, id)
	if err := row.Scan(&s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &schema.StorageError{Op: "load audit", Err: err}
	}
	var res schema.AuditResult
	if err := json.Unmarshal([]byte(s), &res); err != nil {
		return nil, &schema.StorageError{Op: "load audit", Err: err}
	}
	return &res, nil
}

// ListAudits returns audits newest first.
func (db *DB) ListAudits(ctx context.Context, limit, offset int) ([]AuditRow, error) {
	const q = `
		SELECT id, created_at, product_name, product_type, audit_type, score, grade, violations, report_id, document_hash
		  FROM audits
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`
	rows, err := db.conn.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, &schema.StorageError{Op: "list audits", Err: err}
	}
	defer rows.Close()

	out := make([]AuditRow, 0)
	for rows.Next() {
		var (
			ar                           AuditRow
			createdAt                    string
			name, ptype, reportID, dhash sql.NullString
		)
		if err := rows.Scan(&ar.ID, &createdAt, &name, &ptype, &ar.AuditType, &ar.Score, &ar.Grade, &ar.Violations, &reportID, &dhash); err != nil {
			return nil, &schema.StorageError{Op: "list audits", Err: err}
		}
		ar.ProductName, ar.ProductType, ar.ReportID, ar.DocumentHash = name.String, ptype.String, reportID.String, dhash.String
		// Parse RFC3339Nano first, fallback to RFC3339
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			ar.CreatedAt = t
		} else if t2, err2 := time.Parse(time.RFC3339, createdAt); err2 == nil {
			ar.CreatedAt = t2
		}
		out = append(out, ar)
	}
	if err := rows.Err(); err != nil {
		return nil, &schema.StorageError{Op: "list audits", Err: err}
	}
	return out, nil
}
