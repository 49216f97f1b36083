package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/dshills/clauseaudit/internal/schema"
	"github.com/dshills/clauseaudit/internal/schema/validate"
)

// ReplaceRules swaps the whole negative list for rules in one transaction.
// The rules are validated first; nothing is written when any is invalid.
func (db *DB) ReplaceRules(ctx context.Context, rules []schema.Rule) error {
	return db.writeRules(ctx, rules, true)
}

// UpsertRules inserts or updates rules by rule_number.
func (db *DB) UpsertRules(ctx context.Context, rules []schema.Rule) error {
	return db.writeRules(ctx, rules, false)
}

func (db *DB) writeRules(ctx context.Context, rules []schema.Rule, replace bool) error {
	if err := validate.Rules(rules); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return &schema.StorageError{Op: "save rules", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM negative_list`); err != nil {
			return &schema.StorageError{Op: "save rules", Err: err}
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO negative_list
		(rule_number, id, description, severity, category, remediation, keywords, patterns, version, effective_date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(rule_number) DO UPDATE SET
		  id=excluded.id, description=excluded.description, severity=excluded.severity,
		  category=excluded.category, remediation=excluded.remediation, keywords=excluded.keywords,
		  patterns=excluded.patterns, version=excluded.version, effective_date=excluded.effective_date,
		  updated_at=excluded.updated_at`)
	if err != nil {
		return &schema.StorageError{Op: "save rules", Err: err}
	}
	defer stmt.Close()

	for _, r := range rules {
		kw, err := jsonList(r.Keywords)
		if err != nil {
			return &schema.StorageError{Op: "save rules", Err: err}
		}
		pt, err := jsonList(r.Patterns)
		if err != nil {
			return &schema.StorageError{Op: "save rules", Err: err}
		}
		id := r.ID
		if id == "" {
			id = r.RuleNumber
		}
		if _, err := stmt.ExecContext(ctx,
			r.RuleNumber, id, r.Description, string(r.Severity), r.Category, r.Remediation,
			kw, pt, r.Version, r.EffectiveDate, now,
		); err != nil {
			return &schema.StorageError{Op: "save rules", Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &schema.StorageError{Op: "save rules", Err: err}
	}
	return nil
}

// GetRules returns the negative list, high severity first, then by
// rule_number. A stored row with an unknown severity is a ValidationError.
func (db *DB) GetRules(ctx context.Context) ([]schema.Rule, error) {
	const q = `
		SELECT rule_number, id, description, severity, category, remediation, keywords, patterns, version, effective_date
		  FROM negative_list
		 ORDER BY
		       (CASE severity WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END) DESC,
		       rule_number`
	rows, err := db.conn.QueryContext(ctx, q)
	if err != nil {
		return nil, &schema.StorageError{Op: "get rules", Err: err}
	}
	defer rows.Close()

	out := make([]schema.Rule, 0)
	for rows.Next() {
		var (
			r        schema.Rule
			sev      string
			category sql.NullString
			remed    sql.NullString
			version  sql.NullString
			eff      sql.NullString
			kw, pt   string
		)
		if err := rows.Scan(&r.RuleNumber, &r.ID, &r.Description, &sev, &category, &remed, &kw, &pt, &version, &eff); err != nil {
			return nil, &schema.StorageError{Op: "get rules", Err: err}
		}
		r.Severity = schema.Severity(sev)
		r.Category, r.Remediation, r.Version, r.EffectiveDate = category.String, remed.String, version.String, eff.String
		if err := json.Unmarshal([]byte(kw), &r.Keywords); err != nil {
			return nil, &schema.StorageError{Op: "get rules", Err: err}
		}
		if err := json.Unmarshal([]byte(pt), &r.Patterns); err != nil {
			return nil, &schema.StorageError{Op: "get rules", Err: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &schema.StorageError{Op: "get rules", Err: err}
	}
	if err := validate.Rules(out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountRules returns the number of stored rules.
func (db *DB) CountRules(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(1) FROM negative_list`).Scan(&n); err != nil {
		return 0, &schema.StorageError{Op: "count rules", Err: err}
	}
	return n, nil
}

func jsonList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	return string(b), err
}
