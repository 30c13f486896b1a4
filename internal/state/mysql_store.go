package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/domain"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

const submissionColumns = `run_id, batch_id, feed_type, encoding, document_id, feed_id, status,
result_document_id, report, error, titles_json, skus_json, checks, failures, lease_until, created_at, updated_at`

type MySQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *MySQLStore) InsertSubmission(ctx context.Context, sub Submission) error {
	titles, skus, err := encodeLists(sub)
	if err != nil {
		return err
	}

	now := s.now()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO submissions (
  run_id, batch_id, feed_type, encoding, document_id, feed_id, status,
  result_document_id, report, error, titles_json, skus_json, checks, failures, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.RunID, sub.BatchID, sub.FeedType, sub.Encoding, sub.DocumentID, sub.FeedID, sub.Status,
		sub.ResultDocumentID, sub.Report, sub.Error, titles, skus, sub.Checks, sub.Failures, sub.CreatedAt.UTC(), now,
	)

	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return ErrDuplicate
	}
	return err
}

func (s *MySQLStore) UpdateSubmission(ctx context.Context, sub Submission) error {
	titles, skus, err := encodeLists(sub)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
UPDATE submissions
SET document_id = ?, feed_id = ?, status = ?, result_document_id = ?, report = ?, error = ?,
    titles_json = ?, skus_json = ?, checks = ?, failures = ?, lease_until = NULL, updated_at = ?
WHERE run_id = ?`,
		sub.DocumentID, sub.FeedID, sub.Status, sub.ResultDocumentID, sub.Report, sub.Error,
		titles, skus, sub.Checks, sub.Failures, s.now(), sub.RunID,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MySQLStore) GetSubmission(ctx context.Context, runID string) (Submission, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE run_id = ?`, runID)

	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Submission{}, false, nil
	}
	if err != nil {
		return Submission{}, false, err
	}
	return sub, true, nil
}

func (s *MySQLStore) ListSubmissions(ctx context.Context, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT `+submissionColumns+`
FROM submissions
ORDER BY created_at DESC, run_id ASC
LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAll(rows)
}

func (s *MySQLStore) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]Submission, error) {
	if limit <= 0 {
		limit = 10
	}
	now := s.now()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
SELECT `+submissionColumns+`
FROM submissions
WHERE status IN (?, ?) AND feed_id <> '' AND (lease_until IS NULL OR lease_until <= ?)
ORDER BY created_at ASC
LIMIT ?
FOR UPDATE`, domain.StatusSubmitted, domain.StatusInProgress, now, limit)
	if err != nil {
		return nil, err
	}
	claims, err := scanAll(rows)
	_ = rows.Close()
	if err != nil {
		return nil, err
	}

	until := now.Add(lease)
	for i := range claims {
		if _, err := tx.ExecContext(ctx, `UPDATE submissions SET lease_until = ? WHERE run_id = ?`, until, claims[i].RunID); err != nil {
			return nil, err
		}
		claims[i].LeaseUntil = until
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return claims, nil
}

func encodeLists(sub Submission) ([]byte, []byte, error) {
	titles, err := json.Marshal(nonNil(sub.Titles))
	if err != nil {
		return nil, nil, err
	}
	skus, err := json.Marshal(nonNil(sub.SKUs))
	if err != nil {
		return nil, nil, err
	}
	return titles, skus, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(sc scanner) (Submission, error) {
	var (
		sub          Submission
		titles, skus []byte
		lease        sql.NullTime
	)

	err := sc.Scan(
		&sub.RunID, &sub.BatchID, &sub.FeedType, &sub.Encoding, &sub.DocumentID, &sub.FeedID, &sub.Status,
		&sub.ResultDocumentID, &sub.Report, &sub.Error, &titles, &skus, &sub.Checks, &sub.Failures, &lease,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return Submission{}, err
	}

	if len(titles) > 0 {
		if err := json.Unmarshal(titles, &sub.Titles); err != nil {
			return Submission{}, err
		}
	}
	if len(skus) > 0 {
		if err := json.Unmarshal(skus, &sub.SKUs); err != nil {
			return Submission{}, err
		}
	}
	if lease.Valid {
		sub.LeaseUntil = lease.Time.UTC()
	}
	sub.CreatedAt = sub.CreatedAt.UTC()
	sub.UpdatedAt = sub.UpdatedAt.UTC()
	return sub, nil
}

func scanAll(rows *sql.Rows) ([]Submission, error) {
	var out []Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
