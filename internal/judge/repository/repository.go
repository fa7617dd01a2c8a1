// Package repository is the submission store the judging core reads and
// writes through (§6 "Submission store operations"): get, set_status, and
// set_result, nothing more.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"judgecore/internal/judge/model"
	appErr "judgecore/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubmissionRepository is the §6 store contract.
type SubmissionRepository interface {
	Get(ctx context.Context, id string) (model.Submission, error)
	SetStatus(ctx context.Context, id string, status model.Status) error
	SetResult(ctx context.Context, id string, status model.Status, verdict model.Verdict, totalScore int, timeUsedMs, memoryUsedKB int64, details []model.PerTestResult) error
}

// PostgresRepository implements SubmissionRepository against a
// `submissions` table, `details` stored as jsonb so set_result is one
// round trip rather than a child-table write per test case.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (model.Submission, error) {
	const q = `
SELECT id, user_id, problem_id, language, source, status,
       total_score, time_used_ms, memory_used_kb, details, final_verdict, created_at_unix
FROM submissions WHERE id = $1`

	var s model.Submission
	var detailsJSON []byte
	row := r.pool.QueryRow(ctx, q, id)
	err := row.Scan(&s.ID, &s.UserID, &s.ProblemID, &s.Language, &s.Source, &s.Status,
		&s.TotalScore, &s.TimeUsedMs, &s.MemoryUsedKB, &detailsJSON, &s.FinalVerdict, &s.CreatedAtUnix)
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.Submission{}, appErr.New(appErr.SubmissionNotFound)
		}
		return model.Submission{}, appErr.Wrapf(err, appErr.DatabaseError, "get submission %s", id)
	}
	if len(detailsJSON) > 0 {
		if err := json.Unmarshal(detailsJSON, &s.Details); err != nil {
			return model.Submission{}, appErr.Wrapf(err, appErr.DatabaseError, "decode submission %s details", id)
		}
	}
	return s, nil
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id string, status model.Status) error {
	const q = `UPDATE submissions SET status = $1 WHERE id = $2`
	tag, err := r.pool.Exec(ctx, q, status, id)
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "set status for submission %s", id)
	}
	if tag.RowsAffected() == 0 {
		return appErr.New(appErr.SubmissionNotFound)
	}
	return nil
}

// SetResult writes the terminal outcome in a single round trip: status,
// verdict, aggregate score/time/memory, and the per-test details blob
// together. verdict is the caller's already-computed final verdict
// (typically aggregator.Summary.Verdict, or an explicit System Error from
// a pre-aggregation failure) — SetResult persists it as given rather than
// recomputing it from details, since details can be empty (a pre-loop
// failure, or zero test cases) while the verdict is still well-defined.
func (r *PostgresRepository) SetResult(ctx context.Context, id string, status model.Status, verdict model.Verdict, totalScore int, timeUsedMs, memoryUsedKB int64, details []model.PerTestResult) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode submission details: %w", err)
	}

	const q = `
UPDATE submissions
SET status = $1, total_score = $2, time_used_ms = $3, memory_used_kb = $4,
    details = $5, final_verdict = $6
WHERE id = $7`

	tag, err := r.pool.Exec(ctx, q, status, totalScore, timeUsedMs, memoryUsedKB, detailsJSON, verdict, id)
	if err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "set result for submission %s", id)
	}
	if tag.RowsAffected() == 0 {
		return appErr.New(appErr.SubmissionNotFound)
	}
	return nil
}
