package repository

import (
	"context"

	"judgecore/internal/judge/model"
	appErr "judgecore/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProblemRepository resolves the Problem a submission judges against.
// §6 only names the submission store contract; problem lookup is the
// ambient collaborator the orchestrator needs to build a Problem before
// it can drive §4.6's pipeline at all.
type ProblemRepository interface {
	Get(ctx context.Context, id string) (model.Problem, error)
}

// PostgresProblemRepository reads a problem's limits and flags from
// `problems` and its ordered test suite from `test_cases`; test content
// itself (input/expected bytes) typically lives in object storage for
// large problems (see internal/judge/datapack), so this table stores
// only what's needed to resolve and order the suite, plus small inline
// cases where no data pack is configured.
type PostgresProblemRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresProblemRepository(pool *pgxpool.Pool) *PostgresProblemRepository {
	return &PostgresProblemRepository{pool: pool}
}

func (r *PostgresProblemRepository) Get(ctx context.Context, id string) (model.Problem, error) {
	const problemQ = `
SELECT id, time_limit_ms, memory_limit_mb, partial, special_judge, checker_source, extra_compile_flags, data_pack_object_key
FROM problems WHERE id = $1`

	var p model.Problem
	row := r.pool.QueryRow(ctx, problemQ, id)
	err := row.Scan(&p.ID, &p.TimeLimitMs, &p.MemoryLimitMB, &p.Partial, &p.SpecialJudge, &p.CheckerSource, &p.ExtraCompileFlags, &p.DataPackObjectKey)
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.Problem{}, appErr.New(appErr.ProblemNotFound)
		}
		return model.Problem{}, appErr.Wrapf(err, appErr.DatabaseError, "get problem %s", id)
	}

	const testsQ = `
SELECT id, input, expected, is_sample
FROM test_cases WHERE problem_id = $1 ORDER BY ordinal ASC`

	rows, err := r.pool.Query(ctx, testsQ, id)
	if err != nil {
		return model.Problem{}, appErr.Wrapf(err, appErr.DatabaseError, "list test cases for problem %s", id)
	}
	defer rows.Close()

	for rows.Next() {
		var tc model.TestCase
		if err := rows.Scan(&tc.ID, &tc.Input, &tc.Expected, &tc.IsSample); err != nil {
			return model.Problem{}, appErr.Wrapf(err, appErr.DatabaseError, "scan test case for problem %s", id)
		}
		p.TestCases = append(p.TestCases, tc)
	}
	if err := rows.Err(); err != nil {
		return model.Problem{}, appErr.Wrapf(err, appErr.DatabaseError, "iterate test cases for problem %s", id)
	}

	return p, nil
}
