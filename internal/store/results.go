package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/adaptest/internal/irt"
	"github.com/abhisek/adaptest/internal/session"
	"github.com/abhisek/adaptest/internal/stopping"
)

// ResultRepo archives finished sessions and their response events. It
// implements session.ResultSink.
type ResultRepo struct {
	s *Store
}

var _ session.ResultSink = (*ResultRepo)(nil)

var resultColumns = []string{
	"session_id", "sequence", "examinee_id", "status", "reason", "theta", "se",
	"ci_low", "ci_high", "answered", "correct", "accuracy", "relaxed", "started_at", "ended_at",
}

var responseColumns = []string{
	"sequence", "session_id", "position", "item_id", "a", "b", "c", "subjects", "raw",
	"correct", "latency_ms", "theta_before", "theta_after", "se_before", "se_after",
	"fallback", "answered_at",
}

// Archive stores res and one event per response in a single transaction.
// Archiving the same session twice is a no-op.
func (r *ResultRepo) Archive(ctx context.Context, res *session.Result) error {
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := r.exists(ctx, tx, res.SessionID)
		if err != nil || exists {
			return err
		}

		seq, err := r.s.seq.Next(ctx, tx)
		if err != nil {
			return err
		}
		query, args := r.s.build().Insert(resultsTable.Name).
			Columns(resultColumns...).
			Values(res.SessionID, seq, res.ExamineeID, string(res.Status), string(res.Reason),
				res.Theta, res.SE, res.CILow, res.CIHigh, res.Answered, res.Correct, res.Accuracy,
				res.Relaxed, millis(res.StartedAt), millis(res.EndedAt)).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert result %q: %w", res.SessionID, err)
		}

		for i, resp := range res.Responses {
			seq, err := r.s.seq.Next(ctx, tx)
			if err != nil {
				return err
			}
			subjects, err := encodeList(resp.Subjects)
			if err != nil {
				return err
			}
			query, args := r.s.build().Insert(responsesTable.Name).
				Columns(responseColumns...).
				Values(seq, res.SessionID, i, resp.ItemID, resp.Params.A, resp.Params.B, resp.Params.C,
					subjects, resp.Raw, resp.Correct, resp.Latency.Milliseconds(),
					resp.ThetaBefore, resp.ThetaAfter, resp.SEBefore, resp.SEAfter,
					resp.Fallback, millis(resp.AnsweredAt)).
				Query()
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("insert response %d of %q: %w", i, res.SessionID, err)
			}
		}
		return nil
	})
}

func (r *ResultRepo) exists(ctx context.Context, ex execer, sessionID string) (bool, error) {
	b := r.s.build()
	query, args := b.Select(entsql.Count("*")).
		From(b.Table(resultsTable.Name)).
		Where(entsql.EQ("session_id", sessionID)).
		Query()
	var n int
	if err := ex.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("check result %q: %w", sessionID, err)
	}
	return n > 0, nil
}

// List returns archived results without responses, newest first.
func (r *ResultRepo) List(ctx context.Context, q ResultQuery) ([]*session.Result, error) {
	b := r.s.build()
	sel := b.Select(resultColumns...).
		From(b.Table(resultsTable.Name)).
		OrderBy(entsql.Desc("sequence"))
	if q.ExamineeID != "" {
		sel.Where(entsql.EQ("examinee_id", q.ExamineeID))
	}
	if q.Limit > 0 {
		sel.Limit(q.Limit)
	}

	query, args := sel.Query()
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []*session.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// Get returns one archived result with its responses, or nil if the
// session was never archived.
func (r *ResultRepo) Get(ctx context.Context, sessionID string) (*session.Result, error) {
	b := r.s.build()
	query, args := b.Select(resultColumns...).
		From(b.Table(resultsTable.Name)).
		Where(entsql.EQ("session_id", sessionID)).
		Query()
	res, err := scanResult(r.s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get result %q: %w", sessionID, err)
	}

	res.Responses, err = r.responses(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ItemStats summarizes archived responses to one item.
type ItemStats struct {
	ItemID   string
	Answered int
	Correct  int
}

// ItemStats returns per-item response counts across all archived sessions,
// most answered first.
func (r *ResultRepo) ItemStats(ctx context.Context, limit int) ([]ItemStats, error) {
	b := r.s.build()
	sel := b.Select("item_id", "COUNT(*)", "SUM(CASE WHEN correct THEN 1 ELSE 0 END)").
		From(b.Table(responsesTable.Name)).
		GroupBy("item_id").
		OrderBy("COUNT(*) DESC", "item_id")
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("item stats: %w", err)
	}
	defer rows.Close()

	var out []ItemStats
	for rows.Next() {
		var st ItemStats
		if err := rows.Scan(&st.ItemID, &st.Answered, &st.Correct); err != nil {
			return nil, fmt.Errorf("scan item stats: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (r *ResultRepo) responses(ctx context.Context, sessionID string) ([]session.Response, error) {
	b := r.s.build()
	query, args := b.Select(responseColumns[3:]...).
		From(b.Table(responsesTable.Name)).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy("position").
		Query()
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query responses of %q: %w", sessionID, err)
	}
	defer rows.Close()

	var out []session.Response
	for rows.Next() {
		var (
			resp      session.Response
			p         irt.Params
			subjects  string
			latencyMs int64
			answered  int64
		)
		err := rows.Scan(&resp.ItemID, &p.A, &p.B, &p.C, &subjects, &resp.Raw, &resp.Correct,
			&latencyMs, &resp.ThetaBefore, &resp.ThetaAfter, &resp.SEBefore, &resp.SEAfter,
			&resp.Fallback, &answered)
		if err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		if err := decodeList(subjects, &resp.Subjects); err != nil {
			return nil, err
		}
		resp.Params = p
		resp.Latency = time.Duration(latencyMs) * time.Millisecond
		resp.AnsweredAt = fromMillis(answered)
		out = append(out, resp)
	}
	return out, rows.Err()
}

func scanResult(row scanner) (*session.Result, error) {
	var (
		res            session.Result
		seq            int64
		status, reason string
		started, ended int64
	)
	err := row.Scan(&res.SessionID, &seq, &res.ExamineeID, &status, &reason, &res.Theta, &res.SE,
		&res.CILow, &res.CIHigh, &res.Answered, &res.Correct, &res.Accuracy, &res.Relaxed,
		&started, &ended)
	if err != nil {
		return nil, err
	}
	res.Status = session.Status(status)
	res.Reason = stopping.Reason(reason)
	res.StartedAt = fromMillis(started)
	res.EndedAt = fromMillis(ended)
	res.Duration = res.EndedAt.Sub(res.StartedAt)
	return &res, nil
}
