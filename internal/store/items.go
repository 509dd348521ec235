package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/adaptest/internal/itembank"
)

// ItemRepo stores the calibrated item bank. It implements
// itembank.Repository.
type ItemRepo struct {
	s *Store
}

var _ itembank.Repository = (*ItemRepo)(nil)

var itemColumns = []string{
	"id", "a", "b", "c", "subjects", "skills", "grade", "status",
	"prompt", "format", "choices", "answer", "rubric",
}

// Upsert inserts or replaces items in one transaction.
func (r *ItemRepo) Upsert(ctx context.Context, items ...itembank.Item) error {
	now := millis(r.s.now())
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		for _, it := range items {
			subjects, skills, choices, err := encodeItemLists(it)
			if err != nil {
				return err
			}
			query, args := r.s.build().Insert(itemsTable.Name).
				Columns(append(itemColumns, "updated_at")...).
				Values(it.ID, it.A, it.B, it.C, subjects, skills, it.Grade, string(it.Status),
					it.Prompt, string(it.Format), choices, it.Answer, it.Rubric, now).
				OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
				Query()
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("upsert item %q: %w", it.ID, err)
			}
		}
		return nil
	})
}

// Get returns one item including its answer key.
func (r *ItemRepo) Get(ctx context.Context, itemID string) (itembank.Item, error) {
	b := r.s.build()
	query, args := b.Select(itemColumns...).
		From(b.Table(itemsTable.Name)).
		Where(entsql.EQ("id", itemID)).
		Query()
	it, err := scanItem(r.s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return itembank.Item{}, &itembank.ErrItemNotFound{ItemID: itemID}
	}
	if err != nil {
		return itembank.Item{}, fmt.Errorf("get item %q: %w", itemID, err)
	}
	return it, nil
}

// Content returns the examinee-facing part of an item.
func (r *ItemRepo) Content(ctx context.Context, itemID string) (itembank.Content, error) {
	it, err := r.Get(ctx, itemID)
	if err != nil {
		return itembank.Content{}, err
	}
	return itembank.ContentOf(it), nil
}

// ListOptions filters List.
type ListOptions struct {
	Subject string
	Status  itembank.Status
	Limit   int
}

// List returns items ordered by difficulty.
func (r *ItemRepo) List(ctx context.Context, opts ListOptions) ([]itembank.Item, error) {
	b := r.s.build()
	sel := b.Select(itemColumns...).From(b.Table(itemsTable.Name)).OrderBy("b", "id")
	if opts.Status != "" {
		sel.Where(entsql.EQ("status", string(opts.Status)))
	}
	items, err := r.query(ctx, sel)
	if err != nil {
		return nil, err
	}

	out := items[:0]
	for _, it := range items {
		if opts.Subject != "" && !contains(it.Subjects, opts.Subject) {
			continue
		}
		out = append(out, it)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

// QueryCandidates returns published items matching filter, skipping the
// excluded ids. Status, difficulty band and exclusions are pushed into SQL;
// tag filters are applied in memory.
func (r *ItemRepo) QueryCandidates(ctx context.Context, filter itembank.Filter, exclude []string) ([]itembank.Item, error) {
	b := r.s.build()
	preds := []*entsql.Predicate{entsql.EQ("status", string(itembank.StatusPublished))}
	if filter.MinDifficulty != nil {
		preds = append(preds, entsql.GTE("b", *filter.MinDifficulty))
	}
	if filter.MaxDifficulty != nil {
		preds = append(preds, entsql.LTE("b", *filter.MaxDifficulty))
	}
	if len(exclude) > 0 {
		ids := make([]any, len(exclude))
		for i, id := range exclude {
			ids[i] = id
		}
		preds = append(preds, entsql.NotIn("id", ids...))
	}
	sel := b.Select(itemColumns...).
		From(b.Table(itemsTable.Name)).
		Where(entsql.And(preds...)).
		OrderBy("id")

	items, err := r.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	out := items[:0]
	for _, it := range items {
		if filter.Matches(it) {
			out = append(out, it)
		}
	}
	return out, nil
}

// Count returns the number of stored items.
func (r *ItemRepo) Count(ctx context.Context) (int, error) {
	b := r.s.build()
	query, args := b.Select(entsql.Count("*")).From(b.Table(itemsTable.Name)).Query()
	var n int
	if err := r.s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}

func (r *ItemRepo) query(ctx context.Context, sel *entsql.Selector) ([]itembank.Item, error) {
	query, args := sel.Query()
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []itembank.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (itembank.Item, error) {
	var (
		it                        itembank.Item
		subjects, skills, choices string
		status, format            string
	)
	err := row.Scan(&it.ID, &it.A, &it.B, &it.C, &subjects, &skills, &it.Grade, &status,
		&it.Prompt, &format, &choices, &it.Answer, &it.Rubric)
	if err != nil {
		return itembank.Item{}, err
	}
	it.Status = itembank.Status(status)
	it.Format = itembank.Format(format)
	if err := decodeList(subjects, &it.Subjects); err != nil {
		return itembank.Item{}, err
	}
	if err := decodeList(skills, &it.Skills); err != nil {
		return itembank.Item{}, err
	}
	if err := decodeList(choices, &it.Choices); err != nil {
		return itembank.Item{}, err
	}
	return it, nil
}

func encodeItemLists(it itembank.Item) (subjects, skills, choices string, err error) {
	if subjects, err = encodeList(it.Subjects); err != nil {
		return
	}
	if skills, err = encodeList(it.Skills); err != nil {
		return
	}
	choices, err = encodeList(it.Choices)
	return
}

func encodeList(v []string) (string, error) {
	if len(v) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}
	return string(b), nil
}

func decodeList(raw string, dst *[]string) error {
	if raw == "" || raw == "[]" {
		*dst = nil
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decode list: %w", err)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
