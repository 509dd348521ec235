package rediskv

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/abhisek/adaptest/internal/exposure"
)

// Ledger is an exposure.Ledger shared through Redis. Each window has its
// own counters, which expire two windows after they were last written.
type Ledger struct {
	c      *Client
	window time.Duration
	now    func() time.Time
}

var _ exposure.Ledger = (*Ledger)(nil)

// Ledger returns an exposure ledger counting in windows of length window
// (exposure.DefaultWindow if zero).
func (c *Client) Ledger(window time.Duration) *Ledger {
	if window <= 0 {
		window = exposure.DefaultWindow
	}
	return &Ledger{c: c, window: window, now: time.Now}
}

func (l *Ledger) keys(itemID string) (item, total string) {
	start := strconv.FormatInt(l.now().Truncate(l.window).UnixMilli(), 10)
	return l.c.key("exposure", start, "item", itemID), l.c.key("exposure", start, "total")
}

// Increment bumps the item and total counters in one MULTI/EXEC and
// returns the item's count in the current window.
func (l *Ledger) Increment(ctx context.Context, itemID string) (int64, error) {
	itemKey, totalKey := l.keys(itemID)
	ttl := 2 * l.window

	var served *goredis.IntCmd
	_, err := l.c.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		served = p.Incr(ctx, itemKey)
		p.Incr(ctx, totalKey)
		p.Expire(ctx, itemKey, ttl)
		p.Expire(ctx, totalKey, ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("increment exposure %q: %w", itemID, err)
	}
	return served.Val(), nil
}

// Rate returns the item's share of all serves in the current window.
func (l *Ledger) Rate(ctx context.Context, itemID string) (float64, error) {
	itemKey, totalKey := l.keys(itemID)
	vals, err := l.c.rdb.MGet(ctx, itemKey, totalKey).Result()
	if err != nil {
		return 0, fmt.Errorf("exposure rate %q: %w", itemID, err)
	}
	served, err := parseCount(vals[0])
	if err != nil {
		return 0, err
	}
	total, err := parseCount(vals[1])
	if err != nil || total == 0 {
		return 0, err
	}
	return float64(served) / float64(total), nil
}

func parseCount(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse exposure count %q: %w", x, err)
		}
		return n, nil
	default:
		return 0, errors.New("unexpected exposure count type")
	}
}
