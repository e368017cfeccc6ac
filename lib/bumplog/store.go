package bumplog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"steamtrades-client/internal/assert"
	"steamtrades-client/internal/chrono"
	"steamtrades-client/lib/scrapers/steamforum"
	"time"

	"github.com/google/uuid"
)

const (
	OutcomeBumped = "bumped"
	// OutcomeUnconfirmed means the bump was accepted but the trade did not
	// show up on the listing yet.
	OutcomeUnconfirmed = "unconfirmed"
)

// Attempt is one bump of one trade.
type Attempt struct {
	Id          string
	TradeId     string
	Title       string
	Outcome     string
	MinutesLeft int
	AttemptedAt time.Time
}

// OutcomeFor names the result of a bump, failures are named after their
// steamforum.Kind.
func OutcomeFor(bumped bool, err error) string {
	if err != nil {
		return steamforum.KindOf(err).String()
	}
	if bumped {
		return OutcomeBumped
	}
	return OutcomeUnconfirmed
}

// NewAttempt describes the result of bumping tradeId at the given time.
func NewAttempt(tradeId, title string, bumped bool, err error, at time.Time) Attempt {
	attempt := Attempt{
		TradeId:     tradeId,
		Title:       title,
		Outcome:     OutcomeFor(bumped, err),
		AttemptedAt: at,
	}
	var classified *steamforum.Error
	if errors.As(err, &classified) {
		attempt.MinutesLeft = classified.MinutesLeft
	}
	return attempt
}

type Store struct {
	db   *sql.DB
	time chrono.TimeAPI
}

func NewStore(db *sql.DB, time chrono.TimeAPI) Store {
	assert.NotNil(db)
	assert.NotNil(time)
	return Store{db: db, time: time}
}

// Record saves an attempt, assigning it an id and the current time when it
// has none.
func (s Store) Record(ctx context.Context, attempt Attempt) (Attempt, error) {
	if attempt.Id == "" {
		attempt.Id = uuid.NewString()
	}
	if attempt.AttemptedAt.IsZero() {
		attempt.AttemptedAt = s.time.Now()
	}

	_, err := s.db.ExecContext(
		ctx,
		`insert into bump_attempt(id, trade_id, title, outcome, minutes_left, attempted_at)
		values (?, ?, ?, ?, ?, ?)`,
		attempt.Id,
		attempt.TradeId,
		attempt.Title,
		attempt.Outcome,
		attempt.MinutesLeft,
		attempt.AttemptedAt.UnixMilli(),
	)
	if err != nil {
		return Attempt{}, fmt.Errorf("record attempt for %s: %w", attempt.TradeId, err)
	}
	return attempt, nil
}

// History lists attempts newest first. An empty tradeId lists every trade,
// limit <= 0 means no limit.
func (s Store) History(ctx context.Context, tradeId string, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(
		ctx,
		`select id, trade_id, title, outcome, minutes_left, attempted_at
		from bump_attempt
		where ? = '' or trade_id = ?
		order by attempted_at desc, rowid desc
		limit ?`,
		tradeId, tradeId, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var attempt Attempt
		var attemptedAt int64
		err := rows.Scan(
			&attempt.Id,
			&attempt.TradeId,
			&attempt.Title,
			&attempt.Outcome,
			&attempt.MinutesLeft,
			&attemptedAt,
		)
		if err != nil {
			return nil, err
		}
		attempt.AttemptedAt = time.UnixMilli(attemptedAt)
		attempts = append(attempts, attempt)
	}
	return attempts, rows.Err()
}

// NextReady returns the earliest time tradeId may be bumped again according
// to its latest attempt. The zero time means no wait is known.
func (s Store) NextReady(ctx context.Context, tradeId string) (time.Time, error) {
	latest, err := s.History(ctx, tradeId, 1)
	if err != nil {
		return time.Time{}, err
	}
	if len(latest) == 0 {
		return time.Time{}, nil
	}
	attempt := latest[0]
	if attempt.Outcome != steamforum.KindTradeNotReady.String() {
		return time.Time{}, nil
	}
	return attempt.AttemptedAt.Add(time.Duration(attempt.MinutesLeft) * time.Minute), nil
}
