package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matheuscscp/fairshare/models"
	"github.com/matheuscscp/fairshare/services/secrets"
	"github.com/matheuscscp/fairshare/storage/migrations"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type (
	// SQLStore implements Store on database/sql.
	SQLStore struct {
		db  *sql.DB
		d   dialect
		now func() time.Time
	}

	querier interface {
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
		QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	}
)

const (
	createSessionAttempts = 5
	sqlitePragmas         = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	sessionColumns        = "id, slug, beem_handle, created_at, updated_at"
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open connects to the database and applies the embedded migrations.
func Open(ctx context.Context, driver, dataSource string) (*SQLStore, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnsupportedDriver, driver)
	}
	if strings.TrimSpace(dataSource) == "" {
		return nil, fmt.Errorf("database url is required")
	}
	if driver == DriverSQLite && dataSource != ":memory:" && !strings.Contains(dataSource, "?") {
		dataSource += "?" + sqlitePragmas
	}

	db, err := sql.Open(d.driver, dataSource)
	if err != nil {
		return nil, fmt.Errorf("error opening %s db: %w", driver, err)
	}
	if driver == DriverSQLite {
		// one connection serializes writers and keeps :memory: databases whole
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error pinging %s db: %w", driver, err)
	}
	if err := applyMigrations(ctx, db, d, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("error running migrations: %w", err)
	}
	return &SQLStore{
		db:  db,
		d:   d,
		now: time.Now,
	}, nil
}

// Ping ...
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close ...
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// CreateSession stores a new session under a fresh random slug.
func (s *SQLStore) CreateSession(ctx context.Context, beemHandle string, items models.Receipt) (*models.Session, error) {
	if err := items.Validate(); err != nil {
		return nil, err
	}
	now := fromMillis(toMillis(s.now()))
	session := &models.Session{
		ID:         uuid.NewString(),
		BeemHandle: beemHandle,
		Items:      items,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for attempt := 1; ; attempt++ {
		slug, err := secrets.GenerateSlug()
		if err != nil {
			return nil, fmt.Errorf("error generating slug: %w", err)
		}
		session.Slug = slug
		err = s.inTx(ctx, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, s.d.rebind(
				"INSERT INTO sessions ("+sessionColumns+") VALUES (?, ?, ?, ?, ?)"),
				session.ID, session.Slug, session.BeemHandle, toMillis(now), toMillis(now))
			if err != nil {
				return err
			}
			return s.insertItems(ctx, tx, session.ID, items)
		})
		if err == nil {
			return session, nil
		}
		if !isUniqueViolation(err) || attempt == createSessionAttempts {
			return nil, fmt.Errorf("error creating session: %w", err)
		}
		logrus.WithField("slug", slug).Debug("slug collision, retrying")
	}
}

// GetSession ...
func (s *SQLStore) GetSession(ctx context.Context, slug string) (*models.Session, error) {
	session, err := s.getSession(ctx, s.db, slug, false)
	if err != nil {
		return nil, err
	}
	if session.Items, err = s.loadItems(ctx, s.db, session.ID); err != nil {
		return nil, err
	}
	return session, nil
}

// ReplaceItems swaps the whole item list of the session. All claims are
// dropped since they referred to the old list.
func (s *SQLStore) ReplaceItems(ctx context.Context, slug string, items models.Receipt) (*models.Session, error) {
	if err := items.Validate(); err != nil {
		return nil, err
	}
	var session *models.Session
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		if session, err = s.getSession(ctx, tx, slug, true); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.d.rebind("DELETE FROM claims WHERE session_id = ?"), session.ID); err != nil {
			return fmt.Errorf("error deleting claims: %w", err)
		}
		session.Items = items
		return s.saveItems(ctx, tx, session)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// EditItems applies edit to the current items. Claims on items that no longer
// exist are dropped, and the edit fails with models.ErrOverClaimed when the
// remaining claims exceed the new counts.
func (s *SQLStore) EditItems(ctx context.Context, slug string, edit ItemsEditor) (*models.Session, error) {
	var session *models.Session
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		if session, err = s.getSession(ctx, tx, slug, true); err != nil {
			return err
		}
		current, err := s.loadItems(ctx, tx, session.ID)
		if err != nil {
			return err
		}
		items, err := edit(current.Clone())
		if err != nil {
			return err
		}
		if err := items.Validate(); err != nil {
			return err
		}
		allocations, err := s.loadAllocations(ctx, tx, session.ID)
		if err != nil {
			return err
		}
		if err := models.CheckAllocations(items, allocations); err != nil {
			return err
		}
		for _, item := range current {
			if items.Find(item.ID) != nil {
				continue
			}
			_, err := tx.ExecContext(ctx, s.d.rebind("DELETE FROM claims WHERE session_id = ? AND item_id = ?"),
				session.ID, item.ID)
			if err != nil {
				return fmt.Errorf("error deleting claims of removed item: %w", err)
			}
		}
		session.Items = items
		return s.saveItems(ctx, tx, session)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// DeleteSession removes the session and everything attached to it.
func (s *SQLStore) DeleteSession(ctx context.Context, slug string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		session, err := s.getSession(ctx, tx, slug, true)
		if err != nil {
			return err
		}
		for _, query := range []string{
			"DELETE FROM claims WHERE session_id = ?",
			"DELETE FROM participants WHERE session_id = ?",
			"DELETE FROM items WHERE session_id = ?",
			"DELETE FROM sessions WHERE id = ?",
		} {
			if _, err := tx.ExecContext(ctx, s.d.rebind(query), session.ID); err != nil {
				return fmt.Errorf("error deleting session: %w", err)
			}
		}
		return nil
	})
}

// AddParticipant joins name to the session with the next join ordinal.
func (s *SQLStore) AddParticipant(ctx context.Context, slug, name string) (*models.Participant, error) {
	var participant *models.Participant
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		session, err := s.getSession(ctx, tx, slug, true)
		if err != nil {
			return err
		}
		var ordinal int
		err = tx.QueryRowContext(ctx, s.d.rebind(
			"SELECT COALESCE(MAX(ordinal), 0) + 1 FROM participants WHERE session_id = ?"),
			session.ID).Scan(&ordinal)
		if err != nil {
			return fmt.Errorf("error computing join ordinal: %w", err)
		}
		participant = &models.Participant{
			ID:        uuid.NewString(),
			SessionID: session.ID,
			Name:      name,
			Ordinal:   ordinal,
			JoinedAt:  fromMillis(toMillis(s.now())),
		}
		_, err = tx.ExecContext(ctx, s.d.rebind(
			"INSERT INTO participants (id, session_id, ordinal, name, joined_at) VALUES (?, ?, ?, ?, ?)"),
			participant.ID, participant.SessionID, participant.Ordinal, participant.Name, toMillis(participant.JoinedAt))
		if err != nil {
			return fmt.Errorf("error inserting participant: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return participant, nil
}

// GetParticipant ...
func (s *SQLStore) GetParticipant(ctx context.Context, slug, participantID string) (*models.Participant, error) {
	session, err := s.getSession(ctx, s.db, slug, false)
	if err != nil {
		return nil, err
	}
	return s.getParticipant(ctx, s.db, session.ID, participantID)
}

// ListParticipants returns the participants in join order.
func (s *SQLStore) ListParticipants(ctx context.Context, slug string) ([]*models.Participant, error) {
	session, err := s.getSession(ctx, s.db, slug, false)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.d.rebind(
		"SELECT id, session_id, ordinal, name, joined_at FROM participants WHERE session_id = ? ORDER BY ordinal"),
		session.ID)
	if err != nil {
		return nil, fmt.Errorf("error querying participants: %w", err)
	}
	defer rows.Close()

	participants := []*models.Participant{}
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// ListAllocations returns one allocation per participant in join order, with
// the claims in item order.
func (s *SQLStore) ListAllocations(ctx context.Context, slug string) ([]*models.Allocation, error) {
	session, err := s.getSession(ctx, s.db, slug, false)
	if err != nil {
		return nil, err
	}
	return s.loadAllocations(ctx, s.db, session.ID)
}

// UpsertAllocation replaces the claims of a participant. The session row is
// locked while the claims are validated against everybody else's, so two
// friends cannot claim the same last unit.
func (s *SQLStore) UpsertAllocation(ctx context.Context, slug, participantID string,
	claims []models.ClaimedItem, validate ClaimValidator) (*AllocationUpdate, error) {

	if validate == nil {
		validate = models.ValidateClaim
	}
	var update *AllocationUpdate
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		session, err := s.getSession(ctx, tx, slug, true)
		if err != nil {
			return err
		}
		participant, err := s.getParticipant(ctx, tx, session.ID, participantID)
		if err != nil {
			return err
		}
		items, err := s.loadItems(ctx, tx, session.ID)
		if err != nil {
			return err
		}
		allocations, err := s.loadAllocations(ctx, tx, session.ID)
		if err != nil {
			return err
		}
		wasFull := models.Summarize(items, allocations).FullyClaimed
		valid, err := validate(items, allocations, participantID, claims)
		if err != nil {
			return err
		}
		if valid == nil {
			valid = []models.ClaimedItem{}
		}

		_, err = tx.ExecContext(ctx, s.d.rebind("DELETE FROM claims WHERE participant_id = ?"), participantID)
		if err != nil {
			return fmt.Errorf("error deleting previous claims: %w", err)
		}
		for _, c := range valid {
			_, err := tx.ExecContext(ctx, s.d.rebind(
				"INSERT INTO claims (session_id, participant_id, item_id, item_count) VALUES (?, ?, ?, ?)"),
				session.ID, participantID, c.ItemID, c.Count)
			if err != nil {
				return fmt.Errorf("error inserting claim: %w", err)
			}
		}
		if err := s.touch(ctx, tx, session.ID); err != nil {
			return err
		}
		after, err := s.loadAllocations(ctx, tx, session.ID)
		if err != nil {
			return err
		}
		summary := models.Summarize(items, after)
		update = &AllocationUpdate{
			Allocation: &models.Allocation{
				ParticipantID:   participant.ID,
				ParticipantName: participant.Name,
				Items:           valid,
			},
			Summary:   summary,
			Completed: summary.FullyClaimed && !wasFull,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return update, nil
}

func (s *SQLStore) inTx(ctx context.Context, f func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	if err := f(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func (s *SQLStore) getSession(ctx context.Context, q querier, slug string, lock bool) (*models.Session, error) {
	query := "SELECT " + sessionColumns + " FROM sessions WHERE slug = ?"
	if lock {
		query += s.d.forUpdate
	}
	var createdAt, updatedAt int64
	session := &models.Session{}
	err := q.QueryRowContext(ctx, s.d.rebind(query), slug).
		Scan(&session.ID, &session.Slug, &session.BeemHandle, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session '%s' %w", slug, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying session: %w", err)
	}
	session.CreatedAt = fromMillis(createdAt)
	session.UpdatedAt = fromMillis(updatedAt)
	return session, nil
}

func (s *SQLStore) getParticipant(ctx context.Context, q querier, sessionID, participantID string) (*models.Participant, error) {
	row := q.QueryRowContext(ctx, s.d.rebind(
		"SELECT id, session_id, ordinal, name, joined_at FROM participants WHERE session_id = ? AND id = ?"),
		sessionID, participantID)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("participant '%s' %w", participantID, ErrNotFound)
	}
	return p, err
}

func scanParticipant(row interface{ Scan(dest ...any) error }) (*models.Participant, error) {
	var joinedAt int64
	p := &models.Participant{}
	if err := row.Scan(&p.ID, &p.SessionID, &p.Ordinal, &p.Name, &joinedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("error scanning participant: %w", err)
	}
	p.JoinedAt = fromMillis(joinedAt)
	return p, nil
}

func (s *SQLStore) loadItems(ctx context.Context, q querier, sessionID string) (models.Receipt, error) {
	rows, err := q.QueryContext(ctx, s.d.rebind(
		"SELECT id, name, item_count, price_cents FROM items WHERE session_id = ? ORDER BY position"),
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("error querying items: %w", err)
	}
	defer rows.Close()

	items := models.Receipt{}
	for rows.Next() {
		item := &models.ReceiptItem{}
		if err := rows.Scan(&item.ID, &item.Name, &item.Count, &item.Price); err != nil {
			return nil, fmt.Errorf("error scanning item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *SQLStore) loadAllocations(ctx context.Context, q querier, sessionID string) ([]*models.Allocation, error) {
	rows, err := q.QueryContext(ctx, s.d.rebind(`SELECT p.id, p.name, c.item_id, c.item_count
FROM participants p
LEFT JOIN claims c ON c.participant_id = p.id
LEFT JOIN items i ON i.session_id = c.session_id AND i.id = c.item_id
WHERE p.session_id = ?
ORDER BY p.ordinal, i.position`), sessionID)
	if err != nil {
		return nil, fmt.Errorf("error querying allocations: %w", err)
	}
	defer rows.Close()

	allocations := []*models.Allocation{}
	var cur *models.Allocation
	for rows.Next() {
		var participantID, name string
		var itemID sql.NullString
		var count sql.NullInt64
		if err := rows.Scan(&participantID, &name, &itemID, &count); err != nil {
			return nil, fmt.Errorf("error scanning allocation: %w", err)
		}
		if cur == nil || cur.ParticipantID != participantID {
			cur = &models.Allocation{
				ParticipantID:   participantID,
				ParticipantName: name,
				Items:           []models.ClaimedItem{},
			}
			allocations = append(allocations, cur)
		}
		if itemID.Valid {
			cur.Items = append(cur.Items, models.ClaimedItem{
				ItemID: itemID.String,
				Count:  int(count.Int64),
			})
		}
	}
	return allocations, rows.Err()
}

func (s *SQLStore) insertItems(ctx context.Context, q querier, sessionID string, items models.Receipt) error {
	for i, item := range items {
		_, err := q.ExecContext(ctx, s.d.rebind(
			"INSERT INTO items (session_id, id, position, name, item_count, price_cents) VALUES (?, ?, ?, ?, ?, ?)"),
			sessionID, item.ID, i, item.Name, item.Count, int64(item.Price))
		if err != nil {
			return fmt.Errorf("error inserting item '%s': %w", item.Name, err)
		}
	}
	return nil
}

func (s *SQLStore) saveItems(ctx context.Context, tx *sql.Tx, session *models.Session) error {
	if _, err := tx.ExecContext(ctx, s.d.rebind("DELETE FROM items WHERE session_id = ?"), session.ID); err != nil {
		return fmt.Errorf("error deleting items: %w", err)
	}
	if err := s.insertItems(ctx, tx, session.ID, session.Items); err != nil {
		return err
	}
	if err := s.touch(ctx, tx, session.ID); err != nil {
		return err
	}
	session.UpdatedAt = fromMillis(toMillis(s.now()))
	return nil
}

func (s *SQLStore) touch(ctx context.Context, tx *sql.Tx, sessionID string) error {
	_, err := tx.ExecContext(ctx, s.d.rebind("UPDATE sessions SET updated_at = ? WHERE id = ?"),
		toMillis(s.now()), sessionID)
	if err != nil {
		return fmt.Errorf("error touching session: %w", err)
	}
	return nil
}
