package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ramonehamilton/InkForge/internal/lorcana/cards"
	"github.com/ramonehamilton/InkForge/internal/lorcana/search"
)

// CardRepository provides access to the card corpus.
type CardRepository interface {
	UpsertCard(ctx context.Context, card *cards.CardRecord) error
	GetCard(ctx context.Context, id string) (*cards.CardRecord, error)
	GetCards(ctx context.Context, ids []string) (map[string]*cards.CardRecord, error)
	GetAllCards(ctx context.Context) ([]*cards.CardRecord, error)
	QueryCards(ctx context.Context, filter search.Expr, limit int) ([]*cards.CardRecord, error)
	CountCards(ctx context.Context) (int, error)
}

type cardRepo struct {
	db *sql.DB
}

// NewCardRepository creates a new card repository.
func NewCardRepository(db *sql.DB) CardRepository {
	return &cardRepo{db: db}
}

const cardColumns = `c.id, c.name, c.version, c.cost, c.inkable, c.rarity, c.set_code,
	c.body_text, c.flavor_text, c.image_url, c.external_url`

// UpsertCard inserts or replaces a card with its inks and legalities.
func (r *cardRepo) UpsertCard(ctx context.Context, card *cards.CardRecord) error {
	if card.ID == "" {
		return fmt.Errorf("card id is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO cards (id, name, version, cost, inkable, rarity, set_code,
			body_text, flavor_text, image_url, external_url, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			version = excluded.version,
			cost = excluded.cost,
			inkable = excluded.inkable,
			rarity = excluded.rarity,
			set_code = excluded.set_code,
			body_text = excluded.body_text,
			flavor_text = excluded.flavor_text,
			image_url = excluded.image_url,
			external_url = excluded.external_url,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err = tx.ExecContext(ctx, query,
		card.ID, card.Name, card.Version, card.Cost, nullableBool(card.Inkable),
		card.Rarity, card.SetCode, card.BodyText, card.FlavorText, card.ImageURL, card.ExternalURL,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert card: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM card_colors WHERE card_id = ?", card.ID); err != nil {
		return fmt.Errorf("failed to clear card colors: %w", err)
	}
	for i, ink := range card.Colors {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO card_colors (card_id, color, position) VALUES (?, ?, ?)",
			card.ID, string(ink), i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert card color: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM card_legalities WHERE card_id = ?", card.ID); err != nil {
		return fmt.Errorf("failed to clear card legalities: %w", err)
	}
	for format, l := range card.Legality {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO card_legalities (card_id, format, allowed, valid_from, valid_until) VALUES (?, ?, ?, ?, ?)",
			card.ID, string(format), nullableBool(l.Allowed), nullableTime(l.ValidFrom), nullableTime(l.ValidUntil),
		)
		if err != nil {
			return fmt.Errorf("failed to insert card legality: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit card: %w", err)
	}
	return nil
}

// GetCard retrieves a card by id. Returns nil if not found.
func (r *cardRepo) GetCard(ctx context.Context, id string) (*cards.CardRecord, error) {
	found, err := r.GetCards(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	return found[id], nil
}

// GetCards retrieves cards by id. Missing ids are absent from the result.
func (r *cardRepo) GetCards(ctx context.Context, ids []string) (map[string]*cards.CardRecord, error) {
	result := make(map[string]*cards.CardRecord, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders, args := inClause(ids)
	query := fmt.Sprintf(`SELECT %s FROM cards c WHERE c.id IN (%s)`, cardColumns, placeholders)

	list, err := r.queryCards(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	for _, c := range list {
		result[c.ID] = c
	}
	return result, nil
}

// GetAllCards retrieves the whole corpus ordered by id.
func (r *cardRepo) GetAllCards(ctx context.Context) ([]*cards.CardRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM cards c ORDER BY c.id`, cardColumns)
	return r.queryCards(ctx, query)
}

// QueryCards lists cards matching the filter expression, ordered by cost then
// id. A limit of 0 returns every match.
func (r *cardRepo) QueryCards(ctx context.Context, filter search.Expr, limit int) ([]*cards.CardRecord, error) {
	where, args, err := search.CompileSQL(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to compile filter: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM cards c WHERE %s ORDER BY c.cost, c.id`, cardColumns, where)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	return r.queryCards(ctx, query, args...)
}

// CountCards returns the number of cards in the corpus.
func (r *cardRepo) CountCards(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cards").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return count, nil
}

func (r *cardRepo) queryCards(ctx context.Context, query string, args ...interface{}) ([]*cards.CardRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var list []*cards.CardRecord
	byID := make(map[string]*cards.CardRecord)
	for rows.Next() {
		var c cards.CardRecord
		var inkable sql.NullBool
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Version, &c.Cost, &inkable, &c.Rarity, &c.SetCode,
			&c.BodyText, &c.FlavorText, &c.ImageURL, &c.ExternalURL,
		); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		c.Inkable = triState(inkable)
		c.Legality = make(map[cards.Format]cards.FormatLegality)
		list = append(list, &c)
		byID[c.ID] = &c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cards: %w", err)
	}
	if len(list) == 0 {
		return list, nil
	}

	if err := r.loadColors(ctx, byID); err != nil {
		return nil, err
	}
	if err := r.loadLegalities(ctx, byID); err != nil {
		return nil, err
	}

	return list, nil
}

func (r *cardRepo) loadColors(ctx context.Context, byID map[string]*cards.CardRecord) error {
	placeholders, args := inClause(keys(byID))
	query := fmt.Sprintf(`
		SELECT card_id, color FROM card_colors
		WHERE card_id IN (%s)
		ORDER BY card_id, position
	`, placeholders)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query card colors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var cardID, color string
		if err := rows.Scan(&cardID, &color); err != nil {
			return fmt.Errorf("failed to scan card color: %w", err)
		}
		if c, ok := byID[cardID]; ok {
			c.Colors = append(c.Colors, cards.Ink(color))
		}
	}
	return rows.Err()
}

func (r *cardRepo) loadLegalities(ctx context.Context, byID map[string]*cards.CardRecord) error {
	placeholders, args := inClause(keys(byID))
	query := fmt.Sprintf(`
		SELECT card_id, format, allowed, valid_from, valid_until FROM card_legalities
		WHERE card_id IN (%s)
	`, placeholders)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query card legalities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var cardID, format string
		var allowed sql.NullBool
		var from, until sql.NullString
		if err := rows.Scan(&cardID, &format, &allowed, &from, &until); err != nil {
			return fmt.Errorf("failed to scan card legality: %w", err)
		}

		l := cards.FormatLegality{Allowed: triState(allowed)}
		if l.ValidFrom, err = parseTime(from); err != nil {
			return fmt.Errorf("card %s: invalid valid_from: %w", cardID, err)
		}
		if l.ValidUntil, err = parseTime(until); err != nil {
			return fmt.Errorf("card %s: invalid valid_until: %w", cardID, err)
		}

		if c, ok := byID[cardID]; ok {
			c.Legality[cards.Format(format)] = l
		}
	}
	return rows.Err()
}

func inClause(ids []string) (string, []interface{}) {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}

func keys(m map[string]*cards.CardRecord) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func nullableBool(t cards.TriState) interface{} {
	if p := t.Ptr(); p != nil {
		return *p
	}
	return nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func triState(b sql.NullBool) cards.TriState {
	if !b.Valid {
		return cards.Unknown
	}
	return cards.FromBool(b.Bool)
}

func parseTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
