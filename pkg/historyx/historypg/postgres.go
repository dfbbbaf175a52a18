package historypg

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Abraxas-365/tidal/pkg/historyx"
	"github.com/Abraxas-365/tidal/pkg/kernel"
)

// PostgresStore is the PostgreSQL implementation of historyx.Store. Entries
// are stored as a JSONB column; the conversation row carries the metadata.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a store over db.
func NewPostgresStore(db *sqlx.DB) historyx.Store {
	return &PostgresStore{db: db}
}

type conversationRow struct {
	ID        string    `db:"id"`
	SessionID string    `db:"session_id"`
	Title     string    `db:"title"`
	Entries   []byte    `db:"entries"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func toRow(conv *historyx.Conversation) (conversationRow, error) {
	entries, err := json.Marshal(conv.Entries)
	if err != nil {
		return conversationRow{}, pgErrors.NewWithCause(ErrMarshal, err).
			WithDetail("conversation_id", conv.ID)
	}
	return conversationRow{
		ID:        conv.ID,
		SessionID: conv.SessionID.String(),
		Title:     conv.Title,
		Entries:   entries,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
	}, nil
}

func toDomain(row conversationRow) (*historyx.Conversation, error) {
	conv := &historyx.Conversation{
		ID:        row.ID,
		SessionID: kernel.NewSessionID(row.SessionID),
		Title:     row.Title,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if len(row.Entries) > 0 {
		if err := json.Unmarshal(row.Entries, &conv.Entries); err != nil {
			return nil, pgErrors.NewWithCause(ErrUnmarshal, err).
				WithDetail("conversation_id", row.ID)
		}
	}
	return conv, nil
}

func (s *PostgresStore) Save(ctx context.Context, conv *historyx.Conversation) error {
	row, err := toRow(conv)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO conversations (id, session_id, title, entries, created_at, updated_at)
		VALUES (:id, :session_id, :title, :entries, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			entries = EXCLUDED.entries,
			updated_at = EXCLUDED.updated_at`

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation on session_id
			return pgErrors.NewWithCause(ErrConflict, err).
				WithDetail("reason", "session already has a conversation")
		}
		return pgErrors.NewWithCause(ErrQuery, err).
			WithDetail("conversation_id", conv.ID)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*historyx.Conversation, error) {
	var row conversationRow
	query := `SELECT * FROM conversations WHERE id = $1`
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, historyx.NotFound(id)
		}
		return nil, pgErrors.NewWithCause(ErrQuery, err).
			WithDetail("conversation_id", id)
	}
	return toDomain(row)
}

func (s *PostgresStore) GetBySession(ctx context.Context, sessionID kernel.SessionID) (*historyx.Conversation, error) {
	var row conversationRow
	query := `SELECT * FROM conversations WHERE session_id = $1 ORDER BY updated_at DESC LIMIT 1`
	if err := s.db.GetContext(ctx, &row, query, sessionID.String()); err != nil {
		if err == sql.ErrNoRows {
			return nil, historyx.NotFound(sessionID.String())
		}
		return nil, pgErrors.NewWithCause(ErrQuery, err).
			WithDetail("session_id", sessionID.String())
	}
	return toDomain(row)
}

func (s *PostgresStore) List(ctx context.Context, opts kernel.PaginationOptions) (kernel.Paginated[historyx.Conversation], error) {
	page, size := opts.Page, opts.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM conversations`); err != nil {
		return kernel.Paginated[historyx.Conversation]{}, pgErrors.NewWithCause(ErrQuery, err)
	}

	var rows []conversationRow
	query := `SELECT * FROM conversations ORDER BY updated_at DESC LIMIT $1 OFFSET $2`
	if err := s.db.SelectContext(ctx, &rows, query, size, (page-1)*size); err != nil {
		return kernel.Paginated[historyx.Conversation]{}, pgErrors.NewWithCause(ErrQuery, err)
	}

	convs := make([]historyx.Conversation, 0, len(rows))
	for _, row := range rows {
		conv, err := toDomain(row)
		if err != nil {
			return kernel.Paginated[historyx.Conversation]{}, err
		}
		convs = append(convs, *conv)
	}

	return kernel.NewPaginated(convs, page, size, total), nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return pgErrors.NewWithCause(ErrQuery, err).
			WithDetail("conversation_id", id)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return pgErrors.NewWithCause(ErrQuery, err)
	}
	if affected == 0 {
		return historyx.NotFound(id)
	}
	return nil
}
