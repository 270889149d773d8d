package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"vibemint/internal/domain"
	"vibemint/internal/storage"
)

// CreationStore implements storage.CreationStore using PostgreSQL.
type CreationStore struct {
	pool *Pool
}

// NewCreationStore creates a new CreationStore.
func NewCreationStore(pool *Pool) *CreationStore {
	return &CreationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CreationStore = (*CreationStore)(nil)

// Insert adds a new creation record. Returns ErrDuplicateKey if session_id exists.
func (s *CreationStore) Insert(ctx context.Context, r *domain.CreationRecord) error {
	if r == nil || r.SessionID == "" || r.WalletAddress == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO creations (
			session_id, wallet_address, coin_name, coin_symbol, content_uri,
			tx_hash, source_coin_ids, prompt, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		r.SessionID,
		r.WalletAddress,
		r.CoinName,
		r.CoinSymbol,
		r.ContentURI,
		r.TxHash,
		r.SourceCoinIDs,
		r.Prompt,
		r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert creation: %w", err)
	}
	return nil
}

// GetBySessionID retrieves a creation by its session ID. Returns ErrNotFound if not exists.
func (s *CreationStore) GetBySessionID(ctx context.Context, sessionID string) (*domain.CreationRecord, error) {
	query := `
		SELECT session_id, wallet_address, coin_name, coin_symbol, content_uri,
		       tx_hash, source_coin_ids, prompt, created_at
		FROM creations
		WHERE session_id = $1
	`

	row := s.pool.QueryRow(ctx, query, sessionID)
	r, err := scanCreation(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get creation by session id: %w", err)
	}
	return r, nil
}

// GetByWallet retrieves all creations for a wallet, ordered by created_at ASC.
func (s *CreationStore) GetByWallet(ctx context.Context, walletAddress string) ([]*domain.CreationRecord, error) {
	query := `
		SELECT session_id, wallet_address, coin_name, coin_symbol, content_uri,
		       tx_hash, source_coin_ids, prompt, created_at
		FROM creations
		WHERE wallet_address = $1
		ORDER BY created_at ASC, session_id ASC
	`

	rows, err := s.pool.Query(ctx, query, walletAddress)
	if err != nil {
		return nil, fmt.Errorf("get creations by wallet: %w", err)
	}
	defer rows.Close()

	return scanCreations(rows)
}

// scanCreation scans a single row into a CreationRecord.
func scanCreation(row pgx.Row) (*domain.CreationRecord, error) {
	var r domain.CreationRecord

	err := row.Scan(
		&r.SessionID,
		&r.WalletAddress,
		&r.CoinName,
		&r.CoinSymbol,
		&r.ContentURI,
		&r.TxHash,
		&r.SourceCoinIDs,
		&r.Prompt,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// scanCreations scans multiple rows into a slice of CreationRecord.
func scanCreations(rows pgx.Rows) ([]*domain.CreationRecord, error) {
	var records []*domain.CreationRecord

	for rows.Next() {
		var r domain.CreationRecord

		err := rows.Scan(
			&r.SessionID,
			&r.WalletAddress,
			&r.CoinName,
			&r.CoinSymbol,
			&r.ContentURI,
			&r.TxHash,
			&r.SourceCoinIDs,
			&r.Prompt,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan creation row: %w", err)
		}

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate creation rows: %w", err)
	}

	return records, nil
}
