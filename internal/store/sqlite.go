package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	user_id        TEXT PRIMARY KEY,
	email_provider TEXT NOT NULL DEFAULT '',
	phone_number   TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS mail_links (
	phone_number  TEXT PRIMARY KEY,
	email         TEXT NOT NULL DEFAULT '',
	access_token  TEXT NOT NULL DEFAULT '',
	token_expiry  TIMESTAMP,
	refresh_token TEXT NOT NULL DEFAULT '',
	updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteStore implements AccountStore and MailLinkStore on a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (and creates if needed) the SQLite database at path and
// initializes the schema.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; serializing through a single
	// connection avoids SQLITE_BUSY under concurrent invocations.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetAccount returns the account for the platform user id, or ErrNotFound.
func (s *SQLiteStore) GetAccount(ctx context.Context, userID string) (*AccountRecord, error) {
	record := &AccountRecord{}
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, email_provider, phone_number FROM accounts WHERE user_id = ?`,
		userID,
	).Scan(&record.UserID, &record.EmailProvider, &record.PhoneNumber)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return record, nil
}

// CreateAccount inserts a bare account record for the user id.
func (s *SQLiteStore) CreateAccount(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (user_id) VALUES (?)`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// SetEmailProvider updates the email provider field of an existing account.
func (s *SQLiteStore) SetEmailProvider(ctx context.Context, userID, provider string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET email_provider = ? WHERE user_id = ?`,
		provider, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set email provider: %w", err)
	}
	return requireRow(res)
}

// SetPhoneNumber updates the phone number field of an existing account.
func (s *SQLiteStore) SetPhoneNumber(ctx context.Context, userID, phone string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET phone_number = ? WHERE user_id = ?`,
		phone, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set phone number: %w", err)
	}
	return requireRow(res)
}

// GetMailLink returns the mail link for the phone number, or ErrNotFound.
func (s *SQLiteStore) GetMailLink(ctx context.Context, phone string) (*MailLinkRecord, error) {
	var expiry sql.NullTime

	record := &MailLinkRecord{}
	err := s.db.QueryRowContext(ctx,
		`SELECT phone_number, email, access_token, token_expiry, refresh_token FROM mail_links WHERE phone_number = ?`,
		phone,
	).Scan(&record.PhoneNumber, &record.Email, &record.AccessToken, &expiry, &record.RefreshToken)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mail link: %w", err)
	}
	if expiry.Valid {
		record.TokenExpiry = expiry.Time
	}
	return record, nil
}

// UpsertMailLink creates or replaces the mail link for its phone number.
func (s *SQLiteStore) UpsertMailLink(ctx context.Context, link *MailLinkRecord) error {
	var expiry interface{}
	if !link.TokenExpiry.IsZero() {
		expiry = link.TokenExpiry
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mail_links (phone_number, email, access_token, token_expiry, refresh_token, updated_at)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(phone_number) DO UPDATE SET
			email = excluded.email,
			access_token = excluded.access_token,
			token_expiry = excluded.token_expiry,
			refresh_token = excluded.refresh_token,
			updated_at = CURRENT_TIMESTAMP`,
		link.PhoneNumber, link.Email, link.AccessToken, expiry, link.RefreshToken,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert mail link: %w", err)
	}
	return nil
}

// SetAccessToken updates the access token and expiry of an existing link.
func (s *SQLiteStore) SetAccessToken(ctx context.Context, phone, token string, expiry time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE mail_links SET access_token = ?, token_expiry = ?, updated_at = CURRENT_TIMESTAMP WHERE phone_number = ?`,
		token, expiry, phone,
	)
	if err != nil {
		return fmt.Errorf("failed to set access token: %w", err)
	}
	return requireRow(res)
}

// ListAccounts returns all account records, ordered by creation time.
// Used by the accounts CLI command for operational inspection.
func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]*AccountRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, email_provider, phone_number FROM accounts ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*AccountRecord
	for rows.Next() {
		record := &AccountRecord{}
		if err := rows.Scan(&record.UserID, &record.EmailProvider, &record.PhoneNumber); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

// requireRow converts a zero-row update into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
