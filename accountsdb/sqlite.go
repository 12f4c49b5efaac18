package accountsdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"slices"
	"strings"

	"github.com/luca-patrignani/mental-lottery/chain"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS accounts (
	pubkey     TEXT PRIMARY KEY,
	lamports   INTEGER NOT NULL,
	owner      TEXT NOT NULL,
	executable INTEGER NOT NULL DEFAULT 0,
	data       BLOB NOT NULL
)`

// SQLiteStore persists accounts in a single SQLite table.
type SQLiteStore struct {
	sqlDB *sql.DB
}

// OpenSQLite opens (creating if needed) the account database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create accounts table: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, key chain.Pubkey) (Account, bool, error) {
	var (
		lamports   int64
		owner      string
		executable bool
		data       []byte
	)
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT lamports, owner, executable, data FROM accounts WHERE pubkey = ?`,
		key.String(),
	)
	if err := row.Scan(&lamports, &owner, &executable, &data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, false, nil
		}
		return Account{}, false, fmt.Errorf("get account %s: %w", key, err)
	}
	ownerKey, err := chain.ParsePubkey(owner)
	if err != nil {
		return Account{}, false, fmt.Errorf("account %s has a corrupt owner: %w", key, err)
	}
	a := Account{
		Lamports:   uint64(lamports),
		Data:       data,
		Owner:      ownerKey,
		Executable: executable,
	}
	return a.Clone(), true, nil
}

func (s *SQLiteStore) Apply(ctx context.Context, updates map[chain.Pubkey]*Account) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for key, a := range updates {
		if a == nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE pubkey = ?`, key.String()); err != nil {
				return fmt.Errorf("delete account %s: %w", key, err)
			}
			continue
		}
		if a.Lamports > math.MaxInt64 {
			return fmt.Errorf("account %s: balance %d does not fit the store", key, a.Lamports)
		}
		data := a.Data
		if data == nil {
			data = []byte{}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (pubkey, lamports, owner, executable, data)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(pubkey) DO UPDATE SET
			   lamports = excluded.lamports,
			   owner = excluded.owner,
			   executable = excluded.executable,
			   data = excluded.data`,
			key.String(), int64(a.Lamports), a.Owner.String(), a.Executable, data,
		)
		if err != nil {
			return fmt.Errorf("put account %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Keys(ctx context.Context) ([]chain.Pubkey, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT pubkey FROM accounts`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var keys []chain.Pubkey
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan account key: %w", err)
		}
		key, err := chain.ParsePubkey(text)
		if err != nil {
			return nil, fmt.Errorf("corrupt account key %q: %w", text, err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	slices.SortFunc(keys, chain.ComparePubkeys)
	return keys, nil
}
