package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mailpush/pushd/internal/account"
)

type accountRow struct {
	UUID           string `db:"uuid"`
	Name           string `db:"name"`
	Email          string `db:"email"`
	FolderPushMode string `db:"folder_push_mode"`
	ServerType     string `db:"server_type"`
	Host           string `db:"host"`
	Port           int    `db:"port"`
	Security       string `db:"security"`
	Username       string `db:"username"`
	Folders        string `db:"folders"`
}

const accountColumns = `uuid, name, email, folder_push_mode, server_type, host, port, security, username, folders`

func (r accountRow) toAccount() (account.Account, error) {
	var folders []string
	if r.Folders != "" {
		if err := json.Unmarshal([]byte(r.Folders), &folders); err != nil {
			return account.Account{}, fmt.Errorf("failed to decode folders of account %s: %w", r.UUID, err)
		}
	}
	return account.Account{
		UUID:           r.UUID,
		Name:           r.Name,
		Email:          r.Email,
		FolderPushMode: account.FolderMode(r.FolderPushMode),
		Incoming: account.ServerSettings{
			Type:     r.ServerType,
			Host:     r.Host,
			Port:     r.Port,
			Security: r.Security,
			Username: r.Username,
			Folders:  folders,
		},
	}, nil
}

// ListAccounts returns every stored account.
func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]account.Account, error) {
	var rows []accountRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT "+accountColumns+" FROM accounts ORDER BY created_at, uuid"); err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}

	accounts := make([]account.Account, 0, len(rows))
	for _, r := range rows {
		acc, err := r.toAccount()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

// GetAccount returns a single account or account.ErrAccountNotFound.
func (s *SQLiteStore) GetAccount(ctx context.Context, uuid string) (*account.Account, error) {
	var r accountRow
	err := s.db.GetContext(ctx, &r, "SELECT "+accountColumns+" FROM accounts WHERE uuid = ?", uuid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, account.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account %s: %w", uuid, err)
	}
	acc, err := r.toAccount()
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// UpsertAccount inserts or replaces an account, keeping its creation time.
func (s *SQLiteStore) UpsertAccount(ctx context.Context, acc account.Account) error {
	folders := acc.Incoming.Folders
	if folders == nil {
		folders = []string{}
	}
	encoded, err := json.Marshal(folders)
	if err != nil {
		return fmt.Errorf("failed to encode folders: %w", err)
	}

	row := accountRow{
		UUID:           acc.UUID,
		Name:           acc.Name,
		Email:          acc.Email,
		FolderPushMode: string(acc.FolderPushMode),
		ServerType:     acc.Incoming.Type,
		Host:           acc.Incoming.Host,
		Port:           acc.Incoming.Port,
		Security:       acc.Incoming.Security,
		Username:       acc.Incoming.Username,
		Folders:        string(encoded),
	}

	_, err = s.db.NamedExecContext(ctx, `
INSERT INTO accounts (`+accountColumns+`)
VALUES (:uuid, :name, :email, :folder_push_mode, :server_type, :host, :port, :security, :username, :folders)
ON CONFLICT(uuid) DO UPDATE SET
	name = excluded.name,
	email = excluded.email,
	folder_push_mode = excluded.folder_push_mode,
	server_type = excluded.server_type,
	host = excluded.host,
	port = excluded.port,
	security = excluded.security,
	username = excluded.username,
	folders = excluded.folders,
	updated_at = CURRENT_TIMESTAMP`, row)
	if err != nil {
		return fmt.Errorf("failed to upsert account %s: %w", acc.UUID, err)
	}
	return nil
}

// DeleteAccount removes an account. Deleting an unknown account returns account.ErrAccountNotFound.
func (s *SQLiteStore) DeleteAccount(ctx context.Context, uuid string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM accounts WHERE uuid = ?", uuid)
	if err != nil {
		return fmt.Errorf("failed to delete account %s: %w", uuid, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete account %s: %w", uuid, err)
	}
	if n == 0 {
		return account.ErrAccountNotFound
	}
	return nil
}
