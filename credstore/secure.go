package credstore

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackfish212/remotefs/types"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"

	_ "modernc.org/sqlite"
)

var _ Store = (*SecureStore)(nil)

const (
	saltSize  = 16
	nonceSize = 24
)

// ErrSealed is returned when stored credentials cannot be opened with the
// configured passphrase.
var ErrSealed = errors.New("credstore: cannot decrypt stored credentials")

// SecureStore keeps credentials in a SQLite database, sealed with a key
// derived from a passphrase.
type SecureStore struct {
	db  *sql.DB
	key [32]byte
	id  string
}

// SecureOption configures a SecureStore.
type SecureOption func(*SecureStore)

// WithSecureKey overrides the identifier credentials are stored under.
func WithSecureKey(id string) SecureOption {
	return func(s *SecureStore) { s.id = id }
}

// OpenSecureStore opens (or creates) the database at dbPath.
func OpenSecureStore(dbPath string, passphrase []byte, opts ...SecureOption) (*SecureStore, error) {
	if len(passphrase) == 0 {
		return nil, errors.New("credstore: empty passphrase")
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	s := &SecureStore{db: db, id: DefaultKey}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.initDB(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	salt, err := s.salt()
	if err != nil {
		db.Close()
		return nil, err
	}
	key, err := scrypt.Key(passphrase, salt, 1<<15, 8, 1, len(s.key))
	if err != nil {
		db.Close()
		return nil, err
	}
	copy(s.key[:], key)
	return s, nil
}

func (s *SecureStore) initDB() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		name TEXT PRIMARY KEY,
		value BLOB NOT NULL
	);
	CREATE TABLE IF NOT EXISTS secrets (
		id TEXT PRIMARY KEY,
		nonce BLOB NOT NULL,
		sealed BLOB NOT NULL,
		updated INTEGER NOT NULL DEFAULT 0
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// salt returns the per-database salt, creating it on first use.
func (s *SecureStore) salt() ([]byte, error) {
	var salt []byte
	err := s.db.QueryRow(`SELECT value FROM meta WHERE name = 'salt'`).Scan(&salt)
	if err == nil {
		return salt, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	salt = make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO meta (name, value) VALUES ('salt', ?)`, salt); err != nil {
		return nil, err
	}
	// Another process may have won the insert.
	err = s.db.QueryRow(`SELECT value FROM meta WHERE name = 'salt'`).Scan(&salt)
	return salt, err
}

func (s *SecureStore) Close() error { return s.db.Close() }

func (s *SecureStore) Name() string { return "secure" }

func (s *SecureStore) Load(ctx context.Context) (types.Credentials, bool, error) {
	var nonce, sealed []byte
	err := s.db.QueryRowContext(ctx, `SELECT nonce, sealed FROM secrets WHERE id = ?`, s.id).Scan(&nonce, &sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Credentials{}, false, nil
	}
	if err != nil {
		return types.Credentials{}, false, err
	}
	if len(nonce) != nonceSize {
		return types.Credentials{}, false, ErrSealed
	}
	var n [nonceSize]byte
	copy(n[:], nonce)
	plain, ok := secretbox.Open(nil, sealed, &n, &s.key)
	if !ok {
		return types.Credentials{}, false, ErrSealed
	}
	var c types.Credentials
	if err := json.Unmarshal(plain, &c); err != nil {
		return types.Credentials{}, false, fmt.Errorf("credstore: decoding credentials: %w", err)
	}
	return c, true, nil
}

func (s *SecureStore) Save(ctx context.Context, c types.Credentials) error {
	plain, err := json.Marshal(c)
	if err != nil {
		return err
	}
	var n [nonceSize]byte
	if _, err := rand.Read(n[:]); err != nil {
		return err
	}
	sealed := secretbox.Seal(nil, plain, &n, &s.key)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO secrets (id, nonce, sealed, updated) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET nonce = excluded.nonce, sealed = excluded.sealed, updated = excluded.updated`,
		s.id, n[:], sealed, time.Now().Unix())
	return err
}

func (s *SecureStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM secrets WHERE id = ?`, s.id)
	return err
}

// LoadOrCreateKeyFile returns the passphrase stored at path, generating a
// random one (mode 0600) when the file does not exist.
func LoadOrCreateKeyFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		key := strings.TrimSpace(string(data))
		if key == "" {
			return nil, fmt.Errorf("credstore: key file %s is empty", path)
		}
		return []byte(key), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	key := hex.EncodeToString(raw)
	if err := os.WriteFile(path, []byte(key+"\n"), 0o600); err != nil {
		return nil, err
	}
	return []byte(key), nil
}
