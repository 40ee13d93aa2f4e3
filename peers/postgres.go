package peers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/jonahkesoyan/bittensor/crypto"
)

// PostgresStore implements Store with PostgreSQL persistence.
type PostgresStore struct {
	db *sql.DB
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// ConnectionString returns the PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// NewPostgresStore opens a PostgreSQL-backed store and runs migrations.
func NewPostgresStore(config *PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		hotkey VARCHAR(128) PRIMARY KEY,
		coldkey VARCHAR(128) NOT NULL,
		version INTEGER NOT NULL,
		ip VARCHAR(64) NOT NULL,
		port INTEGER NOT NULL,
		ip_type INTEGER NOT NULL,
		protocol INTEGER NOT NULL,
		fast_api_port INTEGER NOT NULL,
		external_fast_api_port INTEGER NOT NULL,
		signer_public_key VARCHAR(128) NOT NULL,
		signature BYTEA NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_updated ON nodes(updated_at);
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Save upserts one announcement keyed by its record's hotkey.
func (s *PostgresStore) Save(ann *SignedAnnouncement) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	node := ann.Node

	query := `
	INSERT INTO nodes
		(hotkey, coldkey, version, ip, port, ip_type, protocol, fast_api_port, external_fast_api_port, signer_public_key, signature, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
	ON CONFLICT (hotkey) DO UPDATE SET
		coldkey = EXCLUDED.coldkey,
		version = EXCLUDED.version,
		ip = EXCLUDED.ip,
		port = EXCLUDED.port,
		ip_type = EXCLUDED.ip_type,
		protocol = EXCLUDED.protocol,
		fast_api_port = EXCLUDED.fast_api_port,
		external_fast_api_port = EXCLUDED.external_fast_api_port,
		signer_public_key = EXCLUDED.signer_public_key,
		signature = EXCLUDED.signature,
		updated_at = NOW()
	`

	_, err := s.db.ExecContext(ctx, query,
		node.Hotkey,
		node.Coldkey,
		node.Version,
		node.IP,
		node.Port,
		node.IPType,
		node.Protocol,
		node.FastAPIPort,
		node.ExternalFastAPIPort,
		ann.PublicKey.String(),
		ann.Signature.Bytes(),
	)
	return err
}

// Load returns the announcement for one hotkey.
func (s *PostgresStore) Load(hotkey string) (*SignedAnnouncement, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `
		SELECT hotkey, coldkey, version, ip, port, ip_type, protocol, fast_api_port, external_fast_api_port, signer_public_key, signature
		FROM nodes
		WHERE hotkey = $1
	`, hotkey)

	ann, err := scanAnnouncement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return ann, err
}

// LoadAll returns every stored announcement, ordered by hotkey.
func (s *PostgresStore) LoadAll() ([]*SignedAnnouncement, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT hotkey, coldkey, version, ip, port, ip_type, protocol, fast_api_port, external_fast_api_port, signer_public_key, signature
		FROM nodes
		ORDER BY hotkey
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*SignedAnnouncement
	for rows.Next() {
		ann, err := scanAnnouncement(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		result = append(result, ann)
	}
	return result, rows.Err()
}

// Delete removes the record for one hotkey.
func (s *PostgresStore) Delete(hotkey string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, "DELETE FROM nodes WHERE hotkey = $1", hotkey)
	return err
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnnouncement(row rowScanner) (*SignedAnnouncement, error) {
	var (
		node         NodeInfo
		signerPubKey string
		signature    []byte
	)

	err := row.Scan(
		&node.Hotkey,
		&node.Coldkey,
		&node.Version,
		&node.IP,
		&node.Port,
		&node.IPType,
		&node.Protocol,
		&node.FastAPIPort,
		&node.ExternalFastAPIPort,
		&signerPubKey,
		&signature,
	)
	if err != nil {
		return nil, err
	}

	signerKey, err := crypto.NewPublicKeyFromString(signerPubKey)
	if err != nil {
		return nil, fmt.Errorf("stored signer key invalid: %w", err)
	}

	return &SignedAnnouncement{
		PublicKey: signerKey,
		Signature: crypto.NewSignature(signature),
		Node:      &node,
	}, nil
}
