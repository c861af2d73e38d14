package knowledge

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // pgx5:// migrate driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// searchTimeout bounds a single vector search query.
const searchTimeout = 10 * time.Second

// PostgresConfig holds the local backend's connection settings.
type PostgresConfig struct {
	ConnString string // pgx DSN
	MigrateURL string // pgx5:// URL for golang-migrate
}

// PostgresStore is the local knowledge backend: a pgvector index with
// cosine-similarity metric over 768-dimension vectors and auto-assigned
// integer ids, in a single methodologies table created lazily on first use.
//
// Connection setup, schema migration, and the embedder readiness check all
// happen once, on the first Store or Search call, behind a sync.Once so
// concurrent first use cannot create the table twice. The outcome is cached
// for the process lifetime, failures included: a database or embedder
// outage at first use requires a process restart once the dependency is
// back.
type PostgresStore struct {
	cfg      PostgresConfig
	embedder Embedder
	logger   *slog.Logger

	initOnce sync.Once
	initErr  error
	pool     *pgxpool.Pool
}

// NewPostgres creates the local backend. No connection is opened here.
func NewPostgres(cfg PostgresConfig, embedder Embedder, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{
		cfg:      cfg,
		embedder: embedder,
		logger:   logger,
	}
}

// init prepares the store on first use: embedder readiness, schema
// migration, then the connection pool with pgvector type support.
func (s *PostgresStore) init(ctx context.Context) error {
	s.initOnce.Do(func() {
		if err := s.embedder.Ready(ctx); err != nil {
			s.initErr = err
			return
		}

		if err := s.migrate(); err != nil {
			s.initErr = fmt.Errorf("migrating schema: %w", err)
			return
		}

		poolCfg, err := pgxpool.ParseConfig(s.cfg.ConnString)
		if err != nil {
			s.initErr = fmt.Errorf("parsing connection string: %w", err)
			return
		}
		poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			return pgxvector.RegisterTypes(ctx, conn)
		}

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			s.initErr = fmt.Errorf("creating connection pool: %w", err)
			return
		}

		s.pool = pool
		s.logger.Debug("local knowledge store ready")
	})
	return s.initErr
}

// migrate applies the embedded schema migrations.
func (s *PostgresStore) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, s.cfg.MigrateURL)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Store decodes the raw payload, embeds each methodology's content, and
// inserts it. The first item-level failure aborts the remainder; rows
// inserted before the failure stay in place.
func (s *PostgresStore) Store(ctx context.Context, raw []byte) (StoreResult, error) {
	records, err := DecodeMethodologies(raw)
	if err != nil {
		return StoreResult{}, err
	}

	if err := s.init(ctx); err != nil {
		return StoreResult{}, err
	}

	var result StoreResult
	for _, r := range records {
		vec, err := s.embedder.Embed(ctx, r.Content)
		if err != nil {
			return result, fmt.Errorf("embedding %q: %w", r.Title, err)
		}
		if len(vec) != s.embedder.Dim() {
			return result, fmt.Errorf("embedding dimension %d does not match collection dimension %d",
				len(vec), s.embedder.Dim())
		}

		var id int64
		err = s.pool.QueryRow(ctx,
			`INSERT INTO methodologies (title, content, embedding) VALUES ($1, $2, $3) RETURNING id`,
			r.Title, r.Content, pgvector.NewVector(vec),
		).Scan(&id)
		if err != nil {
			return result, fmt.Errorf("storing %q: %w", r.Title, err)
		}

		result.Items = append(result.Items, ItemStatus{
			Title:  r.Title,
			ID:     strconv.FormatInt(id, 10),
			Status: "success",
		})
		result.StoredCount++
		s.logger.Debug("stored methodology", "id", id, "title", r.Title)
	}

	return result, nil
}

// Search embeds the query and returns up to topK methodologies ordered by
// decreasing cosine similarity.
func (s *PostgresStore) Search(ctx context.Context, query string, topK int) ([]Methodology, error) {
	if topK < 1 {
		topK = 1
	}

	if err := s.init(ctx); err != nil {
		return nil, err
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	rows, err := s.pool.Query(queryCtx,
		`SELECT title, content, 1 - (embedding <=> $1) AS score
		   FROM methodologies
		  ORDER BY embedding <=> $1
		  LIMIT $2`,
		pgvector.NewVector(vec), topK,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	defer rows.Close()

	var results []Methodology
	for rows.Next() {
		var m Methodology
		var score float64
		if err := rows.Scan(&m.Title, &m.Content, &score); err != nil {
			return nil, fmt.Errorf("%w: scanning row: %v", ErrRetrieval, err)
		}
		m.Score = float32(score)
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	return results, nil
}

// Backend identifies this store in result bundles.
func (*PostgresStore) Backend() string {
	return "local (PostgreSQL + pgvector)"
}

// Close releases the connection pool if it was ever opened.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
