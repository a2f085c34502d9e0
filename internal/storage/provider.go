package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/redis/go-redis/v9"

	"tinydoc/internal/record"
)

// Backend kinds accepted by Open.
const (
	KindMemory = "memory"
	KindFile   = "file"
	KindSQLite = "sqlite"
	KindRedis  = "redis"
)

// Kinds lists every backend kind Open understands.
var Kinds = []string{KindFile, KindSQLite, KindRedis, KindMemory}

type Config struct {
	Kind          string
	DataDir       string // file
	DBPath        string // sqlite
	RedisAddr     string // redis
	RedisPassword string
	RedisPrefix   string

	// ReadOnly opens existing state without creating directories, database
	// files or schema. Save on its backends fails with ErrReadOnly.
	ReadOnly bool
}

// ErrReadOnly is returned by Save on backends of a read-only Provider.
var ErrReadOnly = errors.New("storage: opened read-only")

// Provider hands out one record.Backend per schema over a shared connection.
type Provider struct {
	cfg Config
	db  *sql.DB
	rdb *redis.Client

	mu  sync.Mutex
	mem map[string]*record.MemoryBackend
}

// Open prepares the storage selected by cfg.Kind: it creates the data
// directory, opens and migrates the SQLite database, or connects to Redis.
// With cfg.ReadOnly nothing is created; a missing SQLite database reads as
// empty.
func Open(ctx context.Context, cfg Config) (*Provider, error) {
	p := &Provider{cfg: cfg, mem: map[string]*record.MemoryBackend{}}

	switch cfg.Kind {
	case KindMemory:
	case KindFile:
		if cfg.DataDir == "" {
			return nil, errors.New("file backend: data dir is required")
		}
		if cfg.ReadOnly {
			break
		}
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, fmt.Errorf("file backend: create %s: %w", cfg.DataDir, err)
		}
	case KindSQLite:
		if cfg.DBPath == "" {
			return nil, errors.New("sqlite backend: db path is required")
		}
		if cfg.ReadOnly {
			if _, err := os.Stat(cfg.DBPath); errors.Is(err, os.ErrNotExist) {
				break
			}
			db, err := OpenDBReadOnly(ctx, cfg.DBPath)
			if err != nil {
				return nil, err
			}
			p.db = db
			break
		}
		if dir := filepath.Dir(cfg.DBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("sqlite backend: create %s: %w", dir, err)
			}
		}
		db, err := OpenDB(ctx, cfg.DBPath)
		if err != nil {
			return nil, err
		}
		p.db = db
	case KindRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("redis backend: connect %s: %w", cfg.RedisAddr, err)
		}
		p.rdb = rdb
	default:
		return nil, fmt.Errorf("unknown backend %q (known: %v)", cfg.Kind, Kinds)
	}
	return p, nil
}

func (p *Provider) Kind() string {
	return p.cfg.Kind
}

// Backend returns the backend for schema s. Memory backends are shared per
// schema so that repeated calls see the same state.
func (p *Provider) Backend(s record.Schema) record.Backend {
	b := p.backend(s)
	if p.cfg.ReadOnly {
		return readOnlyBackend{b}
	}
	return b
}

func (p *Provider) backend(s record.Schema) record.Backend {
	switch p.cfg.Kind {
	case KindFile:
		return NewFileBackend(p.cfg.DataDir, s)
	case KindSQLite:
		if p.db == nil {
			return absentBackend{}
		}
		return NewSQLiteBackend(p.db, s)
	case KindRedis:
		return NewRedisBackend(p.rdb, p.cfg.RedisPrefix, s)
	default:
		p.mu.Lock()
		defer p.mu.Unlock()
		b, ok := p.mem[s.Name]
		if !ok {
			b = record.NewMemoryBackend(s)
			p.mem[s.Name] = b
		}
		return b
	}
}

func (p *Provider) Close() error {
	var errs []error
	if p.db != nil {
		errs = append(errs, p.db.Close())
	}
	if p.rdb != nil {
		errs = append(errs, p.rdb.Close())
	}
	return errors.Join(errs...)
}

type readOnlyBackend struct {
	record.Backend
}

func (readOnlyBackend) Save(context.Context, *record.Collection) error {
	return ErrReadOnly
}

// absentBackend stands in for storage that does not exist yet.
type absentBackend struct{}

func (absentBackend) Load(context.Context) (*record.Collection, error) {
	return nil, record.ErrNoState
}

func (absentBackend) Save(context.Context, *record.Collection) error {
	return ErrReadOnly
}
