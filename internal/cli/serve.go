package cli

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"goa.design/clue/log"
	"golang.org/x/time/rate"

	"tinydoc/internal/record"
	"tinydoc/internal/server"
	"tinydoc/internal/shared"
	"tinydoc/internal/storage"
)

// serverFlags are command-line overrides for shared.ServerConfig. Only flags
// the user set are applied.
type serverFlags struct {
	configPath  string
	addr        string
	apiKey      string
	collections []string
	backend     string
	dataDir     string
	dbPath      string
	redisAddr   string
	rateLimit   float64
	logFormat   string
	debug       bool
}

func (f *serverFlags) register(cmd *cobra.Command, withServe bool) {
	fs := cmd.Flags()
	fs.StringVar(&f.configPath, "config", "", "YAML config file (env TD_CONFIG)")
	fs.StringSliceVar(&f.collections, "collections", nil, "collections to serve (items,products)")
	fs.StringVar(&f.backend, "backend", "", "storage backend (file|sqlite|redis|memory)")
	fs.StringVar(&f.dataDir, "data-dir", "", "directory for file backend documents")
	fs.StringVar(&f.dbPath, "db-path", "", "SQLite database path")
	fs.StringVar(&f.redisAddr, "redis-addr", "", "Redis address")
	fs.StringVar(&f.logFormat, "log-format", "", "log format (json|terminal)")
	fs.BoolVar(&f.debug, "debug", false, "enable debug logs")
	if withServe {
		fs.StringVar(&f.addr, "addr", "", "listen address")
		fs.StringVar(&f.apiKey, "api-key", "", "shared secret for /admin/ routes")
		fs.Float64Var(&f.rateLimit, "rate-limit", 0, "requests per second, 0 disables")
	}
}

// load builds the validated configuration: defaults, file, env, then flags.
func (f *serverFlags) load(cmd *cobra.Command) (*shared.ServerConfig, error) {
	cfg, err := shared.LoadServerConfig(f.configPath)
	if err != nil {
		return nil, err
	}
	fs := cmd.Flags()
	if fs.Changed("addr") {
		cfg.Addr = f.addr
	}
	if fs.Changed("api-key") {
		cfg.APIKey = f.apiKey
	}
	if fs.Changed("collections") {
		cfg.Collections = f.collections
	}
	if fs.Changed("backend") {
		cfg.Backend = f.backend
	}
	if fs.Changed("data-dir") {
		cfg.DataDir = f.dataDir
	}
	if fs.Changed("db-path") {
		cfg.DBPath = f.dbPath
	}
	if fs.Changed("redis-addr") {
		cfg.RedisAddr = f.redisAddr
	}
	if fs.Changed("rate-limit") {
		cfg.RateLimit = f.rateLimit
	}
	if fs.Changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
	if fs.Changed("debug") {
		cfg.Debug = f.debug
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStores opens the configured storage and one store per collection.
func openStores(ctx context.Context, cfg *shared.ServerConfig) ([]*record.Store, *storage.Provider, error) {
	p, err := storage.Open(ctx, cfg.Storage())
	if err != nil {
		return nil, nil, err
	}
	stores := make([]*record.Store, 0, len(cfg.Collections))
	for _, name := range cfg.Collections {
		s, err := record.Lookup(name)
		if err != nil {
			p.Close()
			return nil, nil, err
		}
		stores = append(stores, record.NewStore(s, p.Backend(s)))
	}
	return stores, p, nil
}

// BuildAPI wires the stores, validator and limiter described by cfg. The
// caller closes the returned provider.
func BuildAPI(ctx context.Context, cfg *shared.ServerConfig) (*server.API, *storage.Provider, error) {
	stores, p, err := openStores(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	v, err := server.NewValidator()
	if err != nil {
		p.Close()
		return nil, nil, err
	}
	api := &server.API{APIKey: cfg.APIKey, Validator: v}
	for _, s := range stores {
		api.Stores = append(api.Stores, s)
	}
	if cfg.RateLimit > 0 {
		api.Limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}
	return api, p, nil
}

// NewServeCommand creates the td-server command.
func NewServeCommand() *cobra.Command {
	f := &serverFlags{}
	cmd := &cobra.Command{
		Use:          "td-server",
		Short:        "Serve the tinydoc CRUD API",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			ctx := logContext(cfg.LogFormat, cfg.Debug)
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	f.register(cmd, true)
	return cmd
}

func serve(ctx context.Context, cfg *shared.ServerConfig) error {
	api, p, err := BuildAPI(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			log.Error(ctx, err, log.KV{K: "msg", V: "close storage"})
		}
	}()

	l, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	log.Print(ctx,
		log.KV{K: "msg", V: "td-server listening"},
		log.KV{K: "addr", V: l.Addr().String()},
		log.KV{K: "backend", V: cfg.Backend},
		log.KV{K: "collections", V: cfg.Collections},
	)

	srv := server.NewServer(cfg.Addr, api.Handler(ctx))
	if err := srv.Run(ctx, l, cfg.ShutdownTimeout); err != nil {
		return err
	}
	log.Printf(ctx, "exited")
	return nil
}
