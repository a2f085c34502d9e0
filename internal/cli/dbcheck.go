package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"tinydoc/internal/record"
	"tinydoc/internal/shared"
	"tinydoc/internal/storage"
)

// NewDBCheckCommand creates td-dbcheck, which reports what the configured
// backend holds without initializing anything.
func NewDBCheckCommand() *cobra.Command {
	f := &serverFlags{}
	cmd := &cobra.Command{
		Use:          "td-dbcheck",
		Short:        "Show record counts and counters per collection",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			ctx := logContext(cfg.LogFormat, cfg.Debug)
			return dbcheck(ctx, cmd.OutOrStdout(), cfg)
		},
	}
	f.register(cmd, false)
	return cmd
}

func dbcheck(ctx context.Context, w io.Writer, cfg *shared.ServerConfig) error {
	sc := cfg.Storage()
	sc.ReadOnly = true
	p, err := storage.Open(ctx, sc)
	if err != nil {
		return err
	}
	defer p.Close()

	fmt.Fprintf(w, "Backend: %s\n", p.Kind())
	fmt.Fprintln(w, "Collections:")
	for _, name := range cfg.Collections {
		s, err := record.Lookup(name)
		if err != nil {
			return err
		}
		c, err := p.Backend(s).Load(ctx)
		if errors.Is(err, record.ErrNoState) {
			fmt.Fprintf(w, " - %s: not initialized\n", s.Name)
			continue
		}
		if err != nil {
			return fmt.Errorf("check %s: %w", s.Name, err)
		}
		fmt.Fprintf(w, " - %s: %d records, next_id %d\n", s.Name, len(c.Records), c.NextID)
	}
	return nil
}
