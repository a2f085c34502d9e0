package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"tinydoc/internal/client"
	"tinydoc/internal/record"
	"tinydoc/internal/shared"
)

// ClientOptions holds the persistent flags of td-client.
type ClientOptions struct {
	ConfigPath string
	Server     string
	Collection string
	APIKey     string

	cfg *shared.ClientConfig
	api *client.Client
}

// NewClientCommand creates the td-client command tree.
func NewClientCommand() *cobra.Command {
	opts := &ClientOptions{}

	cmd := &cobra.Command{
		Use:          "td-client",
		Short:        "Talk to a tinydoc server",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := shared.LoadClientConfig(opts.ConfigPath)
			if err != nil {
				return fmt.Errorf("load client config: %w", err)
			}
			fs := cmd.Flags()
			if fs.Changed("server") {
				cfg.ServerURL = opts.Server
			}
			if fs.Changed("collection") {
				cfg.Collection = opts.Collection
			}
			if fs.Changed("api-key") {
				cfg.APIKey = opts.APIKey
			}
			if _, err := record.Lookup(cfg.Collection); err != nil {
				return err
			}
			opts.cfg = cfg
			opts.api = client.New(cfg)
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.ConfigPath, "config", "./td-client.json", "client config file")
	pf.StringVar(&opts.Server, "server", "", "server URL")
	pf.StringVarP(&opts.Collection, "collection", "c", "", "collection (items|products)")
	pf.StringVar(&opts.APIKey, "api-key", "", "X-API-Key for /admin/ routes")

	cmd.AddCommand(
		newHealthCommand(opts),
		newAdminCommand(opts),
		newListCommand(opts),
		newGetCommand(opts),
		newCreateCommand(opts),
		newUpdateCommand(opts),
		newDeleteCommand(opts),
		newConfigureCommand(opts),
	)
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

// missing turns a 404 for id into an error naming the record and collection.
func (o *ClientOptions) missing(id int64, err error) error {
	if client.IsNotFound(err) {
		return fmt.Errorf("no record %d in %s: %w", id, o.cfg.Collection, err)
	}
	return err
}

func newHealthCommand(opts *ClientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hr, err := opts.api.Health(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), hr)
		},
	}
}

func newAdminCommand(opts *ClientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "admin",
		Short: "Call the key-protected admin endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ar, err := opts.api.AdminSecret(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ar)
		},
	}
}

func newListCommand(opts *ClientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := opts.api.List(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), recs)
		},
	}
}

func newGetCommand(opts *ClientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rec, err := opts.api.Get(cmd.Context(), id)
			if err != nil {
				return opts.missing(id, err)
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
}

// fieldFlags are the record fields accepted by create and update.
type fieldFlags struct {
	name  string
	price float64
	tags  []string
}

func (f *fieldFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "record name")
	cmd.Flags().Float64Var(&f.price, "price", 0, "record price")
	cmd.Flags().StringArrayVar(&f.tags, "tag", nil, "tag (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("price")
}

func (f *fieldFlags) input() shared.RecordInput {
	return shared.RecordInput{Name: f.name, Price: f.price, Tags: f.tags}
}

func newCreateCommand(opts *ClientOptions) *cobra.Command {
	f := &fieldFlags{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := opts.api.Create(cmd.Context(), f.input())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
	f.register(cmd)
	return cmd
}

func newUpdateCommand(opts *ClientOptions) *cobra.Command {
	f := &fieldFlags{}
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Replace every field of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rec, err := opts.api.Update(cmd.Context(), id, f.input())
			if err != nil {
				return opts.missing(id, err)
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
	f.register(cmd)
	return cmd
}

func newDeleteCommand(opts *ClientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := opts.api.Delete(cmd.Context(), id); err != nil {
				return opts.missing(id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %d\n", opts.cfg.Collection, id)
			return nil
		},
	}
}

func newConfigureCommand(opts *ClientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Write the effective settings to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := shared.SaveClientConfig(opts.ConfigPath, opts.cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", opts.ConfigPath)
			return nil
		},
	}
}
