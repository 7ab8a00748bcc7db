package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/weave/internal/logging"
	"github.com/spf13/cobra"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	store         string
	dir           string
	redisAddr     string
	redisPassword string
	redisDB       int
	tools         string
	logLevel      string
	redact        []string
	encryptionKey string
	runTimeout    time.Duration

	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{logger: logging.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "weave",
		Short: "weave runs graphs of triggers, conditions, loops and actions",
		Long: `weave executes automation graphs described in YAML or JSON files.
Graphs can be run once from a file, validated, drawn as Mermaid diagrams,
or stored and served over HTTP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			opts.logger = logging.NewWithWriter(cmd.ErrOrStderr(), level)
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.store, "store", storeMemory, "Graph store: memory, file or redis")
	flags.StringVar(&opts.dir, "dir", ".weave", "Directory of the file store")
	flags.StringVar(&opts.redisAddr, "redis-addr", "localhost:6379", "Redis address for the redis store")
	flags.StringVar(&opts.redisPassword, "redis-password", os.Getenv("WEAVE_REDIS_PASSWORD"), "Redis password")
	flags.IntVar(&opts.redisDB, "redis-db", 0, "Redis database number")
	flags.StringVar(&opts.tools, "tools", "tools.yaml", "Allow-list of local processes bound to action nodes")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	flags.StringSliceVar(&opts.redact, "redact", nil, "Regex of variable names masked in recorded history (repeatable)")
	flags.StringVar(&opts.encryptionKey, "encryption-key", os.Getenv("WEAVE_ENCRYPTION_KEY"), "32-byte key sealing recorded history")
	flags.DurationVar(&opts.runTimeout, "timeout", 0, "Cancel runs that take longer than this (0 disables)")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newValidateCmd(opts),
		newGraphCmd(opts),
		newServeCmd(opts),
		newMCPCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}
