package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"daemonenv/internal/bootstrap"
	"daemonenv/internal/config"
	"daemonenv/internal/logging"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

// exitError carries a process exit status out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// CLI holds state shared by the subcommands once the root pre-run resolved it.
type CLI struct {
	settings *config.Settings
	log      *logging.Logger
	crlf     bool
}

func (cli *CLI) envFile(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cli.settings.EnvFile
}

func (cli *CLI) bootstrapOptions(cmd *cobra.Command) []bootstrap.Option {
	opts := []bootstrap.Option{bootstrap.WithLogger(cli.log)}
	if cmd.Flags().Changed("crlf") {
		opts = append(opts, bootstrap.WithCRLF(cli.crlf))
	}
	return opts
}

// initialize reads configuration and opens the logger. Both read the process
// environment, so this runs before any command bootstraps it.
func (cli *CLI) initialize() error {
	if err := config.InitConfig(); err != nil {
		return err
	}
	settings, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(logging.Config{
		Level:     settings.Log.Level,
		Format:    settings.Log.Format,
		Output:    settings.Log.Output,
		Component: "daemonenv",
	})
	if err != nil {
		return err
	}
	cli.settings = settings
	cli.log = log
	return nil
}

// NewRootCommand builds the CLI around cli. The caller closes cli's logger
// once the command returns, whatever the outcome.
func NewRootCommand(cli *CLI) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "daemonenv",
		Short: "Start processes with a vetted environment",
		Long: `daemonenv replaces the inherited environment of a process with the
entries of a vetted environment file before the process does any work.

  daemonenv run -- /usr/sbin/mydaemon     # run a command with the file's environment
  daemonenv check /etc/mydaemon/env       # show what a file would install
  daemonenv daemon                        # bootstrap and serve status on localhost
  daemonenv inspect --name mydaemon       # compare a running process to the file`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.initialize()
		},
	}

	rootCmd.PersistentFlags().String("env-file", "", "environment file to install (default from config)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text|json")
	rootCmd.PersistentFlags().BoolVar(&cli.crlf, "crlf", false, "strip a trailing carriage return from each line (default on Windows)")
	_ = viper.BindPFlag("env_file", rootCmd.PersistentFlags().Lookup("env-file"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(newRunCommand(cli))
	rootCmd.AddCommand(newCheckCommand(cli))
	rootCmd.AddCommand(newDaemonCommand(cli))
	rootCmd.AddCommand(newStartCommand(cli))
	rootCmd.AddCommand(newStatusCommand(cli))
	rootCmd.AddCommand(newInspectCommand(cli))
	rootCmd.AddCommand(newConfigCommand(cli))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// exitCode reports err on stderr and maps it to a process exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		if exitErr.err != nil {
			fmt.Fprintln(os.Stderr, "Error:", exitErr.err)
		}
		if exitErr.code < 0 || exitErr.code > 255 {
			return 1
		}
		return exitErr.code
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return 1
}

func main() {
	cli := &CLI{}
	err := NewRootCommand(cli).ExecuteContext(context.Background())
	_ = cli.log.Close()
	os.Exit(exitCode(err))
}
