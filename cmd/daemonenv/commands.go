package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"daemonenv/internal/bootstrap"
	"daemonenv/internal/client"
	"daemonenv/internal/config"
	"daemonenv/internal/env"
	"daemonenv/internal/inspect"
	"daemonenv/internal/run"
	"daemonenv/internal/server"
)

func newRunCommand(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] -- COMMAND [ARGS...]",
		Short: "Install the environment file into this process, then run COMMAND with it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			space := env.NewProcessSpace()
			if _, err := bootstrap.New(space, cli.bootstrapOptions(cmd)...).Load(cli.settings.EnvFile); err != nil {
				return err
			}

			err := run.RunCommandWithEnv(args[0], args[1:], space.Current().Environ())
			if code, ok := run.ExitCode(err); ok {
				return &exitError{code: code}
			}
			if err != nil {
				return fmt.Errorf("command failed: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newCheckCommand(cli *CLI) *cobra.Command {
	var format, only, exclude string

	cmd := &cobra.Command{
		Use:   "check [FILE]",
		Short: "Parse an environment file against the current environment and print the result",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			space := env.NewMemorySpace(env.FromEnviron(os.Environ()))
			if _, err := bootstrap.New(space, cli.bootstrapOptions(cmd)...).Load(cli.envFile(args)); err != nil {
				return err
			}

			entries := entriesOf(space.Current())
			entries = filterEntries(entries, splitList(only), splitList(exclude))
			return printEntries(cmd.OutOrStdout(), entries, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "env", "output format: env|sh|pwsh|json|yaml|raw")
	cmd.Flags().StringVar(&only, "only", "", "comma-separated list of variables to include (optional)")
	cmd.Flags().StringVar(&exclude, "exclude", "", "comma-separated list of variables to exclude (optional)")
	return cmd
}

func newDaemonCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Install the environment file into this process and serve its status on localhost",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return server.RunDaemon(cmd.Context(), server.Options{
				EnvFile:  cli.settings.EnvFile,
				LockName: cli.settings.Daemon.Lock,
				Logger:   cli.log.WithComponent("daemon"),
			})
		},
	}
}

func newStartCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a background daemon unless one is already healthy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			st, err := client.EnsureDaemonRunning(ctx, "--env-file", cli.settings.EnvFile)
			if err != nil {
				return fmt.Errorf("cannot start or reach daemon: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "daemon running (pid %d, port %d, %d entries)\n", st.PID, st.Port, st.Entries)
			return nil
		},
	}
}

func newStatusCommand(cli *CLI) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the environment a running daemon installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			st, err := client.Discover(ctx)
			if err != nil {
				return fmt.Errorf("no healthy daemon: %w", err)
			}
			status, err := client.FetchStatus(ctx, st)
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), status, func(w io.Writer) {
				printStatus(w, status)
			}, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: text|json|yaml")
	return cmd
}

func newInspectCommand(cli *CLI) *cobra.Command {
	var (
		pid    int
		name   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "inspect (--pid N | --name NAME)",
		Short: "Compare the environment of running processes with the environment file",
		Long: `inspect reads the environment of running processes and reports names that are
missing, unexpected, or carry a different value than the environment file
would install. Values are never printed. Exits 2 when any process drifted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (pid == 0) == (name == "") {
				return fmt.Errorf("exactly one of --pid or --name is required")
			}
			pids := []int{pid}
			if name != "" {
				found, err := inspect.FindByName(name)
				if err != nil {
					return err
				}
				if len(found) == 0 {
					return fmt.Errorf("no process named %q", name)
				}
				pids = found
			}

			drifted := false
			for _, p := range pids {
				live, err := inspect.ProcessEnviron(cmd.Context(), p)
				if err != nil {
					return err
				}
				report, err := inspect.Compare(cli.settings.EnvFile, live, cli.bootstrapOptions(cmd)...)
				if err != nil {
					return err
				}
				report.PID = p
				if !report.Clean() {
					drifted = true
				}
				if err := printReport(cmd.OutOrStdout(), report, func(w io.Writer) {
					printDrift(w, report)
				}, format); err != nil {
					return err
				}
			}
			if drifted {
				return &exitError{code: 2}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&pid, "pid", 0, "process id to inspect")
	cmd.Flags().StringVar(&name, "name", "", "inspect every process with this executable name")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text|json|yaml")
	return cmd
}

func newConfigCommand(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init [PATH]",
		Short: "Write a config file holding the defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := defaultConfigPath(args)
			if err != nil {
				return err
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeYAML(cmd.OutOrStdout(), cli.settings)
		},
	})

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\n", version)
		},
	}
}

// defaultConfigPath mirrors where InitConfig looks for a config file.
func defaultConfigPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if p := os.Getenv(config.EnvConfigFile); p != "" {
		return p, nil
	}
	exePath, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(exePath), "config.yaml"), nil
}

// entriesOf returns the first occurrence of each name, in file order.
func entriesOf(t *env.Table) []env.Entry {
	environ := t.Environ()
	out := make([]env.Entry, 0, len(environ))
	for _, kv := range environ {
		name, value, _ := strings.Cut(kv, "=")
		out = append(out, env.Entry{Name: name, Value: value})
	}
	return out
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func printStatus(w io.Writer, status *server.Status) {
	fmt.Fprintf(w, "pid:       %d\n", status.PID)
	fmt.Fprintf(w, "source:    %s\n", status.Source)
	fmt.Fprintf(w, "installed: %s\n", status.InstalledAt.Format(time.RFC3339))
	fmt.Fprintf(w, "entries:   %d\n", status.Entries)
	for _, n := range status.Names {
		fmt.Fprintf(w, "  %s\n", n)
	}
}

func printDrift(w io.Writer, r inspect.Report) {
	if r.Clean() {
		fmt.Fprintf(w, "pid %d: clean\n", r.PID)
		return
	}
	fmt.Fprintf(w, "pid %d: drifted\n", r.PID)
	for _, n := range r.Missing {
		fmt.Fprintf(w, "  - %s (missing)\n", n)
	}
	for _, n := range r.Unexpected {
		fmt.Fprintf(w, "  + %s (unexpected)\n", n)
	}
	for _, n := range r.Mismatched {
		fmt.Fprintf(w, "  ~ %s (different value)\n", n)
	}
}
