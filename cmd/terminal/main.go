package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/autodine/autodine/internal/config"
	"github.com/autodine/autodine/internal/hostclient"
	"github.com/autodine/autodine/internal/menu"
	"github.com/autodine/autodine/internal/terminal"
	"github.com/autodine/autodine/internal/tui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		tableID    int
		hostURL    string
		logFile    string
		remoteMenu bool
	)

	cmd := &cobra.Command{
		Use:   "terminal",
		Short: "Run a table ordering unit in this terminal",
		Long: `Runs the ordering unit of one table. Customers browse the menu, place
and extend orders, request the bill and pick a payment method; the unit
polls the host for the kitchen's decisions.

Settings come from the environment (TABLE_ID, HOST_URL, POLL_INTERVAL,
REQUEST_TIMEOUT, TICK_INTERVAL, LOG_FILE) and can be overridden by flags.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadTerminal()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("table") {
				cfg.TableID = tableID
			}
			if cmd.Flags().Changed("host") {
				cfg.HostURL = hostURL
			}
			if cmd.Flags().Changed("log-file") {
				cfg.LogFile = logFile
			}
			if cfg.TableID <= 0 {
				return fmt.Errorf("table id must be positive, got %d", cfg.TableID)
			}
			return run(cmd.Context(), cfg, remoteMenu)
		},
	}

	cmd.Flags().IntVarP(&tableID, "table", "t", 1, "table id of this unit")
	cmd.Flags().StringVar(&hostURL, "host", "", "host base URL")
	cmd.Flags().StringVar(&logFile, "log-file", "", "file for diagnostic logs")
	cmd.Flags().BoolVar(&remoteMenu, "remote-menu", false, "load the menu from the host instead of the built-in one")
	return cmd
}

func run(parent context.Context, cfg *config.TerminalConfig, remoteMenu bool) error {
	f, err := tea.LogToFile(cfg.LogFile, fmt.Sprintf("table-%d", cfg.TableID))
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	client := hostclient.New(cfg.HostURL, cfg.RequestTimeout)

	catalog := menu.Default
	if remoteMenu {
		ctx, cancel := context.WithTimeout(parent, cfg.RequestTimeout)
		items, err := client.Menu(ctx)
		cancel()
		if err != nil || len(items) == 0 {
			log.Printf("using built-in menu: %v", err)
		} else {
			catalog = items
		}
	}

	buttons := make(chan terminal.Button, 8)
	p := tea.NewProgram(tui.New(cfg.TableID, buttons), tea.WithAltScreen(), tea.WithContext(parent))

	runner := terminal.NewRunner(
		terminal.NewMachine(catalog, time.Now()),
		client,
		tui.NewScreen(p),
		terminal.RunnerOptions{
			TableID:      cfg.TableID,
			PollInterval: cfg.PollInterval,
			TickInterval: cfg.TickInterval,
		},
	)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx, buttons) }()

	log.Printf("table %d unit started, host %s", cfg.TableID, cfg.HostURL)
	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		err = nil
	}
	cancel()
	if runErr := <-done; runErr != nil && err == nil {
		err = runErr
	}
	return err
}
