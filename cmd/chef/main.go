package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/autodine/autodine/internal/api"
	"github.com/autodine/autodine/internal/config"
	"github.com/autodine/autodine/internal/hostclient"
	"github.com/autodine/autodine/internal/ws"
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
	var hostURL string
	var client *hostclient.Client

	root := &cobra.Command{
		Use:          "chef",
		Short:        "Kitchen console for the AutoDine host",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadChef()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.HostURL = strings.TrimRight(hostURL, "/")
			}
			hostURL = cfg.HostURL
			client = hostclient.New(cfg.HostURL, cfg.RequestTimeout)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&hostURL, "host", "", "host base URL (default $HOST_URL)")

	orderCmd := func(use, short, done string, fn func(*hostclient.Client) func(context.Context, int) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " ORDER_ID",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				if err := fn(client)(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "order %d %s\n", id, done)
				return nil
			},
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "tables",
			Short: "List every table with its current order",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				tables, err := client.Tables(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTables(tables))
				return nil
			},
		},
		orderCmd("accept", "Accept a pending order", "accepted",
			func(c *hostclient.Client) func(context.Context, int) error { return c.Accept }),
		orderCmd("decline", "Decline a pending order or its latest additions", "declined",
			func(c *hostclient.Client) func(context.Context, int) error { return c.Decline }),
		orderCmd("prepared", "Mark an accepted order as ready", "marked prepared",
			func(c *hostclient.Client) func(context.Context, int) error { return c.FoodPrepared }),
		&cobra.Command{
			Use:   "verify TABLE_ID",
			Short: "Confirm payment and free the table",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				if err := client.VerifyPayment(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "table %d settled\n", id)
				return nil
			},
		},
		newWatchCmd(&hostURL),
	)
	return root
}

func newWatchCmd(hostURL *string) *cobra.Command {
	var tableID int
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow table changes live",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := feedURL(*hostURL, tableID)
			if err != nil {
				return err
			}
			return watch(cmd.Context(), u, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&tableID, "table", 0, "only follow this table")
	return cmd
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// feedURL turns the host base URL into the dashboard websocket URL.
func feedURL(hostURL string, tableID int) (string, error) {
	u, err := url.Parse(hostURL)
	if err != nil {
		return "", fmt.Errorf("parse host url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported host url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/dashboard"
	if tableID > 0 {
		u.RawQuery = url.Values{"table_id": {strconv.Itoa(tableID)}}.Encode()
	}
	return u.String(), nil
}

// watch prints one line per table update until ctx ends or the host closes
// the feed.
func watch(ctx context.Context, feed string, out io.Writer) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, feed, nil)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", feed, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	fmt.Fprintf(out, "watching %s\n", feed)
	for {
		var ev ws.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil
			}
			return fmt.Errorf("read feed: %w", err)
		}
		if ev.Type != ws.EventTableUpdated {
			continue
		}
		var upd api.TableUpdate
		if err := json.Unmarshal(ev.Payload, &upd); err != nil {
			return fmt.Errorf("decode table update: %w", err)
		}
		fmt.Fprintln(out, formatUpdate(upd))
	}
}

func formatUpdate(u api.TableUpdate) string {
	t := u.Table
	line := fmt.Sprintf("%-18s table %d  %s/%s", u.Change, t.TableID, t.Status, t.OrderState)
	if t.OrderID != 0 {
		line += fmt.Sprintf("  order %d", t.OrderID)
	}
	if t.Total != nil {
		line += fmt.Sprintf("  Rs %d", *t.Total)
	}
	if t.PaymentMethod != "" {
		line += "  via " + t.PaymentMethod
	}
	return line
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func renderTables(tables []api.DashboardTable) string {
	rows := make([][]string, 0, len(tables))
	for _, t := range tables {
		order, total := "-", "-"
		if t.OrderID != 0 {
			order = strconv.Itoa(t.OrderID)
		}
		if t.Total != nil {
			total = strconv.FormatInt(*t.Total, 10)
		}
		items := make([]string, len(t.Items))
		for i, it := range t.Items {
			items[i] = fmt.Sprintf("%dx %s", it.Qty, it.Name)
		}
		rows = append(rows, []string{
			strconv.Itoa(t.TableID), string(t.Status), string(t.OrderState),
			order, strings.Join(items, ", "), total, t.PaymentMethod,
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TABLE", "STATUS", "ORDER STATE", "ORDER", "ITEMS", "TOTAL", "PAYMENT").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}
