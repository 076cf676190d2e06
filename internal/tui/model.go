// Package tui renders a table unit's screen in a terminal and turns key
// presses into button presses.
//
// The model only draws; the terminal.Runner owns the state machine and
// pushes each new frame in with Program.Send.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/autodine/autodine/internal/enum"
	"github.com/autodine/autodine/internal/terminal"
)

// FrameMsg carries a new view from the runner.
type FrameMsg terminal.View

// Model is the bubbletea model of one table unit.
type Model struct {
	tableID int
	buttons chan<- terminal.Button
	view    terminal.View
	dropped int
}

// New creates a model that forwards presses on buttons. Presses are dropped
// when the runner is busy and the channel is full, as a real button would be.
func New(tableID int, buttons chan<- terminal.Button) Model {
	return Model{tableID: tableID, buttons: buttons}
}

// NewScreen adapts a running program to terminal.Screen.
func NewScreen(p *tea.Program) terminal.Screen {
	return terminal.ScreenFunc(func(v terminal.View) { p.Send(FrameMsg(v)) })
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case FrameMsg:
		m.view = terminal.View(msg)
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if b, ok := keyButton(msg.String()); ok {
			select {
			case m.buttons <- b:
			default:
				m.dropped++
			}
		}
	}
	return m, nil
}

// keyButton maps keys onto the four physical buttons. Holding back is "l".
func keyButton(key string) (terminal.Button, bool) {
	switch key {
	case "up", "k":
		return terminal.ButtonUp, true
	case "down", "j":
		return terminal.ButtonDown, true
	case "enter", " ":
		return terminal.ButtonOK, true
	case "esc", "backspace":
		return terminal.ButtonBack, true
	case "l":
		return terminal.ButtonBackLong, true
	}
	return 0, false
}

// View implements tea.Model.
func (m Model) View() string {
	title := titleStyle.Render(fmt.Sprintf("AutoDine · Table %d", m.tableID))
	body := screenStyle.Render(strings.Join(screenLines(m.view), "\n"))

	var footer []string
	if m.view.Notice != "" {
		footer = append(footer, noticeStyle.Render(m.view.Notice))
	}
	if m.view.HostUnreachable {
		footer = append(footer, noticeStyle.Render("host unreachable"))
	}
	footer = append(footer, helpStyle.Render("↑/↓ move · enter ok · esc back · l hold back · q quit"))
	return lipgloss.JoinVertical(lipgloss.Left, title, body, strings.Join(footer, "\n"))
}

// screenLines is the text of the unit's display for the current state.
func screenLines(v terminal.View) []string {
	switch v.State {
	case terminal.StateIdle:
		return []string{emphStyle.Render("AutoDine"), "", "Press any", "button to order"}

	case terminal.StateMenuBrowse:
		lines := []string{
			fmt.Sprintf("%d/%d", v.Cursor+1, v.MenuLen),
			emphStyle.Render(v.Item.Name),
			fmt.Sprintf("Rs %d", v.Item.Price),
		}
		if v.Append {
			lines = append(lines, fmt.Sprintf("Adding · Cart:%d Rs%d", len(v.Pending), v.PendingTotal))
		} else if len(v.Pending) > 0 {
			lines = append(lines, fmt.Sprintf("Cart:%d Rs%d", len(v.Pending), v.PendingTotal))
		}
		return lines

	case terminal.StateQuantitySelect:
		return []string{v.Item.Name, "", emphStyle.Render(fmt.Sprintf("Qty: %d", v.Quantity)), "OK=Add X=Back"}

	case terminal.StateWaitingOrderAccept:
		return []string{emphStyle.Render("Sending"), "Order..."}

	case terminal.StateOrderDeclined:
		return []string{emphStyle.Render("SORRY!"), "Order is", "currently", "unavailable"}

	case terminal.StateOrderDeclinedAppend:
		return []string{emphStyle.Render("Items not"), "available"}

	case terminal.StateCooking:
		return []string{"Food is", "preparing in", "10-15 minutes", "", "OK -> Add more"}

	case terminal.StateFoodPrepared:
		return []string{emphStyle.Render("Food is prepared!"), "Enjoy the meal", "", "OK -> More  X -> Bill"}

	case terminal.StateWaitingBill:
		return []string{emphStyle.Render("Waiting for"), "bill"}

	case terminal.StateBillDisplay:
		return billLines(v)

	case terminal.StatePaymentMethodSelect:
		return []string{emphStyle.Render("Payment"), "", "↑ UPI/QR", "↓ Cash/Card"}

	case terminal.StatePaymentPending:
		if v.Method == enum.PaymentMethodUPI {
			return []string{"UPI Payment", "", "Scan & Pay"}
		}
		return []string{emphStyle.Render("Pay at"), "Counter"}

	case terminal.StateThankYou:
		return []string{emphStyle.Render("THANK"), emphStyle.Render("YOU!")}
	}
	return []string{v.State.String()}
}

func billLines(v terminal.View) []string {
	lines := []string{emphStyle.Render("BILL")}
	if v.Bill == nil {
		return append(lines, "No data")
	}
	for _, it := range v.Bill.Items {
		lines = append(lines, fmt.Sprintf("%-12.12s x%-2d %6d", it.Name, it.Qty, it.Subtotal))
	}
	lines = append(lines,
		fmt.Sprintf("%-16s %6d", "Subtotal", v.Bill.Subtotal),
		fmt.Sprintf("%-16s %6d", "GST", v.Bill.GST),
		emphStyle.Render(fmt.Sprintf("TOTAL:Rs%d", v.Bill.GrandTotal)),
	)
	return lines
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	screenStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(28)

	emphStyle = lipgloss.NewStyle().Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)
