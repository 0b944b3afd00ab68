// Package tui renders the portal in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"gifportal/portal"
)

var _ tea.Model = (*Model)(nil)

type Options struct {
	Title       string
	Subtitle    string
	Credit      string
	CreditURL   string
	CallTimeout time.Duration
}

// Model drives a portal.Controller from key presses. Controller calls run
// as commands; only one runs at a time.
type Model struct {
	ctrl *portal.Controller
	opts Options
	ctx  context.Context
	w, h int

	input   textinput.Model
	spinner spinner.Model
	busy    string
	scr     portal.Screen
}

func New(ctx context.Context, ctrl *portal.Controller, opts Options) *Model {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = time.Minute
	}

	ti := textinput.New()
	ti.Placeholder = "Enter gif link!"
	ti.CharLimit = 512
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Model{
		ctrl:    ctrl,
		opts:    opts,
		ctx:     ctx,
		w:       80,
		h:       24,
		input:   ti,
		spinner: sp,
		scr:     ctrl.Screen(),
	}
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, ctrl *portal.Controller, opts Options) error {
	p := tea.NewProgram(New(ctx, ctrl, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

type opDoneMsg struct {
	op  string
	err error
}

func (m *Model) Init() tea.Cmd {
	return m.start("Checking for a trusted wallet", m.ctrl.ProbeExistingConnection)
}

// start marks the model busy and runs fn as a command.
func (m *Model) start(label string, fn func(context.Context) error) tea.Cmd {
	m.busy = label
	ctx, timeout := m.ctx, m.opts.CallTimeout
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return opDoneMsg{op: label, err: fn(ctx)}
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.w, m.h = msg.Width, msg.Height
		m.input.Width = max(msg.Width-4, 10)
		return m, nil
	case spinner.TickMsg:
		if m.busy == "" && m.scr.Kind != portal.ScreenLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case opDoneMsg:
		m.busy = ""
		m.scr = m.ctrl.Screen()
		m.input.SetValue(m.scr.Draft)
		m.input.CursorEnd()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	}
	if m.busy != "" {
		return m, nil
	}

	key := msg.String()
	switch m.scr.Kind {
	case portal.ScreenDisconnected:
		switch key {
		case "c", "enter":
			return m, m.start("Connecting to wallet", m.ctrl.RequestConnection)
		case "q":
			return m, tea.Quit
		}
	case portal.ScreenInitialize:
		switch key {
		case "i", "enter":
			return m, m.start("Creating the GIF account", m.ctrl.InitializeAccount)
		case "q":
			return m, tea.Quit
		}
	case portal.ScreenUnavailable:
		switch key {
		case "r", "enter":
			return m, m.start("Reloading", m.reload)
		case "q":
			return m, tea.Quit
		}
	case portal.ScreenGallery:
		switch key {
		case "enter":
			link := m.input.Value()
			return m, m.start("Sending GIF", func(ctx context.Context) error {
				return m.ctrl.AppendEntry(ctx, link)
			})
		case "ctrl+r":
			return m, m.start("Reloading", m.reload)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.ctrl.SetDraft(m.input.Value())
		return m, cmd
	}
	return m, nil
}

func (m *Model) reload(ctx context.Context) error {
	m.ctrl.Reload(ctx)
	return nil
}

func (m *Model) View() string {
	parts := []string{
		titleStyle.Render(m.opts.Title),
		subtitleStyle.Render(wordwrap.String(m.opts.Subtitle, m.w)),
		"",
	}
	if m.scr.Notice != "" {
		parts = append(parts, warningStyle.Render(wordwrap.String(m.scr.Notice, m.w)), "")
	}

	switch m.scr.Kind {
	case portal.ScreenDisconnected:
		parts = append(parts, buttonStyle.Render("Connect to Wallet"))
	case portal.ScreenLoading:
		parts = append(parts, m.spinner.View()+" Loading GIFs...")
	case portal.ScreenInitialize:
		parts = append(parts,
			"The GIF account has not been created yet.",
			buttonStyle.Render("Do One-Time Initialization For GIF Program Account"),
		)
	case portal.ScreenUnavailable:
		parts = append(parts,
			errorStyle.Render(wordwrap.String("Could not load the GIF list: "+m.scr.Reason, m.w)),
		)
	case portal.ScreenGallery:
		parts = append(parts, m.input.View(), "", m.gallery())
	}

	if m.busy != "" {
		parts = append(parts, "", m.spinner.View()+" "+m.busy+"...")
	}
	if m.scr.Wallet != "" {
		parts = append(parts, "", successStyle.Render("connected as "+m.scr.Wallet))
	}
	parts = append(parts, "", helpStyle.Render(m.help()))
	if credit := m.credit(); credit != "" {
		parts = append(parts, creditStyle.Render(credit))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) gallery() string {
	if len(m.scr.Entries) == 0 {
		return helpStyle.Render("No GIFs yet. Be the first!")
	}
	width := max(m.w-indexStyle.GetWidth(), 20)
	rows := make([]string, len(m.scr.Entries))
	for i, e := range m.scr.Entries {
		rows[i] = lipgloss.JoinHorizontal(lipgloss.Top,
			indexStyle.Render(fmt.Sprintf("%d.", e.Index+1)),
			wordwrap.String(e.Link, width),
		)
	}
	return strings.Join(rows, "\n")
}

func (m *Model) credit() string {
	if m.opts.CreditURL == "" {
		return m.opts.Credit
	}
	if m.opts.Credit == "" {
		return m.opts.CreditURL
	}
	return m.opts.Credit + " (" + m.opts.CreditURL + ")"
}

func (m *Model) help() string {
	switch m.scr.Kind {
	case portal.ScreenDisconnected:
		return "c connect • q quit"
	case portal.ScreenInitialize:
		return "i initialize • q quit"
	case portal.ScreenUnavailable:
		return "r retry • q quit"
	case portal.ScreenGallery:
		return "enter submit • ctrl+r reload • esc quit"
	}
	return "esc quit"
}
