package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zhouzirui/elio-helpdesk/client/internal/model/conversation"
	"github.com/zhouzirui/elio-helpdesk/client/internal/model/persona"
	"github.com/zhouzirui/elio-helpdesk/client/internal/service/attachment"
	"github.com/zhouzirui/elio-helpdesk/client/internal/service/session"
)

// Controller is the part of the session controller the widget drives.
type Controller interface {
	Snapshot() session.Snapshot
	Watch(ctx context.Context) <-chan session.Snapshot
	OnPhoneEdited(raw string) string
	LoadHistory(ctx context.Context, rawPhone string) (session.Snapshot, error)
	SendMessage(ctx context.Context, sub session.Submission) (session.Snapshot, error)
}

// Options are the form defaults taken from the command line.
type Options struct {
	Phone   string
	Resin   string
	Printer string
	Limits  attachment.Limits
}

type field int

const (
	fieldPhone field = iota
	fieldProblem
)

type op string

const (
	opHistory op = "history"
	opSend    op = "send"
)

type snapshotMsg session.Snapshot

type opDoneMsg struct {
	op  op
	err error
}

const helpText = "tab: trocar campo • enter: carregar/enviar • /image <arquivo> • /clear • /resin <nome> • /printer <nome> • esc: sair"

// Model is the bubbletea model of the widget.
type Model struct {
	ctx      context.Context
	ctrl     Controller
	personas persona.Store
	limits   attachment.Limits
	updates  <-chan session.Snapshot

	phone    textinput.Model
	problem  textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	focus    field

	resin   string
	printer string
	images  []string

	snap     session.Snapshot
	inFlight int
	notice   string
}

// New builds the widget model. The controller feed stops when ctx ends.
func New(ctx context.Context, ctrl Controller, personas persona.Store, opts Options) Model {
	phone := textinput.New()
	phone.Placeholder = "Telefone (somente números)"
	phone.CharLimit = 32
	phone.Focus()

	problem := textinput.New()
	problem.Placeholder = "Descreva o problema…"
	problem.CharLimit = 2000

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	limits := opts.Limits
	if limits.MaxImageBytes == 0 && limits.MaxTotalBytes == 0 {
		limits = attachment.DefaultLimits()
	}

	m := Model{
		ctx:      ctx,
		ctrl:     ctrl,
		personas: personas,
		limits:   limits,
		updates:  ctrl.Watch(ctx),
		phone:    phone,
		problem:  problem,
		viewport: viewport.New(80, 16),
		spinner:  sp,
		resin:    opts.Resin,
		printer:  opts.Printer,
		snap:     ctrl.Snapshot(),
	}
	if opts.Phone != "" {
		m.phone.SetValue(ctrl.OnPhoneEdited(opts.Phone))
	}
	m.refresh()
	return m
}

// Init starts the controller feed.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForSnapshot(m.updates))
}

func waitForSnapshot(ch <-chan session.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg(snap)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		height := msg.Height - 9
		if height < 3 {
			height = 3
		}
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = height
		m.phone.Width = msg.Width - 14
		m.problem.Width = msg.Width - 14
		m.refresh()
		return m, nil

	case snapshotMsg:
		// a queued snapshot can be older than the controller state
		m.snap = m.ctrl.Snapshot()
		m.refresh()
		return m, waitForSnapshot(m.updates)

	case opDoneMsg:
		return m.handleDone(msg), nil

	case spinner.TickMsg:
		if m.inFlight == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit

	case tea.KeyTab, tea.KeyShiftTab:
		return m.toggleFocus()

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.KeyEnter:
		m.notice = ""
		if m.focus == fieldPhone {
			return m.startHistory()
		}
		return m.submitProblem()
	}

	var cmd tea.Cmd
	if m.focus == fieldPhone {
		m.phone, cmd = m.phone.Update(msg)
		// every keystroke goes through the controller
		if normalized := m.ctrl.OnPhoneEdited(m.phone.Value()); normalized != m.phone.Value() {
			m.phone.SetValue(normalized)
		}
		m.snap = m.ctrl.Snapshot()
		m.refresh()
		return m, cmd
	}
	m.problem, cmd = m.problem.Update(msg)
	return m, cmd
}

func (m Model) toggleFocus() (tea.Model, tea.Cmd) {
	if m.focus == fieldPhone {
		m.focus = fieldProblem
		m.phone.Blur()
		return m, m.problem.Focus()
	}
	m.focus = fieldPhone
	m.problem.Blur()
	return m, m.phone.Focus()
}

func (m Model) startHistory() (tea.Model, tea.Cmd) {
	ctx, ctrl, raw := m.ctx, m.ctrl, m.phone.Value()
	m.inFlight++
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		_, err := ctrl.LoadHistory(ctx, raw)
		return opDoneMsg{op: opHistory, err: err}
	})
}

// submitProblem handles slash commands or sends the report.
func (m Model) submitProblem() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.problem.Value())

	switch {
	case input == "/clear":
		m.images = nil
		m.problem.Reset()
		return m, nil

	case strings.HasPrefix(input, "/image "):
		m.addImage(strings.TrimSpace(strings.TrimPrefix(input, "/image ")))
		return m, nil

	case strings.HasPrefix(input, "/resin "):
		m.resin = strings.TrimSpace(strings.TrimPrefix(input, "/resin "))
		m.problem.Reset()
		return m, nil

	case strings.HasPrefix(input, "/printer "):
		m.printer = strings.TrimSpace(strings.TrimPrefix(input, "/printer "))
		m.problem.Reset()
		return m, nil
	}

	ctx, ctrl, limits := m.ctx, m.ctrl, m.limits
	paths := append([]string(nil), m.images...)
	sub := session.Submission{
		Phone:   m.phone.Value(),
		Problem: input,
		Resin:   m.resin,
		Printer: m.printer,
	}

	m.inFlight++
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		if len(paths) > 0 {
			images, err := attachment.Load(paths, limits)
			if err != nil {
				return opDoneMsg{op: opSend, err: err}
			}
			sub.Images = images
		}
		_, err := ctrl.SendMessage(ctx, sub)
		return opDoneMsg{op: opSend, err: err}
	})
}

// addImage validates the file now; bytes are read again when sending.
func (m *Model) addImage(path string) {
	if path == "" {
		return
	}
	if len(m.images) >= conversation.MaxImages {
		m.notice = fmt.Sprintf("Máximo de %d imagens.", conversation.MaxImages)
		return
	}
	candidate := append(append([]string(nil), m.images...), path)
	if _, err := attachment.Load(candidate, m.limits); err != nil {
		m.notice = noticeFor(err)
		return
	}
	m.images = candidate
	m.problem.Reset()
}

func (m Model) handleDone(msg opDoneMsg) Model {
	m.inFlight--
	if m.inFlight < 0 {
		m.inFlight = 0
	}

	// the operation's snapshot may predate a later phone edit
	m.snap = m.ctrl.Snapshot()
	m.notice = noticeFor(msg.err)

	if msg.op == opSend && msg.err == nil {
		m.problem.Reset()
		m.images = nil
	}
	m.refresh()
	return m
}

// noticeFor picks the line shown under the inputs for an operation error.
// Transport and business failures already show in the status line.
func noticeFor(err error) string {
	var (
		vErr *session.ValidationError
		tErr *session.TransportError
		bErr *session.BusinessError
	)
	switch {
	case err == nil, errors.Is(err, session.ErrSuperseded):
		return ""
	case errors.As(err, &vErr):
		return vErr.Prompt
	case errors.As(err, &tErr), errors.As(err, &bErr):
		return ""
	default:
		return err.Error()
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	if m.snap.Empty() {
		return hintStyle.Render(session.PlaceholderHint)
	}

	var b strings.Builder
	for i, e := range m.snap.Entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		style := assistantStyle
		if e.Role == conversation.RoleUser {
			style = userStyle
		}
		b.WriteString(style.Render(speaker(e, m.personas) + deliveryMark(e)))
		b.WriteString("\n")
		b.WriteString(e.Content)
	}
	return b.String()
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Suporte Elio"))
	b.WriteString("\n")

	status := statusDot(m.snap.Status) + " " + m.snap.StatusText
	if m.inFlight > 0 {
		status += " " + m.spinner.View()
	}
	b.WriteString(status)
	b.WriteString("\n")

	b.WriteString(transcriptStyle.Render(m.viewport.View()))
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("Telefone") + m.phone.View() + "\n")
	b.WriteString(labelStyle.Render("Problema") + m.problem.View() + "\n")

	details := fmt.Sprintf("Resina: %s • Impressora: %s", orNotInformed(m.resin), orNotInformed(m.printer))
	if len(m.images) > 0 {
		names := make([]string, len(m.images))
		for i, p := range m.images {
			names[i] = filepath.Base(p)
		}
		details += " • Imagens: " + strings.Join(names, ", ")
	}
	b.WriteString(helpStyle.Render(details) + "\n")

	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice) + "\n")
	}
	b.WriteString(helpStyle.Render(helpText))
	return b.String()
}

func orNotInformed(v string) string {
	if v == "" {
		return conversation.NotInformed
	}
	return v
}

// Run starts the widget on the terminal and blocks until the user quits.
func Run(ctx context.Context, ctrl Controller, personas persona.Store, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(ctx, ctrl, personas, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run terminal widget: %w", err)
	}
	return nil
}
