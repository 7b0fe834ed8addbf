package tui

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zhouzirui/elio-helpdesk/client/internal/model/conversation"
	"github.com/zhouzirui/elio-helpdesk/client/internal/model/persona"
	"github.com/zhouzirui/elio-helpdesk/client/internal/service/attachment"
	"github.com/zhouzirui/elio-helpdesk/client/internal/service/session"
)

type fakeBackend struct {
	mu      sync.Mutex
	reports []conversation.Report
	phones  []string
}

func (f *fakeBackend) History(ctx context.Context, phone string) ([]conversation.Entry, error) {
	f.mu.Lock()
	f.phones = append(f.phones, phone)
	f.mu.Unlock()
	return []conversation.Entry{
		{Role: "user", Content: "Oi"},
		{Role: "assistant", Content: "Olá!", Persona: "elio"},
	}, nil
}

func (f *fakeBackend) Chat(ctx context.Context, report conversation.Report) (conversation.Reply, error) {
	f.mu.Lock()
	f.reports = append(f.reports, report)
	f.mu.Unlock()
	return conversation.Reply{Text: "Limpe o bico.", Persona: "caio"}, nil
}

func newTestModel(t *testing.T, backend session.Backend) Model {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ctrl := session.New(backend)
	return New(ctx, ctrl, persona.NewCatalog(persona.Seed()), Options{Limits: attachment.DefaultLimits()})
}

func typeText(m Model, text string) Model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return next.(Model)
}

func press(m Model, key tea.KeyType) (Model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: key})
	return next.(Model), cmd
}

// settle runs the command of an Enter press and feeds the operation result back.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msgs := []tea.Msg{cmd()}
	if batch, ok := msgs[0].(tea.BatchMsg); ok {
		msgs = msgs[:0]
		for _, c := range batch {
			if c != nil {
				msgs = append(msgs, c())
			}
		}
	}
	for _, msg := range msgs {
		if done, ok := msg.(opDoneMsg); ok {
			next, _ := m.Update(done)
			return next.(Model)
		}
	}
	t.Fatal("command produced no operation result")
	return m
}

func TestPhoneKeystrokesAreNormalized(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})

	m = typeText(m, "(11) 98765-4321")

	if got := m.phone.Value(); got != "11987654321" {
		t.Fatalf("expected normalized phone, got %q", got)
	}
	if !strings.Contains(m.View(), session.LabelIdle) {
		t.Fatalf("expected idle status in view")
	}
}

func TestEnterOnPhoneLoadsHistory(t *testing.T) {
	backend := &fakeBackend{}
	m := newTestModel(t, backend)
	m = typeText(m, "11987654321")

	m, cmd := press(m, tea.KeyEnter)
	if m.inFlight != 1 {
		t.Fatalf("expected one operation in flight, got %d", m.inFlight)
	}
	m = settle(t, m, cmd)

	if m.inFlight != 0 {
		t.Fatalf("expected no operation in flight, got %d", m.inFlight)
	}
	if m.snap.BoundPhone != "11987654321" || len(m.snap.Entries) != 2 {
		t.Fatalf("unexpected snapshot %+v", m.snap)
	}
	if view := m.viewport.View(); !strings.Contains(view, "Elio") {
		t.Fatalf("expected persona label in transcript, got %q", view)
	}
}

func TestEnterWithoutPhoneShowsPrompt(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})

	m, cmd := press(m, tea.KeyEnter)
	m = settle(t, m, cmd)

	if m.notice != session.PromptMissingPhone {
		t.Fatalf("expected missing phone prompt, got %q", m.notice)
	}
}

func TestSlashCommandsManageAttachments(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "bico.png")
	if err := os.WriteFile(png, append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 8)...), 0o600); err != nil {
		t.Fatalf("write image: %v", err)
	}
	gif := filepath.Join(dir, "anim.gif")
	if err := os.WriteFile(gif, []byte("GIF89a........"), 0o600); err != nil {
		t.Fatalf("write image: %v", err)
	}

	m := newTestModel(t, &fakeBackend{})
	m, _ = press(m, tea.KeyTab)

	m = typeText(m, "/image "+png)
	m, _ = press(m, tea.KeyEnter)
	if len(m.images) != 1 || m.problem.Value() != "" {
		t.Fatalf("expected one attachment and a cleared input, got %v %q", m.images, m.problem.Value())
	}

	m = typeText(m, "/image "+gif)
	m, _ = press(m, tea.KeyEnter)
	if len(m.images) != 1 || m.notice != session.PromptInvalidImage {
		t.Fatalf("expected gif to be rejected, got %v %q", m.images, m.notice)
	}

	m.problem.Reset()
	m = typeText(m, "/clear")
	m, _ = press(m, tea.KeyEnter)
	if len(m.images) != 0 {
		t.Fatalf("expected attachments cleared, got %v", m.images)
	}
}

func TestEnterOnProblemSendsReport(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "bico.png")
	if err := os.WriteFile(png, append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 8)...), 0o600); err != nil {
		t.Fatalf("write image: %v", err)
	}

	backend := &fakeBackend{}
	m := newTestModel(t, backend)
	m = typeText(m, "11987654321")
	m, _ = press(m, tea.KeyTab)

	m = typeText(m, "/printer Mars 3")
	m, _ = press(m, tea.KeyEnter)
	m = typeText(m, "/image "+png)
	m, _ = press(m, tea.KeyEnter)

	m = typeText(m, "Bico entupido")
	m, cmd := press(m, tea.KeyEnter)
	m = settle(t, m, cmd)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.reports) != 1 {
		t.Fatalf("expected one report, got %d", len(backend.reports))
	}
	report := backend.reports[0]
	if report.Problem != "Bico entupido" || report.Printer != "Mars 3" || report.Resin != conversation.NotInformed {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(report.Images) != 1 {
		t.Fatalf("expected one image, got %d", len(report.Images))
	}

	if m.problem.Value() != "" || len(m.images) != 0 {
		t.Fatalf("expected form reset after send, got %q %v", m.problem.Value(), m.images)
	}
	if len(m.snap.Entries) != 2 || m.snap.Entries[1].Persona != "caio" {
		t.Fatalf("unexpected entries %+v", m.snap.Entries)
	}
}

// editedController returns a history result that predates a phone edit.
type editedController struct {
	*session.Controller
}

func (c editedController) LoadHistory(ctx context.Context, rawPhone string) (session.Snapshot, error) {
	snap, err := c.Controller.LoadHistory(ctx, rawPhone)
	c.Controller.OnPhoneEdited("5511")
	return snap, err
}

func TestOperationResultDoesNotRestoreClearedTranscript(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ctrl := editedController{session.New(&fakeBackend{})}
	m := New(ctx, ctrl, persona.NewCatalog(persona.Seed()), Options{})
	m = typeText(m, "11987654321")

	m, cmd := press(m, tea.KeyEnter)
	m = settle(t, m, cmd)

	if !m.snap.Empty() {
		t.Fatalf("expected cleared transcript, got %+v", m.snap.Entries)
	}
	if m.snap.Status != session.StatusIdle {
		t.Fatalf("expected idle status, got %s", m.snap.Status)
	}
}
