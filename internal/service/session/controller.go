// Package session holds the support-chat session state machine shared by the
// terminal widget, the CLI and the browser widget bridge.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/elio-helpdesk/client/internal/model/conversation"
	"github.com/zhouzirui/elio-helpdesk/client/internal/service/phone"
)

// Status is the outcome of the last operation, or loading while one runs.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusOK      Status = "ok"
	StatusError   Status = "error"
)

// Status line labels.
const (
	LabelIdle           = "Aguardando…"
	LabelLoadingHistory = "Carregando histórico…"
	LabelSending        = "Consultando a IA…"
	LabelDone           = "Concluído"
	LabelHistoryFailed  = "Falha ao carregar histórico"
	LabelBusinessFailed = "Erro na IA"
	LabelSendFailed     = "Falha ao enviar"
)

// Transcript texts produced by the controller itself.
const (
	PlaceholderHint       = "Nenhuma conversa ainda. Informe o telefone e carregue o histórico 👇"
	ImagesOnlyPlaceholder = "[Mensagem com imagens]"
	SendFailureMessage    = "Falha ao enviar sua mensagem."
	businessFailurePrefix = "Falha: "
)

// Backend is the remote helpdesk the controller talks to.
type Backend interface {
	History(ctx context.Context, phone string) ([]conversation.Entry, error)
	Chat(ctx context.Context, report conversation.Report) (conversation.Reply, error)
}

// Snapshot is a copy of the session state. Entries must be treated as read-only.
type Snapshot struct {
	BoundPhone string               `json:"boundPhone"`
	Entries    []conversation.Entry `json:"entries"`
	Status     Status               `json:"status"`
	StatusText string               `json:"statusText"`
}

// Empty reports whether the placeholder hint should be rendered.
func (s Snapshot) Empty() bool {
	return len(s.Entries) == 0
}

// Submission is the raw form input of one send attempt.
type Submission struct {
	Phone   string
	Problem string
	Resin   string
	Printer string
	Images  []conversation.Image
}

// NormalizeIdentifier derives the session key from raw phone input.
func NormalizeIdentifier(raw string) string {
	return phone.Normalize(raw)
}

// Option customises a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for operation tracing.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithLastIssuedWins makes only the most recently issued operation own the
// resulting state. Older responses return ErrSuperseded, and a phone edit
// that clears the transcript detaches whatever is in flight. Without it,
// responses apply in the order they resolve.
func WithLastIssuedWins() Option {
	return func(c *Controller) { c.lastIssuedWins = true }
}

// WithClock overrides the time source used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller owns one conversation view. Operations may be called from
// several goroutines.
type Controller struct {
	backend        Backend
	logger         zerolog.Logger
	now            func() time.Time
	lastIssuedWins bool

	mu         sync.Mutex
	boundPhone string
	entries    []conversation.Entry
	status     Status
	statusText string
	ticket     uint64
	watchers   map[chan Snapshot]struct{}
}

// New returns an idle controller bound to no phone.
func New(backend Backend, opts ...Option) *Controller {
	c := &Controller{
		backend:    backend,
		logger:     zerolog.Nop(),
		now:        func() time.Time { return time.Now().UTC() },
		status:     StatusIdle,
		statusText: LabelIdle,
		watchers:   make(map[chan Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Watch streams a snapshot now and after every state change until ctx ends.
// A slow reader only ever sees the most recent snapshot.
func (c *Controller) Watch(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)

	c.mu.Lock()
	c.watchers[ch] = struct{}{}
	ch <- c.snapshotLocked()
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		delete(c.watchers, ch)
		close(ch)
		c.mu.Unlock()
	}()
	return ch
}

// OnPhoneEdited reacts to an edit of the phone field and returns the
// normalized value. Editing away from the bound phone clears the transcript.
func (c *Controller) OnPhoneEdited(raw string) string {
	normalized := NormalizeIdentifier(raw)

	c.mu.Lock()
	defer c.mu.Unlock()

	if normalized == c.boundPhone {
		return normalized
	}

	c.entries = nil
	if c.lastIssuedWins {
		c.ticket++
	}
	c.setStatusLocked(StatusIdle, LabelIdle)
	c.publishLocked()
	return normalized
}

// LoadHistory replaces the transcript with the backend history of rawPhone.
func (c *Controller) LoadHistory(ctx context.Context, rawPhone string) (Snapshot, error) {
	number := NormalizeIdentifier(rawPhone)
	if number == "" {
		return c.Snapshot(), missingPhone()
	}

	c.mu.Lock()
	ticket := c.beginLocked(LabelLoadingHistory)
	c.mu.Unlock()

	c.logger.Debug().Str("phone", number).Uint64("ticket", ticket).Msg("[session] loading history")
	history, err := c.backend.History(ctx, number)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.staleLocked(ticket) {
		c.logger.Debug().Uint64("ticket", ticket).Msg("[session] dropping stale history response")
		return c.snapshotLocked(), ErrSuperseded
	}

	if err != nil {
		c.setStatusLocked(StatusError, LabelHistoryFailed)
		c.publishLocked()
		c.logger.Warn().Err(err).Str("phone", number).Msg("[session] history load failed")
		return c.snapshotLocked(), &TransportError{Op: "load history", Err: err}
	}

	entries := make([]conversation.Entry, 0, len(history))
	for _, item := range history {
		item.Role = conversation.ParseRole(string(item.Role))
		item.Delivery = conversation.DeliveryConfirmed
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = c.now()
		}
		entries = append(entries, item)
	}

	c.entries = entries
	c.boundPhone = number
	c.setStatusLocked(StatusOK, LabelDone)
	c.publishLocked()
	c.logger.Info().Str("phone", number).Int("entries", len(entries)).Msg("[session] history loaded")
	return c.snapshotLocked(), nil
}

// SendMessage appends the user's report optimistically, submits it and
// appends the backend answer.
func (c *Controller) SendMessage(ctx context.Context, sub Submission) (Snapshot, error) {
	number := NormalizeIdentifier(sub.Phone)
	if number == "" {
		return c.Snapshot(), missingPhone()
	}

	problem := strings.TrimSpace(sub.Problem)
	if problem == "" && len(sub.Images) == 0 {
		return c.Snapshot(), emptyReport()
	}

	content := problem
	if content == "" {
		content = ImagesOnlyPlaceholder
	}

	images := sub.Images
	if len(images) > conversation.MaxImages {
		images = images[:conversation.MaxImages]
	}
	report := conversation.Report{
		Phone:   number,
		Problem: problem,
		Resin:   orNotInformed(sub.Resin),
		Printer: orNotInformed(sub.Printer),
		Images:  images,
	}

	c.mu.Lock()
	pending := c.appendLocked(conversation.RoleUser, content, conversation.DeliveryPending, "")
	ticket := c.beginLocked(LabelSending)
	c.mu.Unlock()

	c.logger.Debug().Str("phone", number).Int("images", len(images)).Uint64("ticket", ticket).Msg("[session] sending report")
	reply, err := c.backend.Chat(ctx, report)

	c.mu.Lock()
	defer c.mu.Unlock()

	stale := c.staleLocked(ticket)

	switch {
	case err != nil:
		c.settleLocked(pending.ID, conversation.DeliveryFailed)
		if stale {
			return c.supersededLocked(ticket)
		}
		c.appendLocked(conversation.RoleAssistant, SendFailureMessage, conversation.DeliveryConfirmed, "")
		c.setStatusLocked(StatusError, LabelSendFailed)
		c.publishLocked()
		c.logger.Warn().Err(err).Str("phone", number).Msg("[session] send failed")
		return c.snapshotLocked(), &TransportError{Op: "send message", Err: err}

	case reply.Failed():
		c.settleLocked(pending.ID, conversation.DeliveryConfirmed)
		if stale {
			return c.supersededLocked(ticket)
		}
		c.appendLocked(conversation.RoleAssistant, businessFailurePrefix+reply.Error, conversation.DeliveryConfirmed, reply.Persona)
		c.setStatusLocked(StatusError, LabelBusinessFailed)
		c.publishLocked()
		c.logger.Warn().Str("phone", number).Str("error", reply.Error).Msg("[session] helpdesk reported an error")
		return c.snapshotLocked(), &BusinessError{Message: reply.Error}

	default:
		c.settleLocked(pending.ID, conversation.DeliveryConfirmed)
		if stale {
			return c.supersededLocked(ticket)
		}
		c.appendLocked(conversation.RoleAssistant, reply.Text, conversation.DeliveryConfirmed, reply.Persona)
		c.boundPhone = number
		c.setStatusLocked(StatusOK, LabelDone)
		c.publishLocked()
		c.logger.Info().Str("phone", number).Str("persona", reply.Persona).Msg("[session] reply received")
		return c.snapshotLocked(), nil
	}
}

func (c *Controller) beginLocked(label string) uint64 {
	c.ticket++
	c.setStatusLocked(StatusLoading, label)
	c.publishLocked()
	return c.ticket
}

// staleLocked reports whether a newer operation owns the state.
func (c *Controller) staleLocked(ticket uint64) bool {
	return c.lastIssuedWins && ticket != c.ticket
}

func (c *Controller) supersededLocked(ticket uint64) (Snapshot, error) {
	c.publishLocked()
	c.logger.Debug().Uint64("ticket", ticket).Msg("[session] dropping stale send response")
	return c.snapshotLocked(), ErrSuperseded
}

func (c *Controller) appendLocked(role conversation.Role, content string, delivery conversation.Delivery, personaID string) conversation.Entry {
	entry := conversation.Entry{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Delivery:  delivery,
		Persona:   personaID,
		CreatedAt: c.now(),
	}
	c.entries = append(c.entries, entry)
	return entry
}

// settleLocked resolves the delivery of a pending entry. The entry may be
// gone already if the transcript was cleared or replaced meanwhile.
func (c *Controller) settleLocked(id string, delivery conversation.Delivery) {
	for i := range c.entries {
		if c.entries[i].ID == id {
			c.entries[i].Delivery = delivery
			return
		}
	}
}

func (c *Controller) setStatusLocked(status Status, label string) {
	c.status = status
	c.statusText = label
}

func (c *Controller) snapshotLocked() Snapshot {
	entries := make([]conversation.Entry, len(c.entries))
	copy(entries, c.entries)
	return Snapshot{
		BoundPhone: c.boundPhone,
		Entries:    entries,
		Status:     c.status,
		StatusText: c.statusText,
	}
}

func (c *Controller) publishLocked() {
	if len(c.watchers) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for ch := range c.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func orNotInformed(v string) string {
	if v = strings.TrimSpace(v); v == "" {
		return conversation.NotInformed
	}
	return v
}
