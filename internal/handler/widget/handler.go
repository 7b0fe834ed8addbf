package widget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/elio-helpdesk/client/internal/model/conversation"
	"github.com/zhouzirui/elio-helpdesk/client/internal/service/attachment"
	"github.com/zhouzirui/elio-helpdesk/client/internal/service/session"
	"github.com/zhouzirui/elio-helpdesk/client/pkg/utils"
)

// Controller 是 bridge 需要的会话控制器能力
type Controller interface {
	Snapshot() session.Snapshot
	Watch(ctx context.Context) <-chan session.Snapshot
	OnPhoneEdited(raw string) string
	LoadHistory(ctx context.Context, rawPhone string) (session.Snapshot, error)
	SendMessage(ctx context.Context, sub session.Submission) (session.Snapshot, error)
}

// Handler 浏览器 widget 的 HTTP 处理器
type Handler struct {
	ctrl         Controller
	limits       attachment.Limits
	logger       zerolog.Logger
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	readTimeout  time.Duration
}

// New 创建 widget 处理器；allowedOrigins 与 CORS 使用同一份列表
func New(ctrl Controller, limits attachment.Limits, allowedOrigins []string, logger zerolog.Logger) *Handler {
	return &Handler{
		ctrl:   ctrl,
		limits: limits,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		pingInterval: 54 * time.Second,
		readTimeout:  60 * time.Second,
	}
}

// originChecker 只允许列表中的浏览器来源建立 websocket；没有 Origin 的非浏览器客户端放行
func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	wildcard := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			wildcard = true
			continue
		}
		allowed[o] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || wildcard {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/session", func(r chi.Router) {
		r.Get("/", h.handleSnapshot)
		r.Put("/phone", h.handlePhone)
		r.Post("/history", h.handleHistory)
		r.Post("/messages", h.handleSend)
		r.Get("/ws", h.handleWebSocket)
		r.Get("/events", h.handleEvents)
	})
}

// sessionPayload 附带空会话时的提示语
type sessionPayload struct {
	session.Snapshot
	Hint string `json:"hint,omitempty"`
}

func newSessionPayload(snap session.Snapshot) sessionPayload {
	p := sessionPayload{Snapshot: snap}
	if snap.Empty() {
		p.Hint = session.PlaceholderHint
	}
	return p
}

type errorPayload struct {
	Error   string          `json:"error"`
	Reason  string          `json:"reason,omitempty"`
	Session *sessionPayload `json:"session,omitempty"`
}

type phoneRequest struct {
	Phone string `json:"phone"`
}

// handleSnapshot 返回当前会话状态
func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, newSessionPayload(h.ctrl.Snapshot()))
}

// handlePhone 处理电话输入框的修改
func (h *Handler) handlePhone(w http.ResponseWriter, r *http.Request) {
	var payload phoneRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	normalized := h.ctrl.OnPhoneEdited(payload.Phone)
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"phone":   normalized,
		"session": newSessionPayload(h.ctrl.Snapshot()),
	})
}

// handleHistory 加载历史记录
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	var payload phoneRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := h.ctrl.LoadHistory(r.Context(), payload.Phone)
	h.respondOutcome(w, snap, err)
}

// handleSend 提交问题描述与图片
func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxTotalBytes+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.RespondError(w, http.StatusRequestEntityTooLarge, "Arquivo muito grande.")
			return
		}
		utils.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			h.logger.Debug().Err(err).Msg("[widget] failed to remove multipart temp files")
		}
	}()

	images, err := h.readImages(r.MultipartForm.File["images"])
	if err != nil {
		h.respondOutcome(w, h.ctrl.Snapshot(), err)
		return
	}

	snap, err := h.ctrl.SendMessage(r.Context(), session.Submission{
		Phone:   r.FormValue("phone"),
		Problem: r.FormValue("problem"),
		Resin:   r.FormValue("resin"),
		Printer: r.FormValue("printer"),
		Images:  images,
	})
	h.respondOutcome(w, snap, err)
}

// readImages 只读取前 MaxImages 个文件
func (h *Handler) readImages(files []*multipart.FileHeader) ([]conversation.Image, error) {
	if len(files) > conversation.MaxImages {
		files = files[:conversation.MaxImages]
	}

	images := make([]conversation.Image, 0, len(files))
	for _, fh := range files {
		data, err := readUpload(fh, h.limits.MaxImageBytes)
		if err != nil {
			return nil, err
		}
		img, err := attachment.FromBytes(fh.Filename, data, h.limits)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func readUpload(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	var r io.Reader = f
	if limit > 0 {
		r = io.LimitReader(f, limit+1)
	}
	return io.ReadAll(r)
}

// respondOutcome 将控制器的错误分类映射为 HTTP 状态码
func (h *Handler) respondOutcome(w http.ResponseWriter, snap session.Snapshot, err error) {
	payload := newSessionPayload(snap)

	var (
		vErr *session.ValidationError
		bErr *session.BusinessError
		tErr *session.TransportError
	)
	switch {
	case err == nil:
		utils.RespondJSON(w, http.StatusOK, payload)
	case errors.As(err, &vErr):
		utils.RespondJSON(w, http.StatusBadRequest, errorPayload{Error: vErr.Prompt, Reason: vErr.Reason})
	case errors.Is(err, session.ErrSuperseded):
		utils.RespondJSON(w, http.StatusConflict, errorPayload{Error: err.Error(), Session: &payload})
	case errors.As(err, &bErr):
		// the failure is already part of the transcript
		utils.RespondJSON(w, http.StatusOK, payload)
	case errors.As(err, &tErr):
		h.logger.Warn().Err(err).Msg("[widget] helpdesk unreachable")
		utils.RespondJSON(w, http.StatusBadGateway, errorPayload{Error: snap.StatusText, Session: &payload})
	default:
		h.logger.Error().Err(err).Msg("[widget] unexpected controller error")
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
