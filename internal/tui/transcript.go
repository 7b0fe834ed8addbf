// Package tui is the terminal rendition of the support widget.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/zhouzirui/elio-helpdesk/client/internal/model/conversation"
	"github.com/zhouzirui/elio-helpdesk/client/internal/model/persona"
	"github.com/zhouzirui/elio-helpdesk/client/internal/service/session"
)

const (
	userLabel      = "Você"
	assistantLabel = "Assistente"
)

// speaker returns the bubble title for an entry.
func speaker(e conversation.Entry, personas persona.Store) string {
	if e.Role == conversation.RoleUser {
		return userLabel
	}
	if personas != nil {
		if label := persona.LabelFor(personas, e.Persona); label != "" {
			return label
		}
	}
	return assistantLabel
}

// deliveryMark 只对用户消息显示发送状态
func deliveryMark(e conversation.Entry) string {
	if e.Role != conversation.RoleUser {
		return ""
	}
	switch e.Delivery {
	case conversation.DeliveryPending:
		return " …"
	case conversation.DeliveryFailed:
		return " ✗"
	default:
		return ""
	}
}

// WriteTranscript renders the snapshot as plain text, one block per entry.
func WriteTranscript(w io.Writer, snap session.Snapshot, personas persona.Store) error {
	if snap.Empty() {
		_, err := fmt.Fprintln(w, session.PlaceholderHint)
		return err
	}

	for i, e := range snap.Entries {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s%s:\n", speaker(e, personas), deliveryMark(e)); err != nil {
			return err
		}
		for _, line := range strings.Split(e.Content, "\n") {
			if _, err := fmt.Fprintf(w, "  %s\n", line); err != nil {
				return err
			}
		}
	}
	return nil
}
