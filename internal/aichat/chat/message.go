package chat

import (
	"slices"
	"strings"

	"github.com/longkey1/aichat/internal/aichat/template"
	"go.uber.org/zap"
)

// Roles understood by every source. Other roles are kept but logged.
const (
	RoleUser      = "user"
	RoleSystem    = "system"
	RoleAssistant = "assistant"
)

var knownRoles = []string{RoleUser, RoleSystem, RoleAssistant}

// Message represents a single message in a conversation
type Message struct {
	Role    string `yaml:"role"`    // "user", "system" or "assistant"
	Content string `yaml:"content"` // Message content, trimmed
}

// NewMessage normalizes role and content. An unknown role is accepted and
// reported as a warning.
func NewMessage(role, content string) Message {
	m := Message{
		Role:    strings.ToLower(strings.TrimSpace(role)),
		Content: strings.TrimSpace(content),
	}
	if !m.Known() {
		zap.L().Warn("unknown message role",
			zap.String("role", m.Role),
			zap.Strings("valid_roles", knownRoles))
	}
	return m
}

// NewFormattedMessage formats content as a template before normalizing it.
// Tokens without a value stay in the content and are logged.
func NewFormattedMessage(role, content string, data map[string]string) Message {
	tmpl := template.New(content, template.WithMissingPolicy(template.MissingWarn))
	return NewMessage(role, tmpl.Format(data))
}

// Known reports whether the role is one of user, system or assistant.
func (m Message) Known() bool {
	return slices.Contains(knownRoles, m.Role)
}

// IsEmpty reports whether the content is blank.
func (m Message) IsEmpty() bool {
	return strings.TrimSpace(m.Content) == ""
}

// Representation returns the {role, content} form of the message.
func (m Message) Representation() map[string]string {
	return map[string]string{"role": m.Role, "content": m.Content}
}
