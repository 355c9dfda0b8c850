package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/medscribe/internal/models"
)

// ChatLog is the ordered refinement conversation of one session.
type ChatLog struct {
	messages      []models.ChatMessage
	modifications []models.Modification
}

// Append adds a message to the end of the log.
func (c *ChatLog) Append(msg models.ChatMessage) {
	c.messages = append(c.messages, msg)
}

// Messages returns a copy of every message in order.
func (c *ChatLog) Messages() []models.ChatMessage {
	out := make([]models.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *ChatLog) Len() int { return len(c.messages) }

// Window returns the last n messages, or all of them when n <= 0 or fewer exist.
func (c *ChatLog) Window(n int) []models.ChatMessage {
	msgs := c.messages
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]models.ChatMessage, len(msgs))
	copy(out, msgs)
	return out
}

// LastReplacement returns the most recent assistant message flagged as a full report.
func (c *ChatLog) LastReplacement() (models.ChatMessage, bool) {
	for i := len(c.messages) - 1; i >= 0; i-- {
		if m := c.messages[i]; m.Role == models.RoleAssistant && m.Replacement {
			return m, true
		}
	}
	return models.ChatMessage{}, false
}

// Clear drops every message and recorded modification.
func (c *ChatLog) Clear() {
	c.messages = nil
	c.modifications = nil
}

// RecordModification notes that report was applied from the conversation.
func (c *ChatLog) RecordModification(report string, at time.Time) {
	c.modifications = append(c.modifications, models.Modification{AppliedAt: at, Report: report})
}

// Modifications returns a copy of the applied modifications in order.
func (c *ChatLog) Modifications() []models.Modification {
	out := make([]models.Modification, len(c.modifications))
	copy(out, c.modifications)
	return out
}

// Summary renders a short account of the conversation for inclusion in reports.
// Returns "" when there has been no conversation.
func (c *ChatLog) Summary() string {
	if len(c.messages) == 0 {
		return ""
	}
	lines := []string{"CLINICAL DISCUSSION SUMMARY:", ""}
	if len(c.modifications) > 0 {
		lines = append(lines, "Modifications made through AI consultation:")
		for i, m := range c.modifications {
			lines = append(lines, fmt.Sprintf("%d. [Modification applied via chat at %s]", i+1, m.AppliedAt.Format("2006-01-02 15:04")))
		}
		lines = append(lines, "")
	}
	lines = append(lines, fmt.Sprintf("Total chat interactions: %d messages", len(c.messages)))
	return strings.Join(lines, "\n")
}
