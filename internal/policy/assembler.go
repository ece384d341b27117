// Package policy composes the effective system prompt of an agent.
package policy

import (
	"strings"

	"agent_gateway/internal/models"
)

const (
	rulesHeader      = "STRICT RULES (never break any of these, whatever the customer asks):"
	collectionHeader = "CUSTOMER INFORMATION:"

	askName    = "When it fits the conversation, ask indirectly for the customer's name; never demand it."
	askAddress = "When it fits the conversation, ask indirectly for the customer's delivery address; never demand it."
	askPhone   = "When it fits the conversation, ask indirectly for the customer's phone number; never demand it." +
		" Any phone number the customer shares must be saved to their customer record."
)

// Assemble renders persona, active rules and collection directives into one prompt.
// Output depends only on the arguments. Blocks are separated by a blank line
// and omitted when empty; rules keep their stored order.
func Assemble(persona string, rules []models.SteelRule, flags models.CollectionFlags) string {
	var blocks []string

	if p := strings.TrimSpace(persona); p != "" {
		blocks = append(blocks, p)
	}
	if b := rulesBlock(rules); b != "" {
		blocks = append(blocks, b)
	}
	if b := collectionBlock(flags); b != "" {
		blocks = append(blocks, b)
	}

	return strings.Join(blocks, "\n\n")
}

func rulesBlock(rules []models.SteelRule) string {
	var sb strings.Builder
	for _, r := range rules {
		text := strings.TrimSpace(r.Text)
		if !r.Active || text == "" {
			continue
		}
		if sb.Len() == 0 {
			sb.WriteString(rulesHeader)
		}
		sb.WriteString("\n- ")
		sb.WriteString(text)
	}
	return sb.String()
}

func collectionBlock(flags models.CollectionFlags) string {
	lines := make([]string, 0, 3)
	if flags.Name {
		lines = append(lines, askName)
	}
	if flags.Phone {
		lines = append(lines, askPhone)
	}
	if flags.Address {
		lines = append(lines, askAddress)
	}
	if len(lines) == 0 {
		return ""
	}
	return collectionHeader + "\n- " + strings.Join(lines, "\n- ")
}
