package roles

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// historyText flattens the most recent conversation turns into the
// plain transcript format the prompt templates expect.
func historyText(messages []*schema.Message, maxTurns int) string {
	recent := trimTail(messages, maxTurns)

	var b strings.Builder
	for _, msg := range recent {
		if msg == nil || msg.Content == "" {
			continue
		}
		switch msg.Role {
		case schema.User:
			b.WriteString("user: " + msg.Content + "\n")
		case schema.Assistant:
			b.WriteString("assistant: " + msg.Content + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// trimTail keeps the last maxTurns turns, where a turn is a user
// message plus the assistant reply. The session store trims with the
// same budget, so prompts see the full retained tail.
func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	keep := maxTurns * 2
	if maxTurns <= 0 || len(messages) <= keep {
		return messages
	}
	return messages[len(messages)-keep:]
}
