package electiondata

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const defaultTitle = "ElectionSathi"

// SystemPrompt establishes the assistant persona, its neutrality rules and
// answer scope, followed by the data briefing when there is one.
func SystemPrompt(title, briefing string) string {
	if strings.TrimSpace(title) == "" {
		title = defaultTitle
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a helpful, nonpartisan election assistant providing election insights, simplified. Your role is to:\n", title)
	b.WriteString("- Provide accurate information about voting procedures, registration, and deadlines\n")
	b.WriteString("- Share details about polling locations and voting requirements\n")
	b.WriteString("- Explain ballot measures and electoral processes\n")
	b.WriteString("- Maintain strict political neutrality\n")
	b.WriteString("- Never recommend specific candidates or parties\n")
	b.WriteString("- Be concise and helpful\n\n")
	b.WriteString("Keep responses brief and focused. If you don't have specific information, direct users to official election websites or local election offices.")
	if briefing = strings.TrimSpace(briefing); briefing != "" {
		b.WriteString("\n\nYou have access to the following election data:\n")
		b.WriteString(briefing)
	}
	return b.String()
}

// Prompter renders the system prompt from the loader's cached snapshot.
type Prompter struct {
	loader *Loader
}

func NewPrompter(l *Loader) (*Prompter, error) {
	if l == nil {
		return nil, errors.New("electiondata: loader must not be nil")
	}
	return &Prompter{loader: l}, nil
}

func (p *Prompter) SystemPrompt(ctx context.Context, title string) (string, error) {
	snap, err := p.loader.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	return SystemPrompt(title, Format(snap)), nil
}
