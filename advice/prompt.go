package advice

import (
	"fmt"
	"strings"

	"github.com/fabfab/career-agent/llm"
	"github.com/fabfab/career-agent/persona"
)

const noContextMarker = "No specific context available from knowledge base."

func systemPrompt(d persona.Descriptor) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a %s.\n", d.Role)
	fmt.Fprintf(&sb, "Goal: %s.\n", d.Goal)
	sb.WriteString(d.Backstory)
	if len(d.Expertise) > 0 {
		sb.WriteString("\nAreas of expertise: " + strings.Join(d.Expertise, ", ") + ".")
	}
	return sb.String()
}

// contextBlock joins at most maxSnippets non-blank snippets, each cut to
// maxChars runes, and reports how many it kept.
func contextBlock(snippets []string, maxSnippets, maxChars int) (string, int) {
	kept := make([]string, 0, len(snippets))
	for _, s := range snippets {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if maxChars > 0 {
			if runes := []rune(s); len(runes) > maxChars {
				s = string(runes[:maxChars]) + "..."
			}
		}
		kept = append(kept, s)
		if maxSnippets > 0 && len(kept) == maxSnippets {
			break
		}
	}
	if len(kept) == 0 {
		return noContextMarker, 0
	}
	return "\n\n--- Document Context ---\n" + strings.Join(kept, "\n\n"), len(kept)
}

func userPrompt(question, role, context string) string {
	var sb strings.Builder
	sb.WriteString("You are helping a professional with their career question. ")
	fmt.Fprintf(&sb, "Please provide expert advice based on your role as a %s.\n\n", role)
	sb.WriteString("USER QUESTION: ")
	sb.WriteString(question)
	sb.WriteString("\n\nCONTEXT: ")
	sb.WriteString(context)
	sb.WriteString("\n\nPlease provide specific, actionable advice with:\n")
	sb.WriteString("1. Clear recommendations based on your expertise\n")
	sb.WriteString("2. Concrete next steps the user can take\n")
	sb.WriteString("3. Relevant tools, resources, or timeframes\n")
	sb.WriteString("4. Professional, encouraging tone\n\n")
	sb.WriteString("Keep your response comprehensive but focused (under 500 words).")
	return sb.String()
}

func buildMessages(question string, d persona.Descriptor, context string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt(d)},
		{Role: llm.RoleUser, Content: userPrompt(question, d.Role, context)},
	}
}
