package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/credobot/credo/internal/domain"
)

const (
	// PromptBeliefCap and PromptStatementCap bound the rendered sections.
	PromptBeliefCap    = 10
	PromptStatementCap = 3
	// RefLinkCapPerGroup caps extracted reference URLs per source group.
	RefLinkCapPerGroup = 5
)

var markdownLinkRe = regexp.MustCompile(`\[[^\]]*\]\((https?://[^)\s]+)\)`)

// AssemblePrompt renders the assembled context into the structured prompt the
// language-model caller consumes. Section order and caps are part of the
// contract: identity, writing rules, voice examples, beliefs, past
// statements, thread, reference links.
func (s *ContextService) AssemblePrompt(cfg domain.PersonaConfig, a *domain.AssembledContext) string {
	var b strings.Builder

	b.WriteString("## Identity\n")
	b.WriteString("You are " + cfg.Name + ".\n")
	if cfg.Background != "" {
		b.WriteString(cfg.Background + "\n")
	}

	if len(cfg.WritingRules) > 0 {
		b.WriteString("\n## Writing rules\n")
		for i, rule := range cfg.WritingRules {
			fmt.Fprintf(&b, "%d. %s\n", i+1, rule)
		}
	}

	if len(cfg.VoiceExamples) > 0 {
		b.WriteString("\n## Voice examples\n")
		for _, ex := range cfg.VoiceExamples {
			b.WriteString("> " + ex + "\n")
		}
	}

	if len(a.Beliefs) > 0 {
		b.WriteString("\n## Current beliefs\n")
		for i, belief := range a.Beliefs {
			if i >= PromptBeliefCap {
				break
			}
			if belief.CurrentConfidence != nil {
				fmt.Fprintf(&b, "- %s (confidence %.2f)\n", belief.Title, *belief.CurrentConfidence)
			} else {
				fmt.Fprintf(&b, "- %s\n", belief.Title)
			}
		}
	}

	if len(a.PastStatements) > 0 {
		b.WriteString("\n## Past statements\n")
		for i, past := range a.PastStatements {
			if i >= PromptStatementCap {
				break
			}
			fmt.Fprintf(&b, "- %q (similarity %.2f)\n", past.Content, past.Similarity)
		}
	}

	b.WriteString("\n## Thread\n")
	fmt.Fprintf(&b, "Community: %s\n", a.Thread.Container)
	if a.Thread.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", a.Thread.Title)
	}
	if a.Thread.Body != "" {
		fmt.Fprintf(&b, "Body: %s\n", a.Thread.Body)
	}
	if a.Thread.ParentText != "" {
		fmt.Fprintf(&b, "Replying to: %s\n", a.Thread.ParentText)
	}

	personaLinks := extractLinks(cfg.Background + "\n" + strings.Join(cfg.WritingRules, "\n"))
	threadLinks := extractLinks(a.Thread.Title + "\n" + a.Thread.Body + "\n" + a.Thread.ParentText)
	if len(personaLinks) > 0 || len(threadLinks) > 0 {
		b.WriteString("\n## Reference links\n")
		for _, url := range personaLinks {
			b.WriteString("- " + url + "\n")
		}
		for _, url := range threadLinks {
			b.WriteString("- " + url + "\n")
		}
	}

	return b.String()
}

// extractLinks pulls markdown-style link URLs out of text, deduplicated by
// URL and capped per source group.
func extractLinks(text string) []string {
	matches := markdownLinkRe.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{}, len(matches))
	links := []string{}
	for _, m := range matches {
		url := m[1]
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		links = append(links, url)
		if len(links) >= RefLinkCapPerGroup {
			break
		}
	}
	return links
}
