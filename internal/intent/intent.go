// Package intent classifies free-text chat messages into build, research, or
// general intents.
//
// Classification is ordered first-match-wins: build patterns are tried
// top-to-bottom, then research patterns, and the first hit short-circuits the
// rest. Ambiguous messages ("build a research tool") therefore always resolve
// to the earliest-listed rule. The ordering is part of the contract; do not
// reorder the pattern lists.
package intent

import (
	"regexp"
	"strings"
)

// Kind is the classified purpose of a chat message.
type Kind string

const (
	KindBuild    Kind = "build"
	KindResearch Kind = "research"
	KindGeneral  Kind = "general"
)

// Intent is the ephemeral classification result for one message. It is
// produced and consumed within a single request and never persisted.
type Intent struct {
	Kind        Kind
	ProjectName string
	Description string
	Topic       string
}

// DefaultProjectName is used when a build trigger matches but carries no
// usable project name remainder.
const DefaultProjectName = "untitled-project"

// maxSlugTokens caps how many words of the matched remainder become the
// project-name slug.
const maxSlugTokens = 5

var buildPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bbuild\s+(me\s+)?(?:a\s+|an\s+)?(.+)`),
	regexp.MustCompile(`(?i)\bcreate\s+(me\s+)?(?:a\s+|an\s+)?(?:project|app|website|api|service)\b`),
	regexp.MustCompile(`(?i)\bscaffold\s+`),
	regexp.MustCompile(`(?i)\bgenerate\s+(?:a\s+)?project\b`),
	regexp.MustCompile(`(?i)\bstart\s+(?:a\s+)?new\s+project\b`),
}

var researchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bresearch\b`),
	regexp.MustCompile(`(?i)\blook\s*up\b`),
	regexp.MustCompile(`(?i)\bfind\s+(?:info|information|articles|resources)\b`),
	regexp.MustCompile(`(?i)\bwhat\s+(?:is|are)\b`),
	regexp.MustCompile(`(?i)\bhow\s+(?:does|do|to)\b`),
}

// Classify detects the intent of a chat message.
//
// A build match yields the full message as the description and a slug derived
// from the matched remainder; a research match yields the full message as the
// topic; anything else is general.
func Classify(message string) Intent {
	message = strings.TrimSpace(message)

	for _, pattern := range buildPatterns {
		m := pattern.FindStringSubmatch(message)
		if m == nil {
			continue
		}

		name := DefaultProjectName
		if len(m) > 2 {
			if slug := Slugify(m[2]); slug != "" {
				name = slug
			}
		}
		return Intent{
			Kind:        KindBuild,
			ProjectName: name,
			Description: message,
		}
	}

	for _, pattern := range researchPatterns {
		if pattern.MatchString(message) {
			return Intent{Kind: KindResearch, Topic: message}
		}
	}

	return Intent{Kind: KindGeneral}
}

// Slugify normalizes a matched project name: whitespace-collapsed, truncated
// to five tokens, hyphen-joined, lowercased.
func Slugify(raw string) string {
	tokens := strings.Fields(raw)
	if len(tokens) > maxSlugTokens {
		tokens = tokens[:maxSlugTokens]
	}
	return strings.ToLower(strings.Join(tokens, "-"))
}
