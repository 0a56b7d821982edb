package domain

import "strings"

// AssembledContent is the outcome of parsing the model's drafted bounty
// sections. Degraded marks a best-effort result whose essential sections are
// missing; callers must not treat a degraded result as fully valid content.
type AssembledContent struct {
	BountyContent

	// Degraded is true when the response yielded no title or no
	// requirements. Raw then carries the unparsed response for diagnosis.
	Degraded bool
	Raw      string
}

type section int

const (
	sectionNone section = iota
	sectionTitle
	sectionDescription
	sectionRequirements
	sectionTags
)

// sectionParser is a line-oriented state machine over the model's output.
// Header lines switch the current section; other lines feed it. Anything
// outside a known section is ignored.
type sectionParser struct {
	current section
	content BountyContent
}

func (p *sectionParser) feed(line string) {
	switch {
	case strings.Contains(line, "**Title**"):
		p.current = sectionTitle
		return
	case strings.Contains(line, "**Description**"):
		p.current = sectionDescription
		return
	case strings.Contains(line, "**Requirements**"):
		p.current = sectionRequirements
		return
	case strings.Contains(line, "**Tags**"):
		p.current = sectionTags
		return
	}

	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}

	switch p.current {
	case sectionTitle:
		p.content.Title = trimmed
	case sectionDescription:
		if p.content.Description != "" {
			p.content.Description += "\n"
		}
		p.content.Description += trimmed
	case sectionRequirements:
		if after, ok := strings.CutPrefix(trimmed, "-"); ok {
			p.content.Requirements = append(p.content.Requirements, strings.TrimSpace(after))
		}
	case sectionTags:
		// Each tag line replaces the list; only the last line survives.
		var tags []string
		for _, tag := range strings.Split(trimmed, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
		p.content.Tags = tags
	}
}

// ParseBountySections parses the model's sectioned response. Missing sections
// yield empty fields, never an error; the result is flagged degraded instead.
func ParseBountySections(raw string) AssembledContent {
	var p sectionParser
	for _, line := range strings.Split(raw, "\n") {
		p.feed(line)
	}

	return AssembledContent{
		BountyContent: p.content,
		Degraded:      p.content.Title == "" || len(p.content.Requirements) == 0,
		Raw:           raw,
	}
}

// BuildPostData merges the candidates' original texts into per-author lists
// with set semantics: no string repeats within an author's list, even when
// the same text showed up in several candidates. First-seen order is kept.
func BuildPostData(candidates []RankedCandidate) map[string][]string {
	data := make(map[string][]string, len(candidates))
	seen := make(map[string]map[string]struct{}, len(candidates))

	for _, c := range candidates {
		if seen[c.Author] == nil {
			seen[c.Author] = make(map[string]struct{})
		}
		for _, text := range c.OriginalTexts {
			if _, dup := seen[c.Author][text]; dup {
				continue
			}
			seen[c.Author][text] = struct{}{}
			data[c.Author] = append(data[c.Author], text)
		}
	}
	return data
}
