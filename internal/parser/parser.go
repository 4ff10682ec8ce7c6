// Package parser extracts frontmatter and wiki-links from Markdown notes and
// rewrites wiki-links into HTML anchors.
package parser

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/grove/internal/models"
)

// wikilinkRe matches [[Target]] and [[Alias|Target]]. Neither segment may
// contain a bracket; there is no escaping.
var wikilinkRe = regexp.MustCompile(`\[\[([^\]\[]+\|)?([^\]\[]+)\]\]`)

// Link is one wiki-link occurrence.
type Link struct {
	Target string
	Alias  string // equals Target when the link has no alias
}

// Resolver maps a link target to its destination URL. ok is false when the
// target does not exist.
type Resolver func(target string) (href string, ok bool)

// Result holds the output of parsing a Markdown note.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Links       []models.NoteName
	Title       string
}

// Parse extracts frontmatter, body, outbound link targets, and title from raw
// Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Links:       extractTargets(body),
		Title:       deriveTitle(fm, body),
	}, nil
}

// Links returns every wiki-link in text in order of appearance.
func Links(text string) []Link {
	matches := wikilinkRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]Link, 0, len(matches))
	for _, m := range matches {
		out = append(out, toLink(m[1], m[2]))
	}
	return out
}

// Rewrite replaces every wiki-link in text with an anchor whose visible text
// is the alias (or target) and whose href comes from resolve(target).
// Unresolved targets become a dead-link span.
func Rewrite(text string, resolve Resolver) string {
	return wikilinkRe.ReplaceAllStringFunc(text, func(match string) string {
		m := wikilinkRe.FindStringSubmatch(match)
		link := toLink(m[1], m[2])
		href, ok := resolve(link.Target)
		if !ok {
			return `<span class="dead-link">` + link.Alias + `</span>`
		}
		return `<a href="` + html.EscapeString(href) + `">` + link.Alias + `</a>`
	})
}

func toLink(aliasGroup, target string) Link {
	if aliasGroup == "" {
		return Link{Target: target, Alias: target}
	}
	return Link{Target: target, Alias: strings.TrimSuffix(aliasGroup, "|")}
}

// extractTargets returns deduplicated link targets in order of first appearance.
func extractTargets(body string) []models.NoteName {
	links := Links(body)
	seen := make(map[models.NoteName]struct{}, len(links))
	var out []models.NoteName
	for _, l := range links {
		name := models.NoteName(strings.TrimSpace(l.Target))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: keep everything as body.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return s
			}
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
