package services

import (
	"regexp"
	"sort"

	"github.com/microcosm-cc/bluemonday"
)

var (
	mentionPattern = regexp.MustCompile(`@([a-zA-Z0-9_]{3,})`)

	// richText - what the editor is allowed to produce.
	richText = newRichTextPolicy()
)

func newRichTextPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").OnElements("div", "span", "code", "pre")
	p.AllowAttrs("align").OnElements("div", "p")
	p.AllowStyles("text-align").OnElements("div", "span", "p")
	p.AllowAttrs("target").OnElements("a")
	return p
}

// SanitizeHTML strips markup the rich text editor cannot produce.
func SanitizeHTML(content string) string {
	return richText.Sanitize(content)
}

// ExtractMentions returns the distinct @usernames in content, sorted.
func ExtractMentions(content string) []string {
	seen := make(map[string]struct{})
	for _, m := range mentionPattern.FindAllStringSubmatch(content, -1) {
		seen[m[1]] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
