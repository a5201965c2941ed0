package jira

import (
	"encoding/json"
	"strings"
)

// adfNode is a node of an Atlassian Document Format tree.
type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text"`
	Content []adfNode `json:"content"`
}

// blockTypes end with a line break when flattened.
var blockTypes = map[string]bool{
	"paragraph":  true,
	"heading":    true,
	"listItem":   true,
	"codeBlock":  true,
	"blockquote": true,
	"rule":       true,
}

// DescriptionText returns the description as plain text. REST v3 sends an
// ADF document; v2 and some proxies send a plain string. The second result
// is false when the description is absent or null.
func (f IssueFields) DescriptionText() (string, bool) {
	raw := f.Description
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}

	var doc adfNode
	if err := json.Unmarshal(raw, &doc); err != nil {
		return string(raw), true
	}
	var b strings.Builder
	flattenADF(&b, doc)
	return strings.TrimRight(b.String(), "\n"), true
}

func flattenADF(b *strings.Builder, n adfNode) {
	switch n.Type {
	case "text":
		b.WriteString(n.Text)
	case "hardBreak":
		b.WriteString("\n")
	}
	for _, child := range n.Content {
		flattenADF(b, child)
	}
	if blockTypes[n.Type] {
		b.WriteString("\n")
	}
}
