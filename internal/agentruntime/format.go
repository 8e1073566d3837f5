package agentruntime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const codeFence = "```"

var displayEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// FormatBotReply renders the first code fence as an opening <pre><code>
// tag and the next one as its closing tag. Later fences are left alone.
func FormatBotReply(reply string) string {
	if !strings.Contains(reply, codeFence) {
		return reply
	}
	reply = strings.Replace(reply, codeFence, "<pre><code>", 1)
	return strings.Replace(reply, codeFence, "</code></pre>", 1)
}

// EscapeForDisplay escapes the HTML-sensitive characters & < > " '
func EscapeForDisplay(text string) string {
	return displayEscaper.Replace(text)
}

// SafeMessage renders input as indented JSON, escapes it and wraps it in
// <input> tags for embedding in an agent prompt.
func SafeMessage(input any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(input); err != nil {
		return "", fmt.Errorf("failed to encode agent input: %w", err)
	}
	body := strings.TrimSuffix(buf.String(), "\n")
	return "<input>\n" + EscapeForDisplay(body) + "\n</input>", nil
}
