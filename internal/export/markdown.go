// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// markdown.go - Markdown transcript export with YAML frontmatter.

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/aerochat/internal/model"
	"github.com/jeranaias/aerochat/internal/segment"
	"github.com/jeranaias/aerochat/internal/tools"
)

// MarkdownExporter renders a session as a markdown document: frontmatter,
// a session information block, then the transcript with one heading per
// message. Prose passes through verbatim since it is already markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter builds an exporter from opts; nil opts means defaults.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export renders the whole session to a markdown byte slice.
func (e *MarkdownExporter) Export(sess *model.Session) ([]byte, error) {
	if sess == nil {
		return nil, fmt.Errorf("session is nil")
	}
	if len(sess.Messages) == 0 {
		return nil, fmt.Errorf("session has no messages")
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		e.writeFrontmatter(&sb, sess)
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(sess.GetTitle()))

	if e.options.IncludeMetadata {
		e.writeSessionInfo(&sb, sess)
	}

	sb.WriteString("## Conversation\n\n")
	for i, msg := range sess.Messages {
		if msg == nil {
			continue
		}
		e.writeMessage(&sb, msg)
		if i < len(sess.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	fmt.Fprintf(&sb, "\n---\n\n*Exported from aerochat on %s*\n",
		time.Now().Format("January 2, 2006 at 3:04 PM"))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string { return ".md" }

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string { return "text/markdown" }

// writeFrontmatter emits the YAML block tools like Obsidian index.
// SECURITY: The title is the only user-influenced value and goes through
// escapeYAML, so a newline in it cannot smuggle extra keys in.
func (e *MarkdownExporter) writeFrontmatter(sb *strings.Builder, sess *model.Session) {
	sb.WriteString("---\n")
	fmt.Fprintf(sb, "title: %s\n", escapeYAML(sess.GetTitle()))
	fmt.Fprintf(sb, "provider: %s\n", sess.Provider)
	fmt.Fprintf(sb, "model: %s\n", sess.Model)
	fmt.Fprintf(sb, "date: %s\n", sess.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(sb, "updated: %s\n", sess.UpdatedAt.Format(time.RFC3339))
	fmt.Fprintf(sb, "messages: %d\n", len(sess.Messages))
	if sess.TokensUsed > 0 {
		fmt.Fprintf(sb, "tokens: %d\n", sess.TokensUsed)
	}
	fmt.Fprintf(sb, "exported: %s\n", time.Now().Format(time.RFC3339))
	sb.WriteString("generator: aerochat\n")
	sb.WriteString("---\n\n")
}

// writeSessionInfo emits the human-readable metadata list under the title.
func (e *MarkdownExporter) writeSessionInfo(sb *strings.Builder, sess *model.Session) {
	sb.WriteString("## Session Information\n\n")
	fmt.Fprintf(sb, "- **Provider**: %s\n", sess.Provider.DisplayName())
	fmt.Fprintf(sb, "- **Model**: %s\n", sess.Model)
	fmt.Fprintf(sb, "- **Created**: %s\n", formatTimestamp(sess.CreatedAt))
	fmt.Fprintf(sb, "- **Last Updated**: %s\n", formatTimestamp(sess.UpdatedAt))
	fmt.Fprintf(sb, "- **Messages**: %d\n", len(sess.Messages))
	if sess.TokensUsed > 0 {
		fmt.Fprintf(sb, "- **Tokens Used**: %d\n", sess.TokensUsed)
	}
	sb.WriteString("\n---\n\n")
}

// writeMessage emits one transcript entry: heading, optional reasoning
// trace, content, tool calls, and stats.
func (e *MarkdownExporter) writeMessage(sb *strings.Builder, msg *model.Message) {
	header := "### " + roleLabel(msg.Role)
	if e.options.IncludeTimestamps {
		header += fmt.Sprintf(" <sub>%s</sub>", formatShortTimestamp(msg.Timestamp))
	}
	sb.WriteString(header + "\n\n")

	// Reasoning trace, collapsed so it doesn't swamp the transcript
	if e.options.IncludeThinking && msg.Thinking != "" {
		fmt.Fprintf(sb, "<details>\n<summary>Reasoning</summary>\n\n%s\n\n</details>\n\n",
			strings.TrimSpace(msg.Thinking))
	}

	content := msg.GetDisplayContent()
	if content == "" && msg.Role == model.RoleTool {
		sb.WriteString(e.formatToolMessage(msg))
		sb.WriteString("\n")
	} else {
		sb.WriteString(e.formatMessageContent(content))
		sb.WriteString("\n\n")
	}

	// Tool invocations captured from the provider's structured stream;
	// in-band markers in the content are already chips by now.
	for _, tc := range msg.ToolCalls {
		sb.WriteString(e.formatToolCall(tc.Name, tc.ArgsJSON))
		sb.WriteString("\n")
	}
	if len(msg.ToolCalls) > 0 {
		sb.WriteString("\n")
	}

	if msg.Role == model.RoleAssistant && e.options.IncludeMetadata {
		if stats := collectStats(msg); len(stats) > 0 {
			fmt.Fprintf(sb, "<sub>Stats: %s</sub>\n\n", strings.Join(stats, " | "))
		}
	}
}

// formatMessageContent renders message text: prose passes through verbatim
// (it is already markdown), tool markers become chip lines. The same
// splitter carves the text here as on the terminal.
func (e *MarkdownExporter) formatMessageContent(content string) string {
	segs := segment.Split(content)
	if len(segs) == 0 {
		return strings.TrimSpace(content)
	}

	pieces := make([]string, 0, len(segs))
	for _, seg := range segs {
		if seg.Kind == segment.KindToolChip {
			pieces = append(pieces, e.formatToolCall(seg.ToolName, seg.ArgsJSON))
		} else {
			pieces = append(pieces, strings.TrimSpace(seg.Text))
		}
	}
	return strings.Join(pieces, "\n\n")
}

// formatToolCall renders one tool invocation as a chip line.
func (e *MarkdownExporter) formatToolCall(name, argsJSON string) string {
	label := name
	if tool, ok := tools.Lookup(name); ok {
		label = tool.Label
	}
	preview := tools.ArgsPreview(name, argsJSON)
	if preview == "" {
		return fmt.Sprintf("> ⚙ **%s**", escapeMarkdown(label))
	}
	return fmt.Sprintf("> ⚙ **%s** `%s`", escapeMarkdown(label), preview)
}

// formatToolMessage renders a tool result message with status and output.
func (e *MarkdownExporter) formatToolMessage(msg *model.Message) string {
	out := fmt.Sprintf("**Tool**: `%s`\n\n", msg.ToolName)
	if msg.ToolResult == "" {
		return out
	}
	status := "[OK]"
	if !msg.IsSuccess {
		status = "[FAIL]"
	}
	return out + fmt.Sprintf("**Result** %s:\n```\n%s\n```\n", status, msg.ToolResult)
}

// =============================================================================
// ESCAPING
// =============================================================================

// markdownEscaper neutralizes the characters that would change heading or
// emphasis structure when a title lands in markdown.
var markdownEscaper = strings.NewReplacer(
	"#", "\\#",
	"*", "\\*",
	"_", "\\_",
	"[", "\\[",
	"]", "\\]",
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// yamlEscaper handles the characters that must not appear bare inside a
// double-quoted YAML scalar.
var yamlEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"\"", "\\\"",
	"\n", "\\n",
	"\r", "\\r",
)

// escapeYAML quotes a frontmatter value when it could otherwise change the
// document structure. Newlines are escaped so a hostile title cannot inject
// additional keys.
func escapeYAML(s string) string {
	plain := !strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") &&
		!strings.HasPrefix(s, " ") && !strings.HasSuffix(s, " ")
	if plain {
		return s
	}
	return "\"" + yamlEscaper.Replace(s) + "\""
}
