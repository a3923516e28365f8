// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// html.go - Self-contained HTML transcript export. The page embeds its
// stylesheet and a small theme toggle script; there are no external
// resources, so the file can be mailed or archived as is.

package export

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jeranaias/aerochat/internal/model"
	"github.com/jeranaias/aerochat/internal/sanitize"
	"github.com/jeranaias/aerochat/internal/segment"
	"github.com/jeranaias/aerochat/internal/tools"
)

// HTMLExporter renders a session as a standalone HTML page.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter builds an exporter from opts; nil opts means defaults.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// Export renders the whole session to an HTML byte slice.
func (e *HTMLExporter) Export(sess *model.Session) ([]byte, error) {
	if sess == nil {
		return nil, fmt.Errorf("session is nil")
	}
	if len(sess.Messages) == 0 {
		return nil, fmt.Errorf("session has no messages")
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", sanitize.Clean(sess.GetTitle()))
	sb.WriteString("    <meta name=\"generator\" content=\"aerochat\">\n")
	fmt.Fprintf(&sb, "    <meta name=\"date\" content=\"%s\">\n", sess.CreatedAt.Format(time.RFC3339))
	sb.WriteString(htmlStyles)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n", e.themeClass())

	sb.WriteString("    <div class=\"container\">\n")
	if e.options.IncludeMetadata {
		e.writeHeader(&sb, sess)
	}

	sb.WriteString("        <main class=\"conversation\">\n")
	for _, msg := range sess.Messages {
		if msg == nil {
			continue
		}
		e.writeMessage(&sb, msg)
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	fmt.Fprintf(&sb, "            <p>Exported from <strong>aerochat</strong> on %s</p>\n",
		time.Now().Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")

	sb.WriteString(htmlScript)
	sb.WriteString("</body>\n</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string { return ".html" }

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string { return "text/html" }

// themeClass maps the configured theme to a body class, defaulting to dark.
func (e *HTMLExporter) themeClass() string {
	if e.options.Theme == "light" {
		return "light"
	}
	return "dark"
}

// =============================================================================
// PAGE SECTIONS
// =============================================================================

// writeHeader emits the session title bar with its metadata row.
func (e *HTMLExporter) writeHeader(sb *strings.Builder, sess *model.Session) {
	sb.WriteString("        <header class=\"header\">\n")
	fmt.Fprintf(sb, "            <h1>%s</h1>\n", sanitize.Clean(sess.GetTitle()))
	sb.WriteString("            <div class=\"metadata\">\n")
	fmt.Fprintf(sb, "                <span class=\"meta-item\"><strong>Provider:</strong> %s</span>\n", sanitize.Clean(sess.Provider.DisplayName()))
	fmt.Fprintf(sb, "                <span class=\"meta-item\"><strong>Model:</strong> %s</span>\n", sanitize.Clean(sess.Model))
	fmt.Fprintf(sb, "                <span class=\"meta-item\"><strong>Created:</strong> %s</span>\n", formatTimestamp(sess.CreatedAt))
	fmt.Fprintf(sb, "                <span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", len(sess.Messages))
	if sess.TokensUsed > 0 {
		fmt.Fprintf(sb, "                <span class=\"meta-item\"><strong>Tokens:</strong> %d</span>\n", sess.TokensUsed)
	}
	sb.WriteString("                <button class=\"theme-toggle\" onclick=\"toggleTheme()\" title=\"Toggle theme\">[Theme]</button>\n")
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")
}

// writeMessage emits one message bubble.
func (e *HTMLExporter) writeMessage(sb *strings.Builder, msg *model.Message) {
	fmt.Fprintf(sb, "            <div class=\"message %s-message\">\n", strings.ToLower(string(msg.Role)))

	sb.WriteString("                <div class=\"message-header\">\n")
	fmt.Fprintf(sb, "                    <span class=\"role-label\">%s</span>\n", roleLabel(msg.Role))
	if e.options.IncludeTimestamps {
		fmt.Fprintf(sb, "                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(msg.Timestamp))
	}
	sb.WriteString("                </div>\n")

	// Collapsed reasoning trace
	if e.options.IncludeThinking && msg.Thinking != "" {
		sb.WriteString("                <details class=\"thinking\">\n")
		sb.WriteString("                    <summary>Reasoning</summary>\n")
		fmt.Fprintf(sb, "                    <pre>%s</pre>\n", sanitize.Clean(msg.Thinking))
		sb.WriteString("                </details>\n")
	}

	sb.WriteString("                <div class=\"message-content\">\n")
	content := msg.GetDisplayContent()
	if content == "" && msg.Role == model.RoleTool {
		sb.WriteString(e.formatToolMessage(msg))
	} else {
		sb.WriteString(e.formatContent(content))
	}
	sb.WriteString("                </div>\n")

	// Tool invocations the model requested
	for _, tc := range msg.ToolCalls {
		sb.WriteString(e.renderToolChip(tc.Name, tc.ArgsJSON))
	}

	if msg.Role == model.RoleAssistant && e.options.IncludeMetadata {
		if stats := collectStats(msg); len(stats) > 0 {
			sb.WriteString("                <div class=\"message-stats\">\n")
			for _, s := range stats {
				fmt.Fprintf(sb, "                    <span class=\"stat\">%s</span>\n", s)
			}
			sb.WriteString("                </div>\n")
		}
	}

	sb.WriteString("            </div>\n")
}

// =============================================================================
// CONTENT FORMATTING
// =============================================================================

// inlineCodeRegex matches `code` spans inside already-escaped prose.
var inlineCodeRegex = regexp.MustCompile("`([^`]+)`")

// formatContent formats message content: tool markers become chips, fenced
// code blocks become bordered <pre> blocks, and the prose in between becomes
// paragraphs. The same splitter carves the text here as on the terminal, so
// an export never disagrees with the live view about where a block starts.
func (e *HTMLExporter) formatContent(content string) string {
	segs := segment.Split(content)
	if len(segs) == 0 {
		// Whitespace-only content still occupies its message bubble.
		return "<p>" + sanitize.Clean(strings.TrimSpace(content)) + "</p>\n"
	}

	var sb strings.Builder
	for _, seg := range segs {
		if seg.Kind == segment.KindToolChip {
			sb.WriteString(e.renderToolChip(seg.ToolName, seg.ArgsJSON))
			continue
		}
		e.writeProse(&sb, seg.Text)
	}
	return sb.String()
}

// writeProse carves one prose segment into fenced code chunks and paragraph
// runs, then renders each.
func (e *HTMLExporter) writeProse(sb *strings.Builder, text string) {
	res := segment.Finalize(text, true)
	chunks := res.Finalized
	if tail := strings.TrimSpace(res.InProgress); tail != "" {
		// The message has settled, so the volatile tail is just the last
		// chunk: trailing prose, or a fence that never closed.
		chunks = append(chunks, res.InProgress)
	}

	for _, chunk := range chunks {
		if strings.HasPrefix(chunk, "```") {
			sb.WriteString(e.renderCodeBlock(chunk))
		} else {
			sb.WriteString(e.renderParagraphs(chunk))
		}
	}
}

// renderCodeBlock renders a fenced chunk as a labeled code block. The body
// is escaped, never parsed.
func (e *HTMLExporter) renderCodeBlock(chunk string) string {
	lang := ""
	body := ""
	if nl := strings.IndexByte(chunk, '\n'); nl >= 0 {
		lang = strings.TrimSpace(strings.TrimLeft(chunk[:nl], "`"))
		body = chunk[nl+1:]
		if idx := strings.LastIndex(chunk, "\n```"); idx > nl {
			body = chunk[nl+1 : idx]
		} else if idx == nl {
			body = ""
		}
	} else {
		// A bare "```lang" line with no newline: no body to show.
		lang = strings.TrimSpace(strings.TrimLeft(chunk, "`"))
	}

	langLabel := ""
	if lang != "" {
		langLabel = fmt.Sprintf("<div class=\"code-lang\">%s</div>", sanitize.Clean(lang))
	}

	return fmt.Sprintf("<div class=\"code-block\">%s<pre><code class=\"language-%s\">%s</code></pre></div>\n",
		langLabel, sanitize.Clean(lang), sanitize.Clean(strings.TrimRight(body, "\n")))
}

// renderParagraphs renders a prose chunk: blank lines separate paragraphs,
// single newlines become <br>, and backtick spans become inline code.
func (e *HTMLExporter) renderParagraphs(chunk string) string {
	escaped := sanitize.Clean(strings.TrimSpace(chunk))
	if escaped == "" {
		return ""
	}
	escaped = inlineCodeRegex.ReplaceAllString(escaped, "<code class=\"inline-code\">$1</code>")

	var sb strings.Builder
	for _, para := range strings.Split(escaped, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		sb.WriteString("<p>")
		sb.WriteString(strings.ReplaceAll(para, "\n", "<br>\n"))
		sb.WriteString("</p>\n")
	}
	return sb.String()
}

// renderToolChip renders one tool invocation as a compact chip row.
func (e *HTMLExporter) renderToolChip(name, argsJSON string) string {
	label := name
	if tool, ok := tools.Lookup(name); ok {
		label = tool.Label
	}
	preview := tools.ArgsPreview(name, argsJSON)

	var sb strings.Builder
	sb.WriteString("                <div class=\"tool-chip\">⚙ <strong>")
	sb.WriteString(sanitize.Clean(label))
	sb.WriteString("</strong>")
	if preview != "" {
		sb.WriteString(" <code>")
		sb.WriteString(sanitize.Clean(preview))
		sb.WriteString("</code>")
	}
	sb.WriteString("</div>\n")
	return sb.String()
}

// formatToolMessage formats a tool result message.
func (e *HTMLExporter) formatToolMessage(msg *model.Message) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "<p><strong>Tool:</strong> <code>%s</code></p>\n", sanitize.Clean(msg.ToolName))

	if msg.ToolResult != "" {
		status, class := "[OK] Success", "success"
		if !msg.IsSuccess {
			status, class = "[FAIL] Error", "error"
		}
		fmt.Fprintf(&sb, "<p><strong>Result</strong> <span class=\"%s\">%s</span>:</p>\n", class, status)
		fmt.Fprintf(&sb, "<pre><code>%s</code></pre>\n", sanitize.Clean(msg.ToolResult))
	}

	return sb.String()
}

// =============================================================================
// EMBEDDED STYLESHEET AND SCRIPT
// =============================================================================

// htmlStyles is the whole stylesheet, inlined into <head>. Both palettes
// ship in the page; the body class picks one and the toggle swaps it.
const htmlStyles = `    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }

        :root {
            --sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", sans-serif;
            --mono: "SF Mono", Menlo, Consolas, "Liberation Mono", monospace;
        }

        .dark-theme {
            --bg: #10141f;
            --surface: #1a2030;
            --surface-raised: #242c42;
            --ink: #d6dcf0;
            --ink-soft: #9aa4c4;
            --ink-faint: #5c6684;
            --line: #2c3552;
            --user-edge: #58a6ff;
            --assistant-edge: #56d364;
            --aux-edge: #bc8cff;
            --ok: #56d364;
            --bad: #ff7b72;
        }

        .light-theme {
            --bg: #f4f4f2;
            --surface: #ffffff;
            --surface-raised: #eceff4;
            --ink: #1f2430;
            --ink-soft: #4c566a;
            --ink-faint: #8b93a7;
            --line: #d8dce6;
            --user-edge: #2563eb;
            --assistant-edge: #15803d;
            --aux-edge: #7c3aed;
            --ok: #15803d;
            --bad: #b91c1c;
        }

        body {
            font-family: var(--sans);
            font-size: 15px;
            line-height: 1.65;
            color: var(--ink);
            background: var(--bg);
            padding: 24px 16px;
            transition: background 0.25s, color 0.25s;
        }

        .container {
            max-width: 860px;
            margin: 0 auto;
            background: var(--surface);
            border: 1px solid var(--line);
            border-radius: 10px;
            overflow: hidden;
        }

        .header {
            padding: 28px;
            background: var(--surface-raised);
            border-bottom: 1px solid var(--line);
        }

        .header h1 {
            font-size: 24px;
            margin-bottom: 14px;
        }

        .metadata {
            display: flex;
            flex-wrap: wrap;
            align-items: center;
            gap: 14px;
            font-size: 13px;
            color: var(--ink-soft);
        }

        .meta-item strong { color: var(--ink); font-weight: 600; }

        .theme-toggle {
            margin-left: auto;
            padding: 5px 10px;
            font-size: 13px;
            color: var(--ink-soft);
            background: var(--surface);
            border: 1px solid var(--line);
            border-radius: 6px;
            cursor: pointer;
        }

        .theme-toggle:hover { background: var(--bg); }

        .conversation { padding: 24px 28px; }

        .message {
            margin-bottom: 20px;
            padding: 16px 18px;
            background: var(--surface-raised);
            border-left: 3px solid var(--line);
            border-radius: 6px;
        }

        .user-message { border-left-color: var(--user-edge); }
        .assistant-message { border-left-color: var(--assistant-edge); }
        .system-message,
        .tool-message { border-left-color: var(--aux-edge); }

        .message-header {
            display: flex;
            justify-content: space-between;
            align-items: baseline;
            margin-bottom: 10px;
        }

        .role-label { font-size: 13px; font-weight: 600; }

        .timestamp {
            font-family: var(--mono);
            font-size: 12px;
            color: var(--ink-faint);
        }

        .message-content p { margin-bottom: 10px; }
        .message-content p:last-child { margin-bottom: 0; }

        .thinking {
            margin-bottom: 10px;
            font-size: 13px;
            color: var(--ink-faint);
        }

        .thinking summary { cursor: pointer; font-weight: 600; }

        .thinking pre {
            margin-top: 6px;
            padding: 10px;
            background: var(--bg);
            border: 1px solid var(--line);
            border-radius: 6px;
            white-space: pre-wrap;
        }

        .code-block {
            margin: 14px 0;
            background: var(--bg);
            border: 1px solid var(--line);
            border-radius: 6px;
            overflow: hidden;
        }

        .code-lang {
            padding: 6px 14px;
            font-size: 11px;
            font-weight: 600;
            letter-spacing: 0.08em;
            text-transform: uppercase;
            color: var(--ink-soft);
            background: var(--surface-raised);
            border-bottom: 1px solid var(--line);
        }

        .code-block pre { padding: 14px; overflow-x: auto; }

        .code-block code {
            font-family: var(--mono);
            font-size: 13px;
            line-height: 1.5;
        }

        .inline-code {
            padding: 1px 5px;
            font-family: var(--mono);
            font-size: 13px;
            color: var(--aux-edge);
            background: var(--bg);
            border: 1px solid var(--line);
            border-radius: 4px;
        }

        .tool-chip {
            display: inline-block;
            margin-top: 8px;
            padding: 6px 12px;
            font-size: 12px;
            color: var(--ink-soft);
            background: var(--bg);
            border: 1px solid var(--line);
            border-radius: 14px;
        }

        .tool-chip code {
            font-family: var(--mono);
            color: var(--ink-faint);
        }

        .message-stats {
            display: flex;
            flex-wrap: wrap;
            gap: 14px;
            margin-top: 10px;
            padding-top: 10px;
            font-size: 12px;
            color: var(--ink-faint);
            border-top: 1px solid var(--line);
        }

        .footer {
            padding: 18px 28px;
            font-size: 13px;
            text-align: center;
            color: var(--ink-faint);
            border-top: 1px solid var(--line);
        }

        .success { color: var(--ok); }
        .error { color: var(--bad); }

        @media print {
            body { padding: 0; }
            .container { border: none; border-radius: 0; }
            .theme-toggle { display: none; }
            .message { page-break-inside: avoid; }
        }

        @media (max-width: 700px) {
            body { padding: 8px; }
            .header, .conversation, .footer { padding: 14px; }
        }
    </style>
`

// htmlScript flips the body class between the two palettes and remembers
// the choice in localStorage.
const htmlScript = `    <script>
        function toggleTheme() {
            const dark = document.body.classList.toggle('dark-theme');
            document.body.classList.toggle('light-theme', !dark);
            localStorage.setItem('theme', dark ? 'dark' : 'light');
        }

        document.addEventListener('DOMContentLoaded', () => {
            const saved = localStorage.getItem('theme');
            if (saved === 'dark' || saved === 'light') {
                document.body.classList.remove('dark-theme', 'light-theme');
                document.body.classList.add(saved + '-theme');
            }
        });
    </script>
`
