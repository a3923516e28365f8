// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history_cmd.go - Session history CLI commands for aerochat.
//
// CLI: Comprehensive help and examples for all commands
//
// Command: history [subcommand]
// Short:   Manage saved chat sessions
// Aliases: sessions
//
// Subcommands:
//   list (default)      List saved sessions (aliases: ls, l)
//   show <id|#>         Show session details
//   search <query>      Full-text search across transcripts
//   export <id|#>       Export a transcript to a file
//   delete <id|#>       Delete a session
//   cleanup             Apply the retention policy now
//   migrate [dir]       Absorb legacy JSON conversations
//   stats               Show history statistics
//
// Examples:
//   aerochat history                              List sessions (default)
//   aerochat history show 1                       Show the most recent session
//   aerochat history show 0b9f3c21               Show session by ID
//   aerochat history search "rate limiter"        Search transcripts
//   aerochat history export 1 --format html       Export as HTML
//   aerochat history export 1 --out notes.md      Export to an exact path
//   aerochat history delete 1 --confirm           Delete a session
//   aerochat history stats --json                 Statistics as JSON
//
// Flags:
//   --format FORMAT     Export format: markdown, html, json (default: markdown)
//   --out PATH          Export to this path instead of a generated name
//   --thinking          Include reasoning traces in exports
//   --limit N           Cap list/search results
//   --confirm           Required for delete
//   --json              Output in JSON format
//
// Sessions are addressed by UUID or by their 1-based position in the
// list, most recent first.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/aerochat/internal/config"
	"github.com/jeranaias/aerochat/internal/export"
	"github.com/jeranaias/aerochat/internal/history"
	"github.com/jeranaias/aerochat/internal/model"
	"github.com/jeranaias/aerochat/internal/util"
)

// =============================================================================
// HISTORY COMMAND HANDLER
// =============================================================================

// HistoryArgs holds parsed history command arguments.
type HistoryArgs struct {
	Subcommand string // list, show, search, export, delete, cleanup, migrate, stats
	SessionID  string // Session UUID or 1-based list index
	Query      string // Search query
	Format     string // Export format: markdown, html, json
	OutPath    string // Explicit export path
	Dir        string // Migration source directory
	Limit      int    // Result cap for list and search
	Confirm    bool   // Confirmation flag for delete
	Thinking   bool   // Include reasoning traces in exports
	JSON       bool   // Output in JSON format
}

// HandleHistory handles the "history" command with various subcommands.
func HandleHistory(args Args) error {
	historyArgs := parseHistoryCmdArgs(args)

	switch historyArgs.Subcommand {
	case "", "list", "ls", "l":
		return handleHistoryList(historyArgs)
	case "show":
		return handleHistoryShow(historyArgs)
	case "search":
		return handleHistorySearch(historyArgs)
	case "export":
		return handleHistoryExport(historyArgs)
	case "delete":
		return handleHistoryDelete(historyArgs)
	case "cleanup":
		return handleHistoryCleanup(historyArgs)
	case "migrate":
		return handleHistoryMigrate(historyArgs)
	case "stats":
		return handleHistoryStats(historyArgs)
	default:
		return fmt.Errorf("unknown history subcommand: %s\nUsage: aerochat history [list|show|search|export|delete|cleanup|migrate|stats]", historyArgs.Subcommand)
	}
}

// parseHistoryCmdArgs parses detailed history command arguments.
func parseHistoryCmdArgs(args Args) HistoryArgs {
	p := NewArgParser(args.Rest)

	historyArgs := HistoryArgs{
		Subcommand: p.Subcommand(),
		Format:     strings.ToLower(p.FlagOrDefault("format", "markdown")),
		OutPath:    p.Flag("out"),
		Limit:      p.FlagIntOrDefault("limit", 0),
		Confirm:    p.BoolFlag("confirm"),
		Thinking:   p.BoolFlag("thinking"),
		JSON:       args.JSON || p.BoolFlag("json"),
	}

	switch historyArgs.Subcommand {
	case "search":
		historyArgs.Query = strings.Join(p.PositionalFrom(1), " ")
	case "migrate":
		historyArgs.Dir = p.Positional(1)
	default:
		historyArgs.SessionID = p.Positional(1)
	}

	return historyArgs
}

// openHistoryStore opens the configured history database.
func openHistoryStore() (*history.Store, error) {
	cfg := config.Global()
	if !cfg.History.Enabled {
		return nil, fmt.Errorf("history is disabled; enable it with: aerochat config set history.enabled true")
	}

	dbPath, err := cfg.HistoryDBPath()
	if err != nil {
		return nil, err
	}

	store, err := history.Open(&history.Options{Path: dbPath, FTS: cfg.History.FTS})
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	return store, nil
}

// resolveSession loads a session by UUID, or by its 1-based position in
// the most-recent-first listing.
func resolveSession(store *history.Store, idOrIndex string) (*model.Session, error) {
	if idx, err := strconv.Atoi(idOrIndex); err == nil && idx > 0 {
		metas, err := store.ListSessions(1, idx-1)
		if err != nil {
			return nil, err
		}
		if len(metas) == 0 {
			return nil, ErrNotFound("session", fmt.Sprintf("#%d", idx))
		}
		return store.GetSession(metas[0].ID)
	}

	sess, err := store.GetSession(idOrIndex)
	if err != nil {
		return nil, fmt.Errorf("session %q: %w", idOrIndex, err)
	}
	return sess, nil
}

// shortID trims a UUID for table display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// =============================================================================
// HISTORY LIST
// =============================================================================

// HistoryListOutput is the JSON output format for the session list.
type HistoryListOutput struct {
	Sessions []model.SessionMeta `json:"sessions"`
	Count    int                 `json:"count"`
}

// handleHistoryList lists saved sessions, most recent first.
func handleHistoryList(args HistoryArgs) error {
	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	metas, err := store.ListSessions(args.Limit, 0)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	if args.JSON {
		return outputJSON(HistoryListOutput{Sessions: metas, Count: len(metas)})
	}

	if len(metas) == 0 {
		fmt.Println()
		fmt.Println("No saved sessions found.")
		fmt.Println()
		fmt.Println("Sessions are saved when you pass --save to stream.")
		fmt.Println()
		return nil
	}

	fmt.Println()
	fmt.Println("Saved Sessions")
	fmt.Println(strings.Repeat("=", 76))
	fmt.Println()

	fmt.Printf("%-4s %-10s %-26s %-16s %-5s %-12s\n", "#", "ID", "Title", "Model", "Msgs", "Updated")
	fmt.Println(strings.Repeat("-", 76))

	for i, meta := range metas {
		// UNICODE: Rune-aware truncation preserves multi-byte characters
		title := util.TruncateRunes(meta.Title, 24)
		modelID := util.TruncateRunes(meta.Model, 14)

		updated := formatTimeAgo(meta.UpdatedAt)
		if len(updated) > 12 {
			updated = meta.UpdatedAt.Format("01/02")
		}

		fmt.Printf("%-4d %-10s %-26s %-16s %-5d %-12s\n",
			i+1,
			shortID(meta.ID),
			title,
			modelID,
			meta.MessageCount,
			updated,
		)
	}

	fmt.Println()
	fmt.Printf("Total: %d session(s)\n", len(metas))
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  aerochat history show <id|#>               View session details")
	fmt.Println("  aerochat history export <id|#> --format    Export (markdown|html|json)")
	fmt.Println("  aerochat history delete <id|#> --confirm   Delete session")
	fmt.Println()

	return nil
}

// =============================================================================
// HISTORY SHOW
// =============================================================================

// handleHistoryShow shows details of a specific session.
func handleHistoryShow(args HistoryArgs) error {
	if args.SessionID == "" {
		return ErrMissingArgument("session ID required", "aerochat history show <id|#>")
	}

	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := resolveSession(store, args.SessionID)
	if err != nil {
		return err
	}

	if args.JSON {
		return outputJSON(sess)
	}

	fmt.Println()
	fmt.Printf("Session: %s\n", sess.GetTitle())
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println()

	fmt.Printf("ID:           %s\n", sess.ID)
	fmt.Printf("Provider:     %s\n", sess.Provider)
	fmt.Printf("Model:        %s\n", sess.Model)
	fmt.Printf("Messages:     %d\n", len(sess.Messages))
	fmt.Printf("Created:      %s\n", sess.CreatedAt.Format(time.RFC1123))
	fmt.Printf("Updated:      %s\n", sess.UpdatedAt.Format(time.RFC1123))
	if sess.TokensUsed > 0 {
		fmt.Printf("Tokens Used:  %d\n", sess.TokensUsed)
	}
	fmt.Println()

	fmt.Println("Messages:")
	fmt.Println(strings.Repeat("-", 60))

	for i, msg := range sess.Messages {
		role := strings.ToUpper(string(msg.Role))
		fmt.Printf("[%d] %s: %s\n", i+1, role, msg.Preview(100))
		if len(msg.ToolCalls) > 0 {
			names := make([]string, 0, len(msg.ToolCalls))
			for _, tc := range msg.ToolCalls {
				names = append(names, tc.Name)
			}
			fmt.Printf("    tools: %s\n", strings.Join(names, ", "))
		}
	}

	fmt.Println()
	fmt.Printf("Use 'aerochat history export %s' to export the full transcript.\n", shortIndexHint(args.SessionID, sess.ID))
	fmt.Println()

	return nil
}

// shortIndexHint echoes back whatever form the user addressed the
// session by, so the follow-up command in the hint works as printed.
func shortIndexHint(given, id string) string {
	if given != "" {
		return given
	}
	return id
}

// =============================================================================
// HISTORY SEARCH
// =============================================================================

// HistorySearchOutput is the JSON output format for search results.
type HistorySearchOutput struct {
	Query   string      `json:"query"`
	Count   int         `json:"count"`
	Results []SearchHit `json:"results"`
}

// SearchHit is the JSON output format for a single match.
type SearchHit struct {
	SessionID    string    `json:"session_id"`
	SessionTitle string    `json:"session_title"`
	MessageID    string    `json:"message_id"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	Snippet      string    `json:"snippet"`
}

// handleHistorySearch searches message content across all sessions.
func handleHistorySearch(args HistoryArgs) error {
	if args.Query == "" {
		return ErrMissingArgument("search query required", `aerochat history search "your query"`)
	}

	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := store.Search(args.Query, args.Limit)
	if err != nil {
		if errors.Is(err, history.ErrSearchUnavailable) {
			return fmt.Errorf("%w; enable it with: aerochat config set history.fts true", err)
		}
		return fmt.Errorf("search: %w", err)
	}

	if args.JSON {
		hits := make([]SearchHit, 0, len(results))
		for _, res := range results {
			hits = append(hits, SearchHit{
				SessionID:    res.SessionID,
				SessionTitle: res.SessionTitle,
				MessageID:    res.MessageID,
				Role:         string(res.Role),
				CreatedAt:    res.CreatedAt,
				Snippet:      res.Snippet,
			})
		}
		return outputJSON(HistorySearchOutput{Query: args.Query, Count: len(hits), Results: hits})
	}

	if len(results) == 0 {
		fmt.Println()
		fmt.Printf("No matches for %q.\n", args.Query)
		fmt.Println()
		return nil
	}

	fmt.Println()
	fmt.Printf("Matches for %q\n", args.Query)
	fmt.Println(strings.Repeat("=", 76))
	fmt.Println()

	for i, res := range results {
		title := res.SessionTitle
		if title == "" {
			title = shortID(res.SessionID)
		}
		fmt.Printf("[%d] %s - %s, %s\n", i+1, title, res.Role, formatTimeAgo(res.CreatedAt))
		fmt.Printf("    session: %s\n", res.SessionID)
		fmt.Printf("    %s\n", terminalSnippet(res.Snippet))
		fmt.Println()
	}

	fmt.Printf("Total: %d match(es). Use 'aerochat history show <session-id>' to read one.\n", len(results))
	fmt.Println()

	return nil
}

// terminalSnippet flattens an FTS snippet for one-line display. The
// store wraps hits in <mark> and escapes everything else as HTML, so
// the marks become brackets and the escapes are undone.
func terminalSnippet(snippet string) string {
	s := util.CollapseLine(snippet)
	s = strings.ReplaceAll(s, "<mark>", "[")
	s = strings.ReplaceAll(s, "</mark>", "]")
	return util.TruncateRunes(html.UnescapeString(s), 100)
}

// =============================================================================
// HISTORY EXPORT
// =============================================================================

// handleHistoryExport exports a session transcript to a file.
func handleHistoryExport(args HistoryArgs) error {
	if args.SessionID == "" {
		return ErrMissingArgument("session ID required", "aerochat history export <id|#> [--format markdown|html|json] [--out PATH]")
	}

	opts := export.DefaultOptions()
	opts.IncludeThinking = args.Thinking

	exporter, err := export.ForFormat(args.Format, opts)
	if err != nil {
		return err
	}

	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := resolveSession(store, args.SessionID)
	if err != nil {
		return err
	}

	if args.OutPath != "" {
		if err := export.ExportToPath(sess, exporter, args.OutPath); err != nil {
			return err
		}
		fmt.Printf("Exported session to %s\n", args.OutPath)
		return nil
	}

	path, err := export.ExportToFile(sess, exporter, opts)
	if err != nil {
		return err
	}
	fmt.Printf("Exported session to %s\n", path)
	return nil
}

// =============================================================================
// HISTORY DELETE
// =============================================================================

// handleHistoryDelete deletes a specific session.
func handleHistoryDelete(args HistoryArgs) error {
	if args.SessionID == "" {
		return ErrMissingArgument("session ID required", "aerochat history delete <id|#> --confirm")
	}

	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	// Resolve first so the error for a bad ID beats the --confirm nag.
	sess, err := resolveSession(store, args.SessionID)
	if err != nil {
		return err
	}

	if !args.Confirm {
		return fmt.Errorf("deletion requires --confirm\nUsage: aerochat history delete %s --confirm", args.SessionID)
	}

	if err := store.DeleteSession(sess.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	if args.JSON {
		return outputJSON(map[string]interface{}{
			"deleted":    true,
			"session_id": sess.ID,
			"title":      sess.GetTitle(),
		})
	}

	fmt.Println()
	fmt.Printf("Session deleted: %s\n", sess.GetTitle())
	fmt.Printf("ID: %s\n", sess.ID)
	fmt.Println()

	return nil
}

// =============================================================================
// HISTORY CLEANUP
// =============================================================================

// handleHistoryCleanup applies the configured retention policy.
func handleHistoryCleanup(args HistoryArgs) error {
	cfg := config.Global()

	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	retention := time.Duration(cfg.History.RetentionDays) * 24 * time.Hour
	removed, err := store.Cleanup(retention, cfg.History.MaxSessions)
	if err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}

	if args.JSON {
		return outputJSON(map[string]interface{}{"removed": removed})
	}

	if removed == 0 {
		fmt.Println("Nothing to remove; the retention policy is satisfied.")
		return nil
	}
	fmt.Printf("Removed %d session(s) per retention policy (%d days, max %d sessions).\n",
		removed, cfg.History.RetentionDays, cfg.History.MaxSessions)
	return nil
}

// =============================================================================
// HISTORY MIGRATE
// =============================================================================

// handleHistoryMigrate absorbs legacy flat-file conversations into the
// database. Defaults to the history directory, where the old layout
// kept its JSON files.
func handleHistoryMigrate(args HistoryArgs) error {
	dir := args.Dir
	if dir == "" {
		d, err := config.Global().HistoryDir()
		if err != nil {
			return err
		}
		dir = d
	}

	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	migrated, err := store.MigrateFromJSON(dir)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if args.JSON {
		return outputJSON(map[string]interface{}{"migrated": migrated, "dir": dir})
	}

	if migrated == 0 {
		fmt.Printf("No legacy conversations found in %s.\n", dir)
		return nil
	}
	fmt.Printf("Migrated %d conversation(s) from %s.\n", migrated, dir)
	return nil
}

// =============================================================================
// HISTORY STATS
// =============================================================================

// HistoryStatsOutput is the JSON output format for history stats.
type HistoryStatsOutput struct {
	Sessions    int64  `json:"sessions"`
	Messages    int64  `json:"messages"`
	TotalTokens int64  `json:"total_tokens"`
	DBSizeBytes int64  `json:"db_size_bytes"`
	FTSEnabled  bool   `json:"fts_enabled"`
	Location    string `json:"location"`
}

// handleHistoryStats shows history statistics.
func handleHistoryStats(args HistoryArgs) error {
	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats()
	if err != nil {
		return fmt.Errorf("history stats: %w", err)
	}

	if args.JSON {
		return outputJSON(HistoryStatsOutput{
			Sessions:    stats.Sessions,
			Messages:    stats.Messages,
			TotalTokens: stats.TotalTokens,
			DBSizeBytes: stats.DBSizeBytes,
			FTSEnabled:  stats.FTSEnabled,
			Location:    store.Path(),
		})
	}

	fmt.Println()
	fmt.Println("History Statistics")
	fmt.Println(strings.Repeat("=", 40))
	fmt.Println()

	fmt.Printf("Sessions:          %d\n", stats.Sessions)
	fmt.Printf("Messages:          %d\n", stats.Messages)
	if stats.TotalTokens > 0 {
		fmt.Printf("Total Tokens:      %d\n", stats.TotalTokens)
	}
	fmt.Printf("Database Size:     %s\n", formatBytes(stats.DBSizeBytes))
	fmt.Printf("Full-Text Search:  %s\n", enabledText(stats.FTSEnabled))
	fmt.Println()
	fmt.Printf("Location:          %s\n", store.Path())
	fmt.Println()

	return nil
}

// enabledText returns enabled/disabled text.
func enabledText(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
