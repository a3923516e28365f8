// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// stream_cmd.go - Stream command implementation for aerochat.
//
// CLI: Comprehensive help and examples for all commands
//
// Command: stream "prompt"
// Short:   Stream one reply from the configured provider
//
// Examples:
//   aerochat stream "explain CRDTs"            Ask and render live
//   aerochat stream -m gpt-4o "explain CRDTs"  Override the model
//   echo "explain CRDTs" | aerochat stream     Prompt from stdin
//   aerochat stream --save "explain CRDTs"     Keep the exchange in history
//
// Flags:
//   --model, -m NAME   Model for this request
//   --provider NAME    Provider for this request
//   --save             Persist the exchange to session history
//
// On a TTY the reply renders incrementally: each repaint erases only the
// bottom screenful, because rendered frames are prefix-stable while the
// stream grows. Piped output gets plain batched text instead, sanitized
// and untouched by layout.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/aerochat/internal/config"
	"github.com/jeranaias/aerochat/internal/history"
	"github.com/jeranaias/aerochat/internal/model"
	"github.com/jeranaias/aerochat/internal/render"
	"github.com/jeranaias/aerochat/internal/sanitize"
	"github.com/jeranaias/aerochat/internal/stream"
)

// streamNoteStyle dims the decorations around a reply (the status line,
// the stats footer) without touching the reply itself.
var streamNoteStyle = lipgloss.NewStyle().Foreground(render.TextMuted)

// HandleStream handles the "stream" command.
func HandleStream(args Args) error {
	prompt, err := resolvePrompt(args)
	if err != nil {
		return err
	}

	cfg := config.Global().Clone()
	if args.Provider != "" {
		cfg.Provider.Type = args.Provider
	}
	if args.Model != "" {
		cfg.Provider.Model = args.Model
	}
	if !ColorsEnabled() {
		cfg.Render.Color = "never"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client, err := stream.New(cfg)
	if err != nil {
		return err
	}
	if !client.IsConfigured() {
		return fmt.Errorf("%w: no API key for provider %q; set AEROCHAT_API_KEY or the variable named by provider.api_key_env",
			stream.ErrNotConfigured, cfg.Provider.Type)
	}

	sess := model.NewSessionWith(model.Provider(strings.ToLower(cfg.Provider.Type)), cfg.Provider.ResolvedModel())
	sess.AddUserMessage(prompt)

	// Snapshot the history before the assistant placeholder joins it: the
	// wire request must end on the user turn.
	req := stream.Request{
		Model:    cfg.Provider.ResolvedModel(),
		Messages: sess.History(),
	}
	reply := sess.AddAssistantMessage()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	acc := stream.NewAccumulator()
	buf := stream.NewBuffer(cfg.Stream.BatchSize, cfg.Stream.MaxFPS)

	var streamErr error
	if IsStdoutTTY() {
		streamErr = streamToTerminal(ctx, client, req, cfg, acc, buf)
	} else {
		streamErr = streamToPipe(ctx, client, req, acc, buf)
	}

	// Fold the reply into the session whether or not the stream finished;
	// a partial answer is still worth keeping.
	reply.AppendToken(acc.Content())
	if thinking := acc.Thinking(); thinking != "" {
		reply.AppendThinking(thinking)
	}
	for _, tc := range acc.ToolCalls() {
		reply.AddToolCall(tc)
	}
	var stats *model.Statistics
	if acc.Done() {
		stats = acc.Stats()
	}
	sess.FinalizeLast(stats)

	if streamErr != nil {
		var serr *stream.StreamError
		switch {
		case errors.As(streamErr, &serr) && serr.Partial != "":
			// The partial reply is already on screen and in the session;
			// say why it stopped without discarding what arrived.
			fmt.Fprintf(os.Stderr, "Warning: stream interrupted: %v\n", serr.Err)
		case errors.Is(streamErr, context.Canceled):
			fmt.Fprintln(os.Stderr, "Interrupted.")
		default:
			return streamErr
		}
	}

	if !args.Quiet && IsStdoutTTY() && stats != nil {
		fmt.Println(streamNoteStyle.Render(stats.Format()))
	}

	if args.Save && acc.Content() != "" {
		if err := saveExchange(cfg, sess, args.Quiet); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
	}
	return nil
}

// streamToTerminal drives the live repaint path. The buffer only paces
// paints here: drained batches are discarded, because every paint
// re-renders from the full accumulated reply and serves settled chunks
// from the arena.
func streamToTerminal(ctx context.Context, client stream.Client, req stream.Request, cfg *config.Config, acc *stream.Accumulator, buf *stream.Buffer) error {
	width, height := GetTerminalSize()
	printer := newLivePrinter(os.Stdout, render.New(cfg, width), width, height)
	accept := acc.Callback()

	err := client.Stream(ctx, req, func(ch stream.Chunk) error {
		if err := accept(ch); err != nil {
			return err
		}
		if ch.Thinking != "" {
			printer.Status(streamNoteStyle.Render("thinking…"))
		}
		buf.Write(ch.Content)
		if _, due := buf.Flush(); due {
			printer.Paint(acc.Content())
		}
		return nil
	})

	buf.ForceFlush()
	printer.Finish(acc.Content())
	return err
}

// streamToPipe drives the plain path for redirected output: batched
// text, no layout, append-only.
func streamToPipe(ctx context.Context, client stream.Client, req stream.Request, acc *stream.Accumulator, buf *stream.Buffer) error {
	accept := acc.Callback()

	err := client.Stream(ctx, req, func(ch stream.Chunk) error {
		if err := accept(ch); err != nil {
			return err
		}
		buf.Write(ch.Content)
		if batch, due := buf.Flush(); due {
			// SECURITY: piped output skips the renderer, so the bidi sweep
			// happens per batch. Batches break on token bounds, never
			// mid-rune, so the sweep cannot straddle a code point.
			fmt.Print(sanitize.StripBidiOverrides(batch))
		}
		return nil
	})

	if tail := buf.ForceFlush(); tail != "" {
		fmt.Print(sanitize.StripBidiOverrides(tail))
	}
	if out := acc.Content(); out != "" && !strings.HasSuffix(out, "\n") {
		fmt.Println()
	}
	return err
}

// resolvePrompt takes the prompt from the command line, or from stdin
// when data is piped in.
func resolvePrompt(args Args) (string, error) {
	if prompt := strings.TrimSpace(args.Prompt); prompt != "" {
		return prompt, nil
	}

	if IsStdinPiped() {
		data, err := io.ReadAll(io.LimitReader(os.Stdin, maxRenderInput+1))
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		if len(data) > maxRenderInput {
			return "", fmt.Errorf("stdin exceeds %d MB input cap", maxRenderInput/(1024*1024))
		}
		if prompt := strings.TrimSpace(string(data)); prompt != "" {
			return prompt, nil
		}
	}

	return "", ErrMissingArgument(
		"no prompt given",
		`aerochat stream "your question"  (or: echo "question" | aerochat stream)`,
	)
}

// saveExchange persists the finished session and applies the retention
// policy while the store is open anyway.
func saveExchange(cfg *config.Config, sess *model.Session, quiet bool) error {
	if !cfg.History.Enabled {
		fmt.Fprintln(os.Stderr, "Warning: history is disabled; nothing saved")
		return nil
	}

	dbPath, err := cfg.HistoryDBPath()
	if err != nil {
		return err
	}
	store, err := history.Open(&history.Options{Path: dbPath, FTS: cfg.History.FTS})
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SaveSession(sess); err != nil {
		return err
	}

	retention := time.Duration(cfg.History.RetentionDays) * 24 * time.Hour
	if _, err := store.Cleanup(retention, cfg.History.MaxSessions); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: history cleanup: %v\n", err)
	}

	if !quiet && IsStdoutTTY() {
		fmt.Println(streamNoteStyle.Render("saved " + sess.ID))
	}
	return nil
}
