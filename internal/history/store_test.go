// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/aerochat/internal/model"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// newTestStore opens a store on a temp database with FTS enabled.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(DefaultOptions(filepath.Join(t.TempDir(), "history.db")))
	require.NoError(t, err, "Open should succeed")
	t.Cleanup(func() { st.Close() })
	return st
}

// newTestSession builds a session bound to a provider and model.
func newTestSession(title string) *model.Session {
	sess := model.NewSessionWith(model.ProviderOllama, "llama3.2")
	sess.Title = title
	return sess
}

// =============================================================================
// OPEN / CLOSE TESTS
// =============================================================================

// TestStore_OpenCreatesDatabase verifies the file and schema come up.
func TestStore_OpenCreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	st, err := Open(DefaultOptions(path))
	require.NoError(t, err, "Open should create the parent directory and file")
	defer st.Close()

	_, err = os.Stat(path)
	require.NoError(t, err, "database file should exist")
	require.Equal(t, path, st.Path())
	require.True(t, st.FTSEnabled(), "FTS should initialize with the bundled driver")
}

// TestStore_OpenRejectsBadOptions verifies nil and empty-path options fail.
func TestStore_OpenRejectsBadOptions(t *testing.T) {
	_, err := Open(nil)
	require.Error(t, err, "nil options should be rejected")

	_, err = Open(&Options{Path: ""})
	require.Error(t, err, "empty path should be rejected")
}

// TestStore_OpenWithoutFTS verifies search is cleanly disabled.
func TestStore_OpenWithoutFTS(t *testing.T) {
	st, err := Open(&Options{Path: filepath.Join(t.TempDir(), "history.db"), FTS: false})
	require.NoError(t, err)
	defer st.Close()

	require.False(t, st.FTSEnabled())
	_, err = st.Search("anything", 10)
	require.ErrorIs(t, err, ErrSearchUnavailable)
}

// =============================================================================
// SESSION CRUD TESTS
// =============================================================================

// TestStore_CreateAndGetSession round trips a session's metadata.
func TestStore_CreateAndGetSession(t *testing.T) {
	st := newTestStore(t)

	sess := newTestSession("goroutine questions")
	sess.SystemPrompt = "You are terse."
	require.NoError(t, st.CreateSession(sess))
	require.NotEmpty(t, sess.ID, "CreateSession should keep the generated ID")

	got, err := st.GetSession(sess.ID)
	require.NoError(t, err)
	require.Equal(t, sess.ID, got.ID)
	require.Equal(t, "goroutine questions", got.Title)
	require.Equal(t, model.ProviderOllama, got.Provider)
	require.Equal(t, "llama3.2", got.Model)
	require.Equal(t, "You are terse.", got.SystemPrompt)
	require.Equal(t, sess.CreatedAt.UnixMilli(), got.CreatedAt.UnixMilli(),
		"timestamps should survive at millisecond precision")
	require.Empty(t, got.Messages)
}

// TestStore_CreateSessionAssignsID verifies an empty ID gets a UUID.
func TestStore_CreateSessionAssignsID(t *testing.T) {
	st := newTestStore(t)

	sess := &model.Session{Title: "no id yet"}
	require.NoError(t, st.CreateSession(sess))
	require.NotEmpty(t, sess.ID)

	_, err := st.GetSession(sess.ID)
	require.NoError(t, err)
}

// TestStore_GetSessionNotFound verifies the sentinel error.
func TestStore_GetSessionNotFound(t *testing.T) {
	st := newTestStore(t)

	_, err := st.GetSession("does-not-exist")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

// TestStore_SaveSessionPersistsTranscript saves a whole session then
// reloads it.
func TestStore_SaveSessionPersistsTranscript(t *testing.T) {
	st := newTestStore(t)

	sess := newTestSession("")
	sess.AddUserMessage("explain channels")
	asst := sess.AddAssistantMessage()
	asst.AppendToken("Channels carry values between goroutines.")
	sess.FinalizeLast(nil)

	require.NoError(t, st.SaveSession(sess))

	got, err := st.GetSession(sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	require.Equal(t, model.RoleUser, got.Messages[0].Role)
	require.Equal(t, "explain channels", got.Messages[0].Content)
	require.Equal(t, model.RoleAssistant, got.Messages[1].Role)
	require.Equal(t, "Channels carry values between goroutines.", got.Messages[1].Content)

	metas, err := st.ListSessions(10, 0)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	require.Equal(t, 2, metas[0].MessageCount, "counters should reflect the transcript")
}

// TestStore_SaveSessionIsIdempotent verifies re-saving does not duplicate
// messages.
func TestStore_SaveSessionIsIdempotent(t *testing.T) {
	st := newTestStore(t)

	sess := newTestSession("")
	sess.AddUserMessage("hello")
	require.NoError(t, st.SaveSession(sess))
	require.NoError(t, st.SaveSession(sess))

	got, err := st.GetSession(sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

// TestStore_SaveMessageUpsert verifies saving the same message ID again
// replaces its content in place.
func TestStore_SaveMessageUpsert(t *testing.T) {
	st := newTestStore(t)

	sess := newTestSession("upsert")
	require.NoError(t, st.CreateSession(sess))

	msg := model.NewUserMessage("first draft")
	require.NoError(t, st.SaveMessage(sess.ID, msg))

	msg.Content = "final draft"
	require.NoError(t, st.SaveMessage(sess.ID, msg))

	got, err := st.GetSession(sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1, "upsert must not create a second row")
	require.Equal(t, "final draft", got.Messages[0].Content)
}

// TestStore_SaveMessageUpdatesCounters verifies message_count and
// total_tokens track the messages table.
func TestStore_SaveMessageUpdatesCounters(t *testing.T) {
	st := newTestStore(t)

	sess := newTestSession("counters")
	require.NoError(t, st.CreateSession(sess))

	m1 := model.NewUserMessage("question")
	m1.TokenCount = 10
	m2 := model.NewMessage(model.RoleAssistant, "answer")
	m2.TokenCount = 32
	require.NoError(t, st.SaveMessage(sess.ID, m1))
	require.NoError(t, st.SaveMessage(sess.ID, m2))

	metas, err := st.ListSessions(10, 0)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	require.Equal(t, 2, metas[0].MessageCount)

	stats, err := st.Stats()
	require.NoError(t, err)
	require.Equal(t, int64(42), stats.TotalTokens)
}

// TestStore_MessageRoundTrip verifies every persisted message field
// survives storage.
func TestStore_MessageRoundTrip(t *testing.T) {
	st := newTestStore(t)

	sess := newTestSession("round trip")
	require.NoError(t, st.CreateSession(sess))

	msg := model.NewMessage(model.RoleAssistant, "Here is the listing.")
	msg.Thinking = "user wants the remote dir"
	msg.ToolCalls = []model.ToolCall{
		{ID: "call_1", Name: "remote_list", ArgsJSON: `{"path":"/srv"}`},
	}
	msg.TokenCount = 18
	msg.TTFT = 150 * time.Millisecond
	msg.TotalDuration = 2 * time.Second
	msg.TokensPerSec = 9.0
	msg.FinishReason = "tool_calls"
	require.NoError(t, st.SaveMessage(sess.ID, msg))

	tool := model.NewToolMessage("remote_list", "drwxr-xr-x srv", true)
	require.NoError(t, st.SaveMessage(sess.ID, tool))

	got, err := st.GetSession(sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)

	asst := got.Messages[0]
	require.Equal(t, "Here is the listing.", asst.Content)
	require.Equal(t, "user wants the remote dir", asst.Thinking)
	require.Len(t, asst.ToolCalls, 1)
	require.Equal(t, "remote_list", asst.ToolCalls[0].Name)
	require.Equal(t, `{"path":"/srv"}`, asst.ToolCalls[0].ArgsJSON)
	require.Equal(t, 18, asst.TokenCount)
	require.Equal(t, 150*time.Millisecond, asst.TTFT)
	require.Equal(t, 2*time.Second, asst.TotalDuration)
	require.Equal(t, 9.0, asst.TokensPerSec)
	require.Equal(t, "tool_calls", asst.FinishReason)

	res := got.Messages[1]
	require.Equal(t, model.RoleTool, res.Role)
	require.Equal(t, "remote_list", res.ToolName)
	require.Equal(t, "drwxr-xr-x srv", res.ToolResult)
	require.True(t, res.IsSuccess)
}

// TestStore_MessagesKeepInsertOrder verifies same-millisecond messages
// come back in arrival order.
func TestStore_MessagesKeepInsertOrder(t *testing.T) {
	st := newTestStore(t)

	sess := newTestSession("order")
	require.NoError(t, st.CreateSession(sess))

	now := time.Now()
	for _, text := range []string{"one", "two", "three"} {
		msg := model.NewUserMessage(text)
		msg.Timestamp = now // identical timestamps force the rowid tiebreak
		require.NoError(t, st.SaveMessage(sess.ID, msg))
	}

	got, err := st.GetSession(sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 3)
	require.Equal(t, "one", got.Messages[0].Content)
	require.Equal(t, "two", got.Messages[1].Content)
	require.Equal(t, "three", got.Messages[2].Content)
}

// =============================================================================
// LISTING TESTS
// =============================================================================

// TestStore_ListSessionsOrderAndPaging verifies newest-first ordering with
// limit and offset.
func TestStore_ListSessionsOrderAndPaging(t *testing.T) {
	st := newTestStore(t)

	base := time.Now().Add(-3 * time.Hour)
	var ids []string
	for i := 0; i < 3; i++ {
		sess := newTestSession("session")
		sess.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		sess.UpdatedAt = sess.CreatedAt
		require.NoError(t, st.CreateSession(sess))
		ids = append(ids, sess.ID)
	}

	page, err := st.ListSessions(2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, ids[2], page[0].ID, "most recently updated first")
	require.Equal(t, ids[1], page[1].ID)

	rest, err := st.ListSessions(2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Equal(t, ids[0], rest[0].ID)
}

// TestStore_ListSessionsPreview verifies the preview comes from the first
// user message, collapsed to one line.
func TestStore_ListSessionsPreview(t *testing.T) {
	st := newTestStore(t)

	sess := newTestSession("preview")
	require.NoError(t, st.CreateSession(sess))
	require.NoError(t, st.SaveMessage(sess.ID, model.NewSystemMessage("be brief")))
	require.NoError(t, st.SaveMessage(sess.ID, model.NewUserMessage("what is\na goroutine?")))

	metas, err := st.ListSessions(10, 0)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	require.Equal(t, "what is a goroutine?", metas[0].Preview,
		"preview should skip system messages and collapse newlines")
}

// TestStore_ListSessionsEmptyTitle verifies untitled sessions get the
// display default.
func TestStore_ListSessionsEmptyTitle(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.CreateSession(newTestSession("")))

	metas, err := st.ListSessions(10, 0)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	require.Equal(t, "New Chat", metas[0].Title)
}

// =============================================================================
// UPDATE / DELETE TESTS
// =============================================================================

// TestStore_UpdateTitle verifies renames and the not-found case.
func TestStore_UpdateTitle(t *testing.T) {
	st := newTestStore(t)

	sess := newTestSession("old title")
	require.NoError(t, st.CreateSession(sess))

	require.NoError(t, st.UpdateTitle(sess.ID, "new title"))
	got, err := st.GetSession(sess.ID)
	require.NoError(t, err)
	require.Equal(t, "new title", got.Title)

	err = st.UpdateTitle("missing", "x")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

// TestStore_DeleteSessionCascades verifies messages go with their session.
func TestStore_DeleteSessionCascades(t *testing.T) {
	st := newTestStore(t)

	sess := newTestSession("doomed")
	require.NoError(t, st.CreateSession(sess))
	require.NoError(t, st.SaveMessage(sess.ID, model.NewUserMessage("gone soon")))

	require.NoError(t, st.DeleteSession(sess.ID))

	_, err := st.GetSession(sess.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)

	stats, err := st.Stats()
	require.NoError(t, err)
	require.Equal(t, int64(0), stats.Messages, "cascade should remove the transcript")

	err = st.DeleteSession(sess.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

// TestStore_DeleteSessions verifies bulk delete counts only rows that
// existed.
func TestStore_DeleteSessions(t *testing.T) {
	st := newTestStore(t)

	var ids []string
	for i := 0; i < 3; i++ {
		sess := newTestSession("bulk")
		require.NoError(t, st.CreateSession(sess))
		ids = append(ids, sess.ID)
	}

	deleted, err := st.DeleteSessions([]string{ids[0], ids[1], "missing"})
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)

	metas, err := st.ListSessions(10, 0)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	require.Equal(t, ids[2], metas[0].ID)

	deleted, err = st.DeleteSessions(nil)
	require.NoError(t, err)
	require.Equal(t, int64(0), deleted)
}

// =============================================================================
// RETENTION TESTS
// =============================================================================

// TestStore_CleanupByAge verifies sessions idle past the retention window
// are removed.
func TestStore_CleanupByAge(t *testing.T) {
	st := newTestStore(t)

	old := newTestSession("old")
	old.CreatedAt = time.Now().Add(-60 * 24 * time.Hour)
	old.UpdatedAt = old.CreatedAt
	require.NoError(t, st.CreateSession(old))

	fresh := newTestSession("fresh")
	require.NoError(t, st.CreateSession(fresh))

	deleted, err := st.Cleanup(30*24*time.Hour, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	_, err = st.GetSession(old.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = st.GetSession(fresh.ID)
	require.NoError(t, err)
}

// TestStore_CleanupByCount verifies only the newest maxSessions survive.
func TestStore_CleanupByCount(t *testing.T) {
	st := newTestStore(t)

	base := time.Now().Add(-5 * time.Hour)
	var ids []string
	for i := 0; i < 5; i++ {
		sess := newTestSession("trim")
		sess.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		sess.UpdatedAt = sess.CreatedAt
		require.NoError(t, st.CreateSession(sess))
		ids = append(ids, sess.ID)
	}

	deleted, err := st.Cleanup(0, 3)
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)

	metas, err := st.ListSessions(10, 0)
	require.NoError(t, err)
	require.Len(t, metas, 3)
	require.Equal(t, ids[4], metas[0].ID)
	require.Equal(t, ids[2], metas[2].ID, "the two oldest should be gone")
}

// TestStore_CleanupZeroPolicyKeepsEverything verifies zero values disable
// both policies.
func TestStore_CleanupZeroPolicyKeepsEverything(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.CreateSession(newTestSession("keep")))

	deleted, err := st.Cleanup(0, 0)
	require.NoError(t, err)
	require.Equal(t, int64(0), deleted)
}

// TestStore_ClearAll verifies the full wipe returns the session count.
func TestStore_ClearAll(t *testing.T) {
	st := newTestStore(t)

	for i := 0; i < 3; i++ {
		sess := newTestSession("wipe")
		require.NoError(t, st.CreateSession(sess))
		require.NoError(t, st.SaveMessage(sess.ID, model.NewUserMessage("x")))
	}

	count, err := st.ClearAll()
	require.NoError(t, err)
	require.Equal(t, int64(3), count)

	stats, err := st.Stats()
	require.NoError(t, err)
	require.Equal(t, int64(0), stats.Sessions)
	require.Equal(t, int64(0), stats.Messages)
}

// =============================================================================
// STATS TESTS
// =============================================================================

// TestStore_Stats verifies counts and that the database reports a size.
func TestStore_Stats(t *testing.T) {
	st := newTestStore(t)

	sess := newTestSession("stats")
	require.NoError(t, st.CreateSession(sess))
	msg := model.NewUserMessage("hello")
	msg.TokenCount = 5
	require.NoError(t, st.SaveMessage(sess.ID, msg))

	stats, err := st.Stats()
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Sessions)
	require.Equal(t, int64(1), stats.Messages)
	require.Equal(t, int64(5), stats.TotalTokens)
	require.True(t, stats.FTSEnabled)
	require.Greater(t, stats.DBSizeBytes, int64(0))
}

// TestStore_Errors verifies the sentinels are distinct and wrap cleanly.
func TestStore_Errors(t *testing.T) {
	require.False(t, errors.Is(ErrSessionNotFound, ErrSearchUnavailable))
	require.False(t, errors.Is(ErrSearchUnavailable, ErrSessionNotFound))
}
