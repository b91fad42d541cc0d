// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/omnichat/internal/catalog"
	"github.com/jeranaias/omnichat/internal/chat"
	"github.com/jeranaias/omnichat/internal/llm"
	"github.com/jeranaias/omnichat/internal/prompts"
)

// scriptedCompleter replies with a fixed string per call.
type scriptedCompleter struct {
	replies []string
	call    int
}

func (f *scriptedCompleter) StreamChat(_ context.Context, _ string, _ []llm.Message, _ *llm.Sampling, onDelta func(string)) (*llm.Usage, error) {
	reply := f.replies[f.call%len(f.replies)]
	f.call++
	onDelta(reply)
	return &llm.Usage{TotalTokens: 10}, nil
}

func testSession(t *testing.T, replies ...string) *chat.Session {
	t.Helper()
	cat, err := catalog.New([]catalog.Entry{
		{Name: "gpt120b", Connection: "groq/openai/gpt-oss-120b", Provider: "Groq"},
		{Name: "mistral-small", Connection: "mistral/mistral-small-latest", Provider: "Mistral"},
	})
	require.NoError(t, err)
	lib, err := prompts.Load(filepath.Join(t.TempDir(), "prompts.toml"))
	require.NoError(t, err)
	if len(replies) == 0 {
		replies = []string{"reply"}
	}
	return chat.NewSession(cat, lib, &scriptedCompleter{replies: replies})
}

func testStore(t *testing.T) *Store {
	t.Helper()
	st, err := NewStore(filepath.Join(t.TempDir(), "transcripts"))
	require.NoError(t, err)
	return st
}

func TestSave_EmptyConversation(t *testing.T) {
	st := testStore(t)
	s := testSession(t)
	_, err := st.Save(s, "")
	require.ErrorIs(t, err, ErrEmptyConversation)
}

func TestSave_AutoName(t *testing.T) {
	st := testStore(t)
	s := testSession(t)
	s.SwitchModel("gpt120b")
	require.NoError(t, s.StreamTurn(context.Background(), "hi", func(string) {}))

	path, err := st.Save(s, "")
	require.NoError(t, err)
	base := filepath.Base(path)
	assert.True(t, strings.HasPrefix(base, "chat_gpt120b_"), "auto name = %s", base)
	assert.True(t, strings.HasSuffix(base, ".md"))
}

func TestSave_AppendsExtension(t *testing.T) {
	st := testStore(t)
	s := testSession(t)
	s.SwitchModel("gpt120b")
	require.NoError(t, s.StreamTurn(context.Background(), "hi", func(string) {}))

	path, err := st.Save(s, "foo")
	require.NoError(t, err)
	assert.Equal(t, "foo.md", filepath.Base(path))

	// saving again under the explicit extension hits the same file
	path2, err := st.Save(s, "foo.md")
	require.NoError(t, err)
	assert.Equal(t, path, path2)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	st := testStore(t)
	s := testSession(t, "first answer", "second answer")
	s.SwitchModel("gpt120b")
	require.NoError(t, s.StreamTurn(context.Background(), "question one", func(string) {}))
	s.SwitchModel("mistral-small")
	require.NoError(t, s.StreamTurn(context.Background(), "question two", func(string) {}))
	wantMessages := s.Messages()

	_, err := st.Save(s, "roundtrip")
	require.NoError(t, err)

	// load into a fresh session
	fresh := testSession(t)
	restored, warning, err := st.Load(fresh, "roundtrip")
	require.NoError(t, err)
	assert.Empty(t, warning)
	assert.Equal(t, len(wantMessages), restored)
	assert.Equal(t, wantMessages, fresh.Messages())

	// the header model is the one active at save time
	require.NotNil(t, fresh.ActiveModel())
	assert.Equal(t, "mistral-small", fresh.ActiveModel().Name)

	// the mid-conversation switch marker survives as an event
	var switches []string
	for _, ev := range fresh.Events() {
		if ev.Kind == chat.EventModelSwitch {
			switches = append(switches, ev.Model)
		}
	}
	assert.Contains(t, switches, "mistral-small")
}

func TestLoad_MissingFile(t *testing.T) {
	st := testStore(t)
	s := testSession(t)
	_, _, err := st.Load(s, "nope")
	require.ErrorIs(t, err, ErrFileNotFound)
}

func TestLoad_UnknownModelWarns(t *testing.T) {
	st := testStore(t)
	content := `# Chat Transcript

**Date:** 2025-01-01 12:00:00
**Model:** retired-model (gone/retired-model)
**System prompt:** You are a helpful assistant.

---

## User

hello

## Assistant

hi there
`
	require.NoError(t, os.WriteFile(filepath.Join(st.Dir(), "old.md"), []byte(content), 0600))

	s := testSession(t)
	restored, warning, err := st.Load(s, "old")
	require.NoError(t, err)
	assert.Equal(t, 2, restored)
	assert.Contains(t, warning, "retired-model")
	assert.Nil(t, s.ActiveModel())
}

func TestLoad_MultilineContent(t *testing.T) {
	st := testStore(t)
	s := testSession(t, "line one\n\nline three")
	s.SwitchModel("gpt120b")
	require.NoError(t, s.StreamTurn(context.Background(), "hi", func(string) {}))

	_, err := st.Save(s, "multiline")
	require.NoError(t, err)

	fresh := testSession(t)
	_, _, err = st.Load(fresh, "multiline")
	require.NoError(t, err)

	msgs := fresh.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "line one\n\nline three", msgs[1].Content)
}

func TestList_NewestFirst(t *testing.T) {
	st := testStore(t)
	s := testSession(t)
	s.SwitchModel("gpt120b")
	require.NoError(t, s.StreamTurn(context.Background(), "hi", func(string) {}))

	older, err := st.Save(s, "older")
	require.NoError(t, err)
	newer, err := st.Save(s, "newer")
	require.NoError(t, err)

	// force distinct modification times
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))
	_ = newer

	infos, err := st.List()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "newer.md", infos[0].Name)
	assert.Equal(t, "older.md", infos[1].Name)
}

func TestList_IgnoresOtherFiles(t *testing.T) {
	st := testStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(st.Dir(), "notes.txt"), []byte("x"), 0600))
	require.NoError(t, os.Mkdir(filepath.Join(st.Dir(), "sub.md"), 0755))

	infos, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestList_UnreadableDir(t *testing.T) {
	st := &Store{dir: filepath.Join(t.TempDir(), "missing")}
	_, err := st.List()
	require.Error(t, err)
}
