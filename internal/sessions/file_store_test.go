package sessions

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/clawft/clawft/pkg/models"
)

func TestFileStoreSessionLifecycle(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	key := SessionKey(models.ChannelSlack, "U12345")
	session, err := store.GetOrCreate(context.Background(), key, "agent-1", models.ChannelSlack, "U12345")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if session.Key != key {
		t.Fatalf("expected key %q, got %q", key, session.Key)
	}

	msg := &models.Message{Role: models.RoleUser, Content: "hello"}
	if err := store.AppendMessage(context.Background(), key, msg); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}
	msg2 := &models.Message{Role: models.RoleAssistant, Content: "hi there"}
	if err := store.AppendMessage(context.Background(), key, msg2); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}

	history, err := store.GetHistory(context.Background(), key, 0)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[0].Content != "hello" || history[1].Content != "hi there" {
		t.Fatalf("expected messages preserved in order, got %+v", history)
	}

	reloaded, err := store.GetByKey(context.Background(), key)
	if err != nil {
		t.Fatalf("GetByKey() error = %v", err)
	}
	if reloaded.AgentID != "agent-1" {
		t.Fatalf("expected agent id to round-trip, got %q", reloaded.AgentID)
	}
}

func TestFileStoreMetadataOnlyLoadsEmpty(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	key := SessionKey(models.ChannelTelegram, "123")
	if _, err := store.GetOrCreate(context.Background(), key, "agent", models.ChannelTelegram, "123"); err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}

	history, err := store.GetHistory(context.Background(), key, 0)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected metadata-only session to load with no messages, got %d", len(history))
	}
}

func TestFileStoreSkipsCorruptLine(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	key := SessionKey(models.ChannelDiscord, "guild:channel")
	if _, err := store.GetOrCreate(context.Background(), key, "agent", models.ChannelDiscord, "guild:channel"); err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if err := store.AppendMessage(context.Background(), key, &models.Message{Role: models.RoleUser, Content: "first"}); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}

	path := filepath.Join(dir, key+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open session file: %v", err)
	}
	if _, err := f.WriteString("{not valid json\n"); err != nil {
		t.Fatalf("write corrupt line: %v", err)
	}
	f.Close()

	if err := store.AppendMessage(context.Background(), key, &models.Message{Role: models.RoleAssistant, Content: "second"}); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}

	history, err := store.GetHistory(context.Background(), key, 0)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected corrupt line to be skipped and the rest to load, got %d messages", len(history))
	}
	if history[0].Content != "first" || history[1].Content != "second" {
		t.Fatalf("expected surviving messages in order, got %+v", history)
	}
}

func TestFileStoreAppendNeverTrims(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	key := SessionKey(models.ChannelSlack, "bulk")
	if _, err := store.GetOrCreate(context.Background(), key, "agent", models.ChannelSlack, "bulk"); err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}

	const total = 1500
	for i := 0; i < total; i++ {
		if err := store.AppendMessage(context.Background(), key, &models.Message{Role: models.RoleUser, Content: "m"}); err != nil {
			t.Fatalf("AppendMessage() error = %v", err)
		}
	}

	history, err := store.GetHistory(context.Background(), key, 0)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(history) != total {
		t.Fatalf("expected all %d messages retained, got %d", total, len(history))
	}
}
