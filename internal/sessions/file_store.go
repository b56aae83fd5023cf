package sessions

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/clawft/clawft/internal/security"
	"github.com/clawft/clawft/pkg/models"
)

// metaAgentIDKey is the reserved metadata key used to round-trip
// Session.AgentID through the on-disk metadata object, which the external
// file format otherwise leaves free-form.
const metaAgentIDKey = "_agent_id"

// FileStore is a Store implementation backed by one JSONL file per session
// under Root, named "{key}.jsonl". Line 0 is a metadata record; each
// subsequent line is a message record. Messages are append-only: once
// written, a line is never rewritten or removed.
type FileStore struct {
	mu   sync.Mutex
	root string
}

// NewFileStore creates a FileStore rooted at root, creating the directory
// if it does not already exist.
func NewFileStore(root string) (*FileStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create session store root: %w", err)
	}
	return &FileStore{root: root}, nil
}

type metadataLine struct {
	Type             string         `json:"_type"`
	Key              string         `json:"key"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	LastConsolidated int            `json:"last_consolidated"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// messageRecord is the on-disk shape of a message line. Role, Content, and
// Timestamp are the minimum fields every line must carry; everything else
// is optional and lets a round trip reconstruct the full models.Message.
type messageRecord struct {
	ID          string              `json:"id,omitempty"`
	SessionID   string              `json:"session_id,omitempty"`
	Channel     models.ChannelType  `json:"channel,omitempty"`
	ChannelID   string              `json:"channel_id,omitempty"`
	Direction   models.Direction    `json:"direction,omitempty"`
	Role        models.Role         `json:"role"`
	Content     string              `json:"content"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
	ToolCalls   []models.ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []models.ToolResult `json:"tool_results,omitempty"`
	ToolCallID  string              `json:"tool_call_id,omitempty"`
	Metadata    map[string]any      `json:"metadata,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
}

func (s *FileStore) pathFor(key string) (string, error) {
	if err := security.ValidateSessionID(key); err != nil {
		return "", err
	}
	return filepath.Join(s.root, key+".jsonl"), nil
}

func splitKey(key string) (models.ChannelType, string) {
	channel, chatID, ok := strings.Cut(key, ":")
	if !ok {
		return "", key
	}
	return models.ChannelType(channel), chatID
}

func toMetadataLine(session *models.Session) metadataLine {
	meta := deepCloneMap(session.Metadata)
	if meta == nil {
		meta = map[string]any{}
	}
	if session.AgentID != "" {
		meta[metaAgentIDKey] = session.AgentID
	}
	if len(meta) == 0 {
		meta = nil
	}
	return metadataLine{
		Type:             "metadata",
		Key:              session.Key,
		CreatedAt:        session.CreatedAt,
		UpdatedAt:        session.UpdatedAt,
		LastConsolidated: session.LastConsolidated,
		Metadata:         meta,
	}
}

func fromMetadataLine(line metadataLine) *models.Session {
	channel, channelID := splitKey(line.Key)
	meta := deepCloneMap(line.Metadata)
	var agentID string
	if meta != nil {
		if v, ok := meta[metaAgentIDKey].(string); ok {
			agentID = v
			delete(meta, metaAgentIDKey)
		}
		if len(meta) == 0 {
			meta = nil
		}
	}
	return &models.Session{
		ID:               line.Key,
		AgentID:          agentID,
		Channel:          channel,
		ChannelID:        channelID,
		Key:              line.Key,
		Metadata:         meta,
		CreatedAt:        line.CreatedAt,
		UpdatedAt:        line.UpdatedAt,
		LastConsolidated: line.LastConsolidated,
	}
}

func toMessageRecord(msg *models.Message) messageRecord {
	return messageRecord{
		ID:          msg.ID,
		SessionID:   msg.SessionID,
		Channel:     msg.Channel,
		ChannelID:   msg.ChannelID,
		Direction:   msg.Direction,
		Role:        msg.Role,
		Content:     msg.Content,
		Attachments: msg.Attachments,
		ToolCalls:   msg.ToolCalls,
		ToolResults: msg.ToolResults,
		Metadata:    msg.Metadata,
		Timestamp:   msg.CreatedAt,
	}
}

func fromMessageRecord(rec messageRecord) *models.Message {
	return &models.Message{
		ID:          rec.ID,
		SessionID:   rec.SessionID,
		Channel:     rec.Channel,
		ChannelID:   rec.ChannelID,
		Direction:   rec.Direction,
		Role:        rec.Role,
		Content:     rec.Content,
		Attachments: rec.Attachments,
		ToolCalls:   rec.ToolCalls,
		ToolResults: rec.ToolResults,
		Metadata:    rec.Metadata,
		CreatedAt:   rec.Timestamp,
	}
}

// load reads a session file, reconstructing metadata then messages in
// order. A metadata-only file loads to an empty-message session. A corrupt
// non-metadata line is skipped; the rest of the file still loads.
func (s *FileStore) load(path string) (*models.Session, []*models.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		return nil, nil, fmt.Errorf("session file %s: empty", path)
	}
	var meta metadataLine
	if err := json.Unmarshal(scanner.Bytes(), &meta); err != nil {
		return nil, nil, fmt.Errorf("session file %s: metadata line: %w", path, err)
	}
	session := fromMetadataLine(meta)

	var messages []*models.Message
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var rec messageRecord
		if err := json.Unmarshal(line, &rec); err != nil || rec.Role == "" {
			// Corrupt or malformed line: skip it, keep loading the rest.
			continue
		}
		messages = append(messages, fromMessageRecord(rec))
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("session file %s: %w", path, err)
	}

	return session, messages, nil
}

// saveAll atomically rewrites the full session file: metadata line then
// every message, in order.
func (s *FileStore) saveAll(path string, session *models.Session, messages []*models.Message) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}

	writeErr := func() error {
		w := bufio.NewWriter(f)
		enc := json.NewEncoder(w)
		if err := enc.Encode(toMetadataLine(session)); err != nil {
			return err
		}
		for _, msg := range messages {
			if err := enc.Encode(toMessageRecord(msg)); err != nil {
				return err
			}
		}
		return w.Flush()
	}()

	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmp)
		return fmt.Errorf("write session file: %w", writeErr)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename session file: %w", err)
	}
	return nil
}

func (s *FileStore) Create(ctx context.Context, session *models.Session) error {
	if session == nil {
		return errors.New("session is required")
	}
	if session.Key == "" {
		return errors.New("session key is required")
	}
	path, err := s.pathFor(session.Key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, statErr := os.Stat(path); statErr == nil {
		return fmt.Errorf("session already exists: %s", session.Key)
	}

	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = session.CreatedAt
	session.ID = session.Key

	return s.saveAll(path, session, nil)
}

func (s *FileStore) Get(ctx context.Context, id string) (*models.Session, error) {
	return s.GetByKey(ctx, id)
}

func (s *FileStore) Update(ctx context.Context, session *models.Session) error {
	if session == nil {
		return errors.New("session is required")
	}
	path, err := s.pathFor(session.Key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, messages, err := s.load(path)
	if err != nil {
		return fmt.Errorf("session not found: %w", err)
	}
	session.CreatedAt = existing.CreatedAt
	session.UpdatedAt = time.Now()
	session.ID = session.Key
	return s.saveAll(path, session, messages)
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("session not found: %w", err)
	}
	return nil
}

func (s *FileStore) GetByKey(ctx context.Context, key string) (*models.Session, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	session, _, err := s.load(path)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	return session, nil
}

func (s *FileStore) GetOrCreate(ctx context.Context, key string, agentID string, channel models.ChannelType, channelID string) (*models.Session, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if session, _, loadErr := s.load(path); loadErr == nil {
		return session, nil
	}

	now := time.Now()
	session := &models.Session{
		ID:        key,
		AgentID:   agentID,
		Channel:   channel,
		ChannelID: channelID,
		Key:       key,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.saveAll(path, session, nil); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *FileStore) List(ctx context.Context, agentID string, opts ListOptions) ([]*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list session files: %w", err)
	}

	var out []*models.Session
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		path := filepath.Join(s.root, entry.Name())
		session, _, err := s.load(path)
		if err != nil {
			continue
		}
		if agentID != "" && session.AgentID != agentID {
			continue
		}
		if opts.Channel != "" && session.Channel != opts.Channel {
			continue
		}
		out = append(out, session)
	}

	start := opts.Offset
	if start < 0 {
		start = 0
	}
	end := len(out)
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}
	if start > len(out) {
		return []*models.Session{}, nil
	}
	return out[start:end], nil
}

// AppendMessage appends a single message line to the session file in O(1):
// it does not re-read or rewrite the file's existing content.
func (s *FileStore) AppendMessage(ctx context.Context, key string, msg *models.Message) error {
	if msg == nil {
		return errors.New("message is required")
	}
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("session not found: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open session file: %w", err)
	}
	defer f.Close()

	clone := cloneMessage(msg)
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}

	enc := json.NewEncoder(f)
	if err := enc.Encode(toMessageRecord(clone)); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (s *FileStore) GetHistory(ctx context.Context, key string, limit int) ([]*models.Message, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	_, messages, err := s.load(path)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	if len(messages) == 0 {
		return []*models.Message{}, nil
	}
	start := 0
	if limit > 0 && len(messages) > limit {
		start = len(messages) - limit
	}
	return messages[start:], nil
}
