package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"aitutor-server/internal/ai"
	"aitutor-server/internal/model"
	"aitutor-server/internal/repository"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMessageEmpty    = errors.New("message content is empty")
	ErrFileEmpty       = errors.New("uploaded file is empty")
	ErrLLMConfig       = errors.New("llm config is invalid")
	ErrMessageEnqueue  = errors.New("message enqueue failed")
)

const defaultSessionTitle = "Untitled Session"

const tutorSystemPrompt = "You are an expert educator helping students understand complex topics " +
	"in a simple and clear manner. Always be supportive, explain step-by-step, and adapt to the " +
	"student's level. Use examples, analogies, and visual descriptions when needed."

const titleSystemPrompt = "Based on the following conversation between a student and an AI tutor, " +
	"generate a short, clear, and meaningful session title (max 8 words). Do not explain anything. " +
	"Just return the title."

const emptyModelResponse = "The model returned an empty response."

// Extractor is the upload-to-text boundary. It is total: whatever happens
// during extraction, the caller gets a string back.
type Extractor interface {
	Extract(data []byte, mediaType string) string
}

type AsyncMessagePublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID uint) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, sessionID uint, messages []model.Message) error
	DeleteHistory(ctx context.Context, sessionID uint) error
	MarkDirty(ctx context.Context, sessionID uint) error
	IsDirty(ctx context.Context, sessionID uint) (bool, error)
}

type ChatService struct {
	sessionRepo  *repository.SessionRepository
	messageRepo  *repository.MessageRepository
	publisher    AsyncMessagePublisher
	historyCache HistoryCache
	extractor    Extractor
	llmClient    *ai.OpenAICompatibleClient
	defaultLLM   ai.ChatConfig
}

func NewChatService(
	sessionRepo *repository.SessionRepository,
	messageRepo *repository.MessageRepository,
	publisher AsyncMessagePublisher,
	historyCache HistoryCache,
	extractor Extractor,
	llmClient *ai.OpenAICompatibleClient,
	defaultLLM ai.ChatConfig,
) *ChatService {
	return &ChatService{
		sessionRepo:  sessionRepo,
		messageRepo:  messageRepo,
		publisher:    publisher,
		historyCache: historyCache,
		extractor:    extractor,
		llmClient:    llmClient,
		defaultLLM:   defaultLLM,
	}
}

type CreateSessionInput struct {
	UserID uint
	Title  string
}

type SendMessageInput struct {
	UserID    uint
	SessionID uint
	Content   string
	LLM       LLMOverride
}

type SendFileInput struct {
	UserID    uint
	SessionID uint
	FileName  string
	MediaType string
	Data      []byte
	// Caption is the optional message typed alongside the upload. When set
	// it becomes its own text turn and triggers an assistant reply.
	Caption string
	LLM     LLMOverride
}

type LLMOverride struct {
	BaseURL string
	APIKey  string
	Model   string
}

type SendMessageResult struct {
	UserMessage      model.Message `json:"user_message"`
	AssistantMessage model.Message `json:"assistant_message"`
}

type SendFileResult struct {
	FileMessage      model.Message  `json:"file_message"`
	CaptionMessage   *model.Message `json:"caption_message,omitempty"`
	AssistantMessage *model.Message `json:"assistant_message,omitempty"`
}

type EndSessionResult struct {
	Title   string         `json:"title"`
	Session *model.Session `json:"session"`
}

func (s *ChatService) CreateSession(input CreateSessionInput) (*model.Session, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = defaultSessionTitle
	}

	session := &model.Session{
		UserID: input.UserID,
		Title:  title,
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ChatService) ListSessions(userID uint) ([]model.Session, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.sessionRepo.ListByUserID(userID)
}

func (s *ChatService) DeleteSession(userID, sessionID uint) error {
	if userID == 0 || sessionID == 0 {
		return ErrInvalidInput
	}
	session, err := s.sessionRepo.GetByIDAndUserID(sessionID, userID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if err := s.messageRepo.DeleteBySessionID(sessionID); err != nil {
		return err
	}
	if err := s.sessionRepo.DeleteByIDAndUserID(sessionID, userID); err != nil {
		return err
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(context.Background(), sessionID)
	}
	return nil
}

// SendMessage handles a plain text turn: build the conversation context from
// persisted state, persist the user turn, complete, persist the reply.
func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*SendMessageResult, error) {
	if input.UserID == 0 || input.SessionID == 0 {
		return nil, ErrInvalidInput
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrMessageEmpty
	}

	session, err := s.sessionRepo.GetByIDAndUserID(input.SessionID, input.UserID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	cfg, err := s.resolveLLM(input.LLM)
	if err != nil {
		return nil, err
	}
	prompt, err := s.assemblePrompt(session, ai.ChatMessage{Role: "user", Content: content})
	if err != nil {
		return nil, err
	}

	userMessage := model.Message{
		SessionID:   input.SessionID,
		UserID:      input.UserID,
		IsUser:      true,
		Content:     content,
		MessageType: model.MessageTypeText,
		CreatedAt:   time.Now(),
	}
	if err := s.enqueue(ctx, userMessage); err != nil {
		return nil, err
	}

	assistantContent, err := s.llmClient.Complete(ctx, cfg, prompt)
	if err != nil {
		return nil, err
	}
	assistantMessage, err := s.persistAssistantReply(ctx, input.SessionID, input.UserID, assistantContent)
	if err != nil {
		return nil, err
	}

	return &SendMessageResult{
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
	}, nil
}

// StreamMessage is SendMessage over a chunk callback.
func (s *ChatService) StreamMessage(
	ctx context.Context,
	input SendMessageInput,
	onChunk func(string) error,
) (string, error) {
	if input.UserID == 0 || input.SessionID == 0 {
		return "", ErrInvalidInput
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return "", ErrMessageEmpty
	}

	session, err := s.sessionRepo.GetByIDAndUserID(input.SessionID, input.UserID)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", ErrSessionNotFound
	}

	cfg, err := s.resolveLLM(input.LLM)
	if err != nil {
		return "", err
	}
	prompt, err := s.assemblePrompt(session, ai.ChatMessage{Role: "user", Content: content})
	if err != nil {
		return "", err
	}

	userMessage := model.Message{
		SessionID:   input.SessionID,
		UserID:      input.UserID,
		IsUser:      true,
		Content:     content,
		MessageType: model.MessageTypeText,
		CreatedAt:   time.Now(),
	}
	if err := s.enqueue(ctx, userMessage); err != nil {
		return "", err
	}

	full, err := s.llmClient.StreamComplete(ctx, cfg, prompt, onChunk)
	if err != nil {
		return "", err
	}
	if _, err := s.persistAssistantReply(ctx, input.SessionID, input.UserID, full); err != nil {
		return "", err
	}
	return full, nil
}

// SendFile ingests an upload. The file message and the session's latest-file
// pointer are written in one transaction so the pointer can never be observed
// ahead of (or behind) its owning message. Extraction failures do not fail
// the upload: the sentinel text simply becomes the stored content.
func (s *ChatService) SendFile(ctx context.Context, input SendFileInput) (*SendFileResult, error) {
	if input.UserID == 0 || input.SessionID == 0 {
		return nil, ErrInvalidInput
	}
	if len(input.Data) == 0 {
		return nil, ErrFileEmpty
	}

	session, err := s.sessionRepo.GetByIDAndUserID(input.SessionID, input.UserID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	extracted := s.extractor.Extract(input.Data, input.MediaType)

	caption := strings.TrimSpace(input.Caption)
	content := caption
	if content == "" {
		content = extracted
	}

	fileMessage := model.Message{
		SessionID:   input.SessionID,
		UserID:      input.UserID,
		IsUser:      true,
		Content:     content,
		MessageType: model.MessageTypeFile,
		File: model.FileAttachment{
			StoredKey:     uuid.NewString(),
			OriginalName:  input.FileName,
			ExtractedText: extracted,
		},
		CreatedAt: time.Now(),
	}
	if err := s.sessionRepo.AppendFileMessage(session, &fileMessage); err != nil {
		return nil, err
	}
	s.invalidateHistory(ctx, input.SessionID)

	result := &SendFileResult{FileMessage: fileMessage}
	if caption == "" {
		return result, nil
	}

	cfg, err := s.resolveLLM(input.LLM)
	if err != nil {
		return nil, err
	}
	prompt, err := s.assemblePrompt(session, ai.ChatMessage{Role: "user", Content: caption})
	if err != nil {
		return nil, err
	}

	captionMessage := model.Message{
		SessionID:   input.SessionID,
		UserID:      input.UserID,
		IsUser:      true,
		Content:     caption,
		MessageType: model.MessageTypeText,
		CreatedAt:   time.Now(),
	}
	if err := s.enqueue(ctx, captionMessage); err != nil {
		return nil, err
	}

	assistantContent, err := s.llmClient.Complete(ctx, cfg, prompt)
	if err != nil {
		return nil, err
	}
	assistantMessage, err := s.persistAssistantReply(ctx, input.SessionID, input.UserID, assistantContent)
	if err != nil {
		return nil, err
	}

	result.CaptionMessage = &captionMessage
	result.AssistantMessage = &assistantMessage
	return result, nil
}

// EndSession generates a title from the session's history. A session with no
// messages ends cleanly with the default title.
func (s *ChatService) EndSession(ctx context.Context, userID, sessionID uint) (*EndSessionResult, error) {
	if userID == 0 || sessionID == 0 {
		return nil, ErrInvalidInput
	}

	session, err := s.sessionRepo.GetByIDAndUserID(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	messages, err := s.messageRepo.ListBySessionID(sessionID, 0)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return &EndSessionResult{Title: defaultSessionTitle, Session: session}, nil
	}

	cfg, err := s.resolveLLM(LLMOverride{})
	if err != nil {
		return nil, err
	}

	prompt := make([]ai.ChatMessage, 0, len(messages)+1)
	prompt = append(prompt, ai.ChatMessage{Role: "system", Content: titleSystemPrompt})
	for _, msg := range messages {
		role := "assistant"
		if msg.IsUser {
			role = "user"
		}
		prompt = append(prompt, ai.ChatMessage{Role: role, Content: msg.Content})
	}

	title, err := s.llmClient.Complete(ctx, cfg, prompt)
	if err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultSessionTitle
	}
	if len(title) > 128 {
		title = title[:128]
	}

	if err := s.sessionRepo.UpdateTitle(sessionID, userID, title); err != nil {
		return nil, err
	}
	session.Title = title
	return &EndSessionResult{Title: title, Session: session}, nil
}

func (s *ChatService) GetSessionMessages(userID, sessionID uint, limit int) ([]model.Message, error) {
	if userID == 0 || sessionID == 0 {
		return nil, ErrInvalidInput
	}

	session, err := s.sessionRepo.GetByIDAndUserID(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	ctx := context.Background()
	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, sessionID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, sessionID); cacheErr == nil && hit {
				return trimMessages(cached, limit), nil
			}
		}
	}

	messages, err := s.messageRepo.ListBySessionID(sessionID, limit)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, sessionID, messages)
		}
	}
	return messages, nil
}

// assemblePrompt reads the persisted history, builds the ordered context
// entries (file memory first, then history, then the new turn), and puts
// the tutor system prompt ahead of everything.
func (s *ChatService) assemblePrompt(session *model.Session, newTurn ai.ChatMessage) ([]ai.ChatMessage, error) {
	history, err := s.messageRepo.ListBySessionID(session.ID, 0)
	if err != nil {
		return nil, err
	}
	entries := BuildConversationContext(history, session, newTurn)

	prompt := make([]ai.ChatMessage, 0, len(entries)+1)
	prompt = append(prompt, ai.ChatMessage{Role: "system", Content: tutorSystemPrompt})
	return append(prompt, entries...), nil
}

func (s *ChatService) enqueue(ctx context.Context, msg model.Message) error {
	if s.publisher == nil {
		return ErrMessageEnqueue
	}
	s.invalidateHistory(ctx, msg.SessionID)
	if err := s.publisher.Publish(ctx, msg); err != nil {
		return ErrMessageEnqueue
	}
	return nil
}

func (s *ChatService) persistAssistantReply(ctx context.Context, sessionID, userID uint, content string) (model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		content = emptyModelResponse
	}
	msg := model.Message{
		SessionID:   sessionID,
		UserID:      userID,
		IsUser:      false,
		Content:     content,
		MessageType: model.MessageTypeText,
		CreatedAt:   time.Now(),
	}
	if err := s.enqueue(ctx, msg); err != nil {
		return model.Message{}, err
	}
	return msg, nil
}

func (s *ChatService) invalidateHistory(ctx context.Context, sessionID uint) {
	if s.historyCache == nil {
		return
	}
	_ = s.historyCache.MarkDirty(ctx, sessionID)
	_ = s.historyCache.DeleteHistory(ctx, sessionID)
}

func trimMessages(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}

func (s *ChatService) resolveLLM(override LLMOverride) (ai.ChatConfig, error) {
	cfg := s.defaultLLM
	if strings.TrimSpace(override.BaseURL) != "" {
		cfg.BaseURL = strings.TrimSpace(override.BaseURL)
	}
	if strings.TrimSpace(override.APIKey) != "" {
		cfg.APIKey = strings.TrimSpace(override.APIKey)
	}
	if strings.TrimSpace(override.Model) != "" {
		cfg.Model = strings.TrimSpace(override.Model)
	}
	if cfg.BaseURL == "" || cfg.APIKey == "" || cfg.Model == "" {
		return ai.ChatConfig{}, ErrLLMConfig
	}
	return cfg, nil
}
