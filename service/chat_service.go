package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"jurigen-backend/models"
)

var (
	ErrChatBusy     = errors.New("a chat reply is already in progress")
	ErrEmptyMessage = errors.New("message is empty")
)

const (
	chatGreeting = "Olá! Sou seu assistente JuriGen. Como posso ajudar com seu caso hoje?"
	chatApology  = "Desculpe, tive um erro ao processar sua dúvida."
)

// ChatCompleter produces one assistant reply for a conversation.
type ChatCompleter interface {
	Complete(ctx context.Context, history []models.ChatMessage, message string) (string, error)
}

// ChatService keeps the assistant conversation. The history always opens
// with the assistant greeting, and overlapping sends are rejected rather
// than queued.
type ChatService struct {
	mu        sync.Mutex
	busy      bool
	history   []models.ChatMessage
	completer ChatCompleter
}

// NewChatService creates a new chat service
func NewChatService(completer ChatCompleter) *ChatService {
	return &ChatService{
		completer: completer,
		history:   []models.ChatMessage{{Role: models.ChatRoleModel, Text: chatGreeting}},
	}
}

// History returns a copy of the conversation so far.
func (s *ChatService) History() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

// Send appends the user's message, asks the completer for a reply and
// appends it. A completer failure still produces a turn: the canned
// apology is recorded and returned instead of an error.
func (s *ChatService) Send(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return "", ErrChatBusy
	}
	s.busy = true
	prior := make([]models.ChatMessage, len(s.history))
	copy(prior, s.history)
	s.mu.Unlock()

	reply, err := s.completer.Complete(ctx, prior, message)
	if err != nil {
		log.Printf("Chat completion failed: %v", err)
		reply = chatApology
	}

	s.mu.Lock()
	s.history = append(s.history,
		models.ChatMessage{Role: models.ChatRoleUser, Text: message},
		models.ChatMessage{Role: models.ChatRoleModel, Text: reply},
	)
	s.busy = false
	s.mu.Unlock()

	return reply, nil
}
