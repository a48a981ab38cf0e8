package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"jurigen-backend/models"
)

type stubCompleter struct {
	reply string
	err   error
	block chan struct{}

	mu      sync.Mutex
	history []models.ChatMessage
}

func (c *stubCompleter) Complete(ctx context.Context, history []models.ChatMessage, message string) (string, error) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	c.history = history
	c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

func TestChatOpensWithGreeting(t *testing.T) {
	svc := NewChatService(&stubCompleter{})

	history := svc.History()
	if len(history) != 1 {
		t.Fatalf("expected 1 opening message, got %d", len(history))
	}
	if history[0].Role != models.ChatRoleModel {
		t.Fatalf("opening message has wrong role %q", history[0].Role)
	}
	if history[0].Text != "Olá! Sou seu assistente JuriGen. Como posso ajudar com seu caso hoje?" {
		t.Fatalf("unexpected opening message %q", history[0].Text)
	}
}

func TestChatSendRecordsBothTurns(t *testing.T) {
	completer := &stubCompleter{reply: "Sua audiencia esta marcada."}
	svc := NewChatService(completer)

	reply, err := svc.Send(context.Background(), "Quando e minha audiencia?")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply != completer.reply {
		t.Fatalf("unexpected reply %q", reply)
	}

	history := svc.History()
	if len(history) != 3 {
		t.Fatalf("expected greeting + 2 turns, got %d messages", len(history))
	}
	if history[1].Role != models.ChatRoleUser || history[2].Role != models.ChatRoleModel {
		t.Fatalf("turns recorded with wrong roles: %+v", history[1:])
	}
	// The completer must see the history as it was before this turn.
	if len(completer.history) != 1 {
		t.Fatalf("completer saw %d prior messages, expected 1", len(completer.history))
	}
}

func TestChatFailureYieldsApology(t *testing.T) {
	svc := NewChatService(&stubCompleter{err: errors.New("quota exceeded")})

	reply, err := svc.Send(context.Background(), "O que e uma tutela de urgencia?")
	if err != nil {
		t.Fatalf("a completion failure must not surface as an error, got %v", err)
	}
	if reply != "Desculpe, tive um erro ao processar sua dúvida." {
		t.Fatalf("expected apology fallback, got %q", reply)
	}

	history := svc.History()
	if history[len(history)-1].Text != chatApology {
		t.Fatal("apology was not recorded in the history")
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	svc := NewChatService(&stubCompleter{reply: "ok"})

	if _, err := svc.Send(context.Background(), "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if len(svc.History()) != 1 {
		t.Fatal("rejected message must not enter the history")
	}
}

func TestChatRejectsOverlappingSend(t *testing.T) {
	completer := &stubCompleter{reply: "ok", block: make(chan struct{})}
	svc := NewChatService(completer)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := svc.Send(context.Background(), "primeira pergunta"); err != nil {
			t.Errorf("first Send: %v", err)
		}
	}()

	// Wait until the first send is inside the completer.
	for {
		svc.mu.Lock()
		busy := svc.busy
		svc.mu.Unlock()
		if busy {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := svc.Send(context.Background(), "segunda pergunta"); !errors.Is(err, ErrChatBusy) {
		t.Fatalf("expected ErrChatBusy, got %v", err)
	}

	close(completer.block)
	<-done

	if len(svc.History()) != 3 {
		t.Fatalf("expected only the first turn recorded, got %d messages", len(svc.History()))
	}
}
