package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
)

func textTurn(role, text string) Turn {
	return Turn{Role: role, Content: []*ai.Part{ai.NewTextPart(text)}}
}

func TestMemory_AppendAssignsContiguousSequence(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	conv, err := store.Create(ctx, uuid.New(), "pairing help")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.AppendTurns(ctx, conv.ID, []Turn{
		textTurn("user", "what goes with duck?"),
		textTurn("model", "a cru Beaujolais"),
	}); err != nil {
		t.Fatalf("AppendTurns: %v", err)
	}
	if err := store.AppendTurns(ctx, conv.ID, []Turn{textTurn("user", "and with cheese?")}); err != nil {
		t.Fatalf("AppendTurns: %v", err)
	}

	turns, err := store.LoadRecent(ctx, conv.ID, 10)
	if err != nil {
		t.Fatalf("LoadRecent: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("got %d turns, want 3", len(turns))
	}
	for i, turn := range turns {
		if turn.Seq != i+1 {
			t.Errorf("turn %d seq = %d, want %d", i, turn.Seq, i+1)
		}
	}

	got, err := store.Get(ctx, conv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TurnCount != 3 {
		t.Errorf("TurnCount = %d, want 3", got.TurnCount)
	}
}

func TestMemory_LoadRecentWindowsChronologically(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	conv, _ := store.Create(ctx, uuid.New(), "")

	var batch []Turn
	for _, text := range []string{"one", "two", "three", "four", "five"} {
		batch = append(batch, textTurn("user", text))
	}
	if err := store.AppendTurns(ctx, conv.ID, batch); err != nil {
		t.Fatalf("AppendTurns: %v", err)
	}

	turns, err := store.LoadRecent(ctx, conv.ID, 2)
	if err != nil {
		t.Fatalf("LoadRecent: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	if turns[0].Content[0].Text != "four" || turns[1].Content[0].Text != "five" {
		t.Errorf("window = [%q, %q], want oldest-first [four, five]",
			turns[0].Content[0].Text, turns[1].Content[0].Text)
	}
}

func TestMemory_AppendToMissingConversation(t *testing.T) {
	store := NewMemory()
	err := store.AppendTurns(context.Background(), uuid.New(), []Turn{textTurn("user", "hi")})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemory_DeleteRemovesTurns(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	conv, _ := store.Create(ctx, uuid.New(), "")
	if err := store.AppendTurns(ctx, conv.ID, []Turn{textTurn("user", "hi")}); err != nil {
		t.Fatalf("AppendTurns: %v", err)
	}

	if err := store.Delete(ctx, conv.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, conv.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	turns, err := store.LoadRecent(ctx, conv.ID, 10)
	if err != nil || len(turns) != 0 {
		t.Errorf("turns after delete = %v (%v), want none", turns, err)
	}
}

func TestTurn_MessageRoundTrip(t *testing.T) {
	turn := textTurn("model", "try the Chablis")
	msg := turn.Message()
	if msg.Role != ai.RoleModel {
		t.Errorf("role = %q, want model", msg.Role)
	}
	if len(msg.Content) != 1 || msg.Content[0].Text != "try the Chablis" {
		t.Errorf("content = %+v", msg.Content)
	}
}
