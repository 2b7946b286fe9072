package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"
	"go.uber.org/goleak"

	"github.com/cellarist/cellarist/internal/contacts"
	"github.com/cellarist/cellarist/internal/conversation"
	"github.com/cellarist/cellarist/internal/inventory"
	"github.com/cellarist/cellarist/internal/testutil"
	"github.com/cellarist/cellarist/internal/tools"
	"github.com/cellarist/cellarist/internal/wine"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// harness wires a full agent over in-memory stores and a scripted model.
type harness struct {
	agent  *Agent
	llm    *testutil.ScriptedLLM
	convs  *conversation.Memory
	user   uuid.UUID
	barolo wine.Record
}

func newHarness(t *testing.T, maxIterations int) *harness {
	t.Helper()
	ctx := context.Background()

	g := genkit.Init(ctx)
	if g == nil {
		t.Fatal("genkit.Init returned nil")
	}

	h := &harness{
		llm:   testutil.NewScriptedLLM("no script"),
		convs: conversation.NewMemory(),
		user:  uuid.New(),
	}
	h.llm.Register(g)

	inv := inventory.NewMemory()
	h.barolo = inv.AddWine(h.user, wine.Record{
		Name: "Barolo Francia", Producer: "Giacomo Conterno",
		Type: wine.TypeRed, Region: "Piemonte", Grapes: []string{"Nebbiolo"},
	})
	inv.AddHolding(h.user, wine.Holding{WineID: h.barolo.ID, Quantity: 2, Location: "Rack A"})
	inv.SetRating(h.user, wine.Rating{WineID: h.barolo.ID, Score: 5})

	handler := tools.NewHandler(inv, contacts.NewMemory(), testutil.DiscardLogger())
	registered := tools.RegisterTools(g, handler)

	agent, err := New(Config{
		Genkit:        g,
		Conversations: h.convs,
		Dispatcher:    tools.NewRegistry(handler, testutil.DiscardLogger()),
		Inventory:     inv,
		Logger:        testutil.DiscardLogger(),
		Tools:         registered,
		ModelName:     testutil.ModelName,
		MaxIterations: maxIterations,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.agent = agent
	return h
}

func searchReds() *ai.ToolRequest {
	return &ai.ToolRequest{
		Name:  tools.ToolSearchWines,
		Ref:   "call-1",
		Input: map[string]any{"type": "red"},
	}
}

func TestConverse_ToolLoopProducesAnswer(t *testing.T) {
	h := newHarness(t, 0)
	h.llm.QueueToolCalls(searchReds())
	h.llm.QueueText("Open the Barolo Francia, it pairs beautifully with braised beef.")

	resp, err := h.agent.Converse(context.Background(), h.user, uuid.Nil, "what red should I open tonight?")
	if err != nil {
		t.Fatalf("Converse: %v", err)
	}
	if resp.Truncated {
		t.Error("Truncated = true, want false")
	}
	if !strings.HasPrefix(resp.AnswerText, "Open the Barolo") {
		t.Errorf("AnswerText = %q", resp.AnswerText)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0] != tools.ToolSearchWines {
		t.Errorf("ToolCalls = %v", resp.ToolCalls)
	}
	if len(resp.WineRefs) != 1 || resp.WineRefs[0].ID != h.barolo.ID {
		t.Errorf("WineRefs = %+v, want the searched wine harvested", resp.WineRefs)
	}
	if h.llm.Calls() != 2 {
		t.Errorf("model calls = %d, want 2", h.llm.Calls())
	}

	// The whole exchange lands as one atomic batch.
	turns, err := h.convs.LoadRecent(context.Background(), resp.ConversationID, 10)
	if err != nil {
		t.Fatalf("LoadRecent: %v", err)
	}
	wantRoles := []string{"user", "model", "tool", "model"}
	if len(turns) != len(wantRoles) {
		t.Fatalf("persisted %d turns, want %d", len(turns), len(wantRoles))
	}
	for i, role := range wantRoles {
		if turns[i].Role != role {
			t.Errorf("turn %d role = %q, want %q", i, turns[i].Role, role)
		}
	}
}

func TestConverse_IterationBoundTruncates(t *testing.T) {
	h := newHarness(t, 3)
	h.llm.LoopToolCalls(searchReds())

	resp, err := h.agent.Converse(context.Background(), h.user, uuid.Nil, "keep digging")
	if err != nil {
		t.Fatalf("Converse: %v", err)
	}
	if !resp.Truncated {
		t.Error("Truncated = false, want true")
	}
	if resp.AnswerText == "" {
		t.Error("AnswerText empty despite truncation")
	}
	if h.llm.Calls() != 3 {
		t.Errorf("model calls = %d, want exactly the iteration bound 3", h.llm.Calls())
	}
}

func TestConverse_UnknownToolContained(t *testing.T) {
	h := newHarness(t, 0)
	h.llm.QueueToolCalls(&ai.ToolRequest{Name: "open_bottle", Ref: "call-1"})
	h.llm.QueueText("I can only look things up, not open bottles.")

	resp, err := h.agent.Converse(context.Background(), h.user, uuid.Nil, "open my barolo")
	if err != nil {
		t.Fatalf("Converse: %v, want contained tool failure", err)
	}
	if resp.Truncated {
		t.Error("Truncated = true, want false")
	}

	// The error payload reached the model as a tool result.
	turns, _ := h.convs.LoadRecent(context.Background(), resp.ConversationID, 10)
	var toolTurn *conversation.Turn
	for i := range turns {
		if turns[i].Role == "tool" {
			toolTurn = &turns[i]
		}
	}
	if toolTurn == nil {
		t.Fatal("no tool turn persisted")
	}
	out, ok := toolTurn.Content[0].ToolResponse.Output.(*tools.ToolError)
	if !ok || out.ErrorType != tools.ErrTypeUnknownTool {
		t.Errorf("tool output = %#v, want UnknownTool error payload", toolTurn.Content[0].ToolResponse.Output)
	}
}

func TestConverse_ParallelToolsKeepRequestOrder(t *testing.T) {
	h := newHarness(t, 0)
	// One model turn asking for three tools at once. The middle request names
	// a tool that does not exist, so its failure must ride along as a payload
	// without disturbing the other two.
	h.llm.QueueToolCalls(
		searchReds(),
		&ai.ToolRequest{Name: "open_bottle", Ref: "call-2"},
		&ai.ToolRequest{Name: tools.ToolCellarStats, Ref: "call-3"},
	)
	h.llm.QueueText("You have one red worth opening tonight.")

	resp, err := h.agent.Converse(context.Background(), h.user, uuid.Nil, "what do I have?")
	if err != nil {
		t.Fatalf("Converse: %v", err)
	}
	wantCalls := []string{tools.ToolSearchWines, "open_bottle", tools.ToolCellarStats}
	if len(resp.ToolCalls) != len(wantCalls) {
		t.Fatalf("ToolCalls = %v, want %v", resp.ToolCalls, wantCalls)
	}
	for i, name := range wantCalls {
		if resp.ToolCalls[i] != name {
			t.Errorf("ToolCalls[%d] = %q, want %q", i, resp.ToolCalls[i], name)
		}
	}
	if h.llm.Calls() != 2 {
		t.Errorf("model calls = %d, want 2 (all results resubmitted together)", h.llm.Calls())
	}

	// All three results land in one tool turn, ordered as requested no matter
	// which goroutine finished first.
	turns, err := h.convs.LoadRecent(context.Background(), resp.ConversationID, 10)
	if err != nil {
		t.Fatalf("LoadRecent: %v", err)
	}
	var toolTurn *conversation.Turn
	for i := range turns {
		if turns[i].Role == "tool" {
			toolTurn = &turns[i]
		}
	}
	if toolTurn == nil {
		t.Fatal("no tool turn persisted")
	}
	if len(toolTurn.Content) != 3 {
		t.Fatalf("tool turn has %d parts, want 3", len(toolTurn.Content))
	}
	wantRefs := []string{"call-1", "call-2", "call-3"}
	for i := range wantRefs {
		tr := toolTurn.Content[i].ToolResponse
		if tr == nil {
			t.Fatalf("part %d is not a tool response", i)
		}
		if tr.Name != wantCalls[i] || tr.Ref != wantRefs[i] {
			t.Errorf("part %d = %s/%s, want %s/%s", i, tr.Name, tr.Ref, wantCalls[i], wantRefs[i])
		}
	}
	if out, ok := toolTurn.Content[1].ToolResponse.Output.(*tools.ToolError); !ok || out.ErrorType != tools.ErrTypeUnknownTool {
		t.Errorf("failing call output = %#v, want UnknownTool error payload", toolTurn.Content[1].ToolResponse.Output)
	}
	if _, bad := toolTurn.Content[0].ToolResponse.Output.(*tools.ToolError); bad {
		t.Error("search result is an error payload, want its normal output")
	}
	if _, bad := toolTurn.Content[2].ToolResponse.Output.(*tools.ToolError); bad {
		t.Error("stats result is an error payload, want its normal output")
	}
}

func TestConverse_Validation(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	if _, err := h.agent.Converse(ctx, h.user, uuid.Nil, "   "); !errors.Is(err, ErrValidation) {
		t.Errorf("empty message err = %v, want ErrValidation", err)
	}
	if _, err := h.agent.Converse(ctx, uuid.Nil, uuid.Nil, "hello"); !errors.Is(err, ErrValidation) {
		t.Errorf("missing user err = %v, want ErrValidation", err)
	}
	if _, err := h.agent.Converse(ctx, h.user, uuid.New(), "hello"); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown conversation err = %v, want ErrValidation", err)
	}
}

func TestConverse_OwnershipEnforced(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	conv, err := h.convs.Create(ctx, uuid.New(), "someone else's thread")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err = h.agent.Converse(ctx, h.user, conv.ID, "hello")
	if !errors.Is(err, ErrAuthorization) {
		t.Errorf("err = %v, want ErrAuthorization", err)
	}
}

func TestConverse_ModelFailureNotRetried(t *testing.T) {
	h := newHarness(t, 0)
	h.llm.FailNext(errors.New("upstream 500"))

	_, err := h.agent.Converse(context.Background(), h.user, uuid.Nil, "hello")
	if !errors.Is(err, ErrModelTransport) {
		t.Fatalf("err = %v, want ErrModelTransport", err)
	}
	if h.llm.Calls() != 1 {
		t.Errorf("model calls = %d, want 1 (no retry)", h.llm.Calls())
	}
}

func TestConverse_PersistenceFailureStillAnswers(t *testing.T) {
	h := newHarness(t, 0)
	h.llm.QueueText("Try the Barolo.")

	ctx := context.Background()
	conv, err := h.convs.Create(ctx, h.user, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	h.convs.FailAppends = true

	resp, err := h.agent.Converse(ctx, h.user, conv.ID, "what should I drink?")
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
	if resp == nil || resp.AnswerText != "Try the Barolo." {
		t.Errorf("resp = %+v, want the answer despite the failed append", resp)
	}
}

func TestConverse_HistoryReplayedAcrossExchanges(t *testing.T) {
	h := newHarness(t, 0)
	h.llm.QueueText("A Nebbiolo.")
	h.llm.QueueText("Then decant it an hour ahead.")

	ctx := context.Background()
	first, err := h.agent.Converse(ctx, h.user, uuid.Nil, "what grape is Barolo?")
	if err != nil {
		t.Fatalf("first Converse: %v", err)
	}
	if _, err := h.agent.Converse(ctx, h.user, first.ConversationID, "how should I serve it?"); err != nil {
		t.Fatalf("second Converse: %v", err)
	}

	req := h.llm.LastRequest()
	if req == nil {
		t.Fatal("no recorded model request")
	}
	// Second call must replay the first exchange plus the new user message.
	var userTexts []string
	for _, msg := range req.Messages {
		if msg.Role == ai.RoleUser {
			userTexts = append(userTexts, msg.Text())
		}
	}
	if len(userTexts) != 2 || userTexts[0] != "what grape is Barolo?" {
		t.Errorf("replayed user messages = %v", userTexts)
	}
}
