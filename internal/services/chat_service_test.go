package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-rag-chatbot/internal/domain"
	"github.com/tbourn/go-rag-chatbot/internal/llm"
	"github.com/tbourn/go-rag-chatbot/internal/token"
)

// ---- fakes ----

type fakeVerifier struct {
	username string
	err      error
	calls    int
}

func (f *fakeVerifier) Verify(ctx context.Context, authorization string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.username, nil
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

type fakeRetriever struct {
	chunks []domain.DocumentChunk
	gotK   int
	gotW   float64
}

func (f *fakeRetriever) Search(queryVec []float32, k int, w float64) []domain.DocumentChunk {
	f.gotK, f.gotW = k, w
	return f.chunks
}

type fakeGenerator struct {
	answer      string
	err         error
	gotQuestion string
	gotHistory  []llm.Exchange
	gotContexts []string
}

func (f *fakeGenerator) Generate(ctx context.Context, question string, history []llm.Exchange, contexts []string) (string, error) {
	f.gotQuestion, f.gotHistory, f.gotContexts = question, history, contexts
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func newChatDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("chat_svc_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.Conversation{}, &domain.Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newChatService(t *testing.T, db *gorm.DB) (*ChatService, *fakeVerifier, *fakeRetriever, *fakeGenerator) {
	t.Helper()
	v := &fakeVerifier{username: "johndoe"}
	r := &fakeRetriever{chunks: []domain.DocumentChunk{
		{ID: "c1", Text: "context one"},
		{ID: "c2", Text: "context two"},
	}}
	g := &fakeGenerator{answer: "the generated answer"}
	svc := &ChatService{
		DB:               db,
		Verifier:         v,
		Embedder:         &fakeEmbedder{vec: []float32{1, 0}},
		Retriever:        r,
		Generator:        g,
		TopK:             6,
		DiversityWeight:  0.5,
		HistoryLimit:     50,
		MaxQuestionRunes: 2000,
	}
	return svc, v, r, g
}

// ---- tests ----

func TestAnswer_HappyPathPersistsExchange(t *testing.T) {
	db := newChatDB(t)
	svc, _, r, g := newChatService(t, db)

	res, err := svc.Answer(context.Background(), "Bearer tok", "sess-1", "What is the refund policy?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if res.SessionID != "sess-1" || res.Answer != "the generated answer" || !res.Saved {
		t.Fatalf("unexpected result: %+v", res)
	}
	if r.gotK != 6 || r.gotW != 0.5 {
		t.Fatalf("retrieval params k=%d w=%v", r.gotK, r.gotW)
	}
	if len(g.gotContexts) != 2 || g.gotContexts[0] != "context one" {
		t.Fatalf("contexts passed to generator: %v", g.gotContexts)
	}

	var msgs []domain.Message
	if err := db.Order("created_at ASC, id ASC").Find(&msgs).Error; err != nil {
		t.Fatalf("load messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d persisted messages, want 2", len(msgs))
	}
	if msgs[0].Role != domain.RoleUser || msgs[1].Role != domain.RoleAssistant {
		t.Fatalf("roles = %s,%s", msgs[0].Role, msgs[1].Role)
	}
}

func TestAnswer_MintsSessionIDWhenEmpty(t *testing.T) {
	db := newChatDB(t)
	svc, _, _, _ := newChatService(t, db)

	res, err := svc.Answer(context.Background(), "Bearer tok", "", "hello")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if res.SessionID == "" {
		t.Fatal("no session id minted")
	}

	// Reusing the returned id continues the same conversation.
	if _, err := svc.Answer(context.Background(), "Bearer tok", res.SessionID, "again"); err != nil {
		t.Fatalf("second Answer: %v", err)
	}
	var count int64
	if err := db.Model(&domain.Conversation{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("conversations = %d, want 1", count)
	}
}

func TestAnswer_QuestionValidation(t *testing.T) {
	db := newChatDB(t)
	svc, v, _, _ := newChatService(t, db)

	if _, err := svc.Answer(context.Background(), "Bearer tok", "s", "   "); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("blank question err = %v, want ErrEmptyQuestion", err)
	}
	long := strings.Repeat("q", 2001)
	if _, err := svc.Answer(context.Background(), "Bearer tok", "s", long); !errors.Is(err, ErrQuestionTooLong) {
		t.Fatalf("long question err = %v, want ErrQuestionTooLong", err)
	}
	if v.calls != 0 {
		t.Fatalf("verifier called %d times before validation passed", v.calls)
	}
}

func TestAnswer_AuthErrorsPassThrough(t *testing.T) {
	db := newChatDB(t)

	for _, sentinel := range []error{
		token.ErrMissingToken,
		token.ErrTokenExpired,
		token.ErrUnauthorized,
		token.ErrVerifierUnavailable,
	} {
		svc, v, _, _ := newChatService(t, db)
		v.err = sentinel
		if _, err := svc.Answer(context.Background(), "Bearer tok", "s", "q"); !errors.Is(err, sentinel) {
			t.Fatalf("err = %v, want %v", err, sentinel)
		}
	}

	var count int64
	if err := db.Model(&domain.Conversation{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("failed auth created %d conversations", count)
	}
}

func TestAnswer_HistoryPairing(t *testing.T) {
	db := newChatDB(t)
	svc, _, _, g := newChatService(t, db)

	// Turn 1 and 2 succeed normally.
	if _, err := svc.Answer(context.Background(), "Bearer tok", "s1", "first question"); err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if _, err := svc.Answer(context.Background(), "Bearer tok", "s1", "second question"); err != nil {
		t.Fatalf("turn 2: %v", err)
	}

	// An orphaned user message (no assistant reply) must not appear in history.
	var conv domain.Conversation
	if err := db.First(&conv, "session_id = ?", "s1").Error; err != nil {
		t.Fatalf("load conversation: %v", err)
	}
	orphan := domain.Message{
		ID:             "orphan",
		ConversationID: conv.ID,
		Role:           domain.RoleUser,
		Content:        "orphaned",
		CreatedAt:      time.Now().UTC().Add(time.Second),
	}
	if err := db.Create(&orphan).Error; err != nil {
		t.Fatalf("seed orphan: %v", err)
	}

	if _, err := svc.Answer(context.Background(), "Bearer tok", "s1", "third question"); err != nil {
		t.Fatalf("turn 3: %v", err)
	}

	if len(g.gotHistory) != 2 {
		t.Fatalf("history length = %d, want 2", len(g.gotHistory))
	}
	if g.gotHistory[0].Question != "first question" || g.gotHistory[0].Answer != "the generated answer" {
		t.Fatalf("first exchange = %+v", g.gotHistory[0])
	}
	if g.gotHistory[1].Question != "second question" {
		t.Fatalf("second exchange = %+v", g.gotHistory[1])
	}
}

func TestAnswer_EmbedFailureIsRetrievalError(t *testing.T) {
	db := newChatDB(t)
	svc, _, _, _ := newChatService(t, db)
	svc.Embedder = &fakeEmbedder{err: errors.New("embedding api down")}

	_, err := svc.Answer(context.Background(), "Bearer tok", "s", "q")
	if !errors.Is(err, ErrRetrieval) {
		t.Fatalf("err = %v, want ErrRetrieval", err)
	}
}

func TestAnswer_GenerationFailure(t *testing.T) {
	db := newChatDB(t)
	svc, _, _, g := newChatService(t, db)
	g.err = errors.New("model overloaded")

	_, err := svc.Answer(context.Background(), "Bearer tok", "s", "q")
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("err = %v, want ErrGeneration", err)
	}

	// Nothing persisted when generation fails.
	var count int64
	if err := db.Model(&domain.Message{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("messages = %d, want 0", count)
	}
}

func TestAnswer_EmptyGenerationIsError(t *testing.T) {
	db := newChatDB(t)
	svc, _, _, g := newChatService(t, db)
	g.answer = "   "

	if _, err := svc.Answer(context.Background(), "Bearer tok", "s", "q"); !errors.Is(err, ErrEmptyAnswer) {
		t.Fatalf("err = %v, want ErrEmptyAnswer", err)
	}
}

func TestAnswer_PersistFailureStillReturnsAnswer(t *testing.T) {
	db := newChatDB(t)
	svc, _, _, _ := newChatService(t, db)

	// Block inserts while keeping reads working so the pipeline reaches the
	// final write and only that write fails.
	err := db.Exec(`CREATE TRIGGER block_message_insert BEFORE INSERT ON messages
		BEGIN SELECT RAISE(ABORT, 'write blocked'); END;`).Error
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	res, err := svc.Answer(context.Background(), "Bearer tok", "s", "q")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if res.Answer != "the generated answer" {
		t.Fatalf("answer = %q", res.Answer)
	}
	if res.Saved {
		t.Fatal("Saved = true despite write failure")
	}
}

func TestAnswer_EmptyIndexStillAnswers(t *testing.T) {
	db := newChatDB(t)
	svc, _, r, g := newChatService(t, db)
	r.chunks = nil

	res, err := svc.Answer(context.Background(), "Bearer tok", "s", "q")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if res.Answer == "" {
		t.Fatal("no answer with empty retrieval")
	}
	if len(g.gotContexts) != 0 {
		t.Fatalf("contexts = %v, want none", g.gotContexts)
	}
}

func TestPairExchanges(t *testing.T) {
	msgs := []domain.Message{
		{Role: domain.RoleAssistant, Content: "orphan answer"},
		{Role: domain.RoleUser, Content: "q1"},
		{Role: domain.RoleAssistant, Content: "a1"},
		{Role: domain.RoleUser, Content: "dropped"},
		{Role: domain.RoleUser, Content: "q2"},
		{Role: domain.RoleAssistant, Content: "a2"},
		{Role: domain.RoleUser, Content: "trailing"},
	}
	got := pairExchanges(msgs)
	if len(got) != 2 {
		t.Fatalf("got %d exchanges, want 2", len(got))
	}
	if got[0].Question != "q1" || got[0].Answer != "a1" {
		t.Fatalf("first = %+v", got[0])
	}
	if got[1].Question != "q2" || got[1].Answer != "a2" {
		t.Fatalf("second = %+v", got[1])
	}

	if got := pairExchanges(nil); len(got) != 0 {
		t.Fatalf("empty input produced %d exchanges", len(got))
	}
}
