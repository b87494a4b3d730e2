package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huamanraj/investai-new/config"
	"github.com/huamanraj/investai-new/database"
	"github.com/huamanraj/investai-new/model"
	"github.com/huamanraj/investai-new/services/gradient"
	"github.com/huamanraj/investai-new/utils/apperr"
)

const answerSystemPrompt = `You are a financial analyst answering questions about company filings.
Use only the given data; do not guess numbers. When the context covers multiple companies, separate each company's answer clearly.`

// EmitFunc delivers one stream event to the caller. Returning an error
// aborts the pipeline (client disconnected).
type EmitFunc func(Event) error

// RetrievalService answers user questions over the embedded filings,
// streaming model tokens through the same event framing as job progress
type RetrievalService struct {
	store      *database.Store
	embeddings *gradient.EmbeddingClient
	chat       *gradient.ChatClient
	cfg        *config.EnviornmentVariable
}

// NewRetrievalService wires the retrieval pipeline
func NewRetrievalService(store *database.Store, embeddings *gradient.EmbeddingClient, chat *gradient.ChatClient, cfg *config.EnviornmentVariable) *RetrievalService {
	return &RetrievalService{
		store:      store,
		embeddings: embeddings,
		chat:       chat,
		cfg:        cfg,
	}
}

// lastKNNScope records the project set of the most recent search; test hook
var (
	lastKNNScopeMu sync.Mutex
	lastKNNScope   []uuid.UUID
)

// LastKNNScope returns the project scope of the most recent KNN query
func LastKNNScope() []uuid.UUID {
	lastKNNScopeMu.Lock()
	defer lastKNNScopeMu.Unlock()
	return append([]uuid.UUID(nil), lastKNNScope...)
}

func recordKNNScope(projectIDs []uuid.UUID) {
	lastKNNScopeMu.Lock()
	defer lastKNNScopeMu.Unlock()
	lastKNNScope = append([]uuid.UUID(nil), projectIDs...)
}

// Answer runs the full retrieval pipeline for one user question. Events are
// emitted in the order status*, context, start, chunk*, done; error may
// appear at any point and is terminal. If ctx is cancelled before done, the
// assistant message is not persisted.
func (r *RetrievalService) Answer(ctx context.Context, chatID uuid.UUID, userContent string, projectIDs []uuid.UUID, emit EmitFunc) error {
	if strings.TrimSpace(userContent) == "" {
		return apperr.Validation("message content must not be empty")
	}
	if len(projectIDs) == 0 {
		return apperr.Validation("project set must not be empty")
	}

	// History is read before the new message is stored so the prompt holds
	// prior turns only
	history, err := r.store.ListMessagesByChat(chatID)
	if err != nil {
		return err
	}

	userMessage := &model.Message{
		ChatID:     chatID,
		Role:       model.MessageRoleUser,
		Content:    userContent,
		ProjectIDs: model.ProjectIDSet(projectIDs),
	}
	if err := r.store.CreateMessage(userMessage); err != nil {
		return err
	}

	if err := emit(Event{Type: EventStatus, Message: "Creating query embedding", Timestamp: time.Now().UTC()}); err != nil {
		return err
	}

	queryVector, err := r.embeddings.EmbedOne(ctx, userContent)
	if err != nil {
		return apperr.Unavailable("embedding provider failed", err)
	}

	if err := emit(Event{Type: EventStatus, Message: "Searching relevant documents", Timestamp: time.Now().UTC()}); err != nil {
		return err
	}

	results, err := r.store.KNN(queryVector, projectIDs, r.cfg.KNN_K)
	if err != nil {
		return err
	}
	recordKNNScope(projectIDs)

	if err := emit(Event{Type: EventContext, ChunksFound: len(results), Timestamp: time.Now().UTC()}); err != nil {
		return err
	}

	messages := buildPromptMessages(history, results, userContent)

	if err := emit(Event{Type: EventStart, Timestamp: time.Now().UTC()}); err != nil {
		return err
	}

	var answer strings.Builder
	streamErr := r.chat.StreamCompletion(ctx, messages, func(chunk gradient.StreamChunk) error {
		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			answer.WriteString(choice.Delta.Content)
			if err := emit(Event{Type: EventChunk, Content: choice.Delta.Content, Timestamp: time.Now().UTC()}); err != nil {
				return err
			}
		}
		return nil
	})
	if streamErr != nil {
		if ctx.Err() != nil {
			// Client gone: discard the in-flight answer
			return apperr.New(apperr.KindCancelled, "retrieval cancelled by client")
		}
		return apperr.Unavailable("chat provider failed", streamErr)
	}
	if ctx.Err() != nil {
		return apperr.New(apperr.KindCancelled, "retrieval cancelled by client")
	}

	assistantMessage := &model.Message{
		ChatID:     chatID,
		Role:       model.MessageRoleAI,
		Content:    answer.String(),
		ProjectIDs: model.ProjectIDSet(projectIDs),
	}
	if err := r.store.CreateMessage(assistantMessage); err != nil {
		return err
	}

	return emit(Event{Type: EventDone, MessageID: assistantMessage.ID.String(), Timestamp: time.Now().UTC()})
}

// buildPromptMessages assembles the chat history, the retrieved context
// grouped by company, and the user question
func buildPromptMessages(history []model.Message, results []database.KNNResult, userContent string) []gradient.InferenceMessage {
	messages := []gradient.InferenceMessage{
		{Role: "system", Content: answerSystemPrompt},
	}

	for _, m := range history {
		role := "user"
		if m.Role == model.MessageRoleAI {
			role = "assistant"
		}
		messages = append(messages, gradient.InferenceMessage{Role: role, Content: m.Content})
	}

	var sb strings.Builder
	sb.WriteString("Context from company filings:\n\n")

	byCompany := make(map[string][]database.KNNResult)
	companies := make([]string, 0)
	for _, res := range results {
		if _, ok := byCompany[res.Company]; !ok {
			companies = append(companies, res.Company)
		}
		byCompany[res.Company] = append(byCompany[res.Company], res)
	}
	sort.Strings(companies)

	for _, company := range companies {
		fmt.Fprintf(&sb, "Company: %s\n", company)
		for _, res := range byCompany[company] {
			fmt.Fprintf(&sb, "[Document: %s, Period: %s, Field: %s]\n%s\n\n", res.DocType, res.Period, res.Field, res.Content)
		}
	}

	fmt.Fprintf(&sb, "Question: %s", userContent)
	messages = append(messages, gradient.InferenceMessage{Role: "user", Content: sb.String()})

	return messages
}
