// Package answer composes query understanding, conversation context,
// retrieval, the LLM backend, and quality scoring into the end-to-end
// question answering operation.
package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperdocs/kotae/internal/convctx"
	"github.com/hyperdocs/kotae/internal/convstore"
	"github.com/hyperdocs/kotae/internal/models"
	"github.com/hyperdocs/kotae/internal/quality"
	"github.com/hyperdocs/kotae/internal/retrieval"
	"github.com/hyperdocs/kotae/internal/understanding"
	"github.com/hyperdocs/kotae/internal/vectorstore"
	"github.com/hyperdocs/kotae/pkg/utils"
)

// Fixed confidence for paths that bypass retrieval scoring.
const (
	generalConfidence  = 0.7
	fallbackConfidence = 0.3
)

const apologyResponse = "Sorry, there was an error processing your question. Please try again."

const sourcePreviewLength = 200

// defaultHistoryLimit bounds how many recent messages are read from the
// conversation store per query; the context builder windows them further.
const defaultHistoryLimit = 50

// Query types reported in answers.
const (
	QueryTypeDocument      = "document"
	QueryTypeGeneral       = "general"
	QueryTypeClarification = "clarification"
	QueryTypeOffTopic      = "off_topic"
	QueryTypeError         = "error"
)

// Generator is the LLM backend surface the orchestrator needs.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userMessage string) (string, error)
	GenerateWithLimit(ctx context.Context, systemPrompt, userMessage string, maxTokens int) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher is the vector search surface the orchestrator needs.
type Searcher interface {
	Search(ctx context.Context, orgID string, query []float32, k int) ([]vectorstore.Result, error)
}

// Orchestrator runs the answer pipeline. It is safe for concurrent use;
// all per-request state is stack-local.
type Orchestrator struct {
	llm          Generator
	vectors      Searcher
	convs        convstore.Store
	analyzer     *understanding.Analyzer
	builder      *convctx.Builder
	engine       *retrieval.Engine
	validator    *quality.Validator
	logger       *zap.Logger
	historyLimit int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets a logger for pipeline diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMaxPerDocument caps how many chunks one document may contribute
// to retrieval results.
func WithMaxPerDocument(n int) Option {
	return func(o *Orchestrator) {
		o.engine = retrieval.NewEngine(retrieval.WithMaxPerDocument(n))
	}
}

// WithConversationLimits sets the context window, token budget, and
// summarization trigger used when building conversation context.
func WithConversationLimits(maxMessages, maxTokens, summaryTrigger int) Option {
	return func(o *Orchestrator) {
		o.builder = convctx.NewBuilder(
			convctx.WithWindow(maxMessages, maxTokens),
			convctx.WithSummaryTrigger(summaryTrigger),
		)
		// Keep enough history in view for the summarization trigger.
		if bound := 2 * summaryTrigger; bound > o.historyLimit {
			o.historyLimit = bound
		}
	}
}

// NewOrchestrator creates an orchestrator. convs may be nil; answers
// are then stateless and no history is read or written.
func NewOrchestrator(llm Generator, vectors Searcher, convs convstore.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		llm:          llm,
		vectors:      vectors,
		convs:        convs,
		analyzer:     understanding.NewAnalyzer(),
		builder:      convctx.NewBuilder(),
		engine:       retrieval.NewEngine(),
		validator:    quality.NewValidator(),
		logger:       zap.NewNop(),
		historyLimit: defaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Answer processes one user query against an organization. It never
// returns an error; every failure degrades to an answer the caller can
// show, worst case an apology with zero confidence.
func (o *Orchestrator) Answer(ctx context.Context, query string, org *models.OrgSnapshot, userID, conversationID string) (result *models.Answer) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("answer pipeline panic", zap.Any("panic", r))
			result = &models.Answer{
				Response:       apologyResponse,
				ConversationID: conversationID,
				QueryType:      QueryTypeError,
				Confidence:     quality.FixedConfidence(0),
			}
		}
	}()

	history := o.loadHistory(ctx, conversationID)
	analysis := o.analyzer.Analyze(query, history, len(org.Documents))
	convContext := o.builder.BuildForIntent(history, query, analysis.Intent.Primary)

	o.logger.Debug("query analyzed",
		zap.String("org_id", org.ID),
		zap.String("intent", analysis.Intent.Primary),
		zap.Bool("follow_up", analysis.FollowUp.IsFollowUp),
		zap.Bool("needs_clarification", analysis.NeedsClarification))

	if analysis.NeedsClarification {
		return &models.Answer{
			Response:       analysis.ClarificationPrompt,
			ConversationID: conversationID,
			QueryType:      QueryTypeClarification,
			Confidence:     quality.FixedConfidence(0),
			Analysis:       &analysis,
		}
	}

	conversationID = o.ensureConversation(ctx, org, userID, conversationID, query)
	o.appendUserMessage(ctx, conversationID, query, analysis)

	searchQuery := query
	if convContext.ResolvedContext != "" {
		searchQuery = convContext.ResolvedContext
	} else if analysis.EnhancedQuery != "" {
		searchQuery = analysis.EnhancedQuery
	}

	var ans *models.Answer
	if check := checkRelevance(query, org); !check.Relevant {
		o.logger.Debug("query rejected as off-topic",
			zap.String("org_id", org.ID),
			zap.String("category", check.Category),
			zap.String("reason", check.Reason))
		ans = &models.Answer{
			Response:   offTopicResponse(org, check),
			QueryType:  QueryTypeOffTopic,
			Confidence: quality.FixedConfidence(check.Confidence),
		}
	} else if len(org.Documents) == 0 ||
		analysis.Intent.Primary == models.IntentGeneralInquiry ||
		analysis.Intent.Primary == models.IntentOpinionRecommendation {
		ans = o.answerGeneral(ctx, query, org, analysis, convContext)
	} else {
		ans = o.answerFromDocuments(ctx, query, searchQuery, org, analysis, convContext)
	}
	ans.ConversationID = conversationID
	ans.Analysis = &analysis
	ans.Escalation = evaluateEscalation(query, ans.Confidence.Overall, ans.Sources, analysis)

	o.appendAssistantMessage(ctx, conversationID, ans, analysis, convContext, history)
	return ans
}

func (o *Orchestrator) loadHistory(ctx context.Context, conversationID string) []models.Message {
	if o.convs == nil || conversationID == "" {
		return nil
	}
	history, err := o.convs.GetMessages(ctx, conversationID, o.historyLimit)
	if err != nil {
		o.logger.Warn("cannot load conversation history",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return nil
	}
	return history
}

func (o *Orchestrator) ensureConversation(ctx context.Context, org *models.OrgSnapshot, userID, conversationID, query string) string {
	if o.convs == nil || conversationID != "" {
		return conversationID
	}
	conv, err := o.convs.CreateConversation(ctx, org.ID, userID, utils.Truncate(query, 60))
	if err != nil {
		o.logger.Warn("cannot create conversation", zap.Error(err))
		return ""
	}
	return conv.ID
}

func (o *Orchestrator) appendUserMessage(ctx context.Context, conversationID, query string, analysis models.QueryAnalysis) {
	if o.convs == nil || conversationID == "" {
		return
	}
	err := o.convs.AppendMessage(ctx, conversationID, &models.Message{
		Role:    models.RoleUser,
		Content: query,
		Metadata: map[string]interface{}{
			"intent":       analysis.Intent.Primary,
			"is_follow_up": analysis.FollowUp.IsFollowUp,
		},
	})
	if err != nil {
		o.logger.Warn("cannot append user message", zap.Error(err))
	}
}

func (o *Orchestrator) appendAssistantMessage(ctx context.Context, conversationID string, ans *models.Answer, analysis models.QueryAnalysis, convContext models.ConversationContext, history []models.Message) {
	if o.convs == nil || conversationID == "" {
		return
	}
	metadata := map[string]interface{}{
		"intent":       analysis.Intent.Primary,
		"query_type":   ans.QueryType,
		"confidence":   ans.Confidence.Overall,
		"source_count": len(ans.Sources),
		"is_follow_up": analysis.FollowUp.IsFollowUp,
	}
	if convContext.NeedsSummarization {
		if summary := o.builder.Summarize(ctx, history, o.llm); summary != "" {
			metadata["context_summary"] = summary
		}
	}
	err := o.convs.AppendMessage(ctx, conversationID, &models.Message{
		Role:     models.RoleAssistant,
		Content:  ans.Response,
		Metadata: metadata,
	})
	if err != nil {
		o.logger.Warn("cannot append assistant message", zap.Error(err))
	}
}

// answerGeneral handles queries without document retrieval: empty
// libraries and general or opinion intents.
func (o *Orchestrator) answerGeneral(ctx context.Context, query string, org *models.OrgSnapshot, analysis models.QueryAnalysis, convContext models.ConversationContext) *models.Answer {
	base := org.Prompt
	if base == "" {
		base = DefaultPrompt("general_assistant")
	}
	systemPrompt := contextualPrompt(base, org.Name, len(org.Documents), "general")
	if ctxString := convctx.PrepareForLLM(convContext, false); ctxString != "" {
		systemPrompt += "\n\nConversation so far:\n" + ctxString
	}
	maxTokens := determineMaxTokens(query, analysis)
	systemPrompt += lengthInstruction(maxTokens)

	response, err := o.llm.GenerateWithLimit(ctx, systemPrompt, query, maxTokens)
	if err != nil {
		o.logger.Warn("general answer generation failed", zap.Error(err))
		return &models.Answer{
			Response:   apologyResponse,
			QueryType:  QueryTypeError,
			Confidence: quality.FixedConfidence(0),
		}
	}
	return &models.Answer{
		Response:   response,
		QueryType:  QueryTypeGeneral,
		Confidence: quality.FixedConfidence(generalConfidence),
	}
}

// answerFromDocuments runs the full retrieval pipeline and scores the
// result. Semantic search failure at any point degrades to keyword-only
// retrieval with fixed confidence.
func (o *Orchestrator) answerFromDocuments(ctx context.Context, query, searchQuery string, org *models.OrgSnapshot, analysis models.QueryAnalysis, convContext models.ConversationContext) *models.Answer {
	allChunks := org.AllChunks()
	complexity := retrieval.AnalyzeComplexity(searchQuery)
	params := retrieval.AdaptiveParameters(complexity)

	semantic := o.semanticSearch(ctx, org, searchQuery, params.TopK, allChunks)
	if len(semantic) == 0 {
		return o.answerFromKeywordFallback(ctx, query, searchQuery, org, analysis, allChunks)
	}

	ranked := o.engine.Rank(searchQuery, semantic, allChunks, complexity, params)
	if len(ranked) == 0 {
		return o.answerFromKeywordFallback(ctx, query, searchQuery, org, analysis, allChunks)
	}

	sources := toSources(ranked)
	documentContext := formatDocumentContext(ranked)

	base := org.Prompt
	if base == "" {
		base = DefaultPrompt("document_assistant")
	}
	maxTokens := determineMaxTokens(query, analysis)
	systemPrompt := buildDocumentPrompt(base, org, documentContext, convContext, analysis, maxTokens)

	response, err := o.llm.GenerateWithLimit(ctx, systemPrompt, query, maxTokens)
	if err != nil {
		o.logger.Warn("document answer generation failed", zap.Error(err))
		return &models.Answer{
			Response:   apologyResponse,
			QueryType:  QueryTypeError,
			Confidence: quality.FixedConfidence(0),
		}
	}

	validation := o.validator.Validate(response, sources, query, analysis.Intent.Primary)
	factCheck := o.validator.FactCheck(response, sources)
	confidence := o.validator.ConfidenceIndicator(meanFinalScore(ranked), validation, factCheck, len(sources))

	return &models.Answer{
		Response:          response,
		QueryType:         QueryTypeDocument,
		Sources:           sources,
		Confidence:        confidence,
		FollowUpQuestions: o.validator.GenerateFollowUps(analysis.Intent.Primary, sources, convContext.Entities),
	}
}

// answerFromKeywordFallback covers embedding or vector search failure:
// top-3 keyword chunks, fixed 0.3 confidence, no quality scoring.
func (o *Orchestrator) answerFromKeywordFallback(ctx context.Context, query, searchQuery string, org *models.OrgSnapshot, analysis models.QueryAnalysis, allChunks []models.Chunk) *models.Answer {
	o.logger.Debug("falling back to keyword retrieval", zap.String("org_id", org.ID))

	top := retrieval.KeywordFallback(searchQuery, allChunks, 3)
	documentContext := "No relevant information found in the uploaded documents."
	if len(top) > 0 {
		parts := make([]string, len(top))
		for i, chunk := range top {
			parts[i] = fmt.Sprintf("[From %s]\n%s", chunk.DocumentName, chunk.Text)
		}
		documentContext = strings.Join(parts, "\n\n---\n\n")
	}

	base := org.Prompt
	if base == "" {
		base = DefaultPrompt("document_assistant")
	}
	maxTokens := determineMaxTokens(query, analysis)
	systemPrompt := buildDocumentPrompt(base, org, documentContext, models.ConversationContext{}, analysis, maxTokens)

	response, err := o.llm.GenerateWithLimit(ctx, systemPrompt, query, maxTokens)
	if err != nil {
		o.logger.Warn("fallback answer generation failed", zap.Error(err))
		return &models.Answer{
			Response:   apologyResponse,
			QueryType:  QueryTypeError,
			Confidence: quality.FixedConfidence(0),
		}
	}
	return &models.Answer{
		Response:   response,
		QueryType:  QueryTypeDocument,
		Confidence: quality.FixedConfidence(fallbackConfidence),
	}
}

// semanticSearch embeds the query and maps vector hits back onto the
// organization's chunks. Hits referencing unknown chunks are skipped.
// Any failure returns nil, which triggers the keyword fallback.
func (o *Orchestrator) semanticSearch(ctx context.Context, org *models.OrgSnapshot, searchQuery string, topK int, allChunks []models.Chunk) []models.ScoredChunk {
	vec, err := o.llm.Embed(ctx, searchQuery)
	if err != nil {
		o.logger.Warn("query embedding failed", zap.Error(err))
		return nil
	}
	utils.NormalizeL2(vec)

	hits, err := o.vectors.Search(ctx, org.ID, vec, topK)
	if err != nil {
		o.logger.Warn("vector search failed", zap.Error(err))
		return nil
	}

	byID := make(map[string]models.Chunk, len(allChunks))
	for _, chunk := range allChunks {
		byID[chunk.ChunkID] = chunk
	}

	var semantic []models.ScoredChunk
	for _, hit := range hits {
		chunk, ok := byID[hit.ChunkID]
		if !ok {
			o.logger.Warn("vector hit references unknown chunk",
				zap.String("org_id", org.ID), zap.String("chunk_id", hit.ChunkID))
			continue
		}
		semantic = append(semantic, models.ScoredChunk{
			Chunk:         chunk,
			SemanticScore: hit.Score,
			Similarity:    hit.Score,
		})
	}
	return semantic
}

func buildDocumentPrompt(base string, org *models.OrgSnapshot, documentContext string, convContext models.ConversationContext, analysis models.QueryAnalysis, maxTokens int) string {
	var b strings.Builder
	b.WriteString(contextualPrompt(base, org.Name, len(org.Documents), "document"))
	b.WriteString("\n\nBased on the following document excerpts, please answer the user's question. If the answer cannot be found in the provided documents, please say so clearly and offer to help with general questions.")
	b.WriteString("\n\nDocument Context:\n")
	b.WriteString(documentContext)
	b.WriteString("\n\nInstructions:\n- Answer based on the provided context when possible\n- If the context doesn't contain relevant information, acknowledge this\n- Be helpful and polite in your responses")
	if ctxString := convctx.PrepareForLLM(convContext, false); ctxString != "" {
		b.WriteString("\n\nConversation so far:\n")
		b.WriteString(ctxString)
	}
	if analysis.FollowUp.IsFollowUp {
		b.WriteString("\n\nThe user is following up on the conversation above; answer in that context.")
	}
	b.WriteString(lengthInstruction(maxTokens))
	return b.String()
}

func formatDocumentContext(ranked []models.ScoredChunk) string {
	parts := make([]string, len(ranked))
	for i, chunk := range ranked {
		parts[i] = fmt.Sprintf("[From %s (chunk %d) - Relevance: %.2f]\n%s",
			chunk.DocumentName, chunk.ChunkIndex+1, chunk.Similarity, chunk.Text)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func toSources(ranked []models.ScoredChunk) []models.Source {
	sources := make([]models.Source, len(ranked))
	for i, chunk := range ranked {
		sources[i] = models.Source{
			DocumentID:   chunk.DocumentID,
			DocumentName: chunk.DocumentName,
			ChunkIndex:   chunk.ChunkIndex,
			Pages:        chunk.Pages,
			Preview:      utils.Truncate(chunk.Text, sourcePreviewLength),
			Relevance:    chunk.FinalScore,
		}
	}
	return sources
}

func meanFinalScore(ranked []models.ScoredChunk) float64 {
	if len(ranked) == 0 {
		return 0
	}
	var sum float64
	for _, chunk := range ranked {
		sum += chunk.FinalScore
	}
	return sum / float64(len(ranked))
}

// Suggestions proposes starter queries for an organization based on its
// loaded documents.
func Suggestions(org *models.OrgSnapshot) []string {
	if len(org.Documents) == 0 {
		return []string{
			"Hello! How can I help you today?",
			"What can you do?",
			"Tell me about this organization",
		}
	}
	suggestions := []string{
		"What information is available in the uploaded documents?",
		"Can you summarize the main topics covered?",
		fmt.Sprintf("What does the document '%s' contain?", org.Documents[0].Filename),
	}
	if len(org.Documents) > 1 {
		suggestions = append(suggestions,
			fmt.Sprintf("Compare information between %s and %s",
				org.Documents[0].Filename, org.Documents[1].Filename))
	}
	return suggestions
}
