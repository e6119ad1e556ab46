package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"incentive-agent-be/internal/constant"
	"incentive-agent-be/internal/dto"
	"incentive-agent-be/internal/repository/contract"
	"incentive-agent-be/pkg/dialog/answer"
	"incentive-agent-be/pkg/dialog/continuation"
	"incentive-agent-be/pkg/dialog/grammar"
	"incentive-agent-be/pkg/dialog/intent"
	"incentive-agent-be/pkg/dialog/question"
	"incentive-agent-be/pkg/dialog/resolve"
	"incentive-agent-be/pkg/dialog/route"
	"incentive-agent-be/pkg/dialog/slots"
	"incentive-agent-be/pkg/docqa"
	"incentive-agent-be/pkg/events"
	"incentive-agent-be/pkg/store"

	"github.com/google/uuid"
)

type IAssistantService interface {
	Turn(ctx context.Context, req *dto.TurnRequest) (*dto.TurnResponse, error)
}

// IDocAgent answers policy/process questions from the document index.
type IDocAgent interface {
	Answer(ctx context.Context, question string) docqa.Result
}

// IEventPublisher pushes turn events to the bus. A nil publisher disables
// audit events without affecting turns.
type IEventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

const fallbackTopic = "recommend_engagement"

const recentTail = 8

type assistantService struct {
	sessionRepo contract.ISessionRepository
	catalogRepo contract.ICatalogRepository
	router      route.Classifier
	followups   continuation.Detector
	intents     intent.Detector
	resolvers   *resolve.Registry
	questions   question.Generator
	answers     answer.Generator
	docs        IDocAgent
	publisher   IEventPublisher
	selectorCfg grammar.SelectorConfig
	maxAttempts int
	logger      *log.Logger
}

func NewAssistantService(
	sessionRepo contract.ISessionRepository,
	catalogRepo contract.ICatalogRepository,
	router route.Classifier,
	followups continuation.Detector,
	intents intent.Detector,
	resolvers *resolve.Registry,
	questions question.Generator,
	answers answer.Generator,
	docs IDocAgent,
	publisher IEventPublisher,
	selectorCfg grammar.SelectorConfig,
	maxAttempts int,
	logger *log.Logger,
) IAssistantService {
	return &assistantService{
		sessionRepo: sessionRepo,
		catalogRepo: catalogRepo,
		router:      router,
		followups:   followups,
		intents:     intents,
		resolvers:   resolvers,
		questions:   questions,
		answers:     answers,
		docs:        docs,
		publisher:   publisher,
		selectorCfg: selectorCfg,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Turn runs one conversational turn. Session load/save failures are the
// only turn-level errors; every collaborator failure inside the turn
// degrades to a safe default instead.
func (s *assistantService) Turn(ctx context.Context, req *dto.TurnRequest) (*dto.TurnResponse, error) {
	sessionId := strings.TrimSpace(req.SessionId)
	if sessionId == "" {
		sessionId = uuid.NewString()
	}

	sess, err := s.sessionRepo.Get(ctx, sessionId)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionId, err)
	}
	if sess == nil {
		sess = store.New(sessionId, req.UserMessage)
	}

	var resp *dto.TurnResponse
	if req.InputType == dto.InputTypeFollowup && sess.PendingField != "" {
		resp = s.followupTurn(ctx, req, sess)
	} else {
		resp = s.freshTurn(ctx, req, sess)
	}

	s.publishTurn(ctx, sess, resp)

	if err := s.sessionRepo.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session %s: %w", sessionId, err)
	}
	return resp, nil
}

// followupTurn resolves exactly the pending field from the reply. Failure
// to resolve re-asks with rephrased wording; it never advances the flow on
// an ambiguous answer.
func (s *assistantService) followupTurn(ctx context.Context, req *dto.TurnRequest, sess *store.Session) *dto.TurnResponse {
	// The field named by the request wins; the session's pending field is
	// only the fallback for clients that don't echo it back.
	field := req.CurrentField
	if field == "" {
		field = sess.PendingField
	}
	if sess.PendingField != "" && field != sess.PendingField {
		s.logger.Printf("[TURN] followup field override: request=%s session=%s", field, sess.PendingField)
	}
	sess.AddMessage(constant.ChatMessageRoleUser, req.UserMessage, field)

	res := s.resolvers.Resolve(ctx, field, req.UserMessage)
	if res.Value == "" {
		if len(res.Candidates) > 0 {
			sess.Candidates[field] = res.Candidates
		}
		return s.askFor(ctx, sess, field)
	}

	sess.Slots.Resolve(field, res.Value)
	delete(sess.Candidates, field)
	sess.PendingField = ""
	return s.advance(ctx, sess)
}

// freshTurn routes the message, then runs either the document branch or
// the structured slot-filling flow.
func (s *assistantService) freshTurn(ctx context.Context, req *dto.TurnRequest, sess *store.Session) *dto.TurnResponse {
	sess.OriginalMessage = req.UserMessage
	sess.AddMessage(constant.ChatMessageRoleUser, req.UserMessage, "")

	decision := s.router.Classify(ctx, req.UserMessage, s.routeContext(sess))
	s.logger.Printf("[TURN] session=%s route=%s why=%s", sess.ID, decision.Route, decision.Rationale)

	if decision.Route == route.RouteDocQA {
		return s.docTurn(ctx, req, sess)
	}
	return s.structuredTurn(ctx, req, sess)
}

func (s *assistantService) docTurn(ctx context.Context, req *dto.TurnRequest, sess *store.Session) *dto.TurnResponse {
	result := s.docs.Answer(ctx, req.UserMessage)

	text := result.Text
	if len(result.Sources) > 0 {
		cites := make([]string, 0, len(result.Sources))
		for _, p := range result.Sources {
			cites = append(cites, docqa.Citation(p))
		}
		text += "\n\nSources: " + strings.Join(cites, ", ")
	}

	sess.LastRoute = route.RouteDocQA
	sess.PendingField = ""
	sess.FinalAnswer = &store.FinalAnswer{Text: text}
	sess.AddMessage(constant.ChatMessageRoleAssistant, text, "")

	return &dto.TurnResponse{
		SessionId:    sess.ID,
		ResponseType: dto.ResponseTypeFinalAnswer,
		Text:         text,
	}
}

func (s *assistantService) structuredTurn(ctx context.Context, req *dto.TurnRequest, sess *store.Session) *dto.TurnResponse {
	// A message that continues the current thread is answered from the
	// cached rows without re-running intent detection.
	if len(sess.LastResult) > 0 && sess.CurrentTopic != "" {
		cont := s.followups.Detect(ctx, req.UserMessage, continuation.Session{
			LastTopic:   sess.CurrentTopic,
			ResultNames: sess.ResultNames(5),
			Tail:        continuationTail(sess.Messages),
		})
		if cont {
			s.logger.Printf("[TURN] session=%s continuation of %s", sess.ID, sess.CurrentTopic)
			return s.answerFromRows(ctx, sess, req.UserMessage, sess.LastResult)
		}
	}

	it, ok := s.intents.Detect(ctx, req.UserMessage)
	if !ok {
		it, _ = intent.ByTopic(fallbackTopic)
		s.logger.Printf("[TURN] session=%s topic unknown, falling back to %s", sess.ID, it.Topic)
	}

	s.trackTopic(sess, it.Topic)
	rule := grammar.ParseRule(it.RequiredFields)

	// One resolution pass over every field any branch or trailing entry
	// could need; ambiguity keeps candidates for the follow-up options.
	// Fields resolved on earlier turns count as evidence too, so a turn
	// that only fills a trailing field can't flip the picked branch.
	resolved := map[string]bool{}
	fresh := slots.NewState()
	for _, field := range ruleFields(rule) {
		if _, ok := sess.Slots.Get(field); ok {
			resolved[field] = true
		}
		res := s.resolvers.Resolve(ctx, field, req.UserMessage)
		fresh.Track(field)
		if res.Value != "" {
			fresh.Resolve(field, res.Value)
			resolved[field] = true
		} else if len(res.Candidates) > 0 {
			sess.Candidates[field] = res.Candidates
		}
	}

	branch := grammar.SelectBranch(rule.Branches, resolved, s.selectorCfg)
	sess.PickedBranch = branch
	sess.Slots.Merge(fresh)

	return s.advance(ctx, sess)
}

// advance asks for the next missing field or, when the requirement is
// satisfied, queries the catalog and composes the final answer.
func (s *assistantService) advance(ctx context.Context, sess *store.Session) *dto.TurnResponse {
	it, ok := intent.ByTopic(sess.CurrentTopic)
	if !ok {
		it, _ = intent.ByTopic(fallbackTopic)
	}
	rule := grammar.ParseRule(it.RequiredFields)
	branch := grammar.Branch(sess.PickedBranch)

	required := append(append([]string{}, branch...), rule.Trailing...)
	if !sess.Slots.Complete(required) {
		missing := sess.Slots.NextMissing(branch, rule.Trailing)
		return s.askFor(ctx, sess, missing)
	}

	filters := map[string][]string{}
	for _, f := range it.FilterFields {
		if v, ok := sess.Slots.Get(f); ok {
			filters[f] = []string{v}
		}
	}

	result, err := s.catalogRepo.Filter(ctx, filters, 0, 0)
	if err != nil {
		// Catalog queries fail fast; the answer layer handles zero rows.
		s.logger.Printf("[TURN] session=%s catalog filter failed: %v", sess.ID, err)
		result = contract.FilterResult{}
	}
	if len(result.Skipped) > 0 {
		s.logger.Printf("[TURN] session=%s skipped non-filterable fields: %v", sess.ID, result.Skipped)
	}

	return s.answerFromRows(ctx, sess, sess.OriginalMessage, result.Rows)
}

// askFor emits a follow-up question for one field. The ask log drives
// rephrasing on repeats.
func (s *assistantService) askFor(ctx context.Context, sess *store.Session, field string) *dto.TurnResponse {
	opts := candidateValues(sess.Candidates[field])
	prior := sess.AskedLog[field]
	current, _ := sess.Slots.Get(field)

	// The wording escalates per attempt; the escalation plateaus at the
	// configured cap so repeated misses don't keep mutating the question.
	attempt := prior.Count + 1
	if s.maxAttempts > 0 && attempt > s.maxAttempts {
		attempt = s.maxAttempts
	}

	q := s.questions.Generate(ctx, question.Request{
		FieldName:    field,
		IntentTopic:  sess.CurrentTopic,
		Attempt:      attempt,
		LastQuestion: prior.LastQuestion,
		Options:      opts,
		CurrentValue: current,
	})
	sess.RecordAsk(field, q)
	sess.PendingField = field
	sess.FinalAnswer = nil
	sess.AddMessage(constant.ChatMessageRoleAssistant, q, field)

	return &dto.TurnResponse{
		SessionId:    sess.ID,
		ResponseType: dto.ResponseTypeFollowUp,
		FollowUp: &dto.FollowUp{
			Question:  q,
			FieldName: field,
			Options:   opts,
		},
	}
}

// answerFromRows composes and caches the final answer. Recommendations are
// returned to the caller but never appended to the message history.
func (s *assistantService) answerFromRows(ctx context.Context, sess *store.Session, userMessage string, rows []map[string]any) *dto.TurnResponse {
	out := s.answers.Generate(ctx, userMessage, sess.Slots.Resolved(), answerRows(rows))

	sess.LastRoute = route.RouteStructured
	sess.LastResult = rows
	if sess.LastResult == nil {
		sess.LastResult = []map[string]any{}
	}
	sess.PendingField = ""
	sess.FinalAnswer = &store.FinalAnswer{Text: out.Text, Recommendations: out.Recommendations}
	sess.AddMessage(constant.ChatMessageRoleAssistant, out.Text, "")

	return &dto.TurnResponse{
		SessionId:       sess.ID,
		ResponseType:    dto.ResponseTypeFinalAnswer,
		Text:            out.Text,
		Recommendations: out.Recommendations,
	}
}

// trackTopic records the detected topic without touching the slot state.
// Values resolved on earlier turns carry over; a null resolution later
// never erases them, so each turn only ever narrows the open questions.
func (s *assistantService) trackTopic(sess *store.Session, topic string) {
	sess.CurrentTopic = topic
	sess.IntentTopics = append(sess.IntentTopics, topic)
	sess.PendingField = ""
	sess.FinalAnswer = nil
}

func (s *assistantService) publishTurn(ctx context.Context, sess *store.Session, resp *dto.TurnResponse) {
	if s.publisher == nil {
		return
	}
	evt := events.TurnCompleted{
		SessionID:      sess.ID,
		Route:          sess.LastRoute,
		Topic:          sess.CurrentTopic,
		ResponseType:   resp.ResponseType,
		ResolvedFields: sess.Slots.Resolved(),
		OccurredAt:     time.Now(),
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Printf("[TURN] session=%s audit publish failed: %v", sess.ID, err)
	}
}

func (s *assistantService) routeContext(sess *store.Session) route.Context {
	filled := []string{}
	for f := range sess.Slots.Resolved() {
		filled = append(filled, f)
	}

	tail := make([]route.TailMessage, 0, len(sess.Messages))
	for _, m := range sess.Messages {
		tail = append(tail, route.TailMessage{Role: m.Role, Text: m.Text, Field: m.FieldName})
	}

	return route.Context{
		LastRoute:       sess.LastRoute,
		IntentTopic:     sess.CurrentTopic,
		PickedBranch:    sess.PickedBranch,
		FilledFields:    filled,
		PendingField:    sess.PendingField,
		HaveDocsContext: sess.LastRoute == route.RouteDocQA,
		HaveTableRows:   len(sess.LastResult) > 0,
		RecentMessages:  route.TrimTail(tail, recentTail),
	}
}

func continuationTail(messages []store.Message) []continuation.Message {
	if len(messages) > recentTail {
		messages = messages[len(messages)-recentTail:]
	}
	out := make([]continuation.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, continuation.Message{Role: m.Role, Text: m.Text, Field: m.FieldName})
	}
	return out
}

// ruleFields lists every field any branch or trailing entry could need,
// deduplicated in declaration order.
func ruleFields(rule grammar.Rule) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, b := range rule.Branches {
		for _, f := range b {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	for _, f := range rule.Trailing {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

func candidateValues(cands []resolve.Candidate) []string {
	if len(cands) == 0 {
		return nil
	}
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Value)
	}
	return out
}

func answerRows(rows []map[string]any) []answer.Row {
	out := make([]answer.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, answer.Row(r))
	}
	return out
}
