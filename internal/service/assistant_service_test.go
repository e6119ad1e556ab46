package service

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"incentive-agent-be/internal/dto"
	"incentive-agent-be/internal/repository/contract"
	"incentive-agent-be/pkg/dialog/answer"
	"incentive-agent-be/pkg/dialog/continuation"
	"incentive-agent-be/pkg/dialog/grammar"
	"incentive-agent-be/pkg/dialog/intent"
	"incentive-agent-be/pkg/dialog/question"
	"incentive-agent-be/pkg/dialog/resolve"
	"incentive-agent-be/pkg/dialog/route"
	"incentive-agent-be/pkg/docqa"
	"incentive-agent-be/pkg/events"
	"incentive-agent-be/pkg/store"
)

type fakeSessionRepo struct {
	sessions map[string]*store.Session
	getErr   error
	saveErr  error
	saved    *store.Session
}

func (f *fakeSessionRepo) Get(_ context.Context, id string) (*store.Session, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.sessions[id], nil
}

func (f *fakeSessionRepo) Save(_ context.Context, sess *store.Session) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = sess
	if f.sessions == nil {
		f.sessions = map[string]*store.Session{}
	}
	f.sessions[sess.ID] = sess
	return nil
}

type fakeCatalogRepo struct {
	result      contract.FilterResult
	err         error
	gotFields   map[string][]string
	filterCalls int
}

func (f *fakeCatalogRepo) Filter(_ context.Context, fields map[string][]string, _, _ int) (contract.FilterResult, error) {
	f.filterCalls++
	f.gotFields = fields
	if f.err != nil {
		return contract.FilterResult{}, f.err
	}
	return f.result, nil
}

func (f *fakeCatalogRepo) DistinctNames(context.Context) ([]string, error)     { return nil, nil }
func (f *fakeCatalogRepo) DistinctWorkloads(context.Context) ([]string, error) { return nil, nil }
func (f *fakeCatalogRepo) SynonymsByKind(context.Context, string) (map[string][]string, error) {
	return nil, nil
}

type fakeRouter struct {
	decision route.Decision
	gotConv  route.Context
}

func (f *fakeRouter) Classify(_ context.Context, _ string, conv route.Context) route.Decision {
	f.gotConv = conv
	return f.decision
}

type fakeContinuation struct {
	result bool
	called bool
}

func (f *fakeContinuation) Detect(_ context.Context, _ string, _ continuation.Session) bool {
	f.called = true
	return f.result
}

type fakeIntents struct {
	intent intent.Intent
	ok     bool
	called bool
}

func (f *fakeIntents) Detect(_ context.Context, _ string) (intent.Intent, bool) {
	f.called = true
	return f.intent, f.ok
}

type stubResolver struct {
	result resolve.Result
}

func (s stubResolver) Resolve(context.Context, string) (resolve.Result, error) {
	return s.result, nil
}

type fakeQuestions struct {
	text string
	got  question.Request
}

func (f *fakeQuestions) Generate(_ context.Context, req question.Request) string {
	f.got = req
	return f.text
}

type fakeAnswers struct {
	out      answer.Output
	gotRows  []answer.Row
	gotField map[string]string
}

func (f *fakeAnswers) Generate(_ context.Context, _ string, fields map[string]string, rows []answer.Row) answer.Output {
	f.gotField = fields
	f.gotRows = rows
	return f.out
}

type fakeDocs struct {
	result docqa.Result
	called bool
}

func (f *fakeDocs) Answer(context.Context, string) docqa.Result {
	f.called = true
	return f.result
}

type fakePublisher struct {
	published []events.Event
}

func (f *fakePublisher) Publish(_ context.Context, e events.Event) error {
	f.published = append(f.published, e)
	return nil
}

type fixture struct {
	sessions  *fakeSessionRepo
	catalog   *fakeCatalogRepo
	router    *fakeRouter
	cont      *fakeContinuation
	intents   *fakeIntents
	registry  *resolve.Registry
	questions *fakeQuestions
	answers   *fakeAnswers
	docs      *fakeDocs
	publisher *fakePublisher
	svc       IAssistantService
}

func newFixture(resolvers map[string]resolve.Result) *fixture {
	logger := log.New(io.Discard, "", 0)

	recommend, _ := intent.ByTopic("recommend_engagement")
	f := &fixture{
		sessions: &fakeSessionRepo{sessions: map[string]*store.Session{}},
		catalog: &fakeCatalogRepo{result: contract.FilterResult{
			Rows:  []map[string]any{{"name": "Business Central Workshop", "goal": "Adoption"}},
			Count: 1,
		}},
		router:    &fakeRouter{decision: route.Decision{Route: route.RouteStructured}},
		cont:      &fakeContinuation{},
		intents:   &fakeIntents{intent: recommend, ok: true},
		registry:  resolve.NewRegistry(logger),
		questions: &fakeQuestions{text: "Which workload are you targeting?"},
		answers: &fakeAnswers{out: answer.Output{
			Text: "Business Central Workshop fits.",
			Recommendations: []string{
				"Can you show the customer qualification?",
				"Can you show the activity requirements?",
				"Can you show the earning caps?",
			},
		}},
		docs:      &fakeDocs{result: docqa.Result{Text: "Submit POE via the partner portal."}},
		publisher: &fakePublisher{},
	}
	for field, res := range resolvers {
		f.registry.Register(field, stubResolver{result: res})
	}

	f.svc = NewAssistantService(
		f.sessions, f.catalog, f.router, f.cont, f.intents, f.registry,
		f.questions, f.answers, f.docs, f.publisher,
		grammar.SelectorConfig{DefaultToCategoryPair: true}, 3, logger,
	)
	return f
}

func TestTurnResolvesPairAndAnswers(t *testing.T) {
	f := newFixture(map[string]resolve.Result{
		"name":           {},
		"workload":       {Value: "Business Central"},
		"incentive_type": {Value: "pre_sales"},
	})

	resp, err := f.svc.Turn(context.Background(), &dto.TurnRequest{
		SessionId:   "s1",
		UserMessage: "recommend a pre-sales engagement for Business Central",
		InputType:   dto.InputTypeText,
	})
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}

	if resp.ResponseType != dto.ResponseTypeFinalAnswer {
		t.Fatalf("ResponseType = %q, want final_answer", resp.ResponseType)
	}
	if resp.Text != "Business Central Workshop fits." {
		t.Errorf("Text = %q", resp.Text)
	}
	if len(resp.Recommendations) != 3 {
		t.Errorf("got %d recommendations, want 3", len(resp.Recommendations))
	}

	if got := f.catalog.gotFields["workload"]; len(got) != 1 || got[0] != "Business Central" {
		t.Errorf("workload filter = %v", got)
	}
	if got := f.catalog.gotFields["incentive_type"]; len(got) != 1 || got[0] != "pre_sales" {
		t.Errorf("incentive_type filter = %v", got)
	}
	if _, ok := f.catalog.gotFields["name"]; ok {
		t.Error("unresolved name must not reach the filter")
	}

	saved := f.sessions.saved
	if saved == nil {
		t.Fatal("session was not saved")
	}
	if len(saved.LastResult) != 1 {
		t.Errorf("LastResult rows = %d, want 1", len(saved.LastResult))
	}
	if saved.LastRoute != route.RouteStructured {
		t.Errorf("LastRoute = %q", saved.LastRoute)
	}
	// Recommendations never enter message history.
	for _, m := range saved.Messages {
		if strings.HasPrefix(m.Text, "Can you") {
			t.Errorf("recommendation leaked into history: %q", m.Text)
		}
	}

	if len(f.publisher.published) != 1 {
		t.Fatalf("published %d events, want 1", len(f.publisher.published))
	}
	payload := f.publisher.published[0].Payload()
	if payload["route"] != route.RouteStructured {
		t.Errorf("event route = %v", payload["route"])
	}
	if payload["response_type"] != dto.ResponseTypeFinalAnswer {
		t.Errorf("event response_type = %v", payload["response_type"])
	}
}

func TestTurnAsksForFirstMissingBranchField(t *testing.T) {
	f := newFixture(map[string]resolve.Result{
		"name":           {},
		"workload":       {},
		"incentive_type": {},
	})

	resp, err := f.svc.Turn(context.Background(), &dto.TurnRequest{
		SessionId:   "s1",
		UserMessage: "recommend something",
		InputType:   dto.InputTypeText,
	})
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}

	if resp.ResponseType != dto.ResponseTypeFollowUp {
		t.Fatalf("ResponseType = %q, want follow_up", resp.ResponseType)
	}
	if resp.FollowUp == nil || resp.FollowUp.FieldName != "workload" {
		t.Fatalf("FollowUp = %+v, want workload asked first", resp.FollowUp)
	}
	if f.catalog.filterCalls != 0 {
		t.Error("catalog must not be queried before the requirement is satisfied")
	}

	saved := f.sessions.saved
	if saved.PendingField != "workload" {
		t.Errorf("PendingField = %q", saved.PendingField)
	}
	if saved.FinalAnswer != nil {
		t.Error("FinalAnswer must be cleared while a follow-up is pending")
	}
	if entry := saved.AskedLog["workload"]; entry.Count != 1 || entry.LastQuestion == "" {
		t.Errorf("AskedLog entry = %+v", entry)
	}
}

func TestFollowupResolvesPendingFieldAndCompletes(t *testing.T) {
	f := newFixture(map[string]resolve.Result{
		"incentive_type": {Value: "pre_sales"},
	})

	sess := store.New("s2", "recommend a Business Central engagement")
	sess.CurrentTopic = "recommend_engagement"
	sess.PickedBranch = []string{"workload", "incentive_type"}
	sess.Slots.Resolve("workload", "Business Central")
	sess.Slots.Track("incentive_type")
	sess.PendingField = "incentive_type"
	f.sessions.sessions["s2"] = sess

	resp, err := f.svc.Turn(context.Background(), &dto.TurnRequest{
		SessionId:    "s2",
		UserMessage:  "pre-sales",
		InputType:    dto.InputTypeFollowup,
		CurrentField: "incentive_type",
	})
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}

	if resp.ResponseType != dto.ResponseTypeFinalAnswer {
		t.Fatalf("ResponseType = %q, want final_answer", resp.ResponseType)
	}
	if f.intents.called {
		t.Error("followup turns must not re-run intent detection")
	}
	saved := f.sessions.saved
	if saved.PendingField != "" {
		t.Errorf("PendingField = %q, want cleared", saved.PendingField)
	}
	if v, ok := saved.Slots.Get("incentive_type"); !ok || v != "pre_sales" {
		t.Errorf("incentive_type slot = %q resolved=%v", v, ok)
	}
}

func TestFollowupReasksWithOptionsOnAmbiguity(t *testing.T) {
	f := newFixture(map[string]resolve.Result{
		"name": {Candidates: []resolve.Candidate{
			{Value: "Business Central Workshop", Score: 88},
			{Value: "Business Central Briefing", Score: 86},
		}},
	})
	f.questions.text = "Could you pick the exact engagement name?"

	sess := store.New("s3", "tell me about the workshop")
	sess.CurrentTopic = "recommend_engagement"
	sess.PickedBranch = []string{"name"}
	sess.Slots.Track("name")
	sess.PendingField = "name"
	sess.RecordAsk("name", "Which engagement name do you mean?")
	f.sessions.sessions["s3"] = sess

	resp, err := f.svc.Turn(context.Background(), &dto.TurnRequest{
		SessionId:    "s3",
		UserMessage:  "the business central one",
		InputType:    dto.InputTypeFollowup,
		CurrentField: "name",
	})
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}

	if resp.ResponseType != dto.ResponseTypeFollowUp {
		t.Fatalf("ResponseType = %q, want follow_up", resp.ResponseType)
	}
	if len(resp.FollowUp.Options) != 2 {
		t.Fatalf("Options = %v, want both candidates surfaced", resp.FollowUp.Options)
	}
	if f.questions.got.Attempt != 2 {
		t.Errorf("Attempt = %d, want 2 for a re-ask", f.questions.got.Attempt)
	}
	if f.questions.got.LastQuestion != "Which engagement name do you mean?" {
		t.Errorf("LastQuestion = %q", f.questions.got.LastQuestion)
	}
}

func TestFreshTurnMergesIntoPriorSlots(t *testing.T) {
	f := newFixture(map[string]resolve.Result{
		"name":           {Value: "CRM Envisioning Workshop"},
		"workload":       {},
		"incentive_type": {},
		"country":        {},
		"acv":            {},
		"hours":          {},
	})
	workshop, _ := intent.ByTopic("calc_presales_workshop_payout")
	f.intents.intent = workshop

	resp, err := f.svc.Turn(context.Background(), &dto.TurnRequest{
		SessionId:   "s10",
		UserMessage: "calculate the payout for the CRM Envisioning Workshop",
		InputType:   dto.InputTypeText,
	})
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
	if resp.FollowUp == nil || resp.FollowUp.FieldName != "country" {
		t.Fatalf("FollowUp = %+v, want country asked after the name resolves", resp.FollowUp)
	}

	// The user answers with plain text instead of the follow-up reply, so
	// the whole pipeline runs again. The name resolved on turn one must
	// survive and keep the single-field branch selected.
	f.registry.Register("name", stubResolver{})
	f.registry.Register("country", stubResolver{result: resolve.Result{Value: "Germany"}})

	resp, err = f.svc.Turn(context.Background(), &dto.TurnRequest{
		SessionId:   "s10",
		UserMessage: "Germany",
		InputType:   dto.InputTypeText,
	})
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}

	saved := f.sessions.saved
	if v, ok := saved.Slots.Get("name"); !ok || v != "CRM Envisioning Workshop" {
		t.Fatalf("name slot = %q resolved=%v, a null resolution must not erase it", v, ok)
	}
	if v, ok := saved.Slots.Get("country"); !ok || v != "Germany" {
		t.Errorf("country slot = %q resolved=%v", v, ok)
	}
	if len(saved.PickedBranch) != 1 || saved.PickedBranch[0] != "name" {
		t.Errorf("PickedBranch = %v, want the name branch kept", saved.PickedBranch)
	}
	if resp.FollowUp == nil || resp.FollowUp.FieldName != "acv" {
		t.Errorf("FollowUp = %+v, want acv asked next, not a re-ask of a filled field", resp.FollowUp)
	}
}

func TestFollowupResolvesRequestNamedField(t *testing.T) {
	f := newFixture(map[string]resolve.Result{
		"acv": {Value: "50000"},
	})
	workshop, _ := intent.ByTopic("calc_presales_workshop_payout")
	f.intents.intent = workshop

	sess := store.New("s11", "calculate the workshop payout")
	sess.CurrentTopic = "calc_presales_workshop_payout"
	sess.PickedBranch = []string{"name"}
	sess.Slots.Resolve("name", "CRM Envisioning Workshop")
	sess.Slots.Track("country")
	sess.Slots.Track("acv")
	sess.Slots.Track("hours")
	sess.PendingField = "country"
	f.sessions.sessions["s11"] = sess

	// The client names a different field than the session's pending one;
	// the request wins.
	resp, err := f.svc.Turn(context.Background(), &dto.TurnRequest{
		SessionId:    "s11",
		UserMessage:  "the deal is worth 50k",
		InputType:    dto.InputTypeFollowup,
		CurrentField: "acv",
	})
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}

	saved := f.sessions.saved
	if v, ok := saved.Slots.Get("acv"); !ok || v != "50000" {
		t.Fatalf("acv slot = %q resolved=%v, want the request-named field resolved", v, ok)
	}
	if _, ok := saved.Slots.Get("country"); ok {
		t.Error("country must stay unresolved")
	}
	if resp.FollowUp == nil || resp.FollowUp.FieldName != "country" {
		t.Errorf("FollowUp = %+v, want country re-asked", resp.FollowUp)
	}
}

func TestDocRouteAnswersWithCitations(t *testing.T) {
	f := newFixture(nil)
	f.router.decision = route.Decision{Route: route.RouteDocQA}
	f.docs.result = docqa.Result{
		Text:    "Submit POE via the partner portal.",
		Sources: []docqa.Passage{{File: "partner-guide.pdf", Section: "POE", Page: 12}},
	}

	resp, err := f.svc.Turn(context.Background(), &dto.TurnRequest{
		SessionId:   "s4",
		UserMessage: "where do I submit the POE?",
		InputType:   dto.InputTypeText,
	})
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}

	if !f.docs.called {
		t.Fatal("doc agent was not consulted")
	}
	if !strings.Contains(resp.Text, "[partner-guide.pdf — POE p.12]") {
		t.Errorf("Text = %q, want citation appended", resp.Text)
	}
	if f.catalog.filterCalls != 0 {
		t.Error("doc turns must not touch the catalog")
	}
	if f.sessions.saved.LastRoute != route.RouteDocQA {
		t.Errorf("LastRoute = %q", f.sessions.saved.LastRoute)
	}
}

func TestContinuationAnswersFromCachedRows(t *testing.T) {
	f := newFixture(nil)
	f.cont.result = true

	sess := store.New("s5", "recommend a Business Central engagement")
	sess.CurrentTopic = "recommend_engagement"
	sess.LastResult = []map[string]any{{"name": "Business Central Workshop", "goal": "Adoption"}}
	f.sessions.sessions["s5"] = sess

	resp, err := f.svc.Turn(context.Background(), &dto.TurnRequest{
		SessionId:   "s5",
		UserMessage: "what are the goals of that workshop?",
		InputType:   dto.InputTypeText,
	})
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}

	if !f.cont.called {
		t.Fatal("continuation detector was not consulted")
	}
	if f.intents.called {
		t.Error("a continuation must not re-run intent detection")
	}
	if f.catalog.filterCalls != 0 {
		t.Error("a continuation answers from cached rows, not a fresh query")
	}
	if resp.ResponseType != dto.ResponseTypeFinalAnswer {
		t.Fatalf("ResponseType = %q", resp.ResponseType)
	}
	if len(f.answers.gotRows) != 1 {
		t.Errorf("answer generator saw %d rows, want the cached row", len(f.answers.gotRows))
	}
}

func TestUnknownTopicFallsBack(t *testing.T) {
	f := newFixture(map[string]resolve.Result{
		"name":           {},
		"workload":       {},
		"incentive_type": {},
	})
	f.intents.ok = false

	resp, err := f.svc.Turn(context.Background(), &dto.TurnRequest{
		SessionId:   "s6",
		UserMessage: "hmm",
		InputType:   dto.InputTypeText,
	})
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}

	if resp.ResponseType != dto.ResponseTypeFollowUp {
		t.Fatalf("ResponseType = %q", resp.ResponseType)
	}
	if f.sessions.saved.CurrentTopic != "recommend_engagement" {
		t.Errorf("CurrentTopic = %q, want fallback topic", f.sessions.saved.CurrentTopic)
	}
}

func TestCatalogFailureDegradesToEmptyRows(t *testing.T) {
	f := newFixture(map[string]resolve.Result{
		"name":           {},
		"workload":       {Value: "Business Central"},
		"incentive_type": {Value: "pre_sales"},
	})
	f.catalog.err = errors.New("connection refused")
	f.answers.out = answer.Output{Text: "No matching engagement was found."}

	resp, err := f.svc.Turn(context.Background(), &dto.TurnRequest{
		SessionId:   "s7",
		UserMessage: "recommend a pre-sales Business Central engagement",
		InputType:   dto.InputTypeText,
	})
	if err != nil {
		t.Fatalf("Turn() error = %v, catalog failures must not fail the turn", err)
	}
	if resp.ResponseType != dto.ResponseTypeFinalAnswer {
		t.Fatalf("ResponseType = %q", resp.ResponseType)
	}
	if len(f.answers.gotRows) != 0 {
		t.Errorf("answer generator saw %d rows, want none", len(f.answers.gotRows))
	}
	if f.catalog.filterCalls != 1 {
		t.Errorf("filter calls = %d, want exactly one (fail fast)", f.catalog.filterCalls)
	}
}

func TestSessionStoreFailuresAreTurnErrors(t *testing.T) {
	f := newFixture(nil)
	f.sessions.getErr = errors.New("redis down")
	if _, err := f.svc.Turn(context.Background(), &dto.TurnRequest{
		SessionId: "s8", UserMessage: "hi", InputType: dto.InputTypeText,
	}); err == nil {
		t.Fatal("expected error when session load fails")
	}

	f2 := newFixture(map[string]resolve.Result{
		"name": {}, "workload": {}, "incentive_type": {},
	})
	f2.sessions.saveErr = errors.New("redis down")
	if _, err := f2.svc.Turn(context.Background(), &dto.TurnRequest{
		SessionId: "s9", UserMessage: "recommend something", InputType: dto.InputTypeText,
	}); err == nil {
		t.Fatal("expected error when session save fails")
	}
}

func TestNewSessionGetsGeneratedId(t *testing.T) {
	f := newFixture(map[string]resolve.Result{
		"name": {}, "workload": {}, "incentive_type": {},
	})

	resp, err := f.svc.Turn(context.Background(), &dto.TurnRequest{
		UserMessage: "recommend something",
		InputType:   dto.InputTypeText,
	})
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
	if resp.SessionId == "" {
		t.Fatal("expected a generated session id")
	}
	if f.sessions.saved.ID != resp.SessionId {
		t.Errorf("saved id %q != response id %q", f.sessions.saved.ID, resp.SessionId)
	}
}
