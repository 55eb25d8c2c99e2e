package machine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tripflow-core/server/internal/planner/model"
	logx "github.com/tripflow-core/server/pkg/logger"
)

// Config bounds a single turn of the state machine.
type Config struct {
	// TurnBudget caps wall time for one ProcessTurn call, LLM calls
	// and tool dispatch included.
	TurnBudget time.Duration
	// TaskMaxAttempts is the per-task invocation budget.
	TaskMaxAttempts int
	// HistoryMaxTurns caps the retained dialog, counted in user turns.
	HistoryMaxTurns int
}

func (c Config) withDefaults() Config {
	if c.TurnBudget <= 0 {
		c.TurnBudget = 90 * time.Second
	}
	if c.TaskMaxAttempts <= 0 {
		c.TaskMaxAttempts = 3
	}
	if c.HistoryMaxTurns <= 0 {
		c.HistoryMaxTurns = 10
	}
	return c
}

// Machine drives the two-phase planning conversation: fill and validate
// trip slots, then decompose into tool tasks, execute them under a
// bounded retry budget and integrate the results. All transitions are
// explicit; roles and tools are injected interfaces.
type Machine struct {
	generator model.Generator
	validator model.Validator
	tools     model.ToolInvoker
	sessions  model.SessionRepository
	dateSpecs map[string]model.DateSpec
	cfg       Config
	now       func() time.Time
}

func New(
	generator model.Generator,
	validator model.Validator,
	tools model.ToolInvoker,
	sessions model.SessionRepository,
	dateSpecs map[string]model.DateSpec,
	cfg Config,
) *Machine {
	return &Machine{
		generator: generator,
		validator: validator,
		tools:     tools,
		sessions:  sessions,
		dateSpecs: dateSpecs,
		cfg:       cfg.withDefaults(),
		now:       time.Now,
	}
}

// ProcessTurn advances the session owned by identity with one user
// message and returns the response to show. The session store is read
// once at the start and written once before returning; a store read
// failure degrades to a fresh in-memory session rather than refusing
// the turn.
func (m *Machine) ProcessTurn(ctx context.Context, identity, userText string) (model.TurnResult, error) {
	if strings.TrimSpace(userText) == "" {
		return model.TurnResult{}, fmt.Errorf("empty user message")
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.TurnBudget)
	defer cancel()

	turnID := uuid.NewString()
	sess := m.loadSession(ctx, identity, turnID)

	sess.AppendUser(userText)
	m.trimHistory(sess)

	var result model.TurnResult
	switch sess.Phase {
	case model.PhaseSlotFill:
		result = m.slotFillTurn(ctx, sess, turnID)
	case model.PhaseTaskExec:
		// A turn that previously validated slots but was cut off
		// before execution resumes straight into execution.
		result = m.executePlan(ctx, sess, turnID)
	default:
		result = m.slotFillTurn(ctx, sess, turnID)
	}

	// A slot-fill pass that validated moves into execution within the
	// same turn.
	if sess.Phase == model.PhaseTaskExec && result.Response == "" {
		result = m.executePlan(ctx, sess, turnID)
	}

	sess.AppendAssistant(result.Response)
	m.trimHistory(sess)
	m.saveSession(ctx, sess, turnID)

	result.Degraded = sess.Degraded
	return result, nil
}

// Inspect returns a read-only snapshot of the stored session.
func (m *Machine) Inspect(ctx context.Context, identity string) (model.Snapshot, error) {
	sess, err := m.sessions.Load(ctx, identity)
	if err != nil {
		return model.Snapshot{}, err
	}
	if sess == nil {
		return model.Snapshot{}, fmt.Errorf("no session for identity %q", identity)
	}
	turns := 0
	for _, msg := range sess.History {
		if msg.Role == schema.User {
			turns++
		}
	}
	return model.Snapshot{
		Identity: sess.Identity,
		Phase:    sess.Phase,
		Slots:    sess.Slots,
		Turns:    turns,
	}, nil
}

// Reset discards the stored session so the next turn starts fresh.
func (m *Machine) Reset(ctx context.Context, identity string) error {
	return m.sessions.Delete(ctx, identity)
}

func (m *Machine) loadSession(ctx context.Context, identity, turnID string) *model.Session {
	sess, err := m.sessions.Load(ctx, identity)
	if err != nil {
		logx.Warn().Err(err).Str("turn_id", turnID).Str("identity", identity).
			Msg("Session load failed, continuing with a fresh session")
		sess = model.NewSession(identity)
		sess.Degraded = true
		return sess
	}
	if sess == nil {
		return model.NewSession(identity)
	}
	// A finished plan does not accumulate; the next message starts a
	// new planning conversation for the same identity.
	if sess.Phase == model.PhaseDone {
		return model.NewSession(identity)
	}
	if sess.Attempts == nil {
		sess.Attempts = map[string]int{}
	}
	return sess
}

func (m *Machine) saveSession(ctx context.Context, sess *model.Session, turnID string) {
	if err := m.sessions.Save(ctx, sess); err != nil {
		logx.Error().Err(err).Str("turn_id", turnID).Str("identity", sess.Identity).
			Msg("Session save failed, turn state lost")
	}
}

func (m *Machine) trimHistory(sess *model.Session) {
	max := m.cfg.HistoryMaxTurns * 2
	if len(sess.History) > max {
		sess.History = sess.History[len(sess.History)-max:]
	}
}

// ================ Slot filling ================

func (m *Machine) slotFillTurn(ctx context.Context, sess *model.Session, turnID string) model.TurnResult {
	extracted, err := m.generator.ExtractSlots(ctx, sess.History, sess.SlotValues())
	if err != nil {
		logx.Warn().Err(err).Str("turn_id", turnID).Msg("Slot extraction failed")
		return model.TurnResult{
			Response: m.fallbackClarification(sess, nil),
			Phase:    model.PhaseSlotFill,
		}
	}
	for name, value := range extracted {
		sess.SetSlot(name, value)
	}

	verdict, err := m.validator.ValidateSlots(ctx, sess.SlotValues())
	if err != nil {
		logx.Warn().Err(err).Str("turn_id", turnID).Msg("Slot validation role failed")
		// No verdict means no pass. Execution is gated on the
		// validator's judgment, so the turn stays in slot filling and
		// asks the user instead of letting extraction confirm itself.
		response := m.fallbackClarification(sess, nil)
		if len(missingCriticalSlots(sess)) == 0 {
			response = "I could not verify your trip details just now. Could you confirm where you are going, from where, and on what date?"
		}
		return model.TurnResult{Response: response, Phase: model.PhaseSlotFill}
	}

	if !verdict.Pass {
		return m.handleFailedSlotVerdict(ctx, sess, verdict, turnID)
	}

	sess.MarkSlotsValidated()
	sess.LastFailedSlots = nil
	sess.SlotFailStreak = 0
	sess.Phase = model.PhaseTaskExec
	return model.TurnResult{Phase: model.PhaseTaskExec}
}

func (m *Machine) handleFailedSlotVerdict(ctx context.Context, sess *model.Session, verdict model.Verdict, turnID string) model.TurnResult {
	// Repeating the same clarification against unchanged slots means
	// the conversation is stuck; switch to a deterministic ask instead
	// of another generated variation.
	if sess.SameSlotValues(sess.LastFailedSlots) {
		sess.SlotFailStreak++
	} else {
		sess.SlotFailStreak = 1
	}
	sess.LastFailedSlots = sess.SlotValues()

	if sess.SlotFailStreak >= 2 {
		logx.Info().Str("turn_id", turnID).Int("streak", sess.SlotFailStreak).
			Msg("Slot fill stalled, using deterministic clarification")
		return model.TurnResult{
			Response: m.fallbackClarification(sess, verdict.Missing),
			Phase:    model.PhaseSlotFill,
		}
	}

	prompt := verdict.Prompt
	if prompt == "" {
		composed, err := m.generator.ComposeClarification(ctx, verdict)
		if err != nil {
			logx.Warn().Err(err).Str("turn_id", turnID).Msg("Clarification compose failed")
		} else {
			prompt = composed
		}
	}
	if prompt == "" {
		prompt = m.fallbackClarification(sess, verdict.Missing)
	}
	return model.TurnResult{Response: prompt, Phase: model.PhaseSlotFill}
}

// fallbackClarification builds the no-LLM ask for whatever is still
// missing, critical slots first.
func (m *Machine) fallbackClarification(sess *model.Session, reported []string) string {
	missing := map[string]bool{}
	for _, name := range reported {
		missing[name] = true
	}
	for _, name := range missingCriticalSlots(sess) {
		missing[name] = true
	}

	var critical, optional []string
	for name := range missing {
		if model.IsCriticalSlot(name) {
			critical = append(critical, name)
		} else {
			optional = append(optional, name)
		}
	}
	sort.Strings(critical)
	sort.Strings(optional)

	switch {
	case len(critical) > 0:
		return fmt.Sprintf(
			"To plan your trip I still need: %s. Could you provide them?",
			strings.Join(critical, ", "))
	case len(optional) > 0:
		return fmt.Sprintf(
			"Could you confirm or clarify: %s?",
			strings.Join(optional, ", "))
	default:
		return "Could you tell me where you are departing from, where you want to go, and on what date?"
	}
}

func missingCriticalSlots(sess *model.Session) []string {
	values := sess.SlotValues()
	var missing []string
	for _, name := range model.CriticalSlots {
		if values[name] == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// ================ Task execution ================

func (m *Machine) executePlan(ctx context.Context, sess *model.Session, turnID string) model.TurnResult {
	slots := sess.SlotValues()
	tasks, err := m.generator.DecomposeTasks(ctx, slots)
	if err != nil {
		logx.Error().Err(err).Str("turn_id", turnID).Msg("Task decomposition failed")
		return model.TurnResult{
			Response: "I could not build a plan from your request right now. Please try again.",
			Phase:    model.PhaseTaskExec,
		}
	}
	if len(tasks) == 0 {
		sess.Phase = model.PhaseDone
		return model.TurnResult{
			Response: "There is nothing to look up for this trip yet. Tell me more about what you need.",
			Phase:    model.PhaseDone,
			Done:     true,
		}
	}

	results, abandoned := m.runTasks(ctx, sess, tasks, turnID)

	ordered := make([]model.ToolResult, 0, len(results))
	for _, t := range tasks {
		if r, ok := results[t.ID]; ok {
			ordered = append(ordered, r)
		}
	}

	final, err := m.generator.ComposeItinerary(ctx, slots, ordered, abandoned)
	if err != nil || final == "" {
		logx.Warn().Err(err).Str("turn_id", turnID).Msg("Itinerary compose failed, using plain summary")
		final = plainSummary(ordered, abandoned)
	}

	sess.Phase = model.PhaseDone
	return model.TurnResult{Response: final, Phase: model.PhaseDone, Done: true}
}

// runTasks drives every task to a terminal status. Each round runs all
// currently runnable tasks concurrently, then applies validation,
// correction and scheduling sequentially so session state has a single
// writer.
func (m *Machine) runTasks(ctx context.Context, sess *model.Session, tasks []*model.Task, turnID string) (map[string]model.ToolResult, []*model.Task) {
	byID := make(map[string]*model.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	results := make(map[string]model.ToolResult, len(tasks))

	for !Settled(tasks) {
		runnable := m.markRunnable(tasks, byID)
		if len(runnable) == 0 {
			// Whatever is still pending waits on dependencies that can
			// no longer complete. Abandon it so the final plan reports
			// it instead of silently dropping it.
			for _, t := range tasks {
				if t.Status == model.TaskPending || t.Status == model.TaskRunning {
					t.Status = model.TaskAbandoned
				}
			}
			break
		}

		attempts := m.dispatchRound(ctx, runnable, turnID)

		for i, task := range runnable {
			res := attempts[i]
			sess.Attempts[task.ID]++
			task.Attempts = sess.Attempts[task.ID]

			res, correction := m.judgeResult(ctx, task, res, turnID)

			decision := Decide(res.OK, res.Kind, task.Attempts, m.cfg.TaskMaxAttempts, correction != nil)
			sess.LastDecision = string(decision)
			logx.Info().
				Str("turn_id", turnID).
				Str("task_id", task.ID).
				Str("tool", task.Tool).
				Int("attempt", task.Attempts).
				Str("decision", string(decision)).
				Msg("Task attempt scheduled")

			switch decision {
			case DecisionAccept:
				task.Status = model.TaskSucceeded
				results[task.ID] = res
			case DecisionRetryWithCorrection:
				task.Params = correction.Params
				task.Status = model.TaskPending
			case DecisionRetrySameParameters:
				task.Status = model.TaskPending
			case DecisionAbandon:
				// A task that spent its own attempt budget failed; a
				// task dropped for any other reason was abandoned.
				if task.Attempts >= m.cfg.TaskMaxAttempts {
					task.Status = model.TaskFailed
				} else {
					task.Status = model.TaskAbandoned
				}
				results[task.ID] = res
			}
		}
	}

	var abandoned []*model.Task
	for _, t := range tasks {
		if t.Status == model.TaskFailed || t.Status == model.TaskAbandoned {
			abandoned = append(abandoned, t)
		}
	}
	return results, abandoned
}

// markRunnable returns the pending tasks whose dependencies all
// succeeded, abandoning any task whose dependency terminally failed.
func (m *Machine) markRunnable(tasks []*model.Task, byID map[string]*model.Task) []*model.Task {
	var runnable []*model.Task
	for _, t := range tasks {
		if t.Status != model.TaskPending {
			continue
		}
		ready := true
		for _, dep := range t.DependsOn {
			d, ok := byID[dep]
			if !ok || d.Status == model.TaskFailed || d.Status == model.TaskAbandoned {
				t.Status = model.TaskAbandoned
				ready = false
				break
			}
			if d.Status != model.TaskSucceeded {
				ready = false
				break
			}
		}
		if ready {
			runnable = append(runnable, t)
		}
	}
	return runnable
}

// dispatchRound normalizes dates and invokes every runnable task
// concurrently, returning one result per task in input order. Date
// flags short-circuit the invocation into a parameter error so the
// correction path sees them.
func (m *Machine) dispatchRound(ctx context.Context, runnable []*model.Task, turnID string) []model.ToolResult {
	out := make([]model.ToolResult, len(runnable))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, task := range runnable {
		task.Status = model.TaskRunning

		params, flags := NormalizeParameters(task.Params, m.dateSpecs[task.Tool], m.now())
		if len(flags) > 0 {
			out[i] = model.ErrResult(task.ID, task.Tool, model.ErrKindBadParameters, strings.Join(flags, "; "))
			logx.Warn().Str("turn_id", turnID).Str("task_id", task.ID).
				Strs("flags", flags).Msg("Date normalization flagged parameters")
			continue
		}
		task.Params = params

		i, task := i, task
		g.Go(func() error {
			res := m.tools.Invoke(gctx, task.ID, task.Tool, task.Params)
			mu.Lock()
			out[i] = res
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return out
}

// judgeResult applies semantic validation to transport-level successes
// and, for parameter-shaped failures, asks the generator for a repaired
// parameter set. Transport failures skip validation entirely.
func (m *Machine) judgeResult(ctx context.Context, task *model.Task, res model.ToolResult, turnID string) (model.ToolResult, *model.Correction) {
	if res.OK {
		verdict, err := m.validator.ValidateResult(ctx, task.Description, res)
		if err != nil {
			logx.Warn().Err(err).Str("turn_id", turnID).Str("task_id", task.ID).
				Msg("Result validation role failed")
			res = model.ErrResult(task.ID, task.Tool, model.ErrKindRemoteFailure, "result validation unavailable")
		} else if !verdict.Pass {
			res = model.ErrResult(task.ID, task.Tool, model.ErrKindRemoteFailure,
				strings.Join(verdict.Reasons, "; "))
		}
	}
	if res.OK {
		return res, nil
	}

	if res.Kind != model.ErrKindBadParameters && !looksLikeParameterError(res.Message) {
		return res, nil
	}

	corr, err := m.generator.CorrectParameters(ctx, task, res.Message)
	if err != nil {
		logx.Warn().Err(err).Str("turn_id", turnID).Str("task_id", task.ID).
			Msg("Parameter correction failed")
		return res, nil
	}
	if corr == nil || len(corr.Params) == 0 {
		return res, nil
	}
	return res, corr
}

// Phrases that mark a failure as parameter-shaped even when the tool
// reported it as a generic failure.
var parameterErrorMarkers = []string{
	"date", "check_in", "check_out", "yyyy-mm-dd",
	"earlier than today", "format", "parameter",
}

func looksLikeParameterError(message string) bool {
	msg := strings.ToLower(message)
	for _, marker := range parameterErrorMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func plainSummary(results []model.ToolResult, abandoned []*model.Task) string {
	var b strings.Builder
	b.WriteString("Here is what I found for your trip:\n")
	for _, r := range results {
		if !r.OK {
			continue
		}
		fmt.Fprintf(&b, "\n[%s]\n%s\n", r.Tool, r.Payload)
	}
	for _, t := range abandoned {
		fmt.Fprintf(&b, "\nI could not complete: %s (%s).\n", t.Description, t.Tool)
	}
	return b.String()
}
