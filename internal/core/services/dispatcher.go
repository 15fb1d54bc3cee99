package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"rosterbot/internal/core/domain"
	"rosterbot/internal/core/ports"
	"rosterbot/pkg/logger"
	"rosterbot/pkg/tracing"
	"rosterbot/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var _ ports.EventHandler = (*Dispatcher)(nil)

// DefaultSweepEveryEvents is how many processed events trigger an inline sweep.
const DefaultSweepEveryEvents = 100

type sweepRunner interface {
	RunOnce(ctx context.Context)
}

// DispatcherDeps groups the collaborators of the dispatcher.
type DispatcherDeps struct {
	Roster    ports.RosterService
	Tracker   *ConversationTracker
	Targets   *TargetResolver
	Profiles  *ProfileLookup
	Messenger ports.Messenger
	Sweeper   sweepRunner
	Metrics   ports.Metrics
	Logger    *zap.SugaredLogger
	Now       func() time.Time
}

// Dispatcher is the command/action state machine. Each actor is either Idle
// or AwaitingTarget(action) as recorded by the conversation tracker.
//
// All roster mutations and prompt transitions happen under mu, so events
// are decided one at a time even when delivered concurrently. Replies are
// sent after mu is released.
type Dispatcher struct {
	mu         sync.Mutex
	processed  uint64
	sweepEvery int

	roster    ports.RosterService
	tracker   *ConversationTracker
	targets   *TargetResolver
	profiles  *ProfileLookup
	messenger ports.Messenger
	sweeper   sweepRunner
	metrics   ports.Metrics
	log       *logger.ContextLogger
	now       func() time.Time
}

func NewDispatcher(deps DispatcherDeps, sweepEvery int) *Dispatcher {
	if deps.Metrics == nil {
		deps.Metrics = ports.NopMetrics{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Tracker == nil {
		deps.Tracker = NewConversationTracker(DefaultPromptTTL, deps.Now)
	}
	if deps.Targets == nil {
		deps.Targets = NewTargetResolver(nil, nil, 0, deps.Metrics, deps.Logger)
	}
	if deps.Profiles == nil {
		deps.Profiles = NewProfileLookup(nil, 0, 0, deps.Metrics, deps.Logger)
	}
	if sweepEvery < 0 {
		sweepEvery = 0
	}
	return &Dispatcher{
		sweepEvery: sweepEvery,
		roster:     deps.Roster,
		tracker:    deps.Tracker,
		targets:    deps.Targets,
		profiles:   deps.Profiles,
		messenger:  deps.Messenger,
		sweeper:    deps.Sweeper,
		metrics:    deps.Metrics,
		log:        logger.NewContextLogger(deps.Logger),
		now:        deps.Now,
	}
}

// Locker exposes the serialization mutex for work that runs outside the
// event loop, such as the ticker-driven sweeper.
func (d *Dispatcher) Locker() sync.Locker {
	return &d.mu
}

// Run processes events until ctx is cancelled or events is closed. A failing
// event never stops the loop.
func (d *Dispatcher) Run(ctx context.Context, events <-chan domain.InboundEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = d.HandleEvent(ctx, ev)
		}
	}
}

// HandleEvent processes one event to completion. Internal failures are
// logged, answered with a generic error message and returned.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev domain.InboundEvent) error {
	eventID := uuid.NewString()
	ctx = logger.WithEvent(ctx, eventID, int64(ev.FromID), ev.PeerID)
	ctx, span := tracing.TraceEvent(ctx, eventID, int64(ev.FromID), ev.PeerID)
	defer span.End()

	start := d.now()
	replies, list, kind, err := d.process(ctx, ev)
	if err == nil && list != nil {
		// names are fetched outside mu so a slow profile service cannot
		// hold up other events
		replies = append(replies, list.render(ctx, d.profiles))
	}
	if err != nil {
		d.metrics.RecordEventFailure()
		d.log.LogError(ctx, err, "failed to process event", "kind", kind)
		tracing.RecordError(ctx, err)
		replies = []domain.Reply{d.reply(ev, msgInternalError)}
	}
	d.metrics.RecordEvent(kind, d.now().Sub(start))

	for _, r := range replies {
		if sendErr := d.send(ctx, r); sendErr != nil {
			d.log.WithContext(ctx).Warnw("failed to send reply", "error", sendErr)
		}
	}
	return err
}

func (d *Dispatcher) send(ctx context.Context, r domain.Reply) error {
	if d.messenger == nil {
		return nil
	}
	return d.messenger.Send(ctx, r)
}

func (d *Dispatcher) process(ctx context.Context, ev domain.InboundEvent) (replies []domain.Reply, list *memberListView, kind string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	kind = "ignored"
	defer func() {
		if r := recover(); r != nil {
			replies, list = nil, nil
			err = fmt.Errorf("panic while processing event: %v\n%s", r, debug.Stack())
		}
	}()
	defer d.maybeSweep(ctx)

	text := strings.TrimSpace(ev.Text)
	if strings.HasPrefix(text, "/") {
		kind = "command"
		replies, err = d.handleCommand(ctx, ev, text)
		return replies, nil, kind, err
	}

	action := actionFromPayload(ev.Payload)
	if action == domain.ActionNone {
		action = ActionFromLabel(text)
	}

	switch {
	case action.IsPrivileged():
		kind = "prompt"
		replies, err = d.beginPrompt(ctx, ev, action)
	case action != domain.ActionNone:
		kind = "action"
		replies, list, err = d.handleSelfService(ctx, ev, action)
	default:
		if pending, ok := d.tracker.Take(ev.FromID); ok {
			kind = "target"
			replies, err = d.completePrompt(ctx, ev, pending)
		}
	}
	return replies, list, kind, err
}

func (d *Dispatcher) maybeSweep(ctx context.Context) {
	d.processed++
	if d.sweeper == nil || d.sweepEvery == 0 || d.processed%uint64(d.sweepEvery) != 0 {
		return
	}
	d.sweeper.RunOnce(ctx)
}

// actionFromPayload reads {"action": "<token>"} from a button payload.
func actionFromPayload(payload string) domain.ActionKind {
	if strings.TrimSpace(payload) == "" {
		return domain.ActionNone
	}
	var body struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal([]byte(payload), &body); err != nil {
		return domain.ActionNone
	}
	return domain.ParseActionKind(body.Action)
}

func (d *Dispatcher) handleCommand(ctx context.Context, ev domain.InboundEvent, text string) ([]domain.Reply, error) {
	args := strings.Fields(text)
	command := strings.ToLower(args[0])

	switch command {
	case "/help":
		return d.replies(ev, helpText), nil
	case "/addgroup", "/removegroup":
	default:
		return d.replies(ev, msgUnknownCommand), nil
	}

	add := command == "/addgroup"
	group, groupErr := domain.GroupJunior, error(nil)
	if len(args) > 1 {
		group, groupErr = domain.ParseGroup(args[1])
	}
	action := domain.MutationAction(group, add)
	if groupErr != nil {
		action = domain.MutationAction(domain.GroupJunior, add)
	}

	if denied := d.authorize(ctx, ev, action); denied != nil {
		return denied, nil
	}
	if len(args) < 3 {
		return d.replies(ev, usageText(command)), nil
	}
	if groupErr != nil {
		return d.replies(ev, msgUnknownGroup), nil
	}

	target, err := d.targets.Resolve(ctx, strings.Join(args[2:], " "))
	if err != nil {
		return d.unresolvable(ctx, ev, err)
	}
	return d.applyMutation(ctx, ev, group, add, target)
}

func (d *Dispatcher) beginPrompt(ctx context.Context, ev domain.InboundEvent, action domain.ActionKind) ([]domain.Reply, error) {
	if denied := d.authorize(ctx, ev, action); denied != nil {
		return denied, nil
	}
	d.tracker.Begin(ev.FromID, action)
	return d.replies(ev, promptText(action)), nil
}

// completePrompt runs after the pending prompt was consumed. Authorization
// is checked again because the actor may have lost management meanwhile.
func (d *Dispatcher) completePrompt(ctx context.Context, ev domain.InboundEvent, action domain.ActionKind) ([]domain.Reply, error) {
	if denied := d.authorize(ctx, ev, action); denied != nil {
		return denied, nil
	}

	target, err := d.targets.Resolve(ctx, ev.Text)
	if err != nil {
		return d.unresolvable(ctx, ev, err)
	}

	group, add, _ := action.Target()
	return d.applyMutation(ctx, ev, group, add, target)
}

func (d *Dispatcher) authorize(ctx context.Context, ev domain.InboundEvent, action domain.ActionKind) []domain.Reply {
	role := d.roster.RoleOf(ev.FromID)
	if err := Authorize(role, action); err != nil {
		d.metrics.RecordDenial(action)
		d.log.WithContext(ctx).Infow("action denied", "action", action, "role", role.String())
		return d.replies(ev, msgDenied)
	}
	return nil
}

func (d *Dispatcher) unresolvable(ctx context.Context, ev domain.InboundEvent, err error) ([]domain.Reply, error) {
	if !errors.Is(err, domain.ErrUnresolvable) {
		return nil, err
	}
	d.log.WithContext(ctx).Debugw("target reference unresolvable", "input", utils.Truncate(ev.Text, 64), "error", err)
	return d.replies(ev, msgUnresolvable), nil
}

func (d *Dispatcher) applyMutation(ctx context.Context, ev domain.InboundEvent, group domain.Group, add bool, target domain.UserID) ([]domain.Reply, error) {
	profile := d.profiles.Profile(ctx, target)

	var (
		outcome domain.Outcome
		err     error
	)
	switch {
	case group == domain.GroupJunior && add:
		outcome, err = d.roster.AddJunior(ctx, target, profile)
	case group == domain.GroupJunior:
		_, outcome, err = d.roster.RemoveJunior(ctx, target)
	case group == domain.GroupSenior && add:
		outcome, err = d.roster.AddSenior(ctx, target)
	case group == domain.GroupSenior:
		outcome, err = d.roster.RemoveSenior(ctx, target)
	case group == domain.GroupManagement && add:
		outcome, err = d.roster.AddManagement(ctx, target)
	default:
		outcome, err = d.roster.RemoveManagement(ctx, target)
	}
	if err != nil {
		return nil, err
	}

	d.log.WithContext(ctx).Infow("roster mutation",
		"target_id", target,
		"group", group,
		"add", add,
		"outcome", outcome.String(),
	)
	return d.replies(ev, mutationText(group, add, outcome, target, profile.FullName())), nil
}

// handleSelfService answers enter, exit and list actions. Senior and
// management lists come back as a view whose names are resolved by the caller.
func (d *Dispatcher) handleSelfService(ctx context.Context, ev domain.InboundEvent, action domain.ActionKind) ([]domain.Reply, *memberListView, error) {
	actor := ev.FromID

	switch action {
	case domain.ActionEnter:
		if d.roster.HasJuniorSession(actor) {
			return d.replies(ev, msgAlreadyOnDuty), nil, nil
		}
		profile := d.profiles.Profile(ctx, actor)
		outcome, err := d.roster.AddJunior(ctx, actor, profile)
		if err != nil {
			return nil, nil, err
		}
		if outcome == domain.OutcomeAlreadyPresent {
			return d.replies(ev, msgAlreadyOnDuty), nil, nil
		}
		d.log.WithContext(ctx).Infow("admin went on duty", "name", profile.FullName())
		return d.replies(ev, enterText(d.roster.RoleOf(actor), actor, profile, len(d.roster.Juniors()))), nil, nil

	case domain.ActionExit:
		session, outcome, err := d.roster.RemoveJunior(ctx, actor)
		if err != nil {
			return nil, nil, err
		}
		if outcome == domain.OutcomeNotPresent {
			return d.replies(ev, msgNotOnDuty), nil, nil
		}
		d.log.WithContext(ctx).Infow("admin went off duty", "name", session.Profile().FullName())
		return d.replies(ev, exitText(actor, session, len(d.roster.Juniors()))), nil, nil

	case domain.ActionListJunior:
		return d.replies(ev, juniorListText(d.roster.Juniors(), d.now())), nil, nil

	case domain.ActionListSenior:
		return nil, d.memberList(ev, "Senior admins", d.roster.Seniors()), nil

	case domain.ActionListManagement:
		return nil, d.memberList(ev, "Management", d.roster.Management()), nil
	}
	return nil, nil, nil
}

// memberListView is a member list decided under mu: ids, online flags and
// keyboard are fixed, names are filled in by render.
type memberListView struct {
	title string
	reply domain.Reply
	lines []memberLine
}

func (d *Dispatcher) memberList(ev domain.InboundEvent, title string, ids []domain.UserID) *memberListView {
	lines := make([]memberLine, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, memberLine{id: id, online: d.roster.HasJuniorSession(id)})
	}
	return &memberListView{title: title, reply: d.reply(ev, ""), lines: lines}
}

func (v *memberListView) render(ctx context.Context, profiles *ProfileLookup) domain.Reply {
	for i := range v.lines {
		v.lines[i].profile = profiles.Profile(ctx, v.lines[i].id)
	}
	v.reply.Text = memberListText(v.title, v.lines)
	return v.reply
}

// reply addresses the event's peer with the keyboard for the actor's role as
// it stands after the event.
func (d *Dispatcher) reply(ev domain.InboundEvent, text string) domain.Reply {
	return domain.Reply{
		PeerID:   ev.PeerID,
		Text:     text,
		Keyboard: KeyboardFor(d.roster.RoleOf(ev.FromID)),
	}
}

func (d *Dispatcher) replies(ev domain.InboundEvent, text string) []domain.Reply {
	return []domain.Reply{d.reply(ev, text)}
}
