package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/domain"
	"github.com/immxrtalbeast/debatehall/internal/repository"
	"github.com/immxrtalbeast/debatehall/lib/logger/sl"
)

const (
	EventJoiningWindowStarted = "joining_window_started"
	EventJoiningWindowClosed  = "joining_window_closed"
	EventDebateStarted        = "debate_started"
	EventVotingStarted        = "voting_started"
	EventSessionFinished      = "session_finished"
	EventSessionCancelled     = "session_cancelled"

	maxHistoryLimit = 200
)

var nextPhaseLabels = map[domain.SessionStatus]string{
	domain.StatusOpen:     "Joining window opens",
	domain.StatusClosed:   "Joining window closes",
	domain.StatusOnline:   "Debate starts",
	domain.StatusVoting:   "Voting starts",
	domain.StatusFinished: "Results",
}

// transitionStep is one committed lifecycle move together with the session
// state right after it.
type transitionStep struct {
	event    string
	snapshot *domain.DebateSession
	// demoted participations are written only after the status commit.
	demoted []*domain.Participation
	// quiet steps are broadcast but do not notify users.
	quiet bool
}

type stepFunc func(ctx context.Context, session *domain.DebateSession, now time.Time) ([]transitionStep, error)

type SessionService struct {
	repos     repository.Repositories
	locks     *SessionLocks
	notifier  Notifier
	publisher Publisher
	settings  Settings
	log       *slog.Logger
	now       func() time.Time
}

func NewSessionService(
	repos repository.Repositories,
	locks *SessionLocks,
	notifier Notifier,
	publisher Publisher,
	settings Settings,
	log *slog.Logger,
) *SessionService {
	if log == nil {
		log = slog.Default()
	}
	if locks == nil {
		locks = NewSessionLocks()
	}
	return &SessionService{
		repos:     repos,
		locks:     locks,
		notifier:  notifier,
		publisher: publisher,
		settings:  settings,
		log:       log,
		now:       utcNow,
	}
}

func (s *SessionService) CreateSession(ctx context.Context, actor domain.Principal, topicID uuid.UUID, scheduledStart *time.Time, durationMinutes int) (*domain.DebateSession, error) {
	const op = "service.session.create"
	log := s.log.With(slog.String("op", op), slog.String("moderator_id", actor.UserID.String()))

	if !actor.CanModerate() {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrNotEligible)
	}
	if _, err := ensureUser(ctx, s.repos.Users, s.log, actor); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.repos.Topics.GetByID(ctx, topicID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	session, err := domain.NewDebateSession(topicID, actor.UserID, scheduledStart, durationMinutes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repos.Sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("session created",
		slog.String("session_id", session.ID.String()),
		slog.Int("duration_minutes", session.DurationMinutes),
	)
	return session, nil
}

func (s *SessionService) GetSession(ctx context.Context, id uuid.UUID) (*domain.DebateSession, error) {
	const op = "service.session.get"

	session, err := s.repos.Sessions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return session, nil
}

func (s *SessionService) ActiveSessions(ctx context.Context) ([]*domain.DebateSession, error) {
	const op = "service.session.active"

	sessions, err := s.repos.Sessions.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sessions, nil
}

// ListSessions returns sessions newest first, optionally only those in the
// given stored statuses.
func (s *SessionService) ListSessions(ctx context.Context, statuses []domain.SessionStatus) ([]*domain.DebateSession, error) {
	const op = "service.session.list"

	for _, status := range statuses {
		if !status.Valid() {
			return nil, fmt.Errorf("%s: %w: unknown status %q", op, domain.ErrValidation, status)
		}
	}
	sessions, err := s.repos.Sessions.List(ctx, statuses)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sessions, nil
}

// Status reports the effective phase, which may run ahead of the stored status
// until the scheduler catches up.
func (s *SessionService) Status(ctx context.Context, id uuid.UUID) (*StatusReport, error) {
	const op = "service.session.status"

	session, err := s.repos.Sessions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	parts, err := s.repos.Participations.ListBySession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	messages, err := s.repos.Messages.CountBySession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	phase := domain.DerivePhase(session, now)
	report := &StatusReport{
		Phase:        phase,
		CanJoin:      phase == domain.StatusOpen,
		CanChat:      phase == domain.StatusOnline,
		CanVote:      phase == domain.StatusVoting,
		MessageCount: messages,
		SessionInfo:  session,
	}

	if next, at := domain.NextPhase(session, phase); next != "" {
		report.NextPhaseLabel = nextPhaseLabels[next]
		if at != nil {
			seconds := int(math.Ceil(at.Sub(now).Seconds()))
			if seconds < 0 {
				seconds = 0
			}
			report.CountdownToNextPhase = &seconds
		}
	}

	for _, p := range parts {
		if !p.IsActive() {
			continue
		}
		switch p.Role {
		case domain.RoleParticipant:
			report.ParticipantCount++
		case domain.RoleViewer:
			report.ViewerCount++
		}
	}
	return report, nil
}

func (s *SessionService) Join(ctx context.Context, actor domain.Principal, sessionID uuid.UUID, req JoinRequest) (*domain.Participation, error) {
	const op = "service.session.join"
	log := s.log.With(
		slog.String("op", op),
		slog.String("session_id", sessionID.String()),
		slog.String("user_id", actor.UserID.String()),
	)

	if err := domain.ValidateRoleSide(req.Role, req.Side); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := ensureUser(ctx, s.repos.Users, s.log, actor); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var created bool
	p, session, err := func() (*domain.Participation, *domain.DebateSession, error) {
		unlock := s.locks.Lock(sessionID)
		defer unlock()

		session, err := s.repos.Sessions.GetByID(ctx, sessionID)
		if err != nil {
			return nil, nil, err
		}
		if session.IsModerator(actor.UserID) {
			return nil, nil, fmt.Errorf("%w: the moderator cannot join their own session", domain.ErrNotEligible)
		}

		now := s.now()
		phase := domain.DerivePhase(session, now)
		switch req.Role {
		case domain.RoleParticipant:
			if !actor.IsStudent() {
				return nil, nil, fmt.Errorf("%w: only students can debate", domain.ErrNotEligible)
			}
			if phase != domain.StatusOpen {
				return nil, nil, fmt.Errorf("%w: joining window is not open", domain.ErrNotEligible)
			}
		case domain.RoleViewer:
			if phase == domain.StatusOffline || phase.Terminal() {
				return nil, nil, fmt.Errorf("%w: session is %s", domain.ErrNotEligible, phase)
			}
		}

		existing, err := s.repos.Participations.Get(ctx, sessionID, actor.UserID)
		switch {
		case err == nil:
			if existing.IsRemoved() {
				return nil, nil, fmt.Errorf("%w: removed from session", domain.ErrNotEligible)
			}
		case errors.Is(err, repository.ErrParticipationNotFound):
			existing = nil
		default:
			return nil, nil, err
		}

		if req.Role == domain.RoleParticipant {
			full, err := s.sideFull(ctx, sessionID, req.Side, actor.UserID)
			if err != nil {
				return nil, nil, err
			}
			if full {
				return nil, nil, fmt.Errorf("%w: %s side is full", domain.ErrNotEligible, req.Side)
			}
		}

		p := existing
		if p != nil {
			if err := p.Rejoin(req.Role, req.Side, now); err != nil {
				return nil, nil, err
			}
		} else {
			p, err = domain.NewParticipation(sessionID, actor.UserID, req.Role, req.Side, now)
			if err != nil {
				return nil, nil, err
			}
			created = true
		}
		if err := s.repos.Participations.Upsert(ctx, p); err != nil {
			return nil, nil, err
		}
		return p, session, nil
	}()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user joined session", slog.String("role", string(p.Role)), slog.String("side", string(p.Side)))

	if created && p.Role == domain.RoleParticipant && s.notifier != nil {
		sid := session.ID
		sender := actor.UserID
		s.notifier.Notify(ctx, []uuid.UUID{session.ModeratorID}, domain.NotificationTemplate{
			SenderID:  &sender,
			SessionID: &sid,
			Type:      domain.NotifySessionInvite,
			Title:     "New participant",
			Message:   fmt.Sprintf("%s joined %q on the %s side", actor.Username, s.topicTitle(ctx, session), p.Side),
			Priority:  domain.PriorityLow,
		})
	}
	return p, nil
}

func (s *SessionService) Leave(ctx context.Context, actor domain.Principal, sessionID uuid.UUID) error {
	const op = "service.session.leave"

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	p, err := s.repos.Participations.Get(ctx, sessionID, actor.UserID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if p.LeftAt != nil {
		return nil
	}
	now := s.now()
	p.LeftAt = &now
	if err := s.repos.Participations.Upsert(ctx, p); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("user left session",
		slog.String("op", op),
		slog.String("session_id", sessionID.String()),
		slog.String("user_id", actor.UserID.String()),
	)
	return nil
}

func (s *SessionService) ListParticipations(ctx context.Context, sessionID uuid.UUID) ([]*domain.Participation, error) {
	const op = "service.session.participations"

	if _, err := s.repos.Sessions.GetByID(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	parts, err := s.repos.Participations.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return parts, nil
}

// ListMessages returns the latest messages in chronological order.
func (s *SessionService) ListMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]*domain.Message, error) {
	const op = "service.session.messages"

	if limit <= 0 {
		limit = s.settings.HistorySize
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	msgs, err := s.repos.Messages.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return msgs, nil
}

func (s *SessionService) StartJoiningWindow(ctx context.Context, actor domain.Principal, sessionID uuid.UUID) (*domain.DebateSession, error) {
	session, _, err := s.transition(ctx, "service.session.start_joining_window", sessionID, &actor, s.stepStartJoining)
	return session, err
}

func (s *SessionService) CloseJoiningWindow(ctx context.Context, actor domain.Principal, sessionID uuid.UUID) (*domain.DebateSession, error) {
	session, _, err := s.transition(ctx, "service.session.close_joining_window", sessionID, &actor, s.stepCloseJoining)
	return session, err
}

func (s *SessionService) StartDebate(ctx context.Context, actor domain.Principal, sessionID uuid.UUID) (*domain.DebateSession, error) {
	session, _, err := s.transition(ctx, "service.session.start_debate", sessionID, &actor, s.stepStartDebate)
	return session, err
}

func (s *SessionService) EndDebateAndStartVoting(ctx context.Context, actor domain.Principal, sessionID uuid.UUID) (*domain.DebateSession, error) {
	session, _, err := s.transition(ctx, "service.session.end_debate", sessionID, &actor, s.stepEndDebate)
	return session, err
}

func (s *SessionService) FinishVoting(ctx context.Context, actor domain.Principal, sessionID uuid.UUID) (*domain.DebateSession, error) {
	session, _, err := s.transition(ctx, "service.session.finish_voting", sessionID, &actor, s.stepFinishVoting)
	return session, err
}

func (s *SessionService) Cancel(ctx context.Context, actor domain.Principal, sessionID uuid.UUID, reason string) (*domain.DebateSession, error) {
	const op = "service.session.cancel"

	session, _, err := s.transition(ctx, op, sessionID, &actor, func(_ context.Context, session *domain.DebateSession, now time.Time) ([]transitionStep, error) {
		if err := session.Cancel(now, reason); err != nil {
			return nil, err
		}
		return []transitionStep{snapshot(EventSessionCancelled, session)}, nil
	})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, domain.NewModerationAction(sessionID, actor.UserID, nil, domain.ActionCancel, reason))
	return session, nil
}

// ForcePhaseTransition walks the forward lifecycle until target is reached,
// committing all intermediate moves at once.
func (s *SessionService) ForcePhaseTransition(ctx context.Context, actor domain.Principal, sessionID uuid.UUID, target domain.SessionStatus, reason string) (*domain.DebateSession, error) {
	const op = "service.session.force_phase_transition"

	if !target.Valid() {
		return nil, fmt.Errorf("%s: %w: unknown phase %q", op, domain.ErrValidation, target)
	}

	session, _, err := s.transition(ctx, op, sessionID, &actor, func(ctx context.Context, session *domain.DebateSession, now time.Time) ([]transitionStep, error) {
		if target == domain.StatusCancelled {
			if err := session.Cancel(now, reason); err != nil {
				return nil, err
			}
			return []transitionStep{snapshot(EventSessionCancelled, session)}, nil
		}
		if !domain.PhaseBefore(session.Status, target) {
			return nil, fmt.Errorf("%w: cannot force %s -> %s", domain.ErrInvalidTransition, session.Status, target)
		}

		var steps []transitionStep
		for session.Status != target {
			step, err := s.forwardStep(ctx, session, now)
			if err != nil {
				return nil, err
			}
			steps = append(steps, step...)
		}
		// Only the phase the session lands in is worth telling users about.
		for i := range steps[:len(steps)-1] {
			steps[i].quiet = true
		}
		return steps, nil
	})
	if err != nil {
		return nil, err
	}

	reason = fmt.Sprintf("forced to %s: %s", target, reason)
	s.audit(ctx, domain.NewModerationAction(sessionID, actor.UserID, nil, domain.ActionForcePhaseTransition, reason))
	return session, nil
}

// AdvanceSession applies every transition whose deadline has passed and
// returns how many were committed.
func (s *SessionService) AdvanceSession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	_, applied, err := s.transition(ctx, "service.session.advance", sessionID, nil, func(ctx context.Context, session *domain.DebateSession, now time.Time) ([]transitionStep, error) {
		var steps []transitionStep
		for {
			step, err := s.dueStep(ctx, session, now)
			if err != nil {
				return nil, err
			}
			if step == nil {
				return steps, nil
			}
			steps = append(steps, step...)
		}
	})
	return applied, err
}

func (s *SessionService) transition(ctx context.Context, op string, sessionID uuid.UUID, actor *domain.Principal, apply stepFunc) (*domain.DebateSession, int, error) {
	log := s.log.With(slog.String("op", op), slog.String("session_id", sessionID.String()))

	session, steps, err := func() (*domain.DebateSession, []transitionStep, error) {
		unlock := s.locks.Lock(sessionID)
		defer unlock()

		session, err := s.repos.Sessions.GetByID(ctx, sessionID)
		if err != nil {
			return nil, nil, err
		}
		if actor != nil && !canManage(session, *actor) {
			return nil, nil, domain.ErrNotModerator
		}

		expected := session.Status
		steps, err := apply(ctx, session, s.now())
		if err != nil {
			return nil, nil, err
		}
		if len(steps) == 0 {
			return session, nil, nil
		}

		if err := s.repos.Sessions.Update(ctx, session, expected); err != nil {
			if errors.Is(err, repository.ErrStatusConflict) {
				return nil, nil, fmt.Errorf("%w: %w", domain.ErrInvalidTransition, err)
			}
			return nil, nil, err
		}
		for _, step := range steps {
			s.demote(ctx, log, step.demoted)
		}
		return session, steps, nil
	}()
	if err != nil {
		log.Debug("transition rejected", sl.Err(err))
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	for _, step := range steps {
		log.Info("session transitioned",
			slog.String("event", step.event),
			slog.String("status", string(step.snapshot.Status)),
		)
		s.announce(ctx, step)
	}
	return session, len(steps), nil
}

func (s *SessionService) stepStartJoining(_ context.Context, session *domain.DebateSession, now time.Time) ([]transitionStep, error) {
	if err := session.StartJoiningWindow(now, s.settings.JoiningWindow); err != nil {
		return nil, err
	}
	return []transitionStep{snapshot(EventJoiningWindowStarted, session)}, nil
}

func (s *SessionService) stepCloseJoining(ctx context.Context, session *domain.DebateSession, now time.Time) ([]transitionStep, error) {
	if err := session.CloseJoiningWindow(now); err != nil {
		return nil, err
	}
	late, err := s.lateJoiners(ctx, session)
	if err != nil {
		return nil, err
	}
	step := snapshot(EventJoiningWindowClosed, session)
	step.demoted = late
	return []transitionStep{step}, nil
}

func (s *SessionService) stepStartDebate(_ context.Context, session *domain.DebateSession, now time.Time) ([]transitionStep, error) {
	if err := session.StartDebate(now); err != nil {
		return nil, err
	}
	return []transitionStep{snapshot(EventDebateStarted, session)}, nil
}

func (s *SessionService) stepEndDebate(_ context.Context, session *domain.DebateSession, now time.Time) ([]transitionStep, error) {
	if err := session.EndDebateAndStartVoting(now, s.settings.VotingWindow); err != nil {
		return nil, err
	}
	return []transitionStep{snapshot(EventVotingStarted, session)}, nil
}

func (s *SessionService) stepFinishVoting(ctx context.Context, session *domain.DebateSession, now time.Time) ([]transitionStep, error) {
	if session.Status != domain.StatusVoting {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, session.Status, domain.StatusFinished)
	}
	votes, err := s.repos.Votes.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if err := session.FinishVoting(now, domain.TallyVotes(votes)); err != nil {
		return nil, err
	}
	return []transitionStep{snapshot(EventSessionFinished, session)}, nil
}

func (s *SessionService) forwardStep(ctx context.Context, session *domain.DebateSession, now time.Time) ([]transitionStep, error) {
	switch session.Status {
	case domain.StatusOffline:
		return s.stepStartJoining(ctx, session, now)
	case domain.StatusOpen:
		return s.stepCloseJoining(ctx, session, now)
	case domain.StatusClosed:
		return s.stepStartDebate(ctx, session, now)
	case domain.StatusOnline:
		return s.stepEndDebate(ctx, session, now)
	case domain.StatusVoting:
		return s.stepFinishVoting(ctx, session, now)
	}
	return nil, fmt.Errorf("%w: %s is terminal", domain.ErrInvalidTransition, session.Status)
}

// dueStep returns nil when no deadline-driven transition is eligible.
func (s *SessionService) dueStep(ctx context.Context, session *domain.DebateSession, now time.Time) ([]transitionStep, error) {
	switch session.Status {
	case domain.StatusOffline:
		if session.ScheduledStartDue(now) {
			return s.stepStartJoining(ctx, session, now)
		}
	case domain.StatusOpen:
		if passed(session.JoiningWindowEnd, now) {
			return s.stepCloseJoining(ctx, session, now)
		}
	case domain.StatusClosed:
		if !s.settings.ManualStart {
			return s.stepStartDebate(ctx, session, now)
		}
	case domain.StatusOnline:
		if passed(session.DebateEndTime, now) {
			return s.stepEndDebate(ctx, session, now)
		}
	case domain.StatusVoting:
		if passed(session.VotingEndTime, now) {
			return s.stepFinishVoting(ctx, session, now)
		}
	}
	return nil, nil
}

// lateJoiners returns the participants who joined after the joining window,
// already turned into viewers but not yet stored.
func (s *SessionService) lateJoiners(ctx context.Context, session *domain.DebateSession) ([]*domain.Participation, error) {
	if session.JoiningWindowEnd == nil {
		return nil, nil
	}
	parts, err := s.repos.Participations.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	var late []*domain.Participation
	for _, p := range parts {
		if p.Role != domain.RoleParticipant || p.IsRemoved() || !p.JoinedAt.After(*session.JoiningWindowEnd) {
			continue
		}
		p.DemoteToViewer()
		late = append(late, p)
	}
	return late, nil
}

func (s *SessionService) demote(ctx context.Context, log *slog.Logger, parts []*domain.Participation) {
	if len(parts) == 0 {
		return
	}
	demoted := 0
	for _, p := range parts {
		if err := s.repos.Participations.Upsert(ctx, p); err != nil {
			log.Error("failed to demote late joiner", slog.String("user_id", p.UserID.String()), sl.Err(err))
			continue
		}
		demoted++
	}
	log.Info("late joiners demoted to viewers", slog.Int("count", demoted))
}

func (s *SessionService) sideFull(ctx context.Context, sessionID uuid.UUID, side domain.Side, self uuid.UUID) (bool, error) {
	if s.settings.MaxPerSide <= 0 {
		return false, nil
	}
	parts, err := s.repos.Participations.ListBySession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	taken := 0
	for _, p := range parts {
		if p.UserID == self || !p.IsActive() {
			continue
		}
		if p.Role == domain.RoleParticipant && p.Side == side {
			taken++
		}
	}
	return taken >= s.settings.MaxPerSide, nil
}

func (s *SessionService) announce(ctx context.Context, step transitionStep) {
	session := step.snapshot
	if s.publisher != nil {
		event := domain.NewSessionStatusEvent(step.event, session, session.UpdatedAt)
		if err := s.publisher.Broadcast(session.ID, event); err != nil {
			s.log.Debug("status broadcast incomplete", slog.String("session_id", session.ID.String()), sl.Err(err))
		}
	}
	if s.notifier == nil || step.quiet {
		return
	}

	recipients, tmpl, err := s.transitionNotification(ctx, session)
	if err != nil {
		s.log.Warn("failed to resolve notification recipients",
			slog.String("session_id", session.ID.String()),
			sl.Err(err),
		)
		return
	}
	if len(recipients) > 0 {
		s.notifier.Notify(ctx, recipients, tmpl)
	}
}

func (s *SessionService) transitionNotification(ctx context.Context, session *domain.DebateSession) ([]uuid.UUID, domain.NotificationTemplate, error) {
	sid := session.ID
	sender := session.ModeratorID
	title := s.topicTitle(ctx, session)
	tmpl := domain.NotificationTemplate{SenderID: &sender, SessionID: &sid}

	parts, err := s.repos.Participations.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, tmpl, err
	}

	switch session.Status {
	case domain.StatusOpen:
		students, err := s.repos.Users.ListByRole(ctx, domain.UserRoleStudent)
		if err != nil {
			return nil, tmpl, err
		}
		inSession := make(map[uuid.UUID]struct{}, len(parts))
		for _, p := range parts {
			inSession[p.UserID] = struct{}{}
		}
		var recipients []uuid.UUID
		for _, u := range students {
			if _, ok := inSession[u.ID]; !ok {
				recipients = append(recipients, u.ID)
			}
		}
		tmpl.Type = domain.NotifyJoiningOpened
		tmpl.Title = "Joining window is open"
		tmpl.Message = fmt.Sprintf("Join the debate %q before the window closes", title)
		tmpl.ExpiresIn = s.settings.JoiningWindow
		return recipients, tmpl, nil

	case domain.StatusOnline:
		tmpl.Type = domain.NotifyDebateStarted
		tmpl.Title = "Debate started"
		tmpl.Message = fmt.Sprintf("The debate %q is live", title)
		tmpl.Priority = domain.PriorityHigh
		return audience(session, parts, nil), tmpl, nil

	case domain.StatusVoting:
		tmpl.Type = domain.NotifyVotingStarted
		tmpl.Title = "Voting started"
		tmpl.Message = fmt.Sprintf("Vote for the winning side of %q", title)
		tmpl.Priority = domain.PriorityHigh
		tmpl.ExpiresIn = s.settings.VotingWindow
		viewers := func(p *domain.Participation) bool { return p.Role == domain.RoleViewer }
		return audience(nil, parts, viewers), tmpl, nil

	case domain.StatusFinished:
		tmpl.Type = domain.NotifySessionFinished
		tmpl.Title = "Debate finished"
		if session.WinnerSide != nil {
			tmpl.Message = fmt.Sprintf("%q is over: %s wins with %d votes cast", title, *session.WinnerSide, session.TotalVotes)
		} else {
			tmpl.Message = fmt.Sprintf("%q is over: it's a tie with %d votes cast", title, session.TotalVotes)
		}
		return audience(session, parts, nil), tmpl, nil

	case domain.StatusCancelled:
		tmpl.Type = domain.NotifySessionCancelled
		tmpl.Title = "Debate cancelled"
		tmpl.Message = fmt.Sprintf("%q was cancelled", title)
		if session.CancelReason != "" {
			tmpl.Message += ": " + session.CancelReason
		}
		tmpl.Priority = domain.PriorityHigh
		return audience(session, parts, nil), tmpl, nil
	}
	return nil, tmpl, nil
}

func (s *SessionService) topicTitle(ctx context.Context, session *domain.DebateSession) string {
	topic, err := s.repos.Topics.GetByID(ctx, session.TopicID)
	if err != nil {
		return "debate"
	}
	return topic.Title
}

func (s *SessionService) audit(ctx context.Context, action *domain.ModerationAction) {
	action.CreatedAt = s.now()
	if err := s.repos.Moderation.Create(ctx, action); err != nil {
		s.log.Warn("failed to record moderation action",
			slog.String("session_id", action.SessionID.String()),
			slog.String("action", string(action.Action)),
			sl.Err(err),
		)
	}
}

// audience lists non-removed members matching keep, plus the moderator when
// session is given.
func audience(session *domain.DebateSession, parts []*domain.Participation, keep func(*domain.Participation) bool) []uuid.UUID {
	recipients := make([]uuid.UUID, 0, len(parts)+1)
	for _, p := range parts {
		if p.IsRemoved() {
			continue
		}
		if keep != nil && !keep(p) {
			continue
		}
		recipients = append(recipients, p.UserID)
	}
	if session != nil {
		recipients = append(recipients, session.ModeratorID)
	}
	return recipients
}

func canManage(session *domain.DebateSession, actor domain.Principal) bool {
	return session.IsModerator(actor.UserID) || actor.Role == domain.UserRoleAdmin
}

func snapshot(event string, session *domain.DebateSession) transitionStep {
	return transitionStep{event: event, snapshot: session.Clone()}
}

func passed(deadline *time.Time, now time.Time) bool {
	return deadline != nil && !now.Before(*deadline)
}
