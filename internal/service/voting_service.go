package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/domain"
	"github.com/immxrtalbeast/debatehall/internal/repository"
	"github.com/immxrtalbeast/debatehall/lib/logger/sl"
)

type VotingService struct {
	repos     repository.Repositories
	locks     *SessionLocks
	publisher Publisher
	log       *slog.Logger
	now       func() time.Time
}

func NewVotingService(repos repository.Repositories, locks *SessionLocks, publisher Publisher, log *slog.Logger) *VotingService {
	if log == nil {
		log = slog.Default()
	}
	if locks == nil {
		locks = NewSessionLocks()
	}
	return &VotingService{
		repos:     repos,
		locks:     locks,
		publisher: publisher,
		log:       log,
		now:       utcNow,
	}
}

// CastVote records a vote while the session is in its voting phase. A user
// holds one vote per session. Side votes belong to viewers and may be
// changed to the other side; type votes belong to students and are final.
func (s *VotingService) CastVote(ctx context.Context, actor domain.Principal, sessionID uuid.UUID, choice domain.VoteChoice) (*domain.Vote, error) {
	const op = "service.voting.cast"
	log := s.log.With(
		slog.String("op", op),
		slog.String("session_id", sessionID.String()),
		slog.String("user_id", actor.UserID.String()),
	)

	kind, err := choice.Kind()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	vote, tally, err := func() (*domain.Vote, domain.Tally, error) {
		unlock := s.locks.Lock(sessionID)
		defer unlock()

		session, err := s.repos.Sessions.GetByID(ctx, sessionID)
		if err != nil {
			return nil, domain.Tally{}, err
		}
		now := s.now()
		if phase := domain.DerivePhase(session, now); phase != domain.StatusVoting {
			return nil, domain.Tally{}, domain.ErrSessionNotVoting
		}

		vote, err := domain.NewVote(sessionID, actor.UserID, choice, now)
		if err != nil {
			return nil, domain.Tally{}, err
		}

		switch kind {
		case domain.VoteKindSide:
			if err := s.ensureViewer(ctx, sessionID, actor.UserID); err != nil {
				return nil, domain.Tally{}, err
			}
			if err := s.repos.Votes.Upsert(ctx, vote); err != nil {
				if errors.Is(err, repository.ErrVoteExists) {
					return nil, domain.Tally{}, domain.ErrAlreadyVoted
				}
				return nil, domain.Tally{}, err
			}
		case domain.VoteKindType:
			if !actor.IsStudent() {
				return nil, domain.Tally{}, fmt.Errorf("%w: only students can cast this vote", domain.ErrNotEligible)
			}
			if err := s.repos.Votes.Create(ctx, vote); err != nil {
				if errors.Is(err, repository.ErrVoteExists) {
					return nil, domain.Tally{}, domain.ErrAlreadyVoted
				}
				return nil, domain.Tally{}, err
			}
		}

		votes, err := s.repos.Votes.ListBySession(ctx, sessionID)
		if err != nil {
			return nil, domain.Tally{}, err
		}
		return vote, domain.TallyVotes(votes), nil
	}()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("vote cast", slog.String("kind", string(kind)), slog.Int("total", tally.Total))

	if s.publisher != nil {
		if err := s.publisher.Broadcast(sessionID, domain.NewVoteUpdateEvent(sessionID, tally, vote)); err != nil {
			log.Debug("vote broadcast incomplete", sl.Err(err))
		}
	}
	return vote, nil
}

func (s *VotingService) Results(ctx context.Context, actor domain.Principal, sessionID uuid.UUID) (*Results, error) {
	const op = "service.voting.results"

	session, err := s.repos.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	votes, err := s.repos.Votes.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res := &Results{
		Tally:    domain.TallyVotes(votes),
		Finished: session.Status == domain.StatusFinished,
		Votes:    votes,
	}
	if res.Finished {
		res.Winner = session.WinnerSide
	}
	for _, v := range votes {
		if v.UserID != actor.UserID {
			continue
		}
		res.HasVoted = true
		if v.Kind == domain.VoteKindSide {
			side := v.Side
			res.UserVote = &side
		}
	}
	return res, nil
}

func (s *VotingService) ensureViewer(ctx context.Context, sessionID, userID uuid.UUID) error {
	p, err := s.repos.Participations.Get(ctx, sessionID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrParticipationNotFound) {
			return fmt.Errorf("%w: only viewers of the session can vote for a side", domain.ErrNotEligible)
		}
		return err
	}
	if p.Role != domain.RoleViewer || p.IsRemoved() {
		return fmt.Errorf("%w: only viewers of the session can vote for a side", domain.ErrNotEligible)
	}
	return nil
}
