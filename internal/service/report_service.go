package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/domain"
	"github.com/immxrtalbeast/debatehall/internal/repository"
)

const (
	topAuthorsLimit     = 5
	experiencedDebates  = 10
	transcriptTopicNone = "debate"
)

type TranscriptEntry struct {
	ID          int64              `json:"id"`
	Timestamp   time.Time          `json:"timestamp"`
	UserID      *uuid.UUID         `json:"user_id"`
	Username    string             `json:"username"`
	Content     string             `json:"content"`
	MessageType domain.MessageType `json:"message_type"`
	ImageURL    string             `json:"image_url,omitempty"`
}

type Transcript struct {
	SessionID   uuid.UUID         `json:"session_id"`
	Topic       string            `json:"topic"`
	Entries     []TranscriptEntry `json:"transcript"`
	GeneratedAt time.Time         `json:"generated_at"`
}

type AuthorCount struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Messages int       `json:"messages"`
}

type MessageStats struct {
	Total           int            `json:"total"`
	ByHour          map[string]int `json:"by_hour"`
	TopParticipants []AuthorCount  `json:"top_participants"`
}

type ParticipantStats struct {
	TotalParticipants int `json:"total_participants"`
	TotalViewers      int `json:"total_viewers"`
	MutedCount        int `json:"muted_count"`
	WarnedCount       int `json:"warned_count"`
	RemovedCount      int `json:"removed_count"`
}

type VoteStats struct {
	TotalVotes        int                     `json:"total_votes"`
	Proposition       int                     `json:"pro_votes"`
	Opposition        int                     `json:"con_votes"`
	TypeCounts        map[domain.VoteType]int `json:"type_counts"`
	ParticipationRate float64                 `json:"participation_rate"`
}

type SessionAnalytics struct {
	SessionID       uuid.UUID            `json:"session_id"`
	Topic           string               `json:"topic"`
	DurationMinutes int                  `json:"duration_minutes"`
	Status          domain.SessionStatus `json:"status"`
	Messages        MessageStats         `json:"messages"`
	Participants    ParticipantStats     `json:"participants"`
	Votes           VoteStats            `json:"votes"`
	GeneratedAt     time.Time            `json:"generated_at"`
}

// DebateProfile sums up how a user has fared across finished debates.
type DebateProfile struct {
	UserID              uuid.UUID       `json:"user_id"`
	Username            string          `json:"username"`
	Role                domain.UserRole `json:"role"`
	DebatesParticipated int             `json:"debates_participated"`
	DebatesWon          int             `json:"debates_won"`
	WinRate             float64         `json:"win_rate"`
	SessionsWatched     int             `json:"sessions_watched"`
	MessagesSent        int             `json:"messages_sent"`
	WarningsReceived    int             `json:"warnings_received"`
	IsExperienced       bool            `json:"is_experienced"`
}

// ReportService builds read-only views over finished and running sessions.
type ReportService struct {
	repos repository.Repositories
	log   *slog.Logger
	now   func() time.Time
}

func NewReportService(repos repository.Repositories, log *slog.Logger) *ReportService {
	if log == nil {
		log = slog.Default()
	}
	return &ReportService{repos: repos, log: log, now: utcNow}
}

// Transcript lists every visible message of the session in order.
func (s *ReportService) Transcript(ctx context.Context, sessionID uuid.UUID) (*Transcript, error) {
	const op = "service.report.transcript"

	session, err := s.repos.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	messages, err := s.repos.Messages.ListBySession(ctx, sessionID, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	entries := make([]TranscriptEntry, 0, len(messages))
	for _, m := range messages {
		if m.IsHidden {
			continue
		}
		entries = append(entries, TranscriptEntry{
			ID:          m.ID,
			Timestamp:   m.CreatedAt,
			UserID:      m.AuthorID,
			Username:    m.AuthorName,
			Content:     m.Content,
			MessageType: m.Type,
			ImageURL:    m.ImageURL,
		})
	}

	return &Transcript{
		SessionID:   session.ID,
		Topic:       s.topicTitle(ctx, session),
		Entries:     entries,
		GeneratedAt: s.now(),
	}, nil
}

func (s *ReportService) Analytics(ctx context.Context, sessionID uuid.UUID) (*SessionAnalytics, error) {
	const op = "service.report.analytics"

	session, err := s.repos.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	messages, err := s.repos.Messages.ListBySession(ctx, sessionID, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	parts, err := s.repos.Participations.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	votes, err := s.repos.Votes.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	report := &SessionAnalytics{
		SessionID:       session.ID,
		Topic:           s.topicTitle(ctx, session),
		DurationMinutes: session.DurationMinutes,
		Status:          domain.DerivePhase(session, now),
		Messages:        messageStats(messages),
		Participants:    participantStats(parts),
		GeneratedAt:     now,
	}

	tally := domain.TallyVotes(votes)
	report.Votes = VoteStats{
		TotalVotes:  len(votes),
		Proposition: tally.Proposition,
		Opposition:  tally.Opposition,
		TypeCounts:  tally.TypeCounts,
	}
	if report.Votes.TypeCounts == nil {
		report.Votes.TypeCounts = map[domain.VoteType]int{}
	}
	// Only viewers vote for a side.
	if viewers := report.Participants.TotalViewers; viewers > 0 {
		report.Votes.ParticipationRate = float64(tally.Proposition+tally.Opposition) / float64(viewers) * 100
	}
	return report, nil
}

func (s *ReportService) Profile(ctx context.Context, userID uuid.UUID) (*DebateProfile, error) {
	const op = "service.report.profile"

	user, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	parts, err := s.repos.Participations.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sent, err := s.repos.Messages.CountByAuthor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	profile := &DebateProfile{
		UserID:       user.ID,
		Username:     user.Username,
		Role:         user.Role,
		MessagesSent: sent,
	}
	for _, p := range parts {
		profile.WarningsReceived += p.WarningsCount
		if p.Role == domain.RoleViewer {
			profile.SessionsWatched++
			continue
		}
		if p.IsRemoved() {
			continue
		}

		session, err := s.repos.Sessions.GetByID(ctx, p.SessionID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if session.Status != domain.StatusFinished {
			continue
		}
		profile.DebatesParticipated++
		if session.WinnerSide != nil && *session.WinnerSide == p.Side {
			profile.DebatesWon++
		}
	}
	if profile.DebatesParticipated > 0 {
		profile.WinRate = float64(profile.DebatesWon) / float64(profile.DebatesParticipated) * 100
	}
	profile.IsExperienced = profile.DebatesParticipated >= experiencedDebates
	return profile, nil
}

func (s *ReportService) topicTitle(ctx context.Context, session *domain.DebateSession) string {
	topic, err := s.repos.Topics.GetByID(ctx, session.TopicID)
	if err != nil {
		return transcriptTopicNone
	}
	return topic.Title
}

func messageStats(messages []*domain.Message) MessageStats {
	stats := MessageStats{ByHour: map[string]int{}, TopParticipants: []AuthorCount{}}

	byAuthor := make(map[uuid.UUID]*AuthorCount)
	for _, m := range messages {
		if m.IsSystem() {
			continue
		}
		stats.Total++
		stats.ByHour[m.CreatedAt.UTC().Truncate(time.Hour).Format(time.RFC3339)]++

		count, ok := byAuthor[*m.AuthorID]
		if !ok {
			count = &AuthorCount{UserID: *m.AuthorID, Username: m.AuthorName}
			byAuthor[*m.AuthorID] = count
		}
		count.Messages++
	}

	for _, count := range byAuthor {
		stats.TopParticipants = append(stats.TopParticipants, *count)
	}
	sort.Slice(stats.TopParticipants, func(i, j int) bool {
		a, b := stats.TopParticipants[i], stats.TopParticipants[j]
		if a.Messages != b.Messages {
			return a.Messages > b.Messages
		}
		return a.Username < b.Username
	})
	if len(stats.TopParticipants) > topAuthorsLimit {
		stats.TopParticipants = stats.TopParticipants[:topAuthorsLimit]
	}
	return stats
}

func participantStats(parts []*domain.Participation) ParticipantStats {
	var stats ParticipantStats
	for _, p := range parts {
		if p.IsRemoved() {
			stats.RemovedCount++
		}
		switch p.Role {
		case domain.RoleParticipant:
			stats.TotalParticipants++
		case domain.RoleViewer:
			stats.TotalViewers++
		}
		if p.IsMuted {
			stats.MutedCount++
		}
		if p.WarningsCount > 0 {
			stats.WarnedCount++
		}
	}
	return stats
}
