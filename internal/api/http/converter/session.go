package converter

import (
	"time"

	"github.com/immxrtalbeast/debatehall/internal/domain"
)

// SessionResponse is a session as stored plus the phase it is effectively in.
type SessionResponse struct {
	*domain.DebateSession
	Phase domain.SessionStatus `json:"phase"`
}

func SessionToApi(s *domain.DebateSession, now time.Time) *SessionResponse {
	return &SessionResponse{
		DebateSession: s,
		Phase:         domain.DerivePhase(s, now),
	}
}

type ParticipantsResponse struct {
	Participants []*domain.Participation    `json:"participants"`
	Online       []domain.OnlineParticipant `json:"online"`
	Proposition  int                        `json:"proposition"`
	Opposition   int                        `json:"opposition"`
	Viewers      int                        `json:"viewers"`
}

func ParticipantsToApi(parts []*domain.Participation, online []domain.OnlineParticipant) *ParticipantsResponse {
	resp := &ParticipantsResponse{
		Participants: make([]*domain.Participation, 0, len(parts)),
		Online:       online,
	}
	if resp.Online == nil {
		resp.Online = []domain.OnlineParticipant{}
	}
	for _, p := range parts {
		if p.IsRemoved() {
			continue
		}
		resp.Participants = append(resp.Participants, p)
		if !p.IsActive() {
			continue
		}
		switch {
		case p.Role == domain.RoleViewer:
			resp.Viewers++
		case p.Side == domain.SideProposition:
			resp.Proposition++
		case p.Side == domain.SideOpposition:
			resp.Opposition++
		}
	}
	return resp
}
