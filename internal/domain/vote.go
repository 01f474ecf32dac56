package domain

import (
	"time"

	"github.com/google/uuid"
)

type VoteKind string

const (
	VoteKindSide VoteKind = "side"
	VoteKindType VoteKind = "type"
)

type VoteType string

const (
	VoteWinningSide  VoteType = "WINNING_SIDE"
	VoteBestArgument VoteType = "BEST_ARGUMENT"
)

func (t VoteType) Valid() bool {
	return t == VoteWinningSide || t == VoteBestArgument
}

// Vote is a tagged variant: side votes carry Side, type votes carry VoteType.
// A user holds at most one vote per kind in a session.
type Vote struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	UserID    uuid.UUID `json:"user_id"`
	Kind      VoteKind  `json:"kind"`
	Side      Side      `json:"side,omitempty"`
	VoteType  VoteType  `json:"vote_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VoteChoice is what a caller submits; exactly one field is set.
type VoteChoice struct {
	Side     Side     `json:"side,omitempty"`
	VoteType VoteType `json:"vote_type,omitempty"`
}

func (c VoteChoice) Kind() (VoteKind, error) {
	switch {
	case c.Side != "" && c.VoteType != "":
		return "", validationError("vote must carry either a side or a vote type")
	case c.Side != "":
		if !c.Side.Valid() {
			return "", validationError("unknown side")
		}
		return VoteKindSide, nil
	case c.VoteType != "":
		if !c.VoteType.Valid() {
			return "", validationError("unknown vote type")
		}
		return VoteKindType, nil
	}
	return "", validationError("vote choice is empty")
}

func NewVote(sessionID, userID uuid.UUID, choice VoteChoice, now time.Time) (*Vote, error) {
	kind, err := choice.Kind()
	if err != nil {
		return nil, err
	}
	now = now.UTC()
	return &Vote{
		ID:        uuid.New(),
		SessionID: sessionID,
		UserID:    userID,
		Kind:      kind,
		Side:      choice.Side,
		VoteType:  choice.VoteType,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

type Tally struct {
	Proposition int              `json:"proposition"`
	Opposition  int              `json:"opposition"`
	Winner      *Side            `json:"winner"`
	Total       int              `json:"total"`
	TypeCounts  map[VoteType]int `json:"type_counts"`
}

// TallyVotes is a pure function of the vote set. Winner is nil on a tie.
func TallyVotes(votes []*Vote) Tally {
	t := Tally{TypeCounts: make(map[VoteType]int)}
	for _, v := range votes {
		if v == nil {
			continue
		}
		switch v.Kind {
		case VoteKindSide:
			switch v.Side {
			case SideProposition:
				t.Proposition++
			case SideOpposition:
				t.Opposition++
			}
		case VoteKindType:
			t.TypeCounts[v.VoteType]++
		}
	}

	t.Total = t.Proposition + t.Opposition
	switch {
	case t.Proposition > t.Opposition:
		w := SideProposition
		t.Winner = &w
	case t.Opposition > t.Proposition:
		w := SideOpposition
		t.Winner = &w
	}
	return t
}
