package http

import (
	"context"

	"github.com/immxrtalbeast/debatehall/internal/domain"
)

//go:generate mockgen -source=resolver.go -destination=mocks/resolver.go -package=mocks

// PrincipalResolver turns a bearer credential into an identity.
type PrincipalResolver interface {
	Resolve(ctx context.Context, token string) (domain.Principal, error)
}
