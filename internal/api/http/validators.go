package http

import (
	"errors"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/immxrtalbeast/debatehall/internal/domain"
)

var registerOnce sync.Once

// RegisterValidators adds the debate-specific binding tags to gin's validator.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("unexpected validator engine")
			return
		}
		rules := map[string]validator.Func{
			"debate_side": func(fl validator.FieldLevel) bool {
				return domain.Side(fl.Field().String()).Valid()
			},
			"debate_role": func(fl validator.FieldLevel) bool {
				return domain.ParticipantRole(fl.Field().String()).Valid()
			},
			"session_phase": func(fl validator.FieldLevel) bool {
				return domain.SessionStatus(fl.Field().String()).Valid()
			},
			"vote_type": func(fl validator.FieldLevel) bool {
				return domain.VoteType(fl.Field().String()).Valid()
			},
		}
		for tag, fn := range rules {
			if err = v.RegisterValidation(tag, fn); err != nil {
				return
			}
		}
	})
	return err
}
