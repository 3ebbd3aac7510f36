package settings

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"helipad/pkg/model"

	"github.com/go-playground/validator/v10"
)

var clockTimeRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Provider returns the current helipad policy. The engine calls Load on every
// operation so changes apply to the next request.
type Provider interface {
	Load(ctx context.Context) (*model.Settings, error)
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails on an empty tag name.
	_ = v.RegisterValidation("clocktime", func(fl validator.FieldLevel) bool {
		return clockTimeRegex.MatchString(fl.Field().String())
	})
	return v
}

var settingsValidator = newValidator()

// Validate checks field formats and that the day closes after it opens.
func Validate(s *model.Settings) error {
	if err := settingsValidator.Struct(s); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			var msgs []string
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid settings: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid settings: %w", err)
	}
	if _, err := s.OperationalHours(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

func clone(s *model.Settings) *model.Settings {
	c := *s
	c.BlackoutDates = slices.Clone(s.BlackoutDates)
	return &c
}
