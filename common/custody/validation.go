package custody

import (
	"strings"

	"github.com/pkg/errors"
)

const (
	MinTemperature = 30.0
	MaxTemperature = 45.0
	MaxPhotos      = 3
)

var (
	ErrEmptyChild                 = errors.New("nino_id cannot be empty")
	ErrTemperatureRequired        = errors.New("temperature is mandatory")
	ErrTemperatureOutOfRange      = errors.New("temperature must be between 30 and 45 °C")
	ErrIllnessDescriptionRequired = errors.New("an illness description is mandatory when the child arrived ill")
	ErrBreakfastRequired          = errors.New("breakfast is mandatory")
	ErrTooManyPhotos              = errors.New("a daily log holds at most 3 photos")
	ErrPickupPersonRequired       = errors.New("the person picking the child up is mandatory")
)

// ValidateVitals rejects out of range temperatures rather than clamping them.
func ValidateVitals(temperature *float64, arrivedIll bool, illnessDescription string) error {
	if temperature == nil {
		return ErrTemperatureRequired
	}
	if *temperature < MinTemperature || *temperature > MaxTemperature {
		return ErrTemperatureOutOfRange
	}
	if arrivedIll && strings.TrimSpace(illnessDescription) == "" {
		return ErrIllnessDescriptionRequired
	}
	return nil
}

func ValidateDailyLog(breakfast string, photos int) error {
	if strings.TrimSpace(breakfast) == "" {
		return ErrBreakfastRequired
	}
	if photos > MaxPhotos {
		return ErrTooManyPhotos
	}
	return nil
}

func ValidateDeparture(pickedUpBy string) error {
	if strings.TrimSpace(pickedUpBy) == "" {
		return ErrPickupPersonRequired
	}
	return nil
}

func IsInvalid(err error) bool {
	switch errors.Cause(err) {
	case ErrEmptyChild, ErrTemperatureRequired, ErrTemperatureOutOfRange, ErrIllnessDescriptionRequired,
		ErrBreakfastRequired, ErrTooManyPhotos, ErrPickupPersonRequired:
		return true
	}
	return false
}
