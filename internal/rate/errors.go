package rate

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput groups request validation failures such as a bad direction or weight.
	ErrInvalidInput = errors.New("rate: invalid input")
	// ErrInvalidDirection is returned for anything other than export or import.
	ErrInvalidDirection = fmt.Errorf("%w: direction", ErrInvalidInput)
	// ErrInvalidWeight is returned when the actual weight is not strictly positive.
	ErrInvalidWeight = fmt.Errorf("%w: weight", ErrInvalidInput)
	// ErrInvalidDimensions reports an unparseable "LxWxH" string. EffectiveWeight never returns it.
	ErrInvalidDimensions = errors.New("rate: invalid dimensions")

	// ErrUnknownDestination is returned when the zone table has no entry for the country and direction.
	ErrUnknownDestination = errors.New("rate: unknown destination")
	// ErrUnknownZone is returned when a zone has no tariff brackets.
	ErrUnknownZone = errors.New("rate: unknown zone")
	// ErrNoApplicableBracket signals a misconfigured tariff table.
	ErrNoApplicableBracket = errors.New("rate: no applicable bracket")
	// ErrUnknownPremiumService is returned for surcharge keys missing from the table.
	ErrUnknownPremiumService = errors.New("rate: unknown premium service")
	// ErrEmptyLegList is returned when a multi-leg request has no legs.
	ErrEmptyLegList = errors.New("rate: empty leg list")
)

// ErrInvalidTariff is returned when a tariff or surcharge table fails validation at load time.
var ErrInvalidTariff = errors.New("rate: invalid tariff table")
