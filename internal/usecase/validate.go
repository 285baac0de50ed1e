package usecase

import (
	"errors"
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"CandleQuery/internal/domain/models"
	"CandleQuery/internal/domain/repository"
)

var validate = validator.New()

// ValidateRequest fills defaults from struct tags and validates the request
// shape. Timeframe and source-resolution violations come back as typed domain
// errors so callers can render the list of accepted tokens.
func ValidateRequest(req *models.OHLCVRequest) error {
	if err := defaults.Set(req); err != nil {
		return fmt.Errorf("apply request defaults: %w", err)
	}

	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			switch fe.StructField() {
			case "Timeframe":
				return &models.InvalidTimeframeError{
					Timeframe: req.Timeframe,
					Available: timeframeTokens(),
				}
			case "SourceResolution":
				return &models.InvalidSourceResolutionError{
					SourceResolution: req.SourceResolution,
					Available:        sourceTokens(),
				}
			}
		}
	}
	return fmt.Errorf("invalid request: %w", err)
}

func timeframeTokens() []string {
	tfs := repository.Timeframes()
	out := make([]string, len(tfs))
	for i, tf := range tfs {
		out[i] = string(tf)
	}
	return out
}

func sourceTokens() []string {
	srs := repository.SourceResolutions()
	out := make([]string, len(srs))
	for i, sr := range srs {
		out[i] = string(sr)
	}
	return out
}
