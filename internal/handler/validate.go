package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	appI18n "github.com/pavelanni/reviewer/internal/i18n"
	"github.com/pavelanni/reviewer/internal/model"
)

// ValidationError is one reason an analysis cannot be submitted yet.
type ValidationError struct {
	MessageID string
	Field     string // settings field, empty for document checks
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.MessageID, e.Field)
	}
	return e.MessageID
}

// Localize renders the error in the request language.
func (e *ValidationError) Localize(ctx context.Context) string {
	if e.Field == "" {
		return appI18n.T(ctx, e.MessageID)
	}
	return appI18n.Td(ctx, e.MessageID, map[string]any{"Field": appI18n.T(ctx, fieldLabel(e.Field))})
}

// fieldLabel maps a settings field to the message ID of its form label.
func fieldLabel(field string) string {
	if field == "Class" {
		return "ClassLevel"
	}
	return field
}

// Validate lists everything that blocks submission: missing or invalid
// settings, then each missing required document in slot order.
func Validate(v *validator.Validate, settings *model.EvaluationSettings, docs model.Documents) []*ValidationError {
	var errs []*ValidationError

	if settings == nil {
		errs = append(errs, &ValidationError{MessageID: "ErrMetadataMissing"})
	} else if err := v.Struct(settings); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			slog.Error("settings validation failed", "error", err)
			errs = append(errs, &ValidationError{MessageID: "ErrMetadataMissing"})
		}
		for _, fe := range fieldErrs {
			errs = append(errs, &ValidationError{MessageID: "ErrInvalidSetting", Field: fe.Field()})
		}
	}

	if !docs.Has(model.DocQuestionPaper) {
		errs = append(errs, &ValidationError{MessageID: "ErrQuestionPaperRequired"})
	}
	if !docs.Has(model.DocAnswerSheet) {
		errs = append(errs, &ValidationError{MessageID: "ErrAnswerSheetRequired"})
	}
	return errs
}
