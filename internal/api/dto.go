package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// SessionRequest is the body of POST /api/sessions.
type SessionRequest struct {
	Subject         string     `json:"subject" validate:"required,max=100"`
	DurationMinutes float64    `json:"duration_minutes" validate:"gt=0,lte=1440"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
	Difficulty      string     `json:"difficulty,omitempty" validate:"omitempty,oneof=easy medium hard"`
	Mood            string     `json:"mood,omitempty" validate:"omitempty,max=32"`
}

// QuestProgressRequest is the body of POST /api/quests/progress.
type QuestProgressRequest struct {
	Type    string  `json:"type" validate:"required,oneof=time sessions subjects streak xp tasks"`
	Amount  float64 `json:"amount" validate:"gte=0"`
	Subject string  `json:"subject,omitempty" validate:"max=100"`
}

// ValidationError describes one rejected field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// On failure it writes the 400 response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeValidationError(w, err)
		return false
	}
	return true
}

func writeValidationError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"message": "validation failed",
			"type":    "validation",
			"fields":  out,
		},
	})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	}
	return fe.Field() + " is invalid"
}
