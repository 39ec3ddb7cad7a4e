package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"staybook/internal/conflict"
	"staybook/internal/database"
	"staybook/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

var errAuthRequired = errors.New("authentication required")

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	Conflicts []conflict.Entry  `json:"conflicts,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorBody{Message: message})
}

// writeError translates service errors to responses. entity names what a 404 was about.
func writeError(w http.ResponseWriter, r *http.Request, err error, entity string) {
	var (
		verr *domain.ValidationError
		cerr *conflict.ConflictError
	)

	switch {
	case errors.Is(err, errAuthRequired):
		writeMessage(w, http.StatusUnauthorized, "Authentication required")
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Bad Request", Errors: verr.Fields})
	case errors.Is(err, conflict.ErrInvalidRange):
		writeJSON(w, http.StatusBadRequest, errorBody{
			Message: "Bad Request",
			Errors:  conflict.Result{Outcome: conflict.InvalidRange}.FieldErrors(),
		})
	case errors.Is(err, conflict.ErrPastDate):
		writeJSON(w, http.StatusForbidden, errorBody{
			Message: "Bookings can't be made in the past",
			Errors:  conflict.Result{Outcome: conflict.PastDate}.FieldErrors(),
		})
	case errors.As(err, &cerr):
		writeJSON(w, http.StatusForbidden, errorBody{
			Message:   "Sorry, this spot is already booked for the specified dates",
			Errors:    cerr.Result().FieldErrors(),
			Conflicts: cerr.Conflicts,
		})
	case errors.Is(err, domain.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, domain.ErrBookingStarted), errors.Is(err, domain.ErrBookingEnded):
		writeMessage(w, http.StatusForbidden, upperFirst(err.Error()))
	case errors.Is(err, database.ErrImageLimit):
		writeMessage(w, http.StatusForbidden, "Maximum number of images for this resource was reached")
	case errors.Is(err, database.ErrNotFound):
		writeMessage(w, http.StatusNotFound, entity+" couldn't be found")
	case errors.Is(err, database.ErrDuplicate):
		writeMessage(w, http.StatusConflict, duplicateMessage(entity))
	case errors.Is(err, database.ErrConcurrentModification):
		writeMessage(w, http.StatusConflict, entity+" was changed by another request, reload and try again")
	case errors.Is(err, domain.ErrSpotBusy):
		writeMessage(w, http.StatusConflict, upperFirst(err.Error()))
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

func duplicateMessage(entity string) string {
	switch entity {
	case "Review":
		return "User already has a review for this spot"
	case "User":
		return "User with that email or username already exists"
	default:
		return entity + " already exists"
	}
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// pathID parses a positive integer route parameter.
func pathID(ps httprouter.Params, name string) (int64, error) {
	id, err := strconv.ParseInt(ps.ByName(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError(map[string]string{name: name + " must be a positive integer"})
	}
	return id, nil
}

// requestValidator decodes JSON bodies and runs struct tags over them.
type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{validate: v}
}

func (rv *requestValidator) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.NewValidationError(map[string]string{"body": fmt.Sprintf("invalid JSON body: %v", err)})
	}
	return rv.check(dst)
}

func (rv *requestValidator) check(dst any) error {
	err := rv.validate.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = fieldMessage(fe)
		}
	}
	return domain.NewValidationError(fields)
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "Invalid email"
	case "url":
		return field + " must be a valid URL"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte", "lte":
		return field + " is out of range"
	case "excludes":
		return fmt.Sprintf("%s must not contain %q", field, fe.Param())
	default:
		return field + " is invalid"
	}
}
