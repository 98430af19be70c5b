package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

func FormatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, fieldError := range validationErrors {
			message := getFieldErrorMessage(fieldError)
			messages = append(messages, message)
		}
		return strings.Join(messages, "; ")
	}
	return err.Error()
}

func getFieldErrorMessage(fe validator.FieldError) string {
	field := getFieldName(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "min":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gtefield", "gtfield":
		return fmt.Sprintf("%s must not be less than %s", field, getFieldName(fe.Param()))
	case "uuid":
		return fmt.Sprintf("%s must be a valid uuid", field)
	case "datetime":
		return fmt.Sprintf("%s must match format %s", field, fe.Param())
	case "dive":
		return fmt.Sprintf("%s contains an invalid item", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func getFieldName(field string) string {
	fieldNames := map[string]string{
		"NickName":              "Nickname",
		"Email":                 "Email",
		"Password":              "Password",
		"Role":                  "Role",
		"RegionID":              "Region",
		"DisciplineID":          "Discipline",
		"MaxParticipants":       "Max participants",
		"MaxParticipantsInTeam": "Team size",
		"MinAge":                "Minimum age",
		"MaxAge":                "Maximum age",
		"CompetitionID":         "Competition",
		"TgUsername":            "Telegram username",
	}

	if name, ok := fieldNames[field]; ok {
		return name
	}
	return field
}
