package validator

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// BusinessValidator handles the registration business rules that go beyond
// struct tags: collector application requirements, birth date sanity and the
// minimum-age policy.
type BusinessValidator struct {
	validate *validator.Validate
}

func NewBusinessValidator() *BusinessValidator {
	return &BusinessValidator{validate: validator.New()}
}

// RegistrationIssue is the first business rule a registration request
// violates. Message texts match the user-facing Spanish copy.
type RegistrationIssue struct {
	Message string
}

func (i *RegistrationIssue) Error() string {
	return i.Message
}

// ValidateRegistration applies the registration rules in their fixed order
// and returns the first violation, or the parsed birth date on success:
// collector requirements, base fields, date format, future date, minimum
// age. Uniqueness checks against the profile store are the caller's job.
func (bv *BusinessValidator) ValidateRegistration(req *RegisterRequest, hasPhoto bool, minAge int, now time.Time) (time.Time, *RegistrationIssue) {
	if req.Role == "lanchero" {
		if strings.TrimSpace(req.Message) == "" || !hasPhoto {
			return time.Time{}, &RegistrationIssue{
				Message: "Para registrarte como lanchero, el mensaje y la foto de la lancha son obligatorios.",
			}
		}
	}

	base := []string{req.Name, req.Phone, req.Email, req.Neighborhood, req.Password, req.BirthDate}
	for _, field := range base {
		if strings.TrimSpace(field) == "" {
			return time.Time{}, &RegistrationIssue{Message: "Todos los campos son obligatorios"}
		}
	}

	birthDate, err := time.Parse("2006-01-02", strings.TrimSpace(req.BirthDate))
	if err != nil {
		return time.Time{}, &RegistrationIssue{Message: "El formato de la fecha de nacimiento es inválido."}
	}

	today := now.Truncate(24 * time.Hour)
	if birthDate.After(today) {
		return time.Time{}, &RegistrationIssue{Message: "La fecha de nacimiento no puede ser en el futuro."}
	}

	if AgeAt(birthDate, now) < minAge {
		return time.Time{}, &RegistrationIssue{
			Message: fmt.Sprintf("Debes ser mayor de %d años para registrarte.", minAge),
		}
	}

	return birthDate, nil
}

// AgeAt computes whole years between birth and now using the month/day
// cutoff rule: the year only counts once the birthday has passed.
func AgeAt(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() ||
		(now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}
