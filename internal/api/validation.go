package api

import (
	"fmt"
	"net/mail"
	"time"
	"unicode/utf8"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/MoravianUniversity/cost-sharing/internal/calculator"
	"github.com/MoravianUniversity/cost-sharing/internal/models"
)

// Field limits, counted in characters.
const (
	MaxGroupNameLength          = 100
	MaxGroupDescriptionLength   = 500
	MaxExpenseDescriptionLength = 200
	MaxUserNameLength           = 100
	MaxEmailLength              = 254
)

var minAmount = decimal.New(1, -calculator.CurrencyPlaces)

func invalid(format string, args ...any) error {
	return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf(format, args...))
}

// requiredString checks a required string field and returns its value.
func requiredString(field string, value *string, maxLen int) (string, error) {
	if value == nil {
		return "", invalid("%s is required", field)
	}
	n := utf8.RuneCountInString(*value)
	if n < 1 {
		return "", invalid("%s must be at least 1 character", field)
	}
	if n > maxLen {
		return "", invalid("%s must be at most %d characters", field, maxLen)
	}
	return *value, nil
}

// optionalString checks an optional string field; absent yields "".
func optionalString(field string, value *string, maxLen int) (string, error) {
	if value == nil {
		return "", nil
	}
	if utf8.RuneCountInString(*value) > maxLen {
		return "", invalid("%s must be at most %d characters", field, maxLen)
	}
	return *value, nil
}

func validAmount(value *decimal.Decimal) (decimal.Decimal, error) {
	if value == nil {
		return decimal.Zero, invalid("amount is required")
	}
	if value.LessThan(minAmount) {
		return decimal.Zero, invalid("amount must be at least %s", minAmount.StringFixed(calculator.CurrencyPlaces))
	}
	if value.GreaterThan(models.MaxAmount) {
		return decimal.Zero, invalid("amount must be at most %s", models.MaxAmount.StringFixed(calculator.CurrencyPlaces))
	}
	if !value.Equal(value.Round(calculator.CurrencyPlaces)) {
		return decimal.Zero, invalid("amount must have at most %d decimal places", calculator.CurrencyPlaces)
	}
	return *value, nil
}

func validDate(value *string) (string, error) {
	if value == nil {
		return "", invalid("date is required")
	}
	if _, err := time.Parse(models.DateLayout, *value); err != nil {
		return "", invalid("date must be in YYYY-MM-DD format")
	}
	return *value, nil
}

// expenseInput validates the shape of client-supplied expense fields.
// Participant rules are left to the service.
func (f ExpenseFields) expenseInput() (models.ExpenseInput, error) {
	description, err := requiredString("description", f.Description, MaxExpenseDescriptionLength)
	if err != nil {
		return models.ExpenseInput{}, err
	}
	amount, err := validAmount(f.Amount)
	if err != nil {
		return models.ExpenseInput{}, err
	}
	date, err := validDate(f.Date)
	if err != nil {
		return models.ExpenseInput{}, err
	}

	return models.ExpenseInput{
		Description:    description,
		Amount:         amount,
		Date:           date,
		ParticipantIDs: f.SplitBetween,
	}, nil
}

func validEmail(value *string) (string, error) {
	email, err := requiredString("email", value, MaxEmailLength)
	if err != nil {
		return "", err
	}
	// Only a bare address: no display name, angle brackets or comment.
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid("email must be a valid email address")
	}
	return email, nil
}
