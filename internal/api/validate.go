package api

import (
	"strings"
)

const (
	minPinLength = 4
	maxPinLength = 8
)

// ValidateEvent checks the input of CreateEvent.
func ValidateEvent(name string, participants []string) error {
	if err := ValidateName("name", name); err != nil {
		return err
	}
	if len(participants) < 2 {
		return Invalid("participants", "at least two participants are required")
	}
	for _, p := range participants {
		if strings.TrimSpace(p) == "" {
			return Invalid("participants", "participant names must not be empty")
		}
	}
	return nil
}

// ValidateName checks a required display name.
func ValidateName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return Invalid(field, "is required")
	}
	return nil
}

// ValidatePin checks that pin is 4 to 8 digits.
func ValidatePin(pin string) error {
	if pin == "" {
		return Invalid("pin", "is required")
	}
	if len(pin) < minPinLength || len(pin) > maxPinLength {
		return Invalid("pin", "must be 4 to 8 digits")
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return Invalid("pin", "must be 4 to 8 digits")
		}
	}
	return nil
}

// Validate checks the expense fields.
func (in ExpenseInput) Validate() error {
	if in.PayerID == "" {
		return Invalid("payer_id", "payer is required")
	}
	if in.Amount <= 0 {
		return Invalid("amount", "amount must be positive")
	}
	if len(in.Consumers) == 0 {
		return Invalid("consumers", "at least one consumer is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return Invalid("description", "description is required")
	}
	return nil
}

// Validate checks the payment fields.
func (in PaymentInput) Validate() error {
	if in.From == "" || in.To == "" {
		return Invalid("participants", "payer and payee are required")
	}
	if in.From == in.To {
		return Invalid("participants", "payer and payee must differ")
	}
	if in.Amount <= 0 {
		return Invalid("amount", "amount must be positive")
	}
	return nil
}
