package model

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// CategoryInput is the user-supplied part of a new category.
type CategoryInput struct {
	Name      string          `json:"name" validate:"required"`
	Target    decimal.Decimal `json:"target" validate:"gt=0"`
	Frequency Frequency       `json:"frequency" validate:"required,oneof=daily weekly monthly"`
}

// ExpenseInput is the user-supplied part of a new expense. A zero Date means today.
type ExpenseInput struct {
	CategoryID  string          `json:"categoryId" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	Description string          `json:"description" validate:"max=500"`
	Date        Date            `json:"date"`
}

type settingsRules struct {
	Currency string `json:"currency" validate:"required,currency"`
	UserName string `json:"userName" validate:"max=100"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		// Decimals are compared through their float value; only the sign matters here.
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				return d.InexactFloat64()
			}
			return nil
		}, decimal.Decimal{})
		_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
			_, ok := LookupCurrency(fl.Field().String())
			return ok
		})
		validate = v
	})
	return validate
}

// Validate checks a category input. Name is trimmed first.
func (in CategoryInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	return translate(validatorInstance().Struct(in))
}

// Validate checks an expense input. Whether the category exists is the
// ledger's concern, not this one.
func (in ExpenseInput) Validate() error {
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	return translate(validatorInstance().Struct(in))
}

// ValidateSettings checks a settings record before it replaces the current one.
func ValidateSettings(s Settings) error {
	return translate(validatorInstance().Struct(settingsRules{
		Currency: s.Currency,
		UserName: s.UserName,
	}))
}

// ValidateCategory checks a stored or imported category.
func ValidateCategory(c Category) error {
	if strings.TrimSpace(c.ID) == "" {
		return NewValidationError("id", "is required")
	}
	return CategoryInput{Name: c.Name, Target: c.Target, Frequency: c.Frequency}.Validate()
}

// ValidateExpense checks a stored or imported expense, excluding the category
// reference. The description length limit applies to new input only, so
// older files with long descriptions still load.
func ValidateExpense(e Expense) error {
	if strings.TrimSpace(e.ID) == "" {
		return NewValidationError("id", "is required")
	}
	if e.Date.IsZero() {
		return NewValidationError("date", "is required")
	}
	return ExpenseInput{
		CategoryID: e.CategoryID,
		Amount:     e.Amount,
		Date:       e.Date,
	}.Validate()
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return NewValidationError(fe.Field(), reason(fe))
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be a positive amount"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "currency":
		return "is not a supported currency"
	default:
		return "failed " + fe.Tag()
	}
}
