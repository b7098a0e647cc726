package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode"

	"github.com/aussiebroadwan/custodian/internal/access/domain"
	"github.com/aussiebroadwan/custodian/internal/access/policy"
	"github.com/aussiebroadwan/custodian/internal/access/store"
	"github.com/aussiebroadwan/custodian/pkg/cryptox"
	"github.com/aussiebroadwan/custodian/pkg/slogx"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidRegistration = errors.New("invalid registration")
	ErrIdentifierTaken     = errors.New("identifier already taken")
	ErrUnknownRole         = errors.New("unknown role")
)

const passwordSpecials = "@$!%*?&"

// RegisterRequest is the input of the registration collaborator.
type RegisterRequest struct {
	Identifier string `validate:"required,max=64,identifier"`
	Password   string `validate:"required,min=8,max=72,password"`
	Confirm    string `validate:"eqfield=Password"`
	Role       string `validate:"required"`
	Department string `validate:"omitempty,oneof=A B a b"`
}

// RegistrationService creates users. It is the only writer of the
// credential store; authentication never modifies it.
type RegistrationService struct {
	Store store.Store
	Table *policy.Table
	Cost  int // bcrypt cost, defaults to cryptox.DefaultCost

	validateOnce sync.Once
	validate     *validator.Validate
}

func NewRegistrationService(s store.Store, table *policy.Table) *RegistrationService {
	return &RegistrationService{Store: s, Table: table, Cost: cryptox.DefaultCost}
}

// Register validates req, hashes the password and stores the new user.
func (s *RegistrationService) Register(ctx context.Context, req RegisterRequest) (domain.User, error) {
	req.Identifier = strings.TrimSpace(req.Identifier)
	req.Role = strings.TrimSpace(req.Role)

	if err := s.validator().Struct(req); err != nil {
		return domain.User{}, describeValidation(err)
	}

	dept, err := domain.ParseDepartment(req.Department)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %w", ErrInvalidRegistration, err)
	}

	name := s.Table.Resolve(req.Role, dept)
	if _, ok := s.Table.Lookup(name); !ok {
		return domain.User{}, fmt.Errorf("%w: %s", ErrUnknownRole, name)
	}

	cost := s.Cost
	if cost == 0 {
		cost = cryptox.DefaultCost
	}
	hash, err := cryptox.HashPasswordWithCost(req.Password, cost)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		Identifier:   req.Identifier,
		PasswordHash: hash,
		Role:         req.Role,
		Department:   dept,
	}
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrIdentifierTaken
		}
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("user registered", slog.Any("user", user))
	return user, nil
}

// validator builds the validator on first use, so a zero RegistrationService
// shared between goroutines is still safe.
func (s *RegistrationService) validator() *validator.Validate {
	s.validateOnce.Do(func() { s.validate = newValidator() })
	return s.validate
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
	_ = v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return validIdentifier(fl.Field().String())
	})
	return v
}

// StrongPassword reports whether pw uses only letters, digits and the
// characters @$!%*?& and contains at least one of each class.
func StrongPassword(pw string) bool {
	var lower, upper, digit, special bool
	for _, r := range pw {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return false
		}
	}
	return lower && upper && digit && special
}

func validIdentifier(s string) bool {
	for _, r := range s {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidRegistration, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, strings.ToLower(fe.Field())+" is required")
		case "password":
			msgs = append(msgs, "password must contain upper and lower case letters, a digit and one of "+passwordSpecials)
		case "min":
			msgs = append(msgs, strings.ToLower(fe.Field())+" must be at least "+fe.Param()+" characters")
		case "max":
			msgs = append(msgs, strings.ToLower(fe.Field())+" must be at most "+fe.Param()+" characters")
		case "eqfield":
			msgs = append(msgs, "passwords do not match")
		case "oneof":
			msgs = append(msgs, "department must be A or B")
		case "identifier":
			msgs = append(msgs, "identifier must not contain spaces")
		default:
			msgs = append(msgs, fe.Error())
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidRegistration, strings.Join(msgs, "; "))
}
