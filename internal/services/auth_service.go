package services

import (
	"database/sql"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"gardenly/internal/domain"
	"gardenly/internal/repos"
	"gardenly/internal/validate"
)

type AuthService struct {
	Accounts *repos.AccountRepo
}

type Registration struct {
	Username  string `json:"username" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Mobile    string `json:"mobile" validate:"required"`
	Password  string `json:"password" validate:"required"`
	Role      string `json:"role" validate:"required"`
	Expertise string `json:"expertise"`
}

// Register creates a role-tagged account. The role string is normalized
// here, once; nothing ever changes it afterwards.
func (s *AuthService) Register(reg Registration) (*domain.Account, error) {
	if fields := validate.Check(reg); fields != nil {
		return nil, &domain.Error{Kind: domain.KindInvalidArgument, Message: "missing or invalid fields", Fields: fields}
	}
	role, ok := domain.ParseRole(reg.Role)
	if !ok {
		return nil, domain.E(domain.KindInvalidArgument, "unknown role %q", reg.Role)
	}
	if !validate.Password(reg.Password) {
		return nil, domain.E(domain.KindInvalidArgument, "password must be 8-64 chars with upper, lower and digit")
	}

	h, err := bcrypt.GenerateFromPassword([]byte(reg.Password), 12)
	if err != nil {
		return nil, err
	}
	a := domain.Account{
		ID:        uuid.NewString(),
		Username:  reg.Username,
		Email:     reg.Email,
		Mobile:    reg.Mobile,
		Hash:      string(h),
		Role:      role,
		Expertise: reg.Expertise,
		Available: role == domain.RoleAgent,
	}
	if err := s.Accounts.Create(a); err != nil {
		// unique username/email/mobile collisions land here
		return nil, domain.E(domain.KindInvalidArgument, "username, email or mobile already in use")
	}
	return &a, nil
}

func (s *AuthService) Login(sid, email, password string) (*domain.Account, error) {
	a, err := s.Accounts.ByEmail(email)
	if err != nil {
		return nil, domain.E(domain.KindUnauthenticated, "invalid email or password")
	}
	if bcrypt.CompareHashAndPassword([]byte(a.Hash), []byte(password)) != nil {
		return nil, domain.E(domain.KindUnauthenticated, "invalid email or password")
	}
	if err := s.Accounts.BindSession(sid, a.ID); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AuthService) Logout(sid string) error {
	return s.Accounts.UnbindSession(sid)
}

// CurrentAccount resolves the bearer of a session cookie to
// {account, role}; handlers trust this claim for authorization.
func (s *AuthService) CurrentAccount(sid string) (*domain.Account, error) {
	a, err := s.Accounts.SessionAccount(sid)
	if err == sql.ErrNoRows {
		return nil, domain.E(domain.KindUnauthenticated, "not logged in")
	}
	return a, err
}
