package service

import (
	"errors"
	"strconv"

	"github.com/michael24561/ConfiaPeBack/config"
	"github.com/michael24561/ConfiaPeBack/internal/apierr"
	"github.com/michael24561/ConfiaPeBack/internal/auth"
	"github.com/michael24561/ConfiaPeBack/internal/domain"
	"github.com/michael24561/ConfiaPeBack/internal/models"
	"github.com/michael24561/ConfiaPeBack/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	cfg   *config.Config
	users *repository.UserRepository
	techs *repository.TechnicianRepository
}

func NewAuthService(cfg *config.Config, users *repository.UserRepository, techs *repository.TechnicianRepository) *AuthService {
	return &AuthService{cfg: cfg, users: users, techs: techs}
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Register creates a CLIENT or TECHNICIAN account; technicians get
// their profile row in the same step.
func (s *AuthService) Register(name, email, password, role, specialty string) (*models.User, *TokenPair, error) {
	if role != domain.RoleClient && role != domain.RoleTechnician {
		return nil, nil, apierr.Validation("role must be %s or %s", domain.RoleClient, domain.RoleTechnician)
	}
	if name == "" || email == "" || len(password) < 8 {
		return nil, nil, apierr.Validation("name, email and a password of at least 8 characters are required")
	}
	if _, err := s.users.GetByEmail(email); err == nil {
		return nil, nil, apierr.Conflict("email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}
	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.users.Create(user); err != nil {
		return nil, nil, err
	}
	if role == domain.RoleTechnician {
		if err := s.techs.Create(&models.Technician{UserID: user.ID, Specialty: specialty, Available: true}); err != nil {
			return nil, nil, err
		}
	}
	pair, err := s.tokens(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *AuthService) Login(email, password string) (*models.User, *TokenPair, error) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apierr.Unauthorized("invalid email or password")
		}
		return nil, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, apierr.Unauthorized("invalid email or password")
	}
	pair, err := s.tokens(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *AuthService) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := auth.ParseRefreshToken(&s.cfg.JWT, refreshToken)
	if err != nil {
		return nil, apierr.Unauthorized("invalid or expired refresh token")
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, apierr.Unauthorized("invalid refresh token subject")
	}
	user, err := s.users.GetByID(uint(id))
	if err != nil {
		return nil, apierr.Unauthorized("account no longer exists")
	}
	return s.tokens(user)
}

func (s *AuthService) tokens(user *models.User) (*TokenPair, error) {
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateRefreshToken(&s.cfg.JWT, user.ID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
