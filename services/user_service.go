package services

import (
	"context"
	"errors"
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cppla/nohand/models"
	"github.com/cppla/nohand/store"
	"github.com/cppla/nohand/utils"
)

var (
	ErrInvalidUsername    = errors.New("username must be 3-64 characters without spaces or markup")
	ErrInvalidPassword    = errors.New("password must be 6 to 72 characters")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrUsernameReserved   = errors.New("username is reserved")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
)

// UserRepository persists members.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// UserOptions wires optional collaborators of UserService.
type UserOptions struct {
	// Board is invalidated whenever a user is created.
	Board *LeaderboardService
	// IsReserved rejects self-registration of names such as configured admins.
	IsReserved func(username string) bool
}

// UserService handles registration and credential checks.
type UserService struct {
	repo       UserRepository
	board      *LeaderboardService
	isReserved func(string) bool
}

func NewUserService(repo UserRepository, opts UserOptions) *UserService {
	return &UserService{repo: repo, board: opts.Board, isReserved: opts.IsReserved}
}

// Register creates a member with a bcrypt-hashed password.
// Reserved names can only be created through EnsureAdmin.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if !validUsername(username) {
		return nil, ErrInvalidUsername
	}
	password = strings.TrimSpace(password)
	if len(password) < 6 || len(password) > 72 {
		return nil, ErrInvalidPassword
	}
	if s.isReserved != nil && s.isReserved(username) {
		return nil, ErrUsernameReserved
	}
	return s.create(ctx, username, password, false)
}

func (s *UserService) create(ctx context.Context, username, password string, admin bool) (*models.User, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{Username: username, PasswordHash: hash, IsAdmin: admin}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrUniqueViolation) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	if s.board != nil {
		s.board.Invalidate(ctx)
	}
	return user, nil
}

// Authenticate verifies credentials. Unknown users and wrong passwords look the same.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repo.FindUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPassword(user.PasswordHash, strings.TrimSpace(password)) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Get loads a member by id.
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.repo.FindUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// EnsureAdmin creates the admin account when it does not exist yet.
// Without a password nothing is created and admin routes stay closed.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	existing, err := s.repo.FindUserByUsername(ctx, username)
	if err == nil {
		if !existing.IsAdmin {
			utils.L().Warnf("user %s exists without admin rights, not promoting", username)
		}
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	if _, err := s.create(ctx, username, password, true); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return false, nil
		}
		return false, err
	}
	utils.L().Infof("created admin account %s", username)
	return true, nil
}

func validUsername(s string) bool {
	if n := utf8.RuneCountInString(s); n < 3 || n > 64 {
		return false
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	// the sanitizer escapes & ' " so compare after unescaping; only stripped markup differs
	return html.UnescapeString(utils.SanitizeText(s)) == s
}
