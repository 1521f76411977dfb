package sessions

import (
	"context"
	"strings"

	"github.com/cear54/api-t-cuida/common/claims"
	"github.com/cear54/api-t-cuida/common/log"
	"github.com/cear54/api-t-cuida/common/store"

	"github.com/badoux/checkmail"
	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingCredentials = errors.New("email and password are mandatory")
	ErrInvalidEmail       = errors.New("invalid email")
	// same answer for an unknown email, a wrong password or an inactive account
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoSession          = errors.New("no verified session")
)

var (
	// unknownUserHash keeps an unknown email as slow to refuse as a wrong password.
	unknownUserHash, _     = bcrypt.GenerateFromPassword([]byte("unknown user"), bcrypt.DefaultCost)
	compareHashAndPassword = bcrypt.CompareHashAndPassword
)

type Service interface {
	Login(ctx context.Context, request LoginTransport) (Session, error)
	Verify(ctx context.Context) (claims.Claims, error)
}

type Session struct {
	Token string
	User  store.User
}

type SessionService struct {
	Store interface {
		GetUserByEmail(tx *gorm.DB, email string) (store.User, error)
	} `inject:""`
	TokenService interface {
		Issue(c claims.Claims) (string, error)
	} `inject:""`
	Logger *log.Logger `inject:""`
}

func (s *SessionService) Login(ctx context.Context, request LoginTransport) (Session, error) {
	email := strings.TrimSpace(request.Email)
	if email == "" || request.Password == "" {
		return Session{}, ErrMissingCredentials
	}
	if err := checkmail.ValidateFormat(email); err != nil {
		return Session{}, ErrInvalidEmail
	}

	user, err := s.Store.GetUserByEmail(nil, email)
	if err != nil && err != store.ErrUserNotFound {
		return Session{}, errors.Wrap(err, "failed to get user")
	}
	hash := []byte(user.PasswordHash.String)
	if err == store.ErrUserNotFound {
		hash = unknownUserHash
	}
	passwordErr := compareHashAndPassword(hash, []byte(request.Password))

	switch {
	case err == store.ErrUserNotFound:
		s.Logger.Info(ctx, "login refused", "reason", "unknown email")
		return Session{}, ErrInvalidCredentials
	case !user.Active.True():
		s.Logger.Info(ctx, "login refused", "reason", "inactive account", "userId", user.UserId.String)
		return Session{}, ErrInvalidCredentials
	case passwordErr != nil:
		s.Logger.Info(ctx, "login refused", "reason", "wrong password", "userId", user.UserId.String)
		return Session{}, ErrInvalidCredentials
	}

	token, err := s.TokenService.Issue(claims.Claims{
		UserId:    user.UserId.String,
		Username:  user.Name.String,
		DaycareId: user.DaycareId.String,
		Actor:     claims.NewActor(user.Role.String, user.StaffId.String, user.ChildId.String),
	})
	if err != nil {
		return Session{}, errors.Wrap(err, "failed to issue token")
	}
	return Session{Token: token, User: user}, nil
}

// Verify echoes the claims the authentication middleware accepted.
func (s *SessionService) Verify(ctx context.Context) (claims.Claims, error) {
	c, ok := claims.ClaimsFromContext(ctx)
	if !ok {
		return claims.Claims{}, ErrNoSession
	}
	return c, nil
}
