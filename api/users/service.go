package users

import (
	"context"
	"strings"

	"github.com/cear54/api-t-cuida/common/claims"
	"github.com/cear54/api-t-cuida/common/log"
	"github.com/cear54/api-t-cuida/common/store"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
)

var (
	ErrSelfStatusChange = errors.New("you cannot change your own status")
	ErrMissingStatus    = errors.New("activo is mandatory")
	ErrUnchangedStatus  = errors.New("user already has this status")
	ErrEmptyDeviceToken = errors.New("fcm_token is mandatory")
)

type Service interface {
	UpdateStatus(ctx context.Context, request StatusTransport) (store.User, error)
	RegisterDevice(ctx context.Context, request DeviceTransport) error
}

type UserService struct {
	Store interface {
		GetUser(tx *gorm.DB, userId string, options store.SearchOptions) (store.User, error)
		SetUserActive(tx *gorm.DB, userId, daycareId string, active bool) error
		SetDeviceToken(tx *gorm.DB, userId, daycareId, deviceToken string) error
	} `inject:""`
	Logger *log.Logger `inject:""`
}

func authorizedFromContext(ctx context.Context) (claims.AuthorizedContext, error) {
	authorized, ok := claims.FromContext(ctx)
	if !ok || authorized.DaycareId == "" {
		return claims.AuthorizedContext{}, claims.ErrMissingTenant
	}
	return authorized, nil
}

// UpdateStatus (de)activates an account of the caller's daycare.
func (c *UserService) UpdateStatus(ctx context.Context, request StatusTransport) (store.User, error) {
	authorized, err := authorizedFromContext(ctx)
	if err != nil {
		return store.User{}, err
	}
	if !request.Active.Set {
		return store.User{}, ErrMissingStatus
	}
	if request.UserId == authorized.UserId {
		return store.User{}, ErrSelfStatusChange
	}

	user, err := c.Store.GetUser(nil, request.UserId, store.SearchOptions{DaycareId: authorized.DaycareId})
	if err != nil {
		return store.User{}, errors.Wrap(err, "failed to get user")
	}
	if user.Active.Valid && user.Active.Bool == request.Active.Value {
		return store.User{}, ErrUnchangedStatus
	}

	if err := c.Store.SetUserActive(nil, user.UserId.String, authorized.DaycareId, request.Active.Value); err != nil {
		return store.User{}, errors.Wrap(err, "failed to update user status")
	}
	c.Logger.Info(ctx, "user status changed", "userId", user.UserId.String, "active", request.Active.Value)

	user.Active = store.DbBool(request.Active.Value)
	return user, nil
}

// RegisterDevice stores the push token of the caller's device.
func (c *UserService) RegisterDevice(ctx context.Context, request DeviceTransport) error {
	authorized, err := authorizedFromContext(ctx)
	if err != nil {
		return err
	}
	token := strings.TrimSpace(request.Token)
	if token == "" {
		return ErrEmptyDeviceToken
	}

	if err := c.Store.SetDeviceToken(nil, authorized.UserId, authorized.DaycareId, token); err != nil {
		return errors.Wrap(err, "failed to register device")
	}
	return nil
}
