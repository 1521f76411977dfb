package sessions

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cear54/api-t-cuida/api/shared"
	"github.com/cear54/api-t-cuida/common/claims"
	"github.com/cear54/api-t-cuida/common/store"

	"github.com/go-kit/kit/endpoint"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/pkg/errors"
)

var ErrInvalidPayload = errors.New("request body is not valid json")

type LoginTransport struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserTransport struct {
	Id        string      `json:"id"`
	Email     string      `json:"email"`
	Name      string      `json:"nombre_usuario"`
	Role      string      `json:"tipo_usuario"`
	DaycareId string      `json:"empresa_id"`
	StaffId   string      `json:"personal_id,omitempty"`
	ChildId   string      `json:"nino_id,omitempty"`
	Active    shared.Flag `json:"activo"`
}

type SessionTransport struct {
	Token string        `json:"token"`
	User  UserTransport `json:"user"`
}

type ClaimsTransport struct {
	UserId    string `json:"user_id"`
	Username  string `json:"usuario"`
	Role      string `json:"tipo_usuario"`
	DaycareId string `json:"empresa_id"`
	StaffId   string `json:"personal_id,omitempty"`
	ChildId   string `json:"nino_id,omitempty"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

type HandlerFactory struct {
	Service Service `inject:""`
}

func (h *HandlerFactory) Login(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeLoginEndpoint(h.Service),
		decodeLoginRequest,
		shared.EncodeResponse200,
		opts...,
	)
}

func (h *HandlerFactory) Verify(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeVerifyEndpoint(h.Service),
		ignorePayload,
		shared.EncodeResponse200,
		opts...,
	)
}

func makeLoginEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(LoginTransport)
		session, err := svc.Login(ctx, req)
		if err != nil {
			return nil, err
		}
		return SessionTransport{
			Token: session.Token,
			User:  userToTransport(session.User),
		}, nil
	}
}

func makeVerifyEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		c, err := svc.Verify(ctx)
		if err != nil {
			return nil, err
		}
		return claimsToTransport(c), nil
	}
}

func decodeLoginRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var request LoginTransport
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return nil, errors.Wrap(ErrInvalidPayload, err.Error())
	}
	return request, nil
}

func ignorePayload(_ context.Context, _ *http.Request) (interface{}, error) {
	return nil, nil
}

func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	switch errors.Cause(err) {
	case ErrInvalidPayload, ErrMissingCredentials, ErrInvalidEmail:
		shared.HttpError(w, shared.NewError(errors.Cause(err).Error()), http.StatusBadRequest)
	case ErrInvalidCredentials, ErrNoSession:
		shared.HttpError(w, shared.NewError(errors.Cause(err).Error()), http.StatusUnauthorized)
	default:
		shared.HttpError(w, shared.ServerError, http.StatusInternalServerError)
	}
}

func userToTransport(user store.User) UserTransport {
	return UserTransport{
		Id:        user.UserId.String,
		Email:     user.Email.String,
		Name:      user.Name.String,
		Role:      user.Role.String,
		DaycareId: user.DaycareId.String,
		StaffId:   user.StaffId.String,
		ChildId:   user.ChildId.String,
		Active:    shared.FlagFromDb(user.Active),
	}
}

func claimsToTransport(c claims.Claims) ClaimsTransport {
	transport := ClaimsTransport{
		UserId:    c.UserId,
		Username:  c.Username,
		DaycareId: c.DaycareId,
		StaffId:   claims.StaffId(c.Actor),
		ChildId:   claims.ChildId(c.Actor),
		IssuedAt:  c.IssuedAt,
		ExpiresAt: c.ExpiresAt,
	}
	if c.Actor != nil {
		transport.Role = string(c.Actor.Role())
	}
	return transport
}
