package users

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cear54/api-t-cuida/api/shared"
	"github.com/cear54/api-t-cuida/common/claims"
	"github.com/cear54/api-t-cuida/common/store"

	"github.com/go-kit/kit/endpoint"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

var (
	ErrBadRouting     = errors.New("inconsistent mapping between route and handler (programmer error)")
	ErrInvalidPayload = errors.New("request body is not valid json")
)

type StatusTransport struct {
	UserId string      `json:"-"`
	Active shared.Flag `json:"activo"`
}

type DeviceTransport struct {
	Token string `json:"fcm_token"`
}

type UserTransport struct {
	Id     string      `json:"id"`
	Name   string      `json:"nombre_usuario"`
	Role   string      `json:"tipo_usuario"`
	Active shared.Flag `json:"activo"`
}

type HandlerFactory struct {
	Service Service `inject:""`
}

func (h *HandlerFactory) UpdateStatus(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeUpdateStatusEndpoint(h.Service),
		decodeStatusRequest,
		shared.EncodeResponse200,
		opts...,
	)
}

func (h *HandlerFactory) RegisterDevice(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeRegisterDeviceEndpoint(h.Service),
		decodeDeviceRequest,
		shared.EncodeResponse204,
		opts...,
	)
}

func makeUpdateStatusEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(StatusTransport)
		user, err := svc.UpdateStatus(ctx, req)
		if err != nil {
			return nil, err
		}
		return dbToTransport(user), nil
	}
}

func makeRegisterDeviceEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(DeviceTransport)
		if err := svc.RegisterDevice(ctx, req); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

func decodeStatusRequest(_ context.Context, r *http.Request) (interface{}, error) {
	vars := mux.Vars(r)
	id, ok := vars["userId"]
	if !ok {
		return nil, ErrBadRouting
	}
	var request StatusTransport
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return nil, errors.Wrap(ErrInvalidPayload, err.Error())
	}
	request.UserId = id
	return request, nil
}

func decodeDeviceRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var request DeviceTransport
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return nil, errors.Wrap(ErrInvalidPayload, err.Error())
	}
	return request, nil
}

// encode errors from business-logic
func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	cause := errors.Cause(err)
	switch cause {
	case ErrInvalidPayload, ErrSelfStatusChange, ErrMissingStatus, ErrUnchangedStatus, ErrEmptyDeviceToken:
		shared.HttpError(w, shared.NewError(cause.Error()), http.StatusBadRequest)
	case claims.ErrMissingTenant:
		shared.HttpError(w, shared.NewError(cause.Error()), http.StatusUnauthorized)
	case store.ErrUserNotFound:
		shared.HttpError(w, shared.NewError(cause.Error()), http.StatusNotFound)
	default:
		shared.HttpError(w, shared.ServerError, http.StatusInternalServerError)
	}
}

func dbToTransport(user store.User) UserTransport {
	return UserTransport{
		Id:     user.UserId.String,
		Name:   user.Name.String,
		Role:   user.Role.String,
		Active: shared.FlagFromDb(user.Active),
	}
}
