package custody

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cear54/api-t-cuida/api/shared"
	"github.com/cear54/api-t-cuida/common/claims"
	"github.com/cear54/api-t-cuida/common/custody"
	"github.com/cear54/api-t-cuida/common/dates"
	"github.com/cear54/api-t-cuida/common/storage"
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

type CheckInTransport struct {
	ChildId               string      `json:"nino_id"`
	Date                  string      `json:"fecha"`
	Time                  string      `json:"hora_entrada"`
	Temperature           *float64    `json:"temperatura"`
	ArrivedIll            shared.Flag `json:"se_presento_enfermo"`
	IllnessDescription    string      `json:"descripcion_enfermedad"`
	ArrivedClean          shared.Flag `json:"se_presento_limpio"`
	CompleteBackpack      shared.Flag `json:"trajo_mochila_completa"`
	GoodPhysicalCondition shared.Flag `json:"se_presento_buen_estado_fisico"`
	DroppedOffBy          string      `json:"persona_que_entrega"`
}

type DailyLogTransport struct {
	ChildId             string      `json:"nino_id"`
	Date                string      `json:"fecha"`
	Breakfast           string      `json:"desayuno"`
	Snack               string      `json:"colacion"`
	Lunch               string      `json:"comida"`
	Slept               shared.Flag `json:"durmio"`
	NapDuration         string      `json:"tiempo_dormido"`
	Urinated            shared.Flag `json:"orino"`
	UrinationCount      *int64      `json:"veces_orino"`
	BowelMovement       shared.Flag `json:"evacuo"`
	BowelMovementCount  *int64      `json:"veces_evacuo"`
	AskedForToilet      shared.Flag `json:"pidio_bano"`
	AskedForToiletWhen  string      `json:"cuando_pidio_bano"`
	AskedForToiletCount *int64      `json:"veces_pidio_bano"`
	Mood                string      `json:"estado_animo"`
	HadAccident         shared.Flag `json:"tuvo_accidente"`
	AccidentDescription string      `json:"descripcion_accidente"`
	HealthIssue         shared.Flag `json:"problema_salud"`
	HealthDescription   string      `json:"descripcion_salud"`
	Observations        string      `json:"observaciones"`
	Images              []string    `json:"imagenes"`
}

type CheckOutTransport struct {
	ChildId                string      `json:"nino_id"`
	Date                   string      `json:"fecha"`
	Time                   string      `json:"hora_salida"`
	PickedUpBy             string      `json:"quien_recoge"`
	ReleasedClean          shared.Flag `json:"entregado_limpio"`
	ReleasedWithBelongings shared.Flag `json:"entregado_con_pertenencias"`
}

type RecordTransport struct {
	Id      string `json:"id"`
	ChildId string `json:"nino_id"`
	Date    string `json:"fecha"`
	State   string `json:"estado"`
	Display string `json:"estado_dia"`

	CheckedInAt           *time.Time  `json:"hora_entrada"`
	Temperature           *float64    `json:"temperatura"`
	ArrivedIll            shared.Flag `json:"se_presento_enfermo"`
	IllnessDescription    string      `json:"descripcion_enfermedad,omitempty"`
	ArrivedClean          shared.Flag `json:"se_presento_limpio"`
	CompleteBackpack      shared.Flag `json:"trajo_mochila_completa"`
	GoodPhysicalCondition shared.Flag `json:"se_presento_buen_estado_fisico"`
	DroppedOffBy          string      `json:"persona_que_entrega,omitempty"`
	CheckInStaffId        string      `json:"personal_entrada_id,omitempty"`

	LogSubmittedAt      *time.Time  `json:"bitacora_registrada"`
	Breakfast           string      `json:"desayuno,omitempty"`
	Snack               string      `json:"colacion,omitempty"`
	Lunch               string      `json:"comida,omitempty"`
	Slept               shared.Flag `json:"durmio"`
	NapDuration         string      `json:"tiempo_dormido,omitempty"`
	Urinated            shared.Flag `json:"orino"`
	UrinationCount      *int64      `json:"veces_orino"`
	BowelMovement       shared.Flag `json:"evacuo"`
	BowelMovementCount  *int64      `json:"veces_evacuo"`
	AskedForToilet      shared.Flag `json:"pidio_bano"`
	AskedForToiletWhen  string      `json:"cuando_pidio_bano,omitempty"`
	AskedForToiletCount *int64      `json:"veces_pidio_bano"`
	Mood                string      `json:"estado_animo,omitempty"`
	HadAccident         shared.Flag `json:"tuvo_accidente"`
	AccidentDescription string      `json:"descripcion_accidente,omitempty"`
	HealthIssue         shared.Flag `json:"problema_salud"`
	HealthDescription   string      `json:"descripcion_salud,omitempty"`
	Observations        string      `json:"observaciones,omitempty"`
	Images              []string    `json:"imagenes"`
	LogStaffId          string      `json:"personal_bitacora_id,omitempty"`

	CheckedOutAt           *time.Time  `json:"hora_salida"`
	PickedUpBy             string      `json:"quien_recoge,omitempty"`
	ReleasedClean          shared.Flag `json:"entregado_limpio"`
	ReleasedWithBelongings shared.Flag `json:"entregado_con_pertenencias"`
	CheckOutStaffId        string      `json:"personal_salida_id,omitempty"`
}

type ChildStatusTransport struct {
	ChildId   string           `json:"nino_id"`
	FirstName string           `json:"nombre"`
	LastName  string           `json:"apellido"`
	ClassId   string           `json:"salon_id,omitempty"`
	State     string           `json:"estado"`
	Record    *RecordTransport `json:"registro,omitempty"`
}

type SummaryTransport struct {
	Total    int `json:"total"`
	Present  int `json:"presentes"`
	Absent   int `json:"ausentes"`
	Departed int `json:"entregados"`
}

type DailyStatusTransport struct {
	Date     string                 `json:"fecha"`
	Children []ChildStatusTransport `json:"ninos"`
	Summary  SummaryTransport       `json:"resumen"`
}

type recordRequest struct {
	ChildId string
	Date    string
}

type HandlerFactory struct {
	Service Service `inject:""`
}

func (h *HandlerFactory) CheckIn(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeCheckInEndpoint(h.Service),
		decodeCheckInRequest,
		shared.EncodeResponse201,
		opts...,
	)
}

func (h *HandlerFactory) SubmitDailyLog(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeSubmitDailyLogEndpoint(h.Service),
		decodeDailyLogRequest,
		shared.EncodeResponse200,
		opts...,
	)
}

func (h *HandlerFactory) CheckOut(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeCheckOutEndpoint(h.Service),
		decodeCheckOutRequest,
		shared.EncodeResponse200,
		opts...,
	)
}

func (h *HandlerFactory) DailyStatus(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeDailyStatusEndpoint(h.Service),
		decodeDailyStatusRequest,
		shared.EncodeResponse200,
		opts...,
	)
}

func (h *HandlerFactory) GetRecord(opts []kithttp.ServerOption) *kithttp.Server {
	return kithttp.NewServer(
		makeGetRecordEndpoint(h.Service),
		decodeGetRecordRequest,
		shared.EncodeResponse200,
		opts...,
	)
}

func makeCheckInEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(CheckInTransport)
		record, err := svc.CheckIn(ctx, req)
		if err != nil {
			return nil, err
		}
		return recordToTransport(record), nil
	}
}

func makeSubmitDailyLogEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(DailyLogTransport)
		record, err := svc.SubmitDailyLog(ctx, req)
		if err != nil {
			return nil, err
		}
		return recordToTransport(record), nil
	}
}

func makeCheckOutEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(CheckOutTransport)
		record, err := svc.CheckOut(ctx, req)
		if err != nil {
			return nil, err
		}
		return recordToTransport(record), nil
	}
}

func makeDailyStatusEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(recordRequest)
		status, err := svc.DailyStatus(ctx, req.Date)
		if err != nil {
			return nil, err
		}
		return dailyStatusToTransport(status), nil
	}
}

func makeGetRecordEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(recordRequest)
		record, err := svc.GetRecord(ctx, req.ChildId, req.Date)
		if err != nil {
			return nil, err
		}
		return recordToTransport(record), nil
	}
}

func decodeCheckInRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var request CheckInTransport
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return nil, errors.Wrap(ErrInvalidPayload, err.Error())
	}
	return request, nil
}

func decodeDailyLogRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var request DailyLogTransport
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return nil, errors.Wrap(ErrInvalidPayload, err.Error())
	}
	return request, nil
}

func decodeCheckOutRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var request CheckOutTransport
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return nil, errors.Wrap(ErrInvalidPayload, err.Error())
	}
	return request, nil
}

func decodeDailyStatusRequest(_ context.Context, r *http.Request) (interface{}, error) {
	return recordRequest{Date: r.URL.Query().Get("fecha")}, nil
}

func decodeGetRecordRequest(_ context.Context, r *http.Request) (interface{}, error) {
	vars := mux.Vars(r)
	childId, ok := vars["childId"]
	if !ok {
		return nil, ErrBadRouting
	}
	return recordRequest{ChildId: childId, Date: r.URL.Query().Get("fecha")}, nil
}

// EncodeError maps custody errors to status codes. Unexpected errors are hidden behind a generic message.
func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	code := StatusCode(err)
	if code == http.StatusInternalServerError {
		shared.HttpError(w, shared.ServerError, code)
		return
	}
	shared.HttpError(w, shared.NewError(errors.Cause(err).Error()), code)
}

func StatusCode(err error) int {
	cause := errors.Cause(err)
	switch {
	case cause == ErrInvalidPayload, cause == dates.ErrInvalidDate, cause == dates.ErrInvalidClock,
		cause == storage.ErrUnsupportedFileFormat, cause == storage.ErrInvalidEncoding, custody.IsInvalid(cause):
		return http.StatusBadRequest
	case cause == claims.ErrMissingTenant, cause == claims.ErrMissingActor:
		return http.StatusUnauthorized
	case cause == claims.ErrForbidden:
		return http.StatusForbidden
	case cause == store.ErrChildNotFound, cause == store.ErrCustodyRecordNotFound:
		return http.StatusNotFound
	case custody.IsConflict(cause), cause == store.ErrCustodyConflict:
		return http.StatusConflict
	case custody.IsFailedPrecondition(cause):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func nullInt64(value sql.NullInt64) *int64 {
	if !value.Valid {
		return nil
	}
	v := value.Int64
	return &v
}

func recordToTransport(record Record) RecordTransport {
	transport := RecordTransport{
		Id:      record.CustodyRecordId.String,
		ChildId: record.ChildId.String,
		Date:    dates.FromTime(record.Date).String(),
		State:   string(record.State),
		Display: custody.Display(record.State),

		CheckedInAt:           record.CheckedInAt,
		ArrivedIll:            shared.FlagFromDb(record.ArrivedIll),
		IllnessDescription:    record.IllnessDescription.String,
		ArrivedClean:          shared.FlagFromDb(record.ArrivedClean),
		CompleteBackpack:      shared.FlagFromDb(record.CompleteBackpack),
		GoodPhysicalCondition: shared.FlagFromDb(record.GoodPhysicalCondition),
		DroppedOffBy:          record.DroppedOffBy.String,
		CheckInStaffId:        record.CheckInStaffId.String,

		LogSubmittedAt:      record.LogSubmittedAt,
		Breakfast:           record.Breakfast.String,
		Snack:               record.Snack.String,
		Lunch:               record.Lunch.String,
		Slept:               shared.FlagFromDb(record.Slept),
		NapDuration:         record.NapDuration.String,
		Urinated:            shared.FlagFromDb(record.Urinated),
		UrinationCount:      nullInt64(record.UrinationCount),
		BowelMovement:       shared.FlagFromDb(record.BowelMovement),
		BowelMovementCount:  nullInt64(record.BowelMovementCount),
		AskedForToilet:      shared.FlagFromDb(record.AskedForToilet),
		AskedForToiletWhen:  record.AskedForToiletWhen.String,
		AskedForToiletCount: nullInt64(record.AskedForToiletCount),
		Mood:                record.Mood.String,
		HadAccident:         shared.FlagFromDb(record.HadAccident),
		AccidentDescription: record.AccidentDescription.String,
		HealthIssue:         shared.FlagFromDb(record.HealthIssue),
		HealthDescription:   record.HealthDescription.String,
		Observations:        record.Observations.String,
		Images:              record.PhotoUrls,
		LogStaffId:          record.LogStaffId.String,

		CheckedOutAt:           record.CheckedOutAt,
		PickedUpBy:             record.PickedUpBy.String,
		ReleasedClean:          shared.FlagFromDb(record.ReleasedClean),
		ReleasedWithBelongings: shared.FlagFromDb(record.ReleasedWithBelongings),
		CheckOutStaffId:        record.CheckOutStaffId.String,
	}
	if record.Temperature.Valid {
		t := record.Temperature.Float64
		transport.Temperature = &t
	}
	if transport.Images == nil {
		transport.Images = []string{}
	}
	return transport
}

func dailyStatusToTransport(status DailyStatus) DailyStatusTransport {
	transport := DailyStatusTransport{
		Date:     status.Date.String(),
		Children: make([]ChildStatusTransport, 0, len(status.Children)),
		Summary: SummaryTransport{
			Total:    status.Summary.Total,
			Present:  status.Summary.Present,
			Absent:   status.Summary.Absent,
			Departed: status.Summary.Departed,
		},
	}
	for _, childStatus := range status.Children {
		child := ChildStatusTransport{
			ChildId:   childStatus.Child.ChildId.String,
			FirstName: childStatus.Child.FirstName.String,
			LastName:  childStatus.Child.LastName.String,
			ClassId:   childStatus.Child.ClassId.String,
			State:     childStatus.Display,
		}
		if childStatus.Record != nil {
			record := recordToTransport(*childStatus.Record)
			child.Record = &record
		}
		transport.Children = append(transport.Children, child)
	}
	return transport
}
