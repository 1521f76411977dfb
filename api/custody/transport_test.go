package custody_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/cear54/api-t-cuida/api/custody"
	"github.com/cear54/api-t-cuida/api/shared"
	"github.com/cear54/api-t-cuida/common/claims"
	"github.com/cear54/api-t-cuida/common/custody"
	"github.com/cear54/api-t-cuida/common/log"
	"github.com/cear54/api-t-cuida/common/messaging"
	"github.com/cear54/api-t-cuida/common/storage/mocks"

	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
)

var _ = Describe("Transport", func() {

	var (
		router   *mux.Router
		recorder *httptest.ResponseRecorder

		memory  *memoryStore
		service *CustodyService

		authorized                                        claims.AuthorizedContext
		httpMethodToUse, httpEndpointToUse, httpBodyToUse string
	)

	var (
		assertHttpCode = func(code int) {
			It(fmt.Sprintf("should respond with status code %d", code), func() {
				Expect(recorder.Code).To(Equal(code))
			})
		}

		assertJsonResponse = func(response string) {
			It("should respond with json response", func() {
				Expect(recorder.Header().Get("Content-Type")).To(ContainSubstring("application/json"))
				Expect(recorder.Body.String()).To(MatchJSON(response))
			})
		}

		assertError = func(err error) {
			assertJsonResponse(fmt.Sprintf(`{"error": %q}`, err.Error()))
		}

		assertField = func(field string, value interface{}) {
			It(fmt.Sprintf("should respond with %s %v", field, value), func() {
				body := map[string]interface{}{}
				Expect(json.Unmarshal(recorder.Body.Bytes(), &body)).To(Succeed())
				Expect(body).To(HaveKeyWithValue(field, value))
			})
		}

		seed = func(f func(ctx context.Context) error) {
			ctx := claims.NewContext(context.Background(), staff)
			Expect(f(ctx)).To(Succeed())
		}
	)

	BeforeEach(func() {
		memory = newMemoryFixture()
		photoStorage := &mocks.MockStorage{}
		photoStorage.On("Get", mock.Anything, mock.Anything).Return("https://storage.example/signed", nil)
		service = newTestService(memory, photoStorage, messaging.Discard{})

		authorized = staff
		httpMethodToUse = ""
		httpEndpointToUse = ""
		httpBodyToUse = ""

		logger := log.NewLogger("tcuida-test")
		opts := []kithttp.ServerOption{
			kithttp.ServerErrorLogger(logger),
			kithttp.ServerErrorEncoder(EncodeError),
		}
		handlerFactory := HandlerFactory{
			Service: service,
		}

		router = mux.NewRouter()
		router.Handle("/custody/check-in", handlerFactory.CheckIn(opts)).Methods(http.MethodPost)
		router.Handle("/custody/daily-log", handlerFactory.SubmitDailyLog(opts)).Methods(http.MethodPut)
		router.Handle("/custody/check-out", handlerFactory.CheckOut(opts)).Methods(http.MethodPost)
		router.Handle("/custody/status", handlerFactory.DailyStatus(opts)).Methods(http.MethodGet)
		router.Handle("/children/{childId}/custody", handlerFactory.GetRecord(opts)).Methods(http.MethodGet)

		recorder = httptest.NewRecorder()
	})

	JustBeforeEach(func() {
		req, _ := http.NewRequest(httpMethodToUse, httpEndpointToUse, strings.NewReader(httpBodyToUse))
		req = req.WithContext(claims.NewContext(context.Background(), authorized))
		router.ServeHTTP(recorder, req)
	})

	Describe("CHECK-IN", func() {

		BeforeEach(func() {
			httpMethodToUse = http.MethodPost
			httpEndpointToUse = "/custody/check-in"
			httpBodyToUse = `{
				"nino_id": "c1",
				"fecha": "2024-03-01",
				"hora_entrada": "08:00",
				"temperatura": 36.5,
				"se_presento_limpio": true,
				"trajo_mochila_completa": "si",
				"persona_que_entrega": "Maria"
			}`
		})

		Context("When the child arrives", func() {
			assertHttpCode(http.StatusCreated)
			assertField("estado", string(custody.CheckedIn))
			assertField("estado_dia", custody.DisplayPresent)
			assertField("fecha", "2024-03-01")
			assertField("temperatura", 36.5)
			assertField("se_presento_limpio", true)
			assertField("trajo_mochila_completa", true)
			assertField("se_presento_enfermo", BeNil())
			assertField("imagenes", []interface{}{})
		})

		Context("When the child is already checked in", func() {
			BeforeEach(func() {
				seed(func(ctx context.Context) error {
					_, err := service.CheckIn(ctx, CheckInTransport{ChildId: "c1", Date: "2024-03-01", Time: "07:45", Temperature: temperature(36.6)})
					return err
				})
			})
			assertHttpCode(http.StatusConflict)
			assertError(custody.ErrAlreadyCheckedIn)
		})

		Context("When the child has a fever", func() {
			BeforeEach(func() {
				httpBodyToUse = `{"nino_id": "c1", "fecha": "2024-03-01", "hora_entrada": "08:00", "temperatura": 50.0}`
			})
			assertHttpCode(http.StatusBadRequest)
			assertError(custody.ErrTemperatureOutOfRange)
		})

		Context("When the date is not YYYY-MM-DD", func() {
			BeforeEach(func() {
				httpBodyToUse = `{"nino_id": "c1", "fecha": "01/03/2024", "hora_entrada": "08:00", "temperatura": 36.5}`
			})
			assertHttpCode(http.StatusBadRequest)
		})

		Context("When the payload is not json", func() {
			BeforeEach(func() {
				httpBodyToUse = `{"nino_id": `
			})
			assertHttpCode(http.StatusBadRequest)
		})

		Context("When the child belongs to another daycare", func() {
			BeforeEach(func() {
				authorized = outsider
			})
			assertHttpCode(http.StatusNotFound)
		})

		Context("When the database fails", func() {
			BeforeEach(func() {
				memory.failWith = errors.New("connection refused")
			})
			assertHttpCode(http.StatusInternalServerError)
			assertJsonResponse(fmt.Sprintf(`{"error": %q}`, shared.ServerErrorMessage))
		})
	})

	Describe("DAILY LOG", func() {

		BeforeEach(func() {
			httpMethodToUse = http.MethodPut
			httpEndpointToUse = "/custody/daily-log"
			httpBodyToUse = `{"nino_id": "c1", "fecha": "2024-03-01", "desayuno": "avena", "veces_orino": 3, "durmio": "no"}`
		})

		Context("When the log is complete", func() {
			assertHttpCode(http.StatusOK)
			assertField("estado", string(custody.Logged))
			assertField("estado_dia", custody.DisplayAbsent)
			assertField("desayuno", "avena")
			assertField("veces_orino", float64(3))
			assertField("durmio", false)
		})

		Context("When breakfast is missing", func() {
			BeforeEach(func() {
				httpBodyToUse = `{"nino_id": "c1", "fecha": "2024-03-01"}`
			})
			assertHttpCode(http.StatusBadRequest)
			assertError(custody.ErrBreakfastRequired)
		})
	})

	Describe("CHECK-OUT", func() {

		BeforeEach(func() {
			httpMethodToUse = http.MethodPost
			httpEndpointToUse = "/custody/check-out"
			httpBodyToUse = `{"nino_id": "c1", "fecha": "2024-03-01", "hora_salida": "17:30", "quien_recoge": "Maria", "entregado_limpio": true}`
		})

		Context("When the child was never checked in", func() {
			assertHttpCode(http.StatusUnprocessableEntity)
			assertError(custody.ErrNoCheckIn)
		})

		Context("When the daily log is missing", func() {
			BeforeEach(func() {
				seed(func(ctx context.Context) error {
					_, err := service.CheckIn(ctx, CheckInTransport{ChildId: "c1", Date: "2024-03-01", Time: "08:00", Temperature: temperature(36.5)})
					return err
				})
			})
			assertHttpCode(http.StatusUnprocessableEntity)
			assertError(custody.ErrDailyLogRequired)
		})

		Context("When the day is complete", func() {
			BeforeEach(func() {
				seed(func(ctx context.Context) error {
					if _, err := service.CheckIn(ctx, CheckInTransport{ChildId: "c1", Date: "2024-03-01", Time: "08:00", Temperature: temperature(36.5)}); err != nil {
						return err
					}
					_, err := service.SubmitDailyLog(ctx, DailyLogTransport{ChildId: "c1", Date: "2024-03-01", Breakfast: "avena"})
					return err
				})
			})
			assertHttpCode(http.StatusOK)
			assertField("estado", string(custody.CheckedOut))
			assertField("estado_dia", custody.DisplayComplete)
			assertField("quien_recoge", "Maria")
			assertField("entregado_limpio", true)
		})
	})

	Describe("DAILY STATUS", func() {

		BeforeEach(func() {
			httpMethodToUse = http.MethodGet
			httpEndpointToUse = "/custody/status?fecha=2024-03-01"
			seed(func(ctx context.Context) error {
				_, err := service.CheckIn(ctx, CheckInTransport{ChildId: "c2", Date: "2024-03-01", Time: "08:00", Temperature: temperature(36.5)})
				return err
			})
		})

		Context("When staff asks for the roster", func() {
			assertHttpCode(http.StatusOK)
			assertField("fecha", "2024-03-01")
			assertField("resumen", map[string]interface{}{
				"total":      float64(2),
				"presentes":  float64(1),
				"ausentes":   float64(1),
				"entregados": float64(0),
			})
			It("should list every active child", func() {
				response := DailyStatusTransport{}
				Expect(json.Unmarshal(recorder.Body.Bytes(), &response)).To(Succeed())
				Expect(response.Children).To(HaveLen(2))
				Expect(response.Children[0].ChildId).To(Equal("c2"))
				Expect(response.Children[0].State).To(Equal(custody.DisplayPresent))
				Expect(response.Children[0].Record).NotTo(BeNil())
				Expect(response.Children[1].ChildId).To(Equal("c1"))
				Expect(response.Children[1].State).To(Equal(custody.DisplayAbsent))
				Expect(response.Children[1].Record).To(BeNil())
			})
		})
	})

	Describe("RECORD", func() {

		BeforeEach(func() {
			httpMethodToUse = http.MethodGet
			httpEndpointToUse = "/children/c1/custody?fecha=2024-03-01"
		})

		Context("When the record exists", func() {
			BeforeEach(func() {
				seed(func(ctx context.Context) error {
					_, err := service.CheckIn(ctx, CheckInTransport{ChildId: "c1", Date: "2024-03-01", Time: "08:00", Temperature: temperature(36.5)})
					return err
				})
				authorized = guardian
			})
			assertHttpCode(http.StatusOK)
			assertField("nino_id", "c1")
			assertField("estado", string(custody.CheckedIn))
		})

		Context("When nothing happened that day", func() {
			assertHttpCode(http.StatusNotFound)
		})

		Context("When a guardian asks about another child", func() {
			BeforeEach(func() {
				httpEndpointToUse = "/children/c2/custody?fecha=2024-03-01"
				authorized = guardian
			})
			assertHttpCode(http.StatusForbidden)
			assertError(claims.ErrForbidden)
		})
	})
})
