package sessions_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/cear54/api-t-cuida/api/authentication"
	. "github.com/cear54/api-t-cuida/api/sessions"
	"github.com/cear54/api-t-cuida/api/shared"
	"github.com/cear54/api-t-cuida/common/claims"
	"github.com/cear54/api-t-cuida/common/log"
	"github.com/cear54/api-t-cuida/common/store"
	"github.com/cear54/api-t-cuida/common/tokens"

	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/jinzhu/gorm"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) GetUserByEmail(tx *gorm.DB, email string) (store.User, error) {
	args := m.Called(tx, email)
	return args.Get(0).(store.User), args.Error(1)
}

var _ = Describe("Transport", func() {

	var (
		handler      http.Handler
		recorder     *httptest.ResponseRecorder
		userStore    *mockUserStore
		tokenService *tokens.Service
		now          time.Time

		maria store.User

		httpMethodToUse, httpEndpointToUse, httpBodyToUse, authorizationHeader string
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

		assertInvalidCredentials = func() {
			assertHttpCode(http.StatusUnauthorized)
			assertJsonResponse(`{"error": "invalid credentials"}`)
		}
	)

	BeforeEach(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("s3cret!"), bcrypt.MinCost)
		Expect(err).To(BeNil())
		maria = store.User{
			UserId:       store.DbString("user-1"),
			DaycareId:    store.DbString("daycare-1"),
			Email:        store.DbString("maria@example.com"),
			PasswordHash: store.DbString(string(hash)),
			Name:         store.DbString("Maria"),
			Role:         store.DbString(string(claims.RoleStaff)),
			StaffId:      store.DbString("staff-1"),
			Active:       store.DbBool(true),
		}

		now = time.Date(2024, time.March, 1, 15, 0, 0, 0, time.UTC)
		tokenService, err = tokens.New(tokens.Options{
			Secret:   "test-secret",
			Validity: time.Hour,
			Now:      func() time.Time { return now },
		})
		Expect(err).To(BeNil())

		userStore = &mockUserStore{}
		logger := log.NewLogger("tcuida-test")
		service := &SessionService{
			Store:        userStore,
			TokenService: tokenService,
			Logger:       logger,
		}
		authenticator := &authentication.Authenticator{
			TokenService: tokenService,
			Logger:       logger,
		}

		opts := []kithttp.ServerOption{
			kithttp.ServerErrorLogger(logger),
			kithttp.ServerErrorEncoder(EncodeError),
		}
		handlerFactory := HandlerFactory{
			Service: service,
		}

		router := mux.NewRouter()
		router.Handle("/auth/login", handlerFactory.Login(opts)).Methods(http.MethodPost)
		router.Handle("/auth/verify", authenticator.Require(handlerFactory.Verify(opts), claims.ViewSession)).Methods(http.MethodGet)

		httpMethodToUse = ""
		httpEndpointToUse = ""
		httpBodyToUse = ""
		authorizationHeader = ""
		recorder = httptest.NewRecorder()

		handler = authenticator.Bearer(router, []string{"/auth/login"})
	})

	JustBeforeEach(func() {
		req, _ := http.NewRequest(httpMethodToUse, httpEndpointToUse, strings.NewReader(httpBodyToUse))
		if authorizationHeader != "" {
			req.Header.Set("Authorization", authorizationHeader)
		}
		handler.ServeHTTP(recorder, req)
	})

	Describe("LOGIN", func() {

		var (
			comparisons *int
			restore     func()

			assertPasswordCompared = func() {
				It("should compare a password hash like any other refusal", func() {
					Expect(*comparisons).To(Equal(1))
				})
			}
		)

		BeforeEach(func() {
			httpMethodToUse = http.MethodPost
			httpEndpointToUse = "/auth/login"
			httpBodyToUse = `{"email": "maria@example.com", "password": "s3cret!"}`
			comparisons, restore = CountPasswordComparisons()
		})

		AfterEach(func() {
			restore()
		})

		Context("When the credentials are valid", func() {
			BeforeEach(func() {
				userStore.On("GetUserByEmail", mock.Anything, "maria@example.com").Return(maria, nil)
			})
			assertHttpCode(http.StatusOK)
			It("should return a verifiable token and the user", func() {
				response := SessionTransport{}
				Expect(json.Unmarshal(recorder.Body.Bytes(), &response)).To(Succeed())
				Expect(response.User.Id).To(Equal("user-1"))
				Expect(response.User.Role).To(Equal("academico"))
				Expect(response.User.Active).To(Equal(shared.Flag{Set: true, Value: true}))

				c, err := tokenService.Verify(response.Token)
				Expect(err).To(BeNil())
				Expect(c.UserId).To(Equal("user-1"))
				Expect(c.DaycareId).To(Equal("daycare-1"))
				Expect(c.Actor).To(Equal(claims.Staff{StaffId: "staff-1"}))
				Expect(c.ExpiresAt).To(Equal(now.Add(time.Hour).Unix()))
			})
			It("should not leak the password hash", func() {
				Expect(recorder.Body.String()).NotTo(ContainSubstring("$2a$"))
			})
		})

		Context("When the password is wrong", func() {
			BeforeEach(func() {
				httpBodyToUse = `{"email": "maria@example.com", "password": "guess"}`
				userStore.On("GetUserByEmail", mock.Anything, "maria@example.com").Return(maria, nil)
			})
			assertInvalidCredentials()
			assertPasswordCompared()
		})

		Context("When the email is unknown", func() {
			BeforeEach(func() {
				userStore.On("GetUserByEmail", mock.Anything, "maria@example.com").Return(store.User{}, store.ErrUserNotFound)
			})
			assertInvalidCredentials()
			assertPasswordCompared()
		})

		Context("When the account is inactive", func() {
			BeforeEach(func() {
				maria.Active = store.DbBool(false)
				userStore.On("GetUserByEmail", mock.Anything, "maria@example.com").Return(maria, nil)
			})
			assertInvalidCredentials()
			assertPasswordCompared()
		})

		Context("When the email is malformed", func() {
			BeforeEach(func() {
				httpBodyToUse = `{"email": "maria", "password": "s3cret!"}`
			})
			assertHttpCode(http.StatusBadRequest)
			assertJsonResponse(`{"error": "invalid email"}`)
			It("should not look the user up", func() {
				userStore.AssertNotCalled(GinkgoT(), "GetUserByEmail", mock.Anything, mock.Anything)
			})
		})

		Context("When the password is missing", func() {
			BeforeEach(func() {
				httpBodyToUse = `{"email": "maria@example.com"}`
			})
			assertHttpCode(http.StatusBadRequest)
			assertJsonResponse(`{"error": "email and password are mandatory"}`)
		})

		Context("When the database fails", func() {
			BeforeEach(func() {
				userStore.On("GetUserByEmail", mock.Anything, "maria@example.com").Return(store.User{}, errors.New("connection refused"))
			})
			assertHttpCode(http.StatusInternalServerError)
			assertJsonResponse(fmt.Sprintf(`{"error": %q}`, shared.ServerErrorMessage))
		})
	})

	Describe("VERIFY", func() {

		BeforeEach(func() {
			httpMethodToUse = http.MethodGet
			httpEndpointToUse = "/auth/verify"
		})

		Context("When the token is valid", func() {
			BeforeEach(func() {
				token, err := tokenService.Issue(claims.Claims{
					UserId:    "user-2",
					Username:  "Lupita",
					DaycareId: "daycare-1",
					Actor:     claims.Guardian{ChildId: "c1"},
				})
				Expect(err).To(BeNil())
				authorizationHeader = "Bearer " + token
			})
			assertHttpCode(http.StatusOK)
			It("should echo the claims", func() {
				Expect(recorder.Body.String()).To(MatchJSON(fmt.Sprintf(`{
					"user_id": "user-2",
					"usuario": "Lupita",
					"tipo_usuario": "familia",
					"empresa_id": "daycare-1",
					"nino_id": "c1",
					"iat": %d,
					"exp": %d
				}`, now.Unix(), now.Add(time.Hour).Unix())))
			})
		})

		Context("When no token is sent", func() {
			assertHttpCode(http.StatusUnauthorized)
		})

		Context("When the token is expired", func() {
			BeforeEach(func() {
				token, err := tokenService.Issue(claims.Claims{UserId: "user-2", DaycareId: "daycare-1", Actor: claims.Guardian{ChildId: "c1"}})
				Expect(err).To(BeNil())
				authorizationHeader = "Bearer " + token
				now = now.Add(2 * time.Hour)
			})
			assertHttpCode(http.StatusUnauthorized)
		})
	})
})
