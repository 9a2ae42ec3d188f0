package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"ledger_backend/internal/middleware"
	"ledger_backend/internal/models"
	"ledger_backend/internal/repositories/memstore"
	"ledger_backend/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	engine *gin.Engine
	auth   services.AuthService
	now    time.Time
}

func newTestServer(t *testing.T, requireAuth bool) *testServer {
	t.Helper()
	srv := &testServer{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return srv.now }

	store := memstore.New().Store()
	tokens := services.NewTokenService(store.Tokens, store.Users, services.TokenConfig{
		Secret:     []byte("router-test-secret"),
		AccessTTL:  5 * time.Minute,
		RefreshTTL: time.Hour,
	}, services.WithTokenClock(clock))
	srv.auth = services.NewAuthService(store.Users, tokens, services.WithBcryptCost(bcrypt.MinCost), services.WithAuthClock(clock))
	ledger := services.NewLedgerService(store.Customers, store.Payments, services.WithLedgerClock(clock))

	srv.engine = gin.New()
	Setup(srv.engine, Deps{
		Auth:          srv.auth,
		Tokens:        tokens,
		Ledger:        ledger,
		RequireAuth:   requireAuth,
		SignInLimiter: middleware.NewIPRateLimiter(100, 100),
	})
	return srv
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) addUser(t *testing.T, email, password string, active, staff bool) {
	t.Helper()
	cmd, err := services.NewUserCommand(models.RegistrationPayload{
		Email: email, FirstName: "First", LastName: "Last", Password: password,
		IsActive: &active, IsStaff: &staff,
	})
	require.NoError(t, err)
	_, err = s.auth.RegisterUser(context.Background(), cmd)
	require.NoError(t, err)
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

type apiErr struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func TestPing(t *testing.T) {
	s := newTestServer(t, false)
	w := s.do(t, http.MethodGet, "/ping", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}

func TestSignInThenAuthenticate(t *testing.T) {
	s := newTestServer(t, false)
	s.addUser(t, "alice@example.com", "wonderland", true, false)

	w := s.do(t, http.MethodPost, "/sign-in/", gin.H{"email": "alice@example.com", "password": "wonderland"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var signIn struct {
		Refresh string                 `json:"refresh"`
		Access  string                 `json:"access"`
		User    map[string]interface{} `json:"user"`
	}
	decode(t, w, &signIn)
	assert.NotEmpty(t, signIn.Refresh)
	assert.NotEmpty(t, signIn.Access)
	assert.Equal(t, map[string]interface{}{"email": "alice@example.com", "first_name": "First", "last_name": "Last"}, signIn.User)

	w = s.do(t, http.MethodGet, "/token/authenticate/"+signIn.Access+"/", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var auth struct {
		Status  string            `json:"status"`
		Message string            `json:"message"`
		User    models.PublicUser `json:"user"`
	}
	decode(t, w, &auth)
	assert.Equal(t, "success", auth.Status)
	assert.Equal(t, "Authenticated", auth.Message)
	assert.Equal(t, "alice@example.com", auth.User.Email)
	assert.NotZero(t, auth.User.ID)
}

func TestSignInErrors(t *testing.T) {
	s := newTestServer(t, false)
	s.addUser(t, "active@example.com", "pw", true, false)
	s.addUser(t, "inactive@example.com", "pw", false, false)

	cases := []struct {
		name string
		body interface{}
		code int
	}{
		{"missing password", gin.H{"email": "active@example.com"}, http.StatusBadRequest},
		{"missing both", gin.H{}, http.StatusBadRequest},
		{"malformed json", `{"email":`, http.StatusBadRequest},
		{"wrong password", gin.H{"email": "active@example.com", "password": "nope"}, http.StatusUnauthorized},
		{"unknown user", gin.H{"email": "ghost@example.com", "password": "pw"}, http.StatusUnauthorized},
		{"inactive", gin.H{"email": "inactive@example.com", "password": "pw"}, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/sign-in/", tc.body, "")
			assert.Equal(t, tc.code, w.Code, w.Body.String())
		})
	}
}

func TestAuthenticateUnknownAndExpired(t *testing.T) {
	s := newTestServer(t, false)
	s.addUser(t, "bob@example.com", "pw", true, false)

	w := s.do(t, http.MethodGet, "/token/authenticate/not-a-token/", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/sign-in/", gin.H{"email": "bob@example.com", "password": "pw"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var signIn struct {
		Access string `json:"access"`
	}
	decode(t, w, &signIn)

	s.now = s.now.Add(5 * time.Minute)
	w = s.do(t, http.MethodGet, "/token/authenticate/"+signIn.Access+"/", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var e apiErr
	decode(t, w, &e)
	assert.Equal(t, "TOKEN_EXPIRED", e.Error.Code)
}

func TestCustomerAndPaymentFlow(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(t, http.MethodPost, "/customers/", gin.H{"name": "Alice", "phone_number": "555-0100"}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var customer struct {
		ID          int64         `json:"id"`
		TotalAmount string        `json:"total_amount"`
		Payments    []interface{} `json:"payments"`
	}
	decode(t, w, &customer)
	assert.Equal(t, "0.00", customer.TotalAmount)
	assert.NotNil(t, customer.Payments)

	path := "/payments/" + jsonInt(customer.ID) + "/"
	w = s.do(t, http.MethodPost, path, gin.H{"description": "first", "amount": "100.00", "customer": 999}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var payment struct {
		Customer int64  `json:"customer"`
		Amount   string `json:"amount"`
	}
	decode(t, w, &payment)
	assert.Equal(t, customer.ID, payment.Customer, "customer comes from the path")
	assert.Equal(t, "100.00", payment.Amount)

	s.now = s.now.Add(time.Second)
	w = s.do(t, http.MethodPost, path, gin.H{"description": "second", "amount": 50}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var payments []struct {
		Amount string `json:"amount"`
	}
	decode(t, w, &payments)
	require.Len(t, payments, 2)
	assert.Equal(t, "50.00", payments[0].Amount)
	assert.Equal(t, "100.00", payments[1].Amount)

	w = s.do(t, http.MethodGet, "/customers/", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var customers []struct {
		TotalAmount string        `json:"total_amount"`
		Payments    []interface{} `json:"payments"`
	}
	decode(t, w, &customers)
	require.Len(t, customers, 1)
	assert.Equal(t, "150.00", customers[0].TotalAmount)
	assert.Len(t, customers[0].Payments, 2)
}

func TestLedgerValidationErrors(t *testing.T) {
	s := newTestServer(t, false)
	w := s.do(t, http.MethodPost, "/customers/", gin.H{"name": "Carol", "phone_number": "555-0200"}, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodPost, "/customers/", gin.H{"name": "Carol Two", "phone_number": "555-0200"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var e apiErr
	decode(t, w, &e)
	assert.Equal(t, "VALIDATION_FAILED", e.Error.Code)
	assert.Contains(t, e.Error.Fields, "phone_number")

	w = s.do(t, http.MethodPost, "/customers/", gin.H{"name": "No Phone"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	e = apiErr{}
	decode(t, w, &e)
	assert.Contains(t, e.Error.Fields, "phone_number")

	w = s.do(t, http.MethodPost, "/payments/1/", gin.H{"description": "neg", "amount": "-5.00"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/payments/1/", gin.H{"description": "no amount"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/payments/404/", gin.H{"description": "x", "amount": "1.00"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/payments/abc/", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/customers/404/", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUsersEndpoint(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(t, http.MethodPost, "/users/", gin.H{
		"email": "new@example.com", "first_name": "New", "last_name": "User", "password": "pw",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password")

	w = s.do(t, http.MethodPost, "/users/", gin.H{
		"email": "new@example.com", "first_name": "Dup", "last_name": "User", "password": "pw",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/users/", gin.H{
		"email": "long@example.com", "first_name": "Long", "last_name": "Password", "password": strings.Repeat("p", 100),
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var e apiErr
	decode(t, w, &e)
	assert.Contains(t, e.Error.Fields, "password")

	w = s.do(t, http.MethodGet, "/users/", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var users []map[string]interface{}
	decode(t, w, &users)
	require.Len(t, users, 1)
	assert.Equal(t, "new@example.com", users[0]["email"])
	assert.NotContains(t, users[0], "password")
}

func TestRequireAuth(t *testing.T) {
	s := newTestServer(t, true)
	s.addUser(t, "clerk@example.com", "pw", true, false)
	s.addUser(t, "admin@example.com", "pw", true, true)

	w := s.do(t, http.MethodGet, "/customers/", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/customers/", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	clerk := s.signIn(t, "clerk@example.com")
	w = s.do(t, http.MethodGet, "/customers/", nil, clerk)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/users/", nil, clerk)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := s.signIn(t, "admin@example.com")
	w = s.do(t, http.MethodGet, "/users/", nil, admin)
	assert.Equal(t, http.StatusOK, w.Code)

	s.now = s.now.Add(10 * time.Minute)
	w = s.do(t, http.MethodGet, "/customers/", nil, admin)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func (s *testServer) signIn(t *testing.T, email string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/sign-in/", gin.H{"email": email, "password": "pw"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		Access string `json:"access"`
	}
	decode(t, w, &res)
	return res.Access
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestRecordPaymentTotalOverflow(t *testing.T) {
	s := newTestServer(t, false)
	w := s.do(t, http.MethodPost, "/customers/", gin.H{"name": "Big", "phone_number": "555-0900"}, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodPost, "/payments/1/", gin.H{"description": "a", "amount": "99999999.99"}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/payments/1/", gin.H{"description": "b", "amount": "99999999.99"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var e apiErr
	decode(t, w, &e)
	assert.Contains(t, e.Error.Fields, "amount")

	w = s.do(t, http.MethodGet, "/customers/1/", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_amount":"99999999.99"`)
}
