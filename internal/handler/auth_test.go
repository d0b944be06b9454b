package handler

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/inmoservicios/backend/internal/config"
	"github.com/inmoservicios/backend/internal/middleware"
	"github.com/inmoservicios/backend/internal/repository"
	"github.com/inmoservicios/backend/internal/validation"
)

const userColumnsSQL = "id,email,name,phone,password_hash,role,is_active,created_at,updated_at"

func testConfig() config.Config {
	return config.Config{
		Env:          "test",
		JWTSecret:    "handler-test-secret",
		TokenTTLDays: 7,
		BcryptCost:   bcrypt.MinCost,
	}
}

func newAuthEnv(t *testing.T) (*echo.Echo, sqlmock.Sqlmock, *AuthHandler) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	e := echo.New()
	e.Validator = validation.New()
	h := NewAuthHandler(testConfig(), repository.NewUserRepo(db), repository.NewProviderRepo(db))
	return e, mock, h
}

func jsonCtx(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func asIdentity(c echo.Context, id uint64, email, role string) {
	c.Set(middleware.CtxUserID, id)
	c.Set(middleware.CtxEmail, email)
	c.Set(middleware.CtxRole, role)
}

func storedUserRows(id uint64, email, password, role string, active bool) *sqlmock.Rows {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return sqlmock.NewRows(strings.Split(userColumnsSQL, ",")).
		AddRow(id, email, "Ana", nil, string(hash), role, active, time.Now(), time.Now())
}

func TestRegister(t *testing.T) {
	e, mock, h := newAuthEnv(t)

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO users (email, name, phone, password_hash, role) VALUES (?,?,?,?,?)")).
		WithArgs("ana@example.com", "Ana", nil, sqlmock.AnyArg(), "TENANT").
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+userColumnsSQL+" FROM users WHERE id=? LIMIT 1")).
		WithArgs(uint64(5)).
		WillReturnRows(storedUserRows(5, "ana@example.com", "secret123", "TENANT", true))

	c, rec := jsonCtx(e, http.MethodPost, "/api/auth/register",
		`{"email":"ana@example.com","password":"secret123","name":"Ana"}`)
	require.NoError(t, h.Register(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"token"`)
	assert.Contains(t, body, `"email":"ana@example.com"`)
	assert.Contains(t, body, `"role":"TENANT"`)
	assert.NotContains(t, body, "password", "credential material must never be serialized")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	e, mock, h := newAuthEnv(t)

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO users (email, name, phone, password_hash, role) VALUES (?,?,?,?,?)")).
		WillReturnError(sqlErrDuplicate())

	c, rec := jsonCtx(e, http.MethodPost, "/api/auth/register",
		`{"email":"ana@example.com","password":"secret123","name":"Ana"}`)
	require.NoError(t, h.Register(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "email already registered")
}

func TestRegisterValidation(t *testing.T) {
	e, _, h := newAuthEnv(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "bad email", body: `{"email":"nope","password":"secret123","name":"Ana"}`, want: "email"},
		{name: "short password", body: `{"email":"ana@example.com","password":"abc","name":"Ana"}`, want: "password"},
		{name: "missing name", body: `{"email":"ana@example.com","password":"secret123"}`, want: "name"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := jsonCtx(e, http.MethodPost, "/api/auth/register", tc.body)
			require.NoError(t, h.Register(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "validation failed")
			assert.Contains(t, rec.Body.String(), tc.want)
		})
	}
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	e, _, h := newAuthEnv(t)
	c, rec := jsonCtx(e, http.MethodPost, "/api/auth/register",
		`{"email":"ana@example.com","password":"secret123","name":"Ana","role":"ADMIN"}`)
	require.NoError(t, h.Register(c))
	// ADMIN fails the oneof rule, so this surfaces as a validation error.
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	selectByEmail := regexp.QuoteMeta("SELECT " + userColumnsSQL + " FROM users WHERE email=? LIMIT 1")

	tests := []struct {
		name       string
		rows       *sqlmock.Rows
		password   string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "success",
			rows:       storedUserRows(5, "ana@example.com", "secret123", "OWNER", true),
			password:   "secret123",
			wantStatus: http.StatusOK,
			wantBody:   "login successful",
		},
		{
			name:       "unknown email",
			rows:       sqlmock.NewRows(strings.Split(userColumnsSQL, ",")),
			password:   "secret123",
			wantStatus: http.StatusUnauthorized,
			wantBody:   "invalid credentials",
		},
		{
			name:       "wrong password",
			rows:       storedUserRows(5, "ana@example.com", "secret123", "OWNER", true),
			password:   "not-it",
			wantStatus: http.StatusUnauthorized,
			wantBody:   "invalid credentials",
		},
		{
			name:       "deactivated account",
			rows:       storedUserRows(5, "ana@example.com", "secret123", "OWNER", false),
			password:   "secret123",
			wantStatus: http.StatusUnauthorized,
			wantBody:   "account is deactivated",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e, mock, h := newAuthEnv(t)
			mock.ExpectQuery(selectByEmail).
				WithArgs("ana@example.com").
				WillReturnRows(tc.rows)

			c, rec := jsonCtx(e, http.MethodPost, "/api/auth/login",
				`{"email":"ana@example.com","password":"`+tc.password+`"}`)
			require.NoError(t, h.Login(c))

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantBody)
			if tc.wantStatus == http.StatusOK {
				assert.Contains(t, rec.Body.String(), `"token"`)
			} else {
				assert.NotContains(t, rec.Body.String(), `"token"`)
			}
		})
	}
}

func TestMeWithoutIdentity(t *testing.T) {
	e, _, h := newAuthEnv(t)
	c, rec := jsonCtx(e, http.MethodGet, "/api/auth/me", "")
	require.NoError(t, h.Me(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeDeactivatedAccountIsNotFound(t *testing.T) {
	e, mock, h := newAuthEnv(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT "+userColumnsSQL+" FROM users WHERE id=? AND is_active=1 LIMIT 1")).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows(strings.Split(userColumnsSQL, ",")))

	c, rec := jsonCtx(e, http.MethodGet, "/api/auth/me", "")
	asIdentity(c, 5, "ana@example.com", "OWNER")
	require.NoError(t, h.Me(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "user not found")
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	e, mock, h := newAuthEnv(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+userColumnsSQL+" FROM users WHERE id=? LIMIT 1")).
		WithArgs(uint64(5)).
		WillReturnRows(storedUserRows(5, "ana@example.com", "secret123", "OWNER", true))

	c, rec := jsonCtx(e, http.MethodPut, "/api/auth/password",
		`{"currentPassword":"wrong","newPassword":"newsecret1"}`)
	asIdentity(c, 5, "ana@example.com", "OWNER")
	require.NoError(t, h.ChangePassword(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "current password is incorrect")
	// No UPDATE was expected; the stored hash must be untouched.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChangePassword(t *testing.T) {
	e, mock, h := newAuthEnv(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+userColumnsSQL+" FROM users WHERE id=? LIMIT 1")).
		WithArgs(uint64(5)).
		WillReturnRows(storedUserRows(5, "ana@example.com", "secret123", "OWNER", true))
	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE users SET password_hash=?, updated_at=CURRENT_TIMESTAMP WHERE id=?")).
		WithArgs(sqlmock.AnyArg(), uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := jsonCtx(e, http.MethodPut, "/api/auth/password",
		`{"currentPassword":"secret123","newPassword":"newsecret1"}`)
	asIdentity(c, 5, "ana@example.com", "OWNER")
	require.NoError(t, h.ChangePassword(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "password updated")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// sqlErrDuplicate mimics the MySQL duplicate key error text the driver
// produces on a unique index violation.
func sqlErrDuplicate() error {
	return &textError{"Error 1062 (23000): Duplicate entry 'ana@example.com' for key 'users.email'"}
}

type textError struct{ s string }

func (e *textError) Error() string { return e.s }
