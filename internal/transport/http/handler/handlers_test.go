package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/campus-chat-api/internal/application/chat"
	"github.com/campus-chat-api/internal/domain"
	"github.com/campus-chat-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- mocks ---

type mockOTPSvc struct{ mock.Mock }

func (m *mockOTPSvc) RequestOTP(ctx context.Context, userID, email string) error {
	return m.Called(ctx, userID, email).Error(0)
}

func (m *mockOTPSvc) VerifyOTP(ctx context.Context, userID, email, code string) (bool, error) {
	args := m.Called(ctx, userID, email, code)
	return args.Bool(0), args.Error(1)
}

type mockProfileSvc struct{ mock.Mock }

func (m *mockProfileSvc) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProfileSvc) UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) ([]string, error) {
	args := m.Called(ctx, userID, req)
	fields, _ := args.Get(0).([]string)
	return fields, args.Error(1)
}

type mockAvatarSvc struct{ mock.Mock }

func (m *mockAvatarSvc) Upload(ctx context.Context, userID string, r io.Reader, size int64, contentType string) (string, error) {
	args := m.Called(ctx, userID, r, size, contentType)
	return args.String(0), args.Error(1)
}

type mockChatSvc struct{ mock.Mock }

func (m *mockChatSvc) IssueToken(ctx context.Context, userID string) (*chat.Token, error) {
	args := m.Called(ctx, userID)
	if t, _ := args.Get(0).(*chat.Token); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

var alice = domain.Identity{UserID: "u1", Email: "alice@school.edu.ph"}

// authed builds a request that already carries id, as middleware.Auth would leave it.
func authed(method, target string, body io.Reader, id domain.Identity) *http.Request {
	r := httptest.NewRequest(method, target, body)
	return r.WithContext(middleware.WithIdentity(r.Context(), id))
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func assertError(t *testing.T, rr *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	assert.Equal(t, status, rr.Code)
	assert.Equal(t, map[string]interface{}{"Error": msg}, decodeEnvelope(t, rr))
}

func assertSuccess(t *testing.T, rr *httptest.ResponseRecorder, want interface{}) {
	t.Helper()
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, want, decodeEnvelope(t, rr)["Success"])
}

// --- send-otp ---

func TestSendOTP_Success(t *testing.T) {
	svc := &mockOTPSvc{}
	svc.On("RequestOTP", mock.Anything, "u1", "alice@school.edu.ph").Return(nil)
	h := NewOTPHandler(svc, zap.NewNop())

	rr := httptest.NewRecorder()
	h.Send(rr, authed(http.MethodPost, "/send-otp", nil, alice))

	assertSuccess(t, rr, "OTP sent successfully")
	svc.AssertExpectations(t)
}

func TestSendOTP_MissingEmail(t *testing.T) {
	h := NewOTPHandler(&mockOTPSvc{}, zap.NewNop())
	rr := httptest.NewRecorder()
	h.Send(rr, authed(http.MethodPost, "/send-otp", nil, domain.Identity{UserID: "u1"}))
	assertError(t, rr, http.StatusBadRequest, "UID or Email is missing from token")
}

func TestSendOTP_ServiceErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"already verified", domain.ErrAlreadyVerified, http.StatusBadRequest, "User is already verified"},
		{"store down", fmt.Errorf("put: %w", domain.ErrStoreUnavailable), http.StatusInternalServerError, "Unable to process OTP request"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockOTPSvc{}
			svc.On("RequestOTP", mock.Anything, "u1", alice.Email).Return(tc.err)
			rr := httptest.NewRecorder()
			NewOTPHandler(svc, zap.NewNop()).Send(rr, authed(http.MethodPost, "/send-otp", nil, alice))
			assertError(t, rr, tc.status, tc.msg)
		})
	}
}

// --- verify-otp ---

func TestVerifyOTP_Student(t *testing.T) {
	svc := &mockOTPSvc{}
	svc.On("VerifyOTP", mock.Anything, "u1", alice.Email, "1234").Return(true, nil)
	rr := httptest.NewRecorder()
	NewOTPHandler(svc, zap.NewNop()).Verify(rr, authed(http.MethodPost, "/verify-otp", bytes.NewBufferString(`{"otp":"1234"}`), alice))
	assertSuccess(t, rr, "OTP verified and student verified")
}

func TestVerifyOTP_NonStudent(t *testing.T) {
	svc := &mockOTPSvc{}
	bob := domain.Identity{UserID: "u2", Email: "bob@gmail.com"}
	svc.On("VerifyOTP", mock.Anything, "u2", bob.Email, "0042").Return(false, nil)
	rr := httptest.NewRecorder()
	NewOTPHandler(svc, zap.NewNop()).Verify(rr, authed(http.MethodPost, "/verify-otp", bytes.NewBufferString(`{"otp":"0042"}`), bob))
	assertSuccess(t, rr, "OTP verified but user is not a student")
}

func TestVerifyOTP_MissingCode(t *testing.T) {
	for name, body := range map[string]string{
		"empty body":   ``,
		"empty string": `{"otp":""}`,
		"no field":     `{}`,
		"numeric":      `{"otp":1234}`,
	} {
		t.Run(name, func(t *testing.T) {
			svc := &mockOTPSvc{}
			rr := httptest.NewRecorder()
			NewOTPHandler(svc, zap.NewNop()).Verify(rr, authed(http.MethodPost, "/verify-otp", bytes.NewBufferString(body), alice))
			assertError(t, rr, http.StatusBadRequest, "OTP is required")
			svc.AssertNotCalled(t, "VerifyOTP", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestVerifyOTP_ServiceErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{domain.ErrNoPendingOTP, http.StatusBadRequest, "OTP not found or expired"},
		{domain.ErrOTPExpired, http.StatusBadRequest, "OTP has expired"},
		{domain.ErrInvalidCode, http.StatusBadRequest, "Invalid OTP"},
		{domain.ErrTooManyAttempts, http.StatusTooManyRequests, "Too many failed attempts, request a new OTP"},
		{errors.New("boom"), http.StatusInternalServerError, "Unable to verify OTP"},
	}
	for _, tc := range cases {
		t.Run(tc.msg, func(t *testing.T) {
			svc := &mockOTPSvc{}
			svc.On("VerifyOTP", mock.Anything, "u1", alice.Email, "9999").Return(false, tc.err)
			rr := httptest.NewRecorder()
			NewOTPHandler(svc, zap.NewNop()).Verify(rr, authed(http.MethodPost, "/verify-otp", bytes.NewBufferString(`{"otp":"9999"}`), alice))
			assertError(t, rr, tc.status, tc.msg)
		})
	}
}

// --- update-user-details ---

func TestUpdateDetails_Success(t *testing.T) {
	svc := &mockProfileSvc{}
	name, username := "Jane", "jane"
	svc.On("UpdateProfile", mock.Anything, "u1", domain.UpdateProfileRequest{Name: &name, Username: &username}).
		Return([]string{"name", "username"}, nil)

	rr := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"name":"Jane","username":"jane"}`)
	NewProfileHandler(svc, zap.NewNop()).Update(rr, authed(http.MethodPost, "/update-user-details", body, alice))

	assertSuccess(t, rr, "User details updated successfully")
	svc.AssertExpectations(t)
}

func TestUpdateDetails_EmptyBodyReachesService(t *testing.T) {
	svc := &mockProfileSvc{}
	svc.On("UpdateProfile", mock.Anything, "u1", domain.UpdateProfileRequest{}).Return(nil, domain.ErrNotVerified)

	rr := httptest.NewRecorder()
	NewProfileHandler(svc, zap.NewNop()).Update(rr, authed(http.MethodPost, "/update-user-details", http.NoBody, alice))

	assertError(t, rr, http.StatusForbidden, "Email must be verified before updating details")
}

func TestUpdateDetails_UnknownFieldRejected(t *testing.T) {
	svc := &mockProfileSvc{}
	rr := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"emailVerified":true}`)
	NewProfileHandler(svc, zap.NewNop()).Update(rr, authed(http.MethodPost, "/update-user-details", body, alice))
	assertError(t, rr, http.StatusBadRequest, "Invalid request body")
	svc.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateDetails_NoUID(t *testing.T) {
	rr := httptest.NewRecorder()
	NewProfileHandler(&mockProfileSvc{}, zap.NewNop()).Update(rr, httptest.NewRequest(http.MethodPost, "/update-user-details", nil))
	assertError(t, rr, http.StatusBadRequest, "Token has no UID or is invalid")
}

func TestUpdateDetails_ServiceErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{domain.ErrUserNotFound, http.StatusBadRequest, "User does not exist"},
		{domain.ErrEmptyUpdate, http.StatusBadRequest, "At least one field is required to update"},
		{domain.ErrIncompleteInitialProfile, http.StatusBadRequest, "Name and Username are required initially"},
		{fmt.Errorf("%q: %w", "jane", domain.ErrUsernameTaken), http.StatusBadRequest, "Username is already taken"},
		{fmt.Errorf("%w: field 'Bio' failed 'max'", domain.ErrInvalidField), http.StatusBadRequest, "invalid field: field 'Bio' failed 'max'"},
		{domain.ErrConcurrentUpdate, http.StatusConflict, "User details were changed by another request, please retry"},
		{domain.ErrStoreUnavailable, http.StatusInternalServerError, "Unable to update user details"},
	}
	for _, tc := range cases {
		t.Run(tc.msg, func(t *testing.T) {
			svc := &mockProfileSvc{}
			svc.On("UpdateProfile", mock.Anything, "u1", mock.Anything).Return(nil, tc.err)
			rr := httptest.NewRecorder()
			body := bytes.NewBufferString(`{"bio":"hi"}`)
			NewProfileHandler(svc, zap.NewNop()).Update(rr, authed(http.MethodPost, "/update-user-details", body, alice))
			assertError(t, rr, tc.status, tc.msg)
		})
	}
}

// --- user-details ---

func TestGetDetails(t *testing.T) {
	svc := &mockProfileSvc{}
	username := "jane"
	svc.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Name: "Jane", Username: &username, EmailVerified: true, Version: 3}, nil)

	rr := httptest.NewRecorder()
	NewProfileHandler(svc, zap.NewNop()).Get(rr, authed(http.MethodGet, "/user-details", nil, alice))

	require.Equal(t, http.StatusOK, rr.Code)
	doc, ok := decodeEnvelope(t, rr)["Success"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "jane", doc["username"])
	assert.Equal(t, true, doc["emailVerified"])
	assert.NotContains(t, doc, "version")
}

func TestGetDetails_NotFound(t *testing.T) {
	svc := &mockProfileSvc{}
	svc.On("Get", mock.Anything, "u1").Return(nil, domain.ErrUserNotFound)
	rr := httptest.NewRecorder()
	NewProfileHandler(svc, zap.NewNop()).Get(rr, authed(http.MethodGet, "/user-details", nil, alice))
	assertError(t, rr, http.StatusNotFound, "User does not exist")
}

// --- upload-profile-pic ---

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func multipartBody(t *testing.T, field string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile(field, "me.png")
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestUploadAvatar_SniffsContentType(t *testing.T) {
	svc := &mockAvatarSvc{}
	svc.On("Upload", mock.Anything, "u1", mock.Anything, int64(len(pngHeader)), "image/png").
		Return("https://cdn.example/profile-pics/u1/x.png", nil)

	body, ct := multipartBody(t, "file", pngHeader)
	r := authed(http.MethodPost, "/upload-profile-pic", body, alice)
	r.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	NewAvatarHandler(svc, 1<<20, zap.NewNop()).Upload(rr, r)

	assertSuccess(t, rr, "https://cdn.example/profile-pics/u1/x.png")
	svc.AssertExpectations(t)
}

func TestUploadAvatar_MissingFile(t *testing.T) {
	svc := &mockAvatarSvc{}
	body, ct := multipartBody(t, "picture", pngHeader)
	r := authed(http.MethodPost, "/upload-profile-pic", body, alice)
	r.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	NewAvatarHandler(svc, 1<<20, zap.NewNop()).Upload(rr, r)
	assertError(t, rr, http.StatusBadRequest, "A file field is required")
}

func TestUploadAvatar_ServiceErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{domain.ErrUnsupportedMedia, http.StatusUnsupportedMediaType, "Only JPEG, PNG or WebP images are accepted"},
		{domain.ErrTooLarge, http.StatusRequestEntityTooLarge, "File is too large"},
		{domain.ErrNotVerified, http.StatusForbidden, "Email must be verified before uploading a profile picture"},
		{errors.New("s3 down"), http.StatusInternalServerError, "Unable to upload profile picture"},
	}
	for _, tc := range cases {
		t.Run(tc.msg, func(t *testing.T) {
			svc := &mockAvatarSvc{}
			svc.On("Upload", mock.Anything, "u1", mock.Anything, mock.Anything, mock.Anything).Return("", tc.err)
			body, ct := multipartBody(t, "file", pngHeader)
			r := authed(http.MethodPost, "/upload-profile-pic", body, alice)
			r.Header.Set("Content-Type", ct)
			rr := httptest.NewRecorder()
			NewAvatarHandler(svc, 1<<20, zap.NewNop()).Upload(rr, r)
			assertError(t, rr, tc.status, tc.msg)
		})
	}
}

// --- chat-token ---

func TestChatToken(t *testing.T) {
	svc := &mockChatSvc{}
	exp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.On("IssueToken", mock.Anything, "u1").Return(&chat.Token{Token: "t", APIKey: "k", UserID: "u1", ExpiresAt: exp}, nil)

	rr := httptest.NewRecorder()
	NewChatHandler(svc, zap.NewNop()).Token(rr, authed(http.MethodPost, "/chat-token", nil, alice))

	require.Equal(t, http.StatusOK, rr.Code)
	tok, ok := decodeEnvelope(t, rr)["Success"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "t", tok["token"])
	assert.Equal(t, "k", tok["apiKey"])
}

func TestChatToken_Unverified(t *testing.T) {
	svc := &mockChatSvc{}
	svc.On("IssueToken", mock.Anything, "u1").Return(nil, domain.ErrNotVerified)
	rr := httptest.NewRecorder()
	NewChatHandler(svc, zap.NewNop()).Token(rr, authed(http.MethodPost, "/chat-token", nil, alice))
	assertError(t, rr, http.StatusForbidden, "Email must be verified before chatting")
}

// --- health-check ---

func withAction(r *http.Request, action string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("action", action)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestHealth(t *testing.T) {
	h := NewHealthHandler()

	rr := httptest.NewRecorder()
	h.Ping(rr, withAction(httptest.NewRequest(http.MethodGet, "/health-check/ping", nil), "ping"))
	assertSuccess(t, rr, "pong")

	rr = httptest.NewRecorder()
	h.Ping(rr, withAction(httptest.NewRequest(http.MethodGet, "/health-check/other", nil), "other"))
	assertError(t, rr, http.StatusBadRequest, "Unknown action")
}
