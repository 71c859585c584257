package web

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewJSONHandler(io.Discard, nil))

func Test_ParseID(t *testing.T) {
	testCases := []struct {
		name         string
		pathValue    string
		expectedID   int64
		expectedOK   bool
		expectedBody string
	}{
		{name: "valid id", pathValue: "42", expectedID: 42, expectedOK: true},
		{name: "zero id", pathValue: "0", expectedOK: false, expectedBody: `{"error":"Invalid id: 0"}`},
		{name: "negative id", pathValue: "-3", expectedOK: false, expectedBody: `{"error":"Invalid id: -3"}`},
		{name: "not a number", pathValue: "abc", expectedOK: false, expectedBody: `{"error":"Invalid id: abc"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			req := httptest.NewRequest(http.MethodGet, "/api/v1/beers/"+tc.pathValue, nil)
			req.SetPathValue("id", tc.pathValue)
			rr := httptest.NewRecorder()

			// when
			id, ok := ParseID(rr, req, discard)

			// then
			assert.Equal(t, tc.expectedOK, ok)
			assert.Equal(t, tc.expectedID, id)
			if !tc.expectedOK {
				assert.Equal(t, http.StatusBadRequest, rr.Code)
				assert.JSONEq(t, tc.expectedBody, rr.Body.String())
			}
		})
	}
}

type payload struct {
	Name     string `json:"name" validate:"required,max=5"`
	Quantity int    `json:"quantity" validate:"min=0,max=100"`
}

func Test_DecodeValid(t *testing.T) {
	testCases := []struct {
		name         string
		body         string
		expectedOK   bool
		expectedBody string
	}{
		{name: "valid body", body: `{"name":"IPA","quantity":10}`, expectedOK: true},
		{name: "malformed body", body: `{"name":`, expectedOK: false, expectedBody: `{"error":"Invalid request body"}`},
		{
			name:         "validation errors",
			body:         `{"name":"","quantity":101}`,
			expectedOK:   false,
			expectedBody: `{"validation_errors":{"Name":"failed on rule: required","Quantity":"failed on rule: max"}}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			var dst payload

			// when
			ok := DecodeValid(rr, req, discard, validator.New(), &dst)

			// then
			assert.Equal(t, tc.expectedOK, ok)
			if !tc.expectedOK {
				assert.Equal(t, http.StatusBadRequest, rr.Code)
				assert.JSONEq(t, tc.expectedBody, rr.Body.String())
			}
		})
	}
}

func Test_RespondJSON_NilPayload(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondJSON(rr, discard, http.StatusNoContent, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
}

func Test_RequestIDInjector(t *testing.T) {
	var seen string
	handler := RequestIDInjector(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetReqID(r.Context())
	}))

	t.Run("propagates incoming header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestHeader, "abc-123")
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", rr.Header().Get(RequestHeader))
	})

	t.Run("generates id when missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		require.NotEmpty(t, seen)
		assert.Equal(t, seen, rr.Header().Get(RequestHeader))
	})
}

func Test_Recoverer(t *testing.T) {
	handler := Recoverer(discard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
