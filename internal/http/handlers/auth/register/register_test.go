package register

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/tudomais/tudomais-backend/internal/models"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) Register(ctx context.Context, req models.RegisterRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func NewNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func validRequest() models.RegisterRequest {
	return models.RegisterRequest{
		Email:        "ana@example.com",
		Password:     "segredo-forte",
		Name:         "Ana Silva",
		BusinessName: "Padaria da Ana",
		Phone:        "+5511999999999",
		CPF:          "12345678901",
		BirthDate:    "1990-04-15",
	}
}

func TestRegisterHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		setupMocks func(service *ServiceMock)
		wantStatus int
	}{
		{
			name: "success",
			body: validRequest(),
			setupMocks: func(service *ServiceMock) {
				service.On("Register", mock.Anything, validRequest()).Return("uid-1", nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid body",
			body:       "{not json",
			setupMocks: func(service *ServiceMock) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "missing fields",
			body: models.RegisterRequest{Email: "ana@example.com"},
			setupMocks: func(service *ServiceMock) {
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "short cpf",
			body: func() models.RegisterRequest {
				req := validRequest()
				req.CPF = "123"
				return req
			}(),
			setupMocks: func(service *ServiceMock) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "trial already used",
			body: validRequest(),
			setupMocks: func(service *ServiceMock) {
				service.On("Register", mock.Anything, mock.Anything).
					Return("", fmt.Errorf("wrap: %w", models.ErrTrialAlreadyUsed)).Once()
			},
			wantStatus: http.StatusConflict,
		},
		{
			name: "email already registered",
			body: validRequest(),
			setupMocks: func(service *ServiceMock) {
				service.On("Register", mock.Anything, mock.Anything).
					Return("", fmt.Errorf("wrap: %w", models.ErrAlreadyRegistered)).Once()
			},
			wantStatus: http.StatusConflict,
		},
		{
			name: "underage",
			body: validRequest(),
			setupMocks: func(service *ServiceMock) {
				service.On("Register", mock.Anything, mock.Anything).
					Return("", fmt.Errorf("wrap: %w", models.ErrUnderage)).Once()
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "storage error",
			body: validRequest(),
			setupMocks: func(service *ServiceMock) {
				service.On("Register", mock.Anything, mock.Anything).
					Return("", fmt.Errorf("db down")).Once()
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(ServiceMock)
			tt.setupMocks(service)

			var body []byte
			switch v := tt.body.(type) {
			case string:
				body = []byte(v)
			default:
				var err error
				body, err = json.Marshal(v)
				assert.NoError(t, err)
			}

			handler := New(NewNoopLogger(), service)
			req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			service.AssertExpectations(t)
		})
	}
}
