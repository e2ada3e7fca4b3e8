package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/handyhub-payment-engine/internal/domain/shared"
)

// MockProcessingService for testing
type MockProcessingService struct {
	mock.Mock
}

func (m *MockProcessingService) ProcessPaymentEvent(ctx context.Context, event *shared.PaymentEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockDeadLetterPublisher for testing
type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error {
	args := m.Called(ctx, key, value, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestHandleMessage(t *testing.T) {
	mockProcessingService := &MockProcessingService{}
	mockDLQPublisher := &MockDeadLetterPublisher{}
	logger := slog.Default()

	handler := NewPaymentEventHandler(logger, mockProcessingService, mockDLQPublisher)

	validEvent := &shared.PaymentEvent{
		EventID:           "evt_1OzQpK2eZvKYlo2C",
		Type:              shared.PaymentEventTypeSucceeded,
		ExternalReference: "pi_3MtwBwLkdIwHu7ix28a3tqPa",
		Amount:            10500,
		Currency:          "USD",
		CorrelationID:     "corr1",
		OccurredAt:        time.Now(),
	}

	validJSON, err := json.Marshal(validEvent)
	assert.NoError(t, err)

	tests := []struct {
		name          string
		key           []byte
		value         []byte
		setupMocks    func()
		expectedError error
	}{
		{
			name:  "successful processing",
			key:   []byte("pi_3MtwBwLkdIwHu7ix28a3tqPa"),
			value: validJSON,
			setupMocks: func() {
				mockProcessingService.On("ProcessPaymentEvent", mock.Anything, mock.MatchedBy(func(event *shared.PaymentEvent) bool {
					return event.EventID == validEvent.EventID
				})).Return(nil)
			},
			expectedError: nil,
		},
		{
			name:  "processing error",
			key:   []byte("pi_3MtwBwLkdIwHu7ix28a3tqPa"),
			value: validJSON,
			setupMocks: func() {
				mockProcessingService.On("ProcessPaymentEvent", mock.Anything, mock.Anything).Return(errors.New("processing error"))
			},
			expectedError: errors.New("processing payment event"),
		},
		{
			name:  "unmarshal error with successful DLQ publish",
			key:   []byte("test-key"),
			value: []byte("invalid json"),
			setupMocks: func() {
				mockDLQPublisher.On("PublishToDLQ", mock.Anything, "test-key", []byte("invalid json"), mock.Anything).Return(nil)
			},
			expectedError: nil, // No error because message was successfully sent to DLQ
		},
		{
			name:  "unmarshal error with DLQ publish failure",
			key:   []byte("test-key"),
			value: []byte("invalid json"),
			setupMocks: func() {
				mockDLQPublisher.On("PublishToDLQ", mock.Anything, "test-key", []byte("invalid json"), mock.Anything).Return(errors.New("dlq error"))
			},
			expectedError: errors.New("failed to unmarshal"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockProcessingService = &MockProcessingService{}
			mockDLQPublisher = &MockDeadLetterPublisher{}
			mockDLQPublisher.On("Close").Return(nil).Maybe()

			handler = NewPaymentEventHandler(logger, mockProcessingService, mockDLQPublisher)

			tt.setupMocks()
			ctx := context.Background()

			err := handler.HandleMessage(ctx, tt.key, tt.value)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}

			mockProcessingService.AssertExpectations(t)
			mockDLQPublisher.AssertExpectations(t)
		})
	}
}
