package eodobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockSummarizer struct {
	mock.Mock
}

func (m *mockSummarizer) SummarizeDay(ctx context.Context, day time.Time) (string, error) {
	args := m.Called(ctx, day)
	return args.String(0), args.Error(1)
}

func TestWrapPassesThrough(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	inner := &mockSummarizer{}
	inner.On("SummarizeDay", mock.Anything, day).Return("logs/eod/2026-03-01.csv", nil).Once()
	inner.On("SummarizeDay", mock.Anything, day.AddDate(0, 0, 1)).Return("", nil).Once()

	s := Wrap(inner)
	p, err := s.SummarizeDay(context.Background(), day)
	assert.NoError(t, err)
	assert.Equal(t, "logs/eod/2026-03-01.csv", p)

	p, err = s.SummarizeDay(context.Background(), day.AddDate(0, 0, 1))
	assert.NoError(t, err)
	assert.Empty(t, p)
	inner.AssertExpectations(t)
}

func TestWrapReturnsError(t *testing.T) {
	inner := &mockSummarizer{}
	inner.On("SummarizeDay", mock.Anything, mock.Anything).Return("", errors.New("disk full"))

	_, err := Wrap(inner).SummarizeDay(context.Background(), time.Now())
	assert.EqualError(t, err, "disk full")
}
