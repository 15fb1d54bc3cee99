package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"rosterbot/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestProfileLookup_CachesProfiles(t *testing.T) {
	fetcher := new(MockProfileFetcher)
	fetcher.On("FetchProfile", mock.Anything, domain.UserID(100)).Return(anna, nil).Once()

	lookup := NewProfileLookup(fetcher, time.Minute, 0, nil, nil)
	defer lookup.Close()

	assert.Equal(t, anna, lookup.Profile(context.Background(), 100))
	assert.Equal(t, anna, lookup.Profile(context.Background(), 100))
	fetcher.AssertExpectations(t)
}

func TestProfileLookup_DegradesToUnknown(t *testing.T) {
	fetcher := new(MockProfileFetcher)
	fetcher.On("FetchProfile", mock.Anything, domain.UserID(5)).Return(domain.Profile{}, errors.New("api down"))
	metrics := newCountingMetrics()

	lookup := NewProfileLookup(fetcher, time.Minute, 0, metrics, nil)
	defer lookup.Close()

	assert.Equal(t, domain.UnknownProfile(), lookup.Profile(context.Background(), 5))
	assert.Equal(t, domain.UnknownProfile(), lookup.Profile(context.Background(), 5))

	// failures are not cached
	fetcher.AssertNumberOfCalls(t, "FetchProfile", 2)
	assert.Equal(t, 2, metrics.lookupFailures["profile"])
}

func TestProfileLookup_WithoutFetcher(t *testing.T) {
	lookup := NewProfileLookup(nil, 0, 0, nil, nil)
	assert.Equal(t, domain.UnknownProfile(), lookup.Profile(context.Background(), 1))
}
