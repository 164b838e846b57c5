package viewer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginatedSource_FollowsCursor(t *testing.T) {
	backend := scenarioBackend()
	src := NewPaginatedSource(backend)
	ctx := context.Background()

	assert.Nil(t, src.Data())
	assert.False(t, src.Exhausted())

	page, err := src.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, ids(page.Data))
	require.NotNil(t, page.NextPage)
	assert.Equal(t, "p2", *page.NextPage)

	page, err = src.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t3"}, ids(page.Data))
	assert.True(t, src.Exhausted())

	require.Len(t, backend.cursors, 2)
	assert.Nil(t, backend.cursors[0])
	assert.Equal(t, "p2", *backend.cursors[1])
}

func TestPaginatedSource_ExhaustedIssuesNoRequest(t *testing.T) {
	backend := scenarioBackend()
	src := NewPaginatedSource(backend)
	ctx := context.Background()

	_, err := src.FetchAll(ctx)
	require.NoError(t, err)
	_, err = src.FetchAll(ctx)
	require.NoError(t, err)

	_, err = src.FetchAll(ctx)
	assert.ErrorIs(t, err, ErrNoMorePages)
	assert.Equal(t, 2, backend.pageRequests())
	assert.False(t, src.Loading())
}

func TestPaginatedSource_InvalidateRestartsFromFirstPage(t *testing.T) {
	backend := scenarioBackend()
	src := NewPaginatedSource(backend)
	ctx := context.Background()

	_, err := src.FetchAll(ctx)
	require.NoError(t, err)

	src.InvalidateData()
	assert.Nil(t, src.Data())

	page, err := src.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, ids(page.Data))
	assert.Nil(t, backend.cursors[1])
}

func TestPaginatedSource_FailureClearsLoading(t *testing.T) {
	backend := scenarioBackend()
	src := NewPaginatedSource(backend)
	ctx := context.Background()

	_, err := src.FetchAll(ctx)
	require.NoError(t, err)

	backend.pageErr = errors.New("boom")
	_, err = src.FetchAll(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.False(t, src.Loading())

	// Stored page and cursor are untouched, so a retry asks for the same page.
	require.NotNil(t, src.Data())
	assert.Equal(t, []string{"t1", "t2"}, ids(src.Data().Data))

	backend.pageErr = nil
	page, err := src.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t3"}, ids(page.Data))
	assert.Equal(t, "p2", *backend.cursors[2])
}

func TestPaginatedSource_RejectsConcurrentFetch(t *testing.T) {
	backend := scenarioBackend()
	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	backend.setGate(gate, started)
	src := NewPaginatedSource(backend)

	done := make(chan error, 1)
	go func() {
		_, err := src.FetchAll(context.Background())
		done <- err
	}()
	<-started
	assert.True(t, src.Loading())

	_, err := src.FetchAll(context.Background())
	assert.ErrorIs(t, err, ErrFetchInFlight)

	close(gate)
	require.NoError(t, <-done)
	assert.False(t, src.Loading())
	assert.Equal(t, 1, backend.pageRequests())
}

func TestPaginatedSource_DiscardsResultAfterInvalidate(t *testing.T) {
	backend := scenarioBackend()
	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	backend.setGate(gate, started)
	src := NewPaginatedSource(backend)

	done := make(chan error, 1)
	go func() {
		_, err := src.FetchAll(context.Background())
		done <- err
	}()
	<-started

	src.InvalidateData()
	assert.False(t, src.Loading())

	close(gate)
	assert.ErrorIs(t, <-done, ErrStale)
	assert.Nil(t, src.Data())
}

func TestEmployeeSource_FetchByID(t *testing.T) {
	backend := scenarioBackend()
	src := NewEmployeeSource(backend)
	ctx := context.Background()

	txns, err := src.FetchByID(ctx, "e5")
	require.NoError(t, err)
	assert.Equal(t, []string{"t2", "t9"}, ids(txns))
	assert.Equal(t, "e5", src.EmployeeID())

	// An employee with no transactions still counts as loaded.
	txns, err = src.FetchByID(ctx, "e1")
	require.NoError(t, err)
	assert.Empty(t, txns)
	assert.NotNil(t, src.Data())
	assert.Equal(t, "e1", src.EmployeeID())

	src.InvalidateData()
	assert.Nil(t, src.Data())
	assert.Equal(t, "", src.EmployeeID())
}

func TestEmployeeSource_EmptyIDFailsFast(t *testing.T) {
	backend := scenarioBackend()
	src := NewEmployeeSource(backend)

	_, err := src.FetchByID(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, 0, backend.employeeRequests())
}

func TestEmployeeRoster_FetchAll(t *testing.T) {
	backend := scenarioBackend()
	roster := NewEmployeeRoster(backend)

	assert.Nil(t, roster.Data())
	assert.False(t, roster.Loaded())

	employees, err := roster.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, employees, 2)
	assert.True(t, roster.Loaded())
	assert.False(t, roster.Loading())
}
