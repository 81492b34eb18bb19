package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// claimedRow plays the RETURNING row of a successful claim.
type claimedRow struct{}

func (claimedRow) Scan(dest ...any) error {
	now := time.Now().UTC()
	org := "org-1"
	worker := "w-1"
	*dest[0].(*string) = "job-1"
	*dest[1].(**string) = &org
	*dest[2].(*domain.JobType) = domain.JobTypeTicketTriage
	*dest[3].(*json.RawMessage) = json.RawMessage(`{}`)
	*dest[4].(*domain.JobStatus) = domain.JobStatusRunning
	*dest[5].(*domain.TicketPriority) = domain.TicketPriorityMedium
	*dest[7].(**string) = &worker
	*dest[8].(**time.Time) = &now
	*dest[9].(*int) = 0
	*dest[11].(*time.Time) = now
	*dest[12].(*time.Time) = now
	return nil
}

type claimQuerier struct {
	execErr   error
	execCount int
}

func (q *claimQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	q.execCount++
	return pgconn.CommandTag{}, q.execErr
}

func (q *claimQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected query")
}

func (q *claimQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	return claimedRow{}
}

func TestClaimRecordsTraceEvent(t *testing.T) {
	q := &claimQuerier{}
	repo := NewJobRepository(q)

	job, err := repo.Claim(context.Background(), "w-1")

	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, 1, q.execCount, "claimed event is appended")
}

func TestClaimSurfacesTraceInsertFailure(t *testing.T) {
	q := &claimQuerier{execErr: errors.New("job_events insert failed")}
	repo := NewJobRepository(q)

	job, err := repo.Claim(context.Background(), "w-1")

	require.Error(t, err)
	assert.ErrorContains(t, err, "job_events insert failed")
	assert.Nil(t, job)
}
