package status_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obeli-sk/webui/pkg/adapters/memory"
	"github.com/obeli-sk/webui/pkg/domain"
	"github.com/obeli-sk/webui/pkg/ports"
	"github.com/obeli-sk/webui/pkg/status"
)

var execA = domain.ExecutionID{ID: "E_A"}

type countingStatusClient struct {
	*memory.Client
	opened atomic.Int64
}

func (c *countingStatusClient) GetStatus(ctx context.Context, id domain.ExecutionID, follow, sendFinishedStatus bool) (ports.StatusStream, error) {
	c.opened.Add(1)
	return c.Client.GetStatus(ctx, id, follow, sendFinishedStatus)
}

func waitForStatus(t *testing.T, w *status.Watcher, id domain.ExecutionID, want domain.ExecutionStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		msg, ok := w.Status(id)
		return ok && msg.Status == want
	}, time.Second, 5*time.Millisecond)
}

func TestWatcher_DeliversInitialStatus(t *testing.T) {
	client := memory.NewClient()
	client.SetStatus(execA, domain.StatusLocked)

	w := status.NewWatcher(client)
	cancel := w.Subscribe(context.Background(), execA, true)
	defer cancel()

	waitForStatus(t, w, execA, domain.StatusLocked)
}

func TestWatcher_FollowsPushedUpdates(t *testing.T) {
	client := memory.NewClient()
	client.SetStatus(execA, domain.StatusPending)

	w := status.NewWatcher(client)
	cancel := w.Subscribe(context.Background(), execA, true)
	defer cancel()

	waitForStatus(t, w, execA, domain.StatusPending)

	client.PushStatus(domain.StatusMessage{ExecutionID: execA, Status: domain.StatusLocked})
	waitForStatus(t, w, execA, domain.StatusLocked)

	client.PushStatus(domain.StatusMessage{
		ExecutionID: execA,
		Status:      domain.StatusFinished,
		Finished:    &domain.FinishedStatus{FinishedAt: time.Now(), Result: domain.ResultDetail{OK: true}},
	})
	waitForStatus(t, w, execA, domain.StatusFinished)

	msg, _ := w.Status(execA)
	require.NotNil(t, msg.Finished)
	assert.True(t, msg.Finished.Result.OK)
}

func TestWatcher_SkipsSubscriptionWhenAlreadyFinished(t *testing.T) {
	client := &countingStatusClient{Client: memory.NewClient()}
	client.SetStatus(execA, domain.StatusPending)

	w := status.NewWatcher(client)
	cancel := w.Subscribe(context.Background(), execA, true)
	defer cancel()

	client.PushStatus(domain.StatusMessage{
		ExecutionID: execA,
		Status:      domain.StatusFinished,
		Finished:    &domain.FinishedStatus{FinishedAt: time.Now()},
	})
	require.Eventually(t, func() bool {
		msg, ok := w.Status(execA)
		return ok && msg.Finished != nil
	}, time.Second, 5*time.Millisecond)

	opened := client.opened.Load()
	teardown := w.Subscribe(context.Background(), execA, true)
	teardown()
	assert.Equal(t, opened, client.opened.Load(), "final cached status needs no new stream")
}

func TestWatcher_TeardownStopsUpdates(t *testing.T) {
	client := memory.NewClient()
	client.SetStatus(execA, domain.StatusPending)

	w := status.NewWatcher(client)
	cancel := w.Subscribe(context.Background(), execA, true)
	waitForStatus(t, w, execA, domain.StatusPending)

	cancel()
	time.Sleep(10 * time.Millisecond)

	client.PushStatus(domain.StatusMessage{ExecutionID: execA, Status: domain.StatusLocked})
	time.Sleep(10 * time.Millisecond)

	msg, ok := w.Status(execA)
	require.True(t, ok)
	assert.Equal(t, domain.StatusPending, msg.Status, "post-teardown messages are dropped")
}
