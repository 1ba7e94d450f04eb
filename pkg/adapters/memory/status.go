package memory

import (
	"context"
	"io"
	"sync"

	"github.com/obeli-sk/webui/pkg/domain"
	"github.com/obeli-sk/webui/pkg/ports"
)

// statusStream delivers scripted status messages to one subscriber.
type statusStream struct {
	ctx context.Context
	ch  chan domain.StatusMessage

	closeOnce sync.Once
}

func (s *statusStream) Recv() (domain.StatusMessage, error) {
	select {
	case <-s.ctx.Done():
		return domain.StatusMessage{}, s.ctx.Err()
	case msg, ok := <-s.ch:
		if !ok {
			return domain.StatusMessage{}, io.EOF
		}
		return msg, nil
	}
}

func (s *statusStream) close() {
	s.closeOnce.Do(func() { close(s.ch) })
}

// GetStatus opens a subscription stream. The current status is delivered
// immediately; with follow the stream then stays open for messages pushed
// through PushStatus until the subscriber's context ends.
func (c *Client) GetStatus(ctx context.Context, id domain.ExecutionID, follow, sendFinishedStatus bool) (ports.StatusStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	stream := &statusStream{ctx: ctx, ch: make(chan domain.StatusMessage, 16)}
	if e, ok := c.executions[id]; ok {
		stream.ch <- domain.StatusMessage{ExecutionID: id, Status: e.status}
	}
	if !follow {
		stream.close()
		return stream, nil
	}
	c.subscribers[id] = append(c.subscribers[id], stream)
	return stream, nil
}

// PushStatus updates the execution's status and fans the message out to
// all follow subscribers. A finished message ends their streams.
func (c *Client) PushStatus(msg domain.StatusMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.exec(msg.ExecutionID).status = msg.Status

	remaining := c.subscribers[msg.ExecutionID][:0]
	for _, stream := range c.subscribers[msg.ExecutionID] {
		select {
		case stream.ch <- msg:
		case <-stream.ctx.Done():
			continue
		}
		if msg.IsFinished() {
			stream.close()
			continue
		}
		remaining = append(remaining, stream)
	}
	c.subscribers[msg.ExecutionID] = remaining
}
