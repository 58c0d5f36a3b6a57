package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"skillswap-service/internal/models"
)

const (
	// depth of each per-room queue; submissions beyond this are dropped
	roomQueueSize = 128

	// upper bound on one durable write
	persistTimeout = 10 * time.Second

	// a room worker with no traffic for this long retires
	defaultRoomIdleTimeout = time.Minute
)

// MessageStore is the durable append port. The relay broadcasts nothing
// that has not first gone through it.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg *models.ChatMessage) error
}

// EventPublisher mirrors stored messages onto a downstream stream for
// notification and analytics consumers. Failures are logged, never block
// delivery.
type EventPublisher interface {
	PublishMessage(msg *models.ChatMessage) error
}

type relayJob struct {
	sender *Client
	msg    *models.ChatMessage
}

// MessageRelay serializes chat traffic per room: one FIFO queue and one
// worker per room, so two messages submitted back to back are persisted and
// broadcast in submission order even when the store completes out of order
// under concurrency.
type MessageRelay struct {
	ctx    context.Context
	store  MessageStore
	router *RoomRouter
	stream EventPublisher // may be nil

	idleTimeout time.Duration

	mu     sync.Mutex
	queues map[string]chan relayJob
	closed bool
	wg     sync.WaitGroup
}

func NewMessageRelay(ctx context.Context, store MessageStore, router *RoomRouter, stream EventPublisher) *MessageRelay {
	return &MessageRelay{
		ctx:         ctx,
		store:       store,
		router:      router,
		stream:      stream,
		idleTimeout: defaultRoomIdleTimeout,
		queues:      make(map[string]chan relayJob),
	}
}

// Submit accepts an inbound chat or file event from sender. The sender must
// be bound to the room it claims to speak in; anything else is a protocol
// violation and is rejected.
func (r *MessageRelay) Submit(sender *Client, e *Event) error {
	roomID := e.RoomID
	if roomID == "" || !sender.Joined() || sender.Room() != roomID {
		return ErrNotInRoom
	}

	msg := &models.ChatMessage{
		ID:         uuid.New().String(),
		RoomID:     roomID,
		SenderID:   sender.UserID(),
		SenderName: sender.UserName(),
		CreatedAt:  time.Now().UTC(),
	}
	switch e.Type {
	case EventMessage:
		msg.Kind = models.MessageKindText
		msg.Content = e.Content
	case EventFileUploaded:
		msg.Kind = models.MessageKindFile
		msg.Filename = e.Filename
		msg.Filesize = e.Filesize
		msg.FileURL = e.FileURL
	default:
		return ErrUnsupportedEvent
	}

	// the enqueue happens under the lock; a buffered send with a default
	// arm never blocks, and holding the lock means a retiring worker can
	// never race a submission into a queue nobody drains
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRelayClosed
	}
	queue, ok := r.queues[roomID]
	if !ok {
		queue = make(chan relayJob, roomQueueSize)
		r.queues[roomID] = queue
		r.wg.Add(1)
		go r.worker(roomID, queue)
	}

	select {
	case queue <- relayJob{sender: sender, msg: msg}:
		r.mu.Unlock()
		return nil
	default:
		r.mu.Unlock()
		slog.Warn("Room queue full, rejecting message", "roomID", roomID, "senderID", msg.SenderID)
		sender.Send(NewErrorEvent(roomID, "message rejected: room is congested"))
		return ErrRoomCongested
	}
}

// worker drains one room's queue in order: durable write first, broadcast
// of the canonical stored form second. A worker whose room sees no traffic
// for idleTimeout retires, so goroutine count tracks active rooms rather
// than every room the process ever served.
func (r *MessageRelay) worker(roomID string, queue chan relayJob) {
	defer r.wg.Done()

	idle := time.NewTimer(r.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case job, ok := <-queue:
			if !ok {
				return
			}
			r.process(roomID, job)

			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(r.idleTimeout)

		case <-idle.C:
			if r.retire(roomID, queue) {
				return
			}
			idle.Reset(r.idleTimeout)
		}
	}
}

// retire unmaps an idle room's queue. It declines while the relay is
// closing (Close owns the queues then) or if a submission slipped in.
func (r *MessageRelay) retire(roomID string, queue chan relayJob) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || len(queue) > 0 {
		return false
	}
	delete(r.queues, roomID)
	return true
}

// process is one relay step. Store failure is surfaced to the sender only;
// there is no automatic retry.
func (r *MessageRelay) process(roomID string, job relayJob) {
	ctx, cancel := context.WithTimeout(r.ctx, persistTimeout)
	err := r.store.SaveMessage(ctx, job.msg)
	cancel()

	if err != nil {
		slog.Error("Message persistence failed", "roomID", roomID, "messageID", job.msg.ID, "error", err)
		job.sender.Send(NewErrorEvent(roomID, "message could not be delivered"))
		return
	}

	payload, err := NewStoredMessageEvent(job.msg).Encode()
	if err != nil {
		slog.Error("Failed to encode stored message", "messageID", job.msg.ID, "error", err)
		return
	}
	r.router.Broadcast(roomID, payload, nil)

	if r.stream != nil {
		go func(msg *models.ChatMessage) {
			if err := r.stream.PublishMessage(msg); err != nil {
				slog.Warn("Event stream publish failed", "messageID", msg.ID, "error", err)
			}
		}(job.msg)
	}
}

// Close stops accepting submissions and waits for in-flight work to drain.
func (r *MessageRelay) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for _, queue := range r.queues {
		close(queue)
	}
	r.mu.Unlock()

	r.wg.Wait()
}
