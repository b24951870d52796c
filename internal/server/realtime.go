package server

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/659954771/meal-app/internal/meals"
	"github.com/gin-gonic/gin"
)

const (
	BoardEventMealChanged   = "meal-change"
	BoardEventRosterChanged = "roster-change"
	boardEventReady         = "ready"
	boardEventHeartbeat     = "heartbeat"

	defaultHeartbeatInterval = 25 * time.Second
)

// BoardMessage notifies admin boards that the resolved statuses of a date moved.
// An empty Date reaches every subscriber.
type BoardMessage struct {
	Date      string
	EventType string
	Phone     string
	Meal      string
	Status    meals.Status
	Timestamp time.Time
}

type boardEventPayload struct {
	Date      string `json:"date,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Meal      string `json:"meal,omitempty"`
	Status    string `json:"status,omitempty"`
	Slot      string `json:"slot,omitempty"`
	Timestamp string `json:"timestamp"`
}

// BoardDispatcher fans board messages out to the admin streams watching a date.
type BoardDispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*boardSubscriber
	nextID      int64
	bufferSize  int
}

type boardSubscriber struct {
	id     int64
	stream chan BoardMessage
}

func NewBoardDispatcher() *BoardDispatcher {
	return &BoardDispatcher{
		subscribers: make(map[string]map[int64]*boardSubscriber),
		bufferSize:  16,
	}
}

// Subscribe registers a stream for date until ctx ends or cleanup runs.
func (d *BoardDispatcher) Subscribe(ctx context.Context, date string) (<-chan BoardMessage, func()) {
	if date == "" {
		ch := make(chan BoardMessage)
		close(ch)
		return ch, func() {}
	}
	subscriber := &boardSubscriber{
		id:     d.nextSequence(),
		stream: make(chan BoardMessage, d.bufferSize),
	}
	d.registerSubscriber(date, subscriber)
	var once sync.Once
	cleanup := func() {
		once.Do(func() { d.unregisterSubscriber(date, subscriber.id) })
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

// Publish delivers without blocking. A subscriber with a full buffer misses the message.
func (d *BoardDispatcher) Publish(message BoardMessage) {
	if message.EventType == "" {
		return
	}
	d.mu.RLock()
	var copies []*boardSubscriber
	if message.Date == "" {
		for _, subscribers := range d.subscribers {
			for _, subscriber := range subscribers {
				copies = append(copies, subscriber)
			}
		}
	} else {
		for _, subscriber := range d.subscribers[message.Date] {
			copies = append(copies, subscriber)
		}
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- message:
		default:
		}
	}
}

// PublishChange forwards an accepted action log mutation.
func (d *BoardDispatcher) PublishChange(change meals.Change) {
	d.Publish(BoardMessage{
		Date:      change.Date,
		EventType: BoardEventMealChanged,
		Phone:     change.Identity.String(),
		Meal:      change.Meal.String(),
		Status:    change.Status,
		Timestamp: change.At.UTC(),
	})
}

func (d *BoardDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *BoardDispatcher) registerSubscriber(date string, subscriber *boardSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[date]; !ok {
		d.subscribers[date] = make(map[int64]*boardSubscriber)
	}
	d.subscribers[date][subscriber.id] = subscriber
}

func (d *BoardDispatcher) unregisterSubscriber(date string, subscriberID int64) {
	d.mu.Lock()
	subscribers := d.subscribers[date]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(d.subscribers, date)
		}
	}
	d.mu.Unlock()
}

func newBoardEventPayload(message BoardMessage) boardEventPayload {
	payload := boardEventPayload{
		Date:      message.Date,
		Phone:     message.Phone,
		Meal:      message.Meal,
		Timestamp: message.Timestamp.Format(time.RFC3339),
	}
	if message.EventType == BoardEventMealChanged {
		status := newStatusPayload(message.Status)
		payload.Status = status.Status
		payload.Slot = status.Slot
	}
	return payload
}

// handleBoardStream serves server-sent events for the board of ?date=.
func (h *httpHandler) handleBoardStream(c *gin.Context) {
	date, err := h.requestDate(c.Query("date"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	dateKey := meals.FormatDate(date)
	ctx := c.Request.Context()
	stream, cleanup := h.board.Subscribe(ctx, dateKey)
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.SSEvent(boardEventReady, boardEventPayload{Date: dateKey, Timestamp: h.clock().UTC().Format(time.RFC3339)})
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case message, ok := <-stream:
			if !ok {
				return false
			}
			c.SSEvent(message.EventType, newBoardEventPayload(message))
			return true
		case <-ticker.C:
			c.SSEvent(boardEventHeartbeat, boardEventPayload{Timestamp: h.clock().UTC().Format(time.RFC3339)})
			return true
		}
	})
}
