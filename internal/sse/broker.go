// Package sse implements a Server-Sent Events broker for live search pages.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types.
const (
	TypeCardsRendered  = "cards.rendered"
	TypeCatalogChanged = "catalog.changed"
)

// Event represents an SSE event. An empty Topic broadcasts to every client;
// otherwise only clients subscribed to Topic receive it.
type Event struct {
	Topic string      `json:"-"`
	Type  string      `json:"type"`
	Data  interface{} `json:"data"`
}

type subscription struct {
	ch    chan []byte
	topic string
}

// Broker manages SSE client connections and delivers events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients + notice throttle timestamp). Public methods communicate with this loop
// through channels, so no mutexes are required.
type Broker struct {
	noticeMin time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	noticeCh      chan string
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. Catalog change notices are sent at
// most once per noticeThrottle.
func NewBroker(noticeThrottle time.Duration) *Broker {
	if noticeThrottle <= 0 {
		noticeThrottle = 2 * time.Second
	}

	b := &Broker{
		noticeMin:     noticeThrottle,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		noticeCh:      make(chan string, 16),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]string)
	var lastNotice time.Time

	deliver := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch, topic := range clients {
			if event.Topic != "" && event.Topic != topic {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub.topic

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			deliver(event)

		case path := <-b.noticeCh:
			now := time.Now()
			if now.Sub(lastNotice) >= b.noticeMin {
				lastNotice = now
				deliver(Event{Type: TypeCatalogChanged, Data: map[string]string{"path": path}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client listening on topic and returns its channel.
func (b *Broker) Subscribe(topic string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, topic: topic}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to the clients of its topic.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishCatalogChange broadcasts a throttled catalog.changed notice.
func (b *Broker) PublishCatalogChange(path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.noticeCh <- path:
	case <-b.stopped:
	}
}

// ServeTopic streams the events of topic to w until the request ends.
func (b *Broker) ServeTopic(w http.ResponseWriter, r *http.Request, topic string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Subscribe before the first flush: the client treats the stream as
	// open once it sees the headers and may publish right away.
	ch := b.Subscribe(topic)
	defer b.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}

// ServeHTTP streams the events of the topic named by the "session" query
// parameter.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.ServeTopic(w, r, r.URL.Query().Get("session"))
}
