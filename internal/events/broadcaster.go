package events

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// WriteTimeout bounds a single write to a stream client.
const WriteTimeout = 2 * time.Second

// Client is one connected event stream.
type Client struct {
	ID      string
	Session string
	Writer  http.ResponseWriter
	Flusher http.Flusher
	Done    chan struct{}

	rc      *http.ResponseController
	writeMu sync.Mutex
}

func (c *Client) closed() bool {
	select {
	case <-c.Done:
		return true
	default:
		return false
	}
}

// Broadcaster fans events out to Server-Sent-Events clients. An event is
// delivered to the clients of its session only.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[string]*Client
	nextID  int
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: make(map[string]*Client)}
}

// AddClient registers w as a stream for session.
func (b *Broadcaster) AddClient(w http.ResponseWriter, session string) (*Client, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	b.mu.Lock()
	b.nextID++
	client := &Client{
		ID:      fmt.Sprintf("client-%d", b.nextID),
		Session: session,
		Writer:  w,
		Flusher: flusher,
		Done:    make(chan struct{}),
		rc:      http.NewResponseController(w),
	}
	b.clients[client.ID] = client
	total := len(b.clients)
	b.mu.Unlock()

	log.Debug().Str("clientId", client.ID).Str("session", session).Int("totalClients", total).Msg("event stream connected")
	return client, nil
}

// RemoveClient unregisters a client. Safe to call more than once.
func (b *Broadcaster) RemoveClient(client *Client) {
	b.mu.Lock()
	_, exists := b.clients[client.ID]
	delete(b.clients, client.ID)
	total := len(b.clients)
	b.mu.Unlock()

	if !exists {
		return
	}
	close(client.Done)
	log.Debug().Str("clientId", client.ID).Int("totalClients", total).Msg("event stream disconnected")
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Emit implements Emitter. Events without a session key are broadcast to
// every client.
func (b *Broadcaster) Emit(_ context.Context, name string, evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		log.Error().Err(err).Str("event", name).Msg("marshal stream event")
		return
	}
	message := fmt.Sprintf("event: %s\ndata: %s\n\n", name, data)

	b.mu.RLock()
	targets := make([]*Client, 0, len(b.clients))
	for _, c := range b.clients {
		if evt.SessionKey == "" || c.Session == evt.SessionKey {
			targets = append(targets, c)
		}
	}
	b.mu.RUnlock()

	var wg sync.WaitGroup
	dead := make(chan *Client, len(targets))
	for _, c := range targets {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			if !b.write(c, message) {
				dead <- c
			}
		}(c)
	}
	wg.Wait()
	close(dead)
	for c := range dead {
		b.RemoveClient(c)
	}
}

func (b *Broadcaster) write(c *Client, message string) bool {
	if c.closed() {
		return true
	}
	result := make(chan bool, 1)
	go func() {
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		// The stream may have ended while this write waited for the lock.
		if c.closed() {
			result <- true
			return
		}
		if _, err := c.Writer.Write([]byte(message)); err != nil {
			result <- false
			return
		}
		c.Flusher.Flush()
		result <- true
	}()

	select {
	case ok := <-result:
		return ok
	case <-c.Done:
		return true
	case <-time.After(WriteTimeout):
		log.Warn().Str("clientId", c.ID).Dur("timeout", WriteTimeout).Msg("event stream write timed out")
		return false
	}
}

// ServeStream holds the request open and streams session events until the
// client goes away.
func (b *Broadcaster) ServeStream(w http.ResponseWriter, r *http.Request, session string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client, err := b.AddClient(w, session)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer b.drain(client)

	client.writeMu.Lock()
	fmt.Fprintf(w, "event: connected\ndata: {\"clientId\":%q}\n\n", client.ID)
	client.Flusher.Flush()
	client.writeMu.Unlock()

	select {
	case <-r.Context().Done():
	case <-client.Done:
	}
}

// drain closes client and waits for any write still holding it, so nothing
// touches the ResponseWriter after the handler returns. Stuck writes are cut
// short through the write deadline where the writer supports one.
func (b *Broadcaster) drain(client *Client) {
	b.RemoveClient(client)
	_ = client.rc.SetWriteDeadline(time.Now())
	client.writeMu.Lock()
	defer client.writeMu.Unlock()
}
