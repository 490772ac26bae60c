// Package remote implements the adapter for the remote delegation
// endpoint: function calls serialized over a bidirectional websocket
// channel with correlated request/response pairs.
package remote

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/Scilence2022/CodeXomics-sub009/pkg/registry"
)

// CatalogFunction describes one function the delegate advertises
type CatalogFunction struct {
	Name         string               `json:"name"`
	Description  string               `json:"description,omitempty"`
	Parameters   []registry.Parameter `json:"parameters,omitempty"`
	PriorityHint int                  `json:"priority_hint,omitempty"`
}

// callRequest is the wire format of a delegated call
type callRequest struct {
	ID            string                 `json:"id"`
	QualifiedName string                 `json:"qualifiedName"`
	Parameters    map[string]interface{} `json:"parameters,omitempty"`
}

// serverMessage is the wire format of messages from the delegate: either a
// correlated call response or a catalog announcement.
type serverMessage struct {
	ID           string            `json:"id,omitempty"`
	Event        string            `json:"event,omitempty"`
	Functions    []CatalogFunction `json:"functions,omitempty"`
	Success      bool              `json:"success"`
	Value        interface{}       `json:"value,omitempty"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
}

// Delegate maintains the websocket channel to the remote delegation
// endpoint. The delegate announces its function catalog after connect;
// catalog changes bump the version counter.
type Delegate struct {
	logger      zerolog.Logger
	endpoint    string
	callTimeout time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	pending   map[string]chan serverMessage
	catalog   []CatalogFunction
	connected bool

	version atomic.Uint64
}

// Options configures the delegate client
type Options struct {
	Endpoint    string
	CallTimeout time.Duration
}

// NewDelegate creates a delegate client. Connect must be called before
// calls can be delegated.
func NewDelegate(logger zerolog.Logger, opts Options) *Delegate {
	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Delegate{
		logger:      logger.With().Str("component", "remote-delegate").Logger(),
		endpoint:    opts.Endpoint,
		callTimeout: timeout,
		pending:     make(map[string]chan serverMessage),
	}
}

// Connect dials the delegation endpoint and starts the read loop
func (d *Delegate) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, d.endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", d.endpoint, registry.ErrTransport)
	}

	d.mu.Lock()
	d.conn = conn
	d.connected = true
	d.mu.Unlock()

	go d.readLoop(conn)

	d.logger.Info().Str("endpoint", d.endpoint).Msg("Connected to remote delegate")
	return nil
}

func (d *Delegate) readLoop(conn *websocket.Conn) {
	for {
		var msg serverMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				d.logger.Warn().Err(err).Msg("Remote delegate connection lost")
			}
			d.failPending()
			return
		}

		if msg.Event == "catalog" {
			d.SetCatalog(msg.Functions)
			continue
		}

		d.mu.Lock()
		ch, ok := d.pending[msg.ID]
		if ok {
			delete(d.pending, msg.ID)
		}
		d.mu.Unlock()

		if ok {
			ch <- msg
		}
	}
}

// failPending marks the channel dead and releases every waiting caller
func (d *Delegate) failPending() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.connected = false
	d.conn = nil
	for id, ch := range d.pending {
		close(ch)
		delete(d.pending, id)
	}
}

// SetCatalog replaces the advertised function catalog
func (d *Delegate) SetCatalog(functions []CatalogFunction) {
	d.mu.Lock()
	d.catalog = functions
	d.mu.Unlock()
	d.version.Add(1)

	d.logger.Debug().Int("functions", len(functions)).Msg("Remote catalog updated")
}

// Catalog returns a snapshot of the advertised functions
func (d *Delegate) Catalog() []CatalogFunction {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]CatalogFunction(nil), d.catalog...)
}

// Version returns the catalog version counter
func (d *Delegate) Version() uint64 {
	return d.version.Load()
}

// Call delegates one function call and waits for the correlated response
func (d *Delegate) Call(ctx context.Context, qualifiedName string, params map[string]interface{}) (interface{}, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate request id: %w", err)
	}

	ch := make(chan serverMessage, 1)

	d.mu.Lock()
	if !d.connected || d.conn == nil {
		d.mu.Unlock()
		return nil, fmt.Errorf("%s: delegate not connected: %w", qualifiedName, registry.ErrTransport)
	}
	d.pending[id] = ch
	conn := d.conn
	writeErr := conn.WriteJSON(callRequest{ID: id, QualifiedName: qualifiedName, Parameters: params})
	if writeErr != nil {
		delete(d.pending, id)
	}
	d.mu.Unlock()

	if writeErr != nil {
		return nil, fmt.Errorf("%s: write failed: %w", qualifiedName, registry.ErrTransport)
	}

	timer := time.NewTimer(d.callTimeout)
	defer timer.Stop()

	select {
	case msg, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("%s: connection lost: %w", qualifiedName, registry.ErrTransport)
		}
		if !msg.Success {
			return nil, &registry.RemoteError{Function: qualifiedName, Message: msg.ErrorMessage}
		}
		return msg.Value, nil

	case <-timer.C:
		d.dropPending(id)
		return nil, fmt.Errorf("%s: delegate response timed out: %w", qualifiedName, registry.ErrTransport)

	case <-ctx.Done():
		d.dropPending(id)
		return nil, ctx.Err()
	}
}

func (d *Delegate) dropPending(id string) {
	d.mu.Lock()
	delete(d.pending, id)
	d.mu.Unlock()
}

// Close closes the channel to the delegate
func (d *Delegate) Close() error {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}
