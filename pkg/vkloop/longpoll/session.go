// Package longpoll maintains a user long-poll session.
//
// A Session owns the rotating server credentials (server, key, ts),
// fetches update batches, and repairs itself after the protocol's
// failure codes. Credentials can be persisted through a cursor.Store so
// a restart resumes from the last confirmed cursor instead of dropping
// the backlog accumulated while the process was down.
package longpoll

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mkorobkov/vkloop/pkg/vkloop/api"
	"github.com/mkorobkov/vkloop/pkg/vkloop/cursor"
	"github.com/mkorobkov/vkloop/pkg/vkloop/event"
	"github.com/mkorobkov/vkloop/pkg/vkloop/observability"
)

// Behaviour flags for the mode query parameter.
const (
	ModeAttachments = 2
	ModeExtended    = 8
	ModePTS         = 32
	ModeExtraOnline = 64
	ModeRandomID    = 128
)

// DefaultMode requests attachments, the extended event set, pts,
// online platform details, and random IDs.
const DefaultMode = ModeAttachments | ModeExtended | ModePTS | ModeExtraOnline | ModeRandomID

const (
	// DefaultWait is how long the server may hold an idle connection.
	DefaultWait = 20 * time.Second

	// DefaultBackoff is the pause before re-acquiring credentials after
	// a transport failure or a malformed response.
	DefaultBackoff = 10 * time.Second

	// transportSlack pads the default transport timeout beyond the wait
	// window so the server, not the client, ends idle cycles.
	transportSlack = 15 * time.Second
)

// Failure codes returned by the long-poll server.
const (
	failedStaleHistory = 1
	failedKeyExpired   = 2
	failedUserLost     = 3
)

// ErrNotAcquired is returned by Poll when the session has no
// credentials yet. Call Acquire first.
var ErrNotAcquired = errors.New("long-poll session not acquired")

// Session polls one user long-poll server.
//
// Methods are not safe for concurrent use: a session belongs to a
// single polling goroutine.
type Session struct {
	caller    api.Caller
	transport Transport
	logger    *slog.Logger
	metrics   observability.MetricsRecorder

	store cursor.Store
	name  string

	mode    int
	wait    time.Duration
	backoff time.Duration

	server   string
	key      string
	ts       string
	acquired bool
}

// Option configures a Session.
type Option func(*Session)

// WithTransport replaces the default HTTP transport.
func WithTransport(t Transport) Option {
	return func(s *Session) {
		s.transport = t
	}
}

// WithMode overrides the behaviour flags sent to the server.
func WithMode(mode int) Option {
	return func(s *Session) {
		s.mode = mode
	}
}

// WithWait sets the server-side hold window for idle connections.
func WithWait(wait time.Duration) Option {
	return func(s *Session) {
		s.wait = wait
	}
}

// WithBackoff sets the pause before recovery re-acquisitions.
func WithBackoff(d time.Duration) Option {
	return func(s *Session) {
		s.backoff = d
	}
}

// WithLogger sets the logger for session lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder for poll cycles.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithStore persists the session cursor under name after every
// credential or ts change, and seeds the first Acquire from it.
func WithStore(store cursor.Store, name string) Option {
	return func(s *Session) {
		s.store = store
		s.name = name
	}
}

// New creates a session that acquires credentials through caller.
func New(caller api.Caller, opts ...Option) *Session {
	s := &Session{
		caller:  caller,
		metrics: observability.NoopMetrics{},
		mode:    DefaultMode,
		wait:    DefaultWait,
		backoff: DefaultBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.transport == nil {
		s.transport = NewHTTPTransport(s.wait + transportSlack)
	}
	return s
}

// longPollCredentials is the messages.getLongPollServer response.
type longPollCredentials struct {
	Server string     `json:"server"`
	Key    string     `json:"key"`
	TS     flexString `json:"ts"`
}

// Acquire obtains long-poll credentials.
//
// The first acquisition prefers state persisted in the configured
// store; credentials that went stale while the process was down
// self-heal through the failed:2/3 recovery path on the next Poll.
// Later acquisitions always go to the network so rotated keys get
// replaced rather than re-read.
func (s *Session) Acquire(ctx context.Context) error {
	if !s.acquired && s.store != nil {
		st, err := s.store.Load(ctx, s.name)
		switch {
		case err == nil && st.Server != "" && st.Key != "" && st.TS != "":
			s.adopt(st, true)
			return nil
		case err != nil && !errors.Is(err, cursor.ErrNotFound):
			observability.LogCursorError(s.logger, s.name, "load", err)
		}
	}

	raw, err := s.caller.Call(ctx, "messages.getLongPollServer", nil)
	if err != nil {
		return fmt.Errorf("acquire long-poll server: %w", err)
	}

	var creds longPollCredentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return fmt.Errorf("decode long-poll credentials: %w", err)
	}
	if creds.Server == "" || creds.Key == "" || creds.TS == "" {
		return errors.New("long-poll credentials incomplete")
	}

	s.adopt(cursor.State{Server: creds.Server, Key: creds.Key, TS: string(creds.TS)}, false)
	s.persist(ctx)
	return nil
}

func (s *Session) adopt(st cursor.State, resumed bool) {
	s.server = st.Server
	s.key = st.Key
	s.ts = st.TS
	s.acquired = true
	observability.LogSessionAcquired(s.logger, s.server, resumed)
}

// pollResponse covers every response shape the server produces: a
// batch with a new ts, or a failure code optionally carrying a ts.
type pollResponse struct {
	Failed  *int           `json:"failed"`
	TS      flexString     `json:"ts"`
	Updates []event.Update `json:"updates"`
}

// Poll runs one long-poll cycle and returns the update batch in server
// order.
//
// Recoverable protocol failures are absorbed: transport errors and
// malformed bodies trigger a backoff and a fresh acquisition, stale
// history adopts the corrected ts, and rotated keys re-acquire
// immediately. In all those cases Poll returns an empty batch and a
// nil error. Errors are reserved for context cancellation and failed
// re-acquisition, both of which should stop the polling loop.
func (s *Session) Poll(ctx context.Context) ([]event.Update, error) {
	if !s.acquired {
		return nil, ErrNotAcquired
	}

	params := url.Values{
		"act":  {"a_check"},
		"key":  {s.key},
		"ts":   {s.ts},
		"wait": {strconv.Itoa(int(s.wait / time.Second))},
		"mode": {strconv.Itoa(s.mode)},
	}

	start := time.Now()
	body, err := s.transport.GetJSON(ctx, s.pollURL(), params)
	duration := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.metrics.RecordPoll(ctx, observability.PollOutcomeTransport, duration, 0)
		observability.LogPollFailed(s.logger, observability.PollOutcomeTransport, err)
		return nil, s.recover(ctx)
	}

	var resp pollResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, s.malformed(ctx, duration, fmt.Errorf("decode poll response: %w", err))
	}

	switch {
	case resp.Failed == nil:
		if resp.TS == "" || resp.Updates == nil {
			return nil, s.malformed(ctx, duration, errors.New("poll response missing ts or updates"))
		}
		s.ts = string(resp.TS)
		s.persist(ctx)
		s.metrics.RecordPoll(ctx, observability.PollOutcomeOK, duration, len(resp.Updates))
		observability.LogPollBatch(s.logger, len(resp.Updates), s.ts)
		return resp.Updates, nil

	case *resp.Failed == failedStaleHistory:
		// Event history is out of reach; the server supplies the
		// closest ts it can serve from.
		if resp.TS == "" {
			return nil, s.malformed(ctx, duration, errors.New("stale history response missing ts"))
		}
		s.ts = string(resp.TS)
		s.persist(ctx)
		s.metrics.RecordPoll(ctx, observability.PollOutcomeStale, duration, 0)
		observability.LogPollFailed(s.logger, observability.PollOutcomeStale, nil)
		return nil, nil

	case *resp.Failed == failedKeyExpired, *resp.Failed == failedUserLost:
		s.metrics.RecordPoll(ctx, observability.PollOutcomeRotated, duration, 0)
		observability.LogPollFailed(s.logger, observability.PollOutcomeRotated, nil)
		if err := s.Acquire(ctx); err != nil {
			return nil, err
		}
		return nil, nil

	default:
		return nil, s.malformed(ctx, duration, fmt.Errorf("unknown failure code %d", *resp.Failed))
	}
}

// Cursor reports the current session credentials.
func (s *Session) Cursor() cursor.State {
	return cursor.State{Server: s.server, Key: s.key, TS: s.ts}
}

func (s *Session) malformed(ctx context.Context, duration time.Duration, err error) error {
	s.metrics.RecordPoll(ctx, observability.PollOutcomeMalformed, duration, 0)
	observability.LogPollFailed(s.logger, observability.PollOutcomeMalformed, err)
	return s.recover(ctx)
}

// recover pauses for the configured backoff, then replaces the session
// credentials. A nil return means the caller may poll again.
func (s *Session) recover(ctx context.Context) error {
	timer := time.NewTimer(s.backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}
	return s.Acquire(ctx)
}

// pollURL returns the scheme-qualified server URL. The server field
// arrives from the API without a scheme.
func (s *Session) pollURL() string {
	if strings.Contains(s.server, "://") {
		return s.server
	}
	return "https://" + s.server
}

func (s *Session) persist(ctx context.Context) {
	if s.store == nil {
		return
	}
	st := cursor.State{Server: s.server, Key: s.key, TS: s.ts}
	if err := s.store.Save(ctx, s.name, st); err != nil {
		observability.LogCursorError(s.logger, s.name, "save", err)
	}
}

// flexString accepts a JSON string or number. The server reports ts as
// a number while persisted state round-trips it as a string.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
