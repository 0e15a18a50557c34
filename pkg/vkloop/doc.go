/*
Package vkloop receives and dispatches VK user long-poll events.

# Overview

vkloop maintains a long-poll session against the VK messages API,
decodes the positional update arrays into typed events, and routes
each event through a middleware chain to the first handler whose type
and rules accept it. The protocol's failure codes (stale history,
rotated keys) are absorbed by the session, so the dispatch loop only
stops on context cancellation or a terminal API error.

The module is split along the pipeline:
  - api: the VK method client with error routing and rate-limit repair
  - longpoll: session acquisition, polling and cursor recovery
  - event: wire decoding of positional updates into typed events
  - rules: per-handler acceptance checks with data enrichment
  - cursor: persisted session state for resume after restart
  - storage: a small key-value surface handlers can share

# Basic Usage

Wire a client, a session and a dispatcher, then register handlers:

	client := api.NewClient(token)
	session := longpoll.New(client)

	dp := vkloop.New(session,
	    vkloop.WithLogger(logger),
	    vkloop.WithCaller(client),
	)

	dp.RegisterMessageHandler(func(ctx context.Context, ev event.Event, data event.Data) error {
	    msg := ev.(*event.MessageNew)
	    caller := data["api"].(api.Caller)
	    _, err := caller.Call(ctx, "messages.send", api.Params{
	        "peer_id":   strconv.FormatInt(msg.PeerID, 10),
	        "message":   msg.Text,
	        "random_id": "0",
	    })
	    return err
	}, rules.Commands("echo"))

	if err := dp.Run(ctx); err != nil {
	    log.Fatal(err)
	}

# Rules

Rules gate handlers per event. A registration's rules form a
short-circuiting AND, and accepting rules may enrich the handler data:

	dp.RegisterMessageHandler(handleStart, rules.Commands("start"))
	dp.RegisterNamed(event.TypeMessageNew, handleBuy, map[string]any{
	    "payload": map[string]any{"cmd": "buy"},
	})

# Middlewares

Middlewares wrap every event. PreProcess may drop events before
routing; PostProcess always runs and sees the handler result:

	type counter struct {
	    vkloop.BaseMiddleware
	    seen atomic.Int64
	}

	func (c *counter) PreProcess(ctx context.Context, ev event.Event, data event.Data) (vkloop.Outcome, error) {
	    c.seen.Add(1)
	    return vkloop.Continue, nil
	}

# Resuming After Restart

Attach a cursor store to the session and the dispatcher resumes from
the last confirmed cursor instead of dropping the backlog:

	store, _ := cursor.NewSQLiteStore("vkloop.db")
	session := longpoll.New(client, longpoll.WithStore(store, "main"))
*/
package vkloop
