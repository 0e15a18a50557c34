package vkloop

import (
	"github.com/mkorobkov/vkloop/pkg/vkloop/api"
	"github.com/mkorobkov/vkloop/pkg/vkloop/event"
	"github.com/mkorobkov/vkloop/pkg/vkloop/storage"
)

// Reserved data keys seeded by the dispatcher before the middleware
// chain runs.
const (
	DataKeyAPI        = "api"
	DataKeyStorage    = "storage"
	DataKeyDispatchID = "dispatch_id"
)

// CallerFrom returns the API client seeded through WithCaller, if any.
func CallerFrom(data event.Data) (api.Caller, bool) {
	c, ok := data[DataKeyAPI].(api.Caller)
	return c, ok
}

// StorageFrom returns the storage backend seeded through WithStorage,
// if any.
func StorageFrom(data event.Data) (storage.Storage, bool) {
	s, ok := data[DataKeyStorage].(storage.Storage)
	return s, ok
}

// DispatchID returns the unique ID assigned to this event's pipeline
// run, or the empty string outside a dispatch.
func DispatchID(data event.Data) string {
	return data.String(DataKeyDispatchID, "")
}
