package main

import (
	"context"

	"github.com/webqa/autoheal/pkg/storage"
	"github.com/webqa/autoheal/pkg/suite"
)

// triggerStoreAdapter narrows *storage.FSStore's trigger CRUD surface
// (LoadTrigger/SaveTrigger/ListTriggers, used directly by pkg/api) down to
// the Get/ListByType/Save method names the Trigger Dispatcher's own Store
// interface expects, and adds the context parameter the dispatcher always
// passes. FSStore itself has no use for a context (file I/O is synchronous),
// so it's simply accepted and dropped here.
type triggerStoreAdapter struct {
	fs *storage.FSStore
}

func (a *triggerStoreAdapter) Get(_ context.Context, id string) (*suite.Trigger, error) {
	return a.fs.LoadTrigger(id)
}

func (a *triggerStoreAdapter) ListByType(_ context.Context, t suite.TriggerType) ([]*suite.Trigger, error) {
	return a.fs.ListTriggers(t)
}

func (a *triggerStoreAdapter) Save(_ context.Context, trg *suite.Trigger) error {
	return a.fs.SaveTrigger(trg)
}
