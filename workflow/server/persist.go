// ABOUTME: Background persistence collaborator that mirrors documents on change events.
// ABOUTME: Subscribes to an engine's broadcast channel and writes the serialized document to a mirror.
package server

import (
	"log"

	"github.com/2389-research/noder/workflow/core"
	"github.com/2389-research/noder/workflow/store"
)

// MirrorKey returns the mirror key under which a document is persisted.
func MirrorKey(documentID string) string {
	return "workflow:" + documentID
}

// StartPersister starts a background goroutine that subscribes to the engine's
// change events and writes the serialized document to the mirror after every
// change. Returns a stop function.
func StartPersister(engine *core.Engine, mirror store.Mirror) func() {
	ch := engine.Subscribe()
	stopCh := make(chan struct{})

	go func() {
		defer engine.Unsubscribe(ch)

		for {
			select {
			case event, ok := <-ch:
				if !ok {
					return
				}
				data, err := engine.MarshalDocument()
				if err != nil {
					log.Printf("persister: failed to marshal document: %v", err)
					continue
				}
				if err := mirror.Put(MirrorKey(event.DocumentID), data); err != nil {
					log.Printf("persister: failed to mirror document: %v", err)
				}
			case <-stopCh:
				return
			}
		}
	}()

	return func() {
		close(stopCh)
	}
}
