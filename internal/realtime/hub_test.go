package realtime

import (
	"sync"
	"testing"

	"salescrm/internal/common/models"

	"go.uber.org/zap"
)

func TestHubPublishAndUnregister(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a := hub.Register("u1", 4)
	b := hub.Register("u2", 4)

	Notify(hub, "created", "deal", "abc")

	for _, c := range []*Client{a, b} {
		evt := <-c.Events
		if evt.Event != "created" || evt.Kind != "deal" || evt.ID != "abc" {
			t.Errorf("client %s got %+v", c.UserID, evt)
		}
	}

	hub.Unregister(a.ID)
	if hub.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", hub.Count())
	}
	if _, open := <-a.Events; open {
		t.Error("unregistered client channel should be closed")
	}

	hub.Unregister(a.ID)
}

func TestHubPublishDoesNotBlockOnFullBuffer(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := hub.Register("u1", 1)

	hub.Publish(models.ChangeEvent{Event: "created"})
	hub.Publish(models.ChangeEvent{Event: "updated"})

	if len(c.Events) != 1 {
		t.Fatalf("buffered %d events, want 1", len(c.Events))
	}
	if evt := <-c.Events; evt.Event != "created" {
		t.Errorf("first event = %s, want created", evt.Event)
	}
}

func TestHubConcurrentPublish(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := hub.Register("u1", 100)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Publish(models.ChangeEvent{Event: "updated", Kind: "contact"})
		}()
	}
	wg.Wait()

	if len(c.Events) != 50 {
		t.Errorf("received %d events, want 50", len(c.Events))
	}
}

func TestNotifyNilPublisher(t *testing.T) {
	Notify(nil, "created", "deal", "x")
}
