package eventbus

import (
	"sync"
	"testing"
)

func TestSubscribeFiltersByType(t *testing.T) {
	t.Parallel()
	b := New()

	all, unsubAll := b.Subscribe(4)
	defer unsubAll()
	tasks, unsubTasks := b.Subscribe(4, TaskFinished, TaskFailed)
	defer unsubTasks()

	b.Publish(Event{Type: SettingChange, Data: "EMAIL_SEND_TIME"})
	b.Publish(Event{Type: TaskFinished, Data: "send_digest"})

	if got := len(all); got != 2 {
		t.Fatalf("unfiltered subscriber got %d events, want 2", got)
	}
	if got := len(tasks); got != 1 {
		t.Fatalf("filtered subscriber got %d events, want 1", got)
	}
	ev := <-tasks
	if ev.Type != TaskFinished || ev.Time.IsZero() {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	t.Parallel()
	b := New()
	_, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: TaskStarted})
	b.Publish(Event{Type: TaskStarted})
	b.Publish(Event{Type: TaskStarted})

	if got := b.Dropped(); got != 2 {
		t.Fatalf("Dropped() = %d, want 2", got)
	}
}

func TestUnsubscribeDuringPublish(t *testing.T) {
	t.Parallel()
	b := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		_, unsub := b.Subscribe(1)
		wg.Add(2)
		go func() {
			defer wg.Done()
			b.Publish(Event{Type: TaskStarted})
		}()
		go func() {
			defer wg.Done()
			unsub()
			unsub()
		}()
	}
	wg.Wait()
}
