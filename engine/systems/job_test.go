package systems

import (
	"errors"
	"sync"
	"testing"

	"github.com/spaghettifunk/skytex/engine/core"
	"github.com/spaghettifunk/skytex/engine/renderer/metadata"
)

func TestNewJobSystemErrors(t *testing.T) {
	if _, err := NewJobSystem(0, 1); !errors.Is(err, ErrNoWorkers) {
		t.Fatalf("NewJobSystem(0, 1):\nhave %v\nwant %v", err, ErrNoWorkers)
	}
	if _, err := NewJobSystem(1, -1); !errors.Is(err, ErrNegativeChannelSize) {
		t.Fatalf("NewJobSystem(1, -1):\nhave %v\nwant %v", err, ErrNegativeChannelSize)
	}
}

func TestJobPriority(t *testing.T) {
	js, err := NewJobSystem(1, 8)
	if err != nil {
		t.Fatalf("NewJobSystem: unexpected error:\n%#v", err)
	}

	gate := make(chan struct{})
	started := make(chan struct{})
	var mu sync.Mutex
	var order []string
	record := func(name string) func() error {
		return func() error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	submit := func(jt metadata.JobTask) {
		t.Helper()
		if err := js.Submit(jt); err != nil {
			t.Fatalf("Submit(%s): unexpected error:\n%#v", jt.Name, err)
		}
	}
	submit(metadata.JobTask{Name: "block", OnStart: func() error {
		close(started)
		<-gate
		return nil
	}})
	<-started
	submit(metadata.JobTask{Name: "normal", Priority: metadata.JOB_PRIORITY_NORMAL, OnStart: record("normal")})
	submit(metadata.JobTask{Name: "high", Priority: metadata.JOB_PRIORITY_HIGH, OnStart: record("high")})
	if n := js.Pending(); n != 3 {
		t.Fatalf("Pending:\nhave %d\nwant 3", n)
	}
	close(gate)

	if err := js.Shutdown(); err != nil {
		t.Fatalf("Shutdown: unexpected error:\n%#v", err)
	}
	if len(order) != 2 || order[0] != "high" || order[1] != "normal" {
		t.Fatalf("run order:\nhave %v\nwant [high normal]", order)
	}
	if n := js.Pending(); n != 0 {
		t.Fatalf("Pending after Shutdown:\nhave %d\nwant 0", n)
	}
}

func TestJobCallbacks(t *testing.T) {
	js, err := NewJobSystem(2, 4)
	if err != nil {
		t.Fatalf("NewJobSystem: unexpected error:\n%#v", err)
	}

	boom := errors.New("boom")
	var failed error
	completed := 0
	var wg sync.WaitGroup
	wg.Add(1)
	err = js.Submit(metadata.JobTask{
		Name:      "failing",
		OnStart:   func() error { return boom },
		OnFailure: func(err error) { failed = err },
		OnCompletionCallback: func() {
			completed++
			wg.Done()
		},
	})
	if err != nil {
		t.Fatalf("Submit: unexpected error:\n%#v", err)
	}
	wg.Wait()
	if failed != boom || completed != 1 {
		t.Fatalf("callbacks:\nhave failed=%v completed=%d\nwant failed=%v completed=1", failed, completed, boom)
	}

	if err := js.Submit(metadata.JobTask{Name: "no start"}); err == nil {
		t.Fatal("Submit without OnStart: unexpected success")
	}

	js.Shutdown()
	js.Shutdown()
	if err := js.Submit(metadata.JobTask{Name: "late", OnStart: func() error { return nil }}); !errors.Is(err, core.ErrShutdown) {
		t.Fatalf("Submit after Shutdown:\nhave %v\nwant %v", err, core.ErrShutdown)
	}
}

func TestCompletionQueue(t *testing.T) {
	q := newCompletionQueue(2)
	task := &loadTask{identifier: "a"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.push(completion{task: task})
		}()
	}
	wg.Wait()

	if n := q.len(); n != 50 {
		t.Fatalf("len:\nhave %d\nwant 50", n)
	}
	out := q.drain(nil)
	if len(out) != 50 || q.len() != 0 {
		t.Fatalf("drain:\nhave %d drained, %d left\nwant 50 drained, 0 left", len(out), q.len())
	}
	if out := q.drain(out[:0]); len(out) != 0 {
		t.Fatalf("drain of empty queue:\nhave %d\nwant 0", len(out))
	}
}
