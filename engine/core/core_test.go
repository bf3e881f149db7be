package core

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestIdentifierRegistry(t *testing.T) {
	r := NewIdentifierRegistry()
	owner := "sun.png"

	id := r.AquireNewID(owner)
	if o, ok := r.Owner(id); !ok || o != owner {
		t.Fatalf("Owner:\nhave %v, %t\nwant %v, true", o, ok, owner)
	}
	other := r.AquireNewID("moon.png")
	if other == id {
		t.Fatal("AquireNewID: returned a live id twice")
	}
	if n := r.Count(); n != 2 || len(r.Owners()) != 2 {
		t.Fatalf("Count:\nhave %d\nwant 2", n)
	}

	if err := r.ReleaseID(id); err != nil {
		t.Fatalf("ReleaseID: unexpected error:\n%#v", err)
	}
	if err := r.ReleaseID(id); err == nil {
		t.Fatal("ReleaseID twice: unexpected success")
	}
	if _, ok := r.Owner(id); ok {
		t.Fatal("Owner: released id still registered")
	}
}

func TestLoadMetrics(t *testing.T) {
	m := NewLoadMetrics()
	m.RecordLoad(0.010, false)
	m.RecordLoad(0.030, true)
	m.RecordDiscard()

	if avg := m.AverageLoadMS(); avg < 19.99 || avg > 20.01 {
		t.Fatalf("AverageLoadMS:\nhave %v\nwant 20", avg)
	}
	loaded, failed, discarded := m.Counts()
	if loaded != 1 || failed != 1 || discarded != 1 {
		t.Fatalf("Counts:\nhave %d, %d, %d\nwant 1, 1, 1", loaded, failed, discarded)
	}

	// The window only remembers the last AVG_COUNT samples.
	for i := 0; i < int(AVG_COUNT); i++ {
		m.RecordLoad(0.005, false)
	}
	if avg := m.AverageLoadMS(); avg < 4.99 || avg > 5.01 {
		t.Fatalf("AverageLoadMS after window:\nhave %v\nwant 5", avg)
	}
}

func TestEventSystem(t *testing.T) {
	es := NewEventSystem()
	var got []string
	first := func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		got = append(got, "first:"+data.Data.C[0])
		return data.Data.C[0] == "stop"
	}
	second := func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		got = append(got, "second:"+data.Data.C[0])
		return true
	}

	if !es.Register(EVENT_CODE_TEXTURE_LOADED, "a", first) {
		t.Fatal("Register: failed")
	}
	if es.Register(EVENT_CODE_TEXTURE_LOADED, "a", first) {
		t.Fatal("Register: duplicate listener accepted")
	}
	if es.Register(-1, "a", first) || es.Register(EVENT_CODE_TEXTURE_LOADED, "c", nil) {
		t.Fatal("Register: invalid registration accepted")
	}
	es.Register(EVENT_CODE_TEXTURE_LOADED, "b", second)

	ctx := EventContext{}
	ctx.Data.C[0] = "go"
	if !es.Fire(EVENT_CODE_TEXTURE_LOADED, nil, ctx) {
		t.Fatal("Fire: not handled")
	}
	ctx.Data.C[0] = "stop"
	es.Fire(EVENT_CODE_TEXTURE_LOADED, nil, ctx)
	want := []string{"first:go", "second:go", "first:stop"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("events:\nhave %v\nwant %v", got, want)
	}

	if !es.Unregister(EVENT_CODE_TEXTURE_LOADED, "a") || es.Unregister(EVENT_CODE_TEXTURE_LOADED, "a") {
		t.Fatal("Unregister: unexpected result")
	}
	if es.Fire(EVENT_CODE_TEXTURE_LOAD_FAILED, nil, ctx) {
		t.Fatal("Fire: handled without listeners")
	}
	es.Shutdown()
	if es.Fire(EVENT_CODE_TEXTURE_LOADED, nil, ctx) {
		t.Fatal("Fire: handled after Shutdown")
	}
}

func TestEventSystemConcurrentRegister(t *testing.T) {
	es := NewEventSystem()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			es.Register(EVENT_CODE_TEXTURE_SOURCE_CHANGED, i, func(SystemEventCode, interface{}, interface{}, EventContext) bool { return false })
			es.Fire(EVENT_CODE_TEXTURE_SOURCE_CHANGED, nil, EventContext{})
		}(i)
	}
	wg.Wait()
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		err   error
		cause error
		text  string
	}{
		{&FetchError{Identifier: "a.png", Err: ErrNotFound}, ErrNotFound, `fetch "a.png": resource not found`},
		{&FetchError{Identifier: "http://x/a.png", StatusCode: 503, Err: ErrNetwork}, ErrNetwork, `fetch "http://x/a.png": HTTP 503: network failure`},
		{&DecodeError{Identifier: "a.png", Err: ErrCorruptData}, ErrCorruptData, `decode "a.png": corrupt or malformed data`},
		{&UploadError{Identifier: "a.png", Err: ErrCapability}, ErrCapability, `upload "a.png": rejected by hardware capabilities`},
		{&ContractError{Msg: "empty identifier"}, ErrContractViolation, "contract violation: empty identifier"},
	}
	for _, test := range tests {
		if !errors.Is(test.err, test.cause) {
			t.Fatalf("errors.Is(%v, %v): false", test.err, test.cause)
		}
		if test.err.Error() != test.text {
			t.Fatalf("Error:\nhave %q\nwant %q", test.err.Error(), test.text)
		}
	}

	wrapped := fmt.Errorf("loading: %w", &FetchError{Identifier: "a.png", Err: ErrPermission})
	var fe *FetchError
	if !errors.As(wrapped, &fe) || fe.Identifier != "a.png" {
		t.Fatalf("errors.As: have %v", wrapped)
	}

	ce := (&ConfigError{Field: "jobs.workers", Value: "0"}).Error()
	if ce != `invalid value "0" for jobs.workers` {
		t.Fatalf("ConfigError:\nhave %q", ce)
	}
}

func TestContractViolationPanics(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrContractViolation) || err.Error() != "contract violation: bad 42" {
			t.Fatalf("recovered:\nhave %#v\nwant *ContractError", r)
		}
	}()
	ContractViolation("bad %d", 42)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DebugLevel},
		{"", InfoLevel},
		{" INFO ", InfoLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"fatal", FatalLevel},
	}
	for _, test := range tests {
		have, err := ParseLogLevel(test.in)
		if err != nil || have != test.want {
			t.Fatalf("ParseLogLevel(%q):\nhave %v, %v\nwant %v", test.in, have, err, test.want)
		}
	}
	if _, err := ParseLogLevel("chatty"); err == nil {
		t.Fatal("ParseLogLevel(chatty): unexpected success")
	}
	SetLogLevel(DebugLevel)
	LogDebug("log level set to %d", DebugLevel)
	SetLogLevel(InfoLevel)
}

func TestClock(t *testing.T) {
	c := NewClock()
	c.Update()
	if c.Running() || c.Elapsed() != 0 {
		t.Fatal("new clock is running")
	}
	c.Start()
	time.Sleep(2 * time.Millisecond)
	c.Update()
	if !c.Running() || c.Elapsed() <= 0 {
		t.Fatalf("Elapsed:\nhave %v\nwant > 0", c.Elapsed())
	}
	elapsed := c.Elapsed()
	c.Stop()
	c.Update()
	if c.Running() || c.Elapsed() != elapsed {
		t.Fatalf("stopped clock:\nhave %v\nwant %v", c.Elapsed(), elapsed)
	}
}
