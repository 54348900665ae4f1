package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/suyash-sneo/prefstore"
	"github.com/suyash-sneo/prefstore/internal/fakestore"
	"github.com/suyash-sneo/prefstore/stores"
)

// syncBuffer guards a bytes.Buffer shared with binding goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

func newTestSession(t *testing.T) (*session, *syncBuffer, *fakestore.Store) {
	t.Helper()
	b := fakestore.New()
	st, err := stores.Open(b, stores.DefaultConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	out := &syncBuffer{}
	sess := newSession(st, b, out)
	t.Cleanup(sess.close)
	return sess, out, b
}

func TestSessionSetGet(t *testing.T) {
	sess, out, b := newTestSession(t)
	ctx := context.Background()

	if err := sess.exec(ctx, `set device preferences {"theme": "dark", "notificationsEnabled": false}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	raw, ok, _ := b.Get(ctx, "device:preferences")
	if !ok || string(raw) != `{"data":{"theme":"dark","notificationsEnabled":false}}` {
		t.Fatalf("unexpected record %s", raw)
	}

	if err := sess.exec(ctx, "get device preferences"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != `{"theme":"dark","notificationsEnabled":false}` {
		t.Fatalf("unexpected output %q", got)
	}

	out.Reset()
	if err := sess.exec(ctx, "get account u1 lastViewedHouseId"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if strings.TrimSpace(out.String()) != "<absent>" {
		t.Fatalf("expected <absent>, got %q", out.String())
	}
}

func TestSessionRejectsBadInput(t *testing.T) {
	sess, _, b := newTestSession(t)
	ctx := context.Background()

	cases := []string{
		"get",
		"get planet appLanguage",
		"get account",
		"get device nope",
		"set device hasSeenOnboarding",
		"set device hasSeenOnboarding maybe",
		`set device hasSeenOnboarding "yes"`,
		`set device appLanguage "fr"`,
		"rm account u1",
		"clear everything",
		"frobnicate",
	}
	for _, line := range cases {
		if err := sess.exec(ctx, line); err == nil {
			t.Fatalf("%q: expected error", line)
		}
	}
	if b.Calls(fakestore.OpSet) != 0 {
		t.Fatalf("rejected input must not reach the backend")
	}
}

func TestSessionRemoveAndClear(t *testing.T) {
	sess, out, b := newTestSession(t)
	ctx := context.Background()

	for _, line := range []string{
		`set account u1 lastViewedHouseId "h7"`,
		`set account u1 searchHistory ["boiler","roof"]`,
		`set account u2 searchHistory []`,
		`set device hasSeenOnboarding true`,
	} {
		if err := sess.exec(ctx, line); err != nil {
			t.Fatalf("%q: %v", line, err)
		}
	}

	if err := sess.exec(ctx, "rm account u1 lastViewedHouseId searchHistory"); err != nil {
		t.Fatalf("rm: %v", err)
	}
	keys, _ := b.Keys(ctx)
	if strings.Join(keys, ",") != "account:u2:searchHistory,device:hasSeenOnboarding" {
		t.Fatalf("unexpected keys after rm %v", keys)
	}

	if err := sess.exec(ctx, "keys"); err != nil {
		t.Fatalf("keys: %v", err)
	}
	listing := out.String()
	if !strings.Contains(listing, "STORE") || !strings.Contains(listing, "account  u2") || !strings.Contains(listing, "hasSeenOnboarding") {
		t.Fatalf("unexpected listing %q", listing)
	}

	if err := sess.exec(ctx, "clear account"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	keys, _ = b.Keys(ctx)
	if strings.Join(keys, ",") != "device:hasSeenOnboarding" {
		t.Fatalf("unexpected keys after clear %v", keys)
	}
	if err := sess.exec(ctx, "clear all"); err != nil {
		t.Fatalf("clear all: %v", err)
	}
	if keys, _ = b.Keys(ctx); len(keys) != 0 {
		t.Fatalf("expected empty backend, got %v", keys)
	}
}

func TestSessionKeysShowsForeignKeys(t *testing.T) {
	sess, out, b := newTestSession(t)
	b.Raw("legacy", []byte("x"))
	if err := sess.keys(context.Background(), nil); err != nil {
		t.Fatalf("keys: %v", err)
	}
	if !strings.Contains(out.String(), "?") || !strings.Contains(out.String(), "legacy") {
		t.Fatalf("expected undecodable key listed, got %q", out.String())
	}
}

func TestSessionWatch(t *testing.T) {
	sess, out, _ := newTestSession(t)
	ctx := context.Background()

	if err := sess.exec(ctx, "watch account u1 lastViewedHouseId"); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if err := sess.exec(ctx, "watch account u1 lastViewedHouseId"); err == nil {
		t.Fatalf("expected duplicate watch to fail")
	}
	waitOutput(t, out, "[account:u1:lastViewedHouseId] <absent>")

	if err := sess.exec(ctx, `set account u1 lastViewedHouseId "h9"`); err != nil {
		t.Fatalf("set: %v", err)
	}
	waitOutput(t, out, `[account:u1:lastViewedHouseId] "h9"`)

	if got := sess.watching(); len(got) != 1 || got[0] != "account:u1:lastViewedHouseId" {
		t.Fatalf("unexpected watches %v", got)
	}
	if err := sess.exec(ctx, "unwatch account u1 lastViewedHouseId"); err != nil {
		t.Fatalf("unwatch: %v", err)
	}
	if sess.stores.Account.ListenerCount(prefstore.Path{"u1", "lastViewedHouseId"}) != 0 {
		t.Fatalf("unwatch must release the listener")
	}
	if err := sess.exec(ctx, "unwatch account u1 lastViewedHouseId"); err == nil {
		t.Fatalf("expected error for unknown watch")
	}
}

func TestSessionLang(t *testing.T) {
	sess, out, _ := newTestSession(t)
	ctx := context.Background()

	if err := sess.exec(ctx, "lang en"); err != nil {
		t.Fatalf("lang en: %v", err)
	}
	if err := sess.exec(ctx, "lang"); err != nil {
		t.Fatalf("lang: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "en (stored)" {
		t.Fatalf("unexpected output %q", got)
	}
	if err := sess.exec(ctx, "lang de"); err == nil {
		t.Fatalf("expected error for unsupported language")
	}
}

func TestLoop(t *testing.T) {
	sess, out, _ := newTestSession(t)
	lines := []string{"", "help", `set device hasSeenOnboarding true`, "bogus", "get device hasSeenOnboarding", "quit", "get device hasSeenOnboarding"}
	next := func() (string, error) {
		if len(lines) == 0 {
			return "", io.EOF
		}
		l := lines[0]
		lines = lines[1:]
		return l, nil
	}
	var errOut bytes.Buffer
	if err := loop(context.Background(), next, sess, &errOut); err != nil {
		t.Fatalf("loop: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("loop must stop at quit, %d lines left", len(lines))
	}
	if !strings.Contains(out.String(), "commands:") || strings.Count(out.String(), "true") != 1 {
		t.Fatalf("unexpected output %q", out.String())
	}
	if !strings.Contains(errOut.String(), "unknown command") {
		t.Fatalf("expected error for bogus command, got %q", errOut.String())
	}
}

func TestLoopPropagatesReadErrors(t *testing.T) {
	sess, _, _ := newTestSession(t)
	boom := errors.New("tty gone")
	err := loop(context.Background(), func() (string, error) { return "", boom }, sess, io.Discard)
	if !errors.Is(err, boom) {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestRootCommandAgainstBolt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")
	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetErr(io.Discard)
		cmd.SetArgs(append([]string{"--backend", "bolt", "--dsn", path}, args...))
		if err := cmd.ExecuteContext(context.Background()); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		return strings.TrimSpace(out.String())
	}

	run("set", "account", "u1", "taskFilters", `{"showCompleted":true,"selectedRoomId":"r2"}`)
	if got := run("get", "account", "u1", "taskFilters"); got != `{"showCompleted":true,"selectedRoomId":"r2"}` {
		t.Fatalf("unexpected value %q", got)
	}
	run("rm", "account", "u1", "taskFilters")
	if got := run("get", "account", "u1", "taskFilters"); got != "<absent>" {
		t.Fatalf("expected absent, got %q", got)
	}
}

func waitOutput(t *testing.T, out *syncBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(out.String(), want) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("output never contained %q: %q", want, out.String())
}
