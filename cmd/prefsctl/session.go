package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/suyash-sneo/prefstore"
	"github.com/suyash-sneo/prefstore/backend"
	"github.com/suyash-sneo/prefstore/stores"
)

const (
	roleDevice  = "device"
	roleAccount = "account"
	roleAll     = "all"
)

var errUsage = errors.New("usage")

// rawStore is the untyped surface of prefstore.Store shared by both stores.
type rawStore interface {
	ID() string
	Put(ctx context.Context, p prefstore.Path, value any) error
	Load(ctx context.Context, p prefstore.Path, dst any) (bool, error)
	DeleteMany(ctx context.Context, scope []string, keys ...string) error
	Clear(ctx context.Context) error
}

// session executes commands against one opened backend.
type session struct {
	stores  *stores.Stores
	backend backend.Store
	out     io.Writer

	mu      sync.Mutex
	watches map[string]*prefstore.Binding[json.RawMessage]
}

func newSession(st *stores.Stores, b backend.Store, out io.Writer) *session {
	return &session{
		stores:  st,
		backend: b,
		out:     out,
		watches: map[string]*prefstore.Binding[json.RawMessage]{},
	}
}

// target addresses one store plus its scope.
type target struct {
	role  string
	store rawStore
	scope []string
	known []string
}

// parseTarget consumes "<store> [account]" from args.
func (s *session) parseTarget(args []string) (target, []string, error) {
	if len(args) == 0 {
		return target{}, nil, fmt.Errorf("%w: missing store (device|account)", errUsage)
	}
	switch args[0] {
	case roleDevice:
		return target{role: roleDevice, store: s.stores.Device, known: stores.DeviceFieldKeys()}, args[1:], nil
	case roleAccount:
		if len(args) < 2 || args[1] == "" {
			return target{}, nil, fmt.Errorf("%w: account store needs an account id", errUsage)
		}
		return target{role: roleAccount, store: s.stores.Account, scope: []string{args[1]}, known: stores.AccountFieldKeys()}, args[2:], nil
	default:
		return target{}, nil, fmt.Errorf("%w: unknown store %q", errUsage, args[0])
	}
}

func (t target) path(field string) (prefstore.Path, error) {
	for _, k := range t.known {
		if k == field {
			p := make(prefstore.Path, 0, len(t.scope)+1)
			return append(append(p, t.scope...), field), nil
		}
	}
	return nil, fmt.Errorf("%w: %s has no field %q (known: %s)", errUsage, t.role, field, strings.Join(t.known, ", "))
}

func (s *session) get(ctx context.Context, args []string) error {
	t, rest, err := s.parseTarget(args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return fmt.Errorf("%w: get <store> [account] <field>", errUsage)
	}
	p, err := t.path(rest[0])
	if err != nil {
		return err
	}
	var raw json.RawMessage
	ok, err := t.store.Load(ctx, p, &raw)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(s.out, "<absent>")
		return nil
	}
	fmt.Fprintln(s.out, string(raw))
	return nil
}

func (s *session) set(ctx context.Context, args []string) error {
	t, rest, err := s.parseTarget(args)
	if err != nil {
		return err
	}
	if len(rest) < 2 {
		return fmt.Errorf("%w: set <store> [account] <field> <json>", errUsage)
	}
	p, err := t.path(rest[0])
	if err != nil {
		return err
	}
	value := json.RawMessage(strings.Join(rest[1:], " "))
	if err := checkValue(rest[0], value); err != nil {
		return err
	}
	return t.store.Put(ctx, p, value)
}

func (s *session) rm(ctx context.Context, args []string) error {
	t, rest, err := s.parseTarget(args)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return fmt.Errorf("%w: rm <store> [account] <field>...", errUsage)
	}
	for _, f := range rest {
		if _, err := t.path(f); err != nil {
			return err
		}
	}
	return t.store.DeleteMany(ctx, t.scope, rest...)
}

func (s *session) clear(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: clear device|account|all", errUsage)
	}
	switch args[0] {
	case roleDevice:
		return s.stores.Device.Clear(ctx)
	case roleAccount:
		return s.stores.Account.Clear(ctx)
	case roleAll:
		return s.stores.ClearAll(ctx)
	default:
		return fmt.Errorf("%w: unknown store %q", errUsage, args[0])
	}
}

// keys lists every backend key, decoded into store, scope and field.
func (s *session) keys(ctx context.Context, _ []string) error {
	all, err := s.backend.Keys(ctx)
	if err != nil {
		return err
	}
	sort.Strings(all)
	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STORE\tSCOPE\tFIELD")
	for _, k := range all {
		id, p, err := prefstore.ParseKey(k)
		if err != nil {
			fmt.Fprintf(w, "?\t\t%s\n", k)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", id, strings.Join(p.Scope(), "/"), p.Field())
	}
	return w.Flush()
}

// lang prints the effective app language, or stores a new one.
func (s *session) lang(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("%w: lang [es|en]", errUsage)
	}
	prefs, err := s.stores.LanguagePrefs(ctx)
	if err != nil {
		return err
	}
	defer prefs.Close()
	select {
	case <-prefs.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}

	if len(args) == 0 {
		source := "device locale"
		if prefs.Stored() {
			source = "stored"
		}
		fmt.Fprintf(s.out, "%s (%s)\n", prefs.Current(), source)
		return nil
	}
	l, err := stores.ParseLanguage(args[0])
	if err != nil {
		return err
	}
	return prefs.Change(ctx, l)
}

// watch binds the field and prints every value it publishes.
func (s *session) watch(ctx context.Context, args []string) error {
	t, rest, err := s.parseTarget(args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return fmt.Errorf("%w: watch <store> [account] <field>", errUsage)
	}
	p, err := t.path(rest[0])
	if err != nil {
		return err
	}
	label := t.store.ID() + ":" + p.String()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.watches[label]; ok {
		return fmt.Errorf("already watching %s", label)
	}
	show := func(v json.RawMessage, present bool) {
		if !present {
			fmt.Fprintf(s.out, "[%s] <absent>\n", label)
			return
		}
		fmt.Fprintf(s.out, "[%s] %s\n", label, v)
	}
	var b *prefstore.Binding[json.RawMessage]
	switch t.role {
	case roleDevice:
		b, err = bindRaw(ctx, s.stores.Device, t.scope, rest[0], show)
	default:
		b, err = bindRaw(ctx, s.stores.Account, t.scope, rest[0], show)
	}
	if err != nil {
		return err
	}
	s.watches[label] = b
	return nil
}

func bindRaw[S any](ctx context.Context, st *prefstore.Store[S], scope []string, key string, fn func(json.RawMessage, bool)) (*prefstore.Binding[json.RawMessage], error) {
	f := prefstore.NewField[S, json.RawMessage](key)
	return f.Bind(ctx, st, scope, prefstore.WithOnChange(fn))
}

func (s *session) unwatch(args []string) error {
	t, rest, err := s.parseTarget(args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return fmt.Errorf("%w: unwatch <store> [account] <field>", errUsage)
	}
	p, err := t.path(rest[0])
	if err != nil {
		return err
	}
	label := t.store.ID() + ":" + p.String()

	s.mu.Lock()
	b, ok := s.watches[label]
	delete(s.watches, label)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("not watching %s", label)
	}
	b.Close()
	return nil
}

func (s *session) watching() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.watches))
	for label := range s.watches {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

func (s *session) close() {
	s.mu.Lock()
	watches := s.watches
	s.watches = map[string]*prefstore.Binding[json.RawMessage]{}
	s.mu.Unlock()
	for _, b := range watches {
		b.Close()
	}
}

// exec runs one REPL line.
func (s *session) exec(ctx context.Context, line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}
	cmd, args := parts[0], parts[1:]
	switch cmd {
	case "get":
		return s.get(ctx, args)
	case "set":
		return s.set(ctx, args)
	case "rm":
		return s.rm(ctx, args)
	case "clear":
		return s.clear(ctx, args)
	case "keys":
		return s.keys(ctx, args)
	case "watch":
		return s.watch(ctx, args)
	case "unwatch":
		return s.unwatch(args)
	case "lang":
		return s.lang(ctx, args)
	case "watching":
		for _, label := range s.watching() {
			fmt.Fprintln(s.out, label)
		}
		return nil
	case "fields":
		fmt.Fprintf(s.out, "device:  %s\naccount: %s\n", strings.Join(stores.DeviceFieldKeys(), " "), strings.Join(stores.AccountFieldKeys(), " "))
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

const replHelp = `commands:
  get <store> [account] <field>
  set <store> [account] <field> <json>
  rm <store> [account] <field>...
  clear device|account|all
  keys
  fields
  lang [es|en]
  watch <store> [account] <field>
  unwatch <store> [account] <field>
  watching
  help, quit`
