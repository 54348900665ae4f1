package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/suyash-sneo/prefstore/stores"
)

func replCompleter() *readline.PrefixCompleter {
	fields := func(keys []string) []readline.PrefixCompleterInterface {
		items := make([]readline.PrefixCompleterInterface, len(keys))
		for i, k := range keys {
			items[i] = readline.PcItem(k)
		}
		return items
	}
	storeItems := func() []readline.PrefixCompleterInterface {
		return []readline.PrefixCompleterInterface{
			readline.PcItem(roleDevice, fields(stores.DeviceFieldKeys())...),
			readline.PcItem(roleAccount),
		}
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("get", storeItems()...),
		readline.PcItem("set", storeItems()...),
		readline.PcItem("rm", storeItems()...),
		readline.PcItem("watch", storeItems()...),
		readline.PcItem("unwatch", storeItems()...),
		readline.PcItem("clear", readline.PcItem(roleDevice), readline.PcItem(roleAccount), readline.PcItem(roleAll)),
		readline.PcItem("keys"),
		readline.PcItem("fields"),
		readline.PcItem("watching"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "prefsctl", "history")
}

// runREPL reads commands until EOF, "quit" or ctx is cancelled. Watch output
// goes through the readline writer so it does not garble the prompt.
func runREPL(ctx context.Context, sess *session) error {
	hist := historyFile()
	if hist != "" {
		_ = os.MkdirAll(filepath.Dir(hist), 0o700)
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "prefs> ",
		HistoryFile:     hist,
		AutoComplete:    replCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()
	go func() {
		<-ctx.Done()
		_ = rl.Close()
	}()

	sess.out = rl.Stdout()
	defer sess.close()
	fmt.Fprintln(sess.out, "Type 'help' for commands.")
	return loop(ctx, rl.Readline, sess, rl.Stderr())
}

// loop is the read-eval-print cycle over any line source.
func loop(ctx context.Context, readLine func() (string, error), sess *session, errOut io.Writer) error {
	for {
		line, err := readLine()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		line = strings.TrimSpace(line)
		switch strings.ToLower(line) {
		case "":
			continue
		case "help":
			fmt.Fprintln(sess.out, replHelp)
			continue
		case "quit", "exit":
			return nil
		}
		if err := sess.exec(ctx, line); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
		}
	}
}
