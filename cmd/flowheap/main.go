// Command flowheap is an interactive REPL over a filegraph.Store: it lets
// you drive add_checked_file/add_unparsed_file/clear_file by hand inside a
// transaction, inspect the committed and in-flight views, and commit or
// roll back, to exercise the store without wiring up a real parser.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/mgmuesuu/flow/filegraph"
	"github.com/mgmuesuu/flow/mutator"
	"github.com/mgmuesuu/flow/observability"
	"github.com/mgmuesuu/flow/reader"
	"github.com/mgmuesuu/flow/storekey"
	"github.com/mgmuesuu/flow/txn"
)

const (
	appName     = "flowheap"
	historyFile = ".flowheap_history"
	promptOpen  = "flow> "
	promptTxn   = "flow(txn)> "
)

var helpText = `
Commands:
  add <path> <hash> [haste]     add_checked_file (no AST/sigs, hash+optional haste name)
  unparsed <path> <hash> [haste] add_unparsed_file
  clear <path>                  clear_file
  begin                         start a reparse transaction
  commit                        commit the open transaction
  rollback                      roll back the open transaction
  show <path>                   print the current parse state for a file (dispatcher view)
  module <name>                 print the current provider of a haste module
  filemodule <path>             print the current provider of a file's eponymous module
  :quit                         exit
`

func red(s string) string   { return "\x1b[31m" + s + "\x1b[0m" }
func green(s string) string { return "\x1b[32m" + s + "\x1b[0m" }

func main() {
	capacity := flag.Int64("heap-bytes", 0, "heap capacity in bytes (0 for unbounded)")
	observer := flag.String("observer", "slog", `observer to attach ("slog" or "noop")`)
	flag.Parse()

	obs, err := observability.GetObserver(*observer)
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		os.Exit(2)
	}

	store := filegraph.NewStore(*capacity)
	store.SetObserver(obs)
	os.Exit(runRepl(store))
}

// session holds the REPL's mutable state between commands: the store, the
// shared caches every reader goes through, and the currently open
// transaction/mutator pair, if any.
type session struct {
	store    *filegraph.Store
	caches   *reader.Caches
	dispatch *reader.Reader

	t *txn.Txn
	m *mutator.Reparse
}

func runRepl(store *filegraph.Store) int {
	fmt.Printf("flowheap REPL\nCtrl+C cancels input, Ctrl+D exits. Type :quit to exit, :help for commands.\n")

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	s := &session{store: store, caches: reader.NewCaches(4096)}
	s.dispatch = reader.NewDispatcher(store, s.caches, func() bool { return s.t != nil })

	for {
		prompt := promptOpen
		if s.t != nil {
			prompt = promptTxn
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return 0
		}
		if err != nil {
			return 1
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)

		if line == ":quit" {
			return 0
		}
		if line == ":help" {
			fmt.Println(helpText)
			continue
		}

		if err := s.dispatchLine(line); err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
		}
	}
}

func (s *session) dispatchLine(line string) error {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "begin":
		return s.cmdBegin(args)
	case "commit":
		return s.cmdCommit()
	case "rollback":
		return s.cmdRollback()
	case "add":
		return s.cmdAdd(args)
	case "unparsed":
		return s.cmdUnparsed(args)
	case "clear":
		return s.cmdClear(args)
	case "show":
		return s.cmdShow(args)
	case "module":
		return s.cmdModule(args)
	case "filemodule":
		return s.cmdFileModule(args)
	default:
		return fmt.Errorf("unknown command %q, type :help", cmd)
	}
}

func (s *session) requireTxn() error {
	if s.t == nil {
		return errors.New("no open transaction, run begin first")
	}
	return nil
}

func (s *session) cmdBegin(args []string) error {
	if s.t != nil {
		return errors.New("a transaction is already open")
	}
	var files []storekey.FileKey
	for _, a := range args {
		files = append(files, storekey.SourceKey(a))
	}
	s.t = txn.Begin()
	m, err := mutator.NewReparse(s.store, s.caches, s.t, files)
	if err != nil {
		s.t = nil
		return err
	}
	s.m = m
	return nil
}

func (s *session) cmdCommit() error {
	if err := s.requireTxn(); err != nil {
		return err
	}
	err := s.t.Commit()
	s.t, s.m = nil, nil
	if err != nil {
		return err
	}
	fmt.Println(green("committed"))
	return nil
}

func (s *session) cmdRollback() error {
	if err := s.requireTxn(); err != nil {
		return err
	}
	err := s.t.Rollback()
	s.t, s.m = nil, nil
	if err != nil {
		return err
	}
	fmt.Println(green("rolled back"))
	return nil
}

func parseHashAndHaste(args []string, minArgs int) (path string, hash uint64, haste string, err error) {
	if len(args) < minArgs {
		return "", 0, "", fmt.Errorf("expected at least %d arguments, got %d", minArgs, len(args))
	}
	path = args[0]
	hash, err = strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return "", 0, "", fmt.Errorf("invalid hash %q: %w", args[1], err)
	}
	if len(args) > 2 {
		haste = args[2]
	}
	return path, hash, haste, nil
}

func (s *session) cmdAdd(args []string) error {
	if err := s.requireTxn(); err != nil {
		return err
	}
	path, hash, haste, err := parseHashAndHaste(args, 2)
	if err != nil {
		return fmt.Errorf("usage: add <path> <hash> [haste]: %w", err)
	}
	dirty, err := s.m.AddParsed(storekey.SourceKey(path), filegraph.ParsedArtifacts{
		Hash:      hash,
		HasteName: haste,
	})
	if err != nil {
		return err
	}
	fmt.Printf("dirty modules: %v\n", dirty.Names())
	return nil
}

func (s *session) cmdUnparsed(args []string) error {
	if err := s.requireTxn(); err != nil {
		return err
	}
	path, hash, haste, err := parseHashAndHaste(args, 2)
	if err != nil {
		return fmt.Errorf("usage: unparsed <path> <hash> [haste]: %w", err)
	}
	dirty, err := s.m.AddUnparsed(storekey.SourceKey(path), filegraph.UnparsedArtifacts{
		Hash:      hash,
		HasteName: haste,
	})
	if err != nil {
		return err
	}
	fmt.Printf("dirty modules: %v\n", dirty.Names())
	return nil
}

func (s *session) cmdClear(args []string) error {
	if err := s.requireTxn(); err != nil {
		return err
	}
	if len(args) < 1 {
		return errors.New("usage: clear <path>")
	}
	dirty := s.m.RecordNotFound(storekey.SourceKey(args[0]))
	fmt.Printf("dirty modules: %v\n", dirty.Names())
	return nil
}

func (s *session) cmdShow(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: show <path>")
	}
	key := storekey.SourceKey(args[0])
	p, err := s.dispatch.GetParseUnsafe(key)
	if err != nil {
		return err
	}
	fmt.Printf("typed=%v hash=%d\n", p.IsTyped, p.FileHash)
	return nil
}

func (s *session) cmdModule(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: module <name>")
	}
	f, err := s.dispatch.GetProviderUnsafe(storekey.Haste(args[0]))
	if err != nil {
		return err
	}
	fmt.Printf("provider: %s\n", f.Kind.String())
	return nil
}

func (s *session) cmdFileModule(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: filemodule <path>")
	}
	key := storekey.SourceKey(args[0])
	f, err := s.dispatch.GetProviderUnsafe(storekey.File(key))
	if err != nil {
		return err
	}
	fmt.Printf("provider: %s\n", f.Kind.String())
	return nil
}

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
}
