// Package main provides an interactive terminal chat against the front desk
// engine, without LINE or HTTP.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/garyellow/ptc-frontdesk/internal/bot"
	"github.com/garyellow/ptc-frontdesk/internal/ctxutil"
	"github.com/garyellow/ptc-frontdesk/internal/intent"
	"github.com/garyellow/ptc-frontdesk/internal/knowledge"
	"github.com/garyellow/ptc-frontdesk/internal/logger"
	"github.com/garyellow/ptc-frontdesk/internal/reply"
	"github.com/garyellow/ptc-frontdesk/internal/session"
	"github.com/garyellow/ptc-frontdesk/internal/storage"
)

// Transport is the ctxutil transport name for terminal sessions.
const Transport = "cli"

// CLI flags
var (
	knowledgeFlag = flag.String("knowledge", "", "YAML knowledge file (empty = built-in studio data)")
	dataFlag      = flag.String("data", "", "Directory for stats and interaction log (empty = in memory)")
	logLevelFlag  = flag.String("log-level", "warn", "Log level (debug, info, warn, error)")
)

func main() {
	flag.Parse()

	log := logger.NewWithWriter(*logLevelFlag, os.Stderr)

	kb, err := knowledge.Load(*knowledgeFlag)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load knowledge: %v\n", err)
		os.Exit(1)
	}

	var recorder storage.Recorder = storage.NewMemoryRecorder()
	if *dataFlag != "" {
		recorder, err = storage.NewFileRecorder(*dataFlag)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to open data dir: %v\n", err)
			os.Exit(1)
		}
	}
	defer func() { _ = recorder.Close() }()

	engine := bot.NewEngine(bot.EngineConfig{
		Classifier: intent.Default(),
		Composer:   reply.NewComposer(kb),
		Sessions:   session.NewMemoryStore(24 * time.Hour),
		Recorder:   recorder,
		Logger:     log,
	})

	if err := run(context.Background(), engine, os.Stdin, os.Stdout); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Chat error: %v\n", err)
		os.Exit(1)
	}
}

// run reads one message per line until EOF or "exit".
func run(ctx context.Context, engine *bot.Engine, in io.Reader, out io.Writer) error {
	ctx = ctxutil.WithTransport(ctx, Transport)
	sid := session.NewID()

	fmt.Fprintln(out, reply.Welcome())
	fmt.Fprintln(out, `(Befehle: "verlauf", "neu", "exit")`)

	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())

		switch {
		case line == "exit" || line == "quit":
			return nil
		case line == "verlauf":
			if err := printHistory(ctx, engine, sid, out); err != nil {
				return err
			}
			continue
		case reply.IsResetCommand(line):
			if err := engine.Reset(ctx, sid); err != nil {
				return err
			}
			sid = session.NewID()
			fmt.Fprintln(out, reply.ResetConfirmation)
			continue
		}

		res, err := engine.Respond(ctx, sid, line)
		if err != nil {
			// res still carries the fallback reply
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
		fmt.Fprintln(out, res.Reply)
		if status := reply.GoalStatus(res.Goal); status != "" {
			fmt.Fprintf(out, "\n(%s)\n", status)
		}
	}
}

func printHistory(ctx context.Context, engine *bot.Engine, sid string, out io.Writer) error {
	snap, err := engine.Snapshot(ctx, sid)
	if err != nil {
		return err
	}
	if len(snap.Transcript) == 0 {
		fmt.Fprintln(out, "(noch kein Verlauf)")
		return nil
	}
	for _, turn := range snap.Transcript {
		fmt.Fprintf(out, "[%s] %s: %s\n", turn.At.Local().Format("15:04"), turn.Role, turn.Text)
	}
	if len(snap.Asked) > 0 {
		topics := make([]string, len(snap.Asked))
		for i, k := range snap.Asked {
			topics[i] = k.String()
		}
		fmt.Fprintf(out, "(gefragt: %s)\n", strings.Join(topics, ", "))
	}
	return nil
}
