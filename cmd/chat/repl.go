package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/petasbytes/chatmem/session"
	"github.com/petasbytes/chatmem/windowing"
)

const youPrompt = "\u001b[94mYou\u001b[0m: "

type repl struct {
	sess  *session.Session
	name  string
	out   io.Writer
	greet bool
}

func (r *repl) say(text string) {
	fmt.Fprintf(r.out, "\n\u001b[93m%s\u001b[0m: %s\n\n", r.name, text)
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	fmt.Fprintf(r.out, "Chat with %s (quit, clear, stats, help; Ctrl-C to exit)\n", r.name)
	if r.greet {
		if reply, err := r.sess.Greet(ctx); err != nil {
			r.reportError(err)
		} else {
			r.say(reply.Content)
		}
	}

	// stdin reader goroutine -> lines into channel
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	inputCh := make(chan string)
	go func() {
		defer close(inputCh)
		for scanner.Scan() {
			select {
			case inputCh <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(r.out, youPrompt)
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-inputCh:
			if !ok {
				fmt.Fprintln(r.out)
				return scanner.Err()
			}
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch strings.ToLower(line) {
		case "quit", "exit":
			r.say("Goodbye! Come back anytime.")
			return nil
		case "clear":
			if err := r.sess.Clear(); err != nil {
				r.reportError(err)
				continue
			}
			fmt.Fprintln(r.out, "\n[conversation cleared, starting fresh]")
			r.say("Hello again! How can I help?")
			continue
		case "stats":
			r.printStats()
			continue
		case "help":
			fmt.Fprint(r.out, "\nquit   leave the chat\nclear  forget the conversation, keep the persona\nstats  show history size and token usage\n\n")
			continue
		}

		r.turn(ctx, line)
	}
}

func (r *repl) turn(ctx context.Context, line string) {
	before := r.sess.Stats().Evictions
	reply, err := r.sess.NewTurn(ctx, line)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.reportError(err)
		return
	}
	if n := r.sess.Stats().Evictions - before; n > 0 {
		fmt.Fprintf(r.out, "[removed %d old message(s) to stay within token limit]\n", n)
	}
	r.say(reply.Content)
	u := reply.Usage
	fmt.Fprintf(r.out, "[tokens: prompt %d, response %d, total %d]\n", u.PromptTokens, u.CompletionTokens, u.TotalTokens)
	if reply.FinishReason == "length" || reply.FinishReason == "max_tokens" {
		fmt.Fprintln(r.out, "[reply cut short by the response token limit]")
	}
}

func (r *repl) reportError(err error) {
	var unsat *windowing.BudgetUnsatisfiableError
	switch {
	case errors.As(err, &unsat):
		fmt.Fprintf(r.out, "\nerror: the persona prompt alone needs %d tokens but only %d fit; raise --max-context-tokens\n\n",
			unsat.SystemTokens, unsat.Limit)
	case errors.Is(err, session.ErrMessageExceedsBudget):
		fmt.Fprintf(r.out, "\nerror: that message is too long for the token budget; try a shorter one\n\n")
	default:
		fmt.Fprintf(r.out, "\nerror: %v\n[message not kept; you can send it again]\n\n", err)
	}
}

func (r *repl) printStats() {
	st := r.sess.Stats()
	encoder := st.Encoding
	if !st.ExactEncoder {
		encoder += " (estimated)"
	}
	fmt.Fprintf(r.out, `
--- conversation stats ---
messages in history: %d
tokens used:         %d / %d
tokens available:    %d
evicted so far:      %d
encoding:            %s

`, st.MessageCount, st.TokenCount, st.EffectiveLimit, st.TokensAvailable, st.Evictions, encoder)
}
