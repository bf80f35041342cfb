// Interactive chat loop. One engine drives one session; the loop reads a
// line, sends it as a turn, and renders the agent's reply plus any stage
// announcements coming off the event bus.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"intake/internal/engine"
	"intake/internal/types"
)

const divider = "────────────────────────────────────────────────────────────"

func runChat(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted. Your progress is saved; run intake again to resume.")
		cancel()
	}()

	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	eng := rt.newEngine()
	events := eng.Events().Subscribe()
	announceDone := make(chan struct{})
	go announce(events, announceDone)
	defer func() {
		eng.Events().Unsubscribe(events)
		<-announceDone
	}()

	sess, err := eng.Start(ctx, resolveUserID(), "founder-onboarding")
	if err != nil {
		return err
	}

	fmt.Println(dividerStyle.Render(divider))
	fmt.Printf("%s  %s\n", stageBar(sess.CurrentStage, sess.TotalStages),
		stageStyle.Render(rt.cat.Name(sess.CurrentStage)))
	fmt.Println(hintStyle.Render("Commands: /brief  /status  /quit"))
	fmt.Println(dividerStyle.Render(divider))

	// On resume, replay the tail of the conversation so the user has context.
	if len(sess.History) > 0 {
		replayTail(sess.History, 6)
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		if eng.Snapshot().Status == types.StatusCompleted {
			return nil
		}
		fmt.Print(userStyle.Render("> "))
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := runChatCommand(eng, line); quit {
				return nil
			}
			continue
		}

		result, err := eng.SendMessage(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Println(errorStyle.Render("✗ ") + presentError(err))
			fmt.Println(hintStyle.Render("Your message was not recorded. Try sending it again."))
			continue
		}

		for _, m := range result.AgentMessages {
			fmt.Println(agentStyle.Render("intake: ") + m.Content)
		}
		if result.CompletionErr != nil {
			fmt.Println(errorStyle.Render("✗ ") + presentError(result.CompletionErr))
			fmt.Println(hintStyle.Render("Your answers are safe. Type /brief to review them, or try again."))
		}
		if result.Completed && result.Completion != nil {
			fmt.Println(dividerStyle.Render(divider))
			fmt.Println(stageStyle.Render("All set!") + " Your brief has been submitted for analysis.")
			if result.Completion.RedirectTarget != "" {
				fmt.Println(hintStyle.Render("Next: " + result.Completion.RedirectTarget))
			}
			return nil
		}
	}
}

// runChatCommand handles slash commands; returns true when the loop should
// exit.
func runChatCommand(eng *engine.Engine, line string) bool {
	switch strings.Fields(line)[0] {
	case "/quit", "/q", "/exit":
		fmt.Println(hintStyle.Render("Progress saved. Run intake again to pick up where you left off."))
		return true
	case "/brief", "/b":
		brief, err := eng.Brief()
		if err != nil {
			fmt.Println(errorStyle.Render("✗ ") + presentError(err))
			return false
		}
		printBrief(&brief)
	case "/status", "/s":
		printStages(eng.StageStates(), eng.Snapshot())
	default:
		fmt.Println(hintStyle.Render("Commands: /brief  /status  /quit"))
	}
	return false
}

// announce renders bus events that are not direct replies to the user's
// turn: stage transitions and clarification nudges.
func announce(events <-chan engine.Event, done chan<- struct{}) {
	defer close(done)
	for ev := range events {
		switch ev.Kind {
		case engine.EventStageChanged:
			fmt.Println()
			fmt.Println(dividerStyle.Render(divider))
			if ev.Progress != nil {
				fmt.Printf("%s  %s (%s)\n",
					stageBar(ev.Progress.Current, ev.Progress.Total),
					stageStyle.Render(ev.StageName),
					ev.Progress.ValueText)
			} else {
				fmt.Println(stageStyle.Render(ev.StageName))
			}
			fmt.Println(dividerStyle.Render(divider))
		case engine.EventClarificationSuggested:
			fmt.Println(hintStyle.Render("tip: " + ev.Text))
		}
	}
}

func replayTail(history []types.Message, n int) {
	start := len(history) - n
	if start < 0 {
		start = 0
	}
	if start > 0 {
		fmt.Println(hintStyle.Render(fmt.Sprintf("… %d earlier messages", start)))
	}
	for _, m := range history[start:] {
		switch m.Role {
		case types.RoleAgent:
			fmt.Println(agentStyle.Render("intake: ") + m.Content)
		case types.RoleUser:
			fmt.Println(userStyle.Render("you: ") + m.Content)
		}
	}
}

func printBrief(brief *types.Brief) {
	fmt.Println(dividerStyle.Render(divider))
	fmt.Println(stageStyle.Render("Brief so far"))
	for _, f := range brief.Fields {
		label := fmt.Sprintf("%-24s", f.Key)
		if f.Uncertain {
			value := f.Value
			if value == "" {
				value = "(not yet discussed)"
			}
			fmt.Printf("  %s %s\n", label, uncertainStyle.Render(value+" ?"))
			continue
		}
		fmt.Printf("  %s %s\n", label, f.Value)
	}
	if keys := brief.UncertainKeys(); len(keys) > 0 {
		fmt.Println(hintStyle.Render(fmt.Sprintf("%d topics still need detail", len(keys))))
	}
	fmt.Println(dividerStyle.Render(divider))
}

func printStages(states []engine.StageState, sess *types.Session) {
	fmt.Println(dividerStyle.Render(divider))
	for _, s := range states {
		marker := "○"
		style := hintStyle
		switch {
		case s.IsComplete:
			marker = "●"
			style = stageStyle
		case s.IsActive:
			marker = "◉"
			style = agentStyle
		}
		fmt.Printf("  %s %s\n", style.Render(marker), style.Render(fmt.Sprintf("Stage %d: %s", s.Stage, s.Name)))
	}
	if sess != nil {
		fmt.Println(hintStyle.Render(fmt.Sprintf("Overall progress: %.0f%%", sess.OverallProgress)))
	}
	fmt.Println(dividerStyle.Render(divider))
}
