package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"intake/internal/engine"
	"intake/internal/handoff"
	"intake/internal/scorer"
	"intake/internal/types"
)

// runStatus prints the stage checklist and progress for a stored session
// without opening a conversation.
func runStatus(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	var sess *types.Session
	if statusSessionID != "" {
		sess, err = rt.store.GetSession(statusSessionID)
	} else {
		sess, err = rt.store.OpenSessionForUser(resolveUserID())
	}
	if err != nil {
		return fmt.Errorf("failed to look up session: %w", err)
	}
	if sess == nil {
		fmt.Println(hintStyle.Render("No session found. Run intake to start one."))
		return nil
	}

	// Prefer the collaborator's out-of-band answer; an external workflow may
	// have advanced the session since the last local save. The stored
	// snapshot covers the offline case.
	if st, serr := rt.client.Status(cmd.Context(), scorer.StatusRequest{SessionID: sess.ID}); serr == nil {
		sess.OverallProgress = st.OverallProgress
		sess.StageProgress = st.StageProgress
		if st.CurrentStage > sess.CurrentStage {
			sess.CurrentStage = st.CurrentStage
		}
		if st.Completed {
			sess.Status = types.StatusCompleted
		}
	}

	fmt.Printf("Session %s (%s)\n", sess.ID, sess.Status)
	states := make([]engine.StageState, 0, rt.cat.TotalStages())
	for _, s := range rt.cat.Stages() {
		states = append(states, engine.StageState{
			Stage:      s.Stage,
			Name:       s.Name,
			IsComplete: s.Stage < sess.CurrentStage,
			IsActive:   s.Stage == sess.CurrentStage && sess.Status == types.StatusActive,
		})
	}
	printStages(states, sess)

	brief := handoff.BuildBrief(rt.cat, sess)
	if keys := brief.UncertainKeys(); len(keys) > 0 && sess.Status == types.StatusActive {
		fmt.Println(hintStyle.Render(fmt.Sprintf("%d topics still need detail; run intake to continue", len(keys))))
	}
	return nil
}

// runResume lists what will be picked up, then drops into the chat loop.
// Bootstrap handles the actual restoration; this is a convenience alias.
func runResume(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}

	sess, err := rt.store.OpenSessionForUser(resolveUserID())
	if err != nil {
		rt.close()
		return fmt.Errorf("failed to look up session: %w", err)
	}
	if sess == nil {
		fmt.Println(hintStyle.Render("No active session to resume; starting fresh."))
	} else {
		fmt.Printf("Resuming session %s at stage %d of %d (%d messages)\n",
			sess.ID, sess.CurrentStage, sess.TotalStages, len(sess.History))
	}
	rt.close()

	return runChat(cmd.Context())
}
