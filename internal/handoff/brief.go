package handoff

import (
	"time"

	"intake/internal/catalog"
	"intake/internal/logging"
	"intake/internal/types"
)

// executiveSummary prefaces every brief handed to the analysis workflow.
const executiveSummary = "This brief captures the key insights from the onboarding conversation. " +
	"Fields marked uncertain were either not visited or stated with doubt and need validation during analysis."

// BuildBrief projects the session's coverage through the catalog's declared
// fields. Every declared field appears exactly once: collected fields carry
// the captured excerpt, everything else is an explicit uncertain marker with
// an empty value (distinguishing "not visited" from "stated but uncertain").
func BuildBrief(cat *catalog.Catalog, sess *types.Session) types.Brief {
	timer := logging.StartTimer(logging.CategoryHandoff, "BuildBrief")
	defer timer.Stop()

	brief := types.Brief{
		SessionID:        sess.ID,
		ExecutiveSummary: executiveSummary,
		GeneratedAt:      time.Now().UTC(),
	}

	for _, stage := range cat.Stages() {
		cov, visited := sess.Coverage[stage.Stage]
		collected := make(map[string]bool, len(cov.BriefFields))
		if visited {
			for _, f := range cov.BriefFields {
				collected[f] = true
			}
		}

		for _, key := range stage.DataToCollect {
			field := types.BriefField{
				Key:       key,
				Stage:     stage.Stage,
				StageName: stage.Name,
			}
			if collected[key] {
				field.Value = cov.LastExcerpt
				field.Uncertain = IsUncertain(field.Value)
			} else {
				field.Uncertain = true
			}
			brief.Fields = append(brief.Fields, field)
		}
	}

	logging.Handoff("Built brief for session %s: %d fields, %d uncertain",
		sess.ID, len(brief.Fields), len(brief.UncertainKeys()))
	return brief
}
