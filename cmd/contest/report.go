package main

import (
	"fmt"
	"io"

	"github.com/juSt-jeLLy/clashofclouthosting/internal/models"
)

func printReport(w io.Writer, r models.CycleReport) {
	fmt.Fprintf(w, "Cycle %s: %d/%d entries submitted\n", r.CycleID, r.Submitted(), len(r.Entries))
	for _, e := range r.Entries {
		printOutcome(w, e)
	}
}

func printOutcome(w io.Writer, e models.EntryOutcome) {
	if e.Err != nil {
		fmt.Fprintf(w, "  #%d failed at %s: %v\n", e.Index, e.Stage, e.Err)
		return
	}
	fmt.Fprintf(w, "  #%d %s tx %s\n", e.Index, e.CID, e.TxHash)
	fmt.Fprintf(w, "     chat:   %s\n", e.ChatMessageURL)
	if e.SocialPostURL != "" {
		fmt.Fprintf(w, "     social: %s\n", e.SocialPostURL)
	}
}

func printSnapshot(w io.Writer, snapshot []models.EngagementResult) {
	fmt.Fprintf(w, "Tally: %d entries\n", len(snapshot))
	for _, r := range snapshot {
		if r.Err != nil {
			fmt.Fprintf(w, "  %s excluded: %v\n", r.CID, r.Err)
			continue
		}
		fmt.Fprintf(w, "  %s %d\n", r.CID, r.Score)
	}
}
