package models

// Stage names the last pipeline step an entry reached.
type Stage string

const (
	StageGenerate   Stage = "generate"
	StageImage      Stage = "image"
	StageDistribute Stage = "distribute"
	StageArchive    Stage = "archive"
	StageSubmit     Stage = "submit"
	StageDone       Stage = "done"
)

// EntryOutcome reports what happened to one entry of a cycle. When Err is nil
// Stage is StageDone; otherwise Stage is where the entry stopped.
type EntryOutcome struct {
	Index          int
	Stage          Stage
	CID            string
	ChatMessageURL string
	SocialPostURL  string
	TxHash         string
	Err            error
}

// CycleReport is the structured result of one RunCycle call.
type CycleReport struct {
	CycleID  string
	Keywords string
	Entries  []EntryOutcome
}

func (r CycleReport) Submitted() int {
	n := 0
	for _, e := range r.Entries {
		if e.Err == nil {
			n++
		}
	}
	return n
}
