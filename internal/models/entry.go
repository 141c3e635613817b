// Package models holds the domain types that flow between pipeline stages.
package models

import "fmt"

// Content is the output of the generator: a caption and the media that goes
// with it.
type Content struct {
	Caption     string
	ImagePhrase string
	ImageURL    string
}

// ChatMessageRef identifies one posted chat message.
type ChatMessageRef struct {
	GuildID   string
	ChannelID string
	MessageID string
}

// URL renders the reference in the canonical discord.com form stored in
// metadata documents.
func (r ChatMessageRef) URL() string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", r.GuildID, r.ChannelID, r.MessageID)
}

// Distribution records where an entry was published. SocialPostURL is empty
// when the social channel failed.
type Distribution struct {
	ChatMessage   ChatMessageRef
	SocialPostURL string
}

// ContestEntry is one candidate in the contest.
type ContestEntry struct {
	CID             string
	CreatorAddress  string
	CaptionText     string
	ImageURL        string
	ChatMessageRef  ChatMessageRef
	SocialPostURL   string
	EngagementScore int
}

// SubmittedEntry is a MemeSubmitted record read back from the ledger.
type SubmittedEntry struct {
	CID         string
	Creator     string
	BlockNumber uint64
	TxHash      string
	LogIndex    uint
}

// CachedEntry is the local copy of an entry's metadata. The ledger stays the
// source of truth for which entries exist.
type CachedEntry struct {
	CID             string
	Creator         string
	Document        MetadataDocument
	EngagementScore *int
}
