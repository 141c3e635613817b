package tally

import (
	"fmt"
	"regexp"

	"github.com/juSt-jeLLy/clashofclouthosting/internal/common"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/models"
)

var messageURL = regexp.MustCompile(`^https://discord\.com/channels/(\d+)/(\d+)/(\d+)$`)

// ParseChatMessageRef is the inverse of models.ChatMessageRef.URL.
func ParseChatMessageRef(raw string) (models.ChatMessageRef, error) {
	m := messageURL.FindStringSubmatch(raw)
	if m == nil {
		return models.ChatMessageRef{}, fmt.Errorf("%w: %q", common.ErrReferenceParse, raw)
	}
	return models.ChatMessageRef{GuildID: m[1], ChannelID: m[2], MessageID: m[3]}, nil
}
