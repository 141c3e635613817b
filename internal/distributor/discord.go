package distributor

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/models"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/netx"
)

// discordSession is the part of *discordgo.Session used here.
type discordSession interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	Close() error
}

// DiscordChat posts entries to one guild channel and reads their reactions.
type DiscordChat struct {
	session   discordSession
	guildID   string
	channelID string
}

var errEmptyMessage = errors.New("discord returned no message")

// OpenDiscord starts a bot session. The caller must Close it.
func OpenDiscord(token, guildID, channelID string) (*DiscordChat, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsGuildMessageReactions
	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("discord open: %w", err)
	}
	return NewDiscordChat(s, guildID, channelID), nil
}

func NewDiscordChat(s discordSession, guildID, channelID string) *DiscordChat {
	return &DiscordChat{session: s, guildID: guildID, channelID: channelID}
}

// Post sends the caption with the media attached.
func (d *DiscordChat) Post(ctx context.Context, caption string, media netx.Media, filename string) (models.ChatMessageRef, error) {
	msg, err := d.session.ChannelMessageSendComplex(d.channelID, &discordgo.MessageSend{
		Content: caption,
		Files: []*discordgo.File{{
			Name:        filename,
			ContentType: media.ContentType,
			Reader:      bytes.NewReader(media.Data),
		}},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return models.ChatMessageRef{}, err
	}
	if msg == nil || msg.ID == "" {
		return models.ChatMessageRef{}, errEmptyMessage
	}

	guildID := msg.GuildID
	if guildID == "" {
		guildID = d.guildID
	}
	return models.ChatMessageRef{GuildID: guildID, ChannelID: d.channelID, MessageID: msg.ID}, nil
}

// ReactionCount sums the counts of every reaction on the referenced message.
func (d *DiscordChat) ReactionCount(ctx context.Context, ref models.ChatMessageRef) (int, error) {
	msg, err := d.session.ChannelMessage(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx))
	if err != nil {
		return 0, err
	}
	total := 0
	for _, r := range msg.Reactions {
		if r != nil {
			total += r.Count
		}
	}
	return total, nil
}

func (d *DiscordChat) Close() error {
	return d.session.Close()
}
