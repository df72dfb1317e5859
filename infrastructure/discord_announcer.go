package infrastructure

import (
	"context"
	"fmt"

	"raffle/domain/events"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Embed colors
const (
	ColorInfo    = 0x3498DB
	ColorSuccess = 0x57F287
	ColorPrimary = 0x5865F2
)

// ChannelMessenger is the part of a discordgo session the announcer needs
type ChannelMessenger interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordAnnouncer posts round lifecycle announcements to a Discord channel
type DiscordAnnouncer struct {
	session   ChannelMessenger
	channelID string
}

// NewDiscordAnnouncer creates an announcer posting to channelID
func NewDiscordAnnouncer(session ChannelMessenger, channelID string) *DiscordAnnouncer {
	return &DiscordAnnouncer{session: session, channelID: channelID}
}

// OpenDiscordSession creates a bot session. Announcements only need the REST
// API so the gateway is never opened.
func OpenDiscordSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	return session, nil
}

// EventTypes lists the events the announcer posts
func (a *DiscordAnnouncer) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventTypeRoundOpened,
		events.EventTypeRoundCompleted,
		events.EventTypePrizeClaimed,
	}
}

// HandleEvent posts the embed for event, if it has one
func (a *DiscordAnnouncer) HandleEvent(ctx context.Context, event events.Event) error {
	embed := AnnouncementEmbed(event)
	if embed == nil {
		return nil
	}

	if _, err := a.session.ChannelMessageSendEmbed(a.channelID, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to announce %s: %w", event.Type(), err)
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"channelID": a.channelID,
	}).Debug("Posted round announcement")
	return nil
}

// AnnouncementEmbed builds the embed for an event, or nil for events that are
// not announced
func AnnouncementEmbed(event events.Event) *discordgo.MessageEmbed {
	switch e := event.(type) {
	case events.RoundOpenedEvent:
		return &discordgo.MessageEmbed{
			Title:       fmt.Sprintf("Raffle #%d is open", e.RoundID),
			Color:       ColorInfo,
			Description: fmt.Sprintf("Closes no earlier than <t:%d:f>", e.EndTime.Unix()),
			Fields: []*discordgo.MessageEmbedField{
				{
					Name:   "Ticket Price",
					Value:  fmt.Sprintf("%d", e.TicketPrice),
					Inline: true,
				},
			},
		}
	case events.RoundCompletedEvent:
		return &discordgo.MessageEmbed{
			Title: fmt.Sprintf("Raffle #%d - winner drawn", e.RoundID),
			Color: ColorSuccess,
			Fields: []*discordgo.MessageEmbedField{
				{
					Name:   "Winner",
					Value:  e.Winner,
					Inline: false,
				},
				{
					Name:   "Prize",
					Value:  fmt.Sprintf("%d", e.PrizePool),
					Inline: true,
				},
				{
					Name:   "Tickets",
					Value:  fmt.Sprintf("%d from %d players", e.TotalTickets, e.Participants),
					Inline: true,
				},
			},
		}
	case events.PrizeClaimedEvent:
		return &discordgo.MessageEmbed{
			Title:       fmt.Sprintf("Raffle #%d prize claimed", e.RoundID),
			Color:       ColorPrimary,
			Description: fmt.Sprintf("%s claimed %d", e.Winner, e.Amount),
		}
	default:
		return nil
	}
}
