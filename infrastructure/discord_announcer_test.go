package infrastructure

import (
	"context"
	"errors"
	"testing"
	"time"

	"raffle/domain/events"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessenger struct {
	channel string
	embeds  []*discordgo.MessageEmbed
	err     error
}

func (f *fakeMessenger) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.channel = channelID
	f.embeds = append(f.embeds, embed)
	return &discordgo.Message{ChannelID: channelID}, nil
}

func TestAnnouncementEmbed(t *testing.T) {
	t.Parallel()

	endTime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	opened := AnnouncementEmbed(events.RoundOpenedEvent{RoundID: 7, TicketPrice: 3, EndTime: endTime})
	require.NotNil(t, opened)
	assert.Equal(t, "Raffle #7 is open", opened.Title)
	assert.Contains(t, opened.Description, "<t:1772366400:f>")
	assert.Equal(t, "3", opened.Fields[0].Value)

	completed := AnnouncementEmbed(events.RoundCompletedEvent{RoundID: 7, Winner: "0xwinner", PrizePool: 30, TotalTickets: 10, Participants: 4})
	require.NotNil(t, completed)
	assert.Equal(t, "0xwinner", completed.Fields[0].Value)
	assert.Equal(t, "30", completed.Fields[1].Value)
	assert.Equal(t, "10 from 4 players", completed.Fields[2].Value)

	claimed := AnnouncementEmbed(events.PrizeClaimedEvent{RoundID: 7, Winner: "0xwinner", Amount: 30})
	require.NotNil(t, claimed)
	assert.Equal(t, "0xwinner claimed 30", claimed.Description)

	assert.Nil(t, AnnouncementEmbed(events.TicketsPurchasedEvent{RoundID: 7}))
}

func TestDiscordAnnouncer_HandleEvent(t *testing.T) {
	t.Parallel()

	messenger := &fakeMessenger{}
	announcer := NewDiscordAnnouncer(messenger, "12345")

	require.NoError(t, announcer.HandleEvent(context.Background(), events.PrizeClaimedEvent{RoundID: 1, Amount: 2}))
	require.NoError(t, announcer.HandleEvent(context.Background(), events.RoundDrawingEvent{RoundID: 1}))

	assert.Equal(t, "12345", messenger.channel)
	assert.Len(t, messenger.embeds, 1)

	messenger.err = errors.New("missing access")
	err := announcer.HandleEvent(context.Background(), events.RoundOpenedEvent{RoundID: 2})
	assert.ErrorContains(t, err, "missing access")
}
