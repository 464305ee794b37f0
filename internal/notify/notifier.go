package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/osse101/mobilesync/internal/domain"
	"github.com/osse101/mobilesync/internal/logger"
)

// Sender is the slice of *discordgo.Session the notifier needs
type Sender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Config holds the Discord notifier settings
type Config struct {
	Token     string
	ChannelID string
}

// DiscordNotifier posts conflict summaries to an operator channel
type DiscordNotifier struct {
	sender    Sender
	channelID string
}

// NewDiscordNotifier creates a notifier backed by a bot session.
// The session is REST-only; no gateway connection is opened.
func NewDiscordNotifier(cfg Config) (*DiscordNotifier, error) {
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf(ErrMsgCreateSession, err)
	}
	return NewDiscordNotifierWithSender(s, cfg.ChannelID), nil
}

// NewDiscordNotifierWithSender creates a notifier over an existing sender
func NewDiscordNotifierWithSender(sender Sender, channelID string) *DiscordNotifier {
	return &DiscordNotifier{sender: sender, channelID: channelID}
}

// NotifyConflict sends one embed per conflict
func (n *DiscordNotifier) NotifyConflict(ctx context.Context, rec domain.ConflictRecord) error {
	if _, err := n.sender.ChannelMessageSendEmbed(n.channelID, ConflictEmbed(rec), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf(ErrMsgSendEmbed, rec.ID, err)
	}
	logger.FromContext(ctx).Debug(LogMsgConflictNotified, "conflict_id", rec.ID)
	return nil
}

// ConflictEmbed renders a conflict log row for operators
func ConflictEmbed(rec domain.ConflictRecord) *discordgo.MessageEmbed {
	title, color := TitleResolvedConflict, ColorResolved
	if rec.Status == domain.ConflictStatusPending {
		title, color = TitlePendingConflict, ColorPending
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: fmt.Sprintf("%s/%s in tenant %s", rec.Domain, rec.MobileID, rec.TenantID),
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Conflict", Value: rec.ID},
			{Name: "Device", Value: rec.DeviceID, Inline: true},
			{Name: "Strategy", Value: string(rec.Strategy), Inline: true},
			{Name: "Winner", Value: string(rec.WinningSide), Inline: true},
			{Name: "Versions", Value: fmt.Sprintf("server v%d, client v%d", rec.ServerVersion, rec.ClientVersion)},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: FooterText,
		},
	}
}

// Noop drops notifications
type Noop struct{}

// NotifyConflict does nothing
func (Noop) NotifyConflict(context.Context, domain.ConflictRecord) error {
	return nil
}
