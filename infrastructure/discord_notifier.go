package infrastructure

import (
	"context"
	"fmt"
	"strings"
	"time"

	"squares/domain/entities"
	"squares/infrastructure/observability"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const (
	colorWarning = 0xFEE75C
	colorInfo    = 0x3498DB
)

// ChannelMessenger is the part of a discordgo session the notifier needs
type ChannelMessenger interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts operator alerts as embeds to an operator channel
type DiscordNotifier struct {
	session   ChannelMessenger
	channelID string
	metrics   *observability.MetricsProvider
}

// NewDiscordSession creates a bot session for sending alerts. No gateway
// connection is opened; the REST API is enough to post messages.
func NewDiscordSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	return session, nil
}

// NewDiscordNotifier creates a notifier posting to channelID
func NewDiscordNotifier(session ChannelMessenger, channelID string, metrics *observability.MetricsProvider) *DiscordNotifier {
	return &DiscordNotifier{
		session:   session,
		channelID: channelID,
		metrics:   metrics,
	}
}

// NotifyOperator posts the alert; the error is returned for the caller to log
func (n *DiscordNotifier) NotifyOperator(ctx context.Context, alert entities.OperatorAlert) error {
	if _, err := n.session.ChannelMessageSendEmbed(n.channelID, buildAlertEmbed(alert), discordgo.WithContext(ctx)); err != nil {
		n.metrics.RecordNotifierFailure(string(alert.Kind))
		return fmt.Errorf("failed to post operator alert for transaction %d: %w", alert.TransactionID, err)
	}

	log.WithFields(log.Fields{
		"kind":          alert.Kind,
		"transactionId": alert.TransactionID,
		"channelId":     n.channelID,
	}).Debug("Posted operator alert to Discord")
	return nil
}

func buildAlertEmbed(alert entities.OperatorAlert) *discordgo.MessageEmbed {
	title := "Withdrawal Requested"
	color := colorInfo
	command := "complete"
	if alert.Kind == entities.OperatorAlertPurchaseReview {
		title = "Purchase Needs Review"
		color = colorWarning
		command = "approve"
	}

	description := alert.Description
	if description == "" {
		description = "No description"
	}

	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s - %s HotCoins", title, formatCoins(alert.Amount)),
		Color:       color,
		Description: description,
		Timestamp:   alert.RaisedAt.UTC().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Transaction",
				Value:  fmt.Sprintf("#%d", alert.TransactionID),
				Inline: true,
			},
			{
				Name:   "Account",
				Value:  alert.AccountID.String(),
				Inline: true,
			},
			{
				Name:  "Resolve",
				Value: fmt.Sprintf("`squares %s %d`", command, alert.TransactionID),
			},
		},
	}
}

// formatCoins formats an amount with thousand separators
func formatCoins(amount int64) string {
	str := fmt.Sprintf("%d", amount)
	n := len(str)
	if n <= 3 {
		return str
	}

	var result strings.Builder
	for i, digit := range str {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}
	return result.String()
}
