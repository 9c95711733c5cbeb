// Package bot implements the Slack-facing chat surface: an on-demand
// "/resources" slash command and a periodic tracker post for entities
// about to become available.
package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"landwatch/internal/land"
	"landwatch/internal/store"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
)

// Config controls bot credentials, target channels, and the tracker's
// posting cadence and availability window.
type Config struct {
	BotToken        string
	AppToken        string
	TrackerChannel  string
	IndustryChannel string
	TrackerInterval time.Duration
	LowSec          int
	HighSec         int
	MaxLand         int
	Debug           bool
}

// Bot serves /resources and posts the periodic tracker digest.
type Bot struct {
	client     SlackAPI
	socketMode *socketmode.Client
	store      store.StateStore
	cfg        Config
	logger     *log.Logger
}

// New builds a Bot. Both BotToken and AppToken are required since the bot
// runs over Socket Mode.
func New(cfg Config, st store.StateStore) (*Bot, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("bot: bot token is required")
	}
	if cfg.AppToken == "" {
		return nil, fmt.Errorf("bot: app token is required for socket mode")
	}
	if !strings.HasPrefix(cfg.AppToken, "xapp-") {
		return nil, fmt.Errorf("bot: app token must start with xapp-")
	}

	client := slack.New(cfg.BotToken, slack.OptionDebug(cfg.Debug), slack.OptionAppLevelToken(cfg.AppToken))
	socketClient := socketmode.New(client, socketmode.OptionDebug(cfg.Debug))

	return &Bot{
		client:     client,
		socketMode: socketClient,
		store:      st,
		cfg:        cfg,
		logger:     log.New(log.Writer(), "bot: ", log.LstdFlags),
	}, nil
}

// Run handles Socket Mode events and runs the tracker loop until ctx is
// cancelled.
func (b *Bot) Run(ctx context.Context) error {
	go func() {
		for evt := range b.socketMode.Events {
			b.handleEvent(ctx, evt)
		}
	}()

	go b.trackerLoop(ctx)

	return b.socketMode.RunContext(ctx)
}

func (b *Bot) handleEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		b.logger.Println("connecting to socket mode")
	case socketmode.EventTypeConnectionError:
		b.logger.Printf("connection error: %v", evt.Data)
	case socketmode.EventTypeSlashCommand:
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			return
		}
		if evt.Request != nil {
			b.socketMode.Ack(*evt.Request)
		}
		b.handleSlashCommand(ctx, cmd)
	}
}

func (b *Bot) handleSlashCommand(ctx context.Context, cmd slack.SlashCommand) {
	if cmd.Command != "/resources" {
		b.postEphemeral(cmd.ChannelID, cmd.UserID, "unknown command: "+cmd.Command)
		return
	}

	landNumber, err := strconv.Atoi(strings.TrimSpace(cmd.Text))
	if err != nil || landNumber < 1 || (b.cfg.MaxLand > 0 && landNumber > b.cfg.MaxLand) {
		b.postEphemeral(cmd.ChannelID, cmd.UserID, "usage: /resources <land number>")
		return
	}

	snap, err := b.store.Get(ctx, land.Id(landNumber))
	if err != nil {
		b.postEphemeral(cmd.ChannelID, cmd.UserID, fmt.Sprintf("error fetching land %d: %v", landNumber, err))
		return
	}
	if snap == nil {
		b.postEphemeral(cmd.ChannelID, cmd.UserID, "there is no data for the requested land")
		return
	}

	parsed, err := land.Parse(snap.Raw)
	if err != nil {
		b.postEphemeral(cmd.ChannelID, cmd.UserID, fmt.Sprintf("malformed state for land %d: %v", landNumber, err))
		return
	}
	parsed.LandNumber = landNumber

	if _, _, err := b.client.PostMessage(cmd.ChannelID,
		slack.MsgOptionText(formatResourcesReply(landNumber, snap, parsed), false),
	); err != nil {
		b.logger.Printf("post resources reply: %v", err)
	}
}

func (b *Bot) postEphemeral(channelID, userID, text string) {
	if _, err := b.client.PostEphemeral(channelID, userID, slack.MsgOptionText(text, false)); err != nil {
		b.logger.Printf("post ephemeral: %v", err)
	}
}

// trackerLoop periodically scans every cached land, and for any resource
// about to become available within the configured window, posts a digest
// line to the trees or industries tracker channel.
func (b *Bot) trackerLoop(ctx context.Context) {
	if b.cfg.TrackerChannel == "" && b.cfg.IndustryChannel == "" {
		return
	}
	interval := b.cfg.TrackerInterval
	if interval <= 0 {
		interval = 150 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.postTrackerDigest(ctx)
		}
	}
}

func (b *Bot) postTrackerDigest(ctx context.Context) {
	keys, err := b.store.Keys(ctx)
	if err != nil {
		b.logger.Printf("tracker: list keys: %v", err)
		return
	}

	now := time.Now()
	for _, l := range keys {
		snap, err := b.store.Get(ctx, l)
		if err != nil || snap == nil {
			continue
		}
		parsed, err := land.Parse(snap.Raw)
		if err != nil {
			continue
		}
		parsed.LandNumber = int(l)
		if parsed.IsBlocked {
			continue
		}

		tracked := filterResources(parsed, now, b.cfg.LowSec, b.cfg.HighSec)
		trees, industries := formatTrackerMessage(tracked)

		if trees != "" && b.cfg.TrackerChannel != "" {
			if _, _, err := b.client.PostMessage(b.cfg.TrackerChannel, slack.MsgOptionText(trees, false)); err != nil {
				b.logger.Printf("tracker: post trees: %v", err)
			}
		}
		if industries != "" && b.cfg.IndustryChannel != "" {
			if _, _, err := b.client.PostMessage(b.cfg.IndustryChannel, slack.MsgOptionText(industries, false)); err != nil {
				b.logger.Printf("tracker: post industries: %v", err)
			}
		}
	}
}
