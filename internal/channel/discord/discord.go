package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/MEKXH/warden/internal/approval"
	"github.com/MEKXH/warden/internal/channel"
	"github.com/MEKXH/warden/internal/command"
	"github.com/MEKXH/warden/internal/config"
	"github.com/MEKXH/warden/internal/notify"
	"github.com/MEKXH/warden/internal/policy"
)

// session is the subset of *discordgo.Session used by the channel.
type session interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// Decider resolves request button presses.
type Decider interface {
	Approve(ctx context.Context, id string, reviewer policy.Actor) (approval.Request, error)
	Deny(ctx context.Context, id string, reviewer policy.Actor) (approval.Request, error)
	Get(ctx context.Context, id string) (approval.Request, error)
}

// Channel implements the Discord bot connection and notify.Notifier.
type Channel struct {
	channel.BaseChannel
	cfg      *config.DiscordConfig
	commands *command.Registry
	decider  Decider

	mu      sync.RWMutex
	session session
	gateway *discordgo.Session

	registerOnce sync.Once
	registerErr  error

	// permissions resolves channel permissions for text commands, where the
	// member payload carries none.
	permissions func(userID, channelID string) (int64, error)
	newID       func() string
	timeout     time.Duration
}

var _ notify.Notifier = (*Channel)(nil)

// New creates a Discord channel.
func New(cfg *config.DiscordConfig) *Channel {
	allowList := make(map[string]bool)
	for _, id := range cfg.AllowGuilds {
		allowList[id] = true
	}
	if cfg.GuildID != "" {
		allowList[cfg.GuildID] = true
	}
	return &Channel{
		BaseChannel: channel.BaseChannel{AllowList: allowList},
		cfg:         cfg,
		newID:       uuid.NewString,
		timeout:     30 * time.Second,
	}
}

// Bind attaches the command registry and request decider used by Start.
func (c *Channel) Bind(commands *command.Registry, decider Decider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = commands
	c.decider = decider
}

func (c *Channel) Name() string { return "discord" }

// Init creates the REST session without connecting to the gateway. It is
// enough for posting, editing and deleting notices.
func (c *Channel) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return nil
	}
	if c.cfg == nil {
		return fmt.Errorf("missing discord config")
	}
	token := strings.TrimSpace(c.cfg.Token)
	if token == "" {
		return fmt.Errorf("discord token is empty")
	}

	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
	c.session = s
	c.gateway = s
	c.permissions = func(userID, channelID string) (int64, error) {
		return s.State.UserChannelPermissions(userID, channelID)
	}
	return nil
}

func (c *Channel) Start(ctx context.Context) error {
	if err := c.Init(); err != nil {
		return err
	}

	c.mu.Lock()
	s := c.gateway
	c.mu.Unlock()
	if s == nil {
		return fmt.Errorf("discord gateway session unavailable")
	}
	s.AddHandler(c.handleMessage)
	s.AddHandler(c.handleInteraction)

	if err := s.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	appID := strings.TrimSpace(c.cfg.ApplicationID)
	if s.State != nil && s.State.User != nil {
		slog.Info("discord bot connected", "username", s.State.User.Username, "id", s.State.User.ID)
		if appID == "" {
			appID = s.State.User.ID
		}
	}
	if err := c.RegisterCommands(appID); err != nil {
		_ = s.Close()
		return err
	}
	return nil
}

func (c *Channel) Stop(ctx context.Context) error {
	c.mu.Lock()
	s := c.gateway
	c.mu.Unlock()
	if s != nil {
		return s.Close()
	}
	return nil
}

// RegisterCommands publishes the application commands. It runs once per
// process; later calls return the first result.
func (c *Channel) RegisterCommands(appID string) error {
	c.registerOnce.Do(func() {
		s := c.rest()
		if s == nil {
			c.registerErr = fmt.Errorf("discord session not initialized")
			return
		}
		if appID == "" {
			c.registerErr = fmt.Errorf("discord application id is empty")
			return
		}
		created, err := s.ApplicationCommandBulkOverwrite(appID, c.cfg.GuildID, applicationCommands())
		if err != nil {
			c.registerErr = fmt.Errorf("register discord commands: %w", err)
			return
		}
		slog.Info("discord commands registered", "count", len(created), "guild_id", c.cfg.GuildID)
	})
	return c.registerErr
}

// Post sends msg to channelID and returns the new message id.
func (c *Channel) Post(ctx context.Context, channelID string, msg notify.Message) (string, error) {
	s := c.rest()
	if s == nil {
		return "", fmt.Errorf("discord session not initialized")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	sent, err := s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{toEmbed(msg)},
		Components: toComponents(msg.Buttons),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("send discord message: %w", classify(err))
	}
	return sent.ID, nil
}

// Edit replaces the embed of a message and its controls.
func (c *Channel) Edit(ctx context.Context, channelID, messageID string, msg notify.Message) error {
	s := c.rest()
	if s == nil {
		return fmt.Errorf("discord session not initialized")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	embeds := []*discordgo.MessageEmbed{toEmbed(msg)}
	components := toComponents(msg.Buttons)
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	_, err := s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         messageID,
		Channel:    channelID,
		Embeds:     &embeds,
		Components: &components,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("edit discord message: %w", classify(err))
	}
	return nil
}

// Delete removes a message.
func (c *Channel) Delete(ctx context.Context, channelID, messageID string) error {
	s := c.rest()
	if s == nil {
		return fmt.Errorf("discord session not initialized")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := s.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete discord message: %w", classify(err))
	}
	return nil
}

func (c *Channel) rest() session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Channel) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// classify maps missing channels and messages to notify.ErrNotFound.
func classify(err error) error {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel:
			return fmt.Errorf("%w: %v", notify.ErrNotFound, err)
		}
	}
	if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", notify.ErrNotFound, err)
	}
	return err
}
