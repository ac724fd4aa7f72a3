package discord

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/MEKXH/warden/internal/approval"
	"github.com/MEKXH/warden/internal/command"
	"github.com/MEKXH/warden/internal/notify"
	"github.com/MEKXH/warden/internal/policy"
)

// applicationCommands describes the slash commands published at startup.
func applicationCommands() []*discordgo.ApplicationCommand {
	username := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        command.OptSubject,
		Description: "Player username",
		Required:    true,
	}
	reason := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        command.OptReason,
		Description: "Why the player is KOS",
		Required:    true,
	}
	return []*discordgo.ApplicationCommand{{
		Name:        "watchlist",
		Description: "Manage the KOS list",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "add",
				Description: "Add a player to the KOS list",
				Options:     []*discordgo.ApplicationCommandOption{username, reason},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "remove",
				Description: "Remove a player from the KOS list",
				Options:     []*discordgo.ApplicationCommandOption{username},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "request",
				Description: "Request a player be added to the KOS list",
				Options: []*discordgo.ApplicationCommandOption{username, reason, {
					Type:        discordgo.ApplicationCommandOptionAttachment,
					Name:        command.OptAttachment,
					Description: "Screenshot or other proof",
				}},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "status",
				Description: "Check whether a player is on the KOS list",
				Options:     []*discordgo.ApplicationCommandOption{username},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "refresh",
				Description: "Repost every KOS notice",
			},
		},
	}}
}

// publicSubcommands reply in the channel instead of privately.
var publicSubcommands = map[string]bool{"request": true}

func (c *Channel) handleInteraction(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	if ic == nil || ic.Interaction == nil {
		return
	}
	if !c.IsAllowed(ic.GuildID) {
		return
	}
	switch ic.Type {
	case discordgo.InteractionApplicationCommand:
		c.runSlash(context.Background(), ic.Interaction)
	case discordgo.InteractionMessageComponent:
		ctx, cancel := c.withTimeout(context.Background())
		defer cancel()
		resp := c.dispatchDecision(ctx, ic.Interaction)
		if resp == nil {
			return
		}
		rest := c.rest()
		if rest == nil {
			return
		}
		if err := rest.InteractionRespond(ic.Interaction, resp, discordgo.WithContext(ctx)); err != nil {
			slog.Error("discord interaction respond failed", "interaction_id", ic.ID, "error", err)
		}
	}
}

// runSlash acknowledges a slash command with a deferred response, runs it and
// then edits the deferred response with the result. The edit uses its own
// deadline so a command that spends the event budget can still reply.
func (c *Channel) runSlash(ctx context.Context, i *discordgo.Interaction) {
	c.mu.RLock()
	commands := c.commands
	c.mu.RUnlock()
	rest := c.rest()
	if commands == nil || rest == nil {
		return
	}
	data := i.ApplicationCommandData()
	cmd, ok := commands.Get(data.Name)
	if !ok {
		return
	}
	opts := commandOptions(data)

	ackCtx, cancelAck := c.withTimeout(ctx)
	err := rest.InteractionRespond(i, deferred(opts[command.OptSubcommand]), discordgo.WithContext(ackCtx))
	cancelAck()
	if err != nil {
		slog.Error("discord interaction defer failed", "interaction_id", i.ID, "error", err)
		return
	}

	requestID := c.newID()
	actor := interactionActor(i)
	slog.Info("discord command", "request_id", requestID, "command", data.Name, "actor", actor.ID)

	runCtx, cancelRun := c.withTimeout(ctx)
	res := commands.Run(runCtx, cmd, "", command.Env{
		Actor:     actor,
		RequestID: requestID,
		Options:   opts,
	})
	cancelRun()

	replyCtx, cancelReply := c.withTimeout(ctx)
	defer cancelReply()
	if _, err := rest.InteractionResponseEdit(i, webhookEdit(res), discordgo.WithContext(replyCtx)); err != nil {
		slog.Error("discord interaction reply failed", "request_id", requestID, "interaction_id", i.ID, "error", err)
	}
}

// dispatchDecision resolves a request button press. It returns nil for
// components it does not handle.
func (c *Channel) dispatchDecision(ctx context.Context, i *discordgo.Interaction) *discordgo.InteractionResponse {
	c.mu.RLock()
	decider := c.decider
	c.mu.RUnlock()
	if decider == nil {
		return nil
	}
	decision, id, ok := approval.ParseButtonID(i.MessageComponentData().CustomID)
	if !ok {
		return nil
	}
	requestID := c.newID()
	actor := interactionActor(i)
	slog.Info("discord request decision", "request_id", requestID, "approval_id", id, "decision", decision, "actor", actor.ID)

	var err error
	var req approval.Request
	if decision == approval.DecisionAccept {
		req, err = decider.Approve(ctx, id, actor)
	} else {
		req, err = decider.Deny(ctx, id, actor)
	}
	if err != nil {
		if stored, getErr := decider.Get(ctx, id); getErr == nil {
			req = stored
		}
		return respond(command.ErrorResult(err, req.SubjectKey))
	}
	content := "Request denied."
	if decision == approval.DecisionAccept {
		content = "Request approved."
	}
	return respond(command.Result{Content: content, Color: notify.ColorGreen, Private: true})
}

// commandOptions flattens a subcommand invocation into named options.
func commandOptions(data discordgo.ApplicationCommandInteractionData) map[string]string {
	out := make(map[string]string)
	opts := data.Options
	if len(opts) == 1 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		out[command.OptSubcommand] = opts[0].Name
		opts = opts[0].Options
	}
	for _, opt := range opts {
		switch opt.Type {
		case discordgo.ApplicationCommandOptionString:
			out[opt.Name] = opt.StringValue()
		case discordgo.ApplicationCommandOptionAttachment:
			id, _ := opt.Value.(string)
			if data.Resolved != nil {
				if att, ok := data.Resolved.Attachments[id]; ok && att != nil {
					out[opt.Name] = att.URL
				}
			}
		}
	}
	return out
}

func respond(res command.Result) *discordgo.InteractionResponse {
	data := &discordgo.InteractionResponseData{}
	if res.Title == "" && len(res.Fields) == 0 {
		data.Content = res.Content
	} else {
		data.Embeds = []*discordgo.MessageEmbed{toEmbed(res.Message())}
	}
	if res.Private {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}
}

func deferred(subcommand string) *discordgo.InteractionResponse {
	data := &discordgo.InteractionResponseData{}
	if !publicSubcommands[subcommand] {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	}
}

func webhookEdit(res command.Result) *discordgo.WebhookEdit {
	edit := &discordgo.WebhookEdit{}
	if res.Title == "" && len(res.Fields) == 0 {
		content := res.Content
		edit.Content = &content
	} else {
		embeds := []*discordgo.MessageEmbed{toEmbed(res.Message())}
		edit.Embeds = &embeds
	}
	return edit
}

func interactionActor(i *discordgo.Interaction) policy.Actor {
	if i.Member != nil && i.Member.User != nil {
		return memberActor(i.Member.User, i.Member.Roles, i.Member.Permissions)
	}
	if i.User != nil {
		return memberActor(i.User, nil, 0)
	}
	return policy.Actor{}
}

func memberActor(user *discordgo.User, roles []string, permissions int64) policy.Actor {
	return policy.Actor{
		ID:            user.ID,
		Name:          user.Username,
		Display:       "<@" + user.ID + ">",
		Roles:         roles,
		Administrator: permissions&discordgo.PermissionAdministrator != 0,
	}
}

func (c *Channel) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil || m.Author == nil || m.Author.Bot {
		return
	}
	if s != nil && s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}
	if !c.IsAllowed(m.GuildID) {
		return
	}
	ctx, cancel := c.withTimeout(context.Background())
	defer cancel()
	c.dispatchMessage(ctx, m.Message, m.Member)
}

// dispatchMessage runs a prefixed text command and replies in place.
func (c *Channel) dispatchMessage(ctx context.Context, m *discordgo.Message, member *discordgo.Member) {
	c.mu.RLock()
	commands := c.commands
	c.mu.RUnlock()
	if commands == nil {
		return
	}
	cmd, args, ok := commands.Lookup(m.Content)
	if !ok {
		return
	}

	var roles []string
	if member != nil {
		roles = member.Roles
	}
	var perms int64
	if c.permissions != nil {
		p, err := c.permissions(m.Author.ID, m.ChannelID)
		if err != nil {
			slog.Debug("discord permission lookup failed", "user_id", m.Author.ID, "error", err)
		}
		perms = p
	}
	attachment := ""
	for _, att := range m.Attachments {
		if att != nil && att.URL != "" {
			attachment = att.URL
			break
		}
	}

	requestID := c.newID()
	actor := memberActor(m.Author, roles, perms)
	slog.Info("discord text command", "request_id", requestID, "command", cmd.Name(), "actor", actor.ID)
	res := commands.Run(ctx, cmd, args, command.Env{
		Actor:         actor,
		RequestID:     requestID,
		AttachmentURL: attachment,
	})

	rest := c.rest()
	if rest == nil {
		return
	}
	reply := &discordgo.MessageSend{Reference: m.Reference()}
	if res.Title == "" && len(res.Fields) == 0 {
		reply.Content = strings.TrimSpace(res.Content)
	} else {
		reply.Embeds = []*discordgo.MessageEmbed{toEmbed(res.Message())}
	}
	replyCtx, cancel := c.withTimeout(context.WithoutCancel(ctx))
	defer cancel()
	if _, err := rest.ChannelMessageSendComplex(m.ChannelID, reply, discordgo.WithContext(replyCtx)); err != nil {
		slog.Error("discord reply failed", "request_id", requestID, "channel_id", m.ChannelID, "error", err)
	}
}
