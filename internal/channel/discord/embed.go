package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MEKXH/warden/internal/notify"
)

func toEmbed(msg notify.Message) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       msg.Title,
		Description: msg.Description,
		Color:       int(msg.Color),
	}
	for _, f := range msg.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	if msg.ImageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: msg.ImageURL}
	}
	if msg.ThumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: msg.ThumbnailURL}
	}
	if !msg.Timestamp.IsZero() {
		embed.Timestamp = msg.Timestamp.UTC().Format(time.RFC3339)
	}
	return embed
}

func toComponents(buttons []notify.Button) []discordgo.MessageComponent {
	if len(buttons) == 0 {
		return nil
	}
	row := discordgo.ActionsRow{}
	for _, b := range buttons {
		row.Components = append(row.Components, discordgo.Button{
			Label:    b.Label,
			Style:    buttonStyle(b.Style),
			CustomID: b.ID,
		})
	}
	return []discordgo.MessageComponent{row}
}

func buttonStyle(style notify.ButtonStyle) discordgo.ButtonStyle {
	switch style {
	case notify.ButtonSuccess:
		return discordgo.SuccessButton
	case notify.ButtonDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}
