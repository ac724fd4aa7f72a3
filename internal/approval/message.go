package approval

import "github.com/MEKXH/warden/internal/notify"

func requestFields(req Request) []notify.Field {
	return []notify.Field{
		{Name: "Requested By", Value: req.Requester, Inline: true},
		{Name: "Username", Value: req.SubjectKey, Inline: true},
		{Name: "Reason", Value: req.Reason, Inline: false},
	}
}

func requestMessage(req Request) notify.Message {
	return notify.Message{
		Title:     "📝 KOS Request",
		Color:     notify.ColorOrange,
		Fields:    requestFields(req),
		ImageURL:  req.AttachmentURL,
		Timestamp: req.RequestedAt,
		Buttons: []notify.Button{
			{ID: AcceptButtonID(req.ID), Label: "Accept", Style: notify.ButtonSuccess},
			{ID: DenyButtonID(req.ID), Label: "Deny", Style: notify.ButtonDanger},
		},
	}
}

func decisionMessage(req Request, approved bool) notify.Message {
	msg := notify.Message{
		Title:     "❌ KOS Request Denied",
		Color:     notify.ColorGrey,
		Fields:    append(requestFields(req), notify.Field{Name: "Reviewed By", Value: req.DecidedBy, Inline: true}),
		ImageURL:  req.AttachmentURL,
		Timestamp: req.DecidedAt,
	}
	if approved {
		msg.Title = "✅ KOS Request Approved"
		msg.Color = notify.ColorGreen
	}
	return msg
}
