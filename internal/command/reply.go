package command

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MEKXH/warden/internal/approval"
	"github.com/MEKXH/warden/internal/notify"
	"github.com/MEKXH/warden/internal/policy"
	"github.com/MEKXH/warden/internal/watchlist"
)

// ErrorResult converts an operation error into a private reply.
func ErrorResult(err error, subject string) Result {
	res := Result{Color: notify.ColorRed, Private: true}
	switch {
	case errors.Is(err, policy.ErrUnauthorized):
		res.Title = "Permission Denied"
		res.Content = "You do not have permission to use this command."
	case errors.Is(err, watchlist.ErrAlreadyListed):
		res.Title = "Already on KOS"
		res.Content = fmt.Sprintf("**%s** is already on the KOS list.", subject)
	case errors.Is(err, watchlist.ErrNotListed):
		res.Title = "Not Found"
		res.Content = fmt.Sprintf("**%s** is not on the KOS list.", subject)
	case errors.Is(err, watchlist.ErrInvalidInput):
		res.Title = "Invalid Input"
		res.Content = "A username and a reason are required."
	case errors.Is(err, approval.ErrAlreadyDecided):
		res.Title = "Already Reviewed"
		res.Content = "This request has already been reviewed."
	case errors.Is(err, approval.ErrRequestNotFound):
		res.Title = "Not Found"
		res.Content = "This request no longer exists."
	case errors.Is(err, notify.ErrNotFound):
		res.Title = "Error"
		res.Content = "KOS channel not found."
	default:
		slog.Error("watchlist command failed", "subject", subject, "error", err)
		res.Title = "Error"
		res.Content = "Something went wrong. Please try again later."
	}
	return res
}
