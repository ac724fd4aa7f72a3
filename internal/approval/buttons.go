package approval

import "strings"

const buttonPrefix = "watchlist:"

// Button decisions.
const (
	DecisionAccept = "accept"
	DecisionDeny   = "deny"
)

// AcceptButtonID returns the control id of the accept button for a request.
func AcceptButtonID(requestID string) string {
	return buttonPrefix + DecisionAccept + ":" + requestID
}

// DenyButtonID returns the control id of the deny button for a request.
func DenyButtonID(requestID string) string {
	return buttonPrefix + DecisionDeny + ":" + requestID
}

// ParseButtonID splits a control id into its decision and request id.
func ParseButtonID(customID string) (decision, requestID string, ok bool) {
	rest, found := strings.CutPrefix(customID, buttonPrefix)
	if !found {
		return "", "", false
	}
	decision, requestID, found = strings.Cut(rest, ":")
	if !found || requestID == "" {
		return "", "", false
	}
	if decision != DecisionAccept && decision != DecisionDeny {
		return "", "", false
	}
	return decision, requestID, true
}
