package gate

import (
	"context"

	"github.com/cccteam/accessgate/access"
	"github.com/cccteam/logger"
)

var (
	_ Notifier = LogNotifier{}
	_ Notifier = NotifierFunc(nil)
)

// Notice tells the user why an action was blocked.
type Notice struct {
	Method  string
	URL     string
	Reason  access.Reason
	Message string
}

// Notifier receives a Notice for every blocked request.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifierFunc adapts a function to a Notifier.
type NotifierFunc func(ctx context.Context, n Notice)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notice) {
	f(ctx, n)
}

// LogNotifier writes notices to the request logger.
type LogNotifier struct{}

// Notify logs n.
func (LogNotifier) Notify(ctx context.Context, n Notice) {
	logger.FromCtx(ctx).Infof("blocked %s %s: %s", n.Method, n.URL, n.Reason)
}

// Message returns the text shown to a user whose request was blocked for reason.
func Message(reason access.Reason) string {
	switch reason {
	case access.ReasonViewOnly:
		return "Your account has view-only access."
	case access.ReasonPageNotGranted:
		return "You do not have full access to this page."
	case access.ReasonOutsideWindow:
		return "This action is only available during your access window."
	case access.ReasonInvalidWindow:
		return "Your access window is not configured correctly. Contact an administrator."
	case access.ReasonNotApproved:
		return "Your account is awaiting approval."
	case access.ReasonNotSignedIn, access.ReasonSessionExpired:
		return "Please sign in again."
	}

	return "Access denied."
}
