package lifecycle

import "github.com/cccteam/accessgate/sessiontypes"

// State is the position of a user in the sign in flow.
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Exchanging
	PendingApproval
	Active
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Exchanging:
		return "exchanging"
	case PendingApproval:
		return "pending_approval"
	case Active:
		return "active"
	}

	return "unknown"
}

// Surface is the part of the product a user in a given state may reach.
type Surface string

const (
	SurfaceSignIn  Surface = "signin"
	SurfacePending Surface = "pending"
	SurfaceContent Surface = "content"
)

// Surface returns the surface for s.
func (s State) Surface() Surface {
	switch s {
	case PendingApproval:
		return SurfacePending
	case Active:
		return SurfaceContent
	default:
		return SurfaceSignIn
	}
}

func stateForStatus(status sessiontypes.Status) State {
	if status == sessiontypes.StatusApproved {
		return Active
	}

	return PendingApproval
}
