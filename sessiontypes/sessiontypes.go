// sessiontypes package contains the shared value types describing a user's authorization.
package sessiontypes

import (
	"path"
	"slices"
	"strings"

	"github.com/go-playground/errors/v5"
)

// Status is the approval state of a user registration.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// ParseStatus parses a status, ignoring case.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, nil
	}

	return "", errors.Newf("invalid status %q", s)
}

// Role is the single authoritative role of a user.
type Role string

const (
	RoleAdministrator Role = "ADMINISTRATOR"
	RoleDeveloper     Role = "DEVELOPER"
	RoleViewer        Role = "VIEWER"
)

// ParseRole parses a role, ignoring case.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleAdministrator, RoleDeveloper, RoleViewer:
		return r, nil
	}

	return "", errors.Newf("invalid role %q", s)
}

// RoleFromList returns the role held in the first element of roles. Only the first
// element is authoritative. An empty list or unknown role yields RoleViewer.
func RoleFromList(roles []string) Role {
	if len(roles) == 0 {
		return RoleViewer
	}

	r, err := ParseRole(roles[0])
	if err != nil {
		return RoleViewer
	}

	return r
}

// List returns the role in the single element array form used on the wire.
func (r Role) List() []string {
	if r == "" {
		return []string{}
	}

	return []string{string(r)}
}

// DefaultAccessLevel returns the access level a role receives when none has been assigned.
func (r Role) DefaultAccessLevel() AccessLevel {
	switch r {
	case RoleAdministrator, RoleDeveloper:
		return AccessFull
	default:
		return AccessViewOnly
	}
}

// AccessLevel is the coarse tier controlling whether mutating actions are permitted.
type AccessLevel string

const (
	AccessFull     AccessLevel = "full"
	AccessPartial  AccessLevel = "partial"
	AccessViewOnly AccessLevel = "view-only"
)

// ParseAccessLevel parses an access level, ignoring case. "view_only" is accepted as an alias.
func ParseAccessLevel(s string) (AccessLevel, error) {
	l := strings.ToLower(strings.TrimSpace(s))
	switch AccessLevel(l) {
	case AccessFull, AccessPartial, AccessViewOnly:
		return AccessLevel(l), nil
	}
	if l == "view_only" || l == "viewonly" {
		return AccessViewOnly, nil
	}

	return "", errors.Newf("invalid access level %q", s)
}

// PageFull is the only page access value that grants mutation.
const PageFull = "full"

// PageAccess maps page paths to an access value. It is only consulted for partial users.
type PageAccess map[string]string

// Grants reports if p is covered by a page with "full" access. A page covers its own
// path and every path beneath it.
func (p PageAccess) Grants(reqPath string) bool {
	reqPath = cleanPath(reqPath)
	for page, v := range p {
		if v != PageFull {
			continue
		}
		page = cleanPath(page)
		if page == "/" || reqPath == page || strings.HasPrefix(reqPath, page+"/") {
			return true
		}
	}

	return false
}

// Pages returns the granted pages in sorted order.
func (p PageAccess) Pages() []string {
	pages := make([]string, 0, len(p))
	for page, v := range p {
		if v == PageFull {
			pages = append(pages, page)
		}
	}
	slices.Sort(pages)

	return pages
}

// Clone returns a copy of p.
func (p PageAccess) Clone() PageAccess {
	if p == nil {
		return nil
	}
	c := make(PageAccess, len(p))
	for k, v := range p {
		c[k] = v
	}

	return c
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	return path.Clean(p)
}
