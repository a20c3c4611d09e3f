package topic

import (
	"errors"
	"fmt"
	"strings"
)

// Wildcard segments, valid only as the last segment of a subscription.
const (
	WildcardOne  = "*" // matches exactly one trailing segment
	WildcardTail = ">" // matches one or more trailing segments
)

// Known namespaces (first topic segment).
const (
	NamespaceField  = "field"
	NamespaceTenant = "tenant"
	NamespaceUser   = "user"
	NamespaceChat   = "chat"
	NamespaceGlobal = "global"
)

// Errors
var (
	ErrEmpty            = errors.New("topic is empty")
	ErrEmptySegment     = errors.New("topic has an empty segment")
	ErrWildcardPosition = errors.New("wildcard must be the last segment")
	ErrWildcardDenied   = errors.New("wildcards are not allowed here")
	ErrUnknownNamespace = errors.New("unknown topic namespace")
	ErrTenantScope      = errors.New("topic is outside the session's tenant scope")
	ErrUserScope        = errors.New("topic is outside the session's user scope")
)

// Validate checks topic syntax. Wildcard segments are accepted only when
// allowWildcards is set (subscriptions yes, event topics no).
func Validate(t string, allowWildcards bool) error {
	if t == "" {
		return ErrEmpty
	}

	segs := strings.Split(t, ".")
	for i, seg := range segs {
		switch seg {
		case "":
			return ErrEmptySegment
		case WildcardOne, WildcardTail:
			if !allowWildcards {
				return ErrWildcardDenied
			}
			if i != len(segs)-1 {
				return ErrWildcardPosition
			}
		}
	}

	switch segs[0] {
	case NamespaceField, NamespaceTenant, NamespaceUser, NamespaceChat, NamespaceGlobal:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownNamespace, segs[0])
	}
}

// IsWildcard reports whether a subscription pattern contains a wildcard
// segment.
func IsWildcard(pattern string) bool {
	return strings.HasSuffix(pattern, "."+WildcardOne) ||
		strings.HasSuffix(pattern, "."+WildcardTail) ||
		pattern == WildcardOne || pattern == WildcardTail
}

// Match reports whether a subscription pattern matches a literal event
// topic. A literal pattern matches only itself. A pattern ending in "*"
// matches the event topic with exactly one extra trailing segment; a
// pattern ending in ">" matches one or more extra trailing segments.
func Match(pattern, eventTopic string) bool {
	if pattern == eventTopic {
		return !IsWildcard(pattern)
	}

	switch {
	case pattern == WildcardTail:
		return eventTopic != ""
	case pattern == WildcardOne:
		return eventTopic != "" && !strings.Contains(eventTopic, ".")
	}

	if prefix, ok := strings.CutSuffix(pattern, "."+WildcardTail); ok {
		rest, ok := strings.CutPrefix(eventTopic, prefix+".")
		return ok && rest != ""
	}
	if prefix, ok := strings.CutSuffix(pattern, "."+WildcardOne); ok {
		rest, ok := strings.CutPrefix(eventTopic, prefix+".")
		return ok && rest != "" && !strings.Contains(rest, ".")
	}

	return false
}

// Authorize enforces tenant scoping on a subscription or publish target.
// Tenant-namespaced topics must name the session's own tenant and
// user-namespaced topics must name the session's own subject; the scope
// segment must be literal, a wildcard there would span identities.
// field, chat and global topics carry no explicit tenant scope and are
// permitted.
func Authorize(t, tenant, subject string) error {
	segs := strings.Split(t, ".")

	switch segs[0] {
	case NamespaceTenant:
		if len(segs) < 2 || segs[1] != tenant {
			return fmt.Errorf("%w: %q", ErrTenantScope, t)
		}
	case NamespaceUser:
		if len(segs) < 2 || segs[1] != subject {
			return fmt.Errorf("%w: %q", ErrUserScope, t)
		}
	}

	return nil
}

// TenantTopic returns the auto-subscription topic for a tenant.
func TenantTopic(tenant string) string {
	return NamespaceTenant + "." + tenant
}

// UserTopic returns the auto-subscription topic for a user subject.
func UserTopic(subject string) string {
	return NamespaceUser + "." + subject
}

// Namespace returns the first segment of a topic, or "" for an empty
// topic.
func Namespace(t string) string {
	if i := strings.IndexByte(t, '.'); i >= 0 {
		return t[:i]
	}
	return t
}
