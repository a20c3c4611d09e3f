package topic

import (
	"fmt"
	"strings"
)

// DefaultSubjectRoot is the root token of the bus subject hierarchy.
const DefaultSubjectRoot = "agro"

// Bus subject domains and the topic namespace each maps to. The mapping
// is total in both directions: every subscribed subject translates to a
// topic and every namespaced topic has a publishable subject.
var subjectDomains = map[string]string{
	"fields":  NamespaceField,
	"tenants": NamespaceTenant,
	"users":   NamespaceUser,
	"chats":   NamespaceChat,
	"global":  NamespaceGlobal,
}

var namespaceDomains = map[string]string{
	NamespaceField:  "fields",
	NamespaceTenant: "tenants",
	NamespaceUser:   "users",
	NamespaceChat:   "chats",
	NamespaceGlobal: "global",
}

// SubscriptionSubjects returns the fixed wildcard subject patterns the
// bridge installs on the bus, one per domain.
func SubscriptionSubjects(root string) []string {
	return []string{
		root + ".fields.>",
		root + ".tenants.>",
		root + ".users.>",
		root + ".chats.>",
		root + ".global.>",
	}
}

// SubjectToTopic translates a bus subject "<root>.<domain>.<id>.<kind>"
// into the client-facing topic "<namespace>.<id>.<kind>".
func SubjectToTopic(root, subject string) (string, error) {
	rest, ok := strings.CutPrefix(subject, root+".")
	if !ok || rest == "" {
		return "", fmt.Errorf("subject %q is outside root %q", subject, root)
	}

	domain, tail, _ := strings.Cut(rest, ".")
	ns, ok := subjectDomains[domain]
	if !ok {
		return "", fmt.Errorf("subject %q has unknown domain %q", subject, domain)
	}
	if tail == "" {
		return ns, nil
	}
	return ns + "." + tail, nil
}

// TopicToSubject is the reverse mapping, used by admin broadcast echoes
// and tests.
func TopicToSubject(root, t string) (string, error) {
	ns, tail, _ := strings.Cut(t, ".")
	domain, ok := namespaceDomains[ns]
	if !ok {
		return "", fmt.Errorf("topic %q has unknown namespace %q", t, ns)
	}
	if tail == "" {
		return root + "." + domain, nil
	}
	return root + "." + domain + "." + tail, nil
}

// EventTypeOf derives the client-visible event type from a literal topic:
// the namespace plus the final kind segment, e.g. field.F001.ndvi has
// event type "field.ndvi". Topics with no kind segment fall back to
// "<namespace>.event".
func EventTypeOf(t string) string {
	segs := strings.Split(t, ".")
	if len(segs) < 3 {
		return segs[0] + ".event"
	}
	return segs[0] + "." + segs[len(segs)-1]
}
