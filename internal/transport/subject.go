package transport

import (
	"fmt"
	"strings"

	"github.com/ernie/fragfeed/internal/eventlog"
)

// DefaultNamespace prefixes every subject unless configured otherwise
const DefaultNamespace = "q3server"

// Subject returns the subject a record is published on:
// <namespace>.log.<Action>[.<clientid>]
func Subject(namespace string, rec eventlog.Record) string {
	if rec.ClientID != "" {
		return namespace + ".log." + rec.Action + "." + rec.ClientID
	}
	return namespace + ".log." + rec.Action
}

// Wildcard matches every log subject of the namespace
func Wildcard(namespace string) string {
	return namespace + ".log.>"
}

// ParseSubject splits a log subject into its action and optional client id
func ParseSubject(namespace, subject string) (action, clientID string, err error) {
	rest, ok := strings.CutPrefix(subject, namespace+".log.")
	if !ok || rest == "" {
		return "", "", fmt.Errorf("subject %q is not under %s", subject, Wildcard(namespace))
	}
	parts := strings.Split(rest, ".")
	switch len(parts) {
	case 1:
		return parts[0], "", nil
	case 2:
		return parts[0], parts[1], nil
	}
	return "", "", fmt.Errorf("subject %q has too many tokens", subject)
}
