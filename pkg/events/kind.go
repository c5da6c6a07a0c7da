// Package events implements the typed publish/subscribe hub that is
// the sole communication channel between the pipeline's subsystems,
// together with the event kinds, payload shapes, and the payload
// contract validator enforced on publish.
package events

import (
	"strings"

	"stitch/pkg/edit"
)

// Namespace is the grouping prefix of an event kind.
type Namespace string

// Namespace constants.
const (
	NamespaceInit   Namespace = "init"
	NamespaceDomain Namespace = "domain"
	NamespaceFinish Namespace = "finish"
	NamespaceInfra  Namespace = "infra"
)

// Kind identifies a publishable payload shape as "namespace:name".
// Kinds are a closed set known at compile time.
type Kind string

// Event kind constants.
const (
	KindInitConfig   Kind = "init:config"
	KindInitComplete Kind = "init:complete"

	KindFileViewed    Kind = "domain:file-viewed"
	KindFileEdited    Kind = "domain:file-edited"
	KindFileCreated   Kind = "domain:file-created"
	KindBackupCreated Kind = "domain:backup-created"
	KindErrorRaised   Kind = "domain:error-raised"

	KindFinishSummary Kind = "finish:summary"
	KindFinishAbort   Kind = "finish:abort"

	KindInfraLog Kind = "infra:log"
)

// separator joins a kind's namespace and name.
const separator = ":"

// Namespace returns the kind's namespace prefix.
func (k Kind) Namespace() Namespace {
	ns, _, _ := strings.Cut(string(k), separator)
	return Namespace(ns)
}

// Name returns the kind's name suffix.
func (k Kind) Name() string {
	_, name, _ := strings.Cut(string(k), separator)
	return name
}

// KindForEvent maps a domain event type to its hub kind.
func KindForEvent(t edit.EventType) Kind {
	switch t {
	case edit.EventFileViewed:
		return KindFileViewed
	case edit.EventFileEdited:
		return KindFileEdited
	case edit.EventFileCreated:
		return KindFileCreated
	case edit.EventBackupCreated:
		return KindBackupCreated
	case edit.EventErrorRaised:
		return KindErrorRaised
	default:
		// Unknown types still publish under the domain namespace so
		// wildcard subscribers observe them.
		return Kind(string(NamespaceDomain) + separator + string(t))
	}
}
