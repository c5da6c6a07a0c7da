package events

import "fmt"

// ContractViolation reports a payload that does not carry the fields
// its kind requires. In a strict hub it is returned to the publisher;
// a non-strict hub logs it and drops the publish.
type ContractViolation struct {
	Kind  Kind
	Field string
	Why   string
}

func (e *ContractViolation) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("events: %s: %s", e.Kind, e.Why)
	}
	return fmt.Sprintf("events: %s: field %q %s", e.Kind, e.Field, e.Why)
}

// Validate checks that payload carries the fields required by kind.
// It is a pure function with no hub dependency so contract checks can
// be unit tested in isolation.
func Validate(kind Kind, payload *Payload) error {
	if payload == nil {
		return &ContractViolation{Kind: kind, Why: "payload is required"}
	}

	switch kind.Namespace() {
	case NamespaceInit:
		if kind == KindInitConfig && payload.Config == nil {
			return &ContractViolation{Kind: kind, Field: "config", Why: "is required"}
		}

	case NamespaceDomain:
		if payload.Event == nil {
			return &ContractViolation{Kind: kind, Field: "event", Why: "is required"}
		}
		if payload.Event.Type == "" {
			return &ContractViolation{Kind: kind, Field: "event.type", Why: "is required"}
		}

	case NamespaceFinish:
		switch kind {
		case KindFinishSummary:
			if payload.Stats == nil {
				return &ContractViolation{Kind: kind, Field: "stats", Why: "is required"}
			}
		case KindFinishAbort:
			if payload.Reason == "" {
				return &ContractViolation{Kind: kind, Field: "reason", Why: "must be a non-empty string"}
			}
		}

	default:
		// Unrecognized namespaces (infra and any future ones) pass
		// without namespace-specific checks.
	}

	return nil
}
