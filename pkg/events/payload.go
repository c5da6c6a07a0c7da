package events

import (
	"time"

	"stitch/pkg/config"
	"stitch/pkg/edit"
)

// Payload is the record delivered with a publish. Exactly the fields
// for the publishing kind are set; Timestamp is stamped by the hub when
// the publisher left it zero. Subscribers must treat a delivered
// Payload as an immutable snapshot.
type Payload struct {
	Timestamp time.Time `json:"timestamp"`

	// Config is the resolved run configuration (init:config).
	Config *config.Config `json:"config,omitempty"`

	// Event is the wrapped domain event (domain:*).
	Event *edit.Event `json:"event,omitempty"`

	// Stats and Duration describe a completed run (finish:summary).
	Stats    *RunStats     `json:"stats,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`

	// Reason and Code describe an aborted run (finish:abort). Code is
	// optional; zero means unset.
	Reason string `json:"reason,omitempty"`
	Code   int    `json:"code,omitempty"`

	// Message and Fields carry diagnostic traffic (infra:log).
	Message string         `json:"message,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// RunStats aggregates the domain events of one run.
type RunStats struct {
	FilesEdited       int            `json:"filesEdited"`
	FilesCreated      int            `json:"filesCreated"`
	BackupsCreated    int            `json:"backupsCreated"`
	CommandsProcessed int            `json:"commandsProcessed"`
	Errors            int            `json:"errors"`
	TotalEdits        edit.LineStats `json:"totalEdits"`
}

// apiKeyField is the payload field name redacted from diagnostic
// output, both at the top level of infra log fields and nested inside
// the run configuration.
const apiKeyField = "anthropic_api_key"

// Redacted returns a copy of p safe for diagnostic logging and
// persistence: the API credential in an embedded Config and any infra
// log field named after it are masked. p itself is never modified.
func Redacted(p *Payload) *Payload {
	if p == nil {
		return nil
	}
	out := *p

	if p.Config != nil {
		cfg := p.Config.Redacted()
		out.Config = &cfg
	}
	if _, ok := p.Fields[apiKeyField]; ok {
		fields := make(map[string]any, len(p.Fields))
		for k, v := range p.Fields {
			fields[k] = v
		}
		fields[apiKeyField] = "[redacted]"
		out.Fields = fields
	}
	return &out
}
