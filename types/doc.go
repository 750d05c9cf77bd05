// Package types defines the shared data model for the coordination core:
// agent profiles and capabilities cached from the Agent Discovery Protocol,
// handoff records, tool and resource access results from the Tool Invocation
// Protocol, and the workflow execution envelopes assembled by the
// orchestrator. All types are JSON-serializable for dashboard/API consumers.
package types
