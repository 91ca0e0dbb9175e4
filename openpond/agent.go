package openpond

// Agent is the lifecycle contract shared by all OpenPond agents.
//
// An agent is a process-local coordinator: it binds one network transport
// to one completion backend and answers inbound peer messages until
// stopped. Agents hold no persistent state and are not shared across
// processes.
type Agent interface {
	// Name returns the identifier this agent registers on the network.
	Name() string

	// Stop disconnects the agent from the network and releases any held
	// resources. Stop is idempotent; a repeated call is a no-op.
	Stop() error
}
