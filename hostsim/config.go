package hostsim

// GasSchedule prices the host functions.
type GasSchedule struct {
	// HostCall is charged for every host function.
	HostCall uint64 `yaml:"host_call"`
	// PerByte is charged for every byte crossing the host boundary.
	PerByte uint64 `yaml:"per_byte"`
	// StorageWrite is charged on top for storage writes and removals.
	StorageWrite uint64 `yaml:"storage_write"`
	// Call is charged on top for calls and delegate calls.
	Call uint64 `yaml:"call"`
	// Instantiate is charged on top for instantiations.
	Instantiate uint64 `yaml:"instantiate"`
	// Event is charged on top for every deposited event.
	Event uint64 `yaml:"event"`
}

// Config describes the chain the host simulates.
type Config struct {
	// GasLimit is the gas available to a top level call.
	GasLimit uint64 `yaml:"gas_limit"`
	Schedule GasSchedule `yaml:"schedule"`
	// ExistentialDeposit is the minimum balance an account keeps.
	ExistentialDeposit uint64 `yaml:"existential_deposit"`
	// FeePerGas converts gas to balance in WeightToFee.
	FeePerGas uint64 `yaml:"fee_per_gas"`
	// LoggingEnabled makes the host accept debug messages.
	LoggingEnabled bool `yaml:"logging_enabled"`
	BlockNumber    uint32 `yaml:"block_number"`
	// Timestamp of the current block in milliseconds.
	Timestamp uint64 `yaml:"timestamp"`
	// MaxCallDepth bounds nested calls and instantiations.
	MaxCallDepth int `yaml:"max_call_depth"`
	// MaxEventTopics bounds the topics of one event.
	MaxEventTopics int `yaml:"max_event_topics"`
}

// DefaultConfig returns the configuration used when nothing else is given.
func DefaultConfig() Config {
	return Config{
		GasLimit: 10_000_000_000,
		Schedule: GasSchedule{
			HostCall:     1_000,
			PerByte:      10,
			StorageWrite: 10_000,
			Call:         50_000,
			Instantiate:  100_000,
			Event:        5_000,
		},
		ExistentialDeposit: 1,
		FeePerGas:          1,
		LoggingEnabled:     true,
		BlockNumber:        1,
		Timestamp:          1_700_000_000_000,
		MaxCallDepth:       5,
		MaxEventTopics:     4,
	}
}
