package ethereum

const (
	ElectionABI = electionABI
	FactoryABI  = factoryABI
)
