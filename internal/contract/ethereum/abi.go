package ethereum

// electionABI is the interface of a deployed Election contract.
const electionABI = `[
	{"type":"function","name":"getElectionDetails","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"name","type":"string"},{"name":"description","type":"string"}]},
	{"type":"function","name":"getElectionStatus","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"status","type":"uint8"}]},
	{"type":"function","name":"getNumOfCandidates","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"count","type":"uint256"}]},
	{"type":"function","name":"getCandidate","stateMutability":"view",
	 "inputs":[{"name":"index","type":"uint256"}],
	 "outputs":[
		{"name":"name","type":"string"},
		{"name":"description","type":"string"},
		{"name":"imgHash","type":"string"},
		{"name":"voteCount","type":"uint256"},
		{"name":"email","type":"string"}
	 ]},
	{"type":"function","name":"addCandidate","stateMutability":"nonpayable",
	 "inputs":[
		{"name":"name","type":"string"},
		{"name":"description","type":"string"},
		{"name":"imgHash","type":"string"},
		{"name":"email","type":"string"}
	 ],
	 "outputs":[]},
	{"type":"function","name":"endElection","stateMutability":"nonpayable","inputs":[],"outputs":[]}
]`

// factoryABI is the interface of the ElectionFactory contract deploying one Election per company.
const factoryABI = `[
	{"type":"function","name":"createElection","stateMutability":"nonpayable",
	 "inputs":[
		{"name":"email","type":"string"},
		{"name":"name","type":"string"},
		{"name":"description","type":"string"}
	 ],
	 "outputs":[]},
	{"type":"function","name":"getDeployedElection","stateMutability":"view",
	 "inputs":[{"name":"email","type":"string"}],
	 "outputs":[
		{"name":"electionAddress","type":"address"},
		{"name":"name","type":"string"},
		{"name":"description","type":"string"},
		{"name":"admin","type":"address"}
	 ]}
]`
