package core

import (
	"time"
)

const (
	DefaultCollaboratorTimeout = 15 * time.Second
	DefaultHTTPPort            = 8080
	DefaultMirrorBucket        = "elections"
	DefaultLeaderBucket        = "evote-leader"
	DefaultLeaderTTL           = 10 * time.Second

	// SampleAddress is the address of the canonical demo election.
	SampleAddress = "0xa579675518D32c99B6f1929AFe8397d42D896f84"

	DefaultCandidateBio = "New candidate"
	// DefaultMetadataHash is sent to the contract when a candidate has no uploaded metadata.
	DefaultMetadataHash = "QmWvP2y5IqW7W7Z7W7Z7W7Z7W7Z7W7Z7W7Z7W7Z7W7Z7W7Z"

	EventsStreamName  = "elections"
	EventsSubjectBase = "evote"

	RequestIDHeaderName = "X-Request-Id"
)

const (
	MirrorBackendMemory = "memory"
	MirrorBackendNATS   = "nats"
	MirrorBackendSQLite = "sqlite"
)
