package sessionpool

// Statistics is the lock-free snapshot spec §6 describes, plus the
// monotonic SessionsCreated/SessionsDeleted counters spec.md's scenario 3
// and 4 assert on (SPEC_FULL's supplemental statistics).
type Statistics struct {
	ActiveSessionCount    int
	InFlightCreationCount int
	ReadPoolCount         int
	ReadWritePoolCount    int
	Shutdown              bool
	Healthy               bool

	SessionsCreated int64
	SessionsDeleted int64
}
