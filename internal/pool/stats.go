package pool

// Stats is a point-in-time snapshot of a TargetedPool's bookkeeping,
// mirrored by the root package's Statistics (spec §10).
type Stats struct {
	ActiveSessionCount    int
	InFlightCreationCount int
	ReadPoolCount         int
	ReadWritePoolCount    int
	Shutdown              bool
	Healthy               bool
	SessionsCreated       int64
	SessionsDeleted       int64
}
