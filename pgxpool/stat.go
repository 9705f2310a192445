package pgxpool

// Stat is a snapshot of pool occupancy. Outstanding (acquired) entries
// never exceed MaxSize; idle entries never exceed the pool's configured
// MaxIdleSize.
type Stat struct {
	MaxSize           int32
	AcquiredResources int32
	IdleResources     int32
}

// TotalResources is the number of live slots, in use or idle.
func (s Stat) TotalResources() int32 { return s.AcquiredResources + s.IdleResources }
