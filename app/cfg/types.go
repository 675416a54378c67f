package cfg

type Cfg struct {
	// Storage configuration
	DBPath string

	// Application configuration
	Port              string
	WorkerCount       int
	SchedulerInterval int
	FetchTimeout      int
	MaxBodySize       int64
	SeedFile          string

	// Admin account bootstrap
	AdminUser     string
	AdminPassword string
	AdminEmail    string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
