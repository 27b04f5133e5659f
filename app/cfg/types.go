package cfg

type Cfg struct {
	// Persistence configuration
	DBPath string

	// Application configuration
	Port              string
	TaxonomyFile      string
	WorkerCount       int
	QueueSize         int
	SchedulerInterval int
	BoostUnit         int
	APIAccessKey      string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
