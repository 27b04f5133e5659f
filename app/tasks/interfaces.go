package tasks

// TaskSchedulerInterface is the scheduling surface exposed to the rest
// of the application: queue management plus worker pool lifecycle.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
