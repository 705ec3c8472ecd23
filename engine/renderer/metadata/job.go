package metadata

// JobStart runs on a worker goroutine. Whatever it sends on results is
// handed to OnComplete or OnFailure.
type JobStart func(params interface{}, results chan<- interface{}) error

type JobOnComplete func(results <-chan interface{})

// JobTask describes a unit of work for the job system.
type JobTask struct {
	// Required.
	OnStart     JobStart
	InputParams interface{}
	// Invoked when OnStart returns nil. Optional.
	OnComplete JobOnComplete
	// Invoked when OnStart returns an error. Optional.
	OnFailure JobOnComplete
	// Invoked after either of the above. Optional.
	OnCompletionCallback func()
}
