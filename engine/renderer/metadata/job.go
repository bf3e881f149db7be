package metadata

/** @brief Describes a type of job */
type JobType int

const (
	/**
	 * @brief A general job that does not have any specific thread requirements.
	 * This means it matters little which job thread this job runs on.
	 */
	JOB_TYPE_GENERAL JobType = 0x02
	/**
	 * @brief A resource loading job. Fetches and decodes; never touches the
	 * graphics context.
	 */
	JOB_TYPE_RESOURCE_LOAD JobType = 0x04
)

/**
 * @brief Determines which job queue a job uses. The high-priority queue is always
 * drained first before processing the normal-priority queue.
 */
type JobPriority int

const (
	/** @brief A normal-priority job. Should be used for medium-priority tasks such as loading assets. */
	JOB_PRIORITY_NORMAL JobPriority = iota
	/** @brief The highest-priority job. Should be used sparingly, and only for time-critical operations.*/
	JOB_PRIORITY_HIGH
)

/**
 * @brief Describes a job to be run.
 */
type JobTask struct {
	/** @brief The type of job. */
	JobType JobType
	/** @brief The priority of this job. Higher priority jobs run sooner. */
	Priority JobPriority
	/** @brief Used in log messages. */
	Name string
	/** @brief Invoked on a worker goroutine. Required. */
	OnStart func() error
	/** @brief Invoked on the worker when OnStart returns an error. Optional. */
	OnFailure func(err error)
	/** @brief Invoked on the worker after OnStart, whatever the outcome. Optional. */
	OnCompletionCallback func()
}
