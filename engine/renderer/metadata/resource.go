package metadata

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	/** @brief Resource type could not be determined from the name. */
	ResourceTypeNone ResourceType = iota
	/** @brief Binary resource type. */
	ResourceTypeBinary
	/** @brief Image resource type. */
	ResourceTypeImage
)

/**
 * @brief A generic structure for a fetched resource. All loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The identifier the resource was requested with. */
	Name string
	/** @brief The resolved file path or URL of the resource. */
	FullPath string
	/** @brief The resource type. */
	ResourceType ResourceType
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/** @brief The resource data. */
	Data []byte
}
