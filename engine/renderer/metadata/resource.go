package metadata

import "github.com/google/uuid"

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	ResourceTypeNone ResourceType = iota
	/** @brief Binary resource type. */
	ResourceTypeBinary
	/** @brief Precompiled shader stage bytecode (SPIR-V). */
	ResourceTypeShaderBinary
)

type ShaderStage int

const (
	ShaderStageVertex   ShaderStage = 0x00000001
	ShaderStageFragment ShaderStage = 0x00000004
)

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief Content address of the resource, derived from its bytes. */
	ID uuid.UUID
	Type ResourceType
	/** @brief The name of the resource. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/** @brief The raw resource data. */
	Data []byte
	/** @brief Data reinterpreted as little endian 32 bit words, for shader binaries. */
	Code []uint32
}

// ShaderSet holds the two opaque stage binaries of the fixed pipeline.
type ShaderSet struct {
	Vertex   *Resource
	Fragment *Resource
}
