package metadata

import "time"

type RendererBackendConfig struct {
	/** @brief The name of the application */
	ApplicationName string
	/** @brief Enables the validation layer and the debug messenger. */
	Validation bool
	/** @brief Number of frames the CPU may prepare ahead of the GPU. */
	FramesInFlight int
	/** @brief Upper bound of every fence wait and image acquisition. */
	FenceTimeout time.Duration
	PresentMode  PresentMode
	ClearColor   ClearColor
	Shaders      ShaderSet
}
