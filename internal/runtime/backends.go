package runtime

// Backends register themselves from init.
import (
	_ "github.com/born-ml/hetero/internal/backend/cpuacc"
	_ "github.com/born-ml/hetero/internal/backend/gpuacc"
	_ "github.com/born-ml/hetero/internal/backend/ref"
)
