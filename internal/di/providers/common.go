package providers

import "time"

// shutdownTimeout bounds the graceful shutdown of lifecycle handles.
const shutdownTimeout = 30 * time.Second
