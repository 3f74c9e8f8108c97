package providers

import (
	"os"
	"runtime"

	"github.com/pkg/errors"
)

// SharedLibEnv overrides the platform default returned by GetSharedLibPath.
const SharedLibEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// GetSharedLibPath returns the path to the ONNX Runtime shared library for the current
// platform, honouring SharedLibEnv when it is set.
//
// Returns:
//   - string: The path to the shared library.
//   - error: An error when no library is known for this platform.
func GetSharedLibPath() (string, error) {
	if path := os.Getenv(SharedLibEnv); path != "" {
		return path, nil
	}
	return sharedLibPath(runtime.GOOS, runtime.GOARCH)
}

func sharedLibPath(goos, goarch string) (string, error) {
	switch goos {
	case "windows":
		if goarch == "amd64" {
			return "./third_party/onnxruntime.dll", nil
		}
	case "darwin":
		return "./third_party/libonnxruntime.1.23.0.dylib", nil
	case "linux":
		if goarch == "arm64" {
			return "./third_party/onnxruntime_arm64.so", nil
		}
		return "./third_party/onnxruntime.so", nil
	}
	return "", errors.Errorf("no onnxruntime library known for %s/%s", goos, goarch)
}
