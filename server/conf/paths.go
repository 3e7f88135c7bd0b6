package conf

import (
	"path/filepath"
)

// Well-known instance locations and file names.
const (
	// InstanceConfigDir holds one subdirectory per instance with its
	// configuration file.
	InstanceConfigDir = "/etc/siodb/instances"

	// InstanceRunDirRoot holds per-instance runtime state (lock files,
	// initialization flags).
	InstanceRunDirRoot = "/run/siodb"

	InstanceConfigFileName = "config"

	// InstanceLockFileName guards against concurrent instance startup.
	InstanceLockFileName = "siodb.lock"

	// IOManagerInitFlagFileName indicates the IO manager finished startup.
	IOManagerInitFlagFileName = "iomgr.init"

	instanceNameMaxLength = 63
)

// IsValidInstanceName reports whether name satisfies the object-name grammar
// used for instances: an ASCII letter or underscore followed by letters,
// digits and underscores.
func IsValidInstanceName(name string) bool {
	if len(name) == 0 || len(name) > instanceNameMaxLength {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// ComposeInstanceConfigFilePath returns the configuration file path of the
// named instance.
func ComposeInstanceConfigFilePath(instanceName string) string {
	return filepath.Join(InstanceConfigDir, instanceName, InstanceConfigFileName)
}

// ComposeInstanceRunDir returns the runtime state directory of the named
// instance.
func ComposeInstanceRunDir(instanceName string) string {
	return filepath.Join(InstanceRunDirRoot, instanceName)
}

// ComposeInstanceLockFilePath returns the instance startup lock file path.
func ComposeInstanceLockFilePath(instanceName string) string {
	return filepath.Join(ComposeInstanceRunDir(instanceName), InstanceLockFileName)
}

// ComposeIOManagerInitFlagFilePath returns the IO manager initialization
// flag file path.
func ComposeIOManagerInitFlagFilePath(instanceName string) string {
	return filepath.Join(ComposeInstanceRunDir(instanceName), IOManagerInitFlagFileName)
}
