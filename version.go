package burnstone

import "runtime/debug"

const moduleRoot = "github.com/burnstone-dev/burnstone"

// Version reports the module version and checksum stamped into the
// running binary: the main module's when burnstone is built as a
// command, the dependency entry's when it is linked into another
// module. Binaries built without module support report empty strings.
func Version() (version, sum string) {
	b, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	if b.Main.Path == moduleRoot {
		return b.Main.Version, b.Main.Sum
	}
	for _, m := range b.Deps {
		if m.Path != moduleRoot {
			continue
		}
		if r := m.Replace; r != nil {
			return m.Version + " => " + r.Path + " " + r.Version, r.Sum
		}
		return m.Version, m.Sum
	}
	return "", ""
}
