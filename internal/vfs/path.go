package vfs

import "strings"

// Canonical normalises a sandbox path to slash-separated elements without a
// leading slash; the root is "". Backslashes are treated as separators.
// Climbing above the root returns ErrAccessDenied.
func Canonical(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	var parts []string
	for _, part := range strings.Split(p, "/") {
		switch part {
		case "", ".":
		case "..":
			if len(parts) == 0 {
				return "", ErrAccessDenied
			}
			parts = parts[:len(parts)-1]
		default:
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "/"), nil
}

// Join appends name to a canonical directory path.
func Join(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// parent returns the canonical parent of p and the final element.
func parent(p string) (string, string) {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return "", p
	}
	return p[:i], p[i+1:]
}

// under reports whether p is loc or lies beneath it.
func under(p, loc string) bool {
	if loc == "" {
		return true
	}
	return p == loc || strings.HasPrefix(p, loc+"/")
}

// relativeTo strips loc from p. p must be under loc.
func relativeTo(p, loc string) string {
	if loc == "" {
		return p
	}
	return strings.TrimPrefix(strings.TrimPrefix(p, loc), "/")
}
