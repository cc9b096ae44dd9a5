// Package pathutil provides path manipulation for slash-separated archive
// member names, including names carrying a trailing directory slash.
package pathutil

import "strings"

// Base returns the last element of a slash-separated path.
// If path is empty or ".", it returns ".".
func Base(path string) string {
	if path == "" || path == "." {
		return "."
	}
	// Directory markers carry a trailing slash
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// DirPrefix converts a path to its directory prefix form.
// For ".", returns "" (empty prefix matches all).
// For other paths, appends "/" to match children.
func DirPrefix(name string) string {
	if name == "." {
		return ""
	}
	return name + "/"
}

// Trim normalizes a member name to fs.FS form by stripping any trailing
// directory slash.
func Trim(name string) string {
	return strings.TrimSuffix(name, "/")
}

// Child extracts the immediate child name from a member path given a
// directory prefix. isDir reports whether the child is itself a directory,
// either because the path descends further or because it is a directory
// marker. ok is false when the path names the prefix itself and so
// contributes no child.
func Child(path, prefix string) (name string, isDir, ok bool) {
	rel := strings.TrimPrefix(path, prefix)
	if rel == "" {
		return "", false, false
	}
	if i := strings.Index(rel, "/"); i >= 0 {
		return rel[:i], true, true
	}
	return rel, false, true
}
