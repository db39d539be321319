// Package config defines tool settings shared by the pip-updates binary and
// provides helpers to load, validate and save them in YAML format.
//
// The Settings type holds the Python interpreter used for pip invocations and
// the directory where run reports are written. The default package list and
// the installer-script candidate paths are deliberately not configurable; they
// are process-wide constants owned by the updater service.
package config
