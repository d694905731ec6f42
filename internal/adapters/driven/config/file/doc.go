// Package file provides a TOML file-backed settings store.
package file
