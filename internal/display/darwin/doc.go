// Package darwin registers the CoreGraphics display backend. It uses the
// private CGSGetDisplayList and CGSConfigureDisplayEnabled calls to list and
// power displays that macOS itself has put offline.
// Without cgo the package is empty and the backend is not registered.
package darwin
