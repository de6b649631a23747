// Package fileops runs open, open-folder, delete and forget against the
// backend and turns each reply into an updated hit list plus a toast.
package fileops
