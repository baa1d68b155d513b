//go:build !linux && !darwin && !freebsd && !windows

package vmem

var system Memory = Heap{}
