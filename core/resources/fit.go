// Package resources implements the multi-resource fit check and in-place
// deduction used to decide whether a single offer can host one task, and to
// account for the resources that task consumes from the offer's vector.
//
// This mirrors original_source/scheduler/main.py's __getResource /
// __updateResource / acceptOffer methods, adapted to the Mesos V1 HTTP API's
// mesos.Resource wire type instead of the legacy driver's protobuf type.
package resources

import (
	mesos "github.com/mesos/mesos-go/api/v1/lib"
)

// Get returns the scalar value of the named resource in r, or 0.0 if the
// name is absent or the resource isn't a scalar.
func Get(r []mesos.Resource, name string) float64 {
	for i := range r {
		if r[i].Name == name && r[i].Scalar != nil {
			return r[i].Scalar.Value
		}
	}
	return 0.0
}

// Deduct subtracts v from the named resource in place. It is a no-op when v
// is not strictly positive, matching the spec's "no-op when v <= 0" rule.
func Deduct(r []mesos.Resource, name string, v float64) {
	if v <= 0 {
		return
	}
	for i := range r {
		if r[i].Name == name && r[i].Scalar != nil {
			r[i].Scalar.Value -= v
		}
	}
}

// Requirement is the set of per-task resource demands checked against an
// offer's resource vector.
type Requirement struct {
	CPU  float64
	Mem  float64
	Disk float64
}

// Fit checks offerResources against req in order (cpu, mem, disk). A zero
// requirement disables that dimension of the check. Ties (required ==
// offered) accept. On success, Fit deducts all three requirements from
// offerResources in place and returns true; on failure it leaves
// offerResources untouched and returns false.
func Fit(offerResources []mesos.Resource, req Requirement) bool {
	if req.CPU > 0 && Get(offerResources, "cpus") < req.CPU {
		return false
	}
	if req.Mem > 0 && Get(offerResources, "mem") < req.Mem {
		return false
	}
	if req.Disk > 0 && Get(offerResources, "disk") < req.Disk {
		return false
	}

	Deduct(offerResources, "cpus", req.CPU)
	Deduct(offerResources, "mem", req.Mem)
	Deduct(offerResources, "disk", req.Disk)
	return true
}
