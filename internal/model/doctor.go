// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

package model

// Statuses for a single doctor check.
const (
	DoctorOK   = "ok"
	DoctorWarn = "warn"
	DoctorFail = "fail"
)

// DoctorCheck is the outcome of one preflight probe.
type DoctorCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// DoctorReport aggregates all preflight probes. Healthy is false as soon as
// any check fails; warnings do not affect it.
type DoctorReport struct {
	Checks  []DoctorCheck `json:"checks"`
	Healthy bool          `json:"healthy"`
}

// NewDoctorReport returns an empty, healthy report.
func NewDoctorReport() *DoctorReport {
	return &DoctorReport{Checks: []DoctorCheck{}, Healthy: true}
}

// Add appends a check and downgrades overall health on failure.
func (r *DoctorReport) Add(name, status, detail string) {
	r.Checks = append(r.Checks, DoctorCheck{Name: name, Status: status, Detail: detail})
	if status == DoctorFail {
		r.Healthy = false
	}
}
