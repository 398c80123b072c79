// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/sarveshkapre/secretive-x/internal/agent"
	"github.com/sarveshkapre/secretive-x/internal/drift"
	"github.com/sarveshkapre/secretive-x/internal/model"
)

// Doctor runs the preflight probes and never mutates anything. A missing
// ssh-keygen is the only hard failure a fresh machine can produce; most other
// findings are warnings because the engine can repair or create them.
func (c *Core) Doctor(ctx context.Context) *model.DoctorReport {
	report := model.NewDoctorReport()

	if path, err := c.tool.Check(); err != nil {
		report.Add("ssh-keygen", model.DoctorFail, err.Error())
	} else {
		report.Add("ssh-keygen", model.DoctorOK, path)
	}

	if version, err := c.tool.Version(ctx); err != nil {
		report.Add("ssh version", model.DoctorWarn, fmt.Sprintf("could not determine: %v", err))
	} else {
		report.Add("ssh version", model.DoctorOK, version)
	}

	if status := agent.Detect(); status.Available {
		report.Add("ssh-agent", model.DoctorOK, fmt.Sprintf("%s, %d keys loaded", status.Transport, status.KeyCount))
	} else {
		report.Add("ssh-agent", model.DoctorWarn, "no agent reachable")
	}

	c.checkKeyDir(report)
	c.checkManifest(report)

	return report
}

func (c *Core) checkKeyDir(report *model.DoctorReport) {
	info, err := os.Stat(c.cfg.KeyDir)
	if err != nil {
		report.Add("key directory", model.DoctorWarn, fmt.Sprintf("%s does not exist yet (created on first use)", c.cfg.KeyDir))
		return
	}
	if !info.IsDir() {
		report.Add("key directory", model.DoctorFail, fmt.Sprintf("%s exists but is not a directory", c.cfg.KeyDir))
		return
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o077 != 0 {
		report.Add("key directory", model.DoctorWarn, fmt.Sprintf("%s is group or world accessible (mode %04o)", c.cfg.KeyDir, info.Mode().Perm()))
		return
	}
	report.Add("key directory", model.DoctorOK, c.cfg.KeyDir)
}

func (c *Core) checkManifest(report *model.DoctorReport) {
	m, err := c.store.Load()
	if err != nil {
		report.Add("manifest", model.DoctorFail, err.Error())
		return
	}
	report.Add("manifest", model.DoctorOK, fmt.Sprintf("%d keys tracked (%s)", len(m.Keys), c.store.Path()))

	drr, err := drift.NewScanner(c.cfg.KeyDir).Scan(m)
	if err != nil {
		report.Add("drift", model.DoctorFail, err.Error())
		return
	}
	if drr.Clean() {
		report.Add("drift", model.DoctorOK, "manifest and key directory agree")
		return
	}
	report.Add("drift", model.DoctorWarn, fmt.Sprintf("missing=%d invalid_path=%d untracked=%d",
		len(drr.Missing), len(drr.InvalidPath), len(drr.Untracked)))
}
