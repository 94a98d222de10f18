package orchestrator

import (
	"fmt"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/menuforge/menuforge/pkg/menu"
)

// LoadSampler reports current host utilization for admission control.
type LoadSampler interface {
	Sample() (memPercent, cpuPercent float64, err error)
}

// SystemSampler reads live memory and CPU utilization from the host.
type SystemSampler struct{}

func (SystemSampler) Sample() (float64, float64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, 0, err
	}
	// Instantaneous reading since the last call; good enough for a
	// coarse overload gate.
	percents, err := cpu.Percent(0, false)
	if err != nil {
		return vm.UsedPercent, 0, err
	}
	var cpuPercent float64
	if len(percents) > 0 {
		cpuPercent = percents[0]
	}
	return vm.UsedPercent, cpuPercent, nil
}

// admit rejects new work when the host is over its configured load
// thresholds. It runs before any store write so an overloaded node
// never leaves lock or task state behind. A threshold of zero disables
// that check; a failed sample admits the request.
func (o *Orchestrator) admit() error {
	if o.sampler == nil {
		return nil
	}
	memPct, cpuPct, err := o.sampler.Sample()
	if err != nil {
		o.log.Warn().Err(err).Msg("load sample failed, admitting request")
		return nil
	}
	if o.cfg.MemThresholdPercent > 0 && memPct > o.cfg.MemThresholdPercent {
		return menu.NewOverloadedError(fmt.Sprintf(
			"memory utilization %.1f%% exceeds %.1f%% threshold", memPct, o.cfg.MemThresholdPercent), nil).WithCode(menu.ErrCodeOverloaded)
	}
	if o.cfg.CPUThresholdPercent > 0 && cpuPct > o.cfg.CPUThresholdPercent {
		return menu.NewOverloadedError(fmt.Sprintf(
			"cpu utilization %.1f%% exceeds %.1f%% threshold", cpuPct, o.cfg.CPUThresholdPercent), nil).WithCode(menu.ErrCodeOverloaded)
	}
	return nil
}
