// Package task builds a Mesos V1 TaskInfo from a work unit, a resource
// offer, and the static scheduler configuration. Build is a pure function:
// it never performs I/O and never mutates its inputs, matching
// original_source/scheduler/task.py's build()/env_vars()/volumes()/
// resources()/command() helpers.
package task

import (
	"encoding/json"
	"fmt"

	mesos "github.com/mesos/mesos-go/api/v1/lib"

	"github.com/cgaustin/espa-scheduler/core/config"
	"github.com/cgaustin/espa-scheduler/core/orderapi"
)

// workerEntryPoint is the processing-image entry point invoked with the
// work unit serialized as its sole argument.
const workerEntryPoint = "main.py"

// envVar is an ordered (name, value) pair; Build walks a fixed list of these
// so the resulting environment is deterministic across calls, which keeps
// task specs reproducible and tests stable.
type envVar struct {
	name  string
	value string
}

// Build assembles the TaskInfo for one unit of work landing on one offer.
// Callers are expected to have already run resources.Fit against
// offer.Resources; Build itself does not check or deduct resources.
func Build(cfg *config.Config, offer *mesos.Offer, unit *orderapi.WorkUnit) (mesos.TaskInfo, error) {
	if err := unit.Valid(); err != nil {
		return mesos.TaskInfo{}, err
	}

	id := unit.TaskID()

	commandValue, err := command(unit)
	if err != nil {
		return mesos.TaskInfo{}, fmt.Errorf("task: building command for %q: %w", id, err)
	}

	return mesos.TaskInfo{
		Name:    fmt.Sprintf("task %s", id),
		TaskID:  mesos.TaskID{Value: id},
		AgentID: offer.AgentID,
		Container: &mesos.ContainerInfo{
			Type: containerType(mesos.ContainerInfo_DOCKER),
			Docker: &mesos.ContainerInfo_DockerInfo{
				Image: cfg.TaskImage,
			},
			Volumes: volumes(cfg),
		},
		Resources: taskResources(cfg),
		Command: &mesos.CommandInfo{
			Value:       &commandValue,
			Environment: environment(cfg),
		},
	}, nil
}

func volumes(cfg *config.Config) []mesos.Volume {
	vols := make([]mesos.Volume, 0, 2)
	if cfg.AuxDir != "" {
		hostPath := cfg.AuxiliaryMount
		vols = append(vols, mesos.Volume{
			ContainerPath: cfg.AuxDir,
			HostPath:      &hostPath,
			Mode:          volumeMode(mesos.Volume_RW),
		})
	}
	if cfg.EspaStorage != "" {
		hostPath := cfg.StorageMount
		vols = append(vols, mesos.Volume{
			ContainerPath: cfg.EspaStorage,
			HostPath:      &hostPath,
			Mode:          volumeMode(mesos.Volume_RW),
		})
	}
	return vols
}

func taskResources(cfg *config.Config) []mesos.Resource {
	return []mesos.Resource{
		scalarResource("cpus", cfg.TaskCPU),
		scalarResource("mem", cfg.TaskMem),
		scalarResource("disk", cfg.TaskDisk),
	}
}

func scalarResource(name string, value float64) mesos.Resource {
	t := mesos.Value_SCALAR
	return mesos.Resource{
		Name:   name,
		Type:   &t,
		Scalar: &mesos.Value_Scalar{Value: value},
	}
}

func containerType(t mesos.ContainerInfo_Type) *mesos.ContainerInfo_Type {
	return &t
}

func volumeMode(m mesos.Volume_Mode) *mesos.Volume_Mode {
	return &m
}

// command renders the worker invocation: the entry point followed by the
// work unit, compact-JSON-encoded inside a single-element array.
func command(unit *orderapi.WorkUnit) (string, error) {
	payload, err := json.Marshal([1]*orderapi.WorkUnit{unit})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s", workerEntryPoint, payload), nil
}

// environment is the union of every urs_*, espa_*, aster_ged_server_name,
// and aux_dir value in cfg that is actually configured (non-empty).
func environment(cfg *config.Config) *mesos.Environment {
	candidates := []envVar{
		{"ESPA_API", cfg.EspaAPI},
		{"ESPA_USER", cfg.EspaUser},
		{"ESPA_STORAGE", cfg.EspaStorage},
		{"ESPA_WORK_DIR", cfg.EspaWorkDir},
		{"ESPA_GROUP", cfg.EspaGroup},
		{"ASTER_GED_SERVER_NAME", cfg.AsterGedServerName},
		{"AUX_DIR", cfg.AuxDir},
		{"URS_MACHINE", cfg.URSMachine},
		{"URS_LOGIN", cfg.URSLogin},
		{"URS_PASSWORD", cfg.URSPassword},
	}

	vars := make([]mesos.Environment_Variable, 0, len(candidates))
	for _, c := range candidates {
		if c.value == "" {
			continue
		}
		value := c.value
		vars = append(vars, mesos.Environment_Variable{
			Name:  c.name,
			Value: &value,
		})
	}
	return &mesos.Environment{Variables: vars}
}
