package task

import (
	"strings"
	"testing"

	mesos "github.com/mesos/mesos-go/api/v1/lib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgaustin/espa-scheduler/core/config"
	"github.com/cgaustin/espa-scheduler/core/orderapi"
)

func testConfig() *config.Config {
	return &config.Config{
		EspaAPI:     "http://espa-api.example.org/v0",
		TaskImage:   "usgseros/espa-worker:latest",
		TaskCPU:     1.0,
		TaskMem:     5120,
		TaskDisk:    10240,
		AuxDir:      "/data/aux",
		AuxiliaryMount: "/mnt/aux",
	}
}

func testOffer() *mesos.Offer {
	return &mesos.Offer{
		AgentID: mesos.AgentID{Value: "agent-1"},
	}
}

func testUnit() *orderapi.WorkUnit {
	return &orderapi.WorkUnit{OrderID: "o1", Scene: "L8A"}
}

// TestBuildProducesExpectedTaskID is the spec's literal scenario 1: task id
// "o1_@@@_L8A", image from configuration, ESPA_API present in the
// environment.
func TestBuildProducesExpectedTaskID(t *testing.T) {
	ti, err := Build(testConfig(), testOffer(), testUnit())
	require.NoError(t, err)

	assert.Equal(t, "o1_@@@_L8A", ti.TaskID.Value)
	assert.Equal(t, "agent-1", ti.AgentID.Value)
	require.NotNil(t, ti.Container)
	require.NotNil(t, ti.Container.Docker)
	assert.Equal(t, "usgseros/espa-worker:latest", ti.Container.Docker.Image)

	require.NotNil(t, ti.Command)
	require.NotNil(t, ti.Command.Environment)
	assert.True(t, hasEnvVar(ti.Command.Environment.Variables, "ESPA_API", "http://espa-api.example.org/v0"))
}

func TestBuildSetsResourcesFromConfig(t *testing.T) {
	ti, err := Build(testConfig(), testOffer(), testUnit())
	require.NoError(t, err)

	cpus := findResource(ti.Resources, "cpus")
	require.NotNil(t, cpus)
	assert.Equal(t, 1.0, cpus.Scalar.Value)

	mem := findResource(ti.Resources, "mem")
	require.NotNil(t, mem)
	assert.Equal(t, 5120.0, mem.Scalar.Value)
}

func TestBuildIncludesConfiguredVolume(t *testing.T) {
	ti, err := Build(testConfig(), testOffer(), testUnit())
	require.NoError(t, err)

	require.Len(t, ti.Container.Volumes, 1)
	assert.Equal(t, "/data/aux", ti.Container.Volumes[0].ContainerPath)
	require.NotNil(t, ti.Container.Volumes[0].HostPath)
	assert.Equal(t, "/mnt/aux", *ti.Container.Volumes[0].HostPath)
}

func TestBuildOmitsUnconfiguredEnvVars(t *testing.T) {
	cfg := testConfig()
	cfg.URSMachine = ""
	ti, err := Build(cfg, testOffer(), testUnit())
	require.NoError(t, err)

	assert.False(t, hasEnvVar(ti.Command.Environment.Variables, "URS_MACHINE", ""))
}

func TestBuildRejectsInvalidWorkUnit(t *testing.T) {
	_, err := Build(testConfig(), testOffer(), &orderapi.WorkUnit{OrderID: "", Scene: "L8A"})
	assert.Error(t, err)
}

func TestBuildRejectsSeparatorCollision(t *testing.T) {
	_, err := Build(testConfig(), testOffer(), &orderapi.WorkUnit{OrderID: "o1_@@@_evil", Scene: "L8A"})
	assert.Error(t, err)
}

func TestBuildCommandCarriesSerializedUnit(t *testing.T) {
	ti, err := Build(testConfig(), testOffer(), testUnit())
	require.NoError(t, err)

	require.NotNil(t, ti.Command.Value)
	assert.True(t, strings.HasPrefix(*ti.Command.Value, workerEntryPoint+" "))
	assert.Contains(t, *ti.Command.Value, `"orderid":"o1"`)
	assert.Contains(t, *ti.Command.Value, `"scene":"L8A"`)
}

func hasEnvVar(vars []mesos.Environment_Variable, name, value string) bool {
	for _, v := range vars {
		if v.Name == name && v.Value != nil && *v.Value == value {
			return true
		}
	}
	return false
}

func findResource(resources []mesos.Resource, name string) *mesos.Resource {
	for i := range resources {
		if resources[i].Name == name {
			return &resources[i]
		}
	}
	return nil
}
