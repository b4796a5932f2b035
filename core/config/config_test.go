package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)
	os.Setenv("ESPA_API", "http://espa.example.org/api/v0")
	os.Setenv("TASK_IMAGE", "usgs-eros/espa-worker:latest")
	os.Setenv("MESOS_MASTER", "mesos-master.example.org:5050")
	defer os.Unsetenv("ESPA_API")
	defer os.Unsetenv("TASK_IMAGE")
	defer os.Unsetenv("MESOS_MASTER")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://espa.example.org/api/v0", cfg.EspaAPI)
	assert.Equal(t, "usgs-eros/espa-worker:latest", cfg.TaskImage)
	assert.Equal(t, 10.0, cfg.MaxCPU)
	assert.Equal(t, 1.0, cfg.TaskCPU)
	assert.Equal(t, 5120.0, cfg.TaskMem)
	assert.Equal(t, 30.0, cfg.OfferRefuseSeconds)
	assert.Equal(t, "espa", cfg.EspaUser)
	assert.Equal(t, "espa", cfg.MesosUser)

	require.Len(t, cfg.ProductWeights, 4)
	assert.Equal(t, "landsat", cfg.ProductWeights[0].Category)
	assert.Equal(t, 3, cfg.ProductWeights[0].Weight)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	resetViper(t)
	os.Setenv("ESPA_API", "http://espa.example.org/api/v0")
	os.Setenv("TASK_IMAGE", "usgs-eros/espa-worker:latest")
	os.Setenv("MESOS_MASTER", "mesos-master.example.org:5050")
	os.Setenv("MAX_CPU", "40")
	os.Setenv("LANDSAT_FREQUENCY", "7")
	defer os.Unsetenv("ESPA_API")
	defer os.Unsetenv("TASK_IMAGE")
	defer os.Unsetenv("MESOS_MASTER")
	defer os.Unsetenv("MAX_CPU")
	defer os.Unsetenv("LANDSAT_FREQUENCY")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 40.0, cfg.MaxCPU)
	assert.Equal(t, 7, cfg.ProductWeights[0].Weight)
}

func TestLoadOverridesMesosUserFromEnv(t *testing.T) {
	resetViper(t)
	os.Setenv("ESPA_API", "http://espa.example.org/api/v0")
	os.Setenv("TASK_IMAGE", "usgs-eros/espa-worker:latest")
	os.Setenv("MESOS_MASTER", "mesos-master.example.org:5050")
	os.Setenv("MESOS_USER", "espa-prod")
	defer os.Unsetenv("ESPA_API")
	defer os.Unsetenv("TASK_IMAGE")
	defer os.Unsetenv("MESOS_MASTER")
	defer os.Unsetenv("MESOS_USER")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "espa-prod", cfg.MesosUser)
}

func TestLoadRequiresEspaAPIAndTaskImage(t *testing.T) {
	resetViper(t)
	os.Setenv("MESOS_MASTER", "mesos-master.example.org:5050")
	defer os.Unsetenv("MESOS_MASTER")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRequiresMesosMaster(t *testing.T) {
	resetViper(t)
	os.Setenv("ESPA_API", "http://espa.example.org/api/v0")
	os.Setenv("TASK_IMAGE", "usgs-eros/espa-worker:latest")
	defer os.Unsetenv("ESPA_API")
	defer os.Unsetenv("TASK_IMAGE")

	_, err := Load()
	require.Error(t, err)
}
