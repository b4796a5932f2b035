// Package config loads the scheduler's configuration from environment
// variables, with the documented defaults, exactly once at startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// ProductWeight pairs a product category tag with its rotation weight.
type ProductWeight struct {
	Category string
	Weight   int
}

// Config is the immutable configuration snapshot read at startup.
type Config struct {
	// Cluster Master connection
	MesosMaster    string
	MesosPrincipal string
	MesosSecret    string
	MesosUser      string
	EspaUser       string
	Hostname       string

	// Order API
	EspaAPI   string
	TaskImage string

	// Admission policy
	MaxCPU               float64
	TaskCPU              float64
	TaskMem              float64
	TaskDisk             float64
	OfferRefuseSeconds   float64
	ProductRequestCount  int
	ProductScheduledMax  int

	// Product weights, in fixed iteration order.
	ProductWeights []ProductWeight

	// Periodic cadences, in minutes.
	ProductRequestFrequency int
	HandleOrdersFrequency   int
	ReviveFrequency         int

	// Task-container context, passed through to the task builder.
	AuxiliaryMount     string
	AuxDir             string
	StorageMount       string
	EspaStorage        string
	AsterGedServerName string
	URSMachine         string
	URSLogin           string
	URSPassword        string
	EspaWorkDir        string
	EspaGroup          string
}

// defaultProductWeights mirrors original_source/scheduler/config.py's
// product_frequency(): one weight per known category, in this fixed order.
var defaultProductWeights = []ProductWeight{
	{"landsat", 3},
	{"modis", 2},
	{"viirs", 1},
	{"plot", 1},
}

// Load reads configuration from the environment (and any value already set
// on the process-wide viper instance, for tests), applying defaults for any
// unset key. It fails fast if espa_api or task_image is missing, matching
// the original scheduler's APIServer.test_connection()-on-construction
// behavior.
func Load() (*Config, error) {
	v := viper.GetViper()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	hostname := v.GetString("espa_hostname")
	if hostname == "" {
		if h, err := os.Hostname(); err == nil {
			hostname = h
		}
	}

	cfg := &Config{
		MesosMaster:    v.GetString("mesos_master"),
		MesosPrincipal: v.GetString("mesos_principal"),
		MesosSecret:    v.GetString("mesos_secret"),
		MesosUser:      v.GetString("mesos_user"),
		EspaUser:       v.GetString("espa_user"),
		Hostname:       hostname,

		EspaAPI:   v.GetString("espa_api"),
		TaskImage: v.GetString("task_image"),

		MaxCPU:              v.GetFloat64("max_cpu"),
		TaskCPU:             v.GetFloat64("task_cpu"),
		TaskMem:             v.GetFloat64("task_mem"),
		TaskDisk:            v.GetFloat64("task_disk"),
		OfferRefuseSeconds:  v.GetFloat64("offer_refuse_seconds"),
		ProductRequestCount: v.GetInt("product_request_count"),
		ProductScheduledMax: v.GetInt("product_scheduled_max"),

		ProductWeights: loadProductWeights(v),

		ProductRequestFrequency: v.GetInt("product_request_frequency"),
		HandleOrdersFrequency:   v.GetInt("handle_orders_frequency"),
		ReviveFrequency:         v.GetInt("revive_frequency"),

		AuxiliaryMount:     v.GetString("auxiliary_mount"),
		AuxDir:             v.GetString("aux_dir"),
		StorageMount:       v.GetString("storage_mount"),
		EspaStorage:        v.GetString("espa_storage"),
		AsterGedServerName: v.GetString("aster_ged_server_name"),
		URSMachine:         v.GetString("urs_machine"),
		URSLogin:           v.GetString("urs_login"),
		URSPassword:        v.GetString("urs_password"),
		EspaWorkDir:        v.GetString("espa_work_dir"),
		EspaGroup:          v.GetString("espa_group"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mesos_user", "espa")
	v.SetDefault("espa_user", "espa")
	v.SetDefault("espa_api", "http://localhost:9876/production-api/v0")
	v.SetDefault("max_cpu", 10)
	v.SetDefault("task_cpu", 1.0)
	v.SetDefault("task_mem", 5120)
	v.SetDefault("task_disk", 10240)
	v.SetDefault("offer_refuse_seconds", 30)
	v.SetDefault("product_request_count", 50)
	v.SetDefault("product_scheduled_max", 500)
	v.SetDefault("product_request_frequency", 5)
	v.SetDefault("handle_orders_frequency", 7)
	v.SetDefault("revive_frequency", 10)
	for _, w := range defaultProductWeights {
		v.SetDefault(w.Category+"_frequency", w.Weight)
	}
}

func loadProductWeights(v *viper.Viper) []ProductWeight {
	weights := make([]ProductWeight, 0, len(defaultProductWeights))
	for _, w := range defaultProductWeights {
		weights = append(weights, ProductWeight{
			Category: w.Category,
			Weight:   v.GetInt(w.Category + "_frequency"),
		})
	}
	return weights
}

func (c *Config) validate() error {
	var missing []string
	if c.EspaAPI == "" {
		missing = append(missing, "espa_api")
	}
	if c.TaskImage == "" {
		missing = append(missing, "task_image")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required values: %s", strings.Join(missing, ", "))
	}
	if c.MesosMaster == "" {
		return errors.New("config: mesos_master is required")
	}
	return nil
}
