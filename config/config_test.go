package config_test

import (
	"testing"

	"github.com/someapp/riak-dt/config"
	"github.com/someapp/riak-dt/crdt"
)

// Functions

// TestLoadConfig executes a black-box test on the implemented
// functionality to load a TOML config file.
func TestLoadConfig(t *testing.T) {

	// Try to load a broken config file. This should fail.
	_, err := config.LoadConfig("broken-config.toml")
	if err == nil {
		t.Fatal("[config.TestLoadConfig] Expected fail while loading broken-config.toml but received 'nil' error.")
	}

	// Now load a valid config.
	conf, err := config.LoadConfig("config.toml")
	if err != nil {
		t.Fatalf("[config.TestLoadConfig] Expected success while loading config.toml but received: '%s'\n", err.Error())
	}

	if conf.DefaultActor != "operator" {
		t.Fatalf("[config.TestLoadConfig] Expected DefaultActor 'operator' but received '%s'\n", conf.DefaultActor)
	}

	if conf.Compression() != crdt.CompressionDisabled {
		t.Fatalf("[config.TestLoadConfig] Expected Compression() to report CompressionDisabled but received %v\n", conf.Compression())
	}

	if conf.Metrics.Namespace != "crdt" || conf.Metrics.Subsystem != "store" {
		t.Fatalf("[config.TestLoadConfig] Expected Metrics namespace/subsystem 'crdt'/'store' but received '%s'/'%s'\n", conf.Metrics.Namespace, conf.Metrics.Subsystem)
	}
}
