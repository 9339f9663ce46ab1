package config_test

import (
	"testing"

	"github.com/someapp/riak-dt/config"
)

// Functions

// TestLoadEnv executes a black-box test on the implemented
// functionality to load a .env file.
func TestLoadEnv(t *testing.T) {

	env, err := config.LoadEnv()
	if err != nil {
		t.Fatalf("[config.TestLoadEnv] Expected success while loading .env but received: '%s'\n", err.Error())
	}

	if env.MetricsToken != "works" {
		t.Fatalf("[config.TestLoadEnv] Expected '%s' but received '%s'\n", "works", env.MetricsToken)
	}
}
