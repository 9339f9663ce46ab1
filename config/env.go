package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Structs

// Env holds information specific to the host running this library's
// command-line tooling. Use the .env file to populate secrets without
// checking them into the TOML config file.
type Env struct {
	MetricsToken string
}

// Functions

// LoadEnv looks for an .env file in the current directory and reads in
// all defined values.
func LoadEnv() (*Env, error) {

	// Load environment file.
	err := godotenv.Load(".env")
	if err != nil {
		return nil, fmt.Errorf("[config.LoadEnv] Failed to read in .env file with: %s\n", err.Error())
	}

	env := new(Env)

	// Fill variables from .env into struct.
	env.MetricsToken = os.Getenv("CRDT_METRICS_TOKEN")

	return env, nil
}
