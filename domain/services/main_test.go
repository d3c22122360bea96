package services

import (
	"os"
	"testing"

	"squares/config"
)

func TestMain(m *testing.M) {
	config.SetTestConfig(config.NewTestConfig())
	os.Exit(m.Run())
}
