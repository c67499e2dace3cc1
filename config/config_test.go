package config

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/franchise-proof/crypto"
	"github.com/vocdoni/franchise-proof/types"
)

func TestLoadDefaults(t *testing.T) {
	c := qt.New(t)
	cfg, err := Load(nil)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Host, qt.Equals, DefaultHost)
	c.Assert(cfg.Port, qt.Equals, DefaultPort)
	c.Assert(cfg.Levels, qt.Equals, types.DefaultCensusLevels)
	c.Assert(cfg.Suite, qt.Equals, crypto.SuiteGnark)
	c.Assert(cfg.DBType, qt.Equals, DefaultDBType)
	c.Assert(cfg.AuthoritySeed, qt.Equals, "")
}

func TestLoadFlagsAndEnv(t *testing.T) {
	c := qt.New(t)
	t.Setenv("FRANCHISE_PORT", "9090")
	t.Setenv("FRANCHISE_LOG_LEVEL", "debug")
	t.Setenv("FRANCHISE_SUITE", crypto.SuiteCircom)

	cfg, err := Load([]string{"--suite", crypto.SuiteGnark, "--levels=20"})
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Port, qt.Equals, 9090)
	c.Assert(cfg.LogLevel, qt.Equals, "debug")
	// flags take precedence over the environment
	c.Assert(cfg.Suite, qt.Equals, crypto.SuiteGnark)
	c.Assert(cfg.Levels, qt.Equals, 20)

	t.Setenv("FRANCHISE_PORT", "not a port")
	_, err = Load(nil)
	c.Assert(err, qt.ErrorMatches, "invalid value for FRANCHISE_PORT.*")
}

func TestValidate(t *testing.T) {
	c := qt.New(t)
	_, err := Load([]string{"--levels", "0"})
	c.Assert(err, qt.ErrorMatches, "invalid census levels 0")
	_, err = Load([]string{"--suite", "sha256"})
	c.Assert(err, qt.IsNotNil)
	_, err = Load([]string{"--dbtype", "sqlite"})
	c.Assert(err, qt.ErrorMatches, `invalid database type "sqlite"`)
	_, err = Load([]string{"--port", "70000"})
	c.Assert(err, qt.ErrorMatches, "invalid port 70000")
	_, err = Load([]string{"--unknown"})
	c.Assert(err, qt.IsNotNil)
}
