package qshard

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestConfig(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		cfg := NewConfig()

		Convey("It should be valid", func() {
			So(cfg.validate(), ShouldBeNil)
			So(cfg.CacheTileQubits, ShouldBeGreaterThanOrEqualTo, 4)
			So(cfg.Workers, ShouldBeGreaterThan, 0)
		})

		Convey("It should reject an operand ceiling above the hard limit", func() {
			cfg.MaxFusedQubits = maxFusedQubits + 1
			So(cfg.validate(), ShouldNotBeNil)
		})
	})

	Convey("Given a config file", t, func() {
		path := filepath.Join(t.TempDir(), "qshard.yaml")
		So(os.WriteFile(path, []byte("workers: 3\ncache_tile_qubits: 6\ndebug: true\nlog_level: debug\n"), 0o600), ShouldBeNil)

		Convey("LoadConfig should read it over the defaults", func() {
			cfg, err := LoadConfig(path)
			So(err, ShouldBeNil)
			So(cfg.Workers, ShouldEqual, 3)
			So(cfg.CacheTileQubits, ShouldEqual, 6)
			So(cfg.Debug, ShouldBeTrue)
			So(cfg.MaxFusedQubits, ShouldEqual, NewConfig().MaxFusedQubits)
		})

		Convey("The environment should win over the file", func() {
			t.Setenv("QSHARD_WORKERS", "5")
			t.Setenv("QSHARD_SEED", "42")

			cfg, err := LoadConfig(path)
			So(err, ShouldBeNil)
			So(cfg.Workers, ShouldEqual, 5)
			So(cfg.Seed, ShouldEqual, 42)
		})
	})

	Convey("Given invalid settings", t, func() {
		Convey("LoadConfig should refuse them", func() {
			t.Setenv("QSHARD_EXCHANGE_BUFFER", "1")
			_, err := LoadConfig("")
			So(err, ShouldNotBeNil)
		})

		Convey("LoadConfig should report a missing file", func() {
			_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
			So(err, ShouldNotBeNil)
		})
	})
}
