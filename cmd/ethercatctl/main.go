package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Pathorse/ihmc-ethercat-master"
	"github.com/Pathorse/ihmc-ethercat-master/pkg/config"
	"github.com/Pathorse/ihmc-ethercat-master/pkg/report"
	"github.com/Pathorse/ihmc-ethercat-master/pkg/simdriver"
)

var DEFAULT_CONFIG_PATH = "ethercat.yaml"
var DEFAULT_INTERFACE = "eth0"

func main() {
	log.SetLevel(log.InfoLevel)

	configPath := flag.String("c", DEFAULT_CONFIG_PATH, "host config yaml path")
	simulate := flag.Bool("simulate", false, "run against an in-process simulated bus instead of a real interface")
	cycles := flag.Int("cycles", 10, "number of cyclic send/receive iterations to run before shutdown")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warnf("[MAIN] could not load %s (%v), using defaults", *configPath, err)
	}
	if cfg.Interface == "" {
		cfg.Interface = DEFAULT_INTERFACE
	}

	var driver ethercat.BusDriver
	if *simulate {
		driver = simdriver.New(
			simdriver.Slave{Name: "sim-io-1", Alias: 1, VendorId: 0x1, ProductCode: 0x1001, OutputsLength: 4, InputsLength: 4, SupportsCA: true},
			simdriver.Slave{Name: "sim-io-2", Alias: 2, VendorId: 0x1, ProductCode: 0x1002, OutputsLength: 2, InputsLength: 2, SupportsCA: true},
		)
	} else {
		log.Fatal("[MAIN] no real BusDriver wired in this build; rerun with -simulate")
	}

	master := ethercat.New(cfg.Interface, driver)
	if cfg.EnableDC {
		master.EnableDC(cfg.CycleTime())
	}
	master.SetRequireAllSlaves(cfg.RequireAllSlaves)
	master.DisableRecovery(cfg.DisableRecovery)
	master.SetEtherCATReceiveTimeout(cfg.ReceiveTimeout())
	master.SetMaximumExecutionJitter(cfg.MaxExecutionJitter())

	subdevices, err := cfg.BuildSubdevices()
	if err != nil {
		log.Fatalf("[MAIN] building subdevices: %v", err)
	}
	for _, sd := range subdevices {
		if err := master.RegisterSubdevice(sd); err != nil {
			log.Fatalf("[MAIN] registering subdevice: %v", err)
		}
	}

	if err := master.Init(); err != nil {
		log.Fatalf("[MAIN] init: %v", err)
	}
	master.StartHousekeeping()

	for i := 0; i < *cycles; i++ {
		if err := master.Send(); err != nil {
			log.Errorf("[MAIN] send: %v", err)
			break
		}
		if _, err := master.Receive(); err != nil {
			log.Errorf("[MAIN] receive: %v", err)
			break
		}
		time.Sleep(time.Millisecond)
	}

	if cfg.CommissioningReport != "" {
		if err := report.Save(report.FromMaster(master), cfg.CommissioningReport); err != nil {
			log.Warnf("[MAIN] commissioning report: %v", err)
		} else {
			fmt.Printf("commissioning report written to %s\n", cfg.CommissioningReport)
		}
	}

	if err := master.Shutdown(); err != nil {
		log.Warnf("[MAIN] shutdown: %v", err)
	}

	os.Exit(0)
}
