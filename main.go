/*
 * rv32emu - Main process.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rcornwell/rv32emu/command/monitor"
	"github.com/rcornwell/rv32emu/config/configparser"
	"github.com/rcornwell/rv32emu/emu/device"
	"github.com/rcornwell/rv32emu/emu/machine"
	"github.com/rcornwell/rv32emu/util/logger"
)

// Default physical load addresses for the boot images; hart 0 receives
// the DTB address in a1 per the Linux/RISC-V boot ABI.
const (
	defaultKernelAddr = machine.RAMBase
	dtbOffset         = 0x02000000
	initrdOffset      = 0x04000000
)

func main() {
	optConfig := getopt.StringLong("config", 0, "", "Configuration file")
	optKernel := getopt.StringLong("kernel", 'k', "", "Kernel image")
	optInitrd := getopt.StringLong("initrd", 'i', "", "Initial ramdisk image")
	optDTB := getopt.StringLong("dtb", 'b', "", "Device tree blob")
	optDisk := getopt.StringLong("disk", 'd', "", "Disk image")
	optHarts := getopt.IntLong("harts", 'c', 0, "Number of harts (overrides config)")
	optNet := getopt.StringLong("net", 'n', "", "Network backend")
	optMonitorAddr := getopt.StringLong("monitor-addr", 'm', "", "Remote monitor listen address (host:port)")
	optShared := getopt.StringLong("shared", 's', "", "Shared directory passthrough")
	optLog := getopt.StringLong("log", 'l', "", "Log file")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	cfg := configparser.Default()
	if *optConfig != "" {
		var err error
		cfg, err = configparser.LoadConfigFile(*optConfig, cfg)
		if err != nil {
			slog.Error("loading configuration", "error", err)
			os.Exit(2)
		}
	}

	// CLI flags override whatever the config file set.
	if *optKernel != "" {
		cfg.Kernel = *optKernel
	}
	if *optInitrd != "" {
		cfg.Initrd = *optInitrd
	}
	if *optDTB != "" {
		cfg.DTB = *optDTB
	}
	if *optDisk != "" {
		cfg.Disk = *optDisk
	}
	if *optHarts > 0 {
		cfg.Harts = *optHarts
	}
	if *optMonitorAddr != "" {
		cfg.MonitorAddr = *optMonitorAddr
	}
	if *optLog != "" {
		cfg.Log = *optLog
	}

	var logFile *os.File
	if cfg.Log != "" {
		var err error
		logFile, err = os.Create(cfg.Log)
		if err != nil {
			slog.Error("creating log file", "error", err)
			os.Exit(2)
		}
		defer logFile.Close()
	}

	debug := false
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	handler := logger.NewHandler(logFile, &slog.HandlerOptions{Level: programLevel, AddSource: false}, &debug)
	log := slog.New(handler)
	slog.SetDefault(log)

	log.Info("rv32emu starting", "harts", cfg.Harts, "ram", cfg.RAMSize)

	if cfg.Kernel == "" {
		log.Error("no kernel image specified (-kernel or config \"kernel\")")
		os.Exit(2)
	}

	kernelImage, err := os.ReadFile(cfg.Kernel)
	if err != nil {
		log.Error("reading kernel image", "path", cfg.Kernel, "error", err)
		os.Exit(2)
	}

	var initrdImage, dtbImage []byte
	if cfg.Initrd != "" {
		initrdImage, err = os.ReadFile(cfg.Initrd)
		if err != nil {
			log.Error("reading initrd image", "path", cfg.Initrd, "error", err)
			os.Exit(2)
		}
	}
	if cfg.DTB != "" {
		dtbImage, err = os.ReadFile(cfg.DTB)
		if err != nil {
			log.Error("reading device tree blob", "path", cfg.DTB, "error", err)
			os.Exit(2)
		}
	}

	// Disk pass-through and shared-directory virtio transports are out
	// of scope; a configured path is accepted and logged but otherwise
	// unused until a block/9p device is built on top of device.Device.
	if cfg.Disk != "" {
		log.Info("disk image configured but no block device is wired up", "path", cfg.Disk)
	}
	if *optShared != "" {
		log.Info("shared directory configured but no passthrough device is wired up", "path", *optShared)
	}
	if *optNet != "" {
		log.Info("network backend configured but no network device is wired up", "backend", *optNet)
	}

	m := machine.New(machine.Config{
		NHarts:     cfg.Harts,
		RAMSize:    cfg.RAMSize,
		Kernel:     kernelImage,
		Initrd:     initrdImage,
		DTB:        dtbImage,
		KernelAddr: defaultKernelAddr,
		InitrdAddr: defaultKernelAddr + initrdOffset,
		DTBAddr:    defaultKernelAddr + dtbOffset,
	})
	m.AttachDevice(machine.PLICBase+machine.PLICSize, 0x1000, machine.PLICUARTSource, device.NewPulse())

	m.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if cfg.MonitorAddr != "" {
			if err := monitor.ServeMonitor(cfg.MonitorAddr, m); err != nil {
				log.Error("monitor listener stopped", "error", err)
			}
			return
		}
		monitor.ConsoleMonitor(m)
	}()

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		kind := m.Run()
		log.Info("machine halted", "reset_kind", kind)
	}()

	select {
	case <-sigChan:
		log.Info("received interrupt, shutting down")
	case <-runDone:
	case <-done:
	}

	m.Shutdown()
	log.Info("rv32emu stopped")
}
