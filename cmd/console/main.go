// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"log"

	"github.com/relabs-tech/spoofwatch/internal/app"
	"github.com/relabs-tech/spoofwatch/internal/config"
)

func main() {
	log.Println("starting spoofwatch mock console (simulated sky, no broker)")

	// The mock console runs on defaults when no config file is present.
	if err := config.InitGlobal("spoofwatch_config.txt"); err != nil {
		log.Printf("config not loaded, using defaults: %v", err)
	}

	if err := app.RunMockConsole(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
