// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-biovault.
//
// go-biovault is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-biovault/internal/diag"
	"github.com/jeremyhahn/go-biovault/internal/host"
	"github.com/jeremyhahn/go-biovault/pkg/adapters/logger"
)

// hostCmd runs the native messaging session over stdin/stdout. Browsers
// invoke it with the extension origin as the first argument; RunHost is
// also called directly from main for that case.
var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Run the native messaging host",
	Long: `Run one native messaging session over stdin and stdout. This is the mode
the browser launches; running it from a shell is only useful for debugging
with a scripted peer.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := RunHost(); err != nil {
			handleError(err)
		}
	},
}

// RunHost loads the configuration and serves one session on
// stdin/stdout until the peer closes the channel.
func RunHost() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.NewSlogAdapter(&logger.SlogConfig{
		Level: logger.ParseLevel(cfg.Logging.Level),
	})

	gate := newGate()
	v, err := buildVault(cfg, gate)
	if err != nil {
		return err
	}

	if cfg.Diagnostics.Enabled {
		server, err := diag.NewServer(&diag.Config{
			Addr:    cfg.Diagnostics.Addr,
			Version: Version,
			Logger:  log,
		})
		if err != nil {
			return err
		}
		if err := server.Start(); err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Stop(ctx)
		}()
	}

	session, err := host.NewSession(&host.Config{
		Reader: os.Stdin,
		Writer: os.Stdout,
		Vault:  v,
		Gate:   gate,
		Logger: log,
	})
	if err != nil {
		return err
	}
	return session.Run()
}
