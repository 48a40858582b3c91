package main

import (
	"net"
	"os"
	"os/signal"
	"syscall"

	ftpserver "github.com/fclairamb/ftpserverlib"
	"github.com/spf13/cobra"
)

func newServeCmd(cfg *config) *cobra.Command {
	var ftpAddr, httpAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the proc files over FTP and WebDAV until interrupted",
		Args:  cobra.NoArgs,
		RunE: withSystem(cfg, func(sys *system, args []string) error {
			return serve(sys, ftpAddr, httpAddr)
		}),
	}
	cmd.Flags().StringVar(&ftpAddr, "ftp", "127.0.0.1:7021", "FTP listen address, empty to disable")
	cmd.Flags().StringVar(&httpAddr, "http", "127.0.0.1:7080", "WebDAV listen address, empty to disable")
	return cmd
}

func serve(sys *system, ftpAddr, httpAddr string) error {
	fs := sys.procs.Fs()
	errc := make(chan error, 2)

	var ftpSrv *ftpserver.FtpServer
	if ftpAddr != "" {
		ftpSrv = ftpserver.NewFtpServer(
			&FTPServer{
				Settings: &ftpserver.Settings{
					ListenAddr: ftpAddr,
				},
				FileSystem: fs,
				Logger:     sys.logger.With("component", "ftp"),
			},
		)
		ftpSrv.Logger = sys.logger.With("component", "ftpserver")
		go func() {
			errc <- ftpSrv.ListenAndServe()
		}()
		sys.logger.Info("FTP listening", "addr", ftpAddr)
	}

	httpSrv := newHTTPServer(fs, sys.logger.With("component", "webdav"))
	if httpAddr != "" {
		ln, err := net.Listen("tcp", httpAddr)
		if err != nil {
			if ftpSrv != nil {
				ftpSrv.Stop()
			}
			return err
		}
		go func() {
			errc <- Serve(ln, httpSrv)
		}()
		sys.logger.Info("WebDAV listening", "addr", httpAddr, "prefix", "/proc")
	}

	// Handle SIGINT and SIGTERM.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	var err error
	select {
	case <-sig:
	case err = <-errc:
	}

	if ftpSrv != nil {
		ftpSrv.Stop()
	}
	_ = httpSrv.Close()
	return err
}
