package main

import (
	"crypto/tls"
	"errors"

	ftpserver "github.com/fclairamb/ftpserverlib"
	log "github.com/fclairamb/go-log"
	"github.com/spf13/afero"
)

var errNoTLS = errors.New("TLS is not configured")

// FTPServer hands every client the same read-only filesystem. Any user name
// and password is accepted.
type FTPServer struct {
	Settings   *ftpserver.Settings
	FileSystem afero.Fs
	Logger     log.Logger
}

var _ ftpserver.MainDriver = (*FTPServer)(nil)

func (s *FTPServer) GetSettings() (*ftpserver.Settings, error) {
	return s.Settings, nil
}

func (s *FTPServer) ClientConnected(cc ftpserver.ClientContext) (string, error) {
	s.Logger.Info("Client connected", "clientId", cc.ID(), "remoteAddr", cc.RemoteAddr())
	return "disk proc server", nil
}

func (s *FTPServer) ClientDisconnected(cc ftpserver.ClientContext) {
	s.Logger.Info("Client disconnected", "clientId", cc.ID())
}

func (s *FTPServer) AuthUser(cc ftpserver.ClientContext, user, pass string) (ftpserver.ClientDriver, error) {
	s.Logger.Debug("Client authenticated", "clientId", cc.ID(), "user", user)
	return s.FileSystem, nil
}

func (s *FTPServer) GetTLSConfig() (*tls.Config, error) {
	return nil, errNoTLS
}
