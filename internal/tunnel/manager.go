// Package tunnel implements the SSH forwarding layer (§4.8): an
// authenticated golang.org/x/crypto/ssh session plus a per-accept local
// port forwarder, ported from db/tunnel.rs's russh-based TunnelManager.
// x/crypto/ssh.Client.Dial already performs the direct-tcpip channel open
// the original hand-rolls through russh, so the forwarding loop is a thin
// accept-and-splice over that.
package tunnel

import (
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"golang.org/x/crypto/ssh"

	"github.com/berbicanes/queryark/internal/dberrors"
	"github.com/berbicanes/queryark/internal/logging"
	"github.com/berbicanes/queryark/internal/model"
)

const spliceBufferSize = 8192

type tunnelEntry struct {
	localPort int
	listener  net.Listener
	client    *ssh.Client
	done      chan struct{}
}

// Manager holds one forwarder per connection id, keyed the same way the
// connection registry is.
type Manager struct {
	mu      sync.Mutex
	tunnels map[string]*tunnelEntry
	log     *logging.Logger
}

func NewManager(log *logging.Logger) *Manager {
	if log == nil {
		log = logging.Default
	}
	return &Manager{tunnels: make(map[string]*tunnelEntry), log: log}
}

// EnsureTunnel returns a config whose host/port point at a local listener
// forwarding to the real endpoint, establishing the tunnel on first use and
// reusing it on subsequent calls for the same connection id. When SSH is
// disabled it returns an unmodified copy.
func (m *Manager) EnsureTunnel(cfg *model.ConnectionConfig) (*model.ConnectionConfig, error) {
	if !cfg.SSH.Enabled {
		clone := *cfg
		return &clone, nil
	}

	if cfg.SSH.Host == "" {
		return nil, dberrors.SshTunnel("SSH host is required", nil)
	}
	if cfg.SSH.User == "" {
		return nil, dberrors.SshTunnel("SSH username is required", nil)
	}
	sshPort := cfg.SSH.Port
	if sshPort == 0 {
		sshPort = 22
	}

	m.mu.Lock()
	if existing, ok := m.tunnels[cfg.ID]; ok {
		m.mu.Unlock()
		m.log.WithConnection(cfg.ID).Debugf("reusing existing SSH tunnel on port %d", existing.localPort)
		return m.localEndpointConfig(cfg, existing.localPort), nil
	}
	m.mu.Unlock()

	remoteHost := cfg.HostOrDefault()
	remotePort := cfg.PortOrDefault()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, dberrors.SshTunnel("failed to bind local port", err)
	}
	localPort := listener.Addr().(*net.TCPAddr).Port

	clientConfig, err := buildClientConfig(cfg)
	if err != nil {
		listener.Close()
		return nil, err
	}

	sshAddr := fmt.Sprintf("%s:%d", cfg.SSH.Host, sshPort)
	client, err := ssh.Dial("tcp", sshAddr, clientConfig)
	if err != nil {
		listener.Close()
		return nil, dberrors.SshTunnel("SSH connection failed", err)
	}

	entry := &tunnelEntry{localPort: localPort, listener: listener, client: client, done: make(chan struct{})}

	m.mu.Lock()
	m.tunnels[cfg.ID] = entry
	m.mu.Unlock()

	go m.acceptLoop(cfg.ID, entry, remoteHost, remotePort)

	m.log.Infof("established SSH tunnel %s@%s:%d -> %s:%d (local port %d)",
		cfg.SSH.User, cfg.SSH.Host, sshPort, remoteHost, remotePort, localPort)

	return m.localEndpointConfig(cfg, localPort), nil
}

// localEndpointConfig returns a copy of cfg pointed at the loopback
// forwarder, with SSH disabled to prevent double-tunneling.
func (m *Manager) localEndpointConfig(cfg *model.ConnectionConfig, localPort int) *model.ConnectionConfig {
	modified := *cfg
	modified.Host = "127.0.0.1"
	modified.Port = localPort
	modified.SSH.Enabled = false
	return &modified
}

// RemoveTunnel aborts the forwarder and closes its listener and SSH
// session. A missing id is a no-op.
func (m *Manager) RemoveTunnel(connectionID string) {
	m.mu.Lock()
	entry, ok := m.tunnels[connectionID]
	if ok {
		delete(m.tunnels, connectionID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	close(entry.done)
	entry.listener.Close()
	entry.client.Close()
	m.log.WithConnection(connectionID).Info("SSH tunnel removed")
}

func (m *Manager) acceptLoop(connectionID string, entry *tunnelEntry, remoteHost string, remotePort int) {
	for {
		localConn, err := entry.listener.Accept()
		if err != nil {
			select {
			case <-entry.done:
				return
			default:
			}
			m.log.WithConnection(connectionID).Errorf("failed to accept connection: %v", err)
			return
		}
		go m.forwardPair(connectionID, entry, localConn, remoteHost, remotePort)
	}
}

// forwardPair opens one direct-tcpip channel per accepted local connection
// and splices the two streams until either side closes.
func (m *Manager) forwardPair(connectionID string, entry *tunnelEntry, localConn net.Conn, remoteHost string, remotePort int) {
	defer localConn.Close()

	remoteConn, err := entry.client.Dial("tcp", fmt.Sprintf("%s:%d", remoteHost, remotePort))
	if err != nil {
		m.log.WithConnection(connectionID).Errorf("failed to open channel: %v", err)
		return
	}
	defer remoteConn.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		buf := make([]byte, spliceBufferSize)
		io.CopyBuffer(remoteConn, localConn, buf)
	}()
	go func() {
		defer wg.Done()
		buf := make([]byte, spliceBufferSize)
		io.CopyBuffer(localConn, remoteConn, buf)
	}()
	wg.Wait()
}

// buildClientConfig picks key auth first, falling back to password when the
// key fails to load, then plain password, matching db/tunnel.rs's
// authentication precedence. Host keys are accepted unconditionally, same
// as the original's SshHandler::check_server_key.
func buildClientConfig(cfg *model.ConnectionConfig) (*ssh.ClientConfig, error) {
	var authMethods []ssh.AuthMethod

	if cfg.SSH.KeyPath != "" {
		keyBytes, err := os.ReadFile(cfg.SSH.KeyPath)
		if err != nil {
			if cfg.SSH.Password == "" {
				return nil, dberrors.SshTunnel("SSH key failed to load and no password provided", err)
			}
			authMethods = append(authMethods, ssh.Password(cfg.SSH.Password))
		} else {
			signer, err := parsePrivateKey(keyBytes, cfg.SSH.Passphrase)
			if err != nil {
				if cfg.SSH.Password == "" {
					return nil, dberrors.SshTunnel("SSH key failed to load and no password provided", err)
				}
				authMethods = append(authMethods, ssh.Password(cfg.SSH.Password))
			} else {
				authMethods = append(authMethods, ssh.PublicKeys(signer))
			}
		}
	} else if cfg.SSH.Password != "" {
		authMethods = append(authMethods, ssh.Password(cfg.SSH.Password))
	}

	if len(authMethods) == 0 {
		return nil, dberrors.SshTunnel("no SSH authentication method provided (key or password required)", nil)
	}

	return &ssh.ClientConfig{
		User:            cfg.SSH.User,
		Auth:            authMethods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}, nil
}

func parsePrivateKey(keyBytes []byte, passphrase string) (ssh.Signer, error) {
	if passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase(keyBytes, []byte(passphrase))
	}
	return ssh.ParsePrivateKey(keyBytes)
}
