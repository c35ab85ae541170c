package filestore

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// miniFTPServer implements just enough of FTP for Save and Fetch.
type miniFTPServer struct {
	listener net.Listener
	wg       sync.WaitGroup

	mu    sync.Mutex
	files map[string][]byte
	dirs  []string
	users []string
}

func newMiniFTPServer(t *testing.T, files map[string][]byte) *miniFTPServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	if files == nil {
		files = map[string][]byte{}
	}
	s := &miniFTPServer{listener: ln, files: files}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.close)
	return s
}

func (s *miniFTPServer) addr() string {
	return s.listener.Addr().String()
}

func (s *miniFTPServer) file(p string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[p]
	return data, ok
}

func (s *miniFTPServer) seen() (dirs, users []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.dirs...), append([]string(nil), s.users...)
}

func (s *miniFTPServer) close() {
	s.listener.Close() //nolint:errcheck
	s.wg.Wait()
}

func (s *miniFTPServer) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *miniFTPServer) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close() //nolint:errcheck
	conn.SetDeadline(time.Now().Add(10 * time.Second)) //nolint:errcheck

	w := bufio.NewWriter(conn)
	r := bufio.NewReader(conn)
	reply := func(format string, args ...any) {
		fmt.Fprintf(w, format+"\r\n", args...) //nolint:errcheck
		w.Flush()                              //nolint:errcheck
	}

	reply("220 mini ftp ready")

	var data net.Listener
	closeData := func() {
		if data != nil {
			data.Close() //nolint:errcheck
			data = nil
		}
	}
	defer closeData()

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")

		switch strings.ToUpper(cmd) {
		case "USER":
			s.mu.Lock()
			s.users = append(s.users, arg)
			s.mu.Unlock()
			if arg == "locked" {
				reply("530 Login incorrect")
				continue
			}
			reply("331 Password required")
		case "PASS":
			reply("230 User logged in")
		case "FEAT":
			reply("211-Features:\r\n UTF8\r\n211 End")
		case "TYPE":
			reply("200 Type set to %s", arg)
		case "OPTS":
			reply("200 OK")
		case "MKD":
			s.mu.Lock()
			s.dirs = append(s.dirs, arg)
			s.mu.Unlock()
			reply("257 \"%s\" created", arg)
		case "EPSV":
			closeData()
			if data, err = net.Listen("tcp", "127.0.0.1:0"); err != nil {
				reply("425 Can't open data connection")
				continue
			}
			reply("229 Entering Extended Passive Mode (|||%d|)", data.Addr().(*net.TCPAddr).Port)
		case "RETR":
			content, ok := s.file(arg)
			if !ok || data == nil {
				closeData()
				reply("550 File not found")
				continue
			}
			reply("150 Opening data connection")
			dc, err := data.Accept()
			if err != nil {
				reply("425 Can't open data connection")
				continue
			}
			dc.Write(content) //nolint:errcheck
			dc.Close()        //nolint:errcheck
			closeData()
			reply("226 Transfer complete")
		case "STOR":
			if data == nil {
				reply("425 Use EPSV first")
				continue
			}
			reply("150 Ok to send data")
			dc, err := data.Accept()
			if err != nil {
				reply("425 Can't open data connection")
				continue
			}
			content, _ := io.ReadAll(dc)
			dc.Close() //nolint:errcheck
			closeData()
			s.mu.Lock()
			s.files[arg] = content
			s.mu.Unlock()
			reply("226 Transfer complete")
		case "QUIT":
			reply("221 Goodbye")
			return
		default:
			reply("502 Command not implemented")
		}
	}
}
