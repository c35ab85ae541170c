package filestore

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/url"
	"path"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures the FTP storage.
type FTPOptions struct {
	Timeout time.Duration
}

// FTP stores attachments in a directory on an FTP server.
type FTP struct {
	host     string
	dir      string
	user     string
	password string
	opts     FTPOptions
}

// NewFTP parses a base URL of the form ftp://[user[:pass]@]host[:port]/dir.
// Without credentials the anonymous login is used.
func NewFTP(baseURL string, opts FTPOptions) (*FTP, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	host, dir, err := parseFTPURL(baseURL)
	if err != nil {
		return nil, err
	}
	u, _ := url.Parse(baseURL)

	f := &FTP{host: host, dir: dir, user: "anonymous", password: "anonymous@", opts: opts}
	if u.User != nil {
		f.user = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			f.password = pw
		}
	}
	return f, nil
}

// parseFTPURL extracts host (with port) and path from an FTP URL.
func parseFTPURL(rawURL string) (host string, p string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "filestore: parse ftp url")
	}
	if u.Scheme != SchemeFTP {
		return "", "", eris.Errorf("filestore: expected ftp scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return "", "", eris.New("filestore: empty host in ftp url")
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	p = u.Path
	if p == "" {
		p = "/"
	}
	return host, p, nil
}

// Scheme implements Storage.
func (f *FTP) Scheme() string { return SchemeFTP }

func (f *FTP) connect(ctx context.Context) (*ftp.ServerConn, error) {
	zap.L().Debug("filestore: ftp connecting", zap.String("host", f.host))

	conn, err := ftp.Dial(f.host, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "filestore: ftp dial")
	}
	if err := conn.Login(f.user, f.password); err != nil {
		conn.Quit() //nolint:errcheck
		return nil, eris.Wrap(err, "filestore: ftp login")
	}
	return conn, nil
}

// Save uploads data into the base directory and returns an ftp:// locator
// without credentials.
func (f *FTP) Save(ctx context.Context, name string, data []byte) (string, error) {
	conn, err := f.connect(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Quit() //nolint:errcheck

	// The directory usually exists already; a failed MKD is not fatal.
	if f.dir != "/" {
		_ = conn.MakeDir(f.dir)
	}

	p := path.Join(f.dir, SanitizeName(name))
	if err := conn.Stor(p, bytes.NewReader(data)); err != nil {
		return "", eris.Wrapf(err, "filestore: ftp store %s", p)
	}
	return (&url.URL{Scheme: SchemeFTP, Host: f.host, Path: p}).String(), nil
}

// Fetch downloads the file behind an ftp:// locator using the configured credentials.
func (f *FTP) Fetch(ctx context.Context, locator string) ([]byte, error) {
	host, p, err := parseFTPURL(locator)
	if err != nil {
		return nil, err
	}
	if host != f.host {
		return nil, eris.Errorf("filestore: locator host %s does not match %s", host, f.host)
	}

	conn, err := f.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit() //nolint:errcheck

	resp, err := conn.Retr(p)
	if err != nil {
		return nil, eris.Wrapf(err, "filestore: ftp retrieve %s", p)
	}
	defer resp.Close() //nolint:errcheck

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, eris.Wrapf(err, "filestore: ftp read %s", p)
	}
	return data, nil
}
