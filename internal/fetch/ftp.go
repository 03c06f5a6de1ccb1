// Package fetch polls an FTP inbox for new lease PDFs and feeds them into
// the extraction pipeline.
package fetch

import (
	"context"
	"io"
	"net"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"

	"github.com/mietwerk/leasescan/internal/config"
)

// Inbox is a remote directory of incoming documents.
type Inbox interface {
	// List returns the names of pending PDF files.
	List(ctx context.Context) ([]string, error)
	// Fetch downloads one file.
	Fetch(ctx context.Context, name string) ([]byte, error)
	// Remove deletes a file after it has been processed.
	Remove(ctx context.Context, name string) error
}

// FTPInbox reads an inbox directory on an FTP server. Each operation dials a
// fresh connection; inbox polls are infrequent enough that holding one open
// is not worth the stale-connection handling.
type FTPInbox struct {
	cfg     config.FTPConfig
	timeout time.Duration
}

// NewFTPInbox creates an FTPInbox.
func NewFTPInbox(cfg config.FTPConfig) *FTPInbox {
	return &FTPInbox{cfg: cfg, timeout: 30 * time.Second}
}

// hostAddr appends the default FTP port when the host has none.
func hostAddr(host string) string {
	if _, _, err := net.SplitHostPort(host); err != nil {
		return net.JoinHostPort(host, "21")
	}
	return host
}

func (i *FTPInbox) connect(ctx context.Context) (*ftp.ServerConn, error) {
	conn, err := ftp.Dial(hostAddr(i.cfg.Host),
		ftp.DialWithTimeout(i.timeout),
		ftp.DialWithContext(ctx),
	)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: ftp dial")
	}
	if err := conn.Login(i.cfg.User, i.cfg.Password); err != nil {
		conn.Quit()
		return nil, eris.Wrap(err, "fetch: ftp login")
	}
	if i.cfg.Dir != "" {
		if err := conn.ChangeDir(i.cfg.Dir); err != nil {
			conn.Quit()
			return nil, eris.Wrapf(err, "fetch: change dir %s", i.cfg.Dir)
		}
	}
	return conn, nil
}

func (i *FTPInbox) List(ctx context.Context) ([]string, error) {
	conn, err := i.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit()

	entries, err := conn.List(".")
	if err != nil {
		return nil, eris.Wrap(err, "fetch: ftp list")
	}

	var names []string
	for _, e := range entries {
		if e.Type != ftp.EntryTypeFile {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name), ".pdf") {
			continue
		}
		names = append(names, e.Name)
	}
	return names, nil
}

func (i *FTPInbox) Fetch(ctx context.Context, name string) ([]byte, error) {
	conn, err := i.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit()

	resp, err := conn.Retr(name)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: ftp retrieve %s", name)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: ftp read %s", name)
	}
	return data, nil
}

func (i *FTPInbox) Remove(ctx context.Context, name string) error {
	conn, err := i.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Quit()

	return eris.Wrapf(conn.Delete(name), "fetch: ftp delete %s", name)
}
