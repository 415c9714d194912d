package ssh

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog/log"
)

// Stager uploads revision bundles to the remote staging directory via
// SFTP so remote platform commands can reference them by path.
type Stager struct {
	client *Client
}

// NewStager creates a bundle stager backed by the given client.
func NewStager(client *Client) *Stager {
	return &Stager{client: client}
}

// Stage uploads the local file into the staging directory and returns
// the remote path. The upload is verified against the local SHA-256
// digest before the path is handed out.
func (s *Stager) Stage(ctx context.Context, localPath string) (string, error) {
	start := time.Now()
	remotePath := path.Join(s.client.config.StagingDir, filepath.Base(localPath))

	log.Debug().
		Str("local", localPath).
		Str("remote", remotePath).
		Msg("staging bundle")

	localFile, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open local file: %w", err)
	}
	defer localFile.Close()

	sftpClient, err := s.newSFTPClient()
	if err != nil {
		return "", err
	}
	defer sftpClient.Close()

	if err := sftpClient.MkdirAll(s.client.config.StagingDir); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}

	remoteFile, err := sftpClient.Create(remotePath)
	if err != nil {
		return "", fmt.Errorf("failed to create remote file: %w", err)
	}
	defer remoteFile.Close()

	written, err := copyWithContext(ctx, remoteFile, localFile)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", localPath, err)
	}

	if err := s.verify(localPath, remotePath, sftpClient); err != nil {
		return "", err
	}

	log.Info().
		Str("remote", remotePath).
		Int64("bytes", written).
		Dur("duration", time.Since(start)).
		Msg("bundle staged")

	return remotePath, nil
}

// Clean removes a previously staged file. A missing file is not an
// error; the staging directory may have been swept already.
func (s *Stager) Clean(_ context.Context, remotePath string) error {
	sftpClient, err := s.newSFTPClient()
	if err != nil {
		return err
	}
	defer sftpClient.Close()

	if err := sftpClient.Remove(remotePath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to remove %s: %w", remotePath, err)
	}
	return nil
}

// verify compares the SHA-256 digests of the local and remote files.
func (s *Stager) verify(localPath, remotePath string, sftpClient *sftp.Client) error {
	localDigest, err := fileDigest(localPath)
	if err != nil {
		return err
	}

	remoteFile, err := sftpClient.Open(remotePath)
	if err != nil {
		return fmt.Errorf("failed to read back %s: %w", remotePath, err)
	}
	defer remoteFile.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, remoteFile); err != nil {
		return fmt.Errorf("failed to hash %s: %w", remotePath, err)
	}
	remoteDigest := hex.EncodeToString(hasher.Sum(nil))

	if remoteDigest != localDigest {
		return fmt.Errorf("digest mismatch after upload: local %s, remote %s", localDigest, remoteDigest)
	}
	return nil
}

func (s *Stager) newSFTPClient() (*sftp.Client, error) {
	conn, err := s.client.getConn()
	if err != nil {
		return nil, err
	}

	sftpClient, err := sftp.NewClient(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create SFTP client: %w", err)
	}
	return sftpClient, nil
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// copyWithContext copies src to dst, checking for cancellation between
// chunks.
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 32*1024)
	var written int64

	for {
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			w, writeErr := dst.Write(buf[:n])
			written += int64(w)
			if writeErr != nil {
				return written, writeErr
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}
