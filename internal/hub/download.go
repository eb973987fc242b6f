package hub

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultCacheDir returns the local snapshot root, creating it if needed.
func DefaultCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "ember", "models")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Snapshot ensures every file of the model repository exists under
// cacheDir and returns the snapshot directory. Files already present
// with the expected size are kept; everything else is downloaded to a
// temp file and renamed into place, so a torn download never shadows a
// good file.
func (c *Client) Snapshot(ctx context.Context, modelID, cacheDir string) (string, error) {
	info, err := c.ModelInfo(ctx, modelID)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(cacheDir, strings.ReplaceAll(modelID, "/", "--"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	for _, sib := range info.Siblings {
		if err := validateFilename(sib.Filename); err != nil {
			return "", err
		}
		dst := filepath.Join(dir, filepath.FromSlash(sib.Filename))

		if st, err := os.Stat(dst); err == nil && (sib.Size == 0 || st.Size() == sib.Size) {
			c.log.Debug("snapshot file cached", "model", modelID, "file", sib.Filename)
			continue
		}
		if err := c.downloadFile(ctx, modelID, sib.Filename, dst); err != nil {
			return "", fmt.Errorf("download %s: %w", sib.Filename, err)
		}
	}
	return dir, nil
}

func (c *Client) downloadFile(ctx context.Context, modelID, filename, dst string) error {
	url := fmt.Sprintf("%s/%s/resolve/main/%s", c.endpoint, modelID, filename)
	c.log.Info("downloading checkpoint file", "model", modelID, "file", filename)

	body, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".ember-download-*")
	if err != nil {
		return err
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, body); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func validateFilename(name string) error {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "..") {
		return fmt.Errorf("invalid repository filename %q", name)
	}
	return nil
}
