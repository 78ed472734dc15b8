package render

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// AssetResolver maps an asset name to a local file, reporting false when the asset is not
// available locally.
type AssetResolver interface {
	Resolve(name string) (path string, ok bool)
}

// DirAssetResolver resolves names relative to a directory. Absolute names are used as-is.
type DirAssetResolver struct {
	Dir string
}

// Resolve returns the path of name if it is an existing regular file.
func (r DirAssetResolver) Resolve(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.Dir, name)
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return path, true
}

// publishAsset copies a resolved asset into outputDir and returns the page-relative
// reference to it. When the asset is not available the fallback URL is returned instead.
func publishAsset(assets AssetResolver, name, fallbackURL, outputDir string) (string, error) {
	if assets == nil {
		return fallbackURL, nil
	}
	src, ok := assets.Resolve(name)
	if !ok {
		return fallbackURL, nil
	}

	base := filepath.Base(src)
	dst := filepath.Join(outputDir, base)
	if same, _ := sameFile(src, dst); same {
		return base, nil
	}
	if err := copyFile(src, dst); err != nil {
		return "", fmt.Errorf("copy asset %s: %w", name, err)
	}
	return base, nil
}

func sameFile(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(ai, bi), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
