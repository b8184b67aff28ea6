// Package ffmpeg finds the ffmpeg and ffprobe executables used for decoding,
// installing a prebuilt bundle into the user cache when none is available.
package ffmpeg

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	EnvFFmpegPath  = "SUBLENS_FFMPEG_PATH"
	EnvFFprobePath = "SUBLENS_FFPROBE_PATH"

	bundleVersion = "6.1"
	bundleBaseURL = "https://github.com/ffbinaries/ffbinaries-prebuilt/releases/download"

	downloadTimeout = 5 * time.Minute
)

// tools every bundle must provide
var tools = []string{"ffmpeg", "ffprobe"}

// BinaryPaths locates the ffmpeg and ffprobe executables.
type BinaryPaths struct {
	FFmpeg  string
	FFprobe string
}

func (p BinaryPaths) complete() bool {
	return p.FFmpeg != "" && p.FFprobe != ""
}

var (
	resolveOnce sync.Once
	resolved    BinaryPaths
	resolveErr  error
)

// Ensure resolves the binaries once per process. Environment overrides win,
// then PATH, then the cached bundle, which is unpacked from the embedded
// archive or downloaded on first use.
func Ensure() (BinaryPaths, error) {
	resolveOnce.Do(func() {
		resolved, resolveErr = resolve(os.Getenv, exec.LookPath)
	})
	return resolved, resolveErr
}

func FFmpegPath() (string, error) {
	paths, err := Ensure()
	return paths.FFmpeg, err
}

func FFprobePath() (string, error) {
	paths, err := Ensure()
	return paths.FFprobe, err
}

func resolve(getenv func(string) string, lookPath func(string) (string, error)) (BinaryPaths, error) {
	paths := BinaryPaths{
		FFmpeg:  getenv(EnvFFmpegPath),
		FFprobe: getenv(EnvFFprobePath),
	}
	if paths.FFmpeg == "" {
		paths.FFmpeg = searchPath(lookPath, "ffmpeg")
	}
	if paths.FFprobe == "" {
		paths.FFprobe = searchPath(lookPath, "ffprobe")
	}
	if paths.complete() {
		return paths, nil
	}

	asset, err := assetForPlatform(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return BinaryPaths{}, err
	}

	cacheDir, err := os.UserCacheDir()
	if err != nil || cacheDir == "" {
		cacheDir = os.TempDir()
	}
	b := bundle{dir: installDirFor(cacheDir, runtime.GOOS, runtime.GOARCH)}
	if b.installed() {
		return b.paths(), nil
	}
	if err := b.install(asset); err != nil {
		return BinaryPaths{}, err
	}
	return b.paths(), nil
}

func searchPath(lookPath func(string) (string, error), name string) string {
	found, err := lookPath(name)
	if err != nil {
		return ""
	}
	return found
}

func installDirFor(cacheDir, goos, goarch string) string {
	return filepath.Join(cacheDir, "sublens", "ffmpeg", bundleVersion, goos, goarch)
}

func assetForPlatform(goos, goarch string) (string, error) {
	var platform string
	switch goos + "/" + goarch {
	case "linux/amd64":
		platform = "linux-64"
	case "linux/arm64":
		platform = "linux-arm-64"
	case "darwin/amd64":
		platform = "macos-64"
	case "windows/amd64":
		platform = "win-64"
	default:
		return "", fmt.Errorf("unsupported platform for bundled ffmpeg: %s/%s", goos, goarch)
	}
	return "ffmpeg-" + bundleVersion + "-" + platform + ".zip", nil
}

// bundle is an unpacked set of tools in one directory.
type bundle struct {
	dir string
}

func (b bundle) path(tool string) string {
	return filepath.Join(b.dir, tool+executableSuffix())
}

func (b bundle) paths() BinaryPaths {
	return BinaryPaths{FFmpeg: b.path("ffmpeg"), FFprobe: b.path("ffprobe")}
}

func (b bundle) installed() bool {
	for _, tool := range tools {
		info, err := os.Stat(b.path(tool))
		if err != nil || info.IsDir() || info.Size() == 0 {
			return false
		}
	}
	return true
}

func (b bundle) install(asset string) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("create ffmpeg cache dir: %w", err)
	}

	src, embedded, err := openEmbeddedAsset(asset)
	if err != nil {
		return err
	}
	if !embedded {
		if src, err = download(asset); err != nil {
			return err
		}
	}
	defer func() { _ = src.Close() }()

	archivePath, err := spool(src)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(archivePath) }()

	if err := b.unpack(archivePath); err != nil {
		return fmt.Errorf("extract %s: %w", asset, err)
	}
	if !b.installed() {
		return errors.New("ffmpeg binaries not found after extraction")
	}
	return b.markExecutable()
}

// unpack copies the tool executables out of a zip archive, ignoring
// everything else in it.
func (b bundle) unpack(archivePath string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open ffmpeg archive: %w", err)
	}
	defer func() { _ = zr.Close() }()

	found := make(map[string]bool, len(tools))
	for _, file := range zr.File {
		if file.FileInfo().IsDir() {
			continue
		}
		tool, ok := toolForEntry(file.Name)
		if !ok {
			continue
		}
		if err := writeEntry(file, b.path(tool)); err != nil {
			return err
		}
		found[tool] = true
	}

	var missing []string
	for _, tool := range tools {
		if !found[tool] {
			missing = append(missing, tool)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("ffmpeg archive missing required binaries: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (b bundle) markExecutable() error {
	if runtime.GOOS == "windows" {
		return nil
	}
	for _, tool := range tools {
		if err := os.Chmod(b.path(tool), 0o755); err != nil {
			return fmt.Errorf("chmod %s: %w", tool, err)
		}
	}
	return nil
}

// toolForEntry maps an archive entry such as "bin/ffmpeg.exe" to its tool name.
func toolForEntry(entry string) (string, bool) {
	name := strings.ToLower(filepath.Base(entry))
	name = strings.TrimSuffix(name, ".exe")
	for _, tool := range tools {
		if name == tool {
			return tool, true
		}
	}
	return "", false
}

func download(asset string) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s/v%s/%s", bundleBaseURL, bundleVersion, asset)
	client := &http.Client{Timeout: downloadTimeout}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("download ffmpeg bundle: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("download ffmpeg bundle: unexpected status %s", resp.Status)
	}
	return resp.Body, nil
}

// spool writes r to a temp file, since zip needs random access.
func spool(r io.Reader) (string, error) {
	tmp, err := os.CreateTemp("", "sublens-ffmpeg-*.zip")
	if err != nil {
		return "", fmt.Errorf("create temp archive: %w", err)
	}
	_, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write archive: %w", err)
	}
	return tmp.Name(), nil
}

func writeEntry(file *zip.File, dest string) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("open ffmpeg archive entry: %w", err)
	}
	defer func() { _ = src.Close() }()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(dest), err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(dest), err)
	}
	return out.Close()
}

func executableSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
