package release

import (
	"regexp"
	"strings"
	"time"
)

// Asset is a file uploaded to a release.
type Asset struct {
	// Name is the uploaded file name.
	Name string
	// DownloadURL is the direct download URL of the asset.
	DownloadURL string
	// Size is the asset size in bytes as reported by the host.
	Size int64
	// Digest is the host-computed checksum in "<algo>:<hex>" form, if any.
	Digest string
}

// Release is an immutable snapshot of release metadata fetched per query.
type Release struct {
	// Tag is the release tag identifier.
	Tag string
	// Name is the human display name.
	Name string
	// Assets are the uploaded files in host order.
	Assets []Asset
	// SourceZipURL is the host-generated zip snapshot of the tagged tree.
	SourceZipURL string
	// SourceTarURL is the host-generated tar snapshot of the tagged tree.
	SourceTarURL string
	// PublishedAt is when the release was published.
	PublishedAt time.Time
}

// Kind discriminates the cases of Choice.
type Kind int

const (
	// KindAsset is an explicitly uploaded asset.
	KindAsset Kind = iota + 1
	// KindSourceZip is the host zip snapshot of the source tree.
	KindSourceZip
	// KindSourceTar is the host tar snapshot of the source tree.
	KindSourceTar
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindAsset:
		return "asset"
	case KindSourceZip:
		return "sourceZip"
	case KindSourceTar:
		return "sourceTar"
	default:
		return "unknown"
	}
}

// Format is the unpacking strategy of a downloaded artifact.
type Format int

const (
	// FormatStandalone is a file placed as-is into the destination.
	FormatStandalone Format = iota
	// FormatZip is a zip archive.
	FormatZip
	// FormatTar is a compressed tar archive.
	FormatTar
)

// String returns a short name for logs.
func (f Format) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatTar:
		return "tar"
	default:
		return "standalone"
	}
}

var (
	//nolint:gochecknoglobals // Compiled once, read-only.
	zipName = regexp.MustCompile(`(?i)\.zip$`)
	//nolint:gochecknoglobals // Compiled once, read-only.
	tarName = regexp.MustCompile(`(?i)\.tar\.(gz|bz2|xz)$`)
)

// IsZipName reports whether name has a zip extension.
func IsZipName(name string) bool {
	return zipName.MatchString(name)
}

// IsTarName reports whether name has a compressed tar extension.
func IsTarName(name string) bool {
	return tarName.MatchString(name)
}

// HasExtension reports whether name ends with ext, ignoring case.
func HasExtension(name, ext string) bool {
	if ext == "" {
		return false
	}

	return strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext))
}

// Choice is the artifact selected for download.
type Choice struct {
	// Kind tells which release field the choice came from.
	Kind Kind
	// Name is the local file name of the artifact.
	Name string
	// URL is where the artifact is downloaded from.
	URL string
	// Digest is the asset checksum; always empty for source snapshots.
	Digest string
}

// Format returns how the artifact must be unpacked.
func (c Choice) Format() Format {
	switch c.Kind {
	case KindSourceZip:
		return FormatZip
	case KindSourceTar:
		return FormatTar
	case KindAsset:
		switch {
		case IsZipName(c.Name):
			return FormatZip
		case IsTarName(c.Name):
			return FormatTar
		}
	}

	return FormatStandalone
}

// Target is one of the two fixed install targets.
type Target string

const (
	// TargetAPI is the compose-based backend deployment.
	TargetAPI Target = "api"
	// TargetGame is the standalone executable.
	TargetGame Target = "game"
)

// Targets returns every install target.
func Targets() []Target {
	return []Target{TargetAPI, TargetGame}
}

// Cacheable reports whether acquisitions of the target are cached.
func (t Target) Cacheable() bool {
	return t == TargetAPI
}

// Record is persisted evidence that a release tag was acquired and its
// descriptor directory located.
type Record struct {
	// Tag is the installed release tag.
	Tag string `json:"tag"`
	// Name is the installed release display name.
	Name string `json:"name"`
	// ComposeDir is the descriptor directory found after extraction.
	ComposeDir string `json:"composeDir"`
}

// Clone returns a copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	cloned := *r

	return &cloned
}
