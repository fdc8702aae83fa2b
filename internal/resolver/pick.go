package resolver

import (
	"errors"
	"strings"

	"github.com/blang/semver"

	domain "github.com/npcforge/forge-installer/internal/domain/release"
)

// ErrNoDownloadableArtifact means the release has neither assets nor source
// snapshots. It points at a misconfigured release, not at connectivity loss.
var ErrNoDownloadableArtifact = errors.New("release has no downloadable asset or source archive")

// sourceFallbackName names source snapshots of untagged releases.
const sourceFallbackName = "source"

// PickDownload selects the artifact to download, in order: the first asset
// with preferredExt, the first compressed tar asset, the first asset, the
// source zip, the source tar. It reports false when nothing applies.
func PickDownload(rel *domain.Release, preferredExt string) (domain.Choice, bool) {
	if rel == nil {
		return domain.Choice{}, false
	}

	if asset, ok := pickAsset(rel.Assets, preferredExt); ok {
		return domain.Choice{
			Kind:   domain.KindAsset,
			Name:   asset.Name,
			URL:    asset.DownloadURL,
			Digest: asset.Digest,
		}, true
	}

	base := rel.Tag
	if base == "" {
		base = sourceFallbackName
	}

	if rel.SourceZipURL != "" {
		return domain.Choice{Kind: domain.KindSourceZip, Name: base + ".zip", URL: rel.SourceZipURL}, true
	}

	if rel.SourceTarURL != "" {
		return domain.Choice{Kind: domain.KindSourceTar, Name: base + ".tar.gz", URL: rel.SourceTarURL}, true
	}

	return domain.Choice{}, false
}

func pickAsset(assets []domain.Asset, preferredExt string) (domain.Asset, bool) {
	for _, a := range assets {
		if domain.HasExtension(a.Name, preferredExt) {
			return a, true
		}
	}

	for _, a := range assets {
		if domain.IsTarName(a.Name) {
			return a, true
		}
	}

	if len(assets) > 0 {
		return assets[0], true
	}

	return domain.Asset{}, false
}

// CompareTags orders two release tags as semantic versions, accepting a
// leading "v". It reports false when either tag is not a version.
func CompareTags(a, b string) (int, bool) {
	va, err := parseTag(a)
	if err != nil {
		return 0, false
	}

	vb, err := parseTag(b)
	if err != nil {
		return 0, false
	}

	return va.Compare(vb), true
}

func parseTag(tag string) (semver.Version, error) {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "v")
	tag = strings.TrimPrefix(tag, "V")

	return semver.ParseTolerant(tag)
}
