package bluegreen

import (
	"context"
	"fmt"
)

// DiscoverRepositories lists the deployable repositories starting with prefix.
func DiscoverRepositories(ctx context.Context, images ImageAPI, prefix string) ([]string, error) {
	if prefix == "" {
		prefix = DefaultRepositoryPrefix
	}
	return images.ListRepositoryNames(ctx, prefix)
}

// ResolveRepositories resolves tag in every repository of names. Repositories
// without an image for tag are returned in dropped.
func ResolveRepositories(ctx context.Context, images ImageAPI, names []string, tag string) (repos []Repository, dropped []string, err error) {
	for _, name := range names {
		img, err := images.FindImageByTag(ctx, name, tag)
		if err != nil {
			return nil, nil, err
		}
		if img == nil {
			dropped = append(dropped, name)
			continue
		}

		manifest, err := images.GetImageManifest(ctx, name, img.Digest)
		if err != nil {
			return nil, nil, fmt.Errorf("manifest of %s:%s: %w", name, tag, err)
		}
		repos = append(repos, Repository{
			Name:     name,
			Tag:      tag,
			Digest:   img.Digest,
			Manifest: manifest,
		})
	}
	return repos, dropped, nil
}

// RepositoryNames returns the names of repos.
func RepositoryNames(repos []Repository) []string {
	names := make([]string, 0, len(repos))
	for _, r := range repos {
		names = append(names, r.Name)
	}
	return names
}
