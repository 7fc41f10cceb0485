package ecr

// ECRImage is one image of a repository, identified by its digest.
type ECRImage struct {
	Digest string
}
