package binrep

import "fmt"

// PathArtifacts is the backend key for the repository-wide artifacts index.
func PathArtifacts() string {
	return "artifacts.sane"
}

// PathVersions is the backend key for one artifact's versions index.
func PathVersions(artifactName string) string {
	return artifactName + "/versions.sane"
}

// PathManifest is the backend key for one artifact version's manifest.
func PathManifest(artifactName, version string) string {
	return fmt.Sprintf("%s/%s/artifact.sane", artifactName, version)
}

// PathFile is the backend key for one file within a published artifact
// version.
func PathFile(artifactName, version, filename string) string {
	return fmt.Sprintf("%s/%s/%s", artifactName, version, filename)
}
