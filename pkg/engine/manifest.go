package engine

import (
	"archive/zip"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

//go:embed samples/appspec.yaml samples/taskdef.json
var sampleFS embed.FS

// ManifestPair is the materialized deployment payload: the deployment
// spec manifest and the workload (task) definition it references.
type ManifestPair struct {
	// AppSpec is the deployment spec manifest content.
	AppSpec []byte

	// TaskDefinition is the workload definition content.
	TaskDefinition []byte
}

// LoadManifests materializes the manifest pair from caller-supplied
// workspace files, falling back to the bundled samples when a path is
// empty. Token replacements are applied literally to both documents.
func LoadManifests(appSpecPath, taskDefPath string, tokens map[string]string) (ManifestPair, error) {
	appSpec, err := loadManifest(appSpecPath, "samples/appspec.yaml")
	if err != nil {
		return ManifestPair{}, err
	}
	taskDef, err := loadManifest(taskDefPath, "samples/taskdef.json")
	if err != nil {
		return ManifestPair{}, err
	}

	for token, value := range tokens {
		appSpec = []byte(strings.ReplaceAll(string(appSpec), token, value))
		taskDef = []byte(strings.ReplaceAll(string(taskDef), token, value))
	}

	return ManifestPair{AppSpec: appSpec, TaskDefinition: taskDef}, nil
}

func loadManifest(path, sample string) ([]byte, error) {
	if path == "" {
		return sampleFS.ReadFile(sample)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("cannot read manifest %s: %v", path, err))
	}
	return content, nil
}

// InjectImage sets the image field of the named container in the workload
// definition. This is the only place image promotion happens. When the
// named container is not found the first container receives the image,
// logged as a warning rather than treated as an error.
// The returned string is the name of the container that was modified.
func InjectImage(taskDef []byte, containerName, image string) ([]byte, string, error) {
	var doc map[string]any
	if err := json.Unmarshal(taskDef, &doc); err != nil {
		return nil, "", NewValidationError(fmt.Sprintf("workload definition is not valid JSON: %v", err))
	}

	raw, ok := doc["containerDefinitions"].([]any)
	if !ok || len(raw) == 0 {
		return nil, "", NewValidationError("workload definition has no container definitions")
	}

	target := -1
	if containerName != "" {
		for i, c := range raw {
			def, ok := c.(map[string]any)
			if !ok {
				continue
			}
			if name, _ := def["name"].(string); name == containerName {
				target = i
				break
			}
		}
	}
	if target < 0 {
		target = 0
		if containerName != "" {
			log.Warn().
				Str("container", containerName).
				Str("image", image).
				Msg("container not found in workload definition, injecting image into first container")
		}
	}

	def, ok := raw[target].(map[string]any)
	if !ok {
		return nil, "", NewValidationError("workload definition container entry is not an object")
	}
	def["image"] = image
	injected, _ := def["name"].(string)

	updated, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, "", NewInternalError("re-encoding workload definition", err)
	}
	return updated, injected, nil
}

// PackageBundle writes the manifest pair into an immutable zip revision
// bundle under dir and returns the bundle path and its SHA-256 digest.
func PackageBundle(pair ManifestPair, dir string) (path, digest string, err error) {
	path = filepath.Join(dir, "revision.zip")
	f, err := os.Create(path)
	if err != nil {
		return "", "", NewInternalError("creating revision bundle", err)
	}
	defer f.Close()

	// Entries are written in a fixed order so identical manifests
	// always produce the same digest.
	entries := []struct {
		name    string
		content []byte
	}{
		{"appspec.yaml", pair.AppSpec},
		{"taskdef.json", pair.TaskDefinition},
	}

	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			return "", "", NewInternalError("writing revision bundle", err)
		}
		if _, err := w.Write(e.content); err != nil {
			return "", "", NewInternalError("writing revision bundle", err)
		}
	}
	if err := zw.Close(); err != nil {
		return "", "", NewInternalError("finalizing revision bundle", err)
	}

	digest, err = fileDigest(path)
	if err != nil {
		return "", "", err
	}
	return path, digest, nil
}

// ContentDigest returns the SHA-256 hex digest of inline manifest
// content.
func ContentDigest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", NewInternalError("hashing revision bundle", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", NewInternalError("hashing revision bundle", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
