package engine

import (
	"archive/zip"
	"encoding/json"
	"strings"
	"testing"
)

const twoContainerTaskDef = `{
  "family": "payments",
  "containerDefinitions": [
    {"name": "sidecar", "image": "envoy:1.29"},
    {"name": "app", "image": "payments:old"}
  ]
}`

func containerImages(t *testing.T, taskDef []byte) map[string]string {
	t.Helper()
	var doc struct {
		ContainerDefinitions []struct {
			Name  string `json:"name"`
			Image string `json:"image"`
		} `json:"containerDefinitions"`
	}
	if err := json.Unmarshal(taskDef, &doc); err != nil {
		t.Fatalf("unmarshal task def: %v", err)
	}
	images := make(map[string]string)
	for _, c := range doc.ContainerDefinitions {
		images[c.Name] = c.Image
	}
	return images
}

func TestInjectImageNamedContainer(t *testing.T) {
	updated, injected, err := InjectImage([]byte(twoContainerTaskDef), "app", "payments:v2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if injected != "app" {
		t.Errorf("expected injection into app, got %q", injected)
	}

	images := containerImages(t, updated)
	if images["app"] != "payments:v2" {
		t.Errorf("app image = %q, want payments:v2", images["app"])
	}
	if images["sidecar"] != "envoy:1.29" {
		t.Errorf("sidecar image changed to %q", images["sidecar"])
	}
}

func TestInjectImageMissingContainerFallsBackToFirst(t *testing.T) {
	updated, injected, err := InjectImage([]byte(twoContainerTaskDef), "missing", "payments:v2")
	if err != nil {
		t.Fatalf("fallback must not fail: %v", err)
	}
	if injected != "sidecar" {
		t.Errorf("expected fallback to first container, got %q", injected)
	}

	images := containerImages(t, updated)
	if images["sidecar"] != "payments:v2" {
		t.Errorf("first container image = %q, want payments:v2", images["sidecar"])
	}
	if images["app"] != "payments:old" {
		t.Errorf("app image changed to %q", images["app"])
	}
}

func TestInjectImageNoContainers(t *testing.T) {
	_, _, err := InjectImage([]byte(`{"containerDefinitions": []}`), "app", "payments:v2")
	if !IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}

	_, _, err = InjectImage([]byte(`not json`), "app", "payments:v2")
	if !IsValidation(err) {
		t.Errorf("expected validation error for invalid JSON, got %v", err)
	}
}

func TestLoadManifestsSamplesWithTokens(t *testing.T) {
	pair, err := LoadManifests("", "", map[string]string{
		"<CONTAINER_NAME>": "payments",
		"<FAMILY>":         "payments-task",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(string(pair.AppSpec), "ContainerName: payments") {
		t.Errorf("app spec token not replaced:\n%s", pair.AppSpec)
	}
	if strings.Contains(string(pair.TaskDefinition), "<FAMILY>") {
		t.Errorf("task def token not replaced:\n%s", pair.TaskDefinition)
	}
}

func TestLoadManifestsMissingFile(t *testing.T) {
	_, err := LoadManifests("/nonexistent/appspec.yaml", "", nil)
	if !IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestPackageBundle(t *testing.T) {
	pair := ManifestPair{
		AppSpec:        []byte("version: 0.0\n"),
		TaskDefinition: []byte(`{"family": "payments"}`),
	}

	path, digest, err := PackageBundle(pair, t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(digest) != 64 {
		t.Errorf("digest %q is not a sha256 hex string", digest)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open bundle: %v", err)
	}
	defer zr.Close()

	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	if !names["appspec.yaml"] || !names["taskdef.json"] {
		t.Errorf("bundle entries = %v, want appspec.yaml and taskdef.json", names)
	}

	// Identical manifests must produce an identical digest.
	_, again, err := PackageBundle(pair, t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != digest {
		t.Errorf("digest not reproducible: %s vs %s", digest, again)
	}
}

func TestContentDigest(t *testing.T) {
	got := ContentDigest([]byte("hello"))
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got != want {
		t.Errorf("ContentDigest = %s, want %s", got, want)
	}
}
