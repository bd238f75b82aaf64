// Package artifact persists rendered diagram outputs on disk, one
// directory per render request, each artifact paired with a metadata
// sidecar describing where it came from.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Metadata is the sidecar payload written next to every artifact.
type Metadata struct {
	CreatedAt           string `json:"created_at"`
	ContentType         string `json:"content_type"`
	SourceSchemaID      string `json:"source_schema_id,omitempty"`
	SourceSchemaVersion string `json:"source_schema_version,omitempty"`
	RequestID           string `json:"request_id"`
	SchemaHash          string `json:"schema_hash"`
}

// Stored points at one artifact and its sidecar.
type Stored struct {
	Path         string
	MetadataPath string
	Metadata     Metadata
}

// Descriptor identifies the schema snapshot an artifact was rendered from.
// Its canonical JSON is hashed into the artifact filename, so rendering the
// same snapshot twice overwrites in place instead of accumulating copies.
type Descriptor struct {
	SchemaID      string `json:"schema_id,omitempty"`
	SchemaVersion string `json:"schema_version,omitempty"`
	SystemID      string `json:"system_id,omitempty"`
}

// Store writes artifacts under root. There is no TTL or count-based
// eviction; callers own the lifecycle of the directory.
type Store struct {
	root string
}

// NewStore creates the root directory if needed and returns a store over it.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	return &Store{root: root}, nil
}

// NewRequestID returns a fresh id grouping the artifacts of one render run.
func NewRequestID() string {
	return uuid.NewString()
}

// WriteText persists text content for the request, named by the descriptor
// hash with an extension derived from the content type.
func (s *Store) WriteText(requestID string, desc Descriptor, content, contentType string) (*Stored, error) {
	return s.WriteBytes(requestID, desc, []byte(content), contentType)
}

// WriteBytes is WriteText for binary payloads such as rendered images.
func (s *Store) WriteBytes(requestID string, desc Descriptor, data []byte, contentType string) (*Stored, error) {
	hash, err := descriptorHash(desc)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(s.root, requestID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create request directory: %w", err)
	}

	stored := &Stored{
		Path:         filepath.Join(dir, hash+extensionFor(contentType)),
		MetadataPath: filepath.Join(dir, hash+".metadata.json"),
		Metadata: Metadata{
			CreatedAt:           time.Now().UTC().Format(time.RFC3339),
			ContentType:         contentType,
			SourceSchemaID:      desc.SchemaID,
			SourceSchemaVersion: desc.SchemaVersion,
			RequestID:           requestID,
			SchemaHash:          hash,
		},
	}

	if err := os.WriteFile(stored.Path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}
	sidecar, err := json.MarshalIndent(stored.Metadata, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(stored.MetadataPath, sidecar, 0o644); err != nil {
		return nil, fmt.Errorf("write metadata: %w", err)
	}
	return stored, nil
}

// List returns artifacts newest first. An empty requestID lists across all
// requests. Artifacts that lost their metadata sidecar are skipped.
func (s *Store) List(requestID string) ([]Stored, error) {
	pattern := filepath.Join(s.root, "*", "*")
	if requestID != "" {
		pattern = filepath.Join(s.root, requestID, "*")
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var candidates []candidate
	for _, path := range matches {
		if strings.HasSuffix(path, ".metadata.json") {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		candidates = append(candidates, candidate{path: path, modTime: info.ModTime()})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].modTime.Equal(candidates[j].modTime) {
			return candidates[i].modTime.After(candidates[j].modTime)
		}
		return candidates[i].path < candidates[j].path
	})

	var artifacts []Stored
	for _, c := range candidates {
		stored, err := loadStored(c.path)
		if err != nil {
			continue
		}
		artifacts = append(artifacts, *stored)
	}
	return artifacts, nil
}

// Read loads one artifact by name within a request directory. Names that
// escape the store root are rejected as not found.
func (s *Store) Read(requestID, name string) (*Stored, error) {
	path := filepath.Join(s.root, requestID, name)
	if !s.contains(path) {
		return nil, fmt.Errorf("artifact '%s': %w", name, os.ErrNotExist)
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("artifact '%s': %w", name, os.ErrNotExist)
	}
	stored, err := loadStored(path)
	if err != nil {
		return nil, fmt.Errorf("metadata for '%s': %w", name, err)
	}
	return stored, nil
}

func (s *Store) contains(path string) bool {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func loadStored(path string) (*Stored, error) {
	metadataPath := sidecarPath(path)
	payload, err := os.ReadFile(metadataPath)
	if err != nil {
		return nil, err
	}
	var metadata Metadata
	if err := json.Unmarshal(payload, &metadata); err != nil {
		return nil, err
	}
	return &Stored{Path: path, MetadataPath: metadataPath, Metadata: metadata}, nil
}

func sidecarPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".metadata.json"
}

// descriptorHash is the sha256 of the descriptor's canonical JSON encoding.
func descriptorHash(desc Descriptor) (string, error) {
	canonical, err := json.Marshal(desc)
	if err != nil {
		return "", fmt.Errorf("encode descriptor: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

var contentTypeExtensions = map[string]string{
	"text/plain":       ".txt",
	"text/plantuml":    ".puml",
	"image/png":        ".png",
	"image/svg+xml":    ".svg",
	"application/json": ".json",
}

func extensionFor(contentType string) string {
	if ext, ok := contentTypeExtensions[contentType]; ok {
		return ext
	}
	return ".artifact"
}
