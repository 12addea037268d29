package querycore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LoadSchema reads a committed schema from path. A missing file is not an
// error; it returns a fresh, empty schema so first-run introspection has
// something to merge against (§4.6).
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewSchema(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("querycore: reading schema %s: %w", path, err)
	}
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("querycore: parsing schema %s: %w", path, err)
	}
	return &s, nil
}

// SaveSchema persists s to path atomically: it writes to a temporary file
// in the same directory, then renames it over the destination, so a
// cancelled or interrupted write never leaves a half-written schema file
// (§5).
func SaveSchema(path string, s *Schema) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("querycore: encoding schema: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".schema-*.json.tmp")
	if err != nil {
		return fmt.Errorf("querycore: creating temp schema file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("querycore: writing temp schema file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("querycore: closing temp schema file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("querycore: committing schema file: %w", err)
	}
	return nil
}

// UpdateSchema loads the schema at path, reconciles it against freshlyInferred
// using the backward-compatible merge rules of §4.6 (rooted at each
// collection's own document type), and saves the result back atomically.
func UpdateSchema(path string, freshlyInferred *Schema) (*Schema, error) {
	existing, err := LoadSchema(path)
	if err != nil {
		return nil, err
	}

	merged := NewSchema()
	for name, coll := range freshlyInferred.Collections {
		existingColl, hadExisting := existing.Collections[name]
		description := coll.Description
		if hadExisting && existingColl.Description != "" {
			description = existingColl.Description
		}
		rootType := coll.Type.ObjectName
		reconciledTypes := KeepBackwardCompatibleChanges(existing.ObjectTypes, freshlyInferred.ObjectTypes, rootType)
		for typeName, ot := range reconciledTypes {
			merged.ObjectTypes[typeName] = ot
		}
		merged.Collections[name] = CollectionSchema{Type: ObjectRef(rootType), Description: description}
	}
	for name, coll := range existing.Collections {
		if _, stillPresent := freshlyInferred.Collections[name]; !stillPresent {
			merged.Collections[name] = coll
		}
	}

	if err := SaveSchema(path, merged); err != nil {
		return nil, err
	}
	return merged, nil
}
