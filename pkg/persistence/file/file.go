// Package file provides file-based persistence for test cases and execution results.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jbtestsuite/jbtest/pkg/persistence"
)

// Persistence implements persistence.Persistence using JSON documents on disk.
type Persistence struct {
	root                string
	testCaseRepo        *TestCaseRepository
	executionResultRepo *ExecutionResultRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:                cleanRoot,
		testCaseRepo:        NewTestCaseRepository(cleanRoot),
		executionResultRepo: NewExecutionResultRepository(cleanRoot),
	}
}

func (fp *Persistence) TestCaseRepository() persistence.TestCaseRepository {
	return fp.testCaseRepo
}

func (fp *Persistence) ExecutionResultRepository() persistence.ExecutionResultRepository {
	return fp.executionResultRepo
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// validateID rejects identifiers that would escape the storage directory.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", persistence.ErrInvalidID)
	}

	if strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q contains invalid characters", persistence.ErrInvalidID, id)
	}

	return nil
}

func writeJSON(dir, id string, v any) error {
	err := os.MkdirAll(dir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}

	err = os.WriteFile(filepath.Join(dir, id+".json"), data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", id, err)
	}

	return nil
}

// readJSON returns fs.ErrNotExist (wrapped) when the document is absent.
func readJSON(dir, id string, v any) error {
	data, err := os.ReadFile(filepath.Join(dir, id+".json"))
	if err != nil {
		return err
	}

	err = json.Unmarshal(data, v)
	if err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", id, err)
	}

	return nil
}

// listIDs returns the document ids stored in dir, empty when dir does not exist.
func listIDs(dir string) ([]string, error) {
	jsonFiles, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list files in %s: %w", dir, err)
	}

	ids := make([]string, 0, len(jsonFiles))
	for _, file := range jsonFiles {
		ids = append(ids, strings.TrimSuffix(file, ".json"))
	}

	return ids, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
