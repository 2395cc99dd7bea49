package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/atharvparlikar/pollux/config"
	"github.com/atharvparlikar/pollux/errors"
)

// maxReadBytes bounds how much file content a single read returns; larger
// files are truncated with a marker so the model knows content is missing.
const maxReadBytes = 50 * 1024

// ReadFileTool implements the tool for reading a file.
type ReadFileTool struct {
	fsAccess *config.FilesystemAccess
}

func (t *ReadFileTool) Name() string { return "read_file" }
func (t *ReadFileTool) Description() string {
	return "Reads the content of a file. Files larger than 50KB are truncated. Args: path (string)."
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, ok := args["path"].(string)
	if !ok {
		return "", errors.New("missing or invalid 'path' argument")
	}

	hidden, err := isPathRestricted(path, t.fsAccess.Hidden)
	if err != nil {
		return "", err
	}
	if hidden {
		return "", errors.New("access denied: path '%s' is hidden", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read file '%s'", path)
	}
	if len(content) > maxReadBytes {
		return string(content[:maxReadBytes]) + "\n\n[... truncated to 50KB ...]", nil
	}
	return string(content), nil
}

// WriteFileTool implements the tool for writing to a file.
type WriteFileTool struct {
	fsAccess *config.FilesystemAccess
}

func (t *WriteFileTool) Name() string { return "write_file" }
func (t *WriteFileTool) Description() string {
	return "Writes content to a file, replacing it entirely. Args: path (string), content (string)."
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, pathOk := args["path"].(string)
	content, contentOk := args["content"].(string)
	if !pathOk || !contentOk {
		return "", errors.New("missing or invalid 'path' or 'content' arguments")
	}

	if err := t.checkWritable(path); err != nil {
		return "", err
	}

	err := os.WriteFile(path, []byte(content), 0644)
	if err != nil {
		return "", errors.Wrapf(err, "failed to write to file '%s'", path)
	}
	return fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), path), nil
}

func (t *WriteFileTool) checkWritable(path string) error {
	hidden, err := isPathRestricted(path, t.fsAccess.Hidden)
	if err != nil {
		return err
	}
	if hidden {
		return errors.New("access denied: path '%s' is hidden", path)
	}
	readOnly, err := isPathRestricted(path, t.fsAccess.ReadOnly)
	if err != nil {
		return err
	}
	if readOnly {
		return errors.New("access denied: path '%s' is read-only", path)
	}
	return nil
}

// EditFileTool replaces one exact text occurrence in a file. The result
// messages are written for model consumption: they say precisely why an edit
// was rejected so the model can correct its arguments.
type EditFileTool struct {
	fsAccess *config.FilesystemAccess
}

func (t *EditFileTool) Name() string { return "edit_file" }
func (t *EditFileTool) Description() string {
	return "Replaces the first exact occurrence of old_text with new_text in a file. " +
		"old_text must match the file content exactly, including whitespace. " +
		"Args: path (string), old_text (string), new_text (string)."
}

func (t *EditFileTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, pathOk := args["path"].(string)
	oldText, oldOk := args["old_text"].(string)
	newText, newOk := args["new_text"].(string)
	if !pathOk || !oldOk || !newOk {
		return "", errors.New("missing or invalid 'path', 'old_text' or 'new_text' arguments")
	}
	if oldText == "" {
		return "", errors.New("'old_text' must not be empty")
	}

	writer := &WriteFileTool{fsAccess: t.fsAccess}
	if err := writer.checkWritable(path); err != nil {
		return "", err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read file '%s'", path)
	}

	text := string(content)
	count := strings.Count(text, oldText)
	if count == 0 {
		return "", errors.New("old_text not found in '%s'; it must match the file content exactly, including whitespace", path)
	}

	updated := strings.Replace(text, oldText, newText, 1)
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		return "", errors.Wrapf(err, "failed to write to file '%s'", path)
	}

	if count > 1 {
		return fmt.Sprintf("Replaced the first of %d occurrences in %s. Provide more surrounding context in old_text to target a specific one.", count, path), nil
	}
	return fmt.Sprintf("Successfully edited %s", path), nil
}

// maxListEntries bounds a single listing so huge trees don't flood the
// model's context.
const maxListEntries = 500

// ignoredDirs are directory names never worth listing for an LLM.
var ignoredDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"__pycache__":  true,
	".next":        true,
	".turbo":       true,
	"vendor":       true,
}

// ListFilesTool walks a directory tree and returns the project's files,
// skipping noise directories and hidden paths.
type ListFilesTool struct {
	fsAccess *config.FilesystemAccess
}

func (t *ListFilesTool) Name() string { return "list_files" }
func (t *ListFilesTool) Description() string {
	return "Lists files under a directory recursively, skipping dependency and VCS directories. " +
		"Args: path (string, optional, defaults to the current directory)."
}

func (t *ListFilesTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	root, ok := args["path"].(string)
	if !ok || root == "" {
		root = "."
	}

	var entries []string
	truncated := false
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (ignoredDirs[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		hidden, err := isPathRestricted(rel, t.fsAccess.Hidden)
		if err != nil {
			return err
		}
		if hidden {
			return nil
		}

		if len(entries) >= maxListEntries {
			truncated = true
			return filepath.SkipAll
		}
		entries = append(entries, rel)
		return nil
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to list files under '%s'", root)
	}

	if len(entries) == 0 {
		return "No files found.", nil
	}
	listing := strings.Join(entries, "\n")
	if truncated {
		listing += fmt.Sprintf("\n[... listing truncated at %d entries ...]", maxListEntries)
	}
	return listing, nil
}
