// Package testutil writes small Java applications and entry-point
// configurations for package tests.
package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// RunnableTask is an application class that is an entry point under the
// default framework once java.lang.Runnable is configured.
const RunnableTask = `package app;

public class Task implements Runnable {
    public void run() {
        new Thread(this).start();
    }
}
`

// WriteFile writes content to a file, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll(%s) error: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile(%s) error: %v", path, err)
	}
}

// ReadFile reads content from a file.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) error: %v", path, err)
	}
	return string(data)
}

// CreateFileTree creates multiple files from a map of path -> content.
func CreateFileTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		WriteFile(t, filepath.Join(root, name), content)
	}
}

// ListFiles returns all files below root, sorted.
func ListFiles(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WalkDir(%s) error: %v", root, err)
	}
	slices.Sort(files)
	return files
}

// JavaApp writes Java sources, keyed by class name (app.Task), into a fresh
// source root laid out by package and returns the root.
func JavaApp(t *testing.T, classes map[string]string) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "src")
	files := make(map[string]string, len(classes))
	for name, src := range classes {
		files[filepath.Join(strings.Split(name, ".")...)+".java"] = src
	}
	CreateFileTree(t, root, files)
	return root
}

// EntryPointDir writes EntryPointClasses.txt with the given signature_KIND
// lines and returns its directory.
func EntryPointDir(t *testing.T, lines ...string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "ep")
	WriteFile(t, filepath.Join(dir, "EntryPointClasses.txt"), strings.Join(lines, "\n")+"\n")
	return dir
}
