package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// findModuleDir locates the directory containing the go.mod file.
func findModuleDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	for {
		if _, err = os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parentDir := filepath.Dir(dir)
		if parentDir == dir {
			return "", os.ErrNotExist
		}
		dir = parentDir
	}
}

// resolveUIPath returns ui/<name> below the working directory or, when missing, below the module root.
func resolveUIPath(name string) (string, error) {
	candidate := filepath.Join("ui", name)
	if stat, err := os.Stat(candidate); err == nil && stat.IsDir() {
		return candidate, nil
	}
	modulePath, err := findModuleDir()
	if err != nil {
		return "", fmt.Errorf("find module dir: %w", err)
	}
	return filepath.Join(modulePath, "ui", name), nil
}

// resolveAndVerifyTemplatePath resolves the template path and verifies it.
//
// If the templatePath is empty, it will attempt to find it from the module root.
func resolveAndVerifyTemplatePath(templatePath string) (string, error) {
	var err error
	if templatePath == "" {
		if templatePath, err = resolveUIPath("templates"); err != nil {
			return "", err
		}
	}
	var stat os.FileInfo
	if stat, err = os.Stat(templatePath); err != nil {
		return "", fmt.Errorf("template path not found %s: %w", templatePath, err)
	}
	if !stat.IsDir() {
		return "", fmt.Errorf("template path is not a directory: %s", templatePath)
	}
	return templatePath, nil
}
