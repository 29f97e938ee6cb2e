package loader

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

const gitignoreComment = "# treegrid view state"

// EnsureIgnored makes sure dirName (e.g. ".treegrid") is listed in the
// .gitignore of projectDir, so persisted expansion state stays out of the
// repository. It is idempotent: an existing entry covering the directory is
// left alone, and the file is created if missing.
func EnsureIgnored(projectDir, dirName string) error {
	if projectDir == "" {
		var err error
		projectDir, err = os.Getwd()
		if err != nil {
			return err
		}
	}
	dirName = strings.Trim(dirName, "/")
	if dirName == "" {
		return errors.New("ensure ignored: empty directory name")
	}

	gitignorePath := filepath.Join(projectDir, ".gitignore")
	present, err := isIgnored(gitignorePath, dirName)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "read %s", gitignorePath)
	}
	if present {
		return nil
	}
	return appendToGitignore(gitignorePath, dirName+"/")
}

// isIgnored reports whether a .gitignore line already covers dirName.
func isIgnored(path, dirName string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if coversDir(line, dirName) {
			return true, nil
		}
	}
	return false, scanner.Err()
}

// coversDir checks if a gitignore line names the directory itself.
func coversDir(line, dirName string) bool {
	normalized := strings.TrimPrefix(line, "/")
	for _, suffix := range []string{"", "/", "/*", "/**", "/**/*"} {
		if normalized == dirName+suffix {
			return true
		}
	}
	return false
}

// appendToGitignore appends pattern under a comment, creating the file if
// needed and keeping a blank line between it and existing content.
func appendToGitignore(path, pattern string) error {
	content, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "read %s", path)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer file.Close()

	var toWrite string
	if len(content) > 0 {
		if content[len(content)-1] != '\n' {
			toWrite = "\n"
		}
		toWrite += "\n"
	}
	toWrite += gitignoreComment + "\n" + pattern + "\n"

	if _, err := file.WriteString(toWrite); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
