/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	ReportsDirName = "reports"
	ExportsDirName = "exports"
	BackupsDirName = "backups"
)

// backupStamp sorts lexicographically in time order.
const backupStamp = "20060102-150405.000"

var standardSubDirs = []string{ReportsDirName, ExportsDirName, BackupsDirName}

// OutputDir is a folder receiving analysis results.
// Relative paths passed to its methods resolve against Root.
type OutputDir struct {
	Root string
}

// Init creates root (if needed) and its standard subfolders.
func Init(root string) (*OutputDir, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create output root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return &OutputDir{Root: root}, nil
}

// Path resolves name against the output root.
func (o *OutputDir) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(o.Root, name)
}

// WriteFile writes data transactionally to name and backs up the file it replaces.
func (o *OutputDir) WriteFile(name string, data []byte) error {
	if o == nil || o.Root == "" {
		return errors.New("invalid output dir: missing root")
	}
	target := o.Path(name)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	if _, statErr := os.Stat(target); statErr == nil {
		if err := o.backup(target); err != nil {
			return fmt.Errorf("backup %s: %w", filepath.Base(target), err)
		}
	}
	return writeAtomic(target, data)
}

// WriteJSON writes v as indented JSON.
func (o *OutputDir) WriteJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return o.WriteFile(name, append(data, '\n'))
}

// ReadJSON loads name into v. If the file is missing or does not parse,
// the latest backup of it is tried.
func (o *OutputDir) ReadJSON(name string, v any) error {
	target := o.Path(name)
	b, err := os.ReadFile(target)
	if err == nil {
		if err = json.Unmarshal(b, v); err == nil {
			return nil
		}
	}
	if berr := o.readLatestBackup(target, v); berr != nil {
		return fmt.Errorf("read %s: %w; backup attempt: %v", name, err, berr)
	}
	return nil
}

// Backups lists the backups of name, oldest first.
func (o *OutputDir) Backups(name string) ([]string, error) {
	base := filepath.Base(o.Path(name))
	ents, err := os.ReadDir(filepath.Join(o.Root, BackupsDirName))
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var out []string
	for _, e := range ents {
		if isBackupOf(e.Name(), base) {
			out = append(out, filepath.Join(o.Root, BackupsDirName, e.Name()))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out, nil
}

// isBackupOf matches "<base>.<stamp>.bak" exactly, so "report.json.md.<stamp>.bak"
// is not a backup of "report.json".
func isBackupOf(name, base string) bool {
	rest, ok := strings.CutPrefix(name, base+".")
	if !ok {
		return false
	}
	stamp, ok := strings.CutSuffix(rest, ".bak")
	if !ok {
		return false
	}
	_, err := time.Parse(backupStamp, stamp)
	return err == nil
}

func (o *OutputDir) backup(target string) error {
	bdir := filepath.Join(o.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return err
	}
	stamp := time.Now().Format(backupStamp)
	return copyFile(target, filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(target), stamp)))
}

func (o *OutputDir) readLatestBackup(target string, v any) error {
	list, err := o.Backups(target)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return errors.New("no backups found")
	}
	b, err := os.ReadFile(list[len(list)-1])
	if err != nil {
		return fmt.Errorf("read latest backup: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("parse latest backup: %w", err)
	}
	return nil
}

// writeAtomic writes to a temp file next to path, then renames it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp file: %w", err)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies src to dst, overwriting dst.
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
