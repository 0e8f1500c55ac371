/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"licensexml/internal/domain"
)

// OutputExt is the extension of converted documents.
const OutputExt = ".xml"

// ErrInvalidIdentifier is returned for identifiers that cannot name a file.
var ErrInvalidIdentifier = errors.New("invalid record identifier")

// Output is the write-once output directory.
type Output struct {
	Root string
}

// NewOutput returns an Output rooted at root.
func NewOutput(root string) (Output, error) {
	if strings.TrimSpace(root) == "" {
		return Output{}, errors.New("output root is required")
	}
	return Output{Root: root}, nil
}

// Path returns the document path of rec.
func (o Output) Path(rec domain.LicenseRecord) (string, error) {
	id := strings.TrimSpace(rec.Identifier)
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, rec.Identifier)
	}
	typ := rec.Type
	if typ == "" {
		typ = domain.TypeLicense
	}
	return filepath.Join(o.Root, typ.Plural(), id+OutputExt), nil
}

// Exists reports whether rec was already converted.
func (o Output) Exists(rec domain.LicenseRecord) (bool, error) {
	p, err := o.Path(rec)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat output: %w", err)
	}
}

// Write stores the document of rec and returns its path.
// Readers never observe a partially written file.
func (o Output) Write(rec domain.LicenseRecord, data []byte) (string, error) {
	p, err := o.Path(rec)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(p), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		_ = os.Remove(temp)
		return "", fmt.Errorf("write temp document: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(p); err == nil {
		_ = os.Remove(p)
	}
	if rerr := os.Rename(temp, p); rerr != nil {
		_ = os.Remove(temp)
		return "", fmt.Errorf("replace document: %w", rerr)
	}
	return p, nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
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
	if err := f.Sync(); err != nil {
		return err
	}
	return nil
}
