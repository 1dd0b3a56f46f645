/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"cinevision/internal/analysis"
	"cinevision/internal/storage"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// Supported formats.
const (
	FormatJSON     = "json"
	FormatMarkdown = "md"
	FormatHTML     = "html"
	FormatPDF      = "pdf"
)

// BatchOptions controls batch export of one analysis result.
//
// Files are written as <out>/exports/<preset>/<base>.<format>.
type BatchOptions struct {
	Preset   PresetName
	Formats  []string // empty means preset defaults
	BaseName string   // defaults to "analysis"
	PDF      PDFOptions
}

// BatchExport writes res in every requested format and returns the written paths.
func BatchExport(out *storage.OutputDir, res *analysis.Result, opt BatchOptions) ([]string, error) {
	if out == nil {
		return nil, fmt.Errorf("output dir is nil")
	}
	if res == nil {
		return nil, fmt.Errorf("analysis result is nil")
	}
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	base := strings.TrimSpace(opt.BaseName)
	if base == "" {
		base = "analysis"
	}
	preset := string(opt.Preset)
	if preset == "" {
		preset = "default"
	}

	var written []string
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		name := filepath.Join(storage.ExportsDirName, preset, base+"."+f)
		var err error
		switch f {
		case FormatJSON:
			err = out.WriteJSON(name, res)
		case FormatMarkdown:
			err = out.WriteFile(name, []byte(Markdown(res)))
		case FormatHTML:
			var page []byte
			if page, err = HTML(res); err == nil {
				err = out.WriteFile(name, page)
			}
		case FormatPDF:
			var buf bytes.Buffer
			if err = WriteBreakdownPDF(&buf, res, opt.PDF); err == nil {
				err = out.WriteFile(name, buf.Bytes())
			}
		default:
			return written, fmt.Errorf("unknown format: %s", f)
		}
		if err != nil {
			return written, fmt.Errorf("%s export: %w", f, err)
		}
		written = append(written, out.Path(name))
	}
	return written, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{FormatJSON, FormatHTML}
	case PresetPrint:
		return []string{FormatPDF, FormatMarkdown}
	default:
		return []string{FormatJSON}
	}
}
