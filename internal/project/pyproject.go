// Package project reads the metadata of the source tree being installed.
//
// Only pyproject.toml is understood. The installer uses the result for
// reporting and for early warnings; pip remains the authority on whether
// a tree is installable, so nothing here rejects a file that is valid TOML.
// Metadata of an unexpected shape is reported through Warnings instead.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/shinji-kodama/hpctesttool-install/internal/model"
)

// FileName is the project metadata file looked up in the source tree.
const FileName = "pyproject.toml"

// PoetryBackend is the build-backend value poetry-core projects declare.
const PoetryBackend = "poetry.core.masonry.api"

// rawPyProject mirrors the parts of pyproject.toml the installer reads.
// Unknown tables are ignored by the decoder.
type rawPyProject struct {
	BuildSystem struct {
		Requires     []string `toml:"requires"`
		BuildBackend string   `toml:"build-backend"`
	} `toml:"build-system"`

	// Project is the PEP 621 [project] table.
	Project struct {
		Name    string         `toml:"name"`
		Version string         `toml:"version"`
		Scripts map[string]any `toml:"scripts"`
	} `toml:"project"`

	// Tool carries [tool.poetry], used when [project] is absent.
	Tool struct {
		Poetry struct {
			Name    string `toml:"name"`
			Version string `toml:"version"`

			// Poetry accepts both `name = "pkg:fn"` and inline tables such
			// as `{ callable = "pkg:fn" }` or `{ reference = "...", type = "file" }`.
			// Only the keys matter here.
			Scripts map[string]any `toml:"scripts"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// Load reads <src>/pyproject.toml.
//
// A missing file returns (nil, nil): a legacy setup.py tree is still a
// valid pip target. A file that is not valid TOML is a model.CLIError with
// ExitInvalidInput, since pip would reject it too.
func Load(src string) (*model.Project, error) {
	path := filepath.Join(src, FileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, model.WrapCLIError(model.ExitInvalidInput, fmt.Sprintf("failed to read %s", path), err)
	}

	return Parse(data, path)
}

// Parse decodes pyproject.toml content. name is used in error messages.
//
// Only TOML syntax errors fail. If the document is valid TOML but a field
// the installer reads has an unexpected type, the returned project carries
// the decode error in Problems and every other field is left empty.
func Parse(data []byte, name string) (*model.Project, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, model.WrapCLIError(
				model.ExitInvalidInput,
				fmt.Sprintf("invalid %s at line %d, column %d", name, row, col),
				err,
			)
		}
		return nil, model.WrapCLIError(model.ExitInvalidInput, fmt.Sprintf("invalid %s", name), err)
	}

	var raw rawPyProject
	if err := toml.Unmarshal(data, &raw); err != nil {
		return &model.Project{
			Problems: []string{fmt.Sprintf("cannot read metadata from %s: %v", name, err)},
		}, nil
	}

	p := &model.Project{
		Name:          raw.Project.Name,
		Version:       raw.Project.Version,
		BuildBackend:  raw.BuildSystem.BuildBackend,
		BuildRequires: raw.BuildSystem.Requires,
	}
	scripts := raw.Project.Scripts

	// Poetry projects that predate PEP 621 keep everything under [tool.poetry].
	if p.Name == "" {
		p.Name = raw.Tool.Poetry.Name
	}
	if p.Version == "" {
		p.Version = raw.Tool.Poetry.Version
	}
	if len(scripts) == 0 {
		scripts = raw.Tool.Poetry.Scripts
	}

	for s := range scripts {
		p.Scripts = append(p.Scripts, s)
	}
	sort.Strings(p.Scripts)

	return p, nil
}

// Warnings returns human-readable notes about metadata that suggests the
// install will not produce what the shims need. An empty slice means
// nothing looked off.
func Warnings(p *model.Project) []string {
	if p == nil {
		return []string{fmt.Sprintf("no %s found; relying on legacy setup", FileName)}
	}

	warnings := append([]string(nil), p.Problems...)
	if p.BuildBackend != "" && p.BuildBackend != PoetryBackend {
		warnings = append(warnings, fmt.Sprintf(
			"build backend is %q, but only %s is installed from the wheel directory",
			p.BuildBackend, model.BuildBackendPackage,
		))
	}
	if len(p.Scripts) > 0 && !p.Provides(model.ToolBinary) {
		warnings = append(warnings, fmt.Sprintf("project does not declare a %q script", model.ToolBinary))
	}
	return warnings
}
