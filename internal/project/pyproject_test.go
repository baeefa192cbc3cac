package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/hpctesttool-install/internal/model"
)

const poetryPyProject = `
[build-system]
requires = ["poetry-core>=1.0.0"]
build-backend = "poetry.core.masonry.api"

[tool.poetry]
name = "hpctesttool"
version = "0.1.0"
description = "Test harness"

[tool.poetry.scripts]
hpctesttool = "hpctesttool.__main__:main"
`

const pep621PyProject = `
[build-system]
requires = ["poetry-core>=2.0"]
build-backend = "poetry.core.masonry.api"

[project]
name = "hpctesttool"
version = "2.0.0"

[project.scripts]
zeta = "x:main"
hpctesttool = "hpctesttool.__main__:main"
`

func writePyProject(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))
	return dir
}

// TestLoad_Poetry verifies that [tool.poetry] metadata is used when there
// is no [project] table.
func TestLoad_Poetry(t *testing.T) {
	p, err := Load(writePyProject(t, poetryPyProject))
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, &model.Project{
		Name:          "hpctesttool",
		Version:       "0.1.0",
		BuildBackend:  PoetryBackend,
		BuildRequires: []string{"poetry-core>=1.0.0"},
		Scripts:       []string{"hpctesttool"},
	}, p)
	assert.Empty(t, Warnings(p))
}

// TestLoad_PEP621 verifies [project] wins and scripts come back sorted.
func TestLoad_PEP621(t *testing.T) {
	p, err := Load(writePyProject(t, pep621PyProject))
	require.NoError(t, err)

	assert.Equal(t, "2.0.0", p.Version)
	assert.Equal(t, []string{"hpctesttool", "zeta"}, p.Scripts)
	assert.True(t, p.Provides("hpctesttool"))
}

func TestLoad_Missing(t *testing.T) {
	p, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Len(t, Warnings(p), 1)
}

func TestLoad_Malformed(t *testing.T) {
	_, err := Load(writePyProject(t, "[build-system\nrequires = ["))
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitInvalidInput, cliErr.Code)
	assert.Contains(t, err.Error(), "invalid")
	assert.Contains(t, err.Error(), FileName)
}

// TestParse_AcceptedShapes lists valid pyproject layouts that must load
// without error.
func TestParse_AcceptedShapes(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantVersion string
		wantScripts []string
	}{
		{
			name: "poetry inline table callable",
			content: `
[tool.poetry]
name = "hpctesttool"
version = "0.1.0"

[tool.poetry.scripts]
hpctesttool = { callable = "hpctesttool.cli:main" }
`,
			wantVersion: "0.1.0",
			wantScripts: []string{"hpctesttool"},
		},
		{
			name: "poetry file reference next to string entry",
			content: `
[tool.poetry.scripts]
hpctesttool = "hpctesttool.__main__:main"
helper = { reference = "bin/helper.sh", type = "file" }
`,
			wantScripts: []string{"helper", "hpctesttool"},
		},
		{
			name: "dynamic version",
			content: `
[project]
name = "hpctesttool"
dynamic = ["version"]

[project.scripts]
hpctesttool = "hpctesttool.__main__:main"
`,
			wantScripts: []string{"hpctesttool"},
		},
		{
			name:    "empty file",
			content: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse([]byte(tt.content), FileName)
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.Empty(t, p.Problems)
			assert.Equal(t, tt.wantVersion, p.Version)
			assert.Equal(t, tt.wantScripts, p.Scripts)
		})
	}
}

// TestParse_UnexpectedFieldType verifies that valid TOML with a field of
// the wrong type becomes a warning instead of an error.
func TestParse_UnexpectedFieldType(t *testing.T) {
	p, err := Parse([]byte("[project]\nname = \"hpctesttool\"\nversion = 3\n"), FileName)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Len(t, p.Problems, 1)
	assert.Contains(t, p.Problems[0], "cannot read metadata from "+FileName)

	warnings := Warnings(p)
	require.Len(t, warnings, 1)
	assert.Equal(t, p.Problems[0], warnings[0])
}

func TestWarnings(t *testing.T) {
	tests := []struct {
		name    string
		project *model.Project
		want    []string
	}{
		{
			name:    "clean",
			project: &model.Project{BuildBackend: PoetryBackend, Scripts: []string{"hpctesttool"}},
		},
		{
			name:    "no metadata at all is not suspicious",
			project: &model.Project{},
		},
		{
			name:    "other backend",
			project: &model.Project{BuildBackend: "setuptools.build_meta"},
			want:    []string{`build backend is "setuptools.build_meta", but only poetry.core is installed from the wheel directory`},
		},
		{
			name:    "missing script",
			project: &model.Project{BuildBackend: PoetryBackend, Scripts: []string{"other"}},
			want:    []string{`project does not declare a "hpctesttool" script`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Warnings(tt.project))
		})
	}
}
