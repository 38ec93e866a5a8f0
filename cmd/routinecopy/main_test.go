package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/claude/routinecopy/internal/models"
)

const legDay = `{"title":"Leg Day","exercises":[` +
	`{"name":"Back Squat","note":"","rest":"120s","sets":[{"set":"1","weight":"100","reps":"5"}],"supersetId":null},` +
	`{"name":"Leg Curl","note":"","rest":"60s","sets":[{"set":"1","weight":"40","reps":"12"}],"supersetId":null}]}`

const libraryFixture = `library:
  - name: Back Squat
    muscle: Legs
  - name: Leg Curl
    muscle: Legs
`

const armsFixture = `title: Arms
exercises:
  - name: Curl
    rest: 45s
    sets:
      - label: "1"
        inputs: ["12", "10"]
`

type cliTestEnv struct {
	dir    string
	config string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	writeFile(t, configPath, "shelf:\n  path: "+filepath.Join(dir, "shelf.db")+"\n")
	return &cliTestEnv{dir: dir, config: configPath}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (e *cliTestEnv) file(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	writeFile(t, path, content)
	return path
}

// run executes the CLI with the test config and returns stdout.
func (e *cliTestEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExtractToStdout(t *testing.T) {
	env := setupCLITestEnv(t)
	fixture := env.file(t, "arms.yaml", armsFixture)

	out, err := env.run(t, "", "--driver", "sim", "--fixture", fixture, "extract", "--to", "-")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	got, err := models.DecodeRoutine([]byte(out))
	if err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out)
	}
	want := &models.Routine{Title: "Arms", Exercises: []models.Exercise{{
		Name: "Curl", Rest: "45s",
		Sets: []models.SetEntry{{Set: "1", Weight: "12", Reps: "10"}},
	}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("extract (-want +got):\n%s", diff)
	}
}

// TestExtractToFileAndShelf verifies --to file and --save write the same routine.
func TestExtractToFileAndShelf(t *testing.T) {
	env := setupCLITestEnv(t)
	fixture := env.file(t, "arms.yaml", armsFixture)
	dst := filepath.Join(env.dir, "arms.json")

	out, err := env.run(t, "", "--driver", "sim", "--fixture", fixture, "extract", "--to", "file:"+dst, "--save", "arms")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(out, `Copied "Arms" (1 exercises)`) {
		t.Errorf("output = %q", out)
	}
	fromFile, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	fromShelf, err := env.run(t, "", "shelf", "show", "arms")
	if err != nil {
		t.Fatalf("shelf show: %v", err)
	}
	if string(fromFile) != fromShelf {
		t.Errorf("file and shelf differ:\n%s\n%s", fromFile, fromShelf)
	}
}

func TestImportFromStdin(t *testing.T) {
	env := setupCLITestEnv(t)
	fixture := env.file(t, "lib.yaml", libraryFixture)

	out, err := env.run(t, legDay, "--driver", "sim", "--fixture", fixture, "import", "--from", "-")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, `Imported "Leg Day": 2 applied, 0 not found, 0 partial`) {
		t.Errorf("output = %q", out)
	}

	out, err = env.run(t, "", "runs")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if !strings.Contains(out, "Leg Day") {
		t.Errorf("runs output = %q", out)
	}
}

// TestImportStrict verifies --strict fails when an exercise is missing from
// the library but still prints the report.
func TestImportStrict(t *testing.T) {
	env := setupCLITestEnv(t)
	fixture := env.file(t, "lib.yaml", "library:\n  - name: Back Squat\n    muscle: Legs\n")
	src := env.file(t, "legs.json", legDay)

	out, err := env.run(t, "", "--driver", "sim", "--fixture", fixture, "import", "--from", src)
	if err != nil {
		t.Fatalf("non-strict import: %v", err)
	}
	if !strings.Contains(out, "1 not found") {
		t.Errorf("output = %q", out)
	}

	_, err = env.run(t, "", "--driver", "sim", "--fixture", fixture, "import", "--from", src, "--strict")
	if err == nil || !strings.Contains(err.Error(), "1 not found") {
		t.Errorf("strict err = %v", err)
	}
}

func TestImportMalformed(t *testing.T) {
	env := setupCLITestEnv(t)
	fixture := env.file(t, "lib.yaml", libraryFixture)

	_, err := env.run(t, "   ", "--driver", "sim", "--fixture", fixture, "import", "--from", "-")
	if err == nil || !strings.Contains(err.Error(), "paste routine JSON first") {
		t.Errorf("err = %v", err)
	}
}

// TestShelfCommands verifies save, list, import from the shelf, and delete.
func TestShelfCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	fixture := env.file(t, "lib.yaml", libraryFixture)

	if _, err := env.run(t, legDay, "shelf", "save", "legs", "--from", "-"); err != nil {
		t.Fatalf("shelf save: %v", err)
	}
	out, err := env.run(t, "", "shelf", "list")
	if err != nil {
		t.Fatalf("shelf list: %v", err)
	}
	if !strings.Contains(out, "legs") || !strings.Contains(out, "Leg Day") {
		t.Errorf("list output = %q", out)
	}

	out, err = env.run(t, "", "--driver", "sim", "--fixture", fixture, "import", "--from", "shelf:legs", "--json")
	if err != nil {
		t.Fatalf("import from shelf: %v", err)
	}
	if !strings.Contains(out, `"outcome": "placed-and-detailed"`) {
		t.Errorf("json report = %s", out)
	}

	if _, err := env.run(t, "", "shelf", "delete", "legs"); err != nil {
		t.Fatalf("shelf delete: %v", err)
	}
	if _, err := env.run(t, "", "shelf", "show", "legs"); err == nil {
		t.Error("expected error showing a deleted routine")
	}
}

func TestLibraryCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	fixture := env.file(t, "lib.yaml", libraryFixture)

	out, err := env.run(t, "", "--driver", "sim", "--fixture", fixture, "library", "--json")
	if err != nil {
		t.Fatalf("library: %v", err)
	}
	if !strings.Contains(out, `"name": "Leg Curl"`) {
		t.Errorf("output = %s", out)
	}
}

func TestDriverFlagErrors(t *testing.T) {
	env := setupCLITestEnv(t)
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"--driver", "sim", "extract"}, "--driver sim needs --fixture"},
		{[]string{"--driver", "firefox", "extract"}, `unknown driver "firefox"`},
	}
	for _, tt := range tests {
		_, err := env.run(t, "", tt.args...)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%v: err = %v, want %q", tt.args, err, tt.want)
		}
	}
}

func TestServeRequiresAPIKey(t *testing.T) {
	env := setupCLITestEnv(t)
	fixture := env.file(t, "lib.yaml", libraryFixture)
	t.Setenv("ROUTINECOPY_AUTH_API_KEY", "")

	_, err := env.run(t, "", "--driver", "sim", "--fixture", fixture, "serve")
	if err == nil {
		t.Fatal("expected error without an API key")
	}
}

func TestVersion(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := env.run(t, "", "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "routinecopy dev\n" {
		t.Errorf("version output = %q", out)
	}
}
