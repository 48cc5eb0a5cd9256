package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const authFeature = `name: auth
endpoints:
  - name: login
    path: /auth/login
    verb: post
    request: '{"email":"a@b.c","password":"x"}'
    response: '{"token":"t"}'
  - name: logout
    path: /auth/logout
    verb: DELETE
`

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func setupHome(t *testing.T) (string, string) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("CLEANGEN_STORE_PATH", filepath.Join(home, "runs.db"))
	spec := filepath.Join(home, "auth.yaml")
	require.NoError(t, os.WriteFile(spec, []byte(authFeature), 0o644))
	return home, spec
}

func TestInitCreatesConfig(t *testing.T) {
	home, _ := setupHome(t)

	out, err := run(t, "", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "created")
	assert.FileExists(t, filepath.Join(home, ".cleangen", "config.yaml"))

	out, err = run(t, "", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "exists")
}

func TestModelFromStdin(t *testing.T) {
	setupHome(t)

	out, err := run(t, `{"user_id":1}`, "model", "--name", "user_profile")
	require.NoError(t, err)
	assert.Contains(t, out, "class UserProfile {")
	assert.Contains(t, out, "  final int userId;\n")

	_, err = run(t, `[]`, "model")
	assert.Error(t, err)
}

func TestGenerateDryRun(t *testing.T) {
	home, spec := setupHome(t)

	out, err := run(t, "", "generate", "--spec", spec, "--out", filepath.Join(home, "features"), "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "// ==> data/models/login_model.dart")
	assert.Contains(t, out, "class AuthCubit extends Cubit<AuthState> {")
	assert.NoDirExists(t, filepath.Join(home, "features", "auth"))
}

func TestGenerateListShowDiffDelete(t *testing.T) {
	home, spec := setupHome(t)
	features := filepath.Join(home, "features")

	out, err := run(t, "", "generate", "--spec", spec, "--out", features)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(features, "auth", "auth_di.dart"))
	id := regexp.MustCompile(`run (run_\d{8}_\d{3})`).FindStringSubmatch(out)
	require.Len(t, id, 2, out)

	_, err = run(t, "", "generate", "--spec", spec, "--out", features)
	assert.Error(t, err, "existing feature roots are never overwritten")

	out, err = run(t, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id[1])
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "written")

	out, err = run(t, "", "show", "--run", id[1])
	require.NoError(t, err)
	assert.Contains(t, out, "name: auth")
	assert.Contains(t, out, "domain/use_cases/logout_use_case.dart")

	out, err = run(t, "", "diff", "--spec", spec, "--root", filepath.Join(features, "auth"))
	require.NoError(t, err)
	assert.Equal(t, "no changes\n", out)

	require.NoError(t, os.WriteFile(filepath.Join(features, "auth", "auth_di.dart"), []byte("// edited\n"), 0o644))
	out, err = run(t, "", "diff", "--spec", spec, "--root", filepath.Join(features, "auth"))
	require.NoError(t, err)
	assert.Contains(t, out, "modified auth_di.dart")
	assert.Contains(t, out, "- // edited")

	out, err = run(t, "", "delete", "--run", id[1])
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")
	_, err = run(t, "", "show", "--run", id[1])
	assert.Error(t, err)
}

func TestImportHAR(t *testing.T) {
	home, _ := setupHome(t)
	target := filepath.Join(home, "users.yaml")

	out, err := run(t, "", "import", "--har", filepath.Join("..", "..", "internal", "har", "testdata", "sample.har"), "--name", "users", "--out", target)
	require.NoError(t, err)
	assert.Contains(t, out, "2 endpoints")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: users")
	assert.Contains(t, string(data), "createAuthLogin")
	assert.NotContains(t, string(data), "secret")

	out, err = run(t, "", "generate", "--spec", target, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "class CreateAuthLoginBodyModel {")
}
