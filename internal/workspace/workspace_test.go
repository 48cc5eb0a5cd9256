package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/cleangen/pkg/types"
)

func sampleArtifacts() []types.Artifact {
	return []types.Artifact{
		{RelativePath: "data/models/login_model.dart", SourceText: "class LoginModel {}\n"},
		{RelativePath: "auth_di.dart", SourceText: "Future<void> authDI() async {}\n"},
	}
}

func TestWriteCreatesTree(t *testing.T) {
	out := t.TempDir()
	root, err := Write(out, "auth", sampleArtifacts())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "auth"), root)

	data, err := os.ReadFile(filepath.Join(root, "data", "models", "login_model.dart"))
	require.NoError(t, err)
	assert.Equal(t, "class LoginModel {}\n", string(data))

	for _, dir := range []string{"domain/entities", "presentation/pages", "presentation/widgets"} {
		info, err := os.Stat(filepath.Join(root, filepath.FromSlash(dir)))
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir(), dir)
	}

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "staging directory should be gone")
}

func TestWriteRefusesExistingFeature(t *testing.T) {
	out := t.TempDir()
	existing := filepath.Join(out, "auth")
	require.NoError(t, os.MkdirAll(existing, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(existing, "keep.dart"), []byte("mine"), 0o644))

	_, err := Write(out, "auth", sampleArtifacts())
	assert.True(t, errors.Is(err, ErrFeatureExists), "got %v", err)

	entries, err := os.ReadDir(existing)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteRejectsEscapingPaths(t *testing.T) {
	out := t.TempDir()
	_, err := Write(out, "auth", []types.Artifact{{RelativePath: "../evil.dart", SourceText: "x"}})
	assert.Error(t, err)

	_, statErr := os.Stat(filepath.Join(out, "auth"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDiff(t *testing.T) {
	out := t.TempDir()
	root, err := Write(out, "auth", sampleArtifacts())
	require.NoError(t, err)

	next := []types.Artifact{
		{RelativePath: "data/models/login_model.dart", SourceText: "class LoginModel {}\n"},
		{RelativePath: "auth_di.dart", SourceText: "Future<void> authDI() async {\n  // DataSources\n}\n"},
		{RelativePath: "data/models/logout_model.dart", SourceText: "class LogoutModel {}\n"},
	}
	diffs, err := Diff(root, next)
	require.NoError(t, err)
	require.Len(t, diffs, 2)

	assert.Equal(t, "auth_di.dart", diffs[0].Path)
	assert.Equal(t, StatusModified, diffs[0].Status)
	assert.Equal(t, []Line{
		{Op: OpDelete, Text: "Future<void> authDI() async {}"},
		{Op: OpInsert, Text: "Future<void> authDI() async {"},
		{Op: OpInsert, Text: "  // DataSources"},
		{Op: OpInsert, Text: "}"},
	}, diffs[0].Lines)
	ins, del := diffs[0].Changed()
	assert.Equal(t, 3, ins)
	assert.Equal(t, 1, del)

	assert.Equal(t, "data/models/logout_model.dart", diffs[1].Path)
	assert.Equal(t, StatusAdded, diffs[1].Status)
	assert.Equal(t, []Line{{Op: OpInsert, Text: "class LogoutModel {}"}}, diffs[1].Lines)
}
