package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFind_ScoresByKeywords(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app/page.js", "export default function Home() { return <main/> }")
	login := writeFile(t, root, "app/login/page.js", `export default function Login() {
  return <form><input type="password" /></form>
}`)
	writeFile(t, root, "node_modules/pkg/password.js", "password password password")
	writeFile(t, root, "README.md", "password login")

	res, err := Find(root, "Add a show password toggle to the login form", DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, login, res.Path)
	assert.True(t, res.Exists)
	assert.Positive(t, res.Score)
	assert.Contains(t, res.Content, "password")
}

func TestFind_FallsBackToFirstCandidate(t *testing.T) {
	root := t.TempDir()
	first := writeFile(t, root, "a.js", "const a = 1;")
	writeFile(t, root, "b.jsx", "const b = 2;")

	res, err := Find(root, "zebra", DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, first, res.Path)
	assert.Zero(t, res.Score)
}

func TestFind_NoCandidates(t *testing.T) {
	root := t.TempDir()
	res, err := Find(root, "add a password input", DefaultConfig())
	require.NoError(t, err)
	assert.False(t, res.Exists)
	assert.Equal(t, filepath.Join(root, "components", "PasswordInput.js"), res.Path)
}

func TestFind_NotADirectory(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x.js", "")
	_, err := Find(path, "task", DefaultConfig())
	assert.Error(t, err)
}

func TestReadFile_Latin1(t *testing.T) {
	// "café" in ISO-8859-1
	path := writeFile(t, t.TempDir(), "menu.js", "const s = \"caf\xe9\";\n")
	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "const s = \"café\";\n", got)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"password", "toggle", "login"}, tokenize("Add a password toggle to the login page, password!"))
}

func TestTokenize_DropsRequestVocabulary(t *testing.T) {
	assert.Empty(t, tokenize("Please update the code so we can use a new function in this file"))
	assert.Equal(t, []string{"dark", "mode", "navbar"}, tokenize("Could you implement dark mode for the navbar component?"))
}

func TestSharedKeywords(t *testing.T) {
	assert.Equal(t, 2, sharedKeywords([]string{"login", "form"}, []string{"form", "login", "page"}))
	assert.Zero(t, sharedKeywords(nil, []string{"login"}))
}
