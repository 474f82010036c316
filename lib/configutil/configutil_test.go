package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Timeout int      `json:"timeout"`
	Agent   string   `json:"agent"`
	Db      Database `json:"database"`
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	err := os.WriteFile(path, []byte(contents), 0644)
	require.NoError(t, err)
}

func TestLocalName(t *testing.T) {
	require.Equal(t, filepath.Join("a", "b.local.json5"), LocalName(filepath.Join("a", "b.json5")))
	require.Equal(t, filepath.Join("a", "b.local"), LocalName(filepath.Join("a", "b")))
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "branchscrape.json5")

	_, err := ReadConfig[testConfig](name)
	require.ErrorIs(t, err, os.ErrNotExist)

	writeFile(t, name, `{
		// comments and trailing commas are fine
		timeout: 20,
		agent: "default",
		database: {file: "state.db"},
	}`)
	config, err := ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, testConfig{Timeout: 20, Agent: "default", Db: Database{File: "state.db"}}, config)

	writeFile(t, filepath.Join(dir, "branchscrape.local.json5"), `{agent: "local"}`)
	config, err = ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, testConfig{Timeout: 20, Agent: "local", Db: Database{File: "state.db"}}, config)

	writeFile(t, name, `{timeout: `)
	_, err = ReadConfig[testConfig](name)
	require.Error(t, err)
}

func TestReadConfigLocalOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "x.local.json5"), `{timeout: 3}`)

	config, err := ReadConfig[testConfig](filepath.Join(dir, "x.json5"))
	require.NoError(t, err)
	require.Equal(t, 3, config.Timeout)
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	writeFile(t, filepath.Join(root, "branchscrape.json5"), `{timeout: 7}`)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() {
		os.Chdir(wd)
	})

	config, path, err := ReadRecursively[testConfig]("branchscrape.json5")
	require.NoError(t, err)
	require.Equal(t, 7, config.Timeout)
	require.Equal(t, "branchscrape.json5", filepath.Base(path))

	_, _, err = ReadRecursively[testConfig]("does-not-exist.json5")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDatabaseOpenDB(t *testing.T) {
	_, err := Database{}.OpenDB()
	require.Error(t, err)
	require.False(t, Database{}.Enabled())

	path := filepath.Join(t.TempDir(), "nested", "state.db")
	db, err := Database{File: path}.OpenDB()
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("create table t (x integer)")
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)
}
